// Package transport defines the request and response DTOs for the
// tenants module.
package transport

// CreateTenantRequest provisions a new tenant.
type CreateTenantRequest struct {
	Slug string `json:"slug" validate:"required,min=2,max=64"`
	Name string `json:"name" validate:"required,min=2,max=128"`
}

// TenantResponse is the public shape of one tenant.
type TenantResponse struct {
	ID        string `json:"id"`
	Slug      string `json:"slug"`
	Name      string `json:"name"`
	CreatedAt string `json:"createdAt"`
	UpdatedAt string `json:"updatedAt"`
}

// ListTenantsResponse wraps the tenant listing.
type ListTenantsResponse struct {
	Tenants []TenantResponse `json:"tenants"`
	Total   int              `json:"total"`
}

// PricingConfigRequest replaces a tenant's pricing configuration.
type PricingConfigRequest struct {
	MaterialPricePerGram map[string]float64 `json:"materialPricePerGram" validate:"required,min=1"`
	TimeRatePerHour      float64            `json:"timeRatePerHour" validate:"required,gt=0"`
}

// PricingConfigResponse returns a tenant's pricing configuration.
type PricingConfigResponse struct {
	MaterialPricePerGram map[string]float64 `json:"materialPricePerGram"`
	TimeRatePerHour      float64            `json:"timeRatePerHour"`
	UpdatedAt            string             `json:"updatedAt"`
}

// FeeRequest is one fee entry in a replace-all update.
type FeeRequest struct {
	Name            string  `json:"name" validate:"required,min=1,max=128"`
	CalculationType string  `json:"calculationType" validate:"required,oneof=fixed per_gram per_minute per_hour per_kwh"`
	Amount          float64 `json:"amount" validate:"gte=0"`
	ApplicationType string  `json:"applicationType" validate:"required,oneof=per_model once_per_order custom"`
	Enabled         bool    `json:"enabled"`
}

// PutFeesRequest replaces a tenant's fee list.
type PutFeesRequest struct {
	Fees []FeeRequest `json:"fees" validate:"required,dive"`
}

// FeeResponse is one configured fee.
type FeeResponse struct {
	ID              string  `json:"id"`
	Name            string  `json:"name"`
	CalculationType string  `json:"calculationType"`
	Amount          float64 `json:"amount"`
	ApplicationType string  `json:"applicationType"`
	Enabled         bool    `json:"enabled"`
}

// ListFeesResponse wraps the fee listing.
type ListFeesResponse struct {
	Fees []FeeResponse `json:"fees"`
}

// PostProcessingRequest is one post-processing option in a replace-all
// update.
type PostProcessingRequest struct {
	Name    string  `json:"name" validate:"required,min=1,max=128"`
	Price   float64 `json:"price" validate:"gte=0"`
	Enabled bool    `json:"enabled"`
}

// PutPostProcessingRequest replaces a tenant's post-processing options.
type PutPostProcessingRequest struct {
	Options []PostProcessingRequest `json:"options" validate:"required,dive"`
}

// PostProcessingResponse is one configured option.
type PostProcessingResponse struct {
	ID      string  `json:"id"`
	Name    string  `json:"name"`
	Price   float64 `json:"price"`
	Enabled bool    `json:"enabled"`
}

// ListPostProcessingResponse wraps the option listing.
type ListPostProcessingResponse struct {
	Options []PostProcessingResponse `json:"options"`
}

// PrintParametersRequest replaces a tenant's print parameter settings:
// default slicing values, which controls the storefront shows, and the
// accepted model size limits.
type PrintParametersRequest struct {
	Defaults   map[string]interface{} `json:"defaults" validate:"required"`
	Visibility map[string]bool        `json:"visibility"`
	MaxSizeMm  map[string]float64     `json:"maxSizeMm"`
}

// PrintParametersResponse returns the print parameter settings.
type PrintParametersResponse struct {
	Defaults   map[string]interface{} `json:"defaults"`
	Visibility map[string]bool        `json:"visibility"`
	MaxSizeMm  map[string]float64     `json:"maxSizeMm"`
	UpdatedAt  string                 `json:"updatedAt"`
}

// PresetRequest is one quality preset in a replace-all update.
type PresetRequest struct {
	Key         string `json:"key" validate:"required,min=1,max=64"`
	Label       string `json:"label" validate:"required,min=1,max=128"`
	Description string `json:"description" validate:"max=512"`
	Quality     string `json:"quality" validate:"required"`
}

// PutPresetsRequest replaces a tenant's quality presets.
type PutPresetsRequest struct {
	Presets []PresetRequest `json:"presets" validate:"required,dive"`
}

// ListPresetsResponse wraps the preset listing.
type ListPresetsResponse struct {
	Presets []PresetRequest `json:"presets"`
}

// BrandingRequest replaces a tenant's branding.
type BrandingRequest struct {
	CompanyName  string `json:"companyName" validate:"required,min=1,max=128"`
	LogoURL      string `json:"logoUrl" validate:"omitempty,url"`
	PrimaryColor string `json:"primaryColor" validate:"omitempty,hexcolor"`
	AccentColor  string `json:"accentColor" validate:"omitempty,hexcolor"`
}

// BrandingResponse returns a tenant's branding, falling back to the
// documented defaults when none is stored.
type BrandingResponse struct {
	CompanyName  string `json:"companyName"`
	LogoURL      string `json:"logoUrl"`
	PrimaryColor string `json:"primaryColor"`
	AccentColor  string `json:"accentColor"`
}
