package repository

import (
	"time"

	"github.com/google/uuid"
)

// Tenant is one provisioned print service tenant.
type Tenant struct {
	ID        uuid.UUID
	Slug      string
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// PricingConfig holds a tenant's pricing rates.
type PricingConfig struct {
	TenantID             uuid.UUID
	MaterialPricePerGram map[string]float64
	TimeRatePerHour      float64
	UpdatedAt            time.Time
}

// Fee is one configured surcharge row.
type Fee struct {
	ID              uuid.UUID
	TenantID        uuid.UUID
	Name            string
	CalculationType string
	Amount          float64
	ApplicationType string
	Enabled         bool
	Position        int
}

// PostProcessingOption is one configured finishing option row.
type PostProcessingOption struct {
	ID       uuid.UUID
	TenantID uuid.UUID
	Name     string
	Price    float64
	Enabled  bool
	Position int
}

// PrintParameters stores a tenant's storefront slicing settings as
// opaque documents; the slicing layer interprets the defaults.
type PrintParameters struct {
	TenantID   uuid.UUID
	Defaults   map[string]interface{}
	Visibility map[string]bool
	MaxSizeMm  map[string]float64
	UpdatedAt  time.Time
}

// Preset is one quality preset offered to the storefront.
type Preset struct {
	Key         string `json:"key"`
	Label       string `json:"label"`
	Description string `json:"description"`
	Quality     string `json:"quality"`
}

// Branding holds a tenant's storefront branding.
type Branding struct {
	TenantID     uuid.UUID
	CompanyName  string
	LogoURL      string
	PrimaryColor string
	AccentColor  string
}

// CreateTenantParams provisions a tenant.
type CreateTenantParams struct {
	Slug string
	Name string
}

// UpsertPricingParams replaces a tenant's pricing configuration.
type UpsertPricingParams struct {
	TenantID             uuid.UUID
	MaterialPricePerGram map[string]float64
	TimeRatePerHour      float64
}

// ReplaceFeesParams replaces a tenant's fee list in one transaction.
type ReplaceFeesParams struct {
	TenantID uuid.UUID
	Fees     []Fee
}

// ReplacePostProcessingParams replaces a tenant's option list in one
// transaction.
type ReplacePostProcessingParams struct {
	TenantID uuid.UUID
	Options  []PostProcessingOption
}
