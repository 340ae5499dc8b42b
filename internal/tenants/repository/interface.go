package repository

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines persistence for tenants and their configuration.
type Repository interface {
	CreateTenant(ctx context.Context, params CreateTenantParams) (Tenant, error)
	GetTenantByID(ctx context.Context, id uuid.UUID) (Tenant, error)
	GetTenantBySlug(ctx context.Context, slug string) (Tenant, error)
	ListTenants(ctx context.Context) ([]Tenant, error)

	GetPricing(ctx context.Context, tenantID uuid.UUID) (PricingConfig, error)
	UpsertPricing(ctx context.Context, params UpsertPricingParams) (PricingConfig, error)

	ListFees(ctx context.Context, tenantID uuid.UUID) ([]Fee, error)
	ReplaceFees(ctx context.Context, params ReplaceFeesParams) ([]Fee, error)

	ListPostProcessing(ctx context.Context, tenantID uuid.UUID) ([]PostProcessingOption, error)
	ReplacePostProcessing(ctx context.Context, params ReplacePostProcessingParams) ([]PostProcessingOption, error)

	GetPrintParameters(ctx context.Context, tenantID uuid.UUID) (PrintParameters, error)
	UpsertPrintParameters(ctx context.Context, params PrintParameters) (PrintParameters, error)

	GetPresets(ctx context.Context, tenantID uuid.UUID) ([]Preset, error)
	UpsertPresets(ctx context.Context, tenantID uuid.UUID, presets []Preset) ([]Preset, error)

	GetBranding(ctx context.Context, tenantID uuid.UUID) (Branding, error)
	UpsertBranding(ctx context.Context, branding Branding) (Branding, error)
}
