// Package service implements the tenants business logic.
package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	domainevents "printcalc_backend/internal/events"
	"printcalc_backend/internal/pricing"
	"printcalc_backend/internal/tenants/repository"
	"printcalc_backend/internal/tenants/transport"
	"printcalc_backend/platform/events"
	"printcalc_backend/platform/logger"
)

// Branding defaults used when a tenant has not configured its own.
const (
	defaultCompanyName  = "3D Print Service"
	defaultPrimaryColor = "#3B82F6"
	defaultAccentColor  = "#F97316"
)

// Service implements tenant configuration management.
type Service struct {
	repo repository.Repository
	bus  events.Bus
	log  *logger.Logger
}

// New creates the tenants service.
func New(repo repository.Repository, bus events.Bus, log *logger.Logger) *Service {
	return &Service{repo: repo, bus: bus, log: log}
}

// CreateTenant provisions a tenant and announces it on the event bus.
func (s *Service) CreateTenant(ctx context.Context, req transport.CreateTenantRequest) (transport.TenantResponse, error) {
	tenant, err := s.repo.CreateTenant(ctx, repository.CreateTenantParams{Slug: req.Slug, Name: req.Name})
	if err != nil {
		return transport.TenantResponse{}, err
	}

	// Synchronous so provisioning subscribers (default seeding, audit)
	// finish before the admin gets the response and starts configuring.
	if err := s.bus.PublishSync(ctx, domainevents.TenantCreated{
		BaseEvent: events.NewBaseEvent(),
		TenantID:  tenant.ID,
		Slug:      tenant.Slug,
	}); err != nil {
		s.log.Warn("tenant created handler failed", "tenant_id", tenant.ID.String(), "error", err.Error())
	}

	return toTenantResponse(tenant), nil
}

// GetTenant retrieves one tenant.
func (s *Service) GetTenant(ctx context.Context, id uuid.UUID) (transport.TenantResponse, error) {
	tenant, err := s.repo.GetTenantByID(ctx, id)
	if err != nil {
		return transport.TenantResponse{}, err
	}
	return toTenantResponse(tenant), nil
}

// ResolveTenant resolves a tenant by slug, used by tenant middleware.
func (s *Service) ResolveTenant(ctx context.Context, slug string) (uuid.UUID, error) {
	tenant, err := s.repo.GetTenantBySlug(ctx, slug)
	if err != nil {
		return uuid.Nil, err
	}
	return tenant.ID, nil
}

// ListTenants lists all tenants.
func (s *Service) ListTenants(ctx context.Context) (transport.ListTenantsResponse, error) {
	tenants, err := s.repo.ListTenants(ctx)
	if err != nil {
		return transport.ListTenantsResponse{}, err
	}

	resp := transport.ListTenantsResponse{Tenants: make([]transport.TenantResponse, 0, len(tenants)), Total: len(tenants)}
	for _, t := range tenants {
		resp.Tenants = append(resp.Tenants, toTenantResponse(t))
	}
	return resp, nil
}

// GetPricing retrieves the pricing configuration. Missing configuration
// surfaces as not-found.
func (s *Service) GetPricing(ctx context.Context, tenantID uuid.UUID) (transport.PricingConfigResponse, error) {
	cfg, err := s.repo.GetPricing(ctx, tenantID)
	if err != nil {
		return transport.PricingConfigResponse{}, err
	}
	return transport.PricingConfigResponse{
		MaterialPricePerGram: cfg.MaterialPricePerGram,
		TimeRatePerHour:      cfg.TimeRatePerHour,
		UpdatedAt:            cfg.UpdatedAt.Format(time.RFC3339),
	}, nil
}

// PutPricing replaces the pricing configuration.
func (s *Service) PutPricing(ctx context.Context, tenantID uuid.UUID, req transport.PricingConfigRequest) (transport.PricingConfigResponse, error) {
	if _, err := s.repo.GetTenantByID(ctx, tenantID); err != nil {
		return transport.PricingConfigResponse{}, err
	}

	cfg, err := s.repo.UpsertPricing(ctx, repository.UpsertPricingParams{
		TenantID:             tenantID,
		MaterialPricePerGram: req.MaterialPricePerGram,
		TimeRatePerHour:      req.TimeRatePerHour,
	})
	if err != nil {
		return transport.PricingConfigResponse{}, err
	}
	return transport.PricingConfigResponse{
		MaterialPricePerGram: cfg.MaterialPricePerGram,
		TimeRatePerHour:      cfg.TimeRatePerHour,
		UpdatedAt:            cfg.UpdatedAt.Format(time.RFC3339),
	}, nil
}

// ListFees lists the configured fees.
func (s *Service) ListFees(ctx context.Context, tenantID uuid.UUID) (transport.ListFeesResponse, error) {
	fees, err := s.repo.ListFees(ctx, tenantID)
	if err != nil {
		return transport.ListFeesResponse{}, err
	}
	return transport.ListFeesResponse{Fees: toFeeResponses(fees)}, nil
}

// PutFees replaces the fee list.
func (s *Service) PutFees(ctx context.Context, tenantID uuid.UUID, req transport.PutFeesRequest) (transport.ListFeesResponse, error) {
	if _, err := s.repo.GetTenantByID(ctx, tenantID); err != nil {
		return transport.ListFeesResponse{}, err
	}

	rows := make([]repository.Fee, 0, len(req.Fees))
	for _, f := range req.Fees {
		rows = append(rows, repository.Fee{
			Name:            f.Name,
			CalculationType: f.CalculationType,
			Amount:          f.Amount,
			ApplicationType: f.ApplicationType,
			Enabled:         f.Enabled,
		})
	}

	fees, err := s.repo.ReplaceFees(ctx, repository.ReplaceFeesParams{TenantID: tenantID, Fees: rows})
	if err != nil {
		return transport.ListFeesResponse{}, err
	}
	return transport.ListFeesResponse{Fees: toFeeResponses(fees)}, nil
}

// ListPostProcessing lists the configured finishing options.
func (s *Service) ListPostProcessing(ctx context.Context, tenantID uuid.UUID) (transport.ListPostProcessingResponse, error) {
	options, err := s.repo.ListPostProcessing(ctx, tenantID)
	if err != nil {
		return transport.ListPostProcessingResponse{}, err
	}
	return transport.ListPostProcessingResponse{Options: toOptionResponses(options)}, nil
}

// PutPostProcessing replaces the finishing option list.
func (s *Service) PutPostProcessing(ctx context.Context, tenantID uuid.UUID, req transport.PutPostProcessingRequest) (transport.ListPostProcessingResponse, error) {
	if _, err := s.repo.GetTenantByID(ctx, tenantID); err != nil {
		return transport.ListPostProcessingResponse{}, err
	}

	rows := make([]repository.PostProcessingOption, 0, len(req.Options))
	for _, o := range req.Options {
		rows = append(rows, repository.PostProcessingOption{Name: o.Name, Price: o.Price, Enabled: o.Enabled})
	}

	options, err := s.repo.ReplacePostProcessing(ctx, repository.ReplacePostProcessingParams{TenantID: tenantID, Options: rows})
	if err != nil {
		return transport.ListPostProcessingResponse{}, err
	}
	return transport.ListPostProcessingResponse{Options: toOptionResponses(options)}, nil
}

// GetPrintParameters retrieves the print parameter settings.
func (s *Service) GetPrintParameters(ctx context.Context, tenantID uuid.UUID) (transport.PrintParametersResponse, error) {
	p, err := s.repo.GetPrintParameters(ctx, tenantID)
	if err != nil {
		return transport.PrintParametersResponse{}, err
	}
	return transport.PrintParametersResponse{
		Defaults:   p.Defaults,
		Visibility: p.Visibility,
		MaxSizeMm:  p.MaxSizeMm,
		UpdatedAt:  p.UpdatedAt.Format(time.RFC3339),
	}, nil
}

// PutPrintParameters replaces the print parameter settings.
func (s *Service) PutPrintParameters(ctx context.Context, tenantID uuid.UUID, req transport.PrintParametersRequest) (transport.PrintParametersResponse, error) {
	if _, err := s.repo.GetTenantByID(ctx, tenantID); err != nil {
		return transport.PrintParametersResponse{}, err
	}

	p, err := s.repo.UpsertPrintParameters(ctx, repository.PrintParameters{
		TenantID:   tenantID,
		Defaults:   req.Defaults,
		Visibility: req.Visibility,
		MaxSizeMm:  req.MaxSizeMm,
	})
	if err != nil {
		return transport.PrintParametersResponse{}, err
	}
	return transport.PrintParametersResponse{
		Defaults:   p.Defaults,
		Visibility: p.Visibility,
		MaxSizeMm:  p.MaxSizeMm,
		UpdatedAt:  p.UpdatedAt.Format(time.RFC3339),
	}, nil
}

// GetPresets retrieves the quality presets.
func (s *Service) GetPresets(ctx context.Context, tenantID uuid.UUID) (transport.ListPresetsResponse, error) {
	presets, err := s.repo.GetPresets(ctx, tenantID)
	if err != nil {
		return transport.ListPresetsResponse{}, err
	}

	resp := transport.ListPresetsResponse{Presets: make([]transport.PresetRequest, 0, len(presets))}
	for _, p := range presets {
		resp.Presets = append(resp.Presets, transport.PresetRequest{
			Key: p.Key, Label: p.Label, Description: p.Description, Quality: p.Quality,
		})
	}
	return resp, nil
}

// PutPresets replaces the quality presets.
func (s *Service) PutPresets(ctx context.Context, tenantID uuid.UUID, req transport.PutPresetsRequest) (transport.ListPresetsResponse, error) {
	if _, err := s.repo.GetTenantByID(ctx, tenantID); err != nil {
		return transport.ListPresetsResponse{}, err
	}

	presets := make([]repository.Preset, 0, len(req.Presets))
	for _, p := range req.Presets {
		presets = append(presets, repository.Preset{
			Key: p.Key, Label: p.Label, Description: p.Description, Quality: p.Quality,
		})
	}

	if _, err := s.repo.UpsertPresets(ctx, tenantID, presets); err != nil {
		return transport.ListPresetsResponse{}, err
	}
	return transport.ListPresetsResponse{Presets: req.Presets}, nil
}

// GetBranding retrieves the branding, applying defaults when the tenant
// has not configured any. Unlike the other configuration sections this
// never returns not-found for an existing tenant.
func (s *Service) GetBranding(ctx context.Context, tenantID uuid.UUID) (transport.BrandingResponse, error) {
	tenant, err := s.repo.GetTenantByID(ctx, tenantID)
	if err != nil {
		return transport.BrandingResponse{}, err
	}

	b, err := s.repo.GetBranding(ctx, tenantID)
	if err != nil {
		return transport.BrandingResponse{
			CompanyName:  defaultBrandingName(tenant.Name),
			PrimaryColor: defaultPrimaryColor,
			AccentColor:  defaultAccentColor,
		}, nil
	}
	return transport.BrandingResponse{
		CompanyName:  b.CompanyName,
		LogoURL:      b.LogoURL,
		PrimaryColor: b.PrimaryColor,
		AccentColor:  b.AccentColor,
	}, nil
}

// PutBranding replaces the branding.
func (s *Service) PutBranding(ctx context.Context, tenantID uuid.UUID, req transport.BrandingRequest) (transport.BrandingResponse, error) {
	if _, err := s.repo.GetTenantByID(ctx, tenantID); err != nil {
		return transport.BrandingResponse{}, err
	}

	b, err := s.repo.UpsertBranding(ctx, repository.Branding{
		TenantID:     tenantID,
		CompanyName:  req.CompanyName,
		LogoURL:      req.LogoURL,
		PrimaryColor: req.PrimaryColor,
		AccentColor:  req.AccentColor,
	})
	if err != nil {
		return transport.BrandingResponse{}, err
	}
	return transport.BrandingResponse{
		CompanyName:  b.CompanyName,
		LogoURL:      b.LogoURL,
		PrimaryColor: b.PrimaryColor,
		AccentColor:  b.AccentColor,
	}, nil
}

// PricingSnapshot is the frozen pricing input for one estimate run.
type PricingSnapshot struct {
	Config         pricing.Config
	Fees           []pricing.Fee
	PostProcessing []pricing.PostProcessingOption
}

// Snapshot loads everything the pricing engine needs for a tenant in one
// read, so a concurrent configuration update cannot split an estimate
// across two versions. Missing pricing configuration is not-found.
func (s *Service) Snapshot(ctx context.Context, tenantID uuid.UUID) (PricingSnapshot, error) {
	cfg, err := s.repo.GetPricing(ctx, tenantID)
	if err != nil {
		return PricingSnapshot{}, err
	}

	fees, err := s.repo.ListFees(ctx, tenantID)
	if err != nil {
		return PricingSnapshot{}, err
	}

	options, err := s.repo.ListPostProcessing(ctx, tenantID)
	if err != nil {
		return PricingSnapshot{}, err
	}

	snap := PricingSnapshot{
		Config: pricing.Config{
			MaterialPricePerGram: cfg.MaterialPricePerGram,
			TimeRatePerHour:      cfg.TimeRatePerHour,
		},
	}
	for _, f := range fees {
		snap.Fees = append(snap.Fees, pricing.Fee{
			Name:            f.Name,
			CalculationType: pricing.CalculationType(f.CalculationType),
			Amount:          f.Amount,
			ApplicationType: pricing.ApplicationType(f.ApplicationType),
			Enabled:         f.Enabled,
		})
	}
	for _, o := range options {
		if !o.Enabled {
			continue
		}
		snap.PostProcessing = append(snap.PostProcessing, pricing.PostProcessingOption{
			ID:    o.ID.String(),
			Name:  o.Name,
			Price: o.Price,
		})
	}
	return snap, nil
}

func defaultBrandingName(tenantName string) string {
	if tenantName != "" {
		return tenantName
	}
	return defaultCompanyName
}

func toTenantResponse(t repository.Tenant) transport.TenantResponse {
	return transport.TenantResponse{
		ID:        t.ID.String(),
		Slug:      t.Slug,
		Name:      t.Name,
		CreatedAt: t.CreatedAt.Format(time.RFC3339),
		UpdatedAt: t.UpdatedAt.Format(time.RFC3339),
	}
}

func toFeeResponses(fees []repository.Fee) []transport.FeeResponse {
	out := make([]transport.FeeResponse, 0, len(fees))
	for _, f := range fees {
		out = append(out, transport.FeeResponse{
			ID:              f.ID.String(),
			Name:            f.Name,
			CalculationType: f.CalculationType,
			Amount:          f.Amount,
			ApplicationType: f.ApplicationType,
			Enabled:         f.Enabled,
		})
	}
	return out
}

func toOptionResponses(options []repository.PostProcessingOption) []transport.PostProcessingResponse {
	out := make([]transport.PostProcessingResponse, 0, len(options))
	for _, o := range options {
		out = append(out, transport.PostProcessingResponse{
			ID:      o.ID.String(),
			Name:    o.Name,
			Price:   o.Price,
			Enabled: o.Enabled,
		})
	}
	return out
}
