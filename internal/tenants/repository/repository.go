package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"printcalc_backend/platform/apperr"
)

const (
	tenantNotFoundMessage  = "tenant not found"
	pricingNotFoundMessage = "pricing configuration not found"
	paramsNotFoundMessage  = "print parameters not found"
	presetsNotFoundMessage = "quality presets not found"
)

// Repo implements the tenants repository against postgres.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new tenants repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

// Compile-time check that Repo implements Repository.
var _ Repository = (*Repo)(nil)

// CreateTenant provisions a tenant.
func (r *Repo) CreateTenant(ctx context.Context, params CreateTenantParams) (Tenant, error) {
	query := `
		INSERT INTO tenants (slug, name)
		VALUES ($1, $2)
		RETURNING id, slug, name, created_at, updated_at`

	var t Tenant
	if err := r.pool.QueryRow(ctx, query, params.Slug, params.Name).Scan(
		&t.ID, &t.Slug, &t.Name, &t.CreatedAt, &t.UpdatedAt,
	); err != nil {
		if isUniqueViolation(err) {
			return Tenant{}, apperr.Conflict("tenant slug already exists")
		}
		return Tenant{}, fmt.Errorf("create tenant: %w", err)
	}
	return t, nil
}

// GetTenantByID retrieves a tenant by ID.
func (r *Repo) GetTenantByID(ctx context.Context, id uuid.UUID) (Tenant, error) {
	query := `SELECT id, slug, name, created_at, updated_at FROM tenants WHERE id = $1`

	var t Tenant
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&t.ID, &t.Slug, &t.Name, &t.CreatedAt, &t.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Tenant{}, apperr.NotFound(tenantNotFoundMessage)
		}
		return Tenant{}, fmt.Errorf("get tenant by id: %w", err)
	}
	return t, nil
}

// GetTenantBySlug retrieves a tenant by its slug.
func (r *Repo) GetTenantBySlug(ctx context.Context, slug string) (Tenant, error) {
	query := `SELECT id, slug, name, created_at, updated_at FROM tenants WHERE slug = $1`

	var t Tenant
	if err := r.pool.QueryRow(ctx, query, slug).Scan(
		&t.ID, &t.Slug, &t.Name, &t.CreatedAt, &t.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Tenant{}, apperr.NotFound(tenantNotFoundMessage)
		}
		return Tenant{}, fmt.Errorf("get tenant by slug: %w", err)
	}
	return t, nil
}

// ListTenants lists all tenants ordered by creation time.
func (r *Repo) ListTenants(ctx context.Context) ([]Tenant, error) {
	query := `SELECT id, slug, name, created_at, updated_at FROM tenants ORDER BY created_at`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list tenants: %w", err)
	}
	defer rows.Close()

	var tenants []Tenant
	for rows.Next() {
		var t Tenant
		if err := rows.Scan(&t.ID, &t.Slug, &t.Name, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan tenant: %w", err)
		}
		tenants = append(tenants, t)
	}
	return tenants, rows.Err()
}

// GetPricing retrieves a tenant's pricing configuration.
func (r *Repo) GetPricing(ctx context.Context, tenantID uuid.UUID) (PricingConfig, error) {
	query := `
		SELECT tenant_id, material_prices, time_rate_per_hour, updated_at
		FROM tenant_pricing
		WHERE tenant_id = $1`

	var cfg PricingConfig
	var pricesJSON []byte
	if err := r.pool.QueryRow(ctx, query, tenantID).Scan(
		&cfg.TenantID, &pricesJSON, &cfg.TimeRatePerHour, &cfg.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return PricingConfig{}, apperr.NotFound(pricingNotFoundMessage)
		}
		return PricingConfig{}, fmt.Errorf("get pricing: %w", err)
	}
	if err := json.Unmarshal(pricesJSON, &cfg.MaterialPricePerGram); err != nil {
		return PricingConfig{}, fmt.Errorf("decode material prices: %w", err)
	}
	return cfg, nil
}

// UpsertPricing replaces a tenant's pricing configuration.
func (r *Repo) UpsertPricing(ctx context.Context, params UpsertPricingParams) (PricingConfig, error) {
	pricesJSON, err := json.Marshal(params.MaterialPricePerGram)
	if err != nil {
		return PricingConfig{}, fmt.Errorf("encode material prices: %w", err)
	}

	query := `
		INSERT INTO tenant_pricing (tenant_id, material_prices, time_rate_per_hour)
		VALUES ($1, $2, $3)
		ON CONFLICT (tenant_id) DO UPDATE
		SET material_prices = EXCLUDED.material_prices,
			time_rate_per_hour = EXCLUDED.time_rate_per_hour,
			updated_at = now()
		RETURNING tenant_id, material_prices, time_rate_per_hour, updated_at`

	var cfg PricingConfig
	var storedJSON []byte
	if err := r.pool.QueryRow(ctx, query, params.TenantID, pricesJSON, params.TimeRatePerHour).Scan(
		&cfg.TenantID, &storedJSON, &cfg.TimeRatePerHour, &cfg.UpdatedAt,
	); err != nil {
		return PricingConfig{}, fmt.Errorf("upsert pricing: %w", err)
	}
	if err := json.Unmarshal(storedJSON, &cfg.MaterialPricePerGram); err != nil {
		return PricingConfig{}, fmt.Errorf("decode material prices: %w", err)
	}
	return cfg, nil
}

// ListFees lists a tenant's fees in configured order.
func (r *Repo) ListFees(ctx context.Context, tenantID uuid.UUID) ([]Fee, error) {
	query := `
		SELECT id, tenant_id, name, calculation_type, amount, application_type, enabled, position
		FROM tenant_fees
		WHERE tenant_id = $1
		ORDER BY position`

	rows, err := r.pool.Query(ctx, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list fees: %w", err)
	}
	defer rows.Close()

	var fees []Fee
	for rows.Next() {
		var f Fee
		if err := rows.Scan(&f.ID, &f.TenantID, &f.Name, &f.CalculationType, &f.Amount,
			&f.ApplicationType, &f.Enabled, &f.Position); err != nil {
			return nil, fmt.Errorf("scan fee: %w", err)
		}
		fees = append(fees, f)
	}
	return fees, rows.Err()
}

// ReplaceFees swaps a tenant's fee list atomically.
func (r *Repo) ReplaceFees(ctx context.Context, params ReplaceFeesParams) ([]Fee, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin replace fees: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM tenant_fees WHERE tenant_id = $1`, params.TenantID); err != nil {
		return nil, fmt.Errorf("clear fees: %w", err)
	}

	insert := `
		INSERT INTO tenant_fees (tenant_id, name, calculation_type, amount, application_type, enabled, position)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`

	fees := make([]Fee, 0, len(params.Fees))
	for i, f := range params.Fees {
		f.TenantID = params.TenantID
		f.Position = i
		if err := tx.QueryRow(ctx, insert, f.TenantID, f.Name, f.CalculationType,
			f.Amount, f.ApplicationType, f.Enabled, f.Position).Scan(&f.ID); err != nil {
			return nil, fmt.Errorf("insert fee: %w", err)
		}
		fees = append(fees, f)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit replace fees: %w", err)
	}
	return fees, nil
}

// ListPostProcessing lists a tenant's post-processing options in order.
func (r *Repo) ListPostProcessing(ctx context.Context, tenantID uuid.UUID) ([]PostProcessingOption, error) {
	query := `
		SELECT id, tenant_id, name, price, enabled, position
		FROM tenant_post_processing
		WHERE tenant_id = $1
		ORDER BY position`

	rows, err := r.pool.Query(ctx, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list post-processing options: %w", err)
	}
	defer rows.Close()

	var options []PostProcessingOption
	for rows.Next() {
		var o PostProcessingOption
		if err := rows.Scan(&o.ID, &o.TenantID, &o.Name, &o.Price, &o.Enabled, &o.Position); err != nil {
			return nil, fmt.Errorf("scan post-processing option: %w", err)
		}
		options = append(options, o)
	}
	return options, rows.Err()
}

// ReplacePostProcessing swaps a tenant's option list atomically.
func (r *Repo) ReplacePostProcessing(ctx context.Context, params ReplacePostProcessingParams) ([]PostProcessingOption, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin replace post-processing: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM tenant_post_processing WHERE tenant_id = $1`, params.TenantID); err != nil {
		return nil, fmt.Errorf("clear post-processing options: %w", err)
	}

	insert := `
		INSERT INTO tenant_post_processing (tenant_id, name, price, enabled, position)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`

	options := make([]PostProcessingOption, 0, len(params.Options))
	for i, o := range params.Options {
		o.TenantID = params.TenantID
		o.Position = i
		if err := tx.QueryRow(ctx, insert, o.TenantID, o.Name, o.Price, o.Enabled, o.Position).Scan(&o.ID); err != nil {
			return nil, fmt.Errorf("insert post-processing option: %w", err)
		}
		options = append(options, o)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit replace post-processing: %w", err)
	}
	return options, nil
}

// GetPrintParameters retrieves a tenant's print parameter settings.
func (r *Repo) GetPrintParameters(ctx context.Context, tenantID uuid.UUID) (PrintParameters, error) {
	query := `
		SELECT tenant_id, defaults, visibility, max_size_mm, updated_at
		FROM tenant_print_parameters
		WHERE tenant_id = $1`

	var p PrintParameters
	var defaultsJSON, visibilityJSON, maxSizeJSON []byte
	if err := r.pool.QueryRow(ctx, query, tenantID).Scan(
		&p.TenantID, &defaultsJSON, &visibilityJSON, &maxSizeJSON, &p.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return PrintParameters{}, apperr.NotFound(paramsNotFoundMessage)
		}
		return PrintParameters{}, fmt.Errorf("get print parameters: %w", err)
	}

	if err := decodeJSONColumns(map[string]decodeTarget{
		"defaults":   {defaultsJSON, &p.Defaults},
		"visibility": {visibilityJSON, &p.Visibility},
		"maxSizeMm":  {maxSizeJSON, &p.MaxSizeMm},
	}); err != nil {
		return PrintParameters{}, err
	}
	return p, nil
}

// UpsertPrintParameters replaces a tenant's print parameter settings.
func (r *Repo) UpsertPrintParameters(ctx context.Context, params PrintParameters) (PrintParameters, error) {
	defaultsJSON, err := json.Marshal(params.Defaults)
	if err != nil {
		return PrintParameters{}, fmt.Errorf("encode defaults: %w", err)
	}
	visibilityJSON, err := json.Marshal(params.Visibility)
	if err != nil {
		return PrintParameters{}, fmt.Errorf("encode visibility: %w", err)
	}
	maxSizeJSON, err := json.Marshal(params.MaxSizeMm)
	if err != nil {
		return PrintParameters{}, fmt.Errorf("encode max size: %w", err)
	}

	query := `
		INSERT INTO tenant_print_parameters (tenant_id, defaults, visibility, max_size_mm)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (tenant_id) DO UPDATE
		SET defaults = EXCLUDED.defaults,
			visibility = EXCLUDED.visibility,
			max_size_mm = EXCLUDED.max_size_mm,
			updated_at = now()
		RETURNING updated_at`

	if err := r.pool.QueryRow(ctx, query, params.TenantID, defaultsJSON, visibilityJSON, maxSizeJSON).
		Scan(&params.UpdatedAt); err != nil {
		return PrintParameters{}, fmt.Errorf("upsert print parameters: %w", err)
	}
	return params, nil
}

// GetPresets retrieves a tenant's quality presets.
func (r *Repo) GetPresets(ctx context.Context, tenantID uuid.UUID) ([]Preset, error) {
	query := `SELECT presets FROM tenant_presets WHERE tenant_id = $1`

	var presetsJSON []byte
	if err := r.pool.QueryRow(ctx, query, tenantID).Scan(&presetsJSON); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound(presetsNotFoundMessage)
		}
		return nil, fmt.Errorf("get presets: %w", err)
	}

	var presets []Preset
	if err := json.Unmarshal(presetsJSON, &presets); err != nil {
		return nil, fmt.Errorf("decode presets: %w", err)
	}
	return presets, nil
}

// UpsertPresets replaces a tenant's quality presets.
func (r *Repo) UpsertPresets(ctx context.Context, tenantID uuid.UUID, presets []Preset) ([]Preset, error) {
	presetsJSON, err := json.Marshal(presets)
	if err != nil {
		return nil, fmt.Errorf("encode presets: %w", err)
	}

	query := `
		INSERT INTO tenant_presets (tenant_id, presets)
		VALUES ($1, $2)
		ON CONFLICT (tenant_id) DO UPDATE
		SET presets = EXCLUDED.presets, updated_at = now()`

	if _, err := r.pool.Exec(ctx, query, tenantID, presetsJSON); err != nil {
		return nil, fmt.Errorf("upsert presets: %w", err)
	}
	return presets, nil
}

// GetBranding retrieves a tenant's branding. Missing rows surface as
// not-found; the service layer applies defaults.
func (r *Repo) GetBranding(ctx context.Context, tenantID uuid.UUID) (Branding, error) {
	query := `
		SELECT tenant_id, company_name, logo_url, primary_color, accent_color
		FROM tenant_branding
		WHERE tenant_id = $1`

	var b Branding
	if err := r.pool.QueryRow(ctx, query, tenantID).Scan(
		&b.TenantID, &b.CompanyName, &b.LogoURL, &b.PrimaryColor, &b.AccentColor,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Branding{}, apperr.NotFound("branding not found")
		}
		return Branding{}, fmt.Errorf("get branding: %w", err)
	}
	return b, nil
}

// UpsertBranding replaces a tenant's branding.
func (r *Repo) UpsertBranding(ctx context.Context, branding Branding) (Branding, error) {
	query := `
		INSERT INTO tenant_branding (tenant_id, company_name, logo_url, primary_color, accent_color)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (tenant_id) DO UPDATE
		SET company_name = EXCLUDED.company_name,
			logo_url = EXCLUDED.logo_url,
			primary_color = EXCLUDED.primary_color,
			accent_color = EXCLUDED.accent_color,
			updated_at = now()`

	if _, err := r.pool.Exec(ctx, query, branding.TenantID, branding.CompanyName,
		branding.LogoURL, branding.PrimaryColor, branding.AccentColor); err != nil {
		return Branding{}, fmt.Errorf("upsert branding: %w", err)
	}
	return branding, nil
}

type decodeTarget struct {
	data []byte
	dst  interface{}
}

func decodeJSONColumns(targets map[string]decodeTarget) error {
	for name, t := range targets {
		if len(t.data) == 0 {
			continue
		}
		if err := json.Unmarshal(t.data, t.dst); err != nil {
			return fmt.Errorf("decode %s: %w", name, err)
		}
	}
	return nil
}

func isUniqueViolation(err error) bool {
	// 23505 is the postgres unique_violation code.
	var pgErr interface{ SQLState() string }
	return errors.As(err, &pgErr) && pgErr.SQLState() == "23505"
}
