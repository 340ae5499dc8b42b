// Package repository persists estimates in postgres.
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"printcalc_backend/platform/apperr"
)

const estimateNotFoundMessage = "estimate not found"

const estimateColumns = `
	id, tenant_id, filename, status, model_key, gcode_key, backend, estimated,
	time_seconds, material_grams, layer_count, options, pricing,
	failure_kind, failure_message, created_at, updated_at`

// Repo implements the estimates repository.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new estimates repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

// Create inserts a new estimate row.
func (r *Repo) Create(ctx context.Context, params CreateParams) (Estimate, error) {
	query := `
		INSERT INTO estimates (tenant_id, filename, status, model_key, options)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + estimateColumns

	row := r.pool.QueryRow(ctx, query, params.TenantID, params.Filename, params.Status,
		params.ModelKey, params.OptionsJSON)
	e, err := scanEstimate(row)
	if err != nil {
		return Estimate{}, fmt.Errorf("create estimate: %w", err)
	}
	return e, nil
}

// GetByID retrieves an estimate scoped to its tenant.
func (r *Repo) GetByID(ctx context.Context, tenantID, id uuid.UUID) (Estimate, error) {
	query := `SELECT ` + estimateColumns + ` FROM estimates WHERE id = $1 AND tenant_id = $2`

	e, err := scanEstimate(r.pool.QueryRow(ctx, query, id, tenantID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Estimate{}, apperr.NotFound(estimateNotFoundMessage)
		}
		return Estimate{}, fmt.Errorf("get estimate: %w", err)
	}
	return e, nil
}

// MarkProcessing transitions a queued estimate to processing. Rows in any
// other state are left untouched so a redelivered task cannot restart a
// finished estimate.
func (r *Repo) MarkProcessing(ctx context.Context, id uuid.UUID) (bool, error) {
	query := `UPDATE estimates SET status = $2, updated_at = now() WHERE id = $1 AND status = $3`

	tag, err := r.pool.Exec(ctx, query, id, StatusProcessing, StatusQueued)
	if err != nil {
		return false, fmt.Errorf("mark estimate processing: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// Complete stores the results of a successful run.
func (r *Repo) Complete(ctx context.Context, params CompleteParams) (Estimate, error) {
	query := `
		UPDATE estimates
		SET status = $2, backend = $3, estimated = $4,
			time_seconds = $5, material_grams = $6, layer_count = $7,
			pricing = $8, gcode_key = $9, updated_at = now()
		WHERE id = $1
		RETURNING ` + estimateColumns

	row := r.pool.QueryRow(ctx, query, params.ID, StatusCompleted, params.Backend,
		params.Estimated, params.TimeSeconds, params.MaterialGrams, params.LayerCount,
		params.PricingJSON, params.GCodeKey)
	e, err := scanEstimate(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Estimate{}, apperr.NotFound(estimateNotFoundMessage)
		}
		return Estimate{}, fmt.Errorf("complete estimate: %w", err)
	}
	return e, nil
}

// Fail stores the failure classification of an unsuccessful run.
func (r *Repo) Fail(ctx context.Context, params FailParams) (Estimate, error) {
	query := `
		UPDATE estimates
		SET status = $2, failure_kind = $3, failure_message = $4, updated_at = now()
		WHERE id = $1
		RETURNING ` + estimateColumns

	row := r.pool.QueryRow(ctx, query, params.ID, StatusFailed, params.FailureKind, params.FailureMessage)
	e, err := scanEstimate(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Estimate{}, apperr.NotFound(estimateNotFoundMessage)
		}
		return Estimate{}, fmt.Errorf("fail estimate: %w", err)
	}
	return e, nil
}

// List returns a tenant's estimates, newest first, with the total count.
func (r *Repo) List(ctx context.Context, params ListParams) ([]Estimate, int, error) {
	limit := params.Limit
	if limit < 1 || limit > 100 {
		limit = 50
	}

	var total int
	if err := r.pool.QueryRow(ctx,
		`SELECT count(*) FROM estimates WHERE tenant_id = $1`, params.TenantID,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count estimates: %w", err)
	}

	query := `SELECT ` + estimateColumns + `
		FROM estimates
		WHERE tenant_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`

	rows, err := r.pool.Query(ctx, query, params.TenantID, limit, params.Offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list estimates: %w", err)
	}
	defer rows.Close()

	var estimates []Estimate
	for rows.Next() {
		e, err := scanEstimate(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan estimate: %w", err)
		}
		estimates = append(estimates, e)
	}
	return estimates, total, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanEstimate(row rowScanner) (Estimate, error) {
	var e Estimate
	err := row.Scan(
		&e.ID, &e.TenantID, &e.Filename, &e.Status, &e.ModelKey, &e.GCodeKey,
		&e.Backend, &e.Estimated, &e.TimeSeconds, &e.MaterialGrams, &e.LayerCount,
		&e.OptionsJSON, &e.PricingJSON, &e.FailureKind, &e.FailureMessage,
		&e.CreatedAt, &e.UpdatedAt,
	)
	return e, err
}
