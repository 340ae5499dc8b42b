// Package service implements the estimate pipeline: slicing, pricing,
// persistence, and event publication.
package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	domainevents "printcalc_backend/internal/events"
	"printcalc_backend/internal/estimates/repository"
	"printcalc_backend/internal/estimates/transport"
	"printcalc_backend/internal/pricing"
	"printcalc_backend/internal/slicing"
	"printcalc_backend/internal/storage"
	tenantsvc "printcalc_backend/internal/tenants/service"
	"printcalc_backend/platform/apperr"
	"printcalc_backend/platform/events"
	"printcalc_backend/platform/logger"
)

// Slicer runs the slicing pipeline for one request.
type Slicer interface {
	Slice(ctx context.Context, req slicing.SliceRequest) (slicing.Result, error)
}

// ConfigSource loads the tenant's frozen pricing inputs.
type ConfigSource interface {
	Snapshot(ctx context.Context, tenantID uuid.UUID) (tenantsvc.PricingSnapshot, error)
}

// Enqueuer hands a queued estimate to the job queue.
type Enqueuer interface {
	EnqueueEstimateJob(ctx context.Context, estimateID, tenantID uuid.UUID) error
}

// Service orchestrates estimates end to end.
type Service struct {
	repo    *repository.Repo
	slicer  Slicer
	tenants ConfigSource
	store   storage.ObjectStore
	queue   Enqueuer
	bus     events.Bus
	log     *logger.Logger
}

// New creates the estimates service. queue may be nil when the job queue
// is not configured; queued estimates are then rejected as unavailable.
func New(repo *repository.Repo, slicer Slicer, tenants ConfigSource, store storage.ObjectStore,
	queue Enqueuer, bus events.Bus, log *logger.Logger) *Service {
	return &Service{
		repo:    repo,
		slicer:  slicer,
		tenants: tenants,
		store:   store,
		queue:   queue,
		bus:     bus,
		log:     log,
	}
}

// Estimate runs the pipeline synchronously. A caller that disconnects
// does not interrupt a running engine; the run finishes and is persisted,
// only the response is discarded.
func (s *Service) Estimate(ctx context.Context, tenantID uuid.UUID, filename string,
	model []byte, opts transport.EstimateOptions) (transport.EstimateResponse, error) {

	optionsJSON, err := json.Marshal(opts)
	if err != nil {
		return transport.EstimateResponse{}, fmt.Errorf("encode options: %w", err)
	}

	row, err := s.repo.Create(ctx, repository.CreateParams{
		TenantID:    tenantID,
		Filename:    filename,
		Status:      repository.StatusProcessing,
		OptionsJSON: optionsJSON,
	})
	if err != nil {
		return transport.EstimateResponse{}, err
	}

	runCtx := context.WithoutCancel(ctx)
	completed, runErr := s.run(runCtx, row, model, opts)
	if runErr != nil {
		return transport.EstimateResponse{}, runErr
	}
	return s.toEstimateResponse(runCtx, completed)
}

// Enqueue stages the model to object storage and schedules a background
// estimate run.
func (s *Service) Enqueue(ctx context.Context, tenantID uuid.UUID, filename string,
	model []byte, opts transport.EstimateOptions) (transport.JobResponse, error) {

	if s.queue == nil {
		return transport.JobResponse{}, apperr.Unavailable("job queue is not configured")
	}

	optionsJSON, err := json.Marshal(opts)
	if err != nil {
		return transport.JobResponse{}, fmt.Errorf("encode options: %w", err)
	}

	modelKey, err := s.store.StoreModel(ctx, tenantID.String(), filename, bytes.NewReader(model), int64(len(model)))
	if err != nil {
		return transport.JobResponse{}, apperr.Wrap(apperr.KindUnavailable, "failed to stage model", err)
	}

	row, err := s.repo.Create(ctx, repository.CreateParams{
		TenantID:    tenantID,
		Filename:    filename,
		Status:      repository.StatusQueued,
		ModelKey:    modelKey,
		OptionsJSON: optionsJSON,
	})
	if err != nil {
		return transport.JobResponse{}, err
	}

	if err := s.queue.EnqueueEstimateJob(ctx, row.ID, tenantID); err != nil {
		_, _ = s.repo.Fail(ctx, repository.FailParams{
			ID:             row.ID,
			FailureKind:    slicing.FailureEngine.String(),
			FailureMessage: "failed to enqueue job",
		})
		return transport.JobResponse{}, apperr.Wrap(apperr.KindUnavailable, "failed to enqueue job", err)
	}

	return s.toJobResponse(ctx, row)
}

// ProcessQueued runs a queued estimate from the worker. Redelivered tasks
// for rows no longer queued are ignored.
func (s *Service) ProcessQueued(ctx context.Context, tenantID, estimateID uuid.UUID) error {
	claimed, err := s.repo.MarkProcessing(ctx, estimateID)
	if err != nil {
		return err
	}
	if !claimed {
		s.log.Debug("skipping estimate job, not queued", "estimate_id", estimateID.String())
		return nil
	}

	row, err := s.repo.GetByID(ctx, tenantID, estimateID)
	if err != nil {
		return err
	}

	var opts transport.EstimateOptions
	if err := json.Unmarshal(row.OptionsJSON, &opts); err != nil {
		_, _ = s.repo.Fail(ctx, repository.FailParams{
			ID:             row.ID,
			FailureKind:    slicing.FailureInvalidRequest.String(),
			FailureMessage: "stored options are unreadable",
		})
		return fmt.Errorf("decode options: %w", err)
	}

	model, err := s.loadModel(ctx, row.ModelKey)
	if err != nil {
		_, _ = s.repo.Fail(ctx, repository.FailParams{
			ID:             row.ID,
			FailureKind:    slicing.FailureStaging.String(),
			FailureMessage: "staged model is unavailable",
		})
		return err
	}

	_, runErr := s.run(ctx, row, model, opts)
	if runErr == nil {
		// The staged model has served its purpose; keep the bucket from
		// accumulating one upload per completed job. Best effort.
		if err := s.store.DeleteModel(ctx, row.ModelKey); err != nil {
			s.log.Warn("failed to delete staged model", "model_key", row.ModelKey, "error", err.Error())
		}
	}
	if runErr != nil {
		// The failure is recorded on the row; redelivery cannot help for
		// non-retryable kinds.
		var se *slicing.SliceError
		if errors.As(runErr, &se) && !se.Retryable() {
			return nil
		}
		var ae *apperr.Error
		if errors.As(runErr, &ae) && !ae.Retryable() {
			return nil
		}
	}
	return runErr
}

// GetJob returns the state of one estimate, completed or not.
func (s *Service) GetJob(ctx context.Context, tenantID, estimateID uuid.UUID) (transport.JobResponse, error) {
	row, err := s.repo.GetByID(ctx, tenantID, estimateID)
	if err != nil {
		return transport.JobResponse{}, err
	}
	return s.toJobResponse(ctx, row)
}

// List returns the tenant's estimate history.
func (s *Service) List(ctx context.Context, tenantID uuid.UUID, limit, offset int) (transport.ListEstimatesResponse, error) {
	rows, total, err := s.repo.List(ctx, repository.ListParams{TenantID: tenantID, Limit: limit, Offset: offset})
	if err != nil {
		return transport.ListEstimatesResponse{}, err
	}

	resp := transport.ListEstimatesResponse{
		Estimates: make([]transport.HistoryItem, 0, len(rows)),
		Total:     total,
	}
	for _, row := range rows {
		item := transport.HistoryItem{
			ID:       row.ID.String(),
			Filename: row.Filename,
			Status:   row.Status,
			Backend:  row.Backend,
			Measured: row.Status == repository.StatusCompleted && !row.Estimated,
			Stats: transport.StatsResponse{
				TimeSeconds:   row.TimeSeconds,
				MaterialGrams: row.MaterialGrams,
				Layers:        row.LayerCount,
			},
			CreatedAt: row.CreatedAt.Format(time.RFC3339),
		}
		if len(row.PricingJSON) > 0 {
			var priced pricing.Result
			if err := json.Unmarshal(row.PricingJSON, &priced); err == nil {
				item.Total = priced.Total
				item.DisplayTotal = pricing.RoundForDisplay(priced.Total)
			}
		}
		resp.Estimates = append(resp.Estimates, item)
	}
	return resp, nil
}

// run slices, prices, persists, and publishes for one estimate row.
func (s *Service) run(ctx context.Context, row repository.Estimate, model []byte,
	opts transport.EstimateOptions) (repository.Estimate, error) {

	snapshot, err := s.tenants.Snapshot(ctx, row.TenantID)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			s.recordFailure(ctx, row, slicing.FailureConfiguration.String(), "pricing configuration not found", false)
			return repository.Estimate{}, apperr.NotFound("pricing configuration not found")
		}
		s.recordFailure(ctx, row, slicing.FailureEngine.String(), "failed to load tenant configuration", true)
		return repository.Estimate{}, err
	}

	result, err := s.slicer.Slice(ctx, slicing.SliceRequest{
		Model:            model,
		Filename:         row.Filename,
		Quality:          slicing.Quality(opts.Quality),
		Material:         slicing.Material(opts.Material),
		InfillPercent:    opts.InfillPercent,
		WallCount:        opts.WallCount,
		SupportsEnabled:  opts.SupportsEnabled,
		NozzleDiameterMm: opts.NozzleDiameterMm,
		LayerHeightMm:    opts.LayerHeightMm,
		SpeedMmS:         opts.SpeedMmS,
		Brim:             opts.Brim,
		Raft:             opts.Raft,
		Quantity:         opts.Quantity,
	})
	if err != nil {
		var se *slicing.SliceError
		if errors.As(err, &se) {
			s.recordFailure(ctx, row, se.Kind.String(), se.Message, se.Retryable())
			return repository.Estimate{}, se.AppError()
		}
		s.recordFailure(ctx, row, slicing.FailureEngine.String(), err.Error(), true)
		return repository.Estimate{}, err
	}

	priced := pricing.Calculate(result.Stats, snapshot.Config, snapshot.Fees, pricing.Options{
		MaterialKey:     opts.Material,
		Quantity:        opts.Quantity,
		ExpressDelivery: opts.ExpressDelivery,
		PostProcessing:  selectOptions(snapshot.PostProcessing, opts.PostProcessingIDs),
	})

	pricingJSON, err := json.Marshal(priced)
	if err != nil {
		return repository.Estimate{}, fmt.Errorf("encode pricing result: %w", err)
	}

	gcodeKey := s.archiveGCode(ctx, row, result.GCode)

	completed, err := s.repo.Complete(ctx, repository.CompleteParams{
		ID:            row.ID,
		Backend:       string(result.Backend),
		Estimated:     result.Estimated,
		TimeSeconds:   result.Stats.TimeSeconds,
		MaterialGrams: result.Stats.MaterialGrams,
		LayerCount:    result.Stats.LayerCount,
		PricingJSON:   pricingJSON,
		GCodeKey:      gcodeKey,
	})
	if err != nil {
		return repository.Estimate{}, err
	}

	s.bus.Publish(ctx, domainevents.EstimateCompleted{
		BaseEvent:  events.NewBaseEvent(),
		TenantID:   row.TenantID,
		EstimateID: row.ID,
		Backend:    string(result.Backend),
		Estimated:  result.Estimated,
		Total:      priced.Total,
	})

	return completed, nil
}

func (s *Service) recordFailure(ctx context.Context, row repository.Estimate, kind, message string, retryable bool) {
	if _, err := s.repo.Fail(ctx, repository.FailParams{
		ID:             row.ID,
		FailureKind:    kind,
		FailureMessage: message,
	}); err != nil {
		s.log.Error("failed to record estimate failure", "estimate_id", row.ID.String(), "error", err.Error())
	}

	s.bus.Publish(ctx, domainevents.EstimateFailed{
		BaseEvent:   events.NewBaseEvent(),
		TenantID:    row.TenantID,
		EstimateID:  row.ID,
		FailureKind: kind,
		Retryable:   retryable,
		Message:     message,
	})
}

// archiveGCode stores the artifact best effort; estimates succeed even
// when archival does not.
func (s *Service) archiveGCode(ctx context.Context, row repository.Estimate, gcode []byte) string {
	if len(gcode) == 0 || s.store == nil {
		return ""
	}
	key, err := s.store.StoreGCode(ctx, row.TenantID.String(), row.Filename+".gcode", gcode)
	if err != nil {
		s.log.Warn("failed to archive gcode", "estimate_id", row.ID.String(), "error", err.Error())
		return ""
	}
	return key
}

func (s *Service) loadModel(ctx context.Context, modelKey string) ([]byte, error) {
	return s.store.FetchModel(ctx, modelKey)
}

func (s *Service) toEstimateResponse(ctx context.Context, row repository.Estimate) (transport.EstimateResponse, error) {
	resp := transport.EstimateResponse{
		ID:       row.ID.String(),
		Success:  row.Status == repository.StatusCompleted,
		Measured: !row.Estimated,
		Backend:  row.Backend,
		Stats: transport.StatsResponse{
			TimeSeconds:   row.TimeSeconds,
			MaterialGrams: row.MaterialGrams,
			Layers:        row.LayerCount,
		},
	}

	if len(row.PricingJSON) > 0 {
		if err := json.Unmarshal(row.PricingJSON, &resp.Pricing); err != nil {
			return transport.EstimateResponse{}, fmt.Errorf("decode pricing result: %w", err)
		}
		resp.DisplayTotal = pricing.RoundForDisplay(resp.Pricing.Total)
	}

	if row.GCodeKey != "" && s.store != nil {
		if url, err := s.store.GCodeDownloadURL(ctx, row.GCodeKey); err == nil {
			resp.GCodeURL = url.URL
		}
	}
	return resp, nil
}

func (s *Service) toJobResponse(ctx context.Context, row repository.Estimate) (transport.JobResponse, error) {
	resp := transport.JobResponse{
		ID:        row.ID.String(),
		Status:    row.Status,
		CreatedAt: row.CreatedAt.Format(time.RFC3339),
		UpdatedAt: row.UpdatedAt.Format(time.RFC3339),
	}

	// Completed jobs have had their staged model cleaned up; the key on
	// the row no longer resolves.
	if row.ModelKey != "" && row.Status != repository.StatusCompleted && s.store != nil {
		if url, err := s.store.ModelDownloadURL(ctx, row.ModelKey); err == nil {
			resp.ModelURL = url.URL
		}
	}

	switch row.Status {
	case repository.StatusCompleted:
		result, err := s.toEstimateResponse(ctx, row)
		if err != nil {
			return transport.JobResponse{}, err
		}
		resp.Result = &result
	case repository.StatusFailed:
		resp.Error = row.FailureMessage
		resp.Retryable = retryableKind(row.FailureKind)
	}
	return resp, nil
}

func selectOptions(available []pricing.PostProcessingOption, ids []string) []pricing.PostProcessingOption {
	if len(ids) == 0 {
		return nil
	}
	wanted := make(map[string]bool, len(ids))
	for _, id := range ids {
		wanted[id] = true
	}

	var selected []pricing.PostProcessingOption
	for _, opt := range available {
		if wanted[opt.ID] {
			selected = append(selected, opt)
		}
	}
	return selected
}

func retryableKind(kind string) bool {
	switch kind {
	case slicing.FailureStaging.String(), slicing.FailureEngine.String(),
		slicing.FailureTimeout.String(), slicing.FailureExtraction.String():
		return true
	default:
		return false
	}
}
