package slicing

import (
	"context"
	"fmt"

	"printcalc_backend/platform/logger"
)

// requestState tracks a single request through the pipeline.
type requestState string

const (
	stateReceived   requestState = "received"
	stateMapping    requestState = "mapping"
	stateSlicing    requestState = "slicing"
	stateExtracting requestState = "extracting"
	stateCompleted  requestState = "completed"
	stateFailed     requestState = "failed"
)

// Result is a completed slicing run: normalized stats plus provenance, so
// downstream pricing can disclose whether the numbers were measured by a
// real engine or merely estimated.
type Result struct {
	Stats   SliceStats
	Backend BackendKind
	// Estimated is true when the stats came from the heuristic fallback or
	// a layer-count time estimate rather than engine measurement.
	Estimated bool
	// GCode is the raw engine artifact, retained for archival; may be nil.
	GCode []byte
}

// Orchestrator composes the pipeline per request: validate, map
// parameters, drive an adapter (walking the fallback chain), extract
// stats. It is the only component that knows about timeouts, fallback
// ordering, and adapter selection. Each invocation is an isolated unit of
// work; the orchestrator itself holds no per-request state.
type Orchestrator struct {
	adapters []EngineAdapter
	log      *logger.Logger
}

// NewOrchestrator creates an orchestrator over the given adapters, tried
// in order until one succeeds.
func NewOrchestrator(log *logger.Logger, adapters ...EngineAdapter) *Orchestrator {
	return &Orchestrator{adapters: adapters, log: log}
}

// Slice runs the full pipeline for one request. On success the returned
// Result carries the stats and their provenance; on failure the error is a
// classified *SliceError from the last adapter attempted.
func (o *Orchestrator) Slice(ctx context.Context, req SliceRequest) (Result, error) {
	state := stateReceived

	if err := validateRequest(req); err != nil {
		o.logTransition(state, stateFailed, "", err)
		return Result{}, err
	}

	if len(o.adapters) == 0 {
		return Result{}, engineFailure("", "select", "no slicing backends configured", nil)
	}

	var lastErr error
	for _, adapter := range o.adapters {
		result, err := o.runAdapter(ctx, adapter, req)
		if err == nil {
			return result, nil
		}
		lastErr = err

		// InvalidRequest cannot be fixed by another backend.
		if FailureKindOf(err) == FailureInvalidRequest {
			break
		}

		o.log.SliceEvent(string(adapter.Kind()), "fallback", "error", err.Error())
	}

	return Result{}, lastErr
}

// runAdapter drives one backend through stage, run, and extract, with
// teardown guaranteed on every exit path.
func (o *Orchestrator) runAdapter(ctx context.Context, adapter EngineAdapter, req SliceRequest) (_ Result, err error) {
	kind := adapter.Kind()
	state := stateMapping

	params := MapParameters(req, kind)

	state = o.transition(state, stateSlicing, kind)

	staged, err := adapter.Stage(ctx, req)
	if err != nil {
		o.logTransition(state, stateFailed, kind, err)
		return Result{}, err
	}
	defer adapter.Teardown(staged)

	raw, err := adapter.Run(ctx, staged, params)
	if err != nil {
		o.logTransition(state, stateFailed, kind, err)
		return Result{}, err
	}

	state = o.transition(state, stateExtracting, kind)

	stats, err := ExtractStats(raw, kind, req.Material)
	if err != nil {
		o.logTransition(state, stateFailed, kind, err)
		return Result{}, err
	}

	o.transition(state, stateCompleted, kind)

	return Result{
		Stats:     stats,
		Backend:   kind,
		Estimated: kind == BackendHeuristic || stats.TimeEstimated,
		GCode:     raw.GCode,
	}, nil
}

func (o *Orchestrator) transition(from, to requestState, kind BackendKind) requestState {
	o.log.Debug("slice state",
		"backend", string(kind), "from", string(from), "to", string(to))
	return to
}

func (o *Orchestrator) logTransition(from, to requestState, kind BackendKind, err error) {
	o.log.Warn("slice state",
		"backend", string(kind), "from", string(from), "to", string(to), "error", err.Error())
}

// validateRequest rejects obviously invalid requests before any engine is
// touched. Defaulting of soft fields (walls, quantity) happens in mapping,
// not here.
func validateRequest(req SliceRequest) error {
	if len(req.Model) == 0 {
		return invalidRequest("model file is empty")
	}
	if req.ModelFormat() == "" {
		return invalidRequest(fmt.Sprintf("unsupported model format %q", req.Filename))
	}
	if req.InfillPercent < 0 || req.InfillPercent > 100 {
		return invalidRequest(fmt.Sprintf("infill must be between 0 and 100, got %d", req.InfillPercent))
	}
	if req.Quantity < 1 {
		return invalidRequest("quantity must be at least 1")
	}
	if req.WallCount < 0 {
		return invalidRequest("wall count cannot be negative")
	}
	if req.LayerHeightMm < 0 || req.NozzleDiameterMm < 0 || req.SpeedMmS < 0 {
		return invalidRequest("dimensions cannot be negative")
	}
	return nil
}
