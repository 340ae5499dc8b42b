package slicing

import (
	"context"

	"printcalc_backend/platform/logger"
)

// Geometry-independent estimation constants. These are deliberately crude:
// the heuristic backend exists so a quote can still be produced when every
// real engine is down, and its results are always flagged as estimated.
const (
	// Binary STL carries one 50-byte record per triangle after an 84-byte
	// header; triangle count stands in for model complexity.
	stlHeaderBytes   = 84
	stlTriangleBytes = 50

	heuristicGramsPerKTriangle = 2.5
	heuristicMinGrams          = 1.0
	heuristicLayerCount        = 100
)

// HeuristicAdapter is the estimation-only fallback backend. It never reads
// the model geometry beyond its byte size, so its stats are rough and
// always flagged as estimated.
type HeuristicAdapter struct {
	log *logger.Logger
}

// NewHeuristicAdapter creates the estimation fallback backend.
func NewHeuristicAdapter(log *logger.Logger) *HeuristicAdapter {
	return &HeuristicAdapter{log: log}
}

func (a *HeuristicAdapter) Kind() BackendKind { return BackendHeuristic }

// Stage records the model size; nothing leaves process memory.
func (a *HeuristicAdapter) Stage(_ context.Context, req SliceRequest) (*StagedModel, error) {
	return &StagedModel{ModelBytes: len(req.Model)}, nil
}

// Run produces size-derived statistics without invoking any engine. The
// extractor fills in the layer-based time estimate and flags it.
func (a *HeuristicAdapter) Run(_ context.Context, staged *StagedModel, params EngineParameters) (RawOutput, error) {
	triangles := (staged.ModelBytes - stlHeaderBytes) / stlTriangleBytes
	if triangles < 0 {
		triangles = 0
	}

	// Denser infill means more extruded material for the same mesh.
	infillFactor := 0.5 + float64(params.InfillPercent)/200

	grams := float64(triangles) / 1000 * heuristicGramsPerKTriangle * infillFactor
	if grams < heuristicMinGrams {
		grams = heuristicMinGrams
	}

	a.log.SliceEvent(string(BackendHeuristic), "estimate",
		"model_bytes", staged.ModelBytes, "triangles", triangles)

	return RawOutput{Stats: &RemoteStats{
		MaterialGrams: grams,
		Layers:        heuristicLayerCount,
	}}, nil
}

// Teardown is a no-op.
func (a *HeuristicAdapter) Teardown(_ *StagedModel) {}

// Compile-time check that HeuristicAdapter implements EngineAdapter.
var _ EngineAdapter = (*HeuristicAdapter)(nil)
