// Package slicing drives external slicing engines and normalizes their
// output into print statistics. The engines themselves (CLI slicers, a
// remote websocket-hosted engine) are opaque: this package maps a
// user-facing configuration onto each backend's parameters, runs the
// backend, and parses whatever it reports back.
package slicing

import (
	"path/filepath"
	"strings"
)

// Quality is a named print quality preset selected by the end user.
type Quality string

const (
	QualityDraft    Quality = "draft"
	QualityStandard Quality = "standard"
	QualityFine     Quality = "fine"
	QualityUltra    Quality = "ultra"
	QualityNozzle08 Quality = "nozzle_08"
	QualityNozzle06 Quality = "nozzle_06"
	QualityNozzle04 Quality = "nozzle_04"
)

// Material is a filament material key.
type Material string

const (
	MaterialPLA    Material = "pla"
	MaterialABS    Material = "abs"
	MaterialPETG   Material = "petg"
	MaterialTPU    Material = "tpu"
	MaterialWood   Material = "wood"
	MaterialCarbon Material = "carbon"
)

// BackendKind identifies one concrete slicing backend.
type BackendKind string

const (
	// BackendKiriCLI is the local kirimoto-slicer command line backend.
	BackendKiriCLI BackendKind = "kiri_cli"
	// BackendPrusaCLI is the local PrusaSlicer backend run under a
	// virtual display.
	BackendPrusaCLI BackendKind = "prusa_cli"
	// BackendRemote is the remote engine driven over a message channel.
	BackendRemote BackendKind = "remote"
	// BackendHeuristic is the geometry-independent estimation fallback.
	BackendHeuristic BackendKind = "heuristic"
)

// SliceRequest describes one model to slice. It is created per estimate
// request, owned by a single orchestrator invocation, and discarded when
// the request completes.
type SliceRequest struct {
	Model    []byte
	Filename string

	Quality  Quality
	Material Material

	InfillPercent   int
	WallCount       int
	SupportsEnabled bool

	// Optional explicit overrides; zero means "derive from quality tier".
	NozzleDiameterMm float64
	LayerHeightMm    float64
	SpeedMmS         float64

	Brim bool
	Raft bool

	Quantity int
}

// ModelFormat returns the mesh format inferred from the filename extension,
// or "" when the extension is not a supported mesh format.
func (r SliceRequest) ModelFormat() string {
	switch strings.ToLower(filepath.Ext(r.Filename)) {
	case ".stl":
		return "stl"
	case ".obj":
		return "obj"
	case ".3mf":
		return "3mf"
	default:
		return ""
	}
}

// SliceStats is the normalized result of one engine run. Produced exactly
// once per successful run and never mutated afterwards.
type SliceStats struct {
	TimeSeconds   float64
	MaterialGrams float64
	LayerCount    int

	// TimeEstimated is true when the print time came from the
	// seconds-per-layer heuristic rather than an engine-reported duration.
	TimeEstimated bool
}

// RemoteStats carries the structured statistics fields a remote engine
// export event may report instead of (or alongside) G-code text.
type RemoteStats struct {
	TimeSeconds   float64 `json:"time"`
	DistanceMm    float64 `json:"distance"`
	MaterialGrams float64 `json:"material"`
	Layers        int     `json:"layers"`
}

// RawOutput is what an engine run produced before extraction: G-code text,
// structured stats, or both.
type RawOutput struct {
	GCode []byte
	Stats *RemoteStats
}

// Empty reports whether the output carries nothing to extract from.
func (o RawOutput) Empty() bool {
	return len(o.GCode) == 0 && o.Stats == nil
}
