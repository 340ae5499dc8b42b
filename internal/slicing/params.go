package slicing

const (
	defaultLayerHeightMm = 0.2
	defaultNozzleMm      = 0.4

	// filamentDiameterMm is the filament diameter every backend is
	// configured with.
	filamentDiameterMm = 1.75
)

// Layer height per quality tier. Unknown tiers slice at 0.2mm.
var qualityLayerHeight = map[Quality]float64{
	QualityNozzle08: 0.4,
	QualityNozzle06: 0.3,
	QualityNozzle04: 0.2,
	QualityDraft:    0.3,
	QualityStandard: 0.2,
	QualityFine:     0.15,
	QualityUltra:    0.1,
}

// Nozzle diameter per quality tier. Unknown tiers use the 0.4mm nozzle.
var qualityNozzle = map[Quality]float64{
	QualityNozzle08: 0.8,
	QualityNozzle06: 0.6,
	QualityNozzle04: 0.4,
	QualityDraft:    0.4,
	QualityStandard: 0.4,
	QualityFine:     0.4,
	QualityUltra:    0.4,
}

// EngineParameters is the flattened parameter set derived from a
// SliceRequest for one backend. Each adapter serializes it into its own
// flag or settings form.
type EngineParameters struct {
	Backend BackendKind

	LayerHeightMm    float64
	NozzleDiameterMm float64
	NozzleTempC      int
	BedTempC         int

	InfillPercent int
	WallCount     int
	Supports      bool

	SpeedMmS float64
	Brim     bool
	Raft     bool

	FilamentDiameterMm float64
}

// MapParameters translates a SliceRequest into engine parameters for the
// given backend. The mapping is pure and total: every quality and material
// value, including unrecognized ones, maps to a defined parameter set.
// Range validation is the orchestrator's job, not done here.
func MapParameters(req SliceRequest, kind BackendKind) EngineParameters {
	layerHeight, ok := qualityLayerHeight[req.Quality]
	if !ok {
		layerHeight = defaultLayerHeightMm
	}
	nozzle, ok := qualityNozzle[req.Quality]
	if !ok {
		nozzle = defaultNozzleMm
	}

	// Explicit request overrides beat quality-tier defaults.
	if req.LayerHeightMm > 0 {
		layerHeight = req.LayerHeightMm
	}
	if req.NozzleDiameterMm > 0 {
		nozzle = req.NozzleDiameterMm
	}

	nozzleTemp, bedTemp := TempsFor(req.Material)

	walls := req.WallCount
	if walls < 1 {
		walls = 3
	}

	return EngineParameters{
		Backend:            kind,
		LayerHeightMm:      layerHeight,
		NozzleDiameterMm:   nozzle,
		NozzleTempC:        nozzleTemp,
		BedTempC:           bedTemp,
		InfillPercent:      req.InfillPercent,
		WallCount:          walls,
		Supports:           req.SupportsEnabled,
		SpeedMmS:           req.SpeedMmS,
		Brim:               req.Brim,
		Raft:               req.Raft,
		FilamentDiameterMm: filamentDiameterMm,
	}
}
