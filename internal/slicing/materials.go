package slicing

// materialTemps holds the nozzle and bed temperatures for one material.
type materialTemps struct {
	NozzleC int
	BedC    int
}

// Per-material print temperatures. Unknown materials print with PLA values.
var materialTempTable = map[Material]materialTemps{
	MaterialPLA:    {NozzleC: 200, BedC: 60},
	MaterialABS:    {NozzleC: 250, BedC: 100},
	MaterialPETG:   {NozzleC: 230, BedC: 80},
	MaterialTPU:    {NozzleC: 220, BedC: 60},
	MaterialWood:   {NozzleC: 210, BedC: 60},
	MaterialCarbon: {NozzleC: 240, BedC: 80},
}

// Filament densities in g/cm3, used when an engine reports filament length
// but not mass. Unknown materials fall back to PLA.
var materialDensityTable = map[Material]float64{
	MaterialPLA:    1.24,
	MaterialABS:    1.04,
	MaterialPETG:   1.27,
	MaterialTPU:    1.21,
	MaterialWood:   1.28,
	MaterialCarbon: 1.30,
}

// TempsFor returns the print temperatures for a material, defaulting to PLA.
func TempsFor(m Material) (nozzleC, bedC int) {
	t, ok := materialTempTable[m]
	if !ok {
		t = materialTempTable[MaterialPLA]
	}
	return t.NozzleC, t.BedC
}

// DensityFor returns the filament density for a material, defaulting to PLA.
func DensityFor(m Material) float64 {
	d, ok := materialDensityTable[m]
	if !ok {
		return materialDensityTable[MaterialPLA]
	}
	return d
}
