package slicing

import (
	"errors"
	"strings"
	"testing"
)

func TestExtractStats_PrusaMetadata(t *testing.T) {
	gcode := strings.Join([]string{
		"; generated by PrusaSlicer",
		";LAYER:0",
		"G1 X10 Y10 E0.5",
		";LAYER:1",
		";LAYER:2",
		"; filament used [mm] = 1250.30",
		"; filament used [g] = 3.72",
		"; estimated printing time (normal mode) = 1h 23m 45s",
	}, "\n")

	stats, err := ExtractStats(RawOutput{GCode: []byte(gcode)}, BackendPrusaCLI, MaterialPLA)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.TimeSeconds != 5025 {
		t.Fatalf("expected 5025s, got %v", stats.TimeSeconds)
	}
	if stats.MaterialGrams != 3.72 {
		t.Fatalf("expected direct gram report 3.72, got %v", stats.MaterialGrams)
	}
	if stats.LayerCount != 3 {
		t.Fatalf("expected 3 layers, got %d", stats.LayerCount)
	}
	if stats.TimeEstimated {
		t.Fatal("reported time must not be flagged as estimated")
	}
}

func TestExtractStats_MinutesOnlyDuration(t *testing.T) {
	gcode := "; estimated printing time (normal mode) = 23m 45s\n;LAYER:0\n"

	stats, err := ExtractStats(RawOutput{GCode: []byte(gcode)}, BackendPrusaCLI, MaterialPLA)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.TimeSeconds != 1425 {
		t.Fatalf("expected 1425s, got %v", stats.TimeSeconds)
	}
}

func TestExtractStats_MassFromFilamentLength(t *testing.T) {
	// 1200mm of 1.75mm PLA: pi * 0.875^2 * 1200 / 1000 * 1.24 = 3.58g.
	gcode := strings.Join([]string{
		";LAYER:0",
		"; filament used [mm] = 1200",
		"; estimated printing time = 0h 30m 0s",
	}, "\n")

	stats, err := ExtractStats(RawOutput{GCode: []byte(gcode)}, BackendKiriCLI, MaterialPLA)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.MaterialGrams != 3.58 {
		t.Fatalf("expected 3.58g from 1200mm of PLA, got %v", stats.MaterialGrams)
	}
}

func TestExtractStats_DirectGramsBeatLengthFallback(t *testing.T) {
	gcode := strings.Join([]string{
		"; filament used [mm] = 1200",
		"; filament used [g] = 4.10",
	}, "\n")

	stats, err := ExtractStats(RawOutput{GCode: []byte(gcode)}, BackendKiriCLI, MaterialPLA)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.MaterialGrams != 4.10 {
		t.Fatalf("expected direct report 4.10, got %v", stats.MaterialGrams)
	}
}

func TestExtractStats_KiriEValueTally(t *testing.T) {
	// Kiri output carries no filament header; length comes from positive E
	// deltas. Retractions and G92 resets must not subtract. Total extruded
	// here is 1200mm: 3.58g of PLA.
	gcode := strings.Join([]string{
		";LAYER:0",
		"G1 X10 Y10 E400.0 F1500",
		"G1 E395.0 F2100",
		"G1 X20 Y20 E895.0",
		";LAYER:1",
		"G92 E0",
		"G1 X30 Y30 E300.0",
	}, "\n")

	stats, err := ExtractStats(RawOutput{GCode: []byte(gcode)}, BackendKiriCLI, MaterialPLA)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.MaterialGrams != 3.58 {
		t.Fatalf("expected 3.58g from E tally, got %v", stats.MaterialGrams)
	}
	if stats.LayerCount != 2 {
		t.Fatalf("expected 2 layers, got %d", stats.LayerCount)
	}
}

func TestExtractStats_FilamentHeaderBeatsEValueTally(t *testing.T) {
	gcode := strings.Join([]string{
		"G1 X10 Y10 E500.0",
		"; filament used [mm] = 1200",
	}, "\n")

	stats, err := ExtractStats(RawOutput{GCode: []byte(gcode)}, BackendKiriCLI, MaterialPLA)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.MaterialGrams != 3.58 {
		t.Fatalf("expected header length 1200mm to win (3.58g), got %v", stats.MaterialGrams)
	}
}

func TestExtractStats_TimeFallbackFromLayers(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 100; i++ {
		b.WriteString(";LAYER:0\nG1 X1 Y1\n")
	}

	stats, err := ExtractStats(RawOutput{GCode: []byte(b.String())}, BackendKiriCLI, MaterialPLA)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.TimeSeconds != 4500 {
		t.Fatalf("expected 100 layers * 45s = 4500s, got %v", stats.TimeSeconds)
	}
	if !stats.TimeEstimated {
		t.Fatal("layer-derived time must be flagged as estimated")
	}
}

func TestExtractStats_KiriLayerMarkers(t *testing.T) {
	gcode := "; layer 0 @ 0.2\nG1 X1\n; layer 1 @ 0.4\nG1 X2\n"

	stats, err := ExtractStats(RawOutput{GCode: []byte(gcode)}, BackendKiriCLI, MaterialPLA)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.LayerCount != 2 {
		t.Fatalf("expected 2 layers, got %d", stats.LayerCount)
	}
}

func TestExtractStats_EmptyOutputFails(t *testing.T) {
	_, err := ExtractStats(RawOutput{}, BackendPrusaCLI, MaterialPLA)
	if err == nil {
		t.Fatal("expected error for empty output")
	}
	if FailureKindOf(err) != FailureExtraction {
		t.Fatalf("expected extraction failure, got %v", FailureKindOf(err))
	}

	var se *SliceError
	if !errors.As(err, &se) {
		t.Fatalf("expected *SliceError, got %T", err)
	}
}

func TestExtractStats_MissingFieldsDefaultToZero(t *testing.T) {
	stats, err := ExtractStats(RawOutput{GCode: []byte("G1 X10 Y10\nG1 X20 Y20\n")}, BackendKiriCLI, MaterialPLA)
	if err != nil {
		t.Fatalf("partial output must not fail: %v", err)
	}
	if stats.TimeSeconds != 0 || stats.MaterialGrams != 0 || stats.LayerCount != 0 {
		t.Fatalf("expected zero stats, got %+v", stats)
	}
}

func TestExtractStats_RemoteStats(t *testing.T) {
	raw := RawOutput{Stats: &RemoteStats{TimeSeconds: 3600, MaterialGrams: 12, Layers: 80}}

	stats, err := ExtractStats(raw, BackendRemote, MaterialPETG)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.TimeSeconds != 3600 || stats.MaterialGrams != 12 || stats.LayerCount != 80 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
}

func TestExtractStats_RemoteDistanceFallback(t *testing.T) {
	raw := RawOutput{Stats: &RemoteStats{DistanceMm: 1200, Layers: 10}}

	stats, err := ExtractStats(raw, BackendRemote, MaterialPLA)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.MaterialGrams != 3.58 {
		t.Fatalf("expected 3.58g from distance, got %v", stats.MaterialGrams)
	}
	if stats.TimeSeconds != 450 || !stats.TimeEstimated {
		t.Fatalf("expected estimated 450s, got %v (estimated=%v)", stats.TimeSeconds, stats.TimeEstimated)
	}
}

func TestParsePrintDuration_Malformed(t *testing.T) {
	if got := parsePrintDuration("; estimated printing time = soon"); got != 0 {
		t.Fatalf("expected 0 for malformed duration, got %v", got)
	}
}
