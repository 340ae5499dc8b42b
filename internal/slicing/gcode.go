package slicing

import (
	"bufio"
	"bytes"
	"math"
	"regexp"
	"strconv"
	"strings"
)

const (
	// secondsPerLayerEstimate is the average seconds per layer used when an
	// engine reports no print duration. A rough approximation, not a
	// physical simulation; stats derived from it are flagged TimeEstimated.
	secondsPerLayerEstimate = 45
)

var (
	timeHMSRegex = regexp.MustCompile(`(\d+)h\s*(\d+)m\s*(\d+)s`)
	timeMSRegex  = regexp.MustCompile(`(\d+)m\s*(\d+)s`)
	metaValRegex = regexp.MustCompile(`=\s*([\d.]+)`)
	eValueRegex  = regexp.MustCompile(`E([\d.]+)`)
)

// ExtractStats parses raw engine output into normalized print statistics.
// Individual missing fields default to zero; only a completely empty output
// is an error. The material is needed for the length-to-mass fallback.
func ExtractStats(raw RawOutput, kind BackendKind, material Material) (SliceStats, error) {
	if raw.Empty() {
		return SliceStats{}, extractionFailure(kind, "engine produced no output")
	}

	if raw.Stats != nil {
		return statsFromRemote(*raw.Stats, material), nil
	}

	return statsFromGCode(raw.GCode, kind, material)
}

// statsFromRemote normalizes the structured fields of a remote export event.
func statsFromRemote(rs RemoteStats, material Material) SliceStats {
	stats := SliceStats{
		TimeSeconds:   rs.TimeSeconds,
		MaterialGrams: rs.MaterialGrams,
		LayerCount:    rs.Layers,
	}

	if stats.MaterialGrams == 0 && rs.DistanceMm > 0 {
		stats.MaterialGrams = massFromFilamentLength(rs.DistanceMm, material)
	}

	if stats.TimeSeconds == 0 && stats.LayerCount > 0 {
		stats.TimeSeconds = float64(stats.LayerCount * secondsPerLayerEstimate)
		stats.TimeEstimated = true
	}

	return stats
}

// statsFromGCode scans G-code text for the slicer's metadata comments and
// per-layer markers.
func statsFromGCode(gcode []byte, kind BackendKind, material Material) (SliceStats, error) {
	var (
		timeSeconds   float64
		filamentGrams float64
		filamentMm    float64
		eTallyMm      float64
		lastE         float64
		layerCount    int
		sawAnything   bool
	)

	scanner := bufio.NewScanner(bytes.NewReader(gcode))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) != "" {
			sawAnything = true
		}

		switch {
		case strings.HasPrefix(line, ";LAYER:"), strings.HasPrefix(line, "; layer "):
			layerCount++

		case strings.Contains(line, "; estimated printing time"):
			timeSeconds = parsePrintDuration(line)

		case strings.Contains(line, "; filament used [mm]"):
			if v, ok := parseMetadataValue(line); ok {
				filamentMm = v
			}

		case strings.Contains(line, "; filament used [g]"):
			if v, ok := parseMetadataValue(line); ok {
				filamentGrams = v
			}

		case !strings.HasPrefix(line, ";"):
			// Kiri emits no filament header, so extrusion length is tallied
			// from the E axis: positive deltas accumulate, retractions and
			// G92 resets move lastE without adding.
			if m := eValueRegex.FindStringSubmatch(line); m != nil {
				if v, err := strconv.ParseFloat(m[1], 64); err == nil {
					if v > lastE {
						eTallyMm += v - lastE
					}
					lastE = v
				}
			}
		}
	}

	if !sawAnything {
		return SliceStats{}, extractionFailure(kind, "engine output is empty")
	}

	stats := SliceStats{
		TimeSeconds:   timeSeconds,
		MaterialGrams: filamentGrams,
		LayerCount:    layerCount,
	}

	// Direct mass reports are used verbatim; only the length conversion
	// rounds, and only at this point. A filament header beats the E tally.
	if filamentMm == 0 {
		filamentMm = eTallyMm
	}
	if stats.MaterialGrams == 0 && filamentMm > 0 {
		stats.MaterialGrams = massFromFilamentLength(filamentMm, material)
	}

	if stats.TimeSeconds == 0 && stats.LayerCount > 0 {
		stats.TimeSeconds = float64(stats.LayerCount * secondsPerLayerEstimate)
		stats.TimeEstimated = true
	}

	return stats, nil
}

// parsePrintDuration parses "1h 23m 45s" or "23m 45s" out of a slicer
// metadata line and returns total seconds. Malformed lines yield zero.
func parsePrintDuration(line string) float64 {
	if m := timeHMSRegex.FindStringSubmatch(line); m != nil {
		hours, _ := strconv.Atoi(m[1])
		minutes, _ := strconv.Atoi(m[2])
		seconds, _ := strconv.Atoi(m[3])
		return float64(hours*3600 + minutes*60 + seconds)
	}
	if m := timeMSRegex.FindStringSubmatch(line); m != nil {
		minutes, _ := strconv.Atoi(m[1])
		seconds, _ := strconv.Atoi(m[2])
		return float64(minutes*60 + seconds)
	}
	return 0
}

// parseMetadataValue extracts the numeric value of a "; key = 12.34" line.
func parseMetadataValue(line string) (float64, bool) {
	m := metaValRegex.FindStringSubmatch(line)
	if m == nil {
		return 0, false
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// massFromFilamentLength converts extruded filament length to mass via the
// cylindrical volume of the filament and the material density, rounded to
// two decimal places.
func massFromFilamentLength(lengthMm float64, material Material) float64 {
	radius := filamentDiameterMm / 2
	volumeMm3 := math.Pi * radius * radius * lengthMm
	volumeCm3 := volumeMm3 / 1000
	grams := volumeCm3 * DensityFor(material)
	return math.Round(grams*100) / 100
}
