package spectral

import (
	"math"
)

// Crest returns the ratio of the largest magnitude to the RMS magnitude.
// A flat spectrum scores 1 and a single line sqrt(len). Silence yields 0.
func Crest(magnitudes []float64) float64 {
	if len(magnitudes) == 0 {
		return 0
	}

	peak := 0.0
	sumSquares := 0.0
	for _, m := range magnitudes {
		peak = max(peak, m)
		sumSquares += m * m
	}

	rms := math.Sqrt(sumSquares / float64(len(magnitudes)))
	if rms == 0 {
		return 0
	}
	return peak / rms
}
