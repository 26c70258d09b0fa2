package spectral

import (
	"math"
)

// flatnessFloor keeps log(0) out of the geometric mean
const flatnessFloor = 1e-10

// Flatness computes spectral flatness (Wiener entropy): the geometric mean of
// the magnitudes divided by their arithmetic mean, in [0, 1].
// Values near 0 indicate tonal content, values near 1 noise-like content.
func Flatness(mags []float64) float64 {
	if len(mags) == 0 {
		return 0.0
	}

	logSum := 0.0
	arithmeticMean := 0.0
	for _, m := range mags {
		logSum += math.Log(math.Max(m, flatnessFloor))
		arithmeticMean += m
	}
	arithmeticMean /= float64(len(mags))

	if arithmeticMean <= flatnessFloor {
		return 0.0
	}

	geometricMean := math.Exp(logSum / float64(len(mags)))
	return math.Min(geometricMean/arithmeticMean, 1.0)
}
