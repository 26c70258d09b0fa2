package spectral

import "github.com/RyanBlaney/sonido-tinte/algorithms/common"

// Centroid returns the power-weighted mean frequency of a magnitude spectrum.
// freqs holds the frequency of each bin. A spectrum without energy yields 0.
func Centroid(mags, freqs []float64) float64 {
	n := min(len(mags), len(freqs))

	numerator := 0.0
	denominator := 0.0
	for i := range n {
		p := mags[i] * mags[i]
		numerator += freqs[i] * p
		denominator += p
	}

	return common.SafeDivide(numerator, denominator)
}

// Spread returns the power-weighted variance of frequency around centroid, in Hz²
func Spread(mags, freqs []float64, centroid float64) float64 {
	n := min(len(mags), len(freqs))

	numerator := 0.0
	denominator := 0.0
	for i := range n {
		p := mags[i] * mags[i]
		diff := freqs[i] - centroid
		numerator += diff * diff * p
		denominator += p
	}

	return common.SafeDivide(numerator, denominator)
}

// Energy returns Σ|X|²
func Energy(mags []float64) float64 {
	e := 0.0
	for _, m := range mags {
		e += m * m
	}
	return e
}
