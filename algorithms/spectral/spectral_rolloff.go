package spectral

// Rolloff returns the frequency below which fraction (typically 0.85) of the
// spectrum's energy lies. A spectrum without energy yields 0.
func Rolloff(mags, freqs []float64, fraction float64) float64 {
	n := min(len(mags), len(freqs))
	if n == 0 {
		return 0
	}

	totalEnergy := 0.0
	for i := range n {
		totalEnergy += mags[i] * mags[i]
	}
	if totalEnergy == 0 {
		return 0
	}

	target := fraction * totalEnergy
	cumulative := 0.0
	for i := range n {
		cumulative += mags[i] * mags[i]
		if cumulative >= target {
			return freqs[i]
		}
	}

	return freqs[n-1]
}
