package spectral

import (
	"math"
)

// HzToMel converts frequency in Hz to the mel scale
func HzToMel(hz float64) float64 {
	return 2595.0 * math.Log10(1.0+hz/700.0)
}

// MelToHz converts a mel value back to Hz
func MelToHz(mel float64) float64 {
	return 700.0 * (math.Pow(10.0, mel/2595.0) - 1.0)
}

// MelFilterbank builds numFilters gaussian-weighted filters over the fftSize/2
// linear-frequency bins. Filter centers are spaced uniformly in mel between
// 0 Hz and Nyquist, excluding the two end points. Each filter's standard
// deviation is half the distance between its neighbouring centers.
func MelFilterbank(numFilters, fftSize, sampleRate int) [][]float64 {
	if numFilters <= 0 || fftSize <= 1 || sampleRate <= 0 {
		return nil
	}

	nyquist := float64(sampleRate) / 2.0
	highMel := HzToMel(nyquist)

	points := make([]float64, numFilters+2)
	melStep := highMel / float64(numFilters+1)
	for i := range points {
		points[i] = MelToHz(float64(i) * melStep)
	}

	freqs := FrequencyAxis(fftSize, sampleRate)
	bank := make([][]float64, numFilters)

	for m := range numFilters {
		center := points[m+1]
		sigma := (points[m+2] - points[m]) / 2.0

		filter := make([]float64, len(freqs))
		for k, f := range freqs {
			z := (f - center) / sigma
			filter[k] = math.Exp(-0.5 * z * z)
		}
		bank[m] = filter
	}

	return bank
}

// ApplyFilterbank returns the energy of powerSpectrum under each filter
func ApplyFilterbank(powerSpectrum []float64, bank [][]float64) []float64 {
	if len(bank) == 0 || len(powerSpectrum) == 0 {
		return []float64{}
	}

	energies := make([]float64, len(bank))
	for i, filter := range bank {
		sum := 0.0
		for j := 0; j < len(filter) && j < len(powerSpectrum); j++ {
			sum += powerSpectrum[j] * filter[j]
		}
		energies[i] = sum
	}
	return energies
}
