package spectral

import (
	"fmt"
	"math"
)

const logFloor = 1e-10

// MFCCParams contains parameters for MFCC computation
type MFCCParams struct {
	NumCoefficients int `json:"num_coefficients"` // Number of cepstral coefficients (default: 13)
	NumMelFilters   int `json:"num_mel_filters"`  // Number of gaussian mel filters (default: 26)
}

// DefaultMFCCParams returns 13 coefficients over 26 filters
func DefaultMFCCParams() MFCCParams {
	return MFCCParams{
		NumCoefficients: 13,
		NumMelFilters:   26,
	}
}

// MFCC computes Mel-Frequency Cepstral Coefficients from magnitude spectra
// of a fixed FFT size. The filterbank and DCT matrix are built once and
// only read afterwards, so an MFCC may be shared between goroutines.
type MFCC struct {
	params     MFCCParams
	fftSize    int
	sampleRate int
	filterBank [][]float64
	dctMatrix  [][]float64
}

// NewMFCC prepares the filterbank and DCT matrix for the given FFT size
func NewMFCC(sampleRate, fftSize int, params MFCCParams) (*MFCC, error) {
	if params.NumCoefficients <= 0 {
		params.NumCoefficients = 13
	}
	if params.NumMelFilters <= 0 {
		params.NumMelFilters = 26
	}
	if params.NumCoefficients > params.NumMelFilters {
		return nil, fmt.Errorf("num coefficients (%d) exceeds num mel filters (%d)",
			params.NumCoefficients, params.NumMelFilters)
	}

	bank := MelFilterbank(params.NumMelFilters, fftSize, sampleRate)
	if len(bank) == 0 {
		return nil, fmt.Errorf("failed to create mel filterbank (fft size %d, sample rate %d)", fftSize, sampleRate)
	}

	m := &MFCC{
		params:     params,
		fftSize:    fftSize,
		sampleRate: sampleRate,
		filterBank: bank,
	}
	m.createDCTMatrix()
	return m, nil
}

// Compute returns the cepstral coefficients of one magnitude spectrum:
// power → gaussian mel filters → log → DCT-II.
func (m *MFCC) Compute(magnitudeSpectrum []float64) ([]float64, error) {
	if len(magnitudeSpectrum) != m.fftSize/2 {
		return nil, fmt.Errorf("spectrum has %d bins, expected %d", len(magnitudeSpectrum), m.fftSize/2)
	}

	power := make([]float64, len(magnitudeSpectrum))
	for i, mag := range magnitudeSpectrum {
		power[i] = mag * mag
	}

	energies := ApplyFilterbank(power, m.filterBank)
	logEnergies := make([]float64, len(energies))
	for i, e := range energies {
		logEnergies[i] = math.Log(max(e, logFloor))
	}

	return m.applyDCT(logEnergies), nil
}

// FilterBank returns the mel filterbank
func (m *MFCC) FilterBank() [][]float64 {
	return m.filterBank
}

func (m *MFCC) createDCTMatrix() {
	numCoeffs := m.params.NumCoefficients
	numFilters := m.params.NumMelFilters

	m.dctMatrix = make([][]float64, numCoeffs)
	for k := range numCoeffs {
		row := make([]float64, numFilters)
		norm := math.Sqrt(2.0 / float64(numFilters))
		if k == 0 {
			norm = math.Sqrt(1.0 / float64(numFilters))
		}
		for n := range numFilters {
			row[n] = norm * math.Cos(math.Pi*float64(k)*(float64(n)+0.5)/float64(numFilters))
		}
		m.dctMatrix[k] = row
	}
}

func (m *MFCC) applyDCT(logEnergies []float64) []float64 {
	coeffs := make([]float64, len(m.dctMatrix))
	for k, row := range m.dctMatrix {
		sum := 0.0
		for n, v := range logEnergies {
			sum += v * row[n]
		}
		coeffs[k] = sum
	}
	return coeffs
}
