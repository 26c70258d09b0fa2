package chroma

import (
	"fmt"

	"github.com/RyanBlaney/sonido-tinte/algorithms/spectral"
	"github.com/RyanBlaney/sonido-tinte/algorithms/windowing"
)

// ChromaParams contains parameters for STFT-based chroma extraction
type ChromaParams struct {
	FFTSize    int     `json:"fft_size"`    // Frame length (default: 4096)
	HopSize    int     `json:"hop_size"`    // Hop between frames (default: 2048)
	MinFreq    float64 `json:"min_freq"`    // Lowest bin considered, A0 (default: 27.5)
	MaxFreq    float64 `json:"max_freq"`    // Highest bin considered, C8 (default: 4186)
	TuningFreq float64 `json:"tuning_freq"` // A4 reference (default: 440)
}

// DefaultChromaParams returns the piano-range configuration
func DefaultChromaParams() ChromaParams {
	return ChromaParams{
		FFTSize:    4096,
		HopSize:    2048,
		MinFreq:    27.5,
		MaxFreq:    4186.0,
		TuningFreq: 440.0,
	}
}

// ChromaSTFT folds a magnitude spectrogram into 12 pitch classes.
// Frames are Hann windowed. Each bin inside [MinFreq, MaxFreq] contributes
// its magnitude to the pitch class of round(midi) mod 12.
type ChromaSTFT struct {
	params ChromaParams
	stft   *spectral.STFT
	window *windowing.Window
}

// NewChromaSTFT creates a new chroma extractor
func NewChromaSTFT(params ChromaParams) *ChromaSTFT {
	return &ChromaSTFT{
		params: params,
		stft:   spectral.NewSTFT(),
		window: windowing.New(windowing.Hann, params.FFTSize),
	}
}

// Chromagram returns one unnormalized 12-bin vector per STFT frame
func (cs *ChromaSTFT) Chromagram(signal []float64, sampleRate int) ([][]float64, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("invalid sample rate %d", sampleRate)
	}

	stftResult, err := cs.stft.Compute(signal, cs.params.FFTSize, cs.params.HopSize, sampleRate, cs.window)
	if err != nil {
		return nil, fmt.Errorf("failed to compute STFT: %w", err)
	}

	mapping := cs.chromaMapping(stftResult.Frequencies)

	chromagram := make([][]float64, stftResult.TimeFrames)
	for t, mags := range stftResult.Magnitude {
		frame := make([]float64, NumPitchClasses)
		for k, pc := range mapping {
			if pc >= 0 {
				frame[pc] += mags[k]
			}
		}
		chromagram[t] = frame
	}

	return chromagram, nil
}

// Compute returns the chroma vector of the whole signal normalized to sum 1.
// A signal without energy in range yields an all-zero vector.
func (cs *ChromaSTFT) Compute(signal []float64, sampleRate int) ([]float64, error) {
	chromagram, err := cs.Chromagram(signal, sampleRate)
	if err != nil {
		return nil, err
	}

	chroma := make([]float64, NumPitchClasses)
	for _, frame := range chromagram {
		for pc, v := range frame {
			chroma[pc] += v
		}
	}

	Normalize(chroma)
	return chroma, nil
}

// chromaMapping maps each bin to a pitch class, or -1 when out of range
func (cs *ChromaSTFT) chromaMapping(freqs []float64) []int {
	mapping := make([]int, len(freqs))
	for k, f := range freqs {
		if f < cs.params.MinFreq || f > cs.params.MaxFreq {
			mapping[k] = -1
			continue
		}
		mapping[k] = PitchClass(f, cs.params.TuningFreq)
	}
	return mapping
}

// Normalize scales v in place to unit sum. Vectors summing to ~0 are left alone.
func Normalize(v []float64) {
	total := 0.0
	for _, x := range v {
		total += x
	}
	if total > 1e-10 {
		for i := range v {
			v[i] /= total
		}
	}
}

// IsZero reports whether every element of v is zero
func IsZero(v []float64) bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}
