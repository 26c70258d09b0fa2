package tonal

import (
	"math"
	"sort"

	"github.com/RyanBlaney/sonido-tinte/algorithms/chroma"
	"github.com/RyanBlaney/sonido-tinte/algorithms/common"
	"github.com/RyanBlaney/sonido-tinte/algorithms/spectral"
	"github.com/RyanBlaney/sonido-tinte/algorithms/windowing"
	"github.com/RyanBlaney/sonido-tinte/logging"
)

// PitchParams contains parameters for autocorrelation pitch estimation
type PitchParams struct {
	WindowSizes   []int   `json:"window_sizes"`   // Analysis window lengths (default: 2048, 4096)
	Segments      int     `json:"segments"`       // Evenly spaced segments per window size (default: 3)
	MinFreq       float64 `json:"min_freq"`       // Lowest reported pitch in Hz (default: 20)
	MaxFreq       float64 `json:"max_freq"`       // Highest reported pitch in Hz (default: 2000)
	MinLag        int     `json:"min_lag"`        // Lags below this are never considered (default: 20)
	AcceptClarity float64 `json:"accept_clarity"` // Candidate threshold (default: 0.3)
	KeepClarity   float64 `json:"keep_clarity"`   // Threshold for the final vote (default: 0.5)
	TopCandidates int     `json:"top_candidates"` // Candidates entering the median (default: 5)
	TuningFreq    float64 `json:"tuning_freq"`    // A4 reference for note names (default: 440)
}

// DefaultPitchParams returns the default pitch estimation parameters
func DefaultPitchParams() PitchParams {
	return PitchParams{
		WindowSizes:   []int{2048, 4096},
		Segments:      3,
		MinFreq:       20,
		MaxFreq:       2000,
		MinLag:        20,
		AcceptClarity: 0.3,
		KeepClarity:   0.5,
		TopCandidates: 5,
		TuningFreq:    440,
	}
}

// PitchResult holds the estimated fundamental frequency
type PitchResult struct {
	Hz      float64 `json:"hz"`      // Rounded to an integer, in [MinFreq, MaxFreq]
	Clarity float64 `json:"clarity"` // Mean normalized autocorrelation of the voting candidates
	Note    string  `json:"note"`    // Nearest equal-tempered note, e.g. "A4"
}

// PitchCandidate is the autocorrelation peak of one segment
type PitchCandidate struct {
	Frequency float64 `json:"frequency"`
	Clarity   float64 `json:"clarity"`
}

// PitchDetection estimates a single dominant pitch from several segments
// and window sizes using FFT autocorrelation
type PitchDetection struct {
	params PitchParams
	logger logging.Logger
}

// NewPitchDetection creates a new pitch estimator
func NewPitchDetection(params PitchParams) *PitchDetection {
	return &PitchDetection{
		params: params,
		logger: logging.WithFields(logging.Fields{
			"component": "pitch_detection",
		}),
	}
}

// Compute returns the median of the clearest candidates, or nil when no
// candidate is clear enough. A nil result is never replaced by zero.
func (pd *PitchDetection) Compute(signal []float64, sampleRate int) *PitchResult {
	logger := pd.logger.WithFields(logging.Fields{
		"function":    "Compute",
		"sample_rate": sampleRate,
		"samples":     len(signal),
	})

	if len(signal) == 0 || sampleRate <= 0 {
		return nil
	}

	candidates := pd.Candidates(signal, sampleRate)

	kept := make([]PitchCandidate, 0, len(candidates))
	for _, c := range candidates {
		if c.Clarity > pd.params.KeepClarity {
			kept = append(kept, c)
		}
	}
	if len(kept) == 0 {
		logger.Debug("No clear pitch", logging.Fields{"candidates": len(candidates)})
		return nil
	}

	sort.SliceStable(kept, func(i, j int) bool {
		if kept[i].Clarity != kept[j].Clarity {
			return kept[i].Clarity > kept[j].Clarity
		}
		return kept[i].Frequency < kept[j].Frequency
	})
	if pd.params.TopCandidates > 0 && len(kept) > pd.params.TopCandidates {
		kept = kept[:pd.params.TopCandidates]
	}

	freqs := make([]float64, len(kept))
	clarity := make([]float64, len(kept))
	for i, c := range kept {
		freqs[i] = c.Frequency
		clarity[i] = c.Clarity
	}

	hz := math.Round(common.Median(freqs))
	result := &PitchResult{
		Hz:      hz,
		Clarity: common.Clamp01(common.Mean(clarity)),
		Note:    chroma.NoteName(hz, pd.params.TuningFreq),
	}

	logger.Debug("Pitch estimated", logging.Fields{
		"hz":      result.Hz,
		"clarity": result.Clarity,
		"votes":   len(kept),
	})

	return result
}

// Candidates returns every segment peak that lies within [MinFreq, MaxFreq]
// and exceeds AcceptClarity. Window sizes longer than the signal are skipped.
func (pd *PitchDetection) Candidates(signal []float64, sampleRate int) []PitchCandidate {
	var candidates []PitchCandidate

	for _, size := range pd.params.WindowSizes {
		if size <= 1 || size > len(signal) {
			continue
		}
		window := windowing.New(windowing.Hann, size)

		for i := range pd.params.Segments {
			start := (len(signal) - size) * (i + 1) / (pd.params.Segments + 1)
			frame := window.Apply(signal[start : start+size])

			c, ok := pd.analyzeFrame(frame, sampleRate)
			if !ok {
				continue
			}
			if c.Frequency < pd.params.MinFreq || c.Frequency > pd.params.MaxFreq {
				continue
			}
			if c.Clarity <= pd.params.AcceptClarity {
				continue
			}
			candidates = append(candidates, c)
		}
	}

	return candidates
}

// peakRatio is how close to the global maximum the first autocorrelation
// peak must come to be taken as the period
const peakRatio = 0.9

// analyzeFrame finds the first autocorrelation peak at or above the minimum
// lag that reaches peakRatio of the strongest one, and refines it by
// parabolic interpolation. Later peaks near multiples of a fractional period
// can outscore the first one, so the global maximum alone would report a
// sub-octave.
func (pd *PitchDetection) analyzeFrame(frame []float64, sampleRate int) (PitchCandidate, bool) {
	corr := spectral.Autocorrelation(frame)
	if corr == nil {
		return PitchCandidate{}, false
	}

	minLag := pd.params.MinLag
	if pd.params.MaxFreq > 0 {
		minLag = max(minLag, int(math.Ceil(float64(sampleRate)/pd.params.MaxFreq)))
	}
	maxLag := len(corr) / 2
	if minLag >= maxLag {
		return PitchCandidate{}, false
	}

	// the zero-lag lobe ends at the first trough
	trough := 1
	for trough+1 < maxLag && corr[trough+1] <= corr[trough] {
		trough++
	}
	start := max(minLag, trough)
	if start >= maxLag {
		return PitchCandidate{}, false
	}

	globalLag := start
	for lag := start + 1; lag < maxLag; lag++ {
		if corr[lag] > corr[globalLag] {
			globalLag = lag
		}
	}

	bestLag := globalLag
	for lag := max(start, 1); lag < globalLag; lag++ {
		if corr[lag] >= peakRatio*corr[globalLag] &&
			corr[lag] >= corr[lag-1] && corr[lag] >= corr[lag+1] {
			bestLag = lag
			break
		}
	}

	refined := common.ParabolicPeak(corr, bestLag)
	if refined <= 0 {
		return PitchCandidate{}, false
	}

	return PitchCandidate{
		Frequency: float64(sampleRate) / refined,
		Clarity:   common.Clamp01(corr[bestLag]),
	}, true
}
