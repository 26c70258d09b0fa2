package timbre

import (
	"fmt"

	"github.com/RyanBlaney/sonido-tinte/algorithms/common"
	"github.com/RyanBlaney/sonido-tinte/algorithms/spectral"
	"github.com/RyanBlaney/sonido-tinte/algorithms/windowing"
	"github.com/RyanBlaney/sonido-tinte/logging"
)

// TimbreParams contains parameters for frame-based timbre analysis
type TimbreParams struct {
	FFTSize         int                 `json:"fft_size"`          // Frame length (default: 2048)
	HopSize         int                 `json:"hop_size"`          // Hop between frames, 25% of FFTSize (default: 512)
	Window          windowing.Type      `json:"window"`            // Frame taper (default: hann)
	RolloffFraction float64             `json:"rolloff_fraction"`  // Energy fraction for rolloff (default: 0.85)
	PeakThreshold   float64             `json:"peak_threshold"`    // Peak floor relative to frame max (default: 0.1)
	SpacingScaleHz  float64             `json:"spacing_scale_hz"`  // Peak spacing normalization (default: 250)
	MaxWorkers      int                 `json:"max_workers"`       // STFT worker cap, 0 = automatic
	MFCC            spectral.MFCCParams `json:"mfcc"`
}

// DefaultTimbreParams returns the default timbre analysis parameters
func DefaultTimbreParams() TimbreParams {
	return TimbreParams{
		FFTSize:         2048,
		HopSize:         512,
		Window:          windowing.Hann,
		RolloffFraction: 0.85,
		PeakThreshold:   0.1,
		SpacingScaleHz:  250,
		MFCC:            spectral.DefaultMFCCParams(),
	}
}

// TimbreResult holds the perceptual timbre summary of a signal.
// Bounded descriptors are in [0, 1].
type TimbreResult struct {
	Complexity         float64    `json:"complexity"`
	Brightness         float64    `json:"brightness"`
	Warmth             float64    `json:"warmth"`
	Roughness          float64    `json:"roughness"`
	Variation          float64    `json:"variation"`
	SpectralCentroidHz float64    `json:"spectral_centroid_hz"`
	HarmonicRatio      float64    `json:"harmonic_ratio"`
	MFCC               []float64  `json:"mfcc"`
	Flatness           float64    `json:"flatness"`
	RolloffHz          float64    `json:"rolloff_hz"`
	Inharmonicity      float64    `json:"inharmonicity"`
	VoicedFrames       int        `json:"voiced_frames"`
	Statistics         Statistics `json:"statistics"`
}

// TimbreAnalyzer derives timbre descriptors from per-frame spectral,
// harmonic and cepstral features
type TimbreAnalyzer struct {
	params TimbreParams
	logger logging.Logger
}

// NewTimbreAnalyzer creates a new timbre analyzer
func NewTimbreAnalyzer(params TimbreParams) *TimbreAnalyzer {
	return &TimbreAnalyzer{
		params: params,
		logger: logging.WithFields(logging.Fields{
			"component": "timbre_analyzer",
		}),
	}
}

func (ta *TimbreAnalyzer) zeroResult() TimbreResult {
	return TimbreResult{MFCC: make([]float64, ta.numCoefficients())}
}

func (ta *TimbreAnalyzer) numCoefficients() int {
	if ta.params.MFCC.NumCoefficients > 0 {
		return ta.params.MFCC.NumCoefficients
	}
	return spectral.DefaultMFCCParams().NumCoefficients
}

// Compute analyzes signal frame by frame. Frames without energy are left out
// of every aggregate. A signal with no voiced frame, an empty signal or a
// non-positive sample rate yields the zero result.
func (ta *TimbreAnalyzer) Compute(signal []float64, sampleRate int) (TimbreResult, error) {
	logger := ta.logger.WithFields(logging.Fields{
		"function":    "Compute",
		"sample_rate": sampleRate,
		"samples":     len(signal),
	})

	if len(signal) == 0 || sampleRate <= 0 {
		return ta.zeroResult(), nil
	}

	window := windowing.New(ta.params.Window, ta.params.FFTSize)
	stftResult, err := spectral.NewSTFT().
		WithMaxWorkers(ta.params.MaxWorkers).
		Compute(signal, ta.params.FFTSize, ta.params.HopSize, sampleRate, window)
	if err != nil {
		return ta.zeroResult(), fmt.Errorf("failed to compute STFT: %w", err)
	}

	mfcc, err := spectral.NewMFCC(sampleRate, ta.params.FFTSize, ta.params.MFCC)
	if err != nil {
		return ta.zeroResult(), fmt.Errorf("failed to create MFCC: %w", err)
	}

	frames := make([]FrameFeatures, 0, stftResult.TimeFrames)
	var flux []float64
	for t, mags := range stftResult.Magnitude {
		if stftResult.FrameEnergy[t] <= 0 {
			continue
		}
		frame, err := ta.analyzeFrame(mags, stftResult.Frequencies, stftResult.FreqResolution, mfcc)
		if err != nil {
			return ta.zeroResult(), fmt.Errorf("frame %d: %w", t, err)
		}
		frames = append(frames, frame)

		if t > 0 && stftResult.FrameEnergy[t-1] > 0 {
			flux = append(flux, spectral.Flux(stftResult.Magnitude[t-1], mags))
		}
	}

	if len(frames) == 0 {
		logger.Debug("No voiced frames")
		return ta.zeroResult(), nil
	}

	stats, meanMFCC := aggregate(frames, ta.numCoefficients())
	stats.Flux = Summarize(flux)
	nyquist := float64(sampleRate) / 2.0

	brightness := common.Clamp01(common.SafeDivide(stats.Rolloff.Mean, nyquist))
	complexity := common.Clamp01((stats.Spread.CoefficientOfVariation() +
		(1 - stats.HarmonicRatio.Mean) +
		stats.Centroid.CoefficientOfVariation()) / 3)
	roughness := common.Clamp01(0.6*stats.SpacingScore.Mean + 0.4*stats.PeakProminence.Mean)
	warmth := common.Clamp01(0.7*(1-brightness) + 0.3*stats.HarmonicRatio.Mean)

	result := TimbreResult{
		Complexity:         complexity,
		Brightness:         brightness,
		Warmth:             warmth,
		Roughness:          roughness,
		Variation:          common.Clamp01(stats.variation()),
		SpectralCentroidHz: common.Clamp(stats.Centroid.Mean, 0, nyquist),
		HarmonicRatio:      common.Clamp01(stats.HarmonicRatio.Mean),
		MFCC:               meanMFCC,
		Flatness:           common.Clamp01(stats.Flatness.Mean),
		RolloffHz:          common.Clamp(stats.Rolloff.Mean, 0, nyquist),
		Inharmonicity:      common.Clamp01(stats.Inharmonicity.Mean),
		VoicedFrames:       len(frames),
		Statistics:         stats,
	}

	logger.Debug("Timbre analyzed", logging.Fields{
		"frames":     stftResult.TimeFrames,
		"voiced":     len(frames),
		"brightness": result.Brightness,
		"complexity": result.Complexity,
	})

	return result, nil
}

func (ta *TimbreAnalyzer) analyzeFrame(mags, freqs []float64, binWidth float64, mfcc *spectral.MFCC) (FrameFeatures, error) {
	centroid := spectral.Centroid(mags, freqs)
	peaks := spectral.FindPeaks(mags, freqs, ta.params.PeakThreshold)
	summary := spectral.SummarizePeaks(peaks)
	f0 := spectral.ReferenceFundamental(peaks)

	coeffs, err := mfcc.Compute(mags)
	if err != nil {
		return FrameFeatures{}, err
	}

	return FrameFeatures{
		Centroid:       centroid,
		Spread:         spectral.Spread(mags, freqs, centroid),
		Flatness:       spectral.Flatness(mags),
		Crest:          spectral.Crest(mags),
		Rolloff:        spectral.Rolloff(mags, freqs, ta.params.RolloffFraction),
		PeakCount:      summary.Count,
		PeakSpacing:    summary.MeanSpacing,
		PeakProminence: summary.MeanProminence,
		SpacingScore:   spacingScore(summary.MeanSpacing, summary.Count, ta.params.SpacingScaleHz),
		Fundamental:    f0,
		HarmonicRatio:  spectral.HarmonicRatio(mags, freqs, f0, binWidth),
		Inharmonicity:  spectral.Inharmonicity(mags, freqs, f0),
		MFCC:           coeffs,
	}, nil
}
