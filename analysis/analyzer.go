package analysis

import (
	"context"
	"fmt"
	"time"

	"github.com/RyanBlaney/sonido-tinte/algorithms/mood"
	"github.com/RyanBlaney/sonido-tinte/algorithms/temporal"
	"github.com/RyanBlaney/sonido-tinte/algorithms/timbre"
	"github.com/RyanBlaney/sonido-tinte/algorithms/tonal"
	"github.com/RyanBlaney/sonido-tinte/config"
	"github.com/RyanBlaney/sonido-tinte/logging"
	"golang.org/x/sync/errgroup"
)

// Analyzer runs every feature extractor over a Signal. It holds no per-call
// state and is safe for concurrent use.
type Analyzer struct {
	config   *config.AnalysisConfig
	tempo    *temporal.TempoEstimation
	pitch    *tonal.PitchDetection
	loudness *temporal.Loudness
	timbre   *timbre.TimbreAnalyzer
	key      *tonal.KeyEstimation
	mood     *mood.MoodClassifier
	logger   logging.Logger
}

// NewAnalyzer creates an analyzer from cfg. A nil cfg selects the defaults.
func NewAnalyzer(cfg *config.AnalysisConfig) (*Analyzer, error) {
	if cfg == nil {
		cfg = config.DefaultAnalysisConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &Analyzer{
		config:   cfg,
		tempo:    temporal.NewTempoEstimation(cfg.Tempo),
		pitch:    tonal.NewPitchDetection(cfg.Pitch),
		loudness: temporal.NewLoudness(cfg.Loudness.WindowSize),
		timbre:   timbre.NewTimbreAnalyzer(cfg.Timbre),
		key:      tonal.NewKeyEstimation(cfg.Key),
		mood:     mood.NewMoodClassifier(cfg.Mood),
		logger: logging.WithFields(logging.Fields{
			"component": "analyzer",
		}),
	}, nil
}

// WithGenreClassifier replaces the genre heuristic used by the mood stage
func (a *Analyzer) WithGenreClassifier(classifier mood.GenreClassifier) *Analyzer {
	a.mood.WithGenreClassifier(classifier)
	return a
}

// Config returns the configuration the analyzer was built with
func (a *Analyzer) Config() *config.AnalysisConfig {
	return a.config
}

// Analyze computes tempo, pitch, loudness, timbre and key concurrently, then
// derives mood from them. The result depends only on the Signal and the
// configuration. Extractor failures fall back to that extractor's default
// result; only a cancelled context aborts, with ctx.Err().
func (a *Analyzer) Analyze(ctx context.Context, sig Signal) (*FeatureSet, error) {
	if sig.Len() == 0 {
		return nil, fmt.Errorf("%w: no samples", ErrInvalidSignal)
	}

	logger := a.logger.WithContext(ctx).WithFields(logging.Fields{
		"function":    "Analyze",
		"sample_rate": sig.SampleRate(),
		"samples":     sig.Len(),
	})

	start := time.Now()
	samples := sig.samples
	sampleRate := sig.SampleRate()

	var (
		tempoResult  temporal.TempoResult
		pitchResult  *tonal.PitchResult
		rms          float64
		timbreResult timbre.TimbreResult
		keyResult    tonal.KeyResult
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := gctx.Err(); err != nil {
			return err
		}
		tempoResult = a.tempo.Compute(samples, sampleRate)
		return nil
	})

	g.Go(func() error {
		if err := gctx.Err(); err != nil {
			return err
		}
		pitchResult = a.pitch.Compute(samples, sampleRate)
		return nil
	})

	g.Go(func() error {
		if err := gctx.Err(); err != nil {
			return err
		}
		rms = a.loudness.Compute(samples)
		return nil
	})

	g.Go(func() error {
		if err := gctx.Err(); err != nil {
			return err
		}
		// a failed timbre pass degrades to the zero result like every other extractor
		result, err := a.timbre.Compute(samples, sampleRate)
		if err != nil {
			logger.Warn("Timbre analysis failed, using zero timbre", logging.Fields{
				"error": err.Error(),
			})
		}
		timbreResult = result
		return nil
	})

	g.Go(func() error {
		if err := gctx.Err(); err != nil {
			return err
		}
		keyResult = a.key.Compute(samples, sampleRate)
		return nil
	})

	if err := g.Wait(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		logger.Error(err, "Analysis failed")
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	moodResult := a.mood.Compute(mood.MoodInput{
		TempoBPM: tempoResult.BPM,
		RMS:      rms,
		Key:      keyResult,
		Timbre:   timbreResult,
	})

	features := &FeatureSet{
		Tempo:           tempoResult,
		Pitch:           pitchResult,
		Loudness:        rms,
		Timbre:          timbreResult,
		Key:             keyResult,
		Mood:            moodResult,
		SampleRate:      sampleRate,
		DurationSeconds: sig.Duration(),
	}

	logger.Info("Analysis complete", logging.Fields{
		"tempo_bpm":   tempoResult.BPM,
		"key":         keyResult.Name,
		"mood":        moodResult.Label.String(),
		"genre":       moodResult.Genre.String(),
		"has_pitch":   pitchResult != nil,
		"duration_ms": time.Since(start).Milliseconds(),
	})

	return features, nil
}

var defaultAnalyzer *Analyzer

func init() {
	a, err := NewAnalyzer(nil)
	if err != nil {
		panic(fmt.Sprintf("default analysis config is invalid: %v", err))
	}
	defaultAnalyzer = a
}

// Analyze runs the default analyzer over sig
func Analyze(ctx context.Context, sig Signal) (*FeatureSet, error) {
	return defaultAnalyzer.Analyze(ctx, sig)
}
