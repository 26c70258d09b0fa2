package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/OneOfOne/xxhash"
	"github.com/RyanBlaney/sonido-tinte/algorithms/mood"
	"github.com/RyanBlaney/sonido-tinte/algorithms/temporal"
	"github.com/RyanBlaney/sonido-tinte/algorithms/timbre"
	"github.com/RyanBlaney/sonido-tinte/algorithms/tonal"
)

// ErrInvalidConfig is wrapped by every validation failure
var ErrInvalidConfig = errors.New("invalid configuration")

// Profile selects a preset trading accuracy for speed
type Profile string

const (
	ProfileDefault Profile = "default"
	ProfileFast    Profile = "fast"
)

// LoudnessConfig configures RMS accumulation
type LoudnessConfig struct {
	WindowSize int `json:"window_size"` // Samples summed per block (default: 2048)
}

// AnalysisConfig groups the parameters of every feature extractor
type AnalysisConfig struct {
	Tempo    temporal.TempoParams `json:"tempo"`
	Pitch    tonal.PitchParams    `json:"pitch"`
	Loudness LoudnessConfig       `json:"loudness"`
	Timbre   timbre.TimbreParams  `json:"timbre"`
	Key      tonal.KeyParams      `json:"key"`
	Mood     mood.MoodParams      `json:"mood"`

	// Concurrency bounds how many files the CLI analyzes at once
	Concurrency int `json:"concurrency"`
}

// DefaultAnalysisConfig returns the default configuration
func DefaultAnalysisConfig() *AnalysisConfig {
	return &AnalysisConfig{
		Tempo:       temporal.DefaultTempoParams(),
		Pitch:       tonal.DefaultPitchParams(),
		Loudness:    LoudnessConfig{WindowSize: temporal.DefaultLoudnessWindow},
		Timbre:      timbre.DefaultTimbreParams(),
		Key:         tonal.DefaultKeyParams(),
		Mood:        mood.DefaultMoodParams(),
		Concurrency: 4,
	}
}

// ConfigForProfile returns the preset for p. Unknown profiles get the default.
func ConfigForProfile(p Profile) *AnalysisConfig {
	cfg := DefaultAnalysisConfig()

	switch p {
	case ProfileFast:
		cfg.Tempo.WindowSeconds = []float64{0.046}
		cfg.Pitch.WindowSizes = []int{2048}
		cfg.Timbre.HopSize = cfg.Timbre.FFTSize / 2
		cfg.Key.MaxSegments = 3
	}

	return cfg
}

// ParseProfile converts a profile name, accepting the empty string as default
func ParseProfile(name string) (Profile, error) {
	switch Profile(strings.ToLower(strings.TrimSpace(name))) {
	case "", ProfileDefault:
		return ProfileDefault, nil
	case ProfileFast:
		return ProfileFast, nil
	default:
		return ProfileDefault, fmt.Errorf("unknown profile %q", name)
	}
}

// Load reads a JSON file over the defaults. Fields absent from the file keep
// their default values. The result is validated.
func Load(path string) (*AnalysisConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	cfg := DefaultAnalysisConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects values no extractor can work with
func (c *AnalysisConfig) Validate() error {
	var problems []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			problems = append(problems, fmt.Errorf(format, args...))
		}
	}

	check(c.Tempo.DownsampleFactor >= 1, "tempo.downsample_factor must be >= 1, got %d", c.Tempo.DownsampleFactor)
	check(len(c.Tempo.WindowSeconds) > 0, "tempo.window_seconds must not be empty")
	for _, w := range c.Tempo.WindowSeconds {
		check(w > 0, "tempo.window_seconds entries must be positive, got %v", w)
	}
	check(c.Tempo.MinBPM > 0 && c.Tempo.MinBPM < c.Tempo.MaxBPM,
		"tempo bpm range [%v, %v] is invalid", c.Tempo.MinBPM, c.Tempo.MaxBPM)
	check(c.Tempo.BucketWidth > 0, "tempo.bucket_width must be positive")
	check(c.Tempo.HistorySeconds > 0, "tempo.history_seconds must be positive")

	check(len(c.Pitch.WindowSizes) > 0, "pitch.window_sizes must not be empty")
	for _, w := range c.Pitch.WindowSizes {
		check(w > 1, "pitch.window_sizes entries must be > 1, got %d", w)
	}
	check(c.Pitch.Segments >= 1, "pitch.segments must be >= 1")
	check(c.Pitch.MinFreq > 0 && c.Pitch.MinFreq < c.Pitch.MaxFreq,
		"pitch frequency range [%v, %v] is invalid", c.Pitch.MinFreq, c.Pitch.MaxFreq)

	check(c.Loudness.WindowSize > 0, "loudness.window_size must be positive")

	check(c.Timbre.FFTSize > 1, "timbre.fft_size must be > 1")
	check(c.Timbre.HopSize > 0, "timbre.hop_size must be positive")
	check(c.Timbre.RolloffFraction > 0 && c.Timbre.RolloffFraction <= 1,
		"timbre.rolloff_fraction must be in (0, 1]")
	check(c.Timbre.MFCC.NumCoefficients <= c.Timbre.MFCC.NumMelFilters,
		"timbre.mfcc.num_coefficients exceeds num_mel_filters")

	check(c.Key.SegmentSeconds > 0, "key.segment_seconds must be positive")
	check(c.Key.MaxSegments >= 1, "key.max_segments must be >= 1")
	check(c.Key.Chroma.FFTSize > 1 && c.Key.Chroma.HopSize > 0, "key.chroma frame sizes are invalid")
	check(c.Key.Chroma.MinFreq < c.Key.Chroma.MaxFreq, "key.chroma frequency range is invalid")

	check(c.Mood.MinBPM < c.Mood.MaxBPM, "mood bpm range is invalid")
	for _, g := range mood.Genres() {
		_, ok := c.Mood.Associations[g]
		check(ok, "mood.associations is missing genre %s", g)
	}

	check(c.Concurrency >= 1, "concurrency must be >= 1, got %d", c.Concurrency)

	if len(problems) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(problems...))
	}
	return nil
}

// Digest returns a 64-bit xxhash of the canonical JSON encoding.
// Equal configurations always produce equal digests.
func (c *AnalysisConfig) Digest() (uint64, error) {
	data, err := json.Marshal(c)
	if err != nil {
		return 0, fmt.Errorf("failed to encode config: %w", err)
	}
	return xxhash.Checksum64(data), nil
}
