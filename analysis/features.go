package analysis

import (
	"github.com/RyanBlaney/sonido-tinte/algorithms/mood"
	"github.com/RyanBlaney/sonido-tinte/algorithms/temporal"
	"github.com/RyanBlaney/sonido-tinte/algorithms/timbre"
	"github.com/RyanBlaney/sonido-tinte/algorithms/tonal"
)

// FeatureSet is the complete analysis of one Signal
type FeatureSet struct {
	Tempo           temporal.TempoResult `json:"tempo"`
	Pitch           *tonal.PitchResult   `json:"pitch"` // nil when no clear pitch exists
	Loudness        float64              `json:"loudness"`
	Timbre          timbre.TimbreResult  `json:"timbre"`
	Key             tonal.KeyResult      `json:"key"`
	Mood            mood.MoodResult      `json:"mood"`
	SampleRate      int                  `json:"sample_rate"`
	DurationSeconds float64              `json:"duration_seconds"`
}

// HasPitch reports whether a fundamental frequency was found
func (fs *FeatureSet) HasPitch() bool {
	return fs.Pitch != nil
}
