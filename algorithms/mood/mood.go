package mood

import (
	"math"

	"github.com/RyanBlaney/sonido-tinte/algorithms/common"
	"github.com/RyanBlaney/sonido-tinte/algorithms/timbre"
	"github.com/RyanBlaney/sonido-tinte/algorithms/tonal"
	"github.com/RyanBlaney/sonido-tinte/logging"
)

// MoodParams contains the tempo normalization range and the genre table
type MoodParams struct {
	MinBPM       float64                    `json:"min_bpm"`      // Tempo mapped to 0 (default: 40)
	MaxBPM       float64                    `json:"max_bpm"`      // Tempo mapped to 1 (default: 200)
	Associations map[Genre]GenreAssociation `json:"associations"` // Looked up by estimated genre
}

// DefaultMoodParams returns the default mood parameters
func DefaultMoodParams() MoodParams {
	return MoodParams{
		MinBPM:       40,
		MaxBPM:       200,
		Associations: DefaultGenreAssociations(),
	}
}

// MoodInput gathers the upstream results mood is derived from
type MoodInput struct {
	TempoBPM float64
	RMS      float64
	Key      tonal.KeyResult
	Timbre   timbre.TimbreResult
}

// MoodResult holds the dimensional and categorical mood estimate
type MoodResult struct {
	Arousal     float64          `json:"arousal"`
	Valence     float64          `json:"valence"`
	Dominance   float64          `json:"dominance"`
	Label       EmotionalLabel   `json:"label"`
	Genre       Genre            `json:"genre"`
	Intensity   float64          `json:"intensity"` // Distance from the neutral centre, in [0, 1]
	Association GenreAssociation `json:"association"`
}

// GenreFeatures are the normalized inputs a GenreClassifier sees
type GenreFeatures struct {
	TempoBPM      float64
	Loudness      float64 // min(1, 2·rms)
	Brightness    float64
	Complexity    float64
	Roughness     float64
	KeyConfidence float64
}

// GenreClassifier maps features to a genre
type GenreClassifier interface {
	Classify(features GenreFeatures) Genre
}

// MoodClassifier combines tempo, loudness, key and timbre into a mood
type MoodClassifier struct {
	params     MoodParams
	classifier GenreClassifier
	logger     logging.Logger
}

// NewMoodClassifier creates a mood classifier using the rule based genre heuristic
func NewMoodClassifier(params MoodParams) *MoodClassifier {
	return &MoodClassifier{
		params:     params,
		classifier: HeuristicGenreClassifier{},
		logger: logging.WithFields(logging.Fields{
			"component": "mood_classifier",
		}),
	}
}

// WithGenreClassifier replaces the genre heuristic
func (mc *MoodClassifier) WithGenreClassifier(classifier GenreClassifier) *MoodClassifier {
	if classifier != nil {
		mc.classifier = classifier
	}
	return mc
}

// Compute derives arousal, valence and dominance, then the label, genre,
// intensity and genre association. Every dimension is in [0, 1].
func (mc *MoodClassifier) Compute(in MoodInput) MoodResult {
	tempo := 0.0
	if span := mc.params.MaxBPM - mc.params.MinBPM; span > 0 {
		tempo = common.Clamp01((in.TempoBPM - mc.params.MinBPM) / span)
	}
	loudness := common.Clamp01(2 * in.RMS)

	t := in.Timbre
	isMinor := 0.0
	if in.Key.Scale == tonal.Minor {
		isMinor = 1.0
	}

	arousal := common.Clamp01(0.3*tempo + 0.3*loudness + 0.2*t.Brightness + 0.2*t.Roughness)
	valence := common.Clamp01((1 - 0.3*isMinor) *
		(0.3*t.Warmth + 0.2*(1-t.Roughness) + 0.2*in.Key.Confidence + 0.3*(1-t.Complexity)))
	dominance := common.Clamp01(0.4*loudness + 0.3*t.Complexity + 0.3*t.Roughness)

	genre := mc.classifier.Classify(GenreFeatures{
		TempoBPM:      in.TempoBPM,
		Loudness:      loudness,
		Brightness:    t.Brightness,
		Complexity:    t.Complexity,
		Roughness:     t.Roughness,
		KeyConfidence: in.Key.Confidence,
	})

	result := MoodResult{
		Arousal:     arousal,
		Valence:     valence,
		Dominance:   dominance,
		Label:       Label(arousal, valence, dominance),
		Genre:       genre,
		Intensity:   Intensity(arousal, valence, dominance),
		Association: mc.params.Associations[genre],
	}

	mc.logger.Debug("Mood classified", logging.Fields{
		"function":  "Compute",
		"arousal":   arousal,
		"valence":   valence,
		"dominance": dominance,
		"label":     result.Label.String(),
		"genre":     genre.String(),
	})

	return result
}

// Label maps a point of the arousal/valence/dominance space to a label.
// The four arousal/valence corners take precedence over dominance.
func Label(arousal, valence, dominance float64) EmotionalLabel {
	switch {
	case arousal > 0.7 && valence > 0.7:
		return Ecstatic
	case arousal > 0.7 && valence < 0.3:
		return Angry
	case arousal < 0.3 && valence > 0.7:
		return Content
	case arousal < 0.3 && valence < 0.3:
		return Depressed
	case dominance > 0.7:
		if valence >= 0.5 {
			return Triumphant
		}
		return Dominant
	case dominance < 0.3:
		if valence >= 0.5 {
			return Peaceful
		}
		return Submissive
	default:
		return Neutral
	}
}

// Intensity is the distance of (a, v, d) from (0.5, 0.5, 0.5) divided by the
// largest possible distance, so corners score 1 and the centre 0
func Intensity(arousal, valence, dominance float64) float64 {
	da, dv, dd := arousal-0.5, valence-0.5, dominance-0.5
	return common.Clamp01(math.Sqrt(da*da+dv*dv+dd*dd) / (math.Sqrt(3) / 2))
}

// HeuristicGenreClassifier applies ordered threshold rules. The first rule
// that matches wins and pop is the fallback.
type HeuristicGenreClassifier struct{}

func (HeuristicGenreClassifier) Classify(f GenreFeatures) Genre {
	switch {
	case f.Complexity > 0.6 && f.Roughness < 0.3 && f.Loudness < 0.4:
		return Classical
	case f.TempoBPM >= 118 && f.TempoBPM <= 150 && f.Brightness > 0.5 && f.Complexity < 0.4:
		return Electronic
	case f.Roughness > 0.5 && f.Loudness > 0.5:
		return Rock
	case f.TempoBPM >= 80 && f.TempoBPM <= 105 && f.Loudness > 0.4:
		return HipHop
	case f.Complexity > 0.5 && f.KeyConfidence < 0.6:
		return Jazz
	case f.TempoBPM < 90 && f.Loudness < 0.3:
		return Ambient
	default:
		return Pop
	}
}
