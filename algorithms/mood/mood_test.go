package mood

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/RyanBlaney/sonido-tinte/algorithms/timbre"
	"github.com/RyanBlaney/sonido-tinte/algorithms/tonal"
	"github.com/RyanBlaney/sonido-tinte/logging"
)

func init() {
	logging.SetGlobalLogger(nil)
}

func TestComputeFormulas(t *testing.T) {
	in := MoodInput{
		TempoBPM: 120,
		RMS:      0.25,
		Key:      tonal.KeyResult{Root: 9, Scale: tonal.Minor, Confidence: 0.8},
		Timbre: timbre.TimbreResult{
			Brightness: 0.4,
			Roughness:  0.2,
			Warmth:     0.6,
			Complexity: 0.5,
		},
	}
	got := NewMoodClassifier(DefaultMoodParams()).Compute(in)

	tempo := 0.5
	loudness := 0.5
	wantArousal := 0.3*tempo + 0.3*loudness + 0.2*0.4 + 0.2*0.2
	wantValence := 0.7 * (0.3*0.6 + 0.2*0.8 + 0.2*0.8 + 0.3*0.5)
	wantDominance := 0.4*loudness + 0.3*0.5 + 0.3*0.2

	if math.Abs(got.Arousal-wantArousal) > 1e-12 {
		t.Errorf("arousal = %v, want %v", got.Arousal, wantArousal)
	}
	if math.Abs(got.Valence-wantValence) > 1e-12 {
		t.Errorf("valence = %v, want %v", got.Valence, wantValence)
	}
	if math.Abs(got.Dominance-wantDominance) > 1e-12 {
		t.Errorf("dominance = %v, want %v", got.Dominance, wantDominance)
	}
	if got.Label != Neutral {
		t.Errorf("label = %s, want neutral", got.Label)
	}
	if len(got.Association.Colors) == 0 {
		t.Error("expected a genre association")
	}
}

func TestComputeBounds(t *testing.T) {
	extremes := []MoodInput{
		{TempoBPM: 400, RMS: 3, Timbre: timbre.TimbreResult{Brightness: 1, Roughness: 1, Complexity: 1, Warmth: 1}},
		{TempoBPM: -10, RMS: 0},
		{TempoBPM: 120, RMS: 0.1, Key: tonal.KeyResult{Scale: tonal.Minor, Confidence: 1}},
	}
	mc := NewMoodClassifier(DefaultMoodParams())
	for i, in := range extremes {
		got := mc.Compute(in)
		for name, v := range map[string]float64{
			"arousal": got.Arousal, "valence": got.Valence,
			"dominance": got.Dominance, "intensity": got.Intensity,
		} {
			if v < 0 || v > 1 {
				t.Errorf("case %d: %s = %v outside [0, 1]", i, name, v)
			}
		}
	}
}

func TestLabel(t *testing.T) {
	tests := []struct {
		a, v, d float64
		want    EmotionalLabel
	}{
		{0.8, 0.8, 0.5, Ecstatic},
		{0.8, 0.2, 0.9, Angry},
		{0.2, 0.8, 0.5, Content},
		{0.2, 0.2, 0.1, Depressed},
		{0.5, 0.6, 0.8, Triumphant},
		{0.5, 0.4, 0.8, Dominant},
		{0.5, 0.5, 0.2, Peaceful},
		{0.5, 0.4, 0.2, Submissive},
		{0.5, 0.5, 0.5, Neutral},
	}
	for _, tt := range tests {
		if got := Label(tt.a, tt.v, tt.d); got != tt.want {
			t.Errorf("Label(%v, %v, %v) = %s, want %s", tt.a, tt.v, tt.d, got, tt.want)
		}
	}
}

func TestIntensity(t *testing.T) {
	if Intensity(0.5, 0.5, 0.5) != 0 {
		t.Error("centre must have zero intensity")
	}
	if math.Abs(Intensity(1, 0, 1)-1) > 1e-12 {
		t.Error("corner must have unit intensity")
	}
}

func TestHeuristicGenreClassifier(t *testing.T) {
	tests := []struct {
		name string
		in   GenreFeatures
		want Genre
	}{
		{"classical", GenreFeatures{TempoBPM: 90, Complexity: 0.7, Roughness: 0.1, Loudness: 0.2}, Classical},
		{"electronic", GenreFeatures{TempoBPM: 128, Brightness: 0.7, Complexity: 0.2, Loudness: 0.6}, Electronic},
		{"rock", GenreFeatures{TempoBPM: 140, Roughness: 0.7, Loudness: 0.8, Complexity: 0.5}, Rock},
		{"hiphop", GenreFeatures{TempoBPM: 92, Loudness: 0.6, Roughness: 0.3}, HipHop},
		{"jazz", GenreFeatures{TempoBPM: 160, Complexity: 0.55, KeyConfidence: 0.4, Loudness: 0.5}, Jazz},
		{"ambient", GenreFeatures{TempoBPM: 70, Loudness: 0.1, Complexity: 0.3}, Ambient},
		{"pop", GenreFeatures{TempoBPM: 115, Loudness: 0.5, Complexity: 0.3, Brightness: 0.4}, Pop},
	}
	for _, tt := range tests {
		if got := (HeuristicGenreClassifier{}).Classify(tt.in); got != tt.want {
			t.Errorf("%s: got %s, want %s", tt.name, got, tt.want)
		}
	}
}

type fixedGenre Genre

func (f fixedGenre) Classify(GenreFeatures) Genre { return Genre(f) }

func TestCustomGenreClassifier(t *testing.T) {
	mc := NewMoodClassifier(DefaultMoodParams()).WithGenreClassifier(fixedGenre(Jazz))
	got := mc.Compute(MoodInput{TempoBPM: 120})
	if got.Genre != Jazz {
		t.Errorf("genre = %s, want jazz", got.Genre)
	}
	if got.Association.Note != DefaultGenreAssociations()[Jazz].Note {
		t.Error("association not looked up by genre")
	}
}

func TestMoodResultJSON(t *testing.T) {
	data, err := json.Marshal(MoodResult{Label: Triumphant, Genre: HipHop})
	if err != nil {
		t.Fatal(err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded["label"] != "triumphant" || decoded["genre"] != "hiphop" {
		t.Errorf("unexpected json %s", data)
	}

	table, err := json.Marshal(DefaultGenreAssociations())
	if err != nil {
		t.Fatal(err)
	}
	var roundTrip map[Genre]GenreAssociation
	if err := json.Unmarshal(table, &roundTrip); err != nil {
		t.Fatal(err)
	}
	if len(roundTrip) != len(Genres()) {
		t.Errorf("association table has %d genres, want %d", len(roundTrip), len(Genres()))
	}
}
