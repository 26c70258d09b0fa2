package timbre

import (
	"math"
	"math/rand"
	"reflect"
	"testing"

	"github.com/RyanBlaney/sonido-tinte/logging"
)

func init() {
	logging.SetGlobalLogger(nil)
}

func sine(freq float64, sampleRate, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = 0.5 * math.Sin(2*math.Pi*freq*float64(i)/float64(sampleRate))
	}
	return out
}

func noise(seed int64, n int) []float64 {
	rng := rand.New(rand.NewSource(seed))
	out := make([]float64, n)
	for i := range out {
		out[i] = rng.Float64()*2 - 1
	}
	return out
}

func checkBounded(t *testing.T, r TimbreResult, sampleRate int) {
	t.Helper()
	bounded := map[string]float64{
		"complexity":     r.Complexity,
		"brightness":     r.Brightness,
		"warmth":         r.Warmth,
		"roughness":      r.Roughness,
		"variation":      r.Variation,
		"harmonic_ratio": r.HarmonicRatio,
		"flatness":       r.Flatness,
		"inharmonicity":  r.Inharmonicity,
	}
	for name, v := range bounded {
		if v < 0 || v > 1 || math.IsNaN(v) {
			t.Errorf("%s = %v outside [0, 1]", name, v)
		}
	}
	if r.SpectralCentroidHz < 0 || r.SpectralCentroidHz > float64(sampleRate)/2 {
		t.Errorf("centroid = %v outside [0, nyquist]", r.SpectralCentroidHz)
	}
	if len(r.MFCC) != 13 {
		t.Errorf("mfcc length = %d, want 13", len(r.MFCC))
	}
}

func TestTimbreSine(t *testing.T) {
	result, err := NewTimbreAnalyzer(DefaultTimbreParams()).Compute(sine(440, 44100, 44100), 44100)
	if err != nil {
		t.Fatal(err)
	}
	checkBounded(t, result, 44100)

	if result.VoicedFrames == 0 {
		t.Fatal("expected voiced frames")
	}
	if math.Abs(result.SpectralCentroidHz-440) > 30 {
		t.Errorf("centroid = %v, want about 440", result.SpectralCentroidHz)
	}
	if result.HarmonicRatio < 0.8 {
		t.Errorf("harmonic ratio = %v, want > 0.8", result.HarmonicRatio)
	}
	if result.Brightness > 0.2 {
		t.Errorf("brightness = %v, want < 0.2", result.Brightness)
	}
}

func TestTimbreNoiseVersusSine(t *testing.T) {
	analyzer := NewTimbreAnalyzer(DefaultTimbreParams())

	tone, err := analyzer.Compute(sine(440, 22050, 22050), 22050)
	if err != nil {
		t.Fatal(err)
	}
	hiss, err := analyzer.Compute(noise(11, 22050), 22050)
	if err != nil {
		t.Fatal(err)
	}
	checkBounded(t, hiss, 22050)

	if hiss.Flatness <= tone.Flatness {
		t.Errorf("noise flatness %v should exceed sine flatness %v", hiss.Flatness, tone.Flatness)
	}
	if hiss.Brightness < 0.5 {
		t.Errorf("noise brightness = %v, want > 0.5", hiss.Brightness)
	}
	if hiss.Warmth >= tone.Warmth {
		t.Errorf("noise warmth %v should be below sine warmth %v", hiss.Warmth, tone.Warmth)
	}
}

func TestTimbreSilenceAndInvalidInput(t *testing.T) {
	analyzer := NewTimbreAnalyzer(DefaultTimbreParams())

	tests := []struct {
		name       string
		signal     []float64
		sampleRate int
	}{
		{"silence", make([]float64, 10000), 44100},
		{"empty", nil, 44100},
		{"zero sample rate", sine(440, 44100, 4096), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := analyzer.Compute(tt.signal, tt.sampleRate)
			if err != nil {
				t.Fatal(err)
			}
			if result.VoicedFrames != 0 || result.Brightness != 0 || result.Complexity != 0 {
				t.Errorf("expected zero result, got %+v", result)
			}
			if len(result.MFCC) != 13 {
				t.Errorf("mfcc length = %d", len(result.MFCC))
			}
		})
	}
}

func TestTimbreShortSignal(t *testing.T) {
	result, err := NewTimbreAnalyzer(DefaultTimbreParams()).Compute(sine(1000, 8000, 300), 8000)
	if err != nil {
		t.Fatal(err)
	}
	if result.VoicedFrames != 1 {
		t.Errorf("voiced frames = %d, want 1", result.VoicedFrames)
	}
	checkBounded(t, result, 8000)
}

func TestTimbreDeterministic(t *testing.T) {
	analyzer := NewTimbreAnalyzer(DefaultTimbreParams())
	signal := noise(5, 30000)

	first, err := analyzer.Compute(signal, 44100)
	if err != nil {
		t.Fatal(err)
	}
	second, err := analyzer.Compute(signal, 44100)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Error("timbre analysis is not deterministic")
	}
}

func TestSummarize(t *testing.T) {
	stats := Summarize([]float64{1, 2, 3, 4})
	if stats.Mean != 2.5 || stats.Min != 1 || stats.Max != 4 {
		t.Errorf("stats = %+v", stats)
	}
	if math.Abs(stats.Std-math.Sqrt(1.25)) > 1e-12 {
		t.Errorf("std = %v, want population std", stats.Std)
	}
	if (Summarize(nil) != FeatureStats{}) {
		t.Error("empty input must summarize to zero")
	}
	if (FeatureStats{Mean: 0, Std: 1}).CoefficientOfVariation() != 0 {
		t.Error("zero mean must give zero variation")
	}
}

func TestSpacingScore(t *testing.T) {
	if spacingScore(100, 1, 250) != 0 {
		t.Error("single peak has no spacing")
	}
	if got := spacingScore(250, 3, 250); math.Abs(got-math.Exp(-1)) > 1e-12 {
		t.Errorf("spacing score = %v", got)
	}
}
