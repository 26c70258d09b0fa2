package spectral

import (
	"math"
	"reflect"
	"testing"

	"github.com/RyanBlaney/sonido-tinte/algorithms/windowing"
	"github.com/RyanBlaney/sonido-tinte/logging"
)

func init() {
	logging.SetGlobalLogger(nil)
}

func sine(freq float64, sampleRate, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.Sin(2 * math.Pi * freq * float64(i) / float64(sampleRate))
	}
	return out
}

func argmax(data []float64) int {
	best := 0
	for i, v := range data {
		if v > data[best] {
			best = i
		}
	}
	return best
}

func TestMagnitudeSpectrumBinCentredSine(t *testing.T) {
	const (
		fftSize    = 1024
		sampleRate = 44100
		bin        = 10
	)
	freq := BinFrequency(bin, fftSize, sampleRate)
	mags := MagnitudeSpectrum(sine(freq, sampleRate, fftSize), fftSize)

	if len(mags) != fftSize/2 {
		t.Fatalf("len = %d, want %d", len(mags), fftSize/2)
	}
	if got := argmax(mags); got != bin {
		t.Errorf("peak bin = %d, want %d", got, bin)
	}
	if math.Abs(mags[bin]-fftSize/2) > 1e-6 {
		t.Errorf("peak magnitude = %v, want %v", mags[bin], fftSize/2)
	}
}

func TestMagnitudeSpectrumPadsAndTruncates(t *testing.T) {
	short := MagnitudeSpectrum([]float64{1, 1}, 8)
	if len(short) != 4 || math.Abs(short[0]-2) > 1e-12 {
		t.Errorf("padded spectrum = %v", short)
	}

	long := MagnitudeSpectrum([]float64{1, 1, 1, 1, 1, 1}, 4)
	if len(long) != 2 || math.Abs(long[0]-4) > 1e-12 {
		t.Errorf("truncated spectrum = %v", long)
	}
}

func TestPlanMatchesMagnitudeSpectrum(t *testing.T) {
	const fftSize = 512
	frame := windowing.Apply(sine(1234, 22050, fftSize), windowing.Hann)

	want := MagnitudeSpectrum(frame, fftSize)
	got := NewPlan(fftSize).Magnitudes(nil, frame)

	for k := range want {
		if math.Abs(got[k]-want[k]) > 1e-9*math.Max(1, want[k]) {
			t.Fatalf("bin %d: plan %v, direct %v", k, got[k], want[k])
		}
	}
}

func TestFrequencyAxis(t *testing.T) {
	freqs := FrequencyAxis(2048, 44100)
	if len(freqs) != 1024 {
		t.Fatalf("len = %d", len(freqs))
	}
	if freqs[0] != 0 || math.Abs(freqs[100]-100*44100.0/2048) > 1e-9 {
		t.Errorf("unexpected axis values %v, %v", freqs[0], freqs[100])
	}
}

func TestAutocorrelationPeriodicSignal(t *testing.T) {
	// period of exactly 100 samples
	frame := sine(441, 44100, 2048)
	corr := Autocorrelation(frame)

	if math.Abs(corr[0]-1) > 1e-9 {
		t.Errorf("corr[0] = %v, want 1", corr[0])
	}
	if got := 20 + argmax(corr[20:1024]); got != 100 {
		t.Errorf("best lag = %d, want 100", got)
	}
	if corr[100] < 0.9 {
		t.Errorf("corr[100] = %v, want > 0.9", corr[100])
	}
}

func TestAutocorrelationSilence(t *testing.T) {
	if corr := Autocorrelation(make([]float64, 256)); corr != nil {
		t.Errorf("expected nil for silent frame, got %d values", len(corr))
	}
}

func TestSTFTFramesAndDeterminism(t *testing.T) {
	signal := sine(440, 44100, 5000)
	w := windowing.New(windowing.Hann, 1024)

	first, err := NewSTFT().Compute(signal, 1024, 512, 44100, w)
	if err != nil {
		t.Fatal(err)
	}
	if first.TimeFrames != 8 || len(first.Magnitude) != 8 || first.FreqBins != 512 {
		t.Fatalf("frames = %d, bins = %d", first.TimeFrames, first.FreqBins)
	}

	second, err := NewSTFT().WithMaxWorkers(1).Compute(signal, 1024, 512, 44100, w)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(first.Magnitude, second.Magnitude) {
		t.Error("STFT output depends on worker count")
	}

	direct := MagnitudeSpectrum(w.Apply(signal[512:1536]), 1024)
	for k := range direct {
		if math.Abs(first.Magnitude[1][k]-direct[k]) > 1e-9*math.Max(1, direct[k]) {
			t.Fatalf("frame 1 bin %d: %v vs %v", k, first.Magnitude[1][k], direct[k])
		}
	}
}

func TestSTFTShortSignal(t *testing.T) {
	result, err := NewSTFT().Compute(make([]float64, 100), 256, 64, 8000, nil)
	if err != nil {
		t.Fatal(err)
	}
	if result.TimeFrames != 1 || result.FrameEnergy[0] != 0 {
		t.Errorf("frames = %d, energy = %v", result.TimeFrames, result.FrameEnergy[0])
	}

	if _, err := NewSTFT().Compute(nil, 256, 64, 8000, nil); err == nil {
		t.Error("expected error for empty signal")
	}
	if _, err := NewSTFT().Compute(make([]float64, 10), 256, 64, 8000, windowing.New(windowing.Hann, 128)); err == nil {
		t.Error("expected error for mismatched window")
	}
}

func TestMelFilterbank(t *testing.T) {
	bank := MelFilterbank(26, 2048, 44100)
	if len(bank) != 26 {
		t.Fatalf("filters = %d", len(bank))
	}

	prevCenter := -1
	for m, filter := range bank {
		if len(filter) != 1024 {
			t.Fatalf("filter %d has %d bins", m, len(filter))
		}
		for _, w := range filter {
			if w < 0 || w > 1 {
				t.Fatalf("filter %d weight %v out of range", m, w)
			}
		}
		center := argmax(filter)
		if center < prevCenter {
			t.Errorf("filter %d center %d below previous %d", m, center, prevCenter)
		}
		prevCenter = center
	}

	if HzToMel(0) != 0 || math.Abs(MelToHz(HzToMel(1000))-1000) > 1e-9 {
		t.Error("mel conversion is not invertible")
	}
}

func TestMFCC(t *testing.T) {
	m, err := NewMFCC(44100, 2048, DefaultMFCCParams())
	if err != nil {
		t.Fatal(err)
	}

	coeffs, err := m.Compute(MagnitudeSpectrum(windowing.Apply(sine(440, 44100, 2048), windowing.Hann), 2048))
	if err != nil {
		t.Fatal(err)
	}
	if len(coeffs) != 13 {
		t.Fatalf("coefficients = %d", len(coeffs))
	}

	silent, err := m.Compute(make([]float64, 1024))
	if err != nil {
		t.Fatal(err)
	}
	for i, c := range silent {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			t.Errorf("silent coefficient %d = %v", i, c)
		}
	}

	if _, err := m.Compute(make([]float64, 10)); err == nil {
		t.Error("expected error for wrong spectrum size")
	}
	if _, err := NewMFCC(44100, 2048, MFCCParams{NumCoefficients: 30, NumMelFilters: 26}); err == nil {
		t.Error("expected error for too many coefficients")
	}
}

func TestShapeDescriptors(t *testing.T) {
	freqs := []float64{0, 100, 200, 300, 400}

	single := []float64{0, 0, 3, 0, 0}
	if c := Centroid(single, freqs); c != 200 {
		t.Errorf("centroid = %v, want 200", c)
	}
	if s := Spread(single, freqs, 200); s != 0 {
		t.Errorf("spread = %v, want 0", s)
	}

	pair := []float64{0, 1, 0, 1, 0}
	if c := Centroid(pair, freqs); c != 200 {
		t.Errorf("centroid = %v, want 200", c)
	}
	if s := Spread(pair, freqs, 200); s != 10000 {
		t.Errorf("spread = %v, want 10000", s)
	}

	flat := []float64{2, 2, 2, 2, 2}
	if f := Flatness(flat); math.Abs(f-1) > 1e-12 {
		t.Errorf("flatness of flat spectrum = %v", f)
	}
	if f := Flatness(single); f > 1e-3 {
		t.Errorf("flatness of single tone = %v", f)
	}

	if r := Rolloff(flat, freqs, 0.85); r != 400 {
		t.Errorf("rolloff = %v, want 400", r)
	}
	if r := Rolloff([]float64{3, 1, 0, 0, 0}, freqs, 0.85); r != 0 {
		t.Errorf("rolloff = %v, want 0", r)
	}

	zero := make([]float64, 5)
	if Centroid(zero, freqs) != 0 || Spread(zero, freqs, 0) != 0 || Flatness(zero) != 0 || Rolloff(zero, freqs, 0.85) != 0 {
		t.Error("silent spectrum must yield zero descriptors")
	}
}

func TestFindPeaks(t *testing.T) {
	mags := []float64{0, 1, 0, 0, 5, 2, 3, 0, 0.2, 0}
	freqs := make([]float64, len(mags))
	for i := range freqs {
		freqs[i] = float64(i) * 10
	}

	peaks := FindPeaks(mags, freqs, 0.1)
	wantBins := []int{1, 4, 6}
	if len(peaks) != len(wantBins) {
		t.Fatalf("peaks = %+v", peaks)
	}
	for i, p := range peaks {
		if p.Bin != wantBins[i] {
			t.Errorf("peak %d bin = %d, want %d", i, p.Bin, wantBins[i])
		}
	}
	if math.Abs(peaks[1].Prominence-0.6) > 1e-12 {
		t.Errorf("prominence = %v, want 0.6", peaks[1].Prominence)
	}

	summary := SummarizePeaks(peaks)
	if summary.Count != 3 || summary.MeanSpacing != 25 {
		t.Errorf("summary = %+v", summary)
	}
	if math.Abs(summary.MeanProminence-(1+0.6+1.0/3)/3) > 1e-12 {
		t.Errorf("mean prominence = %v", summary.MeanProminence)
	}

	if FindPeaks(make([]float64, 10), freqs, 0.1) != nil {
		t.Error("silent spectrum has no peaks")
	}
}

func TestHarmonicRatioAndInharmonicity(t *testing.T) {
	freqs := make([]float64, 100)
	for i := range freqs {
		freqs[i] = float64(i) * 10
	}

	harmonicOnly := make([]float64, 100)
	harmonicOnly[10], harmonicOnly[20], harmonicOnly[30] = 1, 1, 1

	if hr := HarmonicRatio(harmonicOnly, freqs, 100, 10); hr != 1 {
		t.Errorf("harmonic ratio = %v, want 1", hr)
	}
	if inh := Inharmonicity(harmonicOnly, freqs, 100); inh != 0 {
		t.Errorf("inharmonicity = %v, want 0", inh)
	}

	mixed := append([]float64(nil), harmonicOnly...)
	mixed[15] = 1

	if hr := HarmonicRatio(mixed, freqs, 100, 10); math.Abs(hr-0.75) > 1e-12 {
		t.Errorf("harmonic ratio = %v, want 0.75", hr)
	}
	if inh := Inharmonicity(mixed, freqs, 100); math.Abs(inh-0.25) > 1e-12 {
		t.Errorf("inharmonicity = %v, want 0.25", inh)
	}

	if HarmonicRatio(mixed, freqs, 0, 10) != 0 {
		t.Error("zero fundamental must yield 0")
	}

	peaks := []Peak{{Frequency: 10}, {Frequency: 100}, {Frequency: 200}}
	if f0 := ReferenceFundamental(peaks); f0 != 100 {
		t.Errorf("reference fundamental = %v, want 100", f0)
	}
}

func TestCrest(t *testing.T) {
	if got := Crest([]float64{1, 1, 1, 1}); math.Abs(got-1) > 1e-12 {
		t.Errorf("flat crest = %v, want 1", got)
	}
	if got := Crest([]float64{0, 0, 4, 0}); math.Abs(got-2) > 1e-12 {
		t.Errorf("single line crest = %v, want 2", got)
	}
	if Crest(make([]float64, 8)) != 0 || Crest(nil) != 0 {
		t.Error("silence must have zero crest")
	}
}

func TestFlux(t *testing.T) {
	if got := Flux([]float64{0, 0}, []float64{3, 4}); math.Abs(got-1) > 1e-12 {
		t.Errorf("onset flux = %v, want 1", got)
	}
	if got := Flux([]float64{3, 4}, []float64{3, 4}); got != 0 {
		t.Errorf("steady flux = %v, want 0", got)
	}
	if got := Flux([]float64{5, 5}, []float64{3, 4}); got != 0 {
		t.Errorf("decay flux = %v, want 0", got)
	}
	if got := Flux([]float64{1, 0, 9}, []float64{1, 2}); math.Abs(got-2/math.Sqrt(5)) > 1e-12 {
		t.Errorf("partial overlap flux = %v", got)
	}
	if Flux([]float64{1}, []float64{0}) != 0 {
		t.Error("silent frame must have zero flux")
	}
}
