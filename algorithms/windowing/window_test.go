package windowing

import (
	"encoding/json"
	"math"
	"testing"
)

func TestHannCoefficients(t *testing.T) {
	const n = 8
	w := New(Hann, n)
	for i, c := range w.Coefficients() {
		want := 0.5 * (1 - math.Cos(2*math.Pi*float64(i)/float64(n-1)))
		if math.Abs(c-want) > 1e-12 {
			t.Errorf("hann[%d] = %v, want %v", i, c, want)
		}
	}
}

func TestHammingCoefficients(t *testing.T) {
	const n = 16
	w := New(Hamming, n)
	coeffs := w.Coefficients()
	for i, c := range coeffs {
		want := 0.54 - 0.46*math.Cos(2*math.Pi*float64(i)/float64(n-1))
		if math.Abs(c-want) > 1e-12 {
			t.Errorf("hamming[%d] = %v, want %v", i, c, want)
		}
	}
	if math.Abs(coeffs[0]-0.08) > 1e-12 {
		t.Errorf("hamming edge = %v, want 0.08", coeffs[0])
	}
}

func TestSingleSampleWindow(t *testing.T) {
	for _, kind := range []Type{Hann, Hamming, Blackman, Rectangular} {
		got := New(kind, 1).Coefficients()
		if len(got) != 1 || got[0] != 1 {
			t.Errorf("%s: size-1 window = %v, want [1]", kind, got)
		}
	}
	if New(Hann, 0).Size() != 0 {
		t.Error("size-0 window should be empty")
	}
}

func TestApplyDoesNotMutate(t *testing.T) {
	frame := []float64{1, 1, 1, 1, 1}
	out := Apply(frame, Hann)

	for i, v := range frame {
		if v != 1 {
			t.Fatalf("source frame modified at %d: %v", i, v)
		}
	}
	if out[0] != 0 || out[4] != 0 || out[2] != 1 {
		t.Errorf("unexpected windowed frame %v", out)
	}
}

func TestApplyInPlaceSizeMismatch(t *testing.T) {
	w := New(Hamming, 4)
	if err := w.ApplyInPlace(make([]float64, 3)); err == nil {
		t.Error("expected size mismatch error")
	}
}

func TestTypeJSON(t *testing.T) {
	data, err := json.Marshal(Hamming)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != `"hamming"` {
		t.Errorf("marshal = %s", data)
	}

	var kind Type
	if err := json.Unmarshal([]byte(`"Blackman"`), &kind); err != nil {
		t.Fatal(err)
	}
	if kind != Blackman {
		t.Errorf("unmarshal = %v, want blackman", kind)
	}
	if err := json.Unmarshal([]byte(`"triangle"`), &kind); err == nil {
		t.Error("expected error for unknown window")
	}
}
