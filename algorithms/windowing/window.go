package windowing

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mjibson/go-dsp/window"
)

// Type selects a window function
type Type int

const (
	Hann Type = iota
	Hamming
	Blackman
	Rectangular
)

var typeNames = map[Type]string{
	Hann:        "hann",
	Hamming:     "hamming",
	Blackman:    "blackman",
	Rectangular: "rectangular",
}

func (t Type) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return "unknown"
}

// ParseType converts a window name into a Type
func ParseType(name string) (Type, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for t, n := range typeNames {
		if n == name {
			return t, nil
		}
	}
	return Hann, fmt.Errorf("unknown window type %q", name)
}

func (t Type) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

func (t *Type) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	parsed, err := ParseType(name)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

func (t Type) generator() func(int) []float64 {
	switch t {
	case Hamming:
		return window.Hamming
	case Blackman:
		return window.Blackman
	case Rectangular:
		return window.Rectangular
	default:
		return window.Hann
	}
}

// Window holds precomputed symmetric window coefficients.
// A Window is read-only after construction and safe for concurrent use.
type Window struct {
	kind         Type
	coefficients []float64
}

// New creates a symmetric window of the given size.
// Hann is 0.5·(1−cos(2πi/(N−1))), Hamming 0.54−0.46·cos(2πi/(N−1)).
// A window of size 1 has the single coefficient 1.
func New(kind Type, size int) *Window {
	if size < 0 {
		size = 0
	}
	coeffs := kind.generator()(size)
	return &Window{kind: kind, coefficients: coeffs}
}

// Apply returns a windowed copy of frame. The source is never modified.
// Frames longer than the window are truncated, shorter ones use the leading coefficients.
func (w *Window) Apply(frame []float64) []float64 {
	n := min(len(frame), len(w.coefficients))
	out := make([]float64, n)
	for i := range n {
		out[i] = frame[i] * w.coefficients[i]
	}
	return out
}

// ApplyInPlace multiplies frame by the window coefficients
func (w *Window) ApplyInPlace(frame []float64) error {
	if len(frame) != len(w.coefficients) {
		return fmt.Errorf("frame length (%d) doesn't match window size (%d)", len(frame), len(w.coefficients))
	}
	for i, c := range w.coefficients {
		frame[i] *= c
	}
	return nil
}

// Coefficients returns a copy of the window coefficients
func (w *Window) Coefficients() []float64 {
	out := make([]float64, len(w.coefficients))
	copy(out, w.coefficients)
	return out
}

func (w *Window) Size() int  { return len(w.coefficients) }
func (w *Window) Type() Type { return w.kind }

// Apply windows frame with a freshly built window of matching size
func Apply(frame []float64, kind Type) []float64 {
	return New(kind, len(frame)).Apply(frame)
}
