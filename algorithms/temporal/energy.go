package temporal

import (
	"math"
)

// DefaultLoudnessWindow is the number of samples summed per block
const DefaultLoudnessWindow = 2048

// Loudness computes the RMS level of a whole signal
type Loudness struct {
	windowSize int
}

// NewLoudness creates a loudness estimator summing windowSize samples per block
func NewLoudness(windowSize int) *Loudness {
	if windowSize <= 0 {
		windowSize = DefaultLoudnessWindow
	}
	return &Loudness{windowSize: windowSize}
}

// Compute returns sqrt(Σx²/N). Squares are accumulated per block of
// windowSize samples before being added to the total, which keeps the
// running sum small relative to each addend on long signals.
// Empty input yields 0.
func (l *Loudness) Compute(signal []float64) float64 {
	if len(signal) == 0 {
		return 0.0
	}

	total := 0.0
	for start := 0; start < len(signal); start += l.windowSize {
		end := min(start+l.windowSize, len(signal))
		block := 0.0
		for _, v := range signal[start:end] {
			block += v * v
		}
		total += block
	}

	return math.Sqrt(total / float64(len(signal)))
}
