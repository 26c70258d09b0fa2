package chroma

import (
	"fmt"
	"math"
)

// NumPitchClasses is the number of semitones per octave
const NumPitchClasses = 12

// PitchClassNames labels chroma bins starting from C
var PitchClassNames = [NumPitchClasses]string{
	"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B",
}

// FrequencyToMIDI converts frequency to a fractional MIDI note number:
// 69 + 12·log2(f/tuning), so that A4 = 69 at 440 Hz tuning.
func FrequencyToMIDI(frequency, tuningFreq float64) float64 {
	if frequency <= 0 || tuningFreq <= 0 {
		return 0
	}
	return 69.0 + 12.0*math.Log2(frequency/tuningFreq)
}

// PitchClass returns the nearest pitch class (0=C … 11=B) of a frequency
func PitchClass(frequency, tuningFreq float64) int {
	midi := int(math.Round(FrequencyToMIDI(frequency, tuningFreq)))
	return ((midi % NumPitchClasses) + NumPitchClasses) % NumPitchClasses
}

// NoteName returns the nearest equal-tempered note with octave, e.g. "A4".
// Non-positive frequencies yield an empty string.
func NoteName(frequency, tuningFreq float64) string {
	if frequency <= 0 || tuningFreq <= 0 {
		return ""
	}
	midi := int(math.Round(FrequencyToMIDI(frequency, tuningFreq)))
	pc := ((midi % NumPitchClasses) + NumPitchClasses) % NumPitchClasses
	octave := int(math.Floor(float64(midi)/NumPitchClasses)) - 1
	return fmt.Sprintf("%s%d", PitchClassNames[pc], octave)
}

// Rotate returns profile shifted so that index 0 of the input lands on root:
// out[i] = profile[(i−root) mod 12].
func Rotate(profile []float64, root int) []float64 {
	n := len(profile)
	out := make([]float64, n)
	if n == 0 {
		return out
	}
	for i := range n {
		out[i] = profile[((i-root)%n+n)%n]
	}
	return out
}
