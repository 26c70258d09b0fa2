package analysis

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/OneOfOne/xxhash"
)

// ErrInvalidSignal is returned for buffers that carry no usable samples
var ErrInvalidSignal = errors.New("invalid signal")

// Signal is an immutable mono sample buffer in [-1, 1] with its sample rate.
// A non-positive sample rate is accepted; every extractor then reports its
// default result.
type Signal struct {
	samples    []float64
	sampleRate int
}

// NewSignal copies samples into a new Signal. Non-finite samples become 0
// and finite ones are clipped to [-1, 1]. An empty buffer, or one where no
// sample is finite, yields ErrInvalidSignal.
func NewSignal(samples []float64, sampleRate int) (Signal, error) {
	if len(samples) == 0 {
		return Signal{}, fmt.Errorf("%w: no samples", ErrInvalidSignal)
	}

	out := make([]float64, len(samples))
	finite := 0
	for i, v := range samples {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		finite++
		out[i] = max(-1, min(1, v))
	}

	if finite == 0 {
		return Signal{}, fmt.Errorf("%w: all %d samples are non-finite", ErrInvalidSignal, len(samples))
	}

	return Signal{samples: out, sampleRate: sampleRate}, nil
}

// NewSignalFromInterleaved down-mixes interleaved multichannel PCM to mono by
// averaging the channels of each frame. A trailing partial frame is dropped.
func NewSignalFromInterleaved(pcm []float64, channels, sampleRate int) (Signal, error) {
	if channels < 1 {
		return Signal{}, fmt.Errorf("%w: channel count %d", ErrInvalidSignal, channels)
	}
	if channels == 1 {
		return NewSignal(pcm, sampleRate)
	}

	frames := len(pcm) / channels
	mono := make([]float64, frames)
	for f := range frames {
		sum := 0.0
		valid := 0
		for _, v := range pcm[f*channels : (f+1)*channels] {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				continue
			}
			sum += v
			valid++
		}
		if valid == 0 {
			mono[f] = math.NaN()
			continue
		}
		mono[f] = sum / float64(channels)
	}

	return NewSignal(mono, sampleRate)
}

// Samples returns a copy of the sample buffer
func (s Signal) Samples() []float64 {
	out := make([]float64, len(s.samples))
	copy(out, s.samples)
	return out
}

// Len returns the number of samples
func (s Signal) Len() int { return len(s.samples) }

// SampleRate returns the sample rate in Hz
func (s Signal) SampleRate() int { return s.sampleRate }

// Duration returns the signal length in seconds, 0 when the sample rate is not positive
func (s Signal) Duration() float64 {
	if s.sampleRate <= 0 {
		return 0
	}
	return float64(len(s.samples)) / float64(s.sampleRate)
}

// Digest returns a 64-bit xxhash over the sample rate and the IEEE-754 bits
// of every sample. Signals with equal samples and rate share a digest.
func (s Signal) Digest() uint64 {
	h := xxhash.New64()
	var buf [8]byte

	binary.LittleEndian.PutUint64(buf[:], uint64(int64(s.sampleRate)))
	h.Write(buf[:])

	for _, v := range s.samples {
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(v))
		h.Write(buf[:])
	}
	return h.Sum64()
}
