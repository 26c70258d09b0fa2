package spectral

import (
	"fmt"
	"runtime"
	"sync"

	"github.com/RyanBlaney/sonido-tinte/algorithms/windowing"
	"github.com/RyanBlaney/sonido-tinte/logging"
)

// STFT provides Short-Time Fourier Transform functionality
type STFT struct {
	logger     logging.Logger
	maxWorkers int
}

// STFTResult holds the magnitude spectrogram of a signal
type STFTResult struct {
	Magnitude      [][]float64 `json:"magnitude"`       // Time x Frequency magnitude matrix
	Frequencies    []float64   `json:"frequencies"`     // Frequency of each bin in Hz
	FrameEnergy    []float64   `json:"frame_energy"`    // Σ|X|² per frame
	TimeFrames     int         `json:"time_frames"`     // Number of time frames
	FreqBins       int         `json:"freq_bins"`       // fftSize/2
	SampleRate     int         `json:"sample_rate"`     // Sample rate
	WindowSize     int         `json:"window_size"`     // FFT window size
	HopSize        int         `json:"hop_size"`        // Hop size between frames
	FreqResolution float64     `json:"freq_resolution"` // Hz per bin
	TimeResolution float64     `json:"time_resolution"` // Seconds per frame
}

// NewSTFT creates a new STFT calculator
func NewSTFT() *STFT {
	return &STFT{
		logger: logging.WithFields(logging.Fields{
			"component": "stft",
		}),
	}
}

// WithMaxWorkers caps the worker pool. Zero or less means no cap.
func (s *STFT) WithMaxWorkers(n int) *STFT {
	s.maxWorkers = n
	return s
}

// Compute splits signal into frames of windowSize samples spaced hopSize apart,
// windows each frame and transforms it in a bounded worker pool. Every frame
// is written to its own row so the output does not depend on scheduling.
// A signal shorter than one window produces a single zero-padded frame.
func (s *STFT) Compute(signal []float64, windowSize, hopSize, sampleRate int, window *windowing.Window) (*STFTResult, error) {
	if len(signal) == 0 {
		return nil, fmt.Errorf("empty signal")
	}
	if windowSize <= 1 {
		return nil, fmt.Errorf("window size must be greater than 1, got %d", windowSize)
	}
	if hopSize <= 0 {
		return nil, fmt.Errorf("hop size must be positive, got %d", hopSize)
	}
	if window != nil && window.Size() != windowSize {
		return nil, fmt.Errorf("window size (%d) doesn't match frame size (%d)", window.Size(), windowSize)
	}

	numFrames := 1
	if len(signal) > windowSize {
		numFrames = (len(signal)-windowSize)/hopSize + 1
	}
	freqBins := windowSize / 2

	magnitude := make([][]float64, numFrames)
	energy := make([]float64, numFrames)

	numWorkers := s.getOptimalWorkerCount(numFrames)

	s.logger.Debug("Computing STFT", logging.Fields{
		"function":    "Compute",
		"samples":     len(signal),
		"window_size": windowSize,
		"hop_size":    hopSize,
		"frames":      numFrames,
		"workers":     numWorkers,
	})

	jobs := make(chan int, numFrames)

	var wg sync.WaitGroup
	for range numWorkers {
		wg.Add(1)
		go func() {
			defer wg.Done()

			// gonum plans carry work buffers, so each worker owns one
			plan := NewPlan(windowSize)
			frameBuffer := make([]float64, windowSize)

			for frameIdx := range jobs {
				start := frameIdx * hopSize
				end := min(start+windowSize, len(signal))

				n := copy(frameBuffer, signal[start:end])
				for i := n; i < windowSize; i++ {
					frameBuffer[i] = 0
				}
				if window != nil {
					// sizes were checked above
					_ = window.ApplyInPlace(frameBuffer)
				}

				mags := plan.Magnitudes(nil, frameBuffer)
				e := 0.0
				for _, m := range mags {
					e += m * m
				}

				magnitude[frameIdx] = mags
				energy[frameIdx] = e
			}
		}()
	}

	for frameIdx := range numFrames {
		jobs <- frameIdx
	}
	close(jobs)

	wg.Wait()

	result := &STFTResult{
		Magnitude:      magnitude,
		Frequencies:    FrequencyAxis(windowSize, sampleRate),
		FrameEnergy:    energy,
		TimeFrames:     numFrames,
		FreqBins:       freqBins,
		SampleRate:     sampleRate,
		WindowSize:     windowSize,
		HopSize:        hopSize,
		FreqResolution: float64(sampleRate) / float64(windowSize),
	}
	if sampleRate > 0 {
		result.TimeResolution = float64(hopSize) / float64(sampleRate)
	}

	return result, nil
}

// getOptimalWorkerCount determines the number of workers based on workload
func (s *STFT) getOptimalWorkerCount(numFrames int) int {
	numCPU := runtime.NumCPU()

	var workers int
	switch {
	case numFrames < 100:
		// small workloads don't benefit from many goroutines
		workers = min(max(numCPU/2, 1), numFrames)
	case numFrames < 1000:
		workers = min(numCPU, 8)
	default:
		workers = numCPU
	}

	if s.maxWorkers > 0 {
		workers = min(workers, s.maxWorkers)
	}
	return max(workers, 1)
}
