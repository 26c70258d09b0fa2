package spectral

import (
	"math/cmplx"

	"github.com/RyanBlaney/sonido-tinte/algorithms/common"
	"github.com/mjibson/go-dsp/fft"
	"gonum.org/v1/gonum/dsp/fourier"
)

// FFTReal computes the full complex transform of x using mjibson/go-dsp.
// go-dsp handles all sizes, including non-power-of-2.
func FFTReal(x []float64) []complex128 {
	if len(x) == 0 {
		return []complex128{}
	}
	return fft.FFTReal(x)
}

// IFFTReal computes the inverse transform and returns the real part only
func IFFTReal(x []complex128) []float64 {
	if len(x) == 0 {
		return []float64{}
	}

	result := fft.IFFT(x)
	out := make([]float64, len(result))
	for i, v := range result {
		out[i] = real(v)
	}
	return out
}

// MagnitudeSpectrum returns |X[k]| for k in [0, fftSize/2).
// Frames shorter than fftSize are zero-padded, longer ones truncated.
func MagnitudeSpectrum(frame []float64, fftSize int) []float64 {
	if fftSize <= 1 {
		return []float64{}
	}

	padded := make([]float64, fftSize)
	copy(padded, frame)

	coeffs := fft.FFTReal(padded)
	mags := make([]float64, fftSize/2)
	for k := range mags {
		mags[k] = cmplx.Abs(coeffs[k])
	}
	return mags
}

// BinFrequency maps a bin index to Hz: bin·sampleRate/fftSize
func BinFrequency(bin, fftSize, sampleRate int) float64 {
	if fftSize <= 0 {
		return 0
	}
	return float64(bin) * float64(sampleRate) / float64(fftSize)
}

// FrequencyAxis returns the frequency of each of the fftSize/2 magnitude bins
func FrequencyAxis(fftSize, sampleRate int) []float64 {
	if fftSize <= 1 {
		return []float64{}
	}
	freqs := make([]float64, fftSize/2)
	for k := range freqs {
		freqs[k] = BinFrequency(k, fftSize, sampleRate)
	}
	return freqs
}

// Plan is a reusable fixed-size real transform backed by gonum's fourier package.
// A Plan keeps internal work buffers and must not be shared between goroutines.
type Plan struct {
	size   int
	fft    *fourier.FFT
	frame  []float64
	coeffs []complex128
}

// NewPlan creates a transform plan for frames of fftSize samples
func NewPlan(fftSize int) *Plan {
	return &Plan{
		size:   fftSize,
		fft:    fourier.NewFFT(fftSize),
		frame:  make([]float64, fftSize),
		coeffs: make([]complex128, fftSize/2+1),
	}
}

// Size returns the transform length
func (p *Plan) Size() int {
	return p.size
}

// Magnitudes writes the fftSize/2 magnitudes of frame into dst and returns it.
// dst is allocated when nil or of the wrong length.
func (p *Plan) Magnitudes(dst, frame []float64) []float64 {
	if len(dst) != p.size/2 {
		dst = make([]float64, p.size/2)
	}

	n := copy(p.frame, frame)
	for i := n; i < p.size; i++ {
		p.frame[i] = 0
	}

	p.coeffs = p.fft.Coefficients(p.coeffs, p.frame)
	for k := range dst {
		dst[k] = cmplx.Abs(p.coeffs[k])
	}
	return dst
}

// Autocorrelation returns the normalized autocorrelation of frame,
// corr[lag] = Σ s[i]·s[i+lag] / Σ s[i]², for lags in [0, len(frame)).
// The transform is zero-padded to at least twice the frame length so the
// result is linear rather than circular. A silent frame yields nil.
func Autocorrelation(frame []float64) []float64 {
	n := len(frame)
	if n == 0 {
		return nil
	}

	size := common.NextPowerOfTwo(2 * n)
	padded := make([]float64, size)
	copy(padded, frame)

	spectrum := fft.FFTReal(padded)
	for i, c := range spectrum {
		re, im := real(c), imag(c)
		spectrum[i] = complex(re*re+im*im, 0)
	}

	raw := fft.IFFT(spectrum)
	energy := real(raw[0])
	if energy <= 0 || !common.IsFinite(energy) {
		return nil
	}

	corr := make([]float64, n)
	for lag := range corr {
		corr[lag] = real(raw[lag]) / energy
	}
	return corr
}
