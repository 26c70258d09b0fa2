package spectral

import (
	"math"

	"github.com/RyanBlaney/sonido-tinte/algorithms/common"
)

// MinFundamentalHz is the lowest peak accepted as a harmonic reference
const MinFundamentalHz = 20.0

// ReferenceFundamental returns the lowest peak frequency at or above
// MinFundamentalHz, or 0 when there is none. peaks must be in ascending order.
func ReferenceFundamental(peaks []Peak) float64 {
	for _, p := range peaks {
		if p.Frequency >= MinFundamentalHz {
			return p.Frequency
		}
	}
	return 0
}

// HarmonicRatio returns the fraction of spectral energy lying near integer
// multiples of f0. A bin counts toward harmonic k when it is within
// max(binWidth, 3%·k·f0) of k·f0. Result is in [0, 1].
func HarmonicRatio(mags, freqs []float64, f0, binWidth float64) float64 {
	n := min(len(mags), len(freqs))
	if n == 0 || f0 <= 0 {
		return 0
	}

	total := 0.0
	harmonic := 0.0
	for i := range n {
		p := mags[i] * mags[i]
		total += p

		k := math.Round(freqs[i] / f0)
		if k < 1 {
			continue
		}
		tolerance := math.Max(binWidth, 0.03*k*f0)
		if math.Abs(freqs[i]-k*f0) <= tolerance {
			harmonic += p
		}
	}

	return common.Clamp01(common.SafeDivide(harmonic, total))
}

// Inharmonicity returns the energy-weighted distance of each bin to its
// nearest harmonic of f0, in units of f0, scaled so that a spectrum sitting
// halfway between harmonics scores 1.
func Inharmonicity(mags, freqs []float64, f0 float64) float64 {
	n := min(len(mags), len(freqs))
	if n == 0 || f0 <= 0 {
		return 0
	}

	total := 0.0
	weighted := 0.0
	for i := range n {
		p := mags[i] * mags[i]
		if p == 0 {
			continue
		}

		k := math.Max(1, math.Round(freqs[i]/f0))
		deviation := math.Abs(freqs[i]-k*f0) / f0
		weighted += p * deviation
		total += p
	}

	return common.Clamp01(2 * common.SafeDivide(weighted, total))
}
