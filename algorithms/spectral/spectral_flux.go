package spectral

import (
	"math"
)

// Flux measures the rise in magnitude from prev to cur: the L2 norm of the
// positive bin differences, divided by the L2 norm of cur so that the result
// does not depend on level. Spectra of different length compare over the
// shorter one. A silent cur yields 0.
func Flux(prev, cur []float64) float64 {
	n := min(len(prev), len(cur))
	if n == 0 {
		return 0
	}

	rise := 0.0
	energy := 0.0
	for i := range n {
		if d := cur[i] - prev[i]; d > 0 {
			rise += d * d
		}
		energy += cur[i] * cur[i]
	}

	if energy == 0 {
		return 0
	}
	return math.Sqrt(rise / energy)
}
