package timbre

import (
	"math"

	"github.com/RyanBlaney/sonido-tinte/algorithms/common"
	"gonum.org/v1/gonum/floats"
)

// FeatureStats summarizes one scalar feature across voiced frames
type FeatureStats struct {
	Mean float64 `json:"mean"`
	Std  float64 `json:"std"`
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
}

// CoefficientOfVariation returns Std/Mean, 0 for a zero mean
func (fs FeatureStats) CoefficientOfVariation() float64 {
	return common.CoefficientOfVariation(fs.Mean, fs.Std)
}

// Summarize computes mean, population std, min and max
func Summarize(values []float64) FeatureStats {
	if len(values) == 0 {
		return FeatureStats{}
	}
	mean, std := common.MeanStdDev(values)
	return FeatureStats{
		Mean: mean,
		Std:  std,
		Min:  floats.Min(values),
		Max:  floats.Max(values),
	}
}

// FrameFeatures holds the descriptors of one analysis frame
type FrameFeatures struct {
	Centroid       float64   `json:"centroid"`        // Hz
	Spread         float64   `json:"spread"`          // Hz²
	Flatness       float64   `json:"flatness"`        // [0, 1]
	Crest          float64   `json:"crest"`           // Peak to RMS magnitude
	Rolloff        float64   `json:"rolloff"`         // Hz
	PeakCount      int       `json:"peak_count"`      // Peaks above the relative threshold
	PeakSpacing    float64   `json:"peak_spacing"`    // Mean Hz between consecutive peaks
	PeakProminence float64   `json:"peak_prominence"` // Mean normalized prominence
	SpacingScore   float64   `json:"spacing_score"`   // exp(−spacing/scale) with ≥ 2 peaks, else 0
	Fundamental    float64   `json:"fundamental"`     // Harmonic reference in Hz, 0 if none
	HarmonicRatio  float64   `json:"harmonic_ratio"`  // [0, 1]
	Inharmonicity  float64   `json:"inharmonicity"`   // [0, 1]
	MFCC           []float64 `json:"mfcc"`
}

// Statistics aggregates every scalar frame feature
type Statistics struct {
	Centroid       FeatureStats `json:"centroid"`
	Spread         FeatureStats `json:"spread"`
	Flatness       FeatureStats `json:"flatness"`
	Crest          FeatureStats `json:"crest"`
	Rolloff        FeatureStats `json:"rolloff"`
	PeakCount      FeatureStats `json:"peak_count"`
	PeakSpacing    FeatureStats `json:"peak_spacing"`
	PeakProminence FeatureStats `json:"peak_prominence"`
	SpacingScore   FeatureStats `json:"spacing_score"`
	HarmonicRatio  FeatureStats `json:"harmonic_ratio"`
	Inharmonicity  FeatureStats `json:"inharmonicity"`
	Flux           FeatureStats `json:"flux"` // Between consecutive voiced frames
}

// aggregate summarizes frames column by column and averages MFCC per coefficient
func aggregate(frames []FrameFeatures, numCoefficients int) (Statistics, []float64) {
	column := func(get func(FrameFeatures) float64) FeatureStats {
		values := make([]float64, len(frames))
		for i, f := range frames {
			values[i] = get(f)
		}
		return Summarize(values)
	}

	stats := Statistics{
		Centroid:       column(func(f FrameFeatures) float64 { return f.Centroid }),
		Spread:         column(func(f FrameFeatures) float64 { return f.Spread }),
		Flatness:       column(func(f FrameFeatures) float64 { return f.Flatness }),
		Crest:          column(func(f FrameFeatures) float64 { return f.Crest }),
		Rolloff:        column(func(f FrameFeatures) float64 { return f.Rolloff }),
		PeakCount:      column(func(f FrameFeatures) float64 { return float64(f.PeakCount) }),
		PeakSpacing:    column(func(f FrameFeatures) float64 { return f.PeakSpacing }),
		PeakProminence: column(func(f FrameFeatures) float64 { return f.PeakProminence }),
		SpacingScore:   column(func(f FrameFeatures) float64 { return f.SpacingScore }),
		HarmonicRatio:  column(func(f FrameFeatures) float64 { return f.HarmonicRatio }),
		Inharmonicity:  column(func(f FrameFeatures) float64 { return f.Inharmonicity }),
	}

	mfcc := make([]float64, numCoefficients)
	counted := 0
	for _, f := range frames {
		if len(f.MFCC) != numCoefficients {
			continue
		}
		floats.Add(mfcc, f.MFCC)
		counted++
	}
	if counted > 0 {
		floats.Scale(1/float64(counted), mfcc)
	}

	return stats, mfcc
}

// variation averages the coefficient of variation of the continuous features
func (s Statistics) variation() float64 {
	cvs := []float64{
		s.Centroid.CoefficientOfVariation(),
		s.Spread.CoefficientOfVariation(),
		s.Flatness.CoefficientOfVariation(),
		s.Rolloff.CoefficientOfVariation(),
		s.PeakProminence.CoefficientOfVariation(),
		s.HarmonicRatio.CoefficientOfVariation(),
	}
	return common.Mean(cvs)
}

// spacingScore maps mean peak spacing to (0, 1]: dense peaks beat against
// each other and sound rough
func spacingScore(spacing float64, peaks int, scaleHz float64) float64 {
	if peaks < 2 || scaleHz <= 0 {
		return 0
	}
	return math.Exp(-spacing / scaleHz)
}
