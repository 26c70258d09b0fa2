package tonal

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/RyanBlaney/sonido-tinte/algorithms/chroma"
	"github.com/RyanBlaney/sonido-tinte/algorithms/common"
	"github.com/RyanBlaney/sonido-tinte/logging"
)

// Scale is the mode of a key
type Scale int

const (
	Major Scale = iota
	Minor
)

func (s Scale) String() string {
	switch s {
	case Major:
		return "major"
	case Minor:
		return "minor"
	default:
		return "unknown"
	}
}

// ParseScale converts "major" or "minor" into a Scale
func ParseScale(name string) (Scale, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "major":
		return Major, nil
	case "minor":
		return Minor, nil
	default:
		return Major, fmt.Errorf("unknown scale %q", name)
	}
}

func (s Scale) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *Scale) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return err
	}
	parsed, err := ParseScale(name)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Krumhansl-Schmuckler key profiles, indexed from the tonic
var (
	KrumhanslMajor = []float64{6.35, 2.23, 3.48, 2.33, 4.38, 4.09, 2.52, 5.19, 2.39, 3.66, 2.29, 2.88}
	KrumhanslMinor = []float64{6.33, 2.68, 3.52, 5.38, 2.60, 3.53, 2.54, 4.75, 3.98, 2.69, 3.34, 3.17}
)

// KeyParams contains parameters for segment-voted key estimation
type KeyParams struct {
	SegmentSeconds float64             `json:"segment_seconds"` // Length of each analyzed segment (default: 5)
	MaxSegments    int                 `json:"max_segments"`    // Upper bound on segments (default: 5)
	MinConfidence  float64             `json:"min_confidence"`  // Floor applied to segment confidence (default: 0.3)
	Chroma         chroma.ChromaParams `json:"chroma"`
}

// DefaultKeyParams returns the default key estimation parameters
func DefaultKeyParams() KeyParams {
	return KeyParams{
		SegmentSeconds: 5.0,
		MaxSegments:    5,
		MinConfidence:  0.3,
		Chroma:         chroma.DefaultChromaParams(),
	}
}

// KeyResult holds the estimated key
type KeyResult struct {
	Root       int     `json:"root"`       // Tonic pitch class, 0=C … 11=B
	Scale      Scale   `json:"scale"`      // major or minor
	Confidence float64 `json:"confidence"` // In [0, 1]
	Name       string  `json:"name"`       // e.g. "A minor"
}

// KeyName formats a root and scale, e.g. "F# major"
func KeyName(root int, scale Scale) string {
	root = ((root % 12) + 12) % 12
	return chroma.PitchClassNames[root] + " " + scale.String()
}

// KeyCandidate is the best matching key of one chroma vector
type KeyCandidate struct {
	Root        int     `json:"root"`
	Scale       Scale   `json:"scale"`
	Correlation float64 `json:"correlation"`
}

// KeyEstimation detects the key by correlating segment chroma vectors with
// rotated Krumhansl-Schmuckler profiles and voting across segments
type KeyEstimation struct {
	params KeyParams
	chroma *chroma.ChromaSTFT
	logger logging.Logger
}

// NewKeyEstimation creates a new key estimator
func NewKeyEstimation(params KeyParams) *KeyEstimation {
	return &KeyEstimation{
		params: params,
		chroma: chroma.NewChromaSTFT(params.Chroma),
		logger: logging.WithFields(logging.Fields{
			"component": "key_estimation",
		}),
	}
}

// BestKey correlates chroma with all 24 rotated profiles and returns the
// best match. Correlation is Σc·p / sqrt(Σp²·Σc²). Ties keep the first
// candidate in root order, majors before minors.
func BestKey(chromaVector []float64) KeyCandidate {
	best := KeyCandidate{Root: 0, Scale: Major, Correlation: -1}
	for root := range chroma.NumPitchClasses {
		for _, scale := range []Scale{Major, Minor} {
			profile := KrumhanslMajor
			if scale == Minor {
				profile = KrumhanslMinor
			}
			corr := common.CosineSimilarity(chromaVector, chroma.Rotate(profile, root))
			if corr > best.Correlation {
				best = KeyCandidate{Root: root, Scale: scale, Correlation: corr}
			}
		}
	}
	return best
}

func (ke *KeyEstimation) defaultResult() KeyResult {
	return KeyResult{Root: 0, Scale: Major, Confidence: 0, Name: KeyName(0, Major)}
}

// Compute estimates the key of signal. Without a usable segment the result
// is C major with zero confidence.
func (ke *KeyEstimation) Compute(signal []float64, sampleRate int) KeyResult {
	logger := ke.logger.WithFields(logging.Fields{
		"function":    "Compute",
		"sample_rate": sampleRate,
		"samples":     len(signal),
	})

	if len(signal) == 0 || sampleRate <= 0 {
		return ke.defaultResult()
	}

	type tally struct {
		votes      int
		bestCorr   float64
		confidence float64
		first      int
	}
	tallies := make(map[KeyCandidate]*tally)
	usable := 0

	for i, segment := range ke.segments(signal, sampleRate) {
		vector, err := ke.chroma.Compute(segment, sampleRate)
		if err != nil {
			logger.Error(err, "Failed to compute segment chroma", logging.Fields{"segment": i})
			continue
		}
		if chroma.IsZero(vector) {
			continue
		}
		usable++

		candidate := BestKey(vector)
		key := KeyCandidate{Root: candidate.Root, Scale: candidate.Scale}
		conf := common.Clamp(candidate.Correlation, ke.params.MinConfidence, 1)

		t, ok := tallies[key]
		if !ok {
			t = &tally{bestCorr: candidate.Correlation, confidence: conf, first: i}
			tallies[key] = t
		}
		t.votes++
		if candidate.Correlation > t.bestCorr {
			t.bestCorr = candidate.Correlation
			t.confidence = conf
		}

		logger.Debug("Segment key", logging.Fields{
			"segment":     i,
			"key":         KeyName(candidate.Root, candidate.Scale),
			"correlation": candidate.Correlation,
		})
	}

	if usable == 0 {
		logger.Debug("No usable segment, using default key")
		return ke.defaultResult()
	}

	var winner KeyCandidate
	var best *tally
	for key, t := range tallies {
		if best == nil || t.votes > best.votes ||
			(t.votes == best.votes && t.bestCorr > best.bestCorr) ||
			(t.votes == best.votes && t.bestCorr == best.bestCorr && t.first < best.first) {
			winner, best = key, t
		}
	}

	voteFraction := float64(best.votes) / float64(usable)
	return KeyResult{
		Root:       winner.Root,
		Scale:      winner.Scale,
		Confidence: common.Clamp01(voteFraction + best.confidence),
		Name:       KeyName(winner.Root, winner.Scale),
	}
}

// segments splits signal into up to MaxSegments windows of SegmentSeconds
// spread evenly across it. Signals holding less than two segments are
// analyzed whole.
func (ke *KeyEstimation) segments(signal []float64, sampleRate int) [][]float64 {
	segLen := int(ke.params.SegmentSeconds * float64(sampleRate))
	if segLen <= 0 || len(signal) <= segLen {
		return [][]float64{signal}
	}

	n := min(max(len(signal)/segLen, 1), max(ke.params.MaxSegments, 1))
	if n == 1 {
		return [][]float64{signal}
	}

	out := make([][]float64, n)
	span := len(signal) - segLen
	for i := range n {
		start := span * i / (n - 1)
		out[i] = signal[start : start+segLen]
	}
	return out
}
