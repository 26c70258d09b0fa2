package temporal

import (
	"math"
	"slices"

	"github.com/RyanBlaney/sonido-tinte/algorithms/common"
	"github.com/RyanBlaney/sonido-tinte/logging"
)

// TempoParams contains parameters for onset-based tempo estimation
type TempoParams struct {
	DownsampleFactor int       `json:"downsample_factor"`  // Envelope decimation factor (default: 4)
	ThresholdStdDevs float64   `json:"threshold_std_devs"` // Base threshold = mean + k·std of window energies (default: 1.5)
	WindowSeconds    []float64 `json:"window_seconds"`     // Analysis windows for slow/medium/fast material
	HistorySeconds   float64   `json:"history_seconds"`    // Rolling energy history length (default: 1.0)
	HistoryRatio     float64   `json:"history_ratio"`      // Energy must exceed ratio × history mean (default: 1.5)
	RecentRatio      float64   `json:"recent_ratio"`       // Energy must exceed ratio × recent mean (default: 1.2)
	RecentCount      int       `json:"recent_count"`       // History entries forming the recent mean (default: 3)
	MinBPM           float64   `json:"min_bpm"`            // Lowest accepted tempo (default: 40)
	MaxBPM           float64   `json:"max_bpm"`            // Highest accepted tempo (default: 200)
	BucketWidth      float64   `json:"bucket_width"`       // Histogram bucket width in BPM (default: 5)
	DefaultBPM       float64   `json:"default_bpm"`        // Reported when nothing is detected (default: 120)
}

// DefaultTempoParams returns parameters tuned for general music
func DefaultTempoParams() TempoParams {
	return TempoParams{
		DownsampleFactor: 4,
		ThresholdStdDevs: 1.5,
		WindowSeconds:    []float64{0.092, 0.046, 0.023},
		HistorySeconds:   1.0,
		HistoryRatio:     1.5,
		RecentRatio:      1.2,
		RecentCount:      3,
		MinBPM:           40,
		MaxBPM:           200,
		BucketWidth:      5,
		DefaultBPM:       120,
	}
}

// TempoResult holds the estimated tempo
type TempoResult struct {
	BPM        float64 `json:"bpm"`        // In [MinBPM, MaxBPM]
	Confidence float64 `json:"confidence"` // Fraction of intervals in the winning bucket
	Category   string  `json:"category"`   // very_slow, slow, moderate, fast or very_fast
}

// windowVote is the winning histogram bucket of one analysis window size
type windowVote struct {
	windowSeconds float64
	onsets        int
	count         int
	bpm           float64
	confidence    float64
}

// TempoEstimation estimates tempo from adaptive onset detection and
// inter-onset interval voting across several window sizes
type TempoEstimation struct {
	params TempoParams
	logger logging.Logger
}

// NewTempoEstimation creates a new tempo estimator
func NewTempoEstimation(params TempoParams) *TempoEstimation {
	return &TempoEstimation{
		params: params,
		logger: logging.WithFields(logging.Fields{
			"component": "tempo_estimation",
		}),
	}
}

func (te *TempoEstimation) defaultResult() TempoResult {
	return TempoResult{
		BPM:        te.params.DefaultBPM,
		Confidence: 0,
		Category:   ClassifyTempoCategory(te.params.DefaultBPM),
	}
}

// Compute estimates the tempo of signal. Empty input, a non-positive sample
// rate, or fewer than two onsets in every window size yield DefaultBPM with
// zero confidence.
func (te *TempoEstimation) Compute(signal []float64, sampleRate int) TempoResult {
	logger := te.logger.WithFields(logging.Fields{
		"function":    "Compute",
		"sample_rate": sampleRate,
		"samples":     len(signal),
	})

	if len(signal) == 0 || sampleRate <= 0 {
		logger.Debug("Nothing to analyze, using default tempo")
		return te.defaultResult()
	}

	factor := max(te.params.DownsampleFactor, 1)
	envelope := downsampleAbs(signal, factor)
	envRate := float64(sampleRate) / float64(factor)

	var best *windowVote
	for _, seconds := range te.params.WindowSeconds {
		onsets := te.detectOnsets(envelope, envRate, seconds)
		vote, ok := te.vote(onsets)
		if !ok {
			continue
		}
		vote.windowSeconds = seconds

		logger.Debug("Window vote", logging.Fields{
			"window_seconds": seconds,
			"onsets":         len(onsets),
			"bucket_count":   vote.count,
			"bpm":            vote.bpm,
			"confidence":     vote.confidence,
		})

		if best == nil || vote.count > best.count ||
			(vote.count == best.count && vote.confidence > best.confidence) {
			best = &vote
		}
	}

	if best == nil {
		logger.Debug("Fewer than two onsets in every window, using default tempo")
		return te.defaultResult()
	}

	bpm := common.Clamp(best.bpm, te.params.MinBPM, te.params.MaxBPM)
	return TempoResult{
		BPM:        bpm,
		Confidence: common.Clamp01(best.confidence),
		Category:   ClassifyTempoCategory(bpm),
	}
}

// detectOnsets returns onset times in seconds for one analysis window size.
// An onset fires when the window energy clears both the global threshold and
// HistoryRatio times the rolling history mean, and also RecentRatio times the
// mean of the most recent history entries. The global threshold is taken over
// the window energies of this size so short clicks are measured on the same
// scale they are compared on.
func (te *TempoEstimation) detectOnsets(envelope []float64, envRate, windowSeconds float64) []float64 {
	winLen := max(int(math.Round(windowSeconds*envRate)), 1)
	hop := max(winLen/2, 1)
	historyLen := max(int(math.Round(te.params.HistorySeconds*envRate/float64(hop))), 1)
	recentCount := max(te.params.RecentCount, 1)

	energies := windowEnergies(envelope, winLen, hop)
	if len(energies) == 0 {
		return nil
	}
	mean, std := common.MeanStdDev(energies)
	baseThreshold := mean + te.params.ThresholdStdDevs*std

	refractory := 0.0
	if te.params.MaxBPM > 0 {
		refractory = 60.0 / te.params.MaxBPM
	}

	history := make([]float64, 0, historyLen)
	var onsets []float64
	lastOnset := math.Inf(-1)

	for w, energy := range energies {
		start := w * hop

		if len(history) >= recentCount {
			historyMean := common.Mean(history)
			recentMean := common.Mean(history[len(history)-recentCount:])

			if energy > math.Max(baseThreshold, te.params.HistoryRatio*historyMean) &&
				energy > te.params.RecentRatio*recentMean {
				t := float64(start+attackOffset(envelope[start:start+winLen])) / envRate
				if t-lastOnset >= refractory {
					onsets = append(onsets, t)
					lastOnset = t
				}
			}
		}

		if len(history) == historyLen {
			history = history[1:]
		}
		history = append(history, energy)
	}

	return onsets
}

// windowEnergies returns the mean envelope level of every full window
func windowEnergies(envelope []float64, winLen, hop int) []float64 {
	if len(envelope) < winLen {
		return nil
	}

	prefix := make([]float64, len(envelope)+1)
	for i, v := range envelope {
		prefix[i+1] = prefix[i] + v
	}

	energies := make([]float64, 0, (len(envelope)-winLen)/hop+1)
	for start := 0; start+winLen <= len(envelope); start += hop {
		energies = append(energies, (prefix[start+winLen]-prefix[start])/float64(winLen))
	}
	return energies
}

// attackOffset is the index of the first sample reaching half the window peak.
// Onsets are placed there rather than at the window start so inter-onset
// intervals are not quantized to the hop.
func attackOffset(window []float64) int {
	peak := 0.0
	for _, v := range window {
		peak = math.Max(peak, v)
	}
	for i, v := range window {
		if v >= 0.5*peak {
			return i
		}
	}
	return 0
}

// vote buckets inter-onset tempos and returns the most populous bucket.
// ok is false with fewer than two onsets or no interval in range.
func (te *TempoEstimation) vote(onsets []float64) (windowVote, bool) {
	if len(onsets) < 2 {
		return windowVote{}, false
	}

	width := te.params.BucketWidth
	if width <= 0 {
		width = 5
	}

	type bucket struct {
		count int
		sum   float64
	}
	buckets := make(map[int]*bucket)
	valid := 0

	for i := 1; i < len(onsets); i++ {
		interval := onsets[i] - onsets[i-1]
		if interval <= 0 {
			continue
		}
		bpm := 60.0 / interval
		if bpm < te.params.MinBPM || bpm > te.params.MaxBPM {
			continue
		}
		valid++

		key := int(math.Round(bpm / width))
		b, ok := buckets[key]
		if !ok {
			b = &bucket{}
			buckets[key] = b
		}
		b.count++
		b.sum += bpm
	}

	if valid == 0 {
		return windowVote{}, false
	}

	// ascending keys so ties resolve to the slower bucket every time
	keys := make([]int, 0, len(buckets))
	for k := range buckets {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	bestKey := keys[0]
	for _, k := range keys[1:] {
		if buckets[k].count > buckets[bestKey].count {
			bestKey = k
		}
	}

	winner := buckets[bestKey]
	return windowVote{
		onsets:     len(onsets),
		count:      winner.count,
		bpm:        winner.sum / float64(winner.count),
		confidence: float64(winner.count) / float64(valid),
	}, true
}

// downsampleAbs averages |x| over consecutive blocks of factor samples.
// A trailing partial block is averaged over its own length.
func downsampleAbs(signal []float64, factor int) []float64 {
	out := make([]float64, 0, (len(signal)+factor-1)/factor)
	for start := 0; start < len(signal); start += factor {
		end := min(start+factor, len(signal))
		sum := 0.0
		for _, v := range signal[start:end] {
			sum += math.Abs(v)
		}
		out = append(out, sum/float64(end-start))
	}
	return out
}

// ClassifyTempoCategory classifies tempo into broad categories
func ClassifyTempoCategory(tempo float64) string {
	switch {
	case tempo < 60:
		return "very_slow"
	case tempo < 90:
		return "slow"
	case tempo < 120:
		return "moderate"
	case tempo < 150:
		return "fast"
	default:
		return "very_fast"
	}
}
