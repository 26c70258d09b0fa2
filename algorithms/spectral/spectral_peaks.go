package spectral

// Peak is a local maximum of a magnitude spectrum
type Peak struct {
	Bin        int     `json:"bin"`
	Frequency  float64 `json:"frequency"`
	Magnitude  float64 `json:"magnitude"`
	Prominence float64 `json:"prominence"` // height above the higher flanking minimum, divided by Magnitude
}

// PeakSummary aggregates the peaks of one frame
type PeakSummary struct {
	Count          int     `json:"count"`
	MeanSpacing    float64 `json:"mean_spacing"`    // Hz between consecutive peaks, 0 with fewer than 2 peaks
	MeanProminence float64 `json:"mean_prominence"` // in [0, 1]
}

// FindPeaks returns the local maxima of mags above relThreshold times the
// frame's maximum magnitude, in ascending bin order.
func FindPeaks(mags, freqs []float64, relThreshold float64) []Peak {
	n := min(len(mags), len(freqs))
	if n < 3 {
		return nil
	}

	maxMag := 0.0
	for i := range n {
		maxMag = max(maxMag, mags[i])
	}
	if maxMag <= 0 {
		return nil
	}
	threshold := relThreshold * maxMag

	var peaks []Peak
	for i := 1; i < n-1; i++ {
		m := mags[i]
		if m < threshold || m <= mags[i-1] || m < mags[i+1] {
			continue
		}

		// walk down both flanks to the nearest minimum
		left := i
		for left > 0 && mags[left-1] <= mags[left] {
			left--
		}
		right := i
		for right < n-1 && mags[right+1] <= mags[right] {
			right++
		}

		base := max(mags[left], mags[right])
		peaks = append(peaks, Peak{
			Bin:        i,
			Frequency:  freqs[i],
			Magnitude:  m,
			Prominence: (m - base) / m,
		})
	}

	return peaks
}

// SummarizePeaks computes count, mean spacing and mean prominence
func SummarizePeaks(peaks []Peak) PeakSummary {
	summary := PeakSummary{Count: len(peaks)}
	if len(peaks) == 0 {
		return summary
	}

	prominence := 0.0
	for _, p := range peaks {
		prominence += p.Prominence
	}
	summary.MeanProminence = prominence / float64(len(peaks))

	if len(peaks) > 1 {
		spacing := peaks[len(peaks)-1].Frequency - peaks[0].Frequency
		summary.MeanSpacing = spacing / float64(len(peaks)-1)
	}

	return summary
}
