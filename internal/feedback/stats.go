package feedback

import "sort"

// Stats summarizes a feedback log.
type Stats struct {
	Total                int
	ByRating             map[Rating]int
	ByStyle              map[string]int
	MeanTextTemperature  float64
	MeanImageTemperature float64
	Latest               []Record
}

// Summarize computes totals over records, keeping the latest n (newest first).
func Summarize(records []Record, latest int) Stats {
	stats := Stats{
		Total:    len(records),
		ByRating: make(map[Rating]int),
		ByStyle:  make(map[string]int),
	}
	if len(records) == 0 {
		return stats
	}

	var textSum, imageSum float64
	for _, rec := range records {
		stats.ByRating[rec.Rating]++
		style := rec.Style
		if style == "" {
			style = "none"
		}
		stats.ByStyle[style]++
		textSum += rec.TextTemperature
		imageSum += rec.ImageTemperature
	}
	stats.MeanTextTemperature = textSum / float64(len(records))
	stats.MeanImageTemperature = imageSum / float64(len(records))

	sorted := make([]Record, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.After(sorted[j].Timestamp)
	})
	if latest > len(sorted) {
		latest = len(sorted)
	}
	if latest > 0 {
		stats.Latest = sorted[:latest]
	}
	return stats
}

// PositiveRate returns the share of positive ratings, or 0 for an empty log.
func (s Stats) PositiveRate() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.ByRating[Positive]) / float64(s.Total)
}
