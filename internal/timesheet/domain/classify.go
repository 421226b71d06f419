package domain

// ClassifiedHours is a segment's worked time per window, in hours.
// Day + Evening + Night == Total.
type ClassifiedHours struct {
	Day     float64 `json:"day_hours"`
	Evening float64 `json:"evening_hours"`
	Night   float64 `json:"night_hours"`
	Total   float64 `json:"total_hours"`
}

// ClassifiedSegment pairs a segment with its hours.
type ClassifiedSegment struct {
	Segment
	Hours ClassifiedHours
}

func overlap(s1, e1, s2, e2 int) int {
	lo, hi := max(s1, s2), min(e1, e2)
	if hi <= lo {
		return 0
	}
	return hi - lo
}

// Classify splits the segment's minutes into windows: day is
// [DayStart, EveningStart), evening is [EveningStart, NightStart) and night
// is every other minute, i.e. [0, DayStart) plus [NightStart, 1440) when
// the boundaries are ordered. Hours are not rounded.
//
// Night is computed as the remainder so the three buckets always add up to
// the total, including for misordered boundaries where the day or evening
// window is empty.
func Classify(seg Segment, b ShiftBoundaries) ClassifiedHours {
	start, end := clampMinutes(seg.StartMinutes), clampMinutes(seg.EndMinutes)
	total := max(end-start, 0)

	day := overlap(start, end, b.DayStart, b.EveningStart)
	evening := overlap(start, end, b.EveningStart, b.NightStart)
	night := total - day - evening

	return ClassifiedHours{
		Day:     float64(day) / 60,
		Evening: float64(evening) / 60,
		Night:   float64(night) / 60,
		Total:   float64(total) / 60,
	}
}

// ClassifyAll classifies every segment with the same boundaries.
func ClassifyAll(segments []Segment, b ShiftBoundaries) []ClassifiedSegment {
	out := make([]ClassifiedSegment, len(segments))
	for i, s := range segments {
		out[i] = ClassifiedSegment{Segment: s, Hours: Classify(s, b)}
	}
	return out
}

// Add sums two classifications.
func (h ClassifiedHours) Add(o ClassifiedHours) ClassifiedHours {
	return ClassifiedHours{
		Day:     h.Day + o.Day,
		Evening: h.Evening + o.Evening,
		Night:   h.Night + o.Night,
		Total:   h.Total + o.Total,
	}
}

func clampMinutes(m int) int {
	return min(max(m, 0), MinutesPerDay)
}
