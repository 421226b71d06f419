package domain

import "time"

// Reason is why a submission was rejected.
type Reason string

const (
	ReasonNone             Reason = ""
	ReasonFutureDate       Reason = "FUTURE_DATE"
	ReasonBackdateExceeded Reason = "BACKDATE_EXCEEDED"
	ReasonOverlap          Reason = "OVERLAP"
)

// ExistingEntry is the slice of a stored entry the overlap check needs.
type ExistingEntry struct {
	ID           string
	Date         time.Time
	StartMinutes int
	EndMinutes   int
	Status       Status
}

// Overlap records a clash between a new segment and a stored entry.
type Overlap struct {
	SegmentIndex int
	Date         time.Time
	EntryID      string
	Minutes      int
}

// ValidationResult is Ok when Reason is empty. SegmentIndex points at the
// segment that caused the rejection. Overlaps lists every clash found,
// whether or not it caused a rejection.
type ValidationResult struct {
	Reason       Reason
	SegmentIndex int
	LimitDate    time.Time
	Overlaps     []Overlap
}

// OK reports whether the submission may be persisted.
func (r ValidationResult) OK() bool {
	return r.Reason == ReasonNone
}

// HasOverlap reports whether any segment clashed with a live entry.
func (r ValidationResult) HasOverlap() bool {
	return len(r.Overlaps) > 0
}

// OverlapsSegment reports whether segment i clashed with a live entry.
func (r ValidationResult) OverlapsSegment(i int) bool {
	for _, o := range r.Overlaps {
		if o.SegmentIndex == i {
			return true
		}
	}
	return false
}

// Validate checks each segment in order against the future lock, the
// backdate lock and the existing entries. The first failing check rejects
// the whole submission. existing may hold entries for any date and status;
// only live entries on the segment's date count.
func Validate(segments []Segment, today time.Time, policy Policy, existing []ExistingEntry) ValidationResult {
	today = DateOf(today)
	limitDate := AddDays(today, -policy.BackdateLimitDays)
	result := ValidationResult{SegmentIndex: -1, LimitDate: limitDate}

	for i, seg := range segments {
		date := DateOf(seg.Date)

		if !policy.AllowFutureEntries && date.After(today) {
			return reject(result, ReasonFutureDate, i)
		}

		if date.Before(limitDate) {
			return reject(result, ReasonBackdateExceeded, i)
		}

		found := FindOverlaps(seg, existing)
		for j := range found {
			found[j].SegmentIndex = i
		}
		result.Overlaps = append(result.Overlaps, found...)

		if len(found) > 0 && policy.RejectOverlaps {
			return reject(result, ReasonOverlap, i)
		}
	}

	return result
}

func reject(r ValidationResult, reason Reason, index int) ValidationResult {
	r.Reason = reason
	r.SegmentIndex = index
	return r
}

// FindOverlaps lists live entries on seg's date whose minute range shares
// at least one minute with seg.
func FindOverlaps(seg Segment, existing []ExistingEntry) []Overlap {
	var out []Overlap
	date := DateOf(seg.Date)

	for _, e := range existing {
		if !e.Status.IsLive() || !DateOf(e.Date).Equal(date) {
			continue
		}
		m := overlap(seg.StartMinutes, seg.EndMinutes, e.StartMinutes, e.EndMinutes)
		if m > 0 {
			out = append(out, Overlap{Date: date, EntryID: e.ID, Minutes: m})
		}
	}

	return out
}
