package domain

import "time"

// SegmentRole marks a segment's place in a split shift.
type SegmentRole string

const (
	RoleNone       SegmentRole = "NONE"
	RoleFirstPart  SegmentRole = "FIRST_PART"
	RoleSecondPart SegmentRole = "SECOND_PART"
)

// Segment is the part of a shift that falls on one calendar day.
// 0 <= StartMinutes <= EndMinutes <= MinutesPerDay.
type Segment struct {
	Date         time.Time
	StartMinutes int
	EndMinutes   int
	IsSplit      bool
	Role         SegmentRole
}

// Minutes is the segment length.
func (s Segment) Minutes() int {
	return s.EndMinutes - s.StartMinutes
}

// SplitShift turns a shift into one segment, or two when the end time is
// earlier than the start time. The second segment falls on the next day.
// Equal times produce one zero-length segment.
func SplitShift(date time.Time, startTime, endTime string) ([]Segment, error) {
	start, err := ParseClock(startTime)
	if err != nil {
		return nil, &ClockError{Field: "start_time", Value: startTime}
	}
	end, err := ParseClock(endTime)
	if err != nil {
		return nil, &ClockError{Field: "end_time", Value: endTime}
	}

	return SplitMinutes(date, start, end), nil
}

// SplitMinutes is SplitShift on already parsed clock values.
func SplitMinutes(date time.Time, start, end int) []Segment {
	day := DateOf(date)

	if end >= start {
		return []Segment{{
			Date:         day,
			StartMinutes: start,
			EndMinutes:   end,
			Role:         RoleNone,
		}}
	}

	return []Segment{
		{
			Date:         day,
			StartMinutes: start,
			EndMinutes:   MinutesPerDay,
			IsSplit:      true,
			Role:         RoleFirstPart,
		},
		{
			Date:         AddDays(day, 1),
			StartMinutes: 0,
			EndMinutes:   end,
			IsSplit:      true,
			Role:         RoleSecondPart,
		},
	}
}

// SegmentDates lists the distinct dates covered by segments, in order.
func SegmentDates(segments []Segment) []time.Time {
	dates := make([]time.Time, 0, len(segments))
	for _, s := range segments {
		if len(dates) > 0 && dates[len(dates)-1].Equal(s.Date) {
			continue
		}
		dates = append(dates, s.Date)
	}
	return dates
}
