package domain

import "time"

// HoursSummary aggregates classified hours over a date window.
type HoursSummary struct {
	Day        float64 `json:"day_hours"`
	Evening    float64 `json:"evening_hours"`
	Night      float64 `json:"night_hours"`
	Total      float64 `json:"total_hours"`
	EntryCount int     `json:"entry_count"`
}

// DateRange is an inclusive range of calendar days.
type DateRange struct {
	From time.Time
	To   time.Time
}

// Contains reports whether date falls inside the range.
func (r DateRange) Contains(date time.Time) bool {
	d := DateOf(date)
	return !d.Before(DateOf(r.From)) && !d.After(DateOf(r.To))
}

// WeekRange returns the Sunday-to-Saturday week containing date.
func WeekRange(date time.Time) DateRange {
	d := DateOf(date)
	start := d.AddDate(0, 0, -int(d.Weekday()))
	return DateRange{From: start, To: start.AddDate(0, 0, 6)}
}

// MonthRange returns the first to last day of the month containing date.
func MonthRange(date time.Time) DateRange {
	d := DateOf(date)
	start := time.Date(d.Year(), d.Month(), 1, 0, 0, 0, 0, time.UTC)
	return DateRange{From: start, To: start.AddDate(0, 1, -1)}
}

// Summarize adds up the records inside r whose status is one of statuses.
// An empty statuses slice counts every live record.
func Summarize(records []Record, r DateRange, statuses ...Status) HoursSummary {
	if len(statuses) == 0 {
		statuses = LiveStatuses()
	}

	var s HoursSummary
	for _, rec := range records {
		if !r.Contains(rec.Date) || !containsStatus(statuses, rec.Status) {
			continue
		}
		s.Day += rec.Hours.Day
		s.Evening += rec.Hours.Evening
		s.Night += rec.Hours.Night
		s.Total += rec.Hours.Total
		s.EntryCount++
	}
	return s
}

func containsStatus(list []Status, s Status) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
