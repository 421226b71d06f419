package domain

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const (
	// MinutesPerDay is also the internal end-of-day marker for the first
	// part of a split shift.
	MinutesPerDay = 24 * 60

	// EndOfDayDisplay is how minute 1440 is shown and stored as a clock value.
	EndOfDayDisplay = "23:59"

	// StartOfDayDisplay is the start time of the second part of a split shift.
	StartOfDayDisplay = "00:00"

	// DateLayout is the wire and storage format of calendar dates.
	DateLayout = "2006-01-02"
)

var clockPattern = regexp.MustCompile(`^([0-1]?[0-9]|2[0-3]):[0-5][0-9]$`)

// ErrInvalidTimeFormat is returned for clock values that are not HH:mm.
var ErrInvalidTimeFormat = errors.New("invalid time format")

// ClockError reports the offending value.
type ClockError struct {
	Field string
	Value string
}

func (e *ClockError) Error() string {
	return fmt.Sprintf("%s: %q is not HH:mm", e.Field, e.Value)
}

func (e *ClockError) Unwrap() error { return ErrInvalidTimeFormat }

// ParseClock converts "HH:mm" into minutes from midnight (0-1439).
func ParseClock(value string) (int, error) {
	if !clockPattern.MatchString(value) {
		return 0, &ClockError{Value: value}
	}
	h, m, _ := strings.Cut(value, ":")
	hours, _ := strconv.Atoi(h)
	minutes, _ := strconv.Atoi(m)
	return hours*60 + minutes, nil
}

// FormatClock renders minutes from midnight as "HH:mm". Minute 1440 renders
// as EndOfDayDisplay.
func FormatClock(minutes int) string {
	if minutes >= MinutesPerDay {
		return EndOfDayDisplay
	}
	if minutes < 0 {
		minutes = 0
	}
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// DateOf truncates t to its calendar day, as UTC midnight. The wall-clock
// date of t is kept, whatever its location.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a DateLayout string.
func ParseDate(value string) (time.Time, error) {
	t, err := time.Parse(DateLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", value, err)
	}
	return t, nil
}

// FormatDate renders the calendar day of t.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// AddDays moves a date by n calendar days.
func AddDays(date time.Time, n int) time.Time {
	return DateOf(date).AddDate(0, 0, n)
}
