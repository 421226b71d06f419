package domain

import "fmt"

// Defaults applied when a company has not configured its own settings.
const (
	DefaultDayStart          = "06:00"
	DefaultEveningStart      = "18:00"
	DefaultNightStart        = "22:00"
	DefaultBackdateLimitDays = 30
)

// ShiftBoundaries partitions a day into day, evening and night windows.
// Values are minutes from midnight.
type ShiftBoundaries struct {
	DayStart     int
	EveningStart int
	NightStart   int
}

// DefaultBoundaries returns 06:00 / 18:00 / 22:00.
func DefaultBoundaries() ShiftBoundaries {
	return ShiftBoundaries{DayStart: 6 * 60, EveningStart: 18 * 60, NightStart: 22 * 60}
}

// ParseBoundaries builds boundaries from "HH:mm" strings. Empty values take
// the defaults.
func ParseBoundaries(dayStart, eveningStart, nightStart string) (ShiftBoundaries, error) {
	var b ShiftBoundaries
	fields := []struct {
		name  string
		value string
		def   string
		dst   *int
	}{
		{"day_start", dayStart, DefaultDayStart, &b.DayStart},
		{"evening_start", eveningStart, DefaultEveningStart, &b.EveningStart},
		{"night_start", nightStart, DefaultNightStart, &b.NightStart},
	}

	for _, f := range fields {
		v := f.value
		if v == "" {
			v = f.def
		}
		m, err := ParseClock(v)
		if err != nil {
			return ShiftBoundaries{}, &ClockError{Field: f.name, Value: v}
		}
		*f.dst = m
	}

	return b, nil
}

// Ordered reports whether DayStart < EveningStart < NightStart.
func (b ShiftBoundaries) Ordered() bool {
	return b.DayStart < b.EveningStart && b.EveningStart < b.NightStart
}

func (b ShiftBoundaries) String() string {
	return fmt.Sprintf("day=%s evening=%s night=%s",
		FormatClock(b.DayStart), FormatClock(b.EveningStart), FormatClock(b.NightStart))
}

// Policy holds the company rules applied by Validate.
type Policy struct {
	BackdateLimitDays int
	// RejectOverlaps turns a detected overlap into a rejection. When false
	// the overlap is only flagged on the records.
	RejectOverlaps bool
	// AllowFutureEntries disables the future-date lock.
	AllowFutureEntries bool
}

// DefaultPolicy is a 30 day backdate limit with overlaps rejected.
func DefaultPolicy() Policy {
	return Policy{BackdateLimitDays: DefaultBackdateLimitDays, RejectOverlaps: true}
}
