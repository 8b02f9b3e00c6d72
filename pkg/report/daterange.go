package report

import (
	"fmt"
	"time"
)

// Preset names a date-range rule.
type Preset string

const (
	PresetFixed       Preset = "fixed"
	PresetWeekly      Preset = "weekly"
	PresetRollingYear Preset = "rolling-year"
	PresetMonth       Preset = "month"
)

// lastInstant is the final representable microsecond of a day.
const lastInstant = 24*time.Hour - time.Microsecond

// DateRange is an inclusive UTC interval.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t lies within the range, bounds included.
func (r DateRange) Contains(t time.Time) bool {
	return !t.Before(r.Start) && !t.After(r.End)
}

// String renders the range for logs.
func (r DateRange) String() string {
	return r.Start.Format(time.RFC3339Nano) + ".." + r.End.Format(time.RFC3339Nano)
}

// Fixed returns the range from the start of the start day to the last
// microsecond of the end day.
func Fixed(start, end time.Time) (DateRange, error) {
	r := DateRange{Start: startOfDay(start), End: startOfDay(end).Add(lastInstant)}
	if r.End.Before(r.Start) {
		return DateRange{}, fmt.Errorf("range end %s is before start %s", end.Format(time.DateOnly), start.Format(time.DateOnly))
	}
	return r, nil
}

// Weekly returns last Saturday 00:00 through the most recent Friday
// 23:59:59.999999. On a Friday the week ends today.
func Weekly(now time.Time) DateRange {
	now = now.UTC()
	sinceFriday := (int(now.Weekday()) - int(time.Friday) + 7) % 7
	friday := startOfDay(now).AddDate(0, 0, -sinceFriday)
	return DateRange{Start: friday.AddDate(0, 0, -6), End: friday.Add(lastInstant)}
}

// RollingYear returns the 365 days up to and including today.
func RollingYear(now time.Time) DateRange {
	now = now.UTC()
	return DateRange{
		Start: startOfDay(now.Add(-365 * 24 * time.Hour)),
		End:   startOfDay(now).Add(lastInstant),
	}
}

// Month returns a whole calendar month.
func Month(year int, month time.Month) DateRange {
	start := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	return DateRange{Start: start, End: start.AddDate(0, 1, 0).Add(-time.Microsecond)}
}

// RangeSpec holds the inputs for resolving a preset.
type RangeSpec struct {
	Preset Preset
	Start  string // YYYY-MM-DD, fixed only
	End    string // YYYY-MM-DD, fixed only
	Month  string // YYYY-MM, month only; empty means the previous month
}

// Resolve turns a spec into a concrete range relative to now.
func (s RangeSpec) Resolve(now time.Time) (DateRange, error) {
	switch s.Preset {
	case PresetFixed:
		start, err := time.ParseInLocation(time.DateOnly, s.Start, time.UTC)
		if err != nil {
			return DateRange{}, fmt.Errorf("parse range start: %w", err)
		}
		end, err := time.ParseInLocation(time.DateOnly, s.End, time.UTC)
		if err != nil {
			return DateRange{}, fmt.Errorf("parse range end: %w", err)
		}
		return Fixed(start, end)
	case PresetWeekly:
		return Weekly(now), nil
	case PresetRollingYear, "":
		return RollingYear(now), nil
	case PresetMonth:
		if s.Month == "" {
			prev := time.Date(now.UTC().Year(), now.UTC().Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -1, 0)
			return Month(prev.Year(), prev.Month()), nil
		}
		m, err := time.ParseInLocation("2006-01", s.Month, time.UTC)
		if err != nil {
			return DateRange{}, fmt.Errorf("parse range month: %w", err)
		}
		return Month(m.Year(), m.Month()), nil
	default:
		return DateRange{}, fmt.Errorf("unknown date range preset %q", s.Preset)
	}
}

func startOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
