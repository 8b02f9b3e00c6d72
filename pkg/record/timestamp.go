package record

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// DayLayout is the day/month/year layout used in report rows.
const DayLayout = "02/01/2006"

// ErrEmptyTimestamp is returned for blank timestamp strings.
var ErrEmptyTimestamp = errors.New("empty timestamp")

// Layouts that carry their own offset.
var offsetLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999-0700",
	"2006-01-02 15:04:05.999999999Z07:00",
}

// Layouts without an offset; values are read as UTC.
var localLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02",
	"02/01/2006 15:04:05",
	"02/01/2006",
}

// ParseTimestamp parses an API timestamp and normalises it to UTC.
// Timestamps without an offset are taken to already be UTC.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, ErrEmptyTimestamp
	}

	for _, layout := range offsetLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, nil
		}
	}

	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", s)
}

// FormatDay renders a timestamp string as day/month/year, or "" when it is
// missing or unparsable.
func FormatDay(s string) string {
	t, err := ParseTimestamp(s)
	if err != nil {
		return ""
	}
	return t.Format(DayLayout)
}
