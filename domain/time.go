package domain

import (
	"strings"
	"time"
)

const (
	// TimeLayout is the persisted datetime format: UTC with milliseconds.
	TimeLayout = "2006-01-02T15:04:05.000Z"
	// DateKeyLayout formats calendar day keys.
	DateKeyLayout = "2006-01-02"
)

var parseLayouts = []string{time.RFC3339Nano, time.RFC3339, DateKeyLayout}

// FormatTime renders t in the persisted datetime format.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// ParseTime parses a persisted datetime. Bare dates are read as UTC midnight.
func ParseTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range parseLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// DateKey returns the calendar day of t in loc.
func DateKey(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	return t.In(loc).Format(DateKeyLayout)
}
