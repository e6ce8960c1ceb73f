package timeutil

import (
	"strings"
	"time"
)

// ISOLayout matches what browsers produce with Date.prototype.toISOString
const ISOLayout = "2006-01-02T15:04:05.000Z07:00"

const day = 24 * time.Hour

// acceptedLayouts are tried in order by ParseTimestamp
var acceptedLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Now returns the current time in UTC
// Always use this instead of time.Now() to ensure timezone consistency
func Now() time.Time {
	return time.Now().UTC()
}

// ToUTC converts a time.Time to UTC if it isn't already
func ToUTC(t time.Time) time.Time {
	return t.UTC()
}

// AddDays adds whole 24h days. Calendar arithmetic is not used, so the
// result is always exactly n*24h after t.
func AddDays(t time.Time, n int) time.Time {
	return t.Add(time.Duration(n) * day)
}

// ParseTimestamp parses provider and database timestamps. Values without an
// offset are read as UTC. The second result is false for empty or
// unparseable input.
func ParseTimestamp(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}
	for _, layout := range acceptedLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// FormatISO renders t in UTC with millisecond precision
func FormatISO(t time.Time) string {
	return t.UTC().Format(ISOLayout)
}

// FormatISOPtr renders t or returns nil for absent values
func FormatISOPtr(t *time.Time) *string {
	if t == nil || t.IsZero() {
		return nil
	}
	s := FormatISO(*t)
	return &s
}
