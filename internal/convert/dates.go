package convert

import (
	"fmt"
	"strings"
	"time"

	"actcal/internal/model"
)

// graphLayout is the wall-clock form the external provider emits and accepts.
const graphLayout = "2006-01-02T15:04:05.0000000"

// Accepted input forms, tried in order. Forms without an offset are read in
// the zone supplied by the caller.
var inputLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// AddDays returns t moved by n calendar days.
func AddDays(t time.Time, n int) time.Time {
	return t.AddDate(0, 0, n)
}

// SubtractMinutes returns t moved back by m minutes.
func SubtractMinutes(t time.Time, m int) time.Time {
	return t.Add(-time.Duration(m) * time.Minute)
}

// StartOfDay returns midnight UTC of t's UTC calendar date.
func StartOfDay(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// EndOfDay returns 23:59 UTC of t's UTC calendar date, the last minute an
// all-day activity covers.
func EndOfDay(t time.Time) time.Time {
	return StartOfDay(t).Add(23*time.Hour + 59*time.Minute)
}

// ParseGraphDateTime reads a provider date/time in its tagged zone and
// returns the instant in UTC.
func ParseGraphDateTime(dt model.GraphDateTime) (time.Time, error) {
	loc, err := loadZone(dt.TimeZone)
	if err != nil {
		return time.Time{}, err
	}
	return parseIn(dt.DateTime, loc)
}

// FormatGraphDateTime renders t as a UTC-tagged provider date/time.
func FormatGraphDateTime(t time.Time) model.GraphDateTime {
	return model.GraphDateTime{
		DateTime: t.UTC().Format(graphLayout),
		TimeZone: "UTC",
	}
}

// ParseWireTime reads a backend date string. Values without an offset are
// taken as UTC.
func ParseWireTime(s string) (time.Time, error) {
	return parseIn(s, time.UTC)
}

// FormatWireTime renders t the way the backend expects it.
func FormatWireTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func parseIn(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("convert: empty date/time")
	}
	for _, layout := range inputLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("convert: unrecognized date/time %q", s)
}

func loadZone(name string) (*time.Location, error) {
	name = strings.TrimSpace(name)
	if name == "" || strings.EqualFold(name, "UTC") || strings.EqualFold(name, "Etc/UTC") {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("convert: unknown time zone %q: %w", name, err)
	}
	return loc, nil
}
