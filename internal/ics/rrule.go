package ics

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/teambition/rrule-go"

	"actcal/internal/model"
)

var frequencies = map[string]rrule.Frequency{
	"daily":   rrule.DAILY,
	"weekly":  rrule.WEEKLY,
	"monthly": rrule.MONTHLY,
	"yearly":  rrule.YEARLY,
}

var weekdays = map[string]rrule.Weekday{
	"MO": rrule.MO,
	"TU": rrule.TU,
	"WE": rrule.WE,
	"TH": rrule.TH,
	"FR": rrule.FR,
	"SA": rrule.SA,
	"SU": rrule.SU,
}

// ROption converts recurrence options into an rrule option anchored at
// dtstart. Weekdays accept two-letter codes or full English names.
func ROption(opts model.RecurrenceOptions, dtstart time.Time) (rrule.ROption, error) {
	freq, ok := frequencies[strings.ToLower(strings.TrimSpace(opts.Frequency))]
	if !ok {
		return rrule.ROption{}, fmt.Errorf("recurrence: unknown frequency %q", opts.Frequency)
	}
	if opts.Interval < 0 {
		return rrule.ROption{}, errors.New("recurrence: interval must not be negative")
	}
	if opts.Count < 0 {
		return rrule.ROption{}, errors.New("recurrence: count must not be negative")
	}

	o := rrule.ROption{
		Freq:    freq,
		Dtstart: dtstart,
		Count:   opts.Count,
	}
	if opts.Interval > 1 {
		o.Interval = opts.Interval
	}
	if opts.Until != nil {
		if opts.Until.Before(dtstart) {
			return rrule.ROption{}, errors.New("recurrence: until is before the first occurrence")
		}
		o.Until = *opts.Until
	}
	for _, d := range opts.Weekdays {
		code := strings.ToUpper(strings.TrimSpace(d))
		if len(code) > 2 {
			code = code[:2]
		}
		wd, ok := weekdays[code]
		if !ok {
			return rrule.ROption{}, fmt.Errorf("recurrence: unknown weekday %q", d)
		}
		o.Byweekday = append(o.Byweekday, wd)
	}
	return o, nil
}

// RRule renders opts as an RRULE value (without the "RRULE:" prefix).
func RRule(opts model.RecurrenceOptions, dtstart time.Time) (string, error) {
	o, err := ROption(opts, dtstart)
	if err != nil {
		return "", err
	}
	if _, err := rrule.NewRRule(o); err != nil {
		return "", fmt.Errorf("recurrence: %w", err)
	}
	return o.RRuleString(), nil
}

// Preview returns up to n occurrence starts of opts beginning at dtstart.
func Preview(opts model.RecurrenceOptions, dtstart time.Time, n int) ([]time.Time, error) {
	o, err := ROption(opts, dtstart)
	if err != nil {
		return nil, err
	}
	r, err := rrule.NewRRule(o)
	if err != nil {
		return nil, fmt.Errorf("recurrence: %w", err)
	}

	out := make([]time.Time, 0, n)
	next := r.Iterator()
	for len(out) < n {
		t, ok := next()
		if !ok {
			break
		}
		out = append(out, t)
	}
	return out, nil
}
