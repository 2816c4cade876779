package ics

import (
	"strings"
	"testing"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"actcal/internal/model"
)

func utc(y int, m time.Month, d, hh, mm int) time.Time {
	return time.Date(y, m, d, hh, mm, 0, 0, time.UTC)
}

func TestRRule(t *testing.T) {
	until := utc(2024, 6, 1, 0, 0)
	cases := []struct {
		name string
		opts model.RecurrenceOptions
		want string
	}{
		{"weekly with days", model.RecurrenceOptions{Frequency: "weekly", Interval: 2, Weekdays: []string{"MO", "friday"}, Count: 5}, "FREQ=WEEKLY;INTERVAL=2;COUNT=5;BYDAY=MO,FR"},
		{"monthly until", model.RecurrenceOptions{Frequency: "Monthly", Until: &until}, "FREQ=MONTHLY;UNTIL=20240601T000000Z"},
		{"daily interval one", model.RecurrenceOptions{Frequency: "daily", Interval: 1}, "FREQ=DAILY"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := RRule(tc.opts, utc(2024, 1, 1, 9, 0))
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestRRuleRejectsBadOptions(t *testing.T) {
	start := utc(2024, 1, 1, 9, 0)
	before := utc(2023, 1, 1, 0, 0)

	for _, opts := range []model.RecurrenceOptions{
		{Frequency: "fortnightly"},
		{Frequency: "weekly", Weekdays: []string{"XX"}},
		{Frequency: "daily", Count: -1},
		{Frequency: "daily", Interval: -2},
		{Frequency: "daily", Until: &before},
	} {
		_, err := RRule(opts, start)
		assert.Error(t, err, "%+v", opts)
	}
}

func TestPreview(t *testing.T) {
	opts := model.RecurrenceOptions{Frequency: "weekly", Weekdays: []string{"MO", "WE"}, Count: 10}

	got, err := Preview(opts, utc(2024, 1, 1, 9, 0), 4)
	require.NoError(t, err)
	assert.Equal(t, []time.Time{
		utc(2024, 1, 1, 9, 0),
		utc(2024, 1, 3, 9, 0),
		utc(2024, 1, 8, 9, 0),
		utc(2024, 1, 10, 9, 0),
	}, got)

	short, err := Preview(model.RecurrenceOptions{Frequency: "daily", Count: 2}, utc(2024, 1, 1, 9, 0), 5)
	require.NoError(t, err)
	assert.Len(t, short, 2)
}

func TestExpand(t *testing.T) {
	acts := []model.Activity{
		{
			ID: "series", Title: "Standup",
			Start: utc(2024, 1, 1, 9, 0), End: utc(2024, 1, 1, 10, 0),
			Recurrence:        true,
			RecurrenceOptions: &model.RecurrenceOptions{Frequency: "daily", Count: 5},
		},
		{ID: "single", Title: "Review", Start: utc(2024, 1, 2, 8, 0), End: utc(2024, 1, 2, 8, 30)},
		{ID: "outside", Title: "Later", Start: utc(2024, 2, 1, 8, 0), End: utc(2024, 2, 1, 9, 0)},
	}

	res, err := Expand(acts, ExpandConfig{RangeStart: utc(2024, 1, 2, 0, 0), RangeEnd: utc(2024, 1, 3, 23, 59)})
	require.NoError(t, err)
	require.Len(t, res.Occurrences, 3)

	assert.Equal(t, "single", res.Occurrences[0].ActivityID)
	assert.Equal(t, utc(2024, 1, 2, 9, 0), res.Occurrences[1].Start)
	assert.Equal(t, utc(2024, 1, 2, 10, 0), res.Occurrences[1].End)
	assert.Equal(t, utc(2024, 1, 3, 9, 0), res.Occurrences[2].Start)
	assert.Equal(t, "series/2024-01-03T09:00:00Z", res.Occurrences[2].InstanceKey)
	assert.Empty(t, res.Truncated)
}

func TestExpandCapAndInvalidRange(t *testing.T) {
	acts := []model.Activity{{
		ID: "daily", Start: utc(2024, 1, 1, 9, 0), End: utc(2024, 1, 1, 10, 0),
		Recurrence:        true,
		RecurrenceOptions: &model.RecurrenceOptions{Frequency: "daily"},
	}}

	res, err := Expand(acts, ExpandConfig{RangeStart: utc(2024, 1, 1, 0, 0), RangeEnd: utc(2024, 1, 31, 0, 0), MaxOccurrencesPerActivity: 3})
	require.NoError(t, err)
	assert.Len(t, res.Occurrences, 3)
	assert.Equal(t, []string{"daily"}, res.Truncated)

	_, err = Expand(acts, ExpandConfig{RangeStart: utc(2024, 2, 1, 0, 0), RangeEnd: utc(2024, 1, 1, 0, 0)})
	assert.Error(t, err)
}

func TestExpandInvalidRecurrenceFallsBack(t *testing.T) {
	acts := []model.Activity{{
		ID: "broken", Start: utc(2024, 1, 1, 9, 0), End: utc(2024, 1, 1, 10, 0),
		Recurrence:        true,
		RecurrenceOptions: &model.RecurrenceOptions{Frequency: "sometimes"},
	}}

	res, err := Expand(acts, ExpandConfig{RangeStart: utc(2024, 1, 1, 0, 0), RangeEnd: utc(2024, 1, 31, 0, 0)})
	require.NoError(t, err)
	require.Len(t, res.Occurrences, 1)
	assert.Equal(t, utc(2024, 1, 1, 9, 0), res.Occurrences[0].Start)
}

func parse(t *testing.T, s string) map[string]*ical.VEvent {
	t.Helper()
	cal, err := ical.ParseCalendar(strings.NewReader(s))
	require.NoError(t, err)
	out := make(map[string]*ical.VEvent)
	for _, ev := range cal.Events() {
		out[ev.Id()] = ev
	}
	return out
}

func prop(ev *ical.VEvent, p ical.ComponentProperty) string {
	if v := ev.GetProperty(p); v != nil {
		return v.Value
	}
	return ""
}

func TestEncode(t *testing.T) {
	acts := []model.Activity{
		{
			ID: "timed", Title: "Board meeting", Description: "Quarterly review",
			Start: utc(2024, 8, 1, 9, 0), End: utc(2024, 8, 1, 10, 30),
			PrimaryLocation:  "Room 101",
			Category:         model.Category{ID: "c2", Name: "CSL Calendar"},
			CoordinatorName:  "Dana Smith",
			CoordinatorEmail: "dana@example.edu",
		},
		{
			ID: "allday", Title: "Spring break", AllDayEvent: true,
			Start: utc(2024, 3, 1, 0, 0), End: utc(2024, 3, 2, 23, 59),
		},
		{
			ID: "weekly", Title: "Chapel",
			Start: utc(2024, 9, 2, 11, 0), End: utc(2024, 9, 2, 12, 0),
			Recurrence:        true,
			RecurrenceOptions: &model.RecurrenceOptions{Frequency: "weekly", Weekdays: []string{"MO"}, Count: 10},
		},
		{
			ID: "badrule", Title: "Broken", Start: utc(2024, 9, 3, 11, 0), End: utc(2024, 9, 3, 12, 0),
			Recurrence:        true,
			RecurrenceOptions: &model.RecurrenceOptions{Frequency: "hourly-ish"},
		},
	}

	out := Encode(acts, Options{Name: "Activities", Stamp: utc(2024, 1, 1, 0, 0)})
	assert.True(t, strings.HasPrefix(out, "BEGIN:VCALENDAR"))
	assert.Contains(t, out, "METHOD:PUBLISH")
	assert.Contains(t, out, "PRODID:"+DefaultProductID)
	assert.Contains(t, out, "X-WR-CALNAME:Activities")

	events := parse(t, out)
	require.Len(t, events, 4)

	timed := events["timed"]
	require.NotNil(t, timed)
	assert.Equal(t, "Board meeting", prop(timed, ical.ComponentPropertySummary))
	assert.Equal(t, "20240801T090000Z", prop(timed, ical.ComponentPropertyDtStart))
	assert.Equal(t, "20240801T103000Z", prop(timed, ical.ComponentPropertyDtEnd))
	assert.Equal(t, "Room 101", prop(timed, ical.ComponentPropertyLocation))
	assert.Equal(t, "CSL Calendar", prop(timed, ical.ComponentPropertyCategories))
	assert.Equal(t, "mailto:dana@example.edu", prop(timed, ical.ComponentPropertyOrganizer))
	assert.Equal(t, "20240101T000000Z", prop(timed, ical.ComponentPropertyDtstamp))

	allDay := events["allday"]
	require.NotNil(t, allDay)
	assert.Equal(t, "20240301", prop(allDay, ical.ComponentPropertyDtStart))
	assert.Equal(t, "20240303", prop(allDay, ical.ComponentPropertyDtEnd))
	assert.Equal(t, []string{"DATE"}, allDay.GetProperty(ical.ComponentPropertyDtStart).ICalParameters["VALUE"])

	assert.Equal(t, "FREQ=WEEKLY;COUNT=10;BYDAY=MO", prop(events["weekly"], ical.ComponentPropertyRrule))
	assert.Empty(t, prop(events["badrule"], ical.ComponentPropertyRrule))
}

func TestEncodeAllDayUsesUTCDate(t *testing.T) {
	west := time.FixedZone("UTC-6", -6*60*60)
	acts := []model.Activity{{
		ID: "g1", Title: "Spring break", AllDayEvent: true,
		// Same instants as 2024-03-01 00:00Z and 2024-03-02 23:59Z.
		Start: utc(2024, 3, 1, 0, 0).In(west),
		End:   utc(2024, 3, 2, 23, 59).In(west),
	}}

	events := parse(t, Encode(acts, Options{Stamp: utc(2024, 1, 1, 0, 0)}))
	require.NotNil(t, events["g1"])
	assert.Equal(t, "20240301", prop(events["g1"], ical.ComponentPropertyDtStart))
	assert.Equal(t, "20240303", prop(events["g1"], ical.ComponentPropertyDtEnd))
}

func TestEncodeEmpty(t *testing.T) {
	out := Encode(nil, Options{ProductID: "-//test//EN"})
	assert.Contains(t, out, "PRODID:-//test//EN")
	assert.Empty(t, parse(t, out))
}
