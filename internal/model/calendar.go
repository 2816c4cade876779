package model

import (
	"encoding/json"
	"time"
)

// DateOnlyLayout is the date-only form used for all-day calendar events.
const DateOnlyLayout = "2006-01-02"

// EventTime is either an instant or, for all-day events, a calendar date.
type EventTime struct {
	Time     time.Time
	DateOnly bool
}

func (t EventTime) String() string {
	if t.DateOnly {
		return t.Time.Format(DateOnlyLayout)
	}
	return t.Time.Format(time.RFC3339)
}

func (t EventTime) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// CalendarEvent is the UI projection of an Activity. It is derived from the
// registry and never mutated on its own.
type CalendarEvent struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Start      EventTime `json:"start"`
	End        EventTime `json:"end"`
	AllDay     bool      `json:"allDay"`
	CategoryID string    `json:"categoryId"`
}

// DayGroup is one entry of the grouped-by-day agenda view.
type DayGroup struct {
	Date       string     `json:"date"`
	Activities []Activity `json:"activities"`
}

// Occurrence is one concrete instance of a possibly recurring activity.
type Occurrence struct {
	ActivityID string    `json:"activityId"`
	Title      string    `json:"title"`
	Location   string    `json:"location,omitempty"`
	CategoryID string    `json:"categoryId"`
	AllDay     bool      `json:"allDay"`
	Start      time.Time `json:"start"`
	End        time.Time `json:"end"`
	// InstanceKey is stable per instance: the activity id and the start.
	InstanceKey string `json:"instanceKey"`
}
