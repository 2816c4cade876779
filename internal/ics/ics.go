// Package ics publishes activities as an iCalendar feed and handles the
// recurrence rules attached to them.
package ics

import (
	"time"

	ical "github.com/arran4/golang-ical"

	"actcal/internal/convert"
	appLog "actcal/internal/log"
	"actcal/internal/model"
)

// DefaultProductID is used when Options.ProductID is empty.
const DefaultProductID = "-//actcal//Activity Calendar//EN"

type Options struct {
	ProductID string
	Name      string
	// Stamp is written as DTSTAMP; zero means now.
	Stamp time.Time
}

// Encode renders acts as a PUBLISH calendar. All-day activities become
// DATE values of their UTC calendar days with an exclusive end date. Recurrence options that cannot be
// turned into an RRULE are dropped with a warning.
func Encode(acts []model.Activity, opts Options) string {
	if opts.ProductID == "" {
		opts.ProductID = DefaultProductID
	}
	if opts.Stamp.IsZero() {
		opts.Stamp = time.Now()
	}

	cal := ical.NewCalendar()
	cal.SetProductId(opts.ProductID)
	cal.SetMethod(ical.MethodPublish)
	if opts.Name != "" {
		cal.SetName(opts.Name)
		cal.SetXWRCalName(opts.Name)
	}

	for _, a := range acts {
		addEvent(cal, a, opts)
	}
	return cal.Serialize()
}

func addEvent(cal *ical.Calendar, a model.Activity, opts Options) {
	ev := cal.AddEvent(a.ID)
	ev.SetDtStampTime(opts.Stamp)
	ev.SetSummary(a.Title)

	if a.AllDayEvent {
		ev.SetAllDayStartAt(convert.StartOfDay(a.Start))
		ev.SetAllDayEndAt(convert.AddDays(convert.StartOfDay(a.End), 1))
	} else {
		ev.SetStartAt(a.Start)
		ev.SetEndAt(a.End)
	}

	if a.Description != "" {
		ev.SetDescription(a.Description)
	}
	if a.PrimaryLocation != "" {
		ev.SetLocation(a.PrimaryLocation)
	}
	if a.Category.Name != "" {
		ev.AddCategory(a.Category.Name)
	}
	if a.CoordinatorEmail != "" {
		if a.CoordinatorName != "" {
			ev.SetOrganizer(a.CoordinatorEmail, ical.WithCN(a.CoordinatorName))
		} else {
			ev.SetOrganizer(a.CoordinatorEmail)
		}
	}

	if a.Recurrence && a.RecurrenceOptions != nil {
		rule, err := RRule(*a.RecurrenceOptions, a.Start)
		if err != nil {
			appLog.Warn("ics: dropping recurrence", "id", a.ID, "err", err)
			return
		}
		ev.AddRrule(rule)
	}
}
