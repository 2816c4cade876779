// Package convert maps activities between the backend wire shape, the
// canonical model.Activity and the external provider's GraphEvent.
//
// All-day events follow the provider's exclusive end-date convention: the
// provider's end is midnight of the day after the last covered day, while
// the local end is 23:59 of the last covered day.
package convert

import (
	"fmt"

	"actcal/internal/apperr"
	"actcal/internal/model"
)

const bodyContentType = "HTML"

// ToGraphEvent converts a into the provider's representation. For all-day
// activities the start is truncated to its date and the end is moved to
// midnight of the following day.
func ToGraphEvent(a model.Activity) model.GraphEvent {
	start, end := a.Start, a.End
	if a.AllDayEvent {
		start = StartOfDay(a.Start)
		end = AddDays(StartOfDay(a.End), 1)
	}

	return model.GraphEvent{
		ID:          a.ID,
		Subject:     a.Title,
		BodyPreview: a.Description,
		Body: model.GraphBody{
			ContentType: bodyContentType,
			Content:     a.Description,
		},
		Start:    FormatGraphDateTime(start),
		End:      FormatGraphDateTime(end),
		IsAllDay: a.AllDayEvent,
		Location: &model.GraphLocation{DisplayName: a.PrimaryLocation},
	}
}

// FromGraphEvent converts a provider event into an Activity of category c.
// The caller picks the category; this function does no lookups.
func FromGraphEvent(g model.GraphEvent, c model.Category) (model.Activity, error) {
	start, err := ParseGraphDateTime(g.Start)
	if err != nil {
		return model.Activity{}, fmt.Errorf("graph event %s start: %w", g.ID, err)
	}
	end, err := ParseGraphDateTime(g.End)
	if err != nil {
		return model.Activity{}, fmt.Errorf("graph event %s end: %w", g.ID, err)
	}
	if g.IsAllDay {
		end = SubtractMinutes(end, 1)
	}

	description := g.BodyPreview
	if description == "" {
		description = g.Body.Content
	}

	a := model.Activity{
		ID:            g.ID,
		Title:         g.Subject,
		Description:   description,
		CategoryID:    c.ID,
		Category:      c,
		Start:         start,
		End:           end,
		AllDayEvent:   g.IsAllDay,
		RoomEmails:    []string{},
		ActivityRooms: []model.ActivityRoom{},
		EventLookup:   g.ID,
	}
	if g.Location != nil {
		a.PrimaryLocation = g.Location.DisplayName
	}
	if g.Organizer != nil {
		a.CoordinatorName = g.Organizer.EmailAddress.Name
		a.CoordinatorEmail = g.Organizer.EmailAddress.Address
	}
	return a, nil
}

// ActivityFromWire turns backend date strings into instants.
func ActivityFromWire(w model.WireActivity) (model.Activity, error) {
	start, err := ParseWireTime(w.Start)
	if err != nil {
		return model.Activity{}, fmt.Errorf("activity %s start: %w", w.ID, err)
	}
	end, err := ParseWireTime(w.End)
	if err != nil {
		return model.Activity{}, fmt.Errorf("activity %s end: %w", w.ID, err)
	}

	a := model.Activity{
		ID:                   w.ID,
		Title:                w.Title,
		Description:          w.Description,
		CategoryID:           w.CategoryID,
		OrganizationID:       w.OrganizationID,
		Organization:         w.Organization,
		Start:                start,
		End:                  end,
		AllDayEvent:          w.AllDayEvent,
		PrimaryLocation:      w.PrimaryLocation,
		CoordinatorEmail:     w.CoordinatorEmail,
		CoordinatorFirstName: w.CoordinatorFirstName,
		CoordinatorLastName:  w.CoordinatorLastName,
		CoordinatorName:      w.CoordinatorName,
		ActionOfficer:        w.ActionOfficer,
		ActionOfficerPhone:   w.ActionOfficerPhone,
		RoomEmails:           w.RoomEmails,
		ActivityRooms:        w.ActivityRooms,
		EventLookup:          w.EventLookup,
		Recurrence:           w.Recurrence,
		RecurrenceOptions:    w.RecurrenceOptions,
	}
	if w.Category != nil {
		a.Category = *w.Category
		if a.CategoryID == "" {
			a.CategoryID = w.Category.ID
		}
	}
	return a, nil
}

// ActivityToWire renders a for the backend.
func ActivityToWire(a model.Activity) model.WireActivity {
	w := model.WireActivity{
		ID:                   a.ID,
		Title:                a.Title,
		Description:          a.Description,
		CategoryID:           a.CategoryID,
		OrganizationID:       a.OrganizationID,
		Organization:         a.Organization,
		Start:                FormatWireTime(a.Start),
		End:                  FormatWireTime(a.End),
		AllDayEvent:          a.AllDayEvent,
		PrimaryLocation:      a.PrimaryLocation,
		CoordinatorEmail:     a.CoordinatorEmail,
		CoordinatorFirstName: a.CoordinatorFirstName,
		CoordinatorLastName:  a.CoordinatorLastName,
		CoordinatorName:      a.CoordinatorName,
		ActionOfficer:        a.ActionOfficer,
		ActionOfficerPhone:   a.ActionOfficerPhone,
		RoomEmails:           a.RoomEmails,
		ActivityRooms:        a.ActivityRooms,
		EventLookup:          a.EventLookup,
		Recurrence:           a.Recurrence,
		RecurrenceOptions:    a.RecurrenceOptions,
	}
	if a.Category.ID != "" {
		c := a.Category
		w.Category = &c
	}
	return w
}

// NormalizeAllDay snaps an all-day activity to 00:00 of its first day and
// 23:59 of its last day. Timed activities are returned unchanged.
func NormalizeAllDay(a model.Activity) model.Activity {
	if !a.AllDayEvent {
		return a
	}
	a.Start = StartOfDay(a.Start)
	a.End = EndOfDay(a.End)
	return a
}

// Validate checks the invariants an activity must hold before it is sent
// to either provider.
func Validate(a model.Activity) error {
	if a.Title == "" {
		return &apperr.Error{
			Kind:   apperr.KindInvalidInput,
			Op:     "validate activity",
			Fields: map[string][]string{"title": {"title is required"}},
		}
	}
	if a.End.Before(a.Start) {
		return &apperr.Error{
			Kind:   apperr.KindInvalidInput,
			Op:     "validate activity",
			Fields: map[string][]string{"end": {"end must not be before start"}},
		}
	}
	return nil
}
