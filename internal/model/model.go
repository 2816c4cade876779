package model

import "time"

// CategoryRole tells which provider owns the lifecycle of a category's events.
type CategoryRole string

const (
	// RoleLocal categories are stored by the first-party backend.
	RoleLocal CategoryRole = "local"
	// RoleExternalSynced marks the one category whose events live in the
	// external group calendar.
	RoleExternalSynced CategoryRole = "external_synced"
)

// Category groups activities. Name is a display label; routing decisions
// use Role, which the catalog assigns when categories are loaded.
type Category struct {
	ID   string       `json:"id"`
	Name string       `json:"name"`
	Role CategoryRole `json:"role,omitempty"`
}

// ExternallySynced reports whether the category's events are owned by the
// external calendar provider.
func (c Category) ExternallySynced() bool {
	return c.Role == RoleExternalSynced
}

type Organization struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Location struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ActivityRoom links an activity to a bookable room resource.
type ActivityRoom struct {
	ID         string `json:"id,omitempty"`
	ActivityID string `json:"activityId,omitempty"`
	Name       string `json:"name"`
	Email      string `json:"email"`
}

// RecurrenceOptions describes a repeating activity.
//
// Frequency is one of daily, weekly, monthly or yearly. Weekdays use the
// two-letter iCalendar codes (MO, TU, ...). Either Count or Until bounds the
// series; both zero means unbounded.
type RecurrenceOptions struct {
	Frequency string     `json:"frequency"`
	Interval  int        `json:"interval,omitempty"`
	Weekdays  []string   `json:"weekdays,omitempty"`
	Count     int        `json:"count,omitempty"`
	Until     *time.Time `json:"until,omitempty"`
}

// Activity is the local canonical event record.
type Activity struct {
	ID             string        `json:"id"`
	Title          string        `json:"title"`
	Description    string        `json:"description"`
	CategoryID     string        `json:"categoryId"`
	Category       Category      `json:"category"`
	OrganizationID string        `json:"organizationId,omitempty"`
	Organization   *Organization `json:"organization,omitempty"`

	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	AllDayEvent bool      `json:"allDayEvent"`

	PrimaryLocation string `json:"primaryLocation"`

	CoordinatorEmail     string `json:"coordinatorEmail"`
	CoordinatorFirstName string `json:"coordinatorFirstName"`
	CoordinatorLastName  string `json:"coordinatorLastName"`
	CoordinatorName      string `json:"coordinatorName"`
	ActionOfficer        string `json:"actionOfficer"`
	ActionOfficerPhone   string `json:"actionOfficerPhone"`

	RoomEmails    []string       `json:"roomEmails"`
	ActivityRooms []ActivityRoom `json:"activityRooms"`

	// EventLookup holds the external provider's event id when the activity
	// mirrors an externally-sourced event.
	EventLookup string `json:"eventLookup,omitempty"`

	Recurrence        bool               `json:"recurrence"`
	RecurrenceOptions *RecurrenceOptions `json:"recurrenceOptions,omitempty"`
}

// ActivityPatch carries a partial update. Nil fields keep the value of the
// record being patched.
type ActivityPatch struct {
	ID                   string             `json:"id"`
	Title                *string            `json:"title,omitempty"`
	Description          *string            `json:"description,omitempty"`
	CategoryID           *string            `json:"categoryId,omitempty"`
	Category             *Category          `json:"category,omitempty"`
	OrganizationID       *string            `json:"organizationId,omitempty"`
	Organization         *Organization      `json:"organization,omitempty"`
	Start                *time.Time         `json:"start,omitempty"`
	End                  *time.Time         `json:"end,omitempty"`
	AllDayEvent          *bool              `json:"allDayEvent,omitempty"`
	PrimaryLocation      *string            `json:"primaryLocation,omitempty"`
	CoordinatorEmail     *string            `json:"coordinatorEmail,omitempty"`
	CoordinatorFirstName *string            `json:"coordinatorFirstName,omitempty"`
	CoordinatorLastName  *string            `json:"coordinatorLastName,omitempty"`
	CoordinatorName      *string            `json:"coordinatorName,omitempty"`
	ActionOfficer        *string            `json:"actionOfficer,omitempty"`
	ActionOfficerPhone   *string            `json:"actionOfficerPhone,omitempty"`
	RoomEmails           []string           `json:"roomEmails,omitempty"`
	ActivityRooms        []ActivityRoom     `json:"activityRooms,omitempty"`
	EventLookup          *string            `json:"eventLookup,omitempty"`
	Recurrence           *bool              `json:"recurrence,omitempty"`
	RecurrenceOptions    *RecurrenceOptions `json:"recurrenceOptions,omitempty"`
}

// Apply returns base with every field set in p copied over it. base is not
// modified.
func (p ActivityPatch) Apply(base Activity) Activity {
	out := base
	if p.ID != "" {
		out.ID = p.ID
	}
	setString(&out.Title, p.Title)
	setString(&out.Description, p.Description)
	setString(&out.CategoryID, p.CategoryID)
	if p.Category != nil {
		out.Category = *p.Category
	}
	setString(&out.OrganizationID, p.OrganizationID)
	if p.Organization != nil {
		org := *p.Organization
		out.Organization = &org
	}
	if p.Start != nil {
		out.Start = *p.Start
	}
	if p.End != nil {
		out.End = *p.End
	}
	if p.AllDayEvent != nil {
		out.AllDayEvent = *p.AllDayEvent
	}
	setString(&out.PrimaryLocation, p.PrimaryLocation)
	setString(&out.CoordinatorEmail, p.CoordinatorEmail)
	setString(&out.CoordinatorFirstName, p.CoordinatorFirstName)
	setString(&out.CoordinatorLastName, p.CoordinatorLastName)
	setString(&out.CoordinatorName, p.CoordinatorName)
	setString(&out.ActionOfficer, p.ActionOfficer)
	setString(&out.ActionOfficerPhone, p.ActionOfficerPhone)
	if p.RoomEmails != nil {
		out.RoomEmails = append([]string(nil), p.RoomEmails...)
	}
	if p.ActivityRooms != nil {
		out.ActivityRooms = append([]ActivityRoom(nil), p.ActivityRooms...)
	}
	setString(&out.EventLookup, p.EventLookup)
	if p.Recurrence != nil {
		out.Recurrence = *p.Recurrence
	}
	if p.RecurrenceOptions != nil {
		opts := *p.RecurrenceOptions
		out.RecurrenceOptions = &opts
	}
	return out
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

// WireActivity is the first-party backend's JSON shape. Dates travel as
// strings and are turned into instants by the convert package.
type WireActivity struct {
	ID                   string             `json:"id"`
	Title                string             `json:"title"`
	Description          string             `json:"description"`
	CategoryID           string             `json:"categoryId"`
	Category             *Category          `json:"category,omitempty"`
	OrganizationID       string             `json:"organizationId,omitempty"`
	Organization         *Organization      `json:"organization,omitempty"`
	Start                string             `json:"start"`
	End                  string             `json:"end"`
	AllDayEvent          bool               `json:"allDayEvent"`
	PrimaryLocation      string             `json:"primaryLocation"`
	CoordinatorEmail     string             `json:"coordinatorEmail"`
	CoordinatorFirstName string             `json:"coordinatorFirstName"`
	CoordinatorLastName  string             `json:"coordinatorLastName"`
	CoordinatorName      string             `json:"coordinatorName"`
	ActionOfficer        string             `json:"actionOfficer"`
	ActionOfficerPhone   string             `json:"actionOfficerPhone"`
	RoomEmails           []string           `json:"roomEmails"`
	ActivityRooms        []ActivityRoom     `json:"activityRooms"`
	EventLookup          string             `json:"eventLookup,omitempty"`
	Recurrence           bool               `json:"recurrence"`
	RecurrenceOptions    *RecurrenceOptions `json:"recurrenceOptions,omitempty"`
}
