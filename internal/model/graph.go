package model

// GraphEvent is the external calendar provider's event representation.
type GraphEvent struct {
	ID          string          `json:"id,omitempty"`
	Subject     string          `json:"subject"`
	BodyPreview string          `json:"bodyPreview,omitempty"`
	Body        GraphBody       `json:"body"`
	Start       GraphDateTime   `json:"start"`
	End         GraphDateTime   `json:"end"`
	IsAllDay    bool            `json:"isAllDay"`
	Location    *GraphLocation  `json:"location,omitempty"`
	Organizer   *GraphOrganizer `json:"organizer,omitempty"`
}

type GraphBody struct {
	ContentType string `json:"contentType"`
	Content     string `json:"content"`
}

// GraphDateTime is a wall-clock time tagged with the zone it is expressed in.
type GraphDateTime struct {
	DateTime string `json:"dateTime"`
	TimeZone string `json:"timeZone"`
}

type GraphLocation struct {
	DisplayName string `json:"displayName"`
}

type GraphOrganizer struct {
	EmailAddress GraphEmailAddress `json:"emailAddress"`
}

type GraphEmailAddress struct {
	Name    string `json:"name"`
	Address string `json:"address"`
}

// GraphUser is the signed-in identity as reported by the provider.
type GraphUser struct {
	ID                string `json:"id"`
	DisplayName       string `json:"displayName"`
	Mail              string `json:"mail"`
	UserPrincipalName string `json:"userPrincipalName"`
}

type GraphAddress struct {
	Street          string `json:"street"`
	City            string `json:"city"`
	State           string `json:"state"`
	CountryOrRegion string `json:"countryOrRegion"`
	PostalCode      string `json:"postalCode"`
}

// GraphRoom is a bookable room resource as served by /graphrooms.
type GraphRoom struct {
	ID                     string       `json:"id"`
	Address                GraphAddress `json:"address"`
	DisplayName            string       `json:"displayName"`
	Phone                  string       `json:"phone"`
	EmailAddress           string       `json:"emailAddress"`
	Capacity               string       `json:"capacity"`
	BookingType            string       `json:"bookingType"`
	Tags                   []string     `json:"tags"`
	Building               string       `json:"building"`
	FloorNumber            *int         `json:"floorNumber"`
	Label                  string       `json:"label"`
	AudioDeviceName        string       `json:"audioDeviceName"`
	VideoDeviceName        string       `json:"videoDeviceName"`
	DisplayDeviceName      string       `json:"displayDeviceName"`
	IsWheelChairAccessible string       `json:"isWheelChairAccessible"`
}

// GraphScheduleRequest asks the backend for free/busy of a set of rooms.
type GraphScheduleRequest struct {
	Schedules []string `json:"schedules"`
	StartTime string   `json:"startTime"`
	EndTime   string   `json:"endTime"`
}

type GraphScheduleItem struct {
	Status   string        `json:"status"`
	Subject  string        `json:"subject,omitempty"`
	Location string        `json:"location,omitempty"`
	Start    GraphDateTime `json:"start"`
	End      GraphDateTime `json:"end"`
}

type GraphScheduleResponse struct {
	ScheduleID       string              `json:"scheduleId"`
	AvailabilityView string              `json:"availabilityView"`
	ScheduleItems    []GraphScheduleItem `json:"scheduleItems"`
}

// NonDepartmentRoomReservationRequest asks the backend to book a room that
// is not managed by the department.
type NonDepartmentRoomReservationRequest struct {
	ActivityID      string `json:"activityId,omitempty"`
	Title           string `json:"title"`
	Start           string `json:"start"`
	End             string `json:"end"`
	AllDayEvent     bool   `json:"allDayEvent"`
	Location        string `json:"location"`
	RoomEmail       string `json:"roomEmail,omitempty"`
	RequesterName   string `json:"requesterName"`
	RequesterEmail  string `json:"requesterEmail"`
	AdditionalNotes string `json:"additionalNotes,omitempty"`
}
