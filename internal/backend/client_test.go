package backend

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"actcal/internal/apperr"
	"actcal/internal/model"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(srv.URL+"/api/", WithTimeout(2*time.Second), WithHeader("X-Api-Key", "secret"))
}

func TestListActivities(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/activities", r.URL.Path)
		assert.Equal(t, "secret", r.Header.Get("X-Api-Key"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `[{"id":"1","title":"Orientation","start":"2024-01-02T10:00:00Z","end":"2024-01-02T11:00:00Z","categoryId":"cat-csl"}]`)
	})

	got, err := c.ListActivities(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "1", got[0].ID)
	assert.Equal(t, "2024-01-02T10:00:00Z", got[0].Start)
	assert.Equal(t, "cat-csl", got[0].CategoryID)
}

func TestGetActivityEscapesID(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/activities/a%2Fb", r.URL.EscapedPath())
		_, _ = io.WriteString(w, `{"id":"a/b","title":"x","start":"2024-01-01","end":"2024-01-01"}`)
	})

	got, err := c.GetActivity(context.Background(), "a/b")
	require.NoError(t, err)
	assert.Equal(t, "a/b", got.ID)

	_, err = c.GetActivity(context.Background(), " ")
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)
}

func TestCreateActivity(t *testing.T) {
	t.Run("empty response", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
			var body model.WireActivity
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "new", body.ID)
			w.WriteHeader(http.StatusOK)
		})

		echoed, err := c.CreateActivity(context.Background(), model.WireActivity{ID: "new", Title: "t"})
		require.NoError(t, err)
		assert.Nil(t, echoed)
	})

	t.Run("echoed record", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusCreated)
			_, _ = io.WriteString(w, `{"id":"new","title":"t","coordinatorName":"Server Side"}`)
		})

		echoed, err := c.CreateActivity(context.Background(), model.WireActivity{ID: "new", Title: "t"})
		require.NoError(t, err)
		require.NotNil(t, echoed)
		assert.Equal(t, "Server Side", echoed.CoordinatorName)
	})
}

func TestUpdateAndDelete(t *testing.T) {
	var methods []string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		methods = append(methods, r.Method+" "+r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	})

	require.NoError(t, c.UpdateActivity(context.Background(), "7", model.WireActivity{ID: "7"}))
	require.NoError(t, c.DeleteActivity(context.Background(), "7"))
	assert.Equal(t, []string{"PUT /api/activities/7", "DELETE /api/activities/7"}, methods)
}

func TestReserveNonDepartmentRoom(t *testing.T) {
	t.Run("json string", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/api/activities/reserveNonDepartmentRoom", r.URL.Path)
			_, _ = io.WriteString(w, `"reservation requested"`)
		})
		got, err := c.ReserveNonDepartmentRoom(context.Background(), model.NonDepartmentRoomReservationRequest{Title: "x"})
		require.NoError(t, err)
		assert.Equal(t, "reservation requested", got)
	})

	t.Run("plain text", func(t *testing.T) {
		c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, "ok\n")
		})
		got, err := c.ReserveNonDepartmentRoom(context.Background(), model.NonDepartmentRoomReservationRequest{})
		require.NoError(t, err)
		assert.Equal(t, "ok", got)
	})
}

func TestLookups(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/categories":
			_, _ = io.WriteString(w, `[{"id":"c1","name":"Academic Calendar"}]`)
		case "/api/organizations":
			_, _ = io.WriteString(w, `[{"id":"o1","name":"Registrar"}]`)
		case "/api/locations":
			_, _ = io.WriteString(w, `[{"id":"l1","name":"Hall"}]`)
		case "/api/graphrooms":
			_, _ = io.WriteString(w, `[{"id":"r1","displayName":"Room 1","emailAddress":"room1@example.edu","floorNumber":null}]`)
		case "/api/graphschedule":
			assert.Equal(t, http.MethodPost, r.Method)
			_, _ = io.WriteString(w, `[{"scheduleId":"room1@example.edu","availabilityView":"0020"}]`)
		default:
			http.NotFound(w, r)
		}
	})
	ctx := context.Background()

	cats, err := c.ListCategories(ctx)
	require.NoError(t, err)
	assert.Equal(t, []model.Category{{ID: "c1", Name: "Academic Calendar"}}, cats)

	orgs, err := c.ListOrganizations(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Registrar", orgs[0].Name)

	locs, err := c.ListLocations(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Hall", locs[0].Name)

	rooms, err := c.ListGraphRooms(ctx)
	require.NoError(t, err)
	assert.Equal(t, "room1@example.edu", rooms[0].EmailAddress)
	assert.Nil(t, rooms[0].FloorNumber)

	sched, err := c.GraphSchedule(ctx, model.GraphScheduleRequest{Schedules: []string{"room1@example.edu"}})
	require.NoError(t, err)
	assert.Equal(t, "0020", sched[0].AvailabilityView)
}

func TestErrorMapping(t *testing.T) {
	cases := []struct {
		name    string
		status  int
		body    string
		kind    apperr.Kind
		message string
		fields  map[string][]string
	}{
		{
			name:   "validation with field errors",
			status: http.StatusBadRequest,
			body:   `{"title":"One or more validation errors occurred.","errors":{"Title":["Title is required"]}}`,
			kind:   apperr.KindValidation,
			fields: map[string][]string{"Title": {"Title is required"}},
		},
		{
			name:    "plain bad request",
			status:  http.StatusBadRequest,
			body:    `"Room already booked"`,
			kind:    apperr.KindValidation,
			message: "Room already booked",
		},
		{name: "unauthorized", status: http.StatusUnauthorized, kind: apperr.KindUnauthenticated, message: "Unauthorized"},
		{name: "not found", status: http.StatusNotFound, body: "missing", kind: apperr.KindNotFound, message: "missing"},
		{name: "server", status: http.StatusInternalServerError, body: `{"message":"boom"}`, kind: apperr.KindServer, message: `{"message":"boom"}`},
		{name: "unexpected status", status: http.StatusConflict, kind: apperr.KindServer, message: "Conflict"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = io.WriteString(w, tc.body)
			})

			_, err := c.ListActivities(context.Background())
			require.Error(t, err)

			var e *apperr.Error
			require.ErrorAs(t, err, &e)
			assert.Equal(t, tc.kind, e.Kind)
			assert.Equal(t, tc.status, e.Status)
			if tc.fields != nil {
				assert.Equal(t, tc.fields, e.Fields)
			} else {
				assert.Equal(t, tc.message, e.Message)
			}
		})
	}
}

func TestNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	_, err := New(srv.URL).ListCategories(context.Background())
	assert.ErrorIs(t, err, apperr.ErrServer)
}
