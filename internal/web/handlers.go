package web

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"actcal/internal/convert"
	"actcal/internal/ics"
	appLog "actcal/internal/log"
	"actcal/internal/model"
)

const (
	defaultOccurrenceDays = 30
	defaultPreviewCount   = 10
	maxPreviewCount       = 366
)

func (s *Server) handleListActivities(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Registry.List())
}

func (s *Server) handleGroupedActivities(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Registry.GroupedByDay())
}

// handleOccurrences expands registered activities into concrete instances.
// from and to accept a date (read in the display zone) or an RFC3339 instant;
// the window defaults to thirty days from today.
func (s *Server) handleOccurrences(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	now := time.Now().In(s.loc)
	from := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.loc)
	if v := q.Get("from"); v != "" {
		t, err := s.parseQueryTime(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid from: "+err.Error())
			return
		}
		from = t
	}
	to := from.AddDate(0, 0, defaultOccurrenceDays)
	if v := q.Get("to"); v != "" {
		t, err := s.parseQueryTime(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid to: "+err.Error())
			return
		}
		to = t
	}

	res, err := ics.Expand(s.deps.Registry.List(), ics.ExpandConfig{
		DisplayLocation:           s.loc,
		RangeStart:                from,
		RangeEnd:                  to,
		MaxOccurrencesPerActivity: parseIntDefault(q.Get("limit"), 0),
	})
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if res.Occurrences == nil {
		res.Occurrences = []model.Occurrence{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"from":        from,
		"to":          to,
		"occurrences": res.Occurrences,
		"truncated":   res.Truncated,
	})
}

func (s *Server) parseQueryTime(v string) (time.Time, error) {
	if t, err := time.ParseInLocation(model.DateOnlyLayout, v, s.loc); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, v)
}

func (s *Server) handleGetActivity(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	a, err := s.deps.Orchestrator.LoadOne(r.Context(), id, r.URL.Query().Get("categoryId"))
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// handleCreateActivity accepts the backend's wire shape so clients can post
// date strings in any of the accepted layouts.
func (s *Server) handleCreateActivity(w http.ResponseWriter, r *http.Request) {
	var in model.WireActivity
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}
	a, err := convert.ActivityFromWire(in)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	created, err := s.deps.Orchestrator.Create(r.Context(), a)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleUpdateActivity(w http.ResponseWriter, r *http.Request) {
	var p model.ActivityPatch
	if err := decodeJSON(w, r, &p); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}
	id := chi.URLParam(r, "id")
	if p.ID != "" && p.ID != id {
		writeError(w, http.StatusBadRequest, "id in body does not match path")
		return
	}
	p.ID = id

	updated, err := s.deps.Orchestrator.Update(r.Context(), p)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteActivity(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.deps.Orchestrator.Delete(r.Context(), id, r.URL.Query().Get("categoryId")); err != nil {
		writeAppError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleReserveRoom(w http.ResponseWriter, r *http.Request) {
	var req model.NonDepartmentRoomReservationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}
	msg, err := s.deps.Orchestrator.ReserveRoom(r.Context(), req)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": msg})
}

// handleEvents serves the calendar projection, optionally narrowed to one
// category by name.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	var events []model.CalendarEvent
	if name := r.URL.Query().Get("category"); name != "" {
		events = s.deps.Registry.FilterByCategoryName(name)
	} else {
		events = s.deps.Registry.CalendarEvents()
	}
	if events == nil {
		events = []model.CalendarEvent{}
	}
	writeJSON(w, http.StatusOK, events)
}

func (s *Server) handleSelected(w http.ResponseWriter, _ *http.Request) {
	a, ok := s.deps.Orchestrator.Selected()
	if !ok {
		writeError(w, http.StatusNotFound, "no activity selected")
		return
	}
	writeJSON(w, http.StatusOK, a)
}

// handleRefresh reloads both providers. With reset=true the registry is
// emptied first so records deleted at their source disappear.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if reset, _ := strconv.ParseBool(r.URL.Query().Get("reset")); reset {
		appLog.Info("registry reset before refresh", "activities", s.deps.Registry.Len())
		s.deps.Registry.Reset()
	}

	var err error
	if s.deps.Refresher != nil {
		err = s.deps.Refresher.RunNow(r.Context())
	} else {
		err = s.deps.Orchestrator.LoadAll(r.Context())
	}
	if err != nil {
		appLog.Error("manual refresh failed", err)
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":         true,
		"activities": s.deps.Registry.Len(),
	})
}

type statusResponse struct {
	Activities       int        `json:"activities"`
	Operations       any        `json:"operations"`
	NextRefresh      *time.Time `json:"nextRefresh,omitempty"`
	LastRefresh      *time.Time `json:"lastRefresh,omitempty"`
	LastRefreshError string     `json:"lastRefreshError,omitempty"`
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	resp := statusResponse{
		Activities: s.deps.Registry.Len(),
		Operations: s.deps.Orchestrator.Statuses(),
	}
	if s.deps.Refresher != nil {
		if next := s.deps.Refresher.Next(); !next.IsZero() {
			resp.NextRefresh = &next
		}
		if last, err := s.deps.Refresher.Last(); !last.IsZero() {
			resp.LastRefresh = &last
			if err != nil {
				resp.LastRefreshError = err.Error()
			}
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleMe reports the account the external calendar is accessed as.
func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	u, err := s.deps.Orchestrator.CurrentUser(r.Context())
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (s *Server) handleCategories(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Catalog.Categories())
}

func (s *Server) handleOrganizations(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Catalog.Organizations())
}

func (s *Server) handleLocations(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Catalog.Locations())
}

func (s *Server) handleGraphRooms(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Catalog.GraphRooms())
}

func (s *Server) handleGraphSchedule(w http.ResponseWriter, r *http.Request) {
	var req model.GraphScheduleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}
	out, err := s.deps.Catalog.Schedule(r.Context(), req)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

type previewRequest struct {
	Options model.RecurrenceOptions `json:"options"`
	Start   time.Time               `json:"start"`
	Count   int                     `json:"count"`
}

type previewResponse struct {
	RRule       string      `json:"rrule"`
	Occurrences []time.Time `json:"occurrences"`
}

func (s *Server) handleRecurrencePreview(w http.ResponseWriter, r *http.Request) {
	var req previewRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return
	}
	if req.Start.IsZero() {
		writeError(w, http.StatusBadRequest, "start is required")
		return
	}
	n := req.Count
	if n <= 0 {
		n = defaultPreviewCount
	}
	if n > maxPreviewCount {
		n = maxPreviewCount
	}

	rule, err := ics.RRule(req.Options, req.Start)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	starts, err := ics.Preview(req.Options, req.Start, n)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, previewResponse{RRule: rule, Occurrences: starts})
}

// handleICS publishes the registry as an iCalendar feed. The rendered body
// is reused until the registry changes.
func (s *Server) handleICS(w http.ResponseWriter, _ *http.Request) {
	s.icsMu.RLock()
	cache, gen := s.icsCache, s.icsGen
	s.icsMu.RUnlock()

	if cache == nil {
		cache = &icsCache{body: s.renderICS(s.deps.Registry.List()), updatedAt: time.Now()}
		s.icsMu.Lock()
		if s.icsGen == gen {
			s.icsCache = cache
		}
		s.icsMu.Unlock()
	}

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Last-Modified", cache.updatedAt.UTC().Format(http.TimeFormat))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(cache.body))
}

func (s *Server) encodeICS(acts []model.Activity) string {
	return ics.Encode(acts, ics.Options{
		ProductID: s.cfg.ICS.ProductID,
		Name:      s.cfg.ICS.Name,
	})
}
