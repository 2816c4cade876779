package web

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"actcal/internal/apperr"
	"actcal/internal/catalog"
	"actcal/internal/config"
	appLog "actcal/internal/log"
	"actcal/internal/model"
	"actcal/internal/orchestrator"
	"actcal/internal/registry"
)

// Refresher runs a full reload on demand. Implemented by refresh.Scheduler.
type Refresher interface {
	RunNow(ctx context.Context) error
	Next() time.Time
	Last() (time.Time, error)
}

// Deps are the services the API exposes. Refresher may be nil, in which
// case POST /api/refresh calls the orchestrator directly.
type Deps struct {
	Registry     *registry.Registry
	Orchestrator *orchestrator.Orchestrator
	Catalog      *catalog.Catalog
	Refresher    Refresher
}

// Server provides the HTTP API over the registry and the orchestrator.
type Server struct {
	cfg    *config.Config
	deps   Deps
	loc    *time.Location
	router chi.Router

	// Rendered /calendar.ics body; dropped whenever the registry changes.
	// icsGen counts those changes so a render that raced one is not kept.
	icsMu     sync.RWMutex
	icsCache  *icsCache
	icsGen    uint64
	renderICS func([]model.Activity) string

	unsubscribe func()
}

type icsCache struct {
	body      string
	updatedAt time.Time
}

// NewServer constructs a new Server.
func NewServer(cfg *config.Config, deps Deps) *Server {
	s := &Server{
		cfg:    cfg,
		deps:   deps,
		loc:    cfg.Location(),
		router: chi.NewRouter(),
	}
	s.renderICS = s.encodeICS
	s.unsubscribe = deps.Registry.Subscribe(func(registry.Change) {
		s.icsMu.Lock()
		s.icsGen++
		s.icsCache = nil
		s.icsMu.Unlock()
	})
	s.registerRoutes()
	return s
}

// Close detaches the server from registry notifications.
func (s *Server) Close() {
	if s.unsubscribe != nil {
		s.unsubscribe()
	}
}

// Handler returns the underlying http.Handler for this server.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.router)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Listen)
		return s.basicAuthMiddleware(h)
	}
	return h
}

func (s *Server) registerRoutes() {
	r := s.router
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(accessLog)

	r.Get("/health", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Route("/activities", func(r chi.Router) {
			r.Get("/", s.handleListActivities)
			r.Post("/", s.handleCreateActivity)
			r.Get("/grouped", s.handleGroupedActivities)
			r.Get("/occurrences", s.handleOccurrences)
			r.Post("/reserveNonDepartmentRoom", s.handleReserveRoom)
			r.Get("/{id}", s.handleGetActivity)
			r.Put("/{id}", s.handleUpdateActivity)
			r.Delete("/{id}", s.handleDeleteActivity)
		})
		r.Get("/events", s.handleEvents)
		r.Get("/selected", s.handleSelected)
		r.Post("/refresh", s.handleRefresh)
		r.Get("/status", s.handleStatus)
		r.Get("/me", s.handleMe)

		r.Get("/categories", s.handleCategories)
		r.Get("/organizations", s.handleOrganizations)
		r.Get("/locations", s.handleLocations)
		r.Get("/graphrooms", s.handleGraphRooms)
		r.Post("/graphschedule", s.handleGraphSchedule)

		r.Post("/recurrence/preview", s.handleRecurrencePreview)
	})

	if s.cfg.ICS.Enabled {
		r.Get("/calendar.ics", s.handleICS)
	}
}

// basicAuthEnabled reports whether HTTP Basic Auth is configured.
func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	// Empty username or password disables auth.
	if s.cfg.BasicAuth.Username == "" || s.cfg.BasicAuth.Password == "" {
		return false
	}
	return true
}

// basicAuthMiddleware wraps all handlers except /health with HTTP Basic Auth.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="actcal", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// accessLog writes one line per request.
func accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		appLog.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"bytes", ww.BytesWritten(),
			"duration", time.Since(start).String(),
			"request_id", chimiddleware.GetReqID(r.Context()),
		)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

type errorResponse struct {
	Error  string              `json:"error"`
	Kind   apperr.Kind         `json:"kind,omitempty"`
	Fields map[string][]string `json:"fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// writeAppError maps an error kind onto an HTTP status. Validation errors
// carry their field messages.
func writeAppError(w http.ResponseWriter, err error) {
	kind := apperr.KindOf(err)
	resp := errorResponse{Error: err.Error(), Kind: kind}

	var status int
	switch kind {
	case apperr.KindValidation, apperr.KindInvalidInput:
		status = http.StatusBadRequest
	case apperr.KindUnauthenticated:
		status = http.StatusUnauthorized
	case apperr.KindNotFound:
		status = http.StatusNotFound
	case apperr.KindProvider:
		status = http.StatusBadGateway
	default:
		status = http.StatusInternalServerError
	}

	var e *apperr.Error
	if errors.As(err, &e) && len(e.Fields) > 0 {
		resp.Fields = e.Fields
	}
	writeJSON(w, status, resp)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	return json.NewDecoder(r.Body).Decode(dst)
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
