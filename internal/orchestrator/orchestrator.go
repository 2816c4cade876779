// Package orchestrator coordinates the first-party backend, the external
// group calendar and the registry. It is the only writer of the registry.
//
// Every operation returns its error to the caller and also logs it. A failed
// operation never modifies the registry. LoadAll is the exception to
// all-or-nothing: the local and external fetches commit independently.
package orchestrator

import (
	"context"
	"sync"
	"time"

	"actcal/internal/model"
	"actcal/internal/registry"
)

// Backend is the first-party activity store.
type Backend interface {
	ListActivities(ctx context.Context) ([]model.WireActivity, error)
	GetActivity(ctx context.Context, id string) (model.WireActivity, error)
	CreateActivity(ctx context.Context, a model.WireActivity) (*model.WireActivity, error)
	UpdateActivity(ctx context.Context, id string, a model.WireActivity) error
	DeleteActivity(ctx context.Context, id string) error
	ReserveNonDepartmentRoom(ctx context.Context, req model.NonDepartmentRoomReservationRequest) (string, error)
}

// Provider is the external calendar scoped to one group.
type Provider interface {
	IsSignedIn(ctx context.Context) bool
	CurrentUser(ctx context.Context) (model.GraphUser, error)
	ListEvents(ctx context.Context) ([]model.GraphEvent, error)
	GetEvent(ctx context.Context, id string) (model.GraphEvent, error)
	CreateEvent(ctx context.Context, ev model.GraphEvent) (model.GraphEvent, error)
	UpdateEvent(ctx context.Context, ev model.GraphEvent) error
	DeleteEvent(ctx context.Context, id string) error
}

// Categories resolves category roles. Implemented by catalog.Catalog.
type Categories interface {
	LoadCategories(ctx context.Context) ([]model.Category, error)
	CategoryByID(id string) (model.Category, bool)
	SyncedCategory() (model.Category, bool)
}

type Op string

const (
	OpLoadAll     Op = "load_all"
	OpLoadOne     Op = "load_one"
	OpCreate      Op = "create"
	OpUpdate      Op = "update"
	OpDelete      Op = "delete"
	OpReserveRoom Op = "reserve_room"
)

// Ops lists every tracked operation.
var Ops = []Op{OpLoadAll, OpLoadOne, OpCreate, OpUpdate, OpDelete, OpReserveRoom}

type State string

const (
	StateIdle      State = "idle"
	StateInFlight  State = "in_flight"
	StateSucceeded State = "succeeded"
	StateFailed    State = "failed"
)

// OpStatus is the last known state of one operation. Concurrent invocations
// of the same operation share a status; the last one to settle wins.
type OpStatus struct {
	State   State     `json:"state"`
	Error   string    `json:"error,omitempty"`
	Updated time.Time `json:"updated"`
}

type Orchestrator struct {
	reg        *registry.Registry
	categories Categories
	backend    Backend
	provider   Provider

	cachedLoadOne bool
	now           func() time.Time

	mu       sync.Mutex
	status   map[Op]OpStatus
	selected *model.Activity
}

type Option func(*Orchestrator)

// WithCachedLoadOne makes LoadOne return an already registered record
// without a network call.
func WithCachedLoadOne() Option {
	return func(o *Orchestrator) {
		o.cachedLoadOne = true
	}
}

// WithClock overrides the time source used for status timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		if now != nil {
			o.now = now
		}
	}
}

// New wires the orchestrator. provider may be nil when the external calendar
// is disabled; it is then treated as signed out.
func New(reg *registry.Registry, categories Categories, backend Backend, provider Provider, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		reg:        reg,
		categories: categories,
		backend:    backend,
		provider:   provider,
		now:        time.Now,
		status:     make(map[Op]OpStatus),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Status returns the state of op. Operations never run report idle.
func (o *Orchestrator) Status(op Op) OpStatus {
	o.mu.Lock()
	defer o.mu.Unlock()
	st, ok := o.status[op]
	if !ok {
		return OpStatus{State: StateIdle}
	}
	return st
}

// Statuses returns the state of every tracked operation.
func (o *Orchestrator) Statuses() map[Op]OpStatus {
	out := make(map[Op]OpStatus, len(Ops))
	for _, op := range Ops {
		out[op] = o.Status(op)
	}
	return out
}

// Selected returns the current record, if any.
func (o *Orchestrator) Selected() (model.Activity, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.selected == nil {
		return model.Activity{}, false
	}
	return *o.selected, true
}

func (o *Orchestrator) begin(op Op) {
	o.mu.Lock()
	o.status[op] = OpStatus{State: StateInFlight, Updated: o.now()}
	o.mu.Unlock()
}

func (o *Orchestrator) settle(op Op, err error) {
	st := OpStatus{State: StateSucceeded, Updated: o.now()}
	if err != nil {
		st.State = StateFailed
		st.Error = err.Error()
	}
	o.mu.Lock()
	o.status[op] = st
	o.mu.Unlock()
}

func (o *Orchestrator) selectActivity(a model.Activity) {
	o.mu.Lock()
	o.selected = &a
	o.mu.Unlock()
}

func (o *Orchestrator) clearSelection(id string) {
	o.mu.Lock()
	if o.selected != nil && o.selected.ID == id {
		o.selected = nil
	}
	o.mu.Unlock()
}

func (o *Orchestrator) signedIn(ctx context.Context) bool {
	return o.provider != nil && o.provider.IsSignedIn(ctx)
}
