// Package registry holds the in-memory set of activities for the session,
// keyed by id, and derives the sorted, grouped and calendar views from it.
//
// Activities from the first-party backend and from the external calendar
// share one keyspace. Writing an id that already exists replaces the entry.
package registry

import (
	"errors"
	"sort"
	"sync"
	"time"

	"actcal/internal/convert"
	"actcal/internal/model"
)

// DayLabelLayout formats the key of a grouped-by-day entry.
const DayLabelLayout = "02 Jan 2006"

// ErrEmptyID is returned by Upsert for an activity without an id.
var ErrEmptyID = errors.New("registry: activity id is empty")

// CategoryResolver finds a category by its display name.
type CategoryResolver interface {
	CategoryByName(name string) (model.Category, bool)
}

// ChangeKind names the mutation a Change reports.
type ChangeKind string

const (
	ChangeUpserted ChangeKind = "upserted"
	ChangeRemoved  ChangeKind = "removed"
	ChangeReset    ChangeKind = "reset"
)

// Change is delivered to subscribers after every mutation.
type Change struct {
	Kind ChangeKind
	ID   string
}

type entry struct {
	activity model.Activity
	seq      uint64
}

// Registry is safe for concurrent use.
type Registry struct {
	categories CategoryResolver
	loc        *time.Location

	mu      sync.RWMutex
	entries map[string]entry
	nextSeq uint64

	subMu     sync.Mutex
	subs      map[int]func(Change)
	nextSubID int
}

// Option configures a Registry.
type Option func(*Registry)

// WithLocation sets the zone used for day labels of timed activities.
// All-day activities are always dated by their UTC calendar day.
func WithLocation(loc *time.Location) Option {
	return func(r *Registry) {
		if loc != nil {
			r.loc = loc
		}
	}
}

func New(categories CategoryResolver, opts ...Option) *Registry {
	r := &Registry{
		categories: categories,
		loc:        time.UTC,
		entries:    make(map[string]entry),
		subs:       make(map[int]func(Change)),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Upsert inserts a or replaces the entry with the same id. A replaced entry
// keeps its original insertion position for tie-breaking in List.
func (r *Registry) Upsert(a model.Activity) error {
	if a.ID == "" {
		return ErrEmptyID
	}

	r.mu.Lock()
	seq := r.nextSeq
	if prev, ok := r.entries[a.ID]; ok {
		seq = prev.seq
	} else {
		r.nextSeq++
	}
	r.entries[a.ID] = entry{activity: a, seq: seq}
	r.mu.Unlock()

	r.publish(Change{Kind: ChangeUpserted, ID: a.ID})
	return nil
}

// Remove deletes id if present.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	_, ok := r.entries[id]
	delete(r.entries, id)
	r.mu.Unlock()

	if ok {
		r.publish(Change{Kind: ChangeRemoved, ID: id})
	}
}

// Reset drops every entry. Used before a reload that must forget records
// deleted at their source.
func (r *Registry) Reset() {
	r.mu.Lock()
	r.entries = make(map[string]entry)
	r.nextSeq = 0
	r.mu.Unlock()

	r.publish(Change{Kind: ChangeReset})
}

func (r *Registry) Get(id string) (model.Activity, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[id]
	return e.activity, ok
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// List returns all activities ordered by start; equal starts keep
// insertion order.
func (r *Registry) List() []model.Activity {
	r.mu.RLock()
	sorted := make([]entry, 0, len(r.entries))
	for _, e := range r.entries {
		sorted = append(sorted, e)
	}
	r.mu.RUnlock()

	sort.Slice(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if !a.activity.Start.Equal(b.activity.Start) {
			return a.activity.Start.Before(b.activity.Start)
		}
		return a.seq < b.seq
	})

	out := make([]model.Activity, len(sorted))
	for i, e := range sorted {
		out[i] = e.activity
	}
	return out
}

// GroupedByDay buckets List by the start date label. Groups appear in the
// order their first activity appears in List.
func (r *Registry) GroupedByDay() []model.DayGroup {
	groups := make([]model.DayGroup, 0)
	index := make(map[string]int)

	for _, a := range r.List() {
		label := r.dayOf(a).Format(DayLabelLayout)
		i, ok := index[label]
		if !ok {
			i = len(groups)
			index[label] = i
			groups = append(groups, model.DayGroup{Date: label})
		}
		groups[i].Activities = append(groups[i].Activities, a)
	}
	return groups
}

// CalendarEvents projects every activity for a calendar widget. All-day
// activities become date-only values with an exclusive end date.
func (r *Registry) CalendarEvents() []model.CalendarEvent {
	list := r.List()
	out := make([]model.CalendarEvent, 0, len(list))
	for _, a := range list {
		out = append(out, r.project(a))
	}
	return out
}

// FilterByCategoryName returns the calendar events whose category is the
// one named name. An unknown name yields an empty slice.
func (r *Registry) FilterByCategoryName(name string) []model.CalendarEvent {
	out := make([]model.CalendarEvent, 0)
	if r.categories == nil {
		return out
	}
	c, ok := r.categories.CategoryByName(name)
	if !ok {
		return out
	}
	for _, ev := range r.CalendarEvents() {
		if ev.CategoryID == c.ID {
			out = append(out, ev)
		}
	}
	return out
}

func (r *Registry) project(a model.Activity) model.CalendarEvent {
	ev := model.CalendarEvent{
		ID:         a.ID,
		Title:      a.Title,
		AllDay:     a.AllDayEvent,
		CategoryID: a.CategoryID,
	}
	if !a.AllDayEvent {
		ev.Start = model.EventTime{Time: a.Start}
		ev.End = model.EventTime{Time: a.End}
		return ev
	}

	ev.Start = model.EventTime{Time: convert.StartOfDay(a.Start), DateOnly: true}
	ev.End = model.EventTime{Time: convert.AddDays(convert.StartOfDay(a.End), 1), DateOnly: true}
	return ev
}

// dayOf is the instant whose date labels a's group.
func (r *Registry) dayOf(a model.Activity) time.Time {
	if a.AllDayEvent {
		return a.Start.UTC()
	}
	return a.Start.In(r.loc)
}

// Subscribe registers fn for change notifications and returns a function
// that removes it. fn runs on the goroutine that made the change, after
// the registry lock is released.
func (r *Registry) Subscribe(fn func(Change)) (cancel func()) {
	r.subMu.Lock()
	id := r.nextSubID
	r.nextSubID++
	r.subs[id] = fn
	r.subMu.Unlock()

	return func() {
		r.subMu.Lock()
		delete(r.subs, id)
		r.subMu.Unlock()
	}
}

func (r *Registry) publish(c Change) {
	r.subMu.Lock()
	fns := make([]func(Change), 0, len(r.subs))
	for _, fn := range r.subs {
		fns = append(fns, fn)
	}
	r.subMu.Unlock()

	for _, fn := range fns {
		fn(c)
	}
}
