// Package refresh runs a job on a cron schedule. It drives the periodic
// reload of the registry from both providers.
package refresh

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	appLog "actcal/internal/log"
)

// Job is one refresh pass.
type Job func(ctx context.Context) error

// cronLogger routes cron's own messages to the application log.
type cronLogger struct{}

func (cronLogger) Info(msg string, kv ...interface{}) {
	appLog.Debug("cron: "+msg, kv...)
}

func (cronLogger) Error(err error, msg string, kv ...interface{}) {
	appLog.Error("cron: "+msg, err, kv...)
}

type Scheduler struct {
	spec    string
	job     Job
	timeout time.Duration
	cron    *cron.Cron
	entry   cron.EntryID

	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	last    time.Time
	lastErr error
}

type Option func(*Scheduler)

// WithTimeout bounds a single run. Zero means no bound.
func WithTimeout(d time.Duration) Option {
	return func(s *Scheduler) {
		s.timeout = d
	}
}

// New validates spec (standard five-field cron or a descriptor such as
// "@every 15m") and prepares the schedule in loc.
func New(spec string, job Job, loc *time.Location, opts ...Option) (*Scheduler, error) {
	if job == nil {
		return nil, errors.New("refresh: job is nil")
	}
	if _, err := cron.ParseStandard(spec); err != nil {
		return nil, fmt.Errorf("refresh: invalid schedule %q: %w", spec, err)
	}
	if loc == nil {
		loc = time.UTC
	}

	s := &Scheduler{spec: spec, job: job}
	for _, opt := range opts {
		opt(s)
	}
	s.cron = cron.New(
		cron.WithLocation(loc),
		cron.WithLogger(cronLogger{}),
		cron.WithChain(cron.Recover(cronLogger{}), cron.SkipIfStillRunning(cronLogger{})),
	)

	id, err := s.cron.AddFunc(spec, s.tick)
	if err != nil {
		return nil, fmt.Errorf("refresh: %w", err)
	}
	s.entry = id
	return s, nil
}

// Start begins the schedule. Runs started by the schedule use a context
// derived from ctx and are cancelled by Stop.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	s.ctx, s.cancel = context.WithCancel(ctx)
	s.mu.Unlock()

	s.cron.Start()
	appLog.Info("refresh scheduled", "spec", s.spec, "next", s.Next().Format(time.RFC3339))
}

// Stop halts the schedule and waits for a running job to return.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	s.mu.Unlock()

	<-s.cron.Stop().Done()
}

// Next returns the next scheduled run, or the zero time before Start.
func (s *Scheduler) Next() time.Time {
	return s.cron.Entry(s.entry).Next
}

// Last returns when the most recent run finished and its error.
func (s *Scheduler) Last() (time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last, s.lastErr
}

// RunNow runs the job synchronously, outside the schedule.
func (s *Scheduler) RunNow(ctx context.Context) error {
	return s.run(ctx)
}

func (s *Scheduler) tick() {
	s.mu.Lock()
	ctx := s.ctx
	s.mu.Unlock()
	if ctx == nil {
		ctx = context.Background()
	}
	if err := s.run(ctx); err != nil {
		appLog.Error("scheduled refresh failed", err, "spec", s.spec)
	}
}

func (s *Scheduler) run(ctx context.Context) error {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	started := time.Now()
	err := s.job(ctx)
	appLog.Debug("refresh finished", "duration", time.Since(started).String(), "ok", err == nil)

	s.mu.Lock()
	s.last = time.Now()
	s.lastErr = err
	s.mu.Unlock()
	return err
}
