// Package schedule runs named tasks on cron expressions and fires hooks
// around each run.
package schedule

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sort"
	"sync"
	"time"

	"github.com/jobbsy/jobsletter/internal/pkg/distlock"
	"github.com/jobbsy/jobsletter/internal/pkg/logger"
	"github.com/jobbsy/jobsletter/internal/sentry"
	"github.com/robfig/cron/v3"
)

var (
	ErrUnknownTask   = errors.New("unknown task")
	ErrDuplicateTask = errors.New("task already registered")
	// ErrTaskPanicked wraps the value of a panic raised by a task.
	ErrTaskPanicked = errors.New("task panicked")
)

// Hook observes one phase of a run.
type Hook func(ctx context.Context, run *Run)

// Task is a unit of scheduled work.
type Task struct {
	Name string
	// Spec is a standard five-field cron expression.
	Spec string
	Run  func(ctx context.Context) error

	Before    []Hook
	OnSuccess []Hook
	OnFailure []Hook

	// Lock, when set, must be acquired for the run to happen. A run that
	// cannot take it is skipped and fires no hook.
	Lock distlock.DistLock
}

// Run is the record of one execution of a task.
type Run struct {
	Task       string
	StartedAt  time.Time
	FinishedAt time.Time
	Err        error
	Skipped    bool

	// CheckIn is the monitor check-in opened by the before hook, if any.
	CheckIn sentry.CheckInRequest
}

// Succeeded reports whether the run executed without error.
func (r *Run) Succeeded() bool { return !r.Skipped && r.Err == nil }

// Duration is the wall time of the run.
func (r *Run) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// TaskStatus is a point-in-time view of a registered task.
type TaskStatus struct {
	Name    string
	Spec    string
	NextRun time.Time
	LastRun *Run
}

type entry struct {
	task     Task
	schedule cron.Schedule
	last     *Run
}

// Scheduler wraps a cron daemon.
type Scheduler struct {
	cron    *cron.Cron
	loc     *time.Location
	now     func() time.Time
	monitor sentry.Monitor

	mu      sync.RWMutex
	entries map[string]*entry

	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a scheduler evaluating expressions in loc.
func New(loc *time.Location) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	l := cronLogger{}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithLogger(l),
			cron.WithChain(cron.Recover(l), cron.SkipIfStillRunning(l)),
		),
		loc:     loc,
		now:     time.Now,
		monitor: sentry.Nop{},
		entries: make(map[string]*entry),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// SetMonitor sets where task panics are reported.
func (s *Scheduler) SetMonitor(m sentry.Monitor) {
	if m == nil {
		m = sentry.Nop{}
	}
	s.monitor = m
}

// Add registers a task.
func (s *Scheduler) Add(t Task) error {
	if t.Name == "" || t.Run == nil {
		return fmt.Errorf("schedule: task needs a name and a run function")
	}
	sched, err := cron.ParseStandard(t.Spec)
	if err != nil {
		return fmt.Errorf("schedule: task %s: %w", t.Name, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[t.Name]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateTask, t.Name)
	}

	name := t.Name
	s.cron.Schedule(sched, cron.FuncJob(func() {
		if _, err := s.execute(s.ctx, name); err != nil {
			logger.Error("schedule: run error", "task", name, "error", err)
		}
	}))
	s.entries[name] = &entry{task: t, schedule: sched}
	logger.Info("schedule: task registered", "task", name, "spec", t.Spec, "location", s.loc.String())
	return nil
}

// Start runs the cron daemon in its own goroutine.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts the daemon and waits for running tasks until ctx is done, at
// which point running tasks are cancelled.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		s.cancel()
		return nil
	case <-ctx.Done():
		s.cancel()
		return ctx.Err()
	}
}

// RunNow executes the named task immediately with its hooks.
func (s *Scheduler) RunNow(ctx context.Context, name string) (*Run, error) {
	return s.execute(ctx, name)
}

// Status lists the registered tasks by name.
func (s *Scheduler) Status() []TaskStatus {
	now := s.now().In(s.loc)

	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]TaskStatus, 0, len(s.entries))
	for name, e := range s.entries {
		st := TaskStatus{Name: name, Spec: e.task.Spec, NextRun: e.schedule.Next(now)}
		if e.last != nil {
			last := *e.last
			st.LastRun = &last
		}
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (s *Scheduler) execute(ctx context.Context, name string) (*Run, error) {
	s.mu.RLock()
	e, ok := s.entries[name]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTask, name)
	}
	t := e.task
	run := &Run{Task: name}

	if t.Lock != nil {
		acquired, err := t.Lock.Acquire(ctx)
		if err != nil {
			run.Skipped = true
			return run, fmt.Errorf("schedule: acquire lock for %s: %w", name, err)
		}
		if !acquired {
			logger.Info("schedule: task already running elsewhere, skipping", "task", name)
			run.Skipped = true
			return run, nil
		}
		defer func() {
			if err := t.Lock.Release(context.WithoutCancel(ctx)); err != nil {
				logger.Warn("schedule: release lock", "task", name, "error", err)
			}
		}()
	}

	run.StartedAt = s.now()
	fire(ctx, t.Before, run)

	run.Err = s.call(ctx, t)
	run.FinishedAt = s.now()

	if run.Err != nil {
		logger.Warn("schedule: task failed", "task", name, "duration", run.Duration(), "error", run.Err)
		fire(ctx, t.OnFailure, run)
	} else {
		logger.Info("schedule: task succeeded", "task", name, "duration", run.Duration())
		fire(ctx, t.OnSuccess, run)
	}

	s.mu.Lock()
	last := *run
	e.last = &last
	s.mu.Unlock()
	return run, nil
}

// call runs the task. A panic fails the run instead of unwinding past the
// failure hooks; it is reported and not re-raised, so the daemon keeps its
// schedule.
func (s *Scheduler) call(ctx context.Context, t Task) (err error) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		err = fmt.Errorf("%w: %s: %v", ErrTaskPanicked, t.Name, r)
		logger.Error("schedule: task panicked", "task", t.Name, "panic", r, "stack", string(debug.Stack()))
		if captureErr := s.monitor.CaptureError(ctx, err); captureErr != nil {
			logger.Warn("schedule: could not report panic", "task", t.Name, "error", captureErr)
		}
	}()
	return t.Run(ctx)
}

func fire(ctx context.Context, hooks []Hook, run *Run) {
	for _, h := range hooks {
		h(ctx, run)
	}
}

// cronLogger routes cron's own messages to the application logger.
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	logger.Debug("cron: "+msg, keysAndValues...)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	logger.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
