package schedule

import (
	"context"
	"errors"

	"github.com/jobbsy/jobsletter/internal/jobsletter"
	"github.com/jobbsy/jobsletter/internal/pkg/logger"
	"github.com/jobbsy/jobsletter/internal/sentry"
)

const (
	// JobsLetterTaskName identifies the weekly letter task.
	JobsLetterTaskName = "jobsletter:send"
	// JobsLetterSpec fires on Mondays at 12:40.
	JobsLetterSpec = "40 12 * * 1"
)

// ErrRunFailed is the error of a run whose outcome was Failure.
var ErrRunFailed = errors.New("jobs letter run failed")

// Executor runs the letter workflow once.
type Executor interface {
	Execute(ctx context.Context, opts jobsletter.Options) jobsletter.Outcome
}

// JobsLetterTask builds the weekly task, monitored by check-ins under slug.
func JobsLetterTask(exec Executor, m sentry.Monitor, slug string) Task {
	before, ok, failed := CheckInHooks(m, slug)
	return Task{
		Name: JobsLetterTaskName,
		Spec: JobsLetterSpec,
		Run: func(ctx context.Context) error {
			if exec.Execute(ctx, jobsletter.Options{}) == jobsletter.Failure {
				return ErrRunFailed
			}
			return nil
		},
		Before:    []Hook{before},
		OnSuccess: []Hook{ok},
		OnFailure: []Hook{failed},
	}
}

// CheckInHooks returns the hooks reporting a run to a cron monitor: an
// in-progress check-in before, then ok or error. Check-in errors are
// logged and never affect the run.
func CheckInHooks(m sentry.Monitor, slug string) (before, onSuccess, onFailure Hook) {
	before = func(ctx context.Context, run *Run) {
		run.CheckIn = sentry.NewInProgressCheckIn(slug)
		checkIn(ctx, m, run.CheckIn)
	}
	onSuccess = func(ctx context.Context, run *Run) {
		checkIn(ctx, m, closing(run, slug, sentry.CheckInOK))
	}
	onFailure = func(ctx context.Context, run *Run) {
		checkIn(ctx, m, closing(run, slug, sentry.CheckInError))
	}
	return before, onSuccess, onFailure
}

func closing(run *Run, slug string, status sentry.CheckInStatus) sentry.CheckInRequest {
	if run.CheckIn.ID == "" {
		if status == sentry.CheckInOK {
			return sentry.NewOKCheckIn(slug)
		}
		return sentry.NewErrorCheckIn(slug)
	}
	return run.CheckIn.Closing(status, run.Duration())
}

func checkIn(ctx context.Context, m sentry.Monitor, r sentry.CheckInRequest) {
	if err := m.CheckIns(ctx, r); err != nil {
		logger.Warn("schedule: check-in failed", "monitor", r.MonitorSlug, "status", r.Status, "error", err)
	}
}
