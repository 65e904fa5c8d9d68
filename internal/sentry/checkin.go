package sentry

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// CheckInStatus is the state reported for a cron monitor.
type CheckInStatus string

const (
	CheckInInProgress CheckInStatus = "in_progress"
	CheckInOK         CheckInStatus = "ok"
	CheckInError      CheckInStatus = "error"
)

// CheckInRequest reports one lifecycle phase of a monitored task. The
// terminal check-in of a run reuses the ID of its in-progress check-in.
type CheckInRequest struct {
	ID          string
	MonitorSlug string
	Status      CheckInStatus
	Duration    time.Duration
}

func newCheckIn(slug string, status CheckInStatus) CheckInRequest {
	return CheckInRequest{
		ID:          newID(),
		MonitorSlug: slug,
		Status:      status,
	}
}

// NewInProgressCheckIn marks the start of a run.
func NewInProgressCheckIn(slug string) CheckInRequest {
	return newCheckIn(slug, CheckInInProgress)
}

// NewOKCheckIn marks a successful run.
func NewOKCheckIn(slug string) CheckInRequest {
	return newCheckIn(slug, CheckInOK)
}

// NewErrorCheckIn marks a failed run.
func NewErrorCheckIn(slug string) CheckInRequest {
	return newCheckIn(slug, CheckInError)
}

// Closing returns the terminal check-in of the run started by r.
func (r CheckInRequest) Closing(status CheckInStatus, d time.Duration) CheckInRequest {
	return CheckInRequest{
		ID:          r.ID,
		MonitorSlug: r.MonitorSlug,
		Status:      status,
		Duration:    d,
	}
}

// Sentry ids are uuids without dashes.
func newID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
