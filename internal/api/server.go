// Package api serves the status endpoints of the scheduler daemon.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/jobbsy/jobsletter/internal/schedule"
	"github.com/jobbsy/jobsletter/internal/sentry"
)

// TaskStatuser exposes the registered scheduled tasks.
type TaskStatuser interface {
	Status() []schedule.TaskStatus
}

// LetterFetcher reads archived letters.
type LetterFetcher interface {
	Fetch(ctx context.Context, name string) (string, error)
}

// Server is the status HTTP server.
type Server struct {
	tasks     TaskStatuser
	letters   LetterFetcher
	monitor   sentry.Monitor
	startTime time.Time
	handler   http.Handler
	server    *http.Server
}

// NewServer builds the server. letters may be nil when no archive is
// configured; monitor may be nil.
func NewServer(tasks TaskStatuser, letters LetterFetcher, monitor sentry.Monitor) *Server {
	if monitor == nil {
		monitor = sentry.Nop{}
	}
	s := &Server{
		tasks:     tasks,
		letters:   letters,
		monitor:   monitor,
		startTime: time.Now(),
	}
	s.handler = s.routes()
	return s
}

// ListenAndServe starts the HTTP server
func (s *Server) ListenAndServe(addr string) error {
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.handler,
		ReadTimeout:       10 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Handler returns the HTTP handler for testing
func (s *Server) Handler() http.Handler {
	return s.handler
}
