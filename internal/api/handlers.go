package api

import (
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jobbsy/jobsletter/internal/pkg/httputil"
	"github.com/jobbsy/jobsletter/internal/pkg/logger"
	"github.com/jobbsy/jobsletter/internal/schedule"
	"github.com/jobbsy/jobsletter/internal/storage"
)

var letterName = regexp.MustCompile(`^\d{4}-W\d{2}\.html$`)

// TaskView is the JSON shape of a scheduled task.
type TaskView struct {
	Name    string   `json:"name"`
	Spec    string   `json:"spec"`
	NextRun string   `json:"next_run"`
	LastRun *RunView `json:"last_run,omitempty"`
}

// RunView is the JSON shape of a finished run.
type RunView struct {
	StartedAt  string `json:"started_at,omitempty"`
	FinishedAt string `json:"finished_at,omitempty"`
	Duration   string `json:"duration,omitempty"`
	Outcome    string `json:"outcome"`
	Error      string `json:"error,omitempty"`
}

// GET /healthz
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	httputil.OK(w, map[string]interface{}{
		"status": "ok",
		"uptime": time.Since(s.startTime).Round(time.Second).String(),
	})
}

// GET /status
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	statuses := s.tasks.Status()
	views := make([]TaskView, 0, len(statuses))
	for _, st := range statuses {
		views = append(views, taskView(st))
	}
	httputil.OK(w, map[string]interface{}{"tasks": views})
}

// GET /letters/{name}
func (s *Server) handleLetter(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if !letterName.MatchString(name) {
		s.reject(w, r, http.StatusBadRequest, httputil.ErrBadRequest)
		return
	}
	if s.letters == nil {
		s.reject(w, r, http.StatusNotFound, httputil.ErrNotFound)
		return
	}

	html, err := s.letters.Fetch(r.Context(), name)
	if errors.Is(err, storage.ErrNotArchived) {
		s.reject(w, r, http.StatusNotFound, httputil.ErrNotFound)
		return
	}
	if err != nil {
		s.capture(r, err)
		httputil.InternalError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(html))
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	s.reject(w, r, http.StatusNotFound, httputil.ErrNotFound)
}

func (s *Server) handleMethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	s.reject(w, r, http.StatusMethodNotAllowed, httputil.ErrMethodNotAllowed)
}

// reject answers with status and hands the error to the monitor, which
// filters out the expected request errors.
func (s *Server) reject(w http.ResponseWriter, r *http.Request, status int, err error) {
	s.capture(r, &httputil.StatusError{Status: status, Err: err, Path: r.URL.Path})
	switch status {
	case http.StatusNotFound:
		httputil.NotFound(w, err.Error())
	case http.StatusMethodNotAllowed:
		httputil.MethodNotAllowed(w, err.Error())
	default:
		httputil.Error(w, status, err.Error())
	}
}

func (s *Server) capture(r *http.Request, err error) {
	if captureErr := s.monitor.CaptureError(r.Context(), err); captureErr != nil {
		logger.Warn("api: could not report error", "error", captureErr)
	}
}

func taskView(st schedule.TaskStatus) TaskView {
	v := TaskView{Name: st.Name, Spec: st.Spec}
	if !st.NextRun.IsZero() {
		v.NextRun = st.NextRun.Format(time.RFC3339)
	}
	if run := st.LastRun; run != nil {
		rv := &RunView{Outcome: outcome(run)}
		if !run.StartedAt.IsZero() {
			rv.StartedAt = run.StartedAt.Format(time.RFC3339)
			rv.FinishedAt = run.FinishedAt.Format(time.RFC3339)
			rv.Duration = run.Duration().String()
		}
		if run.Err != nil {
			rv.Error = fmt.Sprint(run.Err)
		}
		v.LastRun = rv
	}
	return v
}

func outcome(run *schedule.Run) string {
	switch {
	case run.Skipped:
		return "skipped"
	case run.Succeeded():
		return "success"
	default:
		return "failure"
	}
}
