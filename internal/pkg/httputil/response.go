package httputil

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/jobbsy/jobsletter/internal/pkg/logger"
)

// Request errors that are expected noise and not reported to monitoring.
var (
	ErrNotFound         = errors.New("not found")
	ErrBadRequest       = errors.New("bad request")
	ErrMethodNotAllowed = errors.New("method not allowed")
)

// IgnoredErrors lists the errors the monitoring integration filters out.
func IgnoredErrors() []error {
	return []error{ErrNotFound, ErrBadRequest, ErrMethodNotAllowed}
}

// StatusError ties an error to the status code it was answered with.
type StatusError struct {
	Status int
	Err    error
	Path   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s (status %d)", e.Err, e.Path, e.Status)
}

func (e *StatusError) Unwrap() error { return e.Err }

// ErrorResponse is the standard error envelope for all API errors.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		logger.Error("httputil: JSON encode error", "error", err)
	}
}

// OK writes a 200 response with the given data.
func OK(w http.ResponseWriter, data any) {
	JSON(w, http.StatusOK, data)
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, ErrorResponse{Error: message, Code: http.StatusText(status)})
}

// NotFound writes a 404 error.
func NotFound(w http.ResponseWriter, message string) {
	Error(w, http.StatusNotFound, message)
}

// MethodNotAllowed writes a 405 error.
func MethodNotAllowed(w http.ResponseWriter, message string) {
	Error(w, http.StatusMethodNotAllowed, message)
}

// InternalError writes a 500 error. The real error is logged, the client
// only sees a generic message.
func InternalError(w http.ResponseWriter, err error) {
	logger.Error("httputil: internal error", "error", err)
	Error(w, http.StatusInternalServerError, "internal server error")
}
