// Package sentry reports cron check-ins and errors to Sentry over the
// envelope endpoint.
package sentry

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/jobbsy/jobsletter/internal/pkg/httpretry"
	"github.com/jobbsy/jobsletter/internal/pkg/logger"
)

const clientName = "jobsletter/1.0"

// Monitor receives task heartbeats and unexpected errors.
type Monitor interface {
	CheckIns(ctx context.Context, r CheckInRequest) error
	CaptureError(ctx context.Context, err error) error
}

// Options configures a Client.
type Options struct {
	DSN          string
	Environment  string
	Release      string
	Timeout      time.Duration
	IgnoreErrors []error
}

// Client implements Monitor against a Sentry project.
type Client struct {
	dsn         *DSN
	environment string
	release     string
	ignore      []error
	httpClient  httpretry.HTTPDoer
	now         func() time.Time
}

// NewClient validates the DSN and builds a client. Envelopes are safe to
// resend, so transport errors are retried.
func NewClient(opts Options) (*Client, error) {
	dsn, err := ParseDSN(opts.DSN)
	if err != nil {
		return nil, err
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		dsn:         dsn,
		environment: opts.Environment,
		release:     opts.Release,
		ignore:      opts.IgnoreErrors,
		httpClient:  httpretry.NewRetryClient(&http.Client{Timeout: timeout}, 2),
		now:         time.Now,
	}, nil
}

// SetHTTPClient sets a custom HTTP client (useful for testing)
func (c *Client) SetHTTPClient(client httpretry.HTTPDoer) {
	c.httpClient = client
}

type envelopeHeader struct {
	EventID string `json:"event_id,omitempty"`
	SentAt  string `json:"sent_at"`
	DSN     string `json:"dsn"`
}

type itemHeader struct {
	Type string `json:"type"`
}

type checkInPayload struct {
	CheckInID   string   `json:"check_in_id"`
	MonitorSlug string   `json:"monitor_slug"`
	Status      string   `json:"status"`
	Duration    *float64 `json:"duration,omitempty"`
	Environment string   `json:"environment,omitempty"`
	Release     string   `json:"release,omitempty"`
}

type exceptionValue struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type eventPayload struct {
	EventID     string `json:"event_id"`
	Timestamp   string `json:"timestamp"`
	Level       string `json:"level"`
	Platform    string `json:"platform"`
	Logger      string `json:"logger"`
	Environment string `json:"environment,omitempty"`
	Release     string `json:"release,omitempty"`
	Exception   struct {
		Values []exceptionValue `json:"values"`
	} `json:"exception"`
}

// CheckIns reports a cron monitor check-in.
func (c *Client) CheckIns(ctx context.Context, r CheckInRequest) error {
	p := checkInPayload{
		CheckInID:   r.ID,
		MonitorSlug: r.MonitorSlug,
		Status:      string(r.Status),
		Environment: c.environment,
		Release:     c.release,
	}
	if r.Status != CheckInInProgress && r.Duration > 0 {
		secs := r.Duration.Seconds()
		p.Duration = &secs
	}
	if err := c.send(ctx, "", "check_in", p); err != nil {
		return fmt.Errorf("check-in %s/%s: %w", r.MonitorSlug, r.Status, err)
	}
	logger.Debug("sentry: check-in sent", "monitor", r.MonitorSlug, "status", r.Status, "check_in_id", r.ID)
	return nil
}

// CaptureError reports err as an event unless it matches an ignored error.
func (c *Client) CaptureError(ctx context.Context, err error) error {
	if err == nil || c.Ignored(err) {
		return nil
	}

	ev := eventPayload{
		EventID:     newID(),
		Timestamp:   c.now().UTC().Format(time.RFC3339),
		Level:       "error",
		Platform:    "go",
		Logger:      "jobsletter",
		Environment: c.environment,
		Release:     c.release,
	}
	ev.Exception.Values = exceptionChain(err)

	if sendErr := c.send(ctx, ev.EventID, "event", ev); sendErr != nil {
		return fmt.Errorf("capture error: %w", sendErr)
	}
	return nil
}

// Ignored reports whether err is filtered out.
func (c *Client) Ignored(err error) bool {
	for _, target := range c.ignore {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// exceptionChain lists the wrapped errors innermost first, the order
// Sentry expects.
func exceptionChain(err error) []exceptionValue {
	var chain []exceptionValue
	for e := err; e != nil; e = errors.Unwrap(e) {
		chain = append([]exceptionValue{{Type: fmt.Sprintf("%T", e), Value: e.Error()}}, chain...)
	}
	return chain
}

func (c *Client) send(ctx context.Context, eventID, itemType string, payload interface{}) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, part := range []interface{}{
		envelopeHeader{EventID: eventID, SentAt: c.now().UTC().Format(time.RFC3339), DSN: c.dsn.String()},
		itemHeader{Type: itemType},
		payload,
	} {
		if err := enc.Encode(part); err != nil {
			return fmt.Errorf("encode envelope: %w", err)
		}
	}

	body := buf.Bytes()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.dsn.EnvelopeURL(), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-sentry-envelope")
	req.Header.Set("X-Sentry-Auth", fmt.Sprintf(
		"Sentry sentry_version=7, sentry_client=%s, sentry_key=%s", clientName, c.dsn.PublicKey))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("sentry returned status %d: %s", resp.StatusCode, bytes.TrimSpace(msg))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// Nop is the Monitor used outside production.
type Nop struct{}

func (Nop) CheckIns(context.Context, CheckInRequest) error { return nil }
func (Nop) CaptureError(context.Context, error) error      { return nil }

// Recover reports a panic to m and re-panics. Use it deferred at the top
// of main.
func Recover(ctx context.Context, m Monitor) {
	r := recover()
	if r == nil {
		return
	}
	err, ok := r.(error)
	if !ok {
		err = fmt.Errorf("panic: %v", r)
	}
	if captureErr := m.CaptureError(ctx, err); captureErr != nil {
		logger.Error("sentry: failed to report panic", "error", captureErr)
	}
	panic(r)
}
