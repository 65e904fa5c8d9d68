package sentry

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ErrInvalidDSN is returned for DSNs that cannot be used to reach Sentry.
var ErrInvalidDSN = errors.New("sentry: invalid DSN")

// DSN is a parsed Sentry DSN: scheme://public_key@host[:port][/path]/project_id
type DSN struct {
	raw       string
	Scheme    string
	PublicKey string
	Host      string
	Path      string
	ProjectID string
}

// ParseDSN parses and validates a DSN.
func ParseDSN(raw string) (*DSN, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDSN, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%w: unsupported scheme %q", ErrInvalidDSN, u.Scheme)
	}
	if u.User == nil || u.User.Username() == "" {
		return nil, fmt.Errorf("%w: missing public key", ErrInvalidDSN)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("%w: missing host", ErrInvalidDSN)
	}

	path := strings.TrimRight(u.Path, "/")
	idx := strings.LastIndex(path, "/")
	if idx < 0 || path[idx+1:] == "" {
		return nil, fmt.Errorf("%w: missing project id", ErrInvalidDSN)
	}

	return &DSN{
		raw:       raw,
		Scheme:    u.Scheme,
		PublicKey: u.User.Username(),
		Host:      u.Host,
		Path:      path[:idx],
		ProjectID: path[idx+1:],
	}, nil
}

// EnvelopeURL is the ingestion endpoint for envelopes.
func (d *DSN) EnvelopeURL() string {
	return fmt.Sprintf("%s://%s%s/api/%s/envelope/", d.Scheme, d.Host, d.Path, d.ProjectID)
}

// String returns the DSN without modification.
func (d *DSN) String() string { return d.raw }
