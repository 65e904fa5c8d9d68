package sentry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDSN(t *testing.T) {
	d, err := ParseDSN("https://abc123@o450.ingest.sentry.io/5566")
	require.NoError(t, err)
	assert.Equal(t, "abc123", d.PublicKey)
	assert.Equal(t, "o450.ingest.sentry.io", d.Host)
	assert.Equal(t, "5566", d.ProjectID)
	assert.Equal(t, "https://o450.ingest.sentry.io/api/5566/envelope/", d.EnvelopeURL())
}

func TestParseDSN_WithPathAndPort(t *testing.T) {
	d, err := ParseDSN("http://key@sentry.internal:9000/relay/7/")
	require.NoError(t, err)
	assert.Equal(t, "http://sentry.internal:9000/relay/api/7/envelope/", d.EnvelopeURL())
}

func TestParseDSN_Invalid(t *testing.T) {
	for _, raw := range []string{
		"",
		"ftp://key@host/1",
		"https://host/1",
		"https://key@/1",
		"https://key@host",
		"https://key@host/",
	} {
		_, err := ParseDSN(raw)
		assert.ErrorIs(t, err, ErrInvalidDSN, raw)
	}
}
