package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry))
	return entry
}

func TestLogger_WritesStructuredJSON(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, INFO)

	l.Info("draft created", "draft_id", 42, "week", "24")

	entry := decodeLine(t, &buf)
	assert.Equal(t, "INFO", entry["level"])
	assert.Equal(t, "draft created", entry["msg"])
	assert.Equal(t, "42", entry["draft_id"])
	assert.Equal(t, "24", entry["week"])
	assert.NotEmpty(t, entry["time"])
}

func TestLogger_FiltersBelowLevel(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, WARN)

	l.Info("ignored")
	l.Debug("ignored too")
	assert.Zero(t, buf.Len())

	l.Error("kept")
	assert.Equal(t, "ERROR", decodeLine(t, &buf)["level"])
}

func TestLogger_RedactsEmails(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, DEBUG)

	l.Info("test send", "recipient", "john.doe@example.com", "note", "ping ab@jobbsy.dev")

	entry := decodeLine(t, &buf)
	assert.Equal(t, "jo***@example.com", entry["recipient"])
	assert.Equal(t, "ping ***@jobbsy.dev", entry["note"])
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, DEBUG, ParseLevel("debug"))
	assert.Equal(t, WARN, ParseLevel(" WARNING "))
	assert.Equal(t, ERROR, ParseLevel("error"))
	assert.Equal(t, INFO, ParseLevel(""))
	assert.Equal(t, INFO, ParseLevel("verbose"))
}

func TestRedactEmail(t *testing.T) {
	assert.Equal(t, "jo***@example.com", RedactEmail("john.doe@example.com"))
	assert.Equal(t, "***@example.com", RedactEmail("ab@example.com"))
	assert.Equal(t, "***@***", RedactEmail("not-an-email"))
	assert.Equal(t, "***@***", RedactEmail("@jobbsy.dev"))
	assert.Equal(t, "***@***", RedactEmail("a@b@jobbsy.dev"))
	assert.Equal(t, "Zo***@jobbsy.dev", RedactEmail("Zoë@jobbsy.dev"))
}
