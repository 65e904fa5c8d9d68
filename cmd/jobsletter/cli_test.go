package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseArgs(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want command
	}{
		{
			name: "send to the list",
			args: []string{"send"},
			want: command{name: "send"},
		},
		{
			name: "test send",
			args: []string{"send", "--test=qa@jobbsy.dev"},
			want: command{name: "send", testMode: true, testRecipient: "qa@jobbsy.dev"},
		},
		{
			name: "space separated test recipient",
			args: []string{"send", "--test", "qa@jobbsy.dev"},
			want: command{name: "send", testMode: true, testRecipient: "qa@jobbsy.dev"},
		},
		{
			name: "bare test flag",
			args: []string{"send", "--test"},
			want: command{name: "send", testMode: true},
		},
		{
			name: "empty test flag",
			args: []string{"send", "--test="},
			want: command{name: "send", testMode: true},
		},
		{
			name: "global config",
			args: []string{"--config=/etc/jobsletter.yaml", "schedule", "--status-addr=:8080"},
			want: command{name: "schedule", configPath: "/etc/jobsletter.yaml", statusAddr: ":8080"},
		},
		{
			name: "run scheduled",
			args: []string{"run-scheduled"},
			want: command{name: "run-scheduled"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stderr bytes.Buffer
			cmd, err := parseArgs(tt.args, &stderr)
			require.NoError(t, err)
			assert.Equal(t, tt.want, *cmd)
		})
	}
}

func TestParseArgs_Errors(t *testing.T) {
	for name, args := range map[string][]string{
		"no command":      {},
		"unknown command": {"publish"},
		"stray argument":  {"send", "qa@jobbsy.dev"},
		"two recipients":  {"send", "--test", "qa@jobbsy.dev", "ops@jobbsy.dev"},
		"unknown flag":    {"run-scheduled", "--force"},
	} {
		t.Run(name, func(t *testing.T) {
			var stderr bytes.Buffer
			_, err := parseArgs(args, &stderr)
			assert.Error(t, err)
		})
	}
}

func TestRun_UsageExitCode(t *testing.T) {
	var stdout, stderr bytes.Buffer
	assert.Equal(t, 2, run([]string{"publish"}, &stdout, &stderr))
	assert.Contains(t, stderr.String(), "Usage: jobsletter")
}
