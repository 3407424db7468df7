package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLoggerWithWriter_RedactsCredentials(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter(slog.LevelDebug, "text", &buf)

	logger.Debug("login", "session_token", "abc123secret", "api_key", "lsb_deadbeef", "callsign", "W1AW")

	out := buf.String()
	assert.NotContains(t, out, "abc123secret")
	assert.NotContains(t, out, "lsb_deadbeef")
	assert.Contains(t, out, "session_token="+Redacted)
	assert.Contains(t, out, "callsign=W1AW")
}

func TestNewLoggerWithWriter_RedactsHeadersInGroups(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter(slog.LevelInfo, "json", &buf)

	logger.Info("request", slog.Group("headers",
		"X-Session-Token", "tok-1",
		"X-Api-Key", "lsb_cafe",
		"Accept", "application/json",
	))

	var line struct {
		Headers map[string]string `json:"headers"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, map[string]string{
		"X-Session-Token": Redacted,
		"X-Api-Key":       Redacted,
		"Accept":          "application/json",
	}, line.Headers)
}

func TestNewLoggerWithWriter_EmptyCredentialNotRedacted(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter(slog.LevelDebug, "json", &buf)

	logger.Debug("anonymous call", "token", "")

	assert.NotContains(t, buf.String(), Redacted)
	assert.Contains(t, buf.String(), `"token":""`)
}

func TestDiscard(t *testing.T) {
	logger := Discard()
	require.NotNil(t, logger)
	assert.False(t, logger.Enabled(context.Background(), slog.LevelError))
	assert.NotPanics(t, func() { logger.With("component", "client").Error("dropped", "token", "x") })
}
