package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"claim-intake-service/internal/config"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	return line
}

func TestTemporalLogger_Fields(t *testing.T) {
	var buf bytes.Buffer
	l := NewTemporalLogger(NewWithWriter(config.LogConfig{Level: "debug", Format: "json"}, &buf))

	l.Info("step failed", "step", "notify human reviewer", "error", errors.New("boom"), "attempt", 2)

	line := decodeLine(t, &buf)
	assert.Equal(t, "info", line["level"])
	assert.Equal(t, "step failed", line["message"])
	assert.Equal(t, "notify human reviewer", line["step"])
	assert.Equal(t, "boom", line["error"])
	assert.Equal(t, float64(2), line["attempt"])
}

func TestTemporalLogger_With(t *testing.T) {
	var buf bytes.Buffer
	l := NewTemporalLogger(NewWithWriter(config.LogConfig{Level: "info", Format: "json"}, &buf))

	l.With("WorkflowID", "claim-1").Warn("dangling", "orphan")

	line := decodeLine(t, &buf)
	assert.Equal(t, "warn", line["level"])
	assert.Equal(t, "claim-1", line["WorkflowID"])
	assert.Contains(t, line, "orphan")
	assert.Nil(t, line["orphan"])
}

func TestNew_Level(t *testing.T) {
	var buf bytes.Buffer
	l := NewTemporalLogger(NewWithWriter(config.LogConfig{Level: "warn", Format: "json"}, &buf))

	l.Debug("hidden")
	l.Info("hidden")
	assert.Zero(t, buf.Len())

	l.Error("shown")
	assert.NotZero(t, buf.Len())
}

func TestNew_BadLevelDefaultsToInfo(t *testing.T) {
	var buf bytes.Buffer
	l := NewTemporalLogger(NewWithWriter(config.LogConfig{Level: "loud", Format: "json"}, &buf))

	l.Debug("hidden")
	assert.Zero(t, buf.Len())
	l.Info("shown")
	assert.NotZero(t, buf.Len())
}
