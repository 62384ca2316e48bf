package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	var m map[string]interface{}
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &m))
	return m
}

func TestParseLevel(t *testing.T) {
	tests := map[string]zerolog.Level{
		"DEBUG":    zerolog.DebugLevel,
		"info":     zerolog.InfoLevel,
		"WARNING":  zerolog.WarnLevel,
		"warn":     zerolog.WarnLevel,
		"ERROR":    zerolog.ErrorLevel,
		"CRITICAL": zerolog.FatalLevel,
		"":         zerolog.InfoLevel,
		"verbose":  zerolog.InfoLevel,
	}
	for in, want := range tests {
		assert.Equal(t, want, ParseLevel(in), in)
	}
}

func TestKeyValueFields(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, &Config{Level: "INFO", Component: "test"})

	l.Info("stage finished", "stage", "database", "error", errors.New("boom"))

	m := decodeLine(t, &buf)
	assert.Equal(t, "stage finished", m["message"])
	assert.Equal(t, "database", m["stage"])
	assert.Equal(t, "boom", m["error"])
	assert.Equal(t, "test", m["component"])
	assert.Equal(t, "info", m["level"])
}

func TestWithComponentReplacesBase(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, &Config{Level: "INFO", Component: "preflight"})

	l.WithComponent("database").WithField("operation", "ensure").Info("pool opened")

	line := buf.String()
	assert.Equal(t, 1, strings.Count(line, `"component"`), line)
	m := decodeLine(t, &buf)
	assert.Equal(t, "database", m["component"])
	assert.Equal(t, "ensure", m["operation"])
}

func TestPrintfStyle(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, &Config{Level: "INFO"})

	l.Warn("retrying in %d seconds", 3)

	m := decodeLine(t, &buf)
	assert.Equal(t, "retrying in 3 seconds", m["message"])
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, &Config{Level: "WARNING"})

	l.Info("hidden")
	l.Debug("hidden")
	assert.Zero(t, buf.Len())

	l.Error("shown")
	assert.NotZero(t, buf.Len())
}

func TestRunContext(t *testing.T) {
	var buf bytes.Buffer
	base := NewWithWriter(&buf, &Config{Level: "INFO"})

	ctx, l, runID := WithRunContext(context.Background(), base)
	require.NotEmpty(t, runID)
	assert.Equal(t, runID, RunIDFromContext(ctx))
	assert.Same(t, l, FromContext(ctx))

	StageContext(ctx, "imports").Info("ok")
	m := decodeLine(t, &buf)
	assert.Equal(t, runID, m["run_id"])
	assert.Equal(t, "imports", m["stage"])
	assert.Equal(t, "preflight", m["component"])
}

func TestNewTeesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "bot.log")
	l := New(&Config{Level: "INFO", Output: "stderr", FilePath: path, JSONFormat: true})
	l.Info("written")
	require.NoError(t, l.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"message":"written"`)
}
