package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mediagate/pkg/config"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()
	var out []map[string]interface{}
	dec := json.NewDecoder(buf)
	for dec.More() {
		var line map[string]interface{}
		require.NoError(t, dec.Decode(&line))
		out = append(out, line)
	}
	return out
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *config.LoggingConfig
		wantErr bool
	}{
		{"info level", &config.LoggingConfig{Level: "info"}, false},
		{"debug level", &config.LoggingConfig{Level: "debug"}, false},
		{"invalid level", &config.LoggingConfig{Level: "loud"}, true},
		{"file output", &config.LoggingConfig{Level: "info", File: filepath.Join(t.TempDir(), "logs", "mediagate.log")}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := New(tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, l)
		})
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		level    string
		expected zerolog.Level
		wantErr  bool
	}{
		{"debug", zerolog.DebugLevel, false},
		{"INFO", zerolog.InfoLevel, false},
		{"", zerolog.InfoLevel, false},
		{"warning", zerolog.WarnLevel, false},
		{"error", zerolog.ErrorLevel, false},
		{"disabled", zerolog.Disabled, false},
		{"verbose", zerolog.InfoLevel, true},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			got, err := parseLogLevel(tt.level)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestFieldsAndLevels(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, zerolog.InfoLevel)

	l.Debug("hidden")
	l.WithField("client", "1.2.3.4").Warn("Rate limit exceeded")
	l.WithError(errors.New("boom")).ErrorWithFields("Channel lookup failed", map[string]interface{}{
		"status": 502,
	})

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 2)

	assert.Equal(t, "warn", lines[0]["level"])
	assert.Equal(t, "1.2.3.4", lines[0]["client"])
	assert.Equal(t, "mediagate", lines[0]["app"])

	assert.Equal(t, "error", lines[1]["level"])
	assert.Equal(t, "boom", lines[1]["error"])
	assert.EqualValues(t, 502, lines[1]["status"])
}

func TestWithFieldDoesNotMutateParent(t *testing.T) {
	var buf bytes.Buffer
	parent := NewWithWriter(&buf, zerolog.InfoLevel)

	parent.WithField("component", "server").Info("child")
	parent.Info("parent")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 2)
	assert.Equal(t, "server", lines[0]["component"])
	assert.NotContains(t, lines[1], "component")
}

func TestWithContextAddsRequestID(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithWriter(&buf, zerolog.InfoLevel)

	ctx := ContextWithRequestID(context.Background(), "req-42")
	l.WithContext(ctx).Info("handled")
	l.WithContext(context.Background()).Info("no id")

	lines := decodeLines(t, &buf)
	require.Len(t, lines, 2)
	assert.Equal(t, "req-42", lines[0]["request_id"])
	assert.NotContains(t, lines[1], "request_id")
}

func TestLogRequestLevels(t *testing.T) {
	tl := NewTestLogger()

	LogRequest(tl, "GET", "/", 200, time.Millisecond)
	LogRequest(tl, "POST", "/fetch_channel_data", 429, time.Millisecond)
	LogRequest(tl, "POST", "/fetch_channel_data", 502, time.Millisecond)

	msgs := tl.GetMessages()
	require.Len(t, msgs, 3)
	assert.Equal(t, "INFO", msgs[0].Level)
	assert.Equal(t, "WARN", msgs[1].Level)
	assert.Equal(t, "ERROR", msgs[2].Level)
	assert.Equal(t, "/fetch_channel_data", msgs[2].Fields["path"])
}

func TestLogDownload(t *testing.T) {
	tl := NewTestLogger()

	LogDownload(tl, "abc", "https://www.instagram.com/reel/X/", "reel", nil)
	LogDownload(tl, "def", "https://www.instagram.com/p/Y/", "post", errors.New("exit status 1"))

	assert.True(t, tl.HasMessage("Download completed"))
	errs := tl.GetMessagesByLevel("ERROR")
	require.Len(t, errs, 1)
	assert.EqualError(t, errs[0].Error, "exit status 1")
	assert.Equal(t, "def", errs[0].Fields["download_id"])
}

func TestTestLoggerSharesSink(t *testing.T) {
	tl := NewTestLogger()
	child := tl.WithField("component", "pool")
	child.Info("started")

	assert.True(t, tl.HasMessage("started"))
	assert.False(t, tl.HasError())

	tl.Clear()
	assert.Empty(t, tl.GetMessages())
}

func TestGlobalLogger(t *testing.T) {
	prev := globalLogger
	defer func() { globalLogger = prev }()

	tl := NewTestLogger()
	SetLogger(tl)
	WithField("k", "v").Info("global")

	msgs := tl.GetMessages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "v", msgs[0].Fields["k"])
}

func TestNopLogger(t *testing.T) {
	l := NewNopLogger()
	l.WithField("a", 1).WithError(errors.New("x")).Info("ignored")
	assert.NotNil(t, l.GetZerolog())
}
