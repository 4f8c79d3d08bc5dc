package logger

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want Level
	}{
		{"debug", LevelDebug},
		{"INFO", LevelInfo},
		{"warning", LevelWarn},
		{"error", LevelError},
		{"fatal", LevelFatal},
		{"", LevelInfo},
		{"verbose", LevelInfo},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, ParseLevel(tt.in))
		})
	}
}

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &m))
	return m
}

func TestLoggerFields(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: LevelDebug, Output: &buf, Service: "triage-test"})

	ctx := context.WithValue(context.Background(), RequestIDKey, "req-1")
	l.WithContext(ctx).
		WithFields(map[string]any{"mode": "advanced"}).
		WithError(errors.New("boom")).
		Warn("classified %d emails", 3)

	m := decodeLine(t, &buf)
	assert.Equal(t, "warn", m["level"])
	assert.Equal(t, "classified 3 emails", m["message"])
	assert.Equal(t, "triage-test", m["service"])
	assert.Equal(t, "req-1", m["request_id"])
	assert.Equal(t, "advanced", m["mode"])
	assert.Equal(t, "boom", m["error"])
}

func TestLoggerLevelFilter(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: LevelWarn, Output: &buf})

	l.Info("dropped")
	assert.Zero(t, buf.Len())

	l.Error("kept")
	assert.Equal(t, "kept", decodeLine(t, &buf)["message"])
}

func TestWithContextWithoutRequestID(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Output: &buf})

	l.WithContext(context.Background()).Info("plain")
	_, ok := decodeLine(t, &buf)["request_id"]
	assert.False(t, ok)
}
