package logging

import (
	"bytes"
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected LogLevel
	}{
		{"debug", LevelDebug},
		{"info", LevelInfo},
		{"warn", LevelWarn},
		{"error", LevelError},
		{"fatal", LevelFatal},
		{"bogus", LevelInfo},
		{"", LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParseLevel(tt.input))
		})
	}
}

func TestLogLevelString(t *testing.T) {
	assert.Equal(t, "DEBUG", LevelDebug.String())
	assert.Equal(t, "INFO", LevelInfo.String())
	assert.Equal(t, "WARN", LevelWarn.String())
	assert.Equal(t, "ERROR", LevelError.String())
	assert.Equal(t, "FATAL", LevelFatal.String())
	assert.Equal(t, "UNKNOWN", LogLevel(42).String())
}

func TestLoggerWritesStructuredOutput(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&LoggerConfig{
		Level:  LevelDebug,
		Format: "json",
		Output: &buf,
	})

	logger.Info(context.Background(), "post loaded", "slug", "hello-world")

	output := buf.String()
	assert.Contains(t, output, "post loaded")
	assert.Contains(t, output, "hello-world")
}

func TestLoggerDefaultsNilOutput(t *testing.T) {
	logger := NewLogger(&LoggerConfig{
		Level:  LevelInfo,
		Format: "text",
	})

	assert.NotPanics(t, func() {
		logger.Info(context.Background(), "starting up")
	})
}

func TestLoggerLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&LoggerConfig{
		Level:  LevelWarn,
		Format: "text",
		Output: &buf,
	})

	logger.Debug(context.Background(), "invisible")
	logger.Info(context.Background(), "also invisible")
	assert.Empty(t, buf.String())

	logger.Warn(context.Background(), fmt.Errorf("stale cache"), "visible")
	assert.Contains(t, buf.String(), "visible")
	assert.Contains(t, buf.String(), "stale cache")
}

func TestLoggerWithComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&LoggerConfig{
		Level:  LevelInfo,
		Format: "json",
		Output: &buf,
	})

	derived := logger.WithComponent("content")
	derived.Info(context.Background(), "scan complete")

	assert.Contains(t, buf.String(), `"component":"content"`)
}

func TestLoggerWithFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&LoggerConfig{
		Level:  LevelInfo,
		Format: "json",
		Output: &buf,
	})

	derived := logger.With("posts_dir", "content/posts")
	derived.Info(context.Background(), "watching")

	assert.Contains(t, buf.String(), "content/posts")
}
