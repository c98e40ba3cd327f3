package logging

import (
	"bytes"
	"errors"
	"log"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func newBufferLogger(minLevel Level) (*Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	logger := New()
	logger.SetLevel(minLevel)
	logger.SetOutput(log.New(&buf, "", 0))
	return logger, &buf
}

func TestLoggerLevelFiltering(t *testing.T) {
	tests := []struct {
		name      string
		minLevel  Level
		log       func(*Logger)
		shouldLog bool
	}{
		{"debug allowed at debug", LevelDebug, func(l *Logger) { l.Debug("m") }, true},
		{"debug blocked at info", LevelInfo, func(l *Logger) { l.Debug("m") }, false},
		{"info allowed at info", LevelInfo, func(l *Logger) { l.Info("m") }, true},
		{"info blocked at warn", LevelWarn, func(l *Logger) { l.Info("m") }, false},
		{"warn allowed at warn", LevelWarn, func(l *Logger) { l.Warn("m") }, true},
		{"warn blocked at error", LevelError, func(l *Logger) { l.Warn("m") }, false},
		{"error always allowed", LevelError, func(l *Logger) { l.Error("m") }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, buf := newBufferLogger(tt.minLevel)
			tt.log(logger)

			if tt.shouldLog {
				assert.NotEmpty(t, buf.String(), "expected log output")
			} else {
				assert.Empty(t, buf.String(), "expected no log output")
			}
		})
	}
}

func TestLoggerLevelPrefixes(t *testing.T) {
	logger, buf := newBufferLogger(LevelDebug)

	logger.Debug("one")
	logger.Info("two")
	logger.Warn("three")
	logger.Error("four")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Equal(t, []string{"DEBUG: one", "INFO: two", "WARN: three", "ERROR: four"}, lines)
}

func TestLoggerWith(t *testing.T) {
	logger, buf := newBufferLogger(LevelDebug)

	runLogger := logger.With("run", "a1b2c3")
	runLogger.Info("run started")

	output := buf.String()
	assert.Contains(t, output, "INFO: run started")
	assert.Contains(t, output, "run=a1b2c3")
}

func TestLoggerWithFields(t *testing.T) {
	logger, buf := newBufferLogger(LevelDebug)

	childLogger := logger.WithFields(map[string]interface{}{
		"repo":   "octocat/hello",
		"branch": "main",
	})
	childLogger.Warn("generation skipped")

	output := buf.String()
	assert.Contains(t, output, "WARN: generation skipped")
	assert.Contains(t, output, "repo=octocat/hello")
	assert.Contains(t, output, "branch=main")
}

func TestLoggerFieldsSorted(t *testing.T) {
	logger, buf := newBufferLogger(LevelDebug)

	logger.Info("scored", "score", 7, "iteration", 2, "target", 8)

	assert.Equal(t, "INFO: scored | iteration=2 score=7 target=8\n", buf.String())
}

func TestLoggerInlineKeyVals(t *testing.T) {
	logger, buf := newBufferLogger(LevelDebug)

	logger.Warn("probe failed", "error", errors.New("timeout"), "attempt", 3)

	output := buf.String()
	assert.Contains(t, output, "WARN: probe failed")
	assert.Contains(t, output, `error="timeout"`)
	assert.Contains(t, output, "attempt=3")
}

func TestLoggerChainingPreservesFields(t *testing.T) {
	logger, buf := newBufferLogger(LevelDebug)

	runLogger := logger.With("run", "a1b2c3")
	stepLogger := runLogger.With("step", "evaluate")
	stepLogger.Info("starting")

	output := buf.String()
	assert.Contains(t, output, "run=a1b2c3")
	assert.Contains(t, output, "step=evaluate")
}

func TestLoggerOriginalUnmodified(t *testing.T) {
	logger, buf := newBufferLogger(LevelDebug)

	_ = logger.With("run", "a1b2c3")
	logger.Info("plain entry")

	assert.NotContains(t, buf.String(), "run=a1b2c3")
}

func TestFormatValue(t *testing.T) {
	tests := []struct {
		name     string
		input    interface{}
		expected string
	}{
		{"simple string", "main", "main"},
		{"string with spaces", "push trigger", `"push trigger"`},
		{"string with newline", "a\nb", `"a\nb"`},
		{"integer", 42, "42"},
		{"error", errors.New("boom"), `"boom"`},
		{"bool", true, "true"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, formatValue(tt.input))
		})
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected Level
	}{
		{"debug", LevelDebug},
		{"DEBUG", LevelDebug},
		{"info", LevelInfo},
		{"warn", LevelWarn},
		{"warning", LevelWarn},
		{"error", LevelError},
		{" Error ", LevelError},
		{"", LevelInfo},
		{"nonsense", LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, ParseLevel(tt.input))
		})
	}
}

func TestDefaultLogger(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(log.New(&buf, "", 0))
	SetLevel(LevelWarn)

	Debug("debug message")
	assert.Empty(t, buf.String())

	Warn("warn message")
	assert.Contains(t, buf.String(), "WARN: warn message")

	buf.Reset()

	childLogger := With("component", "guard")
	childLogger.Error("error message")
	assert.Contains(t, buf.String(), "component=guard")

	assert.Same(t, defaultLogger, Default())
}
