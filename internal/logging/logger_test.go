package logging

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name   string
		config *Config
	}{
		{name: "default config", config: nil},
		{
			name:   "json format",
			config: &Config{Level: LevelInfo, Format: "json", Output: &bytes.Buffer{}},
		},
		{
			name:   "text format",
			config: &Config{Level: LevelDebug, Format: "text", Output: &bytes.Buffer{}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := NewLogger(tt.config)
			if logger == nil {
				t.Fatal("NewLogger() returned nil")
			}
		})
	}
}

func TestLoggerWithContext(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&Config{Level: LevelDebug, Format: "text", Output: &buf})

	clientLogger := logger.WithClient(42)
	clientLogger.Info("test message")

	if out := buf.String(); !strings.Contains(out, "client_id=42") {
		t.Errorf("expected client_id=42 in output, got: %s", out)
	}

	buf.Reset()
	opLogger := clientLogger.WithOp(stringerFunc("READ_ATTR"))
	opLogger.Info("frame message")

	out := buf.String()
	if !strings.Contains(out, "client_id=42") {
		t.Errorf("expected client_id=42 in op logger output, got: %s", out)
	}
	if !strings.Contains(out, "op=READ_ATTR") {
		t.Errorf("expected op=READ_ATTR in output, got: %s", out)
	}
}

func TestLoggerWithFrame(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&Config{Level: LevelDebug, Format: "text", Output: &buf})

	frameLogger := logger.WithFrame(123, stringerFunc("WRITEBUF"))
	frameLogger.Debug("processing frame")

	out := buf.String()
	if !strings.Contains(out, "client_id=123") {
		t.Errorf("expected client_id=123 in output, got: %s", out)
	}
	if !strings.Contains(out, "op=WRITEBUF") {
		t.Errorf("expected op=WRITEBUF in output, got: %s", out)
	}
}

func TestLoggerWithError(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&Config{Level: LevelDebug, Format: "text", Output: &buf})

	testErr := errors.New("test error")
	errorLogger := logger.WithError(testErr)
	errorLogger.Error("operation failed")

	if out := buf.String(); !strings.Contains(out, "test error") {
		t.Errorf("expected 'test error' in output, got: %s", out)
	}
}

func TestGlobalLoggerFunctions(t *testing.T) {
	var buf bytes.Buffer
	SetDefault(NewLogger(&Config{Level: LevelDebug, Format: "text", Output: &buf}))

	Debug("debug message", "key", "value")
	if out := buf.String(); !strings.Contains(out, "debug message") || !strings.Contains(out, "key=value") {
		t.Errorf("expected debug message with key=value, got: %s", out)
	}

	buf.Reset()
	Info("info message")
	if out := buf.String(); !strings.Contains(out, "info message") {
		t.Errorf("expected info message, got: %s", out)
	}

	buf.Reset()
	Warn("warning message")
	if out := buf.String(); !strings.Contains(out, "warning message") {
		t.Errorf("expected warning message, got: %s", out)
	}

	buf.Reset()
	Error("error message")
	if out := buf.String(); !strings.Contains(out, "error message") {
		t.Errorf("expected error message, got: %s", out)
	}
}

type stringerFunc string

func (s stringerFunc) String() string { return string(s) }
