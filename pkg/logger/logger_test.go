package logger

import (
	"bytes"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"igvision/pkg/config"
)

func newBufferLogger(buf *bytes.Buffer) *zerologLogger {
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	zlog := zerolog.New(buf).With().Timestamp().Logger().Level(zerolog.DebugLevel)
	return &zerologLogger{
		logger: &zlog,
		fields: make(map[string]interface{}),
	}
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     *config.LoggingConfig
		wantErr bool
	}{
		{
			name:    "valid config with info level",
			cfg:     &config.LoggingConfig{Level: "info"},
			wantErr: false,
		},
		{
			name:    "valid config with debug level",
			cfg:     &config.LoggingConfig{Level: "debug"},
			wantErr: false,
		},
		{
			name:    "invalid log level",
			cfg:     &config.LoggingConfig{Level: "verbose"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := New(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Errorf("New() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if !tt.wantErr && logger == nil {
				t.Error("New() returned nil logger")
			}
		})
	}
}

func TestNewWithFileOutput(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "logs", "igvision.log")

	logger, err := New(&config.LoggingConfig{Level: "info", File: logFile})
	if err != nil {
		t.Fatalf("New() with file output failed: %v", err)
	}
	logger.Info("hello")
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		level    string
		expected zerolog.Level
		wantErr  bool
	}{
		{"debug", zerolog.DebugLevel, false},
		{"DEBUG", zerolog.DebugLevel, false},
		{"info", zerolog.InfoLevel, false},
		{"warn", zerolog.WarnLevel, false},
		{"warning", zerolog.WarnLevel, false},
		{"error", zerolog.ErrorLevel, false},
		{"fatal", zerolog.FatalLevel, false},
		{"disabled", zerolog.Disabled, false},
		{"verbose", zerolog.InfoLevel, true},
		{"", zerolog.InfoLevel, true},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			level, err := parseLogLevel(tt.level)
			if (err != nil) != tt.wantErr {
				t.Errorf("parseLogLevel() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if level != tt.expected {
				t.Errorf("parseLogLevel() = %v, want %v", level, tt.expected)
			}
		})
	}
}

func TestLoggerMethods(t *testing.T) {
	var buf bytes.Buffer
	logger := newBufferLogger(&buf)

	messages := map[string]func(string){
		"debug message": logger.Debug,
		"info message":  logger.Info,
		"warn message":  logger.Warn,
		"error message": logger.Error,
	}

	for msg, logFn := range messages {
		buf.Reset()
		logFn(msg)
		if !strings.Contains(buf.String(), msg) {
			t.Errorf("Message %q not found in output", msg)
		}
	}
}

func TestWithField(t *testing.T) {
	var buf bytes.Buffer
	logger := newBufferLogger(&buf)

	logger.WithField("username", "natgeo").Info("scrape started")

	output := buf.String()
	if !strings.Contains(output, "scrape started") {
		t.Error("Message not found in output")
	}
	if !strings.Contains(output, `"username":"natgeo"`) {
		t.Error("Field not found in output")
	}
}

func TestWithFieldsDoesNotMutateParent(t *testing.T) {
	var buf bytes.Buffer
	logger := newBufferLogger(&buf)

	logger.WithField("child", "only")
	logger.Info("parent message")

	if strings.Contains(buf.String(), "child") {
		t.Error("Child field leaked into the parent logger")
	}
}

func TestWithError(t *testing.T) {
	var buf bytes.Buffer
	logger := newBufferLogger(&buf)

	if logger.WithError(nil) != Logger(logger) {
		t.Error("WithError(nil) should return the same logger")
	}

	logger.WithError(errors.New("download failed")).Error("media error")

	output := buf.String()
	if !strings.Contains(output, "media error") {
		t.Error("Message not found in output")
	}
	if !strings.Contains(output, "download failed") {
		t.Error("Error message not found in output")
	}
}

func TestStructuredLogging(t *testing.T) {
	var buf bytes.Buffer
	logger := newBufferLogger(&buf)

	logger.InfoWithFields("download completed", map[string]interface{}{
		"username": "natgeo",
		"media":    "post_1.jpg",
		"count":    10,
	})

	output := buf.String()
	for _, want := range []string{
		"download completed",
		`"username":"natgeo"`,
		`"media":"post_1.jpg"`,
		`"count":10`,
	} {
		if !strings.Contains(output, want) {
			t.Errorf("Expected %s in output, got %s", want, output)
		}
	}
}

func TestFieldTypes(t *testing.T) {
	var buf bytes.Buffer
	logger := newBufferLogger(&buf)

	fields := map[string]interface{}{
		"string":   "test",
		"int":      123,
		"int64":    int64(456),
		"float":    3.14,
		"bool":     true,
		"time":     time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		"duration": 5 * time.Second,
		"strings":  []string{"a", "b"},
		"custom":   struct{ Name string }{Name: "test"},
	}

	logger.WithFields(fields).Info("all field types")

	if !strings.Contains(buf.String(), "all field types") {
		t.Error("Message not found in output")
	}
}

func TestFieldChaining(t *testing.T) {
	var buf bytes.Buffer
	logger := newBufferLogger(&buf)

	logger.
		WithField("username", "natgeo").
		WithField("session", "abc").
		WithFields(map[string]interface{}{"posts": 25}).
		Info("chained fields")

	output := buf.String()
	for _, want := range []string{`"username":"natgeo"`, `"session":"abc"`, `"posts":25`} {
		if !strings.Contains(output, want) {
			t.Errorf("Expected %s in output", want)
		}
	}
}

func TestGlobalLogger(t *testing.T) {
	if err := Initialize(&config.LoggingConfig{Level: "debug"}); err != nil {
		t.Fatalf("Failed to initialize logger: %v", err)
	}

	if GetLogger() == nil {
		t.Error("GetLogger() returned nil")
	}

	// The convenience functions must not panic
	Debug("debug message")
	Info("info message")
	Warn("warn message")
	Error("error message")
	WithField("key", "value").Info("with field")
	WithError(errors.New("boom")).Error("with error")
}

func TestNopLogger(t *testing.T) {
	nop := NewNopLogger()

	nop.Info("discarded")
	nop.WithField("k", "v").WithError(errors.New("x")).Error("also discarded")
	nop.InfoWithFields("fields", map[string]interface{}{"k": 1})

	if nop.GetZerolog() != nil {
		t.Error("Nop logger should not expose a zerolog instance")
	}
}
