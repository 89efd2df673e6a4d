package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dbsmedya/phoneclean/internal/config"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"debug", "debug"},
		{"info", "info"},
		{"", "info"},
		{"warn", "warn"},
		{"error", "error"},
		{"unknown", "info"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			level := parseLevel(tt.input)
			if level.String() != tt.expected {
				t.Errorf("parseLevel(%q) = %v, expected %v", tt.input, level.String(), tt.expected)
			}
		})
	}
}

func TestNew(t *testing.T) {
	tmpDir := t.TempDir()

	tests := []struct {
		name    string
		cfg     *config.LoggingConfig
		wantErr bool
	}{
		{"json stderr", &config.LoggingConfig{Level: "info", Format: "json", Output: "stderr"}, false},
		{"text stdout", &config.LoggingConfig{Level: "debug", Format: "text", Output: "stdout"}, false},
		{"file output", &config.LoggingConfig{Level: "warn", Format: "json", Output: filepath.Join(tmpDir, "run.log")}, false},
		{"unwritable file", &config.LoggingConfig{Level: "info", Format: "json", Output: filepath.Join(tmpDir, "missing", "run.log")}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := New(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && logger == nil {
				t.Fatal("New() returned nil logger without error")
			}
		})
	}
}

func TestNewDefault(t *testing.T) {
	logger := NewDefault()
	if logger == nil {
		t.Fatal("NewDefault() returned nil")
	}
	logger.Debug("suppressed at info level")
}

func TestNewNop(t *testing.T) {
	logger := NewNop()
	logger.WithRun("r1").WithPhase("clean").Info("discarded")
	if logger.Base() == nil {
		t.Error("Base() returned nil")
	}
}

func TestContextMethodsReturnNewLogger(t *testing.T) {
	logger := NewNop()

	if logger.WithRun("abc") == logger {
		t.Error("WithRun() should return a new logger instance")
	}
	if logger.WithPhase("export") == logger {
		t.Error("WithPhase() should return a new logger instance")
	}
	if logger.WithBatch(3) == logger {
		t.Error("WithBatch() should return a new logger instance")
	}
	if logger.WithFields(map[string]interface{}{"k": "v"}) == logger {
		t.Error("WithFields() should return a new logger instance")
	}
}

func TestBuildWriters(t *testing.T) {
	for _, out := range []string{"stdout", "stderr", ""} {
		w, err := buildWriters(out)
		if err != nil || w == nil {
			t.Errorf("buildWriters(%q) = %v, %v", out, w, err)
		}
	}
}

func TestLoggingOutput(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "phoneclean.json")

	logger, err := New(&config.LoggingConfig{Level: "info", Format: "json", Output: logPath})
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	logger.Info("test info message")
	logger.Debug("hidden debug message")
	logger.WithRun("run-42").WithPhase("clean").WithBatch(7).Warn("batch slow")
	_ = logger.Sync()

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("failed to read log file: %v", err)
	}

	s := string(content)
	for _, want := range []string{"test info message", "batch slow", `"run":"run-42"`, `"phase":"clean"`, `"batch":7`} {
		if !strings.Contains(s, want) {
			t.Errorf("log output should contain %s, got:\n%s", want, s)
		}
	}
	if strings.Contains(s, "hidden debug message") {
		t.Error("debug message should be filtered at info level")
	}
}
