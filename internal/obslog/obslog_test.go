package obslog

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		"WARN":    zapcore.WarnLevel,
		"warning": zapcore.WarnLevel,
		"error":   zapcore.ErrorLevel,
		"":        zapcore.InfoLevel,
		"bogus":   zapcore.InfoLevel,
	}
	for in, want := range cases {
		if got := parseLevel(in); got != want {
			t.Errorf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestNewWritesJSONFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "nested", "fortune.log")
	logger, err := New(Options{Level: "info", Format: "json", File: file, MaxSizeMB: 1})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	logger.Info("fortune_started")
	_ = logger.Sync()

	b, err := os.ReadFile(file)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(b), `"msg":"fortune_started"`) {
		t.Fatalf("unexpected log content: %s", b)
	}
}

func TestOptionsFromEnvDisablesFile(t *testing.T) {
	t.Setenv("LOG_TO_FILE", "false")
	t.Setenv("LOG_MAX_BACKUPS", "-3")
	o := OptionsFromEnv()
	if o.File != "" {
		t.Fatalf("expected no file, got %q", o.File)
	}
	if o.MaxBackups != 5 {
		t.Fatalf("expected default backups, got %d", o.MaxBackups)
	}
}
