package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]zerolog.Level{
		"debug":   zerolog.DebugLevel,
		" WARN ":  zerolog.WarnLevel,
		"error":   zerolog.ErrorLevel,
		"":        zerolog.InfoLevel,
		"verbose": zerolog.InfoLevel,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q): expected %s, got %s", in, want, got)
		}
	}
}

func TestInitWritesFile(t *testing.T) {
	dir := t.TempDir()
	var console bytes.Buffer
	if err := Init(Options{Level: "info", Dir: dir, Console: &console}); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	t.Cleanup(func() {
		Close()
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	})

	log.Info().Str("component", "test").Msg("hello overlay")
	log.Debug().Msg("hidden")

	data, err := os.ReadFile(filepath.Join(dir, FileName))
	if err != nil {
		t.Fatalf("Failed to read log file: %v", err)
	}
	if !strings.Contains(string(data), "hello overlay") {
		t.Errorf("Expected log file to contain message, got %q", data)
	}
	if strings.Contains(string(data), "hidden") {
		t.Error("Expected debug message to be filtered at info level")
	}
	if !strings.Contains(console.String(), "hello overlay") {
		t.Errorf("Expected console output to contain message, got %q", console.String())
	}
}

func TestInitConsoleOnly(t *testing.T) {
	var console bytes.Buffer
	if err := Init(Options{Console: &console}); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	t.Cleanup(func() { zerolog.SetGlobalLevel(zerolog.InfoLevel) })

	log.Warn().Err(os.ErrNotExist).Msg("config missing")

	out := console.String()
	if !strings.Contains(out, "config missing") {
		t.Fatalf("Expected console output to contain message, got %q", out)
	}
	if strings.HasPrefix(strings.TrimSpace(out), "{") {
		t.Errorf("Expected human-readable console output, got JSON %q", out)
	}
}
