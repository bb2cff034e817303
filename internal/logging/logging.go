// Package logging configures the process-wide zerolog logger.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// FileName is the log file created in Options.Dir.
const FileName = "keyoverlay.log"

// Options configures Init.
type Options struct {
	// Level is a zerolog level name. Unknown or empty means info.
	Level string
	// Dir, when set, receives an append-only copy of the log.
	Dir string
	// Console is where human-readable output goes. Defaults to stderr.
	Console io.Writer
}

var (
	mu   sync.Mutex
	file *os.File
)

// ParseLevel maps a level name to a zerolog level, falling back to info.
func ParseLevel(name string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(name)))
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}

// Init replaces the global logger. Calling it again closes the previous
// log file.
func Init(opts Options) error {
	mu.Lock()
	defer mu.Unlock()

	closeFile()

	out := opts.Console
	if out == nil {
		out = os.Stderr
	}
	writers := []io.Writer{zerolog.ConsoleWriter{Out: out, TimeFormat: "15:04:05"}}

	if opts.Dir != "" {
		if err := os.MkdirAll(opts.Dir, 0755); err != nil {
			return fmt.Errorf("failed to create log directory: %w", err)
		}
		f, err := os.OpenFile(filepath.Join(opts.Dir, FileName), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		file = f
		writers = append(writers, zerolog.ConsoleWriter{
			Out:        f,
			TimeFormat: "2006-01-02 15:04:05",
			NoColor:    true,
		})
	}

	zerolog.SetGlobalLevel(ParseLevel(opts.Level))
	log.Logger = zerolog.New(zerolog.MultiLevelWriter(writers...)).With().Timestamp().Int("pid", os.Getpid()).Logger()
	return nil
}

// Close closes the log file, if any. Console logging keeps working.
func Close() {
	mu.Lock()
	defer mu.Unlock()
	closeFile()
}

func closeFile() {
	if file != nil {
		file.Close()
		file = nil
	}
}
