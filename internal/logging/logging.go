// Package logging configures slog for the daemon: text or JSON on stderr,
// optionally fanned out to the systemd journal.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Options selects level, format and outputs.
type Options struct {
	Level   string
	Format  string
	Journal bool
	Output  io.Writer
}

// ParseLevel maps a level name to a slog level. Unknown names map to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToUpper(s) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// New builds a logger from opts without installing it.
func New(opts Options) *slog.Logger {
	return slog.New(newHandler(opts))
}

// Init builds a logger from opts and installs it as the slog default.
func Init(opts Options) *slog.Logger {
	l := New(opts)
	slog.SetDefault(l)
	return l
}

// For returns the default logger tagged with a component name.
func For(component string) *slog.Logger {
	return slog.Default().With("component", component)
}

func newHandler(opts Options) slog.Handler {
	level := ParseLevel(opts.Level)
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}
	hopts := &slog.HandlerOptions{Level: level}

	var h slog.Handler
	if strings.ToLower(opts.Format) == "json" {
		h = slog.NewJSONHandler(out, hopts)
	} else {
		h = slog.NewTextHandler(out, hopts)
	}
	if opts.Journal && IsJournalAvailable() {
		return NewMultiHandler(h, NewJournalHandler(level))
	}
	return h
}
