// Package logging builds the leveled console logger used across todos.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Options configures New.
type Options struct {
	Level           string // debug, info, warn, error (default info)
	Format          string // text, json, logfmt (default text)
	File            string // rotate into this file instead of writing to Output
	MaxSizeMB       int    // rotation size for File (default 10)
	MaxBackups      int    // rotated files kept (default 3)
	Prefix          string
	ReportTimestamp bool
	Output          io.Writer // default os.Stderr
}

// DefaultOptions returns the options used when nothing is configured.
func DefaultOptions() Options {
	return Options{
		Level:  "info",
		Format: "text",
		Prefix: "todos",
	}
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// New returns a logger for opts and a Closer for its output. The closer
// must be called when File is set so the rotating writer is flushed.
func New(opts Options) (*log.Logger, io.Closer, error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, nil, err
	}
	formatter, err := ParseFormatter(opts.Format)
	if err != nil {
		return nil, nil, err
	}

	var (
		out    = opts.Output
		closer io.Closer = nopCloser{}
	)
	if out == nil {
		out = os.Stderr
	}
	if opts.File != "" {
		rotator := &lumberjack.Logger{
			Filename:   opts.File,
			MaxSize:    orDefault(opts.MaxSizeMB, 10),
			MaxBackups: orDefault(opts.MaxBackups, 3),
		}
		out, closer = rotator, rotator
	}

	logger := log.NewWithOptions(out, log.Options{
		Level:           level,
		Formatter:       formatter,
		Prefix:          opts.Prefix,
		ReportTimestamp: opts.ReportTimestamp || opts.File != "",
	})
	return logger, closer, nil
}

// Discard returns a logger that drops everything. Used by tests and as the
// default when no logger is injected.
func Discard() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{Level: log.FatalLevel})
}

// ParseLevel parses a level name. Empty means info.
func ParseLevel(s string) (log.Level, error) {
	if s == "" {
		return log.InfoLevel, nil
	}
	level, err := log.ParseLevel(strings.ToLower(s))
	if err != nil {
		return log.InfoLevel, fmt.Errorf("invalid log level %q", s)
	}
	return level, nil
}

// ParseFormatter parses a formatter name. Empty means text.
func ParseFormatter(s string) (log.Formatter, error) {
	switch strings.ToLower(s) {
	case "", "text":
		return log.TextFormatter, nil
	case "json":
		return log.JSONFormatter, nil
	case "logfmt":
		return log.LogfmtFormatter, nil
	default:
		return log.TextFormatter, fmt.Errorf("invalid log format %q", s)
	}
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
