package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/mosajjal/bountycatch/pkg/config"
	"github.com/rs/zerolog"
)

func newConsoleLogger(out io.Writer, level zerolog.Level) zerolog.Logger {
	return zerolog.New(out).With().Timestamp().Logger().
		Output(zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339, NoColor: nocolorLog}).
		Level(level)
}

// parseLevel accepts zerolog names as well as upper case and "warning".
func parseLevel(s string) (zerolog.Level, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "warning" {
		s = "warn"
	}
	return zerolog.ParseLevel(s)
}

// newLogger builds the logger described by the logging section. With a log
// file set, every line also goes to that file, which is only ever appended to.
func newLogger(c config.LoggingConfig, stderr io.Writer) (zerolog.Logger, func() error, error) {
	level, err := parseLevel(c.Level)
	if err != nil {
		return zerolog.Logger{}, nil, fmt.Errorf("failed to parse log level: %w", err)
	}

	var console, file io.Writer
	closeFn := func() error { return nil }
	switch c.Format {
	case "json":
		console = stderr
	case "console", "":
		console = zerolog.ConsoleWriter{Out: stderr, TimeFormat: time.RFC3339, NoColor: nocolorLog}
	default:
		return zerolog.Logger{}, nil, fmt.Errorf("unsupported log format: %s", c.Format)
	}

	out := console
	if c.File != "" {
		f, err := os.OpenFile(c.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return zerolog.Logger{}, nil, err
		}
		closeFn = f.Close
		file = f
		if c.Format != "json" {
			file = zerolog.ConsoleWriter{Out: f, TimeFormat: time.RFC3339, NoColor: true}
		}
		out = zerolog.MultiLevelWriter(console, file)
	}

	return zerolog.New(out).With().Timestamp().Logger().Level(level), closeFn, nil
}
