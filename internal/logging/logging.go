// Package logging builds the process logger. The TUI owns the terminal, so
// log output goes to a file whenever one is configured.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
)

// Options selects level, format and destination.
type Options struct {
	Level  string // debug | info | warn | error
	Format string // text | json
	File   string // empty or "-" for the fallback writer
}

// New returns a configured logger and a close function for its output.
// fallback receives output when no file is set; pass io.Discard to silence
// logging entirely.
func New(opts Options, fallback io.Writer) (*logrus.Logger, func() error, error) {
	log := logrus.New()

	level := logrus.InfoLevel
	if opts.Level != "" {
		parsed, err := logrus.ParseLevel(opts.Level)
		if err != nil {
			return nil, nil, fmt.Errorf("log level: %w", err)
		}
		level = parsed
	}
	log.SetLevel(level)

	switch opts.Format {
	case "json":
		log.SetFormatter(&logrus.JSONFormatter{})
	case "", "text":
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, DisableColors: true})
	default:
		return nil, nil, fmt.Errorf("unknown log format %q", opts.Format)
	}

	closeFn := func() error { return nil }
	switch opts.File {
	case "", "-":
		if fallback == nil {
			fallback = os.Stderr
		}
		log.SetOutput(fallback)
	default:
		if err := os.MkdirAll(filepath.Dir(opts.File), 0755); err != nil {
			return nil, nil, fmt.Errorf("create log dir: %w", err)
		}
		f, err := os.OpenFile(opts.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		log.SetOutput(f)
		closeFn = f.Close
	}

	return log, closeFn, nil
}
