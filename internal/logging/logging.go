// Package logging builds the application's slog.Logger: a console handler
// (tint or JSON) with an optional fluentd sink alongside it.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/fluent/fluent-logger-golang/fluent"
	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
)

// Options configures New.
type Options struct {
	Level  string // debug, info, warn or error
	Format string // text or json
	Writer io.Writer

	// FluentHost enables the fluentd sink when set.
	FluentHost string
	FluentPort int
	FluentTag  string
}

// ParseLevel parses a level name. An empty string means error.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "", "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("unknown log level %q", s)
}

// New builds a logger from opts. The returned close function flushes and
// closes the fluentd connection, if any.
func New(opts Options) (*slog.Logger, func() error, error) {
	level, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, nil, err
	}
	w := opts.Writer
	if w == nil {
		w = os.Stderr
	}

	var console slog.Handler
	switch opts.Format {
	case "json":
		console = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	case "", "text":
		console = tint.NewHandler(w, &tint.Options{
			Level:      level,
			TimeFormat: time.TimeOnly,
			NoColor:    !isTerminal(w),
		})
	default:
		return nil, nil, fmt.Errorf("unknown log format %q", opts.Format)
	}

	if opts.FluentHost == "" {
		return slog.New(console), func() error { return nil }, nil
	}

	client, err := fluent.New(fluent.Config{
		FluentHost: opts.FluentHost,
		FluentPort: opts.FluentPort,
		TagPrefix:  opts.FluentTag,
		Async:      true,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("create fluentd logger: %w", err)
	}
	h := fanout(console, newFluentHandler(client, level))
	return slog.New(h), client.Close, nil
}

// Discard returns a logger that drops every record.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
