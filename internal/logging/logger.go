// Package logging is the structured logging facade shared by the agent, the
// shell and the reference server. Two backends are provided: log/slog and
// zerolog; both render key/value pairs passed after the message.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/rs/zerolog"
)

// Logger is a context-aware, structured logger.
//
//	log.Info(ctx, "vault unlocked", "records", n, "skipped", len(skipped))
//
// Secrets (passwords, keys, tokens, plaintext) are never passed as values.
type Logger interface {
	Debug(ctx context.Context, msg string, args ...any)
	Info(ctx context.Context, msg string, args ...any)
	Warn(ctx context.Context, msg string, args ...any)
	Error(ctx context.Context, msg string, args ...any)

	// With returns a child logger that always includes the given pairs.
	With(args ...any) Logger
}

// Options selects a backend and its output.
type Options struct {
	// Backend is "slog" (default) or "zerolog".
	Backend string
	// Format is "text" (default) or "json". zerolog text output uses its
	// console writer.
	Format string
	// Level is one of debug, info, warn, error. Defaults to info.
	Level string
}

// New builds a Logger writing to w.
func New(w io.Writer, opts Options) (Logger, error) {
	switch strings.ToLower(opts.Backend) {
	case "", "slog":
		lvl, err := slogLevel(opts.Level)
		if err != nil {
			return nil, err
		}
		ho := &slog.HandlerOptions{Level: lvl}
		var h slog.Handler
		switch strings.ToLower(opts.Format) {
		case "", "text":
			h = slog.NewTextHandler(w, ho)
		case "json":
			h = slog.NewJSONHandler(w, ho)
		default:
			return nil, fmt.Errorf("unknown log format %q", opts.Format)
		}
		return NewSlogLogger(slog.New(h)), nil

	case "zerolog":
		lvl, err := zerologLevel(opts.Level)
		if err != nil {
			return nil, err
		}
		switch strings.ToLower(opts.Format) {
		case "", "text":
			w = zerolog.ConsoleWriter{Out: w, NoColor: true}
		case "json":
		default:
			return nil, fmt.Errorf("unknown log format %q", opts.Format)
		}
		zl := zerolog.New(w).Level(lvl).With().Timestamp().Logger()
		return NewZerologLogger(zl), nil
	}
	return nil, fmt.Errorf("unknown log backend %q", opts.Backend)
}

// Nop returns a Logger that discards everything.
func Nop() Logger {
	return NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError + 1})))
}

func slogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("unknown log level %q", s)
}

func zerologLevel(s string) (zerolog.Level, error) {
	if s == "" {
		return zerolog.InfoLevel, nil
	}
	if strings.EqualFold(s, "warning") {
		return zerolog.WarnLevel, nil
	}
	lvl, err := zerolog.ParseLevel(strings.ToLower(s))
	if err != nil {
		return 0, fmt.Errorf("unknown log level %q", s)
	}
	return lvl, nil
}
