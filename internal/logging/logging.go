// Package logging configures the process-wide slog logger.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	logFileName = "portrait.log"
	maxSizeMB   = 1
	maxBackups  = 5
)

// Options controls logger construction
type Options struct {
	Dir    string // directory for the rotating log file; empty disables it
	Level  string // debug, info, warn, error
	Format string // text or json
	Stderr bool   // also write to stderr
}

// ParseLevel maps a level name to a slog.Level, defaulting to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Setup builds a logger from opts, installs it as the slog default and
// returns a closer for the log file.
func Setup(opts Options) (*slog.Logger, io.Closer, error) {
	var writers []io.Writer
	var closer io.Closer = nopCloser{}

	if opts.Dir != "" {
		if err := os.MkdirAll(opts.Dir, 0755); err != nil {
			return nil, nil, fmt.Errorf("create log dir: %w", err)
		}
		rotator := &lumberjack.Logger{
			Filename:   filepath.Join(opts.Dir, logFileName),
			MaxSize:    maxSizeMB,
			MaxBackups: maxBackups,
		}
		writers = append(writers, rotator)
		closer = rotator
	}
	if opts.Stderr {
		writers = append(writers, os.Stderr)
	}

	var out io.Writer = io.Discard
	switch len(writers) {
	case 0:
	case 1:
		out = writers[0]
	default:
		out = io.MultiWriter(writers...)
	}

	handlerOpts := &slog.HandlerOptions{Level: ParseLevel(opts.Level)}
	var handler slog.Handler
	if strings.EqualFold(opts.Format, "json") {
		handler = slog.NewJSONHandler(out, handlerOpts)
	} else {
		handler = slog.NewTextHandler(out, handlerOpts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger, closer, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
