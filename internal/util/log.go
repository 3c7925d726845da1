// Package util holds process plumbing shared by the binaries, mainly the logger factory.
package util

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// FileOptions enables a rotated copy of the log on disk.
type FileOptions struct {
	Path       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// Options selects level, output format ("json" or "console") and an optional file sink.
type Options struct {
	Level  string
	Format string
	File   FileOptions
}

// New builds a logger from opts.
func New(opts Options) zerolog.Logger {
	logger, _ := NewWithCloser(opts)
	return logger
}

// NewWithCloser is New plus the io.Closer of the rotated file, nil when no file is configured.
func NewWithCloser(opts Options) (zerolog.Logger, io.Closer) {
	var out io.Writer = os.Stdout
	if strings.EqualFold(opts.Format, "console") {
		out = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.TimeOnly}
	}

	var closer io.Closer
	if opts.File.Path != "" {
		file := &lumberjack.Logger{
			Filename:   opts.File.Path,
			MaxSize:    orDefault(opts.File.MaxSizeMB, 50),
			MaxBackups: orDefault(opts.File.MaxBackups, 5),
			MaxAge:     orDefault(opts.File.MaxAgeDays, 7),
			Compress:   opts.File.Compress,
		}
		// the file always gets JSON so it stays machine-readable
		out = zerolog.MultiLevelWriter(out, file)
		closer = file
	}
	return zerolog.New(out).With().Timestamp().Logger().Level(ParseLevel(opts.Level)), closer
}

// ParseLevel maps a level name to zerolog, defaulting to info.
func ParseLevel(level string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
