package util

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestLoggerLevel(t *testing.T) {
	logger := New(Options{Level: "debug"})
	if logger.GetLevel() != zerolog.DebugLevel {
		t.Fatalf("expected debug level, got %s", logger.GetLevel())
	}

	logger = New(Options{Level: "invalid"})
	if logger.GetLevel() != zerolog.InfoLevel {
		t.Fatalf("expected info fallback, got %s", logger.GetLevel())
	}

	logger = New(Options{Level: ""})
	if logger.GetLevel() != zerolog.InfoLevel {
		t.Fatalf("expected info for empty level, got %s", logger.GetLevel())
	}
}

func TestNewWithFileSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "bot.log")
	logger, closer := NewWithCloser(Options{Level: "info", Format: "console", File: FileOptions{Path: path}})
	if closer == nil {
		t.Fatalf("expected a closer for the file sink")
	}
	logger.Info().Str("sym", "ETH").Msg("status")
	logger.Debug().Msg("filtered")
	if err := closer.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	out := string(data)
	if !strings.Contains(out, `"sym":"ETH"`) || !strings.Contains(out, `"message":"status"`) {
		t.Fatalf("expected JSON status line in file, got %s", out)
	}
	if strings.Contains(out, "filtered") {
		t.Fatalf("debug line must be filtered at info level")
	}
}
