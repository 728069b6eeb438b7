package logging

import (
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap"
)

func TestNewLogger_CreatesDirAndLogger(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested")
	log, err := NewLogger(dir, "info", false)
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}
	defer func() { _ = log.Sync() }()

	// Directory should exist
	if _, err := os.Stat(dir); err != nil {
		t.Fatalf("log dir missing: %v", err)
	}

	log.Info("test_message_from_logging_test")

	if log.Core().Enabled(zap.DebugLevel) {
		t.Fatal("debug should be off at info level")
	}
	if entries, _ := os.ReadDir(dir); len(entries) == 0 {
		t.Logf("no files yet in %s (ok; async writers may delay)", dir)
	}
}

func TestNewLogger_Levels(t *testing.T) {
	log, err := NewLogger(t.TempDir(), "DEBUG", true)
	if err != nil {
		t.Fatal(err)
	}
	if !log.Core().Enabled(zap.DebugLevel) {
		t.Fatal("debug should be on")
	}
	if _, err := NewLogger(t.TempDir(), "loud", false); err == nil {
		t.Fatal("expected error for unknown level")
	}
}
