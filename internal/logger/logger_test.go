package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewWritesJSONToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "invgrid.log")
	log, err := New(Options{File: path, Level: "debug"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	log.With("op", "assign_location").Info("request sent", "rows", 3, "api_token", "abc123")
	log.Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	out := string(data)
	if !strings.Contains(out, `"msg":"request sent"`) || !strings.Contains(out, `"op":"assign_location"`) {
		t.Fatalf("unexpected log output: %s", out)
	}
	if strings.Contains(out, "abc123") {
		t.Fatalf("token was not redacted: %s", out)
	}
}

func TestNewRejectsBadLevel(t *testing.T) {
	if _, err := New(Options{File: filepath.Join(t.TempDir(), "x.log"), Level: "loud"}); err == nil {
		t.Fatal("expected error for unknown level")
	}
}

func TestEmptyFileAndNilAreNoops(t *testing.T) {
	log, err := New(Options{})
	if err != nil {
		t.Fatal(err)
	}
	log.Info("discarded")

	var nilLog *Logger
	nilLog.Warn("also discarded", "k", "v")
	nilLog.With("a", 1).Error("still fine")
}
