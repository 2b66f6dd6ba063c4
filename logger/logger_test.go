package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoggerWritesLines(t *testing.T) {
	dir := t.TempDir()

	l := NewLogger()
	if err := l.Init(dir); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	l.Log("pipeline message")
	l.Close()

	matches, err := filepath.Glob(filepath.Join(dir, "datachat_*.log"))
	if err != nil || len(matches) != 1 {
		t.Fatalf("expected 1 log file, got %v (%v)", matches, err)
	}
	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	if !strings.Contains(string(data), "pipeline message") {
		t.Errorf("log content missing message: %q", string(data))
	}
}

func TestLoggerNumbersRuns(t *testing.T) {
	dir := t.TempDir()

	for i := 0; i < 2; i++ {
		l := NewLogger()
		if err := l.Init(dir); err != nil {
			t.Fatalf("Init failed: %v", err)
		}
		l.Close()
	}

	matches, _ := filepath.Glob(filepath.Join(dir, "datachat_*.log"))
	if len(matches) != 2 {
		t.Errorf("expected 2 run files, got %v", matches)
	}
}

func TestLoggerNoopBeforeInit(t *testing.T) {
	l := NewLogger()
	l.Log("dropped")
	l.Close()
}
