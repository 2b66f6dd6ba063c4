package agent

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"
)

func countScriptTempFiles(t *testing.T) int {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(os.TempDir(), "analysis-*.py"))
	if err != nil {
		t.Fatalf("glob failed: %v", err)
	}
	return len(matches)
}

func TestPythonRunnerSuccess(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("relies on unix utilities")
	}

	before := countScriptTempFiles(t)

	// cat prints the script file back, which stands in for a working
	// interpreter without requiring python in the test environment.
	runner := NewPythonRunner("/bin/cat", 10*time.Second, nil)
	output, ok := runner.Run(context.Background(), "print('hello')")

	if !ok {
		t.Fatal("expected run to succeed")
	}
	if !strings.Contains(output, "print('hello')") {
		t.Errorf("unexpected output: %q", output)
	}
	if after := countScriptTempFiles(t); after != before {
		t.Errorf("temp script leaked: %d before, %d after", before, after)
	}
}

func TestPythonRunnerFailure(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("relies on unix utilities")
	}

	before := countScriptTempFiles(t)

	runner := NewPythonRunner("/bin/false", 10*time.Second, nil)
	_, ok := runner.Run(context.Background(), "print('hello')")

	if ok {
		t.Fatal("expected run to fail")
	}
	if after := countScriptTempFiles(t); after != before {
		t.Errorf("temp script leaked on failure: %d before, %d after", before, after)
	}
}

func TestPythonRunnerTimeout(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("relies on unix utilities")
	}

	// sh executes the temp file as a script, letting the test block
	// without a real interpreter.
	runner := NewPythonRunner("/bin/sh", 50*time.Millisecond, nil)
	output, ok := runner.Run(context.Background(), "sleep 5")

	if ok {
		t.Fatal("expected timed-out run to fail")
	}
	if !strings.Contains(output, "timed out") {
		t.Errorf("expected timeout note in output, got %q", output)
	}
}
