package agent

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"
)

// ScriptRunner executes one generated script and reports its combined
// stdout+stderr output. ok is false when the script exited non-zero or could
// not be started.
type ScriptRunner interface {
	Run(ctx context.Context, source string) (output string, ok bool)
}

// PythonRunner runs scripts as a separate Python process. Each run writes the
// source to a temp file, executes it under a deadline, and removes the file
// whether or not the script succeeded.
type PythonRunner struct {
	pythonPath string
	timeout    time.Duration
	logger     func(string)
}

// NewPythonRunner creates a PythonRunner. An empty pythonPath falls back to
// "python" on PATH.
func NewPythonRunner(pythonPath string, timeout time.Duration, logger func(string)) *PythonRunner {
	if pythonPath == "" {
		pythonPath = "python"
	}
	return &PythonRunner{pythonPath: pythonPath, timeout: timeout, logger: logger}
}

func (r *PythonRunner) log(msg string) {
	if r.logger != nil {
		r.logger(msg)
	}
}

// Run executes source as a Python script.
func (r *PythonRunner) Run(ctx context.Context, source string) (string, bool) {
	tmpFile, err := os.CreateTemp("", "analysis-*.py")
	if err != nil {
		return fmt.Sprintf("failed to create script file: %v", err), false
	}
	tmpPath := tmpFile.Name()
	defer os.Remove(tmpPath)

	if _, err := tmpFile.WriteString(source); err != nil {
		tmpFile.Close()
		return fmt.Sprintf("failed to write script file: %v", err), false
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Sprintf("failed to close script file: %v", err), false
	}

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, r.pythonPath, tmpPath)
	out, err := cmd.CombinedOutput()
	output := strings.TrimSpace(string(out))

	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			output = strings.TrimSpace(output + "\nscript timed out")
		} else if output == "" {
			output = err.Error()
		}
		r.log(fmt.Sprintf("[RUNNER] Script failed: %v", err))
		return output, false
	}

	return output, true
}
