package agent

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func analysisReply(code string) string {
	return "Computing.\n```python\n" + code + "\n```"
}

func TestExecuteFirstAttemptSucceeds(t *testing.T) {
	fake := &fakeChatModel{replies: []string{analysisReply("print(dataset.mean())")}}
	runner := &fakeRunner{outputs: []string{"42"}, oks: []bool{true}}
	executor := NewAnalysisExecutor(NewCodeSynthesizer(fake, 0, nil), runner, nil)

	output, err := executor.Execute(context.Background(), nil, "mean?", "/data/p/f.csv")
	if err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if output != "42" {
		t.Errorf("unexpected output: %q", output)
	}
	if len(fake.calls) != 1 {
		t.Errorf("expected 1 synthesis call, got %d", len(fake.calls))
	}
	if strings.Contains(fake.lastPrompt(0), "There was an error") {
		t.Error("first attempt must carry no error context")
	}

	script := runner.scripts[0]
	if !strings.Contains(script, "import pandas as pd") ||
		!strings.Contains(script, "dataset = pd.read_csv('/data/p/f.csv')") {
		t.Errorf("script missing pandas preamble: %q", script)
	}
}

func TestExecuteRetriesWithErrorContext(t *testing.T) {
	fake := &fakeChatModel{replies: []string{
		analysisReply("boom()"),
		analysisReply("print('ok')"),
	}}
	runner := &fakeRunner{
		outputs: []string{"NameError: boom is not defined", "ok"},
		oks:     []bool{false, true},
	}
	executor := NewAnalysisExecutor(NewCodeSynthesizer(fake, 0, nil), runner, nil)

	output, err := executor.Execute(context.Background(), nil, "q", "/d.csv")
	if err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if output != "ok" {
		t.Errorf("unexpected output: %q", output)
	}
	if len(fake.calls) != 2 {
		t.Fatalf("expected 2 synthesis calls, got %d", len(fake.calls))
	}

	secondPrompt := fake.lastPrompt(1)
	if !strings.Contains(secondPrompt, "Error executing Python code: NameError: boom is not defined") {
		t.Errorf("second prompt missing failure output: %q", secondPrompt)
	}
	if !strings.Contains(secondPrompt, "Try number: 1") {
		t.Error("second prompt should carry the attempt number")
	}
}

func TestExecuteStopsAfterThreeAttempts(t *testing.T) {
	fake := &fakeChatModel{replies: []string{
		analysisReply("a()"), analysisReply("b()"), analysisReply("c()"),
	}}
	runner := &fakeRunner{
		outputs: []string{"err1", "err2", "err3"},
		oks:     []bool{false, false, false},
	}
	executor := NewAnalysisExecutor(NewCodeSynthesizer(fake, 0, nil), runner, nil)

	output, err := executor.Execute(context.Background(), nil, "q", "/d.csv")
	if err != nil {
		t.Fatalf("exhausted attempts must not be an error: %v", err)
	}
	if output != "Error executing Python code: err3" {
		t.Errorf("expected the last failure output, got %q", output)
	}
	if len(runner.scripts) != 3 {
		t.Errorf("expected exactly 3 runs, got %d", len(runner.scripts))
	}

	// The third prompt accumulates both earlier failures.
	thirdPrompt := fake.lastPrompt(2)
	if !strings.Contains(thirdPrompt, "err1") || !strings.Contains(thirdPrompt, "err2") {
		t.Error("third prompt should accumulate all earlier failure notes")
	}
}

func TestExecutePropagatesCompletionError(t *testing.T) {
	fake := &fakeChatModel{err: errors.New("upstream down")}
	runner := &fakeRunner{}
	executor := NewAnalysisExecutor(NewCodeSynthesizer(fake, 0, nil), runner, nil)

	if _, err := executor.Execute(context.Background(), nil, "q", "/d.csv"); err == nil {
		t.Fatal("expected completion error to propagate")
	}
	if len(runner.scripts) != 0 {
		t.Error("runner must not be invoked when synthesis fails")
	}
}

func TestBuildScriptEscapesWindowsPaths(t *testing.T) {
	script := buildScript(`C:\data\p\f.csv`, "print(1)")
	if !strings.Contains(script, `pd.read_csv('C:\\data\\p\\f.csv')`) {
		t.Errorf("backslashes not escaped: %q", script)
	}
}
