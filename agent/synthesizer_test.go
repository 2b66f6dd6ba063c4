package agent

import (
	"context"
	"strings"
	"testing"
)

func TestGenerateChartWithFence(t *testing.T) {
	reply := "Summary: [Sales per region as a bar chart]\n" +
		"```javascript\n" +
		canvasBoilerplate + "\n" +
		"new Chart(ctx, {type: 'bar'});\n" +
		"```"
	fake := &fakeChatModel{replies: []string{reply}}
	synth := NewCodeSynthesizer(fake, 0, nil)

	result, err := synth.GenerateChart(context.Background(), nil, "sales by region")
	if err != nil {
		t.Fatalf("GenerateChart returned error: %v", err)
	}

	if result.Reply != reply {
		t.Error("reply should be the full model message")
	}
	if result.Summary != "[Sales per region as a bar chart]" {
		t.Errorf("unexpected summary: %q", result.Summary)
	}
	if strings.Contains(result.Code, "getContext") {
		t.Error("canvas boilerplate should be stripped from the code")
	}
	if !strings.Contains(result.Code, "new Chart") {
		t.Errorf("chart code missing from: %q", result.Code)
	}
}

func TestGenerateChartWithoutFence(t *testing.T) {
	fake := &fakeChatModel{replies: []string{"new Chart(ctx, {});"}}
	synth := NewCodeSynthesizer(fake, 0, nil)

	result, err := synth.GenerateChart(context.Background(), nil, "plot it")
	if err != nil {
		t.Fatalf("GenerateChart returned error: %v", err)
	}

	if result.Code != "new Chart(ctx, {});" {
		t.Errorf("whole reply should be used as code, got %q", result.Code)
	}
	if result.Summary != "This is a graph for query: plot it" {
		t.Errorf("unexpected fallback summary: %q", result.Summary)
	}
}

func TestGenerateAnalysisWithFence(t *testing.T) {
	reply := "This analysis computes the mean.\n```python\nprint(dataset['x'].mean())\n```"
	fake := &fakeChatModel{replies: []string{reply}}
	synth := NewCodeSynthesizer(fake, 0, nil)

	result, err := synth.GenerateAnalysis(context.Background(), nil, "average of x", "")
	if err != nil {
		t.Fatalf("GenerateAnalysis returned error: %v", err)
	}

	if result.Code != "print(dataset['x'].mean())" {
		t.Errorf("unexpected code: %q", result.Code)
	}
	if !strings.Contains(result.Summary, "computes the mean") {
		t.Errorf("unexpected summary: %q", result.Summary)
	}
}

func TestGenerateAnalysisWithoutFence(t *testing.T) {
	fake := &fakeChatModel{replies: []string{"print(len(dataset))"}}
	synth := NewCodeSynthesizer(fake, 0, nil)

	result, err := synth.GenerateAnalysis(context.Background(), nil, "row count", "")
	if err != nil {
		t.Fatalf("GenerateAnalysis returned error: %v", err)
	}

	if result.Code != "print(len(dataset))" {
		t.Errorf("unexpected code: %q", result.Code)
	}
	if result.Summary != "This is a data analysis for query: row count" {
		t.Errorf("unexpected fallback summary: %q", result.Summary)
	}
}

func TestGenerateAnalysisIncludesErrorContext(t *testing.T) {
	fake := &fakeChatModel{replies: []string{"```python\nprint(1)\n```"}}
	synth := NewCodeSynthesizer(fake, 0, nil)

	errorContext := "There was an error with the previous attempt at answering this prompt: boom Try number: 1\n"
	if _, err := synth.GenerateAnalysis(context.Background(), nil, "q", errorContext); err != nil {
		t.Fatalf("GenerateAnalysis returned error: %v", err)
	}

	prompt := fake.lastPrompt(0)
	if !strings.HasPrefix(prompt, errorContext) {
		t.Error("error context should lead the synthesis prompt")
	}
}

func TestGenerateAnalysisUsesConfiguredTokenCap(t *testing.T) {
	fake := &fakeChatModel{replies: []string{"```python\nprint(1)\n```", "```python\nprint(2)\n```"}}
	synth := NewCodeSynthesizer(fake, 1234, nil)

	if _, err := synth.GenerateAnalysis(context.Background(), nil, "q", ""); err != nil {
		t.Fatalf("GenerateAnalysis returned error: %v", err)
	}
	if got := fake.maxTokens[0]; got == nil || *got != 1234 {
		t.Errorf("analysis call should use the configured token cap, got %v", got)
	}

	// Zero falls back to the default analysis cap.
	fallback := NewCodeSynthesizer(fake, 0, nil)
	if _, err := fallback.GenerateAnalysis(context.Background(), nil, "q", ""); err != nil {
		t.Fatalf("GenerateAnalysis returned error: %v", err)
	}
	if got := fake.maxTokens[1]; got == nil || *got != 2000 {
		t.Errorf("zero cap should fall back to 2000, got %v", got)
	}
}

func TestGeneratePlainVerbatim(t *testing.T) {
	fake := &fakeChatModel{replies: []string{"  The dataset covers 2019-2024.  "}}
	synth := NewCodeSynthesizer(fake, 0, nil)

	reply, err := synth.GeneratePlain(context.Background(), nil, "what years?")
	if err != nil {
		t.Fatalf("GeneratePlain returned error: %v", err)
	}
	if reply != "The dataset covers 2019-2024." {
		t.Errorf("unexpected reply: %q", reply)
	}
	if fake.lastPrompt(0) != "what years?" {
		t.Error("plain path should send the user message as-is")
	}
}
