package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/schema"
)

// maxAttempts bounds the synthesize-run-retry loop of one analysis turn.
const maxAttempts = 3

// errorOutputMarker prefixes runner output that came from a failed script.
// The retry loop keys off this marker, so the synthesized code itself must
// never legitimately print it.
const errorOutputMarker = "Error executing Python code"

// AnalysisExecutor drives the bounded generate-and-run loop for analysis
// turns: synthesize a script, run it in a subprocess, and on failure feed the
// error output back into the next synthesis prompt.
type AnalysisExecutor struct {
	synthesizer *CodeSynthesizer
	runner      ScriptRunner
	logger      func(string)
}

// NewAnalysisExecutor creates an AnalysisExecutor.
func NewAnalysisExecutor(synthesizer *CodeSynthesizer, runner ScriptRunner, logger func(string)) *AnalysisExecutor {
	return &AnalysisExecutor{synthesizer: synthesizer, runner: runner, logger: logger}
}

func (e *AnalysisExecutor) log(msg string) {
	if e.logger != nil {
		e.logger(msg)
	}
}

// buildScript prepends the pandas preamble that binds the normalized dataset
// file to the 'dataset' dataframe the generated code references.
func buildScript(datasetPath, code string) string {
	escapedPath := strings.ReplaceAll(datasetPath, `\`, `\\`)
	return fmt.Sprintf("import pandas as pd\n\ndataset = pd.read_csv('%s')\n%s\n", escapedPath, code)
}

// Execute runs up to maxAttempts synthesize-and-run cycles and returns the
// output of the last run. A still-failing final attempt returns its error
// output with a nil error so the caller can compose a best-effort reply;
// only a completion failure is an error.
func (e *AnalysisExecutor) Execute(ctx context.Context, history []*schema.Message, userMessage, datasetPath string) (string, error) {
	var output string
	errorContext := ""

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		result, err := e.synthesizer.GenerateAnalysis(ctx, history, userMessage, errorContext)
		if err != nil {
			return "", err
		}

		script := buildScript(datasetPath, result.Code)
		runOutput, ok := e.runner.Run(ctx, script)
		if ok {
			e.log(fmt.Sprintf("[EXECUTOR] Attempt %d succeeded", attempt))
			return runOutput, nil
		}

		output = fmt.Sprintf("%s: %s", errorOutputMarker, runOutput)
		errorContext += fmt.Sprintf("There was an error with the previous attempt at answering this prompt: %s Try number: %d\n", output, attempt)
		e.log(fmt.Sprintf("[EXECUTOR] Attempt %d failed, output: %s", attempt, runOutput))
	}

	e.log(fmt.Sprintf("[EXECUTOR] All %d attempts failed", maxAttempts))
	return output, nil
}
