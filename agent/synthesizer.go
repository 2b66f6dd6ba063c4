package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// canvasBoilerplate is a statement models habitually emit even though the
// frontend owns the canvas context. It is stripped from generated chart code.
const canvasBoilerplate = "const ctx = document.getElementById('graph-container').getContext('2d');"

// CodeSynthesizer turns a routed chat turn into model output: Chart.js code,
// Python analysis code, or a plain conversational reply. Every call leads
// with the session history so the model sees the dataset context.
type CodeSynthesizer struct {
	chatModel ChatModel
	// maxTokens caps the analysis-path completion, the longest output the
	// pipeline requests. The other paths keep their smaller fixed caps.
	maxTokens int
	logger    func(string)
}

// NewCodeSynthesizer creates a CodeSynthesizer. maxTokens <= 0 falls back to
// the default analysis cap.
func NewCodeSynthesizer(chatModel ChatModel, maxTokens int, logger func(string)) *CodeSynthesizer {
	if maxTokens <= 0 {
		maxTokens = 2000
	}
	return &CodeSynthesizer{chatModel: chatModel, maxTokens: maxTokens, logger: logger}
}

func (s *CodeSynthesizer) log(msg string) {
	if s.logger != nil {
		s.logger(msg)
	}
}

func (s *CodeSynthesizer) generate(ctx context.Context, history []*schema.Message, prompt string, temperature float32, maxTokens int) (string, error) {
	messages := make([]*schema.Message, 0, len(history)+1)
	messages = append(messages, history...)
	messages = append(messages, &schema.Message{Role: schema.User, Content: prompt})

	resp, err := s.chatModel.Generate(ctx, messages,
		model.WithTemperature(temperature), model.WithMaxTokens(maxTokens))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(resp.Content), nil
}

const chartPromptTemplate = `Find the metadata of the dataset from previous context.
Please generate JavaScript code using Chart.js to plot a graph based on the user's request: %s.
The graph should have clearly labeled legends, clearly labeled axes and a sorted X-Axis.
Please include extensive console log statements in the code for debugging of all variables printing as strings in neat format.
The code should use the variable 'dataset' (already defined in the outer scope) to reference the data, and ensure the code uses this variable to populate the chart.
The code should be ready to execute in a React component and render the graph inside a given HTML container with id 'graph-container'.
If you need to preform numerical operations on values in the dataset, assume values are read in as strings and convert them to the type you need.
Ensure the code handles undefined or null values appropriately, avoiding errors such as trying to call methods on undefined or null values.
Do not redeclare the 'dataset' variable in the code. Do not include import statements, React component definitions, or any other extraneous content. Only include the JavaScript code to initialize and render the chart inside the 'graph-container' element.
Before giving the JavaScript code, could you also include a brief 1-2 sentence summary of the graph in this format:
Summary: [<summary>]`

// ChartResult is one synthesized chart turn.
type ChartResult struct {
	// Reply is the full model message, stored in session history.
	Reply string
	// Code is the extracted Chart.js snippet.
	Code string
	// Summary is the 1-2 sentence description accompanying the code.
	Summary string
}

// GenerateChart asks the model for Chart.js code answering userMessage.
// A reply without a javascript fence is used whole as code, with a
// synthesized summary.
func (s *CodeSynthesizer) GenerateChart(ctx context.Context, history []*schema.Message, userMessage string) (ChartResult, error) {
	prompt := fmt.Sprintf(chartPromptTemplate, userMessage)
	reply, err := s.generate(ctx, history, prompt, 0.1, 1000)
	if err != nil {
		return ChartResult{}, fmt.Errorf("failed to generate chart code: %w", err)
	}

	block := ExtractCodeBlock(reply, "javascript")

	var summary, code string
	if block.Found {
		summary = strings.TrimSpace(strings.ReplaceAll(block.Preamble, "Summary:", ""))
		code = block.Code
	} else {
		summary = fmt.Sprintf("This is a graph for query: %s", userMessage)
		code = block.Code
	}
	code = strings.TrimSpace(strings.ReplaceAll(code, canvasBoilerplate, ""))

	s.log(fmt.Sprintf("[SYNTH] Chart code generated (%d bytes)", len(code)))
	return ChartResult{Reply: reply, Code: code, Summary: summary}, nil
}

const analysisPromptTemplate = `%sFind the metadata of the dataset from previous context.
Please generate Python code to perform data analysis based on the user's request: %s.
The code should reference the pre-defined pandas dataframe 'dataset' (already defined in the outer scope).
Ensure the code handles undefined or null values appropriately, avoiding errors such as trying to call methods on undefined or null values.
Keep in mind that the dataset might contain columns with non-numerical values, so workaround this if it is the case.
If you need to preform numerical operations on values in the dataset, assume values are read in as strings and convert them to the type you need.
Include import statements for any necessary libraries, such as scipy.stats for statistical tests.
Include print statements for all the output results.
Do not include any other extraneous content. Only include the Python code to perform the requested analysis.
Before giving the Python code, could you also include a brief 1-2 sentence summary of the analysis to be performed.`

// AnalysisResult is one synthesized analysis script.
type AnalysisResult struct {
	Reply   string
	Code    string
	Summary string
}

// GenerateAnalysis asks the model for Python analysis code answering
// userMessage. errorContext carries the accumulated failure notes from
// earlier attempts and may be empty.
func (s *CodeSynthesizer) GenerateAnalysis(ctx context.Context, history []*schema.Message, userMessage, errorContext string) (AnalysisResult, error) {
	prompt := fmt.Sprintf(analysisPromptTemplate, errorContext, userMessage)
	reply, err := s.generate(ctx, history, prompt, 0.1, s.maxTokens)
	if err != nil {
		return AnalysisResult{}, fmt.Errorf("failed to generate analysis code: %w", err)
	}

	block := ExtractCodeBlock(reply, "python")

	var summary string
	if block.Found {
		summary = block.Preamble
	} else {
		summary = fmt.Sprintf("This is a data analysis for query: %s", userMessage)
	}

	s.log(fmt.Sprintf("[SYNTH] Analysis code generated (%d bytes)", len(block.Code)))
	return AnalysisResult{Reply: reply, Code: block.Code, Summary: summary}, nil
}

// GeneratePlain sends the user message as-is over the session history and
// returns the reply verbatim.
func (s *CodeSynthesizer) GeneratePlain(ctx context.Context, history []*schema.Message, userMessage string) (string, error) {
	reply, err := s.generate(ctx, history, userMessage, 0.5, 1000)
	if err != nil {
		return "", fmt.Errorf("failed to generate reply: %w", err)
	}
	return reply, nil
}
