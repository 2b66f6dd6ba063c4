package agent

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cloudwego/eino/schema"

	"datachat/dataset"
)

// MetadataSource is the dataset catalog view the orchestrator needs: column
// metadata, a narrative summary per package, and the normalized file the
// analysis scripts load.
type MetadataSource interface {
	Metadata(pkg, filename string) ([]dataset.Column, error)
	Summary(pkg string) (string, error)
	NormalizedPath(pkg, filename string) (string, error)
}

// ChatRequest is one inbound chat turn.
type ChatRequest struct {
	Message  string `json:"message"`
	Package  string `json:"package"`
	Filename string `json:"filename"`
}

// ChatResponse is the envelope returned for every turn. A failed turn
// carries only Error; a successful turn never does.
type ChatResponse struct {
	Reply     string `json:"reply,omitempty"`
	SessionID string `json:"sessionId,omitempty"`
	GraphCode string `json:"graphCode,omitempty"`
	Summary   string `json:"summary,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Orchestrator wires the pipeline together and owns the turn lifecycle:
// resolve dataset context, load the session, classify, dispatch, commit.
type Orchestrator struct {
	source      MetadataSource
	classifier  *IntentClassifier
	synthesizer *CodeSynthesizer
	executor    *AnalysisExecutor
	composer    *ResponseComposer
	sessions    *SessionStore
	logger      func(string)
}

// NewOrchestrator creates an Orchestrator over an already-wired pipeline.
func NewOrchestrator(source MetadataSource, classifier *IntentClassifier, synthesizer *CodeSynthesizer, executor *AnalysisExecutor, composer *ResponseComposer, sessions *SessionStore, logger func(string)) *Orchestrator {
	return &Orchestrator{
		source:      source,
		classifier:  classifier,
		synthesizer: synthesizer,
		executor:    executor,
		composer:    composer,
		sessions:    sessions,
		logger:      logger,
	}
}

func (o *Orchestrator) log(msg string) {
	if o.logger != nil {
		o.logger(msg)
	}
}

// trimmedColumn is the reduced column view embedded in the system seed.
// Numeric columns omit their value lists to keep the prompt compact.
type trimmedColumn struct {
	Column          string        `json:"column"`
	DataType        string        `json:"data_type"`
	PotentialValues []interface{} `json:"potential_values,omitempty"`
}

func trimMetadata(columns []dataset.Column) []trimmedColumn {
	trimmed := make([]trimmedColumn, 0, len(columns))
	for _, col := range columns {
		tc := trimmedColumn{Column: col.Name, DataType: col.Type}
		if col.Type != "float64" {
			tc.PotentialValues = col.PotentialValues
		}
		trimmed = append(trimmed, tc)
	}
	return trimmed
}

const systemSeedTemplate = `You are a chatbot built to help people understand this dataset. You should take on the role of a teacher, treating the user as your student.
Keep your responses concise, and use natural language when explaining complex topics, unless the user requests detailed analysis.
If the user asks what you are capable of, let them know that you can answer questions about the dataset, its context, do statistical analysis of it, and generate graphs.

Summary of the dataset:
%s

You are also provided with the metadata of the dataset, which includes columns, data types, and potential values.
Metadata of the dataset: %s`

// HandleChat runs one chat turn end to end and always returns an envelope,
// never an error. Failures before the session commit leave the store
// untouched.
func (o *Orchestrator) HandleChat(ctx context.Context, token string, req ChatRequest) (resp ChatResponse) {
	defer func() {
		if r := recover(); r != nil {
			o.log(fmt.Sprintf("[CHAT] Panic in chat turn: %v", r))
			resp = ChatResponse{Error: fmt.Sprintf("internal error: %v", r)}
		}
	}()

	metadata, err := o.source.Metadata(req.Package, req.Filename)
	if err != nil {
		o.log(fmt.Sprintf("[CHAT] Metadata lookup failed: %v", err))
		return ChatResponse{Error: err.Error()}
	}

	summary, err := o.source.Summary(req.Package)
	if err != nil {
		o.log(fmt.Sprintf("[CHAT] Summary lookup failed: %v", err))
		return ChatResponse{Error: err.Error()}
	}

	metadataJSON, err := json.Marshal(trimMetadata(metadata))
	if err != nil {
		return ChatResponse{Error: fmt.Sprintf("failed to encode metadata: %v", err)}
	}

	sessionID := SessionKey(req.Package, req.Filename, token)
	seed := []*schema.Message{{
		Role:    schema.System,
		Content: fmt.Sprintf(systemSeedTemplate, summary, string(metadataJSON)),
	}}
	history := o.sessions.GetOrCreate(sessionID, seed)

	action, err := o.classifier.Classify(ctx, req.Message, lastTurns(history, 4))
	if err != nil {
		o.log(fmt.Sprintf("[CHAT] Classification failed: %v", err))
		return ChatResponse{Error: err.Error()}
	}

	switch action {
	case ActionGraph:
		return o.handleGraph(ctx, sessionID, history, req)
	case ActionAnalysis:
		return o.handleAnalysis(ctx, sessionID, history, req)
	default:
		return o.handlePlain(ctx, sessionID, history, req)
	}
}

func (o *Orchestrator) handleGraph(ctx context.Context, sessionID string, history []*schema.Message, req ChatRequest) ChatResponse {
	result, err := o.synthesizer.GenerateChart(ctx, history, req.Message)
	if err != nil {
		o.log(fmt.Sprintf("[CHAT] Chart generation failed: %v", err))
		return ChatResponse{Error: err.Error()}
	}

	o.sessions.Commit(sessionID, AppendTurn(history, req.Message, result.Reply))
	return ChatResponse{
		Reply:     result.Reply,
		SessionID: sessionID,
		GraphCode: result.Code,
		Summary:   result.Summary,
	}
}

func (o *Orchestrator) handleAnalysis(ctx context.Context, sessionID string, history []*schema.Message, req ChatRequest) ChatResponse {
	datasetPath, err := o.source.NormalizedPath(req.Package, req.Filename)
	if err != nil {
		o.log(fmt.Sprintf("[CHAT] Normalized path lookup failed: %v", err))
		return ChatResponse{Error: err.Error()}
	}

	output, err := o.executor.Execute(ctx, history, req.Message, datasetPath)
	if err != nil {
		o.log(fmt.Sprintf("[CHAT] Analysis execution failed: %v", err))
		return ChatResponse{Error: err.Error()}
	}

	reply, err := o.composer.ComposeAnalysis(ctx, req.Message, output)
	if err != nil {
		o.log(fmt.Sprintf("[CHAT] Response composition failed: %v", err))
		return ChatResponse{Error: err.Error()}
	}

	// The raw output stays in the history as hidden context so follow-up
	// questions can reference exact numbers.
	assistantTurn := fmt.Sprintf("Raw Python script output: %s\n%s", output, reply)
	o.sessions.Commit(sessionID, AppendTurn(history, req.Message, assistantTurn))
	return ChatResponse{Reply: reply, SessionID: sessionID}
}

func (o *Orchestrator) handlePlain(ctx context.Context, sessionID string, history []*schema.Message, req ChatRequest) ChatResponse {
	reply, err := o.synthesizer.GeneratePlain(ctx, history, req.Message)
	if err != nil {
		o.log(fmt.Sprintf("[CHAT] Reply generation failed: %v", err))
		return ChatResponse{Error: err.Error()}
	}

	o.sessions.Commit(sessionID, AppendTurn(history, req.Message, reply))
	return ChatResponse{Reply: reply, SessionID: sessionID}
}

// lastTurns returns the trailing n messages of a history.
func lastTurns(history []*schema.Message, n int) []*schema.Message {
	if len(history) <= n {
		return history
	}
	return history[len(history)-n:]
}
