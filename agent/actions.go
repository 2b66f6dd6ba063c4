// Package agent implements the conversational analysis pipeline: intent
// classification, code synthesis, sandboxed script execution with bounded
// retry, response composition, and bounded session history.
package agent

// Action is the routing decision for one chat turn.
type Action int

const (
	// ActionNone answers conversationally without generating code.
	ActionNone Action = iota
	// ActionGraph generates Chart.js code for the frontend to render.
	ActionGraph
	// ActionAnalysis generates and executes a Python analysis script.
	ActionAnalysis
)

// Classifier answer tokens. The model is instructed to reply with exactly one
// of these after an "Answer:" marker.
const (
	tokenNone     = "DONT_GENERATE_GRAPH_OR_CODE"
	tokenGraph    = "GENERATE_GRAPH"
	tokenAnalysis = "PREFORM_PYTHON_ANALYSIS"
)

func (a Action) String() string {
	switch a {
	case ActionGraph:
		return tokenGraph
	case ActionAnalysis:
		return tokenAnalysis
	default:
		return tokenNone
	}
}
