package agent

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

var answerPattern = regexp.MustCompile(`Answer: (\w+)`)

// IntentClassifier decides whether a chat turn needs a graph, a Python
// analysis, or a plain conversational answer.
type IntentClassifier struct {
	chatModel ChatModel
	logger    func(string)
}

// NewIntentClassifier creates an IntentClassifier.
func NewIntentClassifier(chatModel ChatModel, logger func(string)) *IntentClassifier {
	return &IntentClassifier{chatModel: chatModel, logger: logger}
}

func (c *IntentClassifier) log(msg string) {
	if c.logger != nil {
		c.logger(msg)
	}
}

const classifyPromptTemplate = `The user has sent the following message: "%s".
Please answer:
'GENERATE_GRAPH', if the user's message would be best answered by generating a graph.
'PREFORM_PYTHON_ANALYSIS', if the user's message would be best answered by running code to analyze the dataset, for all questions that require calculations done on the dataset.
'DONT_GENERATE_GRAPH_OR_CODE', otherwise.
Please make sure your answer has this format: Answer: <answer>
Please also include a brief explanation of your answer.`

// Classify runs one completion over the recent history and resolves the
// model's answer to an Action. Ambiguous or missing answers resolve to
// ActionNone; only the completion call itself can fail.
func (c *IntentClassifier) Classify(ctx context.Context, userMessage string, history []*schema.Message) (Action, error) {
	messages := make([]*schema.Message, 0, len(history)+2)
	messages = append(messages, &schema.Message{
		Role:    schema.System,
		Content: "You are an assistant that determines user intent.",
	})
	messages = append(messages, history...)
	messages = append(messages, &schema.Message{
		Role:    schema.User,
		Content: fmt.Sprintf(classifyPromptTemplate, userMessage),
	})

	resp, err := c.chatModel.Generate(ctx, messages,
		model.WithTemperature(0.1), model.WithMaxTokens(1000))
	if err != nil {
		return ActionNone, fmt.Errorf("failed to classify intent: %w", err)
	}

	reply := strings.TrimSpace(resp.Content)
	c.log(fmt.Sprintf("[CLASSIFIER] Reply: %s", reply))

	action := resolveAction(reply)
	c.log(fmt.Sprintf("[CLASSIFIER] Action: %s", action))
	return action, nil
}

// resolveAction maps a classifier reply to an Action. The answer token is
// taken from the "Answer: <word>" marker; a reply without the marker is
// ActionNone. Containment checks run in a fixed priority order because the
// no-action token contains the graph token as a substring.
func resolveAction(reply string) Action {
	m := answerPattern.FindStringSubmatch(reply)
	if m == nil {
		return ActionNone
	}
	answer := m[1]

	switch {
	case strings.Contains(answer, tokenNone):
		return ActionNone
	case strings.Contains(answer, tokenGraph):
		return ActionGraph
	case strings.Contains(answer, tokenAnalysis):
		return ActionAnalysis
	default:
		return ActionNone
	}
}
