package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// ResponseComposer turns raw script output into a plain-language answer.
type ResponseComposer struct {
	chatModel ChatModel
	logger    func(string)
}

// NewResponseComposer creates a ResponseComposer.
func NewResponseComposer(chatModel ChatModel, logger func(string)) *ResponseComposer {
	return &ResponseComposer{chatModel: chatModel, logger: logger}
}

const composePromptTemplate = `The user has asked the following question: "%s".
Python code was ran, generating an output.
The output of the Python code is: "%s".
Please generate a concise and clear response to the user's question incorporating the output.
Please tailor your response around answering the question to someone who might not understand all scientific terms.`

// ComposeAnalysis asks the model for a reader-friendly answer built from the
// user's question and the final script output. The call deliberately omits
// session history; question and output carry all needed context.
func (c *ResponseComposer) ComposeAnalysis(ctx context.Context, userMessage, output string) (string, error) {
	messages := []*schema.Message{
		{
			Role:    schema.System,
			Content: "You are an assistant that generates clear and concise responses based on the given information.",
		},
		{
			Role:    schema.User,
			Content: fmt.Sprintf(composePromptTemplate, userMessage, output),
		},
	}

	resp, err := c.chatModel.Generate(ctx, messages,
		model.WithTemperature(0.5), model.WithMaxTokens(500))
	if err != nil {
		return "", fmt.Errorf("failed to compose analysis response: %w", err)
	}

	reply := strings.TrimSpace(resp.Content)
	if c.logger != nil {
		c.logger(fmt.Sprintf("[COMPOSER] Composed reply (%d bytes)", len(reply)))
	}
	return reply, nil
}
