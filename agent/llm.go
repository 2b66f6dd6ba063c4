package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"datachat/config"
)

// ChatModel is the completion interface the pipeline consumes. It is the
// Generate subset of eino's chat model, which keeps tests on hand-rolled
// fakes.
type ChatModel interface {
	Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error)
}

// NewChatModel builds the configured chat model. "OpenAI" talks to the
// default endpoint; "OpenAI-Compatible" points the same client at a custom
// base URL.
func NewChatModel(ctx context.Context, cfg config.Config) (ChatModel, error) {
	switch cfg.LLMProvider {
	case "OpenAI", "OpenAI-Compatible", "":
		conf := &openai.ChatModelConfig{
			APIKey:  cfg.APIKey,
			Model:   cfg.ModelName,
			Timeout: 5 * time.Minute,
		}
		if cfg.BaseURL != "" {
			conf.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
		}
		chatModel, err := openai.NewChatModel(ctx, conf)
		if err != nil {
			return nil, fmt.Errorf("failed to create chat model: %v", err)
		}
		return chatModel, nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.LLMProvider)
	}
}
