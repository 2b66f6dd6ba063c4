package agent

import (
	"context"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"datachat/dataset"
)

// fakeChatModel replays scripted replies and records every request along
// with the per-call token cap.
type fakeChatModel struct {
	replies   []string
	err       error
	calls     [][]*schema.Message
	maxTokens []*int
}

func (f *fakeChatModel) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	f.calls = append(f.calls, input)
	f.maxTokens = append(f.maxTokens, model.GetCommonOptions(&model.Options{}, opts...).MaxTokens)
	if f.err != nil {
		return nil, f.err
	}
	reply := ""
	if len(f.replies) > 0 {
		reply = f.replies[0]
		f.replies = f.replies[1:]
	}
	return &schema.Message{Role: schema.Assistant, Content: reply}, nil
}

// lastPrompt returns the content of the final message of call i.
func (f *fakeChatModel) lastPrompt(i int) string {
	call := f.calls[i]
	return call[len(call)-1].Content
}

// fakeRunner replays scripted run results and records every script.
type fakeRunner struct {
	outputs []string
	oks     []bool
	scripts []string
}

func (f *fakeRunner) Run(ctx context.Context, source string) (string, bool) {
	i := len(f.scripts)
	f.scripts = append(f.scripts, source)
	if i >= len(f.outputs) {
		return "", true
	}
	return f.outputs[i], f.oks[i]
}

// fakeSource is an in-memory MetadataSource.
type fakeSource struct {
	metadata []dataset.Column
	summary  string
	path     string
	err      error
}

func (f *fakeSource) Metadata(pkg, filename string) ([]dataset.Column, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.metadata, nil
}

func (f *fakeSource) Summary(pkg string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.summary, nil
}

func (f *fakeSource) NormalizedPath(pkg, filename string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.path, nil
}
