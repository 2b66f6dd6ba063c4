package agent

import "strings"

// CodeBlock is the result of extracting a fenced code block from a model
// reply. When no fence is present the whole reply is treated as code and
// Found is false.
type CodeBlock struct {
	Found    bool
	Code     string
	Preamble string
}

// ExtractCodeBlock pulls the first code block fenced with the given language
// marker (e.g. "javascript", "python") out of text. Text before the opening
// fence is returned as the preamble. Extraction is idempotent: running it on
// already-extracted code returns that code unchanged.
func ExtractCodeBlock(text, language string) CodeBlock {
	marker := "```" + language
	before, after, found := strings.Cut(text, marker)
	if !found {
		return CodeBlock{Code: text}
	}

	code := after
	if closing, _, ok := strings.Cut(after, "```"); ok {
		code = closing
	}

	return CodeBlock{
		Found:    true,
		Code:     strings.TrimSpace(code),
		Preamble: before,
	}
}
