package summary

import (
	"context"

	"github.com/gomtr72/question-generator/internal/domain"
)

// Completer submits a prompt to the LLM backend.
type Completer interface {
	Complete(ctx context.Context, req domain.CompletionRequest) (domain.Completion, error)
}

// TokenCounter measures text length in budget units.
type TokenCounter interface {
	Count(text string) int
}

// Splitter cuts text into budget-bounded chunks.
type Splitter interface {
	Split(text string, budget int) ([]domain.Chunk, error)
}

// Prompts renders the summarization prompts.
type Prompts interface {
	Chunk(text string) (string, error)
	Direct(text string) (string, error)
	Compress(text string) (string, error)
}
