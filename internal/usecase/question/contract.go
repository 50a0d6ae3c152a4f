package question

import (
	"context"

	"github.com/gomtr72/question-generator/internal/domain"
)

// Completer submits a prompt to the LLM backend.
type Completer interface {
	Complete(ctx context.Context, req domain.CompletionRequest) (domain.Completion, error)
}

// Prompts renders the question synthesis prompt.
type Prompts interface {
	Questions(summary string, topics []string) (string, error)
}
