package feedback

import (
	"context"

	"github.com/gomtr72/question-generator/internal/domain"
)

// Completer submits a prompt to the LLM backend.
type Completer interface {
	Complete(ctx context.Context, req domain.CompletionRequest) (domain.Completion, error)
}

// Prompts renders the feedback prompt.
type Prompts interface {
	Feedback(question, modelLevel, userLevel string) (string, error)
}
