package chi

import (
	"context"

	"github.com/gomtr72/question-generator/internal/domain"
)

// Pipeline turns a source into a quiz.
type Pipeline interface {
	Process(ctx context.Context, src domain.Source) (domain.Quiz, error)
}

// FeedbackGenerator produces feedback for an assessed question.
type FeedbackGenerator interface {
	Generate(ctx context.Context, question, modelLevel, userLevel string) (domain.Feedback, error)
}
