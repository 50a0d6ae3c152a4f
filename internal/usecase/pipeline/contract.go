package pipeline

import (
	"context"

	"github.com/gomtr72/question-generator/internal/domain"
)

// Extractor turns a source into plain text.
type Extractor interface {
	Extract(ctx context.Context, src domain.Source) (string, error)
}

// Aggregator summarizes text into a summary and topic set.
type Aggregator interface {
	Aggregate(ctx context.Context, text string) (domain.AggregatedResult, error)
}

// Synthesizer turns a summary and topics into questions.
type Synthesizer interface {
	Synthesize(ctx context.Context, summary string, topics []string) ([]domain.Question, error)
}
