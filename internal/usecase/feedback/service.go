package feedback

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/gomtr72/question-generator/internal/domain"
	"github.com/gomtr72/question-generator/internal/metrics"
)

// Config holds feedback call parameters.
type Config struct {
	Model       string
	MaxTokens   int
	Temperature float64
}

// DefaultConfig returns the reference parameters.
func DefaultConfig() Config {
	return Config{MaxTokens: 2000, Temperature: 0.7}
}

// Service generates pedagogical feedback for an assessed question.
type Service struct {
	llm     Completer
	prompts Prompts
	cfg     Config
	logger  *zap.Logger
}

// New creates a feedback service.
func New(llm Completer, prompts Prompts, cfg Config, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{llm: llm, prompts: prompts, cfg: cfg, logger: logger}
}

// Generate issues one free-text call. The response is not parsed, only checked for being non-empty.
func (s *Service) Generate(ctx context.Context, question, modelLevel, userLevel string) (domain.Feedback, error) {
	required := []struct{ field, value string }{
		{"question", question},
		{"gpt_level", modelLevel},
		{"user_level", userLevel},
	}
	for _, r := range required {
		if strings.TrimSpace(r.value) == "" {
			return domain.Feedback{}, domain.NewValidationError(r.field, "is required")
		}
	}

	p, err := s.prompts.Feedback(question, modelLevel, userLevel)
	if err != nil {
		return domain.Feedback{}, fmt.Errorf("render feedback prompt: %w", err)
	}

	res, err := s.llm.Complete(ctx, domain.CompletionRequest{
		Prompt:      p,
		MaxTokens:   s.cfg.MaxTokens,
		Temperature: s.cfg.Temperature,
		Model:       s.cfg.Model,
	})
	if err != nil {
		return domain.Feedback{}, fmt.Errorf("feedback completion: %w", err)
	}

	text := strings.TrimSpace(res.Text)
	if text == "" {
		metrics.SynthesisFailuresTotal.WithLabelValues(string(domain.StageFeedback), string(domain.KindEmptyResult)).Inc()
		s.logger.Warn("Empty feedback response", zap.String("model", res.Model))
		return domain.Feedback{}, &domain.SynthesisError{
			Stage:   domain.StageFeedback,
			Kind:    domain.KindEmptyResult,
			Message: "model returned empty feedback",
		}
	}

	return domain.Feedback{
		QuestionRef:        question,
		ModelAssessedLevel: modelLevel,
		UserAssessedLevel:  userLevel,
		Text:               text,
	}, nil
}
