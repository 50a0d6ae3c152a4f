package question

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/gomtr72/question-generator/internal/domain"
	"github.com/gomtr72/question-generator/internal/metrics"
	"github.com/gomtr72/question-generator/internal/structured"
)

// Config holds synthesis call parameters.
type Config struct {
	Model       string
	MaxTokens   int
	Temperature float64
}

// DefaultConfig returns the reference parameters.
func DefaultConfig() Config {
	return Config{MaxTokens: 2000, Temperature: 0.7}
}

func choiceSchema() map[string]any {
	return map[string]any{
		"type":     "object",
		"required": []string{"text", "closeness_score"},
		"properties": map[string]any{
			"text":            map[string]any{"type": "string", "minLength": 1},
			"closeness_score": map[string]any{"type": "integer", "minimum": 0, "maximum": 100},
		},
	}
}

var questionsSchema = &structured.Schema{
	Name: "questions",
	Definition: map[string]any{
		"type":     "object",
		"required": []string{"questions"},
		"properties": map[string]any{
			"questions": map[string]any{
				"type":     "array",
				"minItems": domain.QuestionsPerSynthesis,
				"maxItems": domain.QuestionsPerSynthesis,
				"items": map[string]any{
					"type":     "object",
					"required": []string{"prompt_text", "choices", "correct_label", "rationale"},
					"properties": map[string]any{
						"prompt_text": map[string]any{"type": "string", "minLength": 1},
						"choices": map[string]any{
							"type":                 "object",
							"required":             domain.ChoiceLabels,
							"additionalProperties": false,
							"properties": map[string]any{
								"A": choiceSchema(),
								"B": choiceSchema(),
								"C": choiceSchema(),
								"D": choiceSchema(),
								"E": choiceSchema(),
							},
						},
						"correct_label": map[string]any{"type": "string", "enum": domain.ChoiceLabels},
						"rationale": map[string]any{
							"type":     "object",
							"required": []string{"correct_explanation", "incorrect_explanation"},
							"properties": map[string]any{
								"correct_explanation":   map[string]any{"type": "string"},
								"incorrect_explanation": map[string]any{"type": "string"},
							},
						},
					},
				},
			},
		},
	},
}

type response struct {
	Questions []domain.Question `json:"questions"`
}

// Service synthesizes comprehension questions from a summary.
type Service struct {
	llm     Completer
	prompts Prompts
	cfg     Config
	logger  *zap.Logger
	newID   func() string
}

// New creates a question service.
func New(llm Completer, prompts Prompts, cfg Config, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		llm:     llm,
		prompts: prompts,
		cfg:     cfg,
		logger:  logger,
		newID:   func() string { return uuid.NewString() },
	}
}

// Synthesize issues one structured call and returns exactly three questions.
// Responses that fail parsing, shape or the closeness invariant are rejected, never corrected.
func (s *Service) Synthesize(ctx context.Context, summary string, topics []string) ([]domain.Question, error) {
	p, err := s.prompts.Questions(summary, topics)
	if err != nil {
		return nil, fmt.Errorf("render questions prompt: %w", err)
	}

	res, err := s.llm.Complete(ctx, domain.CompletionRequest{
		Prompt:      p,
		MaxTokens:   s.cfg.MaxTokens,
		Temperature: s.cfg.Temperature,
		Model:       s.cfg.Model,
		JSON:        true,
	})
	if err != nil {
		return nil, fmt.Errorf("questions completion: %w", err)
	}

	var out response
	if err := structured.Decode(domain.StageQuestions, res.Text, questionsSchema, &out); err != nil {
		s.reject(err)
		return nil, err
	}

	for i := range out.Questions {
		q := &out.Questions[i]
		if err := q.CheckInvariant(); err != nil {
			top, _ := q.TopChoice()
			verr := &domain.SynthesisError{
				Stage:   domain.StageQuestions,
				Kind:    domain.KindInvariantViolation,
				Message: fmt.Sprintf("question %d: %v", i+1, err),
				Details: map[string]any{
					"question_index": i,
					"correct_label":  q.CorrectLabel,
					"top_label":      top,
				},
			}
			s.reject(verr)
			return nil, verr
		}
		q.ID = s.newID()
	}

	s.logger.Debug("Questions synthesized",
		zap.Int("questions", len(out.Questions)),
		zap.Int("topics", len(topics)),
		zap.Int("total_tokens", res.TotalTokens),
	)
	return out.Questions, nil
}

func (s *Service) reject(err error) {
	var se *domain.SynthesisError
	if !errors.As(err, &se) {
		return
	}
	metrics.SynthesisFailuresTotal.WithLabelValues(string(se.Stage), string(se.Kind)).Inc()
	s.logger.Warn("Questions rejected",
		zap.String("kind", string(se.Kind)),
		zap.Error(err),
	)
}
