package pipeline

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/gomtr72/question-generator/internal/domain"
	"github.com/gomtr72/question-generator/internal/metrics"
)

// Service runs extract -> aggregate -> synthesize for one source.
type Service struct {
	extractor   Extractor
	aggregator  Aggregator
	synthesizer Synthesizer
	timeout     time.Duration
	logger      *zap.Logger
}

// New creates a pipeline service. A non-positive timeout disables the request deadline.
func New(
	extractor Extractor, aggregator Aggregator, synthesizer Synthesizer,
	timeout time.Duration, logger *zap.Logger,
) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		extractor:   extractor,
		aggregator:  aggregator,
		synthesizer: synthesizer,
		timeout:     timeout,
		logger:      logger,
	}
}

// Process validates the source and produces a quiz.
func (s *Service) Process(ctx context.Context, src domain.Source) (domain.Quiz, error) {
	if err := src.Validate(); err != nil {
		return domain.Quiz{}, err
	}

	start := time.Now()
	quiz, err := s.process(ctx, src)

	status := "ok"
	if err != nil {
		status = "error"
	}
	metrics.PipelineDuration.WithLabelValues(string(src.Type), status).Observe(time.Since(start).Seconds())
	return quiz, err
}

func (s *Service) process(ctx context.Context, src domain.Source) (domain.Quiz, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	text, err := s.extractor.Extract(ctx, src)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = ctxErr
		}
		return domain.Quiz{}, fmt.Errorf("extract %s: %w", src.Type, err)
	}
	s.logger.Debug("Content extracted",
		zap.String("type", string(src.Type)),
		zap.Int("chars", len(text)),
	)

	agg, err := s.aggregator.Aggregate(ctx, text)
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("aggregate: %w", err)
	}
	if agg.Empty() {
		return domain.Quiz{}, &domain.SynthesisError{
			Stage:   domain.StageSummary,
			Kind:    domain.KindEmptyResult,
			Message: "no summary could be generated",
		}
	}

	questions, err := s.synthesizer.Synthesize(ctx, agg.Summary, agg.Topics)
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("synthesize: %w", err)
	}

	s.logger.Info("Quiz generated",
		zap.String("type", string(src.Type)),
		zap.Int("topics", len(agg.Topics)),
		zap.Int("questions", len(questions)),
	)

	return domain.Quiz{
		Summary:   agg.Summary,
		Topics:    agg.Topics,
		Questions: questions,
	}, nil
}
