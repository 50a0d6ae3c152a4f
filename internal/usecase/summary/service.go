package summary

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/gomtr72/question-generator/internal/domain"
	"github.com/gomtr72/question-generator/internal/metrics"
	"github.com/gomtr72/question-generator/internal/pacing"
	"github.com/gomtr72/question-generator/internal/structured"
)

// Config holds aggregation parameters.
type Config struct {
	Budget            int
	TopicLimit        int
	Model             string
	MaxTokens         int // per chunk and direct call
	CompressMaxTokens int
	Temperature       float64
	ChunkInterval     time.Duration // pause between consecutive backend calls
	MergeDelay        time.Duration // pause before merging chunk summaries
	Concurrency       int
}

// DefaultConfig returns the reference parameters.
func DefaultConfig() Config {
	return Config{
		Budget:            1000,
		TopicLimit:        domain.DefaultTopicLimit,
		MaxTokens:         500,
		CompressMaxTokens: 200,
		Temperature:       0.3,
		ChunkInterval:     time.Second,
		MergeDelay:        3 * time.Second,
		Concurrency:       1,
	}
}

var summarySchema = &structured.Schema{
	Name: "summary",
	Definition: map[string]any{
		"type":     "object",
		"required": []string{"summary", "topics"},
		"properties": map[string]any{
			"summary": map[string]any{"type": "string"},
			"topics": map[string]any{
				"type":  "array",
				"items": map[string]any{"type": "string"},
			},
		},
	},
}

// Option configures a Service.
type Option func(*Service)

// WithPacer replaces the per-invocation call pacer factory.
func WithPacer(newPacer func() pacing.Pacer) Option {
	return func(s *Service) { s.newPacer = newPacer }
}

// WithSleep replaces the merge-delay sleep.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(s *Service) { s.sleep = sleep }
}

// Service summarizes text into an AggregatedResult.
type Service struct {
	llm      Completer
	counter  TokenCounter
	splitter Splitter
	prompts  Prompts
	cfg      Config
	logger   *zap.Logger
	newPacer func() pacing.Pacer
	sleep    func(ctx context.Context, d time.Duration) error
}

// New creates a summary service.
func New(
	llm Completer, counter TokenCounter, splitter Splitter, prompts Prompts,
	cfg Config, logger *zap.Logger, opts ...Option,
) *Service {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if cfg.TopicLimit <= 0 {
		cfg.TopicLimit = domain.DefaultTopicLimit
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{
		llm:      llm,
		counter:  counter,
		splitter: splitter,
		prompts:  prompts,
		cfg:      cfg,
		logger:   logger,
		sleep:    pacing.Sleep,
	}
	s.newPacer = func() pacing.Pacer { return pacing.Every(s.cfg.ChunkInterval) }
	for _, o := range opts {
		o(s)
	}
	return s
}

// Aggregate summarizes text. A text within budget takes one direct call,
// longer text is chunked and summarized chunk by chunk.
func (s *Service) Aggregate(ctx context.Context, text string) (domain.AggregatedResult, error) {
	if s.counter.Count(text) <= s.cfg.Budget {
		return s.direct(ctx, text)
	}

	chunks, err := s.splitter.Split(text, s.cfg.Budget)
	if err != nil {
		return domain.AggregatedResult{}, fmt.Errorf("split text: %w", err)
	}
	return s.AggregateChunks(ctx, chunks)
}

// AggregateChunks summarizes each chunk and merges the results.
// A chunk whose call fails or whose response does not parse contributes nothing.
// If every chunk fails the result is empty with a nil error.
func (s *Service) AggregateChunks(ctx context.Context, chunks []domain.Chunk) (domain.AggregatedResult, error) {
	s.logger.Debug("Aggregating chunks", zap.Int("chunks", len(chunks)))

	partials := make([]*domain.PartialSummary, len(chunks))
	pacer := s.newPacer()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Concurrency)
	for i, c := range chunks {
		g.Go(func() error {
			if err := pacer.Wait(gctx); err != nil {
				return err
			}
			p, err := s.summarizeChunk(gctx, c)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				s.logger.Warn("Chunk summary skipped",
					zap.Int("chunk_index", c.Index),
					zap.Int("chunk_tokens", c.TokenCount),
					zap.Error(err),
				)
				metrics.ChunksTotal.WithLabelValues("skipped").Inc()
				return nil
			}
			metrics.ChunksTotal.WithLabelValues("ok").Inc()
			partials[i] = &p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return domain.AggregatedResult{}, fmt.Errorf("summarize chunks: %w", err)
	}

	// partials is indexed by chunk position, so order survives concurrent completion.
	summaries := make([]string, 0, len(partials))
	topicSets := make([][]string, 0, len(partials))
	for _, p := range partials {
		if p == nil {
			continue
		}
		summaries = append(summaries, p.Summary)
		topicSets = append(topicSets, p.Topics)
	}

	if len(summaries) == 0 {
		s.logger.Warn("All chunk summaries failed", zap.Int("chunks", len(chunks)))
		return domain.AggregatedResult{Topics: []string{}}, nil
	}

	if err := s.sleep(ctx, s.cfg.MergeDelay); err != nil {
		return domain.AggregatedResult{}, fmt.Errorf("merge delay: %w", err)
	}

	merged := strings.Join(summaries, " ")
	s.logger.Debug("Merged chunk summaries",
		zap.Int("succeeded", len(summaries)),
		zap.Int("skipped", len(chunks)-len(summaries)),
	)

	if s.counter.Count(merged) > s.cfg.Budget {
		compressed, err := s.compress(ctx, merged)
		if err != nil {
			return domain.AggregatedResult{}, err
		}
		merged = compressed
	}

	return domain.AggregatedResult{
		Summary: merged,
		Topics:  MergeTopics(s.cfg.TopicLimit, topicSets...),
	}, nil
}

func (s *Service) direct(ctx context.Context, text string) (domain.AggregatedResult, error) {
	p, err := s.prompts.Direct(text)
	if err != nil {
		return domain.AggregatedResult{}, fmt.Errorf("render direct prompt: %w", err)
	}

	var out domain.AggregatedResult
	if err := s.completeJSON(ctx, p, &out); err != nil {
		return domain.AggregatedResult{}, err
	}

	return domain.AggregatedResult{
		Summary: strings.TrimSpace(out.Summary),
		Topics:  MergeTopics(s.cfg.TopicLimit, out.Topics),
	}, nil
}

func (s *Service) summarizeChunk(ctx context.Context, c domain.Chunk) (domain.PartialSummary, error) {
	p, err := s.prompts.Chunk(c.Text)
	if err != nil {
		return domain.PartialSummary{}, fmt.Errorf("render chunk prompt: %w", err)
	}

	var out domain.AggregatedResult
	if err := s.completeJSON(ctx, p, &out); err != nil {
		return domain.PartialSummary{}, err
	}

	summary := strings.TrimSpace(out.Summary)
	if summary == "" {
		return domain.PartialSummary{}, &domain.SynthesisError{
			Stage:   domain.StageSummary,
			Kind:    domain.KindEmptyResult,
			Message: "chunk summary is empty",
		}
	}
	return domain.PartialSummary{ChunkIndex: c.Index, Summary: summary, Topics: out.Topics}, nil
}

func (s *Service) completeJSON(ctx context.Context, prompt string, dst *domain.AggregatedResult) error {
	res, err := s.llm.Complete(ctx, domain.CompletionRequest{
		Prompt:      prompt,
		MaxTokens:   s.cfg.MaxTokens,
		Temperature: s.cfg.Temperature,
		Model:       s.cfg.Model,
		JSON:        true,
	})
	if err != nil {
		return fmt.Errorf("summary completion: %w", err)
	}

	if err := structured.Decode(domain.StageSummary, res.Text, summarySchema, dst); err != nil {
		var se *domain.SynthesisError
		if errors.As(err, &se) {
			metrics.SynthesisFailuresTotal.WithLabelValues(string(se.Stage), string(se.Kind)).Inc()
		}
		return err
	}
	return nil
}

// compress re-chunks an over-budget summary and compresses each piece.
// Failures here are not isolated: the merged summary would be incomplete.
func (s *Service) compress(ctx context.Context, merged string) (string, error) {
	pieces, err := s.splitter.Split(merged, s.cfg.Budget)
	if err != nil {
		return "", fmt.Errorf("split merged summary: %w", err)
	}
	s.logger.Debug("Compressing merged summary", zap.Int("pieces", len(pieces)))

	pacer := s.newPacer()
	out := make([]string, 0, len(pieces))
	for _, piece := range pieces {
		if err := pacer.Wait(ctx); err != nil {
			return "", fmt.Errorf("compress: %w", err)
		}

		p, err := s.prompts.Compress(piece.Text)
		if err != nil {
			return "", fmt.Errorf("render compress prompt: %w", err)
		}
		res, err := s.llm.Complete(ctx, domain.CompletionRequest{
			Prompt:      p,
			MaxTokens:   s.cfg.CompressMaxTokens,
			Temperature: s.cfg.Temperature,
			Model:       s.cfg.Model,
		})
		if err != nil {
			return "", fmt.Errorf("compress piece %d: %w", piece.Index, err)
		}

		text := strings.TrimSpace(res.Text)
		if text == "" {
			metrics.SynthesisFailuresTotal.WithLabelValues(string(domain.StageCompress), string(domain.KindEmptyResult)).Inc()
			return "", &domain.SynthesisError{
				Stage:   domain.StageCompress,
				Kind:    domain.KindEmptyResult,
				Message: "compression returned no text",
				Details: map[string]any{"piece_index": piece.Index},
			}
		}
		out = append(out, text)
	}
	return strings.Join(out, " "), nil
}

// MergeTopics unions topic lists in order, deduplicating case-insensitively on
// trimmed labels and keeping the first spelling. Empty labels are dropped and
// at most limit topics are returned (limit <= 0 means no cap). The result is never nil.
func MergeTopics(limit int, lists ...[]string) []string {
	seen := make(map[string]bool)
	out := make([]string, 0, max(limit, 0))
	for _, list := range lists {
		for _, t := range list {
			t = strings.TrimSpace(t)
			if t == "" {
				continue
			}
			key := strings.ToLower(t)
			if seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, t)
			if len(out) == limit {
				return out
			}
		}
	}
	return out
}
