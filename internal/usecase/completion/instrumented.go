package completion

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/gomtr72/question-generator/internal/domain"
	"github.com/gomtr72/question-generator/internal/metrics"
	"github.com/gomtr72/question-generator/internal/pacing"
)

// BudgetChecker is the local interface for budget enforcement.
type BudgetChecker interface {
	Check(ctx context.Context) error
	Record(tokens int64)
	RemainingDaily() int64
	RemainingMonthly() int64
}

// Instrumented wraps a Completer with budget enforcement, metrics and logging.
// It also adds each call's tokens to the request's domain.CompletionUsage.
type Instrumented struct {
	inner    domain.Completer
	provider string
	model    string
	budget   BudgetChecker
	logger   *zap.Logger
}

// NewInstrumented wraps inner. budget may be nil.
func NewInstrumented(
	inner domain.Completer, provider, model string,
	budget BudgetChecker, logger *zap.Logger,
) *Instrumented {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Instrumented{
		inner:    inner,
		provider: provider,
		model:    model,
		budget:   budget,
		logger:   logger,
	}
}

// Complete checks the budget, delegates and records usage.
func (p *Instrumented) Complete(ctx context.Context, req domain.CompletionRequest) (domain.Completion, error) {
	if p.budget != nil {
		if err := p.budget.Check(ctx); err != nil {
			p.logger.Error("Budget exceeded",
				zap.String("provider", p.provider),
				zap.String("model", p.model),
				zap.Error(err),
			)
			return domain.Completion{}, fmt.Errorf("budget check: %w", err)
		}
	}

	model := req.Model
	if model == "" {
		model = p.model
	}

	start := time.Now()
	res, err := p.inner.Complete(ctx, req)
	duration := time.Since(start)

	metrics.ObserveCompletion(p.provider, model, duration.Seconds(), res.PromptTokens, res.CompletionTokens, err)

	if err != nil {
		metrics.LLMErrorsTotal.WithLabelValues(p.provider, model, errorType(err)).Inc()
		p.logger.Error("Completion request failed",
			zap.String("provider", p.provider),
			zap.String("model", model),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		return domain.Completion{}, fmt.Errorf("complete: %w", err)
	}

	if p.budget != nil && res.TotalTokens > 0 {
		p.budget.Record(int64(res.TotalTokens))
		remaining := metrics.LLMBudgetTokensRemaining
		remaining.WithLabelValues(p.provider, "daily").Set(float64(p.budget.RemainingDaily()))
		remaining.WithLabelValues(p.provider, "monthly").Set(float64(p.budget.RemainingMonthly()))
	}
	domain.UsageFromContext(ctx).Add(res.TotalTokens)

	p.logger.Debug("Completion request completed",
		zap.String("provider", p.provider),
		zap.String("model", model),
		zap.Duration("duration", duration),
		zap.Int("prompt_tokens", res.PromptTokens),
		zap.Int("completion_tokens", res.CompletionTokens),
	)
	return res, nil
}

// HealthCheck delegates to the inner completer when it supports health checks.
func (p *Instrumented) HealthCheck(ctx context.Context) error {
	if hc, ok := p.inner.(domain.HealthChecker); ok {
		return hc.HealthCheck(ctx) //nolint:wrapcheck // passthrough
	}
	return nil
}

func errorType(err error) string {
	switch {
	case errors.Is(err, domain.ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return "timeout"
	case errors.Is(err, domain.ErrBackend):
		return "backend"
	default:
		return "other"
	}
}

// RateLimited shares one pacer across every call to the inner completer.
type RateLimited struct {
	inner domain.Completer
	pacer pacing.Pacer
}

// NewRateLimited allows at most rps calls per second to inner. rps <= 0 disables limiting.
func NewRateLimited(inner domain.Completer, rps float64) *RateLimited {
	return &RateLimited{inner: inner, pacer: pacing.PerSecond(rps)}
}

// Complete waits for the pacer, then delegates.
func (r *RateLimited) Complete(ctx context.Context, req domain.CompletionRequest) (domain.Completion, error) {
	if err := r.pacer.Wait(ctx); err != nil {
		return domain.Completion{}, fmt.Errorf("rate limit: %w", err)
	}
	return r.inner.Complete(ctx, req) //nolint:wrapcheck // decorator
}

// HealthCheck delegates to the inner completer when it supports health checks.
func (r *RateLimited) HealthCheck(ctx context.Context) error {
	if hc, ok := r.inner.(domain.HealthChecker); ok {
		return hc.HealthCheck(ctx) //nolint:wrapcheck // passthrough
	}
	return nil
}
