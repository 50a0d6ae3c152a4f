package questiongen

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gomtr72/question-generator/internal/chunker"
	"github.com/gomtr72/question-generator/internal/db"
	dbRedis "github.com/gomtr72/question-generator/internal/db/redis"
	"github.com/gomtr72/question-generator/internal/domain"
	"github.com/gomtr72/question-generator/internal/extract"
	"github.com/gomtr72/question-generator/internal/prompt"
	budgetrepo "github.com/gomtr72/question-generator/internal/repository/budget"
	"github.com/gomtr72/question-generator/internal/tokenizer"
	anthropicllm "github.com/gomtr72/question-generator/internal/transport/anthropic"
	geminillm "github.com/gomtr72/question-generator/internal/transport/gemini"
	openaillm "github.com/gomtr72/question-generator/internal/transport/openai"
	completionuc "github.com/gomtr72/question-generator/internal/usecase/completion"
	feedbackuc "github.com/gomtr72/question-generator/internal/usecase/feedback"
	healthuc "github.com/gomtr72/question-generator/internal/usecase/health"
	pipelineuc "github.com/gomtr72/question-generator/internal/usecase/pipeline"
	questionuc "github.com/gomtr72/question-generator/internal/usecase/question"
	summaryuc "github.com/gomtr72/question-generator/internal/usecase/summary"
	usageuc "github.com/gomtr72/question-generator/internal/usecase/usage"
)

const (
	defaultReadinessTimeout = 10 * time.Second
	customProvider          = "custom"
)

// Internal interfaces, replaced in tests.
type pipelineUseCase interface {
	Process(ctx context.Context, src domain.Source) (domain.Quiz, error)
}

type summaryUseCase interface {
	Aggregate(ctx context.Context, text string) (domain.AggregatedResult, error)
}

type questionUseCase interface {
	Synthesize(ctx context.Context, summary string, topics []string) ([]domain.Question, error)
}

type feedbackUseCase interface {
	Generate(ctx context.Context, question, modelLevel, userLevel string) (domain.Feedback, error)
}

// Client is the SDK entry point.
type Client struct {
	store       db.Store
	pipelineSvc pipelineUseCase
	summarySvc  summaryUseCase
	questionSvc questionUseCase
	feedbackSvc feedbackUseCase
	healthSvc   healthUseCase
	usageSvc    usageUseCase
	obs         *observer
}

// New creates a Client. The provided context is used for backend setup
// and the Redis readiness check.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := defaultConfig()
	for _, o := range opts {
		o.apply(cfg)
	}

	llm, provider, model, err := createCompleter(ctx, cfg)
	if err != nil {
		return nil, err
	}

	counter := cfg.counter
	if counter == nil {
		tk, err := tokenizer.New(tokenizer.DefaultEncoding)
		if err != nil {
			return nil, fmt.Errorf("questiongen: %w", err)
		}
		counter = tk
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}

	var store db.Store
	if len(cfg.redisAddrs) > 0 {
		s, err := dbRedis.NewStore(dbRedis.Config{Addrs: cfg.redisAddrs, Password: cfg.redisPassword})
		if err != nil {
			return nil, fmt.Errorf("questiongen: create redis store: %w", err)
		}
		if err := s.WaitForReady(ctx, defaultReadinessTimeout); err != nil {
			s.Close()
			return nil, fmt.Errorf("questiongen: redis not ready: %w", err)
		}
		store = s
	}

	c, err := wireClient(ctx, cfg, llm, provider, model, counter, store, obs)
	if err != nil {
		if store != nil {
			store.Close()
		}
		return nil, err
	}
	return c, nil
}

// backend is a built-in transport that knows its resolved model.
type backend interface {
	domain.Completer
	Model() string
}

func createCompleter(ctx context.Context, cfg *clientConfig) (domain.Completer, string, string, error) {
	if cfg.completer != nil {
		model := cfg.model
		if model == "" {
			model = customProvider
		}
		return &completerAdapter{inner: cfg.completer}, customProvider, model, nil
	}
	if cfg.provider == "" {
		return nil, "", "", errors.New(
			"questiongen: completer required (use WithCompleter, WithOpenAI, WithGemini or WithAnthropic)",
		)
	}
	if cfg.apiKey == "" {
		return nil, "", "", fmt.Errorf("questiongen: %s api key is required", cfg.provider)
	}

	var (
		b   backend
		err error
	)
	switch cfg.provider {
	case "openai":
		b = openaillm.NewCompleter(&openaillm.Config{
			APIKey: cfg.apiKey, BaseURL: cfg.baseURL, Model: cfg.model, Provider: cfg.provider,
		})
	case "gemini":
		b, err = geminillm.NewCompleter(ctx, &geminillm.Config{
			APIKey: cfg.apiKey, BaseURL: cfg.baseURL, Model: cfg.model,
		})
	case "anthropic":
		b, err = anthropicllm.NewCompleter(&anthropicllm.Config{
			APIKey: cfg.apiKey, BaseURL: cfg.baseURL, Model: cfg.model,
		})
	default:
		err = fmt.Errorf("unknown provider %q", cfg.provider)
	}
	if err != nil {
		return nil, "", "", fmt.Errorf("questiongen: create %s backend: %w", cfg.provider, err)
	}
	return b, cfg.provider, b.Model(), nil
}

func wireClient(
	ctx context.Context, cfg *clientConfig, llm domain.Completer, provider, model string,
	counter TokenCounter, store db.Store, obs *observer,
) (*Client, error) {
	prompts, err := prompt.New(cfg.language)
	if err != nil {
		return nil, fmt.Errorf("questiongen: %w", err)
	}

	var budget *completionuc.BudgetTracker
	if cfg.dailyLimit > 0 || cfg.monthlyLimit > 0 {
		action := completionuc.BudgetActionWarn
		if cfg.rejectOver {
			action = completionuc.BudgetActionReject
		}
		budget = completionuc.NewBudgetTracker(completionuc.BudgetConfig{
			Provider:     provider,
			KeyPrefix:    "questiongen:",
			DailyLimit:   cfg.dailyLimit,
			MonthlyLimit: cfg.monthlyLimit,
			Action:       action,
		}, nil)
		if store != nil {
			budget.WithStore(ctx, budgetrepo.New(store, budgetrepo.DefaultDailyTTL, budgetrepo.DefaultMonthlyTTL))
		}
	}

	// nil interfaces, not typed nil pointers
	var (
		checker completionuc.BudgetChecker
		reader  usageuc.BudgetReader
		pinger  healthuc.StorePinger
	)
	if budget != nil {
		checker, reader = budget, budget
	}
	if store != nil {
		pinger = store
	}

	instrumented := completionuc.NewInstrumented(llm, provider, model, checker, nil)

	summarySvc := summaryuc.New(instrumented, counter, chunker.New(counter), prompts, summaryuc.Config{
		Budget:            cfg.chunkBudget,
		TopicLimit:        cfg.topicLimit,
		MaxTokens:         summaryuc.DefaultConfig().MaxTokens,
		CompressMaxTokens: summaryuc.DefaultConfig().CompressMaxTokens,
		Temperature:       summaryuc.DefaultConfig().Temperature,
		ChunkInterval:     cfg.chunkInterval,
		MergeDelay:        cfg.mergeDelay,
		Concurrency:       cfg.concurrency,
	}, nil)
	questionSvc := questionuc.New(instrumented, prompts, questionuc.DefaultConfig(), nil)
	feedbackSvc := feedbackuc.New(instrumented, prompts, feedbackuc.DefaultConfig(), nil)

	texts := extract.NewRegistry().Register(domain.ContentText, extract.Text{})

	return &Client{
		store:       store,
		pipelineSvc: pipelineuc.New(texts, summarySvc, questionSvc, cfg.timeout, nil),
		summarySvc:  summarySvc,
		questionSvc: questionSvc,
		feedbackSvc: feedbackSvc,
		healthSvc:   healthuc.New(pinger, instrumented),
		usageSvc:    usageuc.New(reader),
		obs:         obs,
	}, nil
}

// Close releases all resources.
func (c *Client) Close() {
	if c.store != nil {
		c.store.Close()
	}
}

// Generate summarizes text and synthesizes three questions from the summary.
func (c *Client) Generate(ctx context.Context, text string) (quiz Quiz, err error) {
	start := time.Now()
	ctx, usage := domain.NewContextWithUsage(ctx)
	defer func() { c.obs.observe("generate", start, usage.TotalTokens(), err) }()

	q, err := c.pipelineSvc.Process(ctx, domain.Source{Type: domain.ContentText, Content: text})
	if err != nil {
		return Quiz{}, fmt.Errorf("generate: %w", err)
	}
	return Quiz{
		Summary:   Summary{Text: q.Summary, Topics: q.Topics},
		Questions: questionsFromDomain(q.Questions),
		Tokens:    usage.TotalTokens(),
	}, nil
}

// Summarize condenses text into a summary and at most the topic limit of topics.
func (c *Client) Summarize(ctx context.Context, text string) (sum Summary, err error) {
	start := time.Now()
	ctx, usage := domain.NewContextWithUsage(ctx)
	defer func() { c.obs.observe("summarize", start, usage.TotalTokens(), err) }()

	if text == "" {
		return Summary{}, domain.NewValidationError("text", "text is required")
	}
	agg, err := c.summarySvc.Aggregate(ctx, text)
	if err != nil {
		return Summary{}, fmt.Errorf("summarize: %w", err)
	}
	return Summary{Text: agg.Summary, Topics: agg.Topics}, nil
}

// Questions synthesizes exactly three questions from a summary and its topics.
func (c *Client) Questions(ctx context.Context, summary string, topics []string) (qs []Question, err error) {
	start := time.Now()
	ctx, usage := domain.NewContextWithUsage(ctx)
	defer func() { c.obs.observe("questions", start, usage.TotalTokens(), err) }()

	if summary == "" {
		return nil, domain.NewValidationError("summary", "summary is required")
	}
	out, err := c.questionSvc.Synthesize(ctx, summary, topics)
	if err != nil {
		return nil, fmt.Errorf("questions: %w", err)
	}
	return questionsFromDomain(out), nil
}

// Feedback writes pedagogical feedback for a question given the model's and
// the learner's difficulty assessments.
func (c *Client) Feedback(ctx context.Context, question, modelLevel, userLevel string) (fb Feedback, err error) {
	start := time.Now()
	ctx, usage := domain.NewContextWithUsage(ctx)
	defer func() { c.obs.observe("feedback", start, usage.TotalTokens(), err) }()

	out, err := c.feedbackSvc.Generate(ctx, question, modelLevel, userLevel)
	if err != nil {
		return Feedback{}, fmt.Errorf("feedback: %w", err)
	}
	return feedbackFromDomain(out), nil
}

// completerAdapter wraps a public Completer to satisfy domain.Completer.
// Unclassified errors become backend errors so callers can match ErrBackend.
type completerAdapter struct {
	inner Completer
}

func (a *completerAdapter) Complete(ctx context.Context, req domain.CompletionRequest) (domain.Completion, error) {
	r, err := a.inner.Complete(ctx, CompletionRequest{
		Prompt:      req.Prompt,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
		Model:       req.Model,
		JSON:        req.JSON,
	})
	if err != nil {
		if errors.Is(err, domain.ErrBackend) || errors.Is(err, domain.ErrQuotaExceeded) ||
			errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return domain.Completion{}, err
		}
		return domain.Completion{}, &domain.BackendError{Provider: customProvider, Err: err}
	}
	return domain.Completion{
		Text:             r.Text,
		Model:            r.Model,
		PromptTokens:     r.PromptTokens,
		CompletionTokens: r.CompletionTokens,
		TotalTokens:      r.TotalTokens,
	}, nil
}

// HealthCheck delegates when the public completer implements it.
func (a *completerAdapter) HealthCheck(ctx context.Context) error {
	if hc, ok := a.inner.(interface{ HealthCheck(context.Context) error }); ok {
		return hc.HealthCheck(ctx) //nolint:wrapcheck // passthrough
	}
	return nil
}
