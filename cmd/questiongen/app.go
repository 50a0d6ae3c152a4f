package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/gomtr72/question-generator/internal/chunker"
	"github.com/gomtr72/question-generator/internal/config"
	"github.com/gomtr72/question-generator/internal/db"
	dbRedis "github.com/gomtr72/question-generator/internal/db/redis"
	"github.com/gomtr72/question-generator/internal/domain"
	"github.com/gomtr72/question-generator/internal/extract"
	"github.com/gomtr72/question-generator/internal/metrics"
	"github.com/gomtr72/question-generator/internal/prompt"
	budgetrepo "github.com/gomtr72/question-generator/internal/repository/budget"
	"github.com/gomtr72/question-generator/internal/tokenizer"
	anthropicllm "github.com/gomtr72/question-generator/internal/transport/anthropic"
	geminillm "github.com/gomtr72/question-generator/internal/transport/gemini"
	openaillm "github.com/gomtr72/question-generator/internal/transport/openai"
	"github.com/gomtr72/question-generator/internal/transport/proxy"
	completionuc "github.com/gomtr72/question-generator/internal/usecase/completion"
	feedbackuc "github.com/gomtr72/question-generator/internal/usecase/feedback"
	healthuc "github.com/gomtr72/question-generator/internal/usecase/health"
	pipelineuc "github.com/gomtr72/question-generator/internal/usecase/pipeline"
	questionuc "github.com/gomtr72/question-generator/internal/usecase/question"
	summaryuc "github.com/gomtr72/question-generator/internal/usecase/summary"
	usageuc "github.com/gomtr72/question-generator/internal/usecase/usage"
)

// backend is an LLM transport that knows its resolved model.
type backend interface {
	domain.Completer
	Model() string
}

// app holds the wired services shared by the serve, generate and feedback commands.
type app struct {
	store     db.Store // nil when redis is not configured
	completer domain.Completer
	pipeline  *pipelineuc.Service
	feedback  *feedbackuc.Service
	usage     *usageuc.Service
	health    *healthuc.Service
}

// Close releases the store connection.
func (a *app) Close() {
	if a.store != nil {
		a.store.Close()
	}
}

// buildApp is the composition root.
func buildApp(ctx context.Context, cfg config.Config, logger *zap.Logger) (*app, error) {
	metrics.RegisterLLMMetrics()

	a := &app{}

	if len(cfg.Redis.Addrs) > 0 {
		store, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Redis.Addrs,
			Password: cfg.Redis.Password,
		})
		if err != nil {
			return nil, fmt.Errorf("create redis store: %w", err)
		}
		if err := store.WaitForReady(ctx, time.Duration(cfg.Redis.ReadinessTimeout)*time.Second); err != nil {
			store.Close()
			return nil, fmt.Errorf("redis not ready: %w", err)
		}
		a.store = store
		logger.Info("Connected to redis", zap.Strings("addrs", cfg.Redis.Addrs))
	}

	budget := buildBudget(ctx, cfg, a.store, logger)

	completer, err := buildCompleter(ctx, cfg, budget, logger)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.completer = completer

	counter, err := tokenizer.New(cfg.Generation.Encoding)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("create tokenizer: %w", err)
	}
	prompts, err := prompt.New(cfg.Generation.Language)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("load prompts: %w", err)
	}

	gen := cfg.Generation
	summarySvc := summaryuc.New(completer, counter, chunker.New(counter), prompts, summaryuc.Config{
		Budget:            gen.ChunkBudget,
		TopicLimit:        gen.TopicLimit,
		MaxTokens:         gen.ChunkMaxTokens,
		CompressMaxTokens: gen.CompressMaxTokens,
		Temperature:       gen.SummaryTemperature,
		ChunkInterval:     gen.ChunkInterval(),
		MergeDelay:        gen.MergeDelay(),
		Concurrency:       gen.Concurrency,
	}, logger.Named("summary"))
	questionSvc := questionuc.New(completer, prompts, questionuc.Config{
		MaxTokens:   gen.QuestionMaxTokens,
		Temperature: gen.QuestionTemperature,
	}, logger.Named("question"))
	a.feedback = feedbackuc.New(completer, prompts, feedbackuc.Config{
		MaxTokens:   gen.FeedbackMaxTokens,
		Temperature: gen.FeedbackTemperature,
	}, logger.Named("feedback"))

	extractor, err := buildExtractors(ctx, cfg.Extract)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.pipeline = pipelineuc.New(extractor, summarySvc, questionSvc, gen.RequestTimeout(), logger.Named("pipeline"))

	// Pass nil interfaces, not typed nil pointers.
	var budgetReader usageuc.BudgetReader
	if budget != nil {
		budgetReader = budget
	}
	a.usage = usageuc.New(budgetReader)

	var pinger healthuc.StorePinger
	if a.store != nil {
		pinger = a.store
	}
	a.health = healthuc.New(pinger, newCompleterHealthChecker(completer))

	return a, nil
}

// buildBudget returns nil when no limit is configured.
func buildBudget(ctx context.Context, cfg config.Config, store db.Store, logger *zap.Logger) *completionuc.BudgetTracker {
	b := cfg.LLM.Budget
	if b.DailyTokenLimit <= 0 && b.MonthlyTokenLimit <= 0 {
		return nil
	}
	tracker := completionuc.NewBudgetTracker(completionuc.BudgetConfig{
		Provider:     cfg.LLM.Provider,
		KeyPrefix:    cfg.Storage.KeyPrefix,
		DailyLimit:   b.DailyTokenLimit,
		MonthlyLimit: b.MonthlyTokenLimit,
		Action:       completionuc.BudgetAction(b.Action),
	}, logger.Named("budget"))
	if store != nil {
		tracker.WithStore(ctx, budgetrepo.New(store, budgetrepo.DefaultDailyTTL, budgetrepo.DefaultMonthlyTTL))
	}
	return tracker
}

// buildCompleter assembles the decorator chain: backend -> RateLimited -> Instrumented.
func buildCompleter(
	ctx context.Context, cfg config.Config, budget *completionuc.BudgetTracker, logger *zap.Logger,
) (domain.Completer, error) {
	httpClient, err := proxy.NewHTTPClient(cfg.LLM.SOCKS5Proxy, time.Duration(cfg.LLM.TimeoutSec)*time.Second)
	if err != nil {
		return nil, fmt.Errorf("llm http client: %w", err)
	}

	base, err := newBackend(ctx, cfg.LLM.Provider, cfg.Active(), httpClient, logger)
	if err != nil {
		return nil, err
	}
	logger.Info("LLM backend created",
		zap.String("provider", cfg.LLM.Provider),
		zap.String("model", base.Model()),
		zap.Bool("socks5", cfg.LLM.SOCKS5Proxy != ""),
	)

	var completer domain.Completer = base
	if cfg.LLM.RequestsPerSecond > 0 {
		completer = completionuc.NewRateLimited(completer, cfg.LLM.RequestsPerSecond)
	}

	// A typed nil *BudgetTracker inside the interface would not compare equal to nil.
	var checker completionuc.BudgetChecker
	if budget != nil {
		checker = budget
	}
	return completionuc.NewInstrumented(completer, cfg.LLM.Provider, base.Model(), checker, logger), nil
}

func newBackend(
	ctx context.Context, provider string, pc config.ProviderConfig, httpClient *http.Client, logger *zap.Logger,
) (backend, error) {
	if pc.APIKey == "" {
		return nil, fmt.Errorf("llm.providers.%s.api_key is required", provider)
	}
	switch provider {
	case config.ProviderOpenAI:
		return openaillm.NewCompleter(&openaillm.Config{
			APIKey:     pc.APIKey,
			BaseURL:    pc.BaseURL,
			Model:      pc.Model,
			Provider:   provider,
			HTTPClient: httpClient,
			Logger:     logger,
		}), nil
	case config.ProviderGemini:
		c, err := geminillm.NewCompleter(ctx, &geminillm.Config{
			APIKey:     pc.APIKey,
			BaseURL:    pc.BaseURL,
			Model:      pc.Model,
			HTTPClient: httpClient,
			Logger:     logger,
		})
		if err != nil {
			return nil, fmt.Errorf("create gemini backend: %w", err)
		}
		return c, nil
	case config.ProviderAnthropic:
		c, err := anthropicllm.NewCompleter(&anthropicllm.Config{
			APIKey:     pc.APIKey,
			BaseURL:    pc.BaseURL,
			Model:      pc.Model,
			HTTPClient: httpClient,
			Logger:     logger,
		})
		if err != nil {
			return nil, fmt.Errorf("create anthropic backend: %w", err)
		}
		return c, nil
	default:
		return nil, fmt.Errorf("unknown llm provider %q", provider)
	}
}

// buildExtractors registers one extractor per content type. Types listed in
// extract.legacy_guard_types are checked for in-payload failure sentences.
func buildExtractors(ctx context.Context, cfg config.ExtractConfig) (*extract.Registry, error) {
	client := &http.Client{Timeout: time.Duration(cfg.WebsiteTimeoutSec) * time.Second}
	captions := extract.NewTimedText(client, cfg.TimedTextURL, cfg.TranscriptLangs)
	yt, err := extract.NewYouTube(ctx, cfg.YouTubeAPIKey, captions)
	if err != nil {
		return nil, fmt.Errorf("create youtube extractor: %w", err)
	}
	website := extract.NewWebsite(client)

	guarded := make(map[domain.ContentType]bool, len(cfg.LegacyGuardTypes))
	for _, t := range cfg.LegacyGuardTypes {
		guarded[domain.ContentType(t)] = true
	}

	reg := extract.NewRegistry()
	register := func(t domain.ContentType, e extract.Extractor) {
		if guarded[t] {
			e = extract.NewGuard(e, cfg.FailurePatterns)
		}
		reg.Register(t, e)
	}
	register(domain.ContentText, extract.Text{})
	register(domain.ContentWebsite, website)
	register(domain.ContentYouTube, yt)
	register(domain.ContentPDF, extract.NewPDF(cfg.PDFToText))
	register(domain.ContentImage, extract.NewImage(cfg.Tesseract, cfg.TesseractLangs))
	return reg, nil
}

// completerHealthChecker adapts a domain.Completer to health.LLMChecker.
type completerHealthChecker struct {
	completer domain.Completer
}

func newCompleterHealthChecker(c domain.Completer) *completerHealthChecker {
	return &completerHealthChecker{completer: c}
}

func (h *completerHealthChecker) HealthCheck(ctx context.Context) error {
	if hc, ok := h.completer.(domain.HealthChecker); ok {
		if err := hc.HealthCheck(ctx); err != nil {
			return fmt.Errorf("llm health check: %w", err)
		}
	}
	return nil
}
