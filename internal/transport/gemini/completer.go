// Package gemini implements the LLM backend on the Google Gemini API.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/gomtr72/question-generator/internal/domain"
)

// DefaultModel is used when the config leaves the model empty.
const DefaultModel = "gemini-pro"

const provider = "gemini"

// friendly names accepted in config, mapped to API model ids.
var models = map[string]string{
	"gemini-pro":   "gemini-2.0-pro",
	"gemini-flash": "gemini-2.0-flash",
}

// Config holds the Gemini backend settings.
type Config struct {
	APIKey     string
	BaseURL    string
	Model      string
	HTTPClient *http.Client
	Logger     *zap.Logger
}

// Completer is an LLM backend using the Gemini generateContent API.
type Completer struct {
	client *genai.Client
	model  string
	logger *zap.Logger
}

// NewCompleter creates a Gemini backend.
func NewCompleter(ctx context.Context, cfg *Config) (*Completer, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("gemini API key is required")
	}

	cc := &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: cfg.HTTPClient,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions.BaseURL = cfg.BaseURL
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Completer{
		client: client,
		model:  resolveModel(cfg.Model),
		logger: logger,
	}, nil
}

// Complete implements domain.Completer.
func (c *Completer) Complete(ctx context.Context, req domain.CompletionRequest) (domain.Completion, error) {
	model := c.model
	if req.Model != "" {
		model = resolveModel(req.Model)
	}

	temp := float32(req.Temperature)
	config := &genai.GenerateContentConfig{
		MaxOutputTokens: int32(req.MaxTokens),
		Temperature:     &temp,
	}
	if req.JSON {
		config.ResponseMIMEType = "application/json"
	}

	contents := []*genai.Content{
		{Role: genai.RoleUser, Parts: []*genai.Part{{Text: req.Prompt}}},
	}

	result, err := c.client.Models.GenerateContent(ctx, model, contents, config)
	if err != nil {
		c.logger.Debug("generate content failed", zap.String("model", model), zap.Error(err))
		return domain.Completion{}, mapError(ctx, err)
	}

	text := strings.TrimSpace(result.Text())
	if text == "" {
		return domain.Completion{}, &domain.BackendError{
			Provider: provider,
			Err:      fmt.Errorf("empty response (finish reason %s)", finishReason(result)),
		}
	}

	out := domain.Completion{Text: text, Model: model}
	if result.ModelVersion != "" {
		out.Model = result.ModelVersion
	}
	if u := result.UsageMetadata; u != nil {
		out.PromptTokens = int(u.PromptTokenCount)
		out.CompletionTokens = int(u.CandidatesTokenCount)
		out.TotalTokens = int(u.TotalTokenCount)
	}
	return out, nil
}

// HealthCheck fetches the configured model's metadata.
func (c *Completer) HealthCheck(ctx context.Context) error {
	if _, err := c.client.Models.Get(ctx, c.model, nil); err != nil {
		return fmt.Errorf("get model: %w", err)
	}
	return nil
}

// Provider returns the provider label used in metrics and budgets.
func (c *Completer) Provider() string { return provider }

// Model returns the resolved default model id.
func (c *Completer) Model() string { return c.model }

func resolveModel(name string) string {
	if name == "" {
		name = DefaultModel
	}
	if id, ok := models[name]; ok {
		return id
	}
	return name
}

func finishReason(result *genai.GenerateContentResponse) string {
	if len(result.Candidates) > 0 && result.Candidates[0].FinishReason != "" {
		return string(result.Candidates[0].FinishReason)
	}
	return "unknown"
}

func mapError(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("generate content: %w", ctxErr)
	}

	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		cause := errors.New(apiErr.Message)
		if apiErr.Code == http.StatusTooManyRequests {
			cause = fmt.Errorf("%w: %s", domain.ErrRateLimited, apiErr.Message)
		}
		return &domain.BackendError{Provider: provider, StatusCode: apiErr.Code, Err: cause}
	}
	return &domain.BackendError{Provider: provider, Err: err}
}
