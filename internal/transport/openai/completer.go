package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/gomtr72/question-generator/internal/domain"
)

// DefaultModel is used when the config leaves the model empty.
const DefaultModel = "gpt-4"

// Completer is an LLM backend using the OpenAI-compatible chat completions API.
type Completer struct {
	client   *openai.Client
	model    string
	user     string
	provider string
	logger   *zap.Logger
}

// Config holds the chat backend settings.
type Config struct {
	APIKey     string
	BaseURL    string
	Model      string
	User       string
	Provider   string
	HTTPClient *http.Client
	Logger     *zap.Logger
}

// NewCompleter creates an OpenAI-compatible chat backend.
func NewCompleter(cfg *Config) *Completer {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	if cfg.HTTPClient != nil {
		clientCfg.HTTPClient = cfg.HTTPClient
	}

	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	provider := cfg.Provider
	if provider == "" {
		provider = "openai"
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Completer{
		client:   openai.NewClientWithConfig(clientCfg),
		model:    model,
		user:     cfg.User,
		provider: provider,
		logger:   logger,
	}
}

// Complete implements domain.Completer with a single user message.
func (c *Completer) Complete(ctx context.Context, req domain.CompletionRequest) (domain.Completion, error) {
	model := c.model
	if req.Model != "" {
		model = req.Model
	}

	chatReq := openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: req.Prompt},
		},
		MaxTokens:   req.MaxTokens,
		Temperature: float32(req.Temperature),
		User:        c.user,
	}
	if req.JSON {
		chatReq.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	resp, err := c.client.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		c.logger.Debug("chat completion failed", zap.String("model", model), zap.Error(err))
		return domain.Completion{}, c.parseAPIError(ctx, err)
	}

	if len(resp.Choices) == 0 {
		return domain.Completion{}, &domain.BackendError{
			Provider: c.provider,
			Err:      errors.New("empty choices in chat response"),
		}
	}

	return domain.Completion{
		Text:             strings.TrimSpace(resp.Choices[0].Message.Content),
		Model:            resp.Model,
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
		TotalTokens:      resp.Usage.TotalTokens,
	}, nil
}

// HealthCheck verifies API availability via ListModels (free endpoint).
func (c *Completer) HealthCheck(ctx context.Context) error {
	if _, err := c.client.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}

// Provider returns the provider label used in metrics and budgets.
func (c *Completer) Provider() string { return c.provider }

// Model returns the default model.
func (c *Completer) Model() string { return c.model }

// parseAPIError extracts a human-readable error from the API response.
// Context errors are returned as-is; everything else becomes a BackendError,
// with 429 additionally wrapping domain.ErrRateLimited.
func (c *Completer) parseAPIError(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("chat completion: %w", ctxErr)
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		detail := extractDetail(reqErr.Body)
		if detail == "" {
			detail = string(reqErr.Body)
		}
		return c.backendError(reqErr.HTTPStatusCode, detail)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return c.backendError(apiErr.HTTPStatusCode, apiErr.Message)
	}

	return &domain.BackendError{Provider: c.provider, Err: err}
}

func (c *Completer) backendError(status int, detail string) error {
	cause := errors.New(detail)
	if status == http.StatusTooManyRequests {
		cause = fmt.Errorf("%w: %s", domain.ErrRateLimited, detail)
	}
	return &domain.BackendError{Provider: c.provider, StatusCode: status, Err: cause}
}

// extractDetail extracts the "detail" field from a JSON error body (Nebius error format).
func extractDetail(body []byte) string {
	var parsed struct {
		Detail string `json:"detail"`
	}
	if json.Unmarshal(body, &parsed) == nil && parsed.Detail != "" {
		return parsed.Detail
	}
	return ""
}
