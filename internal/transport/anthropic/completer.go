// Package anthropic implements the LLM backend on the Anthropic Messages API.
package anthropic

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"go.uber.org/zap"

	"github.com/gomtr72/question-generator/internal/domain"
)

// DefaultModel is used when the config leaves the model empty.
const DefaultModel = "claude-sonnet"

const provider = "anthropic"

var models = map[string]string{
	"claude-sonnet": "claude-sonnet-4-20250514",
	"claude-haiku":  "claude-haiku-4-5-20251001",
}

// Config holds the Anthropic backend settings.
type Config struct {
	APIKey     string
	BaseURL    string
	Model      string
	MaxRetries int
	HTTPClient *http.Client
	Logger     *zap.Logger
}

// Completer is an LLM backend using the Anthropic Messages API.
type Completer struct {
	client *anthropic.Client
	model  string
	logger *zap.Logger
}

// NewCompleter creates an Anthropic backend.
func NewCompleter(cfg *Config) (*Completer, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("anthropic API key is required")
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(cfg.MaxRetries),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	client := anthropic.NewClient(opts...)
	return &Completer{
		client: &client,
		model:  resolveModel(cfg.Model),
		logger: logger,
	}, nil
}

// Complete implements domain.Completer. The Messages API has no plain JSON mode,
// so req.JSON only adds a system instruction; the caller validates the payload.
func (c *Completer) Complete(ctx context.Context, req domain.CompletionRequest) (domain.Completion, error) {
	model := c.model
	if req.Model != "" {
		model = resolveModel(req.Model)
	}

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(model),
		MaxTokens: int64(req.MaxTokens),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt)),
		},
		Temperature: anthropic.Float(req.Temperature),
	}
	if req.JSON {
		params.System = []anthropic.TextBlockParam{
			{Text: "Respond with a single JSON object and nothing else."},
		}
	}

	msg, err := c.client.Messages.New(ctx, params)
	if err != nil {
		c.logger.Debug("messages request failed", zap.String("model", model), zap.Error(err))
		return domain.Completion{}, mapError(ctx, err)
	}

	var sb strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	text := strings.TrimSpace(sb.String())
	if text == "" {
		return domain.Completion{}, &domain.BackendError{
			Provider: provider,
			Err:      fmt.Errorf("no text content in response (stop reason %s)", msg.StopReason),
		}
	}

	in, out := int(msg.Usage.InputTokens), int(msg.Usage.OutputTokens)
	return domain.Completion{
		Text:             text,
		Model:            string(msg.Model),
		PromptTokens:     in,
		CompletionTokens: out,
		TotalTokens:      in + out,
	}, nil
}

// HealthCheck lists models (free endpoint).
func (c *Completer) HealthCheck(ctx context.Context) error {
	if _, err := c.client.Models.List(ctx, anthropic.ModelListParams{Limit: anthropic.Int(1)}); err != nil {
		return fmt.Errorf("list models: %w", err)
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

func mapError(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("messages request: %w", ctxErr)
	}

	var apiErr *anthropic.Error
	if errors.As(err, &apiErr) {
		cause := errors.New(http.StatusText(apiErr.StatusCode))
		if apiErr.StatusCode == http.StatusTooManyRequests {
			cause = fmt.Errorf("%w: %s", domain.ErrRateLimited, apiErr.RawJSON())
		}
		return &domain.BackendError{Provider: provider, StatusCode: apiErr.StatusCode, Err: cause}
	}
	return &domain.BackendError{Provider: provider, Err: err}
}
