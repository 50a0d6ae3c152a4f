package domain

import "context"

// CompletionRequest is one prompt submitted to the LLM backend.
// Model overrides the backend default when non-empty.
// JSON asks the backend for a JSON object response where it supports it;
// the caller still validates the payload.
type CompletionRequest struct {
	Prompt      string
	MaxTokens   int
	Temperature float64
	Model       string
	JSON        bool
}

// Completion is the backend response text with token usage.
type Completion struct {
	Text             string
	Model            string
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Completer submits a prompt and returns the completion text.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (Completion, error)
}

// HealthChecker is an optional interface for checking backend availability.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}
