package anthropic

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gomtr72/question-generator/internal/domain"
)

func newTestCompleter(t *testing.T, handler http.HandlerFunc) *Completer {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	c, err := NewCompleter(&Config{
		APIKey:  "test-key",
		BaseURL: server.URL,
		Model:   "claude-haiku",
	})
	if err != nil {
		t.Fatalf("NewCompleter: %v", err)
	}
	return c
}

func TestCompleter_Complete(t *testing.T) {
	var body map[string]any
	c := newTestCompleter(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/messages" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&body)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"id":   "msg_test",
			"type": "message",
			"role": "assistant",
			"content": []map[string]any{
				{"type": "text", "text": `{"summary":"s","topics":[]}`},
			},
			"model":       "claude-haiku-4-5-20251001",
			"stop_reason": "end_turn",
			"usage": map[string]any{
				"input_tokens":  50,
				"output_tokens": 30,
			},
		})
	})

	res, err := c.Complete(context.Background(), domain.CompletionRequest{
		Prompt:      "summarize",
		MaxTokens:   200,
		Temperature: 0.3,
		JSON:        true,
	})
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if res.Text != `{"summary":"s","topics":[]}` {
		t.Errorf("Text = %q", res.Text)
	}
	if res.PromptTokens != 50 || res.CompletionTokens != 30 || res.TotalTokens != 80 {
		t.Errorf("usage = %d/%d/%d", res.PromptTokens, res.CompletionTokens, res.TotalTokens)
	}
	if body["model"] != "claude-haiku-4-5-20251001" {
		t.Errorf("model = %v", body["model"])
	}
	if body["max_tokens"] != float64(200) {
		t.Errorf("max_tokens = %v", body["max_tokens"])
	}
	if _, ok := body["system"]; !ok {
		t.Error("expected a system instruction for JSON requests")
	}
}

func TestCompleter_PlainTextHasNoSystem(t *testing.T) {
	var body map[string]any
	c := newTestCompleter(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&body)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"id":          "msg_test",
			"type":        "message",
			"role":        "assistant",
			"content":     []map[string]any{{"type": "text", "text": "well done"}},
			"model":       "claude-haiku-4-5-20251001",
			"stop_reason": "end_turn",
			"usage":       map[string]any{"input_tokens": 1, "output_tokens": 2},
		})
	})

	res, err := c.Complete(context.Background(), domain.CompletionRequest{Prompt: "p", MaxTokens: 10})
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if res.Text != "well done" {
		t.Errorf("Text = %q", res.Text)
	}
	if _, ok := body["system"]; ok {
		t.Error("plain text request must not carry a system instruction")
	}
}

func TestCompleter_Errors(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		errType     string
		rateLimited bool
	}{
		{"rate limited", http.StatusTooManyRequests, "rate_limit_error", true},
		{"server error", http.StatusInternalServerError, "api_error", false},
		{"auth", http.StatusUnauthorized, "authentication_error", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestCompleter(t, func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				json.NewEncoder(w).Encode(map[string]any{
					"type":  "error",
					"error": map[string]any{"type": tt.errType, "message": "nope"},
				})
			})

			_, err := c.Complete(context.Background(), domain.CompletionRequest{Prompt: "p", MaxTokens: 10})
			if !errors.Is(err, domain.ErrBackend) {
				t.Fatalf("expected ErrBackend, got %v", err)
			}
			var be *domain.BackendError
			if !errors.As(err, &be) {
				t.Fatalf("expected *BackendError, got %T", err)
			}
			if be.StatusCode != tt.status {
				t.Errorf("StatusCode = %d, want %d", be.StatusCode, tt.status)
			}
			if got := errors.Is(err, domain.ErrRateLimited); got != tt.rateLimited {
				t.Errorf("ErrRateLimited = %v, want %v", got, tt.rateLimited)
			}
		})
	}
}

func TestCompleter_NoTextContent(t *testing.T) {
	c := newTestCompleter(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"id":          "msg_test",
			"type":        "message",
			"role":        "assistant",
			"content":     []map[string]any{},
			"model":       "claude-haiku-4-5-20251001",
			"stop_reason": "max_tokens",
			"usage":       map[string]any{"input_tokens": 1, "output_tokens": 0},
		})
	})

	_, err := c.Complete(context.Background(), domain.CompletionRequest{Prompt: "p", MaxTokens: 10})
	if !errors.Is(err, domain.ErrBackend) {
		t.Fatalf("expected ErrBackend, got %v", err)
	}
}

func TestNewCompleter_RequiresKey(t *testing.T) {
	if _, err := NewCompleter(&Config{}); err == nil {
		t.Fatal("expected error for missing API key")
	}
}

func TestCompleter_ModelResolution(t *testing.T) {
	c, err := NewCompleter(&Config{APIKey: "k"})
	if err != nil {
		t.Fatal(err)
	}
	if c.Model() != "claude-sonnet-4-20250514" {
		t.Errorf("Model = %q", c.Model())
	}
	if got := resolveModel("claude-3-opus"); got != "claude-3-opus" {
		t.Errorf("resolveModel passthrough = %q", got)
	}
}
