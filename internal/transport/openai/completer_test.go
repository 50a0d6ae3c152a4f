package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/gomtr72/question-generator/internal/domain"
)

func newTestCompleter(t *testing.T, handler http.HandlerFunc) *Completer {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return NewCompleter(&Config{
		APIKey:   "test-key",
		BaseURL:  server.URL,
		Model:    "test-model",
		Provider: "test",
		Logger:   zap.NewNop(),
	})
}

func chatResponse(content string) map[string]any {
	return map[string]any{
		"id":     "chatcmpl-1",
		"object": "chat.completion",
		"model":  "test-model",
		"choices": []map[string]any{
			{
				"index":         0,
				"message":       map[string]any{"role": "assistant", "content": content},
				"finish_reason": "stop",
			},
		},
		"usage": map[string]any{
			"prompt_tokens":     12,
			"completion_tokens": 8,
			"total_tokens":      20,
		},
	}
}

func TestCompleter_Complete(t *testing.T) {
	var got struct {
		Model          string  `json:"model"`
		MaxTokens      int     `json:"max_tokens"`
		Temperature    float64 `json:"temperature"`
		ResponseFormat *struct {
			Type string `json:"type"`
		} `json:"response_format"`
		Messages []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}

	c := newTestCompleter(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("unexpected auth header: %s", r.Header.Get("Authorization"))
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(chatResponse("  {\"summary\":\"s\",\"topics\":[]}\n"))
	})

	res, err := c.Complete(context.Background(), domain.CompletionRequest{
		Prompt:      "summarize this",
		MaxTokens:   500,
		Temperature: 0.5,
		JSON:        true,
	})
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}

	if res.Text != `{"summary":"s","topics":[]}` {
		t.Errorf("Text = %q", res.Text)
	}
	if res.PromptTokens != 12 || res.CompletionTokens != 8 || res.TotalTokens != 20 {
		t.Errorf("usage = %d/%d/%d", res.PromptTokens, res.CompletionTokens, res.TotalTokens)
	}
	if got.Model != "test-model" {
		t.Errorf("model = %q", got.Model)
	}
	if got.MaxTokens != 500 {
		t.Errorf("max_tokens = %d", got.MaxTokens)
	}
	if got.Temperature != 0.5 {
		t.Errorf("temperature = %v", got.Temperature)
	}
	if got.ResponseFormat == nil || got.ResponseFormat.Type != "json_object" {
		t.Errorf("response_format = %+v", got.ResponseFormat)
	}
	if len(got.Messages) != 1 || got.Messages[0].Role != "user" || got.Messages[0].Content != "summarize this" {
		t.Errorf("messages = %+v", got.Messages)
	}
}

func TestCompleter_ModelOverrideAndPlainText(t *testing.T) {
	var got map[string]any
	c := newTestCompleter(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(chatResponse("feedback text"))
	})

	res, err := c.Complete(context.Background(), domain.CompletionRequest{
		Prompt: "p",
		Model:  "gpt-4o",
	})
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if res.Text != "feedback text" {
		t.Errorf("Text = %q", res.Text)
	}
	if got["model"] != "gpt-4o" {
		t.Errorf("model = %v", got["model"])
	}
	if _, ok := got["response_format"]; ok {
		t.Error("response_format must be omitted for plain text requests")
	}
}

func TestCompleter_Errors(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		rateLimited bool
	}{
		{
			name:        "rate limited",
			status:      http.StatusTooManyRequests,
			body:        `{"error":{"message":"slow down","type":"rate_limit"}}`,
			rateLimited: true,
		},
		{
			name:   "server error",
			status: http.StatusInternalServerError,
			body:   `{"error":{"message":"boom","type":"server_error"}}`,
		},
		{
			name:   "nebius detail",
			status: http.StatusBadRequest,
			body:   `{"detail":"model not found"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestCompleter(t, func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			})

			_, err := c.Complete(context.Background(), domain.CompletionRequest{Prompt: "p"})
			if err == nil {
				t.Fatal("expected error")
			}
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
			if be.Provider != "test" {
				t.Errorf("Provider = %q", be.Provider)
			}
			if got := errors.Is(err, domain.ErrRateLimited); got != tt.rateLimited {
				t.Errorf("ErrRateLimited = %v, want %v", got, tt.rateLimited)
			}
		})
	}
}

func TestCompleter_EmptyChoices(t *testing.T) {
	c := newTestCompleter(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"x","object":"chat.completion","model":"test-model","choices":[]}`))
	})

	_, err := c.Complete(context.Background(), domain.CompletionRequest{Prompt: "p"})
	if !errors.Is(err, domain.ErrBackend) {
		t.Fatalf("expected ErrBackend, got %v", err)
	}
}

func TestCompleter_ContextDeadline(t *testing.T) {
	c := newTestCompleter(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := c.Complete(ctx, domain.CompletionRequest{Prompt: "p"})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected DeadlineExceeded, got %v", err)
	}
	if errors.Is(err, domain.ErrBackend) {
		t.Error("deadline must not be reported as a backend error")
	}
}

func TestCompleter_HealthCheck(t *testing.T) {
	c := newTestCompleter(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"object":"list","data":[{"id":"test-model","object":"model"}]}`))
	})

	if err := c.HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck failed: %v", err)
	}
}

func TestCompleter_HealthCheckFails(t *testing.T) {
	c := newTestCompleter(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":{"message":"bad key"}}`))
	})

	if err := c.HealthCheck(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func TestNewCompleter_Defaults(t *testing.T) {
	c := NewCompleter(&Config{APIKey: "k"})
	if c.Model() != DefaultModel {
		t.Errorf("Model = %q", c.Model())
	}
	if c.Provider() != "openai" {
		t.Errorf("Provider = %q", c.Provider())
	}
}
