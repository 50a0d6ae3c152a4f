package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gomtr72/question-generator/internal/domain"
)

func newTestCompleter(t *testing.T, handler http.HandlerFunc) *Completer {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	c, err := NewCompleter(context.Background(), &Config{
		APIKey:  "test-key",
		BaseURL: server.URL,
		Model:   "gemini-test",
	})
	if err != nil {
		t.Fatalf("NewCompleter: %v", err)
	}
	return c
}

func TestCompleter_Complete(t *testing.T) {
	var body map[string]any
	c := newTestCompleter(t, func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "models/gemini-test:generateContent") {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.Header.Get("x-goog-api-key") != "test-key" {
			t.Errorf("missing api key header")
		}
		json.NewDecoder(r.Body).Decode(&body)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"candidates": []map[string]any{
				{
					"content": map[string]any{
						"role":  "model",
						"parts": []map[string]any{{"text": "{\"summary\":\"s\",\"topics\":[\"a\"]}"}},
					},
					"finishReason": "STOP",
				},
			},
			"usageMetadata": map[string]any{
				"promptTokenCount":     30,
				"candidatesTokenCount": 10,
				"totalTokenCount":      40,
			},
		})
	})

	res, err := c.Complete(context.Background(), domain.CompletionRequest{
		Prompt:      "summarize",
		MaxTokens:   500,
		Temperature: 0.3,
		JSON:        true,
	})
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if res.Text != `{"summary":"s","topics":["a"]}` {
		t.Errorf("Text = %q", res.Text)
	}
	if res.PromptTokens != 30 || res.CompletionTokens != 10 || res.TotalTokens != 40 {
		t.Errorf("usage = %d/%d/%d", res.PromptTokens, res.CompletionTokens, res.TotalTokens)
	}

	gen, _ := body["generationConfig"].(map[string]any)
	if gen == nil {
		t.Fatalf("generationConfig missing in request: %v", body)
	}
	if gen["responseMimeType"] != "application/json" {
		t.Errorf("responseMimeType = %v", gen["responseMimeType"])
	}
	if gen["maxOutputTokens"] != float64(500) {
		t.Errorf("maxOutputTokens = %v", gen["maxOutputTokens"])
	}
}

func TestCompleter_Errors(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		rateLimited bool
	}{
		{"rate limited", http.StatusTooManyRequests, true},
		{"unavailable", http.StatusServiceUnavailable, false},
		{"bad request", http.StatusBadRequest, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestCompleter(t, func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(tt.status)
				json.NewEncoder(w).Encode(map[string]any{
					"error": map[string]any{
						"code":    tt.status,
						"message": "failure",
						"status":  "ERROR",
					},
				})
			})

			_, err := c.Complete(context.Background(), domain.CompletionRequest{Prompt: "p"})
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

func TestCompleter_EmptyCandidates(t *testing.T) {
	c := newTestCompleter(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"candidates":[]}`))
	})

	_, err := c.Complete(context.Background(), domain.CompletionRequest{Prompt: "p"})
	if !errors.Is(err, domain.ErrBackend) {
		t.Fatalf("expected ErrBackend, got %v", err)
	}
}

func TestNewCompleter_RequiresKey(t *testing.T) {
	if _, err := NewCompleter(context.Background(), &Config{}); err == nil {
		t.Fatal("expected error for missing API key")
	}
}

func TestResolveModel(t *testing.T) {
	tests := map[string]string{
		"":                 "gemini-2.0-pro",
		"gemini-pro":       "gemini-2.0-pro",
		"gemini-flash":     "gemini-2.0-flash",
		"gemini-2.5-flash": "gemini-2.5-flash",
	}
	for in, want := range tests {
		if got := resolveModel(in); got != want {
			t.Errorf("resolveModel(%q) = %q, want %q", in, got, want)
		}
	}
}
