package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/gomtr72/question-generator/internal/config"
	"github.com/gomtr72/question-generator/internal/domain"
	logpkg "github.com/gomtr72/question-generator/internal/logger"
	chiTransport "github.com/gomtr72/question-generator/internal/transport/chi"
	completionuc "github.com/gomtr72/question-generator/internal/usecase/completion"
)

func TestSourceFromFlags(t *testing.T) {
	dir := t.TempDir()
	notes := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(notes, []byte("photosynthesis"), 0o600))
	pdf := filepath.Join(dir, "lecture.pdf")
	require.NoError(t, os.WriteFile(pdf, []byte("%PDF-1.4"), 0o600))

	t.Run("inline content", func(t *testing.T) {
		src, err := sourceFromFlags("website", "https://example.com", "", nil)
		require.NoError(t, err)
		assert.Equal(t, domain.ContentWebsite, src.Type)
		assert.Equal(t, "https://example.com", src.Content)
		assert.Nil(t, src.File)
	})

	t.Run("text file becomes content", func(t *testing.T) {
		src, err := sourceFromFlags("text", "", notes, nil)
		require.NoError(t, err)
		assert.Equal(t, "photosynthesis", src.Content)
		assert.Nil(t, src.File)
	})

	t.Run("pdf file is uploaded", func(t *testing.T) {
		src, err := sourceFromFlags("pdf", "", pdf, nil)
		require.NoError(t, err)
		require.NotNil(t, src.File)
		assert.Equal(t, "lecture.pdf", src.File.Name)
		assert.Equal(t, []byte("%PDF-1.4"), src.File.Data)
		assert.NoError(t, src.Validate())
	})

	t.Run("stdin", func(t *testing.T) {
		src, err := sourceFromFlags("text", "", "-", strings.NewReader("from stdin"))
		require.NoError(t, err)
		assert.Equal(t, "from stdin", src.Content)
	})

	t.Run("content and file conflict", func(t *testing.T) {
		_, err := sourceFromFlags("text", "x", notes, nil)
		assert.Error(t, err)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := sourceFromFlags("text", "", filepath.Join(dir, "nope.txt"), nil)
		assert.Error(t, err)
	})
}

func TestNewBackend(t *testing.T) {
	ctx := context.Background()
	pc := config.ProviderConfig{APIKey: "k", Model: "m"}

	for _, provider := range []string{config.ProviderOpenAI, config.ProviderGemini, config.ProviderAnthropic} {
		t.Run(provider, func(t *testing.T) {
			b, err := newBackend(ctx, provider, pc, http.DefaultClient, zap.NewNop())
			require.NoError(t, err)
			assert.NotEmpty(t, b.Model())
		})
	}

	t.Run("missing key", func(t *testing.T) {
		_, err := newBackend(ctx, config.ProviderOpenAI, config.ProviderConfig{}, http.DefaultClient, zap.NewNop())
		assert.ErrorContains(t, err, "api_key")
	})

	t.Run("unknown provider", func(t *testing.T) {
		_, err := newBackend(ctx, "cohere", pc, http.DefaultClient, zap.NewNop())
		assert.ErrorContains(t, err, "unknown llm provider")
	})
}

func testConfig() config.Config {
	cfg := config.Config{
		LLM: config.LLMConfig{
			Provider: config.ProviderOpenAI,
			Providers: map[string]config.ProviderConfig{
				config.ProviderOpenAI: {APIKey: "k"},
			},
		},
	}
	cfg.ApplyDefaults()
	return cfg
}

func TestBuildCompleter(t *testing.T) {
	cfg := testConfig()
	cfg.LLM.RequestsPerSecond = 5

	c, err := buildCompleter(context.Background(), cfg, nil, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &completionuc.Instrumented{}, c)
}

func TestBuildCompleter_InvalidProxy(t *testing.T) {
	cfg := testConfig()
	cfg.LLM.SOCKS5Proxy = "http://proxy:8080"

	_, err := buildCompleter(context.Background(), cfg, nil, zap.NewNop())
	assert.Error(t, err)
}

func TestBuildBudget(t *testing.T) {
	cfg := testConfig()
	assert.Nil(t, buildBudget(context.Background(), cfg, nil, zap.NewNop()))

	cfg.LLM.Budget.DailyTokenLimit = 1000
	cfg.LLM.Budget.Action = "reject"
	b := buildBudget(context.Background(), cfg, nil, zap.NewNop())
	require.NotNil(t, b)
	assert.Equal(t, int64(1000), b.DailyLimit())
	assert.Equal(t, config.ProviderOpenAI, b.Provider())
}

func TestBuildExtractors(t *testing.T) {
	cfg := testConfig()
	reg, err := buildExtractors(context.Background(), cfg.Extract)
	require.NoError(t, err)
	for _, ct := range domain.ContentTypes {
		assert.True(t, reg.Supports(ct), "no extractor for %s", ct)
	}

	text, err := reg.Extract(context.Background(), domain.Source{Type: domain.ContentText, Content: "  hello  "})
	require.NoError(t, err)
	assert.Equal(t, "hello", text)
}

func TestBuildExtractors_FailurePatternsOnlyForLegacyTypes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(`<html><head><title>정규화</title></head>
<body><p>올바르지 않은 스키마는 갱신 이상을 일으킨다.</p></body></html>`))
	}))
	defer srv.Close()
	src := domain.Source{Type: domain.ContentWebsite, Content: srv.URL}

	cfg := testConfig()
	reg, err := buildExtractors(context.Background(), cfg.Extract)
	require.NoError(t, err)
	text, err := reg.Extract(context.Background(), src)
	require.NoError(t, err)
	assert.Contains(t, text, "올바르지 않은 스키마는")

	cfg.Extract.LegacyGuardTypes = []string{"website"}
	reg, err = buildExtractors(context.Background(), cfg.Extract)
	require.NoError(t, err)
	_, err = reg.Extract(context.Background(), src)
	require.ErrorIs(t, err, domain.ErrContentProcessing)
	assert.NotContains(t, err.Error(), "스키마")
}

type healthyCompleter struct{ err error }

func (healthyCompleter) Complete(context.Context, domain.CompletionRequest) (domain.Completion, error) {
	return domain.Completion{}, nil
}

func (h healthyCompleter) HealthCheck(context.Context) error { return h.err }

func TestCompleterHealthChecker(t *testing.T) {
	assert.NoError(t, newCompleterHealthChecker(healthyCompleter{}).HealthCheck(context.Background()))
	assert.Error(t, newCompleterHealthChecker(healthyCompleter{err: assert.AnError}).HealthCheck(context.Background()))
}

func TestJSONRecoverer(t *testing.T) {
	h := jsonRecoverer(zap.NewNop())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/process", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	var body chiTransport.ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, chiTransport.CodeInternalServerError, body.Code)
	assert.Equal(t, "internal error", body.Error)
}

func TestWideEventMiddleware(t *testing.T) {
	var gotLogger bool
	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(zap.NewNop()))
	r.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
		gotLogger = logpkg.FromContext(r.Context()) != nil
		w.WriteHeader(http.StatusNoContent)
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	assert.True(t, gotLogger)
}

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"version", "--json"})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	})

	require.NoError(t, rootCmd.Execute())
	var info map[string]string
	require.NoError(t, json.Unmarshal(out.Bytes(), &info))
	assert.Contains(t, info, "version")
	assert.Contains(t, info, "go_version")
}
