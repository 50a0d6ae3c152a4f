package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gomtr72/question-generator/internal/chunker"
	"github.com/gomtr72/question-generator/internal/domain"
	"github.com/gomtr72/question-generator/internal/extract"
	"github.com/gomtr72/question-generator/internal/pacing"
	"github.com/gomtr72/question-generator/internal/prompt"
	"github.com/gomtr72/question-generator/internal/tokenizer"
	"github.com/gomtr72/question-generator/internal/usecase/question"
	"github.com/gomtr72/question-generator/internal/usecase/summary"
)

// --- Mocks ---

// scriptedLLM answers by prompt kind, the way a well-behaved model would.
type scriptedLLM struct {
	mu        sync.Mutex
	calls     map[string]int
	failChunk string
}

func (l *scriptedLLM) Complete(_ context.Context, req domain.CompletionRequest) (domain.Completion, error) {
	kind := promptKind(req.Prompt)
	l.mu.Lock()
	if l.calls == nil {
		l.calls = map[string]int{}
	}
	l.calls[kind]++
	l.mu.Unlock()

	switch kind {
	case "chunk":
		tag := chunkTag(req.Prompt)
		if tag == l.failChunk {
			return domain.Completion{}, &domain.BackendError{Provider: "test", StatusCode: 500, Err: errors.New("upstream")}
		}
		return domain.Completion{Text: fmt.Sprintf(`{"summary":"summary of %s.","topics":["topic %s"]}`, tag, tag)}, nil
	case "direct":
		return domain.Completion{Text: `{"summary":"short summary.","topics":["a","b","c"]}`}, nil
	case "questions":
		return domain.Completion{Text: questionsJSON()}, nil
	default:
		return domain.Completion{Text: "compressed."}, nil
	}
}

func (l *scriptedLLM) count(kind string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.calls[kind]
}

func promptKind(p string) string {
	switch {
	case strings.Contains(p, "text fragment"):
		return "chunk"
	case strings.Contains(p, "assessment designer"):
		return "questions"
	case strings.HasPrefix(p, "Compress"):
		return "compress"
	default:
		return "direct"
	}
}

func chunkTag(p string) string {
	i := strings.Index(p, `"""`)
	return p[i+3 : i+7]
}

func questionsJSON() string {
	scores := [][]int{{85, 70, 60, 45, 30}, {65, 90, 55, 40, 25}, {35, 50, 95, 70, 40}}
	correct := []string{"A", "B", "C"}
	qs := make([]any, 3)
	for i := range qs {
		choices := map[string]any{}
		for j, l := range domain.ChoiceLabels {
			choices[l] = map[string]any{"text": "option " + l, "closeness_score": scores[i][j]}
		}
		qs[i] = map[string]any{
			"prompt_text":   fmt.Sprintf("Which option is closest to core concept %d?", i+1),
			"choices":       choices,
			"correct_label": correct[i],
			"rationale":     map[string]any{"correct_explanation": "c", "incorrect_explanation": "i"},
		}
	}
	b, _ := json.Marshal(map[string]any{"questions": qs})
	return string(b)
}

type countingPacer struct {
	mu    sync.Mutex
	waits int
}

func (p *countingPacer) Wait(ctx context.Context) error {
	p.mu.Lock()
	p.waits++
	p.mu.Unlock()
	return ctx.Err()
}

type fixture struct {
	svc    *Service
	llm    *scriptedLLM
	pacer  *countingPacer
	sleeps []time.Duration
}

func newFixture(t *testing.T, timeout time.Duration) *fixture {
	t.Helper()
	f := &fixture{llm: &scriptedLLM{}, pacer: &countingPacer{}}

	counter := tokenizer.NewEstimator()
	prompts := prompt.MustNew("")
	agg := summary.New(f.llm, counter, chunker.New(counter), prompts, summary.DefaultConfig(), nil,
		summary.WithPacer(func() pacing.Pacer { return f.pacer }),
		summary.WithSleep(func(_ context.Context, d time.Duration) error {
			f.sleeps = append(f.sleeps, d)
			return nil
		}),
	)
	synth := question.New(f.llm, prompts, question.DefaultConfig(), nil)
	reg := extract.NewRegistry().Register(domain.ContentText, extract.Text{})

	f.svc = New(reg, agg, synth, timeout, nil)
	return f
}

// longText is 25 paragraphs of 100 estimator tokens (2512 tokens in total).
func longText() string {
	parts := make([]string, 25)
	for i := range parts {
		parts[i] = fmt.Sprintf("p%03d ", i) + strings.Repeat("abc ", 98) + "zzz"
	}
	return strings.Join(parts, "\n\n")
}

// --- Tests ---

func TestProcess_EndToEnd(t *testing.T) {
	f := newFixture(t, time.Minute)

	quiz, err := f.svc.Process(context.Background(), domain.Source{Type: domain.ContentText, Content: longText()})
	require.NoError(t, err)

	assert.Equal(t, 3, f.llm.count("chunk"), "one call per chunk")
	assert.Zero(t, f.llm.count("direct"))
	assert.Zero(t, f.llm.count("compress"))
	assert.Equal(t, 1, f.llm.count("questions"))
	assert.Equal(t, 3, f.pacer.waits)
	assert.Equal(t, []time.Duration{3 * time.Second}, f.sleeps)

	assert.Equal(t, "summary of p000. summary of p009. summary of p018.", quiz.Summary)
	assert.Equal(t, []string{"topic p000", "topic p009", "topic p018"}, quiz.Topics)
	require.Len(t, quiz.Questions, 3)
	for _, q := range quiz.Questions {
		assert.Equal(t, []string{"A", "B", "C", "D", "E"}, q.Labels())
		assert.NoError(t, q.CheckInvariant())
		assert.NotEmpty(t, q.ID)
	}
}

func TestProcess_PartialChunkFailure(t *testing.T) {
	f := newFixture(t, time.Minute)
	f.llm.failChunk = "p009"

	quiz, err := f.svc.Process(context.Background(), domain.Source{Type: domain.ContentText, Content: longText()})
	require.NoError(t, err)

	assert.Equal(t, "summary of p000. summary of p018.", quiz.Summary)
	assert.Equal(t, []string{"topic p000", "topic p018"}, quiz.Topics)
	assert.Len(t, quiz.Questions, 3)
}

func TestProcess_ShortTextDirect(t *testing.T) {
	f := newFixture(t, 0)

	quiz, err := f.svc.Process(context.Background(), domain.Source{Type: domain.ContentText, Content: "Goroutines are cheap."})
	require.NoError(t, err)

	assert.Equal(t, 1, f.llm.count("direct"))
	assert.Zero(t, f.llm.count("chunk"))
	assert.Equal(t, "short summary.", quiz.Summary)
	assert.Equal(t, []string{"a", "b", "c"}, quiz.Topics)
	assert.Empty(t, f.sleeps)
}

func TestProcess_ValidationError(t *testing.T) {
	f := newFixture(t, time.Minute)

	_, err := f.svc.Process(context.Background(), domain.Source{Type: domain.ContentText})

	var ve *domain.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "content", ve.Field)
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.Zero(t, f.llm.count("direct"))
}

func TestProcess_AllChunksFailIsSummaryError(t *testing.T) {
	agg := aggregatorFunc(func(context.Context, string) (domain.AggregatedResult, error) {
		return domain.AggregatedResult{Topics: []string{}}, nil
	})
	synth := synthesizerFunc(func(context.Context, string, []string) ([]domain.Question, error) {
		t.Fatal("synthesizer must not run without a summary")
		return nil, nil
	})
	svc := New(extract.Text{}, agg, synth, 0, nil)

	_, err := svc.Process(context.Background(), domain.Source{Type: domain.ContentText, Content: "x"})

	var se *domain.SynthesisError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, domain.StageSummary, se.Stage)
	assert.Equal(t, domain.KindEmptyResult, se.Kind)
}

func TestProcess_ContentError(t *testing.T) {
	reg := extract.NewRegistry()
	svc := New(reg, nil, nil, 0, nil)

	_, err := svc.Process(context.Background(), domain.Source{Type: domain.ContentWebsite, Content: "https://example.com"})
	assert.ErrorIs(t, err, domain.ErrContentProcessing)
}

func TestProcess_Timeout(t *testing.T) {
	agg := aggregatorFunc(func(ctx context.Context, _ string) (domain.AggregatedResult, error) {
		<-ctx.Done()
		return domain.AggregatedResult{}, ctx.Err()
	})
	svc := New(extract.Text{}, agg, nil, 20*time.Millisecond, nil)

	_, err := svc.Process(context.Background(), domain.Source{Type: domain.ContentText, Content: "x"})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestProcess_TimeoutDuringExtraction(t *testing.T) {
	slow := extract.ExtractorFunc(func(ctx context.Context, src domain.Source) (string, error) {
		<-ctx.Done()
		return "", domain.NewContentError(src.Type, "fetch failed", ctx.Err())
	})
	svc := New(slow, nil, nil, 20*time.Millisecond, nil)

	_, err := svc.Process(context.Background(), domain.Source{Type: domain.ContentText, Content: "x"})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.NotErrorIs(t, err, domain.ErrContentProcessing)
}

type aggregatorFunc func(ctx context.Context, text string) (domain.AggregatedResult, error)

func (f aggregatorFunc) Aggregate(ctx context.Context, text string) (domain.AggregatedResult, error) {
	return f(ctx, text)
}

type synthesizerFunc func(ctx context.Context, summary string, topics []string) ([]domain.Question, error)

func (f synthesizerFunc) Synthesize(ctx context.Context, summary string, topics []string) ([]domain.Question, error) {
	return f(ctx, summary, topics)
}
