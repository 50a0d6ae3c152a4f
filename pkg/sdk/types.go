package questiongen

import (
	"context"

	"github.com/gomtr72/question-generator/internal/domain"
)

// Completer is an LLM backend: it turns one prompt into completion text.
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (Completion, error)
}

// CompletionRequest is one prompt with its generation parameters.
// JSON asks for a JSON object response; the SDK validates the payload itself.
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

// TokenCounter measures text length in LLM tokens. It must be deterministic.
type TokenCounter interface {
	Count(text string) int
}

// Summary is the condensed text and its key topics.
type Summary struct {
	Text   string
	Topics []string
}

// Choice is one lettered answer option.
type Choice struct {
	Text           string
	ClosenessScore int // 0-100, highest on the correct choice
}

// Question is a multiple-choice comprehension question with choices A-E.
type Question struct {
	ID                   string
	Prompt               string
	Choices              map[string]Choice
	CorrectLabel         string
	CorrectExplanation   string
	IncorrectExplanation string
}

// Quiz is the result of Generate.
type Quiz struct {
	Summary   Summary
	Questions []Question
	Tokens    int // LLM tokens spent on this quiz
}

// Feedback is the pedagogical feedback for one assessed question.
type Feedback struct {
	Question   string
	ModelLevel string
	UserLevel  string
	Text       string
}

func questionFromDomain(q domain.Question) Question {
	choices := make(map[string]Choice, len(q.Choices))
	for label, c := range q.Choices {
		choices[label] = Choice{Text: c.Text, ClosenessScore: c.ClosenessScore}
	}
	return Question{
		ID:                   q.ID,
		Prompt:               q.PromptText,
		Choices:              choices,
		CorrectLabel:         q.CorrectLabel,
		CorrectExplanation:   q.Rationale.CorrectExplanation,
		IncorrectExplanation: q.Rationale.IncorrectExplanation,
	}
}

func questionsFromDomain(qs []domain.Question) []Question {
	out := make([]Question, len(qs))
	for i, q := range qs {
		out[i] = questionFromDomain(q)
	}
	return out
}

func feedbackFromDomain(f domain.Feedback) Feedback {
	return Feedback{
		Question:   f.QuestionRef,
		ModelLevel: f.ModelAssessedLevel,
		UserLevel:  f.UserAssessedLevel,
		Text:       f.Text,
	}
}
