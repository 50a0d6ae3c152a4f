package domain

import (
	"fmt"
	"sort"
)

// DefaultTopicLimit caps the topics kept after aggregation.
const DefaultTopicLimit = 5

// QuestionsPerSynthesis is the number of questions one synthesis call must return.
const QuestionsPerSynthesis = 3

// ChoiceLabels are the answer labels every question carries, in display order.
var ChoiceLabels = []string{"A", "B", "C", "D", "E"}

// Chunk is a token-bounded slice of source text.
// Sep is the separator that followed the chunk in the original text (empty for the last chunk),
// so concatenating Text+Sep over all chunks reproduces the input.
type Chunk struct {
	Index      int
	Text       string
	Sep        string
	TokenCount int
}

// JoinChunks reconstructs the original text from its chunks.
func JoinChunks(chunks []Chunk) string {
	n := 0
	for _, c := range chunks {
		n += len(c.Text) + len(c.Sep)
	}
	buf := make([]byte, 0, n)
	for _, c := range chunks {
		buf = append(buf, c.Text...)
		buf = append(buf, c.Sep...)
	}
	return string(buf)
}

// PartialSummary is the result of summarizing one chunk.
type PartialSummary struct {
	ChunkIndex int
	Summary    string
	Topics     []string
}

// AggregatedResult is the merged summary and topic set of a whole text.
type AggregatedResult struct {
	Summary string   `json:"summary"`
	Topics  []string `json:"topics"`
}

// Empty reports whether aggregation produced no summary at all.
func (r AggregatedResult) Empty() bool { return r.Summary == "" }

// Choice is one lettered answer option.
type Choice struct {
	Text           string `json:"text"`
	ClosenessScore int    `json:"closeness_score"`
}

// Rationale explains the correct answer and the distractors.
type Rationale struct {
	CorrectExplanation   string `json:"correct_explanation"`
	IncorrectExplanation string `json:"incorrect_explanation"`
}

// Question is a multiple-choice comprehension question.
type Question struct {
	ID           string            `json:"id"`
	PromptText   string            `json:"prompt_text"`
	Choices      map[string]Choice `json:"choices"`
	CorrectLabel string            `json:"correct_label"`
	Rationale    Rationale         `json:"rationale"`
}

// Labels returns the choice labels sorted alphabetically.
func (q Question) Labels() []string {
	labels := make([]string, 0, len(q.Choices))
	for l := range q.Choices {
		labels = append(labels, l)
	}
	sort.Strings(labels)
	return labels
}

// TopChoice returns the label with the strictly highest closeness score.
// ok is false when the maximum is shared by several choices or there are no choices.
func (q Question) TopChoice() (label string, ok bool) {
	best := -1
	ties := 0
	for _, l := range q.Labels() {
		s := q.Choices[l].ClosenessScore
		switch {
		case s > best:
			best, label, ties = s, l, 0
		case s == best:
			ties++
		}
	}
	return label, best >= 0 && ties == 0
}

// CheckInvariant verifies that the correct label points at the strictly top-scored choice.
func (q Question) CheckInvariant() error {
	if _, ok := q.Choices[q.CorrectLabel]; !ok {
		return fmt.Errorf("correct label %q is not one of the choices", q.CorrectLabel)
	}
	top, ok := q.TopChoice()
	if !ok {
		return fmt.Errorf("no strictly maximal closeness score among choices")
	}
	if top != q.CorrectLabel {
		return fmt.Errorf("correct label %q but highest closeness is %q", q.CorrectLabel, top)
	}
	return nil
}

// Feedback is the pedagogical feedback for one assessed question.
type Feedback struct {
	QuestionRef        string `json:"question"`
	ModelAssessedLevel string `json:"gpt_level"`
	UserAssessedLevel  string `json:"user_level"`
	Text               string `json:"feedback"`
}

// Quiz is the output of one pipeline run.
type Quiz struct {
	Summary   string     `json:"summary"`
	Topics    []string   `json:"topics"`
	Questions []Question `json:"questions"`
}
