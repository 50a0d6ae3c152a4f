// Package prompt renders the LLM prompts used by the pipeline.
package prompt

import (
	"bytes"
	"embed"
	"fmt"
	"text/template"

	"github.com/gomtr72/question-generator/internal/domain"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// DefaultLanguage is the output language requested from the model.
const DefaultLanguage = "Korean"

// Renderer executes the embedded prompt templates.
type Renderer struct {
	tmpl     *template.Template
	language string
}

// New parses the embedded templates. An empty language selects DefaultLanguage.
func New(language string) (*Renderer, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/*.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parse prompt templates: %w", err)
	}
	if language == "" {
		language = DefaultLanguage
	}
	return &Renderer{tmpl: tmpl, language: language}, nil
}

// MustNew is New that panics on error. The templates are embedded, so failure is a build defect.
func MustNew(language string) *Renderer {
	r, err := New(language)
	if err != nil {
		panic(err)
	}
	return r
}

type textData struct {
	Language string
	Text     string
}

type questionsData struct {
	Language string
	Count    int
	Summary  string
	Topics   []string
}

type feedbackData struct {
	Language   string
	Question   string
	ModelLevel string
	UserLevel  string
}

// Chunk asks for a JSON {summary, topics} of one chunk.
func (r *Renderer) Chunk(text string) (string, error) {
	return r.execute("chunk.tmpl", textData{Language: r.language, Text: text})
}

// Direct asks for a JSON {summary, topics} of a text that fits the budget.
func (r *Renderer) Direct(text string) (string, error) {
	return r.execute("direct.tmpl", textData{Language: r.language, Text: text})
}

// Compress asks for a 2-3 sentence free-text compression.
func (r *Renderer) Compress(text string) (string, error) {
	return r.execute("compress.tmpl", textData{Language: r.language, Text: text})
}

// Questions asks for exactly domain.QuestionsPerSynthesis questions over the first topics.
func (r *Renderer) Questions(summary string, topics []string) (string, error) {
	if len(topics) > domain.QuestionsPerSynthesis {
		topics = topics[:domain.QuestionsPerSynthesis]
	}
	return r.execute("questions.tmpl", questionsData{
		Language: r.language,
		Count:    domain.QuestionsPerSynthesis,
		Summary:  summary,
		Topics:   topics,
	})
}

// Feedback asks for free-text feedback on the gap between two assessed levels.
func (r *Renderer) Feedback(question, modelLevel, userLevel string) (string, error) {
	return r.execute("feedback.tmpl", feedbackData{
		Language:   r.language,
		Question:   question,
		ModelLevel: modelLevel,
		UserLevel:  userLevel,
	})
}

func (r *Renderer) execute(name string, data any) (string, error) {
	var buf bytes.Buffer
	if err := r.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("execute prompt %s: %w", name, err)
	}
	return buf.String(), nil
}
