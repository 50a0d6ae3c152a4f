// Package extract turns a content source into plain text for the pipeline.
//
// Extractors report failure through the error result. Guard adapts collaborators
// that embed failure sentences in a successful payload.
package extract

import (
	"context"
	"fmt"
	"strings"

	"github.com/gomtr72/question-generator/internal/domain"
)

// Extractor returns the plain text of a source.
type Extractor interface {
	Extract(ctx context.Context, src domain.Source) (string, error)
}

// ExtractorFunc adapts a function to Extractor.
type ExtractorFunc func(ctx context.Context, src domain.Source) (string, error)

// Extract calls f.
func (f ExtractorFunc) Extract(ctx context.Context, src domain.Source) (string, error) {
	return f(ctx, src)
}

// Registry dispatches sources to the extractor registered for their type.
type Registry struct {
	extractors map[domain.ContentType]Extractor
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{extractors: make(map[domain.ContentType]Extractor)}
}

// Register binds an extractor to a content type, replacing any previous one.
func (r *Registry) Register(t domain.ContentType, e Extractor) *Registry {
	r.extractors[t] = e
	return r
}

// Supports reports whether an extractor is registered for t.
func (r *Registry) Supports(t domain.ContentType) bool {
	_, ok := r.extractors[t]
	return ok
}

// Extract runs the registered extractor and trims its output.
// Empty output is a content error.
func (r *Registry) Extract(ctx context.Context, src domain.Source) (string, error) {
	e, ok := r.extractors[src.Type]
	if !ok {
		return "", domain.NewContentError(src.Type, "no extractor configured",
			fmt.Errorf("%w: %s", domain.ErrUnsupportedContent, src.Type))
	}

	text, err := e.Extract(ctx, src)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", err
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", domain.NewContentError(src.Type, "no text could be extracted", nil)
	}
	return text, nil
}

// Text passes inline text through.
type Text struct{}

// Extract returns the trimmed content.
func (Text) Extract(_ context.Context, src domain.Source) (string, error) {
	text := strings.TrimSpace(src.Content)
	if text == "" {
		return "", domain.NewContentError(domain.ContentText, "text is empty", nil)
	}
	return text, nil
}
