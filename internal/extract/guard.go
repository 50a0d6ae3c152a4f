package extract

import (
	"context"
	"strings"

	"github.com/gomtr72/question-generator/internal/domain"
)

// DefaultFailurePatterns are the failure sentences legacy extractors return in place of content.
var DefaultFailurePatterns = []string{
	"처리 중 오류가 발생했습니다",
	"찾을 수 없습니다",
	"접근할 수 없습니다",
	"올바르지 않은",
	"제공되지 않았습니다",
}

// Guard converts payloads that contain a known failure sentence into content errors.
// It is meant for collaborators that have no error channel. The built-in
// extractors report failure through their error result and are not wrapped.
type Guard struct {
	inner    Extractor
	patterns []string
}

// NewGuard wraps inner. nil patterns selects DefaultFailurePatterns.
func NewGuard(inner Extractor, patterns []string) *Guard {
	if patterns == nil {
		patterns = DefaultFailurePatterns
	}
	return &Guard{inner: inner, patterns: patterns}
}

// Extract delegates to the wrapped extractor and inspects its payload.
func (g *Guard) Extract(ctx context.Context, src domain.Source) (string, error) {
	text, err := g.inner.Extract(ctx, src)
	if err != nil {
		return "", err
	}
	for _, p := range g.patterns {
		if p != "" && strings.Contains(text, p) {
			return "", domain.NewContentError(src.Type, "extractor reported failure: "+p, nil)
		}
	}
	return text, nil
}
