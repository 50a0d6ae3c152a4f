package domain

import (
	"context"
	"sync"
)

type completionUsageKey struct{}

// CompletionUsage collects LLM token usage for a single request.
// The handler puts a pointer into the context before calling the pipeline;
// completers add to it after each call; the handler reads it for response headers.
// Chunk calls may run concurrently, so updates are guarded.
type CompletionUsage struct {
	mu          sync.Mutex
	calls       int
	totalTokens int
}

// NewContextWithUsage returns a context with an embedded usage collector.
func NewContextWithUsage(ctx context.Context) (context.Context, *CompletionUsage) {
	u := &CompletionUsage{}
	return context.WithValue(ctx, completionUsageKey{}, u), u
}

// UsageFromContext extracts the usage collector from context. Returns nil if not set.
func UsageFromContext(ctx context.Context) *CompletionUsage {
	u, _ := ctx.Value(completionUsageKey{}).(*CompletionUsage)
	return u
}

// Add records one completed call and its tokens.
func (u *CompletionUsage) Add(tokens int) {
	if u == nil {
		return
	}
	u.mu.Lock()
	u.calls++
	u.totalTokens += tokens
	u.mu.Unlock()
}

// Calls returns the number of recorded LLM calls.
func (u *CompletionUsage) Calls() int {
	if u == nil {
		return 0
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.calls
}

// TotalTokens returns the tokens consumed so far.
func (u *CompletionUsage) TotalTokens() int {
	if u == nil {
		return 0
	}
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.totalTokens
}
