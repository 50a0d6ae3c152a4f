// Package budget holds the token budget snapshot of one usage window.
package budget

// Budget is derived from the window limit and the tokens spent in it.
// A non-positive limit means unlimited.
type Budget struct {
	limit    int
	used     int
	resetsAt int64 // unix millis of the window end, 0 for the total period
}

// New creates a snapshot.
func New(limit, used int, resetsAt int64) Budget {
	return Budget{limit: max(limit, 0), used: max(used, 0), resetsAt: resetsAt}
}

// Unlimited reports whether no cap is configured.
func (b Budget) Unlimited() bool { return b.limit == 0 }

// TokensLimit returns the token cap, 0 when unlimited.
func (b Budget) TokensLimit() int { return b.limit }

// TokensUsed returns the tokens spent in the window.
func (b Budget) TokensUsed() int { return b.used }

// TokensRemaining returns tokens left. Warn-mode budgets can overspend; remaining never goes below 0.
func (b Budget) TokensRemaining() int {
	if b.Unlimited() {
		return 0
	}
	return max(b.limit-b.used, 0)
}

// IsExhausted reports whether a capped budget is spent.
func (b Budget) IsExhausted() bool { return !b.Unlimited() && b.used >= b.limit }

// ResetsAt returns when the window ends (unix millis), 0 if it never resets.
func (b Budget) ResetsAt() int64 {
	if b.Unlimited() {
		return 0
	}
	return b.resetsAt
}
