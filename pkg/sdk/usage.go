package questiongen

import (
	"context"
	"time"

	domusage "github.com/gomtr72/question-generator/internal/domain/usage"
)

// UsagePeriod is the aggregation granularity for usage reports.
type UsagePeriod string

// UsagePeriod constants.
const (
	PeriodDay   UsagePeriod = "day"
	PeriodMonth UsagePeriod = "month"
	PeriodTotal UsagePeriod = "total"
)

// UsageReport contains LLM usage statistics for a time period.
type UsageReport struct {
	Period      UsagePeriod
	PeriodStart time.Time
	PeriodEnd   time.Time
	Provider    string
	Metrics     UsageMetrics
	Budget      BudgetStatus
}

// UsageMetrics tracks LLM resource consumption.
type UsageMetrics struct {
	CompletionRequests int
	Tokens             int
	CostMillidollars   int
}

// BudgetStatus tracks token quota state. A zero limit means unlimited.
type BudgetStatus struct {
	Unlimited       bool
	TokensLimit     int
	TokensUsed      int
	TokensRemaining int
	IsExhausted     bool
	ResetsAt        time.Time
}

// Usage returns a token usage report for the given period.
// Counters are only kept when WithTokenBudget is set.
func (c *Client) Usage(ctx context.Context, period UsagePeriod) UsageReport {
	start := time.Now()
	defer func() { c.obs.observe("usage", start, 0, nil) }()

	report := c.usageSvc.GetReport(ctx, domusage.Period(period))
	m := report.Metrics()
	b := report.Budget()

	out := UsageReport{
		Period:      UsagePeriod(report.Period()),
		PeriodStart: time.UnixMilli(report.PeriodStart()).UTC(),
		PeriodEnd:   time.UnixMilli(report.PeriodEnd()).UTC(),
		Provider:    report.Provider(),
		Metrics: UsageMetrics{
			CompletionRequests: m.CompletionRequests(),
			Tokens:             m.Tokens(),
			CostMillidollars:   m.CostMillidollars(),
		},
		Budget: BudgetStatus{
			Unlimited:       b.Unlimited(),
			TokensLimit:     b.TokensLimit(),
			TokensUsed:      b.TokensUsed(),
			TokensRemaining: b.TokensRemaining(),
			IsExhausted:     b.IsExhausted(),
		},
	}
	if b.ResetsAt() > 0 {
		out.Budget.ResetsAt = time.UnixMilli(b.ResetsAt()).UTC()
	}
	return out
}

// usageUseCase is the internal interface for usage reports.
type usageUseCase interface {
	GetReport(ctx context.Context, period domusage.Period) domusage.Report
}
