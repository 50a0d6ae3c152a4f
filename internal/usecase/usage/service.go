package usage

import (
	"context"
	"time"

	domusage "github.com/gomtr72/question-generator/internal/domain/usage"
	"github.com/gomtr72/question-generator/internal/domain/usage/budget"
	"github.com/gomtr72/question-generator/internal/domain/usage/metrics"
)

// Service handles usage reporting.
type Service struct {
	br  BudgetReader
	now func() time.Time
}

// New creates a Service. br can be nil (unlimited mode).
func New(br BudgetReader) *Service {
	return &Service{br: br, now: func() time.Time { return time.Now().UTC() }}
}

// window is the counter set a period reads from.
type window struct {
	limit, used, requests int64
}

// GetReport builds a usage report for the given period.
func (s *Service) GetReport(_ context.Context, period domusage.Period) domusage.Report {
	now := s.now()
	var start, end int64
	var w window

	switch period {
	case domusage.PeriodDay:
		dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
		start = dayStart.UnixMilli()
		end = dayStart.Add(24 * time.Hour).UnixMilli()
		w = s.daily()
	case domusage.PeriodMonth:
		monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
		start = monthStart.UnixMilli()
		end = monthStart.AddDate(0, 1, 0).UnixMilli()
		w = s.monthly()
	default:
		// total: no boundaries, the monthly window is the widest one tracked
		w = s.monthly()
	}

	provider := ""
	if s.br != nil {
		provider = s.br.Provider()
	}

	b := budget.New(int(w.limit), int(w.used), end)
	m := metrics.New(int(w.requests), int(w.used), 0) // cost is not tracked per provider

	return domusage.NewReport(period, start, end, provider, m, b)
}

func (s *Service) daily() window {
	if s.br == nil {
		return window{}
	}
	return window{
		limit:    s.br.DailyLimit(),
		used:     s.br.DailyUsed(),
		requests: s.br.DailyRequests(),
	}
}

func (s *Service) monthly() window {
	if s.br == nil {
		return window{}
	}
	return window{
		limit:    s.br.MonthlyLimit(),
		used:     s.br.MonthlyUsed(),
		requests: s.br.MonthlyRequests(),
	}
}
