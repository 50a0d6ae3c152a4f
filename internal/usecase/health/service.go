package health

import (
	"context"
	"time"
)

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates an auxiliary component is failing; generation still works.
	Degraded Status = "degraded"
	// Unhealthy indicates the LLM backend is unreachable.
	Unhealthy Status = "error"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// Component names used as Report.Checks keys.
const (
	ComponentStore = "redis"
	ComponentLLM   = "llm"
)

const defaultCheckTimeout = 5 * time.Second

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Service coordinates health checks.
type Service struct {
	store   StorePinger
	llm     LLMChecker
	timeout time.Duration
}

// New creates a Service. store is nil when budgets are kept in memory only.
func New(store StorePinger, llm LLMChecker) *Service {
	return &Service{store: store, llm: llm, timeout: defaultCheckTimeout}
}

// Check runs health checks against all configured components.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult)

	if s.store != nil {
		checks[ComponentStore] = s.run(ctx, s.store.Ping)
	}
	if s.llm != nil {
		checks[ComponentLLM] = s.run(ctx, s.llm.HealthCheck)
	}

	status := Healthy
	switch {
	case checks[ComponentLLM] == CheckError:
		status = Unhealthy
	case checks[ComponentStore] == CheckError:
		status = Degraded
	}

	return Report{Status: status, Checks: checks}
}

func (s *Service) run(ctx context.Context, check func(context.Context) error) CheckResult {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if err := check(ctx); err != nil {
		return CheckError
	}
	return CheckOK
}
