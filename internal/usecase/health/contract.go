package health

import "context"

// StorePinger checks budget store availability.
type StorePinger interface {
	Ping(ctx context.Context) error
}

// LLMChecker checks LLM backend availability.
type LLMChecker interface {
	HealthCheck(ctx context.Context) error
}
