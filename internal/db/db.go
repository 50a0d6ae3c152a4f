package db

import (
	"context"
	"time"
)

// Store is the database facade used by the service.
type Store interface {
	Pinger
	CounterStore
	Close()
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// Pinger checks database connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// CounterStore keeps integer counters with expiry.
type CounterStore interface {
	// GetInt returns ErrKeyNotFound when the key is missing.
	GetInt(ctx context.Context, key string) (int64, error)
	IncrBy(ctx context.Context, key string, val int64) (int64, error)
	Expire(ctx context.Context, key string, ttl time.Duration, nx bool) error
	// IncrByExpireNX increments the key and sets ttl only if the key has no expiry yet,
	// in a single round trip.
	IncrByExpireNX(ctx context.Context, key string, val int64, ttl time.Duration) (int64, error)
}
