// Package budget persists LLM token counters in Redis.
package budget

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gomtr72/question-generator/internal/db"
)

// Default TTLs outlive their window so a restart near the boundary still sees the counter.
const (
	DefaultDailyTTL   = 48 * time.Hour
	DefaultMonthlyTTL = 62 * 24 * time.Hour
)

type counters interface {
	GetInt(ctx context.Context, key string) (int64, error)
	IncrByExpireNX(ctx context.Context, key string, val int64, ttl time.Duration) (int64, error)
}

// Store implements completion.BudgetStore on top of Redis counters.
type Store struct {
	store    counters
	dailyTTL time.Duration
	monthTTL time.Duration
}

// New creates a budget store. Non-positive TTLs fall back to the defaults.
func New(s counters, dailyTTL, monthTTL time.Duration) *Store {
	if dailyTTL <= 0 {
		dailyTTL = DefaultDailyTTL
	}
	if monthTTL <= 0 {
		monthTTL = DefaultMonthlyTTL
	}
	return &Store{
		store:    s,
		dailyTTL: dailyTTL,
		monthTTL: monthTTL,
	}
}

// IncrBy adds tokens to the counter. The TTL is set on first write only.
func (s *Store) IncrBy(ctx context.Context, key string, val int64) error {
	if _, err := s.store.IncrByExpireNX(ctx, key, val, s.ttlForKey(key)); err != nil {
		return fmt.Errorf("budget INCRBY %s: %w", key, err)
	}
	return nil
}

// Get returns the current counter value, 0 when the key does not exist.
func (s *Store) Get(ctx context.Context, key string) (int64, error) {
	v, err := s.store.GetInt(ctx, key)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("budget GET %s: %w", key, err)
	}
	return v, nil
}

// Keys look like questiongen:budget:{provider}:daily:2006-01-02 or :monthly:2006-01.
func (s *Store) ttlForKey(key string) time.Duration {
	if strings.Contains(key, ":daily:") {
		return s.dailyTTL
	}
	return s.monthTTL
}
