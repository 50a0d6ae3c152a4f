package completion

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/gomtr72/question-generator/internal/domain"
)

// BudgetAction defines behavior when the token budget is exceeded.
type BudgetAction string

const (
	// BudgetActionWarn logs a warning but allows the request.
	BudgetActionWarn BudgetAction = "warn"
	// BudgetActionReject blocks the request with domain.ErrQuotaExceeded.
	BudgetActionReject BudgetAction = "reject"
)

// BudgetStore persists budget counters. IncrBy may be called repeatedly for the same key.
type BudgetStore interface {
	IncrBy(ctx context.Context, key string, val int64) error
	Get(ctx context.Context, key string) (int64, error)
}

// BudgetConfig configures a BudgetTracker. Zero limits mean unlimited.
type BudgetConfig struct {
	Provider     string
	KeyPrefix    string
	DailyLimit   int64
	MonthlyLimit int64
	Action       BudgetAction
}

// period holds the counters of one budget window.
type period struct {
	used     int64
	requests int64
	start    time.Time
}

// BudgetTracker keeps daily and monthly token counters in memory and
// writes them behind to an optional store. Check never leaves the process.
type BudgetTracker struct {
	mu      sync.Mutex
	cfg     BudgetConfig
	daily   period
	monthly period
	store   BudgetStore
	logger  *zap.Logger
	now     func() time.Time
}

// NewBudgetTracker creates a budget tracker.
func NewBudgetTracker(cfg BudgetConfig, logger *zap.Logger) *BudgetTracker {
	if cfg.Action == "" {
		cfg.Action = BudgetActionWarn
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	b := &BudgetTracker{cfg: cfg, logger: logger, now: func() time.Time { return time.Now().UTC() }}
	now := b.now()
	b.daily.start = truncateToDay(now)
	b.monthly.start = truncateToMonth(now)
	return b
}

// WithStore attaches a persistence store and loads the current counters from it.
func (b *BudgetTracker) WithStore(ctx context.Context, store BudgetStore) *BudgetTracker {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.store = store
	now := b.now()
	if v, err := store.Get(ctx, b.dailyKey(now)); err == nil {
		b.daily.used = v
	} else {
		b.logger.Warn("Failed to load daily budget from store", zap.Error(err))
	}
	if v, err := store.Get(ctx, b.monthlyKey(now)); err == nil {
		b.monthly.used = v
	} else {
		b.logger.Warn("Failed to load monthly budget from store", zap.Error(err))
	}

	b.logger.Info("Budget loaded from store",
		zap.String("provider", b.cfg.Provider),
		zap.Int64("daily_used", b.daily.used),
		zap.Int64("monthly_used", b.monthly.used),
	)
	return b
}

func (b *BudgetTracker) dailyKey(t time.Time) string {
	return fmt.Sprintf("%sbudget:%s:daily:%s", b.cfg.KeyPrefix, b.cfg.Provider, t.Format("2006-01-02"))
}

func (b *BudgetTracker) monthlyKey(t time.Time) string {
	return fmt.Sprintf("%sbudget:%s:monthly:%s", b.cfg.KeyPrefix, b.cfg.Provider, t.Format("2006-01"))
}

// Check reports whether a new call may start.
func (b *BudgetTracker) Check(_ context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.rollover()

	dailyExceeded := b.cfg.DailyLimit > 0 && b.daily.used >= b.cfg.DailyLimit
	monthlyExceeded := b.cfg.MonthlyLimit > 0 && b.monthly.used >= b.cfg.MonthlyLimit
	if !dailyExceeded && !monthlyExceeded {
		return nil
	}

	if b.cfg.Action == BudgetActionReject {
		window := "daily"
		if !dailyExceeded {
			window = "monthly"
		}
		return fmt.Errorf("%w: %s %s limit reached", domain.ErrQuotaExceeded, b.cfg.Provider, window)
	}

	b.logger.Warn("Token budget exceeded",
		zap.String("provider", b.cfg.Provider),
		zap.Int64("daily_used", b.daily.used),
		zap.Int64("daily_limit", b.cfg.DailyLimit),
		zap.Int64("monthly_used", b.monthly.used),
		zap.Int64("monthly_limit", b.cfg.MonthlyLimit),
	)
	return nil
}

// Record adds consumed tokens for one call and writes them behind to the store.
func (b *BudgetTracker) Record(tokens int64) {
	b.mu.Lock()
	b.rollover()
	b.daily.used += tokens
	b.monthly.used += tokens
	b.daily.requests++
	b.monthly.requests++
	store := b.store
	now := b.now()
	dailyKey, monthlyKey := b.dailyKey(now), b.monthlyKey(now)
	b.mu.Unlock()

	if store == nil || tokens <= 0 {
		return
	}

	// Detached from the caller: a cancelled request still counts its spent tokens.
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := store.IncrBy(ctx, dailyKey, tokens); err != nil {
		b.logger.Warn("Failed to persist daily budget", zap.String("key", dailyKey), zap.Error(err))
	}
	if err := store.IncrBy(ctx, monthlyKey, tokens); err != nil {
		b.logger.Warn("Failed to persist monthly budget", zap.String("key", monthlyKey), zap.Error(err))
	}
}

// Provider returns the backend name the budget applies to.
func (b *BudgetTracker) Provider() string { return b.cfg.Provider }

// DailyLimit returns the daily token cap (0 = unlimited).
func (b *BudgetTracker) DailyLimit() int64 { return b.cfg.DailyLimit }

// MonthlyLimit returns the monthly token cap (0 = unlimited).
func (b *BudgetTracker) MonthlyLimit() int64 { return b.cfg.MonthlyLimit }

// DailyUsed returns tokens consumed today.
func (b *BudgetTracker) DailyUsed() int64 { return b.read(func() int64 { return b.daily.used }) }

// MonthlyUsed returns tokens consumed this month.
func (b *BudgetTracker) MonthlyUsed() int64 { return b.read(func() int64 { return b.monthly.used }) }

// DailyRequests returns calls recorded today by this process.
func (b *BudgetTracker) DailyRequests() int64 { return b.read(func() int64 { return b.daily.requests }) }

// MonthlyRequests returns calls recorded this month by this process.
func (b *BudgetTracker) MonthlyRequests() int64 {
	return b.read(func() int64 { return b.monthly.requests })
}

// RemainingDaily returns tokens left today, -1 if unlimited.
func (b *BudgetTracker) RemainingDaily() int64 {
	return b.read(func() int64 { return remaining(b.cfg.DailyLimit, b.daily.used) })
}

// RemainingMonthly returns tokens left this month, -1 if unlimited.
func (b *BudgetTracker) RemainingMonthly() int64 {
	return b.read(func() int64 { return remaining(b.cfg.MonthlyLimit, b.monthly.used) })
}

func (b *BudgetTracker) read(f func() int64) int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.rollover()
	return f()
}

func remaining(limit, used int64) int64 {
	if limit == 0 {
		return -1
	}
	return max(limit-used, 0)
}

// rollover zeroes counters when the day or month changes. Caller holds mu.
func (b *BudgetTracker) rollover() {
	now := b.now()
	if today := truncateToDay(now); today.After(b.daily.start) {
		b.daily = period{start: today}
	}
	if month := truncateToMonth(now); month.After(b.monthly.start) {
		b.monthly = period{start: month}
	}
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func truncateToMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}
