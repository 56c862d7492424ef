package custodial

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

const (
	spendKeyPrefix = "aispend:v1:"
	spendWindow    = 24 * time.Hour
	// Buckets live an hour past the window so a bucket opened 23h59m ago is
	// still counted in full.
	spendBucketTTL = spendWindow + time.Hour
)

// SpendTracker accumulates agent-initiated spend per custodial wallet over a
// rolling 24-hour window.
type SpendTracker interface {
	Spent(ctx context.Context, walletID string) (decimal.Decimal, error)
	Record(ctx context.Context, walletID string, amount decimal.Decimal) error
}

// RedisSpendTracker keeps hourly spend buckets in Redis, each bucket a list of
// exact decimal strings. Summing the trailing 24 buckets approximates the
// rolling window at hour granularity, always rounding against the spender.
type RedisSpendTracker struct {
	client *redis.Client
	now    func() time.Time
}

// NewRedisSpendTracker builds a Redis-backed spend tracker.
func NewRedisSpendTracker(client *redis.Client) *RedisSpendTracker {
	return &RedisSpendTracker{client: client, now: time.Now}
}

func (t *RedisSpendTracker) bucketKey(walletID string, hour int64) string {
	return fmt.Sprintf("%s%s:%d", spendKeyPrefix, walletID, hour)
}

// Record appends the amount to the current hour's bucket. The decimal string
// goes in unconverted, so the window never drifts through float rounding.
func (t *RedisSpendTracker) Record(ctx context.Context, walletID string, amount decimal.Decimal) error {
	hour := t.now().Unix() / 3600
	key := t.bucketKey(walletID, hour)

	if err := t.client.RPush(ctx, key, amount.String()).Err(); err != nil {
		return err
	}
	return t.client.Expire(ctx, key, spendBucketTTL).Err()
}

// Spent sums the trailing 24 hourly buckets with exact decimal arithmetic.
func (t *RedisSpendTracker) Spent(ctx context.Context, walletID string) (decimal.Decimal, error) {
	hour := t.now().Unix() / 3600

	pipe := t.client.Pipeline()
	cmds := make([]*redis.StringSliceCmd, 0, 24)
	for i := int64(0); i < 24; i++ {
		cmds = append(cmds, pipe.LRange(ctx, t.bucketKey(walletID, hour-i), 0, -1))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return decimal.Decimal{}, err
	}

	total := decimal.Zero
	for _, cmd := range cmds {
		for _, s := range cmd.Val() {
			d, err := decimal.NewFromString(s)
			if err != nil {
				continue
			}
			total = total.Add(d)
		}
	}
	return total, nil
}

// MemorySpendTracker is an in-process tracker for tests.
type MemorySpendTracker struct {
	mu      sync.Mutex
	entries map[string][]spendEntry
	now     func() time.Time
}

type spendEntry struct {
	at     time.Time
	amount decimal.Decimal
}

// NewMemorySpendTracker builds an in-memory spend tracker.
func NewMemorySpendTracker() *MemorySpendTracker {
	return &MemorySpendTracker{entries: make(map[string][]spendEntry), now: time.Now}
}

// SetClock overrides the clock, letting tests move the window.
func (t *MemorySpendTracker) SetClock(now func() time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.now = now
}

// Record implements SpendTracker.
func (t *MemorySpendTracker) Record(_ context.Context, walletID string, amount decimal.Decimal) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries[walletID] = append(t.entries[walletID], spendEntry{at: t.now(), amount: amount})
	return nil
}

// Spent implements SpendTracker.
func (t *MemorySpendTracker) Spent(_ context.Context, walletID string) (decimal.Decimal, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	cutoff := t.now().Add(-spendWindow)
	total := decimal.Zero
	for _, e := range t.entries[walletID] {
		if e.at.After(cutoff) {
			total = total.Add(e.amount)
		}
	}
	return total, nil
}
