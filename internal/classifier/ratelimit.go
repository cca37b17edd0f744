package classifier

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RedisRateTracker implements RateTracker on Redis sorted sets, one sliding
// window per source IP. Scores are unix nanoseconds; stale members are
// trimmed on every observation so the sets stay bounded. All commands for a
// hit ride a single pipeline round trip.
type RedisRateTracker struct {
	client         *redis.Client
	hitWindow      time.Duration
	campaignWindow time.Duration
}

// NewRedisRateTracker creates a tracker with the given sliding windows.
// Zero durations fall back to the classifier defaults (2s hits, 10s campaigns).
func NewRedisRateTracker(client *redis.Client, hitWindow, campaignWindow time.Duration) *RedisRateTracker {
	if hitWindow == 0 {
		hitWindow = 2 * time.Second
	}
	if campaignWindow == 0 {
		campaignWindow = 10 * time.Second
	}
	return &RedisRateTracker{client: client, hitWindow: hitWindow, campaignWindow: campaignWindow}
}

// Observe records one hit for ip against campaignID and returns the usage
// inside the configured windows, including this hit.
func (t *RedisRateTracker) Observe(ctx context.Context, ip, campaignID string, now time.Time) (Usage, error) {
	hitKey := "track:hits:" + ip
	campKey := "track:camps:" + ip
	nowNs := now.UnixNano()

	pipe := t.client.TxPipeline()
	// Member must be unique per hit or concurrent requests in the same
	// nanosecond would collapse into one.
	pipe.ZAdd(ctx, hitKey, redis.Z{Score: float64(nowNs), Member: uuid.NewString()})
	pipe.ZRemRangeByScore(ctx, hitKey, "0", fmt.Sprintf("%d", now.Add(-t.hitWindow).UnixNano()))
	hits := pipe.ZCard(ctx, hitKey)
	pipe.Expire(ctx, hitKey, t.hitWindow*2)

	pipe.ZAdd(ctx, campKey, redis.Z{Score: float64(nowNs), Member: campaignID})
	pipe.ZRemRangeByScore(ctx, campKey, "0", fmt.Sprintf("%d", now.Add(-t.campaignWindow).UnixNano()))
	camps := pipe.ZCard(ctx, campKey)
	pipe.Expire(ctx, campKey, t.campaignWindow*2)

	if _, err := pipe.Exec(ctx); err != nil {
		return Usage{}, fmt.Errorf("rate observe %s: %w", ip, err)
	}
	return Usage{Hits: int(hits.Val()), Campaigns: int(camps.Val())}, nil
}
