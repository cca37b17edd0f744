package classifier

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/phishtrack/internal/iprange"
)

// memRegistry is an in-memory scanner registry for unit testing.
type memRegistry struct {
	mu     sync.Mutex
	active map[string]string // ip -> provider
	writes int
}

func newMemRegistry() *memRegistry {
	return &memRegistry{active: make(map[string]string)}
}

func (m *memRegistry) IsActiveScanner(_ context.Context, ip string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.active[ip]
	return ok, nil
}

func (m *memRegistry) RecordScanner(_ context.Context, ip, provider string, _ time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.active[ip] = provider
	m.writes++
	return nil
}

// fixedRates always reports the same usage.
type fixedRates struct{ u Usage }

func (f fixedRates) Observe(context.Context, string, string, time.Time) (Usage, error) {
	return f.u, nil
}

func newTestClassifier(reg Registry, rates RateTracker) *Classifier {
	return New(Config{}, iprange.NewMatcher(), reg, rates)
}

func TestClassifyRealUser(t *testing.T) {
	c := newTestClassifier(newMemRegistry(), fixedRates{Usage{Hits: 1, Campaigns: 1}})
	sent := time.Now().Add(-2 * time.Minute)

	v := c.Classify(context.Background(), RequestContext{
		IP: "203.0.113.10", UserAgent: chromeWindowsUA, Now: time.Now(),
	}, &sent, "camp-1")

	assert.True(t, v.IsReal)
	assert.Equal(t, ReasonOK, v.Reason)
	assert.Empty(t, v.Warning)
}

// Any user agent shorter than the minimum is a bot, for all IPs.
func TestClassifyShortUA(t *testing.T) {
	c := newTestClassifier(newMemRegistry(), nil)
	for _, ip := range []string{"203.0.113.10", "40.92.1.1", "127.0.0.1", ""} {
		v := c.Classify(context.Background(), RequestContext{IP: ip, UserAgent: "Mozilla/5.0", Now: time.Now()}, nil, "camp-1")
		assert.False(t, v.IsReal, ip)
		assert.Equal(t, ReasonShortUA, v.Reason)
	}
}

// Opens timestamped under 10s after send are rejected regardless of other signals.
func TestClassifyTimingRejection(t *testing.T) {
	c := newTestClassifier(newMemRegistry(), fixedRates{Usage{Hits: 1, Campaigns: 1}})
	now := time.Now()
	sent := now.Add(-5 * time.Second)

	v := c.Classify(context.Background(), RequestContext{IP: "203.0.113.10", UserAgent: chromeWindowsUA, Now: now}, &sent, "camp-1")
	assert.False(t, v.IsReal)
	assert.Equal(t, ReasonTooFast, v.Reason)
}

// The 10-30s window is a soft signal: accepted, flagged.
func TestClassifyTimingWarning(t *testing.T) {
	c := newTestClassifier(newMemRegistry(), fixedRates{Usage{Hits: 1, Campaigns: 1}})
	now := time.Now()
	sent := now.Add(-20 * time.Second)

	v := c.Classify(context.Background(), RequestContext{IP: "203.0.113.10", UserAgent: chromeWindowsUA, Now: now}, &sent, "camp-1")
	assert.True(t, v.IsReal)
	assert.Equal(t, WarnSlowOpen, v.Warning)
}

func TestClassifyDenylistWritesRegistry(t *testing.T) {
	reg := newMemRegistry()
	c := newTestClassifier(reg, nil)

	ua := "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 SafeLinks Chrome/100.0.4896.60 Safari/537.36"
	v := c.Classify(context.Background(), RequestContext{IP: "198.51.100.7", UserAgent: ua, Now: time.Now()}, nil, "camp-1")
	require.False(t, v.IsReal)
	assert.Equal(t, ReasonDenylisted, v.Reason)

	// The definitive match landed in the registry for fast-path rejection.
	known, err := reg.IsActiveScanner(context.Background(), "198.51.100.7")
	require.NoError(t, err)
	assert.True(t, known)
}

func TestClassifyMailSecurityIP(t *testing.T) {
	reg := newMemRegistry()
	c := newTestClassifier(reg, fixedRates{Usage{Hits: 1, Campaigns: 1}})

	// A Linux agent from a Microsoft ATP range fails the stricter sub-checks.
	v := c.Classify(context.Background(), RequestContext{IP: "40.92.1.20", UserAgent: firefoxLinuxUA, Now: time.Now()}, nil, "camp-1")
	assert.False(t, v.IsReal)
	assert.Equal(t, ReasonMailSecurityIP, v.Reason)
	assert.Equal(t, "microsoft", reg.active["40.92.1.20"])

	// A plausible Windows Chrome from the same range is accepted.
	v = c.Classify(context.Background(), RequestContext{IP: "40.92.1.21", UserAgent: chromeWindowsUA, Now: time.Now()}, nil, "camp-1")
	assert.True(t, v.IsReal)
}

func TestClassifyKnownScannerFastPath(t *testing.T) {
	reg := newMemRegistry()
	reg.active["203.0.113.66"] = "seen-before"
	c := newTestClassifier(reg, nil)

	v := c.Classify(context.Background(), RequestContext{IP: "203.0.113.66", UserAgent: chromeWindowsUA, Now: time.Now()}, nil, "camp-1")
	assert.False(t, v.IsReal)
	assert.Equal(t, ReasonKnownScanner, v.Reason)
}

func TestClassifyRateExceeded(t *testing.T) {
	reg := newMemRegistry()

	c := newTestClassifier(reg, fixedRates{Usage{Hits: 4, Campaigns: 1}})
	v := c.Classify(context.Background(), RequestContext{IP: "203.0.113.9", UserAgent: chromeWindowsUA, Now: time.Now()}, nil, "camp-1")
	assert.False(t, v.IsReal)
	assert.Equal(t, ReasonRateExceeded, v.Reason)

	c = newTestClassifier(reg, fixedRates{Usage{Hits: 1, Campaigns: 3}})
	v = c.Classify(context.Background(), RequestContext{IP: "203.0.113.9", UserAgent: chromeWindowsUA, Now: time.Now()}, nil, "camp-2")
	assert.False(t, v.IsReal)
	assert.Equal(t, ReasonRateExceeded, v.Reason)
}

// Identical inputs against the same registry snapshot always agree.
func TestClassifyDeterminism(t *testing.T) {
	c := newTestClassifier(newMemRegistry(), fixedRates{Usage{Hits: 2, Campaigns: 1}})
	sent := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	rc := RequestContext{IP: "203.0.113.10", UserAgent: chromeWindowsUA, Now: sent.Add(90 * time.Second)}

	first := c.Classify(context.Background(), rc, &sent, "camp-1")
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, c.Classify(context.Background(), rc, &sent, "camp-1"))
	}
}
