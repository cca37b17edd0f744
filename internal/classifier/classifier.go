package classifier

import (
	"context"
	"time"

	"github.com/ignite/phishtrack/internal/iprange"
	"github.com/ignite/phishtrack/internal/pkg/logger"
)

// Reason codes attached to verdicts. Stable strings: they end up in scan_type
// columns and operational logs.
const (
	ReasonOK             = "ok"
	ReasonShortUA        = "ua_too_short"
	ReasonNoBrowser      = "no_browser_signature"
	ReasonNoPlatform     = "no_platform"
	ReasonTooFast        = "too_fast_after_send"
	ReasonDenylisted     = "denylisted_agent"
	ReasonMailSecurityIP = "mail_security_ip"
	ReasonKnownScanner   = "known_scanner_ip"
	ReasonRateExceeded   = "rate_exceeded"

	// WarnSlowOpen marks the ambiguous 10-30s window: accepted, but flagged.
	WarnSlowOpen = "low_confidence_timing"
)

// RequestContext carries everything the classifier may inspect about a hit.
// It is built once at the HTTP boundary so classification is a deterministic
// function of its inputs, testable without a live request.
type RequestContext struct {
	IP        string
	UserAgent string
	Now       time.Time
}

// Verdict is the classification outcome. Reason explains a rejection (or is
// "ok"); Warning carries soft signals that did not reject on their own.
type Verdict struct {
	IsReal  bool
	Reason  string
	Warning string
}

func accept(warning string) Verdict { return Verdict{IsReal: true, Reason: ReasonOK, Warning: warning} }
func scan(reason string) Verdict    { return Verdict{IsReal: false, Reason: reason} }

// Registry is the append-only store of IPs previously identified as
// scanners. Implementations must be concurrency-safe; RecordScanner must
// upsert so concurrent writers for the same IP never lose updates.
type Registry interface {
	// IsActiveScanner reports whether ip is already marked active.
	IsActiveScanner(ctx context.Context, ip string) (bool, error)

	// RecordScanner inserts ip (or bumps its scan count and last-seen time).
	RecordScanner(ctx context.Context, ip, provider string, seenAt time.Time) error
}

// Usage is the burst activity observed for a source IP.
type Usage struct {
	Hits      int // tracking hits inside the hit window
	Campaigns int // distinct campaigns inside the campaign window
}

// RateTracker records a hit for ip and returns its recent usage, for
// parallel-scan detection. Lookups must be single indexed operations.
type RateTracker interface {
	Observe(ctx context.Context, ip, campaignID string, now time.Time) (Usage, error)
}

// Config holds the classifier thresholds. Zero values are replaced by the
// defaults below.
type Config struct {
	MinUserAgentLength int           // below this, definitionally a bot
	RejectWindow       time.Duration // opens faster than this after send are bots
	WarnWindow         time.Duration // opens inside this are accepted but flagged
	MaxHits            int           // hits per IP inside HitWindow before rejecting
	HitWindow          time.Duration
	MaxCampaigns       int // distinct campaigns per IP inside CampaignWindow
	CampaignWindow     time.Duration
}

func (c Config) withDefaults() Config {
	if c.MinUserAgentLength == 0 {
		c.MinUserAgentLength = 50
	}
	if c.RejectWindow == 0 {
		c.RejectWindow = 10 * time.Second
	}
	if c.WarnWindow == 0 {
		c.WarnWindow = 30 * time.Second
	}
	if c.MaxHits == 0 {
		c.MaxHits = 3
	}
	if c.HitWindow == 0 {
		c.HitWindow = 2 * time.Second
	}
	if c.MaxCampaigns == 0 {
		c.MaxCampaigns = 2
	}
	if c.CampaignWindow == 0 {
		c.CampaignWindow = 10 * time.Second
	}
	return c
}

// Classifier runs the rule pipeline. Construct once and share; it is safe
// for concurrent use as long as the injected registry and rate tracker are.
type Classifier struct {
	cfg    Config
	ranges *iprange.Matcher
	reg    Registry
	rates  RateTracker
}

// New creates a classifier. registry and rates may be nil, in which case the
// corresponding checks are skipped (useful for offline evaluation).
func New(cfg Config, ranges *iprange.Matcher, registry Registry, rates RateTracker) *Classifier {
	if ranges == nil {
		ranges = iprange.NewMatcher()
	}
	return &Classifier{cfg: cfg.withDefaults(), ranges: ranges, reg: registry, rates: rates}
}

// Classify runs every rule in order against one tracking hit. sentAt is the
// recipient's send timestamp when known (nil disables the timing rule);
// campaignID feeds parallel-scan detection.
//
// Given the same registry snapshot, identical inputs always produce the same
// verdict.
func (c *Classifier) Classify(ctx context.Context, rc RequestContext, sentAt *time.Time, campaignID string) Verdict {
	ua := rc.UserAgent

	// 1. Too-short or empty user agents are definitionally bots.
	if len(ua) < c.cfg.MinUserAgentLength {
		return scan(ReasonShortUA)
	}

	// 2. Must look like a real browser with a dotted version.
	if !HasBrowserSignature(ua) {
		return scan(ReasonNoBrowser)
	}

	// 3. Must claim a recognizable platform or mail client.
	if !HasPlatformToken(ua) {
		return scan(ReasonNoPlatform)
	}

	// 4. Humans do not open an email within seconds of delivery.
	warning := ""
	if sentAt != nil {
		elapsed := rc.Now.Sub(*sentAt)
		if elapsed < c.cfg.RejectWindow {
			return scan(ReasonTooFast)
		}
		if elapsed < c.cfg.WarnWindow {
			warning = WarnSlowOpen
		}
	}

	// 5. Known scanner fingerprints in the agent string.
	if IsDenylistedAgent(ua) {
		c.remember(ctx, rc, "fingerprint")
		return scan(ReasonDenylisted)
	}

	// 6. Hits from mail-security egress ranges get stricter sub-checks.
	if provider, ok := c.ranges.Match(rc.IP); ok {
		if !passesMailSecurityScrutiny(ua) {
			c.remember(ctx, rc, provider)
			return scan(ReasonMailSecurityIP)
		}
	}

	// 7. IPs we have already caught scanning are rejected on sight.
	if c.reg != nil {
		known, err := c.reg.IsActiveScanner(ctx, rc.IP)
		if err != nil {
			logger.Warn("scanner registry lookup failed", "ip", rc.IP, "error", err.Error())
		} else if known {
			return scan(ReasonKnownScanner)
		}
	}

	// 8. Burst and parallel-campaign detection.
	if c.rates != nil {
		usage, err := c.rates.Observe(ctx, rc.IP, campaignID, rc.Now)
		if err != nil {
			logger.Warn("rate tracker unavailable", "ip", rc.IP, "error", err.Error())
		} else if usage.Hits > c.cfg.MaxHits || usage.Campaigns > c.cfg.MaxCampaigns {
			c.remember(ctx, rc, "burst")
			return scan(ReasonRateExceeded)
		}
	}

	return accept(warning)
}

// remember writes a definitive scanner match into the registry so future
// hits from the same IP take the fast-path rejection in rule 7.
func (c *Classifier) remember(ctx context.Context, rc RequestContext, provider string) {
	if c.reg == nil {
		return
	}
	if err := c.reg.RecordScanner(ctx, rc.IP, provider, rc.Now); err != nil {
		logger.Warn("scanner registry write failed", "ip", rc.IP, "error", err.Error())
	}
}
