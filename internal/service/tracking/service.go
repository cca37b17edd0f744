package tracking

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/ignite/phishtrack/internal/classifier"
	"github.com/ignite/phishtrack/internal/domain"
	"github.com/ignite/phishtrack/internal/pkg/logger"
)

// Verdicter abstracts the bot classifier so service tests can script
// verdicts. *classifier.Classifier satisfies it.
type Verdicter interface {
	Classify(ctx context.Context, rc classifier.RequestContext, sentAt *time.Time, campaignID string) classifier.Verdict
}

// Config holds the ingestion tunables. Zero values take the defaults.
type Config struct {
	// DebounceWindow collapses repeat opens from the same recipient: inside
	// it only the raw counters move. Default 5m.
	DebounceWindow time.Duration

	// PendingTTL is how long an unconfirmed pending event survives before
	// the sweeper removes it. Default 24h.
	PendingTTL time.Duration

	// SweepInterval is how often the background sweep runs. Default 1h.
	SweepInterval time.Duration

	// SweepBatch caps rows deleted per sweep statement. Default 1000.
	SweepBatch int
}

func (c Config) withDefaults() Config {
	if c.DebounceWindow == 0 {
		c.DebounceWindow = 5 * time.Minute
	}
	if c.PendingTTL == 0 {
		c.PendingTTL = 24 * time.Hour
	}
	if c.SweepInterval == 0 {
		c.SweepInterval = time.Hour
	}
	if c.SweepBatch == 0 {
		c.SweepBatch = 1000
	}
	return c
}

// Service is the tracking-event ingestor. Safe for concurrent use; all
// shared mutable state lives behind the repository.
type Service struct {
	repo     Repository
	verdicts Verdicter
	cfg      Config
}

// NewService creates the ingestor.
func NewService(repo Repository, verdicts Verdicter, cfg Config) *Service {
	return &Service{repo: repo, verdicts: verdicts, cfg: cfg.withDefaults()}
}

// HandleOpen ingests one pixel hit. It returns true only when a genuine
// open was recorded (or debounced); callers serve the pixel either way so
// scanners can't probe the classifier.
func (s *Service) HandleOpen(ctx context.Context, token string, rc classifier.RequestContext) bool {
	r, err := s.repo.RecipientByToken(ctx, token)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			logger.Error("open: token lookup failed", "token", token, "error", err.Error())
		}
		return false
	}
	if !r.Trackable() {
		return false
	}

	v := s.verdicts.Classify(ctx, rc, r.SentAt, r.CampaignID)
	if !v.IsReal {
		s.recordScan(ctx, r, rc, v.Reason)
		return false
	}
	if v.Warning != "" {
		logger.Warn("open accepted with low confidence", "token", token, "signal", v.Warning, "ip", rc.IP)
	}

	return s.recordOpen(ctx, r, rc, domain.EventOpenVerified)
}

// HandleClick ingests one link hit. The redirect target is resolved and
// returned for every resolvable token, since a scanner still needs somewhere
// to go; wasReal/ok report whether the click counted.
func (s *Service) HandleClick(ctx context.Context, token string, rc classifier.RequestContext) (redirectURL string, wasReal, ok bool) {
	link, err := s.repo.LinkByToken(ctx, token)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			logger.Error("click: token lookup failed", "token", token, "error", err.Error())
		}
		return "", false, false
	}
	redirectURL = link.OriginalURL

	r, err := s.repo.Recipient(ctx, link.RecipientID)
	if err != nil || !r.Trackable() {
		return redirectURL, false, false
	}

	v := s.verdicts.Classify(ctx, rc, r.SentAt, r.CampaignID)
	if !v.IsReal {
		s.recordScan(ctx, r, rc, v.Reason)
		return redirectURL, false, false
	}
	if v.Warning != "" {
		logger.Warn("click accepted with low confidence", "token", token, "signal", v.Warning, "ip", rc.IP)
	}

	return redirectURL, true, s.recordClick(ctx, r, link, rc, domain.EventClick)
}

// StorePending parks a hit for the two-phase flow. Append-only, idempotent
// by design, and carries no state-machine effect: a scanner prefetch just
// leaves a row that expires.
func (s *Service) StorePending(ctx context.Context, token string, kind domain.PendingEventType, rc classifier.RequestContext) (string, error) {
	// Validate the token so junk requests don't accumulate rows.
	switch kind {
	case domain.PendingOpen:
		if _, err := s.repo.RecipientByToken(ctx, token); err != nil {
			return "", err
		}
	case domain.PendingClick:
		if _, err := s.repo.LinkByToken(ctx, token); err != nil {
			return "", err
		}
	}

	p := &domain.PendingEvent{
		ID:        uuid.NewString(),
		Token:     token,
		EventType: kind,
		IPAddress: rc.IP,
		UserAgent: rc.UserAgent,
		CreatedAt: rc.Now,
	}
	if err := s.repo.StorePending(ctx, p); err != nil {
		return "", err
	}
	return p.ID, nil
}

// Confirm promotes the newest unconfirmed pending event for the token: it
// stamps confirmed_at and only then applies the state transition and
// counters, guarded so an already-confirmed recipient is not re-processed.
// The confirming signal itself (script-driven beacon) is proof of a real
// client, so the stored hit is not re-classified.
func (s *Service) Confirm(ctx context.Context, token string, now time.Time) bool {
	p, err := s.repo.LatestUnconfirmed(ctx, token)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			logger.Error("confirm: pending lookup failed", "token", token, "error", err.Error())
		}
		return false
	}
	if err := s.repo.ConfirmPending(ctx, p.ID, now); err != nil {
		logger.Error("confirm: stamp failed", "token", token, "error", err.Error())
		return false
	}

	rc := classifier.RequestContext{IP: p.IPAddress, UserAgent: p.UserAgent, Now: now}

	switch p.EventType {
	case domain.PendingClick:
		link, err := s.repo.LinkByToken(ctx, token)
		if err != nil {
			return false
		}
		r, err := s.repo.Recipient(ctx, link.RecipientID)
		if err != nil || !r.Trackable() {
			return false
		}
		if r.ClickConfirmed {
			return true // already processed; idempotent no-op
		}
		return s.recordClick(ctx, r, link, rc, domain.EventClickBeacon)

	default: // domain.PendingOpen
		r, err := s.repo.RecipientByToken(ctx, token)
		if err != nil || !r.Trackable() {
			return false
		}
		if r.OpenConfirmed {
			return true
		}
		return s.recordOpen(ctx, r, rc, domain.EventOpenVerified)
	}
}

// recordOpen applies one genuine open atomically and recomputes the
// campaign rates after commit.
func (s *Service) recordOpen(ctx context.Context, r *domain.Recipient, rc classifier.RequestContext, eventType domain.TrackingEventType) bool {
	now := rc.Now

	// Repeat open inside the debounce window: raw counters only. The
	// unique_opens guard below never fires twice because open_confirmed is
	// set in the same transaction as the unique increment.
	if r.OpenedAt != nil && now.Sub(*r.OpenedAt) < s.cfg.DebounceWindow {
		r.OpenedCount++
		return s.applyOpen(ctx, r, false, rc, domain.EventOpen)
	}

	unique := !r.OpenConfirmed
	r.ApplyStatus(domain.RecipientOpened, now)
	if r.OpenedAt == nil {
		r.OpenedAt = &now
	}
	r.OpenedCount++
	r.OpenConfirmed = true

	return s.applyOpen(ctx, r, unique, rc, eventType)
}

func (s *Service) applyOpen(ctx context.Context, r *domain.Recipient, unique bool, rc classifier.RequestContext, eventType domain.TrackingEventType) bool {
	err := s.repo.ApplyOpen(ctx, OpenApply{
		Recipient: r,
		Unique:    unique,
		Event: &domain.TrackingEvent{
			ID:          uuid.NewString(),
			CampaignID:  r.CampaignID,
			RecipientID: r.ID,
			EventType:   eventType,
			IPAddress:   rc.IP,
			UserAgent:   rc.UserAgent,
			CreatedAt:   rc.Now,
		},
	})
	if err != nil {
		logger.Error("open transaction rolled back", "recipient_id", r.ID, "error", err.Error())
		return false
	}
	s.recomputeRates(ctx, r.CampaignID)
	return true
}

// recordClick applies one genuine click atomically. A click while still in
// "sent" walks the machine through opened first; the open itself is counted
// by the pixel, not here.
func (s *Service) recordClick(ctx context.Context, r *domain.Recipient, link *domain.Link, rc classifier.RequestContext, eventType domain.TrackingEventType) bool {
	now := rc.Now

	unique := !r.ClickConfirmed
	r.ApplyStatus(domain.RecipientOpened, now)
	r.ApplyStatus(domain.RecipientClicked, now)
	if r.ClickedAt == nil {
		r.ClickedAt = &now
	}
	r.ClickCount++
	r.ClickConfirmed = true

	link.ClickCount++
	if unique {
		link.UniqueClicks++
	}

	err := s.repo.ApplyClick(ctx, ClickApply{
		Recipient: r,
		Link:      link,
		Unique:    unique,
		Event: &domain.TrackingEvent{
			ID:          uuid.NewString(),
			CampaignID:  r.CampaignID,
			RecipientID: r.ID,
			EventType:   eventType,
			IPAddress:   rc.IP,
			UserAgent:   rc.UserAgent,
			LinkURL:     link.OriginalURL,
			CreatedAt:   rc.Now,
		},
	})
	if err != nil {
		logger.Error("click transaction rolled back", "recipient_id", r.ID, "error", err.Error())
		return false
	}
	s.recomputeRates(ctx, r.CampaignID)
	return true
}

func (s *Service) recordScan(ctx context.Context, r *domain.Recipient, rc classifier.RequestContext, reason string) {
	err := s.repo.RecordScan(ctx, &domain.ScanEvent{
		ID:          uuid.NewString(),
		CampaignID:  r.CampaignID,
		RecipientID: r.ID,
		ScanType:    reason,
		IPAddress:   rc.IP,
		UserAgent:   rc.UserAgent,
		CreatedAt:   rc.Now,
	})
	if err != nil {
		logger.Error("scan event append failed", "recipient_id", r.ID, "error", err.Error())
	}
}

// recomputeRates runs right after commit to bound staleness. Failures only
// delay the next recomputation; they never undo the committed counters.
func (s *Service) recomputeRates(ctx context.Context, campaignID string) {
	if err := s.repo.RecomputeRates(ctx, campaignID); err != nil {
		logger.Warn("rate recompute failed", "campaign_id", campaignID, "error", err.Error())
	}
}
