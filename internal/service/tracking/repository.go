package tracking

import (
	"context"
	"time"

	"github.com/ignite/phishtrack/internal/domain"
)

// OpenApply is the atomic unit of work for one genuine open hit.
type OpenApply struct {
	// Recipient carries the full mutated row state to persist.
	Recipient *domain.Recipient

	// Unique bumps the campaign's unique_opens in the same transaction.
	// total_opened is always bumped.
	Unique bool

	Event *domain.TrackingEvent
}

// ClickApply is the atomic unit of work for one genuine click hit.
type ClickApply struct {
	Recipient *domain.Recipient
	Link      *domain.Link

	// Unique bumps unique_clicks on both the link and the campaign.
	// click_count/total_clicked are always bumped.
	Unique bool

	Event *domain.TrackingEvent
}

// Repository is the persistence contract for the ingestion core.
//
// ApplyOpen and ApplyClick must be atomic: every row they touch commits
// together or not at all, and concurrent calls for the same recipient must
// serialize (row-level locking via single-row UPDATEs is sufficient).
// Implementations must be safe for concurrent use.
type Repository interface {
	// RecipientByToken resolves a recipient tracking token.
	// Returns ErrNotFound when the token doesn't resolve (including rotated-away tokens).
	RecipientByToken(ctx context.Context, token string) (*domain.Recipient, error)

	// LinkByToken resolves a link tracking token.
	LinkByToken(ctx context.Context, token string) (*domain.Link, error)

	// Recipient loads a recipient by ID.
	Recipient(ctx context.Context, id string) (*domain.Recipient, error)

	// ApplyOpen persists one open: recipient row, campaign counters, and the
	// tracking event, in a single transaction.
	ApplyOpen(ctx context.Context, a OpenApply) error

	// ApplyClick persists one click: recipient row, link row, campaign
	// counters, and the tracking event, in a single transaction.
	ApplyClick(ctx context.Context, a ClickApply) error

	// RecordScan appends a scan event. Never touches recipient state.
	RecordScan(ctx context.Context, evt *domain.ScanEvent) error

	// RecomputeRates refreshes the campaign's cached rate columns from its
	// raw counters. Idempotent; safe to re-run.
	RecomputeRates(ctx context.Context, campaignID string) error

	// StorePending appends a pending event row.
	StorePending(ctx context.Context, p *domain.PendingEvent) error

	// LatestUnconfirmed returns the most recent unconfirmed pending event
	// for the token, or ErrNotFound.
	LatestUnconfirmed(ctx context.Context, token string) (*domain.PendingEvent, error)

	// ConfirmPending stamps confirmed_at on a pending event.
	ConfirmPending(ctx context.Context, id string, at time.Time) error

	// DeleteExpiredPending removes unconfirmed pending events created before
	// cutoff, at most limit rows, returning how many went away.
	DeleteExpiredPending(ctx context.Context, cutoff time.Time, limit int) (int, error)
}
