package recipient

import (
	"context"

	"github.com/ignite/phishtrack/internal/domain"
)

// Repository defines the data access contract for recipients.
// Implementations must be safe for concurrent use.
type Repository interface {
	// Get returns a single recipient. Returns ErrNotFound if it doesn't exist.
	Get(ctx context.Context, id string) (*domain.Recipient, error)

	// Update persists the recipient's status, timestamps, counters, flags,
	// and token in one statement scoped to its row.
	Update(ctx context.Context, r *domain.Recipient) error

	// AppendEvent inserts an immutable tracking event row.
	AppendEvent(ctx context.Context, evt *domain.TrackingEvent) error

	// CountOutstanding returns how many of the campaign's recipients are
	// still in pending, sent, or bounced.
	CountOutstanding(ctx context.Context, campaignID string) (int, error)
}
