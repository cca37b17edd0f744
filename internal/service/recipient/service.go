package recipient

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ignite/phishtrack/internal/domain"
	"github.com/ignite/phishtrack/internal/pkg/logger"
)

// tokenBytes is the entropy of a tracking token. 32 random bytes (64 hex
// chars) keeps tokens unguessable across the whole system.
const tokenBytes = 32

// NewToken returns a fresh hex-encoded tracking token.
func NewToken() (string, error) {
	b := make([]byte, tokenBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// Service enforces the recipient lifecycle rules. All public methods are
// safe for concurrent use if the underlying repository is.
type Service struct {
	repo Repository
	now  func() time.Time
}

// NewService creates a recipient service backed by the given repository.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// MarkSent records a send attempt: the recipient moves to "sent" and gets a
// freshly rotated tracking token, so links from any earlier attempt stop
// resolving. Returns the new token.
func (s *Service) MarkSent(ctx context.Context, id string) (string, error) {
	r, err := s.repo.Get(ctx, id)
	if err != nil {
		return "", err
	}

	now := s.now()
	eventType := domain.EventSend
	switch r.Status {
	case domain.RecipientPending:
		r.ApplyStatus(domain.RecipientSent, now)
	case domain.RecipientBounced:
		// Retry path.
		r.ApplyStatus(domain.RecipientSent, now)
		eventType = domain.EventResend
	case domain.RecipientSent:
		// Resend without a bounce: status holds, token still rotates.
		eventType = domain.EventResend
	default:
		return "", fmt.Errorf("mark sent from %s: %w", r.Status, ErrInvalidTransition)
	}

	token, err := NewToken()
	if err != nil {
		return "", err
	}
	r.Token = token

	if err := s.repo.Update(ctx, r); err != nil {
		return "", fmt.Errorf("persist send: %w", err)
	}
	if err := s.repo.AppendEvent(ctx, &domain.TrackingEvent{
		ID:          uuid.NewString(),
		CampaignID:  r.CampaignID,
		RecipientID: r.ID,
		EventType:   eventType,
		CreatedAt:   now,
	}); err != nil {
		logger.Warn("send event append failed", "recipient_id", r.ID, "error", err.Error())
	}
	return token, nil
}

// Transition moves a recipient to the given status if the lifecycle table
// allows it. Illegal requests return ErrInvalidTransition and leave the
// recipient unchanged; callers treat that as a refusal, not a fault.
func (s *Service) Transition(ctx context.Context, id string, to domain.RecipientStatus) error {
	r, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}

	// Repair a status that lags its own timestamps before judging legality.
	if r.Reconcile() {
		logger.Info("recipient status reconciled", "recipient_id", r.ID, "status", string(r.Status))
	}

	if !r.ApplyStatus(to, s.now()) {
		return fmt.Errorf("%s -> %s: %w", r.Status, to, ErrInvalidTransition)
	}
	if err := s.repo.Update(ctx, r); err != nil {
		return fmt.Errorf("persist transition: %w", err)
	}
	return nil
}

// CampaignComplete reports whether the campaign has no outstanding
// recipients: nobody left in pending, sent, or bounced. Recipients in
// reported/unsubscribed or fully engaged states count as processed.
func (s *Service) CampaignComplete(ctx context.Context, campaignID string) (bool, error) {
	n, err := s.repo.CountOutstanding(ctx, campaignID)
	if err != nil {
		return false, err
	}
	return n == 0, nil
}
