package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/ignite/phishtrack/internal/domain"
	"github.com/ignite/phishtrack/internal/service/recipient"
)

// RecipientRepo implements recipient.Repository against PostgreSQL.
type RecipientRepo struct{ db *sql.DB }

// NewRecipientRepo creates a Postgres-backed recipient repository.
func NewRecipientRepo(db *sql.DB) *RecipientRepo { return &RecipientRepo{db: db} }

func (r *RecipientRepo) Get(ctx context.Context, id string) (*domain.Recipient, error) {
	rec := &domain.Recipient{}
	err := r.db.QueryRowContext(ctx,
		`SELECT`+recipientColumns+` FROM recipients WHERE id = $1`, id,
	).Scan(
		&rec.ID, &rec.CampaignID, &rec.Email, &rec.Token, &rec.Status,
		&rec.SentAt, &rec.OpenedAt, &rec.ClickedAt, &rec.ReportedAt, &rec.UnsubscribeAt,
		&rec.OpenedCount, &rec.ClickCount, &rec.OpenConfirmed, &rec.ClickConfirmed,
		&rec.CreatedAt, &rec.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, recipient.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get recipient: %w", err)
	}
	return rec, nil
}

func (r *RecipientRepo) Update(ctx context.Context, rec *domain.Recipient) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE recipients
		SET tracking_token = $2, status = $3,
		    sent_at = $4, opened_at = $5, clicked_at = $6,
		    reported_at = $7, unsubscribe_at = $8,
		    opened_count = $9, click_count = $10,
		    open_confirmed = $11, click_confirmed = $12,
		    updated_at = NOW()
		WHERE id = $1
	`, rec.ID, rec.Token, rec.Status,
		rec.SentAt, rec.OpenedAt, rec.ClickedAt,
		rec.ReportedAt, rec.UnsubscribeAt,
		rec.OpenedCount, rec.ClickCount,
		rec.OpenConfirmed, rec.ClickConfirmed)
	if err != nil {
		return fmt.Errorf("update recipient: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return recipient.ErrNotFound
	}
	return nil
}

func (r *RecipientRepo) AppendEvent(ctx context.Context, evt *domain.TrackingEvent) error {
	if evt.ID == "" {
		evt.ID = uuid.New().String()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO tracking_events
			(id, campaign_id, recipient_id, event_type, ip_address, user_agent, link_url, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), $8)
	`, evt.ID, evt.CampaignID, evt.RecipientID, evt.EventType,
		evt.IPAddress, evt.UserAgent, evt.LinkURL, evt.CreatedAt)
	if err != nil {
		return fmt.Errorf("append event: %w", err)
	}
	return nil
}

func (r *RecipientRepo) CountOutstanding(ctx context.Context, campaignID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM recipients
		WHERE campaign_id = $1 AND status IN ('pending', 'sent', 'bounced')
	`, campaignID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count outstanding: %w", err)
	}
	return n, nil
}
