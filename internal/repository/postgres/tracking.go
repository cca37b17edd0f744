package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ignite/phishtrack/internal/domain"
	"github.com/ignite/phishtrack/internal/service/tracking"
)

// TrackingRepo implements tracking.Repository against PostgreSQL.
type TrackingRepo struct{ db *sql.DB }

// NewTrackingRepo creates a Postgres-backed tracking repository.
func NewTrackingRepo(db *sql.DB) *TrackingRepo { return &TrackingRepo{db: db} }

const recipientColumns = `
	id, campaign_id, email, tracking_token, status,
	sent_at, opened_at, clicked_at, reported_at, unsubscribe_at,
	opened_count, click_count, open_confirmed, click_confirmed,
	created_at, updated_at`

func scanRecipient(row *sql.Row) (*domain.Recipient, error) {
	r := &domain.Recipient{}
	err := row.Scan(
		&r.ID, &r.CampaignID, &r.Email, &r.Token, &r.Status,
		&r.SentAt, &r.OpenedAt, &r.ClickedAt, &r.ReportedAt, &r.UnsubscribeAt,
		&r.OpenedCount, &r.ClickCount, &r.OpenConfirmed, &r.ClickConfirmed,
		&r.CreatedAt, &r.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, tracking.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan recipient: %w", err)
	}
	return r, nil
}

func (r *TrackingRepo) RecipientByToken(ctx context.Context, token string) (*domain.Recipient, error) {
	return scanRecipient(r.db.QueryRowContext(ctx,
		`SELECT`+recipientColumns+` FROM recipients WHERE tracking_token = $1`, token))
}

func (r *TrackingRepo) Recipient(ctx context.Context, id string) (*domain.Recipient, error) {
	return scanRecipient(r.db.QueryRowContext(ctx,
		`SELECT`+recipientColumns+` FROM recipients WHERE id = $1`, id))
}

func (r *TrackingRepo) LinkByToken(ctx context.Context, token string) (*domain.Link, error) {
	l := &domain.Link{}
	err := r.db.QueryRowContext(ctx, `
		SELECT id, campaign_id, recipient_id, original_url, tracking_token,
		       click_count, unique_clicks, created_at
		FROM tracked_links
		WHERE tracking_token = $1
	`, token).Scan(
		&l.ID, &l.CampaignID, &l.RecipientID, &l.OriginalURL, &l.Token,
		&l.ClickCount, &l.UniqueClicks, &l.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, tracking.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get link: %w", err)
	}
	return l, nil
}

// ApplyOpen commits the recipient row, the campaign counters, and the event
// insert in one transaction.
func (r *TrackingRepo) ApplyOpen(ctx context.Context, a tracking.OpenApply) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin open tx: %w", err)
	}
	defer tx.Rollback()

	if err := updateRecipientTx(ctx, tx, a.Recipient); err != nil {
		return err
	}

	uniq := 0
	if a.Unique {
		uniq = 1
	}
	if _, err := tx.ExecContext(ctx, `
		UPDATE campaigns
		SET total_opened = total_opened + 1,
		    unique_opens = unique_opens + $2,
		    updated_at = NOW()
		WHERE id = $1
	`, a.Recipient.CampaignID, uniq); err != nil {
		return fmt.Errorf("bump open counters: %w", err)
	}

	if err := insertEventTx(ctx, tx, a.Event); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: %v", tracking.ErrTransactionFailure, err)
	}
	return nil
}

// ApplyClick commits the recipient row, the link row, the campaign counters,
// and the event insert in one transaction.
func (r *TrackingRepo) ApplyClick(ctx context.Context, a tracking.ClickApply) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin click tx: %w", err)
	}
	defer tx.Rollback()

	if err := updateRecipientTx(ctx, tx, a.Recipient); err != nil {
		return err
	}

	uniq := 0
	if a.Unique {
		uniq = 1
	}
	if _, err := tx.ExecContext(ctx, `
		UPDATE tracked_links
		SET click_count = click_count + 1,
		    unique_clicks = unique_clicks + $2
		WHERE id = $1
	`, a.Link.ID, uniq); err != nil {
		return fmt.Errorf("bump link counters: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE campaigns
		SET total_clicked = total_clicked + 1,
		    unique_clicks = unique_clicks + $2,
		    updated_at = NOW()
		WHERE id = $1
	`, a.Recipient.CampaignID, uniq); err != nil {
		return fmt.Errorf("bump click counters: %w", err)
	}

	if err := insertEventTx(ctx, tx, a.Event); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: %v", tracking.ErrTransactionFailure, err)
	}
	return nil
}

func updateRecipientTx(ctx context.Context, tx *sql.Tx, rec *domain.Recipient) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE recipients
		SET status = $2, opened_at = $3, clicked_at = $4,
		    opened_count = $5, click_count = $6,
		    open_confirmed = $7, click_confirmed = $8,
		    updated_at = NOW()
		WHERE id = $1
	`, rec.ID, rec.Status, rec.OpenedAt, rec.ClickedAt,
		rec.OpenedCount, rec.ClickCount, rec.OpenConfirmed, rec.ClickConfirmed)
	if err != nil {
		return fmt.Errorf("update recipient: %w", err)
	}
	return nil
}

func insertEventTx(ctx context.Context, tx *sql.Tx, evt *domain.TrackingEvent) error {
	if evt.ID == "" {
		evt.ID = uuid.New().String()
	}
	_, err := tx.ExecContext(ctx, `
		INSERT INTO tracking_events
			(id, campaign_id, recipient_id, event_type, ip_address, user_agent, link_url, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), $8)
	`, evt.ID, evt.CampaignID, evt.RecipientID, evt.EventType,
		evt.IPAddress, evt.UserAgent, evt.LinkURL, evt.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert tracking event: %w", err)
	}
	return nil
}

func (r *TrackingRepo) RecordScan(ctx context.Context, evt *domain.ScanEvent) error {
	if evt.ID == "" {
		evt.ID = uuid.New().String()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO scan_events
			(id, campaign_id, recipient_id, scan_type, ip_address, user_agent, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, evt.ID, evt.CampaignID, evt.RecipientID, evt.ScanType,
		evt.IPAddress, evt.UserAgent, evt.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert scan event: %w", err)
	}
	return nil
}

func (r *TrackingRepo) RecomputeRates(ctx context.Context, campaignID string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE campaigns
		SET open_rate = CASE WHEN total_sent > 0
		        THEN ROUND(unique_opens::numeric / total_sent * 100, 2) ELSE 0 END,
		    click_rate = CASE WHEN total_sent > 0
		        THEN ROUND(unique_clicks::numeric / total_sent * 100, 2) ELSE 0 END,
		    click_to_open_rate = CASE WHEN total_opened > 0
		        THEN ROUND(total_clicked::numeric / total_opened * 100, 2) ELSE 0 END,
		    updated_at = NOW()
		WHERE id = $1
	`, campaignID)
	if err != nil {
		return fmt.Errorf("recompute rates: %w", err)
	}
	return nil
}

func (r *TrackingRepo) StorePending(ctx context.Context, p *domain.PendingEvent) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO pending_events
			(id, tracking_token, event_type, ip_address, user_agent, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, p.ID, p.Token, p.EventType, p.IPAddress, p.UserAgent, p.CreatedAt)
	if err != nil {
		return fmt.Errorf("store pending: %w", err)
	}
	return nil
}

func (r *TrackingRepo) LatestUnconfirmed(ctx context.Context, token string) (*domain.PendingEvent, error) {
	p := &domain.PendingEvent{}
	err := r.db.QueryRowContext(ctx, `
		SELECT id, tracking_token, event_type, ip_address, user_agent, created_at, confirmed_at
		FROM pending_events
		WHERE tracking_token = $1 AND confirmed_at IS NULL
		ORDER BY created_at DESC
		LIMIT 1
	`, token).Scan(
		&p.ID, &p.Token, &p.EventType, &p.IPAddress, &p.UserAgent, &p.CreatedAt, &p.ConfirmedAt,
	)
	if err == sql.ErrNoRows {
		return nil, tracking.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("latest unconfirmed: %w", err)
	}
	return p, nil
}

func (r *TrackingRepo) ConfirmPending(ctx context.Context, id string, at time.Time) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE pending_events SET confirmed_at = $2
		WHERE id = $1 AND confirmed_at IS NULL
	`, id, at)
	if err != nil {
		return fmt.Errorf("confirm pending: %w", err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return tracking.ErrNotFound
	}
	return nil
}

func (r *TrackingRepo) DeleteExpiredPending(ctx context.Context, cutoff time.Time, limit int) (int, error) {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM pending_events
		WHERE id IN (
			SELECT id FROM pending_events
			WHERE confirmed_at IS NULL AND created_at < $1
			LIMIT $2
		)
	`, cutoff, limit)
	if err != nil {
		return 0, fmt.Errorf("delete expired pending: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}
