package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/ignite/phishtrack/internal/domain"
)

// LinkRepo implements mailing.LinkStore against PostgreSQL.
type LinkRepo struct{ db *sql.DB }

// NewLinkRepo creates a Postgres-backed link store.
func NewLinkRepo(db *sql.DB) *LinkRepo { return &LinkRepo{db: db} }

func (r *LinkRepo) CreateLink(ctx context.Context, l *domain.Link) error {
	if l.ID == "" {
		l.ID = uuid.New().String()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO tracked_links
			(id, campaign_id, recipient_id, original_url, tracking_token,
			 click_count, unique_clicks, created_at)
		VALUES ($1, $2, $3, $4, $5, 0, 0, $6)
	`, l.ID, l.CampaignID, l.RecipientID, l.OriginalURL, l.Token, l.CreatedAt)
	if err != nil {
		return fmt.Errorf("create link: %w", err)
	}
	return nil
}
