package domain

import "time"

// Link is a per-recipient tracked hyperlink. Several links may share the same
// original URL across recipients, but a link (and its token) belongs to
// exactly one recipient; links are never shared.
type Link struct {
	ID          string `json:"id" db:"id"`
	CampaignID  string `json:"campaign_id" db:"campaign_id"`
	RecipientID string `json:"recipient_id" db:"recipient_id"`
	OriginalURL string `json:"original_url" db:"original_url"`
	Token       string `json:"tracking_token" db:"tracking_token"`

	ClickCount   int `json:"click_count" db:"click_count"`
	UniqueClicks int `json:"unique_clicks" db:"unique_clicks"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
