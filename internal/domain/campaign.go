package domain

import (
	"math"
	"time"
)

// CampaignStatus enumerates the lifecycle states of a simulation campaign.
type CampaignStatus string

const (
	CampaignDraft     CampaignStatus = "draft"
	CampaignScheduled CampaignStatus = "scheduled"
	CampaignRunning   CampaignStatus = "running"
	CampaignPaused    CampaignStatus = "paused"
	CampaignCompleted CampaignStatus = "completed"
	CampaignCancelled CampaignStatus = "cancelled"
)

// Campaign represents a phishing-simulation campaign and its aggregate
// engagement counters. All counters are derived state maintained by the
// tracking core; the append-only event log is the source of truth.
type Campaign struct {
	ID          string         `json:"id" db:"id"`
	Name        string         `json:"name" db:"name"`
	Status      CampaignStatus `json:"status" db:"status"`
	ScheduledAt *time.Time     `json:"scheduled_at" db:"scheduled_at"`

	TotalRecipients int `json:"total_recipients" db:"total_recipients"`
	TotalSent       int `json:"total_sent" db:"total_sent"`
	TotalOpened     int `json:"total_opened" db:"total_opened"`
	TotalClicked    int `json:"total_clicked" db:"total_clicked"`
	TotalBounced    int `json:"total_bounced" db:"total_bounced"`
	UniqueOpens     int `json:"unique_opens" db:"unique_opens"`
	UniqueClicks    int `json:"unique_clicks" db:"unique_clicks"`

	OpenRate        float64 `json:"open_rate" db:"open_rate"`
	ClickRate       float64 `json:"click_rate" db:"click_rate"`
	ClickToOpenRate float64 `json:"click_to_open_rate" db:"click_to_open_rate"`

	StartedAt   *time.Time `json:"started_at" db:"started_at"`
	CompletedAt *time.Time `json:"completed_at" db:"completed_at"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`
}

// IsTerminal returns true if the campaign is in a final state.
func (c *Campaign) IsTerminal() bool {
	return c.Status == CampaignCompleted || c.Status == CampaignCancelled
}

// RecomputeRates refreshes the cached percentage rates from the raw counters.
// Each rate is rounded to two decimals and is 0 when its denominator is 0.
// Safe to re-run at any time; the computation is idempotent.
func (c *Campaign) RecomputeRates() {
	c.OpenRate = ratio(c.UniqueOpens, c.TotalSent)
	c.ClickRate = ratio(c.UniqueClicks, c.TotalSent)
	c.ClickToOpenRate = ratio(c.TotalClicked, c.TotalOpened)
}

func ratio(num, den int) float64 {
	if den == 0 {
		return 0
	}
	return math.Round(float64(num)/float64(den)*100*100) / 100
}
