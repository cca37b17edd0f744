package domain

import "time"

// TrackingEventType enumerates the kinds of recipient engagement events.
type TrackingEventType string

const (
	EventSend         TrackingEventType = "send"
	EventResend       TrackingEventType = "resend"
	EventOpen         TrackingEventType = "open"
	EventOpenVerified TrackingEventType = "open_verified"
	EventClick        TrackingEventType = "click"
	EventClickBeacon  TrackingEventType = "click_beacon"
)

// TrackingEvent is an immutable, append-only audit row for a single genuine
// engagement signal. Scan traffic never lands here; see ScanEvent.
type TrackingEvent struct {
	ID          string            `json:"id" db:"id"`
	CampaignID  string            `json:"campaign_id" db:"campaign_id"`
	RecipientID string            `json:"recipient_id" db:"recipient_id"`
	EventType   TrackingEventType `json:"event_type" db:"event_type"`
	IPAddress   string            `json:"ip_address" db:"ip_address"`
	UserAgent   string            `json:"user_agent" db:"user_agent"`
	LinkURL     string            `json:"link_url,omitempty" db:"link_url"`
	CreatedAt   time.Time         `json:"created_at" db:"created_at"`
}

// ScanEvent logs traffic classified as automated (mail-security scanners,
// link-preview bots, image proxies). Scan events never advance recipient
// state or campaign counters.
type ScanEvent struct {
	ID          string    `json:"id" db:"id"`
	CampaignID  string    `json:"campaign_id" db:"campaign_id"`
	RecipientID string    `json:"recipient_id" db:"recipient_id"`
	ScanType    string    `json:"scan_type" db:"scan_type"`
	IPAddress   string    `json:"ip_address" db:"ip_address"`
	UserAgent   string    `json:"user_agent" db:"user_agent"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// PendingEventType enumerates the event kinds the two-phase pipeline holds.
type PendingEventType string

const (
	PendingOpen  PendingEventType = "open"
	PendingClick PendingEventType = "click"
)

// PendingEvent is a provisionally-recorded hit awaiting a confirming signal
// (the click beacon) before it counts. Rows never confirmed within the TTL
// are swept away.
type PendingEvent struct {
	ID          string           `json:"id" db:"id"`
	Token       string           `json:"tracking_token" db:"tracking_token"`
	EventType   PendingEventType `json:"event_type" db:"event_type"`
	IPAddress   string           `json:"ip_address" db:"ip_address"`
	UserAgent   string           `json:"user_agent" db:"user_agent"`
	CreatedAt   time.Time        `json:"created_at" db:"created_at"`
	ConfirmedAt *time.Time       `json:"confirmed_at" db:"confirmed_at"`
}

// KnownScanningIP is a registry row for an IP previously classified as a
// mail-security scanner. The registry grows monotonically; only the
// classifier writes to it.
type KnownScanningIP struct {
	IPAddress string    `json:"ip_address" db:"ip_address"`
	Provider  string    `json:"provider" db:"provider"`
	FirstSeen time.Time `json:"first_seen" db:"first_seen"`
	LastSeen  time.Time `json:"last_seen" db:"last_seen"`
	ScanCount int       `json:"scan_count" db:"scan_count"`
	IsActive  bool      `json:"is_active" db:"is_active"`
}
