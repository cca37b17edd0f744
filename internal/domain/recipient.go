package domain

import "time"

// RecipientStatus enumerates the lifecycle states of a campaign recipient.
type RecipientStatus string

const (
	RecipientPending      RecipientStatus = "pending"
	RecipientSent         RecipientStatus = "sent"
	RecipientOpened       RecipientStatus = "opened"
	RecipientClicked      RecipientStatus = "clicked"
	RecipientBounced      RecipientStatus = "bounced"
	RecipientReported     RecipientStatus = "reported"
	RecipientUnsubscribed RecipientStatus = "unsubscribed"
)

// recipientTransitions is the legal state-transition table. Any requested
// transition not listed here must be refused.
var recipientTransitions = map[RecipientStatus][]RecipientStatus{
	RecipientPending: {RecipientSent},
	RecipientSent:    {RecipientOpened, RecipientBounced},
	RecipientOpened:  {RecipientClicked, RecipientReported, RecipientUnsubscribed},
	RecipientClicked: {RecipientReported},
	RecipientBounced: {RecipientSent}, // retry only
}

// CanTransition reports whether moving from one recipient status to another
// is allowed by the lifecycle table. Self-transitions are not transitions.
func CanTransition(from, to RecipientStatus) bool {
	for _, next := range recipientTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Recipient represents a single target of a simulation campaign. Each send
// attempt carries an unguessable tracking token; resending rotates the token
// so stale links from earlier attempts stop resolving.
type Recipient struct {
	ID         string          `json:"id" db:"id"`
	CampaignID string          `json:"campaign_id" db:"campaign_id"`
	Email      string          `json:"email" db:"email"`
	Token      string          `json:"tracking_token" db:"tracking_token"`
	Status     RecipientStatus `json:"status" db:"status"`

	SentAt        *time.Time `json:"sent_at" db:"sent_at"`
	OpenedAt      *time.Time `json:"opened_at" db:"opened_at"`
	ClickedAt     *time.Time `json:"clicked_at" db:"clicked_at"`
	ReportedAt    *time.Time `json:"reported_at" db:"reported_at"`
	UnsubscribeAt *time.Time `json:"unsubscribe_at" db:"unsubscribe_at"`

	OpenedCount int `json:"opened_count" db:"opened_count"`
	ClickCount  int `json:"click_count" db:"click_count"`

	OpenConfirmed  bool `json:"open_confirmed" db:"open_confirmed"`
	ClickConfirmed bool `json:"click_confirmed" db:"click_confirmed"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// ApplyStatus moves the recipient to the given status if the transition is
// legal, stamping the state's timestamp if it is not already set. Existing
// timestamps are never overwritten. Returns false (leaving the recipient
// untouched) when the transition is not in the table.
func (r *Recipient) ApplyStatus(to RecipientStatus, now time.Time) bool {
	if !CanTransition(r.Status, to) {
		return false
	}
	r.Status = to
	r.stamp(to, now)
	return true
}

func (r *Recipient) stamp(s RecipientStatus, now time.Time) {
	switch s {
	case RecipientSent:
		if r.SentAt == nil {
			r.SentAt = &now
		}
	case RecipientOpened:
		if r.OpenedAt == nil {
			r.OpenedAt = &now
		}
	case RecipientClicked:
		if r.ClickedAt == nil {
			r.ClickedAt = &now
		}
	case RecipientReported:
		if r.ReportedAt == nil {
			r.ReportedAt = &now
		}
	case RecipientUnsubscribed:
		if r.UnsubscribeAt == nil {
			r.UnsubscribeAt = &now
		}
	}
}

// Reconcile promotes a recipient stuck in "sent" whose engagement timestamps
// already prove a later state. A click or open recorded without the matching
// status upgrade (e.g. a crash between the event insert and the status write)
// is repaired silently. Returns true if the status changed.
func (r *Recipient) Reconcile() bool {
	if r.Status != RecipientSent && r.Status != RecipientOpened {
		return false
	}
	if r.ClickedAt != nil && r.Status != RecipientClicked {
		r.Status = RecipientClicked
		return true
	}
	if r.OpenedAt != nil && r.Status == RecipientSent {
		r.Status = RecipientOpened
		return true
	}
	return false
}

// Trackable reports whether tracking hits for this recipient should be
// processed at all. Recipients that were never sent to, bounced, or reached a
// terminal state do not accept open/click signals.
func (r *Recipient) Trackable() bool {
	switch r.Status {
	case RecipientSent, RecipientPending, RecipientOpened, RecipientClicked:
		return true
	}
	return false
}
