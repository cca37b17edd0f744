package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	allowed := []struct{ from, to RecipientStatus }{
		{RecipientPending, RecipientSent},
		{RecipientSent, RecipientOpened},
		{RecipientSent, RecipientBounced},
		{RecipientOpened, RecipientClicked},
		{RecipientOpened, RecipientReported},
		{RecipientOpened, RecipientUnsubscribed},
		{RecipientClicked, RecipientReported},
		{RecipientBounced, RecipientSent},
	}
	for _, tr := range allowed {
		assert.True(t, CanTransition(tr.from, tr.to), "%s -> %s should be legal", tr.from, tr.to)
	}

	refused := []struct{ from, to RecipientStatus }{
		{RecipientPending, RecipientOpened},
		{RecipientPending, RecipientClicked},
		{RecipientSent, RecipientClicked},
		{RecipientSent, RecipientReported},
		{RecipientClicked, RecipientOpened},
		{RecipientClicked, RecipientUnsubscribed},
		{RecipientBounced, RecipientOpened},
		{RecipientReported, RecipientSent},
		{RecipientUnsubscribed, RecipientSent},
		{RecipientOpened, RecipientOpened},
	}
	for _, tr := range refused {
		assert.False(t, CanTransition(tr.from, tr.to), "%s -> %s should be refused", tr.from, tr.to)
	}
}

func TestApplyStatusStampsOnce(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	r := &Recipient{Status: RecipientSent}

	assert.True(t, r.ApplyStatus(RecipientOpened, now))
	assert.Equal(t, RecipientOpened, r.Status)
	if assert.NotNil(t, r.OpenedAt) {
		assert.Equal(t, now, *r.OpenedAt)
	}

	// A later illegal request leaves everything untouched.
	later := now.Add(time.Hour)
	assert.False(t, r.ApplyStatus(RecipientSent, later))
	assert.Equal(t, RecipientOpened, r.Status)

	// An existing timestamp is never overwritten.
	r2 := &Recipient{Status: RecipientOpened, OpenedAt: &now}
	assert.True(t, r2.ApplyStatus(RecipientClicked, later))
	assert.Equal(t, now, *r2.OpenedAt)
	assert.Equal(t, later, *r2.ClickedAt)
}

func TestReconcile(t *testing.T) {
	now := time.Now()

	// Click timestamp without status upgrade promotes straight to clicked.
	r := &Recipient{Status: RecipientSent, OpenedAt: &now, ClickedAt: &now}
	assert.True(t, r.Reconcile())
	assert.Equal(t, RecipientClicked, r.Status)

	// Open timestamp alone promotes to opened.
	r = &Recipient{Status: RecipientSent, OpenedAt: &now}
	assert.True(t, r.Reconcile())
	assert.Equal(t, RecipientOpened, r.Status)

	// Consistent recipient is left alone.
	r = &Recipient{Status: RecipientOpened, OpenedAt: &now}
	assert.False(t, r.Reconcile())
	assert.Equal(t, RecipientOpened, r.Status)

	// Terminal states are never touched.
	r = &Recipient{Status: RecipientReported, ClickedAt: &now}
	assert.False(t, r.Reconcile())
}

func TestTrackable(t *testing.T) {
	for _, s := range []RecipientStatus{RecipientPending, RecipientSent, RecipientOpened, RecipientClicked} {
		assert.True(t, (&Recipient{Status: s}).Trackable(), string(s))
	}
	for _, s := range []RecipientStatus{RecipientBounced, RecipientReported, RecipientUnsubscribed} {
		assert.False(t, (&Recipient{Status: s}).Trackable(), string(s))
	}
}
