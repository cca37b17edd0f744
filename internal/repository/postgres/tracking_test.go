package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/phishtrack/internal/domain"
	"github.com/ignite/phishtrack/internal/service/tracking"
)

func openApply(unique bool) tracking.OpenApply {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	return tracking.OpenApply{
		Recipient: &domain.Recipient{
			ID: "r1", CampaignID: "c1", Status: domain.RecipientOpened,
			OpenedAt: &now, OpenedCount: 1, OpenConfirmed: true,
		},
		Unique: unique,
		Event: &domain.TrackingEvent{
			ID: "e1", CampaignID: "c1", RecipientID: "r1",
			EventType: domain.EventOpenVerified,
			IPAddress: "203.0.113.10", UserAgent: "Mozilla/5.0", CreatedAt: now,
		},
	}
}

func TestApplyOpenCommitsAllRows(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE recipients").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE campaigns").
		WithArgs("c1", 1).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO tracking_events").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	repo := NewTrackingRepo(db)
	require.NoError(t, repo.ApplyOpen(context.Background(), openApply(true)))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplyOpenNonUniqueSkipsUniqueIncrement(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE recipients").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE campaigns").
		WithArgs("c1", 0).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO tracking_events").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	repo := NewTrackingRepo(db)
	require.NoError(t, repo.ApplyOpen(context.Background(), openApply(false)))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplyOpenRollsBackOnEventFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE recipients").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE campaigns").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO tracking_events").
		WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	repo := NewTrackingRepo(db)
	err = repo.ApplyOpen(context.Background(), openApply(true))
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApplyClickCommitsAllRows(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	a := tracking.ClickApply{
		Recipient: &domain.Recipient{ID: "r1", CampaignID: "c1", Status: domain.RecipientClicked},
		Link:      &domain.Link{ID: "l1", CampaignID: "c1", RecipientID: "r1"},
		Unique:    true,
		Event: &domain.TrackingEvent{
			ID: "e1", CampaignID: "c1", RecipientID: "r1",
			EventType: domain.EventClick, LinkURL: "https://example.com/login", CreatedAt: now,
		},
	}

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE recipients").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE tracked_links").
		WithArgs("l1", 1).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE campaigns").
		WithArgs("c1", 1).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO tracking_events").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	repo := NewTrackingRepo(db)
	require.NoError(t, repo.ApplyClick(context.Background(), a))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRecipientByTokenNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("FROM recipients").
		WithArgs("ghost").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	repo := NewTrackingRepo(db)
	_, err = repo.RecipientByToken(context.Background(), "ghost")
	assert.True(t, errors.Is(err, tracking.ErrNotFound))
}

func TestConfirmPendingAlreadyConfirmed(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("UPDATE pending_events").
		WillReturnResult(sqlmock.NewResult(0, 0))

	repo := NewTrackingRepo(db)
	err = repo.ConfirmPending(context.Background(), "p1", time.Now())
	assert.True(t, errors.Is(err, tracking.ErrNotFound))
}

func TestDeleteExpiredPendingReturnsCount(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("DELETE FROM pending_events").
		WillReturnResult(sqlmock.NewResult(0, 42))

	repo := NewTrackingRepo(db)
	n, err := repo.DeleteExpiredPending(context.Background(), time.Now(), 1000)
	require.NoError(t, err)
	assert.Equal(t, 42, n)
}

func TestRecomputeRates(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("UPDATE campaigns").
		WithArgs("c1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	repo := NewTrackingRepo(db)
	require.NoError(t, repo.RecomputeRates(context.Background(), "c1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}
