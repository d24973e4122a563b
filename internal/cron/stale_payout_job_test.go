package cron

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"

	"github.com/angelmondragon/voltline-backend/internal/notifications"
	"github.com/angelmondragon/voltline-backend/pkg/db/models"
	"github.com/angelmondragon/voltline-backend/pkg/enums"
	"github.com/angelmondragon/voltline-backend/pkg/logger"
)

type fakeStalePayouts struct {
	rows          []models.DealerPayout
	err           error
	status        enums.PayoutStatus
	updatedBefore time.Time
}

func (f *fakeStalePayouts) ListStale(_ context.Context, status enums.PayoutStatus, updatedBefore time.Time, _ int) ([]models.DealerPayout, error) {
	f.status = status
	f.updatedBefore = updatedBefore
	return f.rows, f.err
}

type fakeDealers map[uuid.UUID]*models.Dealer

func (f fakeDealers) FindByID(_ context.Context, id uuid.UUID) (*models.Dealer, error) {
	return f[id], nil
}

type recordingNotifier struct {
	sent []notifications.NotifyInput
}

func (r *recordingNotifier) Dispatch(_ context.Context, input notifications.NotifyInput) {
	r.sent = append(r.sent, input)
}

func TestStalePayoutJobNotifiesDealerOwners(t *testing.T) {
	now := time.Date(2026, 3, 20, 6, 0, 0, 0, time.UTC)
	dealer := &models.Dealer{ID: uuid.New(), OwnerUserID: uuid.New()}
	missingDealer := uuid.New()
	payouts := &fakeStalePayouts{rows: []models.DealerPayout{
		{ID: uuid.New(), DealerID: dealer.ID, Amount: decimal.NewFromInt(800), Status: enums.PayoutStatusProcessing, UpdatedAt: now.Add(-9 * 24 * time.Hour)},
		{ID: uuid.New(), DealerID: missingDealer, Amount: decimal.NewFromInt(50), Status: enums.PayoutStatusProcessing, UpdatedAt: now.Add(-10 * 24 * time.Hour)},
	}}
	notifier := &recordingNotifier{}
	job := newStalePayoutJob(t, payouts, fakeDealers{dealer.ID: dealer}, notifier)
	job.now = func() time.Time { return now }

	err := job.Run(context.Background())

	require.Error(t, err)
	require.Len(t, multierr.Errors(err), 1)
	require.Contains(t, err.Error(), missingDealer.String())
	require.Equal(t, enums.PayoutStatusProcessing, payouts.status)
	require.Equal(t, now.Add(-defaultStalePayoutAfter), payouts.updatedBefore)

	require.Len(t, notifier.sent, 1)
	sent := notifier.sent[0]
	require.Equal(t, dealer.OwnerUserID, sent.UserID)
	require.Equal(t, enums.NotificationPriorityHigh, sent.Priority)
	require.Equal(t, enums.NotificationTypePayout, sent.Type)
	require.NotNil(t, sent.ID)
	require.Contains(t, sent.Message, "800.00")
}

func TestStalePayoutJobReusesNotificationIDWithinDay(t *testing.T) {
	dealer := &models.Dealer{ID: uuid.New(), OwnerUserID: uuid.New()}
	payouts := &fakeStalePayouts{rows: []models.DealerPayout{{ID: uuid.New(), DealerID: dealer.ID, Amount: decimal.NewFromInt(1)}}}
	notifier := &recordingNotifier{}
	job := newStalePayoutJob(t, payouts, fakeDealers{dealer.ID: dealer}, notifier)

	job.now = func() time.Time { return time.Date(2026, 3, 20, 1, 0, 0, 0, time.UTC) }
	require.NoError(t, job.Run(context.Background()))
	job.now = func() time.Time { return time.Date(2026, 3, 20, 23, 0, 0, 0, time.UTC) }
	require.NoError(t, job.Run(context.Background()))
	job.now = func() time.Time { return time.Date(2026, 3, 21, 1, 0, 0, 0, time.UTC) }
	require.NoError(t, job.Run(context.Background()))

	require.Len(t, notifier.sent, 3)
	require.Equal(t, *notifier.sent[0].ID, *notifier.sent[1].ID)
	require.NotEqual(t, *notifier.sent[1].ID, *notifier.sent[2].ID)
}

func TestStalePayoutJobListFailure(t *testing.T) {
	job := newStalePayoutJob(t, &fakeStalePayouts{err: errors.New("db down")}, fakeDealers{}, &recordingNotifier{})
	require.Error(t, job.Run(context.Background()))
}

func newStalePayoutJob(t *testing.T, payouts stalePayoutRepo, dealers dealerLookup, notifier notifications.Dispatcher) *stalePayoutJob {
	t.Helper()
	jobIface, err := NewStalePayoutJob(StalePayoutJobParams{
		Logger:   logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
		Payouts:  payouts,
		Dealers:  dealers,
		Notifier: notifier,
	})
	require.NoError(t, err)
	return jobIface.(*stalePayoutJob)
}
