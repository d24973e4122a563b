package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/angelmondragon/voltline-backend/internal/notifications"
	"github.com/angelmondragon/voltline-backend/pkg/db/models"
	"github.com/angelmondragon/voltline-backend/pkg/enums"
	"github.com/angelmondragon/voltline-backend/pkg/logger"
)

const (
	defaultStalePayoutAfter = 7 * 24 * time.Hour
	stalePayoutBatch        = 200
)

// stalePayoutNamespace seeds deterministic notification ids so a payout
// produces at most one reminder per day however often the sweep runs.
var stalePayoutNamespace = uuid.MustParse("6f1c8a52-4b7e-4d0f-9a51-2c3e8d7b9f10")

type stalePayoutRepo interface {
	ListStale(ctx context.Context, status enums.PayoutStatus, updatedBefore time.Time, limit int) ([]models.DealerPayout, error)
}

type dealerLookup interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Dealer, error)
}

type StalePayoutJobParams struct {
	Logger   *logger.Logger
	Payouts  stalePayoutRepo
	Dealers  dealerLookup
	Notifier notifications.Dispatcher
	After    time.Duration
}

func NewStalePayoutJob(params StalePayoutJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Payouts == nil {
		return nil, fmt.Errorf("payouts repository required")
	}
	if params.Dealers == nil {
		return nil, fmt.Errorf("dealers repository required")
	}
	if params.Notifier == nil {
		return nil, fmt.Errorf("notifier required")
	}
	after := params.After
	if after <= 0 {
		after = defaultStalePayoutAfter
	}
	return &stalePayoutJob{
		logg:     params.Logger,
		payouts:  params.Payouts,
		dealers:  params.Dealers,
		notifier: params.Notifier,
		after:    after,
		now:      time.Now,
	}, nil
}

type stalePayoutJob struct {
	logg     *logger.Logger
	payouts  stalePayoutRepo
	dealers  dealerLookup
	notifier notifications.Dispatcher
	after    time.Duration
	now      func() time.Time
}

func (j *stalePayoutJob) Name() string { return "stale-payout-sweep" }

// Run flags payouts stuck in processing. One bad row does not stop the rest;
// every per-row failure is returned together.
func (j *stalePayoutJob) Run(ctx context.Context) error {
	now := j.now().UTC()
	cutoff := now.Add(-j.after)
	rows, err := j.payouts.ListStale(ctx, enums.PayoutStatusProcessing, cutoff, stalePayoutBatch)
	if err != nil {
		return fmt.Errorf("list stale payouts: %w", err)
	}

	var errs error
	for _, payout := range rows {
		errs = multierr.Append(errs, j.flag(ctx, payout, now))
	}

	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"cutoff": cutoff,
		"stale":  len(rows),
	}), "cron.stale_payouts.done")
	return errs
}

func (j *stalePayoutJob) flag(ctx context.Context, payout models.DealerPayout, now time.Time) error {
	dealer, err := j.dealers.FindByID(ctx, payout.DealerID)
	if err != nil {
		return fmt.Errorf("payout %s: load dealer: %w", payout.ID, err)
	}
	if dealer == nil {
		return fmt.Errorf("payout %s: dealer %s not found", payout.ID, payout.DealerID)
	}

	stuckFor := now.Sub(payout.UpdatedAt).Truncate(time.Hour)
	j.logg.Warn(j.logg.WithFields(ctx, map[string]any{
		"payout_id":   payout.ID.String(),
		"dealer_id":   payout.DealerID.String(),
		"amount":      payout.Amount.StringFixed(2),
		"stuck_for":   stuckFor.String(),
		"last_change": payout.UpdatedAt,
	}), "payout.processing.stale")

	notificationID := uuid.NewSHA1(stalePayoutNamespace, []byte(payout.ID.String()+now.Format("2006-01-02")))
	j.notifier.Dispatch(ctx, notifications.NotifyInput{
		ID:       &notificationID,
		UserID:   dealer.OwnerUserID,
		Type:     enums.NotificationTypePayout,
		Priority: enums.NotificationPriorityHigh,
		Title:    "Payout still processing",
		Message:  fmt.Sprintf("Your payout of %s has been processing since %s.", payout.Amount.StringFixed(2), payout.UpdatedAt.Format("2006-01-02")),
		Link:     "/dealer/payouts/" + payout.ID.String(),
	})
	return nil
}
