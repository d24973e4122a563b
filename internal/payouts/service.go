package payouts

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/voltline-backend/internal/dealers"
	"github.com/angelmondragon/voltline-backend/internal/ledger"
	"github.com/angelmondragon/voltline-backend/internal/notifications"
	"github.com/angelmondragon/voltline-backend/pkg/auth"
	"github.com/angelmondragon/voltline-backend/pkg/db/models"
	dbtypes "github.com/angelmondragon/voltline-backend/pkg/db/types"
	"github.com/angelmondragon/voltline-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/voltline-backend/pkg/errors"
	"github.com/angelmondragon/voltline-backend/pkg/logger"
	"github.com/angelmondragon/voltline-backend/pkg/metrics"
	"github.com/angelmondragon/voltline-backend/pkg/outbox"
	"github.com/angelmondragon/voltline-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/voltline-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service creates payouts from unpaid commission and tracks their lifecycle.
type Service interface {
	CreatePayout(ctx context.Context, input CreatePayoutInput) (*models.DealerPayout, error)
	UnpaidCommission(ctx context.Context, actor auth.Actor, dealerID uuid.UUID, fromDate, toDate string) (*UnpaidSummary, error)
	UpdatePayoutStatus(ctx context.Context, input UpdatePayoutStatusInput) (*models.DealerPayout, error)
	ListPayouts(ctx context.Context, input ListPayoutsInput) (pagination.Page[models.DealerPayout], error)
	GetPayout(ctx context.Context, actor auth.Actor, id uuid.UUID) (*models.DealerPayout, error)
}

// ServiceParams wires a payouts Service.
type ServiceParams struct {
	Repo        Repository
	Dealers     dealers.Repository
	Ledger      ledger.Service
	Tx          txRunner
	Outbox      outbox.Emitter
	Notifier    notifications.Dispatcher
	Metrics     *metrics.DomainMetrics
	Logger      *logger.Logger
	DefaultRate decimal.Decimal
}

type service struct {
	repo        Repository
	dealers     dealers.Repository
	ledger      ledger.Service
	tx          txRunner
	outbox      outbox.Emitter
	notifier    notifications.Dispatcher
	metrics     *metrics.DomainMetrics
	logg        *logger.Logger
	defaultRate decimal.Decimal
	now         func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("payouts repository required")
	}
	if params.Dealers == nil {
		return nil, fmt.Errorf("dealers repository required")
	}
	if params.Ledger == nil {
		return nil, fmt.Errorf("ledger service required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	if params.Notifier == nil {
		return nil, fmt.Errorf("notification dispatcher required")
	}
	return &service{
		repo:        params.Repo,
		dealers:     params.Dealers,
		ledger:      params.Ledger,
		tx:          params.Tx,
		outbox:      params.Outbox,
		notifier:    params.Notifier,
		metrics:     params.Metrics,
		logg:        params.Logger,
		defaultRate: params.DefaultRate,
		now:         time.Now,
	}, nil
}

func (s *service) CreatePayout(ctx context.Context, input CreatePayoutInput) (*models.DealerPayout, error) {
	if !input.Actor.IsAdmin() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "admin role required")
	}
	if input.DealerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "dealer_id is required")
	}
	rng, err := validateRange(input.FromDate, input.ToDate)
	if err != nil {
		return nil, err
	}

	payoutID := uuid.New()
	now := s.now().UTC()
	var (
		payout *models.DealerPayout
		dealer *models.Dealer
	)

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		dealer, err = s.dealers.WithTx(tx).FindByIDForUpdate(ctx, input.DealerID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load dealer")
		}
		if dealer == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "dealer not found")
		}

		repo := s.repo.WithTx(tx)
		claimed, err := repo.ClaimOrders(ctx, claimParams{
			DealerID: dealer.ID,
			PayoutID: payoutID,
			From:     rng.From,
			Until:    rng.Until,
			Now:      now,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "claim unpaid orders")
		}
		if len(claimed) == 0 {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "no unpaid commissions found for the selected period").
				WithReason(ReasonNoUnpaidCommissions).
				WithHTTPStatus(http.StatusNotFound).
				WithRetryable(true)
		}

		total := decimal.Zero
		for _, order := range claimed {
			total = total.Add(order.DealerCommissionAmount)
		}
		total = total.Round(2)
		if !total.IsPositive() {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "no commission amount to payout").
				WithReason(ReasonZeroCommission).
				WithHTTPStatus(http.StatusBadRequest)
		}

		orderIDs, err := repo.ClaimedOrderIDs(ctx, payoutID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load claimed orders")
		}

		payout = &models.DealerPayout{
			ID:             payoutID,
			DealerID:       dealer.ID,
			Amount:         total,
			CommissionRate: dealer.EffectiveCommissionRate(s.defaultRate),
			OrdersIncluded: dbtypes.NewJSONB(models.OrdersIncluded{
				OrderIDs: orderIDs,
				Count:    len(orderIDs),
				FromDate: input.FromDate,
				ToDate:   input.ToDate,
			}),
			Status:     enums.PayoutStatusPending,
			PayoutDate: now,
			Notes:      trimmed(input.Notes),
		}
		if err := repo.Create(ctx, payout); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create payout")
		}

		if _, err := s.ledger.RecordEvent(ctx, tx, ledger.RecordLedgerEventInput{
			DealerID: dealer.ID,
			PayoutID: &payoutID,
			Type:     enums.LedgerEventTypeDealerPayout,
			Amount:   total,
			Metadata: map[string]any{
				"order_count": len(orderIDs),
				"from_date":   input.FromDate,
				"to_date":     input.ToDate,
			},
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record payout ledger event")
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPayoutCreated,
			AggregateType: enums.AggregatePayout,
			AggregateID:   payoutID,
			Actor:         actorRef(input.Actor),
			OccurredAt:    now,
			Data: payloads.PayoutCreatedEvent{
				PayoutID:       payoutID,
				DealerID:       dealer.ID,
				DealerEmail:    dealer.Email,
				DealerName:     dealer.Name,
				Amount:         total,
				CommissionRate: payout.CommissionRate,
				OrderIDs:       orderIDs,
				FromDate:       input.FromDate,
				ToDate:         input.ToDate,
				PayoutDate:     now,
			},
		})
	})
	if err != nil {
		return nil, asTyped(err, "create payout")
	}

	s.metrics.PayoutCreated(payout.Amount)
	s.info(ctx, "payout.created", map[string]any{
		"payout_id":   payout.ID.String(),
		"dealer_id":   payout.DealerID.String(),
		"amount":      payout.Amount.StringFixed(2),
		"order_count": payout.OrdersIncluded.Data.Count,
	})
	s.notifier.Dispatch(ctx, notifications.NotifyInput{
		UserID: dealer.OwnerUserID,
		Type:   enums.NotificationTypePayout,
		Title:  "Payout created",
		Message: fmt.Sprintf("A payout of %s has been created for %d orders between %s and %s.",
			payout.Amount.StringFixed(2), payout.OrdersIncluded.Data.Count, input.FromDate, input.ToDate),
		Link: "/payouts/" + payout.ID.String(),
	})
	return payout, nil
}

func (s *service) UnpaidCommission(ctx context.Context, actor auth.Actor, dealerID uuid.UUID, fromDate, toDate string) (*UnpaidSummary, error) {
	if !actor.IsAdmin() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "admin role required")
	}
	if dealerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "dealer_id is required")
	}
	rng, err := validateRange(fromDate, toDate)
	if err != nil {
		return nil, err
	}
	dealer, err := s.dealers.FindByID(ctx, dealerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load dealer")
	}
	if dealer == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "dealer not found")
	}

	amounts, err := s.repo.UnpaidCommissions(ctx, dealerID, rng.From, rng.Until)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load unpaid commissions")
	}
	total := decimal.Zero
	for _, amount := range amounts {
		total = total.Add(amount)
	}
	return &UnpaidSummary{
		DealerID:   dealerID,
		FromDate:   fromDate,
		ToDate:     toDate,
		OrderCount: len(amounts),
		Total:      total.Round(2),
	}, nil
}

func (s *service) UpdatePayoutStatus(ctx context.Context, input UpdatePayoutStatusInput) (*models.DealerPayout, error) {
	if !input.Actor.IsAdmin() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "admin role required")
	}
	if input.PayoutID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payout_id is required")
	}
	if !input.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid status").
			WithDetails(map[string]any{"status": input.Status})
	}

	now := s.now().UTC()
	var (
		payout *models.DealerPayout
		dealer *models.Dealer
		from   enums.PayoutStatus
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		repo := s.repo.WithTx(tx)
		payout, err = repo.FindByIDForUpdate(ctx, input.PayoutID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payout")
		}
		if payout == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "payout not found")
		}
		from = payout.Status
		if err := CanTransition(from, input.Status); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeStateConflict, err, "payout status transition not allowed").
				WithReason(ReasonIllegalTransition).
				WithDetails(map[string]any{
					"from":    from,
					"to":      input.Status,
					"allowed": ValidTransitionsFrom(from),
				})
		}

		payout.Status = input.Status
		if v := trimmed(input.RazorpayPayoutID); v != nil {
			payout.RazorpayPayoutID = v
		}
		if v := trimmed(input.BankReference); v != nil {
			payout.BankReference = v
		}
		if v := trimmed(input.Notes); v != nil {
			payout.Notes = v
		}
		if input.Status == enums.PayoutStatusCompleted && payout.ProcessedAt == nil {
			payout.ProcessedAt = &now
		}
		payout.UpdatedAt = now
		if err := repo.Save(ctx, payout); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update payout")
		}

		dealer, err = s.dealers.WithTx(tx).FindByID(ctx, payout.DealerID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load dealer")
		}
		event := payloads.PayoutStatusChangedEvent{
			PayoutID:    payout.ID,
			DealerID:    payout.DealerID,
			Amount:      payout.Amount,
			From:        from,
			To:          payout.Status,
			ProcessedAt: payout.ProcessedAt,
			ChangedAt:   now,
		}
		if dealer != nil {
			event.DealerEmail = dealer.Email
			event.DealerName = dealer.Name
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPayoutStatusChanged,
			AggregateType: enums.AggregatePayout,
			AggregateID:   payout.ID,
			Actor:         actorRef(input.Actor),
			OccurredAt:    now,
			Data:          event,
		})
	})
	if err != nil {
		return nil, asTyped(err, "update payout status")
	}

	if from != payout.Status {
		s.metrics.PayoutTransitioned(string(payout.Status))
	}
	s.info(ctx, "payout.status.updated", map[string]any{
		"payout_id": payout.ID.String(),
		"from":      from,
		"to":        payout.Status,
	})
	if dealer != nil {
		priority := enums.NotificationPriorityNormal
		message := fmt.Sprintf("Your payout of %s is now %s.", payout.Amount.StringFixed(2), payout.Status)
		if payout.Status == enums.PayoutStatusFailed {
			priority = enums.NotificationPriorityHigh
			message = fmt.Sprintf("Your payout of %s has failed. Please check your bank details.", payout.Amount.StringFixed(2))
		}
		s.notifier.Dispatch(ctx, notifications.NotifyInput{
			UserID:   dealer.OwnerUserID,
			Type:     enums.NotificationTypePayout,
			Priority: priority,
			Title:    "Payout " + string(payout.Status),
			Message:  message,
			Link:     "/payouts/" + payout.ID.String(),
		})
	}
	return payout, nil
}

func (s *service) ListPayouts(ctx context.Context, input ListPayoutsInput) (pagination.Page[models.DealerPayout], error) {
	var empty pagination.Page[models.DealerPayout]
	params := listParams{Limit: input.Limit, Status: input.Status}
	switch {
	case input.Actor.IsAdmin():
		params.DealerID = input.DealerID
	case input.Actor.IsDealer():
		params.DealerID = input.Actor.DealerID
	default:
		return empty, pkgerrors.New(pkgerrors.CodeForbidden, "dealer or admin role required")
	}
	if params.Status != nil && !params.Status.IsValid() {
		return empty, pkgerrors.New(pkgerrors.CodeValidation, "invalid status")
	}
	if strings.TrimSpace(input.FromDate) != "" {
		from, err := time.Parse(dateLayout, input.FromDate)
		if err != nil {
			return empty, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "from_date must be yyyy-MM-dd")
		}
		params.From = &from
	}
	if strings.TrimSpace(input.ToDate) != "" {
		to, err := time.Parse(dateLayout, input.ToDate)
		if err != nil {
			return empty, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "to_date must be yyyy-MM-dd")
		}
		until := to.AddDate(0, 0, 1)
		params.Until = &until
	}
	cursor, err := pagination.ParseCursor(input.Cursor)
	if err != nil {
		return empty, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	params.Cursor = cursor

	rows, err := s.repo.List(ctx, params)
	if err != nil {
		return empty, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list payouts")
	}
	return pagination.BuildPage(rows, input.Limit, func(p models.DealerPayout) pagination.Cursor {
		return pagination.Cursor{CreatedAt: p.CreatedAt, ID: p.ID}
	}), nil
}

func (s *service) GetPayout(ctx context.Context, actor auth.Actor, id uuid.UUID) (*models.DealerPayout, error) {
	payout, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payout")
	}
	if payout == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payout not found")
	}
	if !actor.ActsForDealer(payout.DealerID) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "payout access denied")
	}
	return payout, nil
}

func validateRange(from, to string) (dateRange, error) {
	from, to = strings.TrimSpace(from), strings.TrimSpace(to)
	if from == "" || to == "" {
		return dateRange{}, pkgerrors.New(pkgerrors.CodeValidation, "from_date and to_date are required")
	}
	rng, err := parseRange(from, to)
	if err != nil {
		return dateRange{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "dates must be yyyy-MM-dd")
	}
	if !rng.From.Before(rng.Until) {
		return dateRange{}, pkgerrors.New(pkgerrors.CodeValidation, "from_date must be on or before to_date")
	}
	return rng, nil
}

func (s *service) info(ctx context.Context, msg string, fields map[string]any) {
	if s.logg == nil {
		return
	}
	s.logg.Info(s.logg.WithFields(ctx, fields), msg)
}

func actorRef(actor auth.Actor) *outbox.ActorRef {
	return &outbox.ActorRef{UserID: actor.UserID, Role: string(actor.Role), DealerID: actor.DealerID}
}

func trimmed(value *string) *string {
	if value == nil {
		return nil
	}
	v := strings.TrimSpace(*value)
	if v == "" {
		return nil
	}
	return &v
}

func asTyped(err error, message string) error {
	if pkgerrors.As(err) != nil {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, message)
}
