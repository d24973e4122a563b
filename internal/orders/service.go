package orders

import (
	"context"
	"fmt"
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

var hundred = decimal.NewFromInt(100)

// Service places orders, settles payment and drives fulfillment.
type Service interface {
	PlaceOrder(ctx context.Context, input PlaceOrderInput) (*models.Order, error)
	ConfirmPayment(ctx context.Context, input ConfirmPaymentInput) (*models.Order, error)
	UpdateOrderStatus(ctx context.Context, input UpdateOrderStatusInput) (*models.Order, error)
	GetOrder(ctx context.Context, actor auth.Actor, id uuid.UUID) (*models.Order, error)
	ListOrders(ctx context.Context, input ListOrdersInput) (pagination.Page[models.Order], error)
}

// ServiceParams wires an orders Service.
type ServiceParams struct {
	Repo        Repository
	Inventory   Inventory
	Dealers     dealers.Repository
	Ledger      ledger.Service
	Tx          txRunner
	Outbox      outbox.Emitter
	Notifier    notifications.Dispatcher
	Metrics     *metrics.DomainMetrics
	Logger      *logger.Logger
	TaxRate     decimal.Decimal
	DefaultRate decimal.Decimal
}

type service struct {
	repo        Repository
	inventory   Inventory
	dealers     dealers.Repository
	ledger      ledger.Service
	tx          txRunner
	outbox      outbox.Emitter
	notifier    notifications.Dispatcher
	metrics     *metrics.DomainMetrics
	logg        *logger.Logger
	taxRate     decimal.Decimal
	defaultRate decimal.Decimal
	now         func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("orders repository required")
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
	inventory := params.Inventory
	if inventory == nil {
		inventory = NewInventory()
	}
	return &service{
		repo:        params.Repo,
		inventory:   inventory,
		dealers:     params.Dealers,
		ledger:      params.Ledger,
		tx:          params.Tx,
		outbox:      params.Outbox,
		notifier:    params.Notifier,
		metrics:     params.Metrics,
		logg:        params.Logger,
		taxRate:     params.TaxRate,
		defaultRate: params.DefaultRate,
		now:         time.Now,
	}, nil
}

func (s *service) PlaceOrder(ctx context.Context, input PlaceOrderInput) (*models.Order, error) {
	if input.Actor.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "authenticated customer required")
	}
	if input.VehicleID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "vehicle_id is required")
	}
	if input.Quantity < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}
	discount := decimal.Zero
	if input.DiscountAmount != nil {
		discount = input.DiscountAmount.Round(2)
		if discount.IsNegative() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "discount_amount cannot be negative")
		}
	}

	now := s.now().UTC()
	var order *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		vehicle, err := repo.FindVehicle(ctx, input.VehicleID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load vehicle")
		}
		if vehicle == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "vehicle not found")
		}
		if !vehicle.IsActive {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "vehicle is not available for sale").
				WithReason(ReasonVehicleInactive)
		}
		// Stock is only committed at payment; this rejects orders that could
		// never be fulfilled.
		if vehicle.AvailableQty < input.Quantity {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "insufficient stock").
				WithReason(ReasonInsufficientStock).
				WithDetails(map[string]any{"available_qty": vehicle.AvailableQty})
		}

		if input.DealerID != nil {
			dealer, err := s.dealers.WithTx(tx).FindByID(ctx, *input.DealerID)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load dealer")
			}
			if dealer == nil {
				return pkgerrors.New(pkgerrors.CodeNotFound, "dealer not found")
			}
			if dealer.ApprovalStatus != enums.DealerApprovalApproved {
				return pkgerrors.New(pkgerrors.CodeStateConflict, "dealer is not approved").
					WithReason(ReasonDealerNotApproved)
			}
		}

		total := vehicle.UnitPrice.Mul(decimal.NewFromInt(int64(input.Quantity))).Round(2)
		tax := total.Mul(s.taxRate).Div(hundred).Round(2)
		if discount.GreaterThan(total.Add(tax)) {
			return pkgerrors.New(pkgerrors.CodeValidation, "discount_amount exceeds order total")
		}

		order = &models.Order{
			ID:                     uuid.New(),
			CustomerUserID:         input.Actor.UserID,
			DealerID:               input.DealerID,
			VehicleID:              vehicle.ID,
			Quantity:               input.Quantity,
			UnitPrice:              vehicle.UnitPrice,
			TotalAmount:            total,
			TaxAmount:              tax,
			DiscountAmount:         discount,
			FinalAmount:            total.Add(tax).Sub(discount),
			Status:                 enums.OrderStatusPending,
			PaymentStatus:          enums.PaymentStatusPending,
			DealerCommissionAmount: decimal.Zero,
			CreatedAt:              now,
			UpdatedAt:              now,
		}
		if err := repo.Create(ctx, order); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderCreated,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         actorRef(input.Actor),
			OccurredAt:    now,
			Data: payloads.OrderCreatedEvent{
				OrderID:        order.ID,
				CustomerUserID: order.CustomerUserID,
				DealerID:       order.DealerID,
				VehicleID:      order.VehicleID,
				Quantity:       order.Quantity,
				FinalAmount:    order.FinalAmount,
				CreatedAt:      now,
			},
		})
	})
	if err != nil {
		return nil, asTyped(err, "place order")
	}

	s.info(ctx, "order.created", map[string]any{
		"order_id":     order.ID.String(),
		"vehicle_id":   order.VehicleID.String(),
		"quantity":     order.Quantity,
		"final_amount": order.FinalAmount.StringFixed(2),
	})
	return order, nil
}

func (s *service) ConfirmPayment(ctx context.Context, input ConfirmPaymentInput) (*models.Order, error) {
	if !input.Actor.IsAdmin() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "admin role required")
	}
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order_id is required")
	}
	reference := strings.TrimSpace(input.PaymentReference)

	now := s.now().UTC()
	var order *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		repo := s.repo.WithTx(tx)
		order, err = repo.FindByIDForUpdate(ctx, input.OrderID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		if order == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		if order.Status == enums.OrderStatusCancelled {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order is cancelled").
				WithReason(ReasonOrderCancelled)
		}
		if order.PaymentStatus != enums.PaymentStatusPending {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "payment is not pending").
				WithReason(ReasonPaymentSettled).
				WithDetails(map[string]any{"payment_status": order.PaymentStatus})
		}

		if err := s.inventory.Reserve(ctx, tx, order.VehicleID, order.Quantity); err != nil {
			return err
		}

		commission := decimal.Zero
		if order.DealerID != nil {
			dealer, err := s.dealers.WithTx(tx).FindByID(ctx, *order.DealerID)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load dealer")
			}
			rate := s.defaultRate
			if dealer != nil {
				rate = dealer.EffectiveCommissionRate(s.defaultRate)
			}
			commission = order.FinalAmount.Mul(rate).Div(hundred).Round(2)
		}

		order.PaymentStatus = enums.PaymentStatusPaid
		order.PaidAt = &now
		order.DealerCommissionAmount = commission
		if reference != "" {
			order.PaymentReference = &reference
		}
		order.UpdatedAt = now
		if err := repo.Update(ctx, order.ID, map[string]any{
			"payment_status":           order.PaymentStatus,
			"paid_at":                  order.PaidAt,
			"payment_reference":        order.PaymentReference,
			"dealer_commission_amount": order.DealerCommissionAmount,
			"updated_at":               now,
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order payment")
		}

		if order.DealerID != nil {
			orderID := order.ID
			if _, err := s.ledger.RecordEvent(ctx, tx, ledger.RecordLedgerEventInput{
				DealerID: *order.DealerID,
				OrderID:  &orderID,
				Type:     enums.LedgerEventTypeCommissionAccrued,
				Amount:   commission,
				Metadata: map[string]any{"final_amount": order.FinalAmount.StringFixed(2)},
			}); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record commission ledger event")
			}
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderPaid,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         actorRef(input.Actor),
			OccurredAt:    now,
			Data: payloads.OrderPaidEvent{
				OrderID:          order.ID,
				DealerID:         order.DealerID,
				FinalAmount:      order.FinalAmount,
				CommissionAmount: commission,
				PaymentReference: reference,
				PaidAt:           now,
			},
		})
	})
	if err != nil {
		return nil, asTyped(err, "confirm payment")
	}

	s.info(ctx, "order.paid", map[string]any{
		"order_id":   order.ID.String(),
		"commission": order.DealerCommissionAmount.StringFixed(2),
	})
	return order, nil
}

func (s *service) UpdateOrderStatus(ctx context.Context, input UpdateOrderStatusInput) (*models.Order, error) {
	if !input.Actor.IsAdmin() && !input.Actor.IsDealer() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "dealer or admin role required")
	}
	if input.OrderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order_id is required")
	}
	if !input.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid status").
			WithDetails(map[string]any{"status": input.Status})
	}
	reason := strings.TrimSpace(input.CancellationReason)
	if input.Status == enums.OrderStatusCancelled && reason == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cancellation_reason is required when cancelling")
	}

	now := s.now().UTC()
	var (
		order         *models.Order
		from          enums.OrderStatus
		stockRestored bool
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var err error
		repo := s.repo.WithTx(tx)
		order, err = repo.FindByIDForUpdate(ctx, input.OrderID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		if order == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		if !input.Actor.IsAdmin() && (order.DealerID == nil || !input.Actor.ActsForDealer(*order.DealerID)) {
			return pkgerrors.New(pkgerrors.CodeForbidden, "order access denied")
		}

		from = order.Status
		if err := CanTransition(from, input.Status); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeStateConflict, err, "order status transition not allowed").
				WithReason(ReasonIllegalTransition).
				WithDetails(map[string]any{
					"from":    from,
					"to":      input.Status,
					"allowed": ValidTransitionsFrom(from),
				})
		}

		updates := map[string]any{"status": input.Status, "updated_at": now}
		stamp(order, input.Status, now, updates)
		if input.Status == enums.OrderStatusCancelled {
			order.CancellationReason = &reason
			updates["cancellation_reason"] = reason
			if order.PaymentStatus == enums.PaymentStatusPaid {
				if err := s.inventory.Release(ctx, tx, order.VehicleID, order.Quantity); err != nil {
					return err
				}
				stockRestored = true
			}
		}
		order.Status = input.Status
		order.UpdatedAt = now
		if err := repo.Update(ctx, order.ID, updates); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderStatusChanged,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         actorRef(input.Actor),
			OccurredAt:    now,
			Data: payloads.OrderStatusChangedEvent{
				OrderID:            order.ID,
				DealerID:           order.DealerID,
				CustomerUserID:     order.CustomerUserID,
				From:               from,
				To:                 order.Status,
				StockRestored:      stockRestored,
				CancellationReason: reason,
				ChangedAt:          now,
			},
		})
	})
	if err != nil {
		return nil, asTyped(err, "update order status")
	}

	s.metrics.OrderTransitioned(string(from), string(order.Status))
	s.info(ctx, "order.status.updated", map[string]any{
		"order_id":       order.ID.String(),
		"from":           from,
		"to":             order.Status,
		"stock_restored": stockRestored,
	})
	s.notifyStatusChange(ctx, order, from)
	return order, nil
}

func (s *service) notifyStatusChange(ctx context.Context, order *models.Order, from enums.OrderStatus) {
	short := order.ID.String()[:8]
	message := fmt.Sprintf("Order %s moved from %s to %s.", short, from, order.Status)
	priority := enums.NotificationPriorityNormal
	if order.Status == enums.OrderStatusCancelled {
		priority = enums.NotificationPriorityHigh
		if order.CancellationReason != nil {
			message = fmt.Sprintf("Order %s was cancelled: %s", short, *order.CancellationReason)
		}
	}
	link := "/orders/" + order.ID.String()

	s.notifier.Dispatch(ctx, notifications.NotifyInput{
		UserID:   order.CustomerUserID,
		Type:     enums.NotificationTypeOrder,
		Priority: priority,
		Title:    "Order " + string(order.Status),
		Message:  message,
		Link:     link,
	})
	if order.DealerID == nil {
		return
	}
	dealer, err := s.dealers.FindByID(ctx, *order.DealerID)
	if err != nil || dealer == nil {
		if s.logg != nil && err != nil {
			s.logg.Warn(s.logg.WithFields(ctx, map[string]any{"order_id": order.ID.String(), "error": err.Error()}), "order.notify.dealer_lookup_failed")
		}
		return
	}
	s.notifier.Dispatch(ctx, notifications.NotifyInput{
		UserID:   dealer.OwnerUserID,
		Type:     enums.NotificationTypeOrder,
		Priority: priority,
		Title:    "Order " + string(order.Status),
		Message:  message,
		Link:     link,
	})
}

func (s *service) GetOrder(ctx context.Context, actor auth.Actor, id uuid.UUID) (*models.Order, error) {
	order, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	if order == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	if !canView(actor, order) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order access denied")
	}
	return order, nil
}

func (s *service) ListOrders(ctx context.Context, input ListOrdersInput) (pagination.Page[models.Order], error) {
	var empty pagination.Page[models.Order]
	params := listParams{Limit: input.Limit, Status: input.Status, PaymentStatus: input.PaymentStatus}
	switch {
	case input.Actor.IsAdmin():
		params.DealerID = input.DealerID
	case input.Actor.IsDealer():
		params.DealerID = input.Actor.DealerID
	case input.Actor.UserID != uuid.Nil:
		userID := input.Actor.UserID
		params.CustomerUserID = &userID
	default:
		return empty, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	if params.Status != nil && !params.Status.IsValid() {
		return empty, pkgerrors.New(pkgerrors.CodeValidation, "invalid status")
	}
	if params.PaymentStatus != nil && !params.PaymentStatus.IsValid() {
		return empty, pkgerrors.New(pkgerrors.CodeValidation, "invalid payment_status")
	}
	cursor, err := pagination.ParseCursor(input.Cursor)
	if err != nil {
		return empty, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	params.Cursor = cursor

	rows, err := s.repo.List(ctx, params)
	if err != nil {
		return empty, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return pagination.BuildPage(rows, input.Limit, func(o models.Order) pagination.Cursor {
		return pagination.Cursor{CreatedAt: o.CreatedAt, ID: o.ID}
	}), nil
}

func canView(actor auth.Actor, order *models.Order) bool {
	switch {
	case actor.IsAdmin():
		return true
	case actor.IsDealer():
		return order.DealerID != nil && *order.DealerID == *actor.DealerID
	default:
		return actor.UserID != uuid.Nil && actor.UserID == order.CustomerUserID
	}
}

// stamp records the entry time for status on both the model and the update set.
func stamp(order *models.Order, status enums.OrderStatus, now time.Time, updates map[string]any) {
	var column string
	switch status {
	case enums.OrderStatusConfirmed:
		order.ConfirmedAt, column = &now, "confirmed_at"
	case enums.OrderStatusProcessing:
		order.ProcessingAt, column = &now, "processing_at"
	case enums.OrderStatusShipped:
		order.ShippedAt, column = &now, "shipped_at"
	case enums.OrderStatusDelivered:
		order.DeliveredAt, column = &now, "delivered_at"
	case enums.OrderStatusCancelled:
		order.CancelledAt, column = &now, "cancelled_at"
	default:
		return
	}
	updates[column] = now
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

func asTyped(err error, message string) error {
	if pkgerrors.As(err) != nil {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, message)
}
