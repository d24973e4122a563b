package analytics

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/voltline-backend/internal/analytics/types"
	"github.com/angelmondragon/voltline-backend/internal/analytics/writer"
	"github.com/angelmondragon/voltline-backend/internal/subscriber"
	"github.com/angelmondragon/voltline-backend/pkg/enums"
	"github.com/angelmondragon/voltline-backend/pkg/logger"
	"github.com/angelmondragon/voltline-backend/pkg/outbox/payloads"
)

// ConsumerName scopes the idempotency markers of the analytics worker.
const ConsumerName = "dealer-analytics"

// Writer delivers dealer_events rows.
type Writer interface {
	InsertDealerEvent(ctx context.Context, row types.DealerEventRow) error
}

// rowBuilder decodes one event type into its dealer_events row.
type rowBuilder func(env subscriber.Envelope) (types.DealerEventRow, error)

// Consumer ingests order and payout events into BigQuery. It implements
// subscriber.Handler.
type Consumer struct {
	writer   Writer
	builders map[enums.AnalyticsEventType]rowBuilder
	logg     *logger.Logger
}

func NewConsumer(w Writer, logg *logger.Logger) (*Consumer, error) {
	if w == nil {
		return nil, errors.New("writer is required")
	}
	if logg == nil {
		return nil, errors.New("logger is required")
	}
	return &Consumer{
		writer: w,
		logg:   logg,
		builders: map[enums.AnalyticsEventType]rowBuilder{
			enums.AnalyticsEventOrderCreated:        orderCreatedRow,
			enums.AnalyticsEventOrderPaid:           orderPaidRow,
			enums.AnalyticsEventOrderStatusChanged:  orderStatusRow,
			enums.AnalyticsEventPayoutCreated:       payoutCreatedRow,
			enums.AnalyticsEventPayoutStatusChanged: payoutStatusRow,
		},
	}, nil
}

func (c *Consumer) Handle(ctx context.Context, env subscriber.Envelope) error {
	eventType, err := enums.ParseAnalyticsEventType(string(env.EventType))
	if err != nil {
		return subscriber.ErrUnsupportedEvent
	}
	build, ok := c.builders[eventType]
	if !ok {
		return subscriber.ErrUnsupportedEvent
	}

	row, err := build(env)
	if err != nil {
		return fmt.Errorf("build %s row: %w", eventType, err)
	}
	row.EventID = env.EventID.String()
	row.EventType = string(eventType)
	row.OccurredAt = env.OccurredAt.UTC()
	if row.Payload, err = writer.EncodeJSON(env.Payload); err != nil {
		return err
	}

	if err := c.writer.InsertDealerEvent(ctx, row); err != nil {
		return fmt.Errorf("insert %s row: %w", eventType, err)
	}
	logCtx := c.logg.WithFields(ctx, map[string]any{
		"event_id":   row.EventID,
		"event_type": row.EventType,
	})
	c.logg.Debug(logCtx, "analytics.row.inserted")
	return nil
}

func orderCreatedRow(env subscriber.Envelope) (types.DealerEventRow, error) {
	var event payloads.OrderCreatedEvent
	if err := env.Decode(&event); err != nil {
		return types.DealerEventRow{}, err
	}
	return types.DealerEventRow{
		DealerID:       optionalID(event.DealerID),
		OrderID:        id(event.OrderID),
		CustomerUserID: id(event.CustomerUserID),
		AmountCents:    cents(event.FinalAmount),
		Quantity:       int64Ptr(int64(event.Quantity)),
	}, nil
}

func orderPaidRow(env subscriber.Envelope) (types.DealerEventRow, error) {
	var event payloads.OrderPaidEvent
	if err := env.Decode(&event); err != nil {
		return types.DealerEventRow{}, err
	}
	return types.DealerEventRow{
		DealerID:        optionalID(event.DealerID),
		OrderID:         id(event.OrderID),
		AmountCents:     cents(event.FinalAmount),
		CommissionCents: cents(event.CommissionAmount),
	}, nil
}

func orderStatusRow(env subscriber.Envelope) (types.DealerEventRow, error) {
	var event payloads.OrderStatusChangedEvent
	if err := env.Decode(&event); err != nil {
		return types.DealerEventRow{}, err
	}
	from, to := string(event.From), string(event.To)
	return types.DealerEventRow{
		DealerID:       optionalID(event.DealerID),
		OrderID:        id(event.OrderID),
		CustomerUserID: id(event.CustomerUserID),
		FromStatus:     &from,
		ToStatus:       &to,
	}, nil
}

func payoutCreatedRow(env subscriber.Envelope) (types.DealerEventRow, error) {
	var event payloads.PayoutCreatedEvent
	if err := env.Decode(&event); err != nil {
		return types.DealerEventRow{}, err
	}
	return types.DealerEventRow{
		DealerID:    id(event.DealerID),
		PayoutID:    id(event.PayoutID),
		AmountCents: cents(event.Amount),
		Quantity:    int64Ptr(int64(len(event.OrderIDs))),
	}, nil
}

func payoutStatusRow(env subscriber.Envelope) (types.DealerEventRow, error) {
	var event payloads.PayoutStatusChangedEvent
	if err := env.Decode(&event); err != nil {
		return types.DealerEventRow{}, err
	}
	from, to := string(event.From), string(event.To)
	return types.DealerEventRow{
		DealerID:    id(event.DealerID),
		PayoutID:    id(event.PayoutID),
		AmountCents: cents(event.Amount),
		FromStatus:  &from,
		ToStatus:    &to,
	}, nil
}

func id(value uuid.UUID) *string {
	s := value.String()
	return &s
}

func optionalID(value *uuid.UUID) *string {
	if value == nil {
		return nil
	}
	return id(*value)
}

// cents converts a 2dp amount to minor units, rounding half away from zero.
func cents(amount decimal.Decimal) *int64 {
	v := amount.Shift(2).Round(0).IntPart()
	return &v
}

func int64Ptr(v int64) *int64 {
	return &v
}
