package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/voltline-backend/internal/analytics/types"
	"github.com/angelmondragon/voltline-backend/internal/subscriber"
	"github.com/angelmondragon/voltline-backend/pkg/enums"
	"github.com/angelmondragon/voltline-backend/pkg/logger"
	"github.com/angelmondragon/voltline-backend/pkg/outbox/payloads"
)

type fakeWriter struct {
	rows []types.DealerEventRow
	err  error
}

func (f *fakeWriter) InsertDealerEvent(_ context.Context, row types.DealerEventRow) error {
	if f.err != nil {
		return f.err
	}
	f.rows = append(f.rows, row)
	return nil
}

func newTestConsumer(t *testing.T) (*Consumer, *fakeWriter) {
	t.Helper()
	w := &fakeWriter{}
	c, err := NewConsumer(w, logger.New(logger.Options{ServiceName: "analytics-test", Output: io.Discard}))
	require.NoError(t, err)
	return c, w
}

func envelope(t *testing.T, eventType enums.OutboxEventType, payload any) subscriber.Envelope {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	return subscriber.Envelope{
		EventID:    uuid.New(),
		EventType:  eventType,
		OccurredAt: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
		Payload:    raw,
	}
}

func TestConsumerOrderPaidRow(t *testing.T) {
	c, w := newTestConsumer(t)
	dealerID := uuid.New()
	orderID := uuid.New()
	env := envelope(t, enums.EventOrderPaid, payloads.OrderPaidEvent{
		OrderID:          orderID,
		DealerID:         &dealerID,
		FinalAmount:      decimal.RequireFromString("2170.00"),
		CommissionAmount: decimal.RequireFromString("260.405"),
	})

	require.NoError(t, c.Handle(context.Background(), env))
	require.Len(t, w.rows, 1)
	row := w.rows[0]
	require.Equal(t, env.EventID.String(), row.EventID)
	require.Equal(t, "order_paid", row.EventType)
	require.Equal(t, env.OccurredAt, row.OccurredAt)
	require.Equal(t, dealerID.String(), *row.DealerID)
	require.Equal(t, orderID.String(), *row.OrderID)
	require.Equal(t, int64(217000), *row.AmountCents)
	require.Equal(t, int64(26041), *row.CommissionCents)
	require.True(t, row.Payload.Valid)
}

func TestConsumerOrderWithoutDealer(t *testing.T) {
	c, w := newTestConsumer(t)
	env := envelope(t, enums.EventOrderCreated, payloads.OrderCreatedEvent{
		OrderID:     uuid.New(),
		Quantity:    2,
		FinalAmount: decimal.NewFromInt(100),
	})
	require.NoError(t, c.Handle(context.Background(), env))
	require.Nil(t, w.rows[0].DealerID)
	require.Equal(t, int64(2), *w.rows[0].Quantity)
}

func TestConsumerPayoutRows(t *testing.T) {
	c, w := newTestConsumer(t)
	ctx := context.Background()
	payoutID := uuid.New()

	require.NoError(t, c.Handle(ctx, envelope(t, enums.EventPayoutCreated, payloads.PayoutCreatedEvent{
		PayoutID: payoutID,
		DealerID: uuid.New(),
		Amount:   decimal.NewFromInt(800),
		OrderIDs: []uuid.UUID{uuid.New(), uuid.New()},
	})))
	require.NoError(t, c.Handle(ctx, envelope(t, enums.EventPayoutStatusChanged, payloads.PayoutStatusChangedEvent{
		PayoutID: payoutID,
		DealerID: uuid.New(),
		Amount:   decimal.NewFromInt(800),
		From:     enums.PayoutStatusPending,
		To:       enums.PayoutStatusProcessing,
	})))

	require.Len(t, w.rows, 2)
	require.Equal(t, int64(80000), *w.rows[0].AmountCents)
	require.Equal(t, int64(2), *w.rows[0].Quantity)
	require.Equal(t, "pending", *w.rows[1].FromStatus)
	require.Equal(t, "processing", *w.rows[1].ToStatus)
}

func TestConsumerSkipsOtherEvents(t *testing.T) {
	c, w := newTestConsumer(t)
	err := c.Handle(context.Background(), envelope(t, enums.EventLeadAssigned, payloads.LeadAssignedEvent{LeadID: uuid.New()}))
	require.ErrorIs(t, err, subscriber.ErrUnsupportedEvent)
	require.Empty(t, w.rows)
}

func TestConsumerReturnsWriterErrors(t *testing.T) {
	c, w := newTestConsumer(t)
	w.err = errors.New("bigquery unavailable")
	err := c.Handle(context.Background(), envelope(t, enums.EventOrderPaid, payloads.OrderPaidEvent{OrderID: uuid.New()}))
	require.ErrorIs(t, err, w.err)
}

func TestConsumerRejectsMissingPayload(t *testing.T) {
	c, _ := newTestConsumer(t)
	err := c.Handle(context.Background(), subscriber.Envelope{EventID: uuid.New(), EventType: enums.EventOrderPaid})
	require.Error(t, err)
	require.NotErrorIs(t, err, subscriber.ErrUnsupportedEvent)
}
