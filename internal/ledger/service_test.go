package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/voltline-backend/pkg/db/dbtest"
	"github.com/angelmondragon/voltline-backend/pkg/enums"
)

func TestRecordEventPersistsRow(t *testing.T) {
	client := dbtest.Open(t)
	svc, err := NewService(NewRepository(client.DB()))
	require.NoError(t, err)
	ctx := context.Background()

	dealerID := uuid.New()
	orderID := uuid.New()
	event, err := svc.RecordEvent(ctx, nil, RecordLedgerEventInput{
		DealerID: dealerID,
		OrderID:  &orderID,
		Type:     enums.LedgerEventTypeCommissionAccrued,
		Amount:   decimal.RequireFromString("100.004"),
		Metadata: map[string]any{"rate": "10.00"},
	})
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, event.ID)
	require.True(t, event.Amount.Equal(decimal.RequireFromString("100")))

	var meta map[string]string
	require.NoError(t, json.Unmarshal(event.Metadata, &meta))
	require.Equal(t, "10.00", meta["rate"])

	has, err := svc.HasEvent(ctx, orderID, enums.LedgerEventTypeCommissionAccrued)
	require.NoError(t, err)
	require.True(t, has)

	has, err = svc.HasEvent(ctx, orderID, enums.LedgerEventTypeDealerPayout)
	require.NoError(t, err)
	require.False(t, has)

	page, err := svc.ListByDealer(ctx, dealerID, 10, "")
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
}

func TestRecordEventRollsBackWithTransaction(t *testing.T) {
	client := dbtest.Open(t)
	svc, err := NewService(NewRepository(client.DB()))
	require.NoError(t, err)
	ctx := context.Background()

	dealerID := uuid.New()
	payoutID := uuid.New()
	txErr := client.WithTx(ctx, func(tx *gorm.DB) error {
		_, err := svc.RecordEvent(ctx, tx, RecordLedgerEventInput{
			DealerID: dealerID,
			PayoutID: &payoutID,
			Type:     enums.LedgerEventTypeDealerPayout,
			Amount:   decimal.NewFromInt(800),
		})
		require.NoError(t, err)
		return errRollback
	})
	require.ErrorIs(t, txErr, errRollback)

	page, err := svc.ListByDealer(ctx, dealerID, 10, "")
	require.NoError(t, err)
	require.Empty(t, page.Items)
}

func TestRecordEventValidatesReferences(t *testing.T) {
	svc, err := NewService(NewRepository(nil))
	require.NoError(t, err)
	ctx := context.Background()

	_, err = svc.RecordEvent(ctx, nil, RecordLedgerEventInput{Type: enums.LedgerEventTypeDealerPayout})
	require.Error(t, err)

	_, err = svc.RecordEvent(ctx, nil, RecordLedgerEventInput{DealerID: uuid.New(), Type: enums.LedgerEventTypeDealerPayout})
	require.Error(t, err)

	_, err = svc.RecordEvent(ctx, nil, RecordLedgerEventInput{DealerID: uuid.New(), Type: enums.LedgerEventTypeCommissionAccrued})
	require.Error(t, err)

	_, err = svc.RecordEvent(ctx, nil, RecordLedgerEventInput{DealerID: uuid.New(), Type: "bogus"})
	require.Error(t, err)
}

var errRollback = errors.New("rollback")
