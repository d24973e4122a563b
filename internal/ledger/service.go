package ledger

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/voltline-backend/pkg/db/models"
	"github.com/angelmondragon/voltline-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/voltline-backend/pkg/errors"
	"github.com/angelmondragon/voltline-backend/pkg/pagination"
)

// Service records commission movements and lists them per dealer.
type Service interface {
	RecordEvent(ctx context.Context, tx *gorm.DB, input RecordLedgerEventInput) (*models.LedgerEvent, error)
	ListByDealer(ctx context.Context, dealerID uuid.UUID, limit int, cursor string) (pagination.Page[models.LedgerEvent], error)
	HasEvent(ctx context.Context, orderID uuid.UUID, eventType enums.LedgerEventType) (bool, error)
}

type service struct {
	repo Repository
}

// RecordLedgerEventInput captures the immutable data a ledger event requires.
type RecordLedgerEventInput struct {
	DealerID uuid.UUID             `json:"dealer_id"`
	OrderID  *uuid.UUID            `json:"order_id,omitempty"`
	PayoutID *uuid.UUID            `json:"payout_id,omitempty"`
	Type     enums.LedgerEventType `json:"type"`
	Amount   decimal.Decimal       `json:"amount"`
	Metadata map[string]any        `json:"metadata,omitempty"`
}

// NewService wires a ledger service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	return &service{repo: repo}, nil
}

// RecordEvent appends a row using tx when given, so it commits with the
// operation that caused it.
func (s *service) RecordEvent(ctx context.Context, tx *gorm.DB, input RecordLedgerEventInput) (*models.LedgerEvent, error) {
	if input.DealerID == uuid.Nil {
		return nil, fmt.Errorf("dealer id is required")
	}
	if !input.Type.IsValid() {
		return nil, fmt.Errorf("invalid ledger event type %q", input.Type)
	}
	switch input.Type {
	case enums.LedgerEventTypeCommissionAccrued:
		if input.OrderID == nil {
			return nil, fmt.Errorf("order id is required for %s", input.Type)
		}
	case enums.LedgerEventTypeDealerPayout:
		if input.PayoutID == nil {
			return nil, fmt.Errorf("payout id is required for %s", input.Type)
		}
	}

	var metadata json.RawMessage
	if len(input.Metadata) > 0 {
		raw, err := json.Marshal(input.Metadata)
		if err != nil {
			return nil, fmt.Errorf("encode ledger metadata: %w", err)
		}
		metadata = raw
	}

	event := &models.LedgerEvent{
		DealerID: input.DealerID,
		OrderID:  input.OrderID,
		PayoutID: input.PayoutID,
		Type:     input.Type,
		Amount:   input.Amount.Round(2),
		Metadata: metadata,
	}
	if err := s.repo.WithTx(tx).Create(ctx, event); err != nil {
		return nil, err
	}
	return event, nil
}

func (s *service) ListByDealer(ctx context.Context, dealerID uuid.UUID, limit int, cursor string) (pagination.Page[models.LedgerEvent], error) {
	parsed, err := pagination.ParseCursor(cursor)
	if err != nil {
		return pagination.Page[models.LedgerEvent]{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, err := s.repo.ListByDealer(ctx, dealerID, limit, parsed)
	if err != nil {
		return pagination.Page[models.LedgerEvent]{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list ledger events")
	}
	return pagination.BuildPage(rows, limit, func(e models.LedgerEvent) pagination.Cursor {
		return pagination.Cursor{CreatedAt: e.CreatedAt, ID: e.ID}
	}), nil
}

func (s *service) HasEvent(ctx context.Context, orderID uuid.UUID, eventType enums.LedgerEventType) (bool, error) {
	if orderID == uuid.Nil {
		return false, fmt.Errorf("order id is required")
	}
	if !eventType.IsValid() {
		return false, fmt.Errorf("invalid ledger event type %q", eventType)
	}

	events, err := s.repo.ListByOrderID(ctx, orderID)
	if err != nil {
		return false, err
	}
	for _, event := range events {
		if event.Type == eventType {
			return true, nil
		}
	}
	return false, nil
}
