package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/voltline-backend/pkg/enums"
)

// LedgerEvent records an immutable commission movement for a dealer.
type LedgerEvent struct {
	ID        uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	DealerID  uuid.UUID             `gorm:"column:dealer_id;type:uuid;not null" json:"dealer_id"`
	OrderID   *uuid.UUID            `gorm:"column:order_id;type:uuid" json:"order_id,omitempty"`
	PayoutID  *uuid.UUID            `gorm:"column:payout_id;type:uuid" json:"payout_id,omitempty"`
	Type      enums.LedgerEventType `gorm:"column:type;not null" json:"type"`
	Amount    decimal.Decimal       `gorm:"column:amount;type:numeric(12,2);not null" json:"amount"`
	Metadata  json.RawMessage       `gorm:"column:metadata;type:jsonb" json:"metadata,omitempty"`
	CreatedAt time.Time             `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}
