package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	dbtypes "github.com/angelmondragon/voltline-backend/pkg/db/types"
	"github.com/angelmondragon/voltline-backend/pkg/enums"
)

// OrdersIncluded is the frozen set of orders a payout settles.
type OrdersIncluded struct {
	OrderIDs []uuid.UUID `json:"order_ids"`
	Count    int         `json:"count"`
	FromDate string      `json:"from_date"`
	ToDate   string      `json:"to_date"`
}

// DealerPayout settles the commission of a batch of paid orders.
type DealerPayout struct {
	ID               uuid.UUID                       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	DealerID         uuid.UUID                       `gorm:"column:dealer_id;type:uuid;not null" json:"dealer_id"`
	Amount           decimal.Decimal                 `gorm:"column:amount;type:numeric(12,2);not null" json:"amount"`
	CommissionRate   decimal.Decimal                 `gorm:"column:commission_rate;type:numeric(5,2);not null" json:"commission_rate"`
	OrdersIncluded   dbtypes.JSONB[OrdersIncluded]   `gorm:"column:orders_included;type:jsonb;not null" json:"orders_included"`
	Status           enums.PayoutStatus              `gorm:"column:status;not null;default:pending" json:"status"`
	PayoutDate       time.Time                       `gorm:"column:payout_date;not null" json:"payout_date"`
	RazorpayPayoutID *string                         `gorm:"column:razorpay_payout_id" json:"razorpay_payout_id,omitempty"`
	BankReference    *string                         `gorm:"column:bank_reference" json:"bank_reference,omitempty"`
	Notes            *string                         `gorm:"column:notes" json:"notes,omitempty"`
	ProcessedAt      *time.Time                      `gorm:"column:processed_at" json:"processed_at,omitempty"`
	CreatedAt        time.Time                       `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time                       `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (DealerPayout) TableName() string {
	return "dealer_payouts"
}
