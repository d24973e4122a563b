package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/voltline-backend/pkg/enums"
)

// Order is one purchase of Quantity units of a vehicle, optionally through a dealer.
type Order struct {
	ID                     uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	CustomerUserID         uuid.UUID           `gorm:"column:customer_user_id;type:uuid;not null" json:"customer_user_id"`
	DealerID               *uuid.UUID          `gorm:"column:dealer_id;type:uuid" json:"dealer_id,omitempty"`
	VehicleID              uuid.UUID           `gorm:"column:vehicle_id;type:uuid;not null" json:"vehicle_id"`
	Quantity               int                 `gorm:"column:quantity;not null" json:"quantity"`
	UnitPrice              decimal.Decimal     `gorm:"column:unit_price;type:numeric(12,2);not null" json:"unit_price"`
	TotalAmount            decimal.Decimal     `gorm:"column:total_amount;type:numeric(12,2);not null" json:"total_amount"`
	TaxAmount              decimal.Decimal     `gorm:"column:tax_amount;type:numeric(12,2);not null" json:"tax_amount"`
	DiscountAmount         decimal.Decimal     `gorm:"column:discount_amount;type:numeric(12,2);not null" json:"discount_amount"`
	FinalAmount            decimal.Decimal     `gorm:"column:final_amount;type:numeric(12,2);not null" json:"final_amount"`
	Status                 enums.OrderStatus   `gorm:"column:status;not null;default:pending" json:"status"`
	PaymentStatus          enums.PaymentStatus `gorm:"column:payment_status;not null;default:pending" json:"payment_status"`
	PaymentReference       *string             `gorm:"column:payment_reference" json:"payment_reference,omitempty"`
	PaidAt                 *time.Time          `gorm:"column:paid_at" json:"paid_at,omitempty"`
	DealerCommissionAmount decimal.Decimal     `gorm:"column:dealer_commission_amount;type:numeric(12,2);not null;default:0" json:"dealer_commission_amount"`
	CommissionPaid         bool                `gorm:"column:commission_paid;not null;default:false" json:"commission_paid"`
	CommissionPaidAt       *time.Time          `gorm:"column:commission_paid_at" json:"commission_paid_at,omitempty"`
	PayoutID               *uuid.UUID          `gorm:"column:payout_id;type:uuid" json:"payout_id,omitempty"`
	CancellationReason     *string             `gorm:"column:cancellation_reason" json:"cancellation_reason,omitempty"`
	ConfirmedAt            *time.Time          `gorm:"column:confirmed_at" json:"confirmed_at,omitempty"`
	ProcessingAt           *time.Time          `gorm:"column:processing_at" json:"processing_at,omitempty"`
	ShippedAt              *time.Time          `gorm:"column:shipped_at" json:"shipped_at,omitempty"`
	DeliveredAt            *time.Time          `gorm:"column:delivered_at" json:"delivered_at,omitempty"`
	CancelledAt            *time.Time          `gorm:"column:cancelled_at" json:"cancelled_at,omitempty"`
	CreatedAt              time.Time           `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt              time.Time           `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}
