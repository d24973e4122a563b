package payloads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/voltline-backend/pkg/enums"
)

// OrderCreatedEvent is emitted at checkout.
type OrderCreatedEvent struct {
	OrderID        uuid.UUID       `json:"order_id"`
	CustomerUserID uuid.UUID       `json:"customer_user_id"`
	DealerID       *uuid.UUID      `json:"dealer_id,omitempty"`
	VehicleID      uuid.UUID       `json:"vehicle_id"`
	Quantity       int             `json:"quantity"`
	FinalAmount    decimal.Decimal `json:"final_amount"`
	CreatedAt      time.Time       `json:"created_at"`
}

// OrderPaidEvent carries the commission accrued when payment settles.
type OrderPaidEvent struct {
	OrderID          uuid.UUID       `json:"order_id"`
	DealerID         *uuid.UUID      `json:"dealer_id,omitempty"`
	FinalAmount      decimal.Decimal `json:"final_amount"`
	CommissionAmount decimal.Decimal `json:"commission_amount"`
	PaymentReference string          `json:"payment_reference,omitempty"`
	PaidAt           time.Time       `json:"paid_at"`
}

// OrderStatusChangedEvent records one fulfillment transition.
type OrderStatusChangedEvent struct {
	OrderID            uuid.UUID         `json:"order_id"`
	DealerID           *uuid.UUID        `json:"dealer_id,omitempty"`
	CustomerUserID     uuid.UUID         `json:"customer_user_id"`
	From               enums.OrderStatus `json:"from"`
	To                 enums.OrderStatus `json:"to"`
	StockRestored      bool              `json:"stock_restored"`
	CancellationReason string            `json:"cancellation_reason,omitempty"`
	ChangedAt          time.Time         `json:"changed_at"`
}

// PayoutCreatedEvent is emitted once the claim and payout row commit together.
type PayoutCreatedEvent struct {
	PayoutID       uuid.UUID       `json:"payout_id"`
	DealerID       uuid.UUID       `json:"dealer_id"`
	DealerEmail    string          `json:"dealer_email"`
	DealerName     string          `json:"dealer_name"`
	Amount         decimal.Decimal `json:"amount"`
	CommissionRate decimal.Decimal `json:"commission_rate"`
	OrderIDs       []uuid.UUID     `json:"order_ids"`
	FromDate       string          `json:"from_date"`
	ToDate         string          `json:"to_date"`
	PayoutDate     time.Time       `json:"payout_date"`
}

// PayoutStatusChangedEvent is emitted for every accepted status update.
type PayoutStatusChangedEvent struct {
	PayoutID    uuid.UUID          `json:"payout_id"`
	DealerID    uuid.UUID          `json:"dealer_id"`
	DealerEmail string             `json:"dealer_email"`
	DealerName  string             `json:"dealer_name"`
	Amount      decimal.Decimal    `json:"amount"`
	From        enums.PayoutStatus `json:"from"`
	To          enums.PayoutStatus `json:"to"`
	ProcessedAt *time.Time         `json:"processed_at,omitempty"`
	ChangedAt   time.Time          `json:"changed_at"`
}

// LeadAssignedEvent drives the lead-assignment email to the dealer.
type LeadAssignedEvent struct {
	LeadID       uuid.UUID          `json:"lead_id"`
	DealerID     uuid.UUID          `json:"dealer_id"`
	DealerUserID uuid.UUID          `json:"dealer_user_id"`
	DealerEmail  string             `json:"dealer_email"`
	DealerName   string             `json:"dealer_name"`
	CustomerName string             `json:"customer_name"`
	Subject      string             `json:"subject"`
	Priority     enums.LeadPriority `json:"priority"`
	Source       enums.LeadSource   `json:"source"`
	AssignedAt   time.Time          `json:"assigned_at"`
}

// TestRideBookedEvent confirms a booking to the customer and dealer.
type TestRideBookedEvent struct {
	BookingID     uuid.UUID  `json:"booking_id"`
	DealerID      uuid.UUID  `json:"dealer_id"`
	DealerUserID  uuid.UUID  `json:"dealer_user_id"`
	DealerName    string     `json:"dealer_name"`
	VehicleID     *uuid.UUID `json:"vehicle_id,omitempty"`
	Date          string     `json:"date"`
	Time          string     `json:"time,omitempty"`
	CustomerName  string     `json:"customer_name"`
	CustomerEmail string     `json:"customer_email"`
}
