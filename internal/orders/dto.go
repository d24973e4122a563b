package orders

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/voltline-backend/pkg/auth"
	"github.com/angelmondragon/voltline-backend/pkg/enums"
)

// Reasons narrowing STATE_CONFLICT errors raised by order operations.
const (
	ReasonIllegalTransition = "ILLEGAL_ORDER_TRANSITION"
	ReasonPaymentSettled    = "PAYMENT_ALREADY_SETTLED"
	ReasonOrderCancelled    = "ORDER_CANCELLED"
	ReasonVehicleInactive   = "VEHICLE_INACTIVE"
	ReasonDealerNotApproved = "DEALER_NOT_APPROVED"
)

// PlaceOrderInput is a customer's checkout request.
type PlaceOrderInput struct {
	Actor          auth.Actor
	VehicleID      uuid.UUID
	Quantity       int
	DealerID       *uuid.UUID
	DiscountAmount *decimal.Decimal
}

// ConfirmPaymentInput settles payment for a pending order.
type ConfirmPaymentInput struct {
	Actor            auth.Actor
	OrderID          uuid.UUID
	PaymentReference string
}

// UpdateOrderStatusInput moves an order one step through fulfillment.
type UpdateOrderStatusInput struct {
	Actor              auth.Actor
	OrderID            uuid.UUID
	Status             enums.OrderStatus
	CancellationReason string
}

// ListOrdersInput filters the caller's visible orders.
type ListOrdersInput struct {
	Actor         auth.Actor
	DealerID      *uuid.UUID
	Status        *enums.OrderStatus
	PaymentStatus *enums.PaymentStatus
	Limit         int
	Cursor        string
}
