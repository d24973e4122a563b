package payouts

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/voltline-backend/pkg/auth"
	"github.com/angelmondragon/voltline-backend/pkg/enums"
)

const dateLayout = "2006-01-02"

// Reasons narrowing STATE_CONFLICT errors raised by payout creation.
const (
	ReasonNoUnpaidCommissions = "NO_UNPAID_COMMISSIONS"
	ReasonZeroCommission      = "ZERO_COMMISSION"
	ReasonIllegalTransition   = "ILLEGAL_PAYOUT_TRANSITION"
)

// CreatePayoutInput requests a payout for a dealer over [FromDate, ToDate],
// both yyyy-MM-dd and inclusive.
type CreatePayoutInput struct {
	Actor    auth.Actor
	DealerID uuid.UUID
	FromDate string
	ToDate   string
	Notes    *string
}

// UpdatePayoutStatusInput moves a payout through its lifecycle.
type UpdatePayoutStatusInput struct {
	Actor            auth.Actor
	PayoutID         uuid.UUID
	Status           enums.PayoutStatus
	RazorpayPayoutID *string
	BankReference    *string
	Notes            *string
}

// ListPayoutsInput filters payouts. Dealers always see only their own.
type ListPayoutsInput struct {
	Actor    auth.Actor
	DealerID *uuid.UUID
	Status   *enums.PayoutStatus
	FromDate string
	ToDate   string
	Limit    int
	Cursor   string
}

// UnpaidSummary is the commission a payout created now would settle.
type UnpaidSummary struct {
	DealerID   uuid.UUID       `json:"dealer_id"`
	FromDate   string          `json:"from_date"`
	ToDate     string          `json:"to_date"`
	OrderCount int             `json:"order_count"`
	Total      decimal.Decimal `json:"total"`
}

type dateRange struct {
	From  time.Time
	Until time.Time
}

// parseRange turns inclusive calendar dates into a half-open UTC interval.
func parseRange(from, to string) (dateRange, error) {
	start, err := time.Parse(dateLayout, from)
	if err != nil {
		return dateRange{}, err
	}
	end, err := time.Parse(dateLayout, to)
	if err != nil {
		return dateRange{}, err
	}
	return dateRange{From: start, Until: end.AddDate(0, 0, 1)}, nil
}
