package types

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/voltline-backend/pkg/auth"
)

// DashboardRequest asks for daily figures over [FromDate, ToDate], both
// yyyy-MM-dd and inclusive. DealerID is only honoured for admins.
type DashboardRequest struct {
	Actor    auth.Actor
	DealerID *uuid.UUID
	FromDate string
	ToDate   string
}

// DailyPoint aggregates one calendar day (UTC).
type DailyPoint struct {
	Date       string          `json:"date"`
	PaidOrders int64           `json:"paid_orders"`
	Revenue    decimal.Decimal `json:"revenue"`
	Commission decimal.Decimal `json:"commission"`
	Payouts    decimal.Decimal `json:"payouts"`
}

// DashboardTotals sums the series.
type DashboardTotals struct {
	PaidOrders int64           `json:"paid_orders"`
	Revenue    decimal.Decimal `json:"revenue"`
	Commission decimal.Decimal `json:"commission"`
	Payouts    decimal.Decimal `json:"payouts"`
}

type DashboardResponse struct {
	DealerID *uuid.UUID      `json:"dealer_id,omitempty"`
	FromDate string          `json:"from_date"`
	ToDate   string          `json:"to_date"`
	Series   []DailyPoint    `json:"series"`
	Totals   DashboardTotals `json:"totals"`
}
