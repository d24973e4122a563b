package types

import (
	"time"

	cbigquery "cloud.google.com/go/bigquery"
)

// DealerEventRow mirrors the dealer_events BigQuery schema. Money columns are
// integer minor units.
type DealerEventRow struct {
	EventID         string             `bigquery:"event_id"`
	EventType       string             `bigquery:"event_type"`
	OccurredAt      time.Time          `bigquery:"occurred_at"`
	DealerID        *string            `bigquery:"dealer_id"`
	OrderID         *string            `bigquery:"order_id"`
	PayoutID        *string            `bigquery:"payout_id"`
	CustomerUserID  *string            `bigquery:"customer_user_id"`
	AmountCents     *int64             `bigquery:"amount_cents"`
	CommissionCents *int64             `bigquery:"commission_cents"`
	Quantity        *int64             `bigquery:"quantity"`
	FromStatus      *string            `bigquery:"from_status"`
	ToStatus        *string            `bigquery:"to_status"`
	Payload         cbigquery.NullJSON `bigquery:"payload"`
}
