package enums

import "fmt"

// AnalyticsEventType is the canonical event_type stored in the dealer_events table.
type AnalyticsEventType string

const (
	AnalyticsEventOrderCreated        AnalyticsEventType = "order_created"
	AnalyticsEventOrderPaid           AnalyticsEventType = "order_paid"
	AnalyticsEventOrderStatusChanged  AnalyticsEventType = "order_status_changed"
	AnalyticsEventPayoutCreated       AnalyticsEventType = "payout_created"
	AnalyticsEventPayoutStatusChanged AnalyticsEventType = "payout_status_changed"
)

var validAnalyticsEventTypes = []AnalyticsEventType{
	AnalyticsEventOrderCreated,
	AnalyticsEventOrderPaid,
	AnalyticsEventOrderStatusChanged,
	AnalyticsEventPayoutCreated,
	AnalyticsEventPayoutStatusChanged,
}

// IsValid reports whether the value matches the canonical analytics event_type enum.
func (a AnalyticsEventType) IsValid() bool {
	for _, candidate := range validAnalyticsEventTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseAnalyticsEventType converts the raw string to AnalyticsEventType.
func ParseAnalyticsEventType(value string) (AnalyticsEventType, error) {
	for _, candidate := range validAnalyticsEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid analytics event type %q", value)
}
