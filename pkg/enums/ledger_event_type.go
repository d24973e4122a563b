package enums

import "fmt"

// LedgerEventType classifies entries in the dealer commission ledger.
type LedgerEventType string

const (
	LedgerEventTypeCommissionAccrued LedgerEventType = "commission_accrued"
	LedgerEventTypeDealerPayout      LedgerEventType = "dealer_payout"
)

var validLedgerEventTypes = []LedgerEventType{
	LedgerEventTypeCommissionAccrued,
	LedgerEventTypeDealerPayout,
}

// IsValid reports whether the value matches the canonical ledger event enum.
func (t LedgerEventType) IsValid() bool {
	for _, candidate := range validLedgerEventTypes {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseLedgerEventType converts raw input into LedgerEventType.
func ParseLedgerEventType(value string) (LedgerEventType, error) {
	for _, candidate := range validLedgerEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid ledger event type %q", value)
}
