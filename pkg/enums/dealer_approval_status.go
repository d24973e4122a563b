package enums

import "fmt"

// DealerApprovalStatus gates whether a dealer can receive orders and leads.
type DealerApprovalStatus string

const (
	DealerApprovalPending   DealerApprovalStatus = "pending"
	DealerApprovalApproved  DealerApprovalStatus = "approved"
	DealerApprovalRejected  DealerApprovalStatus = "rejected"
	DealerApprovalSuspended DealerApprovalStatus = "suspended"
)

var validDealerApprovalStatuses = []DealerApprovalStatus{
	DealerApprovalPending,
	DealerApprovalApproved,
	DealerApprovalRejected,
	DealerApprovalSuspended,
}

// IsValid reports whether the value is a known DealerApprovalStatus.
func (s DealerApprovalStatus) IsValid() bool {
	for _, candidate := range validDealerApprovalStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseDealerApprovalStatus converts raw input into a DealerApprovalStatus.
func ParseDealerApprovalStatus(value string) (DealerApprovalStatus, error) {
	for _, candidate := range validDealerApprovalStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid dealer approval status %q", value)
}
