package enums

import "fmt"

// LeadStatus tracks dealer follow-up on an inbound inquiry.
type LeadStatus string

const (
	LeadStatusNew       LeadStatus = "new"
	LeadStatusAssigned  LeadStatus = "assigned"
	LeadStatusContacted LeadStatus = "contacted"
	LeadStatusQualified LeadStatus = "qualified"
	LeadStatusConverted LeadStatus = "converted"
	LeadStatusClosed    LeadStatus = "closed"
)

var validLeadStatuses = []LeadStatus{
	LeadStatusNew,
	LeadStatusAssigned,
	LeadStatusContacted,
	LeadStatusQualified,
	LeadStatusConverted,
	LeadStatusClosed,
}

// IsValid reports whether the value is a known LeadStatus.
func (s LeadStatus) IsValid() bool {
	for _, candidate := range validLeadStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseLeadStatus converts raw input into a LeadStatus.
func ParseLeadStatus(value string) (LeadStatus, error) {
	for _, candidate := range validLeadStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid lead status %q", value)
}

type LeadPriority string

const (
	LeadPriorityNormal LeadPriority = "normal"
	LeadPriorityUrgent LeadPriority = "urgent"
)

var validLeadPriorities = []LeadPriority{
	LeadPriorityNormal,
	LeadPriorityUrgent,
}

func (p LeadPriority) IsValid() bool {
	for _, candidate := range validLeadPriorities {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParseLeadPriority converts raw input into a LeadPriority.
func ParseLeadPriority(value string) (LeadPriority, error) {
	for _, candidate := range validLeadPriorities {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid lead priority %q", value)
}

// LeadSource records which form produced the lead.
type LeadSource string

const (
	LeadSourceContact  LeadSource = "contact"
	LeadSourceInquiry  LeadSource = "inquiry"
	LeadSourceWarranty LeadSource = "warranty"
	LeadSourceTestRide LeadSource = "test_ride"
)

var validLeadSources = []LeadSource{
	LeadSourceContact,
	LeadSourceInquiry,
	LeadSourceWarranty,
	LeadSourceTestRide,
}

func (s LeadSource) IsValid() bool {
	for _, candidate := range validLeadSources {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseLeadSource converts raw input into a LeadSource.
func ParseLeadSource(value string) (LeadSource, error) {
	for _, candidate := range validLeadSources {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid lead source %q", value)
}
