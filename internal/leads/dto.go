package leads

import (
	"github.com/google/uuid"

	"github.com/angelmondragon/voltline-backend/pkg/auth"
	"github.com/angelmondragon/voltline-backend/pkg/enums"
)

// ReasonUnassigned narrows the STATE_CONFLICT raised when a lead without a
// dealer is moved out of new.
const ReasonUnassigned = "LEAD_UNASSIGNED"

// ReasonNotAssignable narrows the STATE_CONFLICT raised when a lead has moved
// past assigned and can no longer change hands.
const ReasonNotAssignable = "LEAD_NOT_ASSIGNABLE"

// ReasonDealerUnavailable narrows the STATE_CONFLICT raised when the target
// dealer is not approved.
const ReasonDealerUnavailable = "DEALER_UNAVAILABLE"

// CreateLeadInput is an inbound form submission.
type CreateLeadInput struct {
	Name      string
	Email     string
	Phone     *string
	Subject   string
	Message   string
	Priority  enums.LeadPriority
	Source    enums.LeadSource
	VehicleID *uuid.UUID
}

type AssignLeadInput struct {
	Actor    auth.Actor
	LeadID   uuid.UUID
	DealerID uuid.UUID
}

type UpdateLeadStatusInput struct {
	Actor  auth.Actor
	LeadID uuid.UUID
	Status enums.LeadStatus
}

type AppendNoteInput struct {
	Actor  auth.Actor
	LeadID uuid.UUID
	Note   string
}

// ListLeadsInput filters leads. AssignedTo is honoured for admins only.
type ListLeadsInput struct {
	Actor      auth.Actor
	Status     *enums.LeadStatus
	AssignedTo *uuid.UUID
	Limit      int
	Cursor     string
}
