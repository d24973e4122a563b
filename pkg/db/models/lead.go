package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/voltline-backend/pkg/enums"
)

// Lead is an inbound customer inquiry routed to at most one dealer.
type Lead struct {
	ID         uuid.UUID          `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name       string             `gorm:"column:name;not null" json:"name"`
	Email      string             `gorm:"column:email;not null" json:"email"`
	Phone      *string            `gorm:"column:phone" json:"phone,omitempty"`
	Subject    string             `gorm:"column:subject;not null" json:"subject"`
	Message    string             `gorm:"column:message;not null" json:"message"`
	Priority   enums.LeadPriority `gorm:"column:priority;not null;default:normal" json:"priority"`
	Source     enums.LeadSource   `gorm:"column:source;not null;default:contact" json:"source"`
	Status     enums.LeadStatus   `gorm:"column:status;not null;default:new" json:"status"`
	AssignedTo *uuid.UUID         `gorm:"column:assigned_to;type:uuid" json:"assigned_to,omitempty"`
	VehicleID  *uuid.UUID         `gorm:"column:vehicle_id;type:uuid" json:"vehicle_id,omitempty"`
	Notes      *string            `gorm:"column:notes" json:"notes,omitempty"`
	CreatedAt  time.Time          `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time          `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}
