package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/voltline-backend/pkg/enums"
)

// Notification stores in-app notification payloads scoped to a user.
type Notification struct {
	ID        uuid.UUID                  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID    uuid.UUID                  `gorm:"type:uuid;not null" json:"user_id"`
	Type      enums.NotificationType     `gorm:"not null" json:"type"`
	Priority  enums.NotificationPriority `gorm:"not null;default:normal" json:"priority"`
	Title     string                     `gorm:"type:text;not null" json:"title"`
	Message   string                     `gorm:"type:text;not null" json:"message"`
	Link      *string                    `gorm:"type:text" json:"link,omitempty"`
	ReadAt    *time.Time                 `json:"read_at,omitempty"`
	CreatedAt time.Time                  `gorm:"autoCreateTime" json:"created_at"`
}
