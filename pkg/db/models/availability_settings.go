package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// AvailabilitySettings holds a dealer's test-ride configuration as a JSON blob.
type AvailabilitySettings struct {
	DealerID  uuid.UUID       `gorm:"column:dealer_id;type:uuid;primaryKey"`
	Settings  json.RawMessage `gorm:"column:settings;type:jsonb;not null"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (AvailabilitySettings) TableName() string {
	return "availability_settings"
}
