package models

import (
	"time"

	"github.com/google/uuid"
)

type TestRideBooking struct {
	ID            uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	DealerID      uuid.UUID  `gorm:"column:dealer_id;type:uuid;not null" json:"dealer_id"`
	VehicleID     *uuid.UUID `gorm:"column:vehicle_id;type:uuid" json:"vehicle_id,omitempty"`
	BookingDate   string     `gorm:"column:booking_date;not null" json:"booking_date"`
	SlotTime      *string    `gorm:"column:slot_time" json:"slot_time,omitempty"`
	CustomerName  string     `gorm:"column:customer_name;not null" json:"customer_name"`
	CustomerEmail string     `gorm:"column:customer_email;not null" json:"customer_email"`
	CustomerPhone *string    `gorm:"column:customer_phone" json:"customer_phone,omitempty"`
	UserID        *uuid.UUID `gorm:"column:user_id;type:uuid" json:"user_id,omitempty"`
	CreatedAt     time.Time  `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}
