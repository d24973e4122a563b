package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/voltline-backend/pkg/enums"
)

// Dealer is a retail partner that fulfills orders and earns commission.
type Dealer struct {
	ID             uuid.UUID                  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	OwnerUserID    uuid.UUID                  `gorm:"column:owner_user_id;type:uuid;not null" json:"owner_user_id"`
	Name           string                     `gorm:"column:name;not null" json:"name"`
	Email          string                     `gorm:"column:email;not null" json:"email"`
	Phone          *string                    `gorm:"column:phone" json:"phone,omitempty"`
	City           *string                    `gorm:"column:city" json:"city,omitempty"`
	CommissionRate *decimal.Decimal           `gorm:"column:commission_rate;type:numeric(5,2)" json:"commission_rate,omitempty"`
	ApprovalStatus enums.DealerApprovalStatus `gorm:"column:approval_status;not null;default:pending" json:"approval_status"`
	CreatedAt      time.Time                  `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time                  `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

// EffectiveCommissionRate returns the dealer's rate or fallback when unset.
func (d Dealer) EffectiveCommissionRate(fallback decimal.Decimal) decimal.Decimal {
	if d.CommissionRate == nil {
		return fallback
	}
	return *d.CommissionRate
}
