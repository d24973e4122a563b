package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	pkgerrors "github.com/angelmondragon/voltline-backend/pkg/errors"
)

// ReasonInsufficientStock narrows the STATE_CONFLICT raised when a vehicle
// cannot cover an order's quantity.
const ReasonInsufficientStock = "INSUFFICIENT_STOCK"

// Inventory moves vehicle stock inside the caller's transaction. Both
// directions are single conditional updates, never read-modify-write.
type Inventory interface {
	Reserve(ctx context.Context, tx *gorm.DB, vehicleID uuid.UUID, qty int) error
	Release(ctx context.Context, tx *gorm.DB, vehicleID uuid.UUID, qty int) error
}

type vehicleInventory struct{}

// NewInventory returns the vehicles-table stock counter.
func NewInventory() Inventory {
	return vehicleInventory{}
}

func (vehicleInventory) Reserve(ctx context.Context, tx *gorm.DB, vehicleID uuid.UUID, qty int) error {
	if qty <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
	}
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "transaction required for stock reservation")
	}
	res := tx.WithContext(ctx).Exec(`
		UPDATE vehicles
		SET available_qty = available_qty - ?,
			updated_at = ?
		WHERE id = ? AND available_qty >= ?
	`, qty, time.Now().UTC(), vehicleID, qty)
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "reserve stock")
	}
	if res.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "insufficient stock").WithReason(ReasonInsufficientStock)
	}
	return nil
}

func (vehicleInventory) Release(ctx context.Context, tx *gorm.DB, vehicleID uuid.UUID, qty int) error {
	if qty <= 0 {
		return nil
	}
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeDependency, "transaction required for stock release")
	}
	res := tx.WithContext(ctx).Exec(`
		UPDATE vehicles
		SET available_qty = available_qty + ?,
			updated_at = ?
		WHERE id = ?
	`, qty, time.Now().UTC(), vehicleID)
	if res.Error != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, res.Error, "release stock")
	}
	return nil
}
