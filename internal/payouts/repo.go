package payouts

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/voltline-backend/pkg/db/models"
	"github.com/angelmondragon/voltline-backend/pkg/enums"
	"github.com/angelmondragon/voltline-backend/pkg/pagination"
)

// Repository defines persistence operations for payouts and the order claim.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	ClaimOrders(ctx context.Context, params claimParams) ([]claimedOrder, error)
	ClaimedOrderIDs(ctx context.Context, payoutID uuid.UUID) ([]uuid.UUID, error)
	UnpaidCommissions(ctx context.Context, dealerID uuid.UUID, from, until time.Time) ([]decimal.Decimal, error)
	Create(ctx context.Context, payout *models.DealerPayout) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.DealerPayout, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.DealerPayout, error)
	Save(ctx context.Context, payout *models.DealerPayout) error
	List(ctx context.Context, params listParams) ([]models.DealerPayout, error)
	ListStale(ctx context.Context, status enums.PayoutStatus, updatedBefore time.Time, limit int) ([]models.DealerPayout, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository binds a payouts repository to db.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

// claimParams select unpaid paid-for orders with created_at in [From, Until).
type claimParams struct {
	DealerID uuid.UUID
	PayoutID uuid.UUID
	From     time.Time
	Until    time.Time
	Now      time.Time
}

type claimedOrder struct {
	ID                     uuid.UUID       `gorm:"column:id"`
	DealerCommissionAmount decimal.Decimal `gorm:"column:dealer_commission_amount"`
}

type listParams struct {
	DealerID *uuid.UUID
	Status   *enums.PayoutStatus
	From     *time.Time
	Until    *time.Time
	Limit    int
	Cursor   *pagination.Cursor
}

const claimOrdersSQL = `
UPDATE orders
SET commission_paid = ?, commission_paid_at = ?, payout_id = ?, updated_at = ?
WHERE dealer_id = ?
  AND payment_status = ?
  AND status <> ?
  AND commission_paid = ?
  AND created_at >= ?
  AND created_at < ?
RETURNING id, dealer_commission_amount`

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// ClaimOrders flips commission_paid on every eligible order in one statement
// and returns the rows it won. Orders cancelled before settlement never earn. A concurrent claimant blocks on the row locks
// and then matches nothing.
func (r *repository) ClaimOrders(ctx context.Context, params claimParams) ([]claimedOrder, error) {
	var rows []claimedOrder
	err := r.db.WithContext(ctx).Raw(claimOrdersSQL,
		true, params.Now, params.PayoutID, params.Now,
		params.DealerID,
		enums.PaymentStatusPaid,
		enums.OrderStatusCancelled,
		false,
		params.From,
		params.Until,
	).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// ClaimedOrderIDs returns the orders attached to payoutID oldest first.
func (r *repository) ClaimedOrderIDs(ctx context.Context, payoutID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("payout_id = ?", payoutID).
		Order("created_at ASC, id ASC").
		Pluck("id", &ids).Error
	return ids, err
}

func (r *repository) UnpaidCommissions(ctx context.Context, dealerID uuid.UUID, from, until time.Time) ([]decimal.Decimal, error) {
	var amounts []decimal.Decimal
	err := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("dealer_id = ? AND payment_status = ? AND commission_paid = ?", dealerID, enums.PaymentStatusPaid, false).
		Where("status <> ?", enums.OrderStatusCancelled).
		Where("created_at >= ? AND created_at < ?", from, until).
		Pluck("dealer_commission_amount", &amounts).Error
	return amounts, err
}

func (r *repository) Create(ctx context.Context, payout *models.DealerPayout) error {
	if payout.ID == uuid.Nil {
		payout.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(payout).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.DealerPayout, error) {
	return r.first(r.db.WithContext(ctx).Where("id = ?", id))
}

func (r *repository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.DealerPayout, error) {
	return r.first(r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", id))
}

func (r *repository) first(query *gorm.DB) (*models.DealerPayout, error) {
	var payout models.DealerPayout
	if err := query.First(&payout).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &payout, nil
}

// Save persists the mutable lifecycle columns only.
func (r *repository) Save(ctx context.Context, payout *models.DealerPayout) error {
	return r.db.WithContext(ctx).
		Model(&models.DealerPayout{}).
		Where("id = ?", payout.ID).
		Updates(map[string]any{
			"status":             payout.Status,
			"razorpay_payout_id": payout.RazorpayPayoutID,
			"bank_reference":     payout.BankReference,
			"notes":              payout.Notes,
			"processed_at":       payout.ProcessedAt,
			"updated_at":         payout.UpdatedAt,
		}).Error
}

func (r *repository) List(ctx context.Context, params listParams) ([]models.DealerPayout, error) {
	query := r.db.WithContext(ctx).Model(&models.DealerPayout{})
	if params.DealerID != nil {
		query = query.Where("dealer_id = ?", *params.DealerID)
	}
	if params.Status != nil {
		query = query.Where("status = ?", *params.Status)
	}
	if params.From != nil {
		query = query.Where("payout_date >= ?", *params.From)
	}
	if params.Until != nil {
		query = query.Where("payout_date < ?", *params.Until)
	}
	if params.Cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", params.Cursor.CreatedAt, params.Cursor.ID)
	}

	var rows []models.DealerPayout
	if err := query.Order("created_at DESC, id DESC").Limit(pagination.LimitWithBuffer(params.Limit)).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// ListStale returns payouts left in status since before updatedBefore.
func (r *repository) ListStale(ctx context.Context, status enums.PayoutStatus, updatedBefore time.Time, limit int) ([]models.DealerPayout, error) {
	var rows []models.DealerPayout
	err := r.db.WithContext(ctx).
		Where("status = ? AND updated_at < ?", status, updatedBefore).
		Order("updated_at ASC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}
