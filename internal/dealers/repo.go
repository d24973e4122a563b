package dealers

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/voltline-backend/pkg/db/models"
	"github.com/angelmondragon/voltline-backend/pkg/enums"
	"github.com/angelmondragon/voltline-backend/pkg/pagination"
)

// Repository exposes persistence helpers for dealers.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, dealer *models.Dealer) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Dealer, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Dealer, error)
	FindByOwnerUserID(ctx context.Context, userID uuid.UUID) (*models.Dealer, error)
	List(ctx context.Context, params listParams) ([]models.Dealer, error)
	UpdateCommissionRate(ctx context.Context, id uuid.UUID, rate *decimal.Decimal) (bool, error)
	UpdateApprovalStatus(ctx context.Context, id uuid.UUID, status enums.DealerApprovalStatus) (bool, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a dealers repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

type listParams struct {
	ApprovalStatus *enums.DealerApprovalStatus
	Limit          int
	Cursor         *pagination.Cursor
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, dealer *models.Dealer) error {
	if dealer.ID == uuid.Nil {
		dealer.ID = uuid.New()
	}
	if dealer.ApprovalStatus == "" {
		dealer.ApprovalStatus = enums.DealerApprovalPending
	}
	return r.db.WithContext(ctx).Create(dealer).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Dealer, error) {
	return r.first(r.db.WithContext(ctx).Where("id = ?", id))
}

// FindByIDForUpdate locks the dealer row for the rest of the transaction.
func (r *repository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Dealer, error) {
	return r.first(r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", id))
}

func (r *repository) FindByOwnerUserID(ctx context.Context, userID uuid.UUID) (*models.Dealer, error) {
	return r.first(r.db.WithContext(ctx).Where("owner_user_id = ?", userID))
}

func (r *repository) first(query *gorm.DB) (*models.Dealer, error) {
	var dealer models.Dealer
	if err := query.First(&dealer).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &dealer, nil
}

func (r *repository) List(ctx context.Context, params listParams) ([]models.Dealer, error) {
	query := r.db.WithContext(ctx).Model(&models.Dealer{})
	if params.ApprovalStatus != nil {
		query = query.Where("approval_status = ?", *params.ApprovalStatus)
	}
	if params.Cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", params.Cursor.CreatedAt, params.Cursor.ID)
	}
	var rows []models.Dealer
	if err := query.Order("created_at DESC, id DESC").Limit(pagination.LimitWithBuffer(params.Limit)).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) UpdateCommissionRate(ctx context.Context, id uuid.UUID, rate *decimal.Decimal) (bool, error) {
	result := r.db.WithContext(ctx).Model(&models.Dealer{}).Where("id = ?", id).Update("commission_rate", rate)
	return result.RowsAffected > 0, result.Error
}

func (r *repository) UpdateApprovalStatus(ctx context.Context, id uuid.UUID, status enums.DealerApprovalStatus) (bool, error) {
	result := r.db.WithContext(ctx).Model(&models.Dealer{}).Where("id = ?", id).Update("approval_status", status)
	return result.RowsAffected > 0, result.Error
}
