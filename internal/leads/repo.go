package leads

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/voltline-backend/pkg/db/models"
	"github.com/angelmondragon/voltline-backend/pkg/enums"
	"github.com/angelmondragon/voltline-backend/pkg/pagination"
)

// Repository defines persistence operations for leads.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, lead *models.Lead) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Lead, error)
	Assign(ctx context.Context, id, dealerID uuid.UUID, now time.Time) (bool, error)
	UpdateStatus(ctx context.Context, params statusParams) (bool, error)
	AppendNote(ctx context.Context, params noteParams) (bool, error)
	List(ctx context.Context, params listParams) ([]models.Lead, error)
}

type repository struct {
	db *gorm.DB
}

// statusParams moves a lead that already has an assignee. A non-nil
// DealerID further restricts the update to that dealer's leads.
type statusParams struct {
	ID       uuid.UUID
	DealerID *uuid.UUID
	Status   enums.LeadStatus
	Now      time.Time
}

type noteParams struct {
	ID       uuid.UUID
	DealerID *uuid.UUID
	Entry    string
	Now      time.Time
}

type listParams struct {
	Status     *enums.LeadStatus
	AssignedTo *uuid.UUID
	Limit      int
	Cursor     *pagination.Cursor
}

// appendNoteSQL concatenates in the database so concurrent appends each see
// the other's text.
const appendNoteSQL = `
UPDATE leads
SET notes = CASE
		WHEN notes IS NULL OR notes = '' THEN CAST(? AS TEXT)
		ELSE notes || CAST(? AS TEXT) || CAST(? AS TEXT)
	END,
	updated_at = ?
WHERE id = ?`

// NewRepository binds a leads repository to db.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, lead *models.Lead) error {
	if lead.ID == uuid.Nil {
		lead.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(lead).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Lead, error) {
	var lead models.Lead
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&lead).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &lead, nil
}

// Assign sets the assignee and status in one statement so no reader can see
// one without the other. Only new and assigned leads can change hands.
func (r *repository) Assign(ctx context.Context, id, dealerID uuid.UUID, now time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Lead{}).
		Where("id = ? AND status IN ?", id, []enums.LeadStatus{enums.LeadStatusNew, enums.LeadStatusAssigned}).
		Updates(map[string]any{
			"assigned_to": dealerID,
			"status":      enums.LeadStatusAssigned,
			"updated_at":  now,
		})
	return res.RowsAffected > 0, res.Error
}

func (r *repository) UpdateStatus(ctx context.Context, params statusParams) (bool, error) {
	query := r.db.WithContext(ctx).
		Model(&models.Lead{}).
		Where("id = ? AND assigned_to IS NOT NULL", params.ID)
	if params.DealerID != nil {
		query = query.Where("assigned_to = ?", *params.DealerID)
	}
	res := query.Updates(map[string]any{
		"status":     params.Status,
		"updated_at": params.Now,
	})
	return res.RowsAffected > 0, res.Error
}

func (r *repository) AppendNote(ctx context.Context, params noteParams) (bool, error) {
	sql := appendNoteSQL
	args := []any{params.Entry, "\n\n", params.Entry, params.Now, params.ID}
	if params.DealerID != nil {
		sql += " AND assigned_to = ?"
		args = append(args, *params.DealerID)
	}
	res := r.db.WithContext(ctx).Exec(sql, args...)
	return res.RowsAffected > 0, res.Error
}

func (r *repository) List(ctx context.Context, params listParams) ([]models.Lead, error) {
	query := r.db.WithContext(ctx).Model(&models.Lead{})
	if params.Status != nil {
		query = query.Where("status = ?", *params.Status)
	}
	if params.AssignedTo != nil {
		query = query.Where("assigned_to = ?", *params.AssignedTo)
	}
	if params.Cursor != nil {
		query = query.Where("(created_at, id) < (?, ?)", params.Cursor.CreatedAt, params.Cursor.ID)
	}

	var rows []models.Lead
	if err := query.Order("created_at DESC, id DESC").Limit(pagination.LimitWithBuffer(params.Limit)).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
