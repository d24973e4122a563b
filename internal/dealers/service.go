package dealers

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/voltline-backend/pkg/auth"
	"github.com/angelmondragon/voltline-backend/pkg/db/models"
	"github.com/angelmondragon/voltline-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/voltline-backend/pkg/errors"
	"github.com/angelmondragon/voltline-backend/pkg/logger"
	"github.com/angelmondragon/voltline-backend/pkg/pagination"
)

var maxCommissionRate = decimal.NewFromInt(100)

// Service exposes dealer lookups and admin-only dealer settings.
type Service interface {
	Get(ctx context.Context, actor auth.Actor, id uuid.UUID) (*models.Dealer, error)
	List(ctx context.Context, actor auth.Actor, params ListParams) (pagination.Page[models.Dealer], error)
	SetCommissionRate(ctx context.Context, actor auth.Actor, id uuid.UUID, rate *decimal.Decimal) (*models.Dealer, error)
	SetApprovalStatus(ctx context.Context, actor auth.Actor, id uuid.UUID, status enums.DealerApprovalStatus) (*models.Dealer, error)
}

// ListParams filters the admin dealer listing.
type ListParams struct {
	ApprovalStatus *enums.DealerApprovalStatus
	Limit          int
	Cursor         string
}

type service struct {
	repo Repository
	logg *logger.Logger
}

func NewService(repo Repository, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "dealers repository required")
	}
	return &service{repo: repo, logg: logg}, nil
}

func (s *service) Get(ctx context.Context, actor auth.Actor, id uuid.UUID) (*models.Dealer, error) {
	if !actor.ActsForDealer(id) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "dealer access denied")
	}
	return s.load(ctx, id)
}

func (s *service) List(ctx context.Context, actor auth.Actor, params ListParams) (pagination.Page[models.Dealer], error) {
	if !actor.IsAdmin() {
		return pagination.Page[models.Dealer]{}, pkgerrors.New(pkgerrors.CodeForbidden, "admin role required")
	}
	if params.ApprovalStatus != nil && !params.ApprovalStatus.IsValid() {
		return pagination.Page[models.Dealer]{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid approval status")
	}
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return pagination.Page[models.Dealer]{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, err := s.repo.List(ctx, listParams{ApprovalStatus: params.ApprovalStatus, Limit: params.Limit, Cursor: cursor})
	if err != nil {
		return pagination.Page[models.Dealer]{}, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list dealers")
	}
	return pagination.BuildPage(rows, params.Limit, func(d models.Dealer) pagination.Cursor {
		return pagination.Cursor{CreatedAt: d.CreatedAt, ID: d.ID}
	}), nil
}

// SetCommissionRate overrides the dealer's percentage. A nil rate reverts the
// dealer to the configured default.
func (s *service) SetCommissionRate(ctx context.Context, actor auth.Actor, id uuid.UUID, rate *decimal.Decimal) (*models.Dealer, error) {
	if !actor.IsAdmin() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "admin role required")
	}
	if rate != nil {
		if rate.IsNegative() || rate.GreaterThan(maxCommissionRate) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "commission rate must be between 0 and 100")
		}
		rounded := rate.Round(2)
		rate = &rounded
	}
	found, err := s.repo.UpdateCommissionRate(ctx, id, rate)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update commission rate")
	}
	if !found {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "dealer not found")
	}
	if s.logg != nil {
		fields := map[string]any{"dealer_id": id.String(), "actor_user_id": actor.UserID.String()}
		if rate != nil {
			fields["commission_rate"] = rate.StringFixed(2)
		}
		s.logg.Info(s.logg.WithFields(ctx, fields), "dealer.commission_rate.updated")
	}
	return s.load(ctx, id)
}

func (s *service) SetApprovalStatus(ctx context.Context, actor auth.Actor, id uuid.UUID, status enums.DealerApprovalStatus) (*models.Dealer, error) {
	if !actor.IsAdmin() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "admin role required")
	}
	if !status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid approval status")
	}
	found, err := s.repo.UpdateApprovalStatus(ctx, id, status)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update approval status")
	}
	if !found {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "dealer not found")
	}
	if s.logg != nil {
		s.logg.Info(s.logg.WithFields(ctx, map[string]any{
			"dealer_id": id.String(),
			"status":    status,
		}), "dealer.approval_status.updated")
	}
	return s.load(ctx, id)
}

func (s *service) load(ctx context.Context, id uuid.UUID) (*models.Dealer, error) {
	dealer, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load dealer")
	}
	if dealer == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "dealer not found")
	}
	return dealer, nil
}
