package leads

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/voltline-backend/internal/dealers"
	"github.com/angelmondragon/voltline-backend/pkg/auth"
	"github.com/angelmondragon/voltline-backend/pkg/db/models"
	"github.com/angelmondragon/voltline-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/voltline-backend/pkg/errors"
	"github.com/angelmondragon/voltline-backend/pkg/logger"
	"github.com/angelmondragon/voltline-backend/pkg/outbox"
	"github.com/angelmondragon/voltline-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/voltline-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service captures inbound leads and routes them to dealers.
type Service interface {
	CreateLead(ctx context.Context, input CreateLeadInput) (*models.Lead, error)
	AssignLead(ctx context.Context, input AssignLeadInput) (*models.Lead, error)
	UpdateLeadStatus(ctx context.Context, input UpdateLeadStatusInput) (*models.Lead, error)
	AppendNote(ctx context.Context, input AppendNoteInput) (*models.Lead, error)
	ListLeads(ctx context.Context, input ListLeadsInput) (pagination.Page[models.Lead], error)
	GetLead(ctx context.Context, actor auth.Actor, id uuid.UUID) (*models.Lead, error)
}

type ServiceParams struct {
	Repo    Repository
	Dealers dealers.Repository
	Tx      txRunner
	Outbox  outbox.Emitter
	Logger  *logger.Logger
}

type service struct {
	repo    Repository
	dealers dealers.Repository
	tx      txRunner
	outbox  outbox.Emitter
	logg    *logger.Logger
	now     func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("leads repository required")
	}
	if params.Dealers == nil {
		return nil, fmt.Errorf("dealers repository required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	return &service{
		repo:    params.Repo,
		dealers: params.Dealers,
		tx:      params.Tx,
		outbox:  params.Outbox,
		logg:    params.Logger,
		now:     time.Now,
	}, nil
}

func (s *service) CreateLead(ctx context.Context, input CreateLeadInput) (*models.Lead, error) {
	lead := &models.Lead{
		Name:      strings.TrimSpace(input.Name),
		Email:     strings.ToLower(strings.TrimSpace(input.Email)),
		Phone:     trimmed(input.Phone),
		Subject:   strings.TrimSpace(input.Subject),
		Message:   strings.TrimSpace(input.Message),
		Priority:  input.Priority,
		Source:    input.Source,
		Status:    enums.LeadStatusNew,
		VehicleID: input.VehicleID,
	}
	if lead.Name == "" || lead.Email == "" || lead.Subject == "" || lead.Message == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name, email, subject and message are required")
	}
	if _, err := mail.ParseAddress(lead.Email); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid email")
	}
	if lead.Priority == "" {
		lead.Priority = enums.LeadPriorityNormal
	}
	if !lead.Priority.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid priority")
	}
	if lead.Source == "" {
		lead.Source = enums.LeadSourceContact
	}
	if !lead.Source.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid source")
	}

	if err := s.repo.Create(ctx, lead); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create lead")
	}
	s.info(ctx, "lead.created", map[string]any{
		"lead_id":  lead.ID.String(),
		"source":   lead.Source,
		"priority": lead.Priority,
	})
	return lead, nil
}

func (s *service) AssignLead(ctx context.Context, input AssignLeadInput) (*models.Lead, error) {
	if !input.Actor.IsAdmin() {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "admin role required")
	}
	if input.LeadID == uuid.Nil || input.DealerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "lead_id and dealer_id are required")
	}

	now := s.now().UTC()
	var lead *models.Lead
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		dealer, err := s.dealers.WithTx(tx).FindByID(ctx, input.DealerID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load dealer")
		}
		if dealer == nil {
			return pkgerrors.New(pkgerrors.CodeNotFound, "dealer not found")
		}
		if dealer.ApprovalStatus != enums.DealerApprovalApproved {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "dealer is not accepting leads").
				WithReason(ReasonDealerUnavailable).
				WithDetails(map[string]any{"approval_status": dealer.ApprovalStatus})
		}

		ok, err := repo.Assign(ctx, input.LeadID, dealer.ID, now)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "assign lead")
		}
		if !ok {
			current, err := repo.FindByID(ctx, input.LeadID)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load lead")
			}
			if current == nil {
				return pkgerrors.New(pkgerrors.CodeNotFound, "lead not found")
			}
			return pkgerrors.New(pkgerrors.CodeStateConflict, "lead can no longer be assigned").
				WithReason(ReasonNotAssignable).
				WithDetails(map[string]any{"status": current.Status})
		}
		lead, err = repo.FindByID(ctx, input.LeadID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload lead")
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventLeadAssigned,
			AggregateType: enums.AggregateLead,
			AggregateID:   lead.ID,
			Actor:         actorRef(input.Actor),
			OccurredAt:    now,
			Data: payloads.LeadAssignedEvent{
				LeadID:       lead.ID,
				DealerID:     dealer.ID,
				DealerUserID: dealer.OwnerUserID,
				DealerEmail:  dealer.Email,
				DealerName:   dealer.Name,
				CustomerName: lead.Name,
				Subject:      lead.Subject,
				Priority:     lead.Priority,
				Source:       lead.Source,
				AssignedAt:   now,
			},
		})
	})
	if err != nil {
		return nil, asTyped(err, "assign lead")
	}

	s.info(ctx, "lead.assigned", map[string]any{
		"lead_id":   lead.ID.String(),
		"dealer_id": input.DealerID.String(),
	})
	return lead, nil
}

// UpdateLeadStatus accepts any move between the post-assignment statuses.
func (s *service) UpdateLeadStatus(ctx context.Context, input UpdateLeadStatusInput) (*models.Lead, error) {
	if input.Status == enums.LeadStatusNew || !input.Status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "status must be one of assigned, contacted, qualified, converted, closed").
			WithDetails(map[string]any{"status": input.Status})
	}
	scope, err := dealerScope(input.Actor)
	if err != nil {
		return nil, err
	}

	ok, err := s.repo.UpdateStatus(ctx, statusParams{
		ID:       input.LeadID,
		DealerID: scope,
		Status:   input.Status,
		Now:      s.now().UTC(),
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update lead status")
	}
	if !ok {
		return nil, s.explainMiss(ctx, input.LeadID, scope)
	}

	lead, err := s.repo.FindByID(ctx, input.LeadID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload lead")
	}
	s.info(ctx, "lead.status.updated", map[string]any{
		"lead_id": input.LeadID.String(),
		"status":  input.Status,
	})
	return lead, nil
}

func (s *service) AppendNote(ctx context.Context, input AppendNoteInput) (*models.Lead, error) {
	note := strings.TrimSpace(input.Note)
	if note == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "note is required")
	}
	scope, err := dealerScope(input.Actor)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	ok, err := s.repo.AppendNote(ctx, noteParams{
		ID:       input.LeadID,
		DealerID: scope,
		Entry:    fmt.Sprintf("[%s] %s", now.Format(time.RFC3339), note),
		Now:      now,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append lead note")
	}
	if !ok {
		return nil, s.explainMiss(ctx, input.LeadID, scope)
	}
	lead, err := s.repo.FindByID(ctx, input.LeadID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload lead")
	}
	return lead, nil
}

func (s *service) ListLeads(ctx context.Context, input ListLeadsInput) (pagination.Page[models.Lead], error) {
	var empty pagination.Page[models.Lead]
	params := listParams{Limit: input.Limit, Status: input.Status}
	switch {
	case input.Actor.IsAdmin():
		params.AssignedTo = input.AssignedTo
	case input.Actor.IsDealer():
		params.AssignedTo = input.Actor.DealerID
	default:
		return empty, pkgerrors.New(pkgerrors.CodeForbidden, "dealer or admin role required")
	}
	if params.Status != nil && !params.Status.IsValid() {
		return empty, pkgerrors.New(pkgerrors.CodeValidation, "invalid status")
	}
	cursor, err := pagination.ParseCursor(input.Cursor)
	if err != nil {
		return empty, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	params.Cursor = cursor

	rows, err := s.repo.List(ctx, params)
	if err != nil {
		return empty, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list leads")
	}
	return pagination.BuildPage(rows, input.Limit, func(l models.Lead) pagination.Cursor {
		return pagination.Cursor{CreatedAt: l.CreatedAt, ID: l.ID}
	}), nil
}

func (s *service) GetLead(ctx context.Context, actor auth.Actor, id uuid.UUID) (*models.Lead, error) {
	lead, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load lead")
	}
	if lead == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "lead not found")
	}
	if actor.IsAdmin() {
		return lead, nil
	}
	if lead.AssignedTo == nil || !actor.ActsForDealer(*lead.AssignedTo) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "lead access denied")
	}
	return lead, nil
}

// explainMiss turns a zero-row conditional update into the matching error.
func (s *service) explainMiss(ctx context.Context, id uuid.UUID, scope *uuid.UUID) error {
	lead, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load lead")
	}
	switch {
	case lead == nil:
		return pkgerrors.New(pkgerrors.CodeNotFound, "lead not found")
	case scope != nil && (lead.AssignedTo == nil || *lead.AssignedTo != *scope):
		return pkgerrors.New(pkgerrors.CodeForbidden, "lead is not assigned to this dealer")
	case lead.AssignedTo == nil:
		return pkgerrors.New(pkgerrors.CodeStateConflict, "lead must be assigned before it can progress").
			WithReason(ReasonUnassigned)
	default:
		return pkgerrors.New(pkgerrors.CodeConflict, "lead changed concurrently")
	}
}

// dealerScope is nil for admins and the caller's dealer id for dealers.
func dealerScope(actor auth.Actor) (*uuid.UUID, error) {
	switch {
	case actor.IsAdmin():
		return nil, nil
	case actor.IsDealer():
		return actor.DealerID, nil
	default:
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "dealer or admin role required")
	}
}

func (s *service) info(ctx context.Context, msg string, fields map[string]any) {
	if s.logg == nil {
		return
	}
	s.logg.Info(s.logg.WithFields(ctx, fields), msg)
}

func actorRef(actor auth.Actor) *outbox.ActorRef {
	return &outbox.ActorRef{UserID: actor.UserID, Role: string(actor.Role), DealerID: actor.DealerID}
}

func trimmed(value *string) *string {
	if value == nil {
		return nil
	}
	v := strings.TrimSpace(*value)
	if v == "" {
		return nil
	}
	return &v
}

func asTyped(err error, message string) error {
	if pkgerrors.As(err) != nil {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, message)
}
