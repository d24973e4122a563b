package leads

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/voltline-backend/api/middleware"
	"github.com/angelmondragon/voltline-backend/api/responses"
	"github.com/angelmondragon/voltline-backend/api/validators"
	internalleads "github.com/angelmondragon/voltline-backend/internal/leads"
	"github.com/angelmondragon/voltline-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/voltline-backend/pkg/errors"
	"github.com/angelmondragon/voltline-backend/pkg/logger"
	"github.com/angelmondragon/voltline-backend/pkg/pagination"
)

const (
	maxNameLen    = 120
	maxSubjectLen = 200
	maxMessageLen = 5000
)

type createLeadRequest struct {
	Name      string  `json:"name" validate:"required"`
	Email     string  `json:"email" validate:"required,email"`
	Phone     *string `json:"phone,omitempty" validate:"omitempty,max=32"`
	Subject   string  `json:"subject" validate:"required"`
	Message   string  `json:"message" validate:"required"`
	Priority  string  `json:"priority,omitempty" validate:"omitempty,oneof=normal urgent"`
	Source    string  `json:"source,omitempty" validate:"omitempty,oneof=contact inquiry warranty test_ride"`
	VehicleID *string `json:"vehicleId,omitempty" validate:"omitempty,uuid"`
}

type assignLeadRequest struct {
	LeadID   string `json:"leadId" validate:"required,uuid"`
	DealerID string `json:"dealerId" validate:"required,uuid"`
}

type updateStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

type appendNoteRequest struct {
	Note string `json:"note" validate:"required,max=4000"`
}

// Create accepts the public contact form. It is unauthenticated and sits
// behind the lead rate limit.
func Create(svc internalleads.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "leads service unavailable"))
			return
		}

		var payload createLeadRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input := internalleads.CreateLeadInput{
			Name:     validators.SanitizeString(payload.Name, maxNameLen),
			Email:    payload.Email,
			Phone:    payload.Phone,
			Subject:  validators.SanitizeString(payload.Subject, maxSubjectLen),
			Message:  validators.SanitizeString(payload.Message, maxMessageLen),
			Priority: enums.LeadPriority(payload.Priority),
			Source:   enums.LeadSource(payload.Source),
		}
		if payload.VehicleID != nil {
			vehicleID := uuid.MustParse(*payload.VehicleID)
			input.VehicleID = &vehicleID
		}

		lead, err := svc.CreateLead(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, lead)
	}
}

func Assign(svc internalleads.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "leads service unavailable"))
			return
		}
		actor, err := middleware.RequireActor(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload assignLeadRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		lead, err := svc.AssignLead(r.Context(), internalleads.AssignLeadInput{
			Actor:    actor,
			LeadID:   uuid.MustParse(payload.LeadID),
			DealerID: uuid.MustParse(payload.DealerID),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, lead)
	}
}

func UpdateStatus(svc internalleads.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "leads service unavailable"))
			return
		}
		actor, err := middleware.RequireActor(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		leadID, err := validators.PathUUID(r, "leadId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload updateStatusRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		status, err := enums.ParseLeadStatus(payload.Status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status"))
			return
		}

		lead, err := svc.UpdateLeadStatus(r.Context(), internalleads.UpdateLeadStatusInput{
			Actor:  actor,
			LeadID: leadID,
			Status: status,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, lead)
	}
}

func AppendNote(svc internalleads.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "leads service unavailable"))
			return
		}
		actor, err := middleware.RequireActor(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		leadID, err := validators.PathUUID(r, "leadId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload appendNoteRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		lead, err := svc.AppendNote(r.Context(), internalleads.AppendNoteInput{
			Actor:  actor,
			LeadID: leadID,
			Note:   payload.Note,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, lead)
	}
}

func List(svc internalleads.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "leads service unavailable"))
			return
		}
		actor, err := middleware.RequireActor(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		assignedTo, err := validators.ParseQueryUUID(r, "assigned_to")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input := internalleads.ListLeadsInput{
			Actor:      actor,
			AssignedTo: assignedTo,
			Limit:      limit,
			Cursor:     strings.TrimSpace(r.URL.Query().Get("cursor")),
		}
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			status, err := enums.ParseLeadStatus(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter"))
				return
			}
			input.Status = &status
		}

		page, err := svc.ListLeads(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

func Detail(svc internalleads.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "leads service unavailable"))
			return
		}
		actor, err := middleware.RequireActor(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		leadID, err := validators.PathUUID(r, "leadId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		lead, err := svc.GetLead(r.Context(), actor, leadID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, lead)
	}
}
