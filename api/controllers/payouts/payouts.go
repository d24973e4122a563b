package payouts

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/voltline-backend/api/middleware"
	"github.com/angelmondragon/voltline-backend/api/responses"
	"github.com/angelmondragon/voltline-backend/api/validators"
	internalpayouts "github.com/angelmondragon/voltline-backend/internal/payouts"
	"github.com/angelmondragon/voltline-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/voltline-backend/pkg/errors"
	"github.com/angelmondragon/voltline-backend/pkg/logger"
	"github.com/angelmondragon/voltline-backend/pkg/pagination"
)

type createPayoutRequest struct {
	DealerID string  `json:"dealer_id" validate:"required,uuid"`
	FromDate string  `json:"from_date" validate:"required,datetime=2006-01-02"`
	ToDate   string  `json:"to_date" validate:"required,datetime=2006-01-02"`
	Notes    *string `json:"notes,omitempty" validate:"omitempty,max=2000"`
}

type updatePayoutStatusRequest struct {
	PayoutID         string  `json:"payout_id" validate:"required,uuid"`
	Status           string  `json:"status" validate:"required"`
	RazorpayPayoutID *string `json:"razorpay_payout_id,omitempty" validate:"omitempty,max=255"`
	BankReference    *string `json:"bank_reference,omitempty" validate:"omitempty,max=255"`
	Notes            *string `json:"notes,omitempty" validate:"omitempty,max=2000"`
}

// Create settles every unpaid commission in the window into one pending payout.
// The no-unpaid and zero-amount outcomes keep their historical 404 and 400.
func Create(svc internalpayouts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payouts service unavailable"))
			return
		}
		actor, err := middleware.RequireActor(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload createPayoutRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		dealerID, err := uuid.Parse(payload.DealerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid dealer id"))
			return
		}

		payout, err := svc.CreatePayout(r.Context(), internalpayouts.CreatePayoutInput{
			Actor:    actor,
			DealerID: dealerID,
			FromDate: payload.FromDate,
			ToDate:   payload.ToDate,
			Notes:    trimmedOrNil(payload.Notes),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, payout)
	}
}

// Preview reports what Create would settle right now.
func Preview(svc internalpayouts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payouts service unavailable"))
			return
		}
		actor, err := middleware.RequireActor(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		dealerID, err := validators.ParseQueryUUID(r, "dealer_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if dealerID == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "dealer_id is required"))
			return
		}
		from, to, err := parseDateRange(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		summary, err := svc.UnpaidCommission(r.Context(), actor, *dealerID, from, to)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, summary)
	}
}

// UpdateStatus advances a payout; the payout id travels in the body.
func UpdateStatus(svc internalpayouts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payouts service unavailable"))
			return
		}
		actor, err := middleware.RequireActor(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload updatePayoutStatusRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		payoutID, err := uuid.Parse(payload.PayoutID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payout id"))
			return
		}
		status, err := enums.ParsePayoutStatus(payload.Status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status"))
			return
		}

		payout, err := svc.UpdatePayoutStatus(r.Context(), internalpayouts.UpdatePayoutStatusInput{
			Actor:            actor,
			PayoutID:         payoutID,
			Status:           status,
			RazorpayPayoutID: trimmedOrNil(payload.RazorpayPayoutID),
			BankReference:    trimmedOrNil(payload.BankReference),
			Notes:            trimmedOrNil(payload.Notes),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, payout)
	}
}

// List pages payouts newest first.
func List(svc internalpayouts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payouts service unavailable"))
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
		dealerID, err := validators.ParseQueryUUID(r, "dealer_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input := internalpayouts.ListPayoutsInput{
			Actor:    actor,
			DealerID: dealerID,
			Limit:    limit,
			Cursor:   strings.TrimSpace(r.URL.Query().Get("cursor")),
		}
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			status, err := enums.ParsePayoutStatus(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter"))
				return
			}
			input.Status = &status
		}
		if input.FromDate, err = validators.ParseQueryDate(r, "from_date"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if input.ToDate, err = validators.ParseQueryDate(r, "to_date"); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		page, err := svc.ListPayouts(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

func Detail(svc internalpayouts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payouts service unavailable"))
			return
		}
		actor, err := middleware.RequireActor(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		payoutID, err := validators.PathUUID(r, "payoutId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		payout, err := svc.GetPayout(r.Context(), actor, payoutID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, payout)
	}
}

func parseDateRange(r *http.Request) (string, string, error) {
	from, err := validators.ParseQueryDate(r, "from_date")
	if err != nil {
		return "", "", err
	}
	to, err := validators.ParseQueryDate(r, "to_date")
	if err != nil {
		return "", "", err
	}
	if from == "" || to == "" {
		return "", "", pkgerrors.New(pkgerrors.CodeValidation, "from_date and to_date are required")
	}
	return from, to, nil
}

func trimmedOrNil(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
