package payouts

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/voltline-backend/api/middleware"
	internalpayouts "github.com/angelmondragon/voltline-backend/internal/payouts"
	"github.com/angelmondragon/voltline-backend/pkg/auth"
	"github.com/angelmondragon/voltline-backend/pkg/db/models"
	"github.com/angelmondragon/voltline-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/voltline-backend/pkg/errors"
	"github.com/angelmondragon/voltline-backend/pkg/pagination"
)

type stubService struct {
	createInput internalpayouts.CreatePayoutInput
	createErr   error
	updateInput internalpayouts.UpdatePayoutStatusInput
	listInput   internalpayouts.ListPayoutsInput
}

func (s *stubService) CreatePayout(_ context.Context, input internalpayouts.CreatePayoutInput) (*models.DealerPayout, error) {
	s.createInput = input
	if s.createErr != nil {
		return nil, s.createErr
	}
	return &models.DealerPayout{ID: uuid.New(), DealerID: input.DealerID, Amount: decimal.RequireFromString("800.00"), Status: enums.PayoutStatusPending}, nil
}

func (s *stubService) UnpaidCommission(_ context.Context, _ auth.Actor, dealerID uuid.UUID, from, to string) (*internalpayouts.UnpaidSummary, error) {
	return &internalpayouts.UnpaidSummary{DealerID: dealerID, FromDate: from, ToDate: to, OrderCount: 2, Total: decimal.RequireFromString("800.00")}, nil
}

func (s *stubService) UpdatePayoutStatus(_ context.Context, input internalpayouts.UpdatePayoutStatusInput) (*models.DealerPayout, error) {
	s.updateInput = input
	return &models.DealerPayout{ID: input.PayoutID, Status: input.Status}, nil
}

func (s *stubService) ListPayouts(_ context.Context, input internalpayouts.ListPayoutsInput) (pagination.Page[models.DealerPayout], error) {
	s.listInput = input
	return pagination.Page[models.DealerPayout]{Items: []models.DealerPayout{}}, nil
}

func (s *stubService) GetPayout(context.Context, auth.Actor, uuid.UUID) (*models.DealerPayout, error) {
	return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payout not found")
}

var admin = auth.Actor{UserID: uuid.New(), Role: enums.ActorRoleAdmin}

func withActor(req *http.Request, actor auth.Actor) *http.Request {
	return req.WithContext(middleware.WithActor(req.Context(), actor))
}

func errorCode(t *testing.T, body []byte) (string, string) {
	t.Helper()
	var env struct {
		Error struct {
			Code   string `json:"code"`
			Reason string `json:"reason"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(body, &env))
	return env.Error.Code, env.Error.Reason
}

func TestCreateReturnsCreated(t *testing.T) {
	svc := &stubService{}
	dealerID := uuid.New()
	body := `{"dealer_id":"` + dealerID.String() + `","from_date":"2026-01-01","to_date":"2026-01-31","notes":"  January  "}`
	req := withActor(httptest.NewRequest(http.MethodPost, "/api/v1/payouts", strings.NewReader(body)), admin)
	resp := httptest.NewRecorder()

	Create(svc, nil).ServeHTTP(resp, req)

	require.Equal(t, http.StatusCreated, resp.Code)
	require.Equal(t, dealerID, svc.createInput.DealerID)
	require.Equal(t, "January", *svc.createInput.Notes)

	var env struct {
		Data models.DealerPayout `json:"data"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &env))
	require.Equal(t, "800", env.Data.Amount.String())
}

func TestCreateMapsNoUnpaidToNotFound(t *testing.T) {
	svc := &stubService{createErr: pkgerrors.New(pkgerrors.CodeStateConflict, "no unpaid commissions found for the selected period").
		WithReason(internalpayouts.ReasonNoUnpaidCommissions).
		WithHTTPStatus(http.StatusNotFound)}
	body := `{"dealer_id":"` + uuid.NewString() + `","from_date":"2026-01-01","to_date":"2026-01-31"}`
	req := withActor(httptest.NewRequest(http.MethodPost, "/api/v1/payouts", strings.NewReader(body)), admin)
	resp := httptest.NewRecorder()

	Create(svc, nil).ServeHTTP(resp, req)

	require.Equal(t, http.StatusNotFound, resp.Code)
	code, reason := errorCode(t, resp.Body.Bytes())
	require.Equal(t, string(pkgerrors.CodeStateConflict), code)
	require.Equal(t, internalpayouts.ReasonNoUnpaidCommissions, reason)
}

func TestCreateRejectsMalformedDates(t *testing.T) {
	body := `{"dealer_id":"` + uuid.NewString() + `","from_date":"01/01/2026","to_date":"2026-01-31"}`
	req := withActor(httptest.NewRequest(http.MethodPost, "/api/v1/payouts", strings.NewReader(body)), admin)
	resp := httptest.NewRecorder()

	Create(&stubService{}, nil).ServeHTTP(resp, req)
	require.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestUpdateStatusRejectsUnknownStatus(t *testing.T) {
	body := `{"payout_id":"` + uuid.NewString() + `","status":"paid"}`
	req := withActor(httptest.NewRequest(http.MethodPut, "/api/v1/payouts", strings.NewReader(body)), admin)
	resp := httptest.NewRecorder()

	UpdateStatus(&stubService{}, nil).ServeHTTP(resp, req)
	require.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestUpdateStatusPassesReferences(t *testing.T) {
	svc := &stubService{}
	payoutID := uuid.New()
	body := `{"payout_id":"` + payoutID.String() + `","status":"completed","bank_reference":"UTR123","razorpay_payout_id":" "}`
	req := withActor(httptest.NewRequest(http.MethodPut, "/api/v1/payouts", strings.NewReader(body)), admin)
	resp := httptest.NewRecorder()

	UpdateStatus(svc, nil).ServeHTTP(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)
	require.Equal(t, enums.PayoutStatusCompleted, svc.updateInput.Status)
	require.Equal(t, "UTR123", *svc.updateInput.BankReference)
	require.Nil(t, svc.updateInput.RazorpayPayoutID)
}

func TestListParsesFilters(t *testing.T) {
	svc := &stubService{}
	dealerID := uuid.New()
	req := withActor(httptest.NewRequest(http.MethodGet, "/api/v1/payouts?status=processing&dealer_id="+dealerID.String()+"&from_date=2026-01-01&limit=10", nil), admin)
	resp := httptest.NewRecorder()

	List(svc, nil).ServeHTTP(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)
	require.Equal(t, enums.PayoutStatusProcessing, *svc.listInput.Status)
	require.Equal(t, dealerID, *svc.listInput.DealerID)
	require.Equal(t, "2026-01-01", svc.listInput.FromDate)
	require.Equal(t, 10, svc.listInput.Limit)
}

func TestListRequiresActor(t *testing.T) {
	resp := httptest.NewRecorder()
	List(&stubService{}, nil).ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/payouts", nil))
	require.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestPreviewRequiresDates(t *testing.T) {
	req := withActor(httptest.NewRequest(http.MethodGet, "/api/v1/payouts/preview?dealer_id="+uuid.NewString(), nil), admin)
	resp := httptest.NewRecorder()

	Preview(&stubService{}, nil).ServeHTTP(resp, req)
	require.Equal(t, http.StatusBadRequest, resp.Code)
}
