package leads

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/voltline-backend/api/middleware"
	internalleads "github.com/angelmondragon/voltline-backend/internal/leads"
	"github.com/angelmondragon/voltline-backend/pkg/auth"
	"github.com/angelmondragon/voltline-backend/pkg/db/models"
	"github.com/angelmondragon/voltline-backend/pkg/enums"
	"github.com/angelmondragon/voltline-backend/pkg/pagination"
)

type stubService struct {
	created  internalleads.CreateLeadInput
	assigned internalleads.AssignLeadInput
	status   internalleads.UpdateLeadStatusInput
	note     internalleads.AppendNoteInput
	listed   internalleads.ListLeadsInput
}

func (s *stubService) CreateLead(_ context.Context, input internalleads.CreateLeadInput) (*models.Lead, error) {
	s.created = input
	return &models.Lead{ID: uuid.New(), Status: enums.LeadStatusNew}, nil
}

func (s *stubService) AssignLead(_ context.Context, input internalleads.AssignLeadInput) (*models.Lead, error) {
	s.assigned = input
	return &models.Lead{ID: input.LeadID, AssignedTo: &input.DealerID, Status: enums.LeadStatusAssigned}, nil
}

func (s *stubService) UpdateLeadStatus(_ context.Context, input internalleads.UpdateLeadStatusInput) (*models.Lead, error) {
	s.status = input
	return &models.Lead{ID: input.LeadID, Status: input.Status}, nil
}

func (s *stubService) AppendNote(_ context.Context, input internalleads.AppendNoteInput) (*models.Lead, error) {
	s.note = input
	return &models.Lead{ID: input.LeadID}, nil
}

func (s *stubService) ListLeads(_ context.Context, input internalleads.ListLeadsInput) (pagination.Page[models.Lead], error) {
	s.listed = input
	return pagination.Page[models.Lead]{}, nil
}

func (s *stubService) GetLead(context.Context, auth.Actor, uuid.UUID) (*models.Lead, error) {
	return &models.Lead{}, nil
}

func request(method, body string, actor *auth.Actor, params map[string]string) *http.Request {
	req := httptest.NewRequest(method, "/", strings.NewReader(body))
	rctx := chi.NewRouteContext()
	for k, v := range params {
		rctx.URLParams.Add(k, v)
	}
	ctx := context.WithValue(req.Context(), chi.RouteCtxKey, rctx)
	if actor != nil {
		ctx = middleware.WithActor(ctx, *actor)
	}
	return req.WithContext(ctx)
}

func TestCreateIsPublicAndSanitizes(t *testing.T) {
	svc := &stubService{}
	body := `{"name":"  Asha Rao ","email":"asha@example.com","subject":"Range","message":"How far on one charge?","source":"inquiry"}`
	resp := httptest.NewRecorder()

	Create(svc, nil).ServeHTTP(resp, request(http.MethodPost, body, nil, nil))

	require.Equal(t, http.StatusCreated, resp.Code)
	require.Equal(t, "Asha Rao", svc.created.Name)
	require.Equal(t, enums.LeadSourceInquiry, svc.created.Source)
	require.Empty(t, svc.created.Priority)
}

func TestCreateRejectsUnknownPriority(t *testing.T) {
	body := `{"name":"A","email":"a@example.com","subject":"s","message":"m","priority":"high"}`
	resp := httptest.NewRecorder()
	Create(&stubService{}, nil).ServeHTTP(resp, request(http.MethodPost, body, nil, nil))
	require.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestAssignRequiresActor(t *testing.T) {
	body := `{"leadId":"` + uuid.NewString() + `","dealerId":"` + uuid.NewString() + `"}`
	resp := httptest.NewRecorder()
	Assign(&stubService{}, nil).ServeHTTP(resp, request(http.MethodPost, body, nil, nil))
	require.Equal(t, http.StatusUnauthorized, resp.Code)
}

func TestAssignPassesIDs(t *testing.T) {
	svc := &stubService{}
	leadID, dealerID := uuid.New(), uuid.New()
	admin := auth.Actor{UserID: uuid.New(), Role: enums.ActorRoleAdmin}
	body := `{"leadId":"` + leadID.String() + `","dealerId":"` + dealerID.String() + `"}`
	resp := httptest.NewRecorder()

	Assign(svc, nil).ServeHTTP(resp, request(http.MethodPost, body, &admin, nil))

	require.Equal(t, http.StatusOK, resp.Code)
	require.Equal(t, leadID, svc.assigned.LeadID)
	require.Equal(t, dealerID, svc.assigned.DealerID)
}

func TestUpdateStatusAndNote(t *testing.T) {
	svc := &stubService{}
	leadID := uuid.New()
	dealerID := uuid.New()
	dealer := auth.Actor{UserID: uuid.New(), Role: enums.ActorRoleDealer, DealerID: &dealerID}
	params := map[string]string{"leadId": leadID.String()}

	resp := httptest.NewRecorder()
	UpdateStatus(svc, nil).ServeHTTP(resp, request(http.MethodPut, `{"status":"qualified"}`, &dealer, params))
	require.Equal(t, http.StatusOK, resp.Code)
	require.Equal(t, enums.LeadStatusQualified, svc.status.Status)

	resp = httptest.NewRecorder()
	UpdateStatus(svc, nil).ServeHTTP(resp, request(http.MethodPut, `{"status":"won"}`, &dealer, params))
	require.Equal(t, http.StatusBadRequest, resp.Code)

	resp = httptest.NewRecorder()
	AppendNote(svc, nil).ServeHTTP(resp, request(http.MethodPut, `{"note":"Called, wants a test ride"}`, &dealer, params))
	require.Equal(t, http.StatusOK, resp.Code)
	require.Equal(t, leadID, svc.note.LeadID)
}

func TestListFilters(t *testing.T) {
	svc := &stubService{}
	admin := auth.Actor{UserID: uuid.New(), Role: enums.ActorRoleAdmin}
	dealerID := uuid.New()
	req := request(http.MethodGet, "", &admin, nil)
	req.URL.RawQuery = "status=assigned&assigned_to=" + dealerID.String()
	resp := httptest.NewRecorder()

	List(svc, nil).ServeHTTP(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)
	require.Equal(t, enums.LeadStatusAssigned, *svc.listed.Status)
	require.Equal(t, dealerID, *svc.listed.AssignedTo)
}
