package availability

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
	internalavailability "github.com/angelmondragon/voltline-backend/internal/availability"
	"github.com/angelmondragon/voltline-backend/pkg/auth"
	"github.com/angelmondragon/voltline-backend/pkg/db/models"
	"github.com/angelmondragon/voltline-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/voltline-backend/pkg/errors"
)

type stubService struct {
	put       internalavailability.Settings
	removed   string
	checked   [2]string
	booked    internalavailability.BookTestRideInput
	bookErr   error
	dealerArg uuid.UUID
}

func (s *stubService) GetSettings(_ context.Context, _ auth.Actor, dealerID uuid.UUID) (internalavailability.Settings, error) {
	s.dealerArg = dealerID
	return internalavailability.DefaultSettings(30), nil
}

func (s *stubService) PutSettings(_ context.Context, _ auth.Actor, _ uuid.UUID, settings internalavailability.Settings) (internalavailability.Settings, error) {
	s.put = settings
	return settings, nil
}

func (s *stubService) AddHoliday(_ context.Context, _ auth.Actor, _ uuid.UUID, date string) (internalavailability.Settings, error) {
	return internalavailability.DefaultSettings(30).AddHoliday(date), nil
}

func (s *stubService) RemoveHoliday(_ context.Context, _ auth.Actor, _ uuid.UUID, date string) (internalavailability.Settings, error) {
	s.removed = date
	return internalavailability.DefaultSettings(30), nil
}

func (s *stubService) CheckAvailability(_ context.Context, _ uuid.UUID, date, clock string) (internalavailability.Availability, error) {
	s.checked = [2]string{date, clock}
	return internalavailability.Availability{Date: date, Time: clock, Available: true, Capacity: 8, Remaining: 3}, nil
}

func (s *stubService) BookTestRide(_ context.Context, input internalavailability.BookTestRideInput) (*models.TestRideBooking, error) {
	s.booked = input
	if s.bookErr != nil {
		return nil, s.bookErr
	}
	return &models.TestRideBooking{ID: uuid.New(), DealerID: input.DealerID}, nil
}

func request(method, target, body string, actor *auth.Actor, params map[string]string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
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

func TestGetSettingsReturnsDefaults(t *testing.T) {
	svc := &stubService{}
	dealerID := uuid.New()
	actor := auth.Actor{UserID: uuid.New(), Role: enums.ActorRoleDealer, DealerID: &dealerID}
	resp := httptest.NewRecorder()

	GetSettings(svc, nil).ServeHTTP(resp, request(http.MethodGet, "/", "", &actor, map[string]string{"dealerId": dealerID.String()}))

	require.Equal(t, http.StatusOK, resp.Code)
	require.Equal(t, dealerID, svc.dealerArg)
	require.Contains(t, resp.Body.String(), `"sunday":{"isOpen":false`)
}

func TestPutSettingsDecodesWireShape(t *testing.T) {
	svc := &stubService{}
	admin := auth.Actor{UserID: uuid.New(), Role: enums.ActorRoleAdmin}
	body := `{"workingHours":{"monday":{"isOpen":true,"openTime":"10:00","closeTime":"16:00","slots":4}},"holidays":["2026-12-25"],"slotDuration":45}`
	resp := httptest.NewRecorder()

	PutSettings(svc, nil).ServeHTTP(resp, request(http.MethodPut, "/", body, &admin, map[string]string{"dealerId": uuid.NewString()}))

	require.Equal(t, http.StatusOK, resp.Code)
	require.Equal(t, 45, svc.put.SlotDuration)
	require.Equal(t, 4, svc.put.WorkingHours["monday"].Slots)
	require.Equal(t, []string{"2026-12-25"}, svc.put.Holidays)
}

func TestRemoveHolidayUsesPathDate(t *testing.T) {
	svc := &stubService{}
	admin := auth.Actor{UserID: uuid.New(), Role: enums.ActorRoleAdmin}
	resp := httptest.NewRecorder()

	RemoveHoliday(svc, nil).ServeHTTP(resp, request(http.MethodDelete, "/", "", &admin, map[string]string{"dealerId": uuid.NewString(), "date": "2026-12-25"}))

	require.Equal(t, http.StatusOK, resp.Code)
	require.Equal(t, "2026-12-25", svc.removed)
}

func TestCheckRequiresDate(t *testing.T) {
	resp := httptest.NewRecorder()
	Check(&stubService{}, nil).ServeHTTP(resp, request(http.MethodGet, "/check", "", nil, map[string]string{"dealerId": uuid.NewString()}))
	require.Equal(t, http.StatusBadRequest, resp.Code)

	svc := &stubService{}
	resp = httptest.NewRecorder()
	Check(svc, nil).ServeHTTP(resp, request(http.MethodGet, "/check?date=2026-03-02&time=10:30", "", nil, map[string]string{"dealerId": uuid.NewString()}))
	require.Equal(t, http.StatusOK, resp.Code)
	require.Equal(t, [2]string{"2026-03-02", "10:30"}, svc.checked)
	require.Contains(t, resp.Body.String(), `"remaining":3`)
}

func TestBookTestRideAttachesUser(t *testing.T) {
	svc := &stubService{}
	customer := auth.Actor{UserID: uuid.New(), Role: enums.ActorRoleCustomer}
	body := `{"date":"2026-03-02","time":"10:30","name":"Ravi","email":"ravi@example.com"}`
	resp := httptest.NewRecorder()

	BookTestRide(svc, nil).ServeHTTP(resp, request(http.MethodPost, "/", body, &customer, map[string]string{"dealerId": uuid.NewString()}))

	require.Equal(t, http.StatusCreated, resp.Code)
	require.Equal(t, customer.UserID, *svc.booked.UserID)
	require.Equal(t, "10:30", svc.booked.Time)
}

func TestBookTestRideFullDayIsStateConflict(t *testing.T) {
	svc := &stubService{bookErr: pkgerrors.New(pkgerrors.CodeStateConflict, "no test-ride slots left for this date")}
	customer := auth.Actor{UserID: uuid.New(), Role: enums.ActorRoleCustomer}
	body := `{"date":"2026-03-02","time":"10:30","name":"Ravi","email":"ravi@example.com"}`
	resp := httptest.NewRecorder()

	BookTestRide(svc, nil).ServeHTTP(resp, request(http.MethodPost, "/", body, &customer, map[string]string{"dealerId": uuid.NewString()}))

	require.Equal(t, http.StatusUnprocessableEntity, resp.Code)
}
