package orders

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
	internalorders "github.com/angelmondragon/voltline-backend/internal/orders"
	"github.com/angelmondragon/voltline-backend/pkg/auth"
	"github.com/angelmondragon/voltline-backend/pkg/db/models"
	"github.com/angelmondragon/voltline-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/voltline-backend/pkg/errors"
	"github.com/angelmondragon/voltline-backend/pkg/pagination"
)

type stubService struct {
	placed    internalorders.PlaceOrderInput
	updated   internalorders.UpdateOrderStatusInput
	confirmed internalorders.ConfirmPaymentInput
	listed    internalorders.ListOrdersInput
	updateErr error
}

func (s *stubService) PlaceOrder(_ context.Context, input internalorders.PlaceOrderInput) (*models.Order, error) {
	s.placed = input
	return &models.Order{ID: uuid.New(), VehicleID: input.VehicleID, Quantity: input.Quantity, Status: enums.OrderStatusPending}, nil
}

func (s *stubService) ConfirmPayment(_ context.Context, input internalorders.ConfirmPaymentInput) (*models.Order, error) {
	s.confirmed = input
	return &models.Order{ID: input.OrderID, PaymentStatus: enums.PaymentStatusPaid}, nil
}

func (s *stubService) UpdateOrderStatus(_ context.Context, input internalorders.UpdateOrderStatusInput) (*models.Order, error) {
	s.updated = input
	if s.updateErr != nil {
		return nil, s.updateErr
	}
	return &models.Order{ID: input.OrderID, Status: input.Status}, nil
}

func (s *stubService) GetOrder(context.Context, auth.Actor, uuid.UUID) (*models.Order, error) {
	return &models.Order{}, nil
}

func (s *stubService) ListOrders(_ context.Context, input internalorders.ListOrdersInput) (pagination.Page[models.Order], error) {
	s.listed = input
	return pagination.Page[models.Order]{}, nil
}

func routed(method, target, body string, actor auth.Actor, params map[string]string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rctx := chi.NewRouteContext()
	for k, v := range params {
		rctx.URLParams.Add(k, v)
	}
	ctx := context.WithValue(req.Context(), chi.RouteCtxKey, rctx)
	return req.WithContext(middleware.WithActor(ctx, actor))
}

var customer = auth.Actor{UserID: uuid.New(), Role: enums.ActorRoleCustomer}

func TestPlaceDecodesOptionalDealer(t *testing.T) {
	svc := &stubService{}
	vehicleID, dealerID := uuid.New(), uuid.New()
	body := `{"vehicleId":"` + vehicleID.String() + `","quantity":2,"dealerId":"` + dealerID.String() + `","discountAmount":"150.50"}`
	resp := httptest.NewRecorder()

	Place(svc, nil).ServeHTTP(resp, routed(http.MethodPost, "/api/v1/orders", body, customer, nil))

	require.Equal(t, http.StatusCreated, resp.Code)
	require.Equal(t, vehicleID, svc.placed.VehicleID)
	require.Equal(t, dealerID, *svc.placed.DealerID)
	require.Equal(t, "150.5", svc.placed.DiscountAmount.String())
	require.Equal(t, customer.UserID, svc.placed.Actor.UserID)
}

func TestPlaceRejectsZeroQuantity(t *testing.T) {
	body := `{"vehicleId":"` + uuid.NewString() + `","quantity":0}`
	resp := httptest.NewRecorder()
	Place(&stubService{}, nil).ServeHTTP(resp, routed(http.MethodPost, "/api/v1/orders", body, customer, nil))
	require.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestUpdateStatusSurfacesIllegalTransition(t *testing.T) {
	svc := &stubService{updateErr: pkgerrors.New(pkgerrors.CodeStateConflict, "cannot move order from delivered to shipped").
		WithReason(internalorders.ReasonIllegalTransition)}
	orderID := uuid.New()
	admin := auth.Actor{UserID: uuid.New(), Role: enums.ActorRoleAdmin}
	resp := httptest.NewRecorder()

	UpdateStatus(svc, nil).ServeHTTP(resp, routed(http.MethodPut, "/", `{"status":"shipped"}`, admin, map[string]string{"orderId": orderID.String()}))

	require.Equal(t, http.StatusUnprocessableEntity, resp.Code)
	require.Equal(t, orderID, svc.updated.OrderID)
	require.Contains(t, resp.Body.String(), internalorders.ReasonIllegalTransition)
}

func TestUpdateStatusRejectsBadPathID(t *testing.T) {
	admin := auth.Actor{UserID: uuid.New(), Role: enums.ActorRoleAdmin}
	resp := httptest.NewRecorder()
	UpdateStatus(&stubService{}, nil).ServeHTTP(resp, routed(http.MethodPut, "/", `{"status":"shipped"}`, admin, map[string]string{"orderId": "abc"}))
	require.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestConfirmPaymentTrimsReference(t *testing.T) {
	svc := &stubService{}
	orderID := uuid.New()
	admin := auth.Actor{UserID: uuid.New(), Role: enums.ActorRoleAdmin}
	resp := httptest.NewRecorder()

	ConfirmPayment(svc, nil).ServeHTTP(resp, routed(http.MethodPost, "/", `{"paymentReference":"  pay_123 "}`, admin, map[string]string{"orderId": orderID.String()}))

	require.Equal(t, http.StatusOK, resp.Code)
	require.Equal(t, "pay_123", svc.confirmed.PaymentReference)
}

func TestListParsesPaymentStatus(t *testing.T) {
	svc := &stubService{}
	resp := httptest.NewRecorder()
	List(svc, nil).ServeHTTP(resp, routed(http.MethodGet, "/api/v1/orders?payment_status=paid&status=shipped", "", customer, nil))

	require.Equal(t, http.StatusOK, resp.Code)
	require.Equal(t, enums.PaymentStatusPaid, *svc.listed.PaymentStatus)
	require.Equal(t, enums.OrderStatusShipped, *svc.listed.Status)
	require.Equal(t, pagination.DefaultLimit, svc.listed.Limit)
}
