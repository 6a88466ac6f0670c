package workflow_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brickflow/brickflow/internal/rbac"
	"github.com/brickflow/brickflow/internal/shared"
	"github.com/brickflow/brickflow/internal/workflow"
)

type envelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Errors  map[string]any  `json:"errors"`
}

type api struct {
	t      *testing.T
	f      *fixture
	tokens *rbac.TokenService
	router http.Handler
}

func newAPI(t *testing.T) *api {
	t.Helper()
	f := newFixture(t)
	tokens := rbac.NewTokenService("handler-test-secret", time.Hour)
	mw := rbac.Middleware{Tokens: tokens}

	r := chi.NewRouter()
	r.Use(mw.Authenticate)
	workflow.NewHandler(nil, f.svc, mw).MountRoutes(r)
	return &api{t: t, f: f, tokens: tokens, router: r}
}

func (a *api) do(actor *shared.Actor, method, path string, body any) (int, envelope) {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if actor != nil {
		token, err := a.tokens.Issue(*actor)
		require.NoError(a.t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)

	var env envelope
	require.NoError(a.t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return rec.Code, env
}

func decodeData[T any](t *testing.T, env envelope) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(env.Data, &out))
	return out
}

func requisitionBody(brickID int64, total string) map[string]any {
	return map[string]any{
		"brick_type_id":     brickID,
		"quantity":          "1000",
		"price_per_unit":    "12.50",
		"entered_price":     "12.00",
		"total_amount":      total,
		"customer_name":     "Acme Builders",
		"customer_phone":    "9876543210",
		"customer_address":  "12 Kiln Road",
		"customer_location": "Pune",
	}
}

type idView struct {
	ID          int64  `json:"id"`
	OrderNumber string `json:"order_number"`
	TotalAmount string `json:"total_amount"`
	Status      string `json:"status"`
}

func TestHandlerRequiresToken(t *testing.T) {
	a := newAPI(t)
	code, env := a.do(nil, http.MethodGet, "/requisitions", nil)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "fail", env.Status)
	assert.Equal(t, "Unauthenticated", env.Message)
}

func TestHandlerCreateRequisition(t *testing.T) {
	a := newAPI(t)

	code, env := a.do(&sales, http.MethodPost, "/requisitions", requisitionBody(a.f.brick.ID, "12000"))
	require.Equal(t, http.StatusCreated, code, env.Message)
	assert.Equal(t, "success", env.Status)
	created := decodeData[idView](t, env)
	assert.Equal(t, "ORD000001", created.OrderNumber)
	assert.Equal(t, "12000.00", created.TotalAmount)
	assert.Equal(t, "submitted", created.Status)

	code, env = a.do(&logistics, http.MethodPost, "/requisitions", requisitionBody(a.f.brick.ID, "12000"))
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, "Insufficient permissions", env.Message)
}

func TestHandlerRequisitionErrors(t *testing.T) {
	a := newAPI(t)

	code, env := a.do(&sales, http.MethodPost, "/requisitions", requisitionBody(a.f.brick.ID, "11000"))
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	assert.Contains(t, env.Message, "Total amount calculation is incorrect")
	assert.Equal(t, "12000.00", env.Errors["expected_total"])

	body := requisitionBody(a.f.brick.ID, "12000")
	body["unexpected"] = true
	code, env = a.do(&sales, http.MethodPost, "/requisitions", body)
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	assert.Contains(t, env.Errors, "body")

	body = requisitionBody(a.f.brick.ID, "12000")
	delete(body, "customer_name")
	code, env = a.do(&sales, http.MethodPost, "/requisitions", body)
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	assert.Contains(t, env.Errors, "customer_name")
}

func TestHandlerRequisitionImmutable(t *testing.T) {
	a := newAPI(t)
	r := a.f.submit(t)
	path := fmt.Sprintf("/requisitions/%d", r.ID)

	code, env := a.do(&sales, http.MethodPut, path, nil)
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, "Requisitions are immutable once submitted", env.Message)

	code, _ = a.do(&admin, http.MethodDelete, path, nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, _ = a.do(&sales2, http.MethodGet, path, nil)
	assert.Equal(t, http.StatusNotFound, code)

	code, _ = a.do(&admin, http.MethodGet, "/requisitions/abc", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, code)
}

func TestHandlerPendingRouteBeatsID(t *testing.T) {
	a := newAPI(t)
	a.f.submit(t)

	code, env := a.do(&logistics, http.MethodGet, "/requisitions/pending", nil)
	require.Equal(t, http.StatusOK, code)
	items := decodeData[[]idView](t, env)
	require.Len(t, items, 1)
	assert.Equal(t, "ORD000001", items[0].OrderNumber)
}

func TestHandlerPaymentLockedAfterApproval(t *testing.T) {
	a := newAPI(t)
	c := a.f.dispatch(t, a.f.submit(t))

	code, env := a.do(&accounts, http.MethodPost, "/payments", map[string]any{
		"delivery_challan_id": c.ID,
		"amount_received":     "12000",
		"payment_method":      "upi",
	})
	require.Equal(t, http.StatusCreated, code, env.Message)
	created := decodeData[struct {
		ID       int64  `json:"id"`
		Status   string `json:"payment_status"`
		Locked   bool   `json:"is_locked"`
		Remained string `json:"remaining_amount"`
	}](t, env)
	assert.Equal(t, "paid", created.Status)
	assert.Equal(t, "0.00", created.Remained)
	assert.False(t, created.Locked)

	code, env = a.do(&accounts, http.MethodPost, fmt.Sprintf("/payments/%d/approve", created.ID), nil)
	require.Equal(t, http.StatusOK, code, env.Message)

	code, env = a.do(&accounts, http.MethodPut, fmt.Sprintf("/payments/%d", created.ID), map[string]any{"remarks": "edit"})
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, "Approved payment records cannot be modified", env.Message)
	assert.Contains(t, env.Errors, "payment_status")

	code, _ = a.do(&accounts, http.MethodDelete, fmt.Sprintf("/payments/%d", created.ID), nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, env = a.do(&admin, http.MethodGet, fmt.Sprintf("/payments/%d/history", created.ID), nil)
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(env.Data), "payment.approved")

	code, _ = a.do(&logistics, http.MethodGet, fmt.Sprintf("/payments/%d/history", created.ID), nil)
	assert.Equal(t, http.StatusForbidden, code)
}

func TestHandlerPaymentExceedsOrder(t *testing.T) {
	a := newAPI(t)
	c := a.f.dispatch(t, a.f.submit(t))

	code, env := a.do(&accounts, http.MethodPost, "/payments", map[string]any{
		"delivery_challan_id": c.ID,
		"amount_received":     "15000",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	assert.Equal(t, "Payment amount (15000.00) exceeds remaining order amount (12000.00)", env.Message)
}

func TestHandlerChallanLifecycle(t *testing.T) {
	a := newAPI(t)
	r := a.f.submit(t)

	code, env := a.do(&logistics, http.MethodPost, "/delivery-challans", map[string]any{
		"requisition_id": r.ID,
		"vehicle_number": "MH12AB1234",
		"location":       "Pune",
	})
	require.Equal(t, http.StatusCreated, code, env.Message)
	c := decodeData[struct {
		ID            int64  `json:"id"`
		ChallanNumber string `json:"challan_number"`
	}](t, env)
	assert.Equal(t, "CH-000001", c.ChallanNumber)

	code, env = a.do(&logistics, http.MethodPatch, fmt.Sprintf("/delivery-challans/%d/status", c.ID), map[string]any{"delivery_status": "delivered"})
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	assert.Equal(t, "Cannot transition from pending to delivered", env.Message)

	code, _ = a.do(&logistics, http.MethodPatch, fmt.Sprintf("/delivery-challans/%d/status", c.ID), map[string]any{"delivery_status": "assigned"})
	assert.Equal(t, http.StatusOK, code)

	code, env = a.do(&logistics, http.MethodGet, fmt.Sprintf("/delivery-challans/%d/print", c.ID), nil)
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, string(env.Data), `"print_count":1`)

	code, env = a.do(&logistics, http.MethodDelete, fmt.Sprintf("/delivery-challans/%d", c.ID), nil)
	assert.Equal(t, http.StatusForbidden, code)
	assert.Equal(t, "Delivery challans cannot be deleted", env.Message)

	code, env = a.do(&logistics, http.MethodGet, "/delivery-challans?delivery_status=bogus", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	assert.Contains(t, env.Errors, "delivery_status")
}

func TestHandlerBrickPriceCheck(t *testing.T) {
	a := newAPI(t)

	code, env := a.do(&sales, http.MethodGet, fmt.Sprintf("/brick-types/%d/price?price=12.00", a.f.brick.ID), nil)
	require.Equal(t, http.StatusOK, code)
	check := decodeData[struct {
		Changed bool   `json:"price_changed"`
		Current string `json:"current_price"`
	}](t, env)
	assert.True(t, check.Changed)
	assert.Equal(t, "12.50", check.Current)

	code, _ = a.do(&sales, http.MethodGet, fmt.Sprintf("/brick-types/%d/price?price=abc", a.f.brick.ID), nil)
	assert.Equal(t, http.StatusUnprocessableEntity, code)
}
