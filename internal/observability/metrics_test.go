package observability

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brickflow/brickflow/internal/shared"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	return rr.Body.String()
}

func TestMetricsMiddlewareRecordsRequest(t *testing.T) {
	metrics := NewMetrics()

	handler := metrics.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	routeCtx := chi.NewRouteContext()
	routeCtx.RoutePatterns = append(routeCtx.RoutePatterns, "/test")

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	require.Equal(t, http.StatusTeapot, rr.Code)

	body := scrape(t, metrics)
	assert.Contains(t, body, `brickflow_http_requests_total{code="418",route="/test"} 1`)
	assert.Contains(t, body, `brickflow_http_request_duration_seconds_bucket{route="/test"`)
}

func TestObserveOperationClassifiesOutcome(t *testing.T) {
	metrics := NewMetrics()

	metrics.ObserveOperation("create_payment", nil)
	metrics.ObserveOperation("create_payment", shared.NewApprovedPaymentLocked())
	metrics.ObserveOperation("create_payment", errors.New("connection reset"))
	metrics.ObserveOperation("create_payment", nil)

	body := scrape(t, metrics)
	assert.Contains(t, body, `brickflow_workflow_operations_total{operation="create_payment",outcome="ok"} 2`)
	assert.Contains(t, body, `brickflow_workflow_operations_total{operation="create_payment",outcome="fail"} 1`)
	assert.Contains(t, body, `brickflow_workflow_operations_total{operation="create_payment",outcome="error"} 1`)
}

func TestNilMetricsIsSafe(t *testing.T) {
	var metrics *Metrics
	metrics.ObserveOperation("noop", nil)

	rr := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}
