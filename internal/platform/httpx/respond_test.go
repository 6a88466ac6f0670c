package httpx

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/brickflow/brickflow/internal/shared"
)

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestSuccessEnvelope(t *testing.T) {
	rec := httptest.NewRecorder()
	Success(rec, http.StatusCreated, "Requisition created successfully", map[string]string{"order_number": "ORD000001"})

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	body := decode(t, rec)
	assert.Equal(t, StatusSuccess, body["status"])
	assert.Equal(t, "ORD000001", body["data"].(map[string]any)["order_number"])
	assert.NotContains(t, body, "errors")
}

func TestRespondErrorMapsBusinessErrors(t *testing.T) {
	rec := httptest.NewRecorder()
	RespondError(rec, nil, shared.NewApprovedPaymentLocked())

	assert.Equal(t, http.StatusForbidden, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, StatusFail, body["status"])
	assert.Equal(t, "Approved payment records cannot be modified", body["message"])
	assert.Contains(t, body["errors"], "payment_status")
}

func TestRespondErrorSentinels(t *testing.T) {
	rec := httptest.NewRecorder()
	RespondError(rec, nil, ErrUnauthenticated)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = httptest.NewRecorder()
	RespondError(rec, nil, ErrForbidden)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "Insufficient permissions", decode(t, rec)["message"])
}

func TestRespondErrorHidesInternalErrors(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	rec := httptest.NewRecorder()
	RespondError(rec, zap.New(core), errors.New("pq: relation does not exist"))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, StatusError, body["status"])
	assert.NotContains(t, rec.Body.String(), "relation")
	assert.Equal(t, 1, logs.Len())
}

func TestDecodeJSONRejectsUnknownFields(t *testing.T) {
	var target struct {
		Name string `json:"name"`
	}
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"a","extra":1}`))
	assert.Error(t, DecodeJSON(req, &target))

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"a"}`))
	require.NoError(t, DecodeJSON(req, &target))
	assert.Equal(t, "a", target.Name)
}
