package rbac

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brickflow/brickflow/internal/platform/httpx"
	"github.com/brickflow/brickflow/internal/shared"
)

var accounts = shared.Actor{UserID: 7, Name: "Asha", Role: shared.RoleAccounts}

func TestTokenRoundTrip(t *testing.T) {
	tokens := NewTokenService("secret", time.Hour)

	raw, err := tokens.Issue(accounts)
	require.NoError(t, err)

	actor, err := tokens.Verify(raw)
	require.NoError(t, err)
	assert.Equal(t, accounts, actor)
}

func TestVerifyRejectsBadTokens(t *testing.T) {
	tokens := NewTokenService("secret", time.Hour)

	other, err := NewTokenService("other-secret", time.Hour).Issue(accounts)
	require.NoError(t, err)
	_, err = tokens.Verify(other)
	assert.ErrorIs(t, err, ErrInvalidToken)

	expired := NewTokenService("secret", time.Hour)
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	old, err := expired.Issue(accounts)
	require.NoError(t, err)
	_, err = tokens.Verify(old)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = tokens.Issue(shared.Actor{UserID: 1, Role: "Janitor"})
	assert.Error(t, err)

	badRole, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "brickflow",
			Subject:   "1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Role: "Janitor",
	}).SignedString([]byte("secret"))
	require.NoError(t, err)
	_, err = tokens.Verify(badRole)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = tokens.Verify("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func serve(t *testing.T, m Middleware, header string, roles ...shared.Role) (*httptest.ResponseRecorder, httpx.Envelope) {
	t.Helper()
	var reached bool
	h := m.Authenticate(m.RequireRole(roles...)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reached = true
		actor, ok := shared.ActorFromContext(r.Context())
		require.True(t, ok)
		httpx.Success(w, http.StatusOK, "", actor.Role)
	})))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	var env httpx.Envelope
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env))
	assert.Equal(t, rr.Code == http.StatusOK, reached)
	return rr, env
}

func TestMiddlewareGatesByRole(t *testing.T) {
	tokens := NewTokenService("secret", time.Hour)
	m := Middleware{Tokens: tokens}
	raw, err := tokens.Issue(accounts)
	require.NoError(t, err)

	rr, env := serve(t, m, "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, "Unauthenticated", env.Message)

	rr, _ = serve(t, m, "Basic abc")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr, env = serve(t, m, "Bearer "+raw, shared.RoleLogistics)
	assert.Equal(t, http.StatusForbidden, rr.Code)
	assert.Equal(t, httpx.StatusFail, env.Status)
	assert.Equal(t, "Insufficient permissions", env.Message)

	rr, env = serve(t, m, "Bearer "+raw, shared.RoleAccounts, shared.RoleAdmin)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, httpx.StatusSuccess, env.Status)
	assert.Equal(t, "Accounts", env.Data)

	rr, _ = serve(t, m, "bearer "+raw)
	assert.Equal(t, http.StatusOK, rr.Code)
}
