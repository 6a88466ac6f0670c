package rbac

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/brickflow/brickflow/internal/platform/httpx"
	"github.com/brickflow/brickflow/internal/shared"
)

// Middleware wires authentication and role checks for HTTP handlers.
type Middleware struct {
	Tokens *TokenService
	Logger *zap.Logger
}

// Authenticate resolves the bearer token into the request actor. Requests without a
// valid token are rejected with 401.
func (m Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, ok := bearerToken(r)
		if !ok {
			httpx.RespondError(w, m.Logger, httpx.ErrUnauthenticated)
			return
		}
		actor, err := m.Tokens.Verify(raw)
		if err != nil {
			if m.Logger != nil {
				m.Logger.Debug("rejecting bearer token", zap.Error(err))
			}
			httpx.RespondError(w, m.Logger, httpx.ErrUnauthenticated)
			return
		}
		next.ServeHTTP(w, r.WithContext(shared.ContextWithActor(r.Context(), actor)))
	})
}

// RequireRole ensures the current actor holds one of roles.
func (m Middleware) RequireRole(roles ...shared.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, ok := shared.ActorFromContext(r.Context())
			if !ok {
				httpx.RespondError(w, m.Logger, httpx.ErrUnauthenticated)
				return
			}
			if len(roles) > 0 && !actor.HasRole(roles...) {
				httpx.RespondError(w, m.Logger, httpx.ErrForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return "", false
	}
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
