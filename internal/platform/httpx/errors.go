package httpx

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/brickflow/brickflow/internal/shared"
)

// Sentinel errors for the transport layer.
var (
	ErrUnauthenticated = errors.New("Unauthenticated")
	ErrForbidden       = errors.New("Insufficient permissions")
)

// RespondError maps err to an envelope. Business errors become fail responses
// carrying their field map; anything else is logged and hidden behind a 500.
func RespondError(w http.ResponseWriter, logger *zap.Logger, err error) {
	if be, ok := shared.AsBusinessError(err); ok {
		var fields any
		if len(be.Fields) > 0 {
			fields = be.Fields
		}
		Fail(w, be.HTTPStatus(), be.Message, fields)
		return
	}
	switch {
	case errors.Is(err, ErrUnauthenticated):
		Fail(w, http.StatusUnauthorized, ErrUnauthenticated.Error(), nil)
	case errors.Is(err, ErrForbidden):
		Fail(w, http.StatusForbidden, ErrForbidden.Error(), nil)
	default:
		if logger != nil {
			logger.Error("unhandled request error", zap.Error(err))
		}
		JSON(w, http.StatusInternalServerError, Envelope{
			Status:  StatusError,
			Message: "An unexpected error occurred",
		})
	}
}
