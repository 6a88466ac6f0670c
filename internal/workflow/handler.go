package workflow

import (
	"errors"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/brickflow/brickflow/internal/platform/httpx"
	"github.com/brickflow/brickflow/internal/rbac"
	"github.com/brickflow/brickflow/internal/shared"
)

// Handler exposes the workflow use-cases over HTTP.
type Handler struct {
	logger    *zap.Logger
	service   *Service
	rbac      rbac.Middleware
	validator *validator.Validate
}

// NewHandler builds Handler instance.
func NewHandler(logger *zap.Logger, service *Service, rbac rbac.Middleware) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		logger:    logger,
		service:   service,
		rbac:      rbac,
		validator: newValidator(),
	}
}

// MountRoutes registers workflow routes. The caller must install rbac
// authentication in front of r.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireRole())
		r.Get("/requisitions", h.listRequisitions)
		r.Get("/requisitions/{id}", h.showRequisition)
		r.Put("/requisitions/{id}", h.updateRequisition)
		r.Delete("/requisitions/{id}", h.deleteRequisition)
		r.Get("/brick-types/{id}/price", h.checkBrickPrice)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireRole(shared.RoleSalesExecutive))
		r.Post("/requisitions", h.createRequisition)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireRole(shared.RoleAdmin))
		r.Post("/requisitions/{id}/complete", h.completeRequisition)
	})

	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireRole(shared.RoleLogistics))
		r.Get("/requisitions/pending", h.pendingRequisitions)
		r.Route("/delivery-challans", func(r chi.Router) {
			r.Get("/", h.listChallans)
			r.Post("/", h.createChallan)
			r.Get("/pending-orders", h.pendingRequisitions)
			r.Get("/{id}", h.showChallan)
			r.Put("/{id}", h.updateChallan)
			r.Delete("/{id}", h.deleteChallan)
			r.Patch("/{id}/status", h.updateDeliveryStatus)
			r.Get("/{id}/print", h.printChallan)
		})
	})

	r.Route("/payments", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(h.rbac.RequireRole(shared.RoleAccounts))
			r.Get("/", h.listPayments)
			r.Post("/", h.createPayment)
			r.Get("/pending-challans", h.pendingChallans)
			r.Get("/reports/summary", h.paymentSummary)
			r.Get("/{id}", h.showPayment)
			r.Put("/{id}", h.updatePayment)
			r.Delete("/{id}", h.deletePayment)
			r.Post("/{id}/approve", h.approvePayment)
		})
		r.Group(func(r chi.Router) {
			r.Use(h.rbac.RequireRole(shared.RoleAccounts, shared.RoleAdmin))
			r.Get("/{id}/history", h.paymentHistory)
		})
	})
}

// ============================================================================
// HELPERS
// ============================================================================

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name, _, _ := strings.Cut(field.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// decode reads the JSON body into dst and runs struct validation. Failures are
// reported as a Validation business error keyed by JSON field name.
func (h *Handler) decode(r *http.Request, dst any) error {
	if err := httpx.DecodeJSON(r, dst); err != nil {
		return shared.NewValidation(map[string][]string{"body": {"The request body is not valid JSON: " + err.Error()}})
	}
	if err := h.validator.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return err
		}
		fields := make(map[string][]string, len(verrs))
		for _, fe := range verrs {
			fields[fe.Field()] = append(fields[fe.Field()], validationMessage(fe))
		}
		return shared.NewValidation(fields)
	}
	return nil
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "The " + fe.Field() + " field is required."
	case "max":
		return "The " + fe.Field() + " field must not be greater than " + fe.Param() + "."
	case "min":
		return "The " + fe.Field() + " field must be at least " + fe.Param() + "."
	case "gt":
		return "The " + fe.Field() + " field must be greater than " + fe.Param() + "."
	default:
		return "The " + fe.Field() + " field is invalid."
	}
}

func (h *Handler) actor(r *http.Request) (shared.Actor, error) {
	actor, ok := shared.ActorFromContext(r.Context())
	if !ok {
		return shared.Actor{}, httpx.ErrUnauthenticated
	}
	return actor, nil
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	httpx.RespondError(w, h.logger.With(
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
	), err)
}

func idParam(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, shared.NewValidation(map[string][]string{"id": {"The id must be a positive integer."}})
	}
	return id, nil
}

func pageParams(r *http.Request) (int, int) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	perPage, _ := strconv.Atoi(q.Get("per_page"))
	return page, perPage
}

func dateParam(r *http.Request, name string) (*time.Time, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		return nil, shared.NewValidation(map[string][]string{name: {"The " + name + " must be a date in YYYY-MM-DD format."}})
	}
	return &t, nil
}
