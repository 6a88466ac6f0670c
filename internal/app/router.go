package app

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/brickflow/brickflow/internal/observability"
	"github.com/brickflow/brickflow/internal/platform/httpx"
	"github.com/brickflow/brickflow/internal/rbac"
	"github.com/brickflow/brickflow/internal/reports"
	"github.com/brickflow/brickflow/internal/workflow"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger          *zap.Logger
	Config          *Config
	RBACMiddleware  rbac.Middleware
	WorkflowHandler *workflow.Handler
	ReportsHandler  *reports.Handler
	Metrics         *observability.Metrics
}

// NewRouter constructs the chi.Router with brickflow defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(params.RBACMiddleware.Authenticate)
		if params.WorkflowHandler != nil {
			params.WorkflowHandler.MountRoutes(r)
		}
		if params.ReportsHandler != nil {
			params.ReportsHandler.MountRoutes(r)
		}
	})

	return r
}
