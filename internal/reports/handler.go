package reports

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/brickflow/brickflow/internal/payment"
	"github.com/brickflow/brickflow/internal/platform/httpx"
	"github.com/brickflow/brickflow/internal/rbac"
	"github.com/brickflow/brickflow/internal/requisition"
	"github.com/brickflow/brickflow/internal/shared"
)

// Handler exposes reports over HTTP.
type Handler struct {
	logger  *zap.Logger
	service *Service
	rbac    rbac.Middleware
}

// NewHandler builds Handler instance.
func NewHandler(logger *zap.Logger, service *Service, rbac rbac.Middleware) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{logger: logger, service: service, rbac: rbac}
}

// MountRoutes registers report routes behind rbac authentication.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireRole(shared.RoleAccounts))
		r.Get("/reports/daily", h.daily)
		r.Get("/reports/daily/export", h.dailyExport)
		r.Get("/reports/range", h.rangeReport)
		r.Get("/reports/range/export", h.rangeExport)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.rbac.RequireRole(shared.RoleAdmin))
		r.Get("/order-history", h.history)
		r.Get("/order-history/statistics", h.statistics)
		r.Get("/order-history/{id}", h.detail)
	})
}

func (h *Handler) daily(w http.ResponseWriter, r *http.Request) {
	report, ok := h.loadDaily(w, r)
	if !ok {
		return
	}
	httpx.Success(w, http.StatusOK, "Daily report generated successfully", newDailyReportView(*report))
}

func (h *Handler) dailyExport(w http.ResponseWriter, r *http.Request) {
	report, ok := h.loadDaily(w, r)
	if !ok {
		return
	}
	day := report.Date.Format(dateLayout)
	h.writeCSV(w, r, "daily_report_"+day+".csv", func(buf *bytes.Buffer) error {
		return WriteDeliveredOrdersCSV(buf, "Daily Financial Report - "+day, report.Summary, report.Breakdown, nil, report.Orders)
	})
}

func (h *Handler) loadDaily(w http.ResponseWriter, r *http.Request) (*DailyReport, bool) {
	actor, _ := shared.ActorFromContext(r.Context())
	date, err := requiredDate(r, "date")
	if err != nil {
		h.fail(w, r, err)
		return nil, false
	}
	report, err := h.service.Daily(r.Context(), actor, date)
	if err != nil {
		h.fail(w, r, err)
		return nil, false
	}
	return report, true
}

func (h *Handler) rangeReport(w http.ResponseWriter, r *http.Request) {
	report, ok := h.loadRange(w, r)
	if !ok {
		return
	}
	httpx.Success(w, http.StatusOK, "Range report generated successfully", newRangeReportView(*report))
}

func (h *Handler) rangeExport(w http.ResponseWriter, r *http.Request) {
	report, ok := h.loadRange(w, r)
	if !ok {
		return
	}
	from, to := report.From.Format(dateLayout), report.To.Format(dateLayout)
	h.writeCSV(w, r, fmt.Sprintf("range_report_%s_to_%s.csv", from, to), func(buf *bytes.Buffer) error {
		return WriteDeliveredOrdersCSV(buf, "Financial Report - "+from+" to "+to, report.Summary, report.Breakdown, report.Daily, report.Orders)
	})
}

func (h *Handler) loadRange(w http.ResponseWriter, r *http.Request) (*RangeReport, bool) {
	actor, _ := shared.ActorFromContext(r.Context())
	from, err := requiredDate(r, "from_date")
	if err != nil {
		h.fail(w, r, err)
		return nil, false
	}
	to, err := requiredDate(r, "to_date")
	if err != nil {
		h.fail(w, r, err)
		return nil, false
	}
	report, err := h.service.Range(r.Context(), actor, from, to)
	if err != nil {
		h.fail(w, r, err)
		return nil, false
	}
	return report, true
}

func (h *Handler) history(w http.ResponseWriter, r *http.Request) {
	actor, _ := shared.ActorFromContext(r.Context())
	q := r.URL.Query()
	from, err := optionalDate(r, "from_date")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	to, err := optionalDate(r, "to_date")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	page, _ := strconv.Atoi(q.Get("page"))
	perPage, _ := strconv.Atoi(q.Get("per_page"))
	result, err := h.service.OrderHistory(r.Context(), actor, HistoryFilter{
		PaymentStatus: payment.Status(q.Get("payment_status")),
		OrderStatus:   requisition.Status(q.Get("order_status")),
		From:          from,
		To:            to,
		Search:        strings.TrimSpace(q.Get("search")),
		Page:          page,
		PerPage:       perPage,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	rows := make([]historyRowView, 0, len(result.Items))
	for _, rec := range result.Items {
		rows = append(rows, newHistoryRowView(rec))
	}
	httpx.Success(w, http.StatusOK, "Order history retrieved successfully", map[string]any{
		"orders":     rows,
		"pagination": result.Pagination,
	})
}

func (h *Handler) statistics(w http.ResponseWriter, r *http.Request) {
	actor, _ := shared.ActorFromContext(r.Context())
	from, err := optionalDate(r, "from_date")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	to, err := optionalDate(r, "to_date")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	stats, err := h.service.OrderStatistics(r.Context(), actor, from, to)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.Success(w, http.StatusOK, "Order statistics retrieved successfully", newStatisticsView(*stats))
}

func (h *Handler) detail(w http.ResponseWriter, r *http.Request) {
	actor, _ := shared.ActorFromContext(r.Context())
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		h.fail(w, r, shared.NewValidation(map[string][]string{"id": {"The id must be a positive integer."}}))
		return
	}
	rec, err := h.service.OrderDetail(r.Context(), actor, id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.Success(w, http.StatusOK, "Order details retrieved successfully", map[string]any{
		"order": newOrderDetailView(*rec),
	})
}

func (h *Handler) writeCSV(w http.ResponseWriter, r *http.Request, filename string, write func(*bytes.Buffer) error) {
	var buf bytes.Buffer
	if err := write(&buf); err != nil {
		h.fail(w, r, fmt.Errorf("write csv: %w", err))
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	httpx.RespondError(w, h.logger.With(zap.String("path", r.URL.Path)), err)
}

func requiredDate(r *http.Request, name string) (time.Time, error) {
	t, err := optionalDate(r, name)
	if err != nil {
		return time.Time{}, err
	}
	if t == nil {
		return time.Time{}, shared.NewValidation(map[string][]string{name: {"The " + name + " field is required."}})
	}
	return *t, nil
}

func optionalDate(r *http.Request, name string) (*time.Time, error) {
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
