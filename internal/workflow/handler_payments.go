package workflow

import (
	"net/http"

	"github.com/brickflow/brickflow/internal/payment"
	"github.com/brickflow/brickflow/internal/platform/httpx"
)

// ============================================================================
// PAYMENT HANDLERS
// ============================================================================

func (h *Handler) createPayment(w http.ResponseWriter, r *http.Request) {
	actor, err := h.actor(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var req CreatePaymentRequest
	if err := h.decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	created, err := h.service.CreatePayment(r.Context(), actor, req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.Success(w, http.StatusCreated, "Payment record created successfully", newPaymentView(*created))
}

func (h *Handler) listPayments(w http.ResponseWriter, r *http.Request) {
	page, perPage := pageParams(r)
	result, err := h.service.ListPayments(r.Context(), payment.ListFilter{
		Status:  payment.Status(r.URL.Query().Get("payment_status")),
		Page:    page,
		PerPage: perPage,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.Success(w, http.StatusOK, "", pageView[paymentView]{
		Items:      newPaymentViews(result.Items),
		Pagination: result.Pagination,
	})
}

func (h *Handler) showPayment(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	p, err := h.service.GetPayment(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.Success(w, http.StatusOK, "", newPaymentView(*p))
}

func (h *Handler) updatePayment(w http.ResponseWriter, r *http.Request) {
	actor, err := h.actor(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	id, err := idParam(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var req UpdatePaymentRequest
	if err := h.decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	p, err := h.service.UpdatePayment(r.Context(), actor, id, req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.Success(w, http.StatusOK, "Payment updated successfully", newPaymentView(*p))
}

func (h *Handler) approvePayment(w http.ResponseWriter, r *http.Request) {
	actor, err := h.actor(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	id, err := idParam(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	p, err := h.service.ApprovePayment(r.Context(), actor, id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.Success(w, http.StatusOK, "Payment approved successfully", newPaymentView(*p))
}

func (h *Handler) deletePayment(w http.ResponseWriter, r *http.Request) {
	actor, err := h.actor(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	id, err := idParam(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if err := h.service.DeletePayment(r.Context(), actor, id); err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.Success(w, http.StatusOK, "Payment deleted successfully", nil)
}

func (h *Handler) pendingChallans(w http.ResponseWriter, r *http.Request) {
	actor, err := h.actor(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	items, err := h.service.PendingChallansForPayment(r.Context(), actor)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.Success(w, http.StatusOK, "", newChallanViews(items))
}

func (h *Handler) paymentSummary(w http.ResponseWriter, r *http.Request) {
	actor, err := h.actor(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	summary, err := h.service.PaymentSummary(r.Context(), actor)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.Success(w, http.StatusOK, "", newPaymentSummaryView(*summary))
}

func (h *Handler) paymentHistory(w http.ResponseWriter, r *http.Request) {
	actor, err := h.actor(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	id, err := idParam(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	history, err := h.service.PaymentHistory(r.Context(), actor, id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.Success(w, http.StatusOK, "", paymentHistoryView{
		Payment: newPaymentView(history.Payment),
		Events:  history.Events,
	})
}
