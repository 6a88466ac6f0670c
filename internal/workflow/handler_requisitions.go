package workflow

import (
	"context"
	"net/http"

	"github.com/brickflow/brickflow/internal/platform/httpx"
	"github.com/brickflow/brickflow/internal/requisition"
	"github.com/brickflow/brickflow/internal/shared"
)

// ============================================================================
// REQUISITION HANDLERS
// ============================================================================

func (h *Handler) createRequisition(w http.ResponseWriter, r *http.Request) {
	actor, err := h.actor(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var req CreateRequisitionRequest
	if err := h.decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	created, err := h.service.CreateRequisition(r.Context(), actor, req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.Success(w, http.StatusCreated, "Requisition created successfully", newRequisitionView(*created))
}

func (h *Handler) listRequisitions(w http.ResponseWriter, r *http.Request) {
	actor, err := h.actor(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	date, err := dateParam(r, "date")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	page, perPage := pageParams(r)
	result, err := h.service.ListRequisitions(r.Context(), actor, requisition.ListFilter{
		Status:  requisition.Status(r.URL.Query().Get("status")),
		Date:    date,
		Page:    page,
		PerPage: perPage,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.Success(w, http.StatusOK, "", pageView[requisitionView]{
		Items:      newRequisitionViews(result.Items),
		Pagination: result.Pagination,
	})
}

func (h *Handler) showRequisition(w http.ResponseWriter, r *http.Request) {
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
	req, err := h.service.GetRequisition(r.Context(), actor, id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.Success(w, http.StatusOK, "", newRequisitionView(*req))
}

func (h *Handler) updateRequisition(w http.ResponseWriter, r *http.Request) {
	h.rejectRequisition(w, r, h.service.UpdateRequisition)
}

func (h *Handler) deleteRequisition(w http.ResponseWriter, r *http.Request) {
	h.rejectRequisition(w, r, h.service.DeleteRequisition)
}

func (h *Handler) rejectRequisition(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, actor shared.Actor, id int64) error) {
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
	h.fail(w, r, op(r.Context(), actor, id))
}

func (h *Handler) pendingRequisitions(w http.ResponseWriter, r *http.Request) {
	actor, err := h.actor(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	items, err := h.service.PendingRequisitions(r.Context(), actor)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.Success(w, http.StatusOK, "", newRequisitionViews(items))
}

func (h *Handler) completeRequisition(w http.ResponseWriter, r *http.Request) {
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
	req, err := h.service.CompleteRequisition(r.Context(), actor, id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.Success(w, http.StatusOK, "Requisition completed", newRequisitionView(*req))
}

func (h *Handler) checkBrickPrice(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	submitted, ok := parseDecimalParam(r.URL.Query().Get("price"))
	if !ok {
		h.fail(w, r, shared.NewValidation(map[string][]string{"price": {"The price field must be a number."}}))
		return
	}
	check, err := h.service.CheckBrickPrice(r.Context(), id, submitted)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.Success(w, http.StatusOK, "", newPriceCheckView(*check))
}
