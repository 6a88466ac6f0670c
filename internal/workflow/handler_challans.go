package workflow

import (
	"net/http"

	"github.com/brickflow/brickflow/internal/challan"
	"github.com/brickflow/brickflow/internal/platform/httpx"
)

// ============================================================================
// CHALLAN HANDLERS
// ============================================================================

func (h *Handler) createChallan(w http.ResponseWriter, r *http.Request) {
	actor, err := h.actor(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var req CreateChallanRequest
	if err := h.decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	created, err := h.service.CreateChallan(r.Context(), actor, req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.Success(w, http.StatusCreated, "Delivery challan created successfully", newChallanView(*created))
}

func (h *Handler) listChallans(w http.ResponseWriter, r *http.Request) {
	date, err := dateParam(r, "date")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	page, perPage := pageParams(r)
	result, err := h.service.ListChallans(r.Context(), challan.ListFilter{
		Status:  challan.Status(r.URL.Query().Get("delivery_status")),
		Date:    date,
		Page:    page,
		PerPage: perPage,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.Success(w, http.StatusOK, "", pageView[challanView]{
		Items:      newChallanViews(result.Items),
		Pagination: result.Pagination,
	})
}

func (h *Handler) showChallan(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	c, err := h.service.GetChallan(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.Success(w, http.StatusOK, "", newChallanView(*c))
}

func (h *Handler) updateChallan(w http.ResponseWriter, r *http.Request) {
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
	var req UpdateChallanRequest
	if err := h.decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	c, err := h.service.UpdateChallan(r.Context(), actor, id, req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.Success(w, http.StatusOK, "Delivery challan updated successfully", newChallanView(*c))
}

func (h *Handler) deleteChallan(w http.ResponseWriter, r *http.Request) {
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
	h.fail(w, r, h.service.DeleteChallan(r.Context(), actor, id))
}

func (h *Handler) updateDeliveryStatus(w http.ResponseWriter, r *http.Request) {
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
	var req UpdateDeliveryStatusRequest
	if err := h.decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	c, err := h.service.UpdateDeliveryStatus(r.Context(), actor, id, req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.Success(w, http.StatusOK, "Delivery status updated successfully", newChallanView(*c))
}

func (h *Handler) printChallan(w http.ResponseWriter, r *http.Request) {
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
	doc, err := h.service.PrintChallan(r.Context(), actor, id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	httpx.Success(w, http.StatusOK, "", doc)
}
