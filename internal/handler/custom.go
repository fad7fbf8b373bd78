package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/mmeshcher/woodcraft-storefront/internal/service"
)

type invoiceRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

type reasonRequest struct {
	Reason string `json:"reason"`
}

// SubmitCustomRequest создаёт индивидуальный заказ.
func (h *Handler) SubmitCustomRequest(w http.ResponseWriter, r *http.Request) {
	var req service.CustomRequestInput
	if !h.decode(w, r, &req) {
		return
	}

	created, err := h.service.SubmitCustomRequest(r.Context(), req)
	if err != nil {
		h.fail(w, err, "submit custom request")
		return
	}
	h.writeJSON(w, http.StatusCreated, created)
}

// CustomRequests возвращает индивидуальные заказы: свои для покупателя, все для администратора.
func (h *Handler) CustomRequests(w http.ResponseWriter, r *http.Request) {
	reqs, err := h.service.CustomRequests(r.Context())
	if err != nil {
		h.fail(w, err, "list custom requests")
		return
	}
	h.writeJSON(w, http.StatusOK, reqs)
}

// SelectedRequest возвращает заказ, выбранный администратором для выставления счёта.
func (h *Handler) SelectedRequest(w http.ResponseWriter, r *http.Request) {
	id, ok := h.service.SelectedRequest()
	if !ok {
		h.writeError(w, http.StatusNotFound, "no request selected")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"requestId": id})
}

func (h *Handler) SelectRequest(w http.ResponseWriter, r *http.Request) {
	selected, err := h.service.SelectRequest(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, err, "select custom request")
		return
	}
	h.writeJSON(w, http.StatusOK, selected)
}

// SendInvoice выставляет счёт по заказу.
func (h *Handler) SendInvoice(w http.ResponseWriter, r *http.Request) {
	var req invoiceRequest
	if !h.decode(w, r, &req) {
		return
	}

	reqs, err := h.service.SendInvoice(r.Context(), chi.URLParam(r, "id"), req.Amount)
	if err != nil {
		h.fail(w, err, "send invoice")
		return
	}
	h.writeJSON(w, http.StatusOK, reqs)
}

// RejectRequest отклоняет заказ с указанием причины.
func (h *Handler) RejectRequest(w http.ResponseWriter, r *http.Request) {
	var req reasonRequest
	if !h.decode(w, r, &req) {
		return
	}

	reqs, err := h.service.RejectRequest(r.Context(), chi.URLParam(r, "id"), req.Reason)
	if err != nil {
		h.fail(w, err, "reject custom request")
		return
	}
	h.writeJSON(w, http.StatusOK, reqs)
}

func (h *Handler) AddToDelivery(w http.ResponseWriter, r *http.Request) {
	reqs, err := h.service.AddToDelivery(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, err, "add to delivery")
		return
	}
	h.writeJSON(w, http.StatusOK, reqs)
}
