package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

type grantRequest struct {
	UserID string `json:"userId"`
	Hours  int    `json:"hours"`
}

// AccessRequests возвращает запросы на доступ к AI, ожидающие решения.
func (h *Handler) AccessRequests(w http.ResponseWriter, r *http.Request) {
	reqs, err := h.service.AccessRequests(r.Context())
	if err != nil {
		h.fail(w, err, "list access requests")
		return
	}
	h.writeJSON(w, http.StatusOK, reqs)
}

// GrantAccess выдаёт пользователю доступ к AI на заданное число часов.
func (h *Handler) GrantAccess(w http.ResponseWriter, r *http.Request) {
	var req grantRequest
	if !h.decode(w, r, &req) {
		return
	}

	reqs, err := h.service.GrantAccess(r.Context(), req.UserID, req.Hours)
	if err != nil {
		h.fail(w, err, "grant access")
		return
	}
	h.writeJSON(w, http.StatusOK, reqs)
}

// RejectAccess отклоняет запрос на доступ.
func (h *Handler) RejectAccess(w http.ResponseWriter, r *http.Request) {
	var req reasonRequest
	if !h.decode(w, r, &req) {
		return
	}

	reqs, err := h.service.RejectAccess(r.Context(), chi.URLParam(r, "id"), req.Reason)
	if err != nil {
		h.fail(w, err, "reject access")
		return
	}
	h.writeJSON(w, http.StatusOK, reqs)
}
