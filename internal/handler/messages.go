package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

type messageRequest struct {
	Message string `json:"message"`
}

// Conversations возвращает список переписок пользователя.
func (h *Handler) Conversations(w http.ResponseWriter, r *http.Request) {
	convs, err := h.service.Conversations(r.Context())
	if err != nil {
		h.fail(w, err, "list conversations")
		return
	}
	h.writeJSON(w, http.StatusOK, convs)
}

// OpenConversation открывает переписку и запускает её автообновление.
func (h *Handler) OpenConversation(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.OpenConversation(r.Context(), chi.URLParam(r, "userId"))
	if err != nil {
		h.fail(w, err, "open conversation")
		return
	}
	h.writeJSON(w, http.StatusOK, view)
}

// Messages возвращает последнее состояние открытой переписки.
func (h *Handler) Messages(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.service.Messages())
}

// SendMessage отправляет сообщение в открытую переписку.
func (h *Handler) SendMessage(w http.ResponseWriter, r *http.Request) {
	var req messageRequest
	if !h.decode(w, r, &req) {
		return
	}

	view, err := h.service.SendMessage(r.Context(), req.Message)
	if err != nil {
		h.fail(w, err, "send message")
		return
	}
	h.writeJSON(w, http.StatusOK, view)
}

// LeaveConversation останавливает автообновление без закрытия переписки на сервере.
func (h *Handler) LeaveConversation(w http.ResponseWriter, r *http.Request) {
	h.service.LeaveConversation()
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) CloseConversation(w http.ResponseWriter, r *http.Request) {
	if err := h.service.CloseConversation(r.Context()); err != nil {
		h.fail(w, err, "close conversation")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
