package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/mmeshcher/woodcraft-storefront/internal/middleware"
)

const maxWait = 60 * time.Second

type generationRequest struct {
	RoomImage string `json:"roomImage"`
	Prompt    string `json:"prompt"`
}

// StartGeneration запускает генерацию дизайна комнаты.
func (h *Handler) StartGeneration(w http.ResponseWriter, r *http.Request) {
	var req generationRequest
	if !h.decode(w, r, &req) {
		return
	}

	snap, err := h.service.StartGeneration(r.Context(), req.RoomImage, req.Prompt)
	if err != nil {
		h.fail(w, err, "start generation")
		return
	}

	userID, _ := middleware.GetUserIDFromContext(r.Context())
	h.logger.Info("generation started",
		zap.String("userID", userID),
		zap.Uint64("attempt", snap.Attempt),
	)
	h.writeJSON(w, http.StatusAccepted, snap)
}

// GetGeneration возвращает состояние генерации. Параметр wait (например, 30s)
// задерживает ответ до завершения попытки, но не дольше минуты.
func (h *Handler) GetGeneration(w http.ResponseWriter, r *http.Request) {
	waitParam := r.URL.Query().Get("wait")
	if waitParam == "" {
		h.writeJSON(w, http.StatusOK, h.service.Generation())
		return
	}

	wait, err := time.ParseDuration(waitParam)
	if err != nil || wait <= 0 {
		h.writeError(w, http.StatusBadRequest, "wait must be a positive duration")
		return
	}
	wait = min(wait, maxWait)

	ctx, cancel := context.WithTimeout(r.Context(), wait)
	defer cancel()

	snap, err := h.service.WaitGeneration(ctx)
	if err != nil && !errors.Is(err, context.DeadlineExceeded) {
		h.fail(w, err, "wait generation")
		return
	}
	h.writeJSON(w, http.StatusOK, snap)
}

// CancelGeneration останавливает текущую генерацию.
func (h *Handler) CancelGeneration(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.service.CancelGeneration())
}

// GenerationHistory возвращает историю генераций пользователя.
func (h *Handler) GenerationHistory(w http.ResponseWriter, r *http.Request) {
	recs, err := h.service.GenerationHistory(r.Context())
	if err != nil {
		h.fail(w, err, "generation history")
		return
	}
	h.writeJSON(w, http.StatusOK, recs)
}

// GetAccess возвращает право пользователя на AI-генерацию.
func (h *Handler) GetAccess(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.Access(r.Context())
	if err != nil {
		h.fail(w, err, "check ai access")
		return
	}
	h.writeJSON(w, http.StatusOK, view)
}

// RequestAccess отправляет запрос на доступ к AI.
func (h *Handler) RequestAccess(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.RequestAccess(r.Context())
	if err != nil {
		h.fail(w, err, "request ai access")
		return
	}
	h.writeJSON(w, http.StatusAccepted, view)
}
