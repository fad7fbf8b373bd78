// Package handler содержит HTTP-обработчики JSON API клиента магазина WoodCraft.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mmeshcher/woodcraft-storefront/internal/gateway"
	"github.com/mmeshcher/woodcraft-storefront/internal/generation"
	"github.com/mmeshcher/woodcraft-storefront/internal/messaging"
	"github.com/mmeshcher/woodcraft-storefront/internal/middleware"
	"github.com/mmeshcher/woodcraft-storefront/internal/model"
	"github.com/mmeshcher/woodcraft-storefront/internal/service"
	"github.com/mmeshcher/woodcraft-storefront/internal/session"
	"github.com/mmeshcher/woodcraft-storefront/internal/validation"
)

const maxBodySize = 25 << 20

// Service определяет контракт, используемый HTTP-обработчиками.
type Service interface {
	Signup(ctx context.Context, email, username, password string) error
	VerifyEmail(ctx context.Context, email, code string) error
	Login(ctx context.Context, identifier, password string) (model.Identity, error)
	Logout()
	Identity() (model.Identity, bool)
	Authenticated() bool
	IsAdmin() bool

	Furniture(ctx context.Context, category string) ([]model.FurnitureItem, error)
	SearchFurniture(ctx context.Context, query string) ([]model.FurnitureItem, error)
	FurnitureItem(ctx context.Context, id string) (model.FurnitureItem, error)
	CreateFurniture(ctx context.Context, item model.FurnitureItem) (model.FurnitureItem, error)

	Cart() service.CartView
	AddToCart(ctx context.Context, itemID string) (service.CartView, error)
	RemoveFromCart(itemID string) service.CartView
	SetCartQuantity(itemID string, quantity int) (service.CartView, error)
	ClearCart() service.CartView

	StartGeneration(ctx context.Context, roomImage, prompt string) (generation.Snapshot, error)
	Generation() generation.Snapshot
	WaitGeneration(ctx context.Context) (generation.Snapshot, error)
	CancelGeneration() generation.Snapshot
	GenerationHistory(ctx context.Context) ([]model.HistoryRecord, error)

	Access(ctx context.Context) (service.AccessView, error)
	RequestAccess(ctx context.Context) (service.AccessView, error)
	AccessRequests(ctx context.Context) ([]model.AccessRequest, error)
	GrantAccess(ctx context.Context, userID string, hours int) ([]model.AccessRequest, error)
	RejectAccess(ctx context.Context, requestID, reason string) ([]model.AccessRequest, error)

	SubmitCustomRequest(ctx context.Context, in service.CustomRequestInput) (model.CustomRequest, error)
	CustomRequests(ctx context.Context) ([]model.CustomRequest, error)
	SelectRequest(ctx context.Context, requestID string) (model.CustomRequest, error)
	SelectedRequest() (string, bool)
	SendInvoice(ctx context.Context, requestID string, amount decimal.Decimal) ([]model.CustomRequest, error)
	RejectRequest(ctx context.Context, requestID, reason string) ([]model.CustomRequest, error)
	AddToDelivery(ctx context.Context, requestID string) ([]model.CustomRequest, error)

	Conversations(ctx context.Context) ([]model.Conversation, error)
	OpenConversation(ctx context.Context, otherUserID string) (messaging.View, error)
	Messages() messaging.View
	SendMessage(ctx context.Context, text string) (messaging.View, error)
	LeaveConversation()
	CloseConversation(ctx context.Context) error
}

// Handler реализует HTTP-обработчики API клиента магазина.
type Handler struct {
	service        Service
	logger         *zap.Logger
	authMiddleware *middleware.AuthMiddleware
}

// NewHandler создаёт новый экземпляр обработчика HTTP-запросов.
func NewHandler(s Service, logger *zap.Logger, auth *middleware.AuthMiddleware) *Handler {
	return &Handler{
		service:        s,
		logger:         logger,
		authMiddleware: auth,
	}
}

type response struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(response{Success: true, Data: data}); err != nil {
		h.logger.Error("encode response", zap.Error(err))
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(response{Error: msg}); err != nil {
		h.logger.Error("encode response", zap.Error(err))
	}
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		h.writeError(w, http.StatusBadRequest, "malformed request body")
		return false
	}
	return true
}

// fail переводит ошибку сервиса в HTTP-статус.
func (h *Handler) fail(w http.ResponseWriter, err error, op string) {
	var gwErr *gateway.Error

	switch {
	case errors.Is(err, session.ErrNotAuthenticated), gateway.IsUnauthorized(err):
		h.authMiddleware.ClearAuthCookie(w)
		h.writeError(w, http.StatusUnauthorized, "session expired, please log in again")
	case errors.Is(err, service.ErrForbidden), errors.Is(err, generation.ErrNoAIAccess):
		h.writeError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, service.ErrItemNotInCart), errors.Is(err, messaging.ErrNoConversation):
		h.writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, validation.ErrInvalidInput), errors.Is(err, messaging.ErrMissingPeer):
		h.writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, generation.ErrClosed):
		h.writeError(w, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, generation.ErrSubmitFailed), errors.As(err, &gwErr):
		h.logger.Warn(op+" failed", zap.Error(err))
		h.writeError(w, http.StatusBadGateway, backendMessage(err))
	default:
		h.logger.Error(op+" error", zap.Error(err))
		h.writeError(w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
	}
}

func backendMessage(err error) string {
	var gwErr *gateway.Error
	if errors.As(err, &gwErr) && gwErr.Message != "" {
		return gwErr.Message
	}
	return err.Error()
}
