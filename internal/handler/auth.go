package handler

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/mmeshcher/woodcraft-storefront/internal/gateway"
	"github.com/mmeshcher/woodcraft-storefront/internal/model"
)

type signupRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

type verifyRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

type loginRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

type sessionResponse struct {
	Authenticated bool            `json:"authenticated"`
	IsAdmin       bool            `json:"isAdmin"`
	User          *model.Identity `json:"user,omitempty"`
}

// Signup регистрирует нового пользователя.
func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if !h.decode(w, r, &req) {
		return
	}

	if err := h.service.Signup(r.Context(), req.Email, req.Username, req.Password); err != nil {
		h.fail(w, err, "signup")
		return
	}

	h.writeJSON(w, http.StatusCreated, map[string]string{
		"message": "Account created. Check your email for the verification code.",
	})
}

// VerifyEmail подтверждает адрес электронной почты.
func (h *Handler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if !h.decode(w, r, &req) {
		return
	}

	if err := h.service.VerifyEmail(r.Context(), req.Email, req.Code); err != nil {
		h.fail(w, err, "verify email")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{"message": "Email verified. You can log in now."})
}

// Login выполняет вход и устанавливает cookie сессии.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !h.decode(w, r, &req) {
		return
	}

	identity, err := h.service.Login(r.Context(), req.Identifier, req.Password)
	if err != nil {
		var gwErr *gateway.Error
		if errors.As(err, &gwErr) && gwErr.Kind != gateway.KindTransport {
			h.writeError(w, http.StatusUnauthorized, backendMessage(err))
			return
		}
		h.fail(w, err, "login")
		return
	}

	h.authMiddleware.SetAuthCookie(w, identity.UserID)
	h.logger.Debug("session cookie issued", zap.String("userID", identity.UserID))

	h.writeJSON(w, http.StatusOK, sessionResponse{
		Authenticated: true,
		IsAdmin:       identity.IsAdmin(),
		User:          &identity,
	})
}

// Logout завершает сессию и удаляет cookie.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	h.service.Logout()
	h.authMiddleware.ClearAuthCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

// Session возвращает состояние сессии.
func (h *Handler) Session(w http.ResponseWriter, r *http.Request) {
	resp := sessionResponse{
		Authenticated: h.service.Authenticated(),
		IsAdmin:       h.service.IsAdmin(),
	}
	if identity, ok := h.service.Identity(); ok && resp.Authenticated {
		resp.User = &identity
	}
	h.writeJSON(w, http.StatusOK, resp)
}
