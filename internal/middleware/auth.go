// Package middleware содержит HTTP middleware клиента магазина WoodCraft.
package middleware

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/mmeshcher/woodcraft-storefront/internal/model"
)

type contextKey string

const userIDKey contextKey = "userID"

const (
	authCookieName = "woodcraft_session"
	authCookieTTL  = 7 * 24 * time.Hour
)

// Sessions описывает состояние сессии, с которым сверяется cookie.
type Sessions interface {
	Identity() (model.Identity, bool)
	Authenticated() bool
	IsAdmin() bool
}

// AuthMiddleware проверяет подписанный cookie и действующую сессию.
type AuthMiddleware struct {
	secretKey []byte
	sessions  Sessions
}

// NewAuthMiddleware создаёт AuthMiddleware. При пустом secret ключ генерируется случайно
// и cookie перестают быть действительными после перезапуска.
func NewAuthMiddleware(secret string, sessions Sessions) *AuthMiddleware {
	key := []byte(secret)
	if len(key) == 0 {
		randomKey := make([]byte, 32)
		if _, err := rand.Read(randomKey); err == nil {
			key = randomKey
		} else {
			key = []byte("woodcraft-storefront")
		}
	}

	return &AuthMiddleware{
		secretKey: key,
		sessions:  sessions,
	}
}

// Middleware пропускает запрос, только если cookie подписан этим ключом, сессия действительна
// и принадлежит тому же пользователю. Идентификатор пользователя кладётся в контекст.
func (a *AuthMiddleware) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(authCookieName)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "not authenticated")
			return
		}

		userID, ok := a.parseCookie(cookie.Value)
		if !ok {
			writeError(w, http.StatusUnauthorized, "not authenticated")
			return
		}

		identity, ok := a.sessions.Identity()
		if !ok || identity.UserID != userID || !a.sessions.Authenticated() {
			writeError(w, http.StatusUnauthorized, "session expired, please log in again")
			return
		}

		ctx := context.WithValue(r.Context(), userIDKey, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAdmin пропускает только запросы администратора. Ставится после Middleware.
func (a *AuthMiddleware) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !a.sessions.IsAdmin() {
			writeError(w, http.StatusForbidden, "admin access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// SetAuthCookie устанавливает cookie сессии для указанного пользователя.
func (a *AuthMiddleware) SetAuthCookie(w http.ResponseWriter, userID string) {
	http.SetCookie(w, &http.Cookie{
		Name:     authCookieName,
		Value:    a.sign(userID),
		Path:     "/",
		Expires:  time.Now().Add(authCookieTTL),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearAuthCookie удаляет cookie сессии.
func (a *AuthMiddleware) ClearAuthCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     authCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// sign кодирует идентификатор в base64, так как он может содержать точку.
func (a *AuthMiddleware) sign(userID string) string {
	encoded := base64.RawURLEncoding.EncodeToString([]byte(userID))
	return encoded + "." + a.signature(encoded)
}

func (a *AuthMiddleware) signature(encoded string) string {
	mac := hmac.New(sha256.New, a.secretKey)
	mac.Write([]byte(encoded))
	return hex.EncodeToString(mac.Sum(nil))
}

func (a *AuthMiddleware) parseCookie(value string) (string, bool) {
	encoded, sig, ok := strings.Cut(value, ".")
	if !ok || encoded == "" {
		return "", false
	}

	if !hmac.Equal([]byte(sig), []byte(a.signature(encoded))) {
		return "", false
	}

	raw, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil || len(raw) == 0 {
		return "", false
	}

	return string(raw), true
}

// GetUserIDFromContext извлекает идентификатор пользователя из контекста запроса.
func GetUserIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userIDKey).(string)
	return id, ok
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"success": false,
		"error":   msg,
	})
}
