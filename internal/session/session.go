// Package session хранит состояние аутентификации текущего пользователя.
package session

import (
	"context"
	"errors"
	"sync"

	"github.com/mmeshcher/woodcraft-storefront/internal/gateway"
	"github.com/mmeshcher/woodcraft-storefront/internal/model"
)

// ErrNotAuthenticated возвращается, если вход не выполнен или учётные данные аннулированы.
var ErrNotAuthenticated = errors.New("not authenticated")

// Authenticator описывает вызов backend, выполняющий вход.
type Authenticator interface {
	Login(ctx context.Context, identifier, password string) gateway.Result[gateway.LoginData]
}

// State содержит идентичность, bearer-токен и признак администратора.
// Изменяется только методами Login, Logout и Invalidate.
type State struct {
	auth Authenticator

	mu       sync.RWMutex
	identity *model.Identity
	token    string
}

// New создаёт пустое состояние сессии.
func New(auth Authenticator) *State {
	return &State{auth: auth}
}

// Login выполняет вход через backend. При неудаче прежнее состояние не меняется,
// а сообщение backend возвращается в ошибке.
func (s *State) Login(ctx context.Context, identifier, password string) (model.Identity, error) {
	res := s.auth.Login(ctx, identifier, password)
	if !res.Success {
		return model.Identity{}, res.Err()
	}

	identity := res.Data.Identity

	s.mu.Lock()
	s.identity = &identity
	s.token = res.Data.Token
	s.mu.Unlock()

	return identity, nil
}

// Logout безусловно очищает идентичность, токен и признак администратора.
func (s *State) Logout() {
	s.mu.Lock()
	s.identity = nil
	s.token = ""
	s.mu.Unlock()
}

// Invalidate отбрасывает токен после того, как backend сообщил об ошибке авторизации.
func (s *State) Invalidate() {
	s.mu.Lock()
	s.token = ""
	s.mu.Unlock()
}

// Identity возвращает копию идентичности текущего пользователя.
func (s *State) Identity() (model.Identity, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.identity == nil {
		return model.Identity{}, false
	}
	return *s.identity, true
}

// Token возвращает bearer-токен или ErrNotAuthenticated.
func (s *State) Token() (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.identity == nil || s.token == "" {
		return "", ErrNotAuthenticated
	}
	return s.token, nil
}

// IsAdmin сообщает, что в сессии находится администратор.
func (s *State) IsAdmin() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.identity != nil && s.identity.IsAdmin()
}

// Authenticated сообщает, что вход выполнен и токен действителен.
func (s *State) Authenticated() bool {
	_, err := s.Token()
	return err == nil
}
