// Package service связывает состояние клиента магазина WoodCraft: сессию, корзину,
// генерацию, переписку и мониторы доступа. Единственный владелец этого состояния.
package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mmeshcher/woodcraft-storefront/internal/access"
	"github.com/mmeshcher/woodcraft-storefront/internal/cart"
	"github.com/mmeshcher/woodcraft-storefront/internal/gateway"
	"github.com/mmeshcher/woodcraft-storefront/internal/generation"
	"github.com/mmeshcher/woodcraft-storefront/internal/messaging"
	"github.com/mmeshcher/woodcraft-storefront/internal/model"
	"github.com/mmeshcher/woodcraft-storefront/internal/session"
	"github.com/mmeshcher/woodcraft-storefront/internal/validation"
)

// ErrForbidden возвращается, если операция доступна только администратору.
var ErrForbidden = errors.New("admin access required")

// Backend описывает контракт backend магазина, используемый сервисом.
// *gateway.Client реализует его полностью.
type Backend interface {
	session.Authenticator
	generation.Backend
	messaging.Backend
	access.GrantBackend
	access.RequestsBackend

	Signup(ctx context.Context, email, username, password string) gateway.Result[gateway.Empty]
	VerifyEmail(ctx context.Context, email, code string) gateway.Result[gateway.Empty]

	ListFurniture(ctx context.Context, category string) gateway.Result[[]model.FurnitureItem]
	SearchFurniture(ctx context.Context, query string) gateway.Result[[]model.FurnitureItem]
	GetFurniture(ctx context.Context, id string) gateway.Result[model.FurnitureItem]
	CreateFurniture(ctx context.Context, item model.FurnitureItem, token string) gateway.Result[model.FurnitureItem]

	CreateCustomRequest(ctx context.Context, req model.CustomRequest, token string) gateway.Result[model.CustomRequest]
	ListCustomRequests(ctx context.Context, token string) gateway.Result[[]model.CustomRequest]
	SendInvoice(ctx context.Context, requestID string, amount decimal.Decimal, token string) gateway.Result[gateway.Empty]
	RejectRequest(ctx context.Context, requestID, reason, token string) gateway.Result[gateway.Empty]
	AddToDelivery(ctx context.Context, requestID, token string) gateway.Result[gateway.Empty]
}

// Options задаёт интервалы фоновых обновлений и стоимость доставки.
type Options struct {
	PollInterval          time.Duration
	MaxPolls              int
	MessageRefresh        time.Duration
	AccessRefresh         time.Duration
	AccessRequestsRefresh time.Duration
	ShippingFee           decimal.Decimal
}

// Service содержит состояние клиента магазина и операции над ним.
type Service struct {
	backend Backend
	logger  *zap.Logger

	session    *session.State
	cart       *cart.Cart
	generation *generation.Controller
	messages   *messaging.Session
	grant      *access.GrantMonitor
	requests   *access.RequestsMonitor

	mu       sync.Mutex
	custom   []model.CustomRequest
	cached   bool
	selected string
}

// NewService создаёт сервис. protector и history могут быть nil:
// тогда изображения не защищаются, а история хранится в памяти.
func NewService(backend Backend, protector generation.Protector, history generation.HistoryStore, logger *zap.Logger, opts Options) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Service{
		backend: backend,
		logger:  logger,
		session: session.New(backend),
		cart:    cart.New(opts.ShippingFee),
		generation: generation.NewController(backend, protector, history, logger.Named("generation"), generation.Options{
			PollInterval: opts.PollInterval,
			MaxPolls:     opts.MaxPolls,
		}),
		messages: messaging.NewSession(backend, logger.Named("messaging"), opts.MessageRefresh),
		grant:    access.NewGrantMonitor(backend, logger.Named("access"), opts.AccessRefresh),
		requests: access.NewRequestsMonitor(backend, logger.Named("access_requests"), opts.AccessRequestsRefresh),
	}
}

// Close останавливает все фоновые процессы сервиса.
func (s *Service) Close() error {
	s.generation.Close()
	s.messages.Reset()
	s.grant.Stop()
	s.requests.Stop()
	return nil
}

// Signup регистрирует нового пользователя.
func (s *Service) Signup(ctx context.Context, email, username, password string) error {
	if err := validation.Signup(email, username, password); err != nil {
		return err
	}
	return s.backend.Signup(ctx, email, username, password).Err()
}

// VerifyEmail подтверждает адрес электронной почты кодом из письма.
func (s *Service) VerifyEmail(ctx context.Context, email, code string) error {
	if err := validation.Verification(email, code); err != nil {
		return err
	}
	return s.backend.VerifyEmail(ctx, email, code).Err()
}

// Login выполняет вход и запускает фоновые обновления доступа.
// Состояние предыдущего пользователя сбрасывается только после успешного входа.
func (s *Service) Login(ctx context.Context, identifier, password string) (model.Identity, error) {
	if err := validation.Credentials(identifier, password); err != nil {
		return model.Identity{}, err
	}

	prev, hadPrev := s.session.Identity()

	identity, err := s.session.Login(ctx, identifier, password)
	if err != nil {
		return model.Identity{}, err
	}

	if hadPrev && prev.UserID != identity.UserID {
		s.resetUserState()
	}

	token, _ := s.session.Token()
	s.grant.Start(token)
	if identity.IsAdmin() {
		s.requests.Start(token)
	} else {
		s.requests.Stop()
	}

	s.logger.Info("user logged in", zap.String("userID", identity.UserID), zap.String("role", string(identity.Role)))
	return identity, nil
}

// Logout завершает сессию: останавливает фоновые процессы, отменяет генерацию,
// закрывает переписку и очищает корзину.
func (s *Service) Logout() {
	s.resetUserState()
	s.session.Logout()
}

// Identity возвращает пользователя текущей сессии.
func (s *Service) Identity() (model.Identity, bool) {
	return s.session.Identity()
}

// Authenticated сообщает, что сессия действительна.
func (s *Service) Authenticated() bool {
	return s.session.Authenticated()
}

// IsAdmin сообщает, что в сессии администратор.
func (s *Service) IsAdmin() bool {
	return s.session.IsAdmin()
}

func (s *Service) resetUserState() {
	s.generation.Reset()
	s.messages.Reset()
	s.grant.Stop()
	s.requests.Stop()
	s.cart.Clear()

	s.mu.Lock()
	s.custom = nil
	s.cached = false
	s.selected = ""
	s.mu.Unlock()
}

func (s *Service) token() (string, error) {
	return s.session.Token()
}

func (s *Service) adminToken() (string, error) {
	token, err := s.session.Token()
	if err != nil {
		return "", err
	}
	if !s.session.IsAdmin() {
		return "", ErrForbidden
	}
	return token, nil
}

// check аннулирует учётные данные, если backend отклонил их в ответ на действие пользователя.
func (s *Service) check(err error) error {
	if gateway.IsUnauthorized(err) {
		s.logger.Warn("backend rejected credentials, session invalidated")
		s.session.Invalidate()
		s.grant.Stop()
		s.requests.Stop()
		s.messages.Close()
		return errors.Join(session.ErrNotAuthenticated, err)
	}
	return err
}
