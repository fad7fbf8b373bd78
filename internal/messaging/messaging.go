// Package messaging поддерживает открытую переписку с одним собеседником.
package messaging

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mmeshcher/woodcraft-storefront/internal/gateway"
	"github.com/mmeshcher/woodcraft-storefront/internal/model"
	"github.com/mmeshcher/woodcraft-storefront/internal/task"
	"github.com/mmeshcher/woodcraft-storefront/internal/validation"
)

const defaultRefreshInterval = 3 * time.Second

var (
	// ErrNoConversation возвращается, если переписка не открыта.
	ErrNoConversation = errors.New("no conversation is open")
	// ErrMissingPeer возвращается при попытке открыть переписку без собеседника.
	ErrMissingPeer = errors.New("conversation peer is required")
)

// Backend описывает вызовы backend, нужные сессии сообщений.
type Backend interface {
	SendMessage(ctx context.Context, toUserID, message, token string) gateway.Result[gateway.Empty]
	Messages(ctx context.Context, otherUserID, token string) gateway.Result[[]model.Message]
	Conversations(ctx context.Context, token string) gateway.Result[[]model.Conversation]
	CloseConversation(ctx context.Context, otherUserID, token string) gateway.Result[gateway.Empty]
}

// View — копия состояния открытой переписки.
type View struct {
	OtherUserID string          `json:"otherUserId"`
	Messages    []model.Message `json:"messages"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// Session хранит сообщения открытой переписки и обновляет их по таймеру.
// Одновременно работает не больше одного таймера обновления.
type Session struct {
	backend  Backend
	logger   *zap.Logger
	interval time.Duration

	mu        sync.Mutex
	peer      string
	token     string
	messages  []model.Message
	updatedAt time.Time
	epoch     uint64
	refresh   *task.Handle
}

// NewSession создаёт сессию сообщений. interval <= 0 означает 3 секунды.
func NewSession(backend Backend, logger *zap.Logger, interval time.Duration) *Session {
	if interval <= 0 {
		interval = defaultRefreshInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Session{
		backend:  backend,
		logger:   logger,
		interval: interval,
	}
}

// Open открывает переписку с otherUserID: сразу загружает сообщения и запускает обновление.
// Ранее открытая переписка закрывается. Ошибка первой загрузки не отменяет открытие.
func (s *Session) Open(ctx context.Context, otherUserID, token string) (View, error) {
	if otherUserID == "" {
		return View{}, ErrMissingPeer
	}

	s.Close()

	s.mu.Lock()
	s.epoch++
	epoch := s.epoch
	s.peer = otherUserID
	s.token = token
	s.messages = nil
	s.updatedAt = time.Time{}
	s.mu.Unlock()

	err := s.fetch(ctx, epoch)

	s.mu.Lock()
	if s.epoch == epoch && s.peer == otherUserID && s.refresh == nil {
		s.refresh = task.Every(context.Background(), s.interval, false, func(ctx context.Context) {
			if err := s.fetch(ctx, epoch); err != nil {
				s.logger.Debug("message refresh failed", zap.String("peer", otherUserID), zap.Error(err))
			}
		})
	}
	s.mu.Unlock()

	return s.View(), err
}

// Close останавливает обновление. Сообщения последней загрузки остаются доступны.
func (s *Session) Close() {
	s.mu.Lock()
	h := s.refresh
	s.refresh = nil
	s.mu.Unlock()

	h.Stop()
}

// Send отправляет сообщение в открытую переписку и затем перечитывает её.
func (s *Session) Send(ctx context.Context, text, token string) (View, error) {
	if err := validation.Message(text); err != nil {
		return s.View(), err
	}

	s.mu.Lock()
	peer, epoch := s.peer, s.epoch
	if token != "" {
		s.token = token
	}
	s.mu.Unlock()

	if peer == "" {
		return View{}, ErrNoConversation
	}

	res := s.backend.SendMessage(ctx, peer, text, token)
	if !res.Success {
		return s.View(), res.Err()
	}

	if err := s.fetch(ctx, epoch); err != nil {
		s.logger.Warn("refetch after send failed", zap.String("peer", peer), zap.Error(err))
	}
	return s.View(), nil
}

// View возвращает сообщения последней успешной загрузки.
func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()

	msgs := make([]model.Message, len(s.messages))
	copy(msgs, s.messages)
	return View{OtherUserID: s.peer, Messages: msgs, UpdatedAt: s.updatedAt}
}

// Conversations возвращает список переписок пользователя.
func (s *Session) Conversations(ctx context.Context, token string) ([]model.Conversation, error) {
	res := s.backend.Conversations(ctx, token)
	if !res.Success {
		return nil, res.Err()
	}
	if res.Data == nil {
		return []model.Conversation{}, nil
	}
	return res.Data, nil
}

// CloseConversation закрывает открытую переписку на стороне backend и останавливает обновление.
func (s *Session) CloseConversation(ctx context.Context, token string) error {
	s.mu.Lock()
	peer := s.peer
	s.mu.Unlock()

	if peer == "" {
		return ErrNoConversation
	}

	res := s.backend.CloseConversation(ctx, peer, token)
	if !res.Success {
		return res.Err()
	}

	s.Close()

	s.mu.Lock()
	s.peer = ""
	s.messages = nil
	s.updatedAt = time.Time{}
	s.mu.Unlock()

	return nil
}

// Reset останавливает обновление и забывает переписку.
func (s *Session) Reset() {
	s.Close()

	s.mu.Lock()
	s.peer = ""
	s.token = ""
	s.messages = nil
	s.updatedAt = time.Time{}
	s.mu.Unlock()
}

// fetch загружает сообщения и сохраняет их, только если переписка не сменилась за время запроса.
func (s *Session) fetch(ctx context.Context, epoch uint64) error {
	s.mu.Lock()
	peer, token := s.peer, s.token
	s.mu.Unlock()

	res := s.backend.Messages(ctx, peer, token)
	if !res.Success {
		return res.Err()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.epoch != epoch || s.peer != peer {
		return nil
	}
	s.messages = res.Data
	s.updatedAt = time.Now()
	return nil
}
