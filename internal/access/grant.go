package access

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/mmeshcher/woodcraft-storefront/internal/gateway"
	"github.com/mmeshcher/woodcraft-storefront/internal/model"
)

// GrantBackend описывает вызовы backend для собственного доступа пользователя.
type GrantBackend interface {
	CheckAIAccess(ctx context.Context, token string) gateway.Result[model.AccessGrant]
	RequestAIAccess(ctx context.Context, token string) gateway.Result[gateway.Empty]
}

// GrantMonitor хранит последнее известное право пользователя на AI-генерацию.
// Значение носит информационный характер: перед генерацией доступ проверяется заново.
type GrantMonitor struct {
	backend GrantBackend
	m       *monitor[model.AccessGrant]
}

// NewGrantMonitor создаёт монитор; interval <= 0 означает 60 секунд.
func NewGrantMonitor(backend GrantBackend, logger *zap.Logger, interval time.Duration) *GrantMonitor {
	if interval <= 0 {
		interval = time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GrantMonitor{
		backend: backend,
		m: &monitor[model.AccessGrant]{
			name:     "ai_access",
			interval: interval,
			logger:   logger,
			load:     backend.CheckAIAccess,
		},
	}
}

// Start запускает периодическое обновление; первое выполняется сразу.
func (g *GrantMonitor) Start(token string) { g.m.start(token) }

// Stop останавливает обновление и сбрасывает сохранённое значение.
func (g *GrantMonitor) Stop() { g.m.reset() }

// Running сообщает, что обновление запущено.
func (g *GrantMonitor) Running() bool { return g.m.running() }

// Latest возвращает последнее загруженное значение и время загрузки.
func (g *GrantMonitor) Latest() (model.AccessGrant, time.Time) {
	return g.m.latest()
}

// Refresh немедленно перечитывает доступ.
func (g *GrantMonitor) Refresh(ctx context.Context, token string) (model.AccessGrant, error) {
	return g.m.refresh(ctx, token)
}

// RequestAccess отправляет запрос на доступ и отмечает его как ожидающий решения.
func (g *GrantMonitor) RequestAccess(ctx context.Context, token string) (model.AccessGrant, error) {
	res := g.backend.RequestAIAccess(ctx, token)
	if !res.Success {
		return model.AccessGrant{}, res.Err()
	}

	g.m.update(func(v *model.AccessGrant) {
		v.RequestPending = true
	})
	grant, _ := g.m.latest()
	return grant, nil
}
