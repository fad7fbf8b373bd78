package access

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/mmeshcher/woodcraft-storefront/internal/gateway"
	"github.com/mmeshcher/woodcraft-storefront/internal/model"
	"github.com/mmeshcher/woodcraft-storefront/internal/validation"
)

// RequestsBackend описывает административные вызовы backend для запросов на доступ.
type RequestsBackend interface {
	ListAIAccessRequests(ctx context.Context, token string) gateway.Result[[]model.AccessRequest]
	GrantAIAccess(ctx context.Context, userID string, hours int, token string) gateway.Result[gateway.Empty]
	RejectAIAccess(ctx context.Context, requestID, reason, token string) gateway.Result[gateway.Empty]
}

// RequestsMonitor поддерживает у администратора актуальный список запросов на доступ к AI.
type RequestsMonitor struct {
	backend RequestsBackend
	m       *monitor[[]model.AccessRequest]
}

// NewRequestsMonitor создаёт монитор; interval <= 0 означает 30 секунд.
func NewRequestsMonitor(backend RequestsBackend, logger *zap.Logger, interval time.Duration) *RequestsMonitor {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RequestsMonitor{
		backend: backend,
		m: &monitor[[]model.AccessRequest]{
			name:     "ai_access_requests",
			interval: interval,
			logger:   logger,
			load:     backend.ListAIAccessRequests,
		},
	}
}

// Start запускает периодическое обновление; первое выполняется сразу.
func (r *RequestsMonitor) Start(token string) { r.m.start(token) }

// Stop останавливает обновление и сбрасывает список.
func (r *RequestsMonitor) Stop() { r.m.reset() }

// Running сообщает, что обновление запущено.
func (r *RequestsMonitor) Running() bool { return r.m.running() }

// Latest возвращает копию последнего загруженного списка.
func (r *RequestsMonitor) Latest() ([]model.AccessRequest, time.Time) {
	list, at := r.m.latest()
	out := make([]model.AccessRequest, len(list))
	copy(out, list)
	return out, at
}

// Refresh немедленно перечитывает список.
func (r *RequestsMonitor) Refresh(ctx context.Context, token string) ([]model.AccessRequest, error) {
	list, err := r.m.refresh(ctx, token)
	if err != nil {
		return nil, err
	}
	out := make([]model.AccessRequest, len(list))
	copy(out, list)
	return out, nil
}

// Grant выдаёт доступ на hours часов и перечитывает список.
func (r *RequestsMonitor) Grant(ctx context.Context, userID string, hours int, token string) ([]model.AccessRequest, error) {
	if err := validation.Hours(hours); err != nil {
		return nil, err
	}

	res := r.backend.GrantAIAccess(ctx, userID, hours, token)
	if !res.Success {
		return nil, res.Err()
	}
	return r.Refresh(ctx, token)
}

// Reject отклоняет запрос с указанием причины и перечитывает список.
func (r *RequestsMonitor) Reject(ctx context.Context, requestID, reason, token string) ([]model.AccessRequest, error) {
	if err := validation.Reason(reason); err != nil {
		return nil, err
	}

	res := r.backend.RejectAIAccess(ctx, requestID, reason, token)
	if !res.Success {
		return nil, res.Err()
	}
	return r.Refresh(ctx, token)
}
