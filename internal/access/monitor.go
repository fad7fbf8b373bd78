// Package access отслеживает доступ к AI-генерации: собственный доступ пользователя
// и очередь запросов на доступ для администратора.
package access

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mmeshcher/woodcraft-storefront/internal/gateway"
	"github.com/mmeshcher/woodcraft-storefront/internal/task"
)

// monitor периодически загружает значение T и хранит последний успешный результат.
type monitor[T any] struct {
	name     string
	interval time.Duration
	logger   *zap.Logger
	load     func(ctx context.Context, token string) gateway.Result[T]

	mu        sync.Mutex
	value     T
	updatedAt time.Time
	token     string
	handle    *task.Handle
}

func (m *monitor[T]) start(token string) {
	m.stop()

	m.mu.Lock()
	defer m.mu.Unlock()

	m.token = token
	m.handle = task.Every(context.Background(), m.interval, true, func(ctx context.Context) {
		m.mu.Lock()
		tok := m.token
		m.mu.Unlock()

		if _, err := m.refresh(ctx, tok); err != nil {
			m.logger.Debug("background refresh failed", zap.String("monitor", m.name), zap.Error(err))
		}
	})
}

func (m *monitor[T]) stop() {
	m.mu.Lock()
	h := m.handle
	m.handle = nil
	m.mu.Unlock()

	h.Stop()
}

func (m *monitor[T]) reset() {
	m.stop()

	m.mu.Lock()
	var zero T
	m.value = zero
	m.updatedAt = time.Time{}
	m.token = ""
	m.mu.Unlock()
}

func (m *monitor[T]) refresh(ctx context.Context, token string) (T, error) {
	res := m.load(ctx, token)
	if !res.Success {
		var zero T
		return zero, res.Err()
	}

	m.mu.Lock()
	m.value = res.Data
	m.updatedAt = time.Now()
	m.mu.Unlock()

	return res.Data, nil
}

func (m *monitor[T]) latest() (T, time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.value, m.updatedAt
}

func (m *monitor[T]) update(fn func(v *T)) {
	m.mu.Lock()
	fn(&m.value)
	m.mu.Unlock()
}

func (m *monitor[T]) running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.handle != nil
}
