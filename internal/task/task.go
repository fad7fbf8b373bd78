// Package task предоставляет отменяемое периодическое действие.
package task

import (
	"context"
	"sync"
	"time"
)

// Handle управляет запущенным периодическим действием.
type Handle struct {
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// Every запускает fn каждые interval до отмены ctx или вызова Stop.
// Если immediate равен true, первый вызов выполняется сразу.
// fn никогда не выполняется параллельно сама с собой: следующий тик ждёт завершения предыдущего вызова.
func Every(ctx context.Context, interval time.Duration, immediate bool, fn func(ctx context.Context)) *Handle {
	ctx, cancel := context.WithCancel(ctx)
	h := &Handle{
		cancel: cancel,
		done:   make(chan struct{}),
	}

	go func() {
		defer close(h.done)

		if immediate {
			fn(ctx)
		}

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if ctx.Err() != nil {
					return
				}
				fn(ctx)
			}
		}
	}()

	return h
}

// Stop отменяет действие и ждёт выхода из цикла. Повторный вызов безопасен.
// Stop нельзя вызывать из самого fn: используйте отмену контекста.
func (h *Handle) Stop() {
	if h == nil {
		return
	}
	h.once.Do(h.cancel)
	<-h.done
}

// Done закрывается после выхода из цикла.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}
