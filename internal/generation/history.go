package generation

import (
	"context"
	"sync"

	"github.com/mmeshcher/woodcraft-storefront/internal/model"
)

// MemoryHistory хранит историю генераций в памяти процесса.
type MemoryHistory struct {
	mu     sync.Mutex
	nextID int64
	byUser map[string][]model.HistoryRecord
}

// NewMemoryHistory создаёт пустую историю.
func NewMemoryHistory() *MemoryHistory {
	return &MemoryHistory{byUser: make(map[string][]model.HistoryRecord)}
}

// Append добавляет запись и присваивает ей идентификатор.
func (h *MemoryHistory) Append(_ context.Context, rec model.HistoryRecord) (model.HistoryRecord, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.nextID++
	rec.ID = h.nextID
	h.byUser[rec.UserID] = append(h.byUser[rec.UserID], rec)
	return rec, nil
}

// List возвращает копию истории пользователя в порядке добавления.
func (h *MemoryHistory) List(_ context.Context, userID string) ([]model.HistoryRecord, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	recs := h.byUser[userID]
	out := make([]model.HistoryRecord, len(recs))
	copy(out, recs)
	return out, nil
}
