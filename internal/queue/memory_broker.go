package queue

import (
	"context"
	"sync"

	model "task-board.com/task-board/internal/models"
)

// MemoryBroker delivers within a single process. It is used when no redis
// address is configured.
type MemoryBroker struct {
	mu       sync.RWMutex
	next     int
	handlers map[int]func(model.Notification)
}

func NewMemoryBroker() *MemoryBroker {
	return &MemoryBroker{handlers: make(map[int]func(model.Notification))}
}

func (m *MemoryBroker) Publish(ctx context.Context, n model.Notification) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, h := range m.handlers {
		h(n)
	}
	return nil
}

func (m *MemoryBroker) Subscribe(handler func(model.Notification)) (func(), error) {
	m.mu.Lock()
	id := m.next
	m.next++
	m.handlers[id] = handler
	m.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			delete(m.handlers, id)
			m.mu.Unlock()
		})
	}, nil
}
