// Package bus broadcasts auth flow announcements between tabs. Delivery is
// best effort; a missed message is covered by reading the durable flag.
package bus

import (
	"context"
	"sync"

	"lostfound/internal/crosstab/models"
)

// InMemoryBus delivers synchronously to every subscriber in the process.
type InMemoryBus struct {
	mu   sync.Mutex
	subs map[int]func(models.Message)
	next int
}

func NewInMemory() *InMemoryBus {
	return &InMemoryBus{subs: make(map[int]func(models.Message))}
}

func (b *InMemoryBus) Publish(_ context.Context, msg models.Message) error {
	b.mu.Lock()
	handlers := make([]func(models.Message), 0, len(b.subs))
	for _, fn := range b.subs {
		handlers = append(handlers, fn)
	}
	b.mu.Unlock()
	for _, fn := range handlers {
		fn(msg)
	}
	return nil
}

func (b *InMemoryBus) Subscribe(_ context.Context, fn func(models.Message)) (func(), error) {
	b.mu.Lock()
	key := b.next
	b.next++
	b.subs[key] = fn
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, key)
			b.mu.Unlock()
		})
	}, nil
}
