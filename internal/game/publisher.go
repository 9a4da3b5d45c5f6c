package game

import (
	"fmt"
	"log/slog"
	"sync"
)

// Publisher fans a value out to subscribers in registration order.
type Publisher[T any] struct {
	log  *slog.Logger
	mu   sync.RWMutex
	subs []func(T)
}

func NewPublisher[T any](logger *slog.Logger) *Publisher[T] {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher[T]{log: logger}
}

func (p *Publisher[T]) Subscribe(fn func(T)) {
	if fn == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.subs = append(p.subs, fn)
}

// Publish calls every subscriber synchronously. A subscriber that panics is
// logged and skipped; the rest still receive v.
func (p *Publisher[T]) Publish(v T) {
	p.mu.RLock()
	subs := make([]func(T), len(p.subs))
	copy(subs, p.subs)
	p.mu.RUnlock()

	for i, fn := range subs {
		if err := deliver(fn, v); err != nil {
			p.log.Error("subscriber failed", "index", i, "err", err)
		}
	}
}

func deliver[T any](fn func(T), v T) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	fn(v)
	return nil
}
