package store

import (
	"context"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"
)

// BreakerKV trips after repeated backend failures so a dead Redis or
// Postgres costs one fast error per tick instead of a full network timeout.
type BreakerKV struct {
	next KV
	cb   *gobreaker.CircuitBreaker
}

func NewBreakerKV(name string, next KV, logger *slog.Logger) *BreakerKV {
	if logger == nil {
		logger = slog.Default()
	}
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     15 * time.Second,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("storage breaker state changed", "backend", name, "from", from.String(), "to", to.String())
		},
	})
	return &BreakerKV{next: next, cb: cb}
}

type getResult struct {
	value string
	ok    bool
}

func (b *BreakerKV) Get(ctx context.Context, key string) (string, bool, error) {
	out, err := b.cb.Execute(func() (interface{}, error) {
		v, ok, err := b.next.Get(ctx, key)
		return getResult{value: v, ok: ok}, err
	})
	if err != nil {
		return "", false, err
	}
	r := out.(getResult)
	return r.value, r.ok, nil
}

func (b *BreakerKV) Set(ctx context.Context, key, value string) error {
	_, err := b.cb.Execute(func() (interface{}, error) {
		return nil, b.next.Set(ctx, key, value)
	})
	return err
}

func (b *BreakerKV) Delete(ctx context.Context, keys ...string) error {
	_, err := b.cb.Execute(func() (interface{}, error) {
		return nil, b.next.Delete(ctx, keys...)
	})
	return err
}
