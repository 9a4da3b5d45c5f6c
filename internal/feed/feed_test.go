package feed

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"securesim/internal/game"
)

type mockWriter struct {
	mu         sync.Mutex
	messages   []kafka.Message
	closed     bool
	shouldFail bool
}

func (m *mockWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.shouldFail {
		return errors.New("kafka error")
	}
	m.messages = append(m.messages, msgs...)
	return nil
}

func (m *mockWriter) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

func (m *mockWriter) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.messages)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestPublisherWritesEvents(t *testing.T) {
	w := &mockWriter{}
	p := NewPublisher(w, quietLogger(), 8)
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	p.now = func() time.Time { return fixed }

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	p.HandleSnapshot(game.Snapshot{
		Tick:    4,
		Balance: 10,
		Stocks:  map[string]game.StockState{"LUX": {Price: 5, Shares: 2}},
	})
	p.HandleNotice(game.Notice{Kind: game.NoticeDividend, Text: "hi", Color: "cyan"})

	require.Eventually(t, func() bool { return w.count() == 2 }, time.Second, 5*time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	w.mu.Lock()
	defer w.mu.Unlock()
	assert.True(t, w.closed)

	snap := w.messages[0]
	assert.Equal(t, "4", string(snap.Key))
	require.Len(t, snap.Headers, 1)
	assert.Equal(t, "event_id", snap.Headers[0].Key)
	assert.NotEmpty(t, snap.Headers[0].Value)

	var ev Event
	require.NoError(t, json.Unmarshal(snap.Value, &ev))
	assert.Equal(t, "snapshot", ev.Type)
	assert.True(t, ev.At.Equal(fixed))
	require.NotNil(t, ev.Snapshot)
	assert.Equal(t, int64(4), ev.Snapshot.Tick)
	assert.Equal(t, 20.0, ev.Snapshot.NetWorth)

	var note Event
	require.NoError(t, json.Unmarshal(w.messages[1].Value, &note))
	require.NotNil(t, note.Notice)
	assert.Equal(t, game.NoticeDividend, note.Notice.Kind)
}

func TestPublisherDropsWhenFull(t *testing.T) {
	p := NewPublisher(&mockWriter{}, quietLogger(), 1)
	for i := 0; i < 3; i++ {
		p.HandleNotice(game.Notice{Text: "x"})
	}
	assert.Equal(t, int64(2), p.Dropped())
}

func TestPublisherSurvivesWriteErrors(t *testing.T) {
	w := &mockWriter{shouldFail: true}
	p := NewPublisher(w, quietLogger(), 4)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()

	p.HandleNotice(game.Notice{Text: "a"})
	p.HandleNotice(game.Notice{Text: "b"})
	require.Eventually(t, func() bool { return len(p.queue) == 0 }, time.Second, 5*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
	assert.Equal(t, 0, w.count())
}

func TestPublisherFlushesOnShutdown(t *testing.T) {
	w := &mockWriter{}
	p := NewPublisher(w, quietLogger(), 8)
	p.HandleNotice(game.Notice{Text: "a"})
	p.HandleNotice(game.Notice{Text: "b"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, p.Run(ctx))
	assert.Equal(t, 2, w.count())
	assert.True(t, w.closed)
}
