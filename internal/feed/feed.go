package feed

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"securesim/internal/game"
)

const (
	defaultQueueSize = 256
	flushTimeout     = 5 * time.Second
)

type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// NewKafkaWriter batches small writes; snapshots arrive every few seconds at
// most, so latency is bounded by BatchTimeout.
func NewKafkaWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchSize:    50,
		BatchTimeout: 50 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
	}
}

type Event struct {
	Type     string           `json:"type"`
	At       time.Time        `json:"at"`
	Snapshot *SnapshotPayload `json:"snapshot,omitempty"`
	Notice   *game.Notice     `json:"notice,omitempty"`
}

type SnapshotPayload struct {
	Tick     int64                      `json:"tick"`
	Balance  float64                    `json:"balance"`
	NetWorth float64                    `json:"net_worth"`
	Stocks   map[string]game.StockState `json:"stocks"`
}

// Publisher forwards engine output to Kafka off the engine's goroutine. When
// the queue is full new events are dropped and counted.
type Publisher struct {
	log     *slog.Logger
	writer  Writer
	queue   chan kafka.Message
	now     func() time.Time
	dropped atomic.Int64
}

func NewPublisher(writer Writer, logger *slog.Logger, queueSize int) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	return &Publisher{
		log:    logger,
		writer: writer,
		queue:  make(chan kafka.Message, queueSize),
		now:    time.Now,
	}
}

func (p *Publisher) HandleSnapshot(s game.Snapshot) {
	p.enqueue(strconv.FormatInt(s.Tick, 10), Event{
		Type: "snapshot",
		Snapshot: &SnapshotPayload{
			Tick:     s.Tick,
			Balance:  s.Balance,
			NetWorth: s.NetWorth(),
			Stocks:   s.Stocks,
		},
	})
}

func (p *Publisher) HandleNotice(n game.Notice) {
	p.enqueue("notice", Event{Type: "notice", Notice: &n})
}

func (p *Publisher) Dropped() int64 {
	return p.dropped.Load()
}

func (p *Publisher) enqueue(key string, ev Event) {
	ev.At = p.now().UTC()
	payload, err := json.Marshal(ev)
	if err != nil {
		p.log.Error("encode feed event failed", "type", ev.Type, "err", err)
		return
	}
	msg := kafka.Message{
		Key:   []byte(key),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event_id", Value: []byte(uuid.NewString())},
		},
	}
	select {
	case p.queue <- msg:
	default:
		if n := p.dropped.Add(1); n == 1 || n%100 == 0 {
			p.log.Warn("feed queue full, dropping events", "dropped", n)
		}
	}
}

// Run writes queued events until ctx is cancelled, flushes what is still
// queued, then closes the writer.
func (p *Publisher) Run(ctx context.Context) error {
	defer func() {
		if err := p.writer.Close(); err != nil {
			p.log.Warn("close feed writer failed", "err", err)
		}
	}()
	for {
		select {
		case <-ctx.Done():
			p.flush()
			return nil
		case msg := <-p.queue:
			p.write(ctx, msg)
		}
	}
}

func (p *Publisher) flush() {
	ctx, cancel := context.WithTimeout(context.Background(), flushTimeout)
	defer cancel()
	for {
		select {
		case msg := <-p.queue:
			p.write(ctx, msg)
		default:
			return
		}
	}
}

func (p *Publisher) write(ctx context.Context, msg kafka.Message) {
	if err := p.writer.WriteMessages(ctx, msg); err != nil && ctx.Err() == nil {
		p.log.Error("feed write failed", "key", string(msg.Key), "err", err)
	}
}
