package game

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// catchUpBatch is how many replayed ticks run between context checks.
const catchUpBatch = 10_000

// Persister is the storage contract the engine relies on. Implementations
// absorb their own failures; the in-memory state stays authoritative.
type Persister interface {
	Save(ctx context.Context, s State)
	Load(ctx context.Context) (State, bool)
	SaveLastTick(ctx context.Context, t time.Time)
	LoadLastTick(ctx context.Context, now time.Time) time.Time
	Reset(ctx context.Context)
}

type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

type Options struct {
	TickEvery time.Duration
	Clock     Clock
	Rand      Rand
}

// Engine owns the portfolio and serializes every tick and trade. Each
// mutation is followed by notices, a snapshot and persistence, always in
// mutation order.
type Engine struct {
	log   *slog.Logger
	store Persister
	clock Clock
	every time.Duration

	mu        sync.Mutex
	emitMu    sync.Mutex
	portfolio *Portfolio
	prices    *PriceModel
	ledger    Ledger

	snapshots *Publisher[Snapshot]
	notices   *Publisher[Notice]
}

func NewEngine(store Persister, logger *slog.Logger, opts Options) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.TickEvery <= 0 {
		opts.TickEvery = DefaultTickEvery
	}
	if opts.Clock == nil {
		opts.Clock = systemClock{}
	}
	return &Engine{
		log:       logger,
		store:     store,
		clock:     opts.Clock,
		every:     opts.TickEvery,
		portfolio: NewPortfolio(),
		prices:    NewPriceModel(opts.Rand),
		ledger:    NewLedger(),
		snapshots: NewPublisher[Snapshot](logger),
		notices:   NewPublisher[Notice](logger),
	}
}

func (e *Engine) TickEvery() time.Duration {
	return e.every
}

// Subscribe registers fn for every snapshot. fn may call PublicView but must
// not trade synchronously.
func (e *Engine) Subscribe(fn func(Snapshot)) {
	e.snapshots.Subscribe(fn)
}

func (e *Engine) OnNotice(fn func(Notice)) {
	e.notices.Subscribe(fn)
}

func (e *Engine) PublicView() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.portfolio.Snapshot()
}

// Init hydrates from storage, replays offline ticks and publishes the
// resulting state. It returns the number of ticks replayed.
func (e *Engine) Init(ctx context.Context) (int, error) {
	if saved, ok := e.store.Load(ctx); ok {
		e.mu.Lock()
		e.portfolio.Hydrate(saved)
		e.mu.Unlock()
		e.log.Info("game loaded", "balance", saved.Balance)
	} else {
		e.log.Info("no saved game, starting fresh")
	}

	n, err := e.CatchUp(ctx)
	if err != nil {
		return n, err
	}
	_ = e.commit(ctx, func(_ *Portfolio, c *change) error {
		c.publish = true
		return nil
	})
	return n, nil
}

// Run ticks every period until ctx is cancelled.
func (e *Engine) Run(ctx context.Context) error {
	ticker := time.NewTicker(e.every)
	defer ticker.Stop()

	e.log.Info("tick loop started", "tick_every", e.every.String())
	for {
		select {
		case <-ctx.Done():
			e.log.Info("tick loop stopped")
			return nil
		case <-ticker.C:
			e.Tick(ctx)
		}
	}
}

// Tick applies one online tick: prices, dividends, notify, persist.
func (e *Engine) Tick(ctx context.Context) {
	_ = e.commit(ctx, func(p *Portfolio, c *change) error {
		e.prices.Perturb(p)
		if paid := e.ledger.PayDividends(p); paid > DividendNoticeThreshold {
			c.notices = append(c.notices, dividendNotice(paid))
		}
		c.publish = true
		c.save = true
		c.stamp = e.clock.Now()
		return nil
	})
}

// CatchUp replays every whole tick period that elapsed since the stored
// last tick, then re-anchors the last tick to now. State is written once at
// the end. If ctx is cancelled mid-replay the progress so far is saved and
// the anchor only moves past the replayed ticks.
func (e *Engine) CatchUp(ctx context.Context) (int, error) {
	now := e.clock.Now()
	last := e.store.LoadLastTick(ctx, now)
	owed := TicksOwed(last, now, e.every)
	if owed > 0 {
		e.log.Info("applying offline ticks", "ticks", owed, "since", last.UTC().Format(time.RFC3339))
	}

	var paid float64
	step := func(p *Portfolio, c *change) error {
		e.prices.Perturb(p)
		paid += e.ledger.PayDividends(p)
		c.publish = true
		return nil
	}

	replayed := 0
	for replayed < owed {
		if replayed > 0 && replayed%catchUpBatch == 0 {
			if err := ctx.Err(); err != nil {
				anchor := last.Add(time.Duration(replayed) * e.every)
				_ = e.commit(ctx, func(_ *Portfolio, c *change) error {
					c.save = true
					c.stamp = anchor
					return nil
				})
				e.log.Warn("offline replay interrupted", "replayed", replayed, "owed", owed, "err", err)
				return replayed, err
			}
		}
		_ = e.commit(ctx, step)
		replayed++
	}

	_ = e.commit(ctx, func(_ *Portfolio, c *change) error {
		if replayed > 0 {
			c.save = true
			c.notices = append(c.notices, offlineNotice(replayed, paid))
		}
		c.stamp = now
		return nil
	})
	return replayed, nil
}

// BuyByPercent spends percent of the balance on ticker.
func (e *Engine) BuyByPercent(ctx context.Context, ticker string, percent float64) (float64, error) {
	var shares float64
	err := e.commit(ctx, func(p *Portfolio, c *change) error {
		var err error
		shares, err = e.ledger.BuyByPercent(p, ticker, percent)
		if err != nil {
			return err
		}
		c.publish = true
		c.save = true
		return nil
	})
	return shares, err
}

// SellByPercent sells percent of the held shares of ticker.
func (e *Engine) SellByPercent(ctx context.Context, ticker string, percent float64) (float64, error) {
	var gain float64
	err := e.commit(ctx, func(p *Portfolio, c *change) error {
		var err error
		gain, err = e.ledger.SellByPercent(p, ticker, percent)
		if err != nil {
			return err
		}
		c.publish = true
		c.save = true
		return nil
	})
	return gain, err
}

// Reset wipes storage and restarts the market from defaults.
func (e *Engine) Reset(ctx context.Context) {
	_ = e.commit(ctx, func(p *Portfolio, c *change) error {
		*p = *NewPortfolio()
		c.wipe = true
		c.publish = true
		c.stamp = e.clock.Now()
		return nil
	})
	e.log.Info("game reset")
}

type change struct {
	notices []Notice
	wipe    bool
	publish bool
	save    bool
	stamp   time.Time
}

// commit applies mutate under the state lock and, if it succeeds, emits the
// side effects. emitMu is taken before mu is released so emission order
// always matches mutation order.
func (e *Engine) commit(ctx context.Context, mutate func(*Portfolio, *change) error) error {
	var c change
	e.mu.Lock()
	if err := mutate(e.portfolio, &c); err != nil {
		e.mu.Unlock()
		return err
	}
	snap := e.portfolio.Snapshot()
	e.emitMu.Lock()
	e.mu.Unlock()
	defer e.emitMu.Unlock()

	if c.wipe {
		e.store.Reset(ctx)
	}
	for _, n := range c.notices {
		e.notices.Publish(n)
	}
	if c.publish {
		e.snapshots.Publish(snap)
	}
	if c.save {
		e.store.Save(ctx, snap.State())
	}
	if !c.stamp.IsZero() {
		e.store.SaveLastTick(ctx, c.stamp)
	}
	return nil
}
