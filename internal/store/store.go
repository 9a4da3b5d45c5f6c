package store

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"securesim/internal/game"
)

const (
	SaveKey     = "secureSimSave"
	LastTickKey = "secureSimLastTick"

	opTimeout = 5 * time.Second
)

var (
	errMalformed     = errors.New("malformed save")
	errMissingFields = errors.New("save is missing balance or stocks")
)

var _ game.Persister = (*Store)(nil)

// Store is the game's persistence contract over any KV. It never returns
// storage errors: failures are logged and the in-memory game carries on.
//
// When the backend fails while loading the save, the game starts fresh but
// Save is held back so it cannot overwrite a save that may still exist.
// Writes resume once a read shows no save is stored, or after Reset.
type Store struct {
	kv  KV
	log *slog.Logger

	held   atomic.Bool
	warned atomic.Bool
}

func New(kv KV, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{kv: kv, log: logger}
}

type savedStock struct {
	Price  *float64 `json:"price"`
	Shares *float64 `json:"shares"`
}

type savedGame struct {
	Balance *float64               `json:"balance"`
	Stocks  map[string]*savedStock `json:"stocks"`
}

func (s *Store) Save(ctx context.Context, state game.State) {
	raw, err := json.Marshal(state)
	if err != nil {
		s.log.Error("encode save failed", "err", err)
		return
	}
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	if s.held.Load() && !s.release(ctx) {
		s.log.Debug("save held back, stored game was never loaded")
		return
	}
	if err := s.kv.Set(ctx, SaveKey, string(raw)); err != nil {
		s.log.Error("save game failed", "err", err)
		return
	}
	s.log.Debug("game saved", "balance", state.Balance)
}

// Load returns ok=false for a missing, unreadable or malformed save, which
// callers treat exactly like a fresh start.
func (s *Store) Load(ctx context.Context) (game.State, bool) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	raw, ok, err := s.kv.Get(ctx, SaveKey)
	if errors.Is(err, errCorrupt) {
		s.log.Warn("ignoring saved game", "err", err)
		return game.State{}, false
	}
	if err != nil {
		s.held.Store(true)
		s.log.Error("load game failed, saves held until storage answers", "err", err)
		return game.State{}, false
	}
	if !ok {
		return game.State{}, false
	}
	state, err := decodeSave(raw)
	if err != nil {
		s.log.Warn("ignoring saved game", "err", err)
		return game.State{}, false
	}
	return state, true
}

// release reports whether held saves may be written again: the backend must
// answer and hold no save that this process never loaded.
func (s *Store) release(ctx context.Context) bool {
	_, ok, err := s.kv.Get(ctx, SaveKey)
	if err != nil {
		return false
	}
	if ok {
		if !s.warned.Swap(true) {
			s.log.Warn("stored game found after a failed load, restart to resume it")
		}
		return false
	}
	s.held.Store(false)
	s.log.Info("storage answering again, saves resumed")
	return true
}

// decodeSave keeps only known tickers. A ticker entry that lacks price or
// shares takes that field from the fresh-start market.
func decodeSave(raw string) (game.State, error) {
	var saved savedGame
	if err := json.Unmarshal([]byte(raw), &saved); err != nil {
		return game.State{}, errors.Join(errMalformed, err)
	}
	if saved.Balance == nil || saved.Stocks == nil {
		return game.State{}, errMissingFields
	}
	defaults := game.NewPortfolio().Snapshot().Stocks
	out := game.State{
		Balance: *saved.Balance,
		Stocks:  make(map[string]game.StockState, len(saved.Stocks)),
	}
	for ticker, st := range saved.Stocks {
		def, known := defaults[ticker]
		if !known || st == nil {
			continue
		}
		if st.Price != nil {
			def.Price = *st.Price
		}
		if st.Shares != nil {
			def.Shares = *st.Shares
		}
		out.Stocks[ticker] = def
	}
	return out, nil
}

func (s *Store) SaveLastTick(ctx context.Context, t time.Time) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	if err := s.kv.Set(ctx, LastTickKey, strconv.FormatInt(t.UnixMilli(), 10)); err != nil {
		s.log.Error("save last tick failed", "err", err)
	}
}

// LoadLastTick falls back to now so a first run owes no ticks.
func (s *Store) LoadLastTick(ctx context.Context, now time.Time) time.Time {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	raw, ok, err := s.kv.Get(ctx, LastTickKey)
	if err != nil {
		s.log.Error("load last tick failed", "err", err)
		return now
	}
	if !ok {
		return now
	}
	ms, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		s.log.Warn("ignoring last tick", "value", raw, "err", err)
		return now
	}
	return time.UnixMilli(ms)
}

func (s *Store) Reset(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	if err := s.kv.Delete(ctx, SaveKey, LastTickKey); err != nil {
		s.log.Error("reset storage failed", "err", err)
		return
	}
	s.held.Store(false)
	s.warned.Store(false)
}
