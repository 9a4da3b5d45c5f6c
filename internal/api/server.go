package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strings"
	"time"

	"securesim/internal/config"
	"securesim/internal/game"
	"securesim/internal/metrics"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

var errBadSide = errors.New("side must be buy or sell")

// Engine is the slice of game.Engine the HTTP layer drives.
type Engine interface {
	PublicView() game.Snapshot
	BuyByPercent(ctx context.Context, ticker string, percent float64) (float64, error)
	SellByPercent(ctx context.Context, ticker string, percent float64) (float64, error)
	Reset(ctx context.Context)
}

type Server struct {
	cfg     config.APIConfig
	log     *slog.Logger
	engine  Engine
	metrics *metrics.Recorder
	hub     *Hub
	limiter *rate.Limiter
	mux     *chi.Mux
}

// New builds the router. rec may be nil, in which case /metrics is not served.
func New(cfg config.APIConfig, logger *slog.Logger, engine Engine, rec *metrics.Recorder) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	rps := cfg.TradeRPS
	if rps <= 0 {
		rps = 5
	}
	s := &Server{
		cfg:     cfg,
		log:     logger,
		engine:  engine,
		metrics: rec,
		hub:     NewHub(logger),
		limiter: rate.NewLimiter(rate.Limit(rps), int(math.Max(1, math.Ceil(rps*2)))),
		mux:     chi.NewRouter(),
	}
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

// BroadcastSnapshot and BroadcastNotice are meant to be registered with the
// engine's Subscribe and OnNotice.
func (s *Server) BroadcastSnapshot(snap game.Snapshot) {
	s.hub.Broadcast(Frame{Type: "snapshot", View: viewPtr(snap)})
}

func (s *Server) BroadcastNotice(n game.Notice) {
	s.hub.Broadcast(Frame{Type: "notice", Notice: &n})
}

// Close disconnects every stream client.
func (s *Server) Close() {
	s.hub.Close()
}

func (s *Server) routes() {
	r := s.mux
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true})
	})
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics.Handler())
	}

	r.Route("/v1", func(r chi.Router) {
		// Streams are long lived and hijack the connection.
		r.Get("/stream", s.handleStream)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(30 * time.Second))
			r.Get("/view", s.handleView)
			r.With(s.rateLimit).Post("/orders", s.handleOrder)
			r.Post("/reset", s.handleReset)
		})
	})
}

func (s *Server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.limiter.Allow() {
			w.Header().Set("Retry-After", "1")
			writeError(w, http.StatusTooManyRequests, "too many orders, slow down")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// View is the public state plus the derived figures a client displays.
type View struct {
	Tick     int64                      `json:"tick"`
	Balance  float64                    `json:"balance"`
	Stocks   map[string]game.StockState `json:"stocks"`
	NetWorth float64                    `json:"net_worth"`
	Rank     game.Rank                  `json:"rank"`
}

func viewOf(snap game.Snapshot) View {
	nw := snap.NetWorth()
	return View{
		Tick:     snap.Tick,
		Balance:  snap.Balance,
		Stocks:   snap.Stocks,
		NetWorth: nw,
		Rank:     game.RankFor(nw),
	}
}

func viewPtr(snap game.Snapshot) *View {
	v := viewOf(snap)
	return &v
}

func (s *Server) handleView(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, viewOf(s.engine.PublicView()))
}

type OrderRequest struct {
	Ticker  string  `json:"ticker"`
	Side    string  `json:"side"`
	Percent float64 `json:"percent"`
}

type TradeResult struct {
	OK           bool     `json:"ok"`
	TradeID      string   `json:"trade_id"`
	Ticker       string   `json:"ticker"`
	Side         string   `json:"side"`
	Percent      float64  `json:"percent"`
	SharesBought *float64 `json:"shares_bought,omitempty"`
	Gain         *float64 `json:"gain,omitempty"`
	View         View     `json:"view"`
}

func (s *Server) handleOrder(w http.ResponseWriter, r *http.Request) {
	var in OrderRequest
	if err := decodeJSON(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	side := strings.ToLower(strings.TrimSpace(in.Side))
	ticker := game.NormalizeTicker(in.Ticker)

	result := TradeResult{
		OK:      true,
		TradeID: tradeID(r),
		Ticker:  ticker,
		Side:    side,
		Percent: in.Percent,
	}
	var err error
	switch side {
	case "buy":
		var shares float64
		shares, err = s.engine.BuyByPercent(r.Context(), ticker, in.Percent)
		result.SharesBought = &shares
	case "sell":
		var gain float64
		gain, err = s.engine.SellByPercent(r.Context(), ticker, in.Percent)
		result.Gain = &gain
	default:
		writeError(w, http.StatusBadRequest, errBadSide.Error())
		return
	}
	if s.metrics != nil {
		s.metrics.Trade(side, err)
	}
	if err != nil {
		s.log.Info("order rejected", "trade_id", result.TradeID, "ticker", ticker, "side", side, "err", err)
		writeDomainError(w, err)
		return
	}
	result.View = viewOf(s.engine.PublicView())
	s.log.Info("order filled", "trade_id", result.TradeID, "ticker", ticker, "side", side, "percent", in.Percent)
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	s.engine.Reset(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{"ok": true, "view": viewOf(s.engine.PublicView())})
}

func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, game.ErrInvalidTicker):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, game.ErrNoFunds), errors.Is(err, game.ErrNoShares):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func decodeJSON(r *http.Request, out any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("decode body: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"ok": false, "error": strings.TrimSpace(message)})
}

// tradeID honours a client supplied Idempotency-Key so retries log under the
// same ID.
func tradeID(r *http.Request) string {
	key := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
	if key != "" {
		return key
	}
	return uuid.NewString()
}
