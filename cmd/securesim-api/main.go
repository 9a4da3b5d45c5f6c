package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"securesim/internal/api"
	"securesim/internal/config"
	"securesim/internal/feed"
	"securesim/internal/game"
	"securesim/internal/metrics"
	"securesim/internal/store"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadAPIFromEnv()
	if err != nil {
		slog.Error("load config", "err", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("securesim api stopped", "err", err)
		stop()
		os.Exit(1)
	}
	logger.Info("securesim api stopped")
}

// run returns only after the HTTP server has drained, the tick loop has
// stopped and the feed has flushed.
func run(ctx context.Context, cfg config.APIConfig, logger *slog.Logger) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	st, closeStore, err := store.Open(ctx, cfg.Engine.Store, logger)
	if err != nil {
		return fmt.Errorf("open %s store: %w", cfg.Engine.Store.Backend, err)
	}
	defer closeStore()

	engine := game.NewEngine(st, logger, game.Options{TickEvery: cfg.Engine.TickEvery})
	rec := metrics.New()
	server := api.New(cfg, logger, engine, rec)
	defer server.Close()

	engine.Subscribe(rec.ObserveSnapshot)
	engine.Subscribe(server.BroadcastSnapshot)
	engine.OnNotice(server.BroadcastNotice)
	engine.OnNotice(func(n game.Notice) {
		logger.Info("notice", "kind", string(n.Kind), "text", n.Text)
	})

	if cfg.Feed.Enabled() {
		pub := feed.NewPublisher(feed.NewKafkaWriter(cfg.Feed.KafkaBrokers, cfg.Feed.KafkaTopic), logger, 0)
		engine.Subscribe(pub.HandleSnapshot)
		engine.OnNotice(pub.HandleNotice)
		feedDone := make(chan struct{})
		feedCtx, cancelFeed := context.WithCancel(context.Background())
		defer func() {
			cancelFeed()
			<-feedDone
		}()
		go func() {
			defer close(feedDone)
			_ = pub.Run(feedCtx)
		}()
		logger.Info("kafka feed enabled", "brokers", cfg.Feed.KafkaBrokers, "topic", cfg.Feed.KafkaTopic)
	}

	replayed, err := engine.Init(ctx)
	rec.AddOfflineTicks(replayed)
	if err != nil {
		return fmt.Errorf("offline catch-up interrupted after %d ticks: %w", replayed, err)
	}

	tickDone := make(chan struct{})
	go func() {
		defer close(tickDone)
		_ = engine.Run(ctx)
	}()
	defer func() {
		cancel()
		<-tickDone
	}()

	httpServer := &http.Server{
		Addr:              cfg.Addr,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Warn("http shutdown incomplete", "err", err)
		}
	}()

	logger.Info("securesim api listening", "addr", cfg.Addr, "store", cfg.Engine.Store.Backend)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serve http: %w", err)
	}
	<-shutdownDone
	return nil
}
