package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"securesim/internal/config"
	"securesim/internal/feed"
	"securesim/internal/game"
	"securesim/internal/store"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadWorkerFromEnv()
	if err != nil {
		slog.Error("load config", "err", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	st, closeStore, err := store.Open(ctx, cfg.Engine.Store, logger)
	if err != nil {
		logger.Error("open store failed", "backend", cfg.Engine.Store.Backend, "err", err)
		os.Exit(1)
	}
	defer closeStore()

	engine := game.NewEngine(st, logger, game.Options{TickEvery: cfg.Engine.TickEvery})
	engine.OnNotice(func(n game.Notice) {
		logger.Info("notice", "kind", string(n.Kind), "text", n.Text)
	})
	engine.Subscribe(func(s game.Snapshot) {
		logger.Debug("tick complete", "tick", s.Tick, "balance", s.Balance, "net_worth", s.NetWorth())
	})

	var feedDone chan struct{}
	if cfg.Feed.Enabled() {
		pub := feed.NewPublisher(feed.NewKafkaWriter(cfg.Feed.KafkaBrokers, cfg.Feed.KafkaTopic), logger, 0)
		engine.Subscribe(pub.HandleSnapshot)
		engine.OnNotice(pub.HandleNotice)
		feedDone = make(chan struct{})
		feedCtx, cancelFeed := context.WithCancel(ctx)
		defer func() {
			cancelFeed()
			<-feedDone
		}()
		go func() {
			defer close(feedDone)
			_ = pub.Run(feedCtx)
		}()
	}

	replayed, err := engine.Init(ctx)
	if err != nil {
		logger.Error("offline catch-up interrupted", "replayed", replayed, "err", err)
		return
	}

	if cfg.RunOnce {
		engine.Tick(ctx)
		view := engine.PublicView()
		logger.Info("worker run-once completed",
			"replayed", replayed,
			"net_worth", game.FormatCash(view.NetWorth()),
			"rank", game.RankFor(view.NetWorth()).Label(),
		)
		return
	}

	logger.Info("worker started", "tick_every", engine.TickEvery().String(), "replayed", replayed)
	if err := engine.Run(ctx); err != nil {
		logger.Error("worker stopped", "err", err)
		return
	}
	logger.Info("worker shutdown")
}
