package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"securesim/internal/config"
	"securesim/internal/game"
	"securesim/internal/store"
	"securesim/internal/tui"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func newPlayCmd(cfg config.CLIConfig) *cobra.Command {
	var (
		plain   bool
		dataDir string
	)
	cmd := &cobra.Command{
		Use:   "play",
		Short: "Play locally; progress is saved and ticks keep counting while you are away",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			storeCfg := cfg.Engine.Store
			if dataDir != "" {
				storeCfg.DataDir = dataDir
			}
			interactive := !plain && term.IsTerminal(int(os.Stdout.Fd()))

			logger, closeLog := playLogger(storeCfg, interactive)
			defer closeLog()

			st, closeStore, err := store.Open(ctx, storeCfg, logger)
			if err != nil {
				return err
			}
			defer closeStore()

			engine := game.NewEngine(st, logger, game.Options{TickEvery: cfg.Engine.TickEvery})
			if interactive {
				return runTUI(ctx, engine)
			}
			return runPlain(ctx, engine)
		},
	}
	cmd.Flags().BoolVar(&plain, "plain", false, "print ticks as lines instead of the full screen view")
	cmd.Flags().StringVar(&dataDir, "data-dir", "", "directory for the local save (default ~/.securesim)")
	return cmd
}

// playLogger keeps the terminal clean while the full screen view is up by
// logging to a file next to the save.
func playLogger(cfg config.StoreConfig, interactive bool) (*slog.Logger, func()) {
	if !interactive {
		return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})), func() {}
	}
	dir := cfg.DataDir
	if dir == "" {
		d, err := store.DefaultDir()
		if err != nil {
			return slog.New(slog.NewTextHandler(io.Discard, nil)), func() {}
		}
		dir = d
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil)), func() {}
	}
	f, err := os.OpenFile(filepath.Join(dir, "sim.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil)), func() {}
	}
	return slog.New(slog.NewJSONHandler(f, &slog.HandlerOptions{Level: slog.LevelInfo})), func() { _ = f.Close() }
}

func runTUI(ctx context.Context, engine *game.Engine) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(tui.New(runCtx, engine), tea.WithAltScreen(), tea.WithContext(runCtx))
	engine.Subscribe(func(s game.Snapshot) { p.Send(tui.SnapshotMsg(s)) })
	engine.OnNotice(func(n game.Notice) { p.Send(tui.NoticeMsg(n)) })

	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

func runPlain(ctx context.Context, engine *game.Engine) error {
	engine.OnNotice(printNotice)
	engine.Subscribe(func(s game.Snapshot) {
		fmt.Println(tickLine(s))
	})

	replayed, err := engine.Init(ctx)
	if err != nil {
		return fmt.Errorf("offline catch-up: %w", err)
	}
	if replayed == 0 {
		printInfo("Market open. Ctrl+C to stop.")
	}
	return engine.Run(ctx)
}

func tickLine(s game.Snapshot) string {
	parts := make([]string, 0, len(s.Stocks))
	for _, t := range orderedTickers(s.Stocks) {
		parts = append(parts, fmt.Sprintf("%s %.2f", t, s.Stocks[t].Price))
	}
	nw := s.NetWorth()
	return fmt.Sprintf("tick %-6d %s  cash %s  net %s  %s",
		s.Tick,
		strings.Join(parts, "  "),
		game.FormatCash(s.Balance),
		game.FormatCash(nw),
		game.RankFor(nw).Label(),
	)
}
