package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	cl "securesim/internal/cli"
	"securesim/internal/config"
	"securesim/internal/game"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func main() {
	cfg := config.LoadCLIFromEnv()
	apiBase := cfg.APIBaseURL

	root := &cobra.Command{
		Use:          "sim",
		Short:        "SecureSim idle trading game",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&apiBase, "api", apiBase, "simulator API base URL")

	root.AddCommand(
		newPlayCmd(cfg),
		newViewCmd(&apiBase),
		newTradeCmd(&apiBase, "buy"),
		newTradeCmd(&apiBase, "sell"),
		newResetCmd(&apiBase),
	)

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newClient(apiBase *string) *cl.Client {
	return cl.NewClient(strings.TrimRight(strings.TrimSpace(*apiBase), "/"))
}

func newViewCmd(apiBase *string) *cobra.Command {
	return &cobra.Command{
		Use:   "view",
		Short: "Show balance, holdings and rank",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 15*time.Second)
			defer cancel()
			view, err := newClient(apiBase).View(ctx)
			if err != nil {
				return err
			}
			renderView(view)
			return nil
		},
	}
}

func newTradeCmd(apiBase *string, side string) *cobra.Command {
	verb := "Spend a percent of your balance on"
	if side == "sell" {
		verb = "Sell a percent of your shares of"
	}
	return &cobra.Command{
		Use:   side + " [TICKER] [PERCENT]",
		Short: verb + " a stock",
		Args:  cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				ticker  string
				percent float64
				err     error
			)
			if len(args) > 0 {
				ticker = game.NormalizeTicker(args[0])
			} else if ticker, err = promptTicker("Ticker"); err != nil {
				return err
			}
			if len(args) > 1 {
				if percent, err = strconv.ParseFloat(strings.TrimSuffix(args[1], "%"), 64); err != nil {
					return fmt.Errorf("percent must be a number: %w", err)
				}
			} else if percent, err = promptFloat("Percent", 0); err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 15*time.Second)
			defer cancel()
			res, err := newClient(apiBase).PlaceOrder(ctx, ticker, side, percent, uuid.NewString())
			if err != nil {
				return err
			}
			renderTrade(res)
			return nil
		},
	}
}

func newResetCmd(apiBase *string) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Wipe the saved game and start over",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				choice, err := promptChoice("Wipe your save", []string{"yes", "no"}, "no")
				if err != nil {
					return err
				}
				if choice != "yes" {
					printInfo("Nothing changed.")
					return nil
				}
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), 15*time.Second)
			defer cancel()
			view, err := newClient(apiBase).Reset(ctx)
			if err != nil {
				return err
			}
			printSuccess("Game reset.")
			renderView(view)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip confirmation")
	return cmd
}
