package main

import (
	"bufio"
	"fmt"
	"os"
	"slices"
	"sort"
	"strconv"
	"strings"

	"securesim/internal/api"
	"securesim/internal/game"

	"github.com/fatih/color"
)

var (
	stdinReader = bufio.NewReader(os.Stdin)
	accent      = color.New(color.FgCyan, color.Bold)
	success     = color.New(color.FgGreen, color.Bold)
	warn        = color.New(color.FgYellow, color.Bold)
	danger      = color.New(color.FgRed, color.Bold)
	neutral     = color.New(color.FgHiWhite)
)

// noticeColor matches the engine's notice color names.
func noticeColor(name string) *color.Color {
	switch name {
	case "cyan":
		return color.New(color.FgHiCyan)
	case "lime":
		return color.New(color.FgHiGreen)
	default:
		return neutral
	}
}

func printSuccess(msg string) {
	success.Println(msg)
}

func printWarn(msg string) {
	warn.Println(msg)
}

func printInfo(msg string) {
	neutral.Println(msg)
}

func printNotice(n game.Notice) {
	noticeColor(n.Color).Println(n.Text)
}

func promptRequired(label string) (string, error) {
	for {
		fmt.Printf("%s: ", label)
		text, err := stdinReader.ReadString('\n')
		if err != nil {
			return "", err
		}
		text = strings.TrimSpace(text)
		if text != "" {
			return text, nil
		}
		printWarn(label + " is required.")
	}
}

func promptChoice(label string, options []string, defaultValue string) (string, error) {
	for {
		fmt.Printf("%s (%s) [%s]: ", label, strings.Join(options, "/"), defaultValue)
		text, err := stdinReader.ReadString('\n')
		if err != nil {
			return "", err
		}
		text = strings.ToLower(strings.TrimSpace(text))
		if text == "" {
			text = defaultValue
		}
		if slices.Contains(options, text) {
			return text, nil
		}
		printWarn("Invalid option. Please pick one of the listed values.")
	}
}

func promptFloat(label string, min float64) (float64, error) {
	for {
		text, err := promptRequired(label)
		if err != nil {
			return 0, err
		}
		v, err := strconv.ParseFloat(strings.TrimSuffix(text, "%"), 64)
		if err != nil {
			printWarn("Enter a valid number.")
			continue
		}
		if v <= min {
			printWarn(fmt.Sprintf("Value must be > %.2f", min))
			continue
		}
		return v, nil
	}
}

func promptTicker(label string) (string, error) {
	known := game.Tickers()
	for {
		ticker, err := promptRequired(fmt.Sprintf("%s (%s)", label, strings.Join(known, "/")))
		if err != nil {
			return "", err
		}
		ticker = game.NormalizeTicker(ticker)
		if slices.Contains(known, ticker) {
			return ticker, nil
		}
		printWarn(game.ErrInvalidTicker.Error())
	}
}

func renderView(v api.View) {
	rankColor := neutral
	if v.Rank.Stars > 0 {
		rankColor = warn
	}
	accent.Printf("\n== PORTFOLIO (tick %d) ==\n", v.Tick)
	fmt.Printf("Rank:       %s\n", rankColor.Sprint(v.Rank.Label()))
	fmt.Printf("Balance:    %s\n", game.FormatCash(v.Balance))
	fmt.Printf("Net Worth:  %s\n", game.FormatCash(v.NetWorth))
	fmt.Printf("vs Start:   %s\n", colorizeCash(v.NetWorth-game.StarterBalance))

	fmt.Println()
	fmt.Printf("%-8s %10s %12s %14s\n", "TICKER", "PRICE", "SHARES", "VALUE")
	for _, t := range orderedTickers(v.Stocks) {
		st := v.Stocks[t]
		fmt.Printf("%-8s %10.2f %12.4f %14s\n", t, st.Price, st.Shares, game.FormatCash(st.Price*st.Shares))
	}
	fmt.Println()
}

func renderTrade(res api.TradeResult) {
	accent.Printf("\n== ORDER %s ==\n", strings.ToUpper(res.Side))
	fmt.Printf("Trade:   %s\n", truncate(res.TradeID, 36))
	fmt.Printf("Ticker:  %s\n", res.Ticker)
	fmt.Printf("Percent: %.2f%%\n", res.Percent)
	if res.SharesBought != nil {
		fmt.Printf("Bought:  %.4f shares\n", *res.SharesBought)
	}
	if res.Gain != nil {
		fmt.Printf("Gained:  %s\n", success.Sprint(game.FormatCash(*res.Gain)))
	}
	fmt.Printf("Balance: %s\n", game.FormatCash(res.View.Balance))
	fmt.Println()
}

// orderedTickers lists the known tickers first in market order, then any
// others alphabetically.
func orderedTickers(stocks map[string]game.StockState) []string {
	var out, extra []string
	for _, t := range game.Tickers() {
		if _, ok := stocks[t]; ok {
			out = append(out, t)
		}
	}
	for t := range stocks {
		if !slices.Contains(out, t) {
			extra = append(extra, t)
		}
	}
	sort.Strings(extra)
	return append(out, extra...)
}

func colorizeCash(v float64) string {
	text := game.FormatCash(v)
	switch {
	case v > 0:
		return success.Sprint("+" + text)
	case v < 0:
		return danger.Sprint(text)
	default:
		return neutral.Sprint(text)
	}
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if n <= 0 || len(s) <= n {
		return s
	}
	if n <= 3 {
		return s[:n]
	}
	return s[:n-3] + "..."
}
