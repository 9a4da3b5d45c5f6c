package game

import (
	"errors"
	"math"
	"strings"
	"time"
)

const (
	StarterBalance = 800.0

	// DividendRate is paid per tick on the market value of each holding.
	DividendRate = 0.002

	// MinPrice is the floor applied after every perturbation.
	MinPrice = 1.0

	// MaxMovePercent bounds a single tick's price change in either direction.
	MaxMovePercent = 2.0

	// DividendNoticeThreshold is the smallest payout worth telling the player about.
	DividendNoticeThreshold = 0.01

	DefaultTickEvery = 3 * time.Second
)

var (
	ErrInvalidTicker = errors.New("invalid ticker")
	ErrNoFunds       = errors.New("no balance")
	ErrNoShares      = errors.New("no shares")
)

// seed is the fresh-start market, in display order.
var seed = []struct {
	Ticker string
	Price  float64
}{
	{"LUX", 120},
	{"FIZZ", 95},
	{"NOVA", 180},
}

// Tickers returns the known ticker symbols in display order.
func Tickers() []string {
	out := make([]string, 0, len(seed))
	for _, s := range seed {
		out = append(out, s.Ticker)
	}
	return out
}

// NormalizeTicker upper-cases and trims a user supplied symbol.
func NormalizeTicker(ticker string) string {
	return strings.ToUpper(strings.TrimSpace(ticker))
}

// TicksOwed reports how many whole tick periods fit between last and now.
func TicksOwed(last, now time.Time, every time.Duration) int {
	if every <= 0 {
		return 0
	}
	elapsed := now.Sub(last)
	if elapsed <= 0 {
		return 0
	}
	n := elapsed / every
	if n > math.MaxInt32 {
		return math.MaxInt32
	}
	return int(n)
}
