package game

import (
	"fmt"

	"github.com/Rhymond/go-money"
)

// FormatCash renders v as dollars, e.g. "$1,234.56".
func FormatCash(v float64) string {
	return money.NewFromFloat(v, money.USD).Display()
}

func dividendNotice(paid float64) Notice {
	return Notice{
		Kind:  NoticeDividend,
		Text:  fmt.Sprintf("Received %s in dividends!", FormatCash(paid)),
		Color: "cyan",
	}
}

func offlineNotice(ticks int, paid float64) Notice {
	return Notice{
		Kind:  NoticeOffline,
		Text:  fmt.Sprintf("Welcome back: %d ticks passed, %s paid in dividends.", ticks, FormatCash(paid)),
		Color: "lime",
	}
}
