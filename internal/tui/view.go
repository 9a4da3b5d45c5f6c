package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"securesim/internal/game"
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#5DADE2"))
	headerStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#A0A0A0"))
	selectedStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#F7DC6F"))
	upStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("#28B463"))
	downStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#E74C3C"))
	mutedStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#707070"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#E74C3C"))
	boxStyle      = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

// noticeColors maps the engine's notice color names onto terminal colors.
var noticeColors = map[string]lipgloss.Color{
	"cyan": lipgloss.Color("#00FFFF"),
	"lime": lipgloss.Color("#32CD32"),
}

var sparkTicks = []rune("▁▂▃▄▅▆▇█")

// Sparkline draws values scaled between their own min and max.
func Sparkline(values []float64) string {
	if len(values) == 0 {
		return ""
	}
	lo, hi := values[0], values[0]
	for _, v := range values {
		lo = min(lo, v)
		hi = max(hi, v)
	}
	var b strings.Builder
	for _, v := range values {
		idx := 0
		if hi > lo {
			idx = int((v - lo) / (hi - lo) * float64(len(sparkTicks)-1))
		}
		b.WriteRune(sparkTicks[idx])
	}
	return b.String()
}

func fmtBought(ticker string, shares float64) string {
	return fmt.Sprintf("bought %.4f %s", shares, ticker)
}

func fmtSold(ticker string, gain float64) string {
	return fmt.Sprintf("sold %s for %s", ticker, game.FormatCash(gain))
}

func (m Model) View() string {
	var b strings.Builder

	nw := m.view.NetWorth()
	rank := game.RankFor(nw)
	rankStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(rank.Color))

	b.WriteString(titleStyle.Render("SecureSim"))
	b.WriteString("  ")
	b.WriteString(rankStyle.Render(rank.Label()))
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "Balance:   %s\n", game.FormatCash(m.view.Balance))
	fmt.Fprintf(&b, "Net worth: %s\n\n", game.FormatCash(nw))

	b.WriteString(headerStyle.Render(fmt.Sprintf("  %-6s %10s %12s %12s  %s", "TICKER", "PRICE", "SHARES", "VALUE", "TREND")))
	b.WriteString("\n")
	for i, t := range m.tickers {
		st := m.view.Stocks[t]
		row := fmt.Sprintf("%-6s %10s %12.4f %12s", t, fmt.Sprintf("%.2f", st.Price), st.Shares, game.FormatCash(st.Price*st.Shares))
		cursor := "  "
		if i == m.selected {
			cursor = "> "
			row = selectedStyle.Render(row)
		}
		b.WriteString(cursor + row + "  " + m.trend(t) + "\n")
	}

	b.WriteString("\n")
	fmt.Fprintf(&b, "Order size: %s of %s\n", selectedStyle.Render(fmt.Sprintf("%.0f%%", m.Percent())), m.Ticker())

	if len(m.notices) > 0 {
		var lines []string
		for _, n := range m.notices {
			style := lipgloss.NewStyle()
			if c, ok := noticeColors[n.Color]; ok {
				style = style.Foreground(c)
			}
			lines = append(lines, style.Render(n.Text))
		}
		b.WriteString(boxStyle.Render(strings.Join(lines, "\n")))
		b.WriteString("\n")
	}

	switch {
	case !m.ready:
		b.WriteString(mutedStyle.Render("catching up..."))
	case m.failed:
		b.WriteString(errorStyle.Render(m.status))
	case m.status != "":
		b.WriteString(mutedStyle.Render(m.status))
	}
	b.WriteString("\n\n")
	b.WriteString(m.help.View(m.keys))
	b.WriteString("\n")
	return b.String()
}

func (m Model) trend(ticker string) string {
	h := m.history[ticker]
	line := Sparkline(h)
	if len(h) < 2 {
		return mutedStyle.Render(line)
	}
	switch last, prev := h[len(h)-1], h[len(h)-2]; {
	case last > prev:
		return upStyle.Render(line)
	case last < prev:
		return downStyle.Render(line)
	default:
		return mutedStyle.Render(line)
	}
}
