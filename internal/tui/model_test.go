package tui

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"securesim/internal/game"
	"securesim/internal/store"
)

func newModel(t *testing.T) (Model, *game.Engine) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	engine := game.NewEngine(store.New(store.NewMemoryKV(), logger), logger, game.Options{})
	return New(context.Background(), engine), engine
}

func press(m Model, keys string) Model {
	next, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(keys)})
	return next.(Model)
}

func TestSparkline(t *testing.T) {
	assert.Equal(t, "", Sparkline(nil))
	assert.Equal(t, "▁▁▁", Sparkline([]float64{5, 5, 5}))
	assert.Equal(t, "▁█", Sparkline([]float64{1, 2}))
	assert.Equal(t, 4, len([]rune(Sparkline([]float64{3, 1, 4, 1}))))
}

func TestSnapshotHistoryIsBounded(t *testing.T) {
	m, _ := newModel(t)
	for i := 0; i < historyLen+7; i++ {
		next, _ := m.Update(SnapshotMsg(game.Snapshot{
			Tick:    int64(i),
			Balance: 1,
			Stocks:  map[string]game.StockState{"LUX": {Price: float64(100 + i)}},
		}))
		m = next.(Model)
	}
	h := m.history["LUX"]
	require.Len(t, h, historyLen)
	assert.Equal(t, float64(100+historyLen+6), h[len(h)-1])
	assert.Empty(t, m.history["FIZZ"])
	assert.Equal(t, 1.0, m.view.Balance)
}

func TestKeysMoveSelectionAndSize(t *testing.T) {
	m, _ := newModel(t)
	assert.Equal(t, "LUX", m.Ticker())
	assert.Equal(t, 25.0, m.Percent())

	m = press(m, "j")
	assert.Equal(t, "FIZZ", m.Ticker())
	m = press(m, "k")
	m = press(m, "k")
	assert.Equal(t, "NOVA", m.Ticker())

	m = press(m, "l")
	m = press(m, "l")
	m = press(m, "l")
	assert.Equal(t, 100.0, m.Percent())
	m = press(m, "h")
	assert.Equal(t, 50.0, m.Percent())
}

func TestBuyRunsAsCommand(t *testing.T) {
	m, engine := newModel(t)
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("b")})
	require.NotNil(t, cmd)
	assert.Equal(t, game.StarterBalance, engine.PublicView().Balance)

	msg := cmd()
	done, ok := msg.(tradeDoneMsg)
	require.True(t, ok)
	require.NoError(t, done.err)
	assert.Equal(t, 600.0, engine.PublicView().Balance)

	after, _ := next.(Model).Update(done)
	assert.True(t, strings.HasPrefix(after.(Model).status, "bought"))
	assert.False(t, after.(Model).failed)
}

func TestSellWithoutSharesShowsError(t *testing.T) {
	m, _ := newModel(t)
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("s")})
	next, _ := m.Update(cmd())
	got := next.(Model)
	assert.True(t, got.failed)
	assert.Equal(t, "no shares", got.status)
}

func TestResetNeedsConfirmation(t *testing.T) {
	m, engine := newModel(t)
	_, err := engine.BuyByPercent(context.Background(), "LUX", 50)
	require.NoError(t, err)

	m = press(m, "R")
	assert.True(t, m.confirm)
	m = press(m, "x")
	assert.False(t, m.confirm)
	assert.Equal(t, 400.0, engine.PublicView().Balance)

	m = press(m, "R")
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("R")})
	require.NotNil(t, cmd)
	cmd()
	assert.False(t, next.(Model).confirm)
	assert.Equal(t, game.StarterBalance, engine.PublicView().Balance)
}

func TestNoticesExpire(t *testing.T) {
	m, _ := newModel(t)
	now := time.Unix(1000, 0)
	m.now = func() time.Time { return now }

	for i := 0; i < maxNotices+1; i++ {
		next, _ := m.Update(NoticeMsg(game.Notice{Text: "n", Color: "cyan"}))
		m = next.(Model)
	}
	assert.Len(t, m.notices, maxNotices)

	now = now.Add(noticeTTL + time.Second)
	next, _ := m.Update(expireMsg{})
	assert.Empty(t, next.(Model).notices)
}

func TestViewRendersMarket(t *testing.T) {
	m, _ := newModel(t)
	m.ready = true
	out := m.View()
	for _, want := range []string{"SecureSim", "Beginner Investor", "$800.00", "LUX", "FIZZ", "NOVA", "25%"} {
		assert.Contains(t, out, want)
	}
}
