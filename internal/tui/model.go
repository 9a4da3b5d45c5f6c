package tui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"securesim/internal/game"
)

const (
	historyLen   = 50
	maxNotices   = 3
	noticeTTL    = 6 * time.Second
	tradeTimeout = 5 * time.Second
)

var percentSteps = []float64{10, 25, 50, 100}

// Engine is what the TUI drives. Trades run inside tea.Cmds, off the update
// loop, because the engine delivers snapshots back through Program.Send.
type Engine interface {
	Init(ctx context.Context) (int, error)
	Run(ctx context.Context) error
	PublicView() game.Snapshot
	BuyByPercent(ctx context.Context, ticker string, percent float64) (float64, error)
	SellByPercent(ctx context.Context, ticker string, percent float64) (float64, error)
	Reset(ctx context.Context)
}

type (
	SnapshotMsg game.Snapshot
	NoticeMsg   game.Notice

	initDoneMsg struct {
		replayed int
		err      error
	}
	tradeDoneMsg struct {
		text string
		err  error
	}
	expireMsg struct{}
)

type noticeLine struct {
	game.Notice
	until time.Time
}

type Model struct {
	ctx    context.Context
	engine Engine
	now    func() time.Time

	tickers  []string
	selected int
	step     int

	view    game.Snapshot
	history map[string][]float64
	notices []noticeLine
	status  string
	failed  bool
	ready   bool
	confirm bool

	keys  keyMap
	help  help.Model
	width int
}

func New(ctx context.Context, engine Engine) Model {
	tickers := game.Tickers()
	return Model{
		ctx:     ctx,
		engine:  engine,
		now:     time.Now,
		tickers: tickers,
		step:    1,
		view:    engine.PublicView(),
		history: make(map[string][]float64, len(tickers)),
		keys:    defaultKeys(),
		help:    help.New(),
	}
}

func (m Model) Init() tea.Cmd {
	return func() tea.Msg {
		n, err := m.engine.Init(m.ctx)
		return initDoneMsg{replayed: n, err: err}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width
		return m, nil

	case initDoneMsg:
		if msg.err != nil {
			m.status, m.failed = "catch-up interrupted: "+msg.err.Error(), true
			return m, tea.Quit
		}
		m.ready = true
		go func() { _ = m.engine.Run(m.ctx) }()
		return m, nil

	case SnapshotMsg:
		m.observe(game.Snapshot(msg))
		return m, nil

	case NoticeMsg:
		m.notices = append(m.notices, noticeLine{Notice: game.Notice(msg), until: m.now().Add(noticeTTL)})
		if len(m.notices) > maxNotices {
			m.notices = m.notices[len(m.notices)-maxNotices:]
		}
		return m, tea.Tick(noticeTTL, func(time.Time) tea.Msg { return expireMsg{} })

	case expireMsg:
		now := m.now()
		kept := m.notices[:0]
		for _, n := range m.notices {
			if n.until.After(now) {
				kept = append(kept, n)
			}
		}
		m.notices = kept
		return m, nil

	case tradeDoneMsg:
		if msg.err != nil {
			m.status, m.failed = msg.err.Error(), true
		} else {
			m.status, m.failed = msg.text, false
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.confirm {
		m.confirm = false
		if key.Matches(msg, m.keys.Reset) {
			return m, m.reset()
		}
		m.status, m.failed = "reset cancelled", false
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Up):
		m.selected = (m.selected + len(m.tickers) - 1) % len(m.tickers)
	case key.Matches(msg, m.keys.Down):
		m.selected = (m.selected + 1) % len(m.tickers)
	case key.Matches(msg, m.keys.Less):
		if m.step > 0 {
			m.step--
		}
	case key.Matches(msg, m.keys.More):
		if m.step < len(percentSteps)-1 {
			m.step++
		}
	case key.Matches(msg, m.keys.Buy):
		return m, m.trade("buy")
	case key.Matches(msg, m.keys.Sell):
		return m, m.trade("sell")
	case key.Matches(msg, m.keys.Reset):
		m.confirm = true
		m.status, m.failed = "press R again to wipe your save", false
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
	}
	return m, nil
}

func (m *Model) observe(s game.Snapshot) {
	m.view = s
	for _, t := range m.tickers {
		st, ok := s.Stocks[t]
		if !ok {
			continue
		}
		h := append(m.history[t], st.Price)
		if len(h) > historyLen {
			h = h[len(h)-historyLen:]
		}
		m.history[t] = h
	}
}

func (m Model) Ticker() string {
	return m.tickers[m.selected]
}

func (m Model) Percent() float64 {
	return percentSteps[m.step]
}

func (m Model) trade(side string) tea.Cmd {
	ticker, pct := m.Ticker(), m.Percent()
	engine, parent := m.engine, m.ctx
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(parent, tradeTimeout)
		defer cancel()
		if side == "buy" {
			shares, err := engine.BuyByPercent(ctx, ticker, pct)
			return tradeDoneMsg{text: fmtBought(ticker, shares), err: err}
		}
		gain, err := engine.SellByPercent(ctx, ticker, pct)
		return tradeDoneMsg{text: fmtSold(ticker, gain), err: err}
	}
}

func (m Model) reset() tea.Cmd {
	engine, parent := m.engine, m.ctx
	return func() tea.Msg {
		engine.Reset(parent)
		return tradeDoneMsg{text: "game reset"}
	}
}

type keyMap struct {
	Up, Down, Less, More key.Binding
	Buy, Sell, Reset     key.Binding
	Help, Quit           key.Binding
}

func defaultKeys() keyMap {
	return keyMap{
		Up:    key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "prev stock")),
		Down:  key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "next stock")),
		Less:  key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/h", "smaller %")),
		More:  key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→/l", "bigger %")),
		Buy:   key.NewBinding(key.WithKeys("b"), key.WithHelp("b", "buy")),
		Sell:  key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "sell")),
		Reset: key.NewBinding(key.WithKeys("R"), key.WithHelp("R", "reset")),
		Help:  key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Quit:  key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Buy, k.Sell, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Less, k.More},
		{k.Buy, k.Sell, k.Reset},
		{k.Help, k.Quit},
	}
}
