package game

// Instrument is a single tradable symbol.
type Instrument struct {
	Ticker string
	Price  float64
	Shares float64
}

// Portfolio is the mutable simulation state. It is not safe for concurrent
// use; Engine serializes access.
type Portfolio struct {
	Balance float64
	tick    int64
	order   []string
	stocks  map[string]*Instrument
}

// NewPortfolio returns the fresh-start market.
func NewPortfolio() *Portfolio {
	p := &Portfolio{
		Balance: StarterBalance,
		order:   make([]string, 0, len(seed)),
		stocks:  make(map[string]*Instrument, len(seed)),
	}
	for _, s := range seed {
		p.order = append(p.order, s.Ticker)
		p.stocks[s.Ticker] = &Instrument{Ticker: s.Ticker, Price: s.Price}
	}
	return p
}

// Instrument returns the live instrument for ticker, or nil.
func (p *Portfolio) Instrument(ticker string) *Instrument {
	return p.stocks[ticker]
}

// Tick is the number of ticks applied since this portfolio was created.
func (p *Portfolio) Tick() int64 {
	return p.tick
}

func (p *Portfolio) each(fn func(*Instrument)) {
	for _, t := range p.order {
		fn(p.stocks[t])
	}
}

// Hydrate overwrites balance plus price and shares of known tickers.
// Unknown tickers are ignored and missing ones keep their current values.
func (p *Portfolio) Hydrate(s State) {
	p.Balance = s.Balance
	for t, saved := range s.Stocks {
		inst := p.stocks[t]
		if inst == nil {
			continue
		}
		inst.Price = saved.Price
		inst.Shares = saved.Shares
		if inst.Price < MinPrice {
			inst.Price = MinPrice
		}
	}
}

// Snapshot deep-copies the portfolio; the result shares no memory with p.
func (p *Portfolio) Snapshot() Snapshot {
	out := Snapshot{
		Tick:    p.tick,
		Balance: p.Balance,
		Stocks:  make(map[string]StockState, len(p.order)),
	}
	p.each(func(inst *Instrument) {
		out.Stocks[inst.Ticker] = StockState{Price: inst.Price, Shares: inst.Shares}
	})
	return out
}
