package game

// Ledger moves cash and shares. Every operation validates before it mutates,
// so a failed call leaves the portfolio untouched.
type Ledger struct {
	DividendRate float64
}

func NewLedger() Ledger {
	return Ledger{DividendRate: DividendRate}
}

// BuyByPercent invests percent of the current balance in ticker and returns
// the shares bought. Percent above 100 is accepted and overdraws the balance.
func (l Ledger) BuyByPercent(p *Portfolio, ticker string, percent float64) (float64, error) {
	inst := p.Instrument(ticker)
	if inst == nil {
		return 0, ErrInvalidTicker
	}
	investment := p.Balance * (percent / 100)
	if !(investment > 0) {
		return 0, ErrNoFunds
	}
	shares := investment / inst.Price
	p.Balance -= investment
	inst.Shares += shares
	return shares, nil
}

// SellByPercent liquidates percent of the held shares at the current price
// and returns the cash gained.
func (l Ledger) SellByPercent(p *Portfolio, ticker string, percent float64) (float64, error) {
	inst := p.Instrument(ticker)
	if inst == nil {
		return 0, ErrInvalidTicker
	}
	sell := inst.Shares * (percent / 100)
	if !(sell > 0) {
		return 0, ErrNoShares
	}
	gain := sell * inst.Price
	inst.Shares -= sell
	p.Balance += gain
	return gain, nil
}

// PayDividends credits price*shares*rate for every holding and returns the
// total paid.
func (l Ledger) PayDividends(p *Portfolio) float64 {
	var total float64
	p.each(func(inst *Instrument) {
		payout := inst.Price * inst.Shares * l.DividendRate
		p.Balance += payout
		total += payout
	})
	return total
}
