package game

// StockState is the persisted and published view of one instrument.
type StockState struct {
	Price  float64 `json:"price"`
	Shares float64 `json:"shares"`
}

// State is what gets written to storage after every mutation.
type State struct {
	Balance float64               `json:"balance"`
	Stocks  map[string]StockState `json:"stocks"`
}

// Snapshot is an independent copy of engine state handed to observers.
type Snapshot struct {
	Tick    int64                 `json:"tick"`
	Balance float64               `json:"balance"`
	Stocks  map[string]StockState `json:"stocks"`
}

// NetWorth is cash plus the market value of every holding.
func (s Snapshot) NetWorth() float64 {
	total := s.Balance
	for _, st := range s.Stocks {
		total += st.Price * st.Shares
	}
	return total
}

// State drops the diagnostic fields.
func (s Snapshot) State() State {
	out := State{Balance: s.Balance, Stocks: make(map[string]StockState, len(s.Stocks))}
	for k, v := range s.Stocks {
		out.Stocks[k] = v
	}
	return out
}

type NoticeKind string

const (
	NoticeDividend NoticeKind = "dividend"
	NoticeOffline  NoticeKind = "offline"
)

// Notice is a transient message for whatever view is attached.
type Notice struct {
	Kind  NoticeKind `json:"kind"`
	Text  string     `json:"text"`
	Color string     `json:"color"`
}
