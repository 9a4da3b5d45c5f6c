package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"securesim/internal/game"
)

// Recorder holds the simulator's Prometheus collectors on a private registry.
type Recorder struct {
	registry *prometheus.Registry

	Ticks        prometheus.Counter
	OfflineTicks prometheus.Counter
	Trades       *prometheus.CounterVec
	Balance      prometheus.Gauge
	NetWorth     prometheus.Gauge
	Price        *prometheus.GaugeVec
	Holdings     *prometheus.GaugeVec
}

func New() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		Ticks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "securesim_snapshots_total",
			Help: "Snapshots observed, one per tick, trade or reset",
		}),
		OfflineTicks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "securesim_offline_ticks_total",
			Help: "Ticks replayed while catching up after downtime",
		}),
		Trades: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "securesim_trades_total",
			Help: "Trade requests by side and result",
		}, []string{"side", "result"}),
		Balance: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "securesim_balance_dollars",
			Help: "Current cash balance",
		}),
		NetWorth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "securesim_net_worth_dollars",
			Help: "Cash plus market value of all holdings",
		}),
		Price: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "securesim_price_dollars",
			Help: "Last price per ticker",
		}, []string{"ticker"}),
		Holdings: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "securesim_shares_held",
			Help: "Shares held per ticker",
		}, []string{"ticker"}),
	}
	r.registry.MustRegister(
		r.Ticks, r.OfflineTicks, r.Trades, r.Balance, r.NetWorth, r.Price, r.Holdings,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

// ObserveSnapshot is shaped to be passed straight to Engine.Subscribe.
func (r *Recorder) ObserveSnapshot(s game.Snapshot) {
	r.Ticks.Inc()
	r.Balance.Set(s.Balance)
	r.NetWorth.Set(s.NetWorth())
	for ticker, st := range s.Stocks {
		r.Price.WithLabelValues(ticker).Set(st.Price)
		r.Holdings.WithLabelValues(ticker).Set(st.Shares)
	}
}

func (r *Recorder) Trade(side string, err error) {
	result := "ok"
	if err != nil {
		result = "rejected"
	}
	r.Trades.WithLabelValues(side, result).Inc()
}

func (r *Recorder) AddOfflineTicks(n int) {
	if n > 0 {
		r.OfflineTicks.Add(float64(n))
	}
}

func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
