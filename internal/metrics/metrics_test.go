package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"securesim/internal/game"
)

func TestObserveSnapshot(t *testing.T) {
	r := New()
	r.ObserveSnapshot(game.Snapshot{
		Balance: 100,
		Stocks: map[string]game.StockState{
			"LUX": {Price: 50, Shares: 2},
		},
	})

	assert.Equal(t, 1.0, testutil.ToFloat64(r.Ticks))
	assert.Equal(t, 100.0, testutil.ToFloat64(r.Balance))
	assert.Equal(t, 200.0, testutil.ToFloat64(r.NetWorth))
	assert.Equal(t, 50.0, testutil.ToFloat64(r.Price.WithLabelValues("LUX")))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.Holdings.WithLabelValues("LUX")))
}

func TestTradeAndOfflineCounters(t *testing.T) {
	r := New()
	r.Trade("buy", nil)
	r.Trade("buy", nil)
	r.Trade("sell", errors.New("no shares"))
	r.AddOfflineTicks(7)
	r.AddOfflineTicks(0)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.Trades.WithLabelValues("buy", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.Trades.WithLabelValues("sell", "rejected")))
	assert.Equal(t, 7.0, testutil.ToFloat64(r.OfflineTicks))
}

func TestHandlerExposesMetrics(t *testing.T) {
	r := New()
	r.ObserveSnapshot(game.NewPortfolio().Snapshot())

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, "securesim_balance_dollars 800"))
	assert.True(t, strings.Contains(body, `securesim_price_dollars{ticker="NOVA"} 180`))
}
