package cli

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"securesim/internal/api"
	"securesim/internal/config"
	"securesim/internal/game"
	"securesim/internal/store"
)

func newAPI(t *testing.T) *httptest.Server {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	engine := game.NewEngine(store.New(store.NewMemoryKV(), logger), logger, game.Options{})
	srv := api.New(config.APIConfig{TradeRPS: 100}, logger, engine, nil)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func TestClientTradeFlow(t *testing.T) {
	ctx := context.Background()
	c := NewClient(newAPI(t).URL + "/")

	view, err := c.View(ctx)
	require.NoError(t, err)
	assert.Equal(t, game.StarterBalance, view.Balance)

	res, err := c.PlaceOrder(ctx, "nova", "buy", 25, "idem-1")
	require.NoError(t, err)
	assert.Equal(t, "idem-1", res.TradeID)
	require.NotNil(t, res.SharesBought)
	assert.InDelta(t, 200.0/180.0, *res.SharesBought, 1e-9)
	assert.Equal(t, 600.0, res.View.Balance)

	view, err = c.Reset(ctx)
	require.NoError(t, err)
	assert.Equal(t, game.StarterBalance, view.Balance)
	assert.Equal(t, 0.0, view.Stocks["NOVA"].Shares)
}

func TestClientSurfacesAPIErrors(t *testing.T) {
	c := NewClient(newAPI(t).URL)
	_, err := c.PlaceOrder(context.Background(), "ZZZZ", "buy", 10, "")

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
	assert.Equal(t, "invalid ticker", apiErr.Message)
	assert.Equal(t, "api status 404: invalid ticker", err.Error())
}

func TestClientNonJSONError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "upstream down", http.StatusBadGateway)
	}))
	defer ts.Close()

	_, err := NewClient(ts.URL).View(context.Background())
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "upstream down", apiErr.Message)
}

func TestClientSendsOrderBody(t *testing.T) {
	var got api.OrderRequest
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true,"trade_id":"x","view":{}}`))
	}))
	defer ts.Close()

	_, err := NewClient(ts.URL).PlaceOrder(context.Background(), "FIZZ", "sell", 50, "")
	require.NoError(t, err)
	assert.Equal(t, api.OrderRequest{Ticker: "FIZZ", Side: "sell", Percent: 50}, got)
}
