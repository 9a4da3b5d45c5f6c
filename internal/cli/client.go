package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"securesim/internal/api"
)

type Client struct {
	BaseURL string
	HTTP    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// APIError is a non-2xx answer from the simulator API.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api status %d: %s", e.Status, e.Message)
}

func (c *Client) View(ctx context.Context) (api.View, error) {
	var out api.View
	err := c.jsonRequest(ctx, http.MethodGet, "/v1/view", nil, &out, "")
	return out, err
}

func (c *Client) PlaceOrder(ctx context.Context, ticker, side string, percent float64, idem string) (api.TradeResult, error) {
	var out api.TradeResult
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/orders", api.OrderRequest{
		Ticker:  ticker,
		Side:    side,
		Percent: percent,
	}, &out, idem)
	return out, err
}

func (c *Client) Reset(ctx context.Context) (api.View, error) {
	var out struct {
		View api.View `json:"view"`
	}
	err := c.jsonRequest(ctx, http.MethodPost, "/v1/reset", nil, &out, "")
	return out.View, err
}

func (c *Client) jsonRequest(ctx context.Context, method, path string, in any, out any, idem string) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if idem != "" {
		req.Header.Set("Idempotency-Key", idem)
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &APIError{Status: resp.StatusCode, Message: errorMessage(raw)}
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// errorMessage pulls "error" out of a JSON error body, falling back to the
// raw text.
func errorMessage(raw []byte) string {
	var body struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(raw, &body); err == nil && body.Error != "" {
		return body.Error
	}
	return strings.TrimSpace(string(raw))
}
