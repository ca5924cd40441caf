// Package apiclient issues the two one-shot requests the dashboard needs:
// the filter query and the backtest run. No retries, no timeouts at this
// layer — a hung request is the caller's spinner problem, and a failed one
// escalates exactly one level, to a user-visible notice.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"stocktail/internal/model"
)

// Client talks to the origin server's HTTP API.
type Client struct {
	base string
	hc   *http.Client
}

// New creates a client for the given base URL, e.g. "http://localhost:8080".
func New(base string) *Client {
	return &Client{base: base, hc: &http.Client{}}
}

// Stocks runs the filter query and returns the full instrument objects that
// satisfy the bounds. Zero bounds mean unbounded.
func (c *Client) Stocks(ctx context.Context, filter model.StockFilter) ([]model.Stock, error) {
	q := url.Values{}
	q.Set("min_market_cap", strconv.FormatFloat(filter.MinMarketCap, 'f', -1, 64))
	q.Set("max_market_cap", strconv.FormatFloat(filter.MaxMarketCap, 'f', -1, 64))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/api/stocks?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("stocks request: %w", err)
	}

	var stocks []model.Stock
	if err := c.do(req, &stocks); err != nil {
		return nil, fmt.Errorf("stocks query: %w", err)
	}
	return stocks, nil
}

// Backtest runs one backtest and returns the result wholesale.
func (c *Client) Backtest(ctx context.Context, params model.BacktestParams) (*model.BacktestResult, error) {
	body, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("backtest params: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/api/backtest", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("backtest request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	var result model.BacktestResult
	if err := c.do(req, &result); err != nil {
		return nil, fmt.Errorf("backtest: %w", err)
	}
	return &result, nil
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.hc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return fmt.Errorf("status %d: %s", resp.StatusCode, snippet)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
