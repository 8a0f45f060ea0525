package polygon

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/wonny/topmover/backend/internal/contracts"
	"github.com/wonny/topmover/backend/pkg/config"
	"github.com/wonny/topmover/backend/pkg/httputil"
	"github.com/wonny/topmover/backend/pkg/logger"
)

// rangeRowLimit caps aggregate rows per request; a year of daily bars fits easily.
const rangeRowLimit = "5000"

// Client handles communication with the market data provider
// ⭐ SSOT: 시세 API 호출은 이 클라이언트에서만
type Client struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	baseURL    string
	apiKey     string
}

var _ contracts.MarketDataClient = (*Client)(nil)

// NewClient creates a new provider client
func NewClient(httpClient *httputil.Client, cfg *config.Config, log *logger.Logger) *Client {
	return &Client{
		httpClient: httpClient,
		logger:     log.Module("polygon"),
		baseURL:    strings.TrimRight(cfg.Provider.BaseURL, "/"),
		apiKey:     cfg.Provider.APIKey,
	}
}

// FetchPoint fetches one ticker's open/close for one date.
// Returns nil, nil when the provider reports no data or the fields are unusable.
func (c *Client) FetchPoint(ctx context.Context, ticker, date string) (*contracts.Candle, error) {
	path := fmt.Sprintf("/v1/open-close/%s/%s", url.PathEscape(ticker), date)
	params := url.Values{}
	params.Set("adjusted", "true")

	payload, err := c.fetchJSON(ctx, path, params)
	if err != nil {
		return nil, fmt.Errorf("open-close %s %s: %w", ticker, date, err)
	}

	if noData(payload) {
		c.logger.WithFields(map[string]interface{}{
			"ticker": ticker,
			"date":   date,
			"status": payload.Get("status").String(),
		}).Debug("Provider reported no data")
		return nil, nil
	}

	open, closePrice, ok := extractOpenClose(payload)
	if !ok {
		return nil, nil
	}

	return &contracts.Candle{Date: date, Open: open, Close: closePrice}, nil
}

// FetchRange fetches daily aggregates for [start, end], ascending.
// Rows without o, c and a valid t are dropped.
func (c *Client) FetchRange(ctx context.Context, ticker, start, end string) (contracts.Series, error) {
	path := fmt.Sprintf("/v2/aggs/ticker/%s/range/1/day/%s/%s", url.PathEscape(ticker), start, end)
	params := url.Values{}
	params.Set("adjusted", "true")
	params.Set("sort", "asc")
	params.Set("limit", rangeRowLimit)

	payload, err := c.fetchJSON(ctx, path, params)
	if err != nil {
		return nil, fmt.Errorf("aggregates %s %s..%s: %w", ticker, start, end, err)
	}

	series := contracts.Series{}
	if noData(payload) {
		return series, nil
	}

	results := payload.Get("results")
	if !results.IsArray() {
		return series, nil
	}

	dropped := 0
	results.ForEach(func(_, row gjson.Result) bool {
		candle, ok := parseAggregateRow(row)
		if !ok {
			dropped++
			return true
		}
		series[candle.Date] = candle
		return true
	})

	if dropped > 0 {
		c.logger.WithFields(map[string]interface{}{
			"ticker":  ticker,
			"dropped": dropped,
		}).Debug("Dropped malformed aggregate rows")
	}

	return series, nil
}

// fetchJSON performs the GET with the API key attached and parses the body
func (c *Client) fetchJSON(ctx context.Context, path string, params url.Values) (gjson.Result, error) {
	params.Set("apiKey", c.apiKey)
	fullURL := fmt.Sprintf("%s%s?%s", c.baseURL, path, params.Encode())

	body, err := c.httpClient.GetBody(ctx, fullURL)
	if err != nil {
		return gjson.Result{}, err
	}

	if !gjson.ValidBytes(body) {
		return gjson.Result{}, fmt.Errorf("invalid JSON response from %s", path)
	}

	return gjson.ParseBytes(body), nil
}

// noData reports a provider-level NOT_FOUND or ERROR status
func noData(payload gjson.Result) bool {
	switch strings.ToUpper(payload.Get("status").String()) {
	case "NOT_FOUND", "ERROR":
		return true
	}
	return false
}
