// Package fmp is a minimal client for the Financial Modeling Prep REST API.
//
// Every method performs exactly one GET request. There are no retries and no
// caching; a failed call is reported to the caller as-is.
package fmp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// DefaultBaseURL is the FMP v3 API root.
const DefaultBaseURL = "https://financialmodelingprep.com/api/v3"

// maxErrorBody bounds how much of a failed response is kept in APIError.Message.
const maxErrorBody = 512

var symbolPattern = regexp.MustCompile(`^[A-Z0-9.\-]{1,10}$`)

// Client calls the FMP API. It is safe for concurrent use.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

type config struct {
	baseURL    string
	timeout    time.Duration
	httpClient *http.Client
}

// Option is a functional option for Client.
type Option func(*config)

// WithBaseURL overrides DefaultBaseURL. A trailing slash is stripped.
func WithBaseURL(u string) Option {
	return func(c *config) {
		c.baseURL = u
	}
}

// WithTimeout sets a per-request HTTP timeout. Ignored when WithHTTPClient is used.
func WithTimeout(d time.Duration) Option {
	return func(c *config) {
		c.timeout = d
	}
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *config) {
		c.httpClient = hc
	}
}

// New constructs a Client. apiKey must not be empty.
func New(apiKey string, opts ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, errors.New("fmp: apiKey must not be empty")
	}
	cfg := &config{baseURL: DefaultBaseURL}
	for _, o := range opts {
		o(cfg)
	}
	hc := cfg.httpClient
	if hc == nil {
		hc = &http.Client{Timeout: cfg.timeout}
	}
	return &Client{
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(cfg.baseURL, "/"),
		httpClient: hc,
	}, nil
}

// NormalizeSymbol trims and upper-cases symbol and checks it is a plausible ticker.
func NormalizeSymbol(symbol string) (string, error) {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	if s == "" {
		return "", fmt.Errorf("%w: symbol is empty", ErrInvalidSymbol)
	}
	if !symbolPattern.MatchString(s) {
		return "", fmt.Errorf("%w: %q", ErrInvalidSymbol, symbol)
	}
	return s, nil
}

// Quote fetches current price data (/quote-order/{symbol}).
func (c *Client) Quote(ctx context.Context, symbol string) (*Quote, error) {
	return firstForSymbol[Quote](ctx, c, "quote-order", symbol, nil)
}

// Profile fetches the company profile (/profile/{symbol}).
func (c *Client) Profile(ctx context.Context, symbol string) (*Profile, error) {
	return firstForSymbol[Profile](ctx, c, "profile", symbol, nil)
}

// IncomeStatement fetches the latest annual income statement (/income-statement/{symbol}).
func (c *Client) IncomeStatement(ctx context.Context, symbol string) (*IncomeStatement, error) {
	return firstForSymbol[IncomeStatement](ctx, c, "income-statement", symbol, url.Values{"period": {"annual"}})
}

// BalanceSheet fetches the latest balance sheet (/balance-sheet-statement/{symbol}).
func (c *Client) BalanceSheet(ctx context.Context, symbol string) (*BalanceSheet, error) {
	return firstForSymbol[BalanceSheet](ctx, c, "balance-sheet-statement", symbol, url.Values{"limit": {"1"}})
}

// CashFlow fetches the latest cash flow statement (/cash-flow-statement/{symbol}).
func (c *Client) CashFlow(ctx context.Context, symbol string) (*CashFlow, error) {
	return firstForSymbol[CashFlow](ctx, c, "cash-flow-statement", symbol, url.Values{"limit": {"1"}})
}

// Screener lists companies matching f (/stock-screener). An empty result is ErrNoData.
func (c *Client) Screener(ctx context.Context, f ScreenerFilter) ([]ScreenerResult, error) {
	if f.Sector == "" && f.Industry == "" {
		return nil, fmt.Errorf("%w: screener needs a sector or an industry", ErrDomain)
	}
	q := url.Values{}
	if f.Sector != "" {
		q.Set("sector", f.Sector)
	}
	if f.Industry != "" {
		q.Set("industry", f.Industry)
	}
	if f.Limit > 0 {
		q.Set("limit", strconv.Itoa(f.Limit))
	}
	rows, err := get[[]ScreenerResult](ctx, c, "stock-screener", q)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: screener sector=%q industry=%q", ErrNoData, f.Sector, f.Industry)
	}
	if f.Limit > 0 && len(rows) > f.Limit {
		rows = rows[:f.Limit]
	}
	return rows, nil
}

// HistoricalPrices fetches daily bars, newest first, keeping at most days entries
// (/historical-price-full/{symbol}). days <= 0 keeps everything.
func (c *Client) HistoricalPrices(ctx context.Context, symbol string, days int) ([]HistoricalPrice, error) {
	sym, err := NormalizeSymbol(symbol)
	if err != nil {
		return nil, err
	}
	resp, err := get[historicalResponse](ctx, c, "historical-price-full/"+url.PathEscape(sym), nil)
	if err != nil {
		return nil, err
	}
	if len(resp.Historical) == 0 {
		return nil, fmt.Errorf("%w: historical prices for %s", ErrNoData, sym)
	}
	if days > 0 && len(resp.Historical) > days {
		return resp.Historical[:days], nil
	}
	return resp.Historical, nil
}

// firstForSymbol requests an array endpoint keyed by symbol and returns its first element.
func firstForSymbol[T any](ctx context.Context, c *Client, endpoint, symbol string, q url.Values) (*T, error) {
	sym, err := NormalizeSymbol(symbol)
	if err != nil {
		return nil, err
	}
	rows, err := get[[]T](ctx, c, endpoint+"/"+url.PathEscape(sym), q)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: %s for %s", ErrNoData, endpoint, sym)
	}
	return &rows[0], nil
}

// errorDocument is what FMP sends (sometimes with status 200) for bad keys and plan limits.
type errorDocument struct {
	Message string `json:"Error Message"`
}

// get performs one GET request and decodes the JSON body into R.
func get[R any](ctx context.Context, c *Client, path string, q url.Values) (R, error) {
	var zero R
	if q == nil {
		q = url.Values{}
	}
	q.Set("apikey", c.apiKey)
	endpoint := c.baseURL + "/" + path + "?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return zero, fmt.Errorf("%w: build request %s: %w", ErrUnavailable, path, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// url.Error embeds the full URL, which carries the API key.
		var uerr *url.Error
		if errors.As(err, &uerr) {
			err = uerr.Err
		}
		return zero, fmt.Errorf("%w: GET %s: %w", ErrUnavailable, path, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return zero, fmt.Errorf("%w: read %s: %w", ErrUnavailable, path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return zero, &APIError{StatusCode: resp.StatusCode, Message: errorMessage(body)}
	}
	if bytes.HasPrefix(bytes.TrimSpace(body), []byte("{")) {
		var doc errorDocument
		if json.Unmarshal(body, &doc) == nil && doc.Message != "" {
			return zero, &APIError{StatusCode: resp.StatusCode, Message: doc.Message}
		}
	}

	var out R
	if err := json.Unmarshal(body, &out); err != nil {
		return zero, fmt.Errorf("%w: decode %s: %w", ErrUnavailable, path, err)
	}
	return out, nil
}

func errorMessage(body []byte) string {
	var doc errorDocument
	if json.Unmarshal(body, &doc) == nil && doc.Message != "" {
		return doc.Message
	}
	msg := strings.TrimSpace(string(body))
	if len(msg) > maxErrorBody {
		msg = msg[:maxErrorBody]
	}
	return msg
}
