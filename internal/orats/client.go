package orats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/calscan/calscan/internal/config"
)

var (
	// ErrNoAPIKey is returned when the client is built without a token.
	ErrNoAPIKey = errors.New("orats api key not configured")
	// ErrUnauthorized is returned for 401/403 responses.
	ErrUnauthorized = errors.New("orats rejected credentials")
	// ErrNotFound is returned for 404 responses and empty ticker results.
	ErrNotFound = errors.New("orats returned no data")
	// ErrMalformed is returned when a response does not have the expected shape.
	ErrMalformed = errors.New("malformed orats response")
)

// Observer receives the outcome of each vendor HTTP request.
type Observer interface {
	ObserveVendorRequest(endpoint string, status int, duration time.Duration)
}

// Client calls the ORATS datav2 REST API. The token is sent as the `token`
// query parameter on every request.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
	policy     RetryPolicy
	observer   Observer
	logger     *slog.Logger
}

// NewClient builds a client from vendor configuration. observer may be nil.
func NewClient(cfg config.VendorConfig, logger *slog.Logger, observer Observer) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, ErrNoAPIKey
	}

	policy := DefaultRetryPolicy()
	policy.MaxRetries = cfg.MaxRetries

	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		token:      cfg.APIKey,
		policy:     policy,
		observer:   observer,
		logger:     logger,
	}, nil
}

// Strikes returns every strike row for the ticker across all expirations.
func (c *Client) Strikes(ctx context.Context, ticker string) ([]StrikeRow, error) {
	var rows []StrikeRow
	if err := c.getRows(ctx, "/strikes", ticker, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: strikes for %s", ErrNotFound, ticker)
	}
	return rows, nil
}

// Cores returns the ticker's core volatility record.
func (c *Client) Cores(ctx context.Context, ticker string) (Core, error) {
	var rows []Core
	if err := c.getRows(ctx, "/cores", ticker, &rows); err != nil {
		return Core{}, err
	}
	if len(rows) == 0 {
		return Core{}, fmt.Errorf("%w: cores for %s", ErrNotFound, ticker)
	}
	return rows[0], nil
}

// Summaries returns the ticker's summary record.
func (c *Client) Summaries(ctx context.Context, ticker string) (Summary, error) {
	var rows []Summary
	if err := c.getRows(ctx, "/summaries", ticker, &rows); err != nil {
		return Summary{}, err
	}
	if len(rows) == 0 {
		return Summary{}, fmt.Errorf("%w: summaries for %s", ErrNotFound, ticker)
	}
	return rows[0], nil
}

// Expirations returns the ticker's distinct expirations in ascending order.
func (c *Client) Expirations(ctx context.Context, ticker string) ([]string, error) {
	rows, err := c.Strikes(ctx, ticker)
	if err != nil {
		return nil, err
	}
	return ExpirationsOf(rows), nil
}

// ExpirationsOf collects the distinct, sorted expirations present in rows.
func ExpirationsOf(rows []StrikeRow) []string {
	seen := make(map[string]bool)
	var exps []string
	for _, r := range rows {
		if r.ExpirDate == "" || seen[r.ExpirDate] {
			continue
		}
		seen[r.ExpirDate] = true
		exps = append(exps, r.ExpirDate)
	}
	sort.Strings(exps)
	return exps
}

func (c *Client) getRows(ctx context.Context, path, ticker string, out any) error {
	body, err := c.get(ctx, path, url.Values{"ticker": {strings.ToUpper(ticker)}})
	if err != nil {
		return err
	}

	raw, err := rowsJSON(body)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	if err := json.Unmarshal([]byte(raw), out); err != nil {
		return fmt.Errorf("%s: %w: %v", path, ErrMalformed, err)
	}
	return nil
}

// rowsJSON extracts the row array from either a {"data": [...]} envelope or a
// bare array.
func rowsJSON(body []byte) (string, error) {
	if !gjson.ValidBytes(body) {
		return "", fmt.Errorf("%w: invalid json", ErrMalformed)
	}

	result := gjson.GetBytes(body, "data")
	if !result.Exists() {
		result = gjson.ParseBytes(body)
	}

	if !result.IsArray() {
		return "", fmt.Errorf("%w: expected an array of rows", ErrMalformed)
	}
	return result.Raw, nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	params.Set("token", c.token)
	endpoint := c.baseURL + path + "?" + params.Encode()

	var body []byte
	err := Retry(ctx, c.policy, func() error {
		var err error
		body, err = c.do(ctx, path, endpoint)
		return err
	})
	if err != nil {
		return nil, err
	}
	return body, nil
}

func (c *Client) do(ctx context.Context, path, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", c.redact(path, err))
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.observe(path, 0, time.Since(start))
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &RetryableError{Err: fmt.Errorf("orats %s: %w", path, c.redact(path, err))}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	c.observe(path, resp.StatusCode, time.Since(start))
	if err != nil {
		return nil, &RetryableError{Err: fmt.Errorf("read orats %s: %w", path, err)}
	}

	c.logger.Debug("orats response", "path", path, "status", resp.StatusCode, "bytes", len(body))

	switch {
	case resp.StatusCode == http.StatusOK:
		return body, nil
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("%w (HTTP %d)", ErrUnauthorized, resp.StatusCode)
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s (HTTP 404)", ErrNotFound, path)
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		c.logger.Warn("orats request will be retried", "path", path, "status", resp.StatusCode)
		return nil, &RetryableError{
			Err:        fmt.Errorf("orats %s: HTTP %d", path, resp.StatusCode),
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
		}
	default:
		return nil, fmt.Errorf("orats %s: HTTP %d: %s", path, resp.StatusCode, preview(body))
	}
}

// redact replaces the request URL in transport errors, which carries the
// token as a query parameter, with the bare endpoint.
func (c *Client) redact(path string, err error) error {
	var ue *url.Error
	if errors.As(err, &ue) {
		return &url.Error{Op: ue.Op, URL: c.baseURL + path, Err: ue.Err}
	}
	return err
}

func (c *Client) observe(path string, status int, d time.Duration) {
	if c.observer != nil {
		c.observer.ObserveVendorRequest(path, status, d)
	}
}

func parseRetryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

func preview(body []byte) string {
	const limit = 200
	if len(body) > limit {
		return string(body[:limit])
	}
	return string(body)
}
