// Package delta is a REST client for the Delta Exchange v2 API covering the
// calls the trading loop needs: candles, products, orders and positions.
//
// Usage:
//
//	c := delta.New(delta.Config{APIKey: key, APISecret: secret})
//	candles, err := c.FetchCandles(ctx, "ETHUSD", "5m", 0, 0)
//	order, err := c.PlaceMarketOrder(ctx, "ETHUSD", 5, model.OrderBuy, false)
package delta

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	DefaultBaseURL = "https://api.india.delta.exchange"
	defaultTimeout = 30 * time.Second
	userAgent      = "supertrend-bot"
)

// Config configures a Client. APIKey and APISecret are only needed for
// authenticated calls (orders, positions).
type Config struct {
	APIKey    string
	APISecret string
	BaseURL   string        // default: DefaultBaseURL
	Timeout   time.Duration // default: 30s
	Debug     bool

	// BatchSize is the max candles per request in FetchCandlesBatched (default 500).
	BatchSize int
	// Throttle is the pause between batched requests (default 300ms).
	Throttle time.Duration

	// OnRequest observes every HTTP round trip; status is 0 on transport errors.
	OnRequest func(method, path string, status int, took time.Duration)
}

// Client talks to one Delta Exchange deployment. Safe for concurrent use.
type Client struct {
	apiKey    string
	apiSecret string
	baseURL   string
	debug     bool
	batchSize int
	throttle  time.Duration
	onRequest func(method, path string, status int, took time.Duration)

	httpClient *http.Client
	now        func() time.Time

	productsMu sync.Mutex
	products   map[string]int64
}

// New creates a Client.
func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 500
	}
	if cfg.Throttle == 0 {
		cfg.Throttle = 300 * time.Millisecond
	}
	return &Client{
		apiKey:     cfg.APIKey,
		apiSecret:  cfg.APISecret,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		debug:      cfg.Debug,
		batchSize:  cfg.BatchSize,
		throttle:   cfg.Throttle,
		onRequest:  cfg.OnRequest,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		now:        time.Now,
	}
}

// APIError is a non-2xx or success:false response.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("delta: HTTP %d %s: %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("delta: HTTP %d %s", e.Status, e.Code)
}

// envelope is the common response shape.
type envelope struct {
	Success bool            `json:"success"`
	Result  json.RawMessage `json:"result"`
	Error   *struct {
		Code    string          `json:"code"`
		Context json.RawMessage `json:"context"`
	} `json:"error"`
	Message string `json:"message"`
}

// sign returns hex(HMAC-SHA256(secret, method+timestamp+path+query+body)).
// query includes its leading '?' when non-empty.
func sign(secret, method, timestamp, path, query, body string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(method + timestamp + path + query + body))
	return hex.EncodeToString(mac.Sum(nil))
}

// doRequest performs one call and returns the raw "result" field.
func (c *Client) doRequest(ctx context.Context, method, path string, params url.Values, payload any, auth bool) (json.RawMessage, error) {
	query := ""
	if len(params) > 0 {
		// Encode sorts by key, which the signature requires.
		query = "?" + params.Encode()
	}

	var body []byte
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("delta: encode %s %s: %w", method, path, err)
		}
		body = b
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path+query, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if auth {
		if c.apiKey == "" || c.apiSecret == "" {
			return nil, fmt.Errorf("delta: %s %s needs API credentials", method, path)
		}
		ts := strconv.FormatInt(c.now().Unix(), 10)
		req.Header.Set("api-key", c.apiKey)
		req.Header.Set("timestamp", ts)
		req.Header.Set("signature", sign(c.apiSecret, method, ts, path, query, string(body)))
	}

	if c.debug {
		log.Printf("[delta] request: %s %s%s body=%s", method, path, query, body)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.observe(method, path, 0, start)
		return nil, fmt.Errorf("delta: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()
	c.observe(method, path, resp.StatusCode, start)

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("delta: read %s %s: %w", method, path, err)
	}
	if c.debug {
		log.Printf("[delta] response: code=%d body=%s", resp.StatusCode, raw)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		if resp.StatusCode >= 300 {
			return nil, &APIError{Status: resp.StatusCode, Code: http.StatusText(resp.StatusCode), Message: truncate(string(raw), 200)}
		}
		return nil, fmt.Errorf("delta: couldn't parse JSON response for %s %s: %w", method, path, err)
	}
	if resp.StatusCode >= 300 || !env.Success {
		apiErr := &APIError{Status: resp.StatusCode, Message: env.Message}
		if env.Error != nil {
			apiErr.Code = env.Error.Code
			if apiErr.Message == "" && len(env.Error.Context) > 0 && string(env.Error.Context) != "null" {
				apiErr.Message = truncate(string(env.Error.Context), 200)
			}
		}
		return nil, apiErr
	}
	return env.Result, nil
}

func (c *Client) observe(method, path string, status int, start time.Time) {
	if c.onRequest != nil {
		c.onRequest(method, path, status, time.Since(start))
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// flexFloat decodes numbers sent either as JSON numbers or as strings.
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return fmt.Errorf("delta: bad number %s", b)
	}
	*f = flexFloat(v)
	return nil
}
