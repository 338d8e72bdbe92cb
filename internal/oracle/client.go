package oracle

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/shopspring/decimal"
	"github.com/trogers1052/vault-valuation-service/internal/models"
)

const maxBodyBytes = 4 << 20

// Config controls the price oracle client
type Config struct {
	BaseURL    string
	APIKey     string
	BatchSize  int
	MaxRetries int
	BaseDelay  time.Duration
	Timeout    time.Duration
}

// Observer receives request outcomes, e.g. for metrics
type Observer interface {
	ObserveOracleRequest(outcome string, elapsed time.Duration)
	ObserveOracleRetry(reason string)
}

type nopObserver struct{}

func (nopObserver) ObserveOracleRequest(string, time.Duration) {}
func (nopObserver) ObserveOracleRetry(string)                   {}

// Client batch-fetches live USD prices. Batches run sequentially; rate
// limits and 5xx responses are retried with exponential backoff
// (BaseDelay * 2^n, no jitter) up to MaxRetries times.
type Client struct {
	cfg      Config
	http     *http.Client
	logger   *slog.Logger
	observer Observer
}

// NewClient creates a price oracle client
func NewClient(cfg Config, logger *slog.Logger, observer Observer) *Client {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if observer == nil {
		observer = nopObserver{}
	}
	return &Client{
		cfg:      cfg,
		http:     &http.Client{Timeout: cfg.Timeout},
		logger:   logger.With("component", "price_oracle"),
		observer: observer,
	}
}

// priceEntry mirrors one value of the price API's response object
type priceEntry struct {
	USDPrice       *json.Number `json:"usdPrice"`
	PriceChange24h *json.Number `json:"priceChange24h"`
}

// FetchPrices returns live prices keyed by asset. Keys the oracle has no
// data for are absent from the map. A batch that stays rate limited after
// all retries is skipped, so the result may be partial; callers decide
// whether a partial basket is acceptable. Timeouts return a *TimeoutError.
func (c *Client) FetchPrices(ctx context.Context, assetKeys []string) (map[string]models.LivePrice, error) {
	keys := dedupe(assetKeys)
	prices := make(map[string]models.LivePrice, len(keys))

	for start := 0; start < len(keys); start += c.cfg.BatchSize {
		end := min(start+c.cfg.BatchSize, len(keys))
		batch := keys[start:end]

		got, err := c.fetchBatchWithRetry(ctx, batch)
		if err != nil {
			if IsRateLimited(err) {
				c.logger.Warn("price batch skipped after rate limit retries",
					"assets", len(batch),
					"max_retries", c.cfg.MaxRetries,
					"error", err,
				)
				continue
			}
			return nil, err
		}
		for k, v := range got {
			prices[k] = v
		}
	}
	return prices, nil
}

// PriceMap reduces live prices to USD price per asset
func PriceMap(live map[string]models.LivePrice) map[string]decimal.Decimal {
	out := make(map[string]decimal.Decimal, len(live))
	for k, v := range live {
		out[k] = v.USDPrice
	}
	return out
}

// newRetryPolicy waits base, 2*base, 4*base, ... between attempts, without
// jitter, and gives up after maxRetries retries
func newRetryPolicy(base time.Duration, maxRetries int) backoff.BackOff {
	policy := &backoff.ExponentialBackOff{
		InitialInterval:     base,
		RandomizationFactor: 0,
		Multiplier:          2,
		MaxInterval:         time.Hour,
		MaxElapsedTime:      0,
		Stop:                backoff.Stop,
		Clock:               backoff.SystemClock,
	}
	policy.Reset()
	return backoff.WithMaxRetries(policy, uint64(maxRetries))
}

func (c *Client) fetchBatchWithRetry(ctx context.Context, batch []string) (map[string]models.LivePrice, error) {
	var result map[string]models.LivePrice
	attempt := 0
	operation := func() error {
		attempt++
		got, err := c.fetchBatch(ctx, batch)
		if err == nil {
			result = got
			return nil
		}

		var statusErr *StatusError
		if errors.As(err, &statusErr) && statusErr.Transient() {
			reason := "server_error"
			if statusErr.RateLimited {
				reason = "rate_limited"
			}
			c.observer.ObserveOracleRetry(reason)
			return err
		}
		return backoff.Permanent(err)
	}
	notify := func(err error, wait time.Duration) {
		c.logger.Warn("retrying price batch",
			"attempt", attempt,
			"wait_ms", wait.Milliseconds(),
			"error", err,
		)
	}

	b := backoff.WithContext(newRetryPolicy(c.cfg.BaseDelay, c.cfg.MaxRetries), ctx)
	if err := backoff.RetryNotify(operation, b, notify); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && !IsRateLimited(err) {
			return nil, classifyTransportError("price batch", ctxErr)
		}
		return nil, err
	}
	return result, nil
}

func (c *Client) fetchBatch(ctx context.Context, batch []string) (map[string]models.LivePrice, error) {
	u, err := url.Parse(strings.TrimRight(c.cfg.BaseURL, "/") + "/price")
	if err != nil {
		return nil, fmt.Errorf("invalid oracle base URL: %w", err)
	}
	q := u.Query()
	q.Set("ids", strings.Join(batch, ","))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.cfg.APIKey != "" {
		req.Header.Set("x-api-key", c.cfg.APIKey)
	}

	started := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.observer.ObserveOracleRequest("transport_error", time.Since(started))
		return nil, classifyTransportError("price request", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		c.observer.ObserveOracleRequest("transport_error", time.Since(started))
		return nil, classifyTransportError("price response read", err)
	}

	if err := classifyResponse(resp, body); err != nil {
		outcome := "error"
		if IsRateLimited(err) {
			outcome = "rate_limited"
		}
		c.observer.ObserveOracleRequest(outcome, time.Since(started))
		return nil, err
	}
	c.observer.ObserveOracleRequest("ok", time.Since(started))

	return decodePrices(body, batch, c.logger)
}

func decodePrices(body []byte, batch []string, logger *slog.Logger) (map[string]models.LivePrice, error) {
	var raw map[string]*priceEntry
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to decode price response: %w", err)
	}

	wanted := make(map[string]bool, len(batch))
	for _, k := range batch {
		wanted[k] = true
	}

	prices := make(map[string]models.LivePrice, len(raw))
	for key, entry := range raw {
		if !wanted[key] || entry == nil || entry.USDPrice == nil {
			continue
		}
		price, err := decimal.NewFromString(entry.USDPrice.String())
		if err != nil || price.IsNegative() {
			logger.Warn("ignoring unparseable oracle price", "asset", key, "value", entry.USDPrice.String())
			continue
		}
		lp := models.LivePrice{AssetKey: key, USDPrice: price, PriceChange24h: decimal.Zero}
		if entry.PriceChange24h != nil {
			if change, err := decimal.NewFromString(entry.PriceChange24h.String()); err == nil {
				lp.PriceChange24h = change
			}
		}
		prices[key] = lp
	}
	return prices, nil
}

func dedupe(keys []string) []string {
	seen := make(map[string]bool, len(keys))
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		k = strings.TrimSpace(k)
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, k)
	}
	return out
}
