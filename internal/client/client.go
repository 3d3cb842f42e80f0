// Package client talks to the JPL Horizons API and hands the text tables it
// returns to the decoders in package horizons.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/star/horizons/internal/metrics"
)

// DefaultBaseURL is the public Horizons API endpoint.
const DefaultBaseURL = "https://ssd.jpl.nasa.gov/api/horizons.api"

// Config holds client settings.
type Config struct {
	BaseURL      string
	Center       string        // CENTER parameter, e.g. "500@10" for the Sun
	Timeout      time.Duration // per attempt
	MaxAttempts  int
	Backoff      time.Duration // fixed delay between attempts
	MaxBodyBytes int64
}

// DefaultConfig returns the settings used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		BaseURL:      DefaultBaseURL,
		Center:       "500@10",
		Timeout:      30 * time.Second,
		MaxAttempts:  3,
		Backoff:      2 * time.Second,
		MaxBodyBytes: 50 << 20,
	}
}

// Client queries Horizons. It is safe for concurrent use.
type Client struct {
	cfg        Config
	httpClient *http.Client
	logger     *slog.Logger
}

// New creates a Client. Zero fields in cfg take their DefaultConfig value.
func New(cfg Config, logger *slog.Logger) *Client {
	def := DefaultConfig()
	if cfg.BaseURL == "" {
		cfg.BaseURL = def.BaseURL
	}
	if cfg.Center == "" {
		cfg.Center = def.Center
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = def.MaxAttempts
	}
	if cfg.Backoff < 0 {
		cfg.Backoff = def.Backoff
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = def.MaxBodyBytes
	}
	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		logger: logger.With("component", "client"),
	}
}

// BaseURL returns the configured API endpoint.
func (c *Client) BaseURL() string {
	return c.cfg.BaseURL
}

// envelope is the JSON wrapper around every Horizons answer. The tables are
// in Result as one human readable string.
type envelope struct {
	Result string `json:"result"`
	Error  string `json:"error"`
}

// APIError is an error message returned by Horizons itself, e.g. for an
// unknown target. It is never retried.
type APIError struct {
	Message string
}

func (e *APIError) Error() string {
	return "horizons: " + e.Message
}

// Query performs one Horizons request and returns the result text. Transport
// failures, 429 and 5xx responses are retried up to MaxAttempts times with a
// fixed delay; other failures return immediately.
func (c *Client) Query(ctx context.Context, product string, params url.Values) (string, error) {
	q := url.Values{}
	for k, v := range params {
		q[k] = v
	}
	q.Set("format", "json")
	reqURL := c.cfg.BaseURL + "?" + q.Encode()

	var result string
	attempt := 0
	operation := func() error {
		attempt++
		start := time.Now()
		text, err := c.fetch(ctx, reqURL)
		outcome := "ok"
		if err != nil {
			outcome = "error"
		}
		metrics.ObserveUpstreamRequest(product, outcome, time.Since(start))
		c.logger.Debug("horizons request",
			"product", product,
			"attempt", attempt,
			"outcome", outcome,
			"duration_ms", time.Since(start).Milliseconds(),
		)
		if err != nil {
			return err
		}
		result = text
		return nil
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(c.cfg.Backoff), uint64(c.cfg.MaxAttempts-1)),
		ctx,
	)
	notify := func(err error, wait time.Duration) {
		metrics.IncUpstreamRetry(product)
		c.logger.Warn("horizons request failed, retrying",
			"product", product,
			"attempt", attempt,
			"retry_in", wait.String(),
			"error", err,
		)
	}

	if err := backoff.RetryNotify(operation, policy, notify); err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) || ctx.Err() != nil {
			return "", err
		}
		return "", fmt.Errorf("querying horizons %s after %d attempt(s): %w", product, attempt, err)
	}
	return result, nil
}

func (c *Client) fetch(ctx context.Context, reqURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return "", backoff.Permanent(fmt.Errorf("creating request: %w", err))
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetching horizons data: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.cfg.MaxBodyBytes+1))
	if err != nil {
		return "", fmt.Errorf("reading response body: %w", err)
	}
	if int64(len(body)) > c.cfg.MaxBodyBytes {
		return "", backoff.Permanent(fmt.Errorf("response exceeds %d byte limit", c.cfg.MaxBodyBytes))
	}

	var env envelope
	jsonErr := json.Unmarshal(body, &env)

	// Horizons reports bad queries as 400 with an error envelope.
	if jsonErr == nil && env.Error != "" {
		return "", backoff.Permanent(&APIError{Message: env.Error})
	}

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("unexpected status code %d from %s", resp.StatusCode, c.cfg.BaseURL)
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return "", err
		}
		return "", backoff.Permanent(err)
	}

	if jsonErr != nil {
		return "", backoff.Permanent(fmt.Errorf("decoding response envelope: %w", jsonErr))
	}
	return env.Result, nil
}
