// Package httpclient wraps http.Client with bounded retries and backoff.
package httpclient

import (
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"net/http"
	"strconv"
	"time"
)

// Config holds retry and timeout behaviour.
type Config struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Timeout     time.Duration
}

// DefaultConfig returns conservative defaults suited to a local *arr instance.
func DefaultConfig() Config {
	return Config{
		MaxAttempts: 3,
		BaseDelay:   500 * time.Millisecond,
		MaxDelay:    10 * time.Second,
		Timeout:     30 * time.Second,
	}
}

// Client retries transient failures. Non-idempotent requests are never
// retried after a server error, since a duplicated create is worse than a
// failed run.
type Client struct {
	http *http.Client
	cfg  Config
	log  *slog.Logger
}

// New returns a Client using the given configuration.
func New(cfg Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	return &Client{
		http: &http.Client{Timeout: cfg.Timeout},
		cfg:  cfg,
		log:  logger,
	}
}

// Do executes the request, retrying on 429 and, for idempotent methods, on
// transient network errors and 5xx responses.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	var lastErr error
	var lastResp *http.Response

	for attempt := 1; attempt <= c.cfg.MaxAttempts; attempt++ {
		if attempt > 1 {
			if err := c.wait(req, attempt, lastResp); err != nil {
				return nil, err
			}
			if err := rewindBody(req); err != nil {
				return nil, err
			}
		}

		resp, err := c.http.Do(req)
		if err != nil {
			if ctxErr := req.Context().Err(); ctxErr != nil {
				return nil, ctxErr
			}
			if !idempotent(req.Method) {
				return nil, err
			}
			lastErr, lastResp = err, nil
			continue
		}
		if !retryable(resp.StatusCode, req.Method) {
			return resp, nil
		}
		lastErr = fmt.Errorf("HTTP %d from %s %s", resp.StatusCode, req.Method, req.URL)
		lastResp = resp
		_ = resp.Body.Close()
	}

	return nil, fmt.Errorf("giving up after %d attempts: %w", c.cfg.MaxAttempts, lastErr)
}

func (c *Client) wait(req *http.Request, attempt int, lastResp *http.Response) error {
	delay := c.backoff(attempt)
	if ra := retryAfter(lastResp); ra > delay {
		delay = ra
	}
	if delay > c.cfg.MaxDelay {
		delay = c.cfg.MaxDelay
	}

	c.log.Debug("retrying request",
		slog.Int("attempt", attempt),
		slog.Duration("delay", delay),
		slog.String("url", req.URL.String()),
	)

	t := time.NewTimer(delay)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-req.Context().Done():
		return req.Context().Err()
	}
}

// backoff doubles the base delay per attempt with up to 25% jitter.
func (c *Client) backoff(attempt int) time.Duration {
	d := float64(c.cfg.BaseDelay) * math.Pow(2, float64(attempt-2))
	if d > float64(c.cfg.MaxDelay) {
		d = float64(c.cfg.MaxDelay)
	}
	return time.Duration(d * (1 + 0.25*rand.Float64())) // #nosec G404
}

// retryAfter honours a Retry-After header given either as seconds or as an
// HTTP date.
func retryAfter(resp *http.Response) time.Duration {
	if resp == nil {
		return 0
	}
	ra := resp.Header.Get("Retry-After")
	if ra == "" {
		return 0
	}
	if secs, err := strconv.Atoi(ra); err == nil {
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(ra); err == nil {
		return time.Until(at)
	}
	return 0
}

func rewindBody(req *http.Request) error {
	if req.GetBody == nil {
		return nil
	}
	body, err := req.GetBody()
	if err != nil {
		return fmt.Errorf("rewind request body: %w", err)
	}
	req.Body = body
	return nil
}

func idempotent(method string) bool {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodPut, http.MethodDelete, http.MethodOptions:
		return true
	}
	return false
}

func retryable(status int, method string) bool {
	if status == http.StatusTooManyRequests {
		return true
	}
	if !idempotent(method) {
		return false
	}
	switch status {
	case http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}
