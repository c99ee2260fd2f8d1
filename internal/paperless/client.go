package paperless

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"papertriage/internal/config"
	"papertriage/internal/logging"
)

const csrfCookieName = "csrftoken"

// HTTPDoer describes the HTTP client used by the archive client.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client talks to one paperless-ngx instance.
type Client struct {
	baseURL    string
	token      string
	httpClient HTTPDoer
	logger     *slog.Logger

	retryAttempts int
	retryDelay    time.Duration
	sleeper       func(time.Duration)
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client HTTPDoer) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithRetry overrides the retry attempt count and fixed delay.
func WithRetry(attempts int, delay time.Duration) Option {
	return func(c *Client) {
		c.retryAttempts = attempts
		c.retryDelay = delay
	}
}

// WithSleeper overrides how retry sleeps are performed (useful for tests).
func WithSleeper(sleeper func(time.Duration)) Option {
	return func(c *Client) {
		c.sleeper = sleeper
	}
}

// NewClient constructs an archive client from configuration.
func NewClient(cfg config.Paperless, logger *slog.Logger, opts ...Option) *Client {
	timeout := time.Duration(cfg.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	client := &Client{
		baseURL:       strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		token:         strings.TrimSpace(cfg.APIToken),
		httpClient:    &http.Client{Timeout: timeout},
		logger:        logging.NewComponentLogger(logger, "paperless"),
		retryAttempts: cfg.RetryAttempts,
		retryDelay:    time.Duration(cfg.RetryDelaySeconds) * time.Second,
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.retryAttempts <= 0 {
		client.retryAttempts = 1
	}
	return client
}

type httpStatusError struct {
	StatusCode int
	Body       string
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("paperless request: http %d: %s", e.StatusCode, strings.TrimSpace(e.Body))
}

// FetchCSRFToken performs a GET against the API root and reads the CSRF
// token from the response cookie. The token is required for every mutating
// call and is fetched once per batch.
func (c *Client) FetchCSRFToken(ctx context.Context) (string, error) {
	var token string
	err := c.withRetry(ctx, "fetch csrf token", func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/", nil)
		if err != nil {
			return fmt.Errorf("new request: %w", err)
		}
		c.setHeaders(req, "")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("http error: %w", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode >= http.StatusMultipleChoices {
			return statusError(resp)
		}
		for _, cookie := range resp.Cookies() {
			if cookie.Name == csrfCookieName && cookie.Value != "" {
				token = cookie.Value
				return nil
			}
		}
		return errors.New("csrf cookie missing from response")
	})
	if err != nil {
		return "", err
	}
	return token, nil
}

func (c *Client) setHeaders(req *http.Request, csrfToken string) {
	req.Header.Set("Authorization", "Token "+c.token)
	req.Header.Set("Accept", "application/json")
	if csrfToken != "" {
		req.Header.Set("X-CSRFToken", csrfToken)
		req.AddCookie(&http.Cookie{Name: csrfCookieName, Value: csrfToken})
		req.Header.Set("Referer", c.baseURL+"/")
	}
}

// getJSON issues a GET with retry and decodes the response into target.
func (c *Client) getJSON(ctx context.Context, op, url string, target any) error {
	return c.withRetry(ctx, op, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return fmt.Errorf("new request: %w", err)
		}
		c.setHeaders(req, "")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("http error: %w", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode >= http.StatusMultipleChoices {
			return statusError(resp)
		}
		if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
		return nil
	})
}

// sendJSON issues a mutating request with retry; the response body is decoded
// into target when target is non-nil.
func (c *Client) sendJSON(ctx context.Context, op, method, url string, payload any, csrfToken string, target any) error {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("%s: encode body: %w", op, err)
	}
	return c.withRetry(ctx, op, func() error {
		req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(encoded))
		if err != nil {
			return fmt.Errorf("new request: %w", err)
		}
		c.setHeaders(req, csrfToken)
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("http error: %w", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode >= http.StatusMultipleChoices {
			return statusError(resp)
		}
		if target == nil {
			_, _ = io.Copy(io.Discard, resp.Body)
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
		return nil
	})
}

func statusError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
	return &httpStatusError{StatusCode: resp.StatusCode, Body: string(body)}
}

func (c *Client) withRetry(ctx context.Context, op string, fn func() error) error {
	var lastErr error
	for attempt := 1; attempt <= c.retryAttempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err
		if attempt >= c.retryAttempts || !isTransient(err) {
			return fmt.Errorf("%s: %w", op, err)
		}
		c.logger.Debug("retrying archive call",
			logging.String("op", op),
			logging.Int("attempt", attempt),
			logging.Error(err),
		)
		if err := c.sleep(ctx); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
	}
	return fmt.Errorf("%s: failed after %d attempts: %w", op, c.retryAttempts, lastErr)
}

func isTransient(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var statusErr *httpStatusError
	if errors.As(err, &statusErr) {
		switch {
		case statusErr.StatusCode == http.StatusRequestTimeout,
			statusErr.StatusCode == http.StatusTooManyRequests,
			statusErr.StatusCode >= http.StatusInternalServerError:
			return true
		default:
			return false
		}
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	return false
}

func (c *Client) sleep(ctx context.Context) error {
	if c.retryDelay <= 0 {
		return ctx.Err()
	}
	if c.sleeper != nil {
		c.sleeper(c.retryDelay)
		return ctx.Err()
	}
	timer := time.NewTimer(c.retryDelay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
