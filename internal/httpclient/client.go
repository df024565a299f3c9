package httpclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/cesargomez89/dofusdb-explorer/internal/constants"
	"github.com/cesargomez89/dofusdb-explorer/internal/domain"
)

// Options tunes rate limiting and retries.
type Options struct {
	// OnRetry is called before each backoff wait with the 1-based retry number.
	OnRetry func(retry int, wait time.Duration, err error)
	// Sleep waits for d or until ctx is done. Defaults to a timer-based wait.
	Sleep              func(ctx context.Context, d time.Duration) error
	MinRequestInterval time.Duration
	RetryBase          time.Duration
	MaxRetries         int
}

// Client wraps an http.Client to provide rate limiting and automatic retries.
type Client struct {
	httpClient *http.Client
	opts       Options

	lastRequest time.Time
	mu          sync.Mutex
}

// StatusError is returned for non-2xx upstream responses.
type StatusError struct {
	URL        string
	StatusCode int
	RetryAfter time.Duration
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream request %s failed: status %d", e.URL, e.StatusCode)
}

// Retryable reports whether the status is worth another attempt.
func (e *StatusError) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// NewClient creates a new rate-limited, retrying HTTP client.
func NewClient(httpClient *http.Client, opts Options) *Client {
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout: constants.DefaultHTTPTimeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 20,
				IdleConnTimeout:     30 * time.Second,
				TLSHandshakeTimeout: 5 * time.Second,
			},
		}
	}
	if opts.RetryBase <= 0 {
		opts.RetryBase = constants.DefaultRetryBase
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	if opts.Sleep == nil {
		opts.Sleep = sleepContext
	}
	return &Client{
		httpClient: httpClient,
		opts:       opts,
	}
}

// GetJSON issues a GET and decodes the JSON body into target. Transport errors,
// 429/5xx responses and undecodable bodies are retried with exponential backoff
// (RetryBase, 2*RetryBase, 4*RetryBase, ...) up to MaxRetries retries.
func (c *Client) GetJSON(ctx context.Context, url string, target interface{}) error {
	var lastErr error
	attempts := c.opts.MaxRetries + 1

	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			wait := c.backoff(attempt)
			var se *StatusError
			if errors.As(lastErr, &se) && se.RetryAfter > wait {
				wait = se.RetryAfter
			}
			if c.opts.OnRetry != nil {
				c.opts.OnRetry(attempt, wait, lastErr)
			}
			if err := c.opts.Sleep(ctx, wait); err != nil {
				return err
			}
		}

		err := c.getOnce(ctx, url, target)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		lastErr = err

		var se *StatusError
		if errors.As(err, &se) && !se.Retryable() {
			return err
		}
	}

	return fmt.Errorf("%w after %d attempts: %w", domain.ErrRetriesExhausted, attempts, lastErr)
}

func (c *Client) getOnce(ctx context.Context, url string, target interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	if err := c.wait(ctx); err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close() //nolint:errcheck // deferred cleanup

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{URL: url, StatusCode: resp.StatusCode, RetryAfter: parseRetryAfter(resp)}
	}

	decoder := json.NewDecoder(resp.Body)
	decoder.UseNumber()
	if err := decoder.Decode(target); err != nil {
		return fmt.Errorf("decode %s: %w", url, err)
	}
	return nil
}

// wait claims the next request slot, sleeping until MinRequestInterval has
// passed since the previous request.
func (c *Client) wait(ctx context.Context) error {
	if c.opts.MinRequestInterval <= 0 {
		return nil
	}

	c.mu.Lock()
	now := time.Now()
	nextAllowed := c.lastRequest.Add(c.opts.MinRequestInterval)
	var waitTime time.Duration
	if now.Before(nextAllowed) {
		waitTime = nextAllowed.Sub(now)
		c.lastRequest = nextAllowed
	} else {
		c.lastRequest = now
	}
	c.mu.Unlock()

	if waitTime > 0 {
		return c.opts.Sleep(ctx, waitTime)
	}
	return nil
}

func (c *Client) backoff(retry int) time.Duration {
	return c.opts.RetryBase * time.Duration(1<<(retry-1))
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// parseRetryAfter reads a Retry-After header and returns the duration to wait.
func parseRetryAfter(resp *http.Response) time.Duration {
	ra := resp.Header.Get("Retry-After")
	if ra == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(ra); err == nil && seconds > 0 {
		return time.Duration(seconds) * time.Second
	}
	if t, err := http.ParseTime(ra); err == nil {
		return time.Until(t)
	}
	return 0
}
