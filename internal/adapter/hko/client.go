// Package hko loads Hong Kong Observatory tide table pages over HTTP and
// keeps a local copy of the last page fetched.
package hko

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/storm-data-shared/retry"
	"github.com/jonboulle/clockwork"
	"golang.org/x/net/html/charset"

	"github.com/couchcryptid/tide-data-etl/internal/domain"
	"github.com/couchcryptid/tide-data-etl/internal/observability"
)

const (
	userAgent      = "tide-data-etl/1.0 (+https://www.hko.gov.hk/tide/)"
	initialBackoff = 500 * time.Millisecond
	maxBackoff     = 5 * time.Second
	maxPageBytes   = 16 << 20
)

var errPageTooLarge = fmt.Errorf("page exceeds %d bytes", maxPageBytes)

// statusError is returned for non-200 responses.
type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("hko page error: status %d: %s", e.code, e.body)
}

func (e *statusError) retryable() bool {
	return e.code == http.StatusTooManyRequests || e.code >= 500
}

// Client implements domain.PageFetcher against a single HKO page URL.
type Client struct {
	url        string
	httpClient *http.Client
	attempts   int
	backoff    time.Duration
	clock      clockwork.Clock
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// NewClient creates a page client. attempts below 1 are treated as 1.
func NewClient(url string, timeout time.Duration, attempts int, logger *slog.Logger, metrics *observability.Metrics) *Client {
	if attempts < 1 {
		attempts = 1
	}
	return &Client{
		url: url,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		attempts: attempts,
		backoff:  initialBackoff,
		clock:    clockwork.NewRealClock(),
		logger:   logger,
		metrics:  metrics,
	}
}

// FetchPage downloads the page, retrying transport errors and 5xx/429
// responses with exponential backoff. The body is transcoded to UTF-8.
func (c *Client) FetchPage(ctx context.Context) (domain.Page, error) {
	backoff := c.backoff
	var lastErr error

	for attempt := 1; attempt <= c.attempts; attempt++ {
		body, err := c.doRequest(ctx)
		if err == nil {
			c.metrics.PagesFetched.WithLabelValues(domain.PageFromNetwork).Inc()
			return domain.Page{
				URL:       c.url,
				Body:      body,
				Source:    domain.PageFromNetwork,
				FetchedAt: c.clock.Now(),
			}, nil
		}
		lastErr = err

		var se *statusError
		if errors.As(err, &se) && !se.retryable() {
			break
		}
		if errors.Is(err, errPageTooLarge) {
			break
		}
		if attempt == c.attempts || ctx.Err() != nil {
			break
		}

		c.logger.Warn("page fetch failed, retrying",
			"url", c.url,
			"attempt", attempt,
			"backoff", backoff,
			"error", err,
		)
		if !retry.SleepWithContext(ctx, backoff) {
			return domain.Page{}, ctx.Err()
		}
		backoff = retry.NextBackoff(backoff, maxBackoff)
	}

	return domain.Page{}, fmt.Errorf("fetch %s: %w", c.url, lastErr)
}

func (c *Client) doRequest(ctx context.Context) ([]byte, error) {
	start := c.clock.Now()
	defer func() {
		c.metrics.FetchDuration.Observe(c.clock.Since(start).Seconds())
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("page request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &statusError{code: resp.StatusCode, body: string(body)}
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if len(raw) > maxPageBytes {
		return nil, errPageTooLarge
	}

	r, err := charset.NewReader(bytes.NewReader(raw), resp.Header.Get("Content-Type"))
	if err != nil {
		return nil, fmt.Errorf("detect charset: %w", err)
	}
	body, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	return body, nil
}
