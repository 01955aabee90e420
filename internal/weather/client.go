package weather

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
)

// retryBudget is the number of additional attempts after the first failed
// fetch. Each retry re-enters the daily budget and the rate limiter.
const retryBudget = 2

var errCircuitOpen = errors.New("circuit breaker open")

// ClientConfig bundles the upstream coordinates and quota policy for a Client.
type ClientConfig struct {
	BaseURL  string
	APIKey   string
	Region   string
	Location string

	RequestsPerMinute int
	RequestsPerDay    int
}

// Client fetches per-day historical weather from the upstream API. Every call
// consults the durable cache before touching the network, enforces the daily
// budget and the per-minute sliding window, and retries transient failures.
type Client struct {
	cfg     ClientConfig
	http    *http.Client
	circuit *gobreaker.CircuitBreaker
	limiter *RateLimiter
	budget  *RequestBudget
	cache   CacheStore

	// injectable for tests
	now func() time.Time
}

// NewClient creates a Client backed by the given HTTP client and durable
// cache. Quota state is bound to the returned instance; independent clients
// in the same process do not share budgets.
func NewClient(httpClient *http.Client, cache CacheStore, cfg ClientConfig) *Client {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "weather-history",
		MaxRequests: 5,
		Interval:    1 * time.Minute,
		Timeout:     2 * time.Minute,
	})

	return &Client{
		cfg:     cfg,
		http:    httpClient,
		circuit: cb,
		limiter: NewRateLimiter(cfg.RequestsPerMinute, time.Minute),
		budget:  NewRequestBudget(cfg.RequestsPerDay),
		cache:   cache,
		now:     time.Now,
	}
}

// GetHistorical returns the full historical record for a past calendar date.
// Requesting today fails with ErrInvalidDate: the upstream has no finalized
// data for a day still in progress, and caching a partial day is disallowed.
// Future dates fail the same way.
func (c *Client) GetHistorical(ctx context.Context, date time.Time) (*HistoricalRecord, error) {
	date = Day(date)
	today := Day(c.now())

	if !date.Before(today) {
		if date.Equal(today) {
			return nil, fmt.Errorf("%w: %s is still in progress", ErrInvalidDate, date.Format("2006-01-02"))
		}
		return nil, fmt.Errorf("%w: %s is in the future", ErrInvalidDate, date.Format("2006-01-02"))
	}

	if c.cache.Has(date) {
		record, err := c.cache.Load(date)
		if err == nil {
			return record, nil
		}
		// Treat an unreadable entry as a miss and re-fetch; the fetch is
		// idempotent, so the worst case is a repeated network call.
		log.Printf("WARN: cache entry for %s unreadable, re-fetching: %v", DateStamp(date), err)
	}

	record, err := c.fetchWithRetry(ctx, date)
	if err != nil {
		return nil, err
	}

	if err := c.cache.Store(date, record); err != nil {
		// The record is already in hand; a failed write only costs a
		// re-fetch next time.
		log.Printf("WARN: persisting record for %s: %v", DateStamp(date), err)
	}
	return record, nil
}

// fetchWithRetry runs the budget/limiter/fetch/parse sequence up to
// 1+retryBudget times. Quota exhaustion and schema-level parse failures are
// terminal; everything else is retried until the budget runs out.
func (c *Client) fetchWithRetry(ctx context.Context, date time.Time) (*HistoricalRecord, error) {
	var lastErr error

	for attempt := 0; attempt <= retryBudget; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := c.budget.Spend(); err != nil {
			return nil, fmt.Errorf("fetching %s: %w", DateStamp(date), err)
		}

		c.limiter.Admit()

		record, err := c.fetchOnce(ctx, date)
		if err == nil {
			return record, nil
		}
		if errors.Is(err, ErrMalformedResponse) {
			// A schema problem will not fix itself on retry.
			return nil, err
		}
		if errors.Is(err, errCircuitOpen) {
			return nil, err
		}

		lastErr = err
		if attempt < retryBudget {
			log.Printf("WARN: fetch for %s failed (attempt %d/%d): %v", DateStamp(date), attempt+1, retryBudget+1, err)
		}
	}

	return nil, fmt.Errorf("fetching %s: retries exhausted: %w", DateStamp(date), lastErr)
}

func (c *Client) fetchOnce(ctx context.Context, date time.Time) (*HistoricalRecord, error) {
	url := c.historyURL(date)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	log.Printf("calling upstream: %s", url)

	result, err := c.circuit.Execute(func() (interface{}, error) {
		resp, execErr := c.http.Do(req)
		if execErr != nil {
			return nil, execErr
		}
		defer resp.Body.Close()

		body, readErr := io.ReadAll(resp.Body)
		if readErr != nil {
			return nil, readErr
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, fmt.Errorf("upstream returned status %d for %s", resp.StatusCode, url)
		}
		return body, nil
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: %v", errCircuitOpen, err)
		}
		return nil, err
	}

	body, ok := result.([]byte)
	if !ok {
		return nil, fmt.Errorf("unexpected result type from circuit breaker")
	}

	record, err := ParseResponse(body)
	if err != nil {
		return nil, fmt.Errorf("parsing response for %s: %w", url, err)
	}
	return record, nil
}

// historyURL builds the per-day endpoint URL: one request covers one
// calendar date.
func (c *Client) historyURL(date time.Time) string {
	return fmt.Sprintf("%s/%s/history_%s/q/%s/%s.json",
		c.cfg.BaseURL, c.cfg.APIKey, DateStamp(date), c.cfg.Region, c.cfg.Location)
}
