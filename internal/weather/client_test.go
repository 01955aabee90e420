package weather

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

// memCache is an in-memory CacheStore stub standing in for the disk tier.
type memCache struct {
	entries map[string]*HistoricalRecord
	loadErr error
}

func newMemCache() *memCache {
	return &memCache{entries: make(map[string]*HistoricalRecord)}
}

func (m *memCache) Has(date time.Time) bool {
	_, ok := m.entries[DateStamp(date)]
	return ok
}

func (m *memCache) Load(date time.Time) (*HistoricalRecord, error) {
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	return m.entries[DateStamp(date)], nil
}

func (m *memCache) Store(date time.Time, record *HistoricalRecord) error {
	m.entries[DateStamp(date)] = record
	return nil
}

// newTestClient builds a client against the given upstream with fast limits
// and a pinned "today" of 2023-06-15.
func newTestClient(upstream string, cache CacheStore, perDay int) *Client {
	c := NewClient(&http.Client{Timeout: 5 * time.Second}, cache, ClientConfig{
		BaseURL:           upstream,
		APIKey:            "testkey",
		Region:            "MA",
		Location:          "Bedford",
		RequestsPerMinute: 1000,
		RequestsPerDay:    perDay,
	})
	c.now = func() time.Time { return time.Date(2023, 6, 15, 10, 0, 0, 0, time.UTC) }
	return c
}

const twoObservationBody = `{
	"response": {"version": "0.1", "termsofService": "tos", "features": {"history": 1}},
	"history": {
		"date": {"year": "2023", "mon": "6", "mday": "1", "hour": "0", "min": "0", "tzname": "UTC"},
		"observations": [
			{"date": {"year": "2023", "mon": "6", "mday": "1", "hour": "6", "min": "0", "tzname": "UTC"},
			 "tempi": "70.0", "conds": "Clear", "fog": "0", "rain": "0", "snow": "0", "hail": "0", "thunder": "0", "tornado": "0"},
			{"date": {"year": "2023", "mon": "6", "mday": "1", "hour": "14", "min": "0", "tzname": "UTC"},
			 "tempi": "80.0", "conds": "Clear", "fog": "0", "rain": "0", "snow": "0", "hail": "0", "thunder": "0", "tornado": "0"}
		]
	}
}`

func TestGetHistoricalRejectsTodayAndFuture(t *testing.T) {
	client := newTestClient("http://unreachable.invalid", newMemCache(), 10)

	for _, date := range []time.Time{
		time.Date(2023, 6, 15, 0, 0, 0, 0, time.UTC),
		time.Date(2023, 7, 1, 0, 0, 0, 0, time.UTC),
	} {
		_, err := client.GetHistorical(context.Background(), date)
		if !errors.Is(err, ErrInvalidDate) {
			t.Fatalf("%s: expected ErrInvalidDate, got %v", date.Format("2006-01-02"), err)
		}
	}
}

func TestGetHistoricalCacheHitSkipsNetwork(t *testing.T) {
	var requests atomic.Int64
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.Write([]byte(twoObservationBody))
	}))
	defer upstream.Close()

	cache := newMemCache()
	client := newTestClient(upstream.URL, cache, 10)
	date := time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC)

	first, err := client.GetHistorical(context.Background(), date)
	if err != nil {
		t.Fatalf("first call: %v", err)
	}
	second, err := client.GetHistorical(context.Background(), date)
	if err != nil {
		t.Fatalf("second call: %v", err)
	}

	if got := requests.Load(); got != 1 {
		t.Fatalf("expected 1 upstream request, got %d", got)
	}
	if len(first.Observations) != len(second.Observations) {
		t.Fatal("cached record differs from fetched record")
	}
	if client.budget.Used() != 1 {
		t.Fatalf("cache hit consumed quota: used=%d", client.budget.Used())
	}
}

func TestGetHistoricalEndToEndTempSummary(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(twoObservationBody))
	}))

	cache := newMemCache()
	client := newTestClient(upstream.URL, cache, 10)
	date := time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC)

	record, err := client.GetHistorical(context.Background(), date)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	temp, err := record.DailyTemp()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if temp.Min != 70 || temp.Mean != 75 || temp.Max != 80 {
		t.Fatalf("expected Temp{70, 75, 80}, got %+v", temp)
	}

	// With the upstream gone, the populated cache must still serve the date.
	upstream.Close()
	record, err = client.GetHistorical(context.Background(), date)
	if err != nil {
		t.Fatalf("cache-only call failed: %v", err)
	}
	temp, err = record.DailyTemp()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if temp.Min != 70 || temp.Mean != 75 || temp.Max != 80 {
		t.Fatalf("cache-only call returned %+v", temp)
	}
}

func TestGetHistoricalQuotaExceededBeforeNetwork(t *testing.T) {
	var requests atomic.Int64
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.Write([]byte(twoObservationBody))
	}))
	defer upstream.Close()

	client := newTestClient(upstream.URL, newMemCache(), 1)

	if _, err := client.GetHistorical(context.Background(), time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC)); err != nil {
		t.Fatalf("first fetch: %v", err)
	}

	_, err := client.GetHistorical(context.Background(), time.Date(2023, 6, 2, 0, 0, 0, 0, time.UTC))
	if !errors.Is(err, ErrQuotaExceeded) {
		t.Fatalf("expected ErrQuotaExceeded, got %v", err)
	}
	if got := requests.Load(); got != 1 {
		t.Fatalf("second fetch hit the network: %d requests", got)
	}
}

func TestGetHistoricalRetriesTransientFailures(t *testing.T) {
	var requests atomic.Int64
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if requests.Add(1) <= 2 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(twoObservationBody))
	}))
	defer upstream.Close()

	client := newTestClient(upstream.URL, newMemCache(), 10)

	record, err := client.GetHistorical(context.Background(), time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if len(record.Observations) != 2 {
		t.Fatalf("expected 2 observations, got %d", len(record.Observations))
	}
	if got := requests.Load(); got != 3 {
		t.Fatalf("expected 3 attempts, got %d", got)
	}
	if client.budget.Used() != 3 {
		t.Fatalf("each retry must consume quota: used=%d", client.budget.Used())
	}
}

func TestGetHistoricalRetriesExhausted(t *testing.T) {
	var requests atomic.Int64
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer upstream.Close()

	client := newTestClient(upstream.URL, newMemCache(), 10)

	_, err := client.GetHistorical(context.Background(), time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC))
	if err == nil {
		t.Fatal("expected terminal error after exhausting retries")
	}
	if got := requests.Load(); got != 3 {
		t.Fatalf("expected 3 attempts (1 + 2 retries), got %d", got)
	}
}

func TestGetHistoricalSchemaErrorNotRetried(t *testing.T) {
	var requests atomic.Int64
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		// Valid JSON, structurally invalid payload.
		w.Write([]byte(`{"response": {"version": "0.1"}}`))
	}))
	defer upstream.Close()

	client := newTestClient(upstream.URL, newMemCache(), 10)

	_, err := client.GetHistorical(context.Background(), time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC))
	if !errors.Is(err, ErrMalformedResponse) {
		t.Fatalf("expected ErrMalformedResponse, got %v", err)
	}
	if got := requests.Load(); got != 1 {
		t.Fatalf("schema errors must not be retried: %d attempts", got)
	}
}

func TestGetHistoricalCorruptCacheTreatedAsMiss(t *testing.T) {
	var requests atomic.Int64
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
		w.Write([]byte(twoObservationBody))
	}))
	defer upstream.Close()

	cache := newMemCache()
	date := time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC)
	cache.entries[DateStamp(date)] = &HistoricalRecord{}
	cache.loadErr = errors.New("corrupt cache entry")

	client := newTestClient(upstream.URL, cache, 10)

	record, err := client.GetHistorical(context.Background(), date)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(record.Observations) != 2 {
		t.Fatalf("expected re-fetched record, got %d observations", len(record.Observations))
	}
	if got := requests.Load(); got != 1 {
		t.Fatalf("expected exactly one re-fetch, got %d", got)
	}
}
