package weather

import (
	"context"
	"time"
)

// HistoryClient abstracts a source of per-day historical records (the HTTP
// client, or a stub in tests).
type HistoryClient interface {
	GetHistorical(ctx context.Context, date time.Time) (*HistoricalRecord, error)
}

// CacheStore is the contract the durable by-date cache (file-backed,
// sqlite-backed, or an in-memory fake in tests) must satisfy. Entries are
// immutable once stored.
type CacheStore interface {
	Has(date time.Time) bool
	Load(date time.Time) (*HistoricalRecord, error)
	Store(date time.Time, record *HistoricalRecord) error
}
