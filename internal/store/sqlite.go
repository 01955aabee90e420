package store

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/clieb/utility-stats/internal/weather"
)

// SQLStore keeps cache entries as compressed blobs in a single sqlite
// database instead of one file per date. Same encoding, same immutability
// contract as FileStore; useful when the cache spans many years of dates.
type SQLStore struct {
	db *sql.DB
}

// NewSQLStore opens (creating if needed) the cache database at path.
func NewSQLStore(path string) (*SQLStore, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating cache directory %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening cache database %s: %w", path, err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("configuring cache database: %w", err)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS weather_history (
			date INTEGER NOT NULL PRIMARY KEY,
			response BLOB NOT NULL
		)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating cache table: %w", err)
	}

	return &SQLStore{db: db}, nil
}

// Close releases the underlying database handle.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

// dateKey is days since the Unix epoch.
func dateKey(date time.Time) int64 {
	return weather.Day(date).Unix() / (24 * 60 * 60)
}

// Has reports whether an entry exists for the date.
func (s *SQLStore) Has(date time.Time) bool {
	var one int
	err := s.db.QueryRow("SELECT 1 FROM weather_history WHERE date = ?", dateKey(date)).Scan(&one)
	return err == nil
}

// Load reads and decodes the entry for a date.
func (s *SQLStore) Load(date time.Time) (*weather.HistoricalRecord, error) {
	var blob []byte
	err := s.db.QueryRow("SELECT response FROM weather_history WHERE date = ?", dateKey(date)).Scan(&blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("no cache entry for %s", weather.DateStamp(date))
	}
	if err != nil {
		return nil, fmt.Errorf("reading cache entry for %s: %w", weather.DateStamp(date), err)
	}

	record, err := decodeRecord(blob)
	if err != nil {
		return nil, fmt.Errorf("entry %s: %w", weather.DateStamp(date), err)
	}
	return record, nil
}

// Store writes the record for a date. The single INSERT is atomic, so
// concurrent readers never observe a partial entry.
func (s *SQLStore) Store(date time.Time, record *weather.HistoricalRecord) error {
	blob, err := encodeRecord(record)
	if err != nil {
		return err
	}

	if _, err := s.db.Exec(
		"INSERT OR REPLACE INTO weather_history(date, response) VALUES (?, ?)",
		dateKey(date), blob,
	); err != nil {
		return fmt.Errorf("writing cache entry for %s: %w", weather.DateStamp(date), err)
	}
	return nil
}
