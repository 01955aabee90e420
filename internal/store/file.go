package store

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/clieb/utility-stats/internal/weather"
)

// FileStore persists one compressed serialized record per calendar date,
// named by the 8-digit date stamp, under a dedicated cache directory. There
// is no eviction: a past day's history never changes, so entries live
// forever and growth is bounded by the number of distinct days ever queried.
type FileStore struct {
	dir string
}

// NewFileStore creates the cache directory if needed and returns a store
// rooted there.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating cache directory %s: %w", dir, err)
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) entryPath(date time.Time) string {
	return filepath.Join(s.dir, weather.DateStamp(date)+".mp.gz")
}

// Has reports whether an entry exists for the date.
func (s *FileStore) Has(date time.Time) bool {
	_, err := os.Stat(s.entryPath(date))
	return err == nil
}

// Load reads and decodes the entry for a date. Unreadable or undecodable
// entries return ErrCorrupt.
func (s *FileStore) Load(date time.Time) (*weather.HistoricalRecord, error) {
	path := s.entryPath(date)
	blob, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	record, err := decodeRecord(blob)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return record, nil
}

// Store writes the record for a date. The write goes to a temp file first and
// is renamed into place so concurrent readers never observe a partial entry.
func (s *FileStore) Store(date time.Time, record *weather.HistoricalRecord) error {
	blob, err := encodeRecord(record)
	if err != nil {
		return err
	}

	path := s.entryPath(date)
	tmp, err := os.CreateTemp(s.dir, weather.DateStamp(date)+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file in %s: %w", s.dir, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(blob); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("writing %s: %w", tmpName, err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("renaming %s to %s: %w", tmpName, path, err)
	}
	return nil
}
