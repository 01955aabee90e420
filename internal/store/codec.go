package store

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/clieb/utility-stats/internal/weather"
)

// ErrCorrupt is returned when a stored entry cannot be decompressed or
// deserialized into a valid record. Callers should treat it as a cache miss.
var ErrCorrupt = errors.New("corrupt cache entry")

// encodeRecord serializes a record to MessagePack and gzips it. The binary
// encoding is stable across runs, which keeps cached entries bit-identical
// for repeated loads.
func encodeRecord(record *weather.HistoricalRecord) ([]byte, error) {
	raw, err := msgpack.Marshal(record)
	if err != nil {
		return nil, fmt.Errorf("serializing record: %w", err)
	}

	var buf bytes.Buffer
	gz, err := gzip.NewWriterLevel(&buf, gzip.BestCompression)
	if err != nil {
		return nil, err
	}
	if _, err := gz.Write(raw); err != nil {
		return nil, fmt.Errorf("compressing record: %w", err)
	}
	if err := gz.Close(); err != nil {
		return nil, fmt.Errorf("compressing record: %w", err)
	}
	return buf.Bytes(), nil
}

// decodeRecord reverses encodeRecord. Any failure maps to ErrCorrupt.
func decodeRecord(blob []byte) (*weather.HistoricalRecord, error) {
	gz, err := gzip.NewReader(bytes.NewReader(blob))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	raw, err := io.ReadAll(gz)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if err := gz.Close(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}

	var record weather.HistoricalRecord
	if err := msgpack.Unmarshal(raw, &record); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return &record, nil
}
