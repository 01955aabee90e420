package weather

import (
	"context"
	"fmt"
	"iter"
	"sync"
	"time"
)

// Service is the in-memory tier over the history client: it caches derived
// daily Temp summaries for the process lifetime and answers range-aggregation
// queries over half-open date intervals.
type Service struct {
	client HistoryClient

	mu    sync.Mutex
	temps map[string]Temp
}

// NewService creates a Service backed by the given history client.
func NewService(client HistoryClient) *Service {
	return &Service{
		client: client,
		temps:  make(map[string]Temp),
	}
}

// Temp returns the daily temperature summary for a date. A memory-cache hit
// returns immediately; on a miss the full historical record is fetched and
// reduced. Fails with ErrNoTemperatureData if the day has no present
// temperature observations.
func (s *Service) Temp(ctx context.Context, date time.Time) (Temp, error) {
	date = Day(date)
	key := DateStamp(date)

	s.mu.Lock()
	if temp, ok := s.temps[key]; ok {
		s.mu.Unlock()
		return temp, nil
	}
	s.mu.Unlock()

	record, err := s.client.GetHistorical(ctx, date)
	if err != nil {
		return Temp{}, err
	}

	temp, err := record.DailyTemp()
	if err != nil {
		return Temp{}, fmt.Errorf("%s: %w", date.Format("2006-01-02"), err)
	}

	s.mu.Lock()
	s.temps[key] = temp
	s.mu.Unlock()

	return temp, nil
}

// AvgMinTemp averages the daily minimum temperature over [from, to).
func (s *Service) AvgMinTemp(ctx context.Context, from, to time.Time) (float64, error) {
	return s.avgTemp(ctx, from, to, func(t Temp) float64 { return t.Min })
}

// AvgMeanTemp averages the daily mean temperature over [from, to).
func (s *Service) AvgMeanTemp(ctx context.Context, from, to time.Time) (float64, error) {
	return s.avgTemp(ctx, from, to, func(t Temp) float64 { return t.Mean })
}

// AvgMaxTemp averages the daily maximum temperature over [from, to).
func (s *Service) AvgMaxTemp(ctx context.Context, from, to time.Time) (float64, error) {
	return s.avgTemp(ctx, from, to, func(t Temp) float64 { return t.Max })
}

func (s *Service) avgTemp(ctx context.Context, from, to time.Time, selector func(Temp) float64) (float64, error) {
	from, to = Day(from), Day(to)
	if !from.Before(to) {
		if from.Equal(to) {
			return 0, fmt.Errorf("%w: %s", ErrEmptyRange, from.Format("2006-01-02"))
		}
		return 0, fmt.Errorf("%w: %s is after %s", ErrEmptyRange, from.Format("2006-01-02"), to.Format("2006-01-02"))
	}

	var sum float64
	var count int
	for date := range DateRange(from, to) {
		temp, err := s.Temp(ctx, date)
		if err != nil {
			return 0, err
		}
		sum += selector(temp)
		count++
	}

	return sum / float64(count), nil
}

// DateRange yields every calendar date in [from, to), ascending. The sequence
// is restartable: ranging over it twice walks the same dates.
func DateRange(from, to time.Time) iter.Seq[time.Time] {
	from, to = Day(from), Day(to)
	return func(yield func(time.Time) bool) {
		for date := from; date.Before(to); date = date.AddDate(0, 0, 1) {
			if !yield(date) {
				return
			}
		}
	}
}
