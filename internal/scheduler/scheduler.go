package scheduler

import (
	"context"
	"log"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/clieb/utility-stats/internal/weather"
)

// Scheduler periodically prefetches the most recent completed day so the
// durable cache stays warm without waiting for a query to arrive.
type Scheduler struct {
	scheduler *gocron.Scheduler
	client    weather.HistoryClient
	interval  time.Duration
}

// New creates a new Scheduler.
func New(client weather.HistoryClient, interval time.Duration) *Scheduler {
	s := gocron.NewScheduler(time.UTC)
	return &Scheduler{
		scheduler: s,
		client:    client,
		interval:  interval,
	}
}

// Start schedules the prefetch job and starts the underlying scheduler.
func (s *Scheduler) Start() error {
	hours := int(s.interval.Hours())
	if hours <= 0 {
		hours = 24
	}

	_, err := s.scheduler.Every(hours).Hours().Do(func() {
		yesterday := weather.Day(time.Now()).AddDate(0, 0, -1)
		log.Printf("scheduler: prefetching history for %s", yesterday.Format("2006-01-02"))

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()

		if _, err := s.client.GetHistorical(ctx, yesterday); err != nil {
			log.Printf("scheduler: prefetch failed for %s: %v", yesterday.Format("2006-01-02"), err)
			return
		}
		log.Printf("scheduler: prefetch complete for %s", yesterday.Format("2006-01-02"))
	})
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	return nil
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
