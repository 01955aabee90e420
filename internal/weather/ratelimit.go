package weather

import (
	"log"
	"sync"
	"time"
)

// RateLimiter bounds requests to at most capacity per any trailing window,
// using a fixed ring of the most recent request timestamps. This is a true
// sliding-window limiter, not a fixed-bucket approximation.
type RateLimiter struct {
	mu     sync.Mutex
	window time.Duration
	stamps []time.Time // ring buffer, len grows to capacity then stays fixed
	next   int         // index of the oldest stamp once the ring is full
	cap    int

	// injectable for tests
	now   func() time.Time
	sleep func(time.Duration)
}

// NewRateLimiter creates a limiter admitting capacity requests per window.
func NewRateLimiter(capacity int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		window: window,
		stamps: make([]time.Time, 0, capacity),
		cap:    capacity,
		now:    time.Now,
		sleep:  time.Sleep,
	}
}

// Admit blocks until a request slot is available, then records the current
// timestamp. The first capacity calls never wait. Once the ring is full, the
// caller sleeps until the oldest recorded request falls out of the window.
func (l *RateLimiter) Admit() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if len(l.stamps) < l.cap {
		l.stamps = append(l.stamps, l.now())
		return
	}

	oldest := l.stamps[l.next]
	if wait := l.window - l.now().Sub(oldest); wait > 0 {
		log.Printf("rate limit reached; waiting %v before next request", wait.Round(time.Millisecond))
		l.sleep(wait)
	}

	l.stamps[l.next] = l.now()
	l.next = (l.next + 1) % l.cap
}

// RequestBudget is a process-lifetime counter of issued requests compared
// against a fixed daily cap. It intentionally resets on restart: a local
// safety valve, not an enforcement of the upstream's true calendar-day cap.
type RequestBudget struct {
	mu    sync.Mutex
	used  int
	limit int
}

// NewRequestBudget creates a budget capped at limit requests.
func NewRequestBudget(limit int) *RequestBudget {
	return &RequestBudget{limit: limit}
}

// Spend consumes one request from the budget, returning ErrQuotaExceeded if
// the cap would be exceeded.
func (b *RequestBudget) Spend() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.used >= b.limit {
		return ErrQuotaExceeded
	}
	b.used++
	return nil
}

// Used reports how many requests have been issued so far this run.
func (b *RequestBudget) Used() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.used
}
