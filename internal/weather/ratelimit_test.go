package weather

import (
	"testing"
	"time"
)

// fakeClock drives a RateLimiter deterministically: sleeps advance the clock
// instead of blocking.
type fakeClock struct {
	now   time.Time
	slept []time.Duration
}

func newLimiterWithClock(capacity int, window time.Duration) (*RateLimiter, *fakeClock) {
	clock := &fakeClock{now: time.Date(2023, 6, 1, 12, 0, 0, 0, time.UTC)}
	l := NewRateLimiter(capacity, window)
	l.now = func() time.Time { return clock.now }
	l.sleep = func(d time.Duration) {
		clock.slept = append(clock.slept, d)
		clock.now = clock.now.Add(d)
	}
	return l, clock
}

func TestRateLimiterFirstNRequestsNeverWait(t *testing.T) {
	l, clock := newLimiterWithClock(3, time.Minute)

	for i := 0; i < 3; i++ {
		l.Admit()
	}

	if len(clock.slept) != 0 {
		t.Fatalf("expected no waits for the first 3 requests, got %v", clock.slept)
	}
}

func TestRateLimiterBlocksUntilOldestExpires(t *testing.T) {
	l, clock := newLimiterWithClock(2, time.Minute)

	l.Admit()
	clock.now = clock.now.Add(10 * time.Second)
	l.Admit()
	clock.now = clock.now.Add(10 * time.Second)

	// Window is full; the oldest stamp is 20s old, so the third admit must
	// wait the remaining 40s.
	l.Admit()

	if len(clock.slept) != 1 {
		t.Fatalf("expected exactly one wait, got %v", clock.slept)
	}
	if clock.slept[0] != 40*time.Second {
		t.Fatalf("expected 40s wait, got %v", clock.slept[0])
	}
}

func TestRateLimiterNoWaitWhenOldestOutsideWindow(t *testing.T) {
	l, clock := newLimiterWithClock(2, time.Minute)

	l.Admit()
	l.Admit()
	clock.now = clock.now.Add(61 * time.Second)
	l.Admit()

	if len(clock.slept) != 0 {
		t.Fatalf("expected no wait after the window elapsed, got %v", clock.slept)
	}
}

// TestRateLimiterSlidingWindowProperty drives a burst of admits and checks
// that no trailing window ever contains more than N admissions.
func TestRateLimiterSlidingWindowProperty(t *testing.T) {
	const n = 5
	l, clock := newLimiterWithClock(n, time.Minute)

	var admitted []time.Time
	for i := 0; i < 25; i++ {
		l.Admit()
		admitted = append(admitted, clock.now)
		// Uneven burst pattern.
		if i%3 == 0 {
			clock.now = clock.now.Add(2 * time.Second)
		}
	}

	for i := range admitted {
		count := 0
		for j := i; j < len(admitted); j++ {
			if admitted[j].Sub(admitted[i]) < time.Minute {
				count++
			}
		}
		if count > n {
			t.Fatalf("window starting at %v contains %d admissions, limit is %d", admitted[i], count, n)
		}
	}
}

func TestRequestBudget(t *testing.T) {
	b := NewRequestBudget(2)

	if err := b.Spend(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := b.Spend(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := b.Spend(); err == nil {
		t.Fatal("expected quota error on third spend")
	}
	if b.Used() != 2 {
		t.Fatalf("expected 2 used, got %d", b.Used())
	}
}
