package ratelimit

import (
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// fakeClock is a manually advanced Clock.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Unix(1_700_000_000, 0)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func mustLimiter(t *testing.T, pps float64, burst int, clock *fakeClock) *Limiter {
	t.Helper()
	l, err := newLimiter("test", pps, burst, clock.Now)
	if err != nil {
		t.Fatalf("newLimiter: %v", err)
	}
	return l
}

func TestNewLimiter_Validation(t *testing.T) {
	tests := []struct {
		name  string
		pps   float64
		burst int
	}{
		{"zero rate", 0, 10},
		{"negative rate", -1, 10},
		{"zero burst", 1, 0},
		{"negative burst", 1, -3},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := NewLimiter("x", tc.pps, tc.burst); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestNewLimiter_StartsFull(t *testing.T) {
	l := mustLimiter(t, 2, 20, newFakeClock())
	if got := l.Available(); got != 20 {
		t.Errorf("Available = %v, want 20", got)
	}
}

func TestTryAcquire_BurstThenReject(t *testing.T) {
	l := mustLimiter(t, 2, 20, newFakeClock())

	accepted := 0
	for i := 0; i < 21; i++ {
		if l.TryAcquire(1) {
			accepted++
		}
	}
	if accepted != 20 {
		t.Errorf("accepted %d of 21 calls in the same instant, want 20", accepted)
	}
}

func TestTryAcquire_NonPositivePermits(t *testing.T) {
	l := mustLimiter(t, 2, 20, newFakeClock())
	if l.TryAcquire(0) {
		t.Error("TryAcquire(0) must be false")
	}
	if l.TryAcquire(-5) {
		t.Error("TryAcquire(-5) must be false")
	}
	if l.Available() != 20 {
		t.Errorf("rejected calls must not consume tokens, available = %v", l.Available())
	}
}

func TestTryAcquire_MoreThanBurst(t *testing.T) {
	l := mustLimiter(t, 2, 5, newFakeClock())
	if l.TryAcquire(6) {
		t.Error("acquiring more than burst must fail")
	}
	if !l.TryAcquire(5) {
		t.Error("acquiring exactly burst from a full bucket must succeed")
	}
}

func TestRefill_CappedAtBurst(t *testing.T) {
	clock := newFakeClock()
	l := mustLimiter(t, 2, 20, clock)

	for l.TryAcquire(1) {
	}
	if l.Available() != 0 {
		t.Fatalf("Available = %v after draining, want 0", l.Available())
	}

	clock.Advance(time.Hour)
	if got := l.Available(); got != 20 {
		t.Errorf("Available = %v after long idle, want capped 20", got)
	}
}

func TestRefill_Rate(t *testing.T) {
	clock := newFakeClock()
	l := mustLimiter(t, 2, 20, clock)
	for l.TryAcquire(1) {
	}

	clock.Advance(500 * time.Millisecond)
	if !l.TryAcquire(1) {
		t.Error("expected one token after 500ms at 2/s")
	}
	if l.TryAcquire(1) {
		t.Error("expected no second token after 500ms at 2/s")
	}

	clock.Advance(250 * time.Millisecond)
	if l.TryAcquire(1) {
		t.Error("half a token must not be enough")
	}
	clock.Advance(250 * time.Millisecond)
	if !l.TryAcquire(1) {
		t.Error("two half tokens must add up to one")
	}
}

func TestRefill_FractionalRate(t *testing.T) {
	clock := newFakeClock()
	l := mustLimiter(t, 0.5, 1, clock)
	if !l.TryAcquire(1) {
		t.Fatal("first acquire must succeed")
	}
	clock.Advance(1999 * time.Millisecond)
	if l.TryAcquire(1) {
		t.Error("token must not be back before 2s at 0.5/s")
	}
	clock.Advance(time.Millisecond)
	if !l.TryAcquire(1) {
		t.Error("token must be back after 2s at 0.5/s")
	}
}

// Successful acquisitions over any window T never exceed C + R*T.
func TestAcceptedWithinBound(t *testing.T) {
	const (
		rate  = 10.0
		burst = 5
	)
	clock := newFakeClock()
	l := mustLimiter(t, rate, burst, clock)
	rng := rand.New(rand.NewPCG(1, 2))

	var elapsed time.Duration
	accepted := 0
	for i := 0; i < 10_000; i++ {
		step := time.Duration(rng.IntN(50)) * time.Millisecond
		clock.Advance(step)
		elapsed += step
		if l.TryAcquire(1 + rng.IntN(2)) {
			accepted++
		}
		bound := float64(burst) + rate*elapsed.Seconds()
		if float64(accepted) > bound {
			t.Fatalf("after %v accepted %d calls, bound is %.2f", elapsed, accepted, bound)
		}
	}
}

func TestTryAcquire_ConcurrentNoOverdraw(t *testing.T) {
	const (
		burst      = 50
		goroutines = 64
		perG       = 100
	)
	l := mustLimiter(t, 1, burst, newFakeClock())

	var accepted atomic.Int64
	var wg sync.WaitGroup
	start := make(chan struct{})
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			for i := 0; i < perG; i++ {
				if l.TryAcquire(1) {
					accepted.Add(1)
				}
				if tok := l.state.Load().tokens; tok < 0 || tok > l.capacity {
					t.Errorf("tokens out of range: %d", tok)
				}
			}
		}()
	}
	close(start)
	wg.Wait()

	if got := accepted.Load(); got != burst {
		t.Errorf("accepted %d with a frozen clock, want exactly %d", got, burst)
	}
}

func TestTryAcquire_ConcurrentWithRefill(t *testing.T) {
	const (
		rate  = 1000.0
		burst = 20
	)
	l, err := NewLimiter("real", rate, burst)
	if err != nil {
		t.Fatal(err)
	}

	var accepted atomic.Int64
	var wg sync.WaitGroup
	begin := time.Now()
	for g := 0; g < 32; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				if l.TryAcquire(1) {
					accepted.Add(1)
				}
			}
		}()
	}
	wg.Wait()
	elapsed := time.Since(begin)

	bound := float64(burst) + rate*elapsed.Seconds() + 1
	if float64(accepted.Load()) > bound {
		t.Errorf("accepted %d in %v, bound %.1f", accepted.Load(), elapsed, bound)
	}
	if tok := l.state.Load().tokens; tok < 0 || tok > l.capacity {
		t.Errorf("tokens out of range: %d", tok)
	}
}

// Tokens owed by the clock are always paid out, however the refill and the
// acquisitions interleave.
func TestTryAcquire_ConcurrentOwedTokensNeverRejected(t *testing.T) {
	const (
		burst      = 64
		goroutines = 64
		rounds     = 50
	)
	clock := newFakeClock()
	l := mustLimiter(t, burst, burst, clock)

	for round := 0; round < rounds; round++ {
		for l.TryAcquire(1) {
		}
		// one second at burst/s refills exactly one token per goroutine
		clock.Advance(time.Second)

		var rejected atomic.Int64
		var wg sync.WaitGroup
		start := make(chan struct{})
		for g := 0; g < goroutines; g++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				<-start
				if !l.TryAcquire(1) {
					rejected.Add(1)
				}
			}()
		}
		close(start)
		wg.Wait()

		if n := rejected.Load(); n != 0 {
			t.Fatalf("round %d: %d of %d callers rejected while tokens were owed", round, n, goroutines)
		}
		if got := l.Available(); got != 0 {
			t.Fatalf("round %d: Available = %v, want 0", round, got)
		}
	}
}

func TestAvailable_DoesNotConsume(t *testing.T) {
	clock := newFakeClock()
	l := mustLimiter(t, 2, 4, clock)
	for l.TryAcquire(1) {
	}
	clock.Advance(time.Second)
	if got := l.Available(); got != 2 {
		t.Fatalf("Available = %v, want 2", got)
	}
	if got := l.Available(); got != 2 {
		t.Errorf("second Available = %v, want 2", got)
	}
	if !l.TryAcquire(2) {
		t.Error("both refilled tokens must be acquirable")
	}
}
