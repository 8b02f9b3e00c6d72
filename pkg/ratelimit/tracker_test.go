package ratelimit

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

var testLogger = zerolog.New(os.Stderr).Level(zerolog.Disabled)

// fakeClock advances instantly on Sleep.
type fakeClock struct {
	mu    sync.Mutex
	now   time.Time
	slept []time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2025, 1, 6, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Sleep(_ context.Context, d time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	c.slept = append(c.slept, d)
	return nil
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func (c *fakeClock) Slept() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]time.Duration(nil), c.slept...)
}

func TestAdmit_NeverExceedsCapacityPerWindow(t *testing.T) {
	clock := newFakeClock()
	limits := Limits{PerMinute: 5, PerHour: 40, PerDay: 90}
	tracker := NewTracker(limits, testLogger, WithClock(clock))
	ctx := context.Background()

	var admitted []time.Time
	starts := map[Window]map[time.Time]bool{
		WindowMinute: {},
		WindowHour:   {},
		WindowDay:    {},
	}

	for i := 0; i < 3000; i++ {
		if tracker.Admit(ctx, "acme") {
			admitted = append(admitted, clock.Now())
			u := tracker.Usage("acme")
			starts[WindowMinute][u.Minute.Start] = true
			starts[WindowHour][u.Hour.Start] = true
			starts[WindowDay][u.Day.Start] = true
		}
		clock.Advance(7 * time.Second)
	}

	if len(admitted) == 0 {
		t.Fatal("no calls admitted")
	}

	capacities := map[Window]int{WindowMinute: 5, WindowHour: 40, WindowDay: 90}
	for window, windowStarts := range starts {
		for start := range windowStarts {
			end := start.Add(window.Duration())
			n := 0
			for _, ts := range admitted {
				if !ts.Before(start) && ts.Before(end) {
					n++
				}
			}
			if n > capacities[window] {
				t.Errorf("%s window starting %v admitted %d calls, capacity %d", window, start, n, capacities[window])
			}
		}
	}
}

func TestAdmit_MinuteExhaustionSuspendsAndResets(t *testing.T) {
	clock := newFakeClock()
	tracker := NewTracker(Limits{PerMinute: 2, PerHour: 100, PerDay: 100}, testLogger, WithClock(clock))
	ctx := context.Background()
	start := clock.Now()

	for i := 0; i < 2; i++ {
		if !tracker.Admit(ctx, "acme") {
			t.Fatalf("call %d should be admitted", i+1)
		}
	}

	clock.Advance(10 * time.Second)
	if tracker.Admit(ctx, "acme") {
		t.Fatal("third call within the minute should be refused")
	}

	if got := clock.Now().Sub(start); got != time.Minute {
		t.Errorf("caller suspended until %v after start, want 1m", got)
	}
	if u := tracker.Usage("acme"); u.Minute.Count != 0 {
		t.Errorf("minute counter = %d after suspension, want 0", u.Minute.Count)
	}
	if u := tracker.Usage("acme"); u.Day.Count != 2 {
		t.Errorf("day counter = %d, want 2 (refused call must not count)", u.Day.Count)
	}

	if !tracker.Admit(ctx, "acme") {
		t.Error("call after suspension should be admitted")
	}
}

func TestAdmit_DayExhaustionWaitsForDayRollover(t *testing.T) {
	clock := newFakeClock()
	tracker := NewTracker(Limits{PerMinute: 100, PerHour: 100, PerDay: 3}, testLogger, WithClock(clock))
	ctx := context.Background()
	start := clock.Now()

	for i := 0; i < 3; i++ {
		tracker.Admit(ctx, "acme")
	}
	clock.Advance(2 * time.Hour)

	if tracker.Admit(ctx, "acme") {
		t.Fatal("call over the daily capacity should be refused")
	}
	if got := clock.Now().Sub(start); got != 24*time.Hour {
		t.Errorf("suspended until %v after start, want 24h", got)
	}
	if u := tracker.Usage("acme"); u.Day.Count != 0 {
		t.Errorf("day counter = %d after rollover, want 0", u.Day.Count)
	}
}

func TestAdmit_AppliesMinInterval(t *testing.T) {
	clock := newFakeClock()
	limits := DefaultLimits()
	tracker := NewTracker(limits, testLogger, WithClock(clock))

	if !tracker.Admit(context.Background(), "acme") {
		t.Fatal("first call should be admitted")
	}

	slept := clock.Slept()
	if len(slept) != 1 || slept[0] != DefaultMinInterval {
		t.Errorf("slept %v, want [%v]", slept, DefaultMinInterval)
	}
}

// gateClock blocks every Sleep until released.
type gateClock struct {
	now     time.Time
	entered chan string
	release chan struct{}
}

func (c *gateClock) Now() time.Time { return c.now }

func (c *gateClock) Sleep(ctx context.Context, _ time.Duration) error {
	c.entered <- "sleep"
	select {
	case <-c.release:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func TestAdmit_SuspensionDoesNotBlockOtherAccounts(t *testing.T) {
	clock := &gateClock{
		now:     time.Date(2025, 1, 6, 9, 0, 0, 0, time.UTC),
		entered: make(chan string, 1),
		release: make(chan struct{}),
	}
	tracker := NewTracker(Limits{PerMinute: 1, PerHour: 10, PerDay: 10}, testLogger, WithClock(clock))
	ctx := context.Background()

	if !tracker.Admit(ctx, "blocked") {
		t.Fatal("first call should be admitted")
	}

	done := make(chan bool)
	go func() {
		done <- tracker.Admit(ctx, "blocked")
	}()

	select {
	case <-clock.entered:
	case <-time.After(2 * time.Second):
		t.Fatal("exhausted account was not suspended")
	}

	other := make(chan bool)
	go func() {
		other <- tracker.Admit(ctx, "free")
	}()

	select {
	case ok := <-other:
		if !ok {
			t.Error("independent account should be admitted")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("independent account stalled behind a suspended one")
	}

	if u := tracker.Usage("blocked"); u.Minute.Count != 1 {
		t.Errorf("suspended account state unreadable or wrong: %+v", u.Minute)
	}

	close(clock.release)
	if <-done {
		t.Error("suspended call should report false")
	}
}

func TestAdmit_ContextCancelledDuringSuspension(t *testing.T) {
	tracker := NewTracker(Limits{PerMinute: 1, PerHour: 10, PerDay: 10}, testLogger)

	if !tracker.Admit(context.Background(), "acme") {
		t.Fatal("first call should be admitted")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	if tracker.Admit(ctx, "acme") {
		t.Error("call over capacity should be refused")
	}
	if time.Since(start) > time.Second {
		t.Error("cancelled context did not cut the suspension short")
	}
}

func TestAdmit_ConcurrentAccounts(t *testing.T) {
	tracker := NewTracker(Limits{PerMinute: 10000, PerHour: 10000, PerDay: 10000}, testLogger)
	ctx := context.Background()

	const accounts, workers, calls = 4, 5, 40
	var wg sync.WaitGroup
	for a := 0; a < accounts; a++ {
		for w := 0; w < workers; w++ {
			wg.Add(1)
			go func(name string) {
				defer wg.Done()
				for i := 0; i < calls; i++ {
					tracker.Admit(ctx, name)
				}
			}(fmt.Sprintf("account-%d", a))
		}
	}
	wg.Wait()

	names := tracker.Accounts()
	if len(names) != accounts {
		t.Fatalf("tracked %d accounts, want %d", len(names), accounts)
	}
	for _, name := range names {
		u := tracker.Usage(name)
		if u.Day.Count != workers*calls || u.Hour.Count != workers*calls || u.Minute.Count != workers*calls {
			t.Errorf("%s usage = %d/%d/%d, want %d each", name, u.Minute.Count, u.Hour.Count, u.Day.Count, workers*calls)
		}
	}
}

func TestUsage_UnknownAccount(t *testing.T) {
	tracker := NewTracker(DefaultLimits(), testLogger)

	u := tracker.Usage("nobody")
	if u.Account != "nobody" || u.Calls() != 0 || u.Minute.Count != 0 || u.Hour.Count != 0 {
		t.Errorf("unknown account usage = %+v, want zero snapshot", u)
	}
	if len(tracker.Accounts()) != 0 {
		t.Error("Usage must not register the account")
	}
}

func TestReset(t *testing.T) {
	clock := newFakeClock()
	tracker := NewTracker(Limits{PerMinute: 5, PerHour: 5, PerDay: 5}, testLogger, WithClock(clock))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		tracker.Admit(ctx, "acme")
	}
	tracker.Reset("acme")

	u := tracker.Usage("acme")
	if u.Minute.Count != 0 || u.Hour.Count != 0 || u.Day.Count != 0 {
		t.Errorf("usage after Reset = %+v, want zero counters", u)
	}
	if u.Day.Capacity != 5 {
		t.Errorf("capacity lost on Reset: %d", u.Day.Capacity)
	}
}
