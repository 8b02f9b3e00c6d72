package ratelimit

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// Prometheus metrics for usage tracking.
var (
	admittedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cin7_rate_limit_admitted_total",
		Help: "Total number of API calls admitted by the usage tracker",
	}, []string{"account"})

	blocksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "cin7_rate_limit_blocks_total",
		Help: "Total number of calls suspended because a usage window was exhausted",
	}, []string{"account", "window"})

	windowUsage = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "cin7_rate_limit_window_usage",
		Help: "Calls counted in the current usage window",
	}, []string{"account", "window"})
)

// Tracker gates API calls per account against minute, hour and day windows.
// It is safe for concurrent use; state is kept in memory for the lifetime of
// the process only.
type Tracker struct {
	limits Limits
	clock  Clock
	logger zerolog.Logger

	mu       sync.Mutex
	accounts map[string]*accountState
}

type accountState struct {
	mu     sync.Mutex
	minute UsageWindow
	hour   UsageWindow
	day    UsageWindow
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithClock replaces the wall clock (tests).
func WithClock(c Clock) Option {
	return func(t *Tracker) {
		t.clock = c
	}
}

// NewTracker creates a new usage tracker.
func NewTracker(limits Limits, logger zerolog.Logger, opts ...Option) *Tracker {
	t := &Tracker{
		limits:   limits,
		clock:    SystemClock{},
		logger:   logger,
		accounts: make(map[string]*accountState),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Limits returns the configured capacities.
func (t *Tracker) Limits() Limits {
	return t.limits
}

// state returns the account's state, creating it on first use.
// The tracker-wide mutex is held only for the map lookup.
func (t *Tracker) state(account string) *accountState {
	t.mu.Lock()
	defer t.mu.Unlock()

	st, ok := t.accounts[account]
	if !ok {
		now := t.clock.Now()
		st = &accountState{
			minute: newUsageWindow(WindowMinute, t.limits.PerMinute, now),
			hour:   newUsageWindow(WindowHour, t.limits.PerHour, now),
			day:    newUsageWindow(WindowDay, t.limits.PerDay, now),
		}
		t.accounts[account] = st
	}
	return st
}

// Admit reports whether account may make an API call now.
//
// When a window is exhausted the caller is suspended until that window rolls
// over and false is returned; the caller is expected to call Admit again.
// The account lock is released before sleeping so other callers (and other
// accounts) are never stalled behind the suspension. When a call is admitted
// all three counters are incremented and the configured MinInterval is slept
// before returning true.
//
// A cancelled ctx cuts a suspension short and yields false.
func (t *Tracker) Admit(ctx context.Context, account string) bool {
	st := t.state(account)

	st.mu.Lock()
	now := t.clock.Now()
	st.roll(now)

	if w := st.exhausted(); w != nil {
		window := w.Window
		wait := w.Remaining(now)
		count := w.Count
		st.mu.Unlock()

		blocksTotal.WithLabelValues(account, string(window)).Inc()
		t.logger.Warn().
			Str("account", account).
			Str("window", string(window)).
			Int("count", count).
			Dur("wait", wait).
			Msg("Usage window exhausted - suspending caller")

		if err := t.clock.Sleep(ctx, wait); err != nil {
			t.logger.Debug().Err(err).Str("account", account).Msg("Suspension interrupted")
			return false
		}

		st.mu.Lock()
		st.roll(t.clock.Now())
		st.mu.Unlock()
		return false
	}

	st.minute.Count++
	st.hour.Count++
	st.day.Count++
	snapshot := st.snapshot(account)
	st.mu.Unlock()

	admittedTotal.WithLabelValues(account).Inc()
	windowUsage.WithLabelValues(account, string(WindowMinute)).Set(float64(snapshot.Minute.Count))
	windowUsage.WithLabelValues(account, string(WindowHour)).Set(float64(snapshot.Hour.Count))
	windowUsage.WithLabelValues(account, string(WindowDay)).Set(float64(snapshot.Day.Count))

	t.logger.Debug().
		Str("account", account).
		Int("day", snapshot.Day.Count).
		Int("hour", snapshot.Hour.Count).
		Int("minute", snapshot.Minute.Count).
		Msg("API call admitted")

	if t.limits.MinInterval > 0 {
		// The call is already counted; an interrupted delay does not revoke it.
		_ = t.clock.Sleep(ctx, t.limits.MinInterval)
	}

	return true
}

// Usage returns a snapshot of the account's windows.
// Accounts that have never called Admit report a zero-valued snapshot.
func (t *Tracker) Usage(account string) Usage {
	t.mu.Lock()
	st, ok := t.accounts[account]
	t.mu.Unlock()

	if !ok {
		return Usage{Account: account}
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	return st.snapshot(account)
}

// Reset clears the account's counters and restarts all windows now.
func (t *Tracker) Reset(account string) {
	st := t.state(account)
	now := t.clock.Now()

	st.mu.Lock()
	defer st.mu.Unlock()
	st.minute = newUsageWindow(WindowMinute, t.limits.PerMinute, now)
	st.hour = newUsageWindow(WindowHour, t.limits.PerHour, now)
	st.day = newUsageWindow(WindowDay, t.limits.PerDay, now)
}

// Accounts returns the names of all tracked accounts, sorted.
func (t *Tracker) Accounts() []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	names := make([]string, 0, len(t.accounts))
	for name := range t.accounts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// roll resets every expired window. Caller holds st.mu.
func (st *accountState) roll(now time.Time) {
	st.minute.Roll(now)
	st.hour.Roll(now)
	st.day.Roll(now)
}

// exhausted returns the first full window, longest first. Caller holds st.mu.
func (st *accountState) exhausted() *UsageWindow {
	for _, w := range []*UsageWindow{&st.day, &st.hour, &st.minute} {
		if w.Exhausted() {
			return w
		}
	}
	return nil
}

func (st *accountState) snapshot(account string) Usage {
	return Usage{
		Account: account,
		Minute:  st.minute,
		Hour:    st.hour,
		Day:     st.day,
	}
}
