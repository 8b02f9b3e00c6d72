// Package ratelimit implements per-account API usage tracking and request
// gating over three fixed windows (minute, hour, day).
//
// Each tenant account owns independent window state guarded by its own
// mutex, so an account that has exhausted a window only suspends the
// pipeline working on that account.
package ratelimit

import (
	"time"
)

// Window identifies one of the three tracked usage windows.
type Window string

const (
	WindowMinute Window = "minute"
	WindowHour   Window = "hour"
	WindowDay    Window = "day"
)

// Duration returns the fixed length of the window.
func (w Window) Duration() time.Duration {
	switch w {
	case WindowMinute:
		return time.Minute
	case WindowHour:
		return time.Hour
	case WindowDay:
		return 24 * time.Hour
	default:
		return 0
	}
}

// Default capacities of the Cin7 v1 API per account.
const (
	DefaultPerMinute   = 60
	DefaultPerHour     = 3600
	DefaultPerDay      = 5000
	DefaultMinInterval = time.Second
)

// Limits holds the per-account window capacities.
// A capacity of zero or less disables gating on that window.
type Limits struct {
	PerMinute int
	PerHour   int
	PerDay    int

	// MinInterval is slept after every admitted call to flatten bursts.
	MinInterval time.Duration
}

// DefaultLimits returns the documented Cin7 limits with a one second
// inter-call delay.
func DefaultLimits() Limits {
	return Limits{
		PerMinute:   DefaultPerMinute,
		PerHour:     DefaultPerHour,
		PerDay:      DefaultPerDay,
		MinInterval: DefaultMinInterval,
	}
}

// UsageWindow is a call counter paired with the start of its current window.
type UsageWindow struct {
	Window   Window    `json:"window"`
	Count    int       `json:"count"`
	Capacity int       `json:"capacity"`
	Start    time.Time `json:"start"`
}

func newUsageWindow(w Window, capacity int, now time.Time) UsageWindow {
	return UsageWindow{Window: w, Capacity: capacity, Start: now}
}

// Expired reports whether the full window duration has elapsed since Start.
func (u *UsageWindow) Expired(now time.Time) bool {
	return now.Sub(u.Start) >= u.Window.Duration()
}

// Roll resets the counter and restarts the window when it has expired.
// It returns true when a reset happened.
func (u *UsageWindow) Roll(now time.Time) bool {
	if !u.Expired(now) {
		return false
	}
	u.Count = 0
	u.Start = now
	return true
}

// Exhausted reports whether the counter has reached a positive capacity.
func (u *UsageWindow) Exhausted() bool {
	return u.Capacity > 0 && u.Count >= u.Capacity
}

// Remaining returns the time left until the window rolls over.
// Returns 0 if the window has already expired.
func (u *UsageWindow) Remaining(now time.Time) time.Duration {
	d := u.Start.Add(u.Window.Duration()).Sub(now)
	if d < 0 {
		return 0
	}
	return d
}

// Usage is a read-only snapshot of one account's windows.
type Usage struct {
	Account string      `json:"account"`
	Minute  UsageWindow `json:"minute"`
	Hour    UsageWindow `json:"hour"`
	Day     UsageWindow `json:"day"`
}

// Calls returns the number of calls counted in the current day window.
func (u Usage) Calls() int {
	return u.Day.Count
}
