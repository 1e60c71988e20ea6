// Package clock abstracts wall-clock time so the timer engine can be
// driven deterministically in tests.
package clock

import "time"

// Clock provides the current time.
type Clock interface {
	Now() time.Time
}

// System implements Clock using the standard time package.
type System struct{}

// Now returns the current wall-clock time.
func (System) Now() time.Time {
	return time.Now()
}

// Fixed is a Clock that returns a manually controlled instant.
// The zero value starts at the zero time; use Set or Advance to move it.
type Fixed struct {
	current time.Time
}

// NewFixed creates a Fixed clock pinned at t.
func NewFixed(t time.Time) *Fixed {
	return &Fixed{current: t}
}

// Now returns the pinned instant.
func (f *Fixed) Now() time.Time {
	return f.current
}

// Set pins the clock at t.
func (f *Fixed) Set(t time.Time) {
	f.current = t
}

// Advance moves the clock forward by d.
func (f *Fixed) Advance(d time.Duration) {
	f.current = f.current.Add(d)
}
