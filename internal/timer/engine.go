// Package timer owns the work-session state machine: one active
// session at a time, cycling through stopped → running → paused →
// stopped, accumulating elapsed seconds across pause/resume cycles.
package timer

import (
	"sync"
	"time"

	"github.com/Martyparty1988/PichackaTracker/internal/clock"
	"github.com/Martyparty1988/PichackaTracker/internal/core"
)

// RateSource resolves a person's rate profile. A miss degrades the
// earnings queries to zero instead of failing, so the display stays
// live.
type RateSource interface {
	Person(id int64) (core.Person, bool)
}

// State is a persistable snapshot of the engine, saved on every
// transition so a restarted server picks the session back up.
type State struct {
	PersonID           int64            `json:"person_id"`
	ActivityID         int64            `json:"activity_id"`
	Status             core.TimerStatus `json:"status"`
	StartedAtUnixMilli int64            `json:"started_at_unix_milli"`
	AccumulatedSeconds int64            `json:"accumulated_seconds"`
}

// Engine is the timer state machine. All transitions and reads are
// serialized behind a single mutex; it is safe for concurrent use but
// designed for one logical owner.
type Engine struct {
	mu    sync.Mutex
	clock clock.Clock
	rates RateSource

	personID    int64
	activityID  int64
	status      core.TimerStatus
	startedAt   time.Time // zero unless running
	accumulated int64     // seconds banked from completed running intervals
}

func New(clk clock.Clock, rates RateSource, personID, activityID int64) *Engine {
	return &Engine{
		clock:      clk,
		rates:      rates,
		personID:   personID,
		activityID: activityID,
		status:     core.StatusStopped,
	}
}

// Start begins a new session. Valid only from Stopped; anything else
// is a tolerated no-op so a double click cannot wipe progress.
func (e *Engine) Start() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.status != core.StatusStopped {
		return
	}
	e.startedAt = e.clock.Now()
	e.accumulated = 0
	e.status = core.StatusRunning
}

// Pause banks the elapsed running time. No-op unless Running.
func (e *Engine) Pause() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.status != core.StatusRunning {
		return
	}
	e.accumulated += e.runningDelta()
	e.startedAt = time.Time{}
	e.status = core.StatusPaused
}

// Resume continues a paused session. No-op unless Paused.
func (e *Engine) Resume() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.status != core.StatusPaused {
		return
	}
	e.startedAt = e.clock.Now()
	e.status = core.StatusRunning
}

// Stop finalizes the session and returns the settlement result.
// Stopping an already stopped engine yields a zero-duration result;
// callers must treat DurationMinutes <= 0 as "nothing to save".
//
// The engine deliberately stays in Stopped with its total intact:
// Reset is a separate call, made only after the result has been
// durably persisted, so a failed save never loses the session.
func (e *Engine) Stop() core.SettlementResult {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.status == core.StatusRunning {
		e.accumulated += e.runningDelta()
		e.startedAt = time.Time{}
	}
	e.status = core.StatusStopped

	return core.SettlementResult{
		ElapsedSeconds:  e.accumulated,
		DurationMinutes: float64(e.accumulated) / 60,
		PersonID:        e.personID,
		ActivityID:      e.activityID,
	}
}

// Reset clears the session back to initial values regardless of state.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.startedAt = time.Time{}
	e.accumulated = 0
	e.status = core.StatusStopped
}

// Tick re-bases a running session: banked seconds absorb the live
// delta and the start timestamp moves to now. Elapsed reads are lazy
// and do not depend on it; Tick exists for clients that refresh the
// display on an interval. No-op unless Running.
func (e *Engine) Tick() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.status != core.StatusRunning {
		return
	}
	now := e.clock.Now()
	e.accumulated += int64(now.Sub(e.startedAt) / time.Second)
	e.startedAt = now
}

// SetPerson switches the rate profile mid-session. The whole elapsed
// duration uses whichever rate is current at read or stop time; the
// session is not split retroactively.
func (e *Engine) SetPerson(id int64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.personID = id
}

// SetActivity switches the activity label mid-session.
func (e *Engine) SetActivity(id int64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.activityID = id
}

// Status returns the current state machine status.
func (e *Engine) Status() core.TimerStatus {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status
}

// PersonID returns the active rate profile id.
func (e *Engine) PersonID() int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.personID
}

// ActivityID returns the active activity id.
func (e *Engine) ActivityID() int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.activityID
}

// ElapsedSeconds returns banked seconds plus the live running delta.
func (e *Engine) ElapsedSeconds() int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.elapsed()
}

// FormattedElapsed renders the total elapsed time as HH:MM:SS.
func (e *Engine) FormattedElapsed() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return core.FormatElapsed(e.elapsed())
}

// CurrentEarnings is the live earnings figure for the session so far.
// Returns 0 when the person is unknown.
func (e *Engine) CurrentEarnings() int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.earnings()
}

// CurrentDeduction is the live deduction-fund figure for the session
// so far. Returns 0 when the person is unknown.
func (e *Engine) CurrentDeduction() int64 {
	e.mu.Lock()
	defer e.mu.Unlock()

	person, ok := e.rates.Person(e.personID)
	if !ok {
		return 0
	}
	return core.Deduction(e.earnings(), person.DeductionRate)
}

// Snapshot captures the engine state for persistence.
func (e *Engine) Snapshot() State {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := State{
		PersonID:           e.personID,
		ActivityID:         e.activityID,
		Status:             e.status,
		AccumulatedSeconds: e.accumulated,
	}
	if !e.startedAt.IsZero() {
		s.StartedAtUnixMilli = e.startedAt.UnixMilli()
	}
	return s
}

// Restore loads a previously persisted state. A running session keeps
// counting across a restart because the start timestamp survives.
func (e *Engine) Restore(s State) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.personID = s.PersonID
	e.activityID = s.ActivityID
	e.accumulated = s.AccumulatedSeconds
	e.startedAt = time.Time{}

	switch s.Status {
	case core.StatusRunning:
		e.status = core.StatusRunning
		if s.StartedAtUnixMilli > 0 {
			e.startedAt = time.UnixMilli(s.StartedAtUnixMilli)
		} else {
			e.startedAt = e.clock.Now()
		}
	case core.StatusPaused:
		e.status = core.StatusPaused
	default:
		e.status = core.StatusStopped
	}
}

func (e *Engine) runningDelta() int64 {
	return int64(e.clock.Now().Sub(e.startedAt) / time.Second)
}

// elapsed must be called with the lock held.
func (e *Engine) elapsed() int64 {
	total := e.accumulated
	if e.status == core.StatusRunning && !e.startedAt.IsZero() {
		total += e.runningDelta()
	}
	return total
}

func (e *Engine) earnings() int64 {
	person, ok := e.rates.Person(e.personID)
	if !ok {
		return 0
	}
	minutes := float64(e.elapsed()) / 60
	return core.Earnings(minutes, person.HourlyRate)
}
