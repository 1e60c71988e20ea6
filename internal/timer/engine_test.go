package timer

import (
	"testing"
	"time"

	"github.com/Martyparty1988/PichackaTracker/internal/clock"
	"github.com/Martyparty1988/PichackaTracker/internal/core"
)

type staticRates map[int64]core.Person

func (r staticRates) Person(id int64) (core.Person, bool) {
	p, ok := r[id]
	return p, ok
}

func testRates() staticRates {
	return staticRates{
		1: {ID: 1, Name: "Maru", HourlyRate: 275, DeductionRate: 1.0 / 3.0},
		2: {ID: 2, Name: "Marty", HourlyRate: 400, DeductionRate: 0.5},
	}
}

func newTestEngine() (*Engine, *clock.Fixed) {
	clk := clock.NewFixed(time.Date(2025, 4, 14, 9, 0, 0, 0, time.UTC))
	return New(clk, testRates(), 1, 1), clk
}

func TestStartPauseResumeStopAdditivity(t *testing.T) {
	e, clk := newTestEngine()

	e.Start()
	clk.Advance(10 * time.Minute)
	e.Pause()

	// time spent paused must not count
	clk.Advance(30 * time.Minute)
	e.Resume()
	clk.Advance(5 * time.Minute)
	e.Pause()

	clk.Advance(time.Hour)
	e.Resume()
	clk.Advance(15 * time.Minute)

	result := e.Stop()
	want := int64((10 + 5 + 15) * 60)
	if result.ElapsedSeconds != want {
		t.Fatalf("elapsed = %d, want %d", result.ElapsedSeconds, want)
	}
	if result.DurationMinutes != 30 {
		t.Fatalf("duration = %v, want 30", result.DurationMinutes)
	}
	if result.PersonID != 1 || result.ActivityID != 1 {
		t.Fatalf("unexpected ids in result: %+v", result)
	}
}

func TestStopAfterOneHour(t *testing.T) {
	e, clk := newTestEngine()

	e.Start()
	clk.Advance(3600 * time.Second)
	result := e.Stop()

	if result.DurationMinutes != 60 {
		t.Fatalf("duration = %v, want 60", result.DurationMinutes)
	}
	earnings := core.Earnings(result.DurationMinutes, 275)
	if earnings != 275 {
		t.Fatalf("earnings = %d, want 275", earnings)
	}
	if d := core.Deduction(earnings, 1.0/3.0); d != 92 {
		t.Fatalf("deduction = %d, want 92", d)
	}
}

func TestImmediateStopIsNotBillable(t *testing.T) {
	e, _ := newTestEngine()

	e.Start()
	result := e.Stop()
	if result.Billable() {
		t.Fatalf("zero-second session must not be billable: %+v", result)
	}
}

func TestStopFromStoppedYieldsZero(t *testing.T) {
	e, _ := newTestEngine()

	result := e.Stop()
	if result.ElapsedSeconds != 0 || result.DurationMinutes != 0 {
		t.Fatalf("expected zero result, got %+v", result)
	}
	if e.Status() != core.StatusStopped {
		t.Fatalf("status = %s", e.Status())
	}
}

func TestResetClearsEverything(t *testing.T) {
	e, clk := newTestEngine()

	e.Start()
	clk.Advance(time.Hour)
	e.Stop()
	e.Reset()

	if e.Status() != core.StatusStopped {
		t.Fatalf("status after reset = %s", e.Status())
	}
	if e.ElapsedSeconds() != 0 {
		t.Fatalf("elapsed after reset = %d", e.ElapsedSeconds())
	}
	if result := e.Stop(); result.DurationMinutes != 0 {
		t.Fatalf("stop after reset yields %v minutes", result.DurationMinutes)
	}
}

func TestStopKeepsTotalUntilReset(t *testing.T) {
	e, clk := newTestEngine()

	e.Start()
	clk.Advance(20 * time.Minute)
	first := e.Stop()

	// a retry after a failed save must see the same total
	second := e.Stop()
	if second.ElapsedSeconds != first.ElapsedSeconds {
		t.Fatalf("retry lost the session: %d != %d", second.ElapsedSeconds, first.ElapsedSeconds)
	}
}

func TestInvalidTransitionsAreNoOps(t *testing.T) {
	e, clk := newTestEngine()

	e.Pause() // stopped: ignored
	e.Resume()
	if e.Status() != core.StatusStopped {
		t.Fatalf("status = %s", e.Status())
	}

	e.Start()
	clk.Advance(5 * time.Minute)
	e.Resume() // running: ignored
	if e.Status() != core.StatusRunning {
		t.Fatalf("status = %s", e.Status())
	}

	// re-entrant start must not wipe progress
	e.Start()
	if e.ElapsedSeconds() != 5*60 {
		t.Fatalf("re-entrant start lost progress: %d", e.ElapsedSeconds())
	}

	e.Pause()
	e.Pause() // paused: ignored
	if e.ElapsedSeconds() != 5*60 {
		t.Fatalf("double pause changed total: %d", e.ElapsedSeconds())
	}
}

func TestLiveQueriesWhileRunning(t *testing.T) {
	e, clk := newTestEngine()

	e.Start()
	clk.Advance(90 * time.Minute)

	if got := e.FormattedElapsed(); got != "01:30:00" {
		t.Fatalf("formatted = %q", got)
	}
	if got := e.CurrentEarnings(); got != 413 { // 1.5h * 275 = 412.5
		t.Fatalf("earnings = %d, want 413", got)
	}
	if got := e.CurrentDeduction(); got != 138 { // round(413/3)
		t.Fatalf("deduction = %d, want 138", got)
	}
}

func TestTickDoesNotChangeTotal(t *testing.T) {
	e, clk := newTestEngine()

	e.Start()
	for i := 0; i < 120; i++ {
		clk.Advance(time.Second)
		e.Tick()
	}
	clk.Advance(30 * time.Second)

	if got := e.ElapsedSeconds(); got != 150 {
		t.Fatalf("elapsed = %d, want 150", got)
	}
}

func TestSwitchPersonMidSession(t *testing.T) {
	e, clk := newTestEngine()

	e.Start()
	clk.Advance(time.Hour)

	// the whole hour retroactively uses the new rate
	e.SetPerson(2)
	if got := e.CurrentEarnings(); got != 400 {
		t.Fatalf("earnings after switch = %d, want 400", got)
	}
	if got := e.CurrentDeduction(); got != 200 {
		t.Fatalf("deduction after switch = %d, want 200", got)
	}

	result := e.Stop()
	if result.PersonID != 2 {
		t.Fatalf("result person = %d, want 2", result.PersonID)
	}
}

func TestUnknownPersonDegradesToZero(t *testing.T) {
	e, clk := newTestEngine()

	e.SetPerson(99)
	e.Start()
	clk.Advance(time.Hour)

	if e.CurrentEarnings() != 0 || e.CurrentDeduction() != 0 {
		t.Fatal("unknown person must yield zero earnings and deduction")
	}
	// elapsed time itself is unaffected
	if e.ElapsedSeconds() != 3600 {
		t.Fatalf("elapsed = %d", e.ElapsedSeconds())
	}
}

func TestSnapshotRestoreRoundTrip(t *testing.T) {
	e, clk := newTestEngine()

	e.Start()
	clk.Advance(10 * time.Minute)
	e.Pause()
	e.SetActivity(3)

	snap := e.Snapshot()

	restored := New(clk, testRates(), 1, 1)
	restored.Restore(snap)

	if restored.Status() != core.StatusPaused {
		t.Fatalf("status = %s", restored.Status())
	}
	if restored.ElapsedSeconds() != 600 {
		t.Fatalf("elapsed = %d", restored.ElapsedSeconds())
	}
	if restored.ActivityID() != 3 {
		t.Fatalf("activity = %d", restored.ActivityID())
	}
}

func TestRestoreRunningSessionKeepsCounting(t *testing.T) {
	clk := clock.NewFixed(time.Date(2025, 4, 14, 9, 0, 0, 0, time.UTC))
	e := New(clk, testRates(), 1, 1)

	e.Start()
	clk.Advance(5 * time.Minute)
	snap := e.Snapshot()

	// simulate a restart 10 minutes later
	clk.Advance(10 * time.Minute)
	restored := New(clk, testRates(), 1, 1)
	restored.Restore(snap)

	if restored.Status() != core.StatusRunning {
		t.Fatalf("status = %s", restored.Status())
	}
	if got := restored.ElapsedSeconds(); got != 15*60 {
		t.Fatalf("elapsed = %d, want %d", got, 15*60)
	}
}
