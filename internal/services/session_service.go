// Package services orchestrates the timer engine, the ledger
// aggregate and persistence: transitions are applied locally first,
// then saved, and a session is only reset after its settlement has
// been durably stored.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Martyparty1988/PichackaTracker/internal/clock"
	"github.com/Martyparty1988/PichackaTracker/internal/core"
	"github.com/Martyparty1988/PichackaTracker/internal/ledger"
	"github.com/Martyparty1988/PichackaTracker/internal/metrics"
	"github.com/Martyparty1988/PichackaTracker/internal/storage"
	"github.com/Martyparty1988/PichackaTracker/internal/timer"
)

// SessionStore is the persistence surface the session service needs.
// *storage.SQLiteRepository satisfies it.
type SessionStore interface {
	InsertWorkLog(ctx context.Context, wl core.WorkLog) (int64, error)
	SaveTimerState(ctx context.Context, s timer.State) error
	LoadTimerState(ctx context.Context) (timer.State, error)
	SaveLedgerState(ctx context.Context, s ledger.Snapshot) error
}

// SettlementPublisher announces settled work logs to the archive
// worker. *amqp.Client satisfies it; nil disables publishing.
type SettlementPublisher interface {
	PublishWorkLogSettled(ctx context.Context, workLogID, personID int64) error
}

// TimerView is a consistent read of the engine for display.
type TimerView struct {
	Status           core.TimerStatus `json:"status"`
	PersonID         int64            `json:"personId"`
	ActivityID       int64            `json:"activityId"`
	ElapsedSeconds   int64            `json:"elapsedSeconds"`
	FormattedTime    string           `json:"formattedTime"`
	CurrentEarnings  int64            `json:"currentEarnings"`
	CurrentDeduction int64            `json:"currentDeduction"`
}

// StopOutcome is the result of a stop request. Skipped means nothing
// was persisted (zero duration or unknown person) and there is
// nothing to retry.
type StopOutcome struct {
	Skipped bool
	Reason  string
	WorkLog core.WorkLog
}

// SessionService owns the active work session end to end. The engine
// guards its own fields, but settlement is a compound sequence above
// it (stop, persist, credit, reset), so all transitions are serialized
// behind one more mutex: without it two concurrent stops would each
// read the full total and settle the same session twice.
type SessionService struct {
	mu        sync.Mutex
	engine    *timer.Engine
	ledger    *ledger.Ledger
	store     SessionStore
	rates     timer.RateSource
	publisher SettlementPublisher
	clock     clock.Clock
}

func NewSessionService(engine *timer.Engine, lgr *ledger.Ledger, store SessionStore, rates timer.RateSource, publisher SettlementPublisher, clk clock.Clock) *SessionService {
	return &SessionService{
		engine:    engine,
		ledger:    lgr,
		store:     store,
		rates:     rates,
		publisher: publisher,
		clock:     clk,
	}
}

// Restore loads the persisted engine state, if any. A session that
// was running when the server died keeps counting.
func (s *SessionService) Restore(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	state, err := s.store.LoadTimerState(ctx)
	if errors.Is(err, storage.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("restore timer state: %w", err)
	}
	s.engine.Restore(state)
	slog.InfoContext(ctx, "Timer state restored",
		"timer_status", state.Status,
		"person_id", state.PersonID,
		"accumulated_seconds", state.AccumulatedSeconds)
	return nil
}

// Start begins a new session. A no-op when one is already active.
func (s *SessionService) Start(ctx context.Context) TimerView {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.engine.Start()
	s.persistTimerState(ctx)
	return s.View()
}

// Pause banks the running time.
func (s *SessionService) Pause(ctx context.Context) TimerView {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.engine.Pause()
	s.persistTimerState(ctx)
	return s.View()
}

// Resume continues a paused session.
func (s *SessionService) Resume(ctx context.Context) TimerView {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.engine.Resume()
	s.persistTimerState(ctx)
	return s.View()
}

// SwitchPerson changes the rate profile mid-session. The switch takes
// effect immediately for all subsequent earnings reads; the elapsed
// duration is not split by rate.
func (s *SessionService) SwitchPerson(ctx context.Context, personID int64) (TimerView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.rates.Person(personID); !ok {
		return s.View(), core.ErrUnknownPerson
	}
	s.engine.SetPerson(personID)
	s.persistTimerState(ctx)
	return s.View(), nil
}

// SwitchActivity changes the activity label mid-session.
func (s *SessionService) SwitchActivity(ctx context.Context, activityID int64) TimerView {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.engine.SetActivity(activityID)
	s.persistTimerState(ctx)
	return s.View()
}

// StopAndSettle finalizes the session, converts it into a work log,
// credits the deduction fund and resets the engine.
//
// On persistence failure the engine is left in Stopped with its total
// intact and an error is returned; stopping again retries the same
// settlement. Zero-duration sessions are discarded.
func (s *SessionService) StopAndSettle(ctx context.Context) (StopOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := s.engine.Stop()
	s.persistTimerState(ctx)

	if !result.Billable() {
		s.engine.Reset()
		s.persistTimerState(ctx)
		metrics.SessionsSkipped.Inc()
		slog.InfoContext(ctx, "Session discarded, nothing to save",
			"elapsed_seconds", result.ElapsedSeconds)
		return StopOutcome{Skipped: true, Reason: "zero duration"}, nil
	}

	person, ok := s.rates.Person(result.PersonID)
	if !ok {
		// The session total is kept so the stop can be retried once
		// the person exists again.
		slog.ErrorContext(ctx, "Cannot settle session, unknown person",
			"person_id", result.PersonID)
		return StopOutcome{Skipped: true, Reason: "unknown person"}, nil
	}

	earnings := core.Earnings(result.DurationMinutes, person.HourlyRate)
	deduction := core.Deduction(earnings, person.DeductionRate)

	now := s.clock.Now()
	wl := core.WorkLog{
		PersonID:        result.PersonID,
		ActivityID:      result.ActivityID,
		StartTime:       now.Add(-time.Duration(result.ElapsedSeconds) * time.Second),
		EndTime:         now,
		DurationMinutes: result.DurationMinutes,
		Earnings:        earnings,
		Deduction:       deduction,
	}

	id, err := s.store.InsertWorkLog(ctx, wl)
	if err != nil {
		// Engine stays stopped-but-not-reset so the user can retry.
		return StopOutcome{}, fmt.Errorf("save work log: %w", err)
	}
	wl.ID = id

	s.ledger.CreditDeductionFund(deduction)
	if err := s.store.SaveLedgerState(ctx, s.ledger.Snapshot()); err != nil {
		// The in-memory ledger is authoritative; the next successful
		// save persists the credit.
		slog.ErrorContext(ctx, "Failed to persist ledger after settlement",
			"error", err, "work_log_id", id)
	}

	s.engine.Reset()
	s.persistTimerState(ctx)

	if s.publisher != nil {
		if err := s.publisher.PublishWorkLogSettled(ctx, id, wl.PersonID); err != nil {
			slog.ErrorContext(ctx, "Failed to publish settlement message",
				"error", err, "work_log_id", id)
			// Not fatal, the work log is saved locally.
		}
	}

	metrics.SessionsSettled.Inc()
	metrics.EarningsSettled.Add(float64(earnings))
	metrics.DeductionFund.Set(float64(s.ledger.DeductionFund()))

	slog.InfoContext(ctx, "Session settled",
		"work_log_id", id,
		"person_id", wl.PersonID,
		"activity_id", wl.ActivityID,
		"duration_minutes", wl.DurationMinutes,
		"earnings", earnings,
		"deduction", deduction)

	return StopOutcome{WorkLog: wl}, nil
}

// View returns a consistent snapshot for display.
func (s *SessionService) View() TimerView {
	return TimerView{
		Status:           s.engine.Status(),
		PersonID:         s.engine.PersonID(),
		ActivityID:       s.engine.ActivityID(),
		ElapsedSeconds:   s.engine.ElapsedSeconds(),
		FormattedTime:    s.engine.FormattedElapsed(),
		CurrentEarnings:  s.engine.CurrentEarnings(),
		CurrentDeduction: s.engine.CurrentDeduction(),
	}
}

// persistTimerState saves the engine snapshot. Failures are logged,
// not fatal: the in-memory engine keeps the truth and the next
// transition retries the save.
func (s *SessionService) persistTimerState(ctx context.Context) {
	if err := s.store.SaveTimerState(ctx, s.engine.Snapshot()); err != nil {
		slog.ErrorContext(ctx, "Failed to persist timer state", "error", err)
	}
}
