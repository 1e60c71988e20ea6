package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Martyparty1988/PichackaTracker/internal/clock"
	"github.com/Martyparty1988/PichackaTracker/internal/core"
	"github.com/Martyparty1988/PichackaTracker/internal/ledger"
	"github.com/Martyparty1988/PichackaTracker/internal/storage"
	"github.com/Martyparty1988/PichackaTracker/internal/timer"
)

// fakeStore records everything the services persist.
type fakeStore struct {
	workLogs     []core.WorkLog
	transactions []core.Transaction
	ledgerSaves  int
	timerStates  []timer.State
	summary      core.WorkSummary

	failInsert bool
}

func (f *fakeStore) InsertWorkLog(_ context.Context, wl core.WorkLog) (int64, error) {
	if f.failInsert {
		return 0, errors.New("disk full")
	}
	wl.ID = int64(len(f.workLogs) + 1)
	f.workLogs = append(f.workLogs, wl)
	return wl.ID, nil
}

func (f *fakeStore) SaveTimerState(_ context.Context, s timer.State) error {
	f.timerStates = append(f.timerStates, s)
	return nil
}

func (f *fakeStore) LoadTimerState(context.Context) (timer.State, error) {
	if len(f.timerStates) == 0 {
		return timer.State{}, storage.ErrNotFound
	}
	return f.timerStates[len(f.timerStates)-1], nil
}

func (f *fakeStore) SaveLedgerState(context.Context, ledger.Snapshot) error {
	f.ledgerSaves++
	return nil
}

func (f *fakeStore) AppendTransaction(_ context.Context, tx core.Transaction) error {
	f.transactions = append(f.transactions, tx)
	return nil
}

func (f *fakeStore) SummarizeWorkLogs(context.Context, time.Time, time.Time) (core.WorkSummary, error) {
	return f.summary, nil
}

type fakePublisher struct {
	published []int64
}

func (p *fakePublisher) PublishWorkLogSettled(_ context.Context, workLogID, _ int64) error {
	p.published = append(p.published, workLogID)
	return nil
}

func testDirectory() *Directory {
	return NewDirectory(
		[]core.Person{
			{ID: 1, Name: "Maru", HourlyRate: 275, DeductionRate: 1.0 / 3.0},
			{ID: 2, Name: "Marty", HourlyRate: 400, DeductionRate: 0.5},
		},
		[]core.Activity{{ID: 1, Name: "Vývoj software"}},
	)
}

func newSessionFixture(store *fakeStore) (*SessionService, *clock.Fixed, *fakePublisher) {
	clk := clock.NewFixed(time.Date(2025, 4, 14, 9, 0, 0, 0, time.UTC))
	dir := testDirectory()
	engine := timer.New(clk, dir, 1, 1)
	lgr := ledger.New(clk)
	pub := &fakePublisher{}
	svc := NewSessionService(engine, lgr, store, dir, pub, clk)
	return svc, clk, pub
}

func TestStopAndSettlePersistsEverything(t *testing.T) {
	store := &fakeStore{}
	svc, clk, pub := newSessionFixture(store)
	ctx := context.Background()

	svc.Start(ctx)
	clk.Advance(time.Hour)

	outcome, err := svc.StopAndSettle(ctx)
	if err != nil {
		t.Fatalf("StopAndSettle: %v", err)
	}
	if outcome.Skipped {
		t.Fatalf("unexpected skip: %+v", outcome)
	}
	if outcome.WorkLog.Earnings != 275 || outcome.WorkLog.Deduction != 92 {
		t.Fatalf("unexpected settlement: %+v", outcome.WorkLog)
	}
	if outcome.WorkLog.DurationMinutes != 60 {
		t.Fatalf("duration = %v", outcome.WorkLog.DurationMinutes)
	}
	if len(store.workLogs) != 1 {
		t.Fatalf("work logs persisted = %d", len(store.workLogs))
	}
	wl := store.workLogs[0]
	if !wl.EndTime.Equal(clk.Now()) || !wl.StartTime.Equal(clk.Now().Add(-time.Hour)) {
		t.Fatalf("unexpected interval: %v – %v", wl.StartTime, wl.EndTime)
	}
	if store.ledgerSaves == 0 {
		t.Fatal("ledger was not persisted")
	}
	if len(pub.published) != 1 || pub.published[0] != outcome.WorkLog.ID {
		t.Fatalf("publish = %v", pub.published)
	}

	// the deduction landed in the fund and the engine was reset
	view := svc.View()
	if view.Status != core.StatusStopped || view.ElapsedSeconds != 0 {
		t.Fatalf("engine not reset: %+v", view)
	}
}

func TestStopAndSettleZeroDurationSkips(t *testing.T) {
	store := &fakeStore{}
	svc, _, pub := newSessionFixture(store)
	ctx := context.Background()

	svc.Start(ctx)
	outcome, err := svc.StopAndSettle(ctx)
	if err != nil {
		t.Fatalf("StopAndSettle: %v", err)
	}
	if !outcome.Skipped {
		t.Fatal("zero-duration stop must be skipped")
	}
	if len(store.workLogs) != 0 {
		t.Fatal("nothing must be persisted for a zero-duration stop")
	}
	if len(pub.published) != 0 {
		t.Fatal("nothing must be published for a zero-duration stop")
	}
	if svc.View().Status != core.StatusStopped {
		t.Fatalf("status = %s", svc.View().Status)
	}
}

func TestStopAndSettlePersistFailureKeepsSession(t *testing.T) {
	store := &fakeStore{failInsert: true}
	svc, clk, _ := newSessionFixture(store)
	ctx := context.Background()

	svc.Start(ctx)
	clk.Advance(30 * time.Minute)

	if _, err := svc.StopAndSettle(ctx); err == nil {
		t.Fatal("expected persistence error")
	}

	// the session total must survive for a retry
	view := svc.View()
	if view.Status != core.StatusStopped {
		t.Fatalf("status = %s", view.Status)
	}
	if view.ElapsedSeconds != 30*60 {
		t.Fatalf("elapsed lost after failed save: %d", view.ElapsedSeconds)
	}

	store.failInsert = false
	outcome, err := svc.StopAndSettle(ctx)
	if err != nil {
		t.Fatalf("retry failed: %v", err)
	}
	if outcome.Skipped || outcome.WorkLog.DurationMinutes != 30 {
		t.Fatalf("retry outcome: %+v", outcome)
	}
}

// slowStore serializes access to a fakeStore and makes inserts take a
// while, like a real database write.
type slowStore struct {
	mu sync.Mutex
	fakeStore
}

func (s *slowStore) InsertWorkLog(ctx context.Context, wl core.WorkLog) (int64, error) {
	time.Sleep(5 * time.Millisecond)
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fakeStore.InsertWorkLog(ctx, wl)
}

func (s *slowStore) SaveTimerState(ctx context.Context, st timer.State) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fakeStore.SaveTimerState(ctx, st)
}

func (s *slowStore) LoadTimerState(ctx context.Context) (timer.State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fakeStore.LoadTimerState(ctx)
}

func (s *slowStore) SaveLedgerState(ctx context.Context, snap ledger.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fakeStore.SaveLedgerState(ctx, snap)
}

func TestStopAndSettleConcurrentStopsSettleOnce(t *testing.T) {
	store := &slowStore{}
	clk := clock.NewFixed(time.Date(2025, 4, 14, 9, 0, 0, 0, time.UTC))
	dir := testDirectory()
	engine := timer.New(clk, dir, 1, 1)
	lgr := ledger.New(clk)
	svc := NewSessionService(engine, lgr, store, dir, nil, clk)
	ctx := context.Background()

	svc.Start(ctx)
	clk.Advance(time.Hour)

	// A double-click: both stops race on the same session.
	var wg sync.WaitGroup
	outcomes := make([]StopOutcome, 2)
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			outcomes[i], errs[i] = svc.StopAndSettle(ctx)
		}(i)
	}
	wg.Wait()

	settled := 0
	for i := 0; i < 2; i++ {
		if errs[i] != nil {
			t.Fatalf("StopAndSettle #%d: %v", i, errs[i])
		}
		if !outcomes[i].Skipped {
			settled++
		}
	}
	if settled != 1 {
		t.Fatalf("session settled %d times, want 1", settled)
	}
	if len(store.workLogs) != 1 {
		t.Fatalf("work logs persisted = %d, want 1", len(store.workLogs))
	}
	if got := lgr.DeductionFund(); got != 92 {
		t.Fatalf("deduction fund = %d, want 92", got)
	}
}

func TestStopAndSettleUnknownPersonKeepsSession(t *testing.T) {
	store := &fakeStore{}
	clk := clock.NewFixed(time.Date(2025, 4, 14, 9, 0, 0, 0, time.UTC))
	dir := NewDirectory(nil, []core.Activity{{ID: 1, Name: "Vývoj software"}})
	engine := timer.New(clk, dir, 7, 1)
	svc := NewSessionService(engine, ledger.New(clk), store, dir, nil, clk)
	ctx := context.Background()

	svc.Start(ctx)
	clk.Advance(time.Hour)

	outcome, err := svc.StopAndSettle(ctx)
	if err != nil {
		t.Fatalf("StopAndSettle: %v", err)
	}
	if !outcome.Skipped || outcome.Reason != "unknown person" {
		t.Fatalf("outcome = %+v", outcome)
	}
	if len(store.workLogs) != 0 {
		t.Fatal("nothing must be persisted for an unknown person")
	}
	// total kept so the stop can be retried
	if got := svc.View().ElapsedSeconds; got != 3600 {
		t.Fatalf("elapsed = %d, want 3600", got)
	}
}

func TestSwitchPersonValidates(t *testing.T) {
	svc, clk, _ := newSessionFixture(&fakeStore{})
	ctx := context.Background()

	svc.Start(ctx)
	clk.Advance(time.Hour)

	if _, err := svc.SwitchPerson(ctx, 99); !errors.Is(err, core.ErrUnknownPerson) {
		t.Fatalf("err = %v, want ErrUnknownPerson", err)
	}

	view, err := svc.SwitchPerson(ctx, 2)
	if err != nil {
		t.Fatalf("SwitchPerson: %v", err)
	}
	if view.CurrentEarnings != 400 {
		t.Fatalf("earnings after switch = %d, want 400", view.CurrentEarnings)
	}
}

func TestRestoreRoundTrip(t *testing.T) {
	store := &fakeStore{}
	svc, clk, _ := newSessionFixture(store)
	ctx := context.Background()

	svc.Start(ctx)
	clk.Advance(10 * time.Minute)
	svc.Pause(ctx)

	// second service instance over the same store
	dir := testDirectory()
	engine := timer.New(clk, dir, 1, 1)
	svc2 := NewSessionService(engine, ledger.New(clk), store, dir, nil, clk)
	if err := svc2.Restore(ctx); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	view := svc2.View()
	if view.Status != core.StatusPaused || view.ElapsedSeconds != 600 {
		t.Fatalf("restored view: %+v", view)
	}
}

func TestRestoreWithoutState(t *testing.T) {
	svc, _, _ := newSessionFixture(&fakeStore{})
	if err := svc.Restore(context.Background()); err != nil {
		t.Fatalf("Restore on empty store: %v", err)
	}
	if svc.View().Status != core.StatusStopped {
		t.Fatal("fresh engine expected")
	}
}
