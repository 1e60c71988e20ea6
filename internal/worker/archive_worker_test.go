package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Martyparty1988/PichackaTracker/internal/amqp"
	"github.com/Martyparty1988/PichackaTracker/internal/core"
	"github.com/Martyparty1988/PichackaTracker/internal/storage"
)

type fakeArchiveStore struct {
	workLogs map[int64]core.WorkLog
	archived map[int64]int

	failArchive bool
}

func newFakeArchiveStore(logs ...core.WorkLog) *fakeArchiveStore {
	s := &fakeArchiveStore{
		workLogs: make(map[int64]core.WorkLog),
		archived: make(map[int64]int),
	}
	for _, wl := range logs {
		s.workLogs[wl.ID] = wl
	}
	return s
}

func (s *fakeArchiveStore) GetWorkLog(_ context.Context, id int64) (core.WorkLog, error) {
	wl, ok := s.workLogs[id]
	if !ok {
		return core.WorkLog{}, storage.ErrNotFound
	}
	return wl, nil
}

func (s *fakeArchiveStore) ArchiveWorkLog(_ context.Context, wl core.WorkLog) error {
	if s.failArchive {
		return errors.New("database is locked")
	}
	s.archived[wl.ID]++
	return nil
}

func (s *fakeArchiveStore) ListUnarchivedWorkLogs(_ context.Context, limit int) ([]core.WorkLog, error) {
	var pending []core.WorkLog
	for id, wl := range s.workLogs {
		if s.archived[id] == 0 {
			pending = append(pending, wl)
		}
		if len(pending) == limit {
			break
		}
	}
	return pending, nil
}

func sampleWorkLog(id int64) core.WorkLog {
	end := time.Date(2025, 4, 14, 10, 0, 0, 0, time.UTC)
	return core.WorkLog{
		ID:              id,
		PersonID:        1,
		ActivityID:      1,
		StartTime:       end.Add(-time.Hour),
		EndTime:         end,
		DurationMinutes: 60,
		Earnings:        275,
		Deduction:       92,
	}
}

func TestHandleSettledMessageArchives(t *testing.T) {
	store := newFakeArchiveStore(sampleWorkLog(7))
	w := NewArchiveWorker(store, 10)

	msg := &amqp.WorkLogSettledMessage{WorkLogID: 7, PersonID: 1}
	if err := w.HandleSettledMessage(context.Background(), msg); err != nil {
		t.Fatalf("HandleSettledMessage: %v", err)
	}
	if store.archived[7] != 1 {
		t.Fatalf("archived count = %d, want 1", store.archived[7])
	}
}

func TestHandleSettledMessageMissingLogIsDropped(t *testing.T) {
	store := newFakeArchiveStore()
	w := NewArchiveWorker(store, 10)

	msg := &amqp.WorkLogSettledMessage{WorkLogID: 99}
	if err := w.HandleSettledMessage(context.Background(), msg); err != nil {
		t.Fatalf("missing work log must not be an error, got %v", err)
	}
	if len(store.archived) != 0 {
		t.Fatal("nothing should be archived")
	}
}

func TestHandleSettledMessageArchiveFailurePropagates(t *testing.T) {
	store := newFakeArchiveStore(sampleWorkLog(3))
	store.failArchive = true
	w := NewArchiveWorker(store, 10)

	msg := &amqp.WorkLogSettledMessage{WorkLogID: 3}
	if err := w.HandleSettledMessage(context.Background(), msg); err == nil {
		t.Fatal("expected error so the message is redelivered")
	}
}

func TestStartupBacklogCheck(t *testing.T) {
	store := newFakeArchiveStore(sampleWorkLog(1), sampleWorkLog(2), sampleWorkLog(3))
	store.archived[2] = 1
	w := NewArchiveWorker(store, 10)

	if err := w.StartupBacklogCheck(context.Background()); err != nil {
		t.Fatalf("StartupBacklogCheck: %v", err)
	}
	for _, id := range []int64{1, 3} {
		if store.archived[id] != 1 {
			t.Fatalf("work log %d not archived", id)
		}
	}
	if store.archived[2] != 1 {
		t.Fatal("already-archived log must not be re-archived")
	}
}
