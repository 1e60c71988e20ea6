// Package worker copies settled work logs into the archive table.
// The archive is append-only and survives edits to the live table, so
// month-end reviews always see the settlement as it happened.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Martyparty1988/PichackaTracker/internal/amqp"
	"github.com/Martyparty1988/PichackaTracker/internal/core"
	"github.com/Martyparty1988/PichackaTracker/internal/metrics"
	"github.com/Martyparty1988/PichackaTracker/internal/storage"
)

// ArchiveStore is the storage surface the worker needs.
// *storage.SQLiteRepository satisfies it.
type ArchiveStore interface {
	GetWorkLog(ctx context.Context, id int64) (core.WorkLog, error)
	ArchiveWorkLog(ctx context.Context, wl core.WorkLog) error
	ListUnarchivedWorkLogs(ctx context.Context, limit int) ([]core.WorkLog, error)
}

// ArchiveWorker consumes settlement messages and archives the
// referenced work logs.
type ArchiveWorker struct {
	store     ArchiveStore
	batchSize int
}

func NewArchiveWorker(store ArchiveStore, batchSize int) *ArchiveWorker {
	return &ArchiveWorker{store: store, batchSize: batchSize}
}

// HandleSettledMessage processes one settlement message. The message
// only carries the work log id; the authoritative record comes from
// storage. A work log deleted between settlement and archival is
// dropped, not retried.
func (w *ArchiveWorker) HandleSettledMessage(ctx context.Context, msg *amqp.WorkLogSettledMessage) error {
	slog.InfoContext(ctx, "Processing settlement message",
		"work_log_id", msg.WorkLogID,
		"person_id", msg.PersonID)

	wl, err := w.store.GetWorkLog(ctx, msg.WorkLogID)
	if errors.Is(err, storage.ErrNotFound) {
		slog.WarnContext(ctx, "Work log no longer exists, dropping message",
			"work_log_id", msg.WorkLogID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("get work log: %w", err)
	}

	if err := w.store.ArchiveWorkLog(ctx, wl); err != nil {
		return fmt.Errorf("archive work log: %w", err)
	}

	metrics.WorkLogsArchived.Inc()
	slog.InfoContext(ctx, "Work log archived",
		"work_log_id", wl.ID,
		"person_id", wl.PersonID,
		"earnings", wl.Earnings)
	return nil
}

// StartupBacklogCheck archives work logs whose settlement message was
// lost while the worker was down. Archiving is idempotent, so logs
// already archived are skipped by the insert.
func (w *ArchiveWorker) StartupBacklogCheck(ctx context.Context) error {
	pending, err := w.store.ListUnarchivedWorkLogs(ctx, w.batchSize)
	if err != nil {
		return fmt.Errorf("list unarchived work logs: %w", err)
	}
	if len(pending) == 0 {
		slog.InfoContext(ctx, "No unarchived work logs on startup")
		return nil
	}

	slog.InfoContext(ctx, "Archiving backlog", "count", len(pending))

	archived := 0
	for _, wl := range pending {
		if err := w.store.ArchiveWorkLog(ctx, wl); err != nil {
			slog.ErrorContext(ctx, "Failed to archive work log",
				"work_log_id", wl.ID, "error", err)
			continue
		}
		metrics.WorkLogsArchived.Inc()
		archived++
	}

	slog.InfoContext(ctx, "Backlog archival completed",
		"total", len(pending),
		"archived", archived)
	return nil
}
