package services

import (
	"context"
	"testing"
	"time"

	"github.com/Martyparty1988/PichackaTracker/internal/clock"
	"github.com/Martyparty1988/PichackaTracker/internal/core"
)

// fakeWorkLogReader records the summary windows it was asked for.
type fakeWorkLogReader struct {
	logs    []core.WorkLog
	summary core.WorkSummary
	windows [][2]time.Time
}

func (f *fakeWorkLogReader) ListWorkLogs(_ context.Context, limit int) ([]core.WorkLog, error) {
	logs := f.logs
	if limit > 0 && len(logs) > limit {
		logs = logs[:limit]
	}
	return logs, nil
}

func (f *fakeWorkLogReader) SummarizeWorkLogs(_ context.Context, from, to time.Time) (core.WorkSummary, error) {
	f.windows = append(f.windows, [2]time.Time{from, to})
	return f.summary, nil
}

func TestSummaryWindowsStartMonday(t *testing.T) {
	// Wednesday, so the week began two days earlier.
	now := time.Date(2025, 4, 16, 14, 30, 0, 0, time.UTC)
	reader := &fakeWorkLogReader{summary: core.WorkSummary{WorkTimeMinutes: 119.5, Earnings: 548, Deduction: 183}}
	svc := NewReportService(reader, clock.NewFixed(now))

	view, err := svc.Summary(context.Background())
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if len(reader.windows) != 3 {
		t.Fatalf("summary queries = %d, want 3", len(reader.windows))
	}

	dayFrom := reader.windows[0][0]
	if !dayFrom.Equal(time.Date(2025, 4, 16, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("today from = %v", dayFrom)
	}
	weekFrom := reader.windows[1][0]
	if !weekFrom.Equal(time.Date(2025, 4, 14, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("week from = %v, want Monday midnight", weekFrom)
	}
	monthFrom := reader.windows[2][0]
	if !monthFrom.Equal(time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("month from = %v", monthFrom)
	}

	if view.Today.Label != "16.04.2025" {
		t.Fatalf("today label = %q", view.Today.Label)
	}
	if view.Week.Label != "14.04. – 20.04." {
		t.Fatalf("week label = %q", view.Week.Label)
	}
	if view.Month.Label != "April 2025" {
		t.Fatalf("month label = %q", view.Month.Label)
	}
	if view.Today.WorkTime != "2h 00m" {
		t.Fatalf("work time = %q, want rounded carry into hours", view.Today.WorkTime)
	}
}

func TestRecentLimitsResults(t *testing.T) {
	reader := &fakeWorkLogReader{logs: []core.WorkLog{{ID: 3}, {ID: 2}, {ID: 1}}}
	svc := NewReportService(reader, clock.NewFixed(time.Date(2025, 4, 16, 0, 0, 0, 0, time.UTC)))

	logs, err := svc.Recent(context.Background(), 2)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(logs) != 2 || logs[0].ID != 3 {
		t.Fatalf("logs = %+v", logs)
	}
}
