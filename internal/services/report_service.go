package services

import (
	"context"
	"fmt"
	"time"

	"github.com/Martyparty1988/PichackaTracker/internal/clock"
	"github.com/Martyparty1988/PichackaTracker/internal/core"
)

// WorkLogReader is the storage surface the report service needs.
type WorkLogReader interface {
	ListWorkLogs(ctx context.Context, limit int) ([]core.WorkLog, error)
	SummarizeWorkLogs(ctx context.Context, from, to time.Time) (core.WorkSummary, error)
}

// PeriodSummary is one card of the dashboard summary.
type PeriodSummary struct {
	Label           string  `json:"label"`
	WorkTimeMinutes float64 `json:"workTimeMinutes"`
	WorkTime        string  `json:"workTime"`
	Earnings        int64   `json:"earnings"`
	Deduction       int64   `json:"deduction"`
}

// WorkSummaryView covers today, the current week and the current month.
type WorkSummaryView struct {
	Today PeriodSummary `json:"today"`
	Week  PeriodSummary `json:"week"`
	Month PeriodSummary `json:"month"`
}

// ReportService reads settled work logs for dashboards.
type ReportService struct {
	store WorkLogReader
	clock clock.Clock
}

func NewReportService(store WorkLogReader, clk clock.Clock) *ReportService {
	return &ReportService{store: store, clock: clk}
}

// Recent returns up to limit work logs, most recent first.
func (r *ReportService) Recent(ctx context.Context, limit int) ([]core.WorkLog, error) {
	logs, err := r.store.ListWorkLogs(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list work logs: %w", err)
	}
	return logs, nil
}

// Summary aggregates work logs for today, this week and this month.
// Weeks start on Monday.
func (r *ReportService) Summary(ctx context.Context) (WorkSummaryView, error) {
	now := r.clock.Now()

	dayFrom, dayTo := dayBounds(now)
	weekFrom := weekStart(now)
	monthFrom := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())

	today, err := r.store.SummarizeWorkLogs(ctx, dayFrom, dayTo)
	if err != nil {
		return WorkSummaryView{}, fmt.Errorf("summarize today: %w", err)
	}
	week, err := r.store.SummarizeWorkLogs(ctx, weekFrom, dayTo)
	if err != nil {
		return WorkSummaryView{}, fmt.Errorf("summarize week: %w", err)
	}
	month, err := r.store.SummarizeWorkLogs(ctx, monthFrom, dayTo)
	if err != nil {
		return WorkSummaryView{}, fmt.Errorf("summarize month: %w", err)
	}

	return WorkSummaryView{
		Today: periodSummary(now.Format("02.01.2006"), today),
		Week: periodSummary(
			fmt.Sprintf("%s – %s", weekFrom.Format("02.01."), weekFrom.AddDate(0, 0, 6).Format("02.01.")),
			week),
		Month: periodSummary(now.Format("January 2006"), month),
	}, nil
}

func periodSummary(label string, s core.WorkSummary) PeriodSummary {
	return PeriodSummary{
		Label:           label,
		WorkTimeMinutes: s.WorkTimeMinutes,
		WorkTime:        core.FormatDuration(s.WorkTimeMinutes),
		Earnings:        s.Earnings,
		Deduction:       s.Deduction,
	}
}

// weekStart returns local midnight of the Monday of t's week.
func weekStart(t time.Time) time.Time {
	year, month, day := t.Date()
	midnight := time.Date(year, month, day, 0, 0, 0, 0, t.Location())
	offset := (int(midnight.Weekday()) + 6) % 7 // Monday = 0
	return midnight.AddDate(0, 0, -offset)
}
