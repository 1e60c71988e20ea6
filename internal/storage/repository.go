// Package storage persists the timer and finance state in SQLite.
// The ledger aggregate lives in memory; this package is the durable
// sink written after every transition and mutation.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/Martyparty1988/PichackaTracker/internal/core"
	"github.com/Martyparty1988/PichackaTracker/internal/ledger"
	"github.com/Martyparty1988/PichackaTracker/internal/timer"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// ListPersons returns all rate profiles.
func (r *SQLiteRepository) ListPersons(ctx context.Context) ([]core.Person, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, initials, hourly_rate, deduction_rate FROM persons ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list persons: %w", err)
	}
	defer rows.Close()

	var persons []core.Person
	for rows.Next() {
		var p core.Person
		if err := rows.Scan(&p.ID, &p.Name, &p.Initials, &p.HourlyRate, &p.DeductionRate); err != nil {
			return nil, fmt.Errorf("scan person: %w", err)
		}
		persons = append(persons, p)
	}
	return persons, rows.Err()
}

// ListActivities returns all activity labels.
func (r *SQLiteRepository) ListActivities(ctx context.Context) ([]core.Activity, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, color FROM activities ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list activities: %w", err)
	}
	defer rows.Close()

	var activities []core.Activity
	for rows.Next() {
		var a core.Activity
		if err := rows.Scan(&a.ID, &a.Name, &a.Color); err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		activities = append(activities, a)
	}
	return activities, rows.Err()
}

// InsertWorkLog persists one settled session and returns its id.
func (r *SQLiteRepository) InsertWorkLog(ctx context.Context, wl core.WorkLog) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO work_logs
		 (person_id, activity_id, start_time, end_time, duration_minutes, earnings, deduction, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		wl.PersonID, wl.ActivityID,
		wl.StartTime.UnixMilli(), wl.EndTime.UnixMilli(),
		wl.DurationMinutes, wl.Earnings, wl.Deduction,
		time.Now().UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("insert work log: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("work log id: %w", err)
	}

	slog.InfoContext(ctx, "Work log saved",
		"id", id,
		"person_id", wl.PersonID,
		"activity_id", wl.ActivityID,
		"duration_minutes", wl.DurationMinutes,
		"earnings", wl.Earnings,
		"deduction", wl.Deduction)

	return id, nil
}

// GetWorkLog fetches one work log by id.
func (r *SQLiteRepository) GetWorkLog(ctx context.Context, id int64) (core.WorkLog, error) {
	var (
		wl             core.WorkLog
		startMS, endMS int64
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, person_id, activity_id, start_time, end_time, duration_minutes, earnings, deduction
		 FROM work_logs WHERE id = ?`, id).
		Scan(&wl.ID, &wl.PersonID, &wl.ActivityID, &startMS, &endMS,
			&wl.DurationMinutes, &wl.Earnings, &wl.Deduction)
	if errors.Is(err, sql.ErrNoRows) {
		return core.WorkLog{}, ErrNotFound
	}
	if err != nil {
		return core.WorkLog{}, fmt.Errorf("get work log %d: %w", id, err)
	}
	wl.StartTime = time.UnixMilli(startMS)
	wl.EndTime = time.UnixMilli(endMS)
	return wl, nil
}

// ListWorkLogs returns up to limit work logs, most recent first.
func (r *SQLiteRepository) ListWorkLogs(ctx context.Context, limit int) ([]core.WorkLog, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, person_id, activity_id, start_time, end_time, duration_minutes, earnings, deduction
		 FROM work_logs ORDER BY end_time DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list work logs: %w", err)
	}
	defer rows.Close()

	var logs []core.WorkLog
	for rows.Next() {
		var (
			wl             core.WorkLog
			startMS, endMS int64
		)
		if err := rows.Scan(&wl.ID, &wl.PersonID, &wl.ActivityID, &startMS, &endMS,
			&wl.DurationMinutes, &wl.Earnings, &wl.Deduction); err != nil {
			return nil, fmt.Errorf("scan work log: %w", err)
		}
		wl.StartTime = time.UnixMilli(startMS)
		wl.EndTime = time.UnixMilli(endMS)
		logs = append(logs, wl)
	}
	return logs, rows.Err()
}

// SummarizeWorkLogs aggregates settled sessions whose end time falls
// in [from, to).
func (r *SQLiteRepository) SummarizeWorkLogs(ctx context.Context, from, to time.Time) (core.WorkSummary, error) {
	var s core.WorkSummary
	err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(duration_minutes), 0), COALESCE(SUM(earnings), 0), COALESCE(SUM(deduction), 0)
		 FROM work_logs WHERE end_time >= ? AND end_time < ?`,
		from.UnixMilli(), to.UnixMilli()).
		Scan(&s.WorkTimeMinutes, &s.Earnings, &s.Deduction)
	if err != nil {
		return core.WorkSummary{}, fmt.Errorf("summarize work logs: %w", err)
	}
	return s, nil
}

// AppendTransaction persists a ledger transaction under its
// ledger-assigned id.
func (r *SQLiteRepository) AppendTransaction(ctx context.Context, tx core.Transaction) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO transactions
		 (id, amount, currency, description, type, category, date, offset_by_earnings)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		tx.ID, tx.Amount, string(tx.Currency), tx.Description, string(tx.Type),
		tx.Category, tx.Date.UnixMilli(), tx.OffsetByEarnings)
	if err != nil {
		return fmt.Errorf("append transaction: %w", err)
	}
	return nil
}

// SaveLedgerState persists balances, fund and debts from a snapshot.
// Transactions are appended separately; they are immutable history.
func (r *SQLiteRepository) SaveLedgerState(ctx context.Context, s ledger.Snapshot) error {
	dbtx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin ledger save: %w", err)
	}
	defer dbtx.Rollback()

	_, err = dbtx.ExecContext(ctx,
		`UPDATE ledger_state SET balance_czk = ?, balance_eur = ?, balance_usd = ?, deduction_fund = ? WHERE id = 1`,
		s.Balances[core.CZK], s.Balances[core.EUR], s.Balances[core.USD], s.DeductionFund)
	if err != nil {
		return fmt.Errorf("save balances: %w", err)
	}

	for _, d := range s.Debts {
		_, err = dbtx.ExecContext(ctx,
			`INSERT INTO debts (id, name, total_amount, paid_amount, active)
			 VALUES (?, ?, ?, ?, ?)
			 ON CONFLICT(id) DO UPDATE SET
			   name = excluded.name,
			   total_amount = excluded.total_amount,
			   paid_amount = excluded.paid_amount,
			   active = excluded.active`,
			d.ID, d.Name, d.TotalAmount, d.PaidAmount, boolToInt(d.Active))
		if err != nil {
			return fmt.Errorf("save debt %d: %w", d.ID, err)
		}
	}

	if err := dbtx.Commit(); err != nil {
		return fmt.Errorf("commit ledger save: %w", err)
	}
	return nil
}

// LoadLedgerState rebuilds a ledger snapshot from the database.
func (r *SQLiteRepository) LoadLedgerState(ctx context.Context) (ledger.Snapshot, error) {
	s := ledger.Snapshot{Balances: make(map[core.Currency]int64, 3)}

	var czk, eur, usd int64
	err := r.db.QueryRowContext(ctx,
		`SELECT balance_czk, balance_eur, balance_usd, deduction_fund FROM ledger_state WHERE id = 1`).
		Scan(&czk, &eur, &usd, &s.DeductionFund)
	if err != nil {
		return ledger.Snapshot{}, fmt.Errorf("load balances: %w", err)
	}
	s.Balances[core.CZK] = czk
	s.Balances[core.EUR] = eur
	s.Balances[core.USD] = usd

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, total_amount, paid_amount, active FROM debts ORDER BY id`)
	if err != nil {
		return ledger.Snapshot{}, fmt.Errorf("load debts: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			d      core.Debt
			active int64
		)
		if err := rows.Scan(&d.ID, &d.Name, &d.TotalAmount, &d.PaidAmount, &active); err != nil {
			return ledger.Snapshot{}, fmt.Errorf("scan debt: %w", err)
		}
		d.Active = active != 0
		s.Debts = append(s.Debts, d)
	}
	if err := rows.Err(); err != nil {
		return ledger.Snapshot{}, err
	}

	txRows, err := r.db.QueryContext(ctx,
		`SELECT id, amount, currency, description, type, category, date, offset_by_earnings
		 FROM transactions ORDER BY date DESC, id DESC`)
	if err != nil {
		return ledger.Snapshot{}, fmt.Errorf("load transactions: %w", err)
	}
	defer txRows.Close()
	for txRows.Next() {
		var (
			tx             core.Transaction
			currency, kind string
			dateMS         int64
		)
		if err := txRows.Scan(&tx.ID, &tx.Amount, &currency, &tx.Description, &kind,
			&tx.Category, &dateMS, &tx.OffsetByEarnings); err != nil {
			return ledger.Snapshot{}, fmt.Errorf("scan transaction: %w", err)
		}
		tx.Currency = core.Currency(currency)
		tx.Type = core.TransactionType(kind)
		tx.Date = time.UnixMilli(dateMS)
		s.Transactions = append(s.Transactions, tx)
	}
	return s, txRows.Err()
}

// SaveTimerState persists the engine snapshot so a restart resumes
// the session.
func (r *SQLiteRepository) SaveTimerState(ctx context.Context, s timer.State) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO timer_state (id, person_id, activity_id, status, started_at_unix_ms, accumulated_seconds)
		 VALUES (1, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   person_id = excluded.person_id,
		   activity_id = excluded.activity_id,
		   status = excluded.status,
		   started_at_unix_ms = excluded.started_at_unix_ms,
		   accumulated_seconds = excluded.accumulated_seconds`,
		s.PersonID, s.ActivityID, string(s.Status), s.StartedAtUnixMilli, s.AccumulatedSeconds)
	if err != nil {
		return fmt.Errorf("save timer state: %w", err)
	}
	return nil
}

// LoadTimerState restores the engine snapshot; ErrNotFound when no
// session was ever persisted.
func (r *SQLiteRepository) LoadTimerState(ctx context.Context) (timer.State, error) {
	var (
		s      timer.State
		status string
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT person_id, activity_id, status, started_at_unix_ms, accumulated_seconds FROM timer_state WHERE id = 1`).
		Scan(&s.PersonID, &s.ActivityID, &status, &s.StartedAtUnixMilli, &s.AccumulatedSeconds)
	if errors.Is(err, sql.ErrNoRows) {
		return timer.State{}, ErrNotFound
	}
	if err != nil {
		return timer.State{}, fmt.Errorf("load timer state: %w", err)
	}
	s.Status = core.TimerStatus(status)
	return s, nil
}

// ArchiveWorkLog mirrors a settled work log into the archive table.
// Re-delivered messages are tolerated: archiving the same log twice
// leaves a single row.
func (r *SQLiteRepository) ArchiveWorkLog(ctx context.Context, wl core.WorkLog) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO work_log_archive
		 (work_log_id, person_id, activity_id, duration_minutes, earnings, deduction, archived_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(work_log_id) DO NOTHING`,
		wl.ID, wl.PersonID, wl.ActivityID, wl.DurationMinutes, wl.Earnings, wl.Deduction,
		time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("archive work log %d: %w", wl.ID, err)
	}
	return nil
}

// ListUnarchivedWorkLogs returns up to limit work logs that have no
// archive row yet, oldest first.
func (r *SQLiteRepository) ListUnarchivedWorkLogs(ctx context.Context, limit int) ([]core.WorkLog, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT w.id, w.person_id, w.activity_id, w.start_time, w.end_time, w.duration_minutes, w.earnings, w.deduction
		 FROM work_logs w
		 LEFT JOIN work_log_archive a ON a.work_log_id = w.id
		 WHERE a.work_log_id IS NULL
		 ORDER BY w.id ASC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list unarchived work logs: %w", err)
	}
	defer rows.Close()

	var logs []core.WorkLog
	for rows.Next() {
		var (
			wl             core.WorkLog
			startMS, endMS int64
		)
		if err := rows.Scan(&wl.ID, &wl.PersonID, &wl.ActivityID, &startMS, &endMS,
			&wl.DurationMinutes, &wl.Earnings, &wl.Deduction); err != nil {
			return nil, fmt.Errorf("scan work log: %w", err)
		}
		wl.StartTime = time.UnixMilli(startMS)
		wl.EndTime = time.UnixMilli(endMS)
		logs = append(logs, wl)
	}
	return logs, rows.Err()
}

func boolToInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
