package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Martyparty1988/PichackaTracker/internal/clock"
	"github.com/Martyparty1988/PichackaTracker/internal/core"
	"github.com/Martyparty1988/PichackaTracker/internal/ledger"
	"github.com/Martyparty1988/PichackaTracker/internal/metrics"
)

// FinanceStore is the persistence surface the finance service needs.
// *storage.SQLiteRepository satisfies it.
type FinanceStore interface {
	AppendTransaction(ctx context.Context, tx core.Transaction) error
	SaveLedgerState(ctx context.Context, s ledger.Snapshot) error
	SummarizeWorkLogs(ctx context.Context, from, to time.Time) (core.WorkSummary, error)
}

// FinanceOverview bundles balances and recent transactions for display.
type FinanceOverview struct {
	BalanceCZK    int64              `json:"balanceCZK"`
	BalanceEUR    int64              `json:"balanceEUR"`
	BalanceUSD    int64              `json:"balanceUSD"`
	DeductionFund int64              `json:"deductionFund"`
	Transactions  []core.Transaction `json:"transactions"`
}

// RentView joins fund progress with the rent coverage split.
type RentView struct {
	Progress core.RentProgress `json:"progress"`
	Coverage core.RentCoverage `json:"coverage"`
}

// FinanceService applies income, expense and debt operations to the
// ledger aggregate and persists after every mutation.
type FinanceService struct {
	ledger     *ledger.Ledger
	store      FinanceStore
	clock      clock.Clock
	rentTarget int64
}

func NewFinanceService(lgr *ledger.Ledger, store FinanceStore, clk clock.Clock, rentTarget int64) *FinanceService {
	return &FinanceService{
		ledger:     lgr,
		store:      store,
		clock:      clk,
		rentTarget: rentTarget,
	}
}

// RecordIncome declares an income. CZK incomes are netted against
// today's settled timer earnings before crediting the balance; the
// offset portion goes to the deduction fund.
func (f *FinanceService) RecordIncome(ctx context.Context, amount int64, currency core.Currency, description, category string) (core.Transaction, error) {
	var sameDayEarnings int64
	if currency == core.CZK {
		from, to := dayBounds(f.clock.Now())
		summary, err := f.store.SummarizeWorkLogs(ctx, from, to)
		if err != nil {
			// Offset degrades to zero rather than blocking the income.
			slog.ErrorContext(ctx, "Failed to read same-day earnings", "error", err)
		} else {
			sameDayEarnings = summary.Earnings
		}
	}

	tx, err := f.ledger.AddIncome(amount, currency, description, sameDayEarnings, category)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("add income: %w", err)
	}
	f.persist(ctx, tx)

	metrics.Transactions.WithLabelValues(string(core.Income), string(currency)).Inc()
	metrics.DeductionFund.Set(float64(f.ledger.DeductionFund()))

	slog.InfoContext(ctx, "Income recorded",
		"amount", tx.Amount,
		"currency", tx.Currency,
		"offset_by_earnings", tx.OffsetByEarnings)

	return tx, nil
}

// RecordExpense declares an expense. The balance is debited
// unconditionally and may go negative.
func (f *FinanceService) RecordExpense(ctx context.Context, amount int64, currency core.Currency, description, category string) (core.Transaction, error) {
	tx, err := f.ledger.AddExpense(amount, currency, description, category)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("add expense: %w", err)
	}
	f.persist(ctx, tx)

	metrics.Transactions.WithLabelValues(string(core.Expense), string(currency)).Inc()

	slog.InfoContext(ctx, "Expense recorded",
		"amount", tx.Amount,
		"currency", tx.Currency)

	return tx, nil
}

// CreateDebt registers a new debt.
func (f *FinanceService) CreateDebt(ctx context.Context, name string, totalAmount int64) (core.Debt, error) {
	debt, err := f.ledger.AddDebt(name, totalAmount)
	if err != nil {
		return core.Debt{}, fmt.Errorf("add debt: %w", err)
	}
	if err := f.store.SaveLedgerState(ctx, f.ledger.Snapshot()); err != nil {
		slog.ErrorContext(ctx, "Failed to persist ledger", "error", err)
	}
	slog.InfoContext(ctx, "Debt created", "debt_id", debt.ID, "amount", debt.TotalAmount)
	return debt, nil
}

// PayDebt pays a debt from the deduction fund, clamped to what the
// debt and the fund allow. Returns the amount actually applied.
func (f *FinanceService) PayDebt(ctx context.Context, debtID, amount int64) (int64, core.Debt, error) {
	applied, debt, err := f.ledger.ApplyDebtPayment(debtID, amount)
	if err != nil {
		return 0, core.Debt{}, fmt.Errorf("apply debt payment: %w", err)
	}
	if applied > 0 {
		if err := f.store.SaveLedgerState(ctx, f.ledger.Snapshot()); err != nil {
			slog.ErrorContext(ctx, "Failed to persist ledger", "error", err)
		}
		metrics.DebtPayments.Inc()
		metrics.DeductionFund.Set(float64(f.ledger.DeductionFund()))
	}

	slog.InfoContext(ctx, "Debt payment applied",
		"debt_id", debtID,
		"amount", applied,
		"deduction_fund", f.ledger.DeductionFund())

	return applied, debt, nil
}

// Overview returns balances and up to limit recent transactions.
func (f *FinanceService) Overview(limit int) FinanceOverview {
	balances := f.ledger.Balances()
	return FinanceOverview{
		BalanceCZK:    balances[core.CZK],
		BalanceEUR:    balances[core.EUR],
		BalanceUSD:    balances[core.USD],
		DeductionFund: f.ledger.DeductionFund(),
		Transactions:  f.ledger.Transactions(limit),
	}
}

// Debts returns all registered debts.
func (f *FinanceService) Debts() []core.Debt {
	return f.ledger.Debts()
}

// Rent reports deduction-fund progress against the rent target.
func (f *FinanceService) Rent() RentView {
	return RentView{
		Progress: f.ledger.RentProgress(f.rentTarget),
		Coverage: core.RentCoverageOf(f.ledger.DeductionFund(), f.rentTarget),
	}
}

// persist appends the transaction and saves the aggregate. Failures
// are logged; the in-memory ledger stays authoritative.
func (f *FinanceService) persist(ctx context.Context, tx core.Transaction) {
	if err := f.store.AppendTransaction(ctx, tx); err != nil {
		slog.ErrorContext(ctx, "Failed to append transaction", "error", err, "id", tx.ID)
	}
	if err := f.store.SaveLedgerState(ctx, f.ledger.Snapshot()); err != nil {
		slog.ErrorContext(ctx, "Failed to persist ledger", "error", err)
	}
}

// dayBounds returns the local-midnight bounds of the day containing t.
func dayBounds(t time.Time) (from, to time.Time) {
	year, month, day := t.Date()
	from = time.Date(year, month, day, 0, 0, 0, 0, t.Location())
	return from, from.AddDate(0, 0, 1)
}
