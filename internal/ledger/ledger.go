// Package ledger holds the in-memory financial aggregate: per-currency
// balances, the deduction fund, debts and the append-only transaction
// history. Every mutation runs under a single mutex so read-modify-write
// sequences like debt payments never see a stale fund balance.
package ledger

import (
	"math"
	"sync"

	"github.com/Martyparty1988/PichackaTracker/internal/clock"
	"github.com/Martyparty1988/PichackaTracker/internal/core"
)

// Snapshot is the persistable view of the aggregate. The caller is
// responsible for saving it after each mutation.
type Snapshot struct {
	Balances      map[core.Currency]int64
	DeductionFund int64
	Debts         []core.Debt
	Transactions  []core.Transaction
}

// Ledger is the mutable aggregate. Not safe to copy; share by pointer.
type Ledger struct {
	mu    sync.Mutex
	clock clock.Clock

	balances      map[core.Currency]int64
	deductionFund int64
	debts         []core.Debt
	transactions  []core.Transaction // newest first

	nextTxID   int64
	nextDebtID int64
}

// New creates an empty ledger.
func New(clk clock.Clock) *Ledger {
	return &Ledger{
		clock:      clk,
		balances:   map[core.Currency]int64{core.CZK: 0, core.EUR: 0, core.USD: 0},
		nextTxID:   1,
		nextDebtID: 1,
	}
}

// NewFromSnapshot restores a ledger from persisted state.
func NewFromSnapshot(clk clock.Clock, s Snapshot) *Ledger {
	l := New(clk)
	for c, v := range s.Balances {
		l.balances[c] = v
	}
	l.deductionFund = s.DeductionFund
	l.debts = append(l.debts, s.Debts...)
	l.transactions = append(l.transactions, s.Transactions...)
	for _, tx := range s.Transactions {
		if tx.ID >= l.nextTxID {
			l.nextTxID = tx.ID + 1
		}
	}
	for _, d := range s.Debts {
		if d.ID >= l.nextDebtID {
			l.nextDebtID = d.ID + 1
		}
	}
	return l
}

// AddIncome records an income transaction. For CZK the declared amount
// is first netted against same-day timer earnings (the offset rule);
// the balance is credited with the net amount and the offset portion
// is routed into the deduction fund.
func (l *Ledger) AddIncome(amount int64, currency core.Currency, description string, sameDayEarnings int64, category string) (core.Transaction, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	tx := core.Transaction{
		Amount:      amount,
		Currency:    currency,
		Description: description,
		Type:        core.Income,
		Category:    category,
		Date:        l.clock.Now(),
	}
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, err
	}

	offset, net := core.ProcessIncomeOffset(amount, currency, core.Income, sameDayEarnings)
	tx.OffsetByEarnings = offset

	tx.ID = l.nextTxID
	l.nextTxID++

	l.balances[currency] += net
	l.deductionFund += offset
	l.transactions = append([]core.Transaction{tx}, l.transactions...)

	return tx, nil
}

// AddExpense records an expense and debits the balance unconditionally.
// Balances may go negative; there is no overdraft protection.
func (l *Ledger) AddExpense(amount int64, currency core.Currency, description string, category string) (core.Transaction, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	tx := core.Transaction{
		Amount:      amount,
		Currency:    currency,
		Description: description,
		Type:        core.Expense,
		Category:    category,
		Date:        l.clock.Now(),
	}
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, err
	}

	tx.ID = l.nextTxID
	l.nextTxID++

	l.balances[currency] -= amount
	l.transactions = append([]core.Transaction{tx}, l.transactions...)

	return tx, nil
}

// CreditDeductionFund adds a settled session's deduction to the fund.
func (l *Ledger) CreditDeductionFund(amount int64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if amount <= 0 {
		return
	}
	l.deductionFund += amount
}

// AddDebt registers a new debt with nothing paid yet.
func (l *Ledger) AddDebt(name string, totalAmount int64) (core.Debt, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	d := core.Debt{
		Name:        name,
		TotalAmount: totalAmount,
		Active:      true,
	}
	if err := d.Validate(); err != nil {
		return core.Debt{}, err
	}

	d.ID = l.nextDebtID
	l.nextDebtID++
	l.debts = append(l.debts, d)

	return d, nil
}

// ApplyDebtPayment pays a debt from the deduction fund. The applied
// amount is clamped to min(requested, remaining, fund); asking for
// more than is available is not an error. The debt and the fund are
// updated in one atomic step.
func (l *Ledger) ApplyDebtPayment(debtID, requestedAmount int64) (int64, core.Debt, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	idx := -1
	for i := range l.debts {
		if l.debts[i].ID == debtID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return 0, core.Debt{}, core.ErrUnknownDebt
	}

	debt := l.debts[idx]
	actual := requestedAmount
	if remaining := debt.Remaining(); remaining < actual {
		actual = remaining
	}
	if l.deductionFund < actual {
		actual = l.deductionFund
	}
	if actual <= 0 {
		return 0, debt, nil
	}

	debt.PaidAmount += actual
	debt.Active = debt.PaidAmount < debt.TotalAmount
	l.debts[idx] = debt
	l.deductionFund -= actual

	return actual, debt, nil
}

// RentProgress reports the deduction fund against the rent target.
func (l *Ledger) RentProgress(rentTarget int64) core.RentProgress {
	l.mu.Lock()
	defer l.mu.Unlock()

	p := core.RentProgress{
		Current: l.deductionFund,
		Total:   rentTarget,
	}
	if rentTarget > 0 {
		pct := int64(math.Round(float64(l.deductionFund) / float64(rentTarget) * 100))
		if pct > 100 {
			pct = 100
		}
		p.Percentage = pct
	}
	if rem := rentTarget - l.deductionFund; rem > 0 {
		p.Remaining = rem
	}
	return p
}

// Balance returns the balance for one currency.
func (l *Ledger) Balance(c core.Currency) int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balances[c]
}

// Balances returns a copy of all currency balances.
func (l *Ledger) Balances() map[core.Currency]int64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make(map[core.Currency]int64, len(l.balances))
	for c, v := range l.balances {
		out[c] = v
	}
	return out
}

// DeductionFund returns the current fund balance.
func (l *Ledger) DeductionFund() int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.deductionFund
}

// Debt looks up one debt by id.
func (l *Ledger) Debt(id int64) (core.Debt, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, d := range l.debts {
		if d.ID == id {
			return d, true
		}
	}
	return core.Debt{}, false
}

// Debts returns a copy of all debts.
func (l *Ledger) Debts() []core.Debt {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]core.Debt, len(l.debts))
	copy(out, l.debts)
	return out
}

// Transactions returns up to limit transactions, newest first.
// limit <= 0 returns everything.
func (l *Ledger) Transactions(limit int) []core.Transaction {
	l.mu.Lock()
	defer l.mu.Unlock()

	n := len(l.transactions)
	if limit > 0 && limit < n {
		n = limit
	}
	out := make([]core.Transaction, n)
	copy(out, l.transactions[:n])
	return out
}

// Snapshot captures the aggregate for persistence.
func (l *Ledger) Snapshot() Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()

	s := Snapshot{
		Balances:      make(map[core.Currency]int64, len(l.balances)),
		DeductionFund: l.deductionFund,
		Debts:         make([]core.Debt, len(l.debts)),
		Transactions:  make([]core.Transaction, len(l.transactions)),
	}
	for c, v := range l.balances {
		s.Balances[c] = v
	}
	copy(s.Debts, l.debts)
	copy(s.Transactions, l.transactions)
	return s
}
