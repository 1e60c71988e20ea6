package core

import (
	"errors"
	"strings"
	"time"
)

const (
	StatusStopped TimerStatus = "stopped"
	StatusRunning TimerStatus = "running"
	StatusPaused  TimerStatus = "paused"
)

const (
	CZK Currency = "CZK"
	EUR Currency = "EUR"
	USD Currency = "USD"
)

const (
	Income  TransactionType = "income"
	Expense TransactionType = "expense"
)

type (
	TimerStatus string

	Currency string

	TransactionType string

	// Person is a rate profile for the timer. DeductionRate is a
	// fraction in [0,1] of earnings withheld into the deduction fund.
	Person struct {
		ID            int64
		Name          string
		Initials      string
		HourlyRate    int64
		DeductionRate float64
	}

	// Activity is a category label for a work session.
	Activity struct {
		ID    int64
		Name  string
		Color string
	}

	// WorkLog is one settled timer session.
	WorkLog struct {
		ID              int64
		PersonID        int64
		ActivityID      int64
		StartTime       time.Time
		EndTime         time.Time
		DurationMinutes float64
		Earnings        int64
		Deduction       int64
	}

	// Transaction is one entry in the append-only finance ledger.
	// OffsetByEarnings is non-zero only for CZK incomes that were
	// netted against same-day timer earnings.
	Transaction struct {
		ID               int64
		Amount           int64
		Currency         Currency
		Description      string
		Type             TransactionType
		Category         string
		Date             time.Time
		OffsetByEarnings int64
	}

	// Debt tracks a loan repaid from the deduction fund.
	Debt struct {
		ID          int64
		Name        string
		TotalAmount int64
		PaidAmount  int64
		Active      bool
	}

	// SettlementResult is what the timer engine hands back on stop.
	// DurationMinutes is fractional, not floored.
	SettlementResult struct {
		ElapsedSeconds  int64
		DurationMinutes float64
		PersonID        int64
		ActivityID      int64
	}

	// WorkSummary aggregates settled work logs over a period.
	WorkSummary struct {
		WorkTimeMinutes float64
		Earnings        int64
		Deduction       int64
	}

	// RentProgress reports how far the deduction fund has come
	// towards the rent target.
	RentProgress struct {
		Percentage int64
		Current    int64
		Total      int64
		Remaining  int64
	}

	// RentCoverage splits the deduction fund between rent and debts.
	RentCoverage struct {
		RentCovered       bool
		RentShortage      int64
		AvailableForDebts int64
	}
)

var (
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrInvalidCurrency  = errors.New("invalid currency")
	ErrInvalidType      = errors.New("invalid transaction type")
	ErrEmptyDescription = errors.New("empty description")
	ErrEmptyName        = errors.New("empty name")
	ErrUnknownDebt      = errors.New("unknown debt")
	ErrUnknownPerson    = errors.New("unknown person")
)

// Valid reports whether c is one of the supported currencies.
func (c Currency) Valid() bool {
	switch c {
	case CZK, EUR, USD:
		return true
	}
	return false
}

// Valid reports whether t is income or expense.
func (t TransactionType) Valid() bool {
	return t == Income || t == Expense
}

// Billable reports whether the session carries time worth persisting.
// Zero-duration stops must be skipped by the caller.
func (r SettlementResult) Billable() bool {
	return r.DurationMinutes > 0
}

// Remaining returns the unpaid portion of the debt.
func (d Debt) Remaining() int64 {
	return d.TotalAmount - d.PaidAmount
}

func (t Transaction) Validate() error {
	if t.Amount <= 0 {
		return ErrInvalidAmount
	}
	if !t.Currency.Valid() {
		return ErrInvalidCurrency
	}
	if !t.Type.Valid() {
		return ErrInvalidType
	}
	if len(strings.TrimSpace(t.Description)) == 0 {
		return ErrEmptyDescription
	}
	if len(t.Description) > 200 {
		return errors.New("description too long (max 200 characters)")
	}
	return nil
}

func (d Debt) Validate() error {
	if len(strings.TrimSpace(d.Name)) == 0 {
		return ErrEmptyName
	}
	if d.TotalAmount <= 0 {
		return ErrInvalidAmount
	}
	if d.PaidAmount < 0 || d.PaidAmount > d.TotalAmount {
		return errors.New("paid amount out of range")
	}
	return nil
}
