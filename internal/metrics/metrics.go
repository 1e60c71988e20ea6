// Package metrics exposes Prometheus collectors for the timer and
// ledger domains. Collectors register themselves via promauto; the
// HTTP layer serves them on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SessionsSettled = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pichacka_sessions_settled_total",
		Help: "Timer sessions settled into work logs",
	})

	SessionsSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pichacka_sessions_skipped_total",
		Help: "Timer stops discarded for zero duration",
	})

	EarningsSettled = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pichacka_earnings_settled_czk_total",
		Help: "Total earnings written to work logs, in CZK",
	})

	Transactions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pichacka_transactions_total",
		Help: "Ledger transactions recorded, labeled by type and currency",
	}, []string{"type", "currency"})

	DebtPayments = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pichacka_debt_payments_total",
		Help: "Debt payments applied from the deduction fund",
	})

	DeductionFund = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pichacka_deduction_fund_czk",
		Help: "Current deduction fund balance, in CZK",
	})

	WorkLogsArchived = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pichacka_work_logs_archived_total",
		Help: "Work logs mirrored into the archive by the worker",
	})
)
