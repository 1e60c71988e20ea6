// Package core holds the domain model and the settlement calculator:
// the pure functions that turn elapsed time into earnings and
// deductions, and the CZK income-offset policy.
package core

import (
	"fmt"
	"math"
)

// Earnings converts a worked duration into whole currency units:
// round(durationMinutes/60 * hourlyRate). Rounding is half away from
// zero and must stay consistent with Deduction.
func Earnings(durationMinutes float64, hourlyRate int64) int64 {
	return int64(math.Round(durationMinutes / 60 * float64(hourlyRate)))
}

// Deduction returns the portion of earnings withheld into the
// deduction fund: round(earnings * deductionRate).
func Deduction(earnings int64, deductionRate float64) int64 {
	return int64(math.Round(float64(earnings) * deductionRate))
}

// ProcessIncomeOffset applies the CZK income-offset rule. Cash earned
// during the day is assumed already in hand, so a same-day CZK income
// declaration is netted against it before crediting the balance.
//
// Only CZK incomes are offset; for anything else offset is 0 and the
// full amount is credited. Always: offset + net == amount, and
// 0 <= offset <= min(amount, sameDayEarnings).
func ProcessIncomeOffset(amount int64, currency Currency, txType TransactionType, sameDayEarnings int64) (offset, net int64) {
	if currency != CZK || txType != Income || sameDayEarnings <= 0 || amount <= 0 {
		return 0, amount
	}
	offset = amount
	if sameDayEarnings < offset {
		offset = sameDayEarnings
	}
	return offset, amount - offset
}

// RentCoverageOf splits the deduction fund: rent is covered first,
// anything left is available for debt payments.
func RentCoverageOf(fund, rentTarget int64) RentCoverage {
	remaining := fund - rentTarget
	if remaining < 0 {
		return RentCoverage{
			RentCovered:  false,
			RentShortage: -remaining,
		}
	}
	return RentCoverage{
		RentCovered:       true,
		AvailableForDebts: remaining,
	}
}

// FormatElapsed renders total seconds as zero-padded HH:MM:SS with
// unbounded hours.
func FormatElapsed(totalSeconds int64) string {
	if totalSeconds < 0 {
		totalSeconds = 0
	}
	hours := totalSeconds / 3600
	minutes := (totalSeconds % 3600) / 60
	seconds := totalSeconds % 60
	return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, seconds)
}

// FormatDuration renders fractional minutes as "Hh MMm". Rounding
// happens once on the total so the carry propagates into the hours.
func FormatDuration(minutes float64) string {
	total := int64(math.Round(minutes))
	if total < 0 {
		total = 0
	}
	return fmt.Sprintf("%dh %02dm", total/60, total%60)
}
