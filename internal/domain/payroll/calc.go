package payroll

import (
	"math"
	"time"
)

type InputLine struct {
	Type   string  `json:"type"`
	Label  string  `json:"label"`
	Amount float64 `json:"amount"`
}

// ComputePayroll adds earnings to the base pay and subtracts deductions.
// Lines of any other type are ignored. Results are rounded to cents.
func ComputePayroll(basePay float64, inputs []InputLine) (gross, deductions, net float64) {
	gross = basePay
	for _, input := range inputs {
		switch input.Type {
		case LineEarning:
			gross += input.Amount
		case LineDeduction:
			deductions += input.Amount
		}
	}
	gross, deductions = roundCents(gross), roundCents(deductions)
	return gross, deductions, roundCents(gross - deductions)
}

// MonthlyPay converts an annual salary into one month's pay.
func MonthlyPay(annual float64) float64 {
	return roundCents(annual / 12)
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}

// monthRange returns the first day of the month and the first day of the next.
func monthRange(year, month int) (time.Time, time.Time) {
	start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 1, 0)
}

// deductionApplies reports whether d is charged in the month starting at start.
func deductionApplies(d Deduction, start, next time.Time) bool {
	if !d.StartDate.Before(next) {
		return false
	}
	if d.EndDate != nil && d.EndDate.Before(start) {
		return false
	}
	if !d.Recurring {
		return !d.StartDate.Before(start)
	}
	return true
}
