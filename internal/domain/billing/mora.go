package billing

import (
	"time"

	"github.com/agualoti/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// DefaultMoraRate is the monthly late-fee rate (7%)
var DefaultMoraRate = decimal.RequireFromString("0.07")

// DefaultMoraPeriodDays is the length of one accrual bucket
const DefaultMoraPeriodDays = 30

// MoraPolicy describes how late fees accrue on an unpaid invoice.
// A fee of MonthlyRate is charged per elapsed PeriodDays bucket, floored,
// with a minimum of one bucket from the first day overdue.
type MoraPolicy struct {
	MonthlyRate decimal.Decimal `json:"monthly_rate"`
	PeriodDays  int             `json:"period_days"`
}

// DefaultMoraPolicy returns the 7% per 30 days policy
func DefaultMoraPolicy() MoraPolicy {
	return MoraPolicy{
		MonthlyRate: DefaultMoraRate,
		PeriodDays:  DefaultMoraPeriodDays,
	}
}

// Validate checks the policy values
func (p MoraPolicy) Validate() error {
	if p.MonthlyRate.IsNegative() {
		return shared.NewFieldError(CodeInvalidTariff, "mora_rate", "Mora rate cannot be negative")
	}
	if p.PeriodDays <= 0 {
		return shared.NewFieldError(CodeInvalidTariff, "mora_period_days", "Mora period must be at least one day")
	}
	return nil
}

// LateFeeAssessment is the mora owed on an invoice at a given evaluation date
type LateFeeAssessment struct {
	EvaluatedOn      time.Time       `json:"evaluated_on"`
	DaysOverdue      int             `json:"days_overdue"`
	MonthsOverdue    int             `json:"months_overdue"`
	LateFee          decimal.Decimal `json:"late_fee"`
	TotalWithLateFee decimal.Decimal `json:"total_with_late_fee"`
}

// IsOverdue reports whether any day has elapsed past the due date
func (a LateFeeAssessment) IsOverdue() bool {
	return a.DaysOverdue > 0
}

// Accrue computes the late fee on totalAmount at evaluationDate.
// Paid and voided invoices, and evaluations on or before the due date, accrue nothing.
// Accrue never mutates anything and returns the same result for the same inputs.
func (p MoraPolicy) Accrue(dueDate, evaluationDate time.Time, totalAmount decimal.Decimal, status InvoiceStatus) LateFeeAssessment {
	assessment := LateFeeAssessment{
		EvaluatedOn:      DateOf(evaluationDate),
		LateFee:          decimal.Zero,
		TotalWithLateFee: totalAmount,
	}

	if status.IsTerminal() {
		return assessment
	}

	days := DaysBetween(dueDate, evaluationDate)
	if days <= 0 {
		return assessment
	}

	periodDays := p.PeriodDays
	if periodDays <= 0 {
		periodDays = DefaultMoraPeriodDays
	}
	months := days / periodDays
	if months < 1 {
		months = 1
	}

	lateFee := totalAmount.Mul(p.MonthlyRate).Mul(decimal.NewFromInt(int64(months))).Round(2)

	assessment.DaysOverdue = days
	assessment.MonthsOverdue = months
	assessment.LateFee = lateFee
	assessment.TotalWithLateFee = totalAmount.Add(lateFee)
	return assessment
}
