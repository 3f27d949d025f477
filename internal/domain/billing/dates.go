package billing

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the calendar date format used on the wire and in config
const DateLayout = "2006-01-02"

// DateOf truncates t to its calendar day, expressed at midnight UTC.
// The day is taken in t's own location, so a local 23:30 stays on the same date.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysBetween returns the whole calendar days from a to b (negative if b is earlier)
func DaysBetween(a, b time.Time) int {
	return int(DateOf(b).Sub(DateOf(a)).Hours() / 24)
}

// FormatDate renders a calendar date as YYYY-MM-DD
func FormatDate(t time.Time) string {
	return DateOf(t).Format(DateLayout)
}

// ParseDate parses YYYY-MM-DD, also accepting an RFC3339 timestamp whose date part is kept.
// A failure is an INVALID_DATE_RANGE error naming field.
func ParseDate(field, value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, dateRangeError(field, "Date is required")
	}
	if t, err := time.Parse(DateLayout, value); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return DateOf(t), nil
	}
	return time.Time{}, dateRangeError(field, fmt.Sprintf("Date %q is not in YYYY-MM-DD format", value))
}

// InvoiceDates is the set of dates that must be coherent on an invoice
type InvoiceDates struct {
	IssueDate   time.Time
	DueDate     time.Time
	PeriodStart time.Time
	PeriodEnd   time.Time
}

// ValidateDates rejects a due date on or before the issue date and
// a billing period that ends on or before it starts.
func ValidateDates(issueDate, dueDate, periodStart, periodEnd time.Time) error {
	if !DateOf(dueDate).After(DateOf(issueDate)) {
		return dateRangeError("due_date", "Due date must be after the issue date")
	}
	if !DateOf(periodEnd).After(DateOf(periodStart)) {
		return dateRangeError("period_end", "Billing period end must be after its start")
	}
	return nil
}

// Validate applies ValidateDates to the set
func (d InvoiceDates) Validate() error {
	return ValidateDates(d.IssueDate, d.DueDate, d.PeriodStart, d.PeriodEnd)
}

// ParseInvoiceDates parses the four date strings and validates them together
func ParseInvoiceDates(issueDate, dueDate, periodStart, periodEnd string) (InvoiceDates, error) {
	var d InvoiceDates
	var err error
	if d.IssueDate, err = ParseDate("issue_date", issueDate); err != nil {
		return InvoiceDates{}, err
	}
	if d.DueDate, err = ParseDate("due_date", dueDate); err != nil {
		return InvoiceDates{}, err
	}
	if d.PeriodStart, err = ParseDate("period_start", periodStart); err != nil {
		return InvoiceDates{}, err
	}
	if d.PeriodEnd, err = ParseDate("period_end", periodEnd); err != nil {
		return InvoiceDates{}, err
	}
	if err := d.Validate(); err != nil {
		return InvoiceDates{}, err
	}
	return d, nil
}
