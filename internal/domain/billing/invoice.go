package billing

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/agualoti/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Audit actions recorded on an invoice
const (
	AuditActionDueDateAmended = "DUE_DATE_AMENDED"
	AuditActionVoided         = "VOIDED"
)

// AuditNote is an append-only record of an administrative change
type AuditNote struct {
	At       time.Time `json:"at"`
	By       uuid.UUID `json:"by"`
	Action   string    `json:"action"`
	Note     string    `json:"note"`
	OldValue string    `json:"old_value,omitempty"`
	NewValue string    `json:"new_value,omitempty"`
}

// AuditNotes implements GORM Scanner/Valuer so notes are stored as a JSON column
type AuditNotes []AuditNote

// Value implements driver.Valuer
func (n AuditNotes) Value() (driver.Value, error) {
	if n == nil {
		return "[]", nil
	}
	b, err := json.Marshal(n)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner
func (n *AuditNotes) Scan(value interface{}) error {
	if value == nil {
		*n = AuditNotes{}
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return errors.New("failed to scan AuditNotes: unsupported type")
	}

	if len(bytes) == 0 {
		*n = AuditNotes{}
		return nil
	}
	return json.Unmarshal(bytes, n)
}

// FormatInvoiceNumber renders a sequence value as PREFIX-000042
func FormatInvoiceNumber(prefix string, seq int64) string {
	return fmt.Sprintf("%s-%06d", prefix, seq)
}

// Invoice is the billing aggregate root. Its pricing breakdown is computed
// once at creation and persisted, so later tariff changes never alter it.
type Invoice struct {
	shared.BaseAggregateRoot
	Number               string
	ClientID             uuid.UUID
	ReadingID            *uuid.UUID
	PeriodStart          time.Time
	PeriodEnd            time.Time
	IssueDate            time.Time
	DueDate              time.Time
	MeterReadingPrevious int64
	MeterReadingCurrent  int64
	Consumption          int64
	BaseFee              decimal.Decimal
	OverageVolume        int64
	OverageCost          decimal.Decimal
	Subtotal             decimal.Decimal
	TotalAmount          decimal.Decimal
	Status               InvoiceStatus
	// SettledLateFee is the mora charged when the invoice was paid in full
	SettledLateFee decimal.Decimal
	CreatedBy      uuid.UUID
	AmendedBy      *uuid.UUID
	AuditNotes     AuditNotes
	PaidAt         *time.Time
	VoidedAt       *time.Time
	VoidReason     string
}

// NewInvoiceParams holds the inputs of NewInvoice.
// A zero DueDate is derived from IssueDate and the engine's due days.
type NewInvoiceParams struct {
	Number          string
	ClientID        uuid.UUID
	ReadingID       *uuid.UUID
	PeriodStart     time.Time
	PeriodEnd       time.Time
	IssueDate       time.Time
	DueDate         time.Time
	ReadingPrevious int64
	ReadingCurrent  int64
	CreatedBy       uuid.UUID
	At              time.Time
}

// NewInvoice validates readings and dates, prices the consumption and
// returns a pending invoice.
func NewInvoice(engine *Engine, p NewInvoiceParams) (*Invoice, error) {
	number := strings.TrimSpace(p.Number)
	if number == "" {
		return nil, shared.NewFieldError("INVALID_INVOICE_NUMBER", "number", "Invoice number cannot be empty")
	}
	if len(number) > 50 {
		return nil, shared.NewFieldError("INVALID_INVOICE_NUMBER", "number", "Invoice number cannot exceed 50 characters")
	}
	if p.ClientID == uuid.Nil {
		return nil, shared.NewFieldError("INVALID_CLIENT", "client_id", "Client ID cannot be empty")
	}

	consumption, err := ConsumptionBetween(p.ReadingPrevious, p.ReadingCurrent)
	if err != nil {
		return nil, err
	}

	dueDate := p.DueDate
	if dueDate.IsZero() {
		dueDate = engine.DeriveDueDate(p.IssueDate)
	}
	if err := engine.ValidateDates(p.IssueDate, dueDate, p.PeriodStart, p.PeriodEnd); err != nil {
		return nil, err
	}

	breakdown, err := engine.PriceTariff(consumption)
	if err != nil {
		return nil, err
	}

	inv := &Invoice{
		BaseAggregateRoot:    shared.NewBaseAggregateRoot(p.At),
		Number:               number,
		ClientID:             p.ClientID,
		ReadingID:            p.ReadingID,
		PeriodStart:          DateOf(p.PeriodStart),
		PeriodEnd:            DateOf(p.PeriodEnd),
		IssueDate:            DateOf(p.IssueDate),
		DueDate:              DateOf(dueDate),
		MeterReadingPrevious: p.ReadingPrevious,
		MeterReadingCurrent:  p.ReadingCurrent,
		Consumption:          breakdown.Consumption,
		BaseFee:              breakdown.BaseFee,
		OverageVolume:        breakdown.OverageVolume,
		OverageCost:          breakdown.OverageCost,
		Subtotal:             breakdown.Subtotal,
		TotalAmount:          breakdown.TotalAmount,
		Status:               InvoiceStatusPending,
		SettledLateFee:       decimal.Zero,
		CreatedBy:            p.CreatedBy,
		AuditNotes:           AuditNotes{},
	}

	inv.AddDomainEvent(NewInvoiceCreatedEvent(inv))

	return inv, nil
}

// Breakdown returns the persisted pricing breakdown
func (inv *Invoice) Breakdown() PricingBreakdown {
	return PricingBreakdown{
		Consumption:   inv.Consumption,
		BaseFee:       inv.BaseFee,
		OverageVolume: inv.OverageVolume,
		OverageCost:   inv.OverageCost,
		Subtotal:      inv.Subtotal,
		TotalAmount:   inv.TotalAmount,
	}
}

// AssessMora computes the late fee owed at evaluationDate without touching the invoice
func (inv *Invoice) AssessMora(engine *Engine, evaluationDate time.Time) LateFeeAssessment {
	return engine.AccrueLateFee(inv.DueDate, evaluationDate, inv.TotalAmount, inv.Status)
}

// StatusAsOf returns the stored status the invoice had at the end of day.
// Payments settle on their payment date; voiding takes effect on the day it happened.
func (inv *Invoice) StatusAsOf(day time.Time) InvoiceStatus {
	end := DateOf(day).AddDate(0, 0, 1)
	switch {
	case inv.Status == InvoiceStatusVoided && inv.VoidedAt != nil && inv.VoidedAt.Before(end):
		return InvoiceStatusVoided
	case inv.Status == InvoiceStatusPaid && inv.PaidAt != nil && inv.PaidAt.Before(end):
		return InvoiceStatusPaid
	default:
		return InvoiceStatusPending
	}
}

// AssessMoraAsOf is AssessMora evaluated against the status held on day,
// so an invoice settled later still shows the mora it owed back then
func (inv *Invoice) AssessMoraAsOf(engine *Engine, day time.Time) LateFeeAssessment {
	return engine.AccrueLateFee(inv.DueDate, day, inv.TotalAmount, inv.StatusAsOf(day))
}

// DisplayStatus returns the user-facing status at evaluationDate
func (inv *Invoice) DisplayStatus(engine *Engine, evaluationDate time.Time) DisplayStatus {
	return DeriveDisplayStatus(inv.Status, inv.AssessMora(engine, evaluationDate))
}

// AmendDueDate moves the due date of a pending invoice. The change and its
// justification are appended to the audit trail.
func (inv *Invoice) AmendDueDate(engine *Engine, newDueDate time.Time, justification string, adminID uuid.UUID, at time.Time) error {
	note, err := engine.ValidateDueDateAmendment(inv.Status, inv.IssueDate, newDueDate, justification)
	if err != nil {
		return err
	}

	oldDueDate := inv.DueDate
	inv.DueDate = DateOf(newDueDate)
	inv.AmendedBy = &adminID
	inv.AuditNotes = append(inv.AuditNotes, AuditNote{
		At:       at,
		By:       adminID,
		Action:   AuditActionDueDateAmended,
		Note:     note,
		OldValue: FormatDate(oldDueDate),
		NewValue: FormatDate(newDueDate),
	})
	inv.Touch(at)

	inv.AddDomainEvent(NewInvoiceDueDateAmendedEvent(inv, oldDueDate, note, adminID, at))

	return nil
}

// Settlement is the outcome of applying a payment to an invoice
type Settlement struct {
	Assessment LateFeeAssessment `json:"assessment"`
	AmountDue  decimal.Decimal   `json:"amount_due"`
	PaidTotal  decimal.Decimal   `json:"paid_total"`
	Remaining  decimal.Decimal   `json:"remaining"`
	Settled    bool              `json:"settled"`
}

// CheckPayable validates that a payment dated paidOn can be applied
func (inv *Invoice) CheckPayable(paidOn time.Time) error {
	if inv.Status.IsTerminal() {
		return shared.NewDomainError(CodeImmutableInvoiceState,
			fmt.Sprintf("Cannot record a payment on a %s invoice", strings.ToLower(inv.Status.String())))
	}
	if DateOf(paidOn).Before(inv.IssueDate) {
		return dateRangeError("paid_on", "Payment date cannot be before the invoice issue date")
	}
	return nil
}

// ApplyPayment settles the invoice when the cumulative amount paid covers
// the total plus the mora accrued at the payment date. Partial payments
// leave the invoice pending.
func (inv *Invoice) ApplyPayment(engine *Engine, paidTotal decimal.Decimal, paidOn time.Time, actorID uuid.UUID, at time.Time) (Settlement, error) {
	if err := inv.CheckPayable(paidOn); err != nil {
		return Settlement{}, err
	}
	if !paidTotal.IsPositive() {
		return Settlement{}, shared.NewFieldError(CodeInvalidAmount, "amount", "Paid amount must be positive")
	}

	assessment := inv.AssessMora(engine, paidOn)
	due := assessment.TotalWithLateFee
	remaining := due.Sub(paidTotal)
	if remaining.IsNegative() {
		remaining = decimal.Zero
	}

	s := Settlement{
		Assessment: assessment,
		AmountDue:  due,
		PaidTotal:  paidTotal,
		Remaining:  remaining,
		Settled:    paidTotal.GreaterThanOrEqual(due),
	}
	if !s.Settled {
		return s, nil
	}

	paidAt := DateOf(paidOn)
	inv.Status = InvoiceStatusPaid
	inv.PaidAt = &paidAt
	inv.SettledLateFee = assessment.LateFee
	inv.Touch(at)

	inv.AddDomainEvent(NewInvoicePaidEvent(inv, paidTotal, actorID, at))

	return s, nil
}

// Void cancels a pending invoice. Voided invoices never accrue mora.
func (inv *Invoice) Void(reason string, adminID uuid.UUID, at time.Time) error {
	if inv.Status.IsTerminal() {
		return shared.NewDomainError(CodeImmutableInvoiceState,
			fmt.Sprintf("Cannot void a %s invoice", strings.ToLower(inv.Status.String())))
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return shared.NewFieldError(CodeMissingJustification, "reason", "A reason is required to void an invoice")
	}

	voidedAt := at
	inv.Status = InvoiceStatusVoided
	inv.VoidedAt = &voidedAt
	inv.VoidReason = reason
	inv.AmendedBy = &adminID
	inv.AuditNotes = append(inv.AuditNotes, AuditNote{
		At:       at,
		By:       adminID,
		Action:   AuditActionVoided,
		Note:     reason,
		OldValue: string(InvoiceStatusPending),
		NewValue: string(InvoiceStatusVoided),
	})
	inv.Touch(at)

	inv.AddDomainEvent(NewInvoiceVoidedEvent(inv, adminID, at))

	return nil
}
