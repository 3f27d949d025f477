package billing

import (
	"strings"
	"time"

	"github.com/agualoti/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentMethod is how a payment was made
type PaymentMethod string

const (
	PaymentMethodCash         PaymentMethod = "CASH"
	PaymentMethodBankTransfer PaymentMethod = "BANK_TRANSFER"
	PaymentMethodCard         PaymentMethod = "CARD"
	PaymentMethodCheck        PaymentMethod = "CHECK"
	PaymentMethodOther        PaymentMethod = "OTHER"
)

// IsValid checks if the method is known
func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentMethodCash, PaymentMethodBankTransfer, PaymentMethodCard,
		PaymentMethodCheck, PaymentMethodOther:
		return true
	}
	return false
}

// Payment is money received against one invoice. Several payments may
// apply to the same invoice.
type Payment struct {
	shared.BaseEntity
	InvoiceID  uuid.UUID
	Amount     decimal.Decimal
	PaidOn     time.Time
	Method     PaymentMethod
	Reference  string
	RecordedBy uuid.UUID
}

// NewPayment validates and creates a payment
func NewPayment(invoiceID uuid.UUID, amount decimal.Decimal, paidOn time.Time, method PaymentMethod, reference string, recordedBy uuid.UUID, at time.Time) (*Payment, error) {
	if invoiceID == uuid.Nil {
		return nil, shared.NewFieldError("INVALID_INVOICE", "invoice_id", "Invoice ID cannot be empty")
	}
	if !amount.IsPositive() {
		return nil, shared.NewFieldError(CodeInvalidAmount, "amount", "Payment amount must be positive")
	}
	if !amount.Equal(amount.Round(2)) {
		return nil, shared.NewFieldError(CodeInvalidAmount, "amount", "Payment amount cannot have more than 2 decimal places")
	}
	if paidOn.IsZero() {
		return nil, dateRangeError("paid_on", "Payment date is required")
	}
	if !method.IsValid() {
		return nil, shared.NewFieldError("INVALID_PAYMENT_METHOD", "method", "Payment method is not valid")
	}
	reference = strings.TrimSpace(reference)
	if len(reference) > 100 {
		return nil, shared.NewFieldError("INVALID_REFERENCE", "reference", "Reference cannot exceed 100 characters")
	}

	return &Payment{
		BaseEntity: shared.NewBaseEntity(at),
		InvoiceID:  invoiceID,
		Amount:     amount,
		PaidOn:     DateOf(paidOn),
		Method:     method,
		Reference:  reference,
		RecordedBy: recordedBy,
	}, nil
}

// SumPayments adds up payment amounts
func SumPayments(payments []Payment) decimal.Decimal {
	total := decimal.Zero
	for _, p := range payments {
		total = total.Add(p.Amount)
	}
	return total
}
