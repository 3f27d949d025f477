package billing

import "github.com/agualoti/backend/internal/domain/shared"

// Error codes raised by the billing engine and the invoice aggregate.
const (
	CodeInvalidConsumption    = "INVALID_CONSUMPTION"
	CodeInvalidDateRange      = "INVALID_DATE_RANGE"
	CodeImmutableInvoiceState = "IMMUTABLE_INVOICE_STATE"
	CodeMissingJustification  = "MISSING_JUSTIFICATION"
	CodeInvalidTariff         = "INVALID_TARIFF"
	CodeInvalidReading        = "INVALID_READING"
	CodeInvalidAmount         = "INVALID_AMOUNT"
)

// Sentinels for errors.Is. Matching is by code, so a returned error
// with a specific field and message still matches its sentinel.
var (
	ErrInvalidConsumption    = shared.NewDomainError(CodeInvalidConsumption, "Consumption must be a non-negative integer")
	ErrInvalidDateRange      = shared.NewDomainError(CodeInvalidDateRange, "Dates are not coherent")
	ErrImmutableInvoiceState = shared.NewDomainError(CodeImmutableInvoiceState, "Invoice can no longer be modified")
	ErrMissingJustification  = shared.NewDomainError(CodeMissingJustification, "A justification is required")
	ErrInvalidTariff         = shared.NewDomainError(CodeInvalidTariff, "Tariff schedule is not valid")
	ErrInvalidReading        = shared.NewDomainError(CodeInvalidReading, "Meter reading is not valid")
	ErrInvalidAmount         = shared.NewDomainError(CodeInvalidAmount, "Amount is not valid")
)

func dateRangeError(field, message string) *shared.DomainError {
	return shared.NewFieldError(CodeInvalidDateRange, field, message)
}
