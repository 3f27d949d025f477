package billing

import (
	"fmt"
	"time"

	"github.com/agualoti/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// ConsumptionBetween returns current - previous, rejecting negative readings
// and a current reading below the previous one.
func ConsumptionBetween(previous, current int64) (int64, error) {
	if previous < 0 {
		return 0, shared.NewFieldError(CodeInvalidReading, "previous", "Previous reading cannot be negative")
	}
	if current < 0 {
		return 0, shared.NewFieldError(CodeInvalidReading, "current", "Current reading cannot be negative")
	}
	if current < previous {
		return 0, shared.NewFieldError(CodeInvalidReading, "current",
			fmt.Sprintf("Current reading %d is below previous reading %d", current, previous))
	}
	return current - previous, nil
}

// Reading is a meter measurement pair for one client and billing period
type Reading struct {
	shared.BaseAggregateRoot
	ClientID    uuid.UUID
	Previous    int64
	Current     int64
	ReadOn      time.Time
	PeriodStart time.Time
	PeriodEnd   time.Time
	RecordedBy  uuid.UUID
	Billed      bool
	InvoiceID   *uuid.UUID
}

// NewReadingParams holds the inputs of NewReading
type NewReadingParams struct {
	ClientID    uuid.UUID
	Previous    int64
	Current     int64
	ReadOn      time.Time
	PeriodStart time.Time
	PeriodEnd   time.Time
	RecordedBy  uuid.UUID
	At          time.Time
}

// NewReading validates and creates a meter reading
func NewReading(p NewReadingParams) (*Reading, error) {
	if p.ClientID == uuid.Nil {
		return nil, shared.NewFieldError("INVALID_CLIENT", "client_id", "Client ID cannot be empty")
	}
	if _, err := ConsumptionBetween(p.Previous, p.Current); err != nil {
		return nil, err
	}
	if !DateOf(p.PeriodEnd).After(DateOf(p.PeriodStart)) {
		return nil, dateRangeError("period_end", "Billing period end must be after its start")
	}
	if p.ReadOn.IsZero() {
		p.ReadOn = p.PeriodEnd
	}

	r := &Reading{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(p.At),
		ClientID:          p.ClientID,
		Previous:          p.Previous,
		Current:           p.Current,
		ReadOn:            DateOf(p.ReadOn),
		PeriodStart:       DateOf(p.PeriodStart),
		PeriodEnd:         DateOf(p.PeriodEnd),
		RecordedBy:        p.RecordedBy,
	}

	r.AddDomainEvent(NewReadingRecordedEvent(r))

	return r, nil
}

// Consumption returns the volume measured by the reading
func (r *Reading) Consumption() int64 {
	return r.Current - r.Previous
}

// MarkBilled links the reading to the invoice generated from it
func (r *Reading) MarkBilled(invoiceID uuid.UUID, at time.Time) error {
	if r.Billed {
		return shared.NewDomainError(shared.ErrInvalidState.Code, "Reading has already been billed")
	}
	r.Billed = true
	r.InvoiceID = &invoiceID
	r.Touch(at)
	return nil
}
