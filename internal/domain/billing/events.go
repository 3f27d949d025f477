package billing

import (
	"time"

	"github.com/agualoti/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Aggregate type names
const (
	AggregateTypeInvoice = "Invoice"
	AggregateTypeReading = "Reading"
	AggregateTypeClient  = "Client"
)

// Event type names
const (
	EventTypeInvoiceCreated        = "InvoiceCreated"
	EventTypeInvoiceDueDateAmended = "InvoiceDueDateAmended"
	EventTypeInvoicePaid           = "InvoicePaid"
	EventTypeInvoiceVoided         = "InvoiceVoided"
	EventTypePaymentRecorded       = "PaymentRecorded"
	EventTypeReadingRecorded       = "ReadingRecorded"
	EventTypeClientRegistered      = "ClientRegistered"
)

// InvoiceCreatedEvent is raised when an invoice is issued
type InvoiceCreatedEvent struct {
	shared.BaseDomainEvent
	InvoiceID     uuid.UUID       `json:"invoice_id"`
	InvoiceNumber string          `json:"invoice_number"`
	ClientID      uuid.UUID       `json:"client_id"`
	Consumption   int64           `json:"consumption"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	DueDate       time.Time       `json:"due_date"`
}

// NewInvoiceCreatedEvent creates a new InvoiceCreatedEvent
func NewInvoiceCreatedEvent(inv *Invoice) *InvoiceCreatedEvent {
	return &InvoiceCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInvoiceCreated, AggregateTypeInvoice, inv.ID, inv.CreatedBy, inv.CreatedAt),
		InvoiceID:       inv.ID,
		InvoiceNumber:   inv.Number,
		ClientID:        inv.ClientID,
		Consumption:     inv.Consumption,
		TotalAmount:     inv.TotalAmount,
		DueDate:         inv.DueDate,
	}
}

// InvoiceDueDateAmendedEvent is raised when an administrator moves a due date
type InvoiceDueDateAmendedEvent struct {
	shared.BaseDomainEvent
	InvoiceID     uuid.UUID `json:"invoice_id"`
	InvoiceNumber string    `json:"invoice_number"`
	OldDueDate    time.Time `json:"old_due_date"`
	NewDueDate    time.Time `json:"new_due_date"`
	Justification string    `json:"justification"`
}

// NewInvoiceDueDateAmendedEvent creates a new InvoiceDueDateAmendedEvent
func NewInvoiceDueDateAmendedEvent(inv *Invoice, oldDueDate time.Time, justification string, adminID uuid.UUID, at time.Time) *InvoiceDueDateAmendedEvent {
	return &InvoiceDueDateAmendedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInvoiceDueDateAmended, AggregateTypeInvoice, inv.ID, adminID, at),
		InvoiceID:       inv.ID,
		InvoiceNumber:   inv.Number,
		OldDueDate:      oldDueDate,
		NewDueDate:      inv.DueDate,
		Justification:   justification,
	}
}

// InvoicePaidEvent is raised when payments cover the total plus mora
type InvoicePaidEvent struct {
	shared.BaseDomainEvent
	InvoiceID     uuid.UUID       `json:"invoice_id"`
	InvoiceNumber string          `json:"invoice_number"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	LateFee       decimal.Decimal `json:"late_fee"`
	PaidTotal     decimal.Decimal `json:"paid_total"`
}

// NewInvoicePaidEvent creates a new InvoicePaidEvent
func NewInvoicePaidEvent(inv *Invoice, paidTotal decimal.Decimal, actorID uuid.UUID, at time.Time) *InvoicePaidEvent {
	return &InvoicePaidEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInvoicePaid, AggregateTypeInvoice, inv.ID, actorID, at),
		InvoiceID:       inv.ID,
		InvoiceNumber:   inv.Number,
		TotalAmount:     inv.TotalAmount,
		LateFee:         inv.SettledLateFee,
		PaidTotal:       paidTotal,
	}
}

// InvoiceVoidedEvent is raised when an invoice is cancelled
type InvoiceVoidedEvent struct {
	shared.BaseDomainEvent
	InvoiceID     uuid.UUID `json:"invoice_id"`
	InvoiceNumber string    `json:"invoice_number"`
	Reason        string    `json:"reason"`
}

// NewInvoiceVoidedEvent creates a new InvoiceVoidedEvent
func NewInvoiceVoidedEvent(inv *Invoice, adminID uuid.UUID, at time.Time) *InvoiceVoidedEvent {
	return &InvoiceVoidedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInvoiceVoided, AggregateTypeInvoice, inv.ID, adminID, at),
		InvoiceID:       inv.ID,
		InvoiceNumber:   inv.Number,
		Reason:          inv.VoidReason,
	}
}

// PaymentRecordedEvent is raised for every payment, partial or not
type PaymentRecordedEvent struct {
	shared.BaseDomainEvent
	PaymentID     uuid.UUID       `json:"payment_id"`
	InvoiceID     uuid.UUID       `json:"invoice_id"`
	InvoiceNumber string          `json:"invoice_number"`
	Amount        decimal.Decimal `json:"amount"`
	Method        PaymentMethod   `json:"method"`
	Settled       bool            `json:"settled"`
}

// NewPaymentRecordedEvent creates a new PaymentRecordedEvent
func NewPaymentRecordedEvent(p *Payment, inv *Invoice, settled bool) *PaymentRecordedEvent {
	return &PaymentRecordedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypePaymentRecorded, AggregateTypeInvoice, inv.ID, p.RecordedBy, p.CreatedAt),
		PaymentID:       p.ID,
		InvoiceID:       inv.ID,
		InvoiceNumber:   inv.Number,
		Amount:          p.Amount,
		Method:          p.Method,
		Settled:         settled,
	}
}

// ReadingRecordedEvent is raised when a meter reading is captured
type ReadingRecordedEvent struct {
	shared.BaseDomainEvent
	ReadingID   uuid.UUID `json:"reading_id"`
	ClientID    uuid.UUID `json:"client_id"`
	Consumption int64     `json:"consumption"`
}

// NewReadingRecordedEvent creates a new ReadingRecordedEvent
func NewReadingRecordedEvent(r *Reading) *ReadingRecordedEvent {
	return &ReadingRecordedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeReadingRecorded, AggregateTypeReading, r.ID, r.RecordedBy, r.CreatedAt),
		ReadingID:       r.ID,
		ClientID:        r.ClientID,
		Consumption:     r.Consumption(),
	}
}

// ClientRegisteredEvent is raised when a client is added
type ClientRegisteredEvent struct {
	shared.BaseDomainEvent
	ClientID uuid.UUID `json:"client_id"`
	Code     string    `json:"code"`
	Name     string    `json:"name"`
}

// NewClientRegisteredEvent creates a new ClientRegisteredEvent
func NewClientRegisteredEvent(c *Client) *ClientRegisteredEvent {
	return &ClientRegisteredEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeClientRegistered, AggregateTypeClient, c.ID, uuid.Nil, c.CreatedAt),
		ClientID:        c.ID,
		Code:            c.Code,
		Name:            c.Name,
	}
}
