package billing

import (
	"time"

	"github.com/agualoti/backend/internal/domain/billing"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// =============================================================================
// Client DTOs
// =============================================================================

// RegisterClientRequest represents a request to register a client
type RegisterClientRequest struct {
	Code        string `json:"code" binding:"required,min=1,max=50"`
	Name        string `json:"name" binding:"required,min=1,max=200"`
	Address     string `json:"address" binding:"max=500"`
	Phone       string `json:"phone" binding:"max=50"`
	MeterNumber string `json:"meter_number" binding:"max=50"`
}

// ClientListFilter holds client list query parameters
type ClientListFilter struct {
	Page     int    `form:"page" binding:"omitempty,min=1"`
	PageSize int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	Search   string `form:"search" binding:"max=100"`
	Status   string `form:"status" binding:"omitempty,oneof=ACTIVE INACTIVE"`
}

// ClientResponse represents a client in API responses
type ClientResponse struct {
	ID          uuid.UUID `json:"id"`
	Code        string    `json:"code"`
	Name        string    `json:"name"`
	Address     string    `json:"address"`
	Phone       string    `json:"phone"`
	MeterNumber string    `json:"meter_number"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ToClientResponse converts a domain client to a response
func ToClientResponse(c *billing.Client) ClientResponse {
	return ClientResponse{
		ID:          c.ID,
		Code:        c.Code,
		Name:        c.Name,
		Address:     c.Address,
		Phone:       c.Phone,
		MeterNumber: c.MeterNumber,
		Status:      string(c.Status),
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
}

// =============================================================================
// Reading DTOs
// =============================================================================

// RecordReadingRequest represents a meter reading capture.
// A nil Previous defaults to the client's last recorded current value.
type RecordReadingRequest struct {
	ClientID    uuid.UUID `json:"client_id" binding:"required"`
	Previous    *int64    `json:"previous" binding:"omitempty,min=0"`
	Current     int64     `json:"current" binding:"min=0"`
	ReadOn      string    `json:"read_on" binding:"omitempty,date"`
	PeriodStart string    `json:"period_start" binding:"required,date"`
	PeriodEnd   string    `json:"period_end" binding:"required,date"`
}

// ReadingResponse represents a reading in API responses
type ReadingResponse struct {
	ID          uuid.UUID  `json:"id"`
	ClientID    uuid.UUID  `json:"client_id"`
	Previous    int64      `json:"previous"`
	Current     int64      `json:"current"`
	Consumption int64      `json:"consumption"`
	ReadOn      string     `json:"read_on"`
	PeriodStart string     `json:"period_start"`
	PeriodEnd   string     `json:"period_end"`
	Billed      bool       `json:"billed"`
	InvoiceID   *uuid.UUID `json:"invoice_id,omitempty"`
	RecordedBy  uuid.UUID  `json:"recorded_by"`
	CreatedAt   time.Time  `json:"created_at"`
}

// ToReadingResponse converts a domain reading to a response
func ToReadingResponse(r *billing.Reading) ReadingResponse {
	return ReadingResponse{
		ID:          r.ID,
		ClientID:    r.ClientID,
		Previous:    r.Previous,
		Current:     r.Current,
		Consumption: r.Consumption(),
		ReadOn:      billing.FormatDate(r.ReadOn),
		PeriodStart: billing.FormatDate(r.PeriodStart),
		PeriodEnd:   billing.FormatDate(r.PeriodEnd),
		Billed:      r.Billed,
		InvoiceID:   r.InvoiceID,
		RecordedBy:  r.RecordedBy,
		CreatedAt:   r.CreatedAt,
	}
}

// =============================================================================
// Engine DTOs
// =============================================================================

// TariffQuoteRequest asks for the price of a consumption volume
type TariffQuoteRequest struct {
	Consumption *int64 `json:"consumption" binding:"required"`
}

// TariffQuoteResponse is a pricing breakdown plus the schedule that produced it
type TariffQuoteResponse struct {
	Tariff    billing.TariffSchedule   `json:"tariff"`
	Breakdown billing.PricingBreakdown `json:"breakdown"`
}

// AssessMoraRequest asks for the mora on arbitrary invoice figures
type AssessMoraRequest struct {
	DueDate        string          `json:"due_date" binding:"required,date"`
	EvaluationDate string          `json:"evaluation_date" binding:"omitempty,date"`
	TotalAmount    decimal.Decimal `json:"total_amount"`
	Status         string          `json:"status" binding:"required,oneof=PENDING PAID VOIDED"`
}

// MoraResponse is a late-fee assessment in API responses
type MoraResponse struct {
	EvaluatedOn      string          `json:"evaluated_on"`
	DaysOverdue      int             `json:"days_overdue"`
	MonthsOverdue    int             `json:"months_overdue"`
	LateFee          decimal.Decimal `json:"late_fee"`
	TotalWithLateFee decimal.Decimal `json:"total_with_late_fee"`
}

// ToMoraResponse converts an assessment to a response
func ToMoraResponse(a billing.LateFeeAssessment) MoraResponse {
	return MoraResponse{
		EvaluatedOn:      billing.FormatDate(a.EvaluatedOn),
		DaysOverdue:      a.DaysOverdue,
		MonthsOverdue:    a.MonthsOverdue,
		LateFee:          a.LateFee,
		TotalWithLateFee: a.TotalWithLateFee,
	}
}

// ValidateDatesRequest carries the four invoice dates as strings
type ValidateDatesRequest struct {
	IssueDate   string `json:"issue_date"`
	DueDate     string `json:"due_date"`
	PeriodStart string `json:"period_start"`
	PeriodEnd   string `json:"period_end"`
}

// ValidateDatesResponse reports a successful validation
type ValidateDatesResponse struct {
	Valid bool `json:"valid"`
}

// =============================================================================
// Invoice DTOs
// =============================================================================

// GenerateInvoiceRequest issues an invoice from a recorded reading.
// Empty dates default to today and today plus the configured due days.
type GenerateInvoiceRequest struct {
	ReadingID uuid.UUID `json:"reading_id" binding:"required"`
	IssueDate string    `json:"issue_date" binding:"omitempty,date"`
	DueDate   string    `json:"due_date" binding:"omitempty,date"`
}

// CreateInvoiceRequest issues an invoice from explicit readings
type CreateInvoiceRequest struct {
	ClientID        uuid.UUID `json:"client_id" binding:"required"`
	ReadingPrevious int64     `json:"reading_previous" binding:"min=0"`
	ReadingCurrent  int64     `json:"reading_current" binding:"min=0"`
	PeriodStart     string    `json:"period_start" binding:"required,date"`
	PeriodEnd       string    `json:"period_end" binding:"required,date"`
	IssueDate       string    `json:"issue_date" binding:"omitempty,date"`
	DueDate         string    `json:"due_date" binding:"omitempty,date"`
}

// InvoiceListFilter holds invoice list query parameters.
// Status OVERDUE selects pending invoices past their due date.
type InvoiceListFilter struct {
	Page       int    `form:"page" binding:"omitempty,min=1"`
	PageSize   int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	Search     string `form:"search" binding:"max=100"`
	ClientID   string `form:"client_id" binding:"omitempty,uuid"`
	Status     string `form:"status" binding:"omitempty,oneof=PENDING PAID VOIDED OVERDUE"`
	IssuedFrom string `form:"issued_from" binding:"omitempty,date"`
	IssuedTo   string `form:"issued_to" binding:"omitempty,date"`
	OrderBy    string `form:"order_by" binding:"omitempty,oneof=number issue_date due_date total_amount created_at"`
	OrderDir   string `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

// AmendDueDateRequest moves the due date of a pending invoice
type AmendDueDateRequest struct {
	DueDate       string `json:"due_date" binding:"required,date"`
	Justification string `json:"justification" binding:"max=500"`
}

// VoidInvoiceRequest cancels an invoice
type VoidInvoiceRequest struct {
	Reason string `json:"reason" binding:"required,min=1,max=500"`
}

// AuditNoteResponse is an audit note in API responses
type AuditNoteResponse struct {
	At       time.Time `json:"at"`
	By       uuid.UUID `json:"by"`
	Action   string    `json:"action"`
	Note     string    `json:"note"`
	OldValue string    `json:"old_value,omitempty"`
	NewValue string    `json:"new_value,omitempty"`
}

// InvoiceResponse represents an invoice with its mora at the evaluation date
type InvoiceResponse struct {
	ID                   uuid.UUID           `json:"id"`
	Number               string              `json:"number"`
	ClientID             uuid.UUID           `json:"client_id"`
	ReadingID            *uuid.UUID          `json:"reading_id,omitempty"`
	PeriodStart          string              `json:"period_start"`
	PeriodEnd            string              `json:"period_end"`
	IssueDate            string              `json:"issue_date"`
	DueDate              string              `json:"due_date"`
	MeterReadingPrevious int64               `json:"meter_reading_previous"`
	MeterReadingCurrent  int64               `json:"meter_reading_current"`
	Consumption          int64               `json:"consumption"`
	BaseFee              decimal.Decimal     `json:"base_fee"`
	OverageVolume        int64               `json:"overage_volume"`
	OverageCost          decimal.Decimal     `json:"overage_cost"`
	Subtotal             decimal.Decimal     `json:"subtotal"`
	TotalAmount          decimal.Decimal     `json:"total_amount"`
	Status               string              `json:"status"`
	DisplayStatus        string              `json:"display_status"`
	Mora                 MoraResponse        `json:"mora"`
	SettledLateFee       decimal.Decimal     `json:"settled_late_fee"`
	CreatedBy            uuid.UUID           `json:"created_by"`
	AmendedBy            *uuid.UUID          `json:"amended_by,omitempty"`
	AuditNotes           []AuditNoteResponse `json:"audit_notes"`
	PaidAt               *time.Time          `json:"paid_at,omitempty"`
	VoidedAt             *time.Time          `json:"voided_at,omitempty"`
	VoidReason           string              `json:"void_reason,omitempty"`
	Version              int                 `json:"version"`
	CreatedAt            time.Time           `json:"created_at"`
	UpdatedAt            time.Time           `json:"updated_at"`
}

// ToInvoiceResponse converts an invoice and its assessment to a response
func ToInvoiceResponse(inv *billing.Invoice, a billing.LateFeeAssessment) InvoiceResponse {
	notes := make([]AuditNoteResponse, len(inv.AuditNotes))
	for i, n := range inv.AuditNotes {
		notes[i] = AuditNoteResponse{
			At:       n.At,
			By:       n.By,
			Action:   n.Action,
			Note:     n.Note,
			OldValue: n.OldValue,
			NewValue: n.NewValue,
		}
	}

	return InvoiceResponse{
		ID:                   inv.ID,
		Number:               inv.Number,
		ClientID:             inv.ClientID,
		ReadingID:            inv.ReadingID,
		PeriodStart:          billing.FormatDate(inv.PeriodStart),
		PeriodEnd:            billing.FormatDate(inv.PeriodEnd),
		IssueDate:            billing.FormatDate(inv.IssueDate),
		DueDate:              billing.FormatDate(inv.DueDate),
		MeterReadingPrevious: inv.MeterReadingPrevious,
		MeterReadingCurrent:  inv.MeterReadingCurrent,
		Consumption:          inv.Consumption,
		BaseFee:              inv.BaseFee,
		OverageVolume:        inv.OverageVolume,
		OverageCost:          inv.OverageCost,
		Subtotal:             inv.Subtotal,
		TotalAmount:          inv.TotalAmount,
		Status:               string(inv.Status),
		DisplayStatus:        string(billing.DeriveDisplayStatus(inv.Status, a)),
		Mora:                 ToMoraResponse(a),
		SettledLateFee:       inv.SettledLateFee,
		CreatedBy:            inv.CreatedBy,
		AmendedBy:            inv.AmendedBy,
		AuditNotes:           notes,
		PaidAt:               inv.PaidAt,
		VoidedAt:             inv.VoidedAt,
		VoidReason:           inv.VoidReason,
		Version:              inv.Version,
		CreatedAt:            inv.CreatedAt,
		UpdatedAt:            inv.UpdatedAt,
	}
}

// =============================================================================
// Payment DTOs
// =============================================================================

// RecordPaymentRequest records money received against an invoice
type RecordPaymentRequest struct {
	Amount    decimal.Decimal `json:"amount"`
	PaidOn    string          `json:"paid_on" binding:"omitempty,date"`
	Method    string          `json:"method" binding:"required,oneof=CASH BANK_TRANSFER CARD CHECK OTHER"`
	Reference string          `json:"reference" binding:"max=100"`
}

// PaymentResponse represents a payment in API responses
type PaymentResponse struct {
	ID         uuid.UUID       `json:"id"`
	InvoiceID  uuid.UUID       `json:"invoice_id"`
	Amount     decimal.Decimal `json:"amount"`
	PaidOn     string          `json:"paid_on"`
	Method     string          `json:"method"`
	Reference  string          `json:"reference,omitempty"`
	RecordedBy uuid.UUID       `json:"recorded_by"`
	CreatedAt  time.Time       `json:"created_at"`
}

// ToPaymentResponse converts a domain payment to a response
func ToPaymentResponse(p *billing.Payment) PaymentResponse {
	return PaymentResponse{
		ID:         p.ID,
		InvoiceID:  p.InvoiceID,
		Amount:     p.Amount,
		PaidOn:     billing.FormatDate(p.PaidOn),
		Method:     string(p.Method),
		Reference:  p.Reference,
		RecordedBy: p.RecordedBy,
		CreatedAt:  p.CreatedAt,
	}
}

// SettlementResponse summarizes where the invoice stands after a payment
type SettlementResponse struct {
	AmountDue decimal.Decimal `json:"amount_due"`
	LateFee   decimal.Decimal `json:"late_fee"`
	PaidTotal decimal.Decimal `json:"paid_total"`
	Remaining decimal.Decimal `json:"remaining"`
	Settled   bool            `json:"settled"`
}

// RecordPaymentResponse is the result of recording a payment
type RecordPaymentResponse struct {
	Payment    PaymentResponse    `json:"payment"`
	Settlement SettlementResponse `json:"settlement"`
	Invoice    InvoiceResponse    `json:"invoice"`
}

// InvoicePaymentsResponse lists an invoice's payments with their total
type InvoicePaymentsResponse struct {
	Payments  []PaymentResponse `json:"payments"`
	PaidTotal decimal.Decimal   `json:"paid_total"`
}

// =============================================================================
// Dashboard, activity and snapshot DTOs
// =============================================================================

// InvoiceCounts counts invoices by display status
type InvoiceCounts struct {
	Pending int64 `json:"pending"`
	Overdue int64 `json:"overdue"`
	Paid    int64 `json:"paid"`
	Voided  int64 `json:"voided"`
}

// DashboardSummary is the administrative overview at a given day
type DashboardSummary struct {
	AsOf              string          `json:"as_of"`
	ActiveClients     int64           `json:"active_clients"`
	Invoices          InvoiceCounts   `json:"invoices"`
	BilledAmount      decimal.Decimal `json:"billed_amount"`
	CollectedAmount   decimal.Decimal `json:"collected_amount"`
	OutstandingAmount decimal.Decimal `json:"outstanding_amount"`
	AccruedMora       decimal.Decimal `json:"accrued_mora"`
}

// ActivityLogFilter holds activity log query parameters
type ActivityLogFilter struct {
	Page       int    `form:"page" binding:"omitempty,min=1"`
	PageSize   int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	EntityType string `form:"entity_type" binding:"omitempty,oneof=Invoice Reading Client"`
	EntityID   string `form:"entity_id" binding:"omitempty,uuid"`
}

// ActivityLogResponse represents an activity log entry
type ActivityLogResponse struct {
	ID         uuid.UUID `json:"id"`
	Action     string    `json:"action"`
	EntityType string    `json:"entity_type"`
	EntityID   uuid.UUID `json:"entity_id"`
	ActorID    uuid.UUID `json:"actor_id"`
	Details    string    `json:"details"`
	OccurredAt time.Time `json:"occurred_at"`
}

// MoraSnapshotResponse represents a stored mora snapshot
type MoraSnapshotResponse struct {
	InvoiceID uuid.UUID `json:"invoice_id"`
	MoraResponse
}

// SnapshotRunResult reports one snapshot pass
type SnapshotRunResult struct {
	EvaluatedOn string          `json:"evaluated_on"`
	Invoices    int             `json:"invoices"`
	Failed      int             `json:"failed"`
	TotalMora   decimal.Decimal `json:"total_mora"`
}
