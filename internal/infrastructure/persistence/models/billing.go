package models

import (
	"time"

	"github.com/agualoti/backend/internal/domain/billing"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ClientModel is the persistence model for the Client aggregate.
type ClientModel struct {
	VersionedRecord
	Code        string               `gorm:"type:varchar(50);not null;uniqueIndex"`
	Name        string               `gorm:"type:varchar(200);not null"`
	Address     string               `gorm:"type:varchar(500)"`
	Phone       string               `gorm:"type:varchar(50)"`
	MeterNumber string               `gorm:"type:varchar(50)"`
	Status      billing.ClientStatus `gorm:"type:varchar(20);not null;default:'ACTIVE';index"`
	SearchKey   string               `gorm:"type:varchar(300);not null;index"`
}

// TableName returns the table name for GORM
func (ClientModel) TableName() string {
	return "clients"
}

// ToDomain converts the persistence model to a domain Client
func (m *ClientModel) ToDomain() *billing.Client {
	return &billing.Client{
		BaseAggregateRoot: m.aggregate(),
		Code:              m.Code,
		Name:              m.Name,
		Address:           m.Address,
		Phone:             m.Phone,
		MeterNumber:       m.MeterNumber,
		Status:            m.Status,
		SearchKey:         m.SearchKey,
	}
}

// FromDomain populates the persistence model from a domain Client
func (m *ClientModel) FromDomain(c *billing.Client) {
	m.setAggregate(c.BaseAggregateRoot)
	m.Code = c.Code
	m.Name = c.Name
	m.Address = c.Address
	m.Phone = c.Phone
	m.MeterNumber = c.MeterNumber
	m.Status = c.Status
	m.SearchKey = c.SearchKey
}

// ClientModelFromDomain creates a new persistence model from a domain Client
func ClientModelFromDomain(c *billing.Client) *ClientModel {
	m := &ClientModel{}
	m.FromDomain(c)
	return m
}

// ReadingModel is the persistence model for a meter reading.
type ReadingModel struct {
	VersionedRecord
	ClientID    uuid.UUID  `gorm:"type:uuid;not null;index:idx_readings_client_read_on,priority:1"`
	Previous    int64      `gorm:"not null"`
	Current     int64      `gorm:"not null"`
	ReadOn      time.Time  `gorm:"type:date;not null;index:idx_readings_client_read_on,priority:2"`
	PeriodStart time.Time  `gorm:"type:date;not null"`
	PeriodEnd   time.Time  `gorm:"type:date;not null"`
	RecordedBy  uuid.UUID  `gorm:"type:uuid;not null"`
	Billed      bool       `gorm:"not null;default:false"`
	InvoiceID   *uuid.UUID `gorm:"type:uuid"`
}

// TableName returns the table name for GORM
func (ReadingModel) TableName() string {
	return "readings"
}

// ToDomain converts the persistence model to a domain Reading
func (m *ReadingModel) ToDomain() *billing.Reading {
	return &billing.Reading{
		BaseAggregateRoot: m.aggregate(),
		ClientID:          m.ClientID,
		Previous:          m.Previous,
		Current:           m.Current,
		ReadOn:            billing.DateOf(m.ReadOn),
		PeriodStart:       billing.DateOf(m.PeriodStart),
		PeriodEnd:         billing.DateOf(m.PeriodEnd),
		RecordedBy:        m.RecordedBy,
		Billed:            m.Billed,
		InvoiceID:         m.InvoiceID,
	}
}

// FromDomain populates the persistence model from a domain Reading
func (m *ReadingModel) FromDomain(r *billing.Reading) {
	m.setAggregate(r.BaseAggregateRoot)
	m.ClientID = r.ClientID
	m.Previous = r.Previous
	m.Current = r.Current
	m.ReadOn = r.ReadOn
	m.PeriodStart = r.PeriodStart
	m.PeriodEnd = r.PeriodEnd
	m.RecordedBy = r.RecordedBy
	m.Billed = r.Billed
	m.InvoiceID = r.InvoiceID
}

// ReadingModelFromDomain creates a new persistence model from a domain Reading
func ReadingModelFromDomain(r *billing.Reading) *ReadingModel {
	m := &ReadingModel{}
	m.FromDomain(r)
	return m
}

// InvoiceModel is the persistence model for the Invoice aggregate.
// The pricing breakdown columns are written once at creation.
type InvoiceModel struct {
	VersionedRecord
	Number               string                `gorm:"type:varchar(50);not null;uniqueIndex"`
	ClientID             uuid.UUID             `gorm:"type:uuid;not null;index"`
	ReadingID            *uuid.UUID            `gorm:"type:uuid;uniqueIndex"`
	PeriodStart          time.Time             `gorm:"type:date;not null"`
	PeriodEnd            time.Time             `gorm:"type:date;not null"`
	IssueDate            time.Time             `gorm:"type:date;not null;index"`
	DueDate              time.Time             `gorm:"type:date;not null;index:idx_invoices_status_due,priority:2"`
	MeterReadingPrevious int64                 `gorm:"not null"`
	MeterReadingCurrent  int64                 `gorm:"not null"`
	Consumption          int64                 `gorm:"not null"`
	BaseFee              decimal.Decimal       `gorm:"type:decimal(12,2);not null"`
	OverageVolume        int64                 `gorm:"not null;default:0"`
	OverageCost          decimal.Decimal       `gorm:"type:decimal(12,2);not null"`
	Subtotal             decimal.Decimal       `gorm:"type:decimal(12,2);not null"`
	TotalAmount          decimal.Decimal       `gorm:"type:decimal(12,2);not null"`
	Status               billing.InvoiceStatus `gorm:"type:varchar(20);not null;default:'PENDING';index:idx_invoices_status_due,priority:1"`
	SettledLateFee       decimal.Decimal       `gorm:"type:decimal(12,2);not null;default:0"`
	CreatedBy            uuid.UUID             `gorm:"type:uuid;not null"`
	AmendedBy            *uuid.UUID            `gorm:"type:uuid"`
	AuditNotes           billing.AuditNotes    `gorm:"type:jsonb;not null;default:'[]'"`
	PaidAt               *time.Time
	VoidedAt             *time.Time
	VoidReason           string `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (InvoiceModel) TableName() string {
	return "invoices"
}

// ToDomain converts the persistence model to a domain Invoice
func (m *InvoiceModel) ToDomain() *billing.Invoice {
	notes := m.AuditNotes
	if notes == nil {
		notes = billing.AuditNotes{}
	}
	return &billing.Invoice{
		BaseAggregateRoot:    m.aggregate(),
		Number:               m.Number,
		ClientID:             m.ClientID,
		ReadingID:            m.ReadingID,
		PeriodStart:          billing.DateOf(m.PeriodStart),
		PeriodEnd:            billing.DateOf(m.PeriodEnd),
		IssueDate:            billing.DateOf(m.IssueDate),
		DueDate:              billing.DateOf(m.DueDate),
		MeterReadingPrevious: m.MeterReadingPrevious,
		MeterReadingCurrent:  m.MeterReadingCurrent,
		Consumption:          m.Consumption,
		BaseFee:              m.BaseFee,
		OverageVolume:        m.OverageVolume,
		OverageCost:          m.OverageCost,
		Subtotal:             m.Subtotal,
		TotalAmount:          m.TotalAmount,
		Status:               m.Status,
		SettledLateFee:       m.SettledLateFee,
		CreatedBy:            m.CreatedBy,
		AmendedBy:            m.AmendedBy,
		AuditNotes:           notes,
		PaidAt:               m.PaidAt,
		VoidedAt:             m.VoidedAt,
		VoidReason:           m.VoidReason,
	}
}

// FromDomain populates the persistence model from a domain Invoice
func (m *InvoiceModel) FromDomain(inv *billing.Invoice) {
	m.setAggregate(inv.BaseAggregateRoot)
	m.Number = inv.Number
	m.ClientID = inv.ClientID
	m.ReadingID = inv.ReadingID
	m.PeriodStart = inv.PeriodStart
	m.PeriodEnd = inv.PeriodEnd
	m.IssueDate = inv.IssueDate
	m.DueDate = inv.DueDate
	m.MeterReadingPrevious = inv.MeterReadingPrevious
	m.MeterReadingCurrent = inv.MeterReadingCurrent
	m.Consumption = inv.Consumption
	m.BaseFee = inv.BaseFee
	m.OverageVolume = inv.OverageVolume
	m.OverageCost = inv.OverageCost
	m.Subtotal = inv.Subtotal
	m.TotalAmount = inv.TotalAmount
	m.Status = inv.Status
	m.SettledLateFee = inv.SettledLateFee
	m.CreatedBy = inv.CreatedBy
	m.AmendedBy = inv.AmendedBy
	m.AuditNotes = inv.AuditNotes
	m.PaidAt = inv.PaidAt
	m.VoidedAt = inv.VoidedAt
	m.VoidReason = inv.VoidReason
}

// InvoiceModelFromDomain creates a new persistence model from a domain Invoice
func InvoiceModelFromDomain(inv *billing.Invoice) *InvoiceModel {
	m := &InvoiceModel{}
	m.FromDomain(inv)
	return m
}

// PaymentModel is the persistence model for a payment. Payments are append-only.
type PaymentModel struct {
	Record
	InvoiceID  uuid.UUID             `gorm:"type:uuid;not null;index"`
	Amount     decimal.Decimal       `gorm:"type:decimal(12,2);not null"`
	PaidOn     time.Time             `gorm:"type:date;not null;index"`
	Method     billing.PaymentMethod `gorm:"type:varchar(20);not null"`
	Reference  string                `gorm:"type:varchar(100)"`
	RecordedBy uuid.UUID             `gorm:"type:uuid;not null"`
}

// TableName returns the table name for GORM
func (PaymentModel) TableName() string {
	return "payments"
}

// ToDomain converts the persistence model to a domain Payment
func (m *PaymentModel) ToDomain() *billing.Payment {
	return &billing.Payment{
		BaseEntity: m.entity(),
		InvoiceID:  m.InvoiceID,
		Amount:     m.Amount,
		PaidOn:     billing.DateOf(m.PaidOn),
		Method:     m.Method,
		Reference:  m.Reference,
		RecordedBy: m.RecordedBy,
	}
}

// PaymentModelFromDomain creates a new persistence model from a domain Payment
func PaymentModelFromDomain(p *billing.Payment) *PaymentModel {
	m := &PaymentModel{
		InvoiceID:  p.InvoiceID,
		Amount:     p.Amount,
		PaidOn:     p.PaidOn,
		Method:     p.Method,
		Reference:  p.Reference,
		RecordedBy: p.RecordedBy,
	}
	m.setEntity(p.BaseEntity)
	return m
}

// MoraSnapshotModel is the persistence model for a late-fee snapshot.
// One row per invoice and evaluation day.
type MoraSnapshotModel struct {
	Record
	InvoiceID        uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_mora_snapshots_invoice_day,priority:1"`
	EvaluatedOn      time.Time       `gorm:"type:date;not null;uniqueIndex:idx_mora_snapshots_invoice_day,priority:2"`
	DaysOverdue      int             `gorm:"not null"`
	MonthsOverdue    int             `gorm:"not null"`
	LateFee          decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	TotalWithLateFee decimal.Decimal `gorm:"type:decimal(12,2);not null"`
}

// TableName returns the table name for GORM
func (MoraSnapshotModel) TableName() string {
	return "mora_snapshots"
}

// ToDomain converts the persistence model to a domain MoraSnapshot
func (m *MoraSnapshotModel) ToDomain() *billing.MoraSnapshot {
	return &billing.MoraSnapshot{
		BaseEntity:       m.entity(),
		InvoiceID:        m.InvoiceID,
		EvaluatedOn:      billing.DateOf(m.EvaluatedOn),
		DaysOverdue:      m.DaysOverdue,
		MonthsOverdue:    m.MonthsOverdue,
		LateFee:          m.LateFee,
		TotalWithLateFee: m.TotalWithLateFee,
	}
}

// MoraSnapshotModelFromDomain creates a new persistence model from a domain MoraSnapshot
func MoraSnapshotModelFromDomain(s *billing.MoraSnapshot) *MoraSnapshotModel {
	m := &MoraSnapshotModel{
		InvoiceID:        s.InvoiceID,
		EvaluatedOn:      s.EvaluatedOn,
		DaysOverdue:      s.DaysOverdue,
		MonthsOverdue:    s.MonthsOverdue,
		LateFee:          s.LateFee,
		TotalWithLateFee: s.TotalWithLateFee,
	}
	m.setEntity(s.BaseEntity)
	return m
}

// ActivityLogModel is the persistence model for the activity log.
type ActivityLogModel struct {
	Record
	Action     string    `gorm:"type:varchar(100);not null"`
	EntityType string    `gorm:"type:varchar(50);not null;index:idx_activity_logs_entity,priority:1"`
	EntityID   uuid.UUID `gorm:"type:uuid;not null;index:idx_activity_logs_entity,priority:2"`
	ActorID    uuid.UUID `gorm:"type:uuid;not null;index"`
	Details    string    `gorm:"type:text"`
	OccurredAt time.Time `gorm:"not null;index"`
}

// TableName returns the table name for GORM
func (ActivityLogModel) TableName() string {
	return "activity_logs"
}

// ToDomain converts the persistence model to a domain ActivityLog
func (m *ActivityLogModel) ToDomain() *billing.ActivityLog {
	return &billing.ActivityLog{
		BaseEntity: m.entity(),
		Action:     m.Action,
		EntityType: m.EntityType,
		EntityID:   m.EntityID,
		ActorID:    m.ActorID,
		Details:    m.Details,
		OccurredAt: m.OccurredAt,
	}
}

// ActivityLogModelFromDomain creates a new persistence model from a domain ActivityLog
func ActivityLogModelFromDomain(e *billing.ActivityLog) *ActivityLogModel {
	m := &ActivityLogModel{
		Action:     e.Action,
		EntityType: e.EntityType,
		EntityID:   e.EntityID,
		ActorID:    e.ActorID,
		Details:    e.Details,
		OccurredAt: e.OccurredAt,
	}
	m.setEntity(e.BaseEntity)
	return m
}

// InvoiceSequenceModel holds the last invoice number handed out per prefix
type InvoiceSequenceModel struct {
	Name  string `gorm:"type:varchar(20);primaryKey"`
	Value int64  `gorm:"not null;default:0"`
}

// TableName returns the table name for GORM
func (InvoiceSequenceModel) TableName() string {
	return "invoice_sequences"
}
