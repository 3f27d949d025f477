package billing

import (
	"context"
	"time"

	"github.com/agualoti/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ClientFilter defines filtering options for client queries
type ClientFilter struct {
	shared.Filter
	Status *ClientStatus
}

// ClientRepository defines the interface for client persistence
type ClientRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Client, error)
	FindByCode(ctx context.Context, code string) (*Client, error)
	FindAll(ctx context.Context, filter ClientFilter) ([]Client, error)
	Count(ctx context.Context, filter ClientFilter) (int64, error)
	ExistsByCode(ctx context.Context, code string) (bool, error)
	Save(ctx context.Context, client *Client) error
}

// ReadingRepository defines the interface for meter reading persistence
type ReadingRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Reading, error)
	// FindLatestByClient returns the most recent reading of a client, or shared.ErrNotFound
	FindLatestByClient(ctx context.Context, clientID uuid.UUID) (*Reading, error)
	FindByClient(ctx context.Context, clientID uuid.UUID, filter shared.Filter) ([]Reading, error)
	CountByClient(ctx context.Context, clientID uuid.UUID) (int64, error)
	Save(ctx context.Context, reading *Reading) error
}

// InvoiceFilter defines filtering options for invoice queries
type InvoiceFilter struct {
	shared.Filter
	ClientID *uuid.UUID
	Status   *InvoiceStatus
	// OverdueAsOf keeps pending invoices whose due date is before the given day
	OverdueAsOf *time.Time
	IssuedFrom  *time.Time
	IssuedTo    *time.Time
}

// StatusTotal is the count and billed amount of invoices in one stored status
type StatusTotal struct {
	Status      InvoiceStatus
	Count       int64
	TotalAmount decimal.Decimal
}

// InvoiceRepository defines the interface for invoice persistence
type InvoiceRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Invoice, error)
	// FindByIDForUpdate loads an invoice and holds its row lock until the
	// surrounding transaction ends. Payments on one invoice queue behind it.
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*Invoice, error)
	FindByNumber(ctx context.Context, number string) (*Invoice, error)
	FindAll(ctx context.Context, filter InvoiceFilter) ([]Invoice, error)
	Count(ctx context.Context, filter InvoiceFilter) (int64, error)
	// FindPending returns every pending invoice, optionally limited to those due before a day
	FindPending(ctx context.Context, dueBefore *time.Time) ([]Invoice, error)
	// FindOpenAsOf returns invoices issued on or before asOf that were still
	// unpaid and not voided at the end of that day
	FindOpenAsOf(ctx context.Context, asOf time.Time) ([]Invoice, error)
	// StatusTotals groups invoices issued on or before asOf by their status at the end of that day
	StatusTotals(ctx context.Context, asOf time.Time) ([]StatusTotal, error)
	// Save inserts a new invoice
	Save(ctx context.Context, invoice *Invoice) error
	// SaveWithLock updates an invoice if its stored version is one behind, else shared.ErrConcurrencyConflict
	SaveWithLock(ctx context.Context, invoice *Invoice) error
}

// PaymentRepository defines the interface for payment persistence
type PaymentRepository interface {
	FindByInvoice(ctx context.Context, invoiceID uuid.UUID) ([]Payment, error)
	SumByInvoice(ctx context.Context, invoiceID uuid.UUID) (decimal.Decimal, error)
	// SumByInvoicesUpTo totals, per invoice, the payments received on or before a day.
	// Invoices without such payments are absent from the map.
	SumByInvoicesUpTo(ctx context.Context, invoiceIDs []uuid.UUID, upTo time.Time) (map[uuid.UUID]decimal.Decimal, error)
	// SumCollected sums payments received on or before a day
	SumCollected(ctx context.Context, upTo time.Time) (decimal.Decimal, error)
	Save(ctx context.Context, payment *Payment) error
}

// ActivityLogFilter defines filtering options for activity log queries
type ActivityLogFilter struct {
	shared.Filter
	EntityType string
	EntityID   *uuid.UUID
	ActorID    *uuid.UUID
}

// ActivityLogRepository defines the interface for the append-only activity log
type ActivityLogRepository interface {
	Save(ctx context.Context, entry *ActivityLog) error
	FindAll(ctx context.Context, filter ActivityLogFilter) ([]ActivityLog, error)
	Count(ctx context.Context, filter ActivityLogFilter) (int64, error)
}

// MoraSnapshotRepository persists recomputed late-fee assessments
type MoraSnapshotRepository interface {
	// Upsert stores the snapshot, replacing any existing one for the same invoice and day
	Upsert(ctx context.Context, snapshot *MoraSnapshot) error
	FindByInvoice(ctx context.Context, invoiceID uuid.UUID) ([]MoraSnapshot, error)
}

// InvoiceNumberGenerator hands out unique, sequential invoice numbers
type InvoiceNumberGenerator interface {
	Next(ctx context.Context) (string, error)
}
