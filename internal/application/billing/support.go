package billing

import (
	"context"
	"time"

	"github.com/agualoti/backend/internal/domain/billing"
	"github.com/agualoti/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const tracerName = "agualoti/billing"

// ErrDuplicateRequest is returned when an idempotency key has already been used
var ErrDuplicateRequest = shared.NewDomainError("DUPLICATE_REQUEST", "This request has already been processed")

// Clock supplies the current time at the application boundary.
// The engine never reads the clock itself.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to Clock
type ClockFunc func() time.Time

// Now returns the function's result
func (f ClockFunc) Now() time.Time { return f() }

// SystemClock returns the wall clock
func SystemClock() Clock {
	return ClockFunc(time.Now)
}

// Metrics receives billing counters. The telemetry package provides the
// OpenTelemetry implementation.
type Metrics interface {
	RecordInvoiceIssued(ctx context.Context, total decimal.Decimal)
	RecordPayment(ctx context.Context, method billing.PaymentMethod, amount decimal.Decimal, settled bool)
	RecordLateFeeAssessed(ctx context.Context, lateFee decimal.Decimal)
}

// NopMetrics discards all measurements
type NopMetrics struct{}

func (NopMetrics) RecordInvoiceIssued(context.Context, decimal.Decimal) {}
func (NopMetrics) RecordPayment(context.Context, billing.PaymentMethod, decimal.Decimal, bool) {}
func (NopMetrics) RecordLateFeeAssessed(context.Context, decimal.Decimal) {}

// TransactionScope runs repository work inside one database transaction
type TransactionScope interface {
	// Execute commits when fn returns nil and rolls back otherwise
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories exposes repositories bound to the current transaction
type TransactionalRepositories interface {
	Invoices() billing.InvoiceRepository
	Payments() billing.PaymentRepository
	Readings() billing.ReadingRepository
	InvoiceNumbers() billing.InvoiceNumberGenerator
}

// NoOpTransactionScope executes without a transaction. Used by tests and
// by callers whose repositories are not transactional.
type NoOpTransactionScope struct {
	invoiceRepo billing.InvoiceRepository
	paymentRepo billing.PaymentRepository
	readingRepo billing.ReadingRepository
	numbers     billing.InvoiceNumberGenerator
}

// NewNoOpTransactionScope creates a NoOpTransactionScope
func NewNoOpTransactionScope(
	invoiceRepo billing.InvoiceRepository,
	paymentRepo billing.PaymentRepository,
	readingRepo billing.ReadingRepository,
	numbers billing.InvoiceNumberGenerator,
) *NoOpTransactionScope {
	return &NoOpTransactionScope{
		invoiceRepo: invoiceRepo,
		paymentRepo: paymentRepo,
		readingRepo: readingRepo,
		numbers:     numbers,
	}
}

// Execute runs fn directly
func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s)
}

func (s *NoOpTransactionScope) Invoices() billing.InvoiceRepository             { return s.invoiceRepo }
func (s *NoOpTransactionScope) Payments() billing.PaymentRepository             { return s.paymentRepo }
func (s *NoOpTransactionScope) Readings() billing.ReadingRepository             { return s.readingRepo }
func (s *NoOpTransactionScope) InvoiceNumbers() billing.InvoiceNumberGenerator { return s.numbers }

var _ TransactionScope = (*NoOpTransactionScope)(nil)
var _ TransactionalRepositories = (*NoOpTransactionScope)(nil)

func startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, name)
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

// publishEvents publishes and clears the aggregate's pending events.
// Publishing failures are logged, never returned: the state change is already saved.
func publishEvents(ctx context.Context, publisher shared.EventPublisher, logger *zap.Logger, agg shared.EventSource) {
	events := agg.GetDomainEvents()
	agg.ClearDomainEvents()
	if publisher == nil || len(events) == 0 {
		return
	}
	if err := publisher.Publish(ctx, events...); err != nil {
		logger.Warn("Failed to publish domain events",
			zap.String("aggregate_id", agg.GetID().String()),
			zap.Int("event_count", len(events)),
			zap.Error(err))
	}
}
