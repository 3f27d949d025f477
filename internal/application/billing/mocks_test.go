package billing

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/agualoti/backend/internal/domain/billing"
	"github.com/agualoti/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// =============================================================================
// Mock Repositories
// =============================================================================

// MockClientRepository is a mock implementation of ClientRepository
type MockClientRepository struct {
	mock.Mock
}

func (m *MockClientRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.Client, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.Client), args.Error(1)
}

func (m *MockClientRepository) FindByCode(ctx context.Context, code string) (*billing.Client, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.Client), args.Error(1)
}

func (m *MockClientRepository) FindAll(ctx context.Context, filter billing.ClientFilter) ([]billing.Client, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]billing.Client), args.Error(1)
}

func (m *MockClientRepository) Count(ctx context.Context, filter billing.ClientFilter) (int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockClientRepository) ExistsByCode(ctx context.Context, code string) (bool, error) {
	args := m.Called(ctx, code)
	return args.Bool(0), args.Error(1)
}

func (m *MockClientRepository) Save(ctx context.Context, client *billing.Client) error {
	args := m.Called(ctx, client)
	return args.Error(0)
}

// MockReadingRepository is a mock implementation of ReadingRepository
type MockReadingRepository struct {
	mock.Mock
}

func (m *MockReadingRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.Reading, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.Reading), args.Error(1)
}

func (m *MockReadingRepository) FindLatestByClient(ctx context.Context, clientID uuid.UUID) (*billing.Reading, error) {
	args := m.Called(ctx, clientID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.Reading), args.Error(1)
}

func (m *MockReadingRepository) FindByClient(ctx context.Context, clientID uuid.UUID, filter shared.Filter) ([]billing.Reading, error) {
	args := m.Called(ctx, clientID, filter)
	return args.Get(0).([]billing.Reading), args.Error(1)
}

func (m *MockReadingRepository) CountByClient(ctx context.Context, clientID uuid.UUID) (int64, error) {
	args := m.Called(ctx, clientID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockReadingRepository) Save(ctx context.Context, reading *billing.Reading) error {
	args := m.Called(ctx, reading)
	return args.Error(0)
}

// MockInvoiceRepository is a mock implementation of InvoiceRepository
type MockInvoiceRepository struct {
	mock.Mock
}

func (m *MockInvoiceRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.Invoice, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.Invoice), args.Error(1)
}

func (m *MockInvoiceRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*billing.Invoice, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.Invoice), args.Error(1)
}

func (m *MockInvoiceRepository) FindByNumber(ctx context.Context, number string) (*billing.Invoice, error) {
	args := m.Called(ctx, number)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*billing.Invoice), args.Error(1)
}

func (m *MockInvoiceRepository) FindAll(ctx context.Context, filter billing.InvoiceFilter) ([]billing.Invoice, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]billing.Invoice), args.Error(1)
}

func (m *MockInvoiceRepository) Count(ctx context.Context, filter billing.InvoiceFilter) (int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockInvoiceRepository) FindPending(ctx context.Context, dueBefore *time.Time) ([]billing.Invoice, error) {
	args := m.Called(ctx, dueBefore)
	return args.Get(0).([]billing.Invoice), args.Error(1)
}

func (m *MockInvoiceRepository) FindOpenAsOf(ctx context.Context, asOf time.Time) ([]billing.Invoice, error) {
	args := m.Called(ctx, asOf)
	return args.Get(0).([]billing.Invoice), args.Error(1)
}

func (m *MockInvoiceRepository) StatusTotals(ctx context.Context, asOf time.Time) ([]billing.StatusTotal, error) {
	args := m.Called(ctx, asOf)
	return args.Get(0).([]billing.StatusTotal), args.Error(1)
}

func (m *MockInvoiceRepository) Save(ctx context.Context, invoice *billing.Invoice) error {
	args := m.Called(ctx, invoice)
	return args.Error(0)
}

func (m *MockInvoiceRepository) SaveWithLock(ctx context.Context, invoice *billing.Invoice) error {
	args := m.Called(ctx, invoice)
	return args.Error(0)
}

// MockPaymentRepository is a mock implementation of PaymentRepository
type MockPaymentRepository struct {
	mock.Mock
}

func (m *MockPaymentRepository) FindByInvoice(ctx context.Context, invoiceID uuid.UUID) ([]billing.Payment, error) {
	args := m.Called(ctx, invoiceID)
	return args.Get(0).([]billing.Payment), args.Error(1)
}

func (m *MockPaymentRepository) SumByInvoice(ctx context.Context, invoiceID uuid.UUID) (decimal.Decimal, error) {
	args := m.Called(ctx, invoiceID)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *MockPaymentRepository) SumByInvoicesUpTo(ctx context.Context, invoiceIDs []uuid.UUID, upTo time.Time) (map[uuid.UUID]decimal.Decimal, error) {
	args := m.Called(ctx, invoiceIDs, upTo)
	return args.Get(0).(map[uuid.UUID]decimal.Decimal), args.Error(1)
}

func (m *MockPaymentRepository) SumCollected(ctx context.Context, upTo time.Time) (decimal.Decimal, error) {
	args := m.Called(ctx, upTo)
	return args.Get(0).(decimal.Decimal), args.Error(1)
}

func (m *MockPaymentRepository) Save(ctx context.Context, payment *billing.Payment) error {
	args := m.Called(ctx, payment)
	return args.Error(0)
}

// MockActivityLogRepository is a mock implementation of ActivityLogRepository
type MockActivityLogRepository struct {
	mock.Mock
}

func (m *MockActivityLogRepository) Save(ctx context.Context, entry *billing.ActivityLog) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockActivityLogRepository) FindAll(ctx context.Context, filter billing.ActivityLogFilter) ([]billing.ActivityLog, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]billing.ActivityLog), args.Error(1)
}

func (m *MockActivityLogRepository) Count(ctx context.Context, filter billing.ActivityLogFilter) (int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).(int64), args.Error(1)
}

// MockMoraSnapshotRepository is a mock implementation of MoraSnapshotRepository
type MockMoraSnapshotRepository struct {
	mock.Mock
}

func (m *MockMoraSnapshotRepository) Upsert(ctx context.Context, snapshot *billing.MoraSnapshot) error {
	args := m.Called(ctx, snapshot)
	return args.Error(0)
}

func (m *MockMoraSnapshotRepository) FindByInvoice(ctx context.Context, invoiceID uuid.UUID) ([]billing.MoraSnapshot, error) {
	args := m.Called(ctx, invoiceID)
	return args.Get(0).([]billing.MoraSnapshot), args.Error(1)
}

// =============================================================================
// Test doubles
// =============================================================================

// sequenceNumbers hands out FAC-000001, FAC-000002, ...
type sequenceNumbers struct {
	mu   sync.Mutex
	next int64
	err  error
}

func (g *sequenceNumbers) Next(context.Context) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return "", g.err
	}
	g.next++
	return billing.FormatInvoiceNumber("FAC", g.next), nil
}

// recordingPublisher keeps every published event
type recordingPublisher struct {
	mu     sync.Mutex
	events []shared.DomainEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, events ...shared.DomainEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, events...)
	return p.err
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.EventType()
	}
	return out
}

// memoryIdempotency is a map-backed IdempotencyStore
type memoryIdempotency struct {
	mu   sync.Mutex
	keys map[string]bool
}

func newMemoryIdempotency() *memoryIdempotency {
	return &memoryIdempotency{keys: make(map[string]bool)}
}

func (s *memoryIdempotency) MarkProcessed(_ context.Context, key string, _ time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.keys[key] {
		return false, nil
	}
	s.keys[key] = true
	return true, nil
}

func (s *memoryIdempotency) IsProcessed(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.keys[key], nil
}

func (s *memoryIdempotency) Release(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.keys, key)
	return nil
}

func (s *memoryIdempotency) Close() error { return nil }

// countingMetrics counts metric calls
type countingMetrics struct {
	issued   int
	payments int
	lateFees []decimal.Decimal
}

func (m *countingMetrics) RecordInvoiceIssued(context.Context, decimal.Decimal) { m.issued++ }
func (m *countingMetrics) RecordPayment(context.Context, billing.PaymentMethod, decimal.Decimal, bool) {
	m.payments++
}
func (m *countingMetrics) RecordLateFeeAssessed(_ context.Context, fee decimal.Decimal) {
	m.lateFees = append(m.lateFees, fee)
}

// =============================================================================
// Fixtures
// =============================================================================

var (
	testNow      = time.Date(2025, 1, 1, 9, 30, 0, 0, time.UTC)
	testOperator = uuid.MustParse("11111111-1111-1111-1111-111111111111")
	testAdmin    = uuid.MustParse("22222222-2222-2222-2222-222222222222")
)

func fixedClock(t time.Time) Clock {
	return ClockFunc(func() time.Time { return t })
}

func testEngine() *billing.Engine {
	return billing.MustNewEngine(billing.DefaultEngineConfig())
}

func mustDate(s string) time.Time {
	d, err := billing.ParseDate("date", s)
	if err != nil {
		panic(err)
	}
	return d
}

func assertDecimalString(t *testing.T, expected string, actual decimal.Decimal) {
	t.Helper()
	assert.True(t, decimal.RequireFromString(expected).Equal(actual), "expected %s, got %s", expected, actual)
}

func newActiveClient() *billing.Client {
	c, err := billing.NewClient("C-001", "Maria Lopez", "Calle 1", "555-0101", "M-100", testNow)
	if err != nil {
		panic(err)
	}
	c.ClearDomainEvents()
	return c
}

// newPendingInvoice returns an invoice for 5000 units (total 1050) due 2025-01-31
func newPendingInvoice() *billing.Invoice {
	inv, err := billing.NewInvoice(testEngine(), billing.NewInvoiceParams{
		Number:          "FAC-000001",
		ClientID:        uuid.New(),
		PeriodStart:     mustDate("2024-12-01"),
		PeriodEnd:       mustDate("2024-12-31"),
		IssueDate:       mustDate("2025-01-01"),
		DueDate:         mustDate("2025-01-31"),
		ReadingPrevious: 10000,
		ReadingCurrent:  15000,
		CreatedBy:       testOperator,
		At:              testNow,
	})
	if err != nil {
		panic(err)
	}
	inv.ClearDomainEvents()
	return inv
}
