package persistence

import (
	"context"

	appbilling "github.com/agualoti/backend/internal/application/billing"
	"github.com/agualoti/backend/internal/domain/billing"
	"gorm.io/gorm"
)

// GormTransactionScope implements TransactionScope using GORM transactions.
// Invoice issuance and payment recording run their reads and writes in one.
type GormTransactionScope struct {
	db            *gorm.DB
	invoicePrefix string
}

// NewGormTransactionScope creates a new GormTransactionScope.
func NewGormTransactionScope(db *gorm.DB, invoicePrefix string) *GormTransactionScope {
	return &GormTransactionScope{db: db, invoicePrefix: invoicePrefix}
}

// Execute runs fn within a database transaction. The transaction is rolled
// back when fn returns an error and committed otherwise.
func (s *GormTransactionScope) Execute(ctx context.Context, fn func(repos appbilling.TransactionalRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTransactionalRepositories{tx: tx, invoicePrefix: s.invoicePrefix})
	})
}

// gormTransactionalRepositories binds every repository to the current transaction.
type gormTransactionalRepositories struct {
	tx            *gorm.DB
	invoicePrefix string
}

func (r *gormTransactionalRepositories) Invoices() billing.InvoiceRepository {
	return NewGormInvoiceRepository(r.tx)
}

func (r *gormTransactionalRepositories) Payments() billing.PaymentRepository {
	return NewGormPaymentRepository(r.tx)
}

func (r *gormTransactionalRepositories) Readings() billing.ReadingRepository {
	return NewGormReadingRepository(r.tx)
}

func (r *gormTransactionalRepositories) InvoiceNumbers() billing.InvoiceNumberGenerator {
	return NewGormInvoiceNumberGenerator(r.tx, r.invoicePrefix)
}

var (
	_ appbilling.TransactionScope          = (*GormTransactionScope)(nil)
	_ appbilling.TransactionalRepositories = (*gormTransactionalRepositories)(nil)
)
