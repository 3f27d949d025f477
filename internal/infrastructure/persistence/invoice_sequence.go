package persistence

import (
	"context"
	"fmt"

	"github.com/agualoti/backend/internal/domain/billing"
	"gorm.io/gorm"
)

// GormInvoiceNumberGenerator hands out invoice numbers from the invoice_sequences
// table. The increment is a single atomic upsert, so concurrent issuers never
// share a number; inside a transaction a rollback also returns the number.
type GormInvoiceNumberGenerator struct {
	db     *gorm.DB
	prefix string
}

// NewGormInvoiceNumberGenerator creates a generator for numbers like FAC-000042
func NewGormInvoiceNumberGenerator(db *gorm.DB, prefix string) *GormInvoiceNumberGenerator {
	return &GormInvoiceNumberGenerator{db: db, prefix: prefix}
}

// Next returns the next invoice number
func (g *GormInvoiceNumberGenerator) Next(ctx context.Context) (string, error) {
	var value int64
	err := g.db.WithContext(ctx).Raw(
		`INSERT INTO invoice_sequences (name, value) VALUES (?, 1)
		 ON CONFLICT (name) DO UPDATE SET value = invoice_sequences.value + 1
		 RETURNING value`, g.prefix).
		Scan(&value).Error
	if err != nil {
		return "", fmt.Errorf("next invoice number: %w", err)
	}
	return billing.FormatInvoiceNumber(g.prefix, value), nil
}

var _ billing.InvoiceNumberGenerator = (*GormInvoiceNumberGenerator)(nil)
