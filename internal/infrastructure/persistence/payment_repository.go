package persistence

import (
	"context"
	"time"

	"github.com/agualoti/backend/internal/domain/billing"
	"github.com/agualoti/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// GormPaymentRepository implements billing.PaymentRepository using GORM
type GormPaymentRepository struct {
	db *gorm.DB
}

// NewGormPaymentRepository creates a new GormPaymentRepository
func NewGormPaymentRepository(db *gorm.DB) *GormPaymentRepository {
	return &GormPaymentRepository{db: db}
}

// FindByInvoice lists an invoice's payments in the order they were received
func (r *GormPaymentRepository) FindByInvoice(ctx context.Context, invoiceID uuid.UUID) ([]billing.Payment, error) {
	var rows []models.PaymentModel
	if err := r.db.WithContext(ctx).
		Where("invoice_id = ?", invoiceID).
		Order("paid_on ASC, created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}

	payments := make([]billing.Payment, len(rows))
	for i := range rows {
		payments[i] = *rows[i].ToDomain()
	}
	return payments, nil
}

// SumByInvoice totals the payments of one invoice
func (r *GormPaymentRepository) SumByInvoice(ctx context.Context, invoiceID uuid.UUID) (decimal.Decimal, error) {
	return r.sum(r.db.WithContext(ctx).Model(&models.PaymentModel{}).Where("invoice_id = ?", invoiceID))
}

// SumByInvoicesUpTo totals the payments received on or before upTo for each
// of the given invoices in one grouped query
func (r *GormPaymentRepository) SumByInvoicesUpTo(ctx context.Context, invoiceIDs []uuid.UUID, upTo time.Time) (map[uuid.UUID]decimal.Decimal, error) {
	sums := make(map[uuid.UUID]decimal.Decimal, len(invoiceIDs))
	if len(invoiceIDs) == 0 {
		return sums, nil
	}
	var rows []struct {
		InvoiceID uuid.UUID
		Total     decimal.Decimal
	}
	if err := r.db.WithContext(ctx).
		Model(&models.PaymentModel{}).
		Select("invoice_id, COALESCE(SUM(amount), 0) AS total").
		Where("invoice_id IN ? AND paid_on <= ?", invoiceIDs, billing.DateOf(upTo)).
		Group("invoice_id").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		sums[row.InvoiceID] = row.Total.Round(2)
	}
	return sums, nil
}

// SumCollected totals payments received on or before a day
func (r *GormPaymentRepository) SumCollected(ctx context.Context, upTo time.Time) (decimal.Decimal, error) {
	return r.sum(r.db.WithContext(ctx).Model(&models.PaymentModel{}).Where("paid_on <= ?", billing.DateOf(upTo)))
}

// sum rounds to cents since sqlite aggregates NUMERIC columns as floats
func (r *GormPaymentRepository) sum(query *gorm.DB) (decimal.Decimal, error) {
	var total decimal.Decimal
	if err := query.Select("COALESCE(SUM(amount), 0)").Row().Scan(&total); err != nil {
		return decimal.Zero, err
	}
	return total.Round(2), nil
}

// Save appends a payment
func (r *GormPaymentRepository) Save(ctx context.Context, payment *billing.Payment) error {
	return r.db.WithContext(ctx).Create(models.PaymentModelFromDomain(payment)).Error
}

var _ billing.PaymentRepository = (*GormPaymentRepository)(nil)
