package persistence

import (
	"context"
	"time"

	"github.com/agualoti/backend/internal/domain/billing"
	"github.com/agualoti/backend/internal/domain/shared"
	"github.com/agualoti/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormInvoiceRepository implements billing.InvoiceRepository using GORM
type GormInvoiceRepository struct {
	db *gorm.DB
}

// NewGormInvoiceRepository creates a new GormInvoiceRepository
func NewGormInvoiceRepository(db *gorm.DB) *GormInvoiceRepository {
	return &GormInvoiceRepository{db: db}
}

// FindByID finds an invoice by its ID
func (r *GormInvoiceRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.Invoice, error) {
	var model models.InvoiceModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return model.ToDomain(), nil
}

// FindByIDForUpdate loads an invoice with SELECT ... FOR UPDATE. It only
// locks inside a transaction; the sqlite dialect drops the clause and relies
// on its single writer instead.
func (r *GormInvoiceRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*billing.Invoice, error) {
	var model models.InvoiceModel
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		Take(&model).Error; err != nil {
		return nil, notFound(err)
	}
	return model.ToDomain(), nil
}

// FindByNumber finds an invoice by its number
func (r *GormInvoiceRepository) FindByNumber(ctx context.Context, number string) (*billing.Invoice, error) {
	var model models.InvoiceModel
	if err := r.db.WithContext(ctx).Where("number = ?", number).First(&model).Error; err != nil {
		return nil, notFound(err)
	}
	return model.ToDomain(), nil
}

// FindAll finds all invoices matching the filter
func (r *GormInvoiceRepository) FindAll(ctx context.Context, filter billing.InvoiceFilter) ([]billing.Invoice, error) {
	var rows []models.InvoiceModel
	query := paginate(r.applyFilter(r.db.WithContext(ctx).Model(&models.InvoiceModel{}), filter), filter.Filter).
		Order(orderClause(filter.OrderBy, filter.OrderDir, InvoiceSortFields, "issue_date"))
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return toInvoices(rows), nil
}

// Count counts invoices matching the filter
func (r *GormInvoiceRepository) Count(ctx context.Context, filter billing.InvoiceFilter) (int64, error) {
	var count int64
	err := r.applyFilter(r.db.WithContext(ctx).Model(&models.InvoiceModel{}), filter).Count(&count).Error
	return count, err
}

// FindPending returns pending invoices, oldest due date first
func (r *GormInvoiceRepository) FindPending(ctx context.Context, dueBefore *time.Time) ([]billing.Invoice, error) {
	var rows []models.InvoiceModel
	query := r.db.WithContext(ctx).Where("status = ?", billing.InvoiceStatusPending)
	if dueBefore != nil {
		query = query.Where("due_date < ?", billing.DateOf(*dueBefore))
	}
	if err := query.Order("due_date ASC, number ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return toInvoices(rows), nil
}

// FindOpenAsOf returns invoices issued by asOf that were neither paid nor
// voided by the end of that day, oldest due date first
func (r *GormInvoiceRepository) FindOpenAsOf(ctx context.Context, asOf time.Time) ([]billing.Invoice, error) {
	day := billing.DateOf(asOf)
	end := day.AddDate(0, 0, 1)
	var rows []models.InvoiceModel
	if err := r.db.WithContext(ctx).
		Where("issue_date <= ?", day).
		Where("(status = ? OR (status = ? AND paid_at >= ?) OR (status = ? AND voided_at >= ?))",
			billing.InvoiceStatusPending, billing.InvoiceStatusPaid, end, billing.InvoiceStatusVoided, end).
		Order("due_date ASC, number ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return toInvoices(rows), nil
}

// StatusTotals counts invoices issued by asOf, and sums what they billed, per
// status held at the end of that day. Invoices paid or voided later count as pending.
func (r *GormInvoiceRepository) StatusTotals(ctx context.Context, asOf time.Time) ([]billing.StatusTotal, error) {
	day := billing.DateOf(asOf)
	end := day.AddDate(0, 0, 1)
	var rows []struct {
		Status      billing.InvoiceStatus
		Count       int64
		TotalAmount decimal.Decimal
	}
	if err := r.db.WithContext(ctx).
		Model(&models.InvoiceModel{}).
		Select(`CASE
			WHEN status = ? AND voided_at < ? THEN ?
			WHEN status = ? AND paid_at < ? THEN ?
			ELSE ? END AS status,
			COUNT(*) AS count,
			COALESCE(SUM(total_amount), 0) AS total_amount`,
			billing.InvoiceStatusVoided, end, billing.InvoiceStatusVoided,
			billing.InvoiceStatusPaid, end, billing.InvoiceStatusPaid,
			billing.InvoiceStatusPending).
		Where("issue_date <= ?", day).
		Group("1").
		Order("1").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	totals := make([]billing.StatusTotal, len(rows))
	for i, row := range rows {
		totals[i] = billing.StatusTotal{
			Status:      row.Status,
			Count:       row.Count,
			TotalAmount: row.TotalAmount.Round(2),
		}
	}
	return totals, nil
}

// Save inserts a new invoice
func (r *GormInvoiceRepository) Save(ctx context.Context, invoice *billing.Invoice) error {
	return r.db.WithContext(ctx).Create(models.InvoiceModelFromDomain(invoice)).Error
}

// SaveWithLock updates the mutable columns if nobody else changed the invoice
// since it was loaded. The pricing breakdown is never rewritten.
func (r *GormInvoiceRepository) SaveWithLock(ctx context.Context, invoice *billing.Invoice) error {
	model := models.InvoiceModelFromDomain(invoice)
	result := r.db.WithContext(ctx).
		Model(&models.InvoiceModel{}).
		Where("id = ? AND version = ?", invoice.ID, invoice.Version-1).
		Updates(map[string]interface{}{
			"due_date":         model.DueDate,
			"status":           model.Status,
			"settled_late_fee": model.SettledLateFee,
			"amended_by":       model.AmendedBy,
			"audit_notes":      model.AuditNotes,
			"paid_at":          model.PaidAt,
			"voided_at":        model.VoidedAt,
			"void_reason":      model.VoidReason,
			"version":          model.Version,
			"updated_at":       model.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	return nil
}

func (r *GormInvoiceRepository) applyFilter(query *gorm.DB, filter billing.InvoiceFilter) *gorm.DB {
	if filter.Search != "" {
		query = query.Where("number LIKE ?", "%"+escapeLike(filter.Search)+"%")
	}
	if filter.ClientID != nil {
		query = query.Where("client_id = ?", *filter.ClientID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.OverdueAsOf != nil {
		query = query.Where("status = ? AND due_date < ?", billing.InvoiceStatusPending, billing.DateOf(*filter.OverdueAsOf))
	}
	if filter.IssuedFrom != nil {
		query = query.Where("issue_date >= ?", billing.DateOf(*filter.IssuedFrom))
	}
	if filter.IssuedTo != nil {
		query = query.Where("issue_date <= ?", billing.DateOf(*filter.IssuedTo))
	}
	return query
}

func toInvoices(rows []models.InvoiceModel) []billing.Invoice {
	invoices := make([]billing.Invoice, len(rows))
	for i := range rows {
		invoices[i] = *rows[i].ToDomain()
	}
	return invoices
}

var _ billing.InvoiceRepository = (*GormInvoiceRepository)(nil)
