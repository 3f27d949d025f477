package persistence

import (
	"context"

	"github.com/agualoti/backend/internal/domain/billing"
	"github.com/agualoti/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormActivityLogRepository implements billing.ActivityLogRepository using GORM
type GormActivityLogRepository struct {
	db *gorm.DB
}

// NewGormActivityLogRepository creates a new GormActivityLogRepository
func NewGormActivityLogRepository(db *gorm.DB) *GormActivityLogRepository {
	return &GormActivityLogRepository{db: db}
}

// Save appends an entry
func (r *GormActivityLogRepository) Save(ctx context.Context, entry *billing.ActivityLog) error {
	return r.db.WithContext(ctx).Create(models.ActivityLogModelFromDomain(entry)).Error
}

// FindAll lists entries matching the filter
func (r *GormActivityLogRepository) FindAll(ctx context.Context, filter billing.ActivityLogFilter) ([]billing.ActivityLog, error) {
	var rows []models.ActivityLogModel
	query := paginate(r.applyFilter(r.db.WithContext(ctx).Model(&models.ActivityLogModel{}), filter), filter.Filter).
		Order(orderClause(filter.OrderBy, filter.OrderDir, ActivityLogSortFields, "occurred_at"))
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}

	entries := make([]billing.ActivityLog, len(rows))
	for i := range rows {
		entries[i] = *rows[i].ToDomain()
	}
	return entries, nil
}

// Count counts entries matching the filter
func (r *GormActivityLogRepository) Count(ctx context.Context, filter billing.ActivityLogFilter) (int64, error) {
	var count int64
	err := r.applyFilter(r.db.WithContext(ctx).Model(&models.ActivityLogModel{}), filter).Count(&count).Error
	return count, err
}

func (r *GormActivityLogRepository) applyFilter(query *gorm.DB, filter billing.ActivityLogFilter) *gorm.DB {
	if filter.EntityType != "" {
		query = query.Where("entity_type = ?", filter.EntityType)
	}
	if filter.EntityID != nil {
		query = query.Where("entity_id = ?", *filter.EntityID)
	}
	if filter.ActorID != nil {
		query = query.Where("actor_id = ?", *filter.ActorID)
	}
	return query
}

// GormMoraSnapshotRepository implements billing.MoraSnapshotRepository using GORM
type GormMoraSnapshotRepository struct {
	db *gorm.DB
}

// NewGormMoraSnapshotRepository creates a new GormMoraSnapshotRepository
func NewGormMoraSnapshotRepository(db *gorm.DB) *GormMoraSnapshotRepository {
	return &GormMoraSnapshotRepository{db: db}
}

// Upsert stores the snapshot, replacing the figures of an existing one for the same day
func (r *GormMoraSnapshotRepository) Upsert(ctx context.Context, snapshot *billing.MoraSnapshot) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "invoice_id"}, {Name: "evaluated_on"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"days_overdue", "months_overdue", "late_fee", "total_with_late_fee", "updated_at",
			}),
		}).
		Create(models.MoraSnapshotModelFromDomain(snapshot)).Error
}

// FindByInvoice lists an invoice's snapshots, newest first
func (r *GormMoraSnapshotRepository) FindByInvoice(ctx context.Context, invoiceID uuid.UUID) ([]billing.MoraSnapshot, error) {
	var rows []models.MoraSnapshotModel
	if err := r.db.WithContext(ctx).
		Where("invoice_id = ?", invoiceID).
		Order("evaluated_on DESC").
		Find(&rows).Error; err != nil {
		return nil, err
	}

	snapshots := make([]billing.MoraSnapshot, len(rows))
	for i := range rows {
		snapshots[i] = *rows[i].ToDomain()
	}
	return snapshots, nil
}

var (
	_ billing.ActivityLogRepository  = (*GormActivityLogRepository)(nil)
	_ billing.MoraSnapshotRepository = (*GormMoraSnapshotRepository)(nil)
)
