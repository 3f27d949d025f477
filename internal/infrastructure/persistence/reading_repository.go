package persistence

import (
	"context"

	"github.com/agualoti/backend/internal/domain/billing"
	"github.com/agualoti/backend/internal/domain/shared"
	"github.com/agualoti/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormReadingRepository implements billing.ReadingRepository using GORM
type GormReadingRepository struct {
	db *gorm.DB
}

// NewGormReadingRepository creates a new GormReadingRepository
func NewGormReadingRepository(db *gorm.DB) *GormReadingRepository {
	return &GormReadingRepository{db: db}
}

// FindByID finds a reading by its ID
func (r *GormReadingRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.Reading, error) {
	var model models.ReadingModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return model.ToDomain(), nil
}

// FindLatestByClient returns the client's most recent reading
func (r *GormReadingRepository) FindLatestByClient(ctx context.Context, clientID uuid.UUID) (*billing.Reading, error) {
	var model models.ReadingModel
	if err := r.db.WithContext(ctx).
		Where("client_id = ?", clientID).
		Order("read_on DESC, created_at DESC").
		First(&model).Error; err != nil {
		return nil, notFound(err)
	}
	return model.ToDomain(), nil
}

// FindByClient lists a client's readings
func (r *GormReadingRepository) FindByClient(ctx context.Context, clientID uuid.UUID, filter shared.Filter) ([]billing.Reading, error) {
	var rows []models.ReadingModel
	query := paginate(r.db.WithContext(ctx).Where("client_id = ?", clientID), filter).
		Order(orderClause(filter.OrderBy, filter.OrderDir, ReadingSortFields, "read_on"))
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}

	readings := make([]billing.Reading, len(rows))
	for i := range rows {
		readings[i] = *rows[i].ToDomain()
	}
	return readings, nil
}

// CountByClient counts a client's readings
func (r *GormReadingRepository) CountByClient(ctx context.Context, clientID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.ReadingModel{}).Where("client_id = ?", clientID).Count(&count).Error
	return count, err
}

// Save creates or updates a reading
func (r *GormReadingRepository) Save(ctx context.Context, reading *billing.Reading) error {
	return r.db.WithContext(ctx).Save(models.ReadingModelFromDomain(reading)).Error
}

var _ billing.ReadingRepository = (*GormReadingRepository)(nil)
