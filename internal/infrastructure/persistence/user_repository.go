package persistence

import (
	"context"
	"errors"
	"strings"

	"github.com/agualoti/backend/internal/domain/identity"
	"github.com/agualoti/backend/internal/domain/shared"
	"github.com/agualoti/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormUserRepository stores operator accounts in the users table.
// Usernames are matched case-insensitively everywhere.
type GormUserRepository struct {
	db *gorm.DB
}

func NewGormUserRepository(db *gorm.DB) *GormUserRepository {
	return &GormUserRepository{db: db}
}

func (r *GormUserRepository) FindByID(ctx context.Context, id uuid.UUID) (*identity.User, error) {
	return r.first(r.db.WithContext(ctx).Where("id = ?", id))
}

func (r *GormUserRepository) FindByUsername(ctx context.Context, username string) (*identity.User, error) {
	return r.first(r.byUsername(ctx, username))
}

func (r *GormUserRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	var n int64
	err := r.byUsername(ctx, username).Model(&models.UserModel{}).Limit(1).Count(&n).Error
	return n > 0, err
}

// Save inserts new accounts and overwrites existing ones, last login included
func (r *GormUserRepository) Save(ctx context.Context, user *identity.User) error {
	return r.db.WithContext(ctx).Save(models.UserModelFromDomain(user)).Error
}

func (r *GormUserRepository) byUsername(ctx context.Context, username string) *gorm.DB {
	return r.db.WithContext(ctx).Where("LOWER(username) = ?", strings.ToLower(strings.TrimSpace(username)))
}

func (r *GormUserRepository) first(query *gorm.DB) (*identity.User, error) {
	var row models.UserModel
	if err := notFound(query.Take(&row).Error); err != nil {
		return nil, err
	}
	return row.ToDomain(), nil
}

// notFound maps a GORM miss to shared.ErrNotFound
func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return shared.ErrNotFound
	}
	return err
}

var _ identity.UserRepository = (*GormUserRepository)(nil)
