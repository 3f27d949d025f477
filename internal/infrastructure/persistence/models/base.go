package models

import (
	"time"

	"github.com/agualoti/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// Record holds the columns every billing table has: id and audit timestamps.
// Payments, mora snapshots and activity entries are append-only and embed it directly.
type Record struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (r *Record) entity() shared.BaseEntity {
	return shared.BaseEntity{ID: r.ID, CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt}
}

func (r *Record) setEntity(e shared.BaseEntity) {
	r.ID, r.CreatedAt, r.UpdatedAt = e.ID, e.CreatedAt, e.UpdatedAt
}

// VersionedRecord adds the version column checked by optimistic-lock updates
// (see GormInvoiceRepository.SaveWithLock)
type VersionedRecord struct {
	Record
	Version int `gorm:"not null;default:1"`
}

// aggregate rebuilds the domain base with an empty event buffer
func (r *VersionedRecord) aggregate() shared.BaseAggregateRoot {
	return shared.BaseAggregateRoot{BaseEntity: r.entity(), Version: r.Version}
}

func (r *VersionedRecord) setAggregate(a shared.BaseAggregateRoot) {
	r.setEntity(a.BaseEntity)
	r.Version = a.Version
}
