package shared

import (
	"time"

	"github.com/google/uuid"
)

// BaseEntity holds identity and audit timestamps shared by every record
type BaseEntity struct {
	ID        uuid.UUID
	CreatedAt time.Time
	UpdatedAt time.Time
}

// GetID returns the entity ID
func (e *BaseEntity) GetID() uuid.UUID {
	return e.ID
}

// NewBaseEntity assigns a fresh ID stamped at the given time.
// A zero time falls back to the wall clock.
func NewBaseEntity(at time.Time) BaseEntity {
	if at.IsZero() {
		at = time.Now()
	}
	return BaseEntity{ID: uuid.New(), CreatedAt: at, UpdatedAt: at}
}

// EventSource is anything that buffers domain events until they are published
type EventSource interface {
	GetID() uuid.UUID
	GetDomainEvents() []DomainEvent
	ClearDomainEvents()
}

// BaseAggregateRoot adds an optimistic-lock version and an event buffer.
// Clients, readings, invoices and user accounts embed it.
type BaseAggregateRoot struct {
	BaseEntity
	Version int
	pending []DomainEvent
}

// NewBaseAggregateRoot starts a new aggregate at version 1
func NewBaseAggregateRoot(at time.Time) BaseAggregateRoot {
	return BaseAggregateRoot{BaseEntity: NewBaseEntity(at), Version: 1}
}

// Touch records a mutation: UpdatedAt moves to at and Version goes up by one
func (a *BaseAggregateRoot) Touch(at time.Time) {
	a.UpdatedAt = at
	a.Version++
}

func (a *BaseAggregateRoot) AddDomainEvent(event DomainEvent) {
	a.pending = append(a.pending, event)
}

func (a *BaseAggregateRoot) GetDomainEvents() []DomainEvent {
	return a.pending
}

func (a *BaseAggregateRoot) ClearDomainEvents() {
	a.pending = nil
}

var _ EventSource = (*BaseAggregateRoot)(nil)
