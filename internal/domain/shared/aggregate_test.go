package shared

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestBaseAggregateRoot_Touch(t *testing.T) {
	created := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	agg := NewBaseAggregateRoot(created)

	assert.NotEqual(t, uuid.Nil, agg.ID)
	assert.Equal(t, 1, agg.Version)
	assert.Equal(t, created, agg.CreatedAt)

	later := created.Add(time.Hour)
	agg.Touch(later)
	assert.Equal(t, 2, agg.Version)
	assert.Equal(t, later, agg.UpdatedAt)
	assert.Equal(t, created, agg.CreatedAt)
}

func TestBaseAggregateRoot_Events(t *testing.T) {
	agg := NewBaseAggregateRoot(time.Now())
	assert.Empty(t, agg.GetDomainEvents())

	ev := NewBaseDomainEvent("InvoiceIssued", "Invoice", agg.ID, uuid.Nil, time.Now())
	agg.AddDomainEvent(&ev)
	assert.Len(t, agg.GetDomainEvents(), 1)

	agg.ClearDomainEvents()
	assert.Empty(t, agg.GetDomainEvents())
}

func TestNewBaseEntity_ZeroTime(t *testing.T) {
	e := NewBaseEntity(time.Time{})
	assert.False(t, e.CreatedAt.IsZero())
	assert.Equal(t, e.CreatedAt, e.UpdatedAt)
}
