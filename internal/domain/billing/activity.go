package billing

import (
	"time"

	"github.com/agualoti/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ActivityLog is one line of the operator-visible activity history
type ActivityLog struct {
	shared.BaseEntity
	Action     string
	EntityType string
	EntityID   uuid.UUID
	ActorID    uuid.UUID
	Details    string
	OccurredAt time.Time
}

// NewActivityLog creates an activity log entry
func NewActivityLog(action, entityType string, entityID, actorID uuid.UUID, details string, occurredAt time.Time) *ActivityLog {
	return &ActivityLog{
		BaseEntity: shared.NewBaseEntity(occurredAt),
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		ActorID:    actorID,
		Details:    details,
		OccurredAt: occurredAt,
	}
}

// MoraSnapshot is a persisted late-fee assessment of one invoice on one date.
// The invoice itself is never modified by snapshotting.
type MoraSnapshot struct {
	shared.BaseEntity
	InvoiceID        uuid.UUID
	EvaluatedOn      time.Time
	DaysOverdue      int
	MonthsOverdue    int
	LateFee          decimal.Decimal
	TotalWithLateFee decimal.Decimal
}

// NewMoraSnapshot captures an assessment for an invoice
func NewMoraSnapshot(invoiceID uuid.UUID, a LateFeeAssessment, at time.Time) *MoraSnapshot {
	return &MoraSnapshot{
		BaseEntity:       shared.NewBaseEntity(at),
		InvoiceID:        invoiceID,
		EvaluatedOn:      a.EvaluatedOn,
		DaysOverdue:      a.DaysOverdue,
		MonthsOverdue:    a.MonthsOverdue,
		LateFee:          a.LateFee,
		TotalWithLateFee: a.TotalWithLateFee,
	}
}
