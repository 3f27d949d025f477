package billing

import (
	"context"
	"fmt"

	"github.com/agualoti/backend/internal/domain/billing"
	"github.com/agualoti/backend/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ActivityLogHandler turns billing domain events into activity log entries
type ActivityLogHandler struct {
	repo   billing.ActivityLogRepository
	logger *zap.Logger
}

// NewActivityLogHandler creates a new ActivityLogHandler
func NewActivityLogHandler(repo billing.ActivityLogRepository, logger *zap.Logger) *ActivityLogHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ActivityLogHandler{repo: repo, logger: logger}
}

// EventTypes returns the events recorded in the activity log
func (h *ActivityLogHandler) EventTypes() []string {
	return []string{
		billing.EventTypeInvoiceCreated,
		billing.EventTypeInvoiceDueDateAmended,
		billing.EventTypeInvoicePaid,
		billing.EventTypeInvoiceVoided,
		billing.EventTypePaymentRecorded,
		billing.EventTypeReadingRecorded,
		billing.EventTypeClientRegistered,
	}
}

// Handle stores one activity log entry for the event
func (h *ActivityLogHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	entry := billing.NewActivityLog(
		event.EventType(),
		event.AggregateType(),
		event.AggregateID(),
		event.ActorID(),
		describeEvent(event),
		event.OccurredAt(),
	)
	if err := h.repo.Save(ctx, entry); err != nil {
		return fmt.Errorf("failed to save activity log: %w", err)
	}
	h.logger.Debug("Activity logged",
		zap.String("event_type", event.EventType()),
		zap.String("entity_id", event.AggregateID().String()))
	return nil
}

func describeEvent(event shared.DomainEvent) string {
	switch e := event.(type) {
	case *billing.InvoiceCreatedEvent:
		return fmt.Sprintf("Invoice %s issued for %s (consumption %d)", e.InvoiceNumber, e.TotalAmount.String(), e.Consumption)
	case *billing.InvoiceDueDateAmendedEvent:
		return fmt.Sprintf("Invoice %s due date moved from %s to %s: %s", e.InvoiceNumber,
			billing.FormatDate(e.OldDueDate), billing.FormatDate(e.NewDueDate), e.Justification)
	case *billing.InvoicePaidEvent:
		return fmt.Sprintf("Invoice %s paid, total %s plus mora %s", e.InvoiceNumber, e.TotalAmount.String(), e.LateFee.String())
	case *billing.InvoiceVoidedEvent:
		return fmt.Sprintf("Invoice %s voided: %s", e.InvoiceNumber, e.Reason)
	case *billing.PaymentRecordedEvent:
		return fmt.Sprintf("Payment of %s by %s on invoice %s", e.Amount.String(), e.Method, e.InvoiceNumber)
	case *billing.ReadingRecordedEvent:
		return fmt.Sprintf("Reading recorded, consumption %d", e.Consumption)
	case *billing.ClientRegisteredEvent:
		return fmt.Sprintf("Client %s registered: %s", e.Code, e.Name)
	default:
		return event.EventType()
	}
}

var _ shared.EventHandler = (*ActivityLogHandler)(nil)

// ActivityLogService lists activity log entries
type ActivityLogService struct {
	repo billing.ActivityLogRepository
}

// NewActivityLogService creates a new ActivityLogService
func NewActivityLogService(repo billing.ActivityLogRepository) *ActivityLogService {
	return &ActivityLogService{repo: repo}
}

// List returns activity entries, newest first
func (s *ActivityLogService) List(ctx context.Context, f ActivityLogFilter) ([]ActivityLogResponse, int64, error) {
	filter := billing.ActivityLogFilter{Filter: shared.DefaultFilter()}
	filter.OrderBy = "occurred_at"
	if f.Page > 0 {
		filter.Page = f.Page
	}
	if f.PageSize > 0 {
		filter.PageSize = f.PageSize
	}
	filter.EntityType = f.EntityType
	if f.EntityID != "" {
		id, err := uuid.Parse(f.EntityID)
		if err != nil {
			return nil, 0, shared.NewFieldError(shared.ErrInvalidInput.Code, "entity_id", "Entity ID is not a valid UUID")
		}
		filter.EntityID = &id
	}

	entries, err := s.repo.FindAll(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.repo.Count(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	responses := make([]ActivityLogResponse, len(entries))
	for i, e := range entries {
		responses[i] = ActivityLogResponse{
			ID:         e.ID,
			Action:     e.Action,
			EntityType: e.EntityType,
			EntityID:   e.EntityID,
			ActorID:    e.ActorID,
			Details:    e.Details,
			OccurredAt: e.OccurredAt,
		}
	}
	return responses, total, nil
}
