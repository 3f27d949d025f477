package billing

import (
	"context"
	"errors"
	"time"

	"github.com/agualoti/backend/internal/domain/billing"
	"github.com/agualoti/backend/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ReadingService captures meter readings
type ReadingService struct {
	readingRepo billing.ReadingRepository
	clientRepo  billing.ClientRepository
	events      shared.EventPublisher
	clock       Clock
	logger      *zap.Logger
}

// NewReadingService creates a new ReadingService
func NewReadingService(
	readingRepo billing.ReadingRepository,
	clientRepo billing.ClientRepository,
	events shared.EventPublisher,
	clock Clock,
	logger *zap.Logger,
) *ReadingService {
	if clock == nil {
		clock = SystemClock()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReadingService{
		readingRepo: readingRepo,
		clientRepo:  clientRepo,
		events:      events,
		clock:       clock,
		logger:      logger,
	}
}

// Record stores a reading for an active client. When no previous value is
// given, the client's last current reading is used, or zero for a first reading.
func (s *ReadingService) Record(ctx context.Context, req RecordReadingRequest, operatorID uuid.UUID) (*ReadingResponse, error) {
	client, err := s.clientRepo.FindByID(ctx, req.ClientID)
	if err != nil {
		return nil, err
	}
	if !client.IsActive() {
		return nil, shared.NewFieldError(shared.ErrInvalidState.Code, "client_id", "Cannot record readings for an inactive client")
	}

	previous, err := s.resolvePrevious(ctx, req)
	if err != nil {
		return nil, err
	}

	periodStart, err := billing.ParseDate("period_start", req.PeriodStart)
	if err != nil {
		return nil, err
	}
	periodEnd, err := billing.ParseDate("period_end", req.PeriodEnd)
	if err != nil {
		return nil, err
	}
	var readOn time.Time
	if req.ReadOn != "" {
		if readOn, err = billing.ParseDate("read_on", req.ReadOn); err != nil {
			return nil, err
		}
	}

	reading, err := billing.NewReading(billing.NewReadingParams{
		ClientID:    client.ID,
		Previous:    previous,
		Current:     req.Current,
		ReadOn:      readOn,
		PeriodStart: periodStart,
		PeriodEnd:   periodEnd,
		RecordedBy:  operatorID,
		At:          s.clock.Now(),
	})
	if err != nil {
		return nil, err
	}

	if err := s.readingRepo.Save(ctx, reading); err != nil {
		return nil, err
	}

	s.logger.Info("Meter reading recorded",
		zap.String("reading_id", reading.ID.String()),
		zap.String("client_id", client.ID.String()),
		zap.Int64("consumption", reading.Consumption()))

	publishEvents(ctx, s.events, s.logger, reading)

	response := ToReadingResponse(reading)
	return &response, nil
}

func (s *ReadingService) resolvePrevious(ctx context.Context, req RecordReadingRequest) (int64, error) {
	if req.Previous != nil {
		return *req.Previous, nil
	}
	last, err := s.readingRepo.FindLatestByClient(ctx, req.ClientID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return last.Current, nil
}

// GetByID retrieves a reading
func (s *ReadingService) GetByID(ctx context.Context, id uuid.UUID) (*ReadingResponse, error) {
	reading, err := s.readingRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	response := ToReadingResponse(reading)
	return &response, nil
}

// ListByClient returns a client's readings, newest first
func (s *ReadingService) ListByClient(ctx context.Context, clientID uuid.UUID, page, pageSize int) ([]ReadingResponse, int64, error) {
	filter := shared.DefaultFilter()
	if page > 0 {
		filter.Page = page
	}
	if pageSize > 0 {
		filter.PageSize = pageSize
	}
	filter.OrderBy = "read_on"

	readings, err := s.readingRepo.FindByClient(ctx, clientID, filter)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.readingRepo.CountByClient(ctx, clientID)
	if err != nil {
		return nil, 0, err
	}

	responses := make([]ReadingResponse, len(readings))
	for i := range readings {
		responses[i] = ToReadingResponse(&readings[i])
	}
	return responses, total, nil
}
