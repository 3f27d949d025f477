package billing

import (
	"context"
	"strings"

	"github.com/agualoti/backend/internal/domain/billing"
	"github.com/agualoti/backend/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ClientService handles client registration and lookup
type ClientService struct {
	clientRepo billing.ClientRepository
	events     shared.EventPublisher
	clock      Clock
	logger     *zap.Logger
}

// NewClientService creates a new ClientService
func NewClientService(clientRepo billing.ClientRepository, events shared.EventPublisher, clock Clock, logger *zap.Logger) *ClientService {
	if clock == nil {
		clock = SystemClock()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ClientService{
		clientRepo: clientRepo,
		events:     events,
		clock:      clock,
		logger:     logger,
	}
}

// Register creates a client with a unique code
func (s *ClientService) Register(ctx context.Context, req RegisterClientRequest) (*ClientResponse, error) {
	exists, err := s.clientRepo.ExistsByCode(ctx, strings.TrimSpace(req.Code))
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, shared.NewFieldError(shared.ErrAlreadyExists.Code, "code", "Client with this code already exists")
	}

	client, err := billing.NewClient(req.Code, req.Name, req.Address, req.Phone, req.MeterNumber, s.clock.Now())
	if err != nil {
		return nil, err
	}

	if err := s.clientRepo.Save(ctx, client); err != nil {
		return nil, err
	}

	s.logger.Info("Client registered",
		zap.String("client_id", client.ID.String()),
		zap.String("code", client.Code))

	publishEvents(ctx, s.events, s.logger, client)

	response := ToClientResponse(client)
	return &response, nil
}

// GetByID retrieves a client by ID
func (s *ClientService) GetByID(ctx context.Context, id uuid.UUID) (*ClientResponse, error) {
	client, err := s.clientRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	response := ToClientResponse(client)
	return &response, nil
}

// List retrieves clients with filtering and pagination
func (s *ClientService) List(ctx context.Context, f ClientListFilter) ([]ClientResponse, int64, error) {
	filter := billing.ClientFilter{Filter: shared.DefaultFilter()}
	if f.Page > 0 {
		filter.Page = f.Page
	}
	if f.PageSize > 0 {
		filter.PageSize = f.PageSize
	}
	filter.OrderBy = "code"
	filter.OrderDir = "asc"
	filter.Search = billing.FoldSearch(f.Search)
	if f.Status != "" {
		status := billing.ClientStatus(f.Status)
		filter.Status = &status
	}

	clients, err := s.clientRepo.FindAll(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.clientRepo.Count(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	responses := make([]ClientResponse, len(clients))
	for i := range clients {
		responses[i] = ToClientResponse(&clients[i])
	}
	return responses, total, nil
}

// Deactivate stops billing a client
func (s *ClientService) Deactivate(ctx context.Context, id uuid.UUID) (*ClientResponse, error) {
	client, err := s.clientRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := client.Deactivate(s.clock.Now()); err != nil {
		return nil, err
	}
	if err := s.clientRepo.Save(ctx, client); err != nil {
		return nil, err
	}

	s.logger.Info("Client deactivated", zap.String("client_id", client.ID.String()))

	response := ToClientResponse(client)
	return &response, nil
}
