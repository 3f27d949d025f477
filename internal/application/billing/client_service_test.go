package billing

import (
	"context"
	"testing"

	"github.com/agualoti/backend/internal/domain/billing"
	"github.com/agualoti/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestClientService_Register(t *testing.T) {
	t.Run("registers a new client", func(t *testing.T) {
		repo := new(MockClientRepository)
		events := &recordingPublisher{}
		svc := NewClientService(repo, events, fixedClock(testNow), nil)

		repo.On("ExistsByCode", mock.Anything, "C-100").Return(false, nil)
		repo.On("Save", mock.Anything, mock.AnythingOfType("*billing.Client")).Return(nil)

		res, err := svc.Register(context.Background(), RegisterClientRequest{
			Code: " C-100 ", Name: "Juan Perez", Address: "Av. Central 5", MeterNumber: "M-9",
		})
		require.NoError(t, err)
		assert.Equal(t, "C-100", res.Code)
		assert.Equal(t, string(billing.ClientStatusActive), res.Status)
		assert.Equal(t, []string{billing.EventTypeClientRegistered}, events.types())
		repo.AssertExpectations(t)
	})

	t.Run("rejects duplicate codes", func(t *testing.T) {
		repo := new(MockClientRepository)
		svc := NewClientService(repo, nil, fixedClock(testNow), nil)
		repo.On("ExistsByCode", mock.Anything, "C-100").Return(true, nil)

		_, err := svc.Register(context.Background(), RegisterClientRequest{Code: "C-100", Name: "Dup"})
		assert.ErrorIs(t, err, shared.ErrAlreadyExists)
		repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})
}

func TestClientService_ListAndDeactivate(t *testing.T) {
	repo := new(MockClientRepository)
	svc := NewClientService(repo, nil, fixedClock(testNow), nil)
	client := newActiveClient()

	repo.On("FindAll", mock.Anything, mock.MatchedBy(func(f billing.ClientFilter) bool {
		return f.Status != nil && *f.Status == billing.ClientStatusActive && f.OrderBy == "code"
	})).Return([]billing.Client{*client}, nil)
	repo.On("Count", mock.Anything, mock.Anything).Return(int64(1), nil)

	items, total, err := svc.List(context.Background(), ClientListFilter{Status: "ACTIVE"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, items, 1)
	assert.Equal(t, client.Code, items[0].Code)

	repo.On("FindByID", mock.Anything, client.ID).Return(client, nil)
	repo.On("Save", mock.Anything, client).Return(nil)

	res, err := svc.Deactivate(context.Background(), client.ID)
	require.NoError(t, err)
	assert.Equal(t, string(billing.ClientStatusInactive), res.Status)

	missing := uuid.New()
	repo.On("FindByID", mock.Anything, missing).Return(nil, shared.ErrNotFound)
	_, err = svc.GetByID(context.Background(), missing)
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestClientService_List_FoldsSearch(t *testing.T) {
	repo := new(MockClientRepository)
	svc := NewClientService(repo, nil, fixedClock(testNow), nil)

	repo.On("FindAll", mock.Anything, mock.MatchedBy(func(f billing.ClientFilter) bool {
		return f.Search == "pena"
	})).Return([]billing.Client{}, nil)
	repo.On("Count", mock.Anything, mock.Anything).Return(int64(0), nil)

	_, _, err := svc.List(context.Background(), ClientListFilter{Search: " PEÑA "})
	require.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestReadingService_Record(t *testing.T) {
	newSetup := func() (*ReadingService, *MockReadingRepository, *MockClientRepository) {
		readings := new(MockReadingRepository)
		clients := new(MockClientRepository)
		return NewReadingService(readings, clients, nil, fixedClock(testNow), nil), readings, clients
	}

	t.Run("previous defaults to the latest reading", func(t *testing.T) {
		svc, readings, clients := newSetup()
		client := newActiveClient()
		last, err := billing.NewReading(billing.NewReadingParams{
			ClientID: client.ID, Previous: 1000, Current: 4200,
			PeriodStart: mustDate("2024-11-01"), PeriodEnd: mustDate("2024-11-30"), At: testNow,
		})
		require.NoError(t, err)

		clients.On("FindByID", mock.Anything, client.ID).Return(client, nil)
		readings.On("FindLatestByClient", mock.Anything, client.ID).Return(last, nil)
		readings.On("Save", mock.Anything, mock.AnythingOfType("*billing.Reading")).Return(nil)

		res, err := svc.Record(context.Background(), RecordReadingRequest{
			ClientID: client.ID, Current: 9200, PeriodStart: "2024-12-01", PeriodEnd: "2024-12-31",
		}, testOperator)
		require.NoError(t, err)
		assert.Equal(t, int64(4200), res.Previous)
		assert.Equal(t, int64(5000), res.Consumption)
		assert.Equal(t, "2024-12-31", res.ReadOn)
	})

	t.Run("first reading starts from zero", func(t *testing.T) {
		svc, readings, clients := newSetup()
		client := newActiveClient()
		clients.On("FindByID", mock.Anything, client.ID).Return(client, nil)
		readings.On("FindLatestByClient", mock.Anything, client.ID).Return(nil, shared.ErrNotFound)
		readings.On("Save", mock.Anything, mock.Anything).Return(nil)

		res, err := svc.Record(context.Background(), RecordReadingRequest{
			ClientID: client.ID, Current: 120, PeriodStart: "2024-12-01", PeriodEnd: "2024-12-31",
		}, testOperator)
		require.NoError(t, err)
		assert.Equal(t, int64(0), res.Previous)
	})

	t.Run("rejects decreasing readings", func(t *testing.T) {
		svc, _, clients := newSetup()
		client := newActiveClient()
		clients.On("FindByID", mock.Anything, client.ID).Return(client, nil)

		previous := int64(500)
		_, err := svc.Record(context.Background(), RecordReadingRequest{
			ClientID: client.ID, Previous: &previous, Current: 400, PeriodStart: "2024-12-01", PeriodEnd: "2024-12-31",
		}, testOperator)
		assert.ErrorIs(t, err, billing.ErrInvalidConsumption)
	})

	t.Run("rejects inactive clients", func(t *testing.T) {
		svc, _, clients := newSetup()
		client := newActiveClient()
		require.NoError(t, client.Deactivate(testNow))
		clients.On("FindByID", mock.Anything, client.ID).Return(client, nil)

		_, err := svc.Record(context.Background(), RecordReadingRequest{
			ClientID: client.ID, Current: 10, PeriodStart: "2024-12-01", PeriodEnd: "2024-12-31",
		}, testOperator)
		assert.ErrorIs(t, err, shared.ErrInvalidState)
	})
}
