package identity

import (
	"context"
	"testing"
	"time"

	"github.com/agualoti/backend/internal/domain/identity"
	"github.com/agualoti/backend/internal/domain/shared"
	"github.com/agualoti/backend/internal/infrastructure/auth"
	"github.com/agualoti/backend/internal/infrastructure/config"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// ==== Mock Repositories ====

// MockUserRepository is a mock implementation of identity.UserRepository
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) FindByID(ctx context.Context, id uuid.UUID) (*identity.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.User), args.Error(1)
}

func (m *MockUserRepository) FindByUsername(ctx context.Context, username string) (*identity.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.User), args.Error(1)
}

func (m *MockUserRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	args := m.Called(ctx, username)
	return args.Bool(0), args.Error(1)
}

func (m *MockUserRepository) Save(ctx context.Context, user *identity.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

var testNow = time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)

func newTestAuthService(repo identity.UserRepository) (*AuthService, *auth.JWTService) {
	jwtService := auth.NewJWTService(config.JWTConfig{
		Secret:                "test-secret-key-at-least-32-chars",
		AccessTokenExpiration: time.Hour,
		Issuer:                "agualoti-test",
	})
	svc := NewAuthService(repo, jwtService, nil)
	svc.now = func() time.Time { return testNow }
	return svc, jwtService
}

func newTestUser(t *testing.T, role identity.Role) *identity.User {
	t.Helper()
	u, err := identity.NewUser("cajero", "secreto123", role, testNow)
	require.NoError(t, err)
	return u
}

func TestAuthService_Login(t *testing.T) {
	repo := new(MockUserRepository)
	svc, jwtService := newTestAuthService(repo)
	user := newTestUser(t, identity.RoleAdmin)

	repo.On("FindByUsername", mock.Anything, "cajero").Return(user, nil)
	repo.On("Save", mock.Anything, user).Return(nil)

	result, err := svc.Login(context.Background(), LoginInput{Username: " Cajero ", Password: "secreto123"})
	require.NoError(t, err)
	assert.Equal(t, "Bearer", result.TokenType)
	assert.Equal(t, "admin", result.User.Role)
	require.NotNil(t, user.LastLoginAt)

	claims, err := jwtService.ValidateAccessToken(result.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID.String(), claims.UserID)
	assert.True(t, claims.IsAdmin())
	repo.AssertExpectations(t)
}

func TestAuthService_Login_Failures(t *testing.T) {
	t.Run("unknown user", func(t *testing.T) {
		repo := new(MockUserRepository)
		svc, _ := newTestAuthService(repo)
		repo.On("FindByUsername", mock.Anything, "nadie").Return(nil, shared.ErrNotFound)

		_, err := svc.Login(context.Background(), LoginInput{Username: "nadie", Password: "secreto123"})
		assert.ErrorIs(t, err, identity.ErrInvalidCredentials)
	})

	t.Run("wrong password", func(t *testing.T) {
		repo := new(MockUserRepository)
		svc, _ := newTestAuthService(repo)
		repo.On("FindByUsername", mock.Anything, "cajero").Return(newTestUser(t, identity.RoleOperator), nil)

		_, err := svc.Login(context.Background(), LoginInput{Username: "cajero", Password: "incorrecta1"})
		assert.ErrorIs(t, err, identity.ErrInvalidCredentials)
		repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
	})

	t.Run("deactivated", func(t *testing.T) {
		repo := new(MockUserRepository)
		svc, _ := newTestAuthService(repo)
		user := newTestUser(t, identity.RoleOperator)
		user.Deactivate(testNow)
		repo.On("FindByUsername", mock.Anything, "cajero").Return(user, nil)

		_, err := svc.Login(context.Background(), LoginInput{Username: "cajero", Password: "secreto123"})
		assert.ErrorIs(t, err, ErrAccountDeactivated)
	})
}

func TestAuthService_CreateUser(t *testing.T) {
	repo := new(MockUserRepository)
	svc, _ := newTestAuthService(repo)

	repo.On("ExistsByUsername", mock.Anything, "lector").Return(false, nil)
	repo.On("Save", mock.Anything, mock.MatchedBy(func(u *identity.User) bool {
		return u.Username == "lector" && u.Role == identity.RoleOperator && u.VerifyPassword("medidor42")
	})).Return(nil)

	info, err := svc.CreateUser(context.Background(), CreateUserInput{Username: "Lector", Password: "medidor42", Role: "operator"})
	require.NoError(t, err)
	assert.Equal(t, "lector", info.Username)
	assert.True(t, info.Active)

	repo.On("ExistsByUsername", mock.Anything, "admin").Return(true, nil)
	_, err = svc.CreateUser(context.Background(), CreateUserInput{Username: "admin", Password: "medidor42", Role: "admin"})
	assert.ErrorIs(t, err, shared.ErrAlreadyExists)

	repo.On("ExistsByUsername", mock.Anything, "otro").Return(false, nil)
	_, err = svc.CreateUser(context.Background(), CreateUserInput{Username: "otro", Password: "medidor42", Role: "superuser"})
	var domainErr *shared.DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "INVALID_ROLE", domainErr.Code)
}

func TestAuthService_IssueToken(t *testing.T) {
	repo := new(MockUserRepository)
	svc, jwtService := newTestAuthService(repo)
	user := newTestUser(t, identity.RoleOperator)
	repo.On("FindByUsername", mock.Anything, "cajero").Return(user, nil)

	result, err := svc.IssueToken(context.Background(), IssueTokenInput{Username: "cajero", TTL: 48 * time.Hour})
	require.NoError(t, err)

	claims, err := jwtService.ValidateAccessToken(result.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "cajero", claims.Username)
	assert.WithinDuration(t, time.Now().Add(48*time.Hour), result.ExpiresAt, time.Minute)
}
