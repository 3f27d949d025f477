package identity

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/agualoti/backend/internal/domain/identity"
	"github.com/agualoti/backend/internal/domain/shared"
	"github.com/agualoti/backend/internal/infrastructure/auth"
	"go.uber.org/zap"
)

// ErrAccountDeactivated is returned when a deactivated account tries to sign in
var ErrAccountDeactivated = shared.NewDomainError("ACCOUNT_DEACTIVATED", "Account has been deactivated")

// AuthService handles operator sign-in and account provisioning
type AuthService struct {
	userRepo   identity.UserRepository
	jwtService *auth.JWTService
	now        func() time.Time
	logger     *zap.Logger
}

// NewAuthService creates a new authentication service
func NewAuthService(userRepo identity.UserRepository, jwtService *auth.JWTService, logger *zap.Logger) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		userRepo:   userRepo,
		jwtService: jwtService,
		now:        time.Now,
		logger:     logger,
	}
}

// Login verifies the password and returns an access token.
// Unknown users and wrong passwords produce the same error.
func (s *AuthService) Login(ctx context.Context, input LoginInput) (*LoginResult, error) {
	username := strings.ToLower(strings.TrimSpace(input.Username))
	s.logger.Info("Login attempt", zap.String("username", username), zap.String("ip", input.IP))

	user, err := s.userRepo.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			s.logger.Warn("User not found during login", zap.String("username", username))
			return nil, identity.ErrInvalidCredentials
		}
		return nil, err
	}

	if !user.VerifyPassword(input.Password) {
		s.logger.Warn("Invalid password attempt", zap.String("username", username))
		return nil, identity.ErrInvalidCredentials
	}
	if !user.Active {
		s.logger.Warn("Login attempt for deactivated account", zap.String("username", username))
		return nil, ErrAccountDeactivated
	}

	token, err := s.jwtService.GenerateAccessToken(auth.GenerateTokenInput{
		UserID:   user.ID,
		Username: user.Username,
		Role:     user.Role,
	})
	if err != nil {
		s.logger.Error("Failed to generate access token", zap.Error(err))
		return nil, err
	}

	user.RecordLogin(s.now())
	if err := s.userRepo.Save(ctx, user); err != nil {
		s.logger.Error("Failed to record login", zap.String("user_id", user.ID.String()), zap.Error(err))
	}

	s.logger.Info("User logged in",
		zap.String("user_id", user.ID.String()),
		zap.String("role", string(user.Role)))

	return &LoginResult{
		AccessToken: token.Token,
		ExpiresAt:   token.ExpiresAt,
		TokenType:   token.TokenType,
		User:        ToUserInfo(user),
	}, nil
}

// CreateUser provisions an operator or admin account
func (s *AuthService) CreateUser(ctx context.Context, input CreateUserInput) (*UserInfo, error) {
	username := strings.ToLower(strings.TrimSpace(input.Username))
	exists, err := s.userRepo.ExistsByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, shared.NewFieldError(shared.ErrAlreadyExists.Code, "username", "Username already exists")
	}

	user, err := identity.NewUser(username, input.Password, identity.Role(input.Role), s.now())
	if err != nil {
		return nil, err
	}
	if err := s.userRepo.Save(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("User created",
		zap.String("user_id", user.ID.String()),
		zap.String("username", user.Username),
		zap.String("role", string(user.Role)))

	info := ToUserInfo(user)
	return &info, nil
}

// IssueToken signs a token for an existing active account. Used by the
// admin CLI for service integrations, it never checks a password.
func (s *AuthService) IssueToken(ctx context.Context, input IssueTokenInput) (*LoginResult, error) {
	user, err := s.userRepo.FindByUsername(ctx, strings.ToLower(strings.TrimSpace(input.Username)))
	if err != nil {
		return nil, err
	}
	if !user.Active {
		return nil, ErrAccountDeactivated
	}

	token, err := s.jwtService.GenerateAccessToken(auth.GenerateTokenInput{
		UserID:   user.ID,
		Username: user.Username,
		Role:     user.Role,
		TTL:      input.TTL,
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Token issued",
		zap.String("user_id", user.ID.String()),
		zap.Time("expires_at", token.ExpiresAt))

	return &LoginResult{
		AccessToken: token.Token,
		ExpiresAt:   token.ExpiresAt,
		TokenType:   token.TokenType,
		User:        ToUserInfo(user),
	}, nil
}
