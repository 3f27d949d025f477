package identity

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/agualoti/backend/internal/domain/shared"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// Role is the access level of an operator account
type Role string

const (
	RoleOperator Role = "operator"
	RoleAdmin    Role = "admin"
)

// IsValid checks if the role is known
func (r Role) IsValid() bool {
	return r == RoleOperator || r == RoleAdmin
}

var (
	usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_\-.]+$`)
	hasLetter       = regexp.MustCompile(`[a-zA-Z]`)
	hasDigit        = regexp.MustCompile(`[0-9]`)
)

// ErrInvalidCredentials is returned for any failed login, whatever the cause
var ErrInvalidCredentials = shared.NewDomainError("INVALID_CREDENTIALS", "Invalid username or password")

// User is an operator or administrator who can sign in
type User struct {
	shared.BaseAggregateRoot
	Username     string
	PasswordHash string
	Role         Role
	Active       bool
	LastLoginAt  *time.Time
}

// NewUser creates an active account with a bcrypt-hashed password
func NewUser(username, password string, role Role, at time.Time) (*User, error) {
	username = strings.ToLower(strings.TrimSpace(username))
	if err := validateUsername(username); err != nil {
		return nil, err
	}
	if !role.IsValid() {
		return nil, shared.NewFieldError("INVALID_ROLE", "role", "Role must be operator or admin")
	}
	hash, err := hashPassword(password)
	if err != nil {
		return nil, err
	}

	return &User{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(at),
		Username:          username,
		PasswordHash:      hash,
		Role:              role,
		Active:            true,
	}, nil
}

// VerifyPassword reports whether password matches the stored hash
func (u *User) VerifyPassword(password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) == nil
}

// SetPassword replaces the password
func (u *User) SetPassword(password string, at time.Time) error {
	hash, err := hashPassword(password)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	u.Touch(at)
	return nil
}

// RecordLogin stamps a successful sign-in
func (u *User) RecordLogin(at time.Time) {
	u.LastLoginAt = &at
	u.Touch(at)
}

// Deactivate blocks further sign-ins
func (u *User) Deactivate(at time.Time) {
	u.Active = false
	u.Touch(at)
}

// UserRepository defines the interface for account persistence
type UserRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*User, error)
	FindByUsername(ctx context.Context, username string) (*User, error)
	ExistsByUsername(ctx context.Context, username string) (bool, error)
	Save(ctx context.Context, user *User) error
}

func validateUsername(username string) error {
	if len(username) < 3 {
		return shared.NewFieldError("INVALID_USERNAME", "username", "Username must be at least 3 characters")
	}
	if len(username) > 100 {
		return shared.NewFieldError("INVALID_USERNAME", "username", "Username cannot exceed 100 characters")
	}
	if !usernamePattern.MatchString(username) {
		return shared.NewFieldError("INVALID_USERNAME", "username", "Username can only contain letters, numbers, underscores, hyphens, and dots")
	}
	return nil
}

func hashPassword(password string) (string, error) {
	if len(password) < 8 {
		return "", shared.NewFieldError("INVALID_PASSWORD", "password", "Password must be at least 8 characters")
	}
	if len(password) > 72 {
		return "", shared.NewFieldError("INVALID_PASSWORD", "password", "Password cannot exceed 72 characters")
	}
	if !hasLetter.MatchString(password) || !hasDigit.MatchString(password) {
		return "", shared.NewFieldError("INVALID_PASSWORD", "password", "Password must contain at least one letter and one number")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", shared.NewDomainError("PASSWORD_HASH_ERROR", "Failed to hash password")
	}
	return string(hash), nil
}
