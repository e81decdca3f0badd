package identity

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/certledger/certledger/internal/apperr"
)

const (
	minUsernameLen = 3
	maxUsernameLen = 64
	minPasswordLen = 4
	// bcrypt ignores input beyond 72 bytes.
	maxPasswordLen = 72
)

// ErrInvalidCredentials covers unknown usernames and wrong passwords alike.
var ErrInvalidCredentials = apperr.Unauthorized("Invalid credentials")

// Service manages identity lifecycle.
type Service struct {
	repo Repository
	cost int
}

// Option configures a Service.
type Option func(*Service)

// WithBcryptCost overrides the password hashing cost.
func WithBcryptCost(cost int) Option {
	return func(s *Service) {
		if cost >= bcrypt.MinCost && cost <= bcrypt.MaxCost {
			s.cost = cost
		}
	}
}

// NewService creates a new identity service.
func NewService(repo Repository, opts ...Option) *Service {
	s := &Service{repo: repo, cost: bcrypt.DefaultCost}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register creates a self-service account. Privileged roles are refused.
func (s *Service) Register(ctx context.Context, creds Credentials) (User, error) {
	if !SelfAssignable(creds.Role) {
		return User{}, apperr.Validation("role must be learner or employer")
	}
	return s.Provision(ctx, creds)
}

// Provision creates a user with any known role and a bcrypt-hashed password.
// It backs operator seeding and is not reachable over HTTP.
func (s *Service) Provision(ctx context.Context, creds Credentials) (User, error) {
	if n := len(creds.Username); n < minUsernameLen || n > maxUsernameLen {
		return User{}, apperr.Validation(fmt.Sprintf("username must be %d to %d characters", minUsernameLen, maxUsernameLen))
	}
	if n := len(creds.Password); n < minPasswordLen || n > maxPasswordLen {
		return User{}, apperr.Validation(fmt.Sprintf("password must be %d to %d characters", minPasswordLen, maxPasswordLen))
	}
	if !ValidRole(creds.Role) {
		return User{}, apperr.Validation("unknown role")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(creds.Password), s.cost)
	if err != nil {
		return User{}, fmt.Errorf("hash password: %w", err)
	}

	user := User{
		Username:     creds.Username,
		PasswordHash: hash,
		Role:         creds.Role,
		CreatedAt:    time.Now().UTC(),
	}

	id, err := s.repo.Create(ctx, user)
	if err != nil {
		if errors.Is(err, ErrUsernameTaken) {
			return User{}, apperr.Wrap(err, apperr.CodeValidation, "Username already exists")
		}
		return User{}, err
	}
	user.ID = id
	return user, nil
}

// Authenticate verifies the username and password.
func (s *Service) Authenticate(ctx context.Context, creds Credentials) (User, error) {
	user, err := s.repo.FindByUsername(ctx, creds.Username)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return User{}, ErrInvalidCredentials
		}
		return User{}, err
	}

	if err := bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(creds.Password)); err != nil {
		return User{}, ErrInvalidCredentials
	}
	return user, nil
}

// DefaultUsers are the demo accounts created in development.
var DefaultUsers = []Credentials{
	{Username: "learner", Password: "learn", Role: RoleLearner},
	{Username: "employer", Password: "employ", Role: RoleEmployer},
	{Username: "issuer", Password: "issue", Role: RoleIssuer},
}

// Seed provisions each account, skipping usernames that already exist.
func (s *Service) Seed(ctx context.Context, logger *slog.Logger, accounts []Credentials) error {
	for _, creds := range accounts {
		user, err := s.Provision(ctx, creds)
		switch {
		case errors.Is(err, ErrUsernameTaken):
			continue
		case err != nil:
			return fmt.Errorf("seed %s: %w", creds.Username, err)
		}
		logger.Info("seeded user", slog.String("username", user.Username), slog.String("role", user.Role))
	}
	return nil
}
