package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/inkdraft/inkdraft-api/internal/domain"
	"github.com/inkdraft/inkdraft-api/internal/service/auth"
	"github.com/inkdraft/inkdraft-api/internal/store"
	"golang.org/x/crypto/bcrypt"
)

// UserService provides registration and credential verification.
type UserService interface {
	// Register creates a new user with a hashed password.
	// Returns ErrEmailTaken if the email is already in use.
	Register(ctx context.Context, email, password string) (*domain.User, error)

	// Authenticate verifies an email/password pair.
	// Returns ErrInvalidCredentials on any mismatch.
	Authenticate(ctx context.Context, email, password string) (*domain.User, error)

	// GetUser retrieves a user by ID.
	GetUser(ctx context.Context, id uuid.UUID) (*domain.User, error)
}

// userServiceImpl implements the UserService interface
type userServiceImpl struct {
	users    store.UserStore
	hasher   auth.PasswordHasher
	verifier auth.PasswordVerifier
	logger   *slog.Logger
}

// NewUserService creates a new UserService.
// It returns an error if any of the required dependencies are nil.
func NewUserService(
	users store.UserStore,
	hasher auth.PasswordHasher,
	verifier auth.PasswordVerifier,
	logger *slog.Logger,
) (UserService, error) {
	if users == nil {
		return nil, &ServiceError{Operation: "create_service", Message: "users store cannot be nil"}
	}
	if hasher == nil {
		return nil, &ServiceError{Operation: "create_service", Message: "hasher cannot be nil"}
	}
	if verifier == nil {
		return nil, &ServiceError{Operation: "create_service", Message: "verifier cannot be nil"}
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &userServiceImpl{
		users:    users,
		hasher:   hasher,
		verifier: verifier,
		logger:   logger.With("component", "user_service"),
	}, nil
}

// Register creates the user entity, hashes the password, and persists
// the result. The plaintext password is cleared before the user is
// stored or returned.
func (s *userServiceImpl) Register(ctx context.Context, email, password string) (*domain.User, error) {
	user, err := domain.NewUser(email, password)
	if err != nil {
		s.logger.Warn("user validation failed during registration",
			"error", err)
		return nil, NewServiceError("register", "invalid registration data", err)
	}

	hashed, err := s.hasher.Hash(password)
	if err != nil {
		s.logger.Error("failed to hash password",
			"error", err)
		return nil, NewServiceError("register", "failed to hash password", err)
	}
	user.HashedPassword = hashed
	user.Password = ""

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, store.ErrEmailExists) {
			s.logger.Debug("registration rejected: email taken")
			return nil, ErrEmailTaken
		}
		s.logger.Error("failed to create user",
			"error", err)
		return nil, NewServiceError("register", "failed to save user", err)
	}

	s.logger.Info("user registered",
		"user_id", user.ID)
	return user, nil
}

// Authenticate looks up the user by email and compares passwords. A
// missing user and a wrong password are indistinguishable to the caller.
func (s *userServiceImpl) Authenticate(ctx context.Context, email, password string) (*domain.User, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			// Burn a comparison anyway so response timing does not
			// distinguish unknown emails from wrong passwords.
			_ = s.verifier.Compare(dummyBcryptHash, password)
			return nil, ErrInvalidCredentials
		}
		s.logger.Error("failed to look up user for authentication",
			"error", err)
		return nil, NewServiceError("authenticate", "failed to look up user", err)
	}

	if err := s.verifier.Compare(user.HashedPassword, password); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			s.logger.Debug("authentication failed: password mismatch",
				"user_id", user.ID)
			return nil, ErrInvalidCredentials
		}
		s.logger.Error("password comparison failed",
			"error", err,
			"user_id", user.ID)
		return nil, NewServiceError("authenticate", "failed to verify password", err)
	}

	s.logger.Info("user authenticated",
		"user_id", user.ID)
	return user, nil
}

// GetUser retrieves a user by ID.
func (s *userServiceImpl) GetUser(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, NewServiceError("get_user", "failed to retrieve user", err)
	}
	return user, nil
}

// dummyBcryptHash is a valid bcrypt hash of a random string, used only
// to equalize timing on unknown-email authentication attempts.
const dummyBcryptHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"
