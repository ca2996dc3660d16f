package service

import (
	"errors"
	"fmt"

	"github.com/inkdraft/inkdraft-api/internal/store"
)

// Common sentinel errors for the service layer
var (
	// ErrJobNotFound indicates the job does not exist or is not visible
	// to the requesting user
	ErrJobNotFound = errors.New("job not found")

	// ErrArticleNotFound indicates the article does not exist or is not
	// visible to the requesting user
	ErrArticleNotFound = errors.New("article not found")

	// ErrEmailTaken indicates the email is already registered
	ErrEmailTaken = errors.New("email already registered")

	// ErrInvalidCredentials indicates the email/password pair did not match
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// ServiceError wraps errors from the service layer with operation context.
type ServiceError struct {
	// Operation is the operation that failed (e.g., "submit_job", "cancel_job")
	Operation string
	// Message is a human-readable description of the error
	Message string
	// Err is the underlying error that caused the failure
	Err error
}

// Error implements the error interface for ServiceError.
func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("service %s failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("service %s failed: %s", e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *ServiceError) Unwrap() error {
	return e.Err
}

// NewServiceError creates a new ServiceError. Known sentinel errors pass
// through directly, and store-level not-found errors map to their
// service-level equivalents.
func NewServiceError(operation, message string, err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, ErrJobNotFound), errors.Is(err, store.ErrJobNotFound):
		return ErrJobNotFound
	case errors.Is(err, ErrArticleNotFound), errors.Is(err, store.ErrArticleNotFound):
		return ErrArticleNotFound
	case errors.Is(err, ErrEmailTaken), errors.Is(err, store.ErrEmailExists):
		return ErrEmailTaken
	case errors.Is(err, ErrInvalidCredentials):
		return ErrInvalidCredentials
	}

	return &ServiceError{
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}
