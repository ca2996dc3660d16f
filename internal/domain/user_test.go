package domain

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestNewUser(t *testing.T) {
	t.Parallel()
	user, err := NewUser("writer@example.com", "a-long-enough-password")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if user.ID == uuid.Nil {
		t.Error("Expected non-nil UUID, got nil UUID")
	}

	if user.Email != "writer@example.com" {
		t.Errorf("Unexpected email %q", user.Email)
	}

	// Test invalid inputs
	if _, err := NewUser("", "a-long-enough-password"); !errors.Is(err, ErrEmptyEmail) {
		t.Errorf("Expected error %v, got %v", ErrEmptyEmail, err)
	}

	if _, err := NewUser("not-an-email", "a-long-enough-password"); !errors.Is(err, ErrInvalidEmail) {
		t.Errorf("Expected error %v, got %v", ErrInvalidEmail, err)
	}

	if _, err := NewUser("writer@example.com", "short"); !errors.Is(err, ErrPasswordTooShort) {
		t.Errorf("Expected error %v, got %v", ErrPasswordTooShort, err)
	}

	long := strings.Repeat("x", 73)
	if _, err := NewUser("writer@example.com", long); !errors.Is(err, ErrPasswordTooLong) {
		t.Errorf("Expected error %v, got %v", ErrPasswordTooLong, err)
	}
}

func TestUserValidateHashedOnly(t *testing.T) {
	t.Parallel()
	user := User{
		ID:             uuid.New(),
		Email:          "writer@example.com",
		HashedPassword: "$2a$10$something",
	}

	if err := user.Validate(); err != nil {
		t.Errorf("Expected stored user without plaintext password to be valid, got %v", err)
	}

	user.HashedPassword = ""
	if err := user.Validate(); !errors.Is(err, ErrEmptyHashedPassword) {
		t.Errorf("Expected error %v, got %v", ErrEmptyHashedPassword, err)
	}
}
