package api

import (
	"errors"
	"net/http"
	"testing"

	"github.com/inkdraft/inkdraft-api/internal/domain"
	"github.com/inkdraft/inkdraft-api/internal/service"
	"github.com/inkdraft/inkdraft-api/internal/service/auth"
	"github.com/inkdraft/inkdraft-api/internal/store"
	"github.com/stretchr/testify/assert"
)

func TestMapErrorToStatusCode(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"invalid token", auth.ErrInvalidToken, http.StatusUnauthorized},
		{"invalid credentials", service.ErrInvalidCredentials, http.StatusUnauthorized},
		{"job not found", service.ErrJobNotFound, http.StatusNotFound},
		{"store user not found", store.ErrUserNotFound, http.StatusNotFound},
		{"email taken", service.ErrEmailTaken, http.StatusConflict},
		{"empty batch", domain.ErrEmptyBatch, http.StatusBadRequest},
		{"unknown error", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, MapErrorToStatusCode(tc.err))
		})
	}
}

// Entity validation failures reach this layer wrapped in service-level
// context; they must still map to a 400 and a generic message.
func TestMapErrorToStatusCodeValidationErrors(t *testing.T) {
	wrapped := service.NewServiceError("submit_job", "invalid item", domain.ErrEmptyItemKeyword)

	assert.Equal(t, http.StatusBadRequest, MapErrorToStatusCode(wrapped))
	assert.Equal(t, http.StatusBadRequest, MapErrorToStatusCode(domain.ErrInvalidEmail))
	assert.Equal(t, "Invalid request data", GetSafeErrorMessage(wrapped))
}

func TestGetSafeErrorMessage(t *testing.T) {
	assert.Equal(t, "Job not found", GetSafeErrorMessage(service.ErrJobNotFound))
	assert.Equal(t, "Invalid credentials", GetSafeErrorMessage(service.ErrInvalidCredentials))
	assert.Equal(t, "An unexpected error occurred", GetSafeErrorMessage(nil))
	assert.Equal(t, "An unexpected error occurred", GetSafeErrorMessage(errors.New("boom")))
}
