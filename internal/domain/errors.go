// Package domain defines the core business entities and errors.
package domain

import "errors"

// Common domain errors used across the application.
var (
	// ErrValidation is the common ancestor of every entity validation
	// error; the API layer maps anything wrapping it to a 400.
	ErrValidation = errors.New("validation failed")

	// ErrEmptyBatch is returned when a job submission contains no items.
	ErrEmptyBatch = errors.New("batch must contain at least one item")
)
