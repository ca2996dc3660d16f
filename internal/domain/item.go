package domain

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ItemStatus represents the processing state of a single job item.
type ItemStatus string

// Possible item status values
const (
	ItemStatusPending    ItemStatus = "pending"
	ItemStatusProcessing ItemStatus = "processing"
	ItemStatusCompleted  ItemStatus = "completed"
	ItemStatusFailed     ItemStatus = "failed"
)

// Common validation errors for JobItem. All wrap ErrValidation.
var (
	ErrEmptyItemID       = fmt.Errorf("%w: item ID cannot be empty", ErrValidation)
	ErrEmptyItemJobID    = fmt.Errorf("%w: item job ID cannot be empty", ErrValidation)
	ErrEmptyItemKeyword  = fmt.Errorf("%w: item keyword cannot be empty", ErrValidation)
	ErrNegativeSequence  = fmt.Errorf("%w: item sequence cannot be negative", ErrValidation)
	ErrInvalidItemStatus = fmt.Errorf("%w: invalid item status", ErrValidation)
)

// JobItem is one unit of work within a job. Sequence fixes the dispatch
// order and serves as the stable reference for matching results back to
// inputs; completions may arrive out of order. Settings is an opaque
// payload passed through to the generator.
type JobItem struct {
	ID        uuid.UUID       `json:"id"`
	JobID     uuid.UUID       `json:"job_id"`
	Sequence  int             `json:"sequence"`
	Keyword   string          `json:"keyword"`
	Settings  json.RawMessage `json:"settings,omitempty"`
	Status    ItemStatus      `json:"status"`
	Error     string          `json:"error,omitempty"`
	ArticleID *uuid.UUID      `json:"article_id,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// NewJobItem creates a pending JobItem owned by the given job.
func NewJobItem(jobID uuid.UUID, sequence int, keyword string, settings json.RawMessage) (*JobItem, error) {
	now := time.Now().UTC()
	item := &JobItem{
		ID:        uuid.New(),
		JobID:     jobID,
		Sequence:  sequence,
		Keyword:   keyword,
		Settings:  settings,
		Status:    ItemStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := item.Validate(); err != nil {
		return nil, err
	}

	return item, nil
}

// Validate checks if the JobItem has valid data.
func (i *JobItem) Validate() error {
	if i.ID == uuid.Nil {
		return ErrEmptyItemID
	}

	if i.JobID == uuid.Nil {
		return ErrEmptyItemJobID
	}

	if i.Sequence < 0 {
		return ErrNegativeSequence
	}

	if i.Keyword == "" {
		return ErrEmptyItemKeyword
	}

	if !isValidItemStatus(i.Status) {
		return ErrInvalidItemStatus
	}

	return nil
}

// IsResolved reports whether the item has reached a terminal state.
// Resolved items are immutable; there is no re-dispatch.
func (i *JobItem) IsResolved() bool {
	return i.Status == ItemStatusCompleted || i.Status == ItemStatusFailed
}

// isValidItemStatus checks if the given status is a valid ItemStatus.
func isValidItemStatus(status ItemStatus) bool {
	switch status {
	case ItemStatusPending, ItemStatusProcessing, ItemStatusCompleted, ItemStatusFailed:
		return true
	default:
		return false
	}
}
