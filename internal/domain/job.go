package domain

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
)

// JobStatus represents the aggregate state of a generation job.
type JobStatus string

// Possible job status values
const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusPartial    JobStatus = "partial"
	JobStatusFailed     JobStatus = "failed"
)

// Common validation errors for Job. All wrap ErrValidation so callers
// can classify them without enumerating each one.
var (
	ErrEmptyJobID       = fmt.Errorf("%w: job ID cannot be empty", ErrValidation)
	ErrEmptyJobUserID   = fmt.Errorf("%w: job user ID cannot be empty", ErrValidation)
	ErrNoJobItems       = fmt.Errorf("%w: job must contain at least one item", ErrValidation)
	ErrInvalidJobStatus = fmt.Errorf("%w: invalid job status", ErrValidation)
	ErrCounterOverflow  = errors.New("resolved item count exceeds total items")
)

// Job is the aggregate record for one batch submission. TotalItems is
// fixed at creation; CompletedItems and FailedItems only ever grow, and
// their sum never exceeds TotalItems. Status is derived from item
// outcomes via ResolveStatus, not set independently.
type Job struct {
	ID              uuid.UUID  `json:"id"`
	UserID          uuid.UUID  `json:"user_id"`
	TotalItems      int        `json:"total_items"`
	CompletedItems  int        `json:"completed_items"`
	FailedItems     int        `json:"failed_items"`
	Status          JobStatus  `json:"status"`
	Error           string     `json:"error,omitempty"`
	CancelRequested bool       `json:"cancel_requested"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
	CompletedAt     *time.Time `json:"completed_at,omitempty"`
}

// NewJob creates a pending Job for the given owner and item count.
// Returns an error if validation fails.
func NewJob(userID uuid.UUID, totalItems int) (*Job, error) {
	now := time.Now().UTC()
	job := &Job{
		ID:         uuid.New(),
		UserID:     userID,
		TotalItems: totalItems,
		Status:     JobStatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := job.Validate(); err != nil {
		return nil, err
	}

	return job, nil
}

// Validate checks if the Job has valid data.
func (j *Job) Validate() error {
	if j.ID == uuid.Nil {
		return ErrEmptyJobID
	}

	if j.UserID == uuid.Nil {
		return ErrEmptyJobUserID
	}

	if j.TotalItems < 1 {
		return ErrNoJobItems
	}

	if j.CompletedItems < 0 || j.FailedItems < 0 ||
		j.CompletedItems+j.FailedItems > j.TotalItems {
		return ErrCounterOverflow
	}

	if !isValidJobStatus(j.Status) {
		return ErrInvalidJobStatus
	}

	return nil
}

// ResolvedItems returns how many items have reached a terminal state.
func (j *Job) ResolvedItems() int {
	return j.CompletedItems + j.FailedItems
}

// Progress returns the percentage of resolved items, rounded to the
// nearest integer. Always in [0, 100]; never persisted independently.
func (j *Job) Progress() int {
	if j.TotalItems == 0 {
		return 0
	}
	return int(math.Round(100 * float64(j.ResolvedItems()) / float64(j.TotalItems)))
}

// IsTerminal reports whether the job status admits no further transitions.
func (j *Job) IsTerminal() bool {
	return IsTerminalJobStatus(j.Status)
}

// IsTerminalJobStatus reports whether the given status is terminal.
func IsTerminalJobStatus(status JobStatus) bool {
	switch status {
	case JobStatusCompleted, JobStatusPartial, JobStatusFailed:
		return true
	default:
		return false
	}
}

// ResolveStatus computes the terminal status for a fully resolved job:
// completed when every item succeeded, failed when every item failed,
// partial otherwise. It must only be called once all items are resolved.
func ResolveStatus(completed, failed int) JobStatus {
	switch {
	case failed == 0:
		return JobStatusCompleted
	case completed == 0:
		return JobStatusFailed
	default:
		return JobStatusPartial
	}
}

// RecordItemOutcome increments the matching counter and, when the last
// item resolves, finalizes the job status and stamps CompletedAt.
// Returns an error if the counters would exceed TotalItems.
func (j *Job) RecordItemOutcome(succeeded bool) error {
	if j.ResolvedItems() >= j.TotalItems {
		return ErrCounterOverflow
	}

	if succeeded {
		j.CompletedItems++
	} else {
		j.FailedItems++
	}
	j.UpdatedAt = time.Now().UTC()

	if j.ResolvedItems() == j.TotalItems {
		j.Status = ResolveStatus(j.CompletedItems, j.FailedItems)
		now := time.Now().UTC()
		j.CompletedAt = &now
	}

	return nil
}

// Fail forces the job into the failed terminal state with a job-level
// error. Used when the execution loop itself cannot continue; item-level
// failures never call this.
func (j *Job) Fail(reason string) {
	j.Status = JobStatusFailed
	j.Error = reason
	now := time.Now().UTC()
	j.UpdatedAt = now
	j.CompletedAt = &now
}

// isValidJobStatus checks if the given status is a valid JobStatus.
func isValidJobStatus(status JobStatus) bool {
	switch status {
	case JobStatusPending, JobStatusProcessing, JobStatusCompleted,
		JobStatusPartial, JobStatusFailed:
		return true
	default:
		return false
	}
}
