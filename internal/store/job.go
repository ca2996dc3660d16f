package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/inkdraft/inkdraft-api/internal/domain"
)

// JobStore defines the interface for job and job-item persistence.
//
// The orchestrator is the single writer for a job's record and items;
// every mutating method here is only ever called from the goroutine that
// owns the job's execution loop (or from CreateWithItems before the loop
// exists). Readers never mutate.
type JobStore interface {
	// CreateWithItems saves a new job and all of its items atomically.
	// Items are created in pending status; the caller guarantees their
	// sequences match the submission order.
	CreateWithItems(ctx context.Context, job *domain.Job, items []*domain.JobItem) error

	// GetByID retrieves a job by its unique ID.
	// Returns ErrJobNotFound if the job does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Job, error)

	// GetItems retrieves all items belonging to a job, ordered by sequence.
	GetItems(ctx context.Context, jobID uuid.UUID) ([]*domain.JobItem, error)

	// ListByUser retrieves jobs for an owner, newest first, without items.
	ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]*domain.Job, error)

	// MarkProcessing transitions a job from pending to processing.
	// Returns true if this call performed the transition, false if the
	// job was already processing or terminal. This conditional update is
	// the admission idempotency gate.
	MarkProcessing(ctx context.Context, jobID uuid.UUID) (bool, error)

	// Update writes back the job's counters, status, error, and
	// timestamps. Returns ErrJobNotFound if the job no longer exists.
	Update(ctx context.Context, job *domain.Job) error

	// RequestCancel sets the job's cancel flag. Returns ErrJobNotFound if
	// the job does not exist or is not owned by the given user; no-ops
	// (without error) on terminal jobs.
	RequestCancel(ctx context.Context, jobID, userID uuid.UUID) error

	// FindUnfinished retrieves jobs in pending or processing status,
	// oldest first. Used to re-admit interrupted jobs at startup.
	FindUnfinished(ctx context.Context) ([]*domain.Job, error)

	// MarkItemProcessing transitions an item from pending to processing.
	// Returns ErrItemNotFound if the item does not exist.
	MarkItemProcessing(ctx context.Context, itemID uuid.UUID) error

	// CompleteItem marks an item completed and records its article
	// reference. Returns ErrItemNotFound if the item does not exist.
	CompleteItem(ctx context.Context, itemID, articleID uuid.UUID) error

	// FailItem marks an item failed and records the failure reason.
	// Returns ErrItemNotFound if the item does not exist.
	FailItem(ctx context.Context, itemID uuid.UUID, errMsg string) error

	// ResetProcessingItems moves a job's processing items back to pending.
	// Used during recovery for items interrupted by a shutdown or crash.
	ResetProcessingItems(ctx context.Context, jobID uuid.UUID) error

	// WithTx returns a new JobStore instance that uses the provided
	// transaction. The transaction is created and managed by the caller.
	WithTx(tx *sql.Tx) JobStore

	// DB returns the underlying database connection for use with
	// RunInTransaction.
	DB() *sql.DB
}
