// Package service contains the application services that sit between the
// HTTP handlers and the stores. Services own transactions, ownership
// checks, and event emission; they never touch the router or the
// generation backend directly.
package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"

	"github.com/google/uuid"
	"github.com/inkdraft/inkdraft-api/internal/domain"
	"github.com/inkdraft/inkdraft-api/internal/events"
	"github.com/inkdraft/inkdraft-api/internal/store"
)

// ItemSpec describes one requested article within a batch submission.
type ItemSpec struct {
	Keyword  string
	Settings json.RawMessage
}

// JobCanceller requests cooperative cancellation of a running job.
// Implemented by the queue orchestrator.
type JobCanceller interface {
	Cancel(ctx context.Context, jobID, userID uuid.UUID) error
}

// JobService provides batch job operations.
type JobService interface {
	// SubmitJob creates a job with its items and emits a submission
	// event for the orchestrator. Returns domain.ErrEmptyBatch when the
	// batch has no items.
	SubmitJob(ctx context.Context, userID uuid.UUID, items []ItemSpec) (*domain.Job, error)

	// GetJob retrieves a job with its items. Jobs owned by other users
	// are reported as not found.
	GetJob(ctx context.Context, jobID, userID uuid.UUID) (*domain.Job, []*domain.JobItem, error)

	// ListJobs returns the user's most recent jobs, newest first.
	ListJobs(ctx context.Context, userID uuid.UUID, limit int) ([]*domain.Job, error)

	// CancelJob requests cancellation of a pending or processing job.
	// Cancelling a terminal job is a no-op.
	CancelJob(ctx context.Context, jobID, userID uuid.UUID) error

	// GetArticle retrieves a generated article. Articles owned by other
	// users are reported as not found.
	GetArticle(ctx context.Context, articleID, userID uuid.UUID) (*domain.Article, error)
}

// jobServiceImpl implements the JobService interface
type jobServiceImpl struct {
	jobs         store.JobStore
	articles     store.ArticleStore
	canceller    JobCanceller
	eventEmitter events.EventEmitter
	logger       *slog.Logger
}

// NewJobService creates a new JobService.
// It returns an error if any of the required dependencies are nil.
func NewJobService(
	jobs store.JobStore,
	articles store.ArticleStore,
	canceller JobCanceller,
	eventEmitter events.EventEmitter,
	logger *slog.Logger,
) (JobService, error) {
	if jobs == nil {
		return nil, &ServiceError{Operation: "create_service", Message: "jobs store cannot be nil"}
	}
	if articles == nil {
		return nil, &ServiceError{Operation: "create_service", Message: "articles store cannot be nil"}
	}
	if canceller == nil {
		return nil, &ServiceError{Operation: "create_service", Message: "canceller cannot be nil"}
	}
	if eventEmitter == nil {
		return nil, &ServiceError{Operation: "create_service", Message: "eventEmitter cannot be nil"}
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &jobServiceImpl{
		jobs:         jobs,
		articles:     articles,
		canceller:    canceller,
		eventEmitter: eventEmitter,
		logger:       logger.With("component", "job_service"),
	}, nil
}

// SubmitJob creates a new job in pending status with one item per spec,
// persists everything in a single transaction, and emits a submission
// event. The HTTP handler returns before any generation starts.
func (s *jobServiceImpl) SubmitJob(
	ctx context.Context,
	userID uuid.UUID,
	specs []ItemSpec,
) (*domain.Job, error) {
	if len(specs) == 0 {
		return nil, domain.ErrEmptyBatch
	}

	job, err := domain.NewJob(userID, len(specs))
	if err != nil {
		s.logger.Error("failed to create job object",
			"error", err,
			"user_id", userID)
		return nil, NewServiceError("submit_job", "failed to create job object", err)
	}

	items := make([]*domain.JobItem, 0, len(specs))
	for i, spec := range specs {
		item, err := domain.NewJobItem(job.ID, i, spec.Keyword, spec.Settings)
		if err != nil {
			s.logger.Warn("invalid item in batch",
				"error", err,
				"user_id", userID,
				"sequence", i)
			return nil, NewServiceError("submit_job", "invalid item in batch", err)
		}
		items = append(items, item)
	}

	err = store.RunInTransaction(ctx, s.jobs.DB(), func(ctx context.Context, tx *sql.Tx) error {
		txJobs := s.jobs.WithTx(tx)
		if err := txJobs.CreateWithItems(ctx, job, items); err != nil {
			s.logger.Error("failed to create job in transaction",
				"error", err,
				"user_id", userID,
				"job_id", job.ID)
			return NewServiceError("submit_job", "failed to save job to database", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("job created successfully with pending status",
		"job_id", job.ID,
		"user_id", userID,
		"total_items", job.TotalItems)

	payload := struct {
		JobID uuid.UUID `json:"job_id"`
	}{
		JobID: job.ID,
	}

	event, err := events.NewJobRequestEvent(events.EventTypeJobSubmitted, payload)
	if err != nil {
		s.logger.Error("failed to create job submission event",
			"error", err,
			"job_id", job.ID)
		return nil, NewServiceError("submit_job", "failed to create event", err)
	}

	if err := s.eventEmitter.EmitEvent(ctx, event); err != nil {
		// The job row exists, so admission will be retried by startup
		// recovery even if the event is lost here.
		s.logger.Error("failed to emit job submission event",
			"error", err,
			"job_id", job.ID,
			"event_id", event.ID)
		return nil, NewServiceError("submit_job", "failed to emit event", err)
	}

	s.logger.Info("job submission event emitted",
		"job_id", job.ID,
		"event_id", event.ID)

	return job, nil
}

// GetJob retrieves a job and its items with an ownership check.
func (s *jobServiceImpl) GetJob(
	ctx context.Context,
	jobID, userID uuid.UUID,
) (*domain.Job, []*domain.JobItem, error) {
	job, err := s.jobs.GetByID(ctx, jobID)
	if err != nil {
		return nil, nil, NewServiceError("get_job", "failed to retrieve job", err)
	}

	if job.UserID != userID {
		// Do not reveal that the job exists
		return nil, nil, ErrJobNotFound
	}

	items, err := s.jobs.GetItems(ctx, jobID)
	if err != nil {
		s.logger.Error("failed to retrieve job items",
			"error", err,
			"job_id", jobID)
		return nil, nil, NewServiceError("get_job", "failed to retrieve job items", err)
	}

	return job, items, nil
}

// ListJobs returns the user's most recent jobs.
func (s *jobServiceImpl) ListJobs(
	ctx context.Context,
	userID uuid.UUID,
	limit int,
) ([]*domain.Job, error) {
	jobs, err := s.jobs.ListByUser(ctx, userID, limit)
	if err != nil {
		s.logger.Error("failed to list jobs",
			"error", err,
			"user_id", userID)
		return nil, NewServiceError("list_jobs", "failed to list jobs", err)
	}
	return jobs, nil
}

// CancelJob delegates to the orchestrator, which persists the cancel
// flag and signals the running job loop.
func (s *jobServiceImpl) CancelJob(ctx context.Context, jobID, userID uuid.UUID) error {
	if err := s.canceller.Cancel(ctx, jobID, userID); err != nil {
		s.logger.Warn("job cancellation failed",
			"error", err,
			"job_id", jobID,
			"user_id", userID)
		return NewServiceError("cancel_job", "failed to cancel job", err)
	}

	s.logger.Info("job cancellation requested",
		"job_id", jobID,
		"user_id", userID)
	return nil
}

// GetArticle retrieves an article with an ownership check.
func (s *jobServiceImpl) GetArticle(
	ctx context.Context,
	articleID, userID uuid.UUID,
) (*domain.Article, error) {
	article, err := s.articles.GetByID(ctx, articleID)
	if err != nil {
		return nil, NewServiceError("get_article", "failed to retrieve article", err)
	}

	if article.UserID != userID {
		return nil, ErrArticleNotFound
	}

	return article, nil
}
