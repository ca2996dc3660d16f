// Package postgres provides PostgreSQL implementations of the store
// interfaces, built on database/sql over the pgx stdlib driver.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/inkdraft/inkdraft-api/internal/domain"
	"github.com/inkdraft/inkdraft-api/internal/platform/logger"
	"github.com/inkdraft/inkdraft-api/internal/store"
	"github.com/jackc/pgx/v5/pgconn"
)

// PostgreSQL error codes
const (
	pgUniqueViolationCode     = "23505"
	pgForeignKeyViolationCode = "23503"
)

// PostgresJobStore implements the store.JobStore interface using a
// PostgreSQL database as the storage backend.
type PostgresJobStore struct {
	db     store.DBTX
	sqlDB  *sql.DB
	logger *slog.Logger
}

// NewPostgresJobStore creates a new PostgreSQL implementation of the
// JobStore interface. If logger is nil, a default logger will be used.
func NewPostgresJobStore(db *sql.DB, logger *slog.Logger) *PostgresJobStore {
	if db == nil {
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresJobStore{
		db:     db,
		sqlDB:  db,
		logger: logger.With(slog.String("component", "job_store")),
	}
}

// Ensure PostgresJobStore implements store.JobStore interface
var _ store.JobStore = (*PostgresJobStore)(nil)

// WithTx implements store.JobStore.WithTx
func (s *PostgresJobStore) WithTx(tx *sql.Tx) store.JobStore {
	return &PostgresJobStore{
		db:     tx,
		sqlDB:  s.sqlDB,
		logger: s.logger,
	}
}

// DB implements store.JobStore.DB
func (s *PostgresJobStore) DB() *sql.DB {
	return s.sqlDB
}

// CreateWithItems implements store.JobStore.CreateWithItems
// The job row and every item row are written through the same DBTX, so
// callers wanting atomicity run this inside RunInTransaction via WithTx.
func (s *PostgresJobStore) CreateWithItems(
	ctx context.Context,
	job *domain.Job,
	items []*domain.JobItem,
) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := job.Validate(); err != nil {
		log.Warn("job validation failed during create",
			slog.String("error", err.Error()),
			slog.String("job_id", job.ID.String()))
		return err
	}
	if len(items) != job.TotalItems {
		return fmt.Errorf("%w: item count %d does not match total_items %d",
			store.ErrInvalidEntity, len(items), job.TotalItems)
	}

	jobQuery := `
		INSERT INTO generation_jobs
			(id, user_id, total_items, completed_items, failed_items,
			 status, error_message, cancel_requested, created_at, updated_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := s.db.ExecContext(
		ctx,
		jobQuery,
		job.ID,
		job.UserID,
		job.TotalItems,
		job.CompletedItems,
		job.FailedItems,
		job.Status,
		job.Error,
		job.CancelRequested,
		job.CreatedAt,
		job.UpdatedAt,
		job.CompletedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgForeignKeyViolationCode {
			log.Warn("foreign key violation during job creation",
				slog.String("error", err.Error()),
				slog.String("job_id", job.ID.String()),
				slog.String("user_id", job.UserID.String()))
			return fmt.Errorf("%w: user with ID %s not found",
				store.ErrInvalidEntity, job.UserID)
		}

		log.Error("failed to create job",
			slog.String("error", err.Error()),
			slog.String("job_id", job.ID.String()))
		return err
	}

	itemQuery := `
		INSERT INTO job_items
			(id, job_id, sequence, keyword, settings, status,
			 error_message, article_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	for _, item := range items {
		if err := item.Validate(); err != nil {
			log.Warn("item validation failed during create",
				slog.String("error", err.Error()),
				slog.String("item_id", item.ID.String()))
			return err
		}

		_, err := s.db.ExecContext(
			ctx,
			itemQuery,
			item.ID,
			item.JobID,
			item.Sequence,
			item.Keyword,
			nullableJSON(item.Settings),
			item.Status,
			item.Error,
			item.ArticleID,
			item.CreatedAt,
			item.UpdatedAt,
		)
		if err != nil {
			log.Error("failed to create job item",
				slog.String("error", err.Error()),
				slog.String("job_id", job.ID.String()),
				slog.Int("sequence", item.Sequence))
			return err
		}
	}

	log.Info("job created successfully",
		slog.String("job_id", job.ID.String()),
		slog.String("user_id", job.UserID.String()),
		slog.Int("total_items", job.TotalItems))
	return nil
}

// GetByID implements store.JobStore.GetByID
func (s *PostgresJobStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Job, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT id, user_id, total_items, completed_items, failed_items,
		       status, error_message, cancel_requested, created_at, updated_at, completed_at
		FROM generation_jobs
		WHERE id = $1
	`

	job, err := scanJob(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug("job not found", slog.String("job_id", id.String()))
			return nil, store.ErrJobNotFound
		}
		log.Error("failed to get job by ID",
			slog.String("error", err.Error()),
			slog.String("job_id", id.String()))
		return nil, err
	}

	return job, nil
}

// GetItems implements store.JobStore.GetItems
// Items are returned in sequence order, which is also dispatch order.
func (s *PostgresJobStore) GetItems(ctx context.Context, jobID uuid.UUID) ([]*domain.JobItem, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT id, job_id, sequence, keyword, settings, status,
		       error_message, article_id, created_at, updated_at
		FROM job_items
		WHERE job_id = $1
		ORDER BY sequence ASC
	`

	rows, err := s.db.QueryContext(ctx, query, jobID)
	if err != nil {
		log.Error("failed to query job items",
			slog.String("error", err.Error()),
			slog.String("job_id", jobID.String()))
		return nil, err
	}
	defer func() {
		if err := rows.Close(); err != nil {
			log.Error("failed to close rows", slog.String("error", err.Error()))
		}
	}()

	items := []*domain.JobItem{}
	for rows.Next() {
		var item domain.JobItem
		var statusStr string
		var errMsg sql.NullString
		var settings []byte
		var articleID uuid.NullUUID

		err := rows.Scan(
			&item.ID,
			&item.JobID,
			&item.Sequence,
			&item.Keyword,
			&settings,
			&statusStr,
			&errMsg,
			&articleID,
			&item.CreatedAt,
			&item.UpdatedAt,
		)
		if err != nil {
			log.Error("failed to scan job item row",
				slog.String("error", err.Error()))
			return nil, err
		}

		item.Status = domain.ItemStatus(statusStr)
		item.Settings = settings
		if errMsg.Valid {
			item.Error = errMsg.String
		}
		if articleID.Valid {
			id := articleID.UUID
			item.ArticleID = &id
		}

		items = append(items, &item)
	}

	if err := rows.Err(); err != nil {
		log.Error("error after scanning rows",
			slog.String("error", err.Error()))
		return nil, err
	}

	return items, nil
}

// ListByUser implements store.JobStore.ListByUser
func (s *PostgresJobStore) ListByUser(
	ctx context.Context,
	userID uuid.UUID,
	limit int,
) ([]*domain.Job, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if limit <= 0 {
		limit = 10
	}

	query := `
		SELECT id, user_id, total_items, completed_items, failed_items,
		       status, error_message, cancel_requested, created_at, updated_at, completed_at
		FROM generation_jobs
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`

	rows, err := s.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		log.Error("failed to query jobs by user",
			slog.String("error", err.Error()),
			slog.String("user_id", userID.String()))
		return nil, err
	}
	defer func() {
		if err := rows.Close(); err != nil {
			log.Error("failed to close rows", slog.String("error", err.Error()))
		}
	}()

	jobs := []*domain.Job{}
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			log.Error("failed to scan job row",
				slog.String("error", err.Error()))
			return nil, err
		}
		jobs = append(jobs, job)
	}

	if err := rows.Err(); err != nil {
		log.Error("error after scanning rows",
			slog.String("error", err.Error()))
		return nil, err
	}

	return jobs, nil
}

// MarkProcessing implements store.JobStore.MarkProcessing
// The conditional WHERE is the admission idempotency gate: only one
// caller ever observes the pending row.
func (s *PostgresJobStore) MarkProcessing(ctx context.Context, jobID uuid.UUID) (bool, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		UPDATE generation_jobs
		SET status = $1, updated_at = $2
		WHERE id = $3 AND status = $4
	`

	result, err := s.db.ExecContext(
		ctx,
		query,
		domain.JobStatusProcessing,
		time.Now().UTC(),
		jobID,
		domain.JobStatusPending,
	)
	if err != nil {
		log.Error("failed to mark job processing",
			slog.String("error", err.Error()),
			slog.String("job_id", jobID.String()))
		return false, err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		log.Error("failed to get rows affected",
			slog.String("error", err.Error()),
			slog.String("job_id", jobID.String()))
		return false, err
	}

	return rowsAffected == 1, nil
}

// Update implements store.JobStore.Update
func (s *PostgresJobStore) Update(ctx context.Context, job *domain.Job) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := job.Validate(); err != nil {
		log.Warn("job validation failed during update",
			slog.String("error", err.Error()),
			slog.String("job_id", job.ID.String()))
		return err
	}

	query := `
		UPDATE generation_jobs
		SET completed_items = $1, failed_items = $2, status = $3,
		    error_message = $4, cancel_requested = $5, updated_at = $6, completed_at = $7
		WHERE id = $8
	`

	result, err := s.db.ExecContext(
		ctx,
		query,
		job.CompletedItems,
		job.FailedItems,
		job.Status,
		job.Error,
		job.CancelRequested,
		job.UpdatedAt,
		job.CompletedAt,
		job.ID,
	)
	if err != nil {
		log.Error("failed to update job",
			slog.String("error", err.Error()),
			slog.String("job_id", job.ID.String()))
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		log.Error("failed to get rows affected",
			slog.String("error", err.Error()),
			slog.String("job_id", job.ID.String()))
		return err
	}

	if rowsAffected == 0 {
		log.Debug("job not found for update",
			slog.String("job_id", job.ID.String()))
		return store.ErrJobNotFound
	}

	return nil
}

// RequestCancel implements store.JobStore.RequestCancel
// The ownership check is part of the WHERE clause so an unowned job is
// indistinguishable from a missing one.
func (s *PostgresJobStore) RequestCancel(ctx context.Context, jobID, userID uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		UPDATE generation_jobs
		SET cancel_requested = TRUE, updated_at = $1
		WHERE id = $2 AND user_id = $3 AND status IN ($4, $5)
	`

	result, err := s.db.ExecContext(
		ctx,
		query,
		time.Now().UTC(),
		jobID,
		userID,
		domain.JobStatusPending,
		domain.JobStatusProcessing,
	)
	if err != nil {
		log.Error("failed to request job cancellation",
			slog.String("error", err.Error()),
			slog.String("job_id", jobID.String()))
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		// Either missing/unowned, or already terminal. Terminal cancel is
		// a no-op by contract; distinguish with a lookup.
		var owner uuid.UUID
		err := s.db.QueryRowContext(ctx,
			`SELECT user_id FROM generation_jobs WHERE id = $1`, jobID).Scan(&owner)
		if errors.Is(err, sql.ErrNoRows) || (err == nil && owner != userID) {
			return store.ErrJobNotFound
		}
		if err != nil {
			return err
		}
	}

	log.Info("job cancellation recorded",
		slog.String("job_id", jobID.String()))
	return nil
}

// FindUnfinished implements store.JobStore.FindUnfinished
func (s *PostgresJobStore) FindUnfinished(ctx context.Context) ([]*domain.Job, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		SELECT id, user_id, total_items, completed_items, failed_items,
		       status, error_message, cancel_requested, created_at, updated_at, completed_at
		FROM generation_jobs
		WHERE status IN ($1, $2)
		ORDER BY created_at ASC
	`

	rows, err := s.db.QueryContext(ctx, query,
		domain.JobStatusPending, domain.JobStatusProcessing)
	if err != nil {
		log.Error("failed to query unfinished jobs",
			slog.String("error", err.Error()))
		return nil, err
	}
	defer func() {
		if err := rows.Close(); err != nil {
			log.Error("failed to close rows", slog.String("error", err.Error()))
		}
	}()

	jobs := []*domain.Job{}
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return jobs, nil
}

// MarkItemProcessing implements store.JobStore.MarkItemProcessing
func (s *PostgresJobStore) MarkItemProcessing(ctx context.Context, itemID uuid.UUID) error {
	return s.updateItemStatus(ctx, itemID, domain.ItemStatusProcessing, "", nil)
}

// CompleteItem implements store.JobStore.CompleteItem
func (s *PostgresJobStore) CompleteItem(ctx context.Context, itemID, articleID uuid.UUID) error {
	return s.updateItemStatus(ctx, itemID, domain.ItemStatusCompleted, "", &articleID)
}

// FailItem implements store.JobStore.FailItem
func (s *PostgresJobStore) FailItem(ctx context.Context, itemID uuid.UUID, errMsg string) error {
	return s.updateItemStatus(ctx, itemID, domain.ItemStatusFailed, errMsg, nil)
}

// updateItemStatus is the shared implementation behind the item
// transition methods.
func (s *PostgresJobStore) updateItemStatus(
	ctx context.Context,
	itemID uuid.UUID,
	status domain.ItemStatus,
	errMsg string,
	articleID *uuid.UUID,
) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		UPDATE job_items
		SET status = $1, error_message = $2, article_id = $3, updated_at = $4
		WHERE id = $5
	`

	result, err := s.db.ExecContext(
		ctx,
		query,
		status,
		errMsg,
		articleID,
		time.Now().UTC(),
		itemID,
	)
	if err != nil {
		log.Error("failed to update item status",
			slog.String("error", err.Error()),
			slog.String("item_id", itemID.String()),
			slog.String("status", string(status)))
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		log.Error("failed to get rows affected",
			slog.String("error", err.Error()),
			slog.String("item_id", itemID.String()))
		return err
	}

	if rowsAffected == 0 {
		log.Debug("item not found for status update",
			slog.String("item_id", itemID.String()))
		return store.ErrItemNotFound
	}

	log.Debug("item status updated",
		slog.String("item_id", itemID.String()),
		slog.String("status", string(status)))
	return nil
}

// ResetProcessingItems implements store.JobStore.ResetProcessingItems
func (s *PostgresJobStore) ResetProcessingItems(ctx context.Context, jobID uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := `
		UPDATE job_items
		SET status = $1, updated_at = $2
		WHERE job_id = $3 AND status = $4
	`

	result, err := s.db.ExecContext(
		ctx,
		query,
		domain.ItemStatusPending,
		time.Now().UTC(),
		jobID,
		domain.ItemStatusProcessing,
	)
	if err != nil {
		log.Error("failed to reset processing items",
			slog.String("error", err.Error()),
			slog.String("job_id", jobID.String()))
		return err
	}

	if n, err := result.RowsAffected(); err == nil && n > 0 {
		log.Info("reset interrupted items to pending",
			slog.String("job_id", jobID.String()),
			slog.Int64("count", n))
	}

	return nil
}

// rowScanner abstracts *sql.Row and *sql.Rows for scanJob.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanJob maps one generation_jobs row into a domain.Job.
func scanJob(row rowScanner) (*domain.Job, error) {
	var job domain.Job
	var statusStr string
	var errMsg sql.NullString
	var completedAt sql.NullTime

	err := row.Scan(
		&job.ID,
		&job.UserID,
		&job.TotalItems,
		&job.CompletedItems,
		&job.FailedItems,
		&statusStr,
		&errMsg,
		&job.CancelRequested,
		&job.CreatedAt,
		&job.UpdatedAt,
		&completedAt,
	)
	if err != nil {
		return nil, err
	}

	job.Status = domain.JobStatus(statusStr)
	if errMsg.Valid {
		job.Error = errMsg.String
	}
	if completedAt.Valid {
		t := completedAt.Time
		job.CompletedAt = &t
	}

	return &job, nil
}

// nullableJSON maps an empty settings payload to NULL instead of an
// empty string, which jsonb would reject.
func nullableJSON(raw []byte) any {
	if len(raw) == 0 {
		return nil
	}
	return raw
}
