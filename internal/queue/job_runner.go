package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/inkdraft/inkdraft-api/internal/domain"
	"github.com/inkdraft/inkdraft-api/internal/store"
)

// itemResult carries one item's outcome from its dispatch goroutine back
// to the job loop, which is the only writer of the job's counters.
type itemResult struct {
	item      *domain.JobItem
	succeeded bool
	err       error
}

// runJob executes a single job to its terminal state. Items are
// dispatched in sequence order with at most ItemConcurrency in flight;
// completions may arrive out of order and are attributed by item
// identity. A single item's failure never aborts the batch.
func (o *Orchestrator) runJob(jobID uuid.UUID, workerID int) {
	ctx := context.Background()
	logger := o.logger.With("job_id", jobID, "worker_id", workerID)

	claimed, err := o.jobs.MarkProcessing(ctx, jobID)
	if err != nil {
		logger.Error("failed to claim job", "error", err)
		return
	}
	if !claimed {
		// Already processing or terminal; admission is idempotent.
		logger.Debug("job not claimable, skipping")
		return
	}

	job, err := o.jobs.GetByID(ctx, jobID)
	if err != nil {
		logger.Error("failed to load claimed job", "error", err)
		return
	}

	items, err := o.jobs.GetItems(ctx, jobID)
	if err != nil {
		o.failJob(ctx, logger, job, fmt.Sprintf("failed to load job items: %v", err))
		return
	}

	stop := make(chan struct{})
	o.registerCancel(jobID, stop)
	defer o.unregisterCancel(jobID)

	var pending []*domain.JobItem
	for _, item := range items {
		if item.Status == domain.ItemStatusPending {
			pending = append(pending, item)
		}
	}

	logger.Info("job execution started",
		"total_items", job.TotalItems,
		"pending_items", len(pending))

	// Cancellation observed before the loop started still counts.
	cancelled := job.CancelRequested

	results := make(chan itemResult)
	inFlight := 0
	next := 0
	stopping := false
	var jobErr string

	// Nil'd out once fired so a closed channel cannot dominate the select.
	stopCh := stop
	doneCh := o.ctx.Done()

	for {
		for jobErr == "" && !cancelled && !stopping &&
			next < len(pending) && inFlight < o.config.ItemConcurrency {
			item := pending[next]
			if err := o.jobs.MarkItemProcessing(ctx, item.ID); err != nil {
				jobErr = fmt.Sprintf("failed to mark item %d processing: %v", item.Sequence, err)
				break
			}
			next++
			inFlight++
			go o.dispatch(job, item, results)
		}

		if inFlight == 0 {
			break
		}

		select {
		case res := <-results:
			inFlight--
			o.applyOutcome(ctx, logger, job, res, &jobErr)
		case <-stopCh:
			cancelled = true
			stopCh = nil
			logger.Info("cancellation observed, draining in-flight items",
				"in_flight", inFlight)
		case <-doneCh:
			stopping = true
			doneCh = nil
			logger.Info("shutdown observed, draining in-flight items",
				"in_flight", inFlight)
		}
	}

	switch {
	case stopping:
		// Leave the job processing with its remaining items pending;
		// recovery resumes it on the next start.
		logger.Info("job interrupted by shutdown",
			"resolved_items", job.ResolvedItems(),
			"total_items", job.TotalItems)
		return

	case jobErr != "":
		o.failJob(ctx, logger, job, jobErr)
		return

	case cancelled:
		// Items never dispatched are failed with a cancellation reason so
		// the job still finalizes through the normal rollup.
		for ; next < len(pending); next++ {
			item := pending[next]
			if err := o.jobs.FailItem(ctx, item.ID, "cancelled before dispatch"); err != nil {
				logger.Error("failed to mark cancelled item",
					"item_id", item.ID, "error", err)
			}
			if err := job.RecordItemOutcome(false); err != nil {
				logger.Error("counter overflow while cancelling", "error", err)
				break
			}
		}
		if err := o.jobs.Update(ctx, job); err != nil {
			logger.Error("failed to persist cancelled job", "error", err)
		}
	}

	// A recovered job may arrive with every item already resolved but the
	// record not yet finalized.
	if !job.IsTerminal() && job.ResolvedItems() == job.TotalItems {
		job.Status = domain.ResolveStatus(job.CompletedItems, job.FailedItems)
		now := time.Now().UTC()
		job.UpdatedAt = now
		job.CompletedAt = &now
		if err := o.jobs.Update(ctx, job); err != nil {
			logger.Error("failed to finalize job", "error", err)
		}
	}

	logger.Info("job execution finished",
		"status", job.Status,
		"completed_items", job.CompletedItems,
		"failed_items", job.FailedItems,
		"progress", job.Progress())
}

// dispatch runs one item against the generator under the per-item
// timeout and persists the item's outcome. It is the sole writer for
// this item; the job record is untouched here.
func (o *Orchestrator) dispatch(job *domain.Job, item *domain.JobItem, results chan<- itemResult) {
	genCtx, cancel := context.WithTimeout(context.Background(), o.config.ItemTimeout)
	defer cancel()

	logger := o.logger.With(
		"job_id", job.ID,
		"item_id", item.ID,
		"sequence", item.Sequence,
		"keyword", item.Keyword)

	article, err := o.generator.GenerateArticle(genCtx, job.UserID, item.Keyword, item.Settings)
	if err != nil {
		reason := err.Error()
		if errors.Is(genCtx.Err(), context.DeadlineExceeded) {
			reason = fmt.Sprintf("generation timed out after %s", o.config.ItemTimeout)
		}
		logger.Error("item generation failed", "error", err)

		// Persist with a fresh context; genCtx may already be expired.
		if ferr := o.jobs.FailItem(context.Background(), item.ID, reason); ferr != nil {
			logger.Error("failed to persist item failure", "error", ferr)
		}
		results <- itemResult{item: item, succeeded: false, err: err}
		return
	}

	persistCtx := context.Background()

	if err := o.articles.Create(persistCtx, article); err != nil {
		logger.Error("failed to store generated article", "error", err)
		if ferr := o.jobs.FailItem(persistCtx, item.ID, fmt.Sprintf("failed to store article: %v", err)); ferr != nil {
			logger.Error("failed to persist item failure", "error", ferr)
		}
		results <- itemResult{item: item, succeeded: false, err: err}
		return
	}

	if err := o.jobs.CompleteItem(persistCtx, item.ID, article.ID); err != nil {
		logger.Error("article stored but item completion not recorded", "error", err)
		results <- itemResult{item: item, succeeded: false, err: err}
		return
	}

	logger.Info("item completed", "article_id", article.ID)
	results <- itemResult{item: item, succeeded: true}
}

// applyOutcome rolls one resolved item into the job's counters and
// persists the record. Run only from the job loop goroutine.
func (o *Orchestrator) applyOutcome(
	ctx context.Context,
	logger *slog.Logger,
	job *domain.Job,
	res itemResult,
	jobErr *string,
) {
	if err := job.RecordItemOutcome(res.succeeded); err != nil {
		logger.Error("failed to record item outcome",
			"item_id", res.item.ID, "error", err)
		return
	}

	if err := o.jobs.Update(ctx, job); err != nil {
		if errors.Is(err, store.ErrJobNotFound) {
			*jobErr = "job record disappeared during execution"
			return
		}
		// Transient persistence failure: counters are kept in memory and
		// retried on the next update.
		logger.Error("failed to persist job progress", "error", err)
		return
	}

	logger.Debug("job progress updated",
		"completed_items", job.CompletedItems,
		"failed_items", job.FailedItems,
		"progress", job.Progress())
}

// failJob forces the job into the failed terminal state with a
// job-level error. Completed items' articles remain retrievable.
func (o *Orchestrator) failJob(ctx context.Context, logger *slog.Logger, job *domain.Job, reason string) {
	job.Fail(reason)
	if err := o.jobs.Update(ctx, job); err != nil {
		logger.Error("failed to persist job failure",
			"reason", reason, "error", err)
	}
	logger.Error("job failed", "reason", reason)
}
