package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/inkdraft/inkdraft-api/internal/domain"
	"github.com/inkdraft/inkdraft-api/internal/generation"
	"github.com/inkdraft/inkdraft-api/internal/store"
)

// Orchestrator owns the execution of generation jobs. Jobs are admitted
// onto a buffered channel and consumed by a fixed pool of workers; each
// worker runs one job's loop at a time. All mutation of a job's record
// and items happens from the goroutine that owns that job's loop.
type Orchestrator struct {
	jobs      store.JobStore
	articles  store.ArticleStore
	generator generation.ArticleGenerator
	config    Config
	logger    *slog.Logger

	admitCh    chan uuid.UUID
	ctx        context.Context
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup

	mu      sync.Mutex
	running bool
	// cancels maps running jobs to their stop signal so CancelJob can
	// interrupt a loop between dispatches without preempting in-flight
	// generator calls.
	cancels map[uuid.UUID]chan struct{}
}

// NewOrchestrator creates an Orchestrator. All dependencies are required.
func NewOrchestrator(
	jobs store.JobStore,
	articles store.ArticleStore,
	generator generation.ArticleGenerator,
	config Config,
	logger *slog.Logger,
) (*Orchestrator, error) {
	if jobs == nil {
		return nil, errors.New("job store cannot be nil")
	}
	if articles == nil {
		return nil, errors.New("article store cannot be nil")
	}
	if generator == nil {
		return nil, errors.New("generator cannot be nil")
	}
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	if config.JobWorkers <= 0 {
		config.JobWorkers = DefaultConfig().JobWorkers
	}
	if config.ItemConcurrency <= 0 {
		config.ItemConcurrency = DefaultConfig().ItemConcurrency
	}
	if config.AdmitBuffer <= 0 {
		config.AdmitBuffer = DefaultConfig().AdmitBuffer
	}
	if config.ItemTimeout <= 0 {
		config.ItemTimeout = DefaultConfig().ItemTimeout
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Orchestrator{
		jobs:       jobs,
		articles:   articles,
		generator:  generator,
		config:     config,
		logger:     logger.With("component", "orchestrator"),
		admitCh:    make(chan uuid.UUID, config.AdmitBuffer),
		ctx:        ctx,
		cancelFunc: cancel,
		cancels:    make(map[uuid.UUID]chan struct{}),
	}, nil
}

// Start launches the worker pool and re-admits unfinished jobs from
// previous runs. Workers come up first so recovery can hand over more
// jobs than the admission buffer holds.
func (o *Orchestrator) Start() error {
	o.mu.Lock()
	o.running = true
	o.mu.Unlock()

	for i := 0; i < o.config.JobWorkers; i++ {
		o.wg.Add(1)
		go o.worker(i)
	}

	if err := o.recover(); err != nil {
		return fmt.Errorf("failed to recover unfinished jobs: %w", err)
	}

	o.logger.Info("orchestrator started",
		"job_workers", o.config.JobWorkers,
		"item_concurrency", o.config.ItemConcurrency,
		"item_timeout", o.config.ItemTimeout)
	return nil
}

// Stop shuts the orchestrator down. Running loops stop dispatching,
// wait for in-flight generator calls to resolve, and leave the rest of
// their job pending for recovery on the next start.
func (o *Orchestrator) Stop() {
	o.mu.Lock()
	o.running = false
	o.mu.Unlock()

	o.cancelFunc()
	o.wg.Wait()
	o.logger.Info("orchestrator stopped")
}

// Admit hands a created job to the worker pool. Idempotent with respect
// to the job's lifecycle: a job that is already processing or terminal
// is a no-op when a worker picks it up. Returns ErrQueueFull when the
// admission buffer is at capacity.
func (o *Orchestrator) Admit(ctx context.Context, jobID uuid.UUID) error {
	o.mu.Lock()
	running := o.running
	o.mu.Unlock()
	if !running {
		return ErrNotRunning
	}

	select {
	case o.admitCh <- jobID:
		o.logger.Debug("job admitted", "job_id", jobID)
		return nil
	default:
		return fmt.Errorf("%w: capacity %d reached", ErrQueueFull, cap(o.admitCh))
	}
}

// Cancel requests cooperative cancellation of a job. The persisted flag
// covers jobs not yet picked up by a worker; the in-memory signal
// interrupts a running loop between dispatches. In-flight items finish
// naturally. No-op on terminal jobs.
func (o *Orchestrator) Cancel(ctx context.Context, jobID, userID uuid.UUID) error {
	if err := o.jobs.RequestCancel(ctx, jobID, userID); err != nil {
		return err
	}

	// Closing twice would panic, so both the already-closed check and the
	// close itself happen under the lock that guards the cancel map.
	o.mu.Lock()
	if stop, ok := o.cancels[jobID]; ok {
		select {
		case <-stop:
		default:
			close(stop)
		}
	}
	o.mu.Unlock()

	o.logger.Info("job cancellation requested", "job_id", jobID)
	return nil
}

// recover re-admits jobs that were pending or processing when the
// process last stopped. Items interrupted mid-dispatch are reset to
// pending so they are re-dispatched; resolved items are left untouched.
func (o *Orchestrator) recover() error {
	ctx := context.Background()

	unfinished, err := o.jobs.FindUnfinished(ctx)
	if err != nil {
		return fmt.Errorf("failed to list unfinished jobs: %w", err)
	}

	if len(unfinished) == 0 {
		return nil
	}

	o.logger.Info("recovering unfinished jobs", "count", len(unfinished))

	for _, job := range unfinished {
		if job.Status == domain.JobStatusProcessing {
			if err := o.jobs.ResetProcessingItems(ctx, job.ID); err != nil {
				o.logger.Error("failed to reset interrupted items",
					"job_id", job.ID, "error", err)
				continue
			}
			// Put the job back in pending so MarkProcessing re-claims it.
			job.Status = domain.JobStatusPending
			if err := o.jobs.Update(ctx, job); err != nil {
				o.logger.Error("failed to reset interrupted job",
					"job_id", job.ID, "error", err)
				continue
			}
		}

		// Block until a worker frees a slot. The pool is already running,
		// so recovery can hand over more jobs than the buffer holds.
		select {
		case o.admitCh <- job.ID:
			o.logger.Info("requeued unfinished job", "job_id", job.ID, "status", job.Status)
		case <-o.ctx.Done():
			return o.ctx.Err()
		}
	}

	return nil
}

// worker consumes admitted jobs until shutdown.
func (o *Orchestrator) worker(id int) {
	defer o.wg.Done()

	o.logger.Debug("starting job worker", "worker_id", id)

	for {
		select {
		case <-o.ctx.Done():
			o.logger.Debug("stopping job worker", "worker_id", id)
			return
		case jobID := <-o.admitCh:
			o.runJob(jobID, id)
		}
	}
}

// registerCancel exposes a running job's stop channel to Cancel.
func (o *Orchestrator) registerCancel(jobID uuid.UUID, stop chan struct{}) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.cancels[jobID] = stop
}

// unregisterCancel removes the stop channel once the loop exits.
func (o *Orchestrator) unregisterCancel(jobID uuid.UUID) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.cancels, jobID)
}
