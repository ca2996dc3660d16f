// Package queue implements the job orchestrator: admission of created
// jobs, the bounded-concurrency execution loop that drives items through
// the article generator, progress rollup, and cooperative cancellation.
// Long-running work never blocks HTTP request handling; jobs are
// multiplexed over a fixed pool of workers and survive restarts through
// recovery of unfinished jobs at startup.
package queue

import (
	"errors"
	"time"
)

// Common errors returned by the orchestrator
var (
	// ErrQueueFull is returned when the admission buffer is at capacity.
	ErrQueueFull = errors.New("job admission queue is full")

	// ErrNotRunning is returned when a job is admitted before Start or
	// after Stop.
	ErrNotRunning = errors.New("orchestrator is not running")
)

// Config holds the orchestrator tuning knobs.
type Config struct {
	// JobWorkers is the number of goroutines consuming admitted jobs.
	// This bounds how many jobs execute concurrently across all users
	// and is the hook for any global rate limiting layered on top.
	JobWorkers int

	// ItemConcurrency bounds how many items of a single job may be in
	// flight against the generator at once. Kept small to respect the
	// generator's rate limits.
	ItemConcurrency int

	// AdmitBuffer is the capacity of the admission channel.
	AdmitBuffer int

	// ItemTimeout bounds a single generator call. An item that exceeds
	// it is marked failed so a stalled generator cannot hold a
	// concurrency slot forever.
	ItemTimeout time.Duration
}

// DefaultConfig returns a Config with reasonable defaults.
func DefaultConfig() Config {
	return Config{
		JobWorkers:      4,
		ItemConcurrency: 3,
		AdmitBuffer:     100,
		ItemTimeout:     2 * time.Minute,
	}
}
