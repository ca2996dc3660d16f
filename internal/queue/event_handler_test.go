package queue

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/inkdraft/inkdraft-api/internal/domain"
	"github.com/inkdraft/inkdraft-api/internal/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func submissionEvent(t *testing.T, jobID uuid.UUID) *events.JobRequestEvent {
	t.Helper()
	event, err := events.NewJobRequestEvent(events.EventTypeJobSubmitted, struct {
		JobID uuid.UUID `json:"job_id"`
	}{JobID: jobID})
	require.NoError(t, err)
	return event
}

func TestAdmissionEventHandler(t *testing.T) {
	t.Parallel()
	jobs := newMemJobStore()
	articles := newMemArticleStore()
	gen := &stubGenerator{
		fn: func(ctx context.Context, userID uuid.UUID, keyword string, settings json.RawMessage) (*domain.Article, error) {
			return makeArticle(userID, keyword)
		},
	}

	o := newTestOrchestrator(t, jobs, articles, gen, Config{JobWorkers: 1, ItemConcurrency: 1})
	require.NoError(t, o.Start())
	defer o.Stop()

	handler := NewAdmissionEventHandler(o, testLogger())

	job, _, err := seedJob(jobs, uuid.New(), 1)
	require.NoError(t, err)

	require.NoError(t, handler.HandleEvent(context.Background(), submissionEvent(t, job.ID)))

	final := waitTerminal(t, jobs, job.ID)
	assert.Equal(t, domain.JobStatusCompleted, final.Status)
}

func TestAdmissionEventHandlerIgnoresOtherTypes(t *testing.T) {
	t.Parallel()
	jobs := newMemJobStore()
	o := newTestOrchestrator(t, jobs, newMemArticleStore(), &stubGenerator{
		fn: func(ctx context.Context, userID uuid.UUID, keyword string, settings json.RawMessage) (*domain.Article, error) {
			return makeArticle(userID, keyword)
		},
	}, Config{})

	handler := NewAdmissionEventHandler(o, testLogger())

	event, err := events.NewJobRequestEvent("job_retried", struct{}{})
	require.NoError(t, err)

	// Orchestrator never started; a dispatched admission would error.
	assert.NoError(t, handler.HandleEvent(context.Background(), event))
}

func TestAdmissionEventHandlerBadPayload(t *testing.T) {
	t.Parallel()
	jobs := newMemJobStore()
	o := newTestOrchestrator(t, jobs, newMemArticleStore(), &stubGenerator{
		fn: func(ctx context.Context, userID uuid.UUID, keyword string, settings json.RawMessage) (*domain.Article, error) {
			return makeArticle(userID, keyword)
		},
	}, Config{})
	require.NoError(t, o.Start())
	defer o.Stop()

	handler := NewAdmissionEventHandler(o, testLogger())

	event, err := events.NewJobRequestEvent(events.EventTypeJobSubmitted, struct {
		JobID string `json:"job_id"`
	}{JobID: "not-a-uuid"})
	require.NoError(t, err)

	assert.Error(t, handler.HandleEvent(context.Background(), event))

	// Wait a beat so a wrongly admitted job would have surfaced.
	time.Sleep(20 * time.Millisecond)
	unfinished, err := jobs.FindUnfinished(context.Background())
	require.NoError(t, err)
	assert.Empty(t, unfinished)
}
