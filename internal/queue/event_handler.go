package queue

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/inkdraft/inkdraft-api/internal/events"
)

// AdmissionEventHandler implements events.EventHandler by admitting
// submitted jobs into the orchestrator. It is the bridge between the
// submission path (which only knows the emitter) and the queue.
type AdmissionEventHandler struct {
	orchestrator *Orchestrator
	logger       *slog.Logger
}

// NewAdmissionEventHandler creates an event handler bound to the given
// orchestrator.
func NewAdmissionEventHandler(orchestrator *Orchestrator, logger *slog.Logger) *AdmissionEventHandler {
	return &AdmissionEventHandler{
		orchestrator: orchestrator,
		logger:       logger.With("component", "admission_event_handler"),
	}
}

// Ensure AdmissionEventHandler implements events.EventHandler
var _ events.EventHandler = (*AdmissionEventHandler)(nil)

// HandleEvent admits the job named by a job_submitted event. Events of
// other types are ignored.
func (h *AdmissionEventHandler) HandleEvent(ctx context.Context, event *events.JobRequestEvent) error {
	if event.Type != events.EventTypeJobSubmitted {
		h.logger.Debug("ignoring event with unsupported type",
			"event_type", event.Type,
			"event_id", event.ID)
		return nil
	}

	var payload struct {
		JobID string `json:"job_id"`
	}
	if err := event.UnmarshalPayload(&payload); err != nil {
		h.logger.Error("failed to unmarshal payload", "error", err, "event_id", event.ID)
		return fmt.Errorf("failed to unmarshal payload: %w", err)
	}

	jobID, err := uuid.Parse(payload.JobID)
	if err != nil {
		h.logger.Error("invalid job ID in event payload",
			"error", err,
			"job_id", payload.JobID,
			"event_id", event.ID)
		return fmt.Errorf("invalid job ID: %w", err)
	}

	if err := h.orchestrator.Admit(ctx, jobID); err != nil {
		h.logger.Error("failed to admit job",
			"error", err,
			"job_id", jobID,
			"event_id", event.ID)
		return fmt.Errorf("failed to admit job: %w", err)
	}

	h.logger.Info("job admitted from event",
		"job_id", jobID,
		"event_id", event.ID)
	return nil
}
