package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/phrazzld/eventhost/internal/api/shared"
	"github.com/phrazzld/eventhost/internal/events"
	"github.com/phrazzld/eventhost/internal/platform/logger"
)

// StatsProvider reports bus counters.
type StatsProvider interface {
	Stats() events.Stats
}

// EventReader looks up journaled events.
type EventReader interface {
	GetEvent(ctx context.Context, eventID uuid.UUID) (*events.Record, error)
}

// EventHandler publishes and inspects events.
type EventHandler struct {
	emitter events.EventEmitter
	stats   StatsProvider
	reader  EventReader
}

// NewEventHandler creates a new EventHandler with the given dependencies.
func NewEventHandler(emitter events.EventEmitter, stats StatsProvider, reader EventReader) *EventHandler {
	return &EventHandler{
		emitter: emitter,
		stats:   stats,
		reader:  reader,
	}
}

// Publish handles POST /api/events. Accepted events are answered with 202
// before dispatch; a full queue is answered with 503.
func (h *EventHandler) Publish(w http.ResponseWriter, r *http.Request) {
	var req PublishRequest
	if err := shared.DecodeJSON(w, r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := shared.ValidateRequest(&req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, SanitizeValidationError(err))
		return
	}
	if err := events.ValidateTopic(req.Topic); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, GetSafeErrorMessage(err))
		return
	}

	event, err := events.NewEvent(req.Topic, req.Payload)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, "Invalid payload", err)
		return
	}

	if err := h.emitter.EmitEvent(r.Context(), event); err != nil {
		status := MapErrorToStatusCode(err)
		if status == http.StatusServiceUnavailable {
			w.Header().Set("Retry-After", "1")
		}
		shared.RespondWithErrorAndLog(w, r, status, publishFailureMessage(err), err)
		return
	}

	logger.FromContext(r.Context()).Debug("event accepted",
		"event_id", event.ID.String(),
		"topic", event.Topic)

	shared.RespondWithJSON(w, r, http.StatusAccepted, PublishResponse{
		ID:     event.ID,
		Topic:  event.Topic,
		Status: string(events.StatusPending),
	})
}

func publishFailureMessage(err error) string {
	if MapErrorToStatusCode(err) == http.StatusInternalServerError {
		return "Failed to publish event"
	}
	return GetSafeErrorMessage(err)
}

// Stats handles GET /api/events/stats.
func (h *EventHandler) Stats(w http.ResponseWriter, r *http.Request) {
	shared.RespondWithJSON(w, r, http.StatusOK, h.stats.Stats())
}

// Get handles GET /api/events/{id}.
func (h *EventHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid id: has invalid format")
		return
	}

	record, err := h.reader.GetEvent(r.Context(), id)
	if err != nil {
		if errors.Is(err, events.ErrEventNotFound) {
			shared.RespondWithError(w, r, http.StatusNotFound, GetSafeErrorMessage(err))
			return
		}
		shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError, "Failed to get event", err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, EventResponse{
		ID:        record.Event.ID,
		Topic:     record.Event.Topic,
		Payload:   record.Event.Payload,
		CreatedAt: record.Event.CreatedAt,
		Status:    record.Status,
		Error:     record.ErrorMessage,
		UpdatedAt: record.UpdatedAt,
	})
}
