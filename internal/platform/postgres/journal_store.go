package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/eventhost/internal/events"
	"github.com/phrazzld/eventhost/internal/platform/logger"
	"github.com/phrazzld/eventhost/internal/store"
)

// PostgresJournal implements the events.Journal interface using PostgreSQL
type PostgresJournal struct {
	db store.DBTX
}

var _ events.Journal = (*PostgresJournal)(nil)

// NewPostgresJournal creates a new PostgresJournal
func NewPostgresJournal(db store.DBTX) *PostgresJournal {
	return &PostgresJournal{
		db: db,
	}
}

// SaveEvent persists an event with "pending" status
func (j *PostgresJournal) SaveEvent(ctx context.Context, event *events.Event) error {
	log := logger.FromContext(ctx)

	query := `
		INSERT INTO events (id, topic, payload, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	payload := event.Payload
	if len(payload) == 0 {
		payload = json.RawMessage("null")
	}

	now := time.Now().UTC()
	_, err := j.db.ExecContext(ctx, query,
		event.ID,
		event.Topic,
		string(payload),
		events.StatusPending,
		event.CreatedAt,
		now,
	)
	if err != nil {
		log.Error("failed to save event",
			"event_id", event.ID,
			"topic", event.Topic,
			"error", err)
		return fmt.Errorf("failed to save event to database: %w", MapError(err))
	}

	return nil
}

// UpdateEventStatus updates the status of an event. Unknown IDs are a no-op.
func (j *PostgresJournal) UpdateEventStatus(
	ctx context.Context,
	eventID uuid.UUID,
	status events.Status,
	errorMsg string,
) error {
	log := logger.FromContext(ctx)

	query := `
		UPDATE events
		SET status = $1, error_message = $2, updated_at = $3
		WHERE id = $4
	`

	result, err := j.db.ExecContext(ctx, query,
		status,
		sql.NullString{String: errorMsg, Valid: errorMsg != ""},
		time.Now().UTC(),
		eventID,
	)
	if err != nil {
		log.Error("failed to update event status",
			"event_id", eventID,
			"status", status,
			"error", err)
		return fmt.Errorf("failed to update event status: %w", MapError(err))
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		log.Warn("no event found with ID to update status", "event_id", eventID)
	}

	return nil
}

// GetPendingEvents retrieves all events with "pending" status, oldest first
func (j *PostgresJournal) GetPendingEvents(ctx context.Context) ([]*events.Event, error) {
	log := logger.FromContext(ctx)

	query := `
		SELECT id, topic, payload, created_at
		FROM events
		WHERE status = $1
		ORDER BY created_at ASC
	`

	rows, err := j.db.QueryContext(ctx, query, events.StatusPending)
	if err != nil {
		log.Error("failed to query pending events", "error", err)
		return nil, fmt.Errorf("failed to query pending events: %w", MapError(err))
	}
	defer rows.Close()

	var pending []*events.Event
	for rows.Next() {
		var event events.Event
		var payload []byte
		if err := rows.Scan(&event.ID, &event.Topic, &payload, &event.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan event row: %w", err)
		}
		event.Payload = payload
		pending = append(pending, &event)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating event rows: %w", err)
	}

	return pending, nil
}

// GetEvent retrieves an event record by ID
func (j *PostgresJournal) GetEvent(ctx context.Context, eventID uuid.UUID) (*events.Record, error) {
	query := `
		SELECT id, topic, payload, status, error_message, created_at, updated_at
		FROM events
		WHERE id = $1
	`

	var event events.Event
	var payload []byte
	var record events.Record
	var errorMessage sql.NullString

	err := j.db.QueryRowContext(ctx, query, eventID).Scan(
		&event.ID,
		&event.Topic,
		&payload,
		&record.Status,
		&errorMessage,
		&event.CreatedAt,
		&record.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, events.ErrEventNotFound
		}
		return nil, fmt.Errorf("failed to get event: %w", MapError(err))
	}

	event.Payload = payload
	record.Event = &event
	record.ErrorMessage = errorMessage.String
	return &record, nil
}
