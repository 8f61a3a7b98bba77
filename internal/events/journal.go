package events

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Status is the delivery state of a journaled event
type Status string

// Possible event status values
const (
	StatusPending   Status = "pending"
	StatusDelivered Status = "delivered"
	StatusFailed    Status = "failed"
)

// Record is an event together with its delivery state.
type Record struct {
	Event        *Event    `json:"event"`
	Status       Status    `json:"status"`
	ErrorMessage string    `json:"error,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Journal defines the interface for persisting events and their delivery status.
type Journal interface {
	// SaveEvent persists a new event with "pending" status
	SaveEvent(ctx context.Context, event *Event) error

	// UpdateEventStatus records the outcome of dispatching an event
	UpdateEventStatus(ctx context.Context, eventID uuid.UUID, status Status, errorMsg string) error

	// GetPendingEvents retrieves events that were saved but never dispatched,
	// oldest first
	GetPendingEvents(ctx context.Context) ([]*Event, error)

	// GetEvent retrieves a single event record.
	// Returns ErrEventNotFound if no event has the given ID.
	GetEvent(ctx context.Context, eventID uuid.UUID) (*Record, error)
}

// MemoryJournal is a Journal kept in process memory. It is used when no
// database is configured, and in tests.
type MemoryJournal struct {
	mu      sync.RWMutex
	order   []uuid.UUID
	records map[uuid.UUID]*Record
}

var _ Journal = (*MemoryJournal)(nil)

// NewMemoryJournal creates an empty MemoryJournal.
func NewMemoryJournal() *MemoryJournal {
	return &MemoryJournal{
		records: make(map[uuid.UUID]*Record),
	}
}

// SaveEvent stores the event as pending.
func (j *MemoryJournal) SaveEvent(ctx context.Context, event *Event) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if _, exists := j.records[event.ID]; !exists {
		j.order = append(j.order, event.ID)
	}
	j.records[event.ID] = &Record{
		Event:     event,
		Status:    StatusPending,
		UpdatedAt: time.Now().UTC(),
	}
	return nil
}

// UpdateEventStatus sets the status of a stored event. Unknown IDs are a no-op.
func (j *MemoryJournal) UpdateEventStatus(
	ctx context.Context,
	eventID uuid.UUID,
	status Status,
	errorMsg string,
) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	record, exists := j.records[eventID]
	if !exists {
		return nil
	}
	record.Status = status
	record.ErrorMessage = errorMsg
	record.UpdatedAt = time.Now().UTC()
	return nil
}

// GetPendingEvents returns pending events in the order they were saved.
func (j *MemoryJournal) GetPendingEvents(ctx context.Context) ([]*Event, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()

	var pending []*Event
	for _, id := range j.order {
		if record := j.records[id]; record.Status == StatusPending {
			pending = append(pending, record.Event)
		}
	}
	return pending, nil
}

// GetEvent returns a copy of the stored record.
func (j *MemoryJournal) GetEvent(ctx context.Context, eventID uuid.UUID) (*Record, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()

	record, exists := j.records[eventID]
	if !exists {
		return nil, ErrEventNotFound
	}
	copied := *record
	return &copied, nil
}
