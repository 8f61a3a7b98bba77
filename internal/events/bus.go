package events

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// BusConfig holds configuration for the event bus
type BusConfig struct {
	// QueueSize determines the buffer size of the in-memory dispatch queue.
	// If zero or negative, DefaultBusConfig().QueueSize is used.
	QueueSize int
}

// DefaultBusConfig returns a BusConfig with reasonable defaults
func DefaultBusConfig() BusConfig {
	return BusConfig{
		QueueSize: 256,
	}
}

// SubscriptionID identifies a subscription returned by Subscribe.
type SubscriptionID uint64

type subscription struct {
	id      SubscriptionID
	pattern string
	handler EventHandler
}

// Stats is a point-in-time snapshot of the bus counters.
type Stats struct {
	Published   int64 `json:"published"`
	Delivered   int64 `json:"delivered"`
	Failed      int64 `json:"failed"`
	Rejected    int64 `json:"rejected"`
	Unrouted    int64 `json:"unrouted"`
	Queued      int   `json:"queued"`
	Subscribers int   `json:"subscribers"`
}

// Bus is an in-process event bus. Events are journaled and queued by EmitEvent
// and dispatched one at a time, in FIFO order, by Run.
type Bus struct {
	journal Journal
	queue   chan *Event
	logger  *slog.Logger

	mu     sync.RWMutex
	subs   []subscription
	nextID SubscriptionID

	// queued holds the IDs of events claimed for dispatch, from the moment
	// EmitEvent or Recover claims them until dispatch has recorded the outcome.
	queuedMu sync.Mutex
	queued   map[uuid.UUID]struct{}

	running atomic.Bool
	// backlog is set when Recover left pending events behind on a full queue.
	backlog atomic.Bool

	published atomic.Int64
	delivered atomic.Int64
	failed    atomic.Int64
	rejected  atomic.Int64
	unrouted  atomic.Int64
}

var _ EventEmitter = (*Bus)(nil)

// NewBus creates a new Bus backed by the given journal.
func NewBus(journal Journal, config BusConfig, logger *slog.Logger) *Bus {
	queueSize := config.QueueSize
	if queueSize <= 0 {
		queueSize = DefaultBusConfig().QueueSize
		logger.Warn("invalid queue size specified, using default",
			"specified_size", config.QueueSize,
			"default_size", queueSize)
	}

	return &Bus{
		journal: journal,
		queue:   make(chan *Event, queueSize),
		logger:  logger.With("component", "event_bus"),
		queued:  make(map[uuid.UUID]struct{}),
	}
}

// Subscribe registers handler for every topic matching pattern. Patterns use
// path.Match syntax, so "*" matches any topic without a '/' and "orders.*"
// matches every topic starting with "orders.".
func (b *Bus) Subscribe(pattern string, handler EventHandler) (SubscriptionID, error) {
	if handler == nil {
		return 0, ErrNilHandler
	}
	if err := ValidatePattern(pattern); err != nil {
		return 0, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	b.subs = append(b.subs, subscription{
		id:      b.nextID,
		pattern: pattern,
		handler: handler,
	})

	b.logger.Debug("registered event handler",
		"subscription_id", b.nextID,
		"pattern", pattern,
		"handler_count", len(b.subs))
	return b.nextID, nil
}

// ValidatePattern checks that pattern is a usable subscription pattern.
func ValidatePattern(pattern string) error {
	if pattern == "" {
		return fmt.Errorf("%w: pattern is empty", ErrInvalidPattern)
	}
	if _, err := path.Match(pattern, ""); err != nil {
		return fmt.Errorf("%w: %q: %v", ErrInvalidPattern, pattern, err)
	}
	return nil
}

// Unsubscribe removes a subscription. It reports whether the ID was found.
func (b *Bus) Unsubscribe(id SubscriptionID) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	for i, sub := range b.subs {
		if sub.id == id {
			b.subs = append(b.subs[:i], b.subs[i+1:]...)
			return true
		}
	}
	return false
}

// EmitEvent journals the event and queues it for dispatch without blocking.
// When the queue is full the event stays pending in the journal and
// ErrQueueFull is returned. Emitting an event that is already queued is a no-op.
func (b *Bus) EmitEvent(ctx context.Context, event *Event) error {
	if event == nil {
		return fmt.Errorf("%w: event is nil", ErrInvalidTopic)
	}
	if err := ValidateTopic(event.Topic); err != nil {
		return err
	}

	// Claim the ID before journaling so a concurrent Recover cannot queue it too
	if !b.claim(event.ID) {
		b.logger.Debug("event already queued", "event_id", event.ID, "topic", event.Topic)
		return nil
	}

	if err := b.journal.SaveEvent(ctx, event); err != nil {
		b.release(event.ID)
		return fmt.Errorf("failed to save event: %w", err)
	}

	if !b.push(event) {
		b.release(event.ID)
		b.rejected.Add(1)
		return fmt.Errorf("%w: queue capacity %d reached", ErrQueueFull, cap(b.queue))
	}

	b.published.Add(1)
	b.logger.Debug("event queued",
		"event_id", event.ID,
		"topic", event.Topic,
		"queue_len", len(b.queue),
		"queue_cap", cap(b.queue))
	return nil
}

// Run recovers pending events from the journal and dispatches queued events
// until ctx is cancelled. It returns nil on cancellation.
func (b *Bus) Run(ctx context.Context) error {
	if !b.running.CompareAndSwap(false, true) {
		return ErrBusRunning
	}
	defer b.running.Store(false)

	if err := b.Recover(ctx); err != nil {
		return fmt.Errorf("failed to recover events: %w", err)
	}

	b.logger.Info("event bus running")
	for {
		select {
		case <-ctx.Done():
			b.logger.Info("event bus stopping", "queued", len(b.queue))
			return nil
		case event := <-b.queue:
			b.dispatch(ctx, event)
			b.release(event.ID)

			if len(b.queue) == 0 && b.backlog.Load() && ctx.Err() == nil {
				if err := b.Recover(ctx); err != nil {
					b.backlog.Store(true)
					b.logger.Error("failed to recover pending backlog", "error", err)
				}
			}
		}
	}
}

// Recover requeues events the journal still holds as pending, skipping any
// that are already queued or being dispatched. Events that do not fit in the
// queue are left pending and Run recovers them once the queue has drained.
func (b *Bus) Recover(ctx context.Context) error {
	b.backlog.Store(false)

	pending, err := b.journal.GetPendingEvents(ctx)
	if err != nil {
		return fmt.Errorf("failed to get pending events: %w", err)
	}
	if len(pending) == 0 {
		return nil
	}

	requeued, deferred := 0, 0
	for _, event := range pending {
		if !b.claim(event.ID) {
			continue
		}
		if !b.push(event) {
			b.release(event.ID)
			deferred++
			continue
		}
		requeued++
	}

	if deferred > 0 {
		b.backlog.Store(true)
		b.logger.Warn("queue full, deferring pending events until it drains",
			"deferred_count", deferred)
	}
	b.logger.Info("recovered pending events",
		"pending_count", len(pending),
		"requeued_count", requeued)
	return nil
}

// Stats returns a snapshot of the bus counters.
func (b *Bus) Stats() Stats {
	b.mu.RLock()
	subscribers := len(b.subs)
	b.mu.RUnlock()

	return Stats{
		Published:   b.published.Load(),
		Delivered:   b.delivered.Load(),
		Failed:      b.failed.Load(),
		Rejected:    b.rejected.Load(),
		Unrouted:    b.unrouted.Load(),
		Queued:      len(b.queue),
		Subscribers: subscribers,
	}
}

// Running reports whether Run is currently executing.
func (b *Bus) Running() bool {
	return b.running.Load()
}

// claim marks id as queued. It reports false if id was already claimed.
func (b *Bus) claim(id uuid.UUID) bool {
	b.queuedMu.Lock()
	defer b.queuedMu.Unlock()

	if _, ok := b.queued[id]; ok {
		return false
	}
	b.queued[id] = struct{}{}
	return true
}

func (b *Bus) release(id uuid.UUID) {
	b.queuedMu.Lock()
	delete(b.queued, id)
	b.queuedMu.Unlock()
}

// push sends a claimed event to the queue without blocking.
func (b *Bus) push(event *Event) bool {
	select {
	case b.queue <- event:
		return true
	default:
		return false
	}
}

// matching returns the handlers subscribed to topic
func (b *Bus) matching(topic string) []subscription {
	b.mu.RLock()
	defer b.mu.RUnlock()

	var matched []subscription
	for _, sub := range b.subs {
		if ok, _ := path.Match(sub.pattern, topic); ok {
			matched = append(matched, sub)
		}
	}
	return matched
}

// dispatch delivers one event to every matching handler and records the outcome.
// A failing handler does not prevent delivery to the others; the first error is
// recorded in the journal.
func (b *Bus) dispatch(ctx context.Context, event *Event) {
	logger := b.logger.With("event_id", event.ID, "topic", event.Topic)

	// Journal writes must survive a stop request arriving mid-dispatch
	journalCtx := context.WithoutCancel(ctx)

	subs := b.matching(event.Topic)
	if len(subs) == 0 {
		b.unrouted.Add(1)
		logger.Warn("no handlers registered for event")
		if err := b.journal.UpdateEventStatus(journalCtx, event.ID, StatusDelivered, ""); err != nil {
			logger.Error("failed to update event status to delivered", "error", err)
		}
		return
	}

	var firstErr error
	for _, sub := range subs {
		if err := b.invoke(ctx, sub.handler, event); err != nil {
			logger.Error("handler failed to process event",
				"error", err,
				"subscription_id", sub.id,
				"pattern", sub.pattern)
			if firstErr == nil {
				firstErr = err
			}
		}
	}

	if firstErr != nil {
		b.failed.Add(1)
		if err := b.journal.UpdateEventStatus(journalCtx, event.ID, StatusFailed, firstErr.Error()); err != nil {
			logger.Error("failed to update event status to failed", "error", err)
		}
		return
	}

	b.delivered.Add(1)
	logger.Debug("event delivered", "handler_count", len(subs))
	if err := b.journal.UpdateEventStatus(journalCtx, event.ID, StatusDelivered, ""); err != nil {
		logger.Error("failed to update event status to delivered", "error", err)
	}
}

func (b *Bus) invoke(ctx context.Context, handler EventHandler, event *Event) (err error) {
	defer func() {
		if v := recover(); v != nil {
			err = fmt.Errorf("handler panicked: %v", v)
		}
	}()
	return handler.HandleEvent(ctx, event)
}
