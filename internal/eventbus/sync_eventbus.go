// Package eventbus provides event bus implementations
package eventbus

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// ErrClosed is returned by every operation on a closed bus.
var ErrClosed = errors.New("event bus is closed")

type subscription struct {
	id      string
	types   map[EventType]struct{} // nil means all events
	handler EventHandler
}

// SyncEventBus dispatches events on the publisher's goroutine, in subscription order.
// Publish returns only after every matching handler has run.
type SyncEventBus struct {
	subs   []subscription
	closed bool
	mutex  sync.RWMutex

	maxRetries int
}

// SyncEventBusOption configures the synchronous event bus
type SyncEventBusOption func(*SyncEventBus)

// WithRetries sets how many extra times a failing handler is invoked.
func WithRetries(maxRetries int) SyncEventBusOption {
	return func(eb *SyncEventBus) {
		eb.maxRetries = maxRetries
	}
}

// NewSyncEventBus creates a new synchronous event bus
func NewSyncEventBus(options ...SyncEventBusOption) *SyncEventBus {
	eb := &SyncEventBus{}
	for _, option := range options {
		option(eb)
	}
	return eb
}

// Publish sends an event to all subscribed handlers. Handler errors do not stop
// dispatch; they are joined into the returned error.
func (eb *SyncEventBus) Publish(ctx context.Context, event Event) error {
	if event == nil {
		return fmt.Errorf("event cannot be nil")
	}

	eb.mutex.RLock()
	if eb.closed {
		eb.mutex.RUnlock()
		return ErrClosed
	}
	// Copy so handlers may subscribe/unsubscribe without deadlocking
	subs := make([]subscription, len(eb.subs))
	copy(subs, eb.subs)
	eb.mutex.RUnlock()

	var errs []error
	for _, sub := range subs {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}
		if sub.types != nil {
			if _, ok := sub.types[event.Type()]; !ok {
				continue
			}
		}
		if err := eb.executeHandler(ctx, event, sub.handler); err != nil {
			errs = append(errs, fmt.Errorf("handler %s (event_type: %s): %w", sub.id, event.Type(), err))
		}
	}
	return errors.Join(errs...)
}

// executeHandler runs a handler with retry logic
func (eb *SyncEventBus) executeHandler(ctx context.Context, event Event, handler EventHandler) error {
	var err error
	for attempt := 0; attempt <= eb.maxRetries; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err = handler(ctx, event); err == nil {
			return nil
		}
	}
	return err
}

// Subscribe registers a handler for specific event types
func (eb *SyncEventBus) Subscribe(eventTypes []EventType, handler EventHandler) (string, error) {
	if handler == nil {
		return "", fmt.Errorf("handler cannot be nil")
	}
	if len(eventTypes) == 0 {
		return "", fmt.Errorf("at least one event type is required")
	}

	types := make(map[EventType]struct{}, len(eventTypes))
	for _, t := range eventTypes {
		types[t] = struct{}{}
	}
	return eb.add(types, handler)
}

// SubscribeAll registers a handler for all event types
func (eb *SyncEventBus) SubscribeAll(handler EventHandler) (string, error) {
	if handler == nil {
		return "", fmt.Errorf("handler cannot be nil")
	}
	return eb.add(nil, handler)
}

func (eb *SyncEventBus) add(types map[EventType]struct{}, handler EventHandler) (string, error) {
	eb.mutex.Lock()
	defer eb.mutex.Unlock()
	if eb.closed {
		return "", ErrClosed
	}

	subscriptionID := uuid.New().String()
	eb.subs = append(eb.subs, subscription{id: subscriptionID, types: types, handler: handler})
	return subscriptionID, nil
}

// Unsubscribe removes a subscription by ID. Unknown IDs are ignored.
func (eb *SyncEventBus) Unsubscribe(subscriptionID string) error {
	eb.mutex.Lock()
	defer eb.mutex.Unlock()
	if eb.closed {
		return ErrClosed
	}

	kept := eb.subs[:0]
	for _, sub := range eb.subs {
		if sub.id != subscriptionID {
			kept = append(kept, sub)
		}
	}
	eb.subs = kept
	return nil
}

// Close drops all subscriptions. Closing twice is a no-op.
func (eb *SyncEventBus) Close() error {
	eb.mutex.Lock()
	defer eb.mutex.Unlock()
	eb.closed = true
	eb.subs = nil
	return nil
}
