package eventbus

import (
	"context"
	"time"
)

// EventType represents the type of an event
type EventType string

// Standard event types
const (
	// Plan acquisition events
	EventPlanCacheHit          EventType = "plan_cache_hit"
	EventPlanCacheMiss         EventType = "plan_cache_miss"
	EventPlanGenerated         EventType = "plan_generated"
	EventPlanGenerationFailure EventType = "plan_generation_failure"

	// Step execution events
	EventStepSuccess EventType = "step_success"
	EventStepFailure EventType = "step_failure"

	// Correction events
	EventCorrectionAttempted EventType = "correction_attempted"
	EventCorrectionSuccess   EventType = "correction_success"
	EventCorrectionFailure   EventType = "correction_failure"

	// Memoization events
	EventPlanCached      EventType = "plan_cached"
	EventPlanCacheFailed EventType = "plan_cache_failed"

	// Solve events
	EventSolveSuccess EventType = "solve_success"
	EventSolveFailure EventType = "solve_failure"
)

// EventHandler is a function that handles events
type EventHandler func(context.Context, Event) error

// Event represents something that has happened within the system
type Event interface {
	// Type returns the event type
	Type() EventType

	// Payload returns the event data
	Payload() interface{}

	// Metadata returns additional information about the event
	Metadata() map[string]interface{}

	// Timestamp returns when the event occurred
	Timestamp() int64

	// Source returns information about what generated the event
	Source() string
}

// EventBus is the central event dispatch system
type EventBus interface {
	// Publish sends an event to all subscribed handlers
	Publish(ctx context.Context, event Event) error

	// Subscribe registers a handler for specific event types
	// Returns a subscription ID that can be used to unsubscribe
	Subscribe(eventTypes []EventType, handler EventHandler) (string, error)

	// SubscribeAll registers a handler for all event types
	// Returns a subscription ID that can be used to unsubscribe
	SubscribeAll(handler EventHandler) (string, error)

	// Unsubscribe removes a subscription by ID
	Unsubscribe(subscriptionID string) error

	// Close shuts down the event bus, cleaning up resources
	Close() error
}

// BaseEvent is a simple implementation of the Event interface
type BaseEvent struct {
	eventType  EventType
	payload    interface{}
	metadata   map[string]interface{}
	timestamp  int64
	sourceInfo string
}

// NewEvent creates a new BaseEvent
func NewEvent(
	eventType EventType,
	payload interface{},
	source string,
	metadata map[string]interface{},
) *BaseEvent {
	if metadata == nil {
		metadata = make(map[string]interface{})
	}

	return &BaseEvent{
		eventType:  eventType,
		payload:    payload,
		metadata:   metadata,
		timestamp:  time.Now().UnixNano(),
		sourceInfo: source,
	}
}

func (e *BaseEvent) Type() EventType                  { return e.eventType }
func (e *BaseEvent) Payload() interface{}             { return e.payload }
func (e *BaseEvent) Metadata() map[string]interface{} { return e.metadata }
func (e *BaseEvent) Timestamp() int64                 { return e.timestamp }
func (e *BaseEvent) Source() string                   { return e.sourceInfo }

// WithMetadata adds or updates metadata and returns the same event
func (e *BaseEvent) WithMetadata(key string, value interface{}) *BaseEvent {
	e.metadata[key] = value
	return e
}

// PublishIfSet publishes the event when bus is non-nil. Handler errors are
// returned for logging only.
func PublishIfSet(ctx context.Context, bus EventBus, event Event) error {
	if bus == nil {
		return nil
	}
	return bus.Publish(ctx, event)
}
