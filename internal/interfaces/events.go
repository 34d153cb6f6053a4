package interfaces

import "context"

// EventType identifies a category of event
type EventType string

// Event types published by the pipeline and scheduler
const (
	EventInsightCompleted EventType = "insight.completed"
	EventInsightFailed    EventType = "insight.failed"
	EventJobFired         EventType = "job.fired"
	EventJobFailed        EventType = "job.failed"
)

// Event is a notification with an optional payload
type Event struct {
	Type    EventType
	Payload map[string]any
}

// EventHandler processes a published event
type EventHandler func(ctx context.Context, event Event) error

// EventService provides in-process publish/subscribe
type EventService interface {
	Subscribe(eventType EventType, handler EventHandler) error
	Publish(ctx context.Context, event Event) error
	PublishSync(ctx context.Context, event Event) error
	Close() error
}
