package manager

// Event represents a manager lifecycle event.
// Minimal and stable: name + model and optional fields via key/values.
type Event struct {
	Name   string
	Model  string
	Fields map[string]any
}

// Event names published by the manager.
const (
	EventLoadStart = "load_start"
	EventLoadReady = "load_ready"
	EventLoadError = "load_error"
)

// EventPublisher receives events from the manager. Implementations should be
// lightweight and non-blocking; Publish must not panic.
type EventPublisher interface {
	Publish(Event)
}

// PublisherFunc adapts a function to EventPublisher.
type PublisherFunc func(Event)

func (f PublisherFunc) Publish(e Event) { f(e) }

// noopPublisher is the default; it drops events.
type noopPublisher struct{}

func (noopPublisher) Publish(Event) {}
