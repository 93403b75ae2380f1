// Package outbox defines the ports through which domain events leave a use
// case. Delivery is asynchronous: Publish returns once the event is queued.
package outbox

import "context"

// Event is a domain fact named like "order.closed" or "payment.failed".
type Event interface {
	EventName() string
}

// Handler reacts to one delivered event. A returned error is logged and
// counted; the event is not redelivered.
type Handler func(ctx context.Context, e Event) error

type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

type Subscriber interface {
	Subscribe(eventName string, h Handler)
}

// Bus queues events and delivers them to subscribers.
type Bus interface {
	Publisher
	Subscriber
}
