// Package eventbus fans in-process notifications out to subscribers.
//
// Delivery never blocks the publisher: every subscriber owns a buffered
// channel and an event that does not fit is dropped for that subscriber
// only. Dropped deliveries are counted.
package eventbus

// Event is any value published on a Bus, usually one of the types of the
// core/events package.
type Event any

// EventBus is the untyped bus as seen by publishers and collectors.
type EventBus interface {
	Publish(Event)
	Subscribe() <-chan Event
	Unsubscribe(<-chan Event)
	Close()
}

// Bus carries domain events between the engine and its collectors.
type Bus = TypedBus[Event]

var _ EventBus = (*Bus)(nil)

// New returns an empty Bus.
func New(opts ...Option) *Bus { return NewTyped[Event](opts...) }
