package bus

import "context"

// Handler consumes one message delivered on a subscribed topic.
type Handler func(topic string, payload []byte)

// Subscription is a live topic subscription. Cancel stops delivery and
// releases the subscription's resources.
type Subscription interface {
	Cancel() error
}

// Bus is a topic-based publish/subscribe transport used to coordinate
// processes that cannot share memory. Delivery is at-most-once and
// fire-and-forget; consumers must tolerate missed messages.
type Bus interface {
	// Publish sends payload to every current subscriber of topic.
	Publish(ctx context.Context, topic string, payload []byte) error

	// Subscribe registers handler for topic. The handler is invoked from a
	// bus-owned goroutine until the subscription is cancelled.
	Subscribe(ctx context.Context, topic string, handler Handler) (Subscription, error)

	// Close shuts the bus down and cancels all subscriptions.
	Close() error
}
