// Package messaging defines the transport abstraction used for the decision
// channel and for broadcasting pending-approval notifications. The engine
// itself never depends on a concrete transport; any broker that can deliver
// a typed payload once can implement Queue.
package messaging

import "context"

// Vendor names a messaging implementation ("memory", "fs", ...).
type Vendor string

// Queue represents an abstract message queue for any payload type.
type Queue[T any] interface {
	// Publish adds a new message with payload to the queue.
	Publish(ctx context.Context, t *T) error

	// Consume retrieves a single message from the queue, blocking until one
	// is available or ctx is done. Implementations may return (nil, nil)
	// when polling found nothing.
	Consume(ctx context.Context) (Message[T], error)
}

// Message represents a message retrieved from a queue.
type Message[T any] interface {
	// T returns the payload of this message.
	T() *T

	// Ack acknowledges successful processing of this message.
	Ack() error

	// Nack indicates failure in processing this message.
	Nack(err error) error
}
