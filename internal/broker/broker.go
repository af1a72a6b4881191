package broker

import "context"

// Delivery is a single inbound message from the broker. Acknowledgment is
// manual: the handler must call exactly one of Ack or Nack per delivery.
type Delivery interface {
	Body() []byte

	// Ack confirms the message and removes it from the broker.
	Ack() error

	// Nack rejects the message. With requeue false the broker drops the
	// message instead of redelivering it.
	Nack(requeue bool) error
}

// Handler processes one delivery and decides its acknowledgment.
type Handler func(d Delivery)

// Broker owns the connection to the message broker. Implementations include
// AMQPBroker, KafkaBroker and InMemoryBroker (for single-node deployments).
type Broker interface {
	// Consume starts handing messages from the durable queue to handler,
	// one at a time in broker delivery order. It returns once the consumer
	// is registered; delivery continues in a background goroutine until ctx
	// is cancelled or Close is called.
	Consume(ctx context.Context, handler Handler) error

	// Close shuts down the broker, releasing channels and connections.
	// After Close returns, Consume must not be called.
	Close() error
}
