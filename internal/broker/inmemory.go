package broker

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

// InMemoryBroker is a simple, single-process Broker backed by a Go channel.
// It is suitable for development and single-node deployments without an
// external broker; Publish is the producer side.
type InMemoryBroker struct {
	mu         sync.Mutex
	closed     bool
	deliveries chan *memDelivery
}

// NewInMemoryBroker creates an InMemoryBroker with a bounded buffer.
func NewInMemoryBroker() *InMemoryBroker {
	return &InMemoryBroker{
		deliveries: make(chan *memDelivery, 1024),
	}
}

// Publish enqueues a raw message for delivery to the consumer.
func (b *InMemoryBroker) Publish(body []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return fmt.Errorf("broker is closed")
	}

	b.deliveries <- &memDelivery{tag: uuid.New().String(), body: body}
	return nil
}

// Consume hands queued messages to handler sequentially until ctx is
// cancelled or the broker is closed.
func (b *InMemoryBroker) Consume(ctx context.Context, handler Handler) error {
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case d, ok := <-b.deliveries:
				if !ok {
					return
				}
				handler(d)
			}
		}
	}()
	return nil
}

// Close prevents further publishes and stops delivery.
func (b *InMemoryBroker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true
	close(b.deliveries)
	return nil
}

type memDelivery struct {
	tag  string
	body []byte
}

func (d *memDelivery) Body() []byte { return d.body }

func (d *memDelivery) Ack() error { return nil }

func (d *memDelivery) Nack(requeue bool) error { return nil }
