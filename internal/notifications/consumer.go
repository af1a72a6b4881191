package notifications

import (
	"context"
	"log"
	"time"

	"github.com/logiflow/notification-service/internal/broker"
)

// persistTimeout bounds the store write for one message, so a stalled
// database cannot wedge the delivery goroutine indefinitely.
const persistTimeout = 10 * time.Second

// Store is the persistence collaborator. The ack granted for a message
// always reflects a completed CreateNotification call.
type Store interface {
	CreateNotification(ctx context.Context, n *Notification) (string, error)
}

// Dispatcher offers a decoded event to live realtime subscribers. Dispatch
// is push-only and best-effort; it must not block.
type Dispatcher interface {
	Dispatch(event Event)
}

// Consumer pulls raw messages from the broker, decodes them, persists the
// result and hands it to the dispatcher. It owns the ack/nack decision:
// a message is acked only after it has been durably recorded and offered to
// live subscribers; malformed or unpersistable messages are nacked without
// requeue so a poison message is dropped instead of redelivered forever.
type Consumer struct {
	broker     broker.Broker
	store      Store
	dispatcher Dispatcher
	ctx        context.Context
	cancel     context.CancelFunc
}

// NewConsumer creates a new Consumer.
func NewConsumer(b broker.Broker, store Store, dispatcher Dispatcher) *Consumer {
	ctx, cancel := context.WithCancel(context.Background())
	return &Consumer{
		broker:     b,
		store:      store,
		dispatcher: dispatcher,
		ctx:        ctx,
		cancel:     cancel,
	}
}

// Start registers the consumer with the broker. It returns immediately;
// message handling runs on the broker's delivery goroutine, one message at
// a time, so acks happen in delivery order.
func (c *Consumer) Start() error {
	return c.broker.Consume(c.ctx, c.handle)
}

// Stop cancels the consumer's context, stopping new deliveries. Any message
// already in handle completes its ack decision first, because handle runs
// on the delivery goroutine that Stop does not interrupt.
func (c *Consumer) Stop() {
	c.cancel()
}

func (c *Consumer) handle(d broker.Delivery) {
	ev, err := Decode(d.Body())
	if err != nil {
		log.Printf("consumer: dropping malformed message: %v (payload: %s)", err, d.Body())
		if err := d.Nack(false); err != nil {
			log.Printf("consumer: nack failed: %v", err)
		}
		return
	}

	if ev.TimestampSubstituted {
		log.Printf("consumer: event %s had missing or invalid eventTimestamp, substituted ingestion time", ev.EventID)
	}

	n, err := NotificationFromEvent(ev)
	if err == nil {
		// The write runs under its own context: Stop must not abort an
		// in-flight persist, or a valid message would be nacked without
		// requeue and lost on shutdown.
		pctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		_, err = c.store.CreateNotification(pctx, n)
		cancel()
	}
	if err != nil {
		log.Printf("consumer: failed to persist event %s: %v", ev.EventID, err)
		if err := d.Nack(false); err != nil {
			log.Printf("consumer: nack failed: %v", err)
		}
		return
	}

	// Best-effort fan-out. A dispatch problem never rolls back the ack:
	// persistence is the durability guarantee, live push is not.
	c.dispatch(ev)

	if err := d.Ack(); err != nil {
		log.Printf("consumer: ack failed for event %s: %v", ev.EventID, err)
	}
}

func (c *Consumer) dispatch(ev Event) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("consumer: dispatch panicked for event %s: %v", ev.EventID, r)
		}
	}()
	c.dispatcher.Dispatch(ev)
}
