package broker

import (
	"context"
	"testing"
	"time"
)

func TestInMemoryBroker_PublishConsume(t *testing.T) {
	b := NewInMemoryBroker()
	defer b.Close()

	received := make(chan []byte, 1)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := b.Consume(ctx, func(d Delivery) {
		received <- d.Body()
		if err := d.Ack(); err != nil {
			t.Errorf("ack failed: %v", err)
		}
	}); err != nil {
		t.Fatalf("consume failed: %v", err)
	}

	if err := b.Publish([]byte(`{"eventId":"e1"}`)); err != nil {
		t.Fatalf("publish failed: %v", err)
	}

	select {
	case body := <-received:
		if string(body) != `{"eventId":"e1"}` {
			t.Errorf("unexpected body %s", body)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for delivery")
	}
}

func TestInMemoryBroker_DeliveryOrder(t *testing.T) {
	b := NewInMemoryBroker()
	defer b.Close()

	received := make(chan string, 3)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := b.Consume(ctx, func(d Delivery) {
		received <- string(d.Body())
	}); err != nil {
		t.Fatalf("consume failed: %v", err)
	}

	for _, body := range []string{"one", "two", "three"} {
		if err := b.Publish([]byte(body)); err != nil {
			t.Fatalf("publish %s failed: %v", body, err)
		}
	}

	for _, want := range []string{"one", "two", "three"} {
		select {
		case got := <-received:
			if got != want {
				t.Errorf("expected %q, got %q", want, got)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("timed out waiting for %q", want)
		}
	}
}

func TestInMemoryBroker_ClosePreventsPublish(t *testing.T) {
	b := NewInMemoryBroker()
	b.Close()

	if err := b.Publish([]byte("x")); err == nil {
		t.Error("expected error publishing after close")
	}
}

func TestInMemoryBroker_DoubleCloseIsNoop(t *testing.T) {
	b := NewInMemoryBroker()
	if err := b.Close(); err != nil {
		t.Fatalf("first close failed: %v", err)
	}
	if err := b.Close(); err != nil {
		t.Fatalf("second close failed: %v", err)
	}
}
