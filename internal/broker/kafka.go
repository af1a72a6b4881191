package broker

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/segmentio/kafka-go"
)

// KafkaConfig holds configuration for the Kafka broker.
type KafkaConfig struct {
	Brokers       []string // list of broker addresses
	Topic         string   // topic carrying notification events
	ConsumerGroup string   // consumer group ID
}

// KafkaBroker implements Broker using Apache Kafka via segmentio/kafka-go.
// Offsets are committed explicitly on Ack, so a crash before Ack leads to
// redelivery within the consumer group.
type KafkaBroker struct {
	config KafkaConfig
	reader *kafka.Reader
}

// NewKafkaBroker creates a new KafkaBroker.
func NewKafkaBroker(config KafkaConfig) (*KafkaBroker, error) {
	if len(config.Brokers) == 0 {
		return nil, fmt.Errorf("at least one Kafka broker address is required")
	}
	if config.Topic == "" {
		return nil, fmt.Errorf("Kafka topic is required")
	}
	if config.ConsumerGroup == "" {
		config.ConsumerGroup = "notification-service"
	}

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  config.Brokers,
		Topic:    config.Topic,
		GroupID:  config.ConsumerGroup,
		MinBytes: 1,
		MaxBytes: 10e6, // 10MB
		MaxWait:  500 * time.Millisecond,
	})

	return &KafkaBroker{config: config, reader: reader}, nil
}

// Consume fetches messages in a background goroutine and hands them to
// handler one at a time, preserving partition order.
func (b *KafkaBroker) Consume(ctx context.Context, handler Handler) error {
	go func() {
		for {
			msg, err := b.reader.FetchMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return // context cancelled, shutting down
				}
				log.Printf("broker: kafka fetch error: %v", err)
				return
			}
			handler(&kafkaDelivery{ctx: ctx, reader: b.reader, msg: msg})
		}
	}()

	log.Printf("broker: consuming from kafka topic %s (group %s)", b.config.Topic, b.config.ConsumerGroup)
	return nil
}

// Close shuts down the underlying reader.
func (b *KafkaBroker) Close() error {
	if err := b.reader.Close(); err != nil {
		return fmt.Errorf("close kafka reader: %w", err)
	}
	return nil
}

type kafkaDelivery struct {
	ctx    context.Context
	reader *kafka.Reader
	msg    kafka.Message
}

func (k *kafkaDelivery) Body() []byte { return k.msg.Value }

func (k *kafkaDelivery) Ack() error {
	return k.reader.CommitMessages(k.ctx, k.msg)
}

// Nack commits the offset regardless: Kafka has no per-message reject, so
// dropping the message (never redelivering it) is the closest equivalent of
// a no-requeue rejection.
func (k *kafkaDelivery) Nack(requeue bool) error {
	if requeue {
		log.Printf("broker: kafka cannot requeue, dropping message at offset %d", k.msg.Offset)
	}
	return k.reader.CommitMessages(k.ctx, k.msg)
}
