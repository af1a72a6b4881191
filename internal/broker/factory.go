package broker

import (
	"log"
	"strings"

	"github.com/logiflow/notification-service/internal/config"
)

// NewFromConfig creates a Broker based on the application configuration.
// AMQP_URL selects the AMQP broker; otherwise KAFKA_BROKERS selects Kafka;
// with neither set it falls back to an InMemoryBroker suitable for
// single-node deployments.
func NewFromConfig(cfg *config.Config) (Broker, error) {
	if cfg.AMQPURL != "" {
		log.Printf("broker: using AMQP (exchange=%s queue=%s)", cfg.ExchangeName, cfg.QueueName)
		return NewAMQPBroker(AMQPConfig{
			URL:        cfg.AMQPURL,
			Exchange:   cfg.ExchangeName,
			Queue:      cfg.QueueName,
			RoutingKey: cfg.RoutingKey,
		})
	}

	if cfg.KafkaBrokers != "" {
		brokers := strings.Split(cfg.KafkaBrokers, ",")
		log.Printf("broker: using Kafka with brokers=%v group=%s", brokers, cfg.KafkaConsumerGroup)
		return NewKafkaBroker(KafkaConfig{
			Brokers:       brokers,
			Topic:         cfg.QueueName,
			ConsumerGroup: cfg.KafkaConsumerGroup,
		})
	}

	log.Println("broker: using in-memory broker (AMQP_URL and KAFKA_BROKERS not set)")
	return NewInMemoryBroker(), nil
}
