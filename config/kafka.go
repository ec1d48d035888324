package config

import (
	"context"
	"log"
	"os"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
)

// notificationWriter is nil when KAFKA_BROKERS is not configured; outbox
// publishing is then skipped entirely.
var notificationWriter *kafka.Writer

func InitKafka() {
	brokers := strings.TrimSpace(os.Getenv("KAFKA_BROKERS"))
	if brokers == "" {
		log.Println("KAFKA_BROKERS not set, notification outbox disabled")
		return
	}

	topic := os.Getenv("KAFKA_NOTIFICATION_TOPIC")
	if topic == "" {
		topic = "portal-notification-events"
	}

	notificationWriter = &kafka.Writer{
		Addr:         kafka.TCP(strings.Split(brokers, ",")...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		Async:        false,
	}
	log.Printf("Kafka notification outbox enabled (topic=%s)", topic)
}

func CloseKafka() error {
	if notificationWriter == nil {
		return nil
	}
	return notificationWriter.Close()
}

// PublishNotificationEvent pushes one notification event to the outbox
// topic. Failures are logged, never returned: the outbox is advisory.
func PublishNotificationEvent(key string, value []byte) {
	if notificationWriter == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := notificationWriter.WriteMessages(ctx, kafka.Message{Key: []byte(key), Value: value}); err != nil {
		log.Printf("notification outbox publish failed (key=%s): %v", key, err)
	}
}
