package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"fest-ticketing/internal/config"
	"fest-ticketing/internal/models"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

type Producer struct {
	Writer *kafka.Writer
	topics config.TopicConfig
}

func NewProducer(brokers []string, topics config.TopicConfig) *Producer {
	writer := &kafka.Writer{
		Addr:     kafka.TCP(brokers...),
		Balancer: &kafka.LeastBytes{},
	}
	return &Producer{Writer: writer, topics: topics}
}

func (p *Producer) publish(topic, key string, payload interface{}) error {
	value, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	fmt.Printf("Publishing to Kafka [%s]: %s\n", topic, string(value))

	return p.Writer.WriteMessages(context.Background(),
		kafka.Message{
			Topic: topic,
			Key:   []byte(key),
			Value: value,
		},
	)
}

// PublishOrderReserved streams the reservation event to Kafka.
func (p *Producer) PublishOrderReserved(event models.OrderEvent) error {
	if event.EventID == "" {
		event.EventID = uuid.NewString()
	}
	return p.publish(p.topics.OrderReserved, event.OrderID, event)
}

// PublishOrderConfirmed streams the confirmation event to Kafka.
func (p *Producer) PublishOrderConfirmed(event models.OrderEvent) error {
	if event.EventID == "" {
		event.EventID = uuid.NewString()
	}
	return p.publish(p.topics.OrderConfirmed, event.OrderID, event)
}

func (p *Producer) Close() error {
	return p.Writer.Close()
}
