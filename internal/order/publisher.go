package order

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/fjod/go_storefront/internal/domain"
	"github.com/segmentio/kafka-go"
)

const DefaultTopic = "storefront-orders"

// Placed is the event emitted after the remote API accepted an order.
type Placed struct {
	OrderID       string                `json:"order_id,omitempty"`
	CustomerEmail string                `json:"customer_email"`
	TotalPrice    float64               `json:"total_price"`
	Products      []domain.OrderProduct `json:"products"`
	PlacedAt      time.Time             `json:"placed_at"`
}

type Publisher interface {
	PublishOrderPlaced(ctx context.Context, p Placed) error
}

type NopPublisher struct{}

func (NopPublisher) PublishOrderPlaced(context.Context, Placed) error { return nil }

type KafkaPublisher struct {
	writer *kafka.Writer
}

func NewKafkaPublisher(topic string, brokers ...string) *KafkaPublisher {
	if topic == "" {
		topic = DefaultTopic
	}
	return &KafkaPublisher{writer: &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.LeastBytes{},
		AllowAutoTopicCreation: true,
		WriteTimeout:           10 * time.Second,
	}}
}

func (p *KafkaPublisher) PublishOrderPlaced(ctx context.Context, placed Placed) error {
	payload, err := json.Marshal(placed)
	if err != nil {
		return fmt.Errorf("marshal order placed: %w", err)
	}
	msg := kafka.Message{
		Key:   []byte(placed.CustomerEmail), // per-customer ordering
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte("OrderPlaced")},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write order placed: %w", err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
