// Package publisher announces paid orders to the fulfillment pipeline.
package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/pmgasset/nomadtech/internal/domain"
	"github.com/segmentio/kafka-go"
)

const (
	DefaultTopic = "storefront-orders"

	EventTypeOrderPaid = "order.paid"
)

// MessageWriter is the subset of *kafka.Writer the publisher needs.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Config struct {
	Brokers      []string
	Topic        string
	WriteTimeout time.Duration
}

type OrderItem struct {
	ProductID string       `json:"product_id"`
	Name      string       `json:"name"`
	Quantity  int          `json:"quantity"`
	UnitPrice domain.Money `json:"unit_price"`
}

type OrderPaidEvent struct {
	OrderID        string         `json:"order_id"`
	SessionID      string         `json:"session_id"`
	CartSessionID  string         `json:"cart_session_id,omitempty"`
	CustomerEmail  string         `json:"customer_email,omitempty"`
	Items          []OrderItem    `json:"items"`
	TotalAmount    domain.Money   `json:"total_amount"`
	Currency       string         `json:"currency"`
	Shipping       domain.Address `json:"shipping"`
	SubscriptionID string         `json:"subscription_id,omitempty"`
	PaidAt         time.Time      `json:"paid_at"`
}

type OrderPublisher struct {
	writer MessageWriter
	logger *slog.Logger
	now    func() time.Time
}

// New builds a Kafka-backed publisher. Without brokers it returns a publisher
// that drops every event, for deployments with no fulfillment consumer.
func New(cfg Config, logger *slog.Logger) *OrderPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	if len(cfg.Brokers) == 0 {
		logger.Info("no kafka brokers configured, fulfillment events disabled")
		return &OrderPublisher{logger: logger, now: time.Now}
	}
	if cfg.Topic == "" {
		cfg.Topic = DefaultTopic
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 10 * time.Second
	}

	w := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		WriteTimeout:           cfg.WriteTimeout,
		AllowAutoTopicCreation: true,
	}
	return NewWithWriter(w, logger)
}

func NewWithWriter(w MessageWriter, logger *slog.Logger) *OrderPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &OrderPublisher{writer: w, logger: logger, now: time.Now}
}

func (p *OrderPublisher) Enabled() bool {
	return p.writer != nil
}

func (p *OrderPublisher) PublishOrderPaid(ctx context.Context, order *domain.Order) error {
	if p.writer == nil {
		return nil
	}

	evt := OrderPaidEvent{
		OrderID:        order.ID.String(),
		SessionID:      order.SessionID,
		CartSessionID:  order.CartSessionID,
		Items:          make([]OrderItem, 0, len(order.Items)),
		TotalAmount:    order.TotalAmount,
		Currency:       order.Currency,
		Shipping:       order.Shipping,
		SubscriptionID: order.SubscriptionExternalID,
		PaidAt:         p.now().UTC(),
	}
	if order.Customer != nil {
		evt.CustomerEmail = order.Customer.Email
	}
	for _, item := range order.Items {
		evt.Items = append(evt.Items, OrderItem{
			ProductID: item.ProductID,
			Name:      item.Name,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
		})
	}

	payload, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("marshal order paid event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(order.SessionID), // one partition per checkout keeps events ordered
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(EventTypeOrderPaid)},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish order paid event: %w", err)
	}
	p.logger.Debug("order paid event published", "order_id", evt.OrderID)
	return nil
}

func (p *OrderPublisher) Close() error {
	if p.writer == nil {
		return nil
	}
	return p.writer.Close()
}
