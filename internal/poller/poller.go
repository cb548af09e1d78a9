// Package poller consumes the storefront's own order events and empties the
// cart a buyer just paid for.
package poller

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/pmgasset/nomadtech/internal/cache"
	"github.com/pmgasset/nomadtech/internal/publisher"
	"github.com/segmentio/kafka-go"
)

const DefaultGroupID = "storefront-cart-sweeper"

// MessageReader is the subset of *kafka.Reader the poller needs.
type MessageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

type Config struct {
	Brokers []string
	Topic   string
	GroupID string
	// RetryDelay is the pause after a failed read.
	RetryDelay time.Duration
}

type Poller struct {
	reader     MessageReader
	carts      cache.CartStore
	logger     *slog.Logger
	retryDelay time.Duration
}

func NewPoller(cfg Config, carts cache.CartStore, logger *slog.Logger) *Poller {
	if cfg.Topic == "" {
		cfg.Topic = publisher.DefaultTopic
	}
	if cfg.GroupID == "" {
		cfg.GroupID = DefaultGroupID
	}
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.Brokers,
		Topic:    cfg.Topic,
		GroupID:  cfg.GroupID,
		MaxBytes: 10e6, // 10MB
	})
	p := NewWithReader(reader, carts, logger)
	if cfg.RetryDelay > 0 {
		p.retryDelay = cfg.RetryDelay
	}
	return p
}

func NewWithReader(reader MessageReader, carts cache.CartStore, logger *slog.Logger) *Poller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Poller{
		reader:     reader,
		carts:      carts,
		logger:     logger.With("component", "cart_sweeper"),
		retryDelay: time.Second,
	}
}

// Run reads until ctx is canceled.
func (p *Poller) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		m, err := p.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return
			}
			p.logger.Warn("error reading message", "error", err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(p.retryDelay):
			}
			continue
		}
		p.emptyCart(ctx, m)
	}
}

func (p *Poller) Close() error {
	return p.reader.Close()
}

func eventType(m kafka.Message) string {
	for _, h := range m.Headers {
		if h.Key == "event_type" {
			return string(h.Value)
		}
	}
	return ""
}

func (p *Poller) emptyCart(ctx context.Context, m kafka.Message) {
	if eventType(m) != publisher.EventTypeOrderPaid {
		return
	}

	var evt publisher.OrderPaidEvent
	if err := json.Unmarshal(m.Value, &evt); err != nil {
		p.logger.Warn("error parsing message", "offset", m.Offset, "error", err)
		return
	}
	if evt.CartSessionID == "" {
		p.logger.Debug("order event without cart session", "session_id", evt.SessionID)
		return
	}

	if err := p.carts.Delete(ctx, evt.CartSessionID); err != nil {
		p.logger.Warn("failed to empty paid cart", "session_id", evt.SessionID, "error", err)
		return
	}
	p.logger.Info("paid cart emptied", "session_id", evt.SessionID)
}
