// Package notify renders and sends the storefront's transactional email.
package notify

import (
	"context"
	"errors"
	"log/slog"

	"github.com/pmgasset/nomadtech/internal/domain"
)

// Dispatcher renders templates and hands them to a Sender. Delivery is best
// effort: failures are logged and never returned to the caller.
type Dispatcher struct {
	sender Sender
	logger *slog.Logger
}

func NewDispatcher(sender Sender, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{sender: sender, logger: logger}
}

func (d *Dispatcher) OrderConfirmation(ctx context.Context, order *domain.Order) {
	msg, err := RenderOrderConfirmation(order)
	d.deliver(ctx, TemplateOrderConfirmation, msg, err, "order_id", order.ID.String())
}

func (d *Dispatcher) ShippingNotification(ctx context.Context, order *domain.Order) {
	msg, err := RenderShippingNotification(order)
	d.deliver(ctx, TemplateShippingNotification, msg, err, "order_id", order.ID.String())
}

func (d *Dispatcher) SubscriptionWelcome(ctx context.Context, customer *domain.Customer, sub *domain.Subscription) {
	msg, err := RenderSubscriptionWelcome(customer, sub)
	d.deliver(ctx, TemplateSubscriptionWelcome, msg, err, "subscription_id", sub.ExternalID)
}

func (d *Dispatcher) deliver(ctx context.Context, template string, msg Message, renderErr error, attrs ...any) {
	err := renderErr
	if err == nil {
		err = d.sender.Send(ctx, msg)
	}
	if err != nil {
		nerr := &domain.NotificationError{Template: template, To: msg.To, Err: err}
		level := slog.LevelWarn
		if errors.Is(err, ErrNoRecipient) || errors.Is(err, ErrNoAPIKey) {
			level = slog.LevelInfo
		}
		d.logger.Log(ctx, level, "notification not sent", append(attrs, "error", nerr)...)
		return
	}
	d.logger.Info("notification sent", append(attrs, "template", template, "to", msg.To)...)
}
