// Package reconcile turns verified payment processor events into customer,
// order and subscription records.
package reconcile

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/pmgasset/nomadtech/internal/domain"
	"github.com/pmgasset/nomadtech/internal/payment"
	"github.com/pmgasset/nomadtech/internal/repository"
)

type Outcome string

const (
	OutcomeProcessed Outcome = "processed"
	OutcomeIgnored   Outcome = "ignored"
	OutcomeFailed    Outcome = "failed"
)

const defaultCurrency = "usd"

// Notifier sends transactional email. Implementations log their own failures.
type Notifier interface {
	OrderConfirmation(ctx context.Context, order *domain.Order)
	ShippingNotification(ctx context.Context, order *domain.Order)
	SubscriptionWelcome(ctx context.Context, customer *domain.Customer, sub *domain.Subscription)
}

// Publisher announces paid orders to fulfillment.
type Publisher interface {
	PublishOrderPaid(ctx context.Context, order *domain.Order) error
}

// PlanCatalog names a plan when the processor event does not.
type PlanCatalog interface {
	GetProductByPlanPriceID(ctx context.Context, planPriceID string) (domain.Product, error)
}

type Reconciler struct {
	store     repository.Store
	notifier  Notifier
	publisher Publisher
	plans     PlanCatalog
	logger    *slog.Logger
	now       func() time.Time
}

type Option func(*Reconciler)

func WithClock(now func() time.Time) Option {
	return func(r *Reconciler) { r.now = now }
}

func WithPlanCatalog(plans PlanCatalog) Option {
	return func(r *Reconciler) { r.plans = plans }
}

func NewReconciler(store repository.Store, notifier Notifier, publisher Publisher, logger *slog.Logger, opts ...Option) *Reconciler {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Reconciler{
		store:     store,
		notifier:  notifier,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Handle applies one event. Every step is idempotent so a redelivered event is
// safe to process again. A returned error is always a *domain.PersistenceError
// and means the processor should redeliver.
func (r *Reconciler) Handle(ctx context.Context, evt *payment.Event) (Outcome, error) {
	log := r.logger.With("event_id", evt.ID, "event_type", string(evt.Type))

	switch evt.Type {
	case payment.EventCheckoutSessionCompleted:
		return r.checkoutCompleted(ctx, log, evt.CheckoutSession)
	case payment.EventPaymentIntentSucceeded:
		return r.paymentSucceeded(ctx, log, evt.PaymentIntent)
	case payment.EventSubscriptionCreated:
		return r.subscriptionCreated(ctx, log, evt.Subscription)
	case payment.EventSubscriptionUpdated:
		return r.subscriptionUpdated(ctx, log, evt.Subscription)
	case payment.EventSubscriptionDeleted:
		return r.subscriptionDeleted(ctx, log, evt.Subscription)
	case payment.EventInvoicePaymentFailed:
		return r.invoiceFailed(ctx, log, evt.Invoice)
	case payment.EventInvoicePaymentSucceeded:
		if evt.Invoice != nil {
			log.InfoContext(ctx, "invoice paid", "invoice_id", evt.Invoice.ID, "subscription_id", evt.Invoice.SubscriptionID)
		}
		return OutcomeProcessed, nil
	default:
		log.InfoContext(ctx, "unhandled event type")
		return OutcomeIgnored, nil
	}
}

func (r *Reconciler) checkoutCompleted(ctx context.Context, log *slog.Logger, s *payment.CheckoutSession) (Outcome, error) {
	if s == nil || s.ID == "" {
		log.WarnContext(ctx, "checkout session payload missing")
		return OutcomeIgnored, nil
	}
	log = log.With("session_id", s.ID)

	customer := customerFromSession(s)
	if err := r.store.UpsertCustomer(ctx, customer); err != nil {
		return OutcomeFailed, &domain.PersistenceError{Op: "upsert_customer", Err: err}
	}

	order := &domain.Order{
		SessionID:       s.ID,
		CustomerID:      customer.ID,
		PaymentIntentID: s.PaymentIntentID,
		Currency:        strings.ToLower(s.Currency),
		Shipping:        s.Shipping,
		Status:          domain.OrderStatusPaid,
		Items:           []domain.OrderItem{},
		CartSessionID:   s.Metadata[domain.MetaCartSessionID],
	}
	if order.Currency == "" {
		order.Currency = defaultCurrency
	}
	if order.Shipping.IsZero() {
		log.WarnContext(ctx, "checkout session carries no shipping address")
	}

	snapshot, err := domain.ParseCartSnapshot(s.Metadata)
	if err != nil {
		// Redelivery cannot repair metadata, so the order is still recorded.
		log.WarnContext(ctx, "cart snapshot unusable, recording order without items", "error", err)
		order.TotalAmount = s.AmountTotal
	} else {
		for _, item := range snapshot.OneTimeItems() {
			order.Items = append(order.Items, domain.OrderItem{
				ProductID: item.ID,
				Name:      item.Name,
				UnitPrice: item.Price,
				Quantity:  item.Quantity,
			})
		}
		order.TotalAmount = snapshot.HardwareTotal()
	}

	hasPlan := domain.HasDataPlanFlag(s.Metadata) || snapshot.HasSubscription()
	if hasPlan {
		order.SubscriptionExternalID = s.SubscriptionID
	}

	if err := r.store.CreateOrder(ctx, order); err != nil {
		if errors.Is(err, repository.ErrDuplicateSession) {
			log.InfoContext(ctx, "order for session already exists, skipping")
			return OutcomeProcessed, nil
		}
		return OutcomeFailed, &domain.PersistenceError{Op: "create_order", Err: err}
	}
	order.Customer = customer
	log.InfoContext(ctx, "order created",
		"order_id", order.ID.String(),
		"total_amount", order.TotalAmount.Int64(),
		"items", len(order.Items))

	if hasPlan {
		// The subscription row is written when the processor reports it created.
		log.InfoContext(ctx, "data plan subscription pending", "subscription_id", s.SubscriptionID)
	}

	r.notifier.OrderConfirmation(ctx, order)
	if err := r.publisher.PublishOrderPaid(ctx, order); err != nil {
		log.WarnContext(ctx, "failed to publish order paid event", "order_id", order.ID.String(), "error", err)
	}
	return OutcomeProcessed, nil
}

func customerFromSession(s *payment.CheckoutSession) *domain.Customer {
	c := &domain.Customer{
		ExternalID: s.CustomerID,
		Email:      s.CustomerEmail,
		Name:       s.CustomerName,
		Phone:      s.CustomerPhone,
	}
	if c.Phone == "" {
		c.Phone = s.Metadata[domain.MetaCustomerPhone]
	}
	if c.ExternalID == "" {
		if c.Email != "" {
			c.ExternalID = domain.GuestExternalID(c.Email)
		} else {
			c.ExternalID = "session:" + s.ID
		}
	}
	return c
}

func (r *Reconciler) paymentSucceeded(ctx context.Context, log *slog.Logger, pi *payment.PaymentIntent) (Outcome, error) {
	if pi == nil || pi.ID == "" {
		log.WarnContext(ctx, "payment intent payload missing")
		return OutcomeIgnored, nil
	}
	log = log.With("payment_intent_id", pi.ID)

	order, err := r.store.GetOrderByPaymentIntentID(ctx, pi.ID)
	if errors.Is(err, repository.ErrOrderNotFound) {
		log.InfoContext(ctx, "no order for payment intent yet")
		return OutcomeIgnored, nil
	}
	if err != nil {
		return OutcomeFailed, &domain.PersistenceError{Op: "get_order_by_payment_intent", Err: err}
	}

	changed, err := r.store.AdvanceOrderStatus(ctx, order.ID, domain.OrderStatusPaid)
	if err != nil {
		return OutcomeFailed, &domain.PersistenceError{Op: "advance_order_status", Err: err}
	}
	log.InfoContext(ctx, "payment confirmed", "order_id", order.ID.String(), "status_changed", changed)
	return OutcomeProcessed, nil
}

func (r *Reconciler) subscriptionCreated(ctx context.Context, log *slog.Logger, sub *payment.Subscription) (Outcome, error) {
	if sub == nil || sub.ID == "" {
		log.WarnContext(ctx, "subscription payload missing")
		return OutcomeIgnored, nil
	}
	log = log.With("subscription_id", sub.ID, "customer_external_id", sub.CustomerID)

	customer, err := r.store.GetCustomerByExternalID(ctx, sub.CustomerID)
	if errors.Is(err, repository.ErrCustomerNotFound) {
		log.WarnContext(ctx, "customer for subscription not found, dropping event")
		return OutcomeIgnored, nil
	}
	if err != nil {
		return OutcomeFailed, &domain.PersistenceError{Op: "get_customer", Err: err}
	}

	record := &domain.Subscription{
		ExternalID:         sub.ID,
		CustomerID:         customer.ID,
		Status:             domain.NormalizeSubscriptionStatus(sub.Status),
		PlanID:             sub.PlanID,
		PlanName:           sub.PlanName,
		PlanPrice:          sub.PlanPrice,
		CurrentPeriodStart: sub.CurrentPeriodStart,
		CurrentPeriodEnd:   sub.CurrentPeriodEnd,
		CancelAtPeriodEnd:  sub.CancelAtPeriodEnd,
		CanceledAt:         sub.CanceledAt,
	}
	r.fillPlan(ctx, log, record)

	if err := r.store.CreateSubscription(ctx, record); err != nil {
		if errors.Is(err, repository.ErrDuplicateSubscription) {
			log.InfoContext(ctx, "subscription already recorded, skipping")
			return OutcomeProcessed, nil
		}
		return OutcomeFailed, &domain.PersistenceError{Op: "create_subscription", Err: err}
	}
	log.InfoContext(ctx, "subscription created", "status", record.Status.String())

	r.notifier.SubscriptionWelcome(ctx, customer, record)
	return OutcomeProcessed, nil
}

func (r *Reconciler) fillPlan(ctx context.Context, log *slog.Logger, sub *domain.Subscription) {
	if r.plans == nil || sub.PlanID == "" || (sub.PlanName != "" && sub.PlanPrice > 0) {
		return
	}
	plan, err := r.plans.GetProductByPlanPriceID(ctx, sub.PlanID)
	if err != nil {
		log.DebugContext(ctx, "plan not in catalog", "plan_id", sub.PlanID, "error", err)
		return
	}
	if sub.PlanName == "" {
		sub.PlanName = plan.Name
	}
	if sub.PlanPrice == 0 {
		sub.PlanPrice = plan.UnitPrice
	}
}

func (r *Reconciler) subscriptionUpdated(ctx context.Context, log *slog.Logger, sub *payment.Subscription) (Outcome, error) {
	if sub == nil || sub.ID == "" {
		log.WarnContext(ctx, "subscription payload missing")
		return OutcomeIgnored, nil
	}
	log = log.With("subscription_id", sub.ID)

	update := domain.SubscriptionUpdate{
		Status:             domain.NormalizeSubscriptionStatus(sub.Status),
		CurrentPeriodStart: sub.CurrentPeriodStart,
		CurrentPeriodEnd:   sub.CurrentPeriodEnd,
		CancelAtPeriodEnd:  sub.CancelAtPeriodEnd,
		CanceledAt:         sub.CanceledAt,
	}
	if update.Status.IsTerminal() && update.CanceledAt == nil {
		canceledAt := r.now().UTC()
		update.CanceledAt = &canceledAt
	}

	changed, err := r.store.UpdateSubscription(ctx, sub.ID, update)
	if err != nil {
		return OutcomeFailed, &domain.PersistenceError{Op: "update_subscription", Err: err}
	}
	if !changed {
		log.InfoContext(ctx, "no updatable subscription row, skipping")
		return OutcomeIgnored, nil
	}
	log.InfoContext(ctx, "subscription updated", "status", sub.Status)
	return OutcomeProcessed, nil
}

func (r *Reconciler) subscriptionDeleted(ctx context.Context, log *slog.Logger, sub *payment.Subscription) (Outcome, error) {
	if sub == nil || sub.ID == "" {
		log.WarnContext(ctx, "subscription payload missing")
		return OutcomeIgnored, nil
	}
	log = log.With("subscription_id", sub.ID)

	canceledAt := r.now().UTC()
	if sub.CanceledAt != nil {
		canceledAt = *sub.CanceledAt
	}

	changed, err := r.store.CancelSubscription(ctx, sub.ID, canceledAt)
	if err != nil {
		return OutcomeFailed, &domain.PersistenceError{Op: "cancel_subscription", Err: err}
	}
	if !changed {
		log.InfoContext(ctx, "no subscription row to cancel, skipping")
		return OutcomeIgnored, nil
	}
	log.InfoContext(ctx, "subscription canceled")
	return OutcomeProcessed, nil
}

func (r *Reconciler) invoiceFailed(ctx context.Context, log *slog.Logger, inv *payment.Invoice) (Outcome, error) {
	if inv == nil || inv.SubscriptionID == "" {
		log.InfoContext(ctx, "failed invoice not tied to a subscription")
		return OutcomeIgnored, nil
	}
	log = log.With("invoice_id", inv.ID, "subscription_id", inv.SubscriptionID)

	changed, err := r.store.MarkSubscriptionPastDue(ctx, inv.SubscriptionID)
	if err != nil {
		return OutcomeFailed, &domain.PersistenceError{Op: "mark_subscription_past_due", Err: err}
	}
	if !changed {
		log.InfoContext(ctx, "no active subscription row for failed invoice, skipping")
		return OutcomeIgnored, nil
	}
	log.WarnContext(ctx, "subscription payment failed, marked past due")
	return OutcomeProcessed, nil
}
