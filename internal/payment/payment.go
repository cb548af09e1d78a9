// Package payment is the boundary to the hosted payment processor: checkout
// session creation, webhook verification and the normalized event model.
package payment

import (
	"context"
	"time"

	"github.com/pmgasset/nomadtech/internal/domain"
)

type SessionMode string

const (
	ModePayment      SessionMode = "payment"
	ModeSubscription SessionMode = "subscription"
)

// LineItem is either an inline one-time price or, when PlanPriceID is set, a
// reference to a recurring plan price defined at the processor.
type LineItem struct {
	Name        string
	Description string
	ImageURL    string
	UnitAmount  domain.Money
	Quantity    int
	PlanPriceID string
}

func (l LineItem) IsPlan() bool {
	return l.PlanPriceID != ""
}

type SessionRequest struct {
	Mode                   SessionMode
	Currency               string
	LineItems              []LineItem
	CustomerEmail          string
	CollectPhone           bool
	BillingAddressRequired bool
	AllowedCountries       []string
	AutomaticTax           bool
	AllowPromotionCodes    bool
	Metadata               map[string]string
	SuccessURL             string
	CancelURL              string
	ExpiresAt              time.Time
	IdempotencyKey         string
}

type Session struct {
	ID  string `json:"session_id"`
	URL string `json:"url"`
}

type Processor interface {
	CreateCheckoutSession(ctx context.Context, req SessionRequest) (*Session, error)
	Ping(ctx context.Context) error
}

type Verifier interface {
	// VerifyEvent checks the signature over the exact payload bytes before
	// decoding anything. Failures are *domain.SignatureError.
	VerifyEvent(payload []byte, signatureHeader string) (*Event, error)
}

type EventType string

const (
	EventCheckoutSessionCompleted EventType = "checkout.session.completed"
	EventPaymentIntentSucceeded   EventType = "payment_intent.succeeded"
	EventInvoicePaymentSucceeded  EventType = "invoice.payment_succeeded"
	EventInvoicePaymentFailed     EventType = "invoice.payment_failed"
	EventSubscriptionCreated      EventType = "customer.subscription.created"
	EventSubscriptionUpdated      EventType = "customer.subscription.updated"
	EventSubscriptionDeleted      EventType = "customer.subscription.deleted"
)

var knownEventTypes = map[EventType]bool{
	EventCheckoutSessionCompleted: true,
	EventPaymentIntentSucceeded:   true,
	EventInvoicePaymentSucceeded:  true,
	EventInvoicePaymentFailed:     true,
	EventSubscriptionCreated:      true,
	EventSubscriptionUpdated:      true,
	EventSubscriptionDeleted:      true,
}

func (t EventType) Known() bool {
	return knownEventTypes[t]
}

// Event is a verified processor event. Exactly one payload pointer is set for
// known types; unknown types carry none.
type Event struct {
	ID      string
	Type    EventType
	Created time.Time

	CheckoutSession *CheckoutSession
	PaymentIntent   *PaymentIntent
	Invoice         *Invoice
	Subscription    *Subscription
}

type CheckoutSession struct {
	ID              string
	Mode            SessionMode
	CustomerID      string
	CustomerEmail   string
	CustomerName    string
	CustomerPhone   string
	PaymentIntentID string
	SubscriptionID  string
	AmountTotal     domain.Money
	Currency        string
	Shipping        domain.Address
	Metadata        map[string]string
}

type PaymentIntent struct {
	ID     string
	Status string
}

type Invoice struct {
	ID             string
	CustomerID     string
	SubscriptionID string
	AmountPaid     domain.Money
	Currency       string
}

type Subscription struct {
	ID                 string
	CustomerID         string
	Status             string
	CurrentPeriodStart time.Time
	CurrentPeriodEnd   time.Time
	CancelAtPeriodEnd  bool
	CanceledAt         *time.Time
	PlanID             string
	PlanName           string
	PlanPrice          domain.Money
}
