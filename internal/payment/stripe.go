package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pmgasset/nomadtech/internal/breaker"
	"github.com/pmgasset/nomadtech/internal/domain"
	"github.com/sony/gobreaker/v2"
	"github.com/stripe/stripe-go/v80"
	"github.com/stripe/stripe-go/v80/client"
	"github.com/stripe/stripe-go/v80/webhook"
)

type StripeConfig struct {
	SecretKey     string
	WebhookSecret string
	// Timeout bounds every outbound API call.
	Timeout time.Duration
	// APIURL overrides the API base URL, e.g. for stripe-mock.
	APIURL string
}

type StripeClient struct {
	api           *client.API
	webhookSecret string
	breaker       *gobreaker.CircuitBreaker[*stripe.CheckoutSession]
	logger        *slog.Logger
}

var (
	_ Processor = (*StripeClient)(nil)
	_ Verifier  = (*StripeClient)(nil)
)

func NewStripeClient(cfg StripeConfig, logger *slog.Logger) *StripeClient {
	if logger == nil {
		logger = slog.Default()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	backendCfg := &stripe.BackendConfig{
		HTTPClient: &http.Client{Timeout: timeout},
		// Processor redelivery is the retry mechanism; a failed call fails fast.
		MaxNetworkRetries: stripe.Int64(0),
		LeveledLogger:     &stripeLogger{logger: logger},
	}
	if cfg.APIURL != "" {
		backendCfg.URL = stripe.String(cfg.APIURL)
	}

	return &StripeClient{
		api:           client.New(cfg.SecretKey, stripe.NewBackendsWithConfig(backendCfg)),
		webhookSecret: cfg.WebhookSecret,
		breaker: breaker.New[*stripe.CheckoutSession](breaker.Settings{
			Name:         "stripe-checkout",
			IsSuccessful: func(err error) bool { return !countsAgainstUpstream(err) },
		}, logger),
		logger: logger,
	}
}

func (c *StripeClient) CreateCheckoutSession(ctx context.Context, req SessionRequest) (*Session, error) {
	params := buildSessionParams(req)
	params.Context = ctx

	idempotencyKey := req.IdempotencyKey
	if idempotencyKey == "" {
		idempotencyKey = uuid.NewString()
	}
	params.SetIdempotencyKey(idempotencyKey)

	s, err := c.breaker.Execute(func() (*stripe.CheckoutSession, error) {
		return c.api.CheckoutSessions.New(params)
	})
	if err != nil {
		return nil, ClassifyError(err)
	}
	return &Session{ID: s.ID, URL: s.URL}, nil
}

func buildSessionParams(req SessionRequest) *stripe.CheckoutSessionParams {
	currency := strings.ToLower(req.Currency)
	if currency == "" {
		currency = string(stripe.CurrencyUSD)
	}

	params := &stripe.CheckoutSessionParams{
		Mode:                stripe.String(string(req.Mode)),
		SuccessURL:          stripe.String(req.SuccessURL),
		CancelURL:           stripe.String(req.CancelURL),
		AllowPromotionCodes: stripe.Bool(req.AllowPromotionCodes),
		AutomaticTax: &stripe.CheckoutSessionAutomaticTaxParams{
			Enabled: stripe.Bool(req.AutomaticTax),
		},
	}

	for _, item := range req.LineItems {
		if item.IsPlan() {
			params.LineItems = append(params.LineItems, &stripe.CheckoutSessionLineItemParams{
				Price:    stripe.String(item.PlanPriceID),
				Quantity: stripe.Int64(int64(item.Quantity)),
			})
			continue
		}

		productData := &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
			Name: stripe.String(item.Name),
		}
		if item.Description != "" {
			productData.Description = stripe.String(item.Description)
		}
		if item.ImageURL != "" {
			productData.Images = []*string{stripe.String(item.ImageURL)}
		}
		params.LineItems = append(params.LineItems, &stripe.CheckoutSessionLineItemParams{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:    stripe.String(currency),
				UnitAmount:  stripe.Int64(item.UnitAmount.Int64()),
				ProductData: productData,
			},
			Quantity: stripe.Int64(int64(item.Quantity)),
		})
	}

	if req.Mode == ModePayment {
		params.CustomerCreation = stripe.String(string(stripe.CheckoutSessionCustomerCreationAlways))
	}
	if req.CustomerEmail != "" {
		params.CustomerEmail = stripe.String(req.CustomerEmail)
	}
	if req.BillingAddressRequired {
		params.BillingAddressCollection = stripe.String(string(stripe.CheckoutSessionBillingAddressCollectionRequired))
	}
	if len(req.AllowedCountries) > 0 {
		params.ShippingAddressCollection = &stripe.CheckoutSessionShippingAddressCollectionParams{
			AllowedCountries: stripe.StringSlice(req.AllowedCountries),
		}
	}
	if req.CollectPhone {
		params.PhoneNumberCollection = &stripe.CheckoutSessionPhoneNumberCollectionParams{
			Enabled: stripe.Bool(true),
		}
	}
	if !req.ExpiresAt.IsZero() {
		params.ExpiresAt = stripe.Int64(req.ExpiresAt.Unix())
	}
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}
	if req.Mode == ModeSubscription {
		params.SubscriptionData = &stripe.CheckoutSessionSubscriptionDataParams{
			Metadata: map[string]string{},
		}
		for _, k := range []string{domain.MetaRouterModel, domain.MetaCustomerPhone} {
			if v, ok := req.Metadata[k]; ok {
				params.SubscriptionData.Metadata[k] = v
			}
		}
	}
	return params
}

// Ping checks that the processor is reachable and the key is accepted.
func (c *StripeClient) Ping(ctx context.Context) error {
	params := &stripe.BalanceParams{}
	params.Context = ctx
	if _, err := c.api.Balance.Get(params); err != nil {
		return ClassifyError(err)
	}
	return nil
}

func (c *StripeClient) VerifyEvent(payload []byte, signatureHeader string) (*Event, error) {
	if c.webhookSecret == "" {
		return nil, &domain.SignatureError{Err: fmt.Errorf("webhook secret not configured")}
	}
	if signatureHeader == "" {
		return nil, &domain.SignatureError{Err: webhook.ErrNotSigned}
	}

	evt, err := webhook.ConstructEventWithOptions(payload, signatureHeader, c.webhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, &domain.SignatureError{Err: err}
	}
	return normalizeEvent(evt)
}

// normalizeEvent decodes the payload of known event types. A known type whose
// object cannot be decoded is an error; unknown types decode to a bare Event.
func normalizeEvent(evt stripe.Event) (*Event, error) {
	out := &Event{
		ID:      evt.ID,
		Type:    EventType(evt.Type),
		Created: time.Unix(evt.Created, 0).UTC(),
	}
	if !out.Type.Known() || evt.Data == nil {
		return out, nil
	}

	switch out.Type {
	case EventCheckoutSessionCompleted:
		var s stripe.CheckoutSession
		if err := json.Unmarshal(evt.Data.Raw, &s); err != nil {
			return nil, fmt.Errorf("decode checkout session: %w", err)
		}
		out.CheckoutSession = checkoutSessionFromStripe(&s)
	case EventPaymentIntentSucceeded:
		var pi stripe.PaymentIntent
		if err := json.Unmarshal(evt.Data.Raw, &pi); err != nil {
			return nil, fmt.Errorf("decode payment intent: %w", err)
		}
		out.PaymentIntent = &PaymentIntent{ID: pi.ID, Status: string(pi.Status)}
	case EventInvoicePaymentSucceeded, EventInvoicePaymentFailed:
		var inv stripe.Invoice
		if err := json.Unmarshal(evt.Data.Raw, &inv); err != nil {
			return nil, fmt.Errorf("decode invoice: %w", err)
		}
		out.Invoice = invoiceFromStripe(&inv)
	case EventSubscriptionCreated, EventSubscriptionUpdated, EventSubscriptionDeleted:
		var sub stripe.Subscription
		if err := json.Unmarshal(evt.Data.Raw, &sub); err != nil {
			return nil, fmt.Errorf("decode subscription: %w", err)
		}
		out.Subscription = subscriptionFromStripe(&sub)
	}
	return out, nil
}

func checkoutSessionFromStripe(s *stripe.CheckoutSession) *CheckoutSession {
	out := &CheckoutSession{
		ID:          s.ID,
		Mode:        SessionMode(s.Mode),
		AmountTotal: domain.Money(s.AmountTotal),
		Currency:    string(s.Currency),
		Metadata:    s.Metadata,
	}
	if out.Metadata == nil {
		out.Metadata = map[string]string{}
	}
	if s.Customer != nil {
		out.CustomerID = s.Customer.ID
	}
	if s.PaymentIntent != nil {
		out.PaymentIntentID = s.PaymentIntent.ID
	}
	if s.Subscription != nil {
		out.SubscriptionID = s.Subscription.ID
	}

	out.CustomerEmail = s.CustomerEmail
	if d := s.CustomerDetails; d != nil {
		if d.Email != "" {
			out.CustomerEmail = d.Email
		}
		out.CustomerName = d.Name
		out.CustomerPhone = d.Phone
		if d.Address != nil {
			out.Shipping = addressFromStripe(d.Name, d.Address)
		}
	}
	if sd := s.ShippingDetails; sd != nil && sd.Address != nil {
		out.Shipping = addressFromStripe(sd.Name, sd.Address)
	}
	return out
}

func addressFromStripe(name string, a *stripe.Address) domain.Address {
	return domain.Address{
		Name:       name,
		Line1:      a.Line1,
		Line2:      a.Line2,
		City:       a.City,
		State:      a.State,
		PostalCode: a.PostalCode,
		Country:    a.Country,
	}
}

func invoiceFromStripe(inv *stripe.Invoice) *Invoice {
	out := &Invoice{
		ID:         inv.ID,
		AmountPaid: domain.Money(inv.AmountPaid),
		Currency:   string(inv.Currency),
	}
	if inv.Customer != nil {
		out.CustomerID = inv.Customer.ID
	}
	if inv.Subscription != nil {
		out.SubscriptionID = inv.Subscription.ID
	}
	return out
}

func subscriptionFromStripe(sub *stripe.Subscription) *Subscription {
	out := &Subscription{
		ID:                sub.ID,
		Status:            string(sub.Status),
		CancelAtPeriodEnd: sub.CancelAtPeriodEnd,
	}
	if sub.Customer != nil {
		out.CustomerID = sub.Customer.ID
	}
	if sub.CurrentPeriodStart > 0 {
		out.CurrentPeriodStart = time.Unix(sub.CurrentPeriodStart, 0).UTC()
	}
	if sub.CurrentPeriodEnd > 0 {
		out.CurrentPeriodEnd = time.Unix(sub.CurrentPeriodEnd, 0).UTC()
	}
	if sub.CanceledAt > 0 {
		t := time.Unix(sub.CanceledAt, 0).UTC()
		out.CanceledAt = &t
	}
	if sub.Items != nil && len(sub.Items.Data) > 0 && sub.Items.Data[0].Price != nil {
		price := sub.Items.Data[0].Price
		out.PlanID = price.ID
		out.PlanPrice = domain.Money(price.UnitAmount)
		out.PlanName = price.Nickname
		if out.PlanName == "" && price.Product != nil {
			out.PlanName = price.Product.Name
		}
	}
	return out
}

// stripeLogger routes the SDK's internal logging through slog.
type stripeLogger struct {
	logger *slog.Logger
}

func (l *stripeLogger) Debugf(format string, v ...any) {
	l.logger.Debug(fmt.Sprintf(format, v...), "component", "stripe")
}

func (l *stripeLogger) Infof(format string, v ...any) {
	l.logger.Debug(fmt.Sprintf(format, v...), "component", "stripe")
}

func (l *stripeLogger) Warnf(format string, v ...any) {
	l.logger.Warn(fmt.Sprintf(format, v...), "component", "stripe")
}

func (l *stripeLogger) Errorf(format string, v ...any) {
	l.logger.Error(fmt.Sprintf(format, v...), "component", "stripe")
}
