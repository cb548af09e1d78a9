package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"log/slog"
	"net/mail"
	"strconv"
	"strings"
	"time"

	"github.com/pmgasset/nomadtech/internal/domain"
	"github.com/pmgasset/nomadtech/internal/payment"
)

const (
	DefaultSessionTTL = 30 * time.Minute

	successPath = "/success?session_id={CHECKOUT_SESSION_ID}"
	cancelPath  = "/cart"
)

type CheckoutConfig struct {
	// BaseURL is the public storefront origin used for return URLs and
	// relative product images.
	BaseURL             string
	Currency            string
	AllowedCountries    []string
	AutomaticTax        bool
	AllowPromotionCodes bool
	SessionTTL          time.Duration
	Flow                domain.FlowOptions
}

type CheckoutRequest struct {
	CartSessionID string
	Email         string
	Phone         string
}

type CheckoutService struct {
	carts     *CartService
	processor payment.Processor
	cfg       CheckoutConfig
	logger    *slog.Logger
	now       func() time.Time
}

func NewCheckoutService(carts *CartService, processor payment.Processor, cfg CheckoutConfig, logger *slog.Logger) *CheckoutService {
	if cfg.Currency == "" {
		cfg.Currency = "usd"
	}
	if len(cfg.AllowedCountries) == 0 {
		cfg.AllowedCountries = []string{"US"}
	}
	if cfg.SessionTTL < DefaultSessionTTL {
		cfg.SessionTTL = DefaultSessionTTL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if logger == nil {
		logger = slog.Default()
	}
	return &CheckoutService{
		carts:     carts,
		processor: processor,
		cfg:       cfg,
		logger:    logger,
		now:       time.Now,
	}
}

// CreateSession opens a hosted checkout for the session's cart. The local
// cart only moves to the CHECKOUT step once the processor accepted the session.
func (s *CheckoutService) CreateSession(ctx context.Context, req CheckoutRequest) (*payment.Session, error) {
	cart, err := s.carts.GetCart(ctx, req.CartSessionID)
	if err != nil {
		return nil, err
	}

	email := strings.TrimSpace(req.Email)
	phone := strings.TrimSpace(req.Phone)
	if err := s.validate(cart, email, phone); err != nil {
		return nil, err
	}

	snapshot, err := domain.SnapshotFromCart(cart).Encode()
	if errors.Is(err, domain.ErrSnapshotTooLarge) {
		return nil, domain.NewValidationError("cart", "too many items for a single checkout")
	}
	if err != nil {
		return nil, err
	}

	sessionReq := s.buildRequest(req.CartSessionID, cart, email, phone, snapshot)
	sessionReq.IdempotencyKey = s.idempotencyKey(req.CartSessionID, snapshot, email, phone)

	session, err := s.processor.CreateCheckoutSession(ctx, sessionReq)
	if err != nil {
		s.logger.Error("checkout session creation failed", "error", err)
		return nil, err
	}

	if _, err := s.carts.BeginCheckout(ctx, req.CartSessionID); err != nil {
		s.logger.Warn("failed to move cart to checkout step", "error", err)
	}
	s.logger.Info("checkout session created",
		"session_id", session.ID,
		"mode", string(sessionReq.Mode),
		"has_data_plan", cart.HasDataPlan())
	return session, nil
}

func (s *CheckoutService) validate(cart domain.Cart, email, phone string) error {
	if cart.IsEmpty() {
		return domain.NewValidationError("cart", "cart is empty")
	}
	if email != "" {
		if _, err := mail.ParseAddress(email); err != nil {
			return domain.NewValidationError("email", "is not a valid address")
		}
	}
	if s.cfg.Flow.CollectPhone && phone == "" {
		return domain.NewValidationError("phone", "is required")
	}

	for _, item := range cart.Items {
		if item.Quantity < 1 || item.Quantity > domain.MaxItemQuantity {
			return domain.NewValidationError("quantity", "%s quantity must be between 1 and %d", item.ProductID, domain.MaxItemQuantity)
		}
		if item.Kind.IsSubscription() {
			if item.PlanPriceID == "" {
				return domain.NewValidationError("plan_price_id", "%s has no plan price", item.ProductID)
			}
			continue
		}
		switch {
		case item.Name == "":
			return domain.NewValidationError("name", "%s has no name", item.ProductID)
		case item.Description == "":
			return domain.NewValidationError("description", "%s has no description", item.ProductID)
		case item.ImageURL == "":
			return domain.NewValidationError("image_url", "%s has no image", item.ProductID)
		case item.UnitPrice <= 0:
			return domain.NewValidationError("unit_price", "%s must have a positive price", item.ProductID)
		}
	}
	return nil
}

func (s *CheckoutService) buildRequest(cartSessionID string, cart domain.Cart, email, phone, snapshot string) payment.SessionRequest {
	mode := payment.ModePayment
	if cart.HasDataPlan() {
		mode = payment.ModeSubscription
	}

	metadata := map[string]string{
		domain.MetaCartSnapshot: snapshot,
		domain.MetaHasDataPlan:  strconv.FormatBool(cart.HasDataPlan()),
	}
	if cartSessionID != "" {
		metadata[domain.MetaCartSessionID] = cartSessionID
	}
	if phone != "" {
		metadata[domain.MetaCustomerPhone] = phone
	}
	if router, ok := cart.Router(); ok {
		metadata[domain.MetaRouterModel] = router.Name
	}

	items := make([]payment.LineItem, 0, len(cart.Items))
	for _, item := range cart.Items {
		line := payment.LineItem{
			Name:        item.Name,
			Description: item.Description,
			ImageURL:    s.absoluteURL(item.ImageURL),
			UnitAmount:  item.UnitPrice,
			Quantity:    item.Quantity,
		}
		if item.Kind.IsSubscription() {
			line.PlanPriceID = item.PlanPriceID
			metadata[domain.MetaSubscriptionPriceID] = item.PlanPriceID
		}
		items = append(items, line)
	}

	return payment.SessionRequest{
		Mode:                   mode,
		Currency:               s.cfg.Currency,
		LineItems:              items,
		CustomerEmail:          email,
		CollectPhone:           s.cfg.Flow.CollectPhone,
		BillingAddressRequired: true,
		AllowedCountries:       s.cfg.AllowedCountries,
		AutomaticTax:           s.cfg.AutomaticTax,
		AllowPromotionCodes:    s.cfg.AllowPromotionCodes,
		Metadata:               metadata,
		SuccessURL:             s.cfg.BaseURL + successPath,
		CancelURL:              s.cfg.BaseURL + cancelPath,
		ExpiresAt:              s.expiresAt(),
	}
}

// expiresAt is aligned to the minute so a retried request inside the same
// minute carries identical parameters and matches its idempotency key.
func (s *CheckoutService) expiresAt() time.Time {
	return s.now().UTC().Truncate(time.Minute).Add(s.cfg.SessionTTL + time.Minute)
}

func (s *CheckoutService) idempotencyKey(cartSessionID, snapshot, email, phone string) string {
	h := sha256.New()
	for _, part := range []string{snapshot, email, phone} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	minute := s.now().UTC().Truncate(time.Minute).Unix()
	return "checkout-" + cartSessionID + "-" + strconv.FormatInt(minute, 10) + "-" + hex.EncodeToString(h.Sum(nil))[:16]
}

func (s *CheckoutService) absoluteURL(ref string) string {
	if ref == "" || strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return ref
	}
	if !strings.HasPrefix(ref, "/") {
		ref = "/" + ref
	}
	return s.cfg.BaseURL + ref
}
