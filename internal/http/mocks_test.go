package http

import (
	"context"
	"sync"

	"github.com/pmgasset/nomadtech/internal/domain"
	"github.com/pmgasset/nomadtech/internal/health"
	"github.com/pmgasset/nomadtech/internal/payment"
	"github.com/pmgasset/nomadtech/internal/reconcile"
	"github.com/pmgasset/nomadtech/internal/repository"
	"github.com/pmgasset/nomadtech/internal/service"
)

// mockProducts implements ProductLister
type mockProducts struct {
	products []domain.Product
	err      error
}

func (m *mockProducts) ListProducts(context.Context) ([]domain.Product, error) {
	return m.products, m.err
}

// mockCarts implements CartFlow over a per-session map and records the
// session id of every call.
type mockCarts struct {
	mu       sync.Mutex
	carts    map[string]domain.Cart
	products map[string]domain.Product
	sessions []string
	err      error
}

func newMockCarts(products ...domain.Product) *mockCarts {
	m := &mockCarts{carts: map[string]domain.Cart{}, products: map[string]domain.Product{}}
	for _, p := range products {
		m.products[p.ID] = p
	}
	return m
}

func (m *mockCarts) apply(sessionID string, fn func(domain.Cart) (domain.Cart, error)) (domain.Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions = append(m.sessions, sessionID)
	if m.err != nil {
		return domain.Cart{}, m.err
	}
	cart, ok := m.carts[sessionID]
	if !ok {
		cart = domain.NewCart()
	}
	next, err := fn(cart)
	if err != nil {
		return domain.Cart{}, err
	}
	m.carts[sessionID] = next
	return next, nil
}

func (m *mockCarts) product(id string) (domain.Product, error) {
	p, ok := m.products[id]
	if !ok {
		return domain.Product{}, domain.NewValidationError("product_id", "unknown product %q", id)
	}
	return p, nil
}

func (m *mockCarts) GetCart(_ context.Context, sessionID string) (domain.Cart, error) {
	return m.apply(sessionID, func(c domain.Cart) (domain.Cart, error) { return c, nil })
}

func (m *mockCarts) SelectRouter(_ context.Context, sessionID, productID string) (domain.Cart, error) {
	return m.apply(sessionID, func(c domain.Cart) (domain.Cart, error) {
		p, err := m.product(productID)
		if err != nil {
			return c, err
		}
		return c.SelectRouter(p)
	})
}

func (m *mockCarts) AddDataPlan(_ context.Context, sessionID, productID string) (domain.Cart, error) {
	return m.apply(sessionID, func(c domain.Cart) (domain.Cart, error) {
		if productID == "" {
			productID = "plan-unlimited"
		}
		p, err := m.product(productID)
		if err != nil {
			return c, err
		}
		return c.AddDataPlan(p)
	})
}

func (m *mockCarts) SkipDataPlan(_ context.Context, sessionID string) (domain.Cart, error) {
	return m.apply(sessionID, func(c domain.Cart) (domain.Cart, error) { return c.SkipDataPlan(), nil })
}

func (m *mockCarts) SetQuantity(_ context.Context, sessionID, productID string, quantity int) (domain.Cart, error) {
	return m.apply(sessionID, func(c domain.Cart) (domain.Cart, error) { return c.SetQuantity(productID, quantity) })
}

func (m *mockCarts) RemoveItem(_ context.Context, sessionID, productID string) (domain.Cart, error) {
	return m.apply(sessionID, func(c domain.Cart) (domain.Cart, error) { return c.Remove(productID), nil })
}

func (m *mockCarts) ClearCart(_ context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions = append(m.sessions, sessionID)
	delete(m.carts, sessionID)
	return m.err
}

// mockCheckout implements SessionCreator
type mockCheckout struct {
	last    service.CheckoutRequest
	session *payment.Session
	err     error
}

func (m *mockCheckout) CreateSession(_ context.Context, req service.CheckoutRequest) (*payment.Session, error) {
	m.last = req
	if m.err != nil {
		return nil, m.err
	}
	return m.session, nil
}

// mockEvents implements EventHandler
type mockEvents struct {
	mu      sync.Mutex
	handled []*payment.Event
	outcome reconcile.Outcome
	err     error
	ctxErr  error
}

func (m *mockEvents) Handle(ctx context.Context, evt *payment.Event) (reconcile.Outcome, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handled = append(m.handled, evt)
	m.ctxErr = ctx.Err()
	if m.err != nil {
		return reconcile.OutcomeFailed, m.err
	}
	if m.outcome == "" {
		return reconcile.OutcomeProcessed, nil
	}
	return m.outcome, nil
}

// mockArchive implements EventRecorder
type mockArchive struct {
	mu       sync.Mutex
	outcomes map[string]reconcile.Outcome
	errs     map[string]error
	err      error
}

func newMockArchive() *mockArchive {
	return &mockArchive{outcomes: map[string]reconcile.Outcome{}, errs: map[string]error{}}
}

func (m *mockArchive) Record(_ context.Context, evt *payment.Event, outcome reconcile.Outcome, procErr error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.outcomes[evt.ID] = outcome
	m.errs[evt.ID] = procErr
	return m.err
}

// mockOrders implements OrderFinder and Shipper
type mockOrders struct {
	orders      map[string]*domain.Order
	shipped     []string
	shipErr     error
	lastTrackNo string
}

func (m *mockOrders) GetOrderBySessionID(_ context.Context, sessionID string) (*domain.Order, error) {
	o, ok := m.orders[sessionID]
	if !ok {
		return nil, repository.ErrOrderNotFound
	}
	return o, nil
}

func (m *mockOrders) MarkShipped(_ context.Context, sessionID, trackingNumber string) (*domain.Order, error) {
	if m.shipErr != nil {
		return nil, m.shipErr
	}
	if trackingNumber == "" {
		return nil, domain.NewValidationError("tracking_number", "tracking number is required")
	}
	o, ok := m.orders[sessionID]
	if !ok {
		return nil, repository.ErrOrderNotFound
	}
	m.shipped = append(m.shipped, sessionID)
	m.lastTrackNo = trackingNumber
	o.Status = domain.OrderStatusShipped
	o.TrackingNumber = trackingNumber
	return o, nil
}

// staticHealth implements HealthReporter
type staticHealth struct {
	report health.Report
}

func (s staticHealth) Check(context.Context) health.Report {
	return s.report
}

func testProducts() []domain.Product {
	return []domain.Product{
		{
			ID:          "router-x1",
			Name:        "NomadNet X1 Router",
			Description: "Travel 5G router",
			ImageURL:    "/images/x1.png",
			UnitPrice:   39999,
			Kind:        domain.ItemKindOneTime,
		},
		{
			ID:          "plan-unlimited",
			Name:        "Unlimited Data",
			Description: "Monthly unlimited data",
			ImageURL:    "/images/plan.png",
			UnitPrice:   9900,
			Kind:        domain.ItemKindSubscription,
			PlanPriceID: "price_unlimited",
		},
	}
}
