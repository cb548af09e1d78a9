package service

import (
	"context"
	"sync"

	"github.com/pmgasset/nomadtech/internal/cache"
	"github.com/pmgasset/nomadtech/internal/catalog"
	"github.com/pmgasset/nomadtech/internal/domain"
	"github.com/pmgasset/nomadtech/internal/payment"
)

// mockCartStore implements cache.CartStore in memory
type mockCartStore struct {
	m      sync.Mutex
	carts  map[string]domain.Cart
	getErr error
	setErr error
}

func newMockCartStore() *mockCartStore {
	return &mockCartStore{carts: make(map[string]domain.Cart)}
}

func (m *mockCartStore) Get(_ context.Context, sessionID string) (domain.Cart, error) {
	m.m.Lock()
	defer m.m.Unlock()
	if m.getErr != nil {
		return domain.Cart{}, m.getErr
	}
	c, ok := m.carts[sessionID]
	if !ok {
		return domain.Cart{}, cache.ErrCacheMiss
	}
	return c, nil
}

func (m *mockCartStore) Set(_ context.Context, sessionID string, cart domain.Cart) error {
	m.m.Lock()
	defer m.m.Unlock()
	if m.setErr != nil {
		return m.setErr
	}
	m.carts[sessionID] = cart
	return nil
}

func (m *mockCartStore) Delete(_ context.Context, sessionID string) error {
	m.m.Lock()
	defer m.m.Unlock()
	delete(m.carts, sessionID)
	return nil
}

// mockCatalog implements catalog.Store over a fixed product list
type mockCatalog struct {
	products []domain.Product
}

func (m *mockCatalog) ListProducts(context.Context) ([]domain.Product, error) {
	return m.products, nil
}

func (m *mockCatalog) GetProduct(_ context.Context, id string) (domain.Product, error) {
	for _, p := range m.products {
		if p.ID == id {
			return p, nil
		}
	}
	return domain.Product{}, catalog.ErrProductNotFound
}

func (m *mockCatalog) GetProductByPlanPriceID(_ context.Context, planPriceID string) (domain.Product, error) {
	for _, p := range m.products {
		if p.PlanPriceID == planPriceID {
			return p, nil
		}
	}
	return domain.Product{}, catalog.ErrProductNotFound
}

// mockProcessor implements payment.Processor and captures the last request
type mockProcessor struct {
	lastRequest *payment.SessionRequest
	calls       int
	session     *payment.Session
	err         error
}

func (m *mockProcessor) CreateCheckoutSession(_ context.Context, req payment.SessionRequest) (*payment.Session, error) {
	m.calls++
	m.lastRequest = &req
	if m.err != nil {
		return nil, m.err
	}
	if m.session != nil {
		return m.session, nil
	}
	return &payment.Session{ID: "cs_test_123", URL: "https://checkout.stripe.test/c/pay/cs_test_123"}, nil
}

func (m *mockProcessor) Ping(context.Context) error {
	return m.err
}

func testProducts() []domain.Product {
	return []domain.Product{
		{
			ID:          "x2000",
			Name:        "GL.iNet X2000 Spitz Plus",
			Description: "Dual-SIM 4G LTE router",
			ImageURL:    "/images/x2000.png",
			UnitPrice:   40000,
			Kind:        domain.ItemKindOneTime,
		},
		{
			ID:          "x3000",
			Name:        "GL.iNet X3000 Spitz AX",
			Description: "5G Wi-Fi 6 router",
			ImageURL:    "/images/x3000.png",
			UnitPrice:   50000,
			Kind:        domain.ItemKindOneTime,
		},
		{
			ID:          "unlimited-data",
			Name:        "Unlimited Data Plan",
			Description: "Unlimited monthly data",
			UnitPrice:   7900,
			Kind:        domain.ItemKindSubscription,
			PlanPriceID: "price_unlimited_data_monthly",
		},
	}
}
