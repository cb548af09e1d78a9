package reconcile

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pmgasset/nomadtech/internal/domain"
	"github.com/pmgasset/nomadtech/internal/repository"
)

// MemoryStore implements repository.Store with the same unique constraints as
// the postgres schema.
type MemoryStore struct {
	mu            sync.Mutex
	customers     map[string]*domain.Customer
	orders        map[string]*domain.Order
	subscriptions map[string]*domain.Subscription

	// Err, when set, is returned by every call.
	Err error
	// ShipErrs are returned by successive ShipOrder calls before it succeeds.
	ShipErrs []error
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		customers:     make(map[string]*domain.Customer),
		orders:        make(map[string]*domain.Order),
		subscriptions: make(map[string]*domain.Subscription),
	}
}

func (m *MemoryStore) UpsertCustomer(_ context.Context, c *domain.Customer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	if existing, ok := m.customers[c.ExternalID]; ok {
		// Empty incoming values never clear stored ones.
		if c.Email != "" {
			existing.Email = c.Email
		}
		if c.Name != "" {
			existing.Name = c.Name
		}
		if c.Phone != "" {
			existing.Phone = c.Phone
		}
		*c = *existing
		return nil
	}
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	stored := *c
	m.customers[c.ExternalID] = &stored
	return nil
}

func (m *MemoryStore) GetCustomerByExternalID(_ context.Context, externalID string) (*domain.Customer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	c, ok := m.customers[externalID]
	if !ok {
		return nil, repository.ErrCustomerNotFound
	}
	copied := *c
	return &copied, nil
}

func (m *MemoryStore) CreateOrder(_ context.Context, o *domain.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	if _, ok := m.orders[o.SessionID]; ok {
		return repository.ErrDuplicateSession
	}
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	for i := range o.Items {
		o.Items[i].ID = uuid.New()
		o.Items[i].OrderID = o.ID
	}
	stored := *o
	stored.Items = append([]domain.OrderItem(nil), o.Items...)
	m.orders[o.SessionID] = &stored
	return nil
}

func (m *MemoryStore) GetOrderBySessionID(_ context.Context, sessionID string) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	o, ok := m.orders[sessionID]
	if !ok {
		return nil, repository.ErrOrderNotFound
	}
	copied := *o
	return &copied, nil
}

func (m *MemoryStore) GetOrderByPaymentIntentID(_ context.Context, paymentIntentID string) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	for _, o := range m.orders {
		if paymentIntentID != "" && o.PaymentIntentID == paymentIntentID {
			copied := *o
			return &copied, nil
		}
	}
	return nil, repository.ErrOrderNotFound
}

func (m *MemoryStore) orderByID(id uuid.UUID) *domain.Order {
	for _, o := range m.orders {
		if o.ID == id {
			return o
		}
	}
	return nil
}

func (m *MemoryStore) AdvanceOrderStatus(_ context.Context, orderID uuid.UUID, to domain.OrderStatus) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return false, m.Err
	}
	o := m.orderByID(orderID)
	if o == nil || !domain.CanAdvance(o.Status, to) {
		return false, nil
	}
	o.Status = to
	return true, nil
}

func (m *MemoryStore) ShipOrder(_ context.Context, orderID uuid.UUID, trackingNumber string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return false, m.Err
	}
	if len(m.ShipErrs) > 0 {
		err := m.ShipErrs[0]
		m.ShipErrs = m.ShipErrs[1:]
		return false, err
	}
	o := m.orderByID(orderID)
	if o == nil || !domain.CanAdvance(o.Status, domain.OrderStatusShipped) {
		return false, nil
	}
	o.Status = domain.OrderStatusShipped
	o.TrackingNumber = trackingNumber
	return true, nil
}

func (m *MemoryStore) CreateSubscription(_ context.Context, s *domain.Subscription) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	if _, ok := m.subscriptions[s.ExternalID]; ok {
		return repository.ErrDuplicateSubscription
	}
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	stored := *s
	m.subscriptions[s.ExternalID] = &stored
	return nil
}

func (m *MemoryStore) GetSubscriptionByExternalID(_ context.Context, externalID string) (*domain.Subscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	s, ok := m.subscriptions[externalID]
	if !ok {
		return nil, repository.ErrSubscriptionNotFound
	}
	copied := *s
	return &copied, nil
}

func (m *MemoryStore) UpdateSubscription(_ context.Context, externalID string, u domain.SubscriptionUpdate) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return false, m.Err
	}
	s, ok := m.subscriptions[externalID]
	if !ok || s.Status.IsTerminal() {
		return false, nil
	}
	s.Status = u.Status
	if !u.CurrentPeriodStart.IsZero() {
		s.CurrentPeriodStart = u.CurrentPeriodStart
	}
	if !u.CurrentPeriodEnd.IsZero() {
		s.CurrentPeriodEnd = u.CurrentPeriodEnd
	}
	s.CancelAtPeriodEnd = u.CancelAtPeriodEnd
	if u.CanceledAt != nil {
		s.CanceledAt = u.CanceledAt
	}
	return true, nil
}

func (m *MemoryStore) CancelSubscription(_ context.Context, externalID string, canceledAt time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return false, m.Err
	}
	s, ok := m.subscriptions[externalID]
	if !ok {
		return false, nil
	}
	s.Status = domain.SubscriptionStatusCanceled
	s.CanceledAt = &canceledAt
	return true, nil
}

func (m *MemoryStore) MarkSubscriptionPastDue(_ context.Context, externalID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return false, m.Err
	}
	s, ok := m.subscriptions[externalID]
	if !ok || s.Status.IsTerminal() {
		return false, nil
	}
	s.Status = domain.SubscriptionStatusPastDue
	return true, nil
}

// OrderCount returns how many orders are stored.
func (m *MemoryStore) OrderCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.orders)
}

func (m *MemoryStore) SubscriptionCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.subscriptions)
}

// FakeNotifier records every email the reconciler asks for.
type FakeNotifier struct {
	mu            sync.Mutex
	Confirmations []*domain.Order
	Shipments     []*domain.Order
	Welcomes      []*domain.Subscription
}

func (f *FakeNotifier) OrderConfirmation(_ context.Context, order *domain.Order) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Confirmations = append(f.Confirmations, order)
}

func (f *FakeNotifier) ShippingNotification(_ context.Context, order *domain.Order) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Shipments = append(f.Shipments, order)
}

func (f *FakeNotifier) SubscriptionWelcome(_ context.Context, _ *domain.Customer, sub *domain.Subscription) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Welcomes = append(f.Welcomes, sub)
}

type FakePublisher struct {
	Published []*domain.Order
	Err       error
}

func (f *FakePublisher) PublishOrderPaid(_ context.Context, order *domain.Order) error {
	if f.Err != nil {
		return f.Err
	}
	f.Published = append(f.Published, order)
	return nil
}

type FakePlans struct {
	Products map[string]domain.Product
}

var errPlanNotFound = errors.New("plan not found")

func (f *FakePlans) GetProductByPlanPriceID(_ context.Context, planPriceID string) (domain.Product, error) {
	p, ok := f.Products[planPriceID]
	if !ok {
		return domain.Product{}, errPlanNotFound
	}
	return p, nil
}
