package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/pmgasset/nomadtech/internal/domain"
)

var (
	ErrOrderNotFound         = errors.New("order not found")
	ErrCustomerNotFound      = errors.New("customer not found")
	ErrSubscriptionNotFound  = errors.New("subscription not found")
	ErrDuplicateSession      = errors.New("order for this checkout session already exists")
	ErrDuplicateSubscription = errors.New("subscription already exists")
)

type Credentials struct {
	Host              string
	Port              int
	User              string
	Password          string
	DBName            string
	SSLMode           string
	MigrationsDirPath string
}

// Store persists customers, orders and subscriptions. Unique constraints on the
// processor identifiers are the only guard against duplicate deliveries.
type Store interface {
	UpsertCustomer(ctx context.Context, customer *domain.Customer) error
	GetCustomerByExternalID(ctx context.Context, externalID string) (*domain.Customer, error)

	CreateOrder(ctx context.Context, order *domain.Order) error
	GetOrderBySessionID(ctx context.Context, sessionID string) (*domain.Order, error)
	GetOrderByPaymentIntentID(ctx context.Context, paymentIntentID string) (*domain.Order, error)
	AdvanceOrderStatus(ctx context.Context, orderID uuid.UUID, to domain.OrderStatus) (bool, error)
	ShipOrder(ctx context.Context, orderID uuid.UUID, trackingNumber string) (bool, error)

	CreateSubscription(ctx context.Context, sub *domain.Subscription) error
	GetSubscriptionByExternalID(ctx context.Context, externalID string) (*domain.Subscription, error)
	UpdateSubscription(ctx context.Context, externalID string, update domain.SubscriptionUpdate) (bool, error)
	CancelSubscription(ctx context.Context, externalID string, canceledAt time.Time) (bool, error)
	MarkSubscriptionPastDue(ctx context.Context, externalID string) (bool, error)
}
