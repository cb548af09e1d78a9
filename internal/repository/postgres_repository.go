package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/pmgasset/nomadtech/internal/domain"
)

const uniqueViolation = "23505"

type Repository struct {
	db *sql.DB
}

var _ Store = (*Repository)(nil)

func NewRepository(ctx context.Context, cred *Credentials) (*Repository, error) {
	sslMode := cred.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	psqlconn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cred.Host,
		cred.Port,
		cred.User,
		cred.Password,
		cred.DBName,
		sslMode)

	db, err := sql.Open("postgres", psqlconn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)
	return &Repository{db: db}, nil
}

func (r *Repository) RunMigrations(cred *Credentials) error {
	driver, err := postgres.WithInstance(r.db, &postgres.Config{
		MigrationsTable: "storefront_schema_migrations",
	})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		fmt.Sprintf("file://%s", cred.MigrationsDirPath),
		"postgres",
		driver,
	)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("could not run migrations: %w", err)
	}

	return nil
}

func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *Repository) Close() error {
	return r.db.Close()
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

// UpsertCustomer inserts the customer or merges it into the stored row keyed by
// external id. Empty incoming fields never overwrite stored values. The
// customer is updated in place with the stored row.
func (r *Repository) UpsertCustomer(ctx context.Context, c *domain.Customer) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}

	query := `INSERT INTO customers (id, external_id, email, name, phone, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
	          ON CONFLICT (external_id) DO UPDATE SET
	              email = COALESCE(NULLIF(EXCLUDED.email, ''), customers.email),
	              name = COALESCE(NULLIF(EXCLUDED.name, ''), customers.name),
	              phone = COALESCE(NULLIF(EXCLUDED.phone, ''), customers.phone),
	              updated_at = NOW()
	          RETURNING id, email, name, phone, created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query, c.ID, c.ExternalID, c.Email, c.Name, c.Phone).Scan(
		&c.ID,
		&c.Email,
		&c.Name,
		&c.Phone,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert customer: %w", err)
	}
	return nil
}

func (r *Repository) GetCustomerByExternalID(ctx context.Context, externalID string) (*domain.Customer, error) {
	query := `SELECT id, external_id, email, name, phone, created_at, updated_at
	          FROM customers WHERE external_id = $1`

	var c domain.Customer
	err := r.db.QueryRowContext(ctx, query, externalID).Scan(
		&c.ID,
		&c.ExternalID,
		&c.Email,
		&c.Name,
		&c.Phone,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrCustomerNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query customer by external id: %w", err)
	}
	return &c, nil
}

// CreateOrder writes the order and its items in one transaction. A second
// order for the same session id fails with ErrDuplicateSession.
func (r *Repository) CreateOrder(ctx context.Context, order *domain.Order) error {
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `INSERT INTO orders (id, session_id, customer_id, payment_intent_id, subscription_external_id,
	              total_amount, currency, shipping_name, shipping_line1, shipping_line2, shipping_city,
	              shipping_state, shipping_postal_code, shipping_country, status, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, NOW(), NOW())
	          RETURNING created_at, updated_at`

	err = tx.QueryRowContext(ctx, query,
		order.ID,
		order.SessionID,
		order.CustomerID,
		order.PaymentIntentID,
		order.SubscriptionExternalID,
		order.TotalAmount.Int64(),
		order.Currency,
		order.Shipping.Name,
		order.Shipping.Line1,
		order.Shipping.Line2,
		order.Shipping.City,
		order.Shipping.State,
		order.Shipping.PostalCode,
		order.Shipping.Country,
		order.Status,
	).Scan(&order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateSession
		}
		return fmt.Errorf("insert order: %w", err)
	}

	itemQuery := `INSERT INTO order_items (id, order_id, product_id, name, unit_price, quantity)
	              VALUES ($1, $2, $3, $4, $5, $6)`
	for i := range order.Items {
		item := &order.Items[i]
		if item.ID == uuid.Nil {
			item.ID = uuid.New()
		}
		item.OrderID = order.ID
		if _, err := tx.ExecContext(ctx, itemQuery,
			item.ID,
			item.OrderID,
			item.ProductID,
			item.Name,
			item.UnitPrice.Int64(),
			item.Quantity,
		); err != nil {
			return fmt.Errorf("insert order item %s: %w", item.ProductID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit order: %w", err)
	}
	return nil
}

const orderSelect = `SELECT o.id, o.session_id, o.customer_id, o.payment_intent_id, o.subscription_external_id,
	    o.total_amount, o.currency, o.shipping_name, o.shipping_line1, o.shipping_line2, o.shipping_city,
	    o.shipping_state, o.shipping_postal_code, o.shipping_country, o.status, o.tracking_number,
	    o.created_at, o.updated_at,
	    c.id, c.external_id, c.email, c.name, c.phone, c.created_at, c.updated_at
	FROM orders o
	JOIN customers c ON c.id = o.customer_id`

func (r *Repository) GetOrderBySessionID(ctx context.Context, sessionID string) (*domain.Order, error) {
	return r.getOrder(ctx, orderSelect+` WHERE o.session_id = $1`, sessionID)
}

func (r *Repository) GetOrderByPaymentIntentID(ctx context.Context, paymentIntentID string) (*domain.Order, error) {
	if paymentIntentID == "" {
		return nil, ErrOrderNotFound
	}
	return r.getOrder(ctx, orderSelect+` WHERE o.payment_intent_id = $1 ORDER BY o.created_at LIMIT 1`, paymentIntentID)
}

func (r *Repository) getOrder(ctx context.Context, query string, arg any) (*domain.Order, error) {
	var (
		order    domain.Order
		customer domain.Customer
		total    int64
		status   string
	)
	err := r.db.QueryRowContext(ctx, query, arg).Scan(
		&order.ID,
		&order.SessionID,
		&order.CustomerID,
		&order.PaymentIntentID,
		&order.SubscriptionExternalID,
		&total,
		&order.Currency,
		&order.Shipping.Name,
		&order.Shipping.Line1,
		&order.Shipping.Line2,
		&order.Shipping.City,
		&order.Shipping.State,
		&order.Shipping.PostalCode,
		&order.Shipping.Country,
		&status,
		&order.TrackingNumber,
		&order.CreatedAt,
		&order.UpdatedAt,
		&customer.ID,
		&customer.ExternalID,
		&customer.Email,
		&customer.Name,
		&customer.Phone,
		&customer.CreatedAt,
		&customer.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query order: %w", err)
	}
	order.TotalAmount = domain.Money(total)
	order.Status = domain.OrderStatus(status)
	order.Customer = &customer

	items, err := r.orderItems(ctx, order.ID)
	if err != nil {
		return nil, err
	}
	order.Items = items
	return &order, nil
}

func (r *Repository) orderItems(ctx context.Context, orderID uuid.UUID) ([]domain.OrderItem, error) {
	query := `SELECT id, order_id, product_id, name, unit_price, quantity
	          FROM order_items WHERE order_id = $1 ORDER BY product_id`

	rows, err := r.db.QueryContext(ctx, query, orderID)
	if err != nil {
		return nil, fmt.Errorf("query order items: %w", err)
	}
	defer rows.Close()

	items := []domain.OrderItem{}
	for rows.Next() {
		var (
			item  domain.OrderItem
			price int64
		)
		if err := rows.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.Name, &price, &item.Quantity); err != nil {
			return nil, fmt.Errorf("scan order item row: %w", err)
		}
		item.UnitPrice = domain.Money(price)
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return items, nil
}

// AdvanceOrderStatus moves the order to status `to` only when its current
// status ranks lower. It reports whether the row changed.
func (r *Repository) AdvanceOrderStatus(ctx context.Context, orderID uuid.UUID, to domain.OrderStatus) (bool, error) {
	lower := lowerStatuses(to)
	if len(lower) == 0 {
		return false, nil
	}

	query := `UPDATE orders SET status = $2, updated_at = NOW()
	          WHERE id = $1 AND status = ANY($3)`
	res, err := r.db.ExecContext(ctx, query, orderID, to, pq.Array(lower))
	if err != nil {
		return false, fmt.Errorf("advance order status: %w", err)
	}
	return affected(res)
}

// ShipOrder sets SHIPPED and the tracking number in one statement, so a failed
// call leaves the order untouched and can be retried. It reports false when
// the order is already shipped.
func (r *Repository) ShipOrder(ctx context.Context, orderID uuid.UUID, trackingNumber string) (bool, error) {
	query := `UPDATE orders SET status = $2, tracking_number = $3, updated_at = NOW()
	          WHERE id = $1 AND status = ANY($4)`
	res, err := r.db.ExecContext(ctx, query, orderID, domain.OrderStatusShipped, trackingNumber,
		pq.Array(lowerStatuses(domain.OrderStatusShipped)))
	if err != nil {
		return false, fmt.Errorf("ship order: %w", err)
	}
	return affected(res)
}

func lowerStatuses(to domain.OrderStatus) []string {
	var lower []string
	for _, s := range []domain.OrderStatus{domain.OrderStatusPaid, domain.OrderStatusShipped} {
		if domain.CanAdvance(s, to) {
			lower = append(lower, string(s))
		}
	}
	return lower
}

func (r *Repository) CreateSubscription(ctx context.Context, sub *domain.Subscription) error {
	if sub.ID == uuid.Nil {
		sub.ID = uuid.New()
	}

	query := `INSERT INTO subscriptions (id, external_id, customer_id, status, plan_id, plan_name, plan_price,
	              current_period_start, current_period_end, cancel_at_period_end, canceled_at, created_at, updated_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW(), NOW())
	          RETURNING created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query,
		sub.ID,
		sub.ExternalID,
		sub.CustomerID,
		sub.Status,
		sub.PlanID,
		sub.PlanName,
		sub.PlanPrice.Int64(),
		nullTime(sub.CurrentPeriodStart),
		nullTime(sub.CurrentPeriodEnd),
		sub.CancelAtPeriodEnd,
		nullTimePtr(sub.CanceledAt),
	).Scan(&sub.CreatedAt, &sub.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateSubscription
		}
		return fmt.Errorf("insert subscription: %w", err)
	}
	return nil
}

func (r *Repository) GetSubscriptionByExternalID(ctx context.Context, externalID string) (*domain.Subscription, error) {
	query := `SELECT id, external_id, customer_id, status, plan_id, plan_name, plan_price,
	              current_period_start, current_period_end, cancel_at_period_end, canceled_at, created_at, updated_at
	          FROM subscriptions WHERE external_id = $1`

	var (
		sub                  domain.Subscription
		status               string
		price                int64
		start, end, canceled sql.NullTime
	)
	err := r.db.QueryRowContext(ctx, query, externalID).Scan(
		&sub.ID,
		&sub.ExternalID,
		&sub.CustomerID,
		&status,
		&sub.PlanID,
		&sub.PlanName,
		&price,
		&start,
		&end,
		&sub.CancelAtPeriodEnd,
		&canceled,
		&sub.CreatedAt,
		&sub.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSubscriptionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query subscription by external id: %w", err)
	}
	sub.Status = domain.SubscriptionStatus(status)
	sub.PlanPrice = domain.Money(price)
	sub.CurrentPeriodStart = start.Time
	sub.CurrentPeriodEnd = end.Time
	if canceled.Valid {
		t := canceled.Time
		sub.CanceledAt = &t
	}
	return &sub, nil
}

// UpdateSubscription applies a processor update. Canceled rows are left alone
// so a stale update cannot revive a deleted subscription.
func (r *Repository) UpdateSubscription(ctx context.Context, externalID string, u domain.SubscriptionUpdate) (bool, error) {
	query := `UPDATE subscriptions SET
	              status = $2,
	              current_period_start = COALESCE($3, current_period_start),
	              current_period_end = COALESCE($4, current_period_end),
	              cancel_at_period_end = $5,
	              canceled_at = COALESCE($6, canceled_at),
	              updated_at = NOW()
	          WHERE external_id = $1 AND status <> $7`

	res, err := r.db.ExecContext(ctx, query,
		externalID,
		u.Status,
		nullTime(u.CurrentPeriodStart),
		nullTime(u.CurrentPeriodEnd),
		u.CancelAtPeriodEnd,
		nullTimePtr(u.CanceledAt),
		domain.SubscriptionStatusCanceled,
	)
	if err != nil {
		return false, fmt.Errorf("update subscription: %w", err)
	}
	return affected(res)
}

func (r *Repository) CancelSubscription(ctx context.Context, externalID string, canceledAt time.Time) (bool, error) {
	query := `UPDATE subscriptions SET status = $2, canceled_at = $3, updated_at = NOW()
	          WHERE external_id = $1`

	res, err := r.db.ExecContext(ctx, query, externalID, domain.SubscriptionStatusCanceled, canceledAt)
	if err != nil {
		return false, fmt.Errorf("cancel subscription: %w", err)
	}
	return affected(res)
}

func (r *Repository) MarkSubscriptionPastDue(ctx context.Context, externalID string) (bool, error) {
	query := `UPDATE subscriptions SET status = $2, updated_at = NOW()
	          WHERE external_id = $1 AND status <> $3`

	res, err := r.db.ExecContext(ctx, query, externalID, domain.SubscriptionStatusPastDue, domain.SubscriptionStatusCanceled)
	if err != nil {
		return false, fmt.Errorf("mark subscription past due: %w", err)
	}
	return affected(res)
}

func affected(res sql.Result) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n > 0, nil
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}

func nullTimePtr(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return nullTime(*t)
}
