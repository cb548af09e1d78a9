package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

type OrderStatus string

const (
	OrderStatusPaid    OrderStatus = "PAID"
	OrderStatusShipped OrderStatus = "SHIPPED"
)

var orderStatusRank = map[OrderStatus]int{
	OrderStatusPaid:    1,
	OrderStatusShipped: 2,
}

func (s OrderStatus) Rank() int {
	return orderStatusRank[s]
}

// CanAdvance reports whether an order may move from one status to another.
// Statuses only move forward; out-of-order events never regress an order.
func CanAdvance(from, to OrderStatus) bool {
	return to.Rank() > from.Rank()
}

func (s OrderStatus) String() string {
	return string(s)
}

type Address struct {
	Name       string `json:"name,omitempty"`
	Line1      string `json:"line1,omitempty"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city,omitempty"`
	State      string `json:"state,omitempty"`
	PostalCode string `json:"postal_code,omitempty"`
	Country    string `json:"country,omitempty"`
}

func (a Address) IsZero() bool {
	return a == Address{}
}

// Lines renders the address as display lines, skipping empty parts.
func (a Address) Lines() []string {
	var lines []string
	for _, l := range []string{a.Name, a.Line1, a.Line2} {
		if l != "" {
			lines = append(lines, l)
		}
	}
	cityLine := strings.TrimSpace(strings.Join(nonEmpty(a.City+",", a.State, a.PostalCode), " "))
	cityLine = strings.TrimSuffix(cityLine, ",")
	if cityLine != "" {
		lines = append(lines, cityLine)
	}
	if a.Country != "" {
		lines = append(lines, a.Country)
	}
	return lines
}

func nonEmpty(parts ...string) []string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" && p != "," {
			out = append(out, p)
		}
	}
	return out
}

type OrderItem struct {
	ID        uuid.UUID `json:"id"`
	OrderID   uuid.UUID `json:"order_id"`
	ProductID string    `json:"product_id"`
	Name      string    `json:"name"`
	UnitPrice Money     `json:"unit_price"`
	Quantity  int       `json:"quantity"`
}

func (i OrderItem) Subtotal() Money {
	return i.UnitPrice * Money(i.Quantity)
}

type Order struct {
	ID                     uuid.UUID   `json:"id"`
	SessionID              string      `json:"session_id"`
	CustomerID             uuid.UUID   `json:"customer_id"`
	Customer               *Customer   `json:"customer,omitempty"`
	PaymentIntentID        string      `json:"payment_intent_id,omitempty"`
	SubscriptionExternalID string      `json:"subscription_external_id,omitempty"`
	// TotalAmount is the hardware total from the cart snapshot, or the
	// processor's amount_total when the order was recorded without items.
	TotalAmount            Money       `json:"total_amount"`
	Currency               string      `json:"currency"`
	Shipping               Address     `json:"shipping"`
	Status                 OrderStatus `json:"status"`
	TrackingNumber         string      `json:"tracking_number,omitempty"`
	Items                  []OrderItem `json:"items"`
	CreatedAt              time.Time   `json:"created_at"`
	UpdatedAt              time.Time   `json:"updated_at"`

	// CartSessionID comes from checkout metadata and is not persisted.
	CartSessionID string `json:"-"`
}

// Reference is the public order number: the trailing eight characters of the id.
func (o *Order) Reference() string {
	id := strings.ReplaceAll(o.ID.String(), "-", "")
	if len(id) <= 8 {
		return strings.ToUpper(id)
	}
	return strings.ToUpper(id[len(id)-8:])
}
