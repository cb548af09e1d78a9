package domain

import "time"

type ItemKind string

const (
	ItemKindOneTime      ItemKind = "one_time"
	ItemKindSubscription ItemKind = "subscription"
)

func (k ItemKind) IsSubscription() bool {
	return k == ItemKindSubscription
}

// Product is a catalog entry: a router sold once, or the recurring data plan.
type Product struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	ImageURL    string    `json:"image_url"`
	UnitPrice   Money     `json:"unit_price"`
	Kind        ItemKind  `json:"kind"`
	PlanPriceID string    `json:"plan_price_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// LineItem builds a cart line for the product with the given quantity.
func (p Product) LineItem(quantity int) CartItem {
	return CartItem{
		ProductID:   p.ID,
		Name:        p.Name,
		Description: p.Description,
		ImageURL:    p.ImageURL,
		UnitPrice:   p.UnitPrice,
		Quantity:    quantity,
		Kind:        p.Kind,
		PlanPriceID: p.PlanPriceID,
	}
}
