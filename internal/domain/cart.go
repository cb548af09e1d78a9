package domain

const MaxItemQuantity = 99

type CartItem struct {
	ProductID   string   `json:"product_id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	ImageURL    string   `json:"image_url"`
	UnitPrice   Money    `json:"unit_price"`
	Quantity    int      `json:"quantity"`
	Kind        ItemKind `json:"kind"`
	PlanPriceID string   `json:"plan_price_id,omitempty"`
}

func (i CartItem) Subtotal() Money {
	return i.UnitPrice * Money(i.Quantity)
}

// Cart is an immutable cart value. Every operation returns a new Cart and
// leaves the receiver untouched.
type Cart struct {
	Items []CartItem `json:"items"`
	Step  FlowStep   `json:"step"`
}

func NewCart() Cart {
	return Cart{Step: FlowStepRouter}
}

func (c Cart) clone() Cart {
	items := make([]CartItem, len(c.Items))
	copy(items, c.Items)
	step := c.Step
	if step == "" {
		step = FlowStepRouter
	}
	return Cart{Items: items, Step: step}
}

func (c Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

func (c Cart) find(productID string) int {
	for i, item := range c.Items {
		if item.ProductID == productID {
			return i
		}
	}
	return -1
}

// SelectRouter replaces the whole cart with a single router line and moves the
// flow on to the data plan offer.
func (c Cart) SelectRouter(p Product) (Cart, error) {
	if p.Kind != ItemKindOneTime {
		return c, NewValidationError("product_id", "%s is not a router", p.ID)
	}
	return Cart{
		Items: []CartItem{p.LineItem(1)},
		Step:  FlowStepDataPlan,
	}, nil
}

// AddDataPlan adds the recurring plan once and moves the flow to review.
func (c Cart) AddDataPlan(p Product) (Cart, error) {
	if p.Kind != ItemKindSubscription {
		return c, NewValidationError("product_id", "%s is not a data plan", p.ID)
	}
	next := c.clone()
	if next.find(p.ID) < 0 {
		next.Items = append(next.Items, p.LineItem(1))
	}
	next.Step = FlowStepReview
	return next, nil
}

func (c Cart) SkipDataPlan() Cart {
	next := c.clone()
	next.Step = FlowStepReview
	return next
}

// Add merges item into the cart. A different router replaces the existing one.
func (c Cart) Add(item CartItem) (Cart, error) {
	if item.Quantity < 1 || item.Quantity > MaxItemQuantity {
		return c, NewValidationError("quantity", "must be between 1 and %d", MaxItemQuantity)
	}
	next := c.clone()
	if idx := next.find(item.ProductID); idx >= 0 {
		q := next.Items[idx].Quantity + item.Quantity
		if q > MaxItemQuantity {
			return c, NewValidationError("quantity", "must be between 1 and %d", MaxItemQuantity)
		}
		next.Items[idx].Quantity = q
		return next, nil
	}
	if !item.Kind.IsSubscription() {
		kept := next.Items[:0]
		for _, existing := range next.Items {
			if existing.Kind.IsSubscription() {
				kept = append(kept, existing)
			}
		}
		next.Items = kept
	}
	next.Items = append(next.Items, item)
	return next, nil
}

// Remove drops the line for productID. Losing the router sends the buyer back
// to router selection.
func (c Cart) Remove(productID string) Cart {
	next := c.clone()
	if idx := next.find(productID); idx >= 0 {
		next.Items = append(next.Items[:idx], next.Items[idx+1:]...)
	}
	if _, ok := next.Router(); !ok {
		next.Step = FlowStepRouter
	}
	return next
}

// SetQuantity updates a line. Zero removes the line.
func (c Cart) SetQuantity(productID string, quantity int) (Cart, error) {
	if quantity < 0 || quantity > MaxItemQuantity {
		return c, NewValidationError("quantity", "must be between 0 and %d", MaxItemQuantity)
	}
	idx := c.find(productID)
	if idx < 0 {
		return c, NewValidationError("product_id", "%s is not in the cart", productID)
	}
	if quantity == 0 {
		return c.Remove(productID), nil
	}
	next := c.clone()
	next.Items[idx].Quantity = quantity
	return next, nil
}

func (c Cart) BeginCheckout() (Cart, error) {
	if c.IsEmpty() {
		return c, NewValidationError("cart", "cart is empty")
	}
	next := c.clone()
	next.Step = FlowStepCheckout
	return next, nil
}

// Router returns the one-time hardware line, if any.
func (c Cart) Router() (CartItem, bool) {
	for _, item := range c.Items {
		if !item.Kind.IsSubscription() {
			return item, true
		}
	}
	return CartItem{}, false
}

func (c Cart) HasDataPlan() bool {
	for _, item := range c.Items {
		if item.Kind.IsSubscription() {
			return true
		}
	}
	return false
}

func (c Cart) Total() Money {
	return c.HardwareTotal() + c.SubscriptionTotal()
}

func (c Cart) HardwareTotal() Money {
	var total Money
	for _, item := range c.Items {
		if !item.Kind.IsSubscription() {
			total += item.Subtotal()
		}
	}
	return total
}

func (c Cart) SubscriptionTotal() Money {
	var total Money
	for _, item := range c.Items {
		if item.Kind.IsSubscription() {
			total += item.Subtotal()
		}
	}
	return total
}

func (c Cart) ItemCount() int {
	count := 0
	for _, item := range c.Items {
		count += item.Quantity
	}
	return count
}
