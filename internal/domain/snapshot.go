package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

// Metadata keys round-tripped through the payment processor.
const (
	MetaCartSnapshot        = "cart_snapshot"
	MetaLegacyCartItems     = "cart_items"
	MetaHasDataPlan         = "has_data_plan"
	MetaCustomerPhone       = "customer_phone"
	MetaRouterModel         = "router_model"
	MetaSubscriptionPriceID = "subscription_price_id"
	MetaCartSessionID       = "cart_session_id"
)

const (
	CartSnapshotVersion = 1

	// MaxMetadataValueLength is the processor's limit for one metadata value.
	MaxMetadataValueLength = 500
)

var (
	ErrSnapshotMissing            = errors.New("cart snapshot missing from metadata")
	ErrSnapshotTooLarge           = errors.New("cart snapshot exceeds metadata size limit")
	ErrUnsupportedSnapshotVersion = errors.New("unsupported cart snapshot version")
	ErrMalformedSnapshot          = errors.New("malformed cart snapshot")
)

type SnapshotItem struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Quantity     int    `json:"qty"`
	Price        Money  `json:"price"`
	Subscription bool   `json:"sub"`
}

// CartSnapshot is the versioned envelope describing what the buyer ordered.
type CartSnapshot struct {
	Version int            `json:"v"`
	Items   []SnapshotItem `json:"items"`
}

func SnapshotFromCart(c Cart) CartSnapshot {
	items := make([]SnapshotItem, 0, len(c.Items))
	for _, item := range c.Items {
		items = append(items, SnapshotItem{
			ID:           item.ProductID,
			Name:         item.Name,
			Quantity:     item.Quantity,
			Price:        item.UnitPrice,
			Subscription: item.Kind.IsSubscription(),
		})
	}
	return CartSnapshot{Version: CartSnapshotVersion, Items: items}
}

func (s CartSnapshot) Encode() (string, error) {
	raw, err := json.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("marshal cart snapshot: %w", err)
	}
	if len(raw) > MaxMetadataValueLength {
		return "", fmt.Errorf("%w: %d bytes", ErrSnapshotTooLarge, len(raw))
	}
	return string(raw), nil
}

func (s CartSnapshot) OneTimeItems() []SnapshotItem {
	var items []SnapshotItem
	for _, item := range s.Items {
		if !item.Subscription {
			items = append(items, item)
		}
	}
	return items
}

func (s CartSnapshot) HardwareTotal() Money {
	var total Money
	for _, item := range s.OneTimeItems() {
		total += item.Price * Money(item.Quantity)
	}
	return total
}

func (s CartSnapshot) HasSubscription() bool {
	for _, item := range s.Items {
		if item.Subscription {
			return true
		}
	}
	return false
}

// legacySnapshotItem is the un-versioned shape written by older storefront
// builds, with float dollar prices.
type legacySnapshotItem struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Quantity   int     `json:"quantity"`
	Price      float64 `json:"price"`
	IsDataPlan bool    `json:"isDataPlan"`
}

// ParseCartSnapshot reads the cart envelope out of processor metadata.
func ParseCartSnapshot(metadata map[string]string) (CartSnapshot, error) {
	if raw, ok := metadata[MetaCartSnapshot]; ok && raw != "" {
		return parseVersioned(raw)
	}
	if raw, ok := metadata[MetaLegacyCartItems]; ok && raw != "" {
		return parseLegacy(raw)
	}
	return CartSnapshot{}, ErrSnapshotMissing
}

func parseVersioned(raw string) (CartSnapshot, error) {
	var header struct {
		Version int `json:"v"`
	}
	if err := json.Unmarshal([]byte(raw), &header); err != nil {
		return CartSnapshot{}, fmt.Errorf("%w: %v", ErrMalformedSnapshot, err)
	}
	if header.Version != CartSnapshotVersion {
		return CartSnapshot{}, fmt.Errorf("%w: %d", ErrUnsupportedSnapshotVersion, header.Version)
	}

	var snapshot CartSnapshot
	if err := json.Unmarshal([]byte(raw), &snapshot); err != nil {
		return CartSnapshot{}, fmt.Errorf("%w: %v", ErrMalformedSnapshot, err)
	}
	for i, item := range snapshot.Items {
		if item.ID == "" || item.Quantity < 1 || item.Price < 0 {
			return CartSnapshot{}, fmt.Errorf("%w: item %d", ErrMalformedSnapshot, i)
		}
	}
	return snapshot, nil
}

func parseLegacy(raw string) (CartSnapshot, error) {
	var legacy []legacySnapshotItem
	if err := json.Unmarshal([]byte(raw), &legacy); err != nil {
		return CartSnapshot{}, fmt.Errorf("%w: %v", ErrMalformedSnapshot, err)
	}

	snapshot := CartSnapshot{Version: CartSnapshotVersion, Items: make([]SnapshotItem, 0, len(legacy))}
	for i, item := range legacy {
		if item.ID == "" || item.Quantity < 1 {
			return CartSnapshot{}, fmt.Errorf("%w: item %d", ErrMalformedSnapshot, i)
		}
		price, err := MoneyFromDollars(item.Price)
		if err != nil {
			return CartSnapshot{}, fmt.Errorf("%w: item %d: %v", ErrMalformedSnapshot, i, err)
		}
		snapshot.Items = append(snapshot.Items, SnapshotItem{
			ID:           item.ID,
			Name:         item.Name,
			Quantity:     item.Quantity,
			Price:        price,
			Subscription: item.IsDataPlan,
		})
	}
	return snapshot, nil
}

// HasDataPlanFlag reads the "has data plan" metadata flag.
func HasDataPlanFlag(metadata map[string]string) bool {
	v, err := strconv.ParseBool(metadata[MetaHasDataPlan])
	return err == nil && v
}
