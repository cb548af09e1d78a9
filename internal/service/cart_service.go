package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/pmgasset/nomadtech/internal/cache"
	"github.com/pmgasset/nomadtech/internal/catalog"
	"github.com/pmgasset/nomadtech/internal/domain"
	"golang.org/x/sync/singleflight"
)

// CartService drives the guided purchase flow. Carts live only in the cart
// store; every mutation loads the value, applies the reducer and saves it back.
type CartService struct {
	store   cache.CartStore
	catalog catalog.Store
	logger  *slog.Logger
	sfg     singleflight.Group // collapses concurrent loads of one cart
}

func NewCartService(store cache.CartStore, products catalog.Store, logger *slog.Logger) *CartService {
	if logger == nil {
		logger = slog.Default()
	}
	return &CartService{
		store:   store,
		catalog: products,
		logger:  logger,
	}
}

// GetCart returns the session's cart, or an empty cart when none is stored.
func (s *CartService) GetCart(ctx context.Context, sessionID string) (domain.Cart, error) {
	v, err, _ := s.sfg.Do(sessionID, func() (any, error) {
		cart, err := s.store.Get(ctx, sessionID)
		if errors.Is(err, cache.ErrCacheMiss) {
			return domain.NewCart(), nil
		}
		if err != nil {
			return nil, fmt.Errorf("load cart: %w", err)
		}
		return cart, nil
	})
	if err != nil {
		return domain.Cart{}, err
	}
	return v.(domain.Cart), nil
}

func (s *CartService) SelectRouter(ctx context.Context, sessionID, productID string) (domain.Cart, error) {
	product, err := s.product(ctx, productID)
	if err != nil {
		return domain.Cart{}, err
	}
	return s.update(ctx, sessionID, func(c domain.Cart) (domain.Cart, error) {
		return c.SelectRouter(product)
	})
}

// AddDataPlan adds the plan named by productID, or the first plan in the
// catalog when productID is empty.
func (s *CartService) AddDataPlan(ctx context.Context, sessionID, productID string) (domain.Cart, error) {
	var (
		product domain.Product
		err     error
	)
	if productID == "" {
		product, err = s.defaultPlan(ctx)
	} else {
		product, err = s.product(ctx, productID)
	}
	if err != nil {
		return domain.Cart{}, err
	}
	return s.update(ctx, sessionID, func(c domain.Cart) (domain.Cart, error) {
		if _, ok := c.Router(); !ok {
			return c, domain.NewValidationError("cart", "choose a router before adding a data plan")
		}
		return c.AddDataPlan(product)
	})
}

func (s *CartService) SkipDataPlan(ctx context.Context, sessionID string) (domain.Cart, error) {
	return s.update(ctx, sessionID, func(c domain.Cart) (domain.Cart, error) {
		return c.SkipDataPlan(), nil
	})
}

func (s *CartService) SetQuantity(ctx context.Context, sessionID, productID string, quantity int) (domain.Cart, error) {
	return s.update(ctx, sessionID, func(c domain.Cart) (domain.Cart, error) {
		return c.SetQuantity(productID, quantity)
	})
}

func (s *CartService) RemoveItem(ctx context.Context, sessionID, productID string) (domain.Cart, error) {
	return s.update(ctx, sessionID, func(c domain.Cart) (domain.Cart, error) {
		return c.Remove(productID), nil
	})
}

func (s *CartService) BeginCheckout(ctx context.Context, sessionID string) (domain.Cart, error) {
	return s.update(ctx, sessionID, func(c domain.Cart) (domain.Cart, error) {
		return c.BeginCheckout()
	})
}

func (s *CartService) ClearCart(ctx context.Context, sessionID string) error {
	if err := s.store.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}

func (s *CartService) update(ctx context.Context, sessionID string, apply func(domain.Cart) (domain.Cart, error)) (domain.Cart, error) {
	cart, err := s.GetCart(ctx, sessionID)
	if err != nil {
		return domain.Cart{}, err
	}

	next, err := apply(cart)
	if err != nil {
		return cart, err
	}

	if err := s.store.Set(ctx, sessionID, next); err != nil {
		s.logger.Error("failed to save cart", "error", err)
		return cart, fmt.Errorf("save cart: %w", err)
	}
	return next, nil
}

func (s *CartService) product(ctx context.Context, productID string) (domain.Product, error) {
	if productID == "" {
		return domain.Product{}, domain.NewValidationError("product_id", "is required")
	}
	p, err := s.catalog.GetProduct(ctx, productID)
	if errors.Is(err, catalog.ErrProductNotFound) {
		return domain.Product{}, domain.NewValidationError("product_id", "unknown product %q", productID)
	}
	if err != nil {
		return domain.Product{}, fmt.Errorf("load product: %w", err)
	}
	return p, nil
}

func (s *CartService) defaultPlan(ctx context.Context) (domain.Product, error) {
	products, err := s.catalog.ListProducts(ctx)
	if err != nil {
		return domain.Product{}, fmt.Errorf("list products: %w", err)
	}
	for _, p := range products {
		if p.Kind.IsSubscription() {
			return p, nil
		}
	}
	return domain.Product{}, domain.NewValidationError("product_id", "no data plan is available")
}
