package cache

import (
	"context"
	"errors"

	"github.com/pmgasset/nomadtech/internal/domain"
)

// CartStore holds the cart of each browser session until checkout.
type CartStore interface {
	Get(ctx context.Context, sessionID string) (domain.Cart, error)
	Set(ctx context.Context, sessionID string, cart domain.Cart) error
	Delete(ctx context.Context, sessionID string) error
}

var ErrCacheMiss = errors.New("cache miss")
