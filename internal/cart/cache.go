package cart

import (
	"context"
	"errors"

	"github.com/shopcore/go-cart-checkout/internal/shop"
)

// Cache holds rendered cart views. Mutations invalidate; reads fall back to
// the store on miss.
type Cache interface {
	Get(ctx context.Context, sessionID string) (*shop.CartView, error)
	Set(ctx context.Context, sessionID string, view *shop.CartView) error
	Delete(ctx context.Context, sessionID string) error
}

var ErrCacheMiss = errors.New("cache miss")
