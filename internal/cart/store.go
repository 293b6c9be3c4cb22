package cart

import (
	"context"

	"github.com/shopcore/go-cart-checkout/internal/shop"
)

// Store is the slice of storage the cart and pricing logic needs. Consumers
// define this interface, not the storage implementations.
//
// All lookups that miss return shop.ErrNotFound. Cart item lookups are always
// scoped by session: asking for another session's item id misses the same way
// as a nonexistent id, so existence is never revealed across sessions.
type Store interface {
	GetProduct(ctx context.Context, id int64) (*shop.Product, error)
	ListProducts(ctx context.Context) ([]shop.Product, error)
	GetDiscountCode(ctx context.Context, code string) (*shop.DiscountCode, error)

	GetCartItems(ctx context.Context, sessionID string) ([]shop.CartLineItem, error)
	// UpsertCartItem sets the absolute quantity for (session, product),
	// creating the line item when absent. At most one line per pair.
	UpsertCartItem(ctx context.Context, sessionID string, productID int64, quantity int) error
	GetCartItem(ctx context.Context, sessionID string, itemID int64) (*shop.CartLineItem, error)
	UpdateCartItemQuantity(ctx context.Context, sessionID string, itemID int64, quantity int) error
	RemoveCartItem(ctx context.Context, sessionID string, itemID int64) error
}
