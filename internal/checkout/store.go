package checkout

import (
	"context"

	"github.com/shopcore/go-cart-checkout/internal/shop"
)

// Store is the storage surface the orchestrator needs. The atomicity of the
// commit lives here, behind the interface: the Postgres implementation uses a
// transaction with row locks, the memory implementation a single mutex.
type Store interface {
	GetProduct(ctx context.Context, id int64) (*shop.Product, error)
	GetDiscountCode(ctx context.Context, code string) (*shop.DiscountCode, error)
	GetCartItems(ctx context.Context, sessionID string) ([]shop.CartLineItem, error)

	// CommitCheckout re-checks live stock for every line item, decrements it,
	// persists the order, and deletes the session's cart items in one atomic
	// step. If any item no longer fits its product's stock, nothing is
	// applied and shop.ErrInsufficientStock is returned. If the session's
	// cart no longer exists (a concurrent checkout consumed it after the
	// caller's read), nothing is applied and shop.ErrEmptyCart is returned,
	// so one cart can never produce two orders. Two concurrent commits must
	// never both win the last unit of a product.
	CommitCheckout(ctx context.Context, order *shop.Order, items []shop.CartLineItem) error

	GetOrderByNumber(ctx context.Context, orderNumber string) (*shop.Order, error)
}

// Notifier delivers the order confirmation. It runs after commit,
// fire-and-forget: its error is logged and never fails the checkout.
type Notifier interface {
	SendOrderConfirmation(ctx context.Context, email, orderNumber string, total float64) error
}
