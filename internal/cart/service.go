// Package cart is the session-scoped cart ledger plus the pricing engine.
// Cart mutations are claims only: they check live stock at call time but never
// reserve it. The checkout commit re-validates everything.
package cart

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/shopcore/go-cart-checkout/internal/shop"
	"golang.org/x/sync/singleflight"
)

type Service struct {
	store Store
	cache Cache
	sfg   singleflight.Group // prevents cache stampede on hot sessions
}

func NewService(store Store, cache Cache) *Service {
	return &Service{store: store, cache: cache}
}

// AddItem creates or grows the (session, product) line item. Repeated adds of
// the same product merge into one line; the cumulative quantity must fit the
// product's current stock.
func (s *Service) AddItem(ctx context.Context, sessionID string, productID int64, quantity int) error {
	if sessionID == "" || productID <= 0 {
		return fmt.Errorf("%w: session_id and product_id required", shop.ErrValidation)
	}
	if quantity <= 0 {
		return fmt.Errorf("%w: quantity must be a positive integer", shop.ErrValidation)
	}

	product, err := s.store.GetProduct(ctx, productID)
	if err != nil {
		return err
	}

	newQuantity := quantity
	items, err := s.store.GetCartItems(ctx, sessionID)
	if err != nil {
		return err
	}
	for _, it := range items {
		if it.ProductID == productID {
			newQuantity += it.Quantity
			break
		}
	}

	if product.Stock < newQuantity {
		return fmt.Errorf("%w: product %d has %d in stock, requested %d",
			shop.ErrInsufficientStock, productID, product.Stock, newQuantity)
	}

	if err := s.store.UpsertCartItem(ctx, sessionID, productID, newQuantity); err != nil {
		return err
	}
	s.invalidate(sessionID)
	return nil
}

// GetCart renders the session's cart. An unknown or empty session yields an
// empty cart with total 0, never an error.
func (s *Service) GetCart(ctx context.Context, sessionID string) (*shop.CartView, error) {
	v, err, _ := s.sfg.Do(sessionID, func() (interface{}, error) {
		if s.cache != nil {
			view, err := s.cache.Get(ctx, sessionID)
			if err == nil {
				return view, nil
			}
			if !errors.Is(err, ErrCacheMiss) {
				log.Printf("cart cache get: %v", err)
			}
		}

		view, err := s.buildView(ctx, sessionID)
		if err != nil {
			return nil, err
		}
		if s.cache != nil {
			if err := s.cache.Set(ctx, sessionID, view); err != nil {
				log.Printf("cart cache set: %v", err)
			}
		}
		return view, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*shop.CartView), nil
}

func (s *Service) buildView(ctx context.Context, sessionID string) (*shop.CartView, error) {
	items, err := s.store.GetCartItems(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	view := &shop.CartView{Items: make([]shop.CartViewItem, 0, len(items))}
	for _, it := range items {
		product, err := s.store.GetProduct(ctx, it.ProductID)
		if err != nil {
			return nil, err
		}
		sub := product.Price * float64(it.Quantity)
		view.Items = append(view.Items, shop.CartViewItem{
			ID:          it.ID,
			ProductID:   it.ProductID,
			ProductName: product.Name,
			Price:       product.Price,
			Quantity:    it.Quantity,
			Subtotal:    shop.Round2(sub),
		})
		view.Total += sub
	}
	view.Total = shop.Round2(view.Total)
	view.ItemCount = len(view.Items)
	return view, nil
}

// UpdateQuantity sets the absolute quantity of a line item. A cross-session
// item id fails with the same not-found as a nonexistent one.
func (s *Service) UpdateQuantity(ctx context.Context, sessionID string, itemID int64, quantity int) error {
	if sessionID == "" || itemID <= 0 {
		return fmt.Errorf("%w: session_id and item_id required", shop.ErrValidation)
	}
	if quantity <= 0 {
		return fmt.Errorf("%w: quantity must be a positive integer", shop.ErrValidation)
	}

	item, err := s.store.GetCartItem(ctx, sessionID, itemID)
	if err != nil {
		return err
	}
	product, err := s.store.GetProduct(ctx, item.ProductID)
	if err != nil {
		return err
	}
	if product.Stock < quantity {
		return fmt.Errorf("%w: product %d has %d in stock, requested %d",
			shop.ErrInsufficientStock, product.ID, product.Stock, quantity)
	}

	if err := s.store.UpdateCartItemQuantity(ctx, sessionID, itemID, quantity); err != nil {
		return err
	}
	s.invalidate(sessionID)
	return nil
}

func (s *Service) RemoveItem(ctx context.Context, sessionID string, itemID int64) error {
	if sessionID == "" || itemID <= 0 {
		return fmt.Errorf("%w: session_id and item_id required", shop.ErrValidation)
	}
	if err := s.store.RemoveCartItem(ctx, sessionID, itemID); err != nil {
		return err
	}
	s.invalidate(sessionID)
	return nil
}

// Quote returns the cart subtotal. An empty cart quotes 0.
func (s *Service) Quote(ctx context.Context, sessionID string) (float64, error) {
	view, err := s.GetCart(ctx, sessionID)
	if err != nil {
		return 0, err
	}
	return view.Total, nil
}

// ApplyDiscount quotes the cart with a discount code applied. Nothing is
// persisted: checkout re-resolves the code under its own, softer rules.
func (s *Service) ApplyDiscount(ctx context.Context, sessionID, code string) (*shop.DiscountQuote, error) {
	if sessionID == "" || code == "" {
		return nil, fmt.Errorf("%w: code and session_id required", shop.ErrValidation)
	}

	subtotal, err := s.Quote(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if subtotal == 0 {
		return nil, fmt.Errorf("%w: cart is empty", shop.ErrValidation)
	}

	discount, err := s.store.GetDiscountCode(ctx, shop.NormalizeCode(code))
	if err != nil {
		return nil, err
	}
	if err := discount.Validate(nowUTC()); err != nil {
		return nil, err
	}

	quote := discount.Apply(subtotal)
	return &quote, nil
}

func (s *Service) ListProducts(ctx context.Context) ([]shop.Product, error) {
	return s.store.ListProducts(ctx)
}

func (s *Service) invalidate(sessionID string) {
	if s.cache == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), cacheOpTimeout)
	defer cancel()
	if err := s.cache.Delete(ctx, sessionID); err != nil {
		log.Printf("cart cache invalidate: %v", err)
	}
}
