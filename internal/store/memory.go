// Package store provides the in-memory storage implementation. It backs unit
// tests and local development; production wiring uses internal/postgres.
package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/shopcore/go-cart-checkout/internal/shop"
)

// Memory implements the cart and checkout store interfaces. A single mutex
// gives CommitCheckout the same all-or-nothing isolation the Postgres
// implementation gets from row locks.
type Memory struct {
	mu          sync.RWMutex
	products    map[int64]*shop.Product
	discounts   map[string]*shop.DiscountCode
	cartItems   map[string][]shop.CartLineItem // session -> lines, insertion-ordered
	orders      map[string]*shop.Order
	nextItemID  int64
	nextOrderID int64
}

func NewMemory() *Memory {
	return &Memory{
		products:  make(map[int64]*shop.Product),
		discounts: make(map[string]*shop.DiscountCode),
		cartItems: make(map[string][]shop.CartLineItem),
		orders:    make(map[string]*shop.Order),
	}
}

func (m *Memory) PutProduct(p shop.Product) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := p
	m.products[p.ID] = &cp
}

func (m *Memory) PutDiscountCode(d shop.DiscountCode) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := d
	m.discounts[shop.NormalizeCode(d.Code)] = &cp
}

func (m *Memory) GetProduct(_ context.Context, id int64) (*shop.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.products[id]
	if !ok {
		return nil, fmt.Errorf("%w: product %d", shop.ErrNotFound, id)
	}
	cp := *p
	return &cp, nil
}

func (m *Memory) ListProducts(_ context.Context) ([]shop.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]shop.Product, 0, len(m.products))
	for _, p := range m.products {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) GetDiscountCode(_ context.Context, code string) (*shop.DiscountCode, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.discounts[shop.NormalizeCode(code)]
	if !ok {
		return nil, fmt.Errorf("%w: discount code %q", shop.ErrNotFound, code)
	}
	cp := *d
	return &cp, nil
}

func (m *Memory) GetCartItems(_ context.Context, sessionID string) ([]shop.CartLineItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	items := m.cartItems[sessionID]
	out := make([]shop.CartLineItem, len(items))
	copy(out, items)
	return out, nil
}

func (m *Memory) UpsertCartItem(_ context.Context, sessionID string, productID int64, quantity int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	items := m.cartItems[sessionID]
	for i := range items {
		if items[i].ProductID == productID {
			items[i].Quantity = quantity
			return nil
		}
	}
	m.nextItemID++
	m.cartItems[sessionID] = append(items, shop.CartLineItem{
		ID:        m.nextItemID,
		SessionID: sessionID,
		ProductID: productID,
		Quantity:  quantity,
	})
	return nil
}

func (m *Memory) GetCartItem(_ context.Context, sessionID string, itemID int64) (*shop.CartLineItem, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, it := range m.cartItems[sessionID] {
		if it.ID == itemID {
			cp := it
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("%w: cart item %d", shop.ErrNotFound, itemID)
}

func (m *Memory) UpdateCartItemQuantity(_ context.Context, sessionID string, itemID int64, quantity int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	items := m.cartItems[sessionID]
	for i := range items {
		if items[i].ID == itemID {
			items[i].Quantity = quantity
			return nil
		}
	}
	return fmt.Errorf("%w: cart item %d", shop.ErrNotFound, itemID)
}

func (m *Memory) RemoveCartItem(_ context.Context, sessionID string, itemID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	items := m.cartItems[sessionID]
	for i := range items {
		if items[i].ID == itemID {
			m.cartItems[sessionID] = append(items[:i], items[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%w: cart item %d", shop.ErrNotFound, itemID)
}

// CommitCheckout validates every line against live stock before touching
// anything, then applies decrement + order insert + cart clear under one lock.
func (m *Memory) CommitCheckout(_ context.Context, order *shop.Order, items []shop.CartLineItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	// The claim was read before this lock; a concurrent checkout for the same
	// session may have consumed the cart in between.
	if len(m.cartItems[order.SessionID]) == 0 {
		return fmt.Errorf("%w: cart already checked out", shop.ErrEmptyCart)
	}

	for _, it := range items {
		p, ok := m.products[it.ProductID]
		if !ok {
			return fmt.Errorf("%w: product %d", shop.ErrNotFound, it.ProductID)
		}
		if p.Stock < it.Quantity {
			return fmt.Errorf("%w: product %d has %d in stock, requested %d",
				shop.ErrInsufficientStock, it.ProductID, p.Stock, it.Quantity)
		}
	}

	for _, it := range items {
		m.products[it.ProductID].Stock -= it.Quantity
	}

	m.nextOrderID++
	cp := *order
	cp.ID = m.nextOrderID
	m.orders[cp.OrderNumber] = &cp
	order.ID = cp.ID

	delete(m.cartItems, order.SessionID)
	return nil
}

func (m *Memory) GetOrderByNumber(_ context.Context, orderNumber string) (*shop.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	o, ok := m.orders[orderNumber]
	if !ok {
		return nil, fmt.Errorf("%w: order %q", shop.ErrNotFound, orderNumber)
	}
	cp := *o
	return &cp, nil
}
