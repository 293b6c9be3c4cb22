// Package checkout turns a session's cart into a confirmed order. The commit
// is one atomic storage step: stock decrement, order insert and cart clearing
// either all happen or none do.
package checkout

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/shopcore/go-cart-checkout/internal/cart"
	"github.com/shopcore/go-cart-checkout/internal/shop"
)

const notifyTimeout = 10 * time.Second

type Input struct {
	SessionID       string
	Email           string
	PaymentMethod   string
	CardNumber      string
	CVV             string
	ExpiryDate      string
	ShippingAddress string
	DiscountCode    string
}

type Service struct {
	store    Store
	notifier Notifier
	cache    cart.Cache // shared cart view cache, invalidated when the cart is cleared
}

func NewService(store Store, notifier Notifier, cache cart.Cache) *Service {
	return &Service{store: store, notifier: notifier, cache: cache}
}

// Checkout runs the full pipeline from validated input to confirmed order.
//
// Unlike ApplyDiscount, an invalid, inactive or expired code here is silently
// ignored (zero discount) instead of failing the checkout: a coupon may expire
// between quoting and paying, and we do not punish the buyer for it. This
// asymmetry is intentional and part of the contract.
func (s *Service) Checkout(ctx context.Context, in Input) (*shop.OrderReceipt, error) {
	att := newAttempt()

	if in.SessionID == "" {
		att.reject()
		return nil, fmt.Errorf("%w: session_id required", shop.ErrValidation)
	}
	if !validEmail(in.Email) {
		att.reject()
		return nil, fmt.Errorf("%w: invalid email address", shop.ErrValidation)
	}

	items, err := s.store.GetCartItems(ctx, in.SessionID)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		att.reject()
		return nil, shop.ErrEmptyCart
	}

	var subtotal float64
	for _, it := range items {
		product, err := s.store.GetProduct(ctx, it.ProductID)
		if err != nil {
			return nil, err
		}
		subtotal += product.Price * float64(it.Quantity)
	}

	discountAmount := s.resolveDiscount(ctx, in.DiscountCode, subtotal)

	if in.PaymentMethod == "card" {
		if err := validateCardPayment(in.CardNumber, in.CVV, in.ExpiryDate); err != nil {
			att.reject()
			return nil, err
		}
	}
	if err := att.advance(AttemptValidated); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	// Round first, then derive the total from the rounded amounts so that
	// total == subtotal - discount holds exactly in the stored order.
	subtotal = shop.Round2(subtotal)
	discountAmount = shop.Round2(discountAmount)
	order := &shop.Order{
		OrderNumber:     shop.NewOrderNumber(now),
		SessionID:       in.SessionID,
		Subtotal:        subtotal,
		DiscountAmount:  discountAmount,
		TotalAmount:     shop.Round2(subtotal - discountAmount),
		Status:          shop.OrderConfirmed,
		Email:           in.Email,
		PaymentMethod:   in.PaymentMethod,
		ShippingAddress: in.ShippingAddress,
		CreatedAt:       now,
	}

	if err := s.store.CommitCheckout(ctx, order, items); err != nil {
		att.reject()
		return nil, err
	}
	for _, st := range []AttemptStatus{AttemptStockReserved, AttemptOrderCreated, AttemptCartCleared, AttemptConfirmed} {
		if err := att.advance(st); err != nil {
			return nil, err
		}
	}

	s.invalidateCart(in.SessionID)

	if s.notifier != nil {
		go s.sendConfirmation(order)
	}

	return &shop.OrderReceipt{
		OrderNumber: order.OrderNumber,
		Status:      order.Status,
		TotalAmount: order.TotalAmount,
	}, nil
}

// resolveDiscount re-resolves the code under checkout's permissive rules.
func (s *Service) resolveDiscount(ctx context.Context, code string, subtotal float64) float64 {
	if code == "" {
		return 0
	}
	discount, err := s.store.GetDiscountCode(ctx, shop.NormalizeCode(code))
	if err != nil {
		return 0
	}
	if err := discount.Validate(time.Now().UTC()); err != nil {
		return 0
	}
	return discount.Apply(subtotal).DiscountAmount
}

func (s *Service) GetOrder(ctx context.Context, orderNumber string) (*shop.OrderView, error) {
	if orderNumber == "" {
		return nil, fmt.Errorf("%w: order number required", shop.ErrValidation)
	}
	order, err := s.store.GetOrderByNumber(ctx, orderNumber)
	if err != nil {
		return nil, err
	}
	view := order.View()
	return &view, nil
}

func (s *Service) sendConfirmation(order *shop.Order) {
	ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
	defer cancel()
	if err := s.notifier.SendOrderConfirmation(ctx, order.Email, order.OrderNumber, order.TotalAmount); err != nil {
		log.Printf("order confirmation for %s failed: %v", order.OrderNumber, err)
	}
}

func (s *Service) invalidateCart(sessionID string) {
	if s.cache == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.cache.Delete(ctx, sessionID); err != nil {
		log.Printf("cart cache invalidate: %v", err)
	}
}
