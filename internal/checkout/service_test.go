package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopcore/go-cart-checkout/internal/shop"
	"github.com/shopcore/go-cart-checkout/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockNotifier struct {
	mu    sync.Mutex
	calls []string // order numbers
	err   error
	sent  chan struct{}
}

func newMockNotifier(err error) *mockNotifier {
	return &mockNotifier{err: err, sent: make(chan struct{}, 8)}
}

func (n *mockNotifier) SendOrderConfirmation(_ context.Context, _, orderNumber string, _ float64) error {
	n.mu.Lock()
	n.calls = append(n.calls, orderNumber)
	n.mu.Unlock()
	n.sent <- struct{}{}
	return n.err
}

func (n *mockNotifier) waitSent(t *testing.T) {
	t.Helper()
	select {
	case <-n.sent:
	case <-time.After(2 * time.Second):
		t.Fatal("confirmation was never sent")
	}
}

func newTestStore() *store.Memory {
	m := store.NewMemory()
	m.PutProduct(shop.Product{ID: 1, Name: "Widget", Price: 100.0, Stock: 10})
	m.PutProduct(shop.Product{ID: 2, Name: "Gadget", Price: 50.0, Stock: 5})
	m.PutDiscountCode(shop.DiscountCode{ID: 1, Code: "SAVE10", Percent: 10, Active: true})
	past := time.Now().UTC().Add(-time.Hour)
	m.PutDiscountCode(shop.DiscountCode{ID: 2, Code: "EXPIRED10", Percent: 10, Active: true, ExpiryDate: &past})
	return m
}

func validInput(session string) Input {
	return Input{
		SessionID:       session,
		Email:           "buyer@example.com",
		PaymentMethod:   "card",
		CardNumber:      "4111 1111 1111 1111",
		CVV:             "123",
		ExpiryDate:      "12/30",
		ShippingAddress: "1 Main St",
	}
}

func fillCart(t *testing.T, m *store.Memory, session string) {
	t.Helper()
	require.NoError(t, m.UpsertCartItem(context.Background(), session, 1, 1)) // 100.00
	require.NoError(t, m.UpsertCartItem(context.Background(), session, 2, 1)) // 50.00
}

func TestCheckout_MissingSession(t *testing.T) {
	svc := NewService(newTestStore(), nil, nil)
	in := validInput("")
	_, err := svc.Checkout(context.Background(), in)
	assert.True(t, errors.Is(err, shop.ErrValidation))
}

func TestCheckout_InvalidEmail(t *testing.T) {
	svc := NewService(newTestStore(), nil, nil)
	for _, email := range []string{"", "nope", "a@b", "a b@c.com", "@example.com"} {
		in := validInput("s1")
		in.Email = email
		_, err := svc.Checkout(context.Background(), in)
		assert.True(t, errors.Is(err, shop.ErrValidation), "email %q", email)
	}
}

func TestCheckout_EmptyCart(t *testing.T) {
	svc := NewService(newTestStore(), nil, nil)
	_, err := svc.Checkout(context.Background(), validInput("s1"))
	assert.True(t, errors.Is(err, shop.ErrEmptyCart))
}

func TestCheckout_CardValidation(t *testing.T) {
	m := newTestStore()
	svc := NewService(m, nil, nil)
	fillCart(t, m, "s1")

	tests := []struct {
		name   string
		mutate func(*Input)
		want   error
	}{
		{"short card number", func(in *Input) { in.CardNumber = "411111111111" }, shop.ErrValidation},
		{"long card number", func(in *Input) { in.CardNumber = "41111111111111111111" }, shop.ErrValidation},
		{"letters in card number", func(in *Input) { in.CardNumber = "4111abcd11111111" }, shop.ErrValidation},
		{"cvv too short", func(in *Input) { in.CVV = "12" }, shop.ErrValidation},
		{"cvv too long", func(in *Input) { in.CVV = "12345" }, shop.ErrValidation},
		{"missing expiry", func(in *Input) { in.ExpiryDate = "" }, shop.ErrValidation},
		{"mock decline suffix", func(in *Input) { in.CardNumber = "4111-1111-1111-0000" }, shop.ErrPaymentDeclined},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := validInput("s1")
			tt.mutate(&in)
			_, err := svc.Checkout(context.Background(), in)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)

			// rejection happens before any mutation
			p, _ := m.GetProduct(context.Background(), 1)
			assert.Equal(t, 10, p.Stock)
			items, _ := m.GetCartItems(context.Background(), "s1")
			assert.Len(t, items, 2)
		})
	}
}

func TestCheckout_NonCardMethodSkipsCardChecks(t *testing.T) {
	m := newTestStore()
	svc := NewService(m, nil, nil)
	fillCart(t, m, "s1")

	in := validInput("s1")
	in.PaymentMethod = "invoice"
	in.CardNumber = ""
	in.CVV = ""
	in.ExpiryDate = ""

	receipt, err := svc.Checkout(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, 150.0, receipt.TotalAmount)
}

func TestCheckout_Success(t *testing.T) {
	m := newTestStore()
	notifier := newMockNotifier(nil)
	svc := NewService(m, notifier, nil)
	fillCart(t, m, "s1")

	receipt, err := svc.Checkout(context.Background(), validInput("s1"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(receipt.OrderNumber, "ORD-"))
	assert.Equal(t, shop.OrderConfirmed, receipt.Status)
	assert.Equal(t, 150.0, receipt.TotalAmount)

	// stock decremented by line quantity
	p1, _ := m.GetProduct(context.Background(), 1)
	p2, _ := m.GetProduct(context.Background(), 2)
	assert.Equal(t, 9, p1.Stock)
	assert.Equal(t, 4, p2.Stock)

	// cart emptied in the same step
	items, _ := m.GetCartItems(context.Background(), "s1")
	assert.Empty(t, items)

	notifier.waitSent(t)
	assert.Equal(t, []string{receipt.OrderNumber}, notifier.calls)
}

func TestCheckout_WithDiscount(t *testing.T) {
	m := newTestStore()
	svc := NewService(m, nil, nil)
	fillCart(t, m, "s1")

	in := validInput("s1")
	in.DiscountCode = "save10"

	receipt, err := svc.Checkout(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, 135.0, receipt.TotalAmount)

	order, err := m.GetOrderByNumber(context.Background(), receipt.OrderNumber)
	require.NoError(t, err)
	assert.Equal(t, 150.0, order.Subtotal)
	assert.Equal(t, 15.0, order.DiscountAmount)
	assert.Equal(t, 135.0, order.TotalAmount)
	assert.Equal(t, order.Subtotal-order.DiscountAmount, order.TotalAmount)
}

func TestCheckout_TotalDerivedFromStoredAmounts(t *testing.T) {
	// Sub-cent unit prices: the stored order must still satisfy
	// total == round2(subtotal - discount) on its own fields.
	prices := []float64{33.335, 19.995, 100.125, 0.335}
	for _, price := range prices {
		m := store.NewMemory()
		m.PutProduct(shop.Product{ID: 1, Name: "Odd", Price: price, Stock: 10})
		m.PutDiscountCode(shop.DiscountCode{ID: 1, Code: "THIRD", Percent: 33, Active: true})
		require.NoError(t, m.UpsertCartItem(context.Background(), "s1", 1, 3))
		svc := NewService(m, nil, nil)

		in := validInput("s1")
		in.DiscountCode = "THIRD"
		receipt, err := svc.Checkout(context.Background(), in)
		require.NoError(t, err)

		order, err := m.GetOrderByNumber(context.Background(), receipt.OrderNumber)
		require.NoError(t, err)
		assert.Equal(t, shop.Round2(order.Subtotal-order.DiscountAmount), order.TotalAmount,
			"price %v", price)
		assert.Equal(t, order.TotalAmount, receipt.TotalAmount)
		assert.Equal(t, shop.Round2(order.Subtotal), order.Subtotal, "stored subtotal must be 2-decimal")
	}
}

func TestCheckout_BadDiscountSilentlyIgnored(t *testing.T) {
	// Unlike ApplyDiscount, checkout never fails on a bad code.
	for _, code := range []string{"EXPIRED10", "UNKNOWN"} {
		t.Run(code, func(t *testing.T) {
			m := newTestStore()
			svc := NewService(m, nil, nil)
			fillCart(t, m, "s1")

			in := validInput("s1")
			in.DiscountCode = code
			receipt, err := svc.Checkout(context.Background(), in)
			require.NoError(t, err)
			assert.Equal(t, 150.0, receipt.TotalAmount)

			order, _ := m.GetOrderByNumber(context.Background(), receipt.OrderNumber)
			assert.Zero(t, order.DiscountAmount)
		})
	}
}

func TestCheckout_StockRecheckAtCommit(t *testing.T) {
	m := newTestStore()
	svc := NewService(m, nil, nil)
	fillCart(t, m, "s1")

	// stock dropped between cart mutation and checkout
	m.PutProduct(shop.Product{ID: 2, Name: "Gadget", Price: 50.0, Stock: 0})

	_, err := svc.Checkout(context.Background(), validInput("s1"))
	assert.True(t, errors.Is(err, shop.ErrInsufficientStock))

	// nothing was decremented for any item
	p1, _ := m.GetProduct(context.Background(), 1)
	assert.Equal(t, 10, p1.Stock)
	items, _ := m.GetCartItems(context.Background(), "s1")
	assert.Len(t, items, 2)
}

func TestCheckout_NotifierFailureDoesNotFailCheckout(t *testing.T) {
	m := newTestStore()
	notifier := newMockNotifier(errors.New("smtp down"))
	svc := NewService(m, notifier, nil)
	fillCart(t, m, "s1")

	receipt, err := svc.Checkout(context.Background(), validInput("s1"))
	require.NoError(t, err)
	notifier.waitSent(t)

	order, err := m.GetOrderByNumber(context.Background(), receipt.OrderNumber)
	require.NoError(t, err)
	assert.Equal(t, shop.OrderConfirmed, order.Status)
}

// pausingStore parks every cart read until release closes, so two checkout
// attempts for the same session can be forced to read the same cart before
// either of them commits.
type pausingStore struct {
	*store.Memory
	reads   chan struct{}
	release chan struct{}
}

func (s *pausingStore) GetCartItems(ctx context.Context, sessionID string) ([]shop.CartLineItem, error) {
	items, err := s.Memory.GetCartItems(ctx, sessionID)
	s.reads <- struct{}{}
	<-s.release
	return items, err
}

func TestCheckout_SameCartRacedTwice(t *testing.T) {
	m := store.NewMemory()
	m.PutProduct(shop.Product{ID: 1, Name: "Widget", Price: 100.0, Stock: 10})
	require.NoError(t, m.UpsertCartItem(context.Background(), "s1", 1, 1))

	ps := &pausingStore{Memory: m, reads: make(chan struct{}, 2), release: make(chan struct{})}
	svc := NewService(ps, nil, nil)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Checkout(context.Background(), validInput("s1"))
		}(i)
	}
	// both attempts hold the same cart snapshot before either commits
	<-ps.reads
	<-ps.reads
	close(ps.release)
	wg.Wait()

	var ok, stale int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, shop.ErrEmptyCart):
			stale++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, ok, "exactly one checkout may consume the cart")
	assert.Equal(t, 1, stale)

	p, _ := m.GetProduct(context.Background(), 1)
	assert.Equal(t, 9, p.Stock, "stock must be decremented exactly once")
}

func TestCheckout_ConcurrentLastUnit(t *testing.T) {
	m := store.NewMemory()
	m.PutProduct(shop.Product{ID: 9, Name: "Limited", Price: 10, Stock: 1})
	svc := NewService(m, nil, nil)
	ctx := context.Background()

	require.NoError(t, m.UpsertCartItem(ctx, "a", 9, 1))
	require.NoError(t, m.UpsertCartItem(ctx, "b", 9, 1))

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, session := range []string{"a", "b"} {
		wg.Add(1)
		go func(i int, session string) {
			defer wg.Done()
			_, errs[i] = svc.Checkout(ctx, validInput(session))
		}(i, session)
	}
	wg.Wait()

	var ok, short int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, shop.ErrInsufficientStock):
			short++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, short)

	p, _ := m.GetProduct(ctx, 9)
	assert.Equal(t, 0, p.Stock)
}

func TestGetOrder(t *testing.T) {
	m := newTestStore()
	svc := NewService(m, nil, nil)
	fillCart(t, m, "s1")

	_, err := svc.GetOrder(context.Background(), "ORD-nope")
	assert.True(t, errors.Is(err, shop.ErrNotFound))

	receipt, err := svc.Checkout(context.Background(), validInput("s1"))
	require.NoError(t, err)

	view, err := svc.GetOrder(context.Background(), receipt.OrderNumber)
	require.NoError(t, err)
	assert.Equal(t, receipt.TotalAmount, view.TotalAmount)
	assert.Equal(t, "buyer@example.com", view.Email)
	assert.Equal(t, "card", view.PaymentMethod)

	// the public view never carries payment secrets
	body, err := json.Marshal(view)
	require.NoError(t, err)
	lower := strings.ToLower(string(body))
	assert.NotContains(t, lower, "card_number")
	assert.NotContains(t, lower, "cvv")
	assert.NotContains(t, lower, "4111")
}
