package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/shopcore/go-cart-checkout/internal/cart"
	"github.com/shopcore/go-cart-checkout/internal/checkout"
	"github.com/shopcore/go-cart-checkout/internal/metrics"
	"github.com/shopcore/go-cart-checkout/internal/redisx"
	"github.com/shopcore/go-cart-checkout/internal/sanitize"
	"github.com/shopcore/go-cart-checkout/internal/shop"
)

type ShopHandler struct {
	Cart     *cart.Service
	Checkout *checkout.Service
	Redis    *redis.Client // order-view cache; optional
	Metrics  *metrics.Metrics
}

func (h *ShopHandler) Register(r *chi.Mux) {
	r.Get("/api/products", h.instrument("products", h.listProducts))
	r.Get("/api/cart", h.instrument("get_cart", h.getCart))
	r.Post("/api/cart/add", h.instrument("add_to_cart", h.addToCart))
	r.Post("/api/cart/update", h.instrument("update_cart", h.updateCart))
	r.Post("/api/cart/remove", h.instrument("remove_from_cart", h.removeFromCart))
	r.Post("/api/discount/apply", h.instrument("apply_discount", h.applyDiscount))
	r.Post("/api/checkout", h.instrument("checkout", h.doCheckout))
	r.Get("/api/orders/{orderNumber}", h.instrument("get_order", h.getOrder))
}

type AddToCartReq struct {
	SessionID string `json:"session_id"`
	ProductID int64  `json:"product_id"`
	Quantity  *int   `json:"quantity"`
}

type UpdateCartReq struct {
	SessionID string `json:"session_id"`
	ItemID    int64  `json:"item_id"`
	Quantity  int    `json:"quantity"`
}

type RemoveFromCartReq struct {
	SessionID string `json:"session_id"`
	ItemID    int64  `json:"item_id"`
}

type ApplyDiscountReq struct {
	SessionID string `json:"session_id"`
	Code      string `json:"code"`
}

type CheckoutReq struct {
	SessionID       string `json:"session_id"`
	Email           string `json:"email"`
	PaymentMethod   string `json:"payment_method"`
	CardNumber      string `json:"card_number"`
	CVV             string `json:"cvv"`
	ExpiryDate      string `json:"expiry_date"`
	ShippingAddress string `json:"shipping_address"`
	DiscountCode    string `json:"discount_code"`
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), map[string]string{"error": err.Error()})
}

// statusFor maps the engine's error kinds to HTTP statuses. Everything the
// caller can recover from is a 4xx; anything else is opaque and internal.
func statusFor(err error) int {
	switch {
	case errors.Is(err, shop.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, shop.ErrValidation),
		errors.Is(err, shop.ErrInsufficientStock),
		errors.Is(err, shop.ErrEmptyCart),
		errors.Is(err, shop.ErrInactiveCode),
		errors.Is(err, shop.ErrExpiredCode),
		errors.Is(err, shop.ErrPaymentDeclined):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func (h *ShopHandler) listProducts(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	products, err := h.Cart.ListProducts(ctx)
	if err != nil {
		writeErr(w, err)
		return
	}
	out := make([]map[string]any, 0, len(products))
	for _, p := range products {
		out = append(out, map[string]any{
			"id":          p.ID,
			"name":        p.Name,
			"price":       p.Price,
			"description": p.Description,
			"stock":       p.Stock,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *ShopHandler) getCart(w http.ResponseWriter, r *http.Request) {
	sessionID := sanitize.Strip(r.URL.Query().Get("session_id"))
	if sessionID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "session_id required"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	view, err := h.Cart.GetCart(ctx, sessionID.String())
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *ShopHandler) addToCart(w http.ResponseWriter, r *http.Request) {
	var req AddToCartReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	quantity := 1
	if req.Quantity != nil {
		quantity = *req.Quantity
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	sessionID := sanitize.Strip(req.SessionID)
	if err := h.Cart.AddItem(ctx, sessionID.String(), req.ProductID, quantity); err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"message": "Item added to cart successfully"})
}

func (h *ShopHandler) updateCart(w http.ResponseWriter, r *http.Request) {
	var req UpdateCartReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	sessionID := sanitize.Strip(req.SessionID)
	if err := h.Cart.UpdateQuantity(ctx, sessionID.String(), req.ItemID, req.Quantity); err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Cart updated successfully"})
}

func (h *ShopHandler) removeFromCart(w http.ResponseWriter, r *http.Request) {
	var req RemoveFromCartReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	sessionID := sanitize.Strip(req.SessionID)
	if err := h.Cart.RemoveItem(ctx, sessionID.String(), req.ItemID); err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Item removed from cart"})
}

func (h *ShopHandler) applyDiscount(w http.ResponseWriter, r *http.Request) {
	var req ApplyDiscountReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	sessionID := sanitize.Strip(req.SessionID)
	code := sanitize.Strip(req.Code)
	quote, err := h.Cart.ApplyDiscount(ctx, sessionID.String(), code.String())
	if err != nil {
		writeErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, quote)
}

func (h *ShopHandler) doCheckout(w http.ResponseWriter, r *http.Request) {
	var req CheckoutReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	receipt, err := h.Checkout.Checkout(ctx, checkout.Input{
		SessionID:       sanitize.Strip(req.SessionID).String(),
		Email:           req.Email,
		PaymentMethod:   sanitize.Strip(req.PaymentMethod).String(),
		CardNumber:      req.CardNumber,
		CVV:             req.CVV,
		ExpiryDate:      req.ExpiryDate,
		ShippingAddress: sanitize.Strip(req.ShippingAddress).String(),
		DiscountCode:    sanitize.Strip(req.DiscountCode).String(),
	})
	if err != nil {
		h.countCheckout(outcomeFor(err))
		writeErr(w, err)
		return
	}
	h.countCheckout("success")

	writeJSON(w, http.StatusCreated, map[string]any{
		"order_number": receipt.OrderNumber,
		"status":       receipt.Status,
		"total_amount": receipt.TotalAmount,
		"message":      "Order placed successfully",
	})
}

func (h *ShopHandler) getOrder(w http.ResponseWriter, r *http.Request) {
	orderNumber := chi.URLParam(r, "orderNumber")
	if orderNumber == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "order number required"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	// cache first, DB on miss
	key := fmt.Sprintf(redisx.KeyOrderView, orderNumber)
	if h.Redis != nil {
		if s, err := h.Redis.Get(ctx, key).Result(); err == nil && s != "" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(s))
			return
		}
	}

	view, err := h.Checkout.GetOrder(ctx, orderNumber)
	if err != nil {
		writeErr(w, err)
		return
	}
	body, _ := json.Marshal(view)
	if h.Redis != nil {
		_ = h.Redis.Set(ctx, key, body, redisx.TTLOrderView).Err()
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func outcomeFor(err error) string {
	switch {
	case errors.Is(err, shop.ErrPaymentDeclined):
		return "declined"
	case errors.Is(err, shop.ErrInsufficientStock):
		return "insufficient_stock"
	case errors.Is(err, shop.ErrEmptyCart):
		return "empty_cart"
	case errors.Is(err, shop.ErrValidation):
		return "validation"
	default:
		return "error"
	}
}

func (h *ShopHandler) countCheckout(outcome string) {
	if h.Metrics != nil {
		h.Metrics.Checkouts.WithLabelValues(outcome).Inc()
	}
}

// instrument records request count and latency per handler.
func (h *ShopHandler) instrument(name string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if h.Metrics == nil {
			next(w, r)
			return
		}
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next(rec, r)
		h.Metrics.Requests.WithLabelValues(name, strconv.Itoa(rec.status)).Inc()
		h.Metrics.LatencyMS.WithLabelValues(name).Observe(float64(time.Since(start).Milliseconds()))
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
