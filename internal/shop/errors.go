package shop

import "errors"

// Error kinds shared across the cart, pricing and checkout services. All are
// recoverable by the caller; the HTTP layer maps them to 4xx responses.
var (
	ErrValidation        = errors.New("invalid input")
	ErrNotFound          = errors.New("not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrEmptyCart         = errors.New("cart is empty")
	ErrInactiveCode      = errors.New("discount code is not active")
	ErrExpiredCode       = errors.New("discount code has expired")
	ErrPaymentDeclined   = errors.New("payment declined")
)
