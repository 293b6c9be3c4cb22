package shop

import (
	"strings"
	"time"
)

// NormalizeCode folds a user-supplied code to the stored form.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Validate reports why a matched code cannot be applied right now.
func (d *DiscountCode) Validate(now time.Time) error {
	if !d.Active {
		return ErrInactiveCode
	}
	if d.ExpiryDate != nil && d.ExpiryDate.Before(now) {
		return ErrExpiredCode
	}
	return nil
}

// Apply computes the discounted totals for a subtotal, rounded to 2 decimals.
func (d *DiscountCode) Apply(subtotal float64) DiscountQuote {
	amount := Round2(subtotal * d.Percent / 100)
	return DiscountQuote{
		Code:           d.Code,
		Percent:        d.Percent,
		OriginalTotal:  Round2(subtotal),
		DiscountAmount: amount,
		FinalTotal:     Round2(subtotal - amount),
	}
}
