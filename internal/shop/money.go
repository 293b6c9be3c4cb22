package shop

import "math"

// Round2 rounds to 2 decimal places. Every published total goes through this
// so that subtotal - discount == final total holds exactly in the stored order.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
