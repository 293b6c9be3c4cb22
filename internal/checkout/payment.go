package checkout

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shopcore/go-cart-checkout/internal/shop"
)

var (
	emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	cardPattern  = regexp.MustCompile(`^\d{13,19}$`)
	cvvPattern   = regexp.MustCompile(`^\d{3,4}$`)

	cardSeparators = strings.NewReplacer(" ", "", "-", "")
)

func validEmail(email string) bool {
	return emailPattern.MatchString(email)
}

// validateCardPayment applies the card-specific checks. Format problems are
// validation errors; a normalized number ending in 0000 is the deterministic
// mock decline (real issuer logic is a gateway concern, not ours).
func validateCardPayment(cardNumber, cvv, expiryDate string) error {
	number := cardSeparators.Replace(cardNumber)
	if !cardPattern.MatchString(number) {
		return fmt.Errorf("%w: invalid card number", shop.ErrValidation)
	}
	if !cvvPattern.MatchString(cvv) {
		return fmt.Errorf("%w: invalid CVV", shop.ErrValidation)
	}
	if expiryDate == "" {
		return fmt.Errorf("%w: expiry date required", shop.ErrValidation)
	}
	if strings.HasSuffix(number, "0000") {
		return shop.ErrPaymentDeclined
	}
	return nil
}
