package checkout

import (
	"errors"
	"fmt"
	"strings"
)

// PaymentMethod identifies how the order will be paid. Only the choice is
// recorded; no payment is processed.
type PaymentMethod string

const (
	GCash          PaymentMethod = "gcash"
	CashOnDelivery PaymentMethod = "cod"
)

// ErrNoPaymentMethod is returned for an empty or unknown payment method.
var ErrNoPaymentMethod = errors.New("checkout: no payment method selected")

// NotSelected is shown in the review when no payment method is stored.
const NotSelected = "Not selected"

// Label is the display text, which is also the stored value.
func (m PaymentMethod) Label() string {
	switch m {
	case GCash:
		return "GCash"
	case CashOnDelivery:
		return "Cash on Delivery"
	default:
		return ""
	}
}

func (m PaymentMethod) String() string { return string(m) }

// ParsePaymentMethod accepts a method id ("gcash", "cod") or its label, in
// any case.
func ParsePaymentMethod(s string) (PaymentMethod, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	for _, m := range []PaymentMethod{GCash, CashOnDelivery} {
		if v == string(m) || v == strings.ToLower(m.Label()) {
			return m, nil
		}
	}
	if v == "" {
		return "", ErrNoPaymentMethod
	}
	return "", fmt.Errorf("%w: unknown method %q", ErrNoPaymentMethod, s)
}
