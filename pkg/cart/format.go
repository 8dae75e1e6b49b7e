package cart

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// FormatMoney renders an amount with exactly two decimals ("140.00").
func FormatMoney(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// FormatPeso renders an amount the way the storefront displays prices.
func FormatPeso(d decimal.Decimal) string {
	return "₱" + FormatMoney(d)
}

// Describe returns the summary line used by the cart panel and the review
// page, e.g. "Latte (Large) x3".
func Describe(li LineItem) string {
	if li.Size == "" {
		return fmt.Sprintf("%s x%d", li.Name, li.Qty)
	}
	return fmt.Sprintf("%s (%s) x%d", li.Name, li.Size, li.Qty)
}
