package cart

import (
	"errors"
	"math"

	"github.com/shopspring/decimal"
)

// DefaultStorageKey is the key the storefront pages persist the cart under.
const DefaultStorageKey = "bbc_cart"

// AddOn is an optional priced extra attached to a line item.
type AddOn struct {
	Name  string
	Price decimal.Decimal
}

// LineItem is one distinct product/size/add-on configuration in the cart.
type LineItem struct {
	Key    string
	Name   string
	Size   string // empty when the product has no size options
	Price  decimal.Decimal
	Qty    int
	AddOns []AddOn // in selection order
}

// UnitTotal is the price of one unit including add-ons.
func (li LineItem) UnitTotal() decimal.Decimal {
	total := li.Price
	for _, a := range li.AddOns {
		total = total.Add(a.Price)
	}
	return total
}

// Total is UnitTotal multiplied by Qty, at full precision.
func (li LineItem) Total() decimal.Decimal {
	return li.UnitTotal().Mul(decimal.NewFromInt(int64(li.Qty)))
}

func (li LineItem) clone() LineItem {
	out := li
	if li.AddOns != nil {
		out.AddOns = append([]AddOn(nil), li.AddOns...)
	}
	return out
}

// Selection is what a product page submits when the shopper adds to cart.
// Inputs are expected to be validated by the caller.
type Selection struct {
	Name      string
	Size      string
	UnitPrice decimal.Decimal
	Qty       int
	AddOns    []AddOn
}

// Totals summarises the cart for the badge and summary panel.
type Totals struct {
	// Exact is the unrounded sum of all line totals.
	Exact decimal.Decimal
	// Total is Exact rounded to two decimal places.
	Total decimal.Decimal
	// Count is the sum of quantities, not the number of lines.
	Count int
}

// ErrMalformed wraps decode failures of a persisted cart payload.
var ErrMalformed = errors.New("cart: malformed payload")

// addQty adds delta to qty, saturating at math.MaxInt instead of wrapping.
func addQty(qty, delta int) int {
	if delta > 0 && qty > math.MaxInt-delta {
		return math.MaxInt
	}
	if delta < 0 && qty < math.MinInt-delta {
		return math.MinInt
	}
	return qty + delta
}
