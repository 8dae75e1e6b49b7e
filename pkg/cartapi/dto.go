package cartapi

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Ratio1/bbc_cart_go/pkg/cart"
	"github.com/Ratio1/bbc_cart_go/pkg/checkout"
)

// addOnJSON and the other response types render money as a string with two
// decimals.
type addOnJSON struct {
	Name  string `json:"name"`
	Price string `json:"price"`
}

type lineJSON struct {
	Key         string      `json:"key"`
	Name        string      `json:"name"`
	Size        string      `json:"size,omitempty"`
	Description string      `json:"description"`
	UnitPrice   string      `json:"unit_price"`
	Qty         int         `json:"qty"`
	AddOns      []addOnJSON `json:"addons"`
	Total       string      `json:"total"`
}

type cartJSON struct {
	Items []lineJSON `json:"items"`
	Total string     `json:"total"`
	Count int        `json:"count"`
}

type reviewLineJSON struct {
	Key         string      `json:"key"`
	Description string      `json:"description"`
	AddOns      []addOnJSON `json:"addons"`
	Total       string      `json:"total"`
}

type reviewJSON struct {
	Lines   []reviewLineJSON `json:"lines"`
	Total   string           `json:"total"`
	Count   int              `json:"count"`
	Payment string           `json:"payment"`
}

type receiptJSON struct {
	OrderID  string    `json:"order_id"`
	PlacedAt time.Time `json:"placed_at"`
	reviewJSON
}

type paymentJSON struct {
	Method string `json:"method"`
	Label  string `json:"label"`
}

type errorJSON struct {
	Error string `json:"error"`
}

type addItemRequest struct {
	Name   string      `json:"name"`
	Size   string      `json:"size"`
	Price  json.Number `json:"price"`
	Qty    int         `json:"qty"`
	AddOns []struct {
		Name  string      `json:"name"`
		Price json.Number `json:"price"`
	} `json:"addons"`
}

type quantityRequest struct {
	Key    string `json:"key"`
	Delta  *int   `json:"delta"`
	Action string `json:"action"`
}

type paymentRequest struct {
	Method string `json:"method"`
}

// selection validates the product-page form and converts it.
func (r addItemRequest) selection() (cart.Selection, error) {
	name := strings.TrimSpace(r.Name)
	if name == "" {
		return cart.Selection{}, fmt.Errorf("name is required")
	}
	price, err := parseAmount(r.Price)
	if err != nil {
		return cart.Selection{}, fmt.Errorf("price: %w", err)
	}
	sel := cart.Selection{
		Name:      name,
		Size:      strings.TrimSpace(r.Size),
		UnitPrice: price,
		Qty:       r.Qty,
	}
	for i, a := range r.AddOns {
		an := strings.TrimSpace(a.Name)
		if an == "" {
			return cart.Selection{}, fmt.Errorf("addon %d: name is required", i)
		}
		ap, err := parseAmount(a.Price)
		if err != nil {
			return cart.Selection{}, fmt.Errorf("addon %q price: %w", an, err)
		}
		sel.AddOns = append(sel.AddOns, cart.AddOn{Name: an, Price: ap})
	}
	return sel, nil
}

func (r quantityRequest) delta() (int, error) {
	if strings.TrimSpace(r.Key) == "" {
		return 0, fmt.Errorf("key is required")
	}
	if r.Delta != nil {
		return *r.Delta, nil
	}
	switch strings.ToLower(strings.TrimSpace(r.Action)) {
	case "increase":
		return 1, nil
	case "decrease":
		return -1, nil
	case "":
		return 0, fmt.Errorf("delta or action is required")
	default:
		return 0, fmt.Errorf("unknown action %q", r.Action)
	}
}

func parseAmount(n json.Number) (decimal.Decimal, error) {
	if n == "" {
		return decimal.Zero, fmt.Errorf("is required")
	}
	d, err := decimal.NewFromString(n.String())
	if err != nil {
		return decimal.Zero, fmt.Errorf("not a number")
	}
	if d.IsNegative() {
		return decimal.Zero, fmt.Errorf("must not be negative")
	}
	return d, nil
}

func toAddOns(in []cart.AddOn) []addOnJSON {
	out := make([]addOnJSON, 0, len(in))
	for _, a := range in {
		out = append(out, addOnJSON{Name: a.Name, Price: cart.FormatMoney(a.Price)})
	}
	return out
}

func toLine(li cart.LineItem) lineJSON {
	return lineJSON{
		Key:         li.Key,
		Name:        li.Name,
		Size:        li.Size,
		Description: cart.Describe(li),
		UnitPrice:   cart.FormatMoney(li.Price),
		Qty:         li.Qty,
		AddOns:      toAddOns(li.AddOns),
		Total:       cart.FormatMoney(li.Total()),
	}
}

func toCart(items []cart.LineItem, totals cart.Totals) cartJSON {
	out := cartJSON{
		Items: make([]lineJSON, 0, len(items)),
		Total: cart.FormatMoney(totals.Total),
		Count: totals.Count,
	}
	for _, it := range items {
		out.Items = append(out.Items, toLine(it))
	}
	return out
}

func toReview(r *checkout.Review) reviewJSON {
	out := reviewJSON{
		Lines:   make([]reviewLineJSON, 0, len(r.Lines)),
		Total:   cart.FormatMoney(r.Total),
		Count:   r.Count,
		Payment: r.Payment,
	}
	for _, l := range r.Lines {
		out.Lines = append(out.Lines, reviewLineJSON{
			Key:         l.Key,
			Description: l.Description,
			AddOns:      toAddOns(l.AddOns),
			Total:       cart.FormatMoney(l.Total),
		})
	}
	return out
}
