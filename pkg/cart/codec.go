package cart

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// The persisted schema is the one the storefront pages write to
// localStorage: prices are JSON numbers, a missing size is null.
type addOnRecord struct {
	Name  string      `json:"name"`
	Price json.Number `json:"price"`
}

type lineRecord struct {
	Key    string        `json:"key"`
	Name   string        `json:"name"`
	Size   *string       `json:"size"`
	Price  json.Number   `json:"price"`
	Qty    int           `json:"qty"`
	AddOns []addOnRecord `json:"addons"`
}

// Encode serialises items into the persisted JSON schema.
func Encode(items []LineItem) ([]byte, error) {
	records := make([]lineRecord, 0, len(items))
	for _, it := range items {
		rec := lineRecord{
			Key:    it.Key,
			Name:   it.Name,
			Price:  json.Number(it.Price.String()),
			Qty:    it.Qty,
			AddOns: make([]addOnRecord, 0, len(it.AddOns)),
		}
		if it.Size != "" {
			size := it.Size
			rec.Size = &size
		}
		for _, a := range it.AddOns {
			rec.AddOns = append(rec.AddOns, addOnRecord{Name: a.Name, Price: json.Number(a.Price.String())})
		}
		records = append(records, rec)
	}

	buf := &bytes.Buffer{}
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(records); err != nil {
		return nil, fmt.Errorf("cart: encode: %w", err)
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// Decode parses a persisted payload. Empty input and JSON null decode to an
// empty cart. Keys are re-derived from the item fields and items that end up
// sharing a key are merged, so the result always satisfies the cart
// invariants. Any record with an empty name, a missing or negative price, or
// a quantity below one makes the whole payload malformed.
func Decode(data []byte) ([]LineItem, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}

	var records []lineRecord
	if err := json.Unmarshal(trimmed, &records); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	items := make([]LineItem, 0, len(records))
	index := make(map[string]int, len(records))
	for i, rec := range records {
		item, err := decodeRecord(rec)
		if err != nil {
			return nil, fmt.Errorf("%w: item %d: %v", ErrMalformed, i, err)
		}
		if at, ok := index[item.Key]; ok {
			items[at].Qty = addQty(items[at].Qty, item.Qty)
			continue
		}
		index[item.Key] = len(items)
		items = append(items, item)
	}
	return items, nil
}

func decodeRecord(rec lineRecord) (LineItem, error) {
	if strings.TrimSpace(rec.Name) == "" {
		return LineItem{}, fmt.Errorf("missing name")
	}
	if rec.Qty < 1 {
		return LineItem{}, fmt.Errorf("quantity %d below 1", rec.Qty)
	}
	price, err := parsePrice(rec.Price)
	if err != nil {
		return LineItem{}, fmt.Errorf("price: %w", err)
	}

	item := LineItem{Name: rec.Name, Price: price, Qty: rec.Qty}
	if rec.Size != nil {
		item.Size = *rec.Size
	}
	for j, a := range rec.AddOns {
		p, err := parsePrice(a.Price)
		if err != nil {
			return LineItem{}, fmt.Errorf("addon %d price: %w", j, err)
		}
		item.AddOns = append(item.AddOns, AddOn{Name: a.Name, Price: p})
	}
	item.Key = DeriveKey(item.Name, item.Size, item.AddOns)
	return item, nil
}

func parsePrice(n json.Number) (decimal.Decimal, error) {
	if n == "" {
		return decimal.Zero, fmt.Errorf("missing")
	}
	d, err := decimal.NewFromString(n.String())
	if err != nil {
		return decimal.Zero, err
	}
	if d.IsNegative() {
		return decimal.Zero, fmt.Errorf("negative value %s", d)
	}
	return d, nil
}
