package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// Store is the in-memory cart backed by a Storage. Every mutation writes the
// full list back. When the write fails the in-memory change is kept and the
// error is returned so the caller can retry or report it.
type Store struct {
	storage Storage
	log     logrus.FieldLogger
	items   []LineItem
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for load warnings and persistence errors.
func WithLogger(l logrus.FieldLogger) Option {
	return func(s *Store) {
		if l != nil {
			s.log = l
		}
	}
}

// NewStore returns an empty Store bound to storage. Call Load to read the
// persisted state.
func NewStore(storage Storage, opts ...Option) *Store {
	s := &Store{
		storage: storage,
		log:     logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Open creates a Store and loads it. The returned Store is always usable,
// even when the error is non-nil.
func Open(ctx context.Context, storage Storage, opts ...Option) (*Store, error) {
	s := NewStore(storage, opts...)
	return s, s.Load(ctx)
}

// Load replaces the in-memory items with the persisted ones. A missing or
// malformed payload yields an empty cart and is only logged. Backend read
// failures also leave the cart empty but are returned.
func (s *Store) Load(ctx context.Context) error {
	items, err := s.storage.Load(ctx)
	switch {
	case errors.Is(err, ErrMalformed):
		s.log.WithError(err).Warn("discarding unreadable cart")
		s.items = nil
		return nil
	case err != nil:
		s.log.WithError(err).Warn("cart storage unavailable, starting empty")
		s.items = nil
		return err
	}
	s.items = items
	return nil
}

// Items returns a copy of the line items in insertion order.
func (s *Store) Items() []LineItem {
	out := make([]LineItem, len(s.items))
	for i, it := range s.items {
		out[i] = it.clone()
	}
	return out
}

// Find looks up a line by key.
func (s *Store) Find(key string) (LineItem, bool) {
	if i := s.indexOf(key); i >= 0 {
		return s.items[i].clone(), true
	}
	return LineItem{}, false
}

// Len reports the number of distinct lines.
func (s *Store) Len() int { return len(s.items) }

// AddItem adds sel to the cart. Quantities below one count as one. When the
// derived key is already present its quantity grows by sel.Qty, saturating
// at math.MaxInt, and the stored price and add-ons are left as they are;
// otherwise a new line is appended. The resulting line is returned.
func (s *Store) AddItem(ctx context.Context, sel Selection) (LineItem, error) {
	qty := sel.Qty
	if qty < 1 {
		qty = 1
	}
	key := DeriveKey(sel.Name, sel.Size, sel.AddOns)

	var line LineItem
	if i := s.indexOf(key); i >= 0 {
		s.items[i].Qty = addQty(s.items[i].Qty, qty)
		line = s.items[i].clone()
	} else {
		line = LineItem{
			Key:   key,
			Name:  sel.Name,
			Size:  sel.Size,
			Price: sel.UnitPrice,
			Qty:   qty,
		}
		if len(sel.AddOns) > 0 {
			line.AddOns = append([]AddOn(nil), sel.AddOns...)
		}
		s.items = append(s.items, line)
		line = line.clone()
	}

	s.log.WithFields(logrus.Fields{"key": key, "qty": line.Qty}).Debug("cart item added")
	return line, s.persist(ctx)
}

// ChangeQuantity adjusts the quantity of the line identified by key by
// delta. The quantity saturates at math.MaxInt rather than wrapping. A line
// whose quantity drops below one is removed. Unknown keys are ignored and
// nothing is written.
func (s *Store) ChangeQuantity(ctx context.Context, key string, delta int) error {
	i := s.indexOf(key)
	if i < 0 {
		return nil
	}
	s.items[i].Qty = addQty(s.items[i].Qty, delta)
	if s.items[i].Qty < 1 {
		s.items = append(s.items[:i], s.items[i+1:]...)
		s.log.WithField("key", key).Debug("cart item removed")
	}
	return s.persist(ctx)
}

// Increase adds one unit to the line identified by key.
func (s *Store) Increase(ctx context.Context, key string) error {
	return s.ChangeQuantity(ctx, key, 1)
}

// Decrease removes one unit from the line identified by key.
func (s *Store) Decrease(ctx context.Context, key string) error {
	return s.ChangeQuantity(ctx, key, -1)
}

// Totals computes the cart summary. It does not modify state.
func (s *Store) Totals() Totals {
	return Summarize(s.items)
}

// Summarize computes totals for an arbitrary list of lines.
func Summarize(items []LineItem) Totals {
	exact := decimal.Zero
	count := 0
	for _, it := range items {
		exact = exact.Add(it.Total())
		count = addQty(count, it.Qty)
	}
	return Totals{Exact: exact, Total: exact.Round(2), Count: count}
}

// Clear empties the cart and removes the persisted entry.
func (s *Store) Clear(ctx context.Context) error {
	s.items = nil
	if err := s.storage.Clear(ctx); err != nil {
		s.log.WithError(err).Error("clear persisted cart")
		return fmt.Errorf("cart: clear: %w", err)
	}
	return nil
}

func (s *Store) indexOf(key string) int {
	for i := range s.items {
		if s.items[i].Key == key {
			return i
		}
	}
	return -1
}

func (s *Store) persist(ctx context.Context) error {
	if err := s.storage.Save(ctx, s.items); err != nil {
		s.log.WithError(err).Error("persist cart")
		return fmt.Errorf("cart: persist: %w", err)
	}
	return nil
}
