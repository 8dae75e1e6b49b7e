// Package checkout implements the payment selection, review and order
// confirmation steps that follow the cart. It reads the persisted cart
// directly from the kv backend so it can run in a separate process from
// the one that filled the cart.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/Ratio1/bbc_cart_go/pkg/cart"
	"github.com/Ratio1/bbc_cart_go/pkg/kv"
)

// DefaultPaymentKey is the key the selected payment label is stored under.
const DefaultPaymentKey = "selectedPayment"

// ErrEmptyOrder is returned by Confirm when the cart has no lines.
var ErrEmptyOrder = errors.New("checkout: cart is empty")

// Line is one row of the review summary.
type Line struct {
	Key         string
	Description string
	AddOns      []cart.AddOn
	Total       decimal.Decimal
}

// Review is the order summary shown before confirmation.
type Review struct {
	Lines []Line
	// Total is rounded to two decimals.
	Total decimal.Decimal
	Count int
	// Payment is the stored label, or NotSelected.
	Payment string
}

// Receipt describes a confirmed order.
type Receipt struct {
	OrderID  string
	PlacedAt time.Time
	Review
}

// Flow runs the checkout steps against a kv backend.
type Flow struct {
	backend    kv.Backend
	cartKey    string
	paymentKey string
	log        logrus.FieldLogger
	now        func() time.Time
	newID      func() string
}

// Option configures a Flow.
type Option func(*Flow)

// WithCartKey overrides the cart storage key.
func WithCartKey(key string) Option {
	return func(f *Flow) {
		if strings.TrimSpace(key) != "" {
			f.cartKey = key
		}
	}
}

// WithPaymentKey overrides the payment storage key.
func WithPaymentKey(key string) Option {
	return func(f *Flow) {
		if strings.TrimSpace(key) != "" {
			f.paymentKey = key
		}
	}
}

// WithLogger sets the logger for checkout events.
func WithLogger(l logrus.FieldLogger) Option {
	return func(f *Flow) {
		if l != nil {
			f.log = l
		}
	}
}

// WithClock sets the time source for receipts.
func WithClock(now func() time.Time) Option {
	return func(f *Flow) {
		if now != nil {
			f.now = now
		}
	}
}

// WithIDGenerator sets the order id generator. Defaults to random UUIDs.
func WithIDGenerator(gen func() string) Option {
	return func(f *Flow) {
		if gen != nil {
			f.newID = gen
		}
	}
}

// New returns a Flow over backend.
func New(backend kv.Backend, opts ...Option) *Flow {
	f := &Flow{
		backend:    backend,
		cartKey:    cart.DefaultStorageKey,
		paymentKey: DefaultPaymentKey,
		log:        logrus.StandardLogger(),
		now:        time.Now,
		newID:      func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// SelectPayment records the chosen method under the payment key.
func (f *Flow) SelectPayment(ctx context.Context, m PaymentMethod) error {
	if m.Label() == "" {
		return fmt.Errorf("%w: unknown method %q", ErrNoPaymentMethod, string(m))
	}
	if err := f.backend.Set(ctx, f.paymentKey, []byte(m.Label())); err != nil {
		return fmt.Errorf("checkout: store payment: %w", err)
	}
	f.log.WithField("payment", m.Label()).Info("payment method selected")
	return nil
}

// Payment returns the stored method. ok is false when nothing is stored or
// the stored label is not one this package writes.
func (f *Flow) Payment(ctx context.Context) (m PaymentMethod, ok bool, err error) {
	label, err := f.paymentLabel(ctx)
	if err != nil || label == "" {
		return "", false, err
	}
	m, perr := ParsePaymentMethod(label)
	if perr != nil {
		return "", false, nil
	}
	return m, true, nil
}

// Review builds the order summary from the persisted cart and payment.
func (f *Flow) Review(ctx context.Context) (*Review, error) {
	store, err := cart.Open(ctx, cart.NewKVStorage(f.backend, f.cartKey), cart.WithLogger(f.log))
	if err != nil {
		return nil, fmt.Errorf("checkout: load cart: %w", err)
	}
	label, err := f.paymentLabel(ctx)
	if err != nil {
		return nil, err
	}
	if label == "" {
		label = NotSelected
	}

	items := store.Items()
	totals := cart.Summarize(items)
	review := &Review{
		Lines:   make([]Line, 0, len(items)),
		Total:   totals.Total,
		Count:   totals.Count,
		Payment: label,
	}
	for _, it := range items {
		review.Lines = append(review.Lines, Line{
			Key:         it.Key,
			Description: cart.Describe(it),
			AddOns:      it.AddOns,
			Total:       it.Total(),
		})
	}
	return review, nil
}

// Confirm finalises the order: it returns a receipt for the current review
// and removes the payment entry, then the cart. An empty cart is rejected
// and nothing is removed. When a removal fails the cart stays persisted, so
// the order can be confirmed again.
func (f *Flow) Confirm(ctx context.Context) (*Receipt, error) {
	review, err := f.Review(ctx)
	if err != nil {
		return nil, err
	}
	if len(review.Lines) == 0 {
		return nil, ErrEmptyOrder
	}

	receipt := &Receipt{
		OrderID:  f.newID(),
		PlacedAt: f.now().UTC(),
		Review:   *review,
	}
	// The cart goes last so a failed delete never loses an unconfirmed order.
	if err := f.backend.Delete(ctx, f.paymentKey); err != nil {
		return nil, fmt.Errorf("checkout: clear payment: %w", err)
	}
	if err := f.backend.Delete(ctx, f.cartKey); err != nil {
		return nil, fmt.Errorf("checkout: clear cart: %w", err)
	}

	f.log.WithFields(logrus.Fields{
		"order_id": receipt.OrderID,
		"total":    cart.FormatMoney(receipt.Total),
		"items":    receipt.Count,
		"payment":  receipt.Payment,
	}).Info("order confirmed")
	return receipt, nil
}

func (f *Flow) paymentLabel(ctx context.Context) (string, error) {
	raw, err := f.backend.Get(ctx, f.paymentKey)
	if err != nil {
		return "", fmt.Errorf("checkout: read payment: %w", err)
	}
	return strings.TrimSpace(string(raw)), nil
}
