// Package memory implements an in-process kv.Backend with optional TTLs. It
// backs mock runtime mode, the cart sandbox, and tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Ratio1/bbc_cart_go/internal/devseed"
	"github.com/Ratio1/bbc_cart_go/pkg/kv"
)

type entry struct {
	data      []byte
	expiresAt time.Time
}

func (e *entry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// Store is a mutex-guarded map of raw values.
type Store struct {
	mu    sync.Mutex
	items map[string]*entry
	now   func() time.Time
}

var _ kv.Backend = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the clock used for TTL bookkeeping (useful in tests).
func WithClock(fn func() time.Time) Option {
	return func(s *Store) {
		if fn != nil {
			s.now = fn
		}
	}
}

// New creates an empty store.
func New(opts ...Option) *Store {
	s := &Store{
		items: make(map[string]*entry),
		now: func() time.Time {
			return time.Now().UTC()
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Seed loads initial values, replacing any existing keys of the same name.
func (s *Store) Seed(entries []devseed.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for _, e := range entries {
		if strings.TrimSpace(e.Key) == "" {
			return fmt.Errorf("memory kv: seed entry missing key")
		}
		ent := &entry{data: append([]byte(nil), e.Value...)}
		if e.TTLSeconds != nil && *e.TTLSeconds > 0 {
			ent.expiresAt = now.Add(time.Duration(*e.TTLSeconds) * time.Second)
		}
		s.items[e.Key] = ent
	}
	return nil
}

// Get returns a copy of the value stored under key, or nil when absent or
// expired.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	if err := kv.ValidateKey(key); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ent, ok := s.items[key]
	if !ok {
		return nil, nil
	}
	if ent.expired(s.now()) {
		delete(s.items, key)
		return nil, nil
	}
	return append([]byte(nil), ent.data...), nil
}

// Set stores value without expiry.
func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	return s.SetWithTTL(ctx, key, value, 0)
}

// SetWithTTL stores value; ttl <= 0 means no expiry.
func (s *Store) SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := kv.ValidateKey(key); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ent := &entry{data: append([]byte(nil), value...)}
	if ttl > 0 {
		ent.expiresAt = s.now().Add(ttl)
	}
	s.items[key] = ent
	return nil
}

// Delete removes key. Missing keys are ignored.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := kv.ValidateKey(key); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, key)
	return nil
}

// Keys lists live keys with the given prefix in sorted order.
func (s *Store) Keys(ctx context.Context, prefix string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	keys := make([]string, 0, len(s.items))
	for key, ent := range s.items {
		if ent.expired(now) {
			delete(s.items, key)
			continue
		}
		if prefix == "" || strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys, nil
}
