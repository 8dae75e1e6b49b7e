package cart

import (
	"context"
	"fmt"
	"strings"

	"github.com/Ratio1/bbc_cart_go/pkg/kv"
)

// Storage persists the cart list. Load returns (nil, nil) when nothing has
// been saved yet.
type Storage interface {
	Load(ctx context.Context) ([]LineItem, error)
	Save(ctx context.Context, items []LineItem) error
	Clear(ctx context.Context) error
}

// KVStorage keeps the encoded cart under a single key of a kv.Backend.
type KVStorage struct {
	backend kv.Backend
	key     string
}

var _ Storage = (*KVStorage)(nil)

// NewKVStorage binds backend and key. A blank key selects DefaultStorageKey.
func NewKVStorage(backend kv.Backend, key string) *KVStorage {
	if strings.TrimSpace(key) == "" {
		key = DefaultStorageKey
	}
	return &KVStorage{backend: backend, key: key}
}

// Key reports the storage key in use.
func (s *KVStorage) Key() string { return s.key }

func (s *KVStorage) Load(ctx context.Context) ([]LineItem, error) {
	raw, err := s.backend.Get(ctx, s.key)
	if err != nil {
		return nil, fmt.Errorf("cart: read %s: %w", s.key, err)
	}
	if raw == nil {
		return nil, nil
	}
	return Decode(raw)
}

func (s *KVStorage) Save(ctx context.Context, items []LineItem) error {
	data, err := Encode(items)
	if err != nil {
		return err
	}
	if err := s.backend.Set(ctx, s.key, data); err != nil {
		return fmt.Errorf("cart: write %s: %w", s.key, err)
	}
	return nil
}

func (s *KVStorage) Clear(ctx context.Context) error {
	if err := s.backend.Delete(ctx, s.key); err != nil {
		return fmt.Errorf("cart: delete %s: %w", s.key, err)
	}
	return nil
}
