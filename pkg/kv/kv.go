// Package kv defines the key-value contract the cart and checkout state is
// persisted through. Values are opaque byte payloads (JSON for the cart,
// plain text for the payment label) addressed by fixed string keys, mirroring
// the browser localStorage the storefront pages originally relied on.
//
// Three backends ship with the module: kv/memory (in-process), kv/file (one
// file per key under a directory) and kv/cstore (Ratio1 CStore over HTTP).
package kv

import (
	"context"
	"errors"
	"strings"
)

// Backend stores raw values under string keys.
//
// Get returns (nil, nil) when the key is absent. Delete on an absent key is
// not an error.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// ErrKeyRequired is returned by backends when an empty key is supplied.
var ErrKeyRequired = errors.New("kv: key is required")

// ValidateKey reports ErrKeyRequired for blank keys.
func ValidateKey(key string) error {
	if strings.TrimSpace(key) == "" {
		return ErrKeyRequired
	}
	return nil
}
