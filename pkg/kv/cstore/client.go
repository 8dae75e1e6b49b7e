package cstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/Ratio1/bbc_cart_go/internal/cstoreapi"
	"github.com/Ratio1/bbc_cart_go/internal/httpx"
	"github.com/Ratio1/bbc_cart_go/pkg/kv"
)

// Client talks to a CStore endpoint.
type Client struct {
	http *httpx.Client
}

var _ kv.Backend = (*Client)(nil)

// New constructs a Client bound to baseURL.
func New(baseURL string, opts ...httpx.Option) (*Client, error) {
	cl, err := httpx.NewClient(baseURL, opts...)
	if err != nil {
		return nil, fmt.Errorf("cstore: %w", err)
	}
	return &Client{http: cl}, nil
}

type setRequest struct {
	Key   string   `json:"key"`
	Value *string  `json:"value"`
	Peers []string `json:"chainstore_peers"`
}

// Get fetches the value stored under key.
func (c *Client) Get(ctx context.Context, key string) ([]byte, error) {
	if err := kv.ValidateKey(key); err != nil {
		return nil, err
	}
	resp, err := c.http.Do(ctx, &httpx.Request{
		Method: http.MethodGet,
		Path:   "get",
		Query:  url.Values{"key": {key}},
	})
	if err != nil {
		return nil, fmt.Errorf("cstore: get %q: %w", key, err)
	}
	data, err := httpx.ReadAllAndClose(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("cstore: get %q: %w", key, err)
	}
	value, err := cstoreapi.ExtractValue(data)
	if err != nil {
		return nil, fmt.Errorf("cstore: get %q: %w", key, err)
	}
	return value, nil
}

// Set stores value under key.
func (c *Client) Set(ctx context.Context, key string, value []byte) error {
	if err := kv.ValidateKey(key); err != nil {
		return err
	}
	s := string(value)
	return c.set(ctx, key, &s)
}

// Delete writes a null tombstone for key.
func (c *Client) Delete(ctx context.Context, key string) error {
	if err := kv.ValidateKey(key); err != nil {
		return err
	}
	return c.set(ctx, key, nil)
}

func (c *Client) set(ctx context.Context, key string, value *string) error {
	body, err := encodeJSON(setRequest{Key: key, Value: value, Peers: []string{}})
	if err != nil {
		return fmt.Errorf("cstore: encode set %q: %w", key, err)
	}
	resp, err := c.http.Do(ctx, &httpx.Request{
		Method: http.MethodPost,
		Path:   "set",
		Header: http.Header{"Content-Type": []string{"application/json"}},
		Body:   body,
	})
	if err != nil {
		return fmt.Errorf("cstore: set %q: %w", key, err)
	}
	_ = resp.Body.Close()
	return nil
}

// Keys returns the keys reported by /get_status. Deleted keys stay listed
// until upstream compacts its tombstones.
func (c *Client) Keys(ctx context.Context) ([]string, error) {
	resp, err := c.http.Do(ctx, &httpx.Request{
		Method: http.MethodGet,
		Path:   "get_status",
	})
	if err != nil {
		return nil, fmt.Errorf("cstore: get_status: %w", err)
	}
	data, err := httpx.ReadAllAndClose(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("cstore: get_status: %w", err)
	}
	var payload struct {
		Keys []string `json:"keys"`
	}
	if err := cstoreapi.DecodeResult(data, &payload); err != nil {
		return nil, fmt.Errorf("cstore: decode get_status response: %w", err)
	}
	return payload.Keys, nil
}

func encodeJSON(payload any) ([]byte, error) {
	buf := &bytes.Buffer{}
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(payload); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
