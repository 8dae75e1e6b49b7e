package cstore_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/Ratio1/bbc_cart_go/internal/httpx"
	"github.com/Ratio1/bbc_cart_go/pkg/kv"
	"github.com/Ratio1/bbc_cart_go/pkg/kv/cstore"
	"github.com/Ratio1/bbc_cart_go/pkg/kv/memory"
)

func newSandboxClient(t *testing.T) (*cstore.Client, *memory.Store) {
	t.Helper()
	store := memory.New()
	srv := httptest.NewServer(cstore.NewSandboxHandler(store, nil))
	t.Cleanup(srv.Close)

	client, err := cstore.New(srv.URL)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return client, store
}

func TestClientSetGetDeleteAgainstSandbox(t *testing.T) {
	client, store := newSandboxClient(t)
	ctx := context.Background()

	got, err := client.Get(ctx, "bbc_cart")
	if err != nil {
		t.Fatalf("Get missing: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil for missing key, got %q", got)
	}

	cart := `[{"key":"Latte|Large|","name":"Latte","size":"Large","price":120,"qty":1,"addons":[]}]`
	if err := client.Set(ctx, "bbc_cart", []byte(cart)); err != nil {
		t.Fatalf("Set cart: %v", err)
	}
	if err := client.Set(ctx, "selectedPayment", []byte("Cash on Delivery")); err != nil {
		t.Fatalf("Set payment: %v", err)
	}

	raw, err := store.Get(ctx, "bbc_cart")
	if err != nil || string(raw) != cart {
		t.Fatalf("sandbox stored %q err=%v", raw, err)
	}

	got, err = client.Get(ctx, "bbc_cart")
	if err != nil {
		t.Fatalf("Get cart: %v", err)
	}
	if string(got) != cart {
		t.Fatalf("cart mismatch: %q", got)
	}
	got, err = client.Get(ctx, "selectedPayment")
	if err != nil || string(got) != "Cash on Delivery" {
		t.Fatalf("payment mismatch: %q err=%v", got, err)
	}

	keys, err := client.Keys(ctx)
	if err != nil {
		t.Fatalf("Keys: %v", err)
	}
	if diff := cmp.Diff([]string{"bbc_cart", "selectedPayment"}, keys); diff != "" {
		t.Fatalf("keys mismatch (-want +got):\n%s", diff)
	}

	if err := client.Delete(ctx, "bbc_cart"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if got, err := client.Get(ctx, "bbc_cart"); err != nil || got != nil {
		t.Fatalf("expected nil after delete, got %q err=%v", got, err)
	}
}

func TestClientSendsUpstreamSetShape(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/set" || r.Method != http.MethodPost {
			http.NotFound(w, r)
			return
		}
		data, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(data, &body); err != nil {
			t.Errorf("decode body: %v", err)
		}
		io.WriteString(w, `{"result":true}`)
	}))
	defer srv.Close()

	client, err := cstore.New(srv.URL)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := client.Delete(context.Background(), "bbc_cart"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	want := map[string]any{"key": "bbc_cart", "value": nil, "chainstore_peers": []any{}}
	if diff := cmp.Diff(want, body); diff != "" {
		t.Fatalf("set body mismatch (-want +got):\n%s", diff)
	}
}

func TestClientRetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		io.WriteString(w, `{"result":"GCash"}`)
	}))
	defer srv.Close()

	client, err := cstore.New(srv.URL, httpx.WithRetryPolicy(httpx.RetryPolicy{
		MaxRetries: 1,
		BaseDelay:  time.Millisecond,
		MaxDelay:   time.Millisecond,
	}))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	got, err := client.Get(context.Background(), "selectedPayment")
	if err != nil || string(got) != "GCash" {
		t.Fatalf("expected GCash after retry, got %q err=%v", got, err)
	}
}

func TestClientRejectsBlankKey(t *testing.T) {
	client, _ := newSandboxClient(t)
	if _, err := client.Get(context.Background(), " "); !errors.Is(err, kv.ErrKeyRequired) {
		t.Fatalf("expected ErrKeyRequired, got %v", err)
	}
}

func TestNewInvalidURL(t *testing.T) {
	if _, err := cstore.New("://not-a-url"); err == nil {
		t.Fatalf("expected error for invalid URL")
	}
}
