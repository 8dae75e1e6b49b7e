package cartapi_test

import (
	"context"
	"errors"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ratio1/bbc_cart_go/pkg/cart"
	"github.com/Ratio1/bbc_cart_go/pkg/cartapi"
	"github.com/Ratio1/bbc_cart_go/pkg/checkout"
	"github.com/Ratio1/bbc_cart_go/pkg/kv"
	"github.com/Ratio1/bbc_cart_go/pkg/kv/memory"
)

type cartBody struct {
	Items []struct {
		Key         string `json:"key"`
		Description string `json:"description"`
		Qty         int    `json:"qty"`
		Total       string `json:"total"`
	} `json:"items"`
	Total string `json:"total"`
	Count int    `json:"count"`
}

type apiFixture struct {
	srv     *httptest.Server
	backend *memory.Store
}

func newFixture(t *testing.T) *apiFixture {
	t.Helper()
	logger, _ := test.NewNullLogger()
	backend := memory.New()
	store, err := cart.Open(context.Background(), cart.NewKVStorage(backend, ""), cart.WithLogger(logger))
	require.NoError(t, err)
	flow := checkout.New(backend, checkout.WithLogger(logger))

	srv := httptest.NewServer(cartapi.Router(store, flow, logger))
	t.Cleanup(srv.Close)
	return &apiFixture{srv: srv, backend: backend}
}

func (f *apiFixture) do(t *testing.T, method, path, body string, out any) int {
	t.Helper()
	req, err := http.NewRequest(method, f.srv.URL+"/api/v1"+path, strings.NewReader(body))
	require.NoError(t, err)
	resp, err := f.srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

const latteJSON = `{"name":"Latte","size":"Large","price":120,"qty":1,"addons":[{"name":"Extra Shot","price":20}]}`

func TestAddItemAndMerge(t *testing.T) {
	f := newFixture(t)

	var body cartBody
	require.Equal(t, http.StatusCreated, f.do(t, http.MethodPost, "/cart/items", latteJSON, &body))
	require.Len(t, body.Items, 1)
	assert.Equal(t, "Latte|Large|Extra Shot:20", body.Items[0].Key)
	assert.Equal(t, "140.00", body.Total)
	assert.Equal(t, 1, body.Count)

	again := strings.Replace(latteJSON, `"qty":1`, `"qty":2`, 1)
	require.Equal(t, http.StatusCreated, f.do(t, http.MethodPost, "/cart/items", again, &body))
	require.Len(t, body.Items, 1)
	assert.Equal(t, 3, body.Items[0].Qty)
	assert.Equal(t, "Latte (Large) x3", body.Items[0].Description)
	assert.Equal(t, "420.00", body.Total)

	var fetched cartBody
	require.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/cart", "", &fetched))
	assert.Equal(t, body, fetched)
}

func TestAddItemValidation(t *testing.T) {
	f := newFixture(t)
	cases := map[string]string{
		"missing name":   `{"price":10}`,
		"negative price": `{"name":"Tea","price":-1}`,
		"missing price":  `{"name":"Tea"}`,
		"bad addon":      `{"name":"Tea","price":1,"addons":[{"name":"","price":1}]}`,
		"unknown field":  `{"name":"Tea","price":1,"colour":"red"}`,
		"not json":       `{`,
	}
	for name, payload := range cases {
		payload := payload
		t.Run(name, func(t *testing.T) {
			var e struct {
				Error string `json:"error"`
			}
			assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodPost, "/cart/items", payload, &e))
			assert.NotEmpty(t, e.Error)
		})
	}
}

func TestChangeQuantity(t *testing.T) {
	f := newFixture(t)
	f.do(t, http.MethodPost, "/cart/items", strings.Replace(latteJSON, `"qty":1`, `"qty":3`, 1), nil)
	key := `"Latte|Large|Extra Shot:20"`

	var body cartBody
	require.Equal(t, http.StatusOK, f.do(t, http.MethodPost, "/cart/quantity", `{"key":`+key+`,"action":"increase"}`, &body))
	assert.Equal(t, 4, body.Count)

	require.Equal(t, http.StatusOK, f.do(t, http.MethodPost, "/cart/quantity", `{"key":`+key+`,"delta":-4}`, &body))
	assert.Empty(t, body.Items)
	assert.Equal(t, "0.00", body.Total)

	require.Equal(t, http.StatusOK, f.do(t, http.MethodPost, "/cart/quantity", `{"key":"gone","action":"decrease"}`, &body))
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodPost, "/cart/quantity", `{"key":"x","action":"double"}`, nil))
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodPost, "/cart/quantity", `{"action":"increase"}`, nil))
}

func TestClearCart(t *testing.T) {
	f := newFixture(t)
	f.do(t, http.MethodPost, "/cart/items", latteJSON, nil)

	var body cartBody
	require.Equal(t, http.StatusOK, f.do(t, http.MethodDelete, "/cart", "", &body))
	assert.Empty(t, body.Items)

	raw, err := f.backend.Get(context.Background(), cart.DefaultStorageKey)
	require.NoError(t, err)
	assert.Nil(t, raw)
}

func TestCheckoutFlow(t *testing.T) {
	f := newFixture(t)
	f.do(t, http.MethodPost, "/cart/items", latteJSON, nil)

	var review struct {
		Lines []struct {
			Description string `json:"description"`
			Total       string `json:"total"`
		} `json:"lines"`
		Total   string `json:"total"`
		Payment string `json:"payment"`
	}
	require.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/checkout/review", "", &review))
	assert.Equal(t, "Not selected", review.Payment)

	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodPut, "/checkout/payment", `{"method":"card"}`, nil))

	var payment struct {
		Method string `json:"method"`
		Label  string `json:"label"`
	}
	require.Equal(t, http.StatusOK, f.do(t, http.MethodPut, "/checkout/payment", `{"method":"gcash"}`, &payment))
	assert.Equal(t, "GCash", payment.Label)

	require.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/checkout/review", "", &review))
	assert.Equal(t, "GCash", review.Payment)
	require.Len(t, review.Lines, 1)
	assert.Equal(t, "Latte (Large) x1", review.Lines[0].Description)

	var receipt struct {
		OrderID string `json:"order_id"`
		Total   string `json:"total"`
		Payment string `json:"payment"`
	}
	require.Equal(t, http.StatusOK, f.do(t, http.MethodPost, "/checkout/confirm", "", &receipt))
	assert.NotEmpty(t, receipt.OrderID)
	assert.Equal(t, "140.00", receipt.Total)
	assert.Equal(t, "GCash", receipt.Payment)

	var body cartBody
	require.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/cart", "", &body))
	assert.Empty(t, body.Items)

	assert.Equal(t, http.StatusConflict, f.do(t, http.MethodPost, "/checkout/confirm", "", nil))
}

func TestMethodNotAllowed(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, http.StatusMethodNotAllowed, f.do(t, http.MethodPatch, "/cart", "", nil))
}

type refuseCartDelete struct {
	kv.Backend
}

func (r refuseCartDelete) Delete(ctx context.Context, key string) error {
	if key == cart.DefaultStorageKey {
		return errors.New("delete refused")
	}
	return r.Backend.Delete(ctx, key)
}

func TestConfirmFailureKeepsCartConsistent(t *testing.T) {
	logger, _ := test.NewNullLogger()
	backend := memory.New()
	broken := refuseCartDelete{Backend: backend}
	store, err := cart.Open(context.Background(), cart.NewKVStorage(broken, ""), cart.WithLogger(logger))
	require.NoError(t, err)
	flow := checkout.New(broken, checkout.WithLogger(logger))
	srv := httptest.NewServer(cartapi.Router(store, flow, logger))
	t.Cleanup(srv.Close)
	f := &apiFixture{srv: srv, backend: backend}

	f.do(t, http.MethodPost, "/cart/items", latteJSON, nil)
	assert.Equal(t, http.StatusInternalServerError, f.do(t, http.MethodPost, "/checkout/confirm", "", nil))

	var body cartBody
	require.Equal(t, http.StatusCreated, f.do(t, http.MethodPost, "/cart/items", latteJSON, &body))
	require.Len(t, body.Items, 1)
	assert.Equal(t, 2, body.Items[0].Qty)

	persisted, err := cart.Open(context.Background(), cart.NewKVStorage(backend, ""), cart.WithLogger(logger))
	require.NoError(t, err)
	assert.Equal(t, 2, persisted.Totals().Count)
}

func TestAddItemHugeQuantitySaturates(t *testing.T) {
	f := newFixture(t)
	f.do(t, http.MethodPost, "/cart/items", latteJSON, nil)

	huge := strings.Replace(latteJSON, `"qty":1`, `"qty":9223372036854775807`, 1)
	var body cartBody
	require.Equal(t, http.StatusCreated, f.do(t, http.MethodPost, "/cart/items", huge, &body))
	require.Len(t, body.Items, 1)
	assert.Equal(t, 9223372036854775807, body.Items[0].Qty)

	key := `"Latte|Large|Extra Shot:20"`
	require.Equal(t, http.StatusOK, f.do(t, http.MethodPost, "/cart/quantity", `{"key":`+key+`,"delta":9223372036854775807}`, &body))
	require.Len(t, body.Items, 1)
	assert.Equal(t, 9223372036854775807, body.Items[0].Qty)
}
