// Package cartapi exposes the cart and checkout operations as a JSON HTTP
// API for the cart panel and product pages.
//
//	GET    /api/v1/cart
//	POST   /api/v1/cart/items
//	POST   /api/v1/cart/quantity
//	DELETE /api/v1/cart
//	PUT    /api/v1/checkout/payment
//	GET    /api/v1/checkout/review
//	POST   /api/v1/checkout/confirm
package cartapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/Ratio1/bbc_cart_go/pkg/cart"
	"github.com/Ratio1/bbc_cart_go/pkg/checkout"
)

// Handler serves one cart. Requests are serialised because the cart Store
// is single-writer.
type Handler struct {
	mu    sync.Mutex
	store *cart.Store
	flow  *checkout.Flow
	log   logrus.FieldLogger
}

// Router returns the API routes wrapped in request logging.
func Router(store *cart.Store, flow *checkout.Flow, logger logrus.FieldLogger) http.Handler {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	h := &Handler{store: store, flow: flow, log: logger}

	r := mux.NewRouter()
	s := r.PathPrefix("/api/v1").Subrouter()

	s.HandleFunc("/cart", h.getCart).Methods(http.MethodGet)
	s.HandleFunc("/cart", h.clearCart).Methods(http.MethodDelete)
	s.HandleFunc("/cart/items", h.addItem).Methods(http.MethodPost)
	s.HandleFunc("/cart/quantity", h.changeQuantity).Methods(http.MethodPost)
	s.HandleFunc("/checkout/payment", h.selectPayment).Methods(http.MethodPut)
	s.HandleFunc("/checkout/review", h.review).Methods(http.MethodGet)
	s.HandleFunc("/checkout/confirm", h.confirm).Methods(http.MethodPost)
	return logMiddleware(logger, r)
}

func (h *Handler) getCart(w http.ResponseWriter, _ *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.writeCart(w, http.StatusOK)
}

func (h *Handler) addItem(w http.ResponseWriter, r *http.Request) {
	var req addItemRequest
	if !h.decode(w, r, &req) {
		return
	}
	sel, err := req.selection()
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	line, err := h.store.AddItem(r.Context(), sel)
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err)
		return
	}
	h.log.WithFields(logrus.Fields{"key": line.Key, "qty": line.Qty}).Info("added to cart")
	h.writeCart(w, http.StatusCreated)
}

func (h *Handler) changeQuantity(w http.ResponseWriter, r *http.Request) {
	var req quantityRequest
	if !h.decode(w, r, &req) {
		return
	}
	delta, err := req.delta()
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.store.ChangeQuantity(r.Context(), req.Key, delta); err != nil {
		h.writeError(w, http.StatusInternalServerError, err)
		return
	}
	h.writeCart(w, http.StatusOK)
}

func (h *Handler) clearCart(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.store.Clear(r.Context()); err != nil {
		h.writeError(w, http.StatusInternalServerError, err)
		return
	}
	h.writeCart(w, http.StatusOK)
}

func (h *Handler) selectPayment(w http.ResponseWriter, r *http.Request) {
	var req paymentRequest
	if !h.decode(w, r, &req) {
		return
	}
	method, err := checkout.ParsePaymentMethod(req.Method)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if err := h.flow.SelectPayment(r.Context(), method); err != nil {
		h.writeError(w, http.StatusInternalServerError, err)
		return
	}
	h.writeJSON(w, http.StatusOK, paymentJSON{Method: method.String(), Label: method.Label()})
}

func (h *Handler) review(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()
	review, err := h.flow.Review(r.Context())
	if err != nil {
		h.writeError(w, http.StatusInternalServerError, err)
		return
	}
	h.writeJSON(w, http.StatusOK, toReview(review))
}

func (h *Handler) confirm(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()
	receipt, err := h.flow.Confirm(r.Context())
	switch {
	case errors.Is(err, checkout.ErrEmptyOrder):
		h.writeError(w, http.StatusConflict, err)
		return
	case err != nil:
		// A failed Confirm leaves the persisted cart in place, so the
		// in-memory copy is still accurate.
		h.writeError(w, http.StatusInternalServerError, err)
		return
	}
	// The persisted cart is gone; bring the in-memory copy in line.
	if err := h.store.Load(r.Context()); err != nil {
		h.log.WithError(err).Warn("reload cart after confirm")
	}
	h.writeJSON(w, http.StatusOK, receiptJSON{
		OrderID:    receipt.OrderID,
		PlacedAt:   receipt.PlacedAt,
		reviewJSON: toReview(&receipt.Review),
	})
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, into any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(into); err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return false
	}
	return true
}

func (h *Handler) writeCart(w http.ResponseWriter, status int) {
	h.writeJSON(w, status, toCart(h.store.Items(), h.store.Totals()))
}

func (h *Handler) writeError(w http.ResponseWriter, status int, err error) {
	if status >= http.StatusInternalServerError {
		h.log.WithError(err).Error("request failed")
	}
	h.writeJSON(w, status, errorJSON{Error: err.Error()})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(payload); err != nil {
		h.log.WithError(err).Error("write response")
	}
}

func logMiddleware(logger logrus.FieldLogger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger.WithFields(logrus.Fields{
			"method":     r.Method,
			"url":        r.URL.String(),
			"remoteAddr": r.RemoteAddr,
			"userAgent":  r.UserAgent(),
		}).Info("got a new request")
		next.ServeHTTP(w, r)
	})
}
