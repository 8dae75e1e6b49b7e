package cstore

import (
	"bytes"
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/Ratio1/bbc_cart_go/pkg/kv/memory"
)

// NewSandboxHandler serves store over the CStore HTTP surface (/get, /set,
// /get_status) so the Client can run against a local process.
func NewSandboxHandler(store *memory.Store, logger logrus.FieldLogger) http.Handler {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	h := &sandbox{store: store, log: logger}

	r := mux.NewRouter()
	r.HandleFunc("/get", h.get).Methods(http.MethodGet)
	r.HandleFunc("/set", h.set).Methods(http.MethodPost)
	r.HandleFunc("/get_status", h.status).Methods(http.MethodGet)
	return r
}

type sandbox struct {
	store *memory.Store
	log   logrus.FieldLogger
}

type envelope struct {
	Result any `json:"result"`
}

func (h *sandbox) get(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("key")
	if key == "" {
		http.Error(w, "missing key parameter", http.StatusBadRequest)
		return
	}
	value, err := h.store.Get(r.Context(), key)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	h.log.WithField("key", key).WithField("found", value != nil).Debug("sandbox get")
	if value == nil {
		h.write(w, envelope{Result: nil})
		return
	}
	h.write(w, envelope{Result: string(value)})
}

func (h *sandbox) set(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Key   string          `json:"key"`
		Value json.RawMessage `json:"value"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if payload.Key == "" {
		http.Error(w, "key is required", http.StatusBadRequest)
		return
	}

	raw := bytes.TrimSpace(payload.Value)
	var err error
	switch {
	case len(raw) == 0 || bytes.Equal(raw, []byte("null")):
		err = h.store.Delete(r.Context(), payload.Key)
	default:
		var s string
		if json.Unmarshal(raw, &s) == nil {
			raw = []byte(s)
		}
		err = h.store.Set(r.Context(), payload.Key, raw)
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	h.log.WithField("key", payload.Key).Debug("sandbox set")
	h.write(w, envelope{Result: true})
}

func (h *sandbox) status(w http.ResponseWriter, r *http.Request) {
	keys, err := h.store.Keys(r.Context(), "")
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	h.write(w, envelope{Result: map[string]any{"keys": keys}})
}

func (h *sandbox) write(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(payload); err != nil {
		h.log.WithError(err).Error("write sandbox response")
	}
}
