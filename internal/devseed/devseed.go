// Package devseed loads key-value seed files used to pre-populate the
// in-memory backend in mock mode and in the sandbox.
//
// A seed file is a YAML (or JSON) list of entries:
//
//	- key: bbc_cart
//	  value:
//	    - {name: Latte, size: Large, price: 120, qty: 1, addons: []}
//	- key: selectedPayment
//	  text: GCash
//	  ttl_seconds: 3600
//
// "value" is re-encoded as JSON; "text" is stored verbatim.
package devseed

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Entry is a single seeded key.
type Entry struct {
	Key        string
	Value      []byte
	TTLSeconds *int
}

type rawEntry struct {
	Key        string    `yaml:"key"`
	Value      yaml.Node `yaml:"value"`
	Text       *string   `yaml:"text"`
	TTLSeconds *int      `yaml:"ttl_seconds"`
}

// Load reads and parses the seed file at path.
func Load(path string) ([]Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("devseed: read %s: %w", path, err)
	}
	entries, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("devseed: %s: %w", path, err)
	}
	return entries, nil
}

// Parse decodes seed entries from YAML or JSON bytes.
func Parse(data []byte) ([]Entry, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, nil
	}

	var raw []rawEntry
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse seed: %w", err)
	}

	entries := make([]Entry, 0, len(raw))
	for i, r := range raw {
		key := strings.TrimSpace(r.Key)
		if key == "" {
			return nil, fmt.Errorf("entry %d: missing key", i)
		}
		value, err := entryValue(r)
		if err != nil {
			return nil, fmt.Errorf("entry %q: %w", key, err)
		}
		entries = append(entries, Entry{Key: key, Value: value, TTLSeconds: r.TTLSeconds})
	}
	return entries, nil
}

func entryValue(r rawEntry) ([]byte, error) {
	if r.Text != nil {
		if !r.Value.IsZero() {
			return nil, fmt.Errorf("value and text are mutually exclusive")
		}
		return []byte(*r.Text), nil
	}
	if r.Value.IsZero() {
		return []byte("null"), nil
	}

	var decoded any
	if err := r.Value.Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode value: %w", err)
	}
	buf := &bytes.Buffer{}
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(decoded); err != nil {
		return nil, fmt.Errorf("encode value: %w", err)
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
