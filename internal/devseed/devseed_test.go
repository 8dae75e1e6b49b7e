package devseed

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestParseYAML(t *testing.T) {
	data := []byte(`
- key: bbc_cart
  value:
    - name: Latte
      size: Large
      price: 120
      qty: 1
      addons:
        - {name: Extra Shot, price: 20}
- key: selectedPayment
  text: GCash
  ttl_seconds: 60
- key: empty
`)
	entries, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	ttl := 60
	want := []Entry{
		{Key: "bbc_cart", Value: []byte(`[{"addons":[{"name":"Extra Shot","price":20}],"name":"Latte","price":120,"qty":1,"size":"Large"}]`)},
		{Key: "selectedPayment", Value: []byte("GCash"), TTLSeconds: &ttl},
		{Key: "empty", Value: []byte("null")},
	}
	if diff := cmp.Diff(want, entries); diff != "" {
		t.Fatalf("entries mismatch (-want +got):\n%s", diff)
	}
}

func TestParseJSON(t *testing.T) {
	entries, err := Parse([]byte(`[{"key":"k","value":{"a":1}}]`))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(entries) != 1 || string(entries[0].Value) != `{"a":1}` {
		t.Fatalf("unexpected entries: %#v", entries)
	}
}

func TestParseRejectsBadEntries(t *testing.T) {
	cases := map[string]string{
		"missing key":    `- value: 1`,
		"value and text": "- key: k\n  value: 1\n  text: x",
		"not a list":     `key: k`,
	}
	for name, body := range cases {
		body := body
		t.Run(name, func(t *testing.T) {
			if _, err := Parse([]byte(body)); err == nil {
				t.Fatalf("expected error for %q", body)
			}
		})
	}
}

func TestLoadEmptyAndMissing(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "seed.yaml")
	if err := os.WriteFile(path, []byte("  \n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	entries, err := Load(path)
	if err != nil || entries != nil {
		t.Fatalf("expected no entries, got %#v err=%v", entries, err)
	}

	if _, err := Load(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
