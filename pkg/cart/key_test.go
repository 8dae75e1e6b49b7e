package cart_test

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/Ratio1/bbc_cart_go/pkg/cart"
)

func addOn(name, price string) cart.AddOn {
	return cart.AddOn{Name: name, Price: decimal.RequireFromString(price)}
}

func TestDeriveKeyMatchesStorefrontFormat(t *testing.T) {
	cases := []struct {
		name   string
		item   string
		size   string
		addons []cart.AddOn
		want   string
	}{
		{name: "sized with addon", item: "Latte", size: "Large", addons: []cart.AddOn{addOn("Extra Shot", "20")}, want: "Latte|Large|Extra Shot:20"},
		{name: "no size no addons", item: "Croissant", want: "Croissant|default|"},
		{name: "fractional price", item: "Tea", size: "Small", addons: []cart.AddOn{addOn("Honey", "12.50")}, want: "Tea|Small|Honey:12.5"},
		{name: "sorted addons", item: "Latte", size: "Large", addons: []cart.AddOn{addOn("Vanilla", "15"), addOn("Extra Shot", "20")}, want: "Latte|Large|Extra Shot:20|Vanilla:15"},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			if got := cart.DeriveKey(tc.item, tc.size, tc.addons); got != tc.want {
				t.Fatalf("DeriveKey = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestDeriveKeyIgnoresAddOnOrder(t *testing.T) {
	a := []cart.AddOn{addOn("Extra Shot", "20"), addOn("Oat Milk", "25"), addOn("Vanilla", "15")}
	b := []cart.AddOn{a[2], a[0], a[1]}
	c := []cart.AddOn{a[1], a[2], a[0]}

	want := cart.DeriveKey("Latte", "Large", a)
	for _, perm := range [][]cart.AddOn{b, c} {
		if got := cart.DeriveKey("Latte", "Large", perm); got != want {
			t.Fatalf("permutation changed key: %q vs %q", got, want)
		}
	}
}

func TestDeriveKeyDistinguishesConfigurations(t *testing.T) {
	keys := map[string]string{}
	configs := []struct {
		label  string
		name   string
		size   string
		addons []cart.AddOn
	}{
		{"plain", "Latte", "", nil},
		{"literal default size", "Latte", "default", nil},
		{"large", "Latte", "Large", nil},
		{"large with shot", "Latte", "Large", []cart.AddOn{addOn("Extra Shot", "20")}},
		{"large with pricier shot", "Latte", "Large", []cart.AddOn{addOn("Extra Shot", "25")}},
		{"pipe in name", "Latte|Large", "", nil},
		{"colon in addon", "Latte", "Large", []cart.AddOn{addOn("Extra:Shot", "20")}},
		{"addon split by colon", "Latte", "Large", []cart.AddOn{addOn("Extra", "20")}},
		{"two addons", "Latte", "Large", []cart.AddOn{addOn("A", "1"), addOn("B", "2")}},
		{"one addon with pipe", "Latte", "Large", []cart.AddOn{addOn("A:1|B", "2")}},
	}
	for _, c := range configs {
		key := cart.DeriveKey(c.name, c.size, c.addons)
		if prev, ok := keys[key]; ok {
			t.Fatalf("%q and %q share key %q", prev, c.label, key)
		}
		keys[key] = c.label
	}
}

func TestDeriveKeyPriceScaleDoesNotMatter(t *testing.T) {
	a := cart.DeriveKey("Latte", "Large", []cart.AddOn{addOn("Extra Shot", "20.00")})
	b := cart.DeriveKey("Latte", "Large", []cart.AddOn{addOn("Extra Shot", "20")})
	if a != b {
		t.Fatalf("equal prices produced different keys: %q vs %q", a, b)
	}
}
