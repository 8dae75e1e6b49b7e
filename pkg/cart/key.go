package cart

import (
	"sort"
	"strings"
)

const (
	keySeparator   = "|"
	priceSeparator = ":"
	// noSizeToken stands in for the size segment of products without sizes.
	noSizeToken = "default"
)

var keyEscaper = strings.NewReplacer(`\`, `\\`, keySeparator, `\`+keySeparator, priceSeparator, `\`+priceSeparator)

// DeriveKey returns the canonical identity of a configuration:
//
//	name|size|addon1:price1|addon2:price2
//
// The add-on segments are sorted so selection order does not matter, and
// prices print in their shortest form ("20", "20.5"). For plain names this
// matches the keys the storefront pages have always written. Separator
// characters inside names are backslash-escaped, and a literal size of
// "default" is written as `\default`, so distinct configurations never
// share a key.
func DeriveKey(name, size string, addons []AddOn) string {
	sizeToken := noSizeToken
	if size != "" {
		sizeToken = keyEscaper.Replace(size)
		if sizeToken == noSizeToken {
			sizeToken = `\` + noSizeToken
		}
	}

	encoded := make([]string, len(addons))
	for i, a := range addons {
		encoded[i] = keyEscaper.Replace(a.Name) + priceSeparator + a.Price.String()
	}
	sort.Strings(encoded)

	var b strings.Builder
	b.WriteString(keyEscaper.Replace(name))
	b.WriteString(keySeparator)
	b.WriteString(sizeToken)
	b.WriteString(keySeparator)
	b.WriteString(strings.Join(encoded, keySeparator))
	return b.String()
}
