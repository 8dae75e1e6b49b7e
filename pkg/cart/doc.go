// Package cart holds the shopping-cart state of the storefront: an ordered
// list of line items, each identified by a key derived from the product
// name, size and chosen add-ons.
//
// A Store is loaded from a Storage (usually a KVStorage over one of the kv
// backends) and writes the whole list back after every mutation. Adding an
// item whose configuration is already in the cart merges quantities instead
// of creating a second line:
//
//	store, _ := cart.Open(ctx, cart.NewKVStorage(backend, cart.DefaultStorageKey))
//	store.AddItem(ctx, cart.Selection{
//		Name:      "Latte",
//		Size:      "Large",
//		UnitPrice: decimal.NewFromInt(120),
//		Qty:       1,
//		AddOns:    []cart.AddOn{{Name: "Extra Shot", Price: decimal.NewFromInt(20)}},
//	})
//	fmt.Println(cart.FormatPeso(store.Totals().Total)) // ₱140.00
//
// A Store is not safe for concurrent use.
package cart
