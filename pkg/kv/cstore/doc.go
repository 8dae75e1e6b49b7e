// Package cstore provides a kv.Backend over the Ratio1 Chainstore (CStore)
// REST API. Values are written through /set as strings and read back through
// /get; the upstream plugin has no delete endpoint, so Delete stores a JSON
// null which /get reports as absent.
package cstore
