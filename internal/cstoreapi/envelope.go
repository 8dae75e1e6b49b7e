// Package cstoreapi unwraps the response envelopes returned by the Ratio1
// CStore REST endpoints.
package cstoreapi

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// maxUnquote bounds how many layers of string quoting are peeled off a
// value. Upstream re-encodes values on every hop between plugins.
const maxUnquote = 4

// ExtractValue returns the stored value carried by a /get style response.
//
// The body is either an envelope {"result": ...} or the bare value. A null or
// empty payload yields nil. A JSON string result is returned as its
// unquoted contents, so callers receive exactly the bytes originally written
// through /set.
func ExtractValue(body []byte) ([]byte, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}

	payload := trimmed
	if trimmed[0] == '{' {
		var envelope map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &envelope); err == nil {
			if result, ok := envelope["result"]; ok {
				payload = bytes.TrimSpace(result)
			}
		}
	}
	if len(payload) == 0 || bytes.Equal(payload, []byte("null")) {
		return nil, nil
	}

	var asString string
	if err := json.Unmarshal(payload, &asString); err != nil {
		return append([]byte(nil), payload...), nil
	}
	for i := 0; i < maxUnquote; i++ {
		if len(asString) < 2 || asString[0] != '"' {
			break
		}
		unquoted, err := strconv.Unquote(asString)
		if err != nil {
			break
		}
		asString = unquoted
	}
	return []byte(asString), nil
}

// DecodeResult decodes the JSON document carried by an envelope into out.
// An empty or null payload decodes as JSON null.
func DecodeResult(body []byte, out any) error {
	payload := bytes.TrimSpace(body)
	if len(payload) > 0 && payload[0] == '{' {
		var envelope map[string]json.RawMessage
		if err := json.Unmarshal(payload, &envelope); err != nil {
			return err
		}
		if result, ok := envelope["result"]; ok {
			payload = result
		}
	}
	if len(payload) == 0 {
		payload = []byte("null")
	}
	return json.Unmarshal(payload, out)
}
