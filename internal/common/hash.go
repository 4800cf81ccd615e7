package common

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/cespare/xxhash/v2"
)

// StructureHash returns a stable content hash of a tool's callable
// contract: its original name and its input schema only. It changes
// exactly when the tool's call shape changes, independent of cosmetic
// metadata like description.
func StructureHash(originalName string, inputSchema any) string {
	payload := canonicalJSON(map[string]any{
		"name":   originalName,
		"schema": inputSchema,
	})
	return hashHex(payload)
}

// FullHash returns a stable content hash of the entire tool record,
// including description. It is used as the tool's refId.
//
// Whether description should be part of this hash is debatable (it makes
// the refId sensitive to purely cosmetic downstream changes); the source
// system this spec was distilled from includes it, and that choice is
// preserved here.
func FullHash(originalName, description string, inputSchema any) string {
	payload := canonicalJSON(map[string]any{
		"name":        originalName,
		"description": description,
		"schema":      inputSchema,
	})
	return hashHex(payload)
}

func hashHex(data []byte) string {
	h := xxhash.New()
	_, _ = h.Write(data)
	sum := h.Sum(nil)
	const hexDigits = "0123456789abcdef"
	out := make([]byte, len(sum)*2)
	for i, b := range sum {
		out[i*2] = hexDigits[b>>4]
		out[i*2+1] = hexDigits[b&0x0f]
	}
	return string(out)
}

// canonicalJSON marshals v after recursively sorting map keys, so that
// structurally identical values hash identically regardless of the
// field order a downstream happened to send them in. encoding/json
// already sorts map[string]any keys on marshal; this walk additionally
// normalizes arbitrary nested maps decoded from downstream JSON
// (map[string]interface{}) the same way, defensively, in case a future
// caller passes an already-typed struct with unordered tags.
func canonicalJSON(v any) []byte {
	normalized := normalize(v)
	data, err := json.Marshal(normalized)
	if err != nil {
		// Marshal failure on an already-decoded JSON value should not
		// happen; fall back to hashing the Go-syntax representation so
		// StructureHash/FullHash never panic.
		return []byte(fmt.Sprintf("%#v", normalized))
	}
	return data
}

func normalize(v any) any {
	switch val := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		out := make(map[string]any, len(val))
		for _, k := range keys {
			out[k] = normalize(val[k])
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = normalize(item)
		}
		return out
	default:
		return val
	}
}
