// Package canon provides the key canonicalization the engine treats as an
// external, pure-function collaborator (spec §6): turning a subset of a
// row's properties into a stable string identifier usable as a group key
// or a cache key. It has no dependency on the cascade package, so a caller
// can swap in a different canonicalizer without touching step code.
package canon

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
)

// Canonicalize picks fields out of values, renders them as sorted-key JSON,
// and returns the hex SHA-256 digest of that rendering. Two calls with the
// same field values (regardless of map iteration order) produce the same
// string. Missing fields are treated as nil.
func Canonicalize(values map[string]interface{}, fields []string) string {
	subset := make(map[string]interface{}, len(fields))
	for _, f := range fields {
		subset[f] = values[f]
	}

	// encoding/json already emits object keys in sorted order, so marshaling
	// a map[string]interface{} is sufficient to get a canonical rendering.
	buf, err := json.Marshal(subset)
	if err != nil {
		// Only reachable for values json.Marshal fundamentally can't encode
		// (channels, funcs); fall back to a stable key listing instead of
		// panicking on a malformed caller input.
		buf = []byte(fallbackRendering(subset, fields))
	}

	sum := sha256.Sum256(buf)
	return hex.EncodeToString(sum[:])
}

func fallbackRendering(subset map[string]interface{}, fields []string) string {
	sorted := make([]string, len(fields))
	copy(sorted, fields)
	sort.Strings(sorted)

	out := make([]byte, 0, 64)
	for _, f := range sorted {
		out = append(out, f...)
		out = append(out, '=')
		out = append(out, []byte(toString(subset[f]))...)
		out = append(out, ';')
	}
	return string(out)
}

func toString(v interface{}) string {
	if v == nil {
		return "<nil>"
	}
	if s, ok := v.(string); ok {
		return s
	}
	buf, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(buf)
}
