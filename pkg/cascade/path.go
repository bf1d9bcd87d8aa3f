package cascade

import "strings"

// SegPath is a segment path: an ordered sequence of array-property names
// identifying one nesting level in the output tree. An empty SegPath
// denotes the root level.
type SegPath []string

// KeyPath is an ordered sequence of parent keys identifying one specific
// row at the parent of a given segment path. For root-level events the
// key path is empty.
type KeyPath []string

// Key identifies a row within its parent array. Unique among siblings,
// stable across modifications.
type Key string

// Props is an item's current content as seen at a particular step's output.
type Props map[string]interface{}

// Copy returns a shallow copy of p.
func (p Props) Copy() Props {
	out := make(Props, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Without returns a shallow copy of p with the named keys removed.
func (p Props) Without(names ...string) Props {
	drop := make(map[string]bool, len(names))
	for _, n := range names {
		drop[n] = true
	}
	out := make(Props, len(p))
	for k, v := range p {
		if !drop[k] {
			out[k] = v
		}
	}
	return out
}

// With returns a shallow copy of p with the given key set.
func (p Props) With(name string, value interface{}) Props {
	out := p.Copy()
	out[name] = value
	return out
}

// Append returns a new SegPath with name appended.
func (s SegPath) Append(name string) SegPath {
	out := make(SegPath, len(s), len(s)+1)
	copy(out, s)
	return append(out, name)
}

// Append returns a new KeyPath with k appended.
func (k KeyPath) Append(key Key) KeyPath {
	out := make(KeyPath, len(k), len(k)+1)
	copy(out, k)
	return append(out, string(key))
}

// String renders a SegPath as a dot-separated string, for logging.
func (s SegPath) String() string {
	return strings.Join([]string(s), ".")
}

// String renders a KeyPath as a dot-separated string, for logging.
func (k KeyPath) String() string {
	return strings.Join([]string(k), ".")
}

// PathsMatch reports whether two segment paths are identical sequences.
func PathsMatch(a, b SegPath) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// PathStartsWith reports whether prefix is a (possibly equal) prefix of p.
func PathStartsWith(p, prefix SegPath) bool {
	if len(prefix) > len(p) {
		return false
	}
	for i := range prefix {
		if p[i] != prefix[i] {
			return false
		}
	}
	return true
}

// PathUnder reports whether p is strictly nested under prefix (longer, and
// prefix-matching).
func PathUnder(p, prefix SegPath) bool {
	return len(p) > len(prefix) && PathStartsWith(p, prefix)
}

// PathHash computes a short, stable identifier for a (segPath, keyPath)
// pair, suitable for use as a map key in any path-keyed state table in the
// engine (§4.1). It is a pure function of its inputs.
func PathHash(seg SegPath, kp KeyPath) string {
	var b strings.Builder
	for _, s := range seg {
		b.WriteByte(0x1f)
		b.WriteString(s)
	}
	b.WriteByte(0x1e)
	for _, k := range kp {
		b.WriteByte(0x1f)
		b.WriteString(k)
	}
	return b.String()
}

// RowID identifies a single row: the key path to its parent plus its own
// key.
type RowID struct {
	KeyPath KeyPath
	Key     Key
}

// Hash returns a stable map-key identifier for the row.
func (r RowID) Hash() string {
	return PathHash(nil, r.KeyPath.Append(r.Key))
}

// SplitChildKeyPath splits a child's key path into the grandparent key path
// and the parent key, per §4.7 ("the grandparent key-path and the parent
// key are derived by splitting the upstream child key-path").
func SplitChildKeyPath(kp KeyPath) (KeyPath, Key) {
	if len(kp) == 0 {
		return KeyPath{}, ""
	}
	return kp[:len(kp)-1], Key(kp[len(kp)-1])
}

// ScopeRowID identifies the row at a scope segment path that a deeper event
// (one whose segment path is strictly under scope) is nested beneath. It
// is used by FilterStep (§4.6) to locate the gating parent row.
func ScopeRowID(scope SegPath, kp KeyPath) RowID {
	depth := len(scope)
	if depth == 0 {
		if len(kp) == 0 {
			return RowID{}
		}
		return RowID{KeyPath: KeyPath{}, Key: Key(kp[0])}
	}
	if len(kp) <= depth {
		return RowID{KeyPath: kp, Key: ""}
	}
	return RowID{KeyPath: kp[:depth], Key: Key(kp[depth])}
}
