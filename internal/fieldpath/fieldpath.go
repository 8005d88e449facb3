// Package fieldpath resolves delimiter-separated paths against decoded JSON
// values (the map[string]any / []any / scalar shapes produced by
// encoding/json).
//
// Lookups never fail hard: a path that runs off the data returns a "missing"
// result instead of an error, so a single malformed record cannot poison a
// stream. Numeric segments index into arrays; an out-of-range index is
// missing, not a panic.
package fieldpath

import (
	"strconv"
	"strings"
)

// Split breaks path into segments using delim. Empty delim defaults to ".".
func Split(path, delim string) []string {
	if delim == "" {
		delim = "."
	}
	return strings.Split(path, delim)
}

// Extract resolves path against v. The second return value reports whether a
// value was found. An explicit JSON null at any step counts as missing: there
// is nothing to descend into and nothing useful to bind.
func Extract(v any, path, delim string) (any, bool) {
	return Lookup(v, Split(path, delim))
}

// Lookup walks v one segment at a time.
//
// Rules per step:
//   - map[string]any: descend by key; absent key is missing.
//   - []any: the segment must parse as a non-negative integer index;
//     anything else, or an index out of range, is missing.
//   - nil or any scalar: missing (there is nothing left to descend into).
func Lookup(v any, segments []string) (any, bool) {
	cur := v
	for _, seg := range segments {
		switch t := cur.(type) {
		case map[string]any:
			next, ok := t[seg]
			if !ok {
				return nil, false
			}
			cur = next

		case []any:
			i, err := strconv.Atoi(seg)
			if err != nil || i < 0 || i >= len(t) {
				return nil, false
			}
			cur = t[i]

		default:
			// Scalars and nulls have no children.
			return nil, false
		}

		if cur == nil {
			return nil, false
		}
	}
	return cur, true
}
