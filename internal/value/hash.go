package value

import (
	"sort"

	"github.com/fxamacker/cbor/v2"
	"golang.org/x/crypto/blake2b"
)

// canonicalEncMode produces deterministic CBOR regardless of Go map
// iteration order, so two Items with the same fields in different
// insertion orders hash identically.
var canonicalEncMode = func() cbor.EncMode {
	m, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(err)
	}
	return m
}()

// DedupeKey returns a stable 128-bit key for it, used by the `unique`
// filter. Two items with
// identical field sets and values produce the same key regardless of
// field insertion order.
func (it *Item) DedupeKey() [16]byte {
	keys := it.Fields()
	sort.Strings(keys)
	flat := make(map[string]string, len(keys))
	for _, k := range keys {
		v, _ := it.Get(k)
		flat[k] = v.kind.String() + ":" + v.String()
	}
	encoded, err := canonicalEncMode.Marshal(flat)
	if err != nil {
		// flat is a map[string]string; Marshal only fails on cyclic or
		// unsupported types, neither of which applies here.
		panic(err)
	}
	sum := blake2b.Sum512(encoded)
	var key [16]byte
	copy(key[:], sum[:16])
	return key
}

// FieldKey returns a stable key for a single field's value, used by the
// `unique name` (dedupe-by-field) filter.
func FieldKey(p Primitive) string {
	return p.kind.String() + ":" + p.String()
}
