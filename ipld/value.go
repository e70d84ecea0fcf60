// Package ipld implements the recursive IPLD value model: a tagged union
// of primitive, container, and link values, plus pre-order iteration and
// path resolution over it.
package ipld

import (
	"fmt"
	"math/big"
	"sort"

	"github.com/ipfs/go-cid"
)

// Kind discriminates the cases of a Value.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindInteger
	KindFloat
	KindString
	KindBytes
	KindList
	KindMap
	KindLink
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindInteger:
		return "integer"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindBytes:
		return "bytes"
	case KindList:
		return "list"
	case KindMap:
		return "map"
	case KindLink:
		return "link"
	default:
		return "unknown"
	}
}

// Value is a single node of the IPLD data model. The zero Value is Null.
type Value struct {
	kind Kind

	b    bool
	i    *big.Int
	f    float64
	s    string
	by   []byte
	list []Value
	// keys/vals are kept as parallel slices rather than a map so that
	// insertion order is preserved for callers that build a Value
	// programmatically; encoders are responsible for canonical (sorted)
	// key order on the wire.
	keys []string
	vals []Value
	link cid.Cid
}

// Null is the null value.
var Null = Value{kind: KindNull}

// Bool wraps a boolean.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Integer wraps an arbitrary-precision integer.
func Integer(i *big.Int) Value { return Value{kind: KindInteger, i: i} }

// Int wraps a machine int64 as an IPLD integer.
func Int(i int64) Value { return Value{kind: KindInteger, i: big.NewInt(i)} }

// Float wraps a float64.
func Float(f float64) Value { return Value{kind: KindFloat, f: f} }

// String wraps a string.
func String(s string) Value { return Value{kind: KindString, s: s} }

// Bytes wraps a byte slice.
func Bytes(b []byte) Value { return Value{kind: KindBytes, by: b} }

// List wraps a slice of Values.
func List(vs ...Value) Value { return Value{kind: KindList, list: vs} }

// Link wraps a CID reference to another block.
func Link(c cid.Cid) Value { return Value{kind: KindLink, link: c} }

// Map builds a map value from pairs, storing its keys in sorted order (a Go
// map has no order of its own). Use NewMap to keep a chosen key order;
// either way codecs sort by key at encode time (§6).
func Map(pairs map[string]Value) Value {
	keys := make([]string, 0, len(pairs))
	for k := range pairs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	vals := make([]Value, len(keys))
	for i, k := range keys {
		vals[i] = pairs[k]
	}
	return Value{kind: KindMap, keys: keys, vals: vals}
}

// NewMap builds a map value preserving the given key order verbatim.
func NewMap(keys []string, vals []Value) Value {
	if len(keys) != len(vals) {
		panic("ipld: NewMap: keys and vals must be the same length")
	}
	return Value{kind: KindMap, keys: append([]string(nil), keys...), vals: append([]Value(nil), vals...)}
}

// Kind returns the discriminant of v.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v is Null.
func (v Value) IsNull() bool { return v.kind == KindNull }

// AsBool returns the boolean payload; ok is false if v is not a Bool.
func (v Value) AsBool() (_ bool, ok bool) {
	if v.kind != KindBool {
		return false, false
	}
	return v.b, true
}

// AsInteger returns the integer payload; ok is false if v is not an Integer.
func (v Value) AsInteger() (_ *big.Int, ok bool) {
	if v.kind != KindInteger {
		return nil, false
	}
	return v.i, true
}

// AsFloat returns the float payload; ok is false if v is not a Float.
func (v Value) AsFloat() (_ float64, ok bool) {
	if v.kind != KindFloat {
		return 0, false
	}
	return v.f, true
}

// AsString returns the string payload; ok is false if v is not a String.
func (v Value) AsString() (_ string, ok bool) {
	if v.kind != KindString {
		return "", false
	}
	return v.s, true
}

// AsBytes returns the bytes payload; ok is false if v is not Bytes.
func (v Value) AsBytes() (_ []byte, ok bool) {
	if v.kind != KindBytes {
		return nil, false
	}
	return v.by, true
}

// AsList returns the list payload; ok is false if v is not a List.
func (v Value) AsList() (_ []Value, ok bool) {
	if v.kind != KindList {
		return nil, false
	}
	return v.list, true
}

// AsLink returns the CID payload; ok is false if v is not a Link.
func (v Value) AsLink() (_ cid.Cid, ok bool) {
	if v.kind != KindLink {
		return cid.Undef, false
	}
	return v.link, true
}

// MapKeys returns the keys of a Map value in their stored order.
func (v Value) MapKeys() []string {
	if v.kind != KindMap {
		return nil
	}
	return v.keys
}

// MapGet looks up key in a Map value.
func (v Value) MapGet(key string) (Value, bool) {
	if v.kind != KindMap {
		return Value{}, false
	}
	for i, k := range v.keys {
		if k == key {
			return v.vals[i], true
		}
	}
	return Value{}, false
}

// MapLen returns the number of entries in a Map value, or 0 otherwise.
func (v Value) MapLen() int {
	if v.kind != KindMap {
		return 0
	}
	return len(v.keys)
}

// ListLen returns the number of elements in a List value, or 0 otherwise.
func (v Value) ListLen() int {
	if v.kind != KindList {
		return 0
	}
	return len(v.list)
}

// ListGet returns element i of a List value.
func (v Value) ListGet(i int) (Value, bool) {
	if v.kind != KindList || i < 0 || i >= len(v.list) {
		return Value{}, false
	}
	return v.list[i], true
}

// Iter yields v and then every value it contains, in pre-order. Iteration
// order within a Map follows the Map's stored key order.
func (v Value) Iter(yield func(Value) error) error {
	if err := yield(v); err != nil {
		return err
	}
	switch v.kind {
	case KindList:
		for _, e := range v.list {
			if err := e.Iter(yield); err != nil {
				return err
			}
		}
	case KindMap:
		for _, e := range v.vals {
			if err := e.Iter(yield); err != nil {
				return err
			}
		}
	}
	return nil
}

// Equal reports deep, kind-aware equality between two Values. Map equality
// is order-independent, per §3 ("iteration order ... is irrelevant for
// semantic equality").
func Equal(a, b Value) bool {
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case KindNull:
		return true
	case KindBool:
		return a.b == b.b
	case KindInteger:
		if a.i == nil || b.i == nil {
			return a.i == b.i
		}
		return a.i.Cmp(b.i) == 0
	case KindFloat:
		return a.f == b.f
	case KindString:
		return a.s == b.s
	case KindBytes:
		return bytesEqual(a.by, b.by)
	case KindLink:
		return a.link.Equals(b.link)
	case KindList:
		if len(a.list) != len(b.list) {
			return false
		}
		for i := range a.list {
			if !Equal(a.list[i], b.list[i]) {
				return false
			}
		}
		return true
	case KindMap:
		if len(a.keys) != len(b.keys) {
			return false
		}
		for i, k := range a.keys {
			bv, ok := b.MapGet(k)
			if !ok || !Equal(a.vals[i], bv) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

func bytesEqual(a, b []byte) bool {
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

// GoString renders a Value for debugging; it is not a wire format.
func (v Value) GoString() string {
	switch v.kind {
	case KindNull:
		return "null"
	case KindBool:
		return fmt.Sprintf("%v", v.b)
	case KindInteger:
		return v.i.String()
	case KindFloat:
		return fmt.Sprintf("%g", v.f)
	case KindString:
		return fmt.Sprintf("%q", v.s)
	case KindBytes:
		return fmt.Sprintf("bytes(%d)", len(v.by))
	case KindLink:
		return "link(" + v.link.String() + ")"
	case KindList:
		return fmt.Sprintf("list(%d)", len(v.list))
	case KindMap:
		return fmt.Sprintf("map(%d)", len(v.keys))
	default:
		return "?"
	}
}
