package ipld

import (
	"math/big"
	"testing"

	"github.com/ipfs/go-cid"
	mh "github.com/multiformats/go-multihash"
)

func testCid(t *testing.T, s string) cid.Cid {
	t.Helper()
	digest, err := mh.Sum([]byte(s), mh.SHA2_256, -1)
	if err != nil {
		t.Fatal(err)
	}
	return cid.NewCidV1(cid.DagCBOR, digest)
}

func TestMapPreservesInsertionOrder(t *testing.T) {
	v := NewMap([]string{"b", "a"}, []Value{Int(1), Int(2)})
	if got := v.MapKeys(); got[0] != "b" || got[1] != "a" {
		t.Fatalf("expected insertion order preserved, got %v", got)
	}
}

func TestEqualMapIsOrderIndependent(t *testing.T) {
	a := NewMap([]string{"x", "y"}, []Value{Int(1), Int(2)})
	b := NewMap([]string{"y", "x"}, []Value{Int(2), Int(1)})
	if !Equal(a, b) {
		t.Fatal("expected maps with same entries in different order to be equal")
	}
}

func TestEqualDistinguishesKind(t *testing.T) {
	if Equal(Int(0), Bool(false)) {
		t.Fatal("integer 0 and bool false must not be equal")
	}
}

func TestIterPreOrder(t *testing.T) {
	inner := List(Int(1), Int(2))
	v := NewMap([]string{"list"}, []Value{inner})
	var kinds []Kind
	v.Iter(func(e Value) error {
		kinds = append(kinds, e.Kind())
		return nil
	})
	want := []Kind{KindMap, KindList, KindInteger, KindInteger}
	if len(kinds) != len(want) {
		t.Fatalf("expected %d nodes, got %d (%v)", len(want), len(kinds), kinds)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Fatalf("node %d: expected %s, got %s", i, want[i], kinds[i])
		}
	}
}

func TestResolveCrossesSegmentsThenStopsAtLink(t *testing.T) {
	target := testCid(t, "target")
	v := NewMap([]string{"a"}, []Value{
		List(Link(target), Int(7)),
	})
	res, err := Resolve(v, ParsePath("a/0"))
	if err != nil {
		t.Fatal(err)
	}
	if res.Link == nil {
		t.Fatal("expected resolution to stop at the link")
	}
	c, ok := res.Link.AsLink()
	if !ok || !c.Equals(target) {
		t.Fatalf("expected link to %s, got %v", target, c)
	}
	if len(res.Rest) != 0 {
		t.Fatalf("expected no remaining path, got %v", res.Rest)
	}

	res2, err := Resolve(v, ParsePath("a/1"))
	if err != nil {
		t.Fatal(err)
	}
	if res2.Link != nil {
		t.Fatal("expected a plain value, not a link")
	}
	n, ok := res2.Value.AsInteger()
	if !ok || n.Cmp(big.NewInt(7)) != 0 {
		t.Fatalf("expected integer 7, got %v", res2.Value)
	}
}

func TestResolveErrorsDistinguishMapAndList(t *testing.T) {
	v := NewMap([]string{"a"}, []Value{Int(1)})
	if _, err := Resolve(v, ParsePath("0")); err != ErrNotList {
		t.Fatalf("expected ErrNotList indexing into a map, got %v", err)
	}

	l := List(Int(1))
	if _, err := Resolve(l, ParsePath("a")); err != ErrNotMap {
		t.Fatalf("expected ErrNotMap keying into a list, got %v", err)
	}

	if _, err := Resolve(v, ParsePath("missing")); err != ErrKeyNotFound {
		t.Fatalf("expected ErrKeyNotFound, got %v", err)
	}
	if _, err := Resolve(l, ParsePath("5")); err != ErrIndexNotFound {
		t.Fatalf("expected ErrIndexNotFound, got %v", err)
	}
}
