package codec

import (
	"math/big"
	"testing"

	cid "github.com/ipfs/go-cid"
	mh "github.com/multiformats/go-multihash"

	"github.com/ipld/go-ipld-store/ipld"
)

func sampleLink(t *testing.T) cid.Cid {
	t.Helper()
	digest, err := mh.Sum([]byte("linked"), mh.SHA2_256, -1)
	if err != nil {
		t.Fatal(err)
	}
	return cid.NewCidV1(DagCBOR, digest)
}

func roundTrip(t *testing.T, c Codec, v ipld.Value) ipld.Value {
	t.Helper()
	b, err := c.EncodeValue(v)
	if err != nil {
		t.Fatalf("encode: %s", err)
	}
	out, err := c.DecodeValue(b)
	if err != nil {
		t.Fatalf("decode: %s", err)
	}
	return out
}

func TestDagCBORRoundTrip(t *testing.T) {
	c, ok := Lookup(DagCBOR)
	if !ok {
		t.Fatal("dag-cbor not registered")
	}
	link := sampleLink(t)
	v := ipld.NewMap(
		[]string{"b", "a", "z"},
		[]ipld.Value{ipld.Int(42), ipld.String("hi"), ipld.Link(link)},
	)
	out := roundTrip(t, c, v)
	if !ipld.Equal(v, out) {
		t.Fatalf("round trip mismatch: in=%#v out=%#v", v, out)
	}
}

func TestDagCBORCanonicalKeyOrder(t *testing.T) {
	c, _ := Lookup(DagCBOR)
	a := ipld.NewMap([]string{"b", "a"}, []ipld.Value{ipld.Int(1), ipld.Int(2)})
	b := ipld.NewMap([]string{"a", "b"}, []ipld.Value{ipld.Int(2), ipld.Int(1)})
	encA, err := c.EncodeValue(a)
	if err != nil {
		t.Fatal(err)
	}
	encB, err := c.EncodeValue(b)
	if err != nil {
		t.Fatal(err)
	}
	if string(encA) != string(encB) {
		t.Fatal("expected canonical (sorted-key) encoding regardless of insertion order")
	}
}

func TestDagCBORBigIntRoundTrip(t *testing.T) {
	c, _ := Lookup(DagCBOR)
	huge := new(big.Int)
	huge.SetString("123456789012345678901234567890", 10)
	v := ipld.Integer(huge)
	out := roundTrip(t, c, v)
	n, ok := out.AsInteger()
	if !ok || n.Cmp(huge) != 0 {
		t.Fatalf("expected %s, got %v", huge, out)
	}
}

func TestDagJSONRoundTrip(t *testing.T) {
	c, ok := Lookup(DagJSON)
	if !ok {
		t.Fatal("dag-json not registered")
	}
	link := sampleLink(t)
	v := ipld.NewMap(
		[]string{"link", "bytes", "list"},
		[]ipld.Value{ipld.Link(link), ipld.Bytes([]byte{1, 2, 3}), ipld.List(ipld.Int(1), ipld.Int(2))},
	)
	out := roundTrip(t, c, v)
	if !ipld.Equal(v, out) {
		t.Fatalf("round trip mismatch: in=%#v out=%#v", v, out)
	}
}

func TestRawCodecRoundTrip(t *testing.T) {
	c, ok := Lookup(Raw)
	if !ok {
		t.Fatal("raw not registered")
	}
	v := ipld.Bytes([]byte("some bytes"))
	out := roundTrip(t, c, v)
	if !ipld.Equal(v, out) {
		t.Fatalf("round trip mismatch: in=%#v out=%#v", v, out)
	}
}

func TestLookupUnregisteredCodec(t *testing.T) {
	if _, ok := Lookup(0x9999); ok {
		t.Fatal("expected unregistered codec id to miss")
	}
}

func TestDagCBORDecodeRejectsDuplicateKey(t *testing.T) {
	c, _ := Lookup(DagCBOR)
	// map(2){"a":1,"a":2}, hand-encoded since the round-trip path never
	// produces a duplicate key itself.
	dup := []byte{0xA2, 0x61, 'a', 0x01, 0x61, 'a', 0x02}
	if _, err := c.DecodeValue(dup); err == nil {
		t.Fatal("expected error decoding dag-cbor map with duplicate key")
	}
}

func TestDagCBORDecodeRejectsNestedDuplicateKey(t *testing.T) {
	c, _ := Lookup(DagCBOR)
	// map(1){"x": map(2){"a":1,"a":2}}
	dup := []byte{
		0xA1, 0x61, 'x',
		0xA2, 0x61, 'a', 0x01, 0x61, 'a', 0x02,
	}
	if _, err := c.DecodeValue(dup); err == nil {
		t.Fatal("expected error decoding dag-cbor map with a nested duplicate key")
	}
}

func TestDagJSONDecodeRejectsDuplicateKey(t *testing.T) {
	c, _ := Lookup(DagJSON)
	dup := []byte(`{"a":1,"a":2}`)
	if _, err := c.DecodeValue(dup); err == nil {
		t.Fatal("expected error decoding dag-json object with duplicate key")
	}
}

func TestDagJSONDecodeRejectsNestedDuplicateKey(t *testing.T) {
	c, _ := Lookup(DagJSON)
	dup := []byte(`{"x":{"a":1,"a":2}}`)
	if _, err := c.DecodeValue(dup); err == nil {
		t.Fatal("expected error decoding dag-json object with a nested duplicate key")
	}
}
