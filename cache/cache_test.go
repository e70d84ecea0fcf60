package cache

import (
	"context"
	"fmt"
	"testing"

	"github.com/ipld/go-ipld-store/codec"
	"github.com/ipld/go-ipld-store/ipld"
	"github.com/ipld/go-ipld-store/mem"
	"github.com/ipld/go-ipld-store/mhash"
)

var ctx = context.Background()

type record struct {
	Name string
	Age  int64
}

func encodeRecord(r record) (ipld.Value, error) {
	return ipld.NewMap(
		[]string{"name", "age"},
		[]ipld.Value{ipld.String(r.Name), ipld.Int(r.Age)},
	), nil
}

func decodeRecord(v ipld.Value) (record, error) {
	name, ok := v.MapGet("name")
	if !ok {
		return record{}, fmt.Errorf("missing name")
	}
	age, ok := v.MapGet("age")
	if !ok {
		return record{}, fmt.Errorf("missing age")
	}
	n, _ := name.AsString()
	a, _ := age.AsInteger()
	return record{Name: n, Age: a.Int64()}, nil
}

func mustDagCBOR(t *testing.T) codec.Codec {
	t.Helper()
	c, ok := codec.Lookup(codec.DagCBOR)
	if !ok {
		t.Fatal("dag-cbor not registered")
	}
	return c
}

func TestCacheInsertCommitGetRoundTrip(t *testing.T) {
	s := mem.NewMemStore()
	c, err := NewCache[record](s, mustDagCBOR(t), mhash.SHA2_256, 16, encodeRecord, decodeRecord)
	if err != nil {
		t.Fatal(err)
	}

	tx := c.Transaction()
	id, err := tx.Insert(record{Name: "ada", Age: 36}, 0)
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Commit(ctx, tx); err != nil {
		t.Fatal(err)
	}

	got, err := c.Get(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if got.Name != "ada" || got.Age != 36 {
		t.Fatalf("expected {ada 36}, got %+v", got)
	}
}

// TestCacheFoldsCommittedRecordsWithoutReDecoding confirms a freshly
// committed record is placed in the LRU by Commit itself, before any Get,
// and that the write also reached the backing store.
func TestCacheFoldsCommittedRecordsWithoutReDecoding(t *testing.T) {
	s := mem.NewMemStore()
	c, err := NewCache[record](s, mustDagCBOR(t), mhash.SHA2_256, 16, encodeRecord, decodeRecord)
	if err != nil {
		t.Fatal(err)
	}

	tx := c.Transaction()
	id, err := tx.Insert(record{Name: "grace", Age: 85}, 0)
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Commit(ctx, tx); err != nil {
		t.Fatal(err)
	}
	if !c.lru.Contains(id) {
		t.Fatal("expected Commit to fold the committed record into the LRU")
	}

	// Confirm it is reachable via the underlying store too (cache is
	// write-through, not write-only).
	blk, err := s.Get(ctx, id)
	if err != nil {
		t.Fatalf("expected the committed record to be in the backing store, got %s", err)
	}
	v, err := mustDagCBOR(t).DecodeValue(blk.Data)
	if err != nil {
		t.Fatal(err)
	}
	name, _ := v.MapGet("name")
	s2, _ := name.AsString()
	if s2 != "grace" {
		t.Fatalf("expected grace in backing store, got %s", s2)
	}
}

func TestCacheEvictsLeastRecentlyUsedAtCapacity(t *testing.T) {
	s := mem.NewMemStore()
	c, err := NewCache[record](s, mustDagCBOR(t), mhash.SHA2_256, 2, encodeRecord, decodeRecord)
	if err != nil {
		t.Fatal(err)
	}

	tx := c.Transaction()
	a, err := tx.Insert(record{Name: "a", Age: 1}, 0)
	if err != nil {
		t.Fatal(err)
	}
	b, err := tx.Insert(record{Name: "b", Age: 2}, 0)
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Commit(ctx, tx); err != nil {
		t.Fatal(err)
	}
	// Touch a so b becomes the least recently used entry.
	if _, err := c.Get(ctx, a); err != nil {
		t.Fatal(err)
	}

	tx2 := c.Transaction()
	cc, err := tx2.Insert(record{Name: "c", Age: 3}, 0)
	if err != nil {
		t.Fatal(err)
	}
	if err := c.Commit(ctx, tx2); err != nil {
		t.Fatal(err)
	}

	if c.lru.Contains(b) {
		t.Fatal("expected b to have been evicted as the least recently used entry")
	}
	if !c.lru.Contains(a) || !c.lru.Contains(cc) {
		t.Fatal("expected a and c to remain cached")
	}

	// b is still retrievable, just via the backing store rather than the
	// cache: the LRU bounds memory, it doesn't bound store membership.
	got, err := c.Get(ctx, b)
	if err != nil {
		t.Fatal(err)
	}
	if got.Name != "b" {
		t.Fatalf("expected b, got %+v", got)
	}
}

func TestCacheGetMissesOnUnknownCID(t *testing.T) {
	s := mem.NewMemStore()
	c, err := NewCache[record](s, mustDagCBOR(t), mhash.SHA2_256, 16, encodeRecord, decodeRecord)
	if err != nil {
		t.Fatal(err)
	}
	tx := c.Transaction()
	id, err := tx.Insert(record{Name: "temp", Age: 0}, 0)
	if err != nil {
		t.Fatal(err)
	}
	tx.Raw().MarkAborted()

	if _, err := c.Get(ctx, id); err == nil {
		t.Fatal("expected Get to fail for a record whose transaction was never committed")
	}
}
