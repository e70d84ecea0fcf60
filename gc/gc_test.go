package gc

import (
	"context"
	"errors"
	"testing"

	cid "github.com/ipfs/go-cid"

	"github.com/ipld/go-ipld-store/block"
	"github.com/ipld/go-ipld-store/codec"
	"github.com/ipld/go-ipld-store/ipld"
	"github.com/ipld/go-ipld-store/mhash"
	"github.com/ipld/go-ipld-store/store"
)

var ctx = context.Background()

// fakeStore is a minimal getter backed by a plain map, so gc tests don't
// need a real Store implementation wired up.
type fakeStore map[cid.Cid]block.Block

func (f fakeStore) Get(_ context.Context, c cid.Cid) (block.Block, error) {
	blk, ok := f[c]
	if !ok {
		return block.Block{}, &store.ErrBlockNotFound{CID: c}
	}
	return blk, nil
}

func mustCodec(t *testing.T) codec.Codec {
	t.Helper()
	c, ok := codec.Lookup(codec.DagCBOR)
	if !ok {
		t.Fatal("dag-cbor not registered")
	}
	return c
}

func mustBlock(t *testing.T, c codec.Codec, v ipld.Value) block.Block {
	t.Helper()
	blk, err := block.Encode(c, mhash.SHA2_256, v, 0)
	if err != nil {
		t.Fatal(err)
	}
	return blk
}

func TestClosureWalksLinksTransitively(t *testing.T) {
	c := mustCodec(t)
	leaf := mustBlock(t, c, ipld.Int(1))
	mid := mustBlock(t, c, ipld.NewMap([]string{"leaf"}, []ipld.Value{ipld.Link(leaf.CID)}))
	root := mustBlock(t, c, ipld.NewMap([]string{"mid"}, []ipld.Value{ipld.Link(mid.CID)}))

	fs := fakeStore{leaf.CID: leaf, mid.CID: mid, root.CID: root}
	closure, err := Closure(ctx, fs, NewCidSet(root.CID))
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []cid.Cid{leaf.CID, mid.CID, root.CID} {
		if _, ok := closure[want]; !ok {
			t.Fatalf("expected %s in closure", want)
		}
	}
	if len(closure) != 3 {
		t.Fatalf("expected exactly 3 CIDs in closure, got %d", len(closure))
	}
}

func TestClosureToleratesMissingBlocks(t *testing.T) {
	c := mustCodec(t)
	// ghost is referenced but never added to the store.
	ghost := mustBlock(t, c, ipld.String("never inserted"))
	root := mustBlock(t, c, ipld.NewMap([]string{"ghost"}, []ipld.Value{ipld.Link(ghost.CID)}))

	fs := fakeStore{root.CID: root}
	closure, err := Closure(ctx, fs, NewCidSet(root.CID))
	if err != nil {
		t.Fatalf("expected a dangling link to be tolerated, got %s", err)
	}
	if _, ok := closure[root.CID]; !ok {
		t.Fatal("expected root in closure")
	}
	if _, ok := closure[ghost.CID]; ok {
		t.Fatal("expected the missing ghost block not to appear in closure")
	}
}

func TestClosureAggregatesDecodeErrorsWithoutAborting(t *testing.T) {
	c := mustCodec(t)
	good := mustBlock(t, c, ipld.Int(7))

	// Two independently corrupt blocks, each reachable from a shared root.
	corruptData := []byte("not valid dag-cbor")
	digest1, err := mhash.Digest(mhash.SHA2_256, append(corruptData, 'a'))
	if err != nil {
		t.Fatal(err)
	}
	digest2, err := mhash.Digest(mhash.SHA2_256, append(corruptData, 'b'))
	if err != nil {
		t.Fatal(err)
	}
	bad1 := cid.NewCidV1(codec.DagCBOR, digest1)
	bad2 := cid.NewCidV1(codec.DagCBOR, digest2)

	root := mustBlock(t, c, ipld.NewMap(
		[]string{"good", "bad1", "bad2"},
		[]ipld.Value{ipld.Link(good.CID), ipld.Link(bad1), ipld.Link(bad2)},
	))

	fs := fakeStore{
		root.CID: root,
		good.CID: good,
		bad1:     {CID: bad1, Data: append(corruptData, 'a')},
		bad2:     {CID: bad2, Data: append(corruptData, 'b')},
	}

	closure, err := Closure(ctx, fs, NewCidSet(root.CID))
	if err == nil {
		t.Fatal("expected decode failures to be surfaced")
	}
	if got := len(errorsJoinedCount(err)); got != 2 {
		t.Fatalf("expected both corrupt blocks' errors aggregated, got %d", got)
	}
	// The traversal still visits everything reachable despite the errors.
	for _, want := range []cid.Cid{root.CID, good.CID} {
		if _, ok := closure[want]; !ok {
			t.Fatalf("expected %s in closure despite sibling decode errors", want)
		}
	}
}

// errorsJoinedCount unwraps a multierr-combined error into its components.
func errorsJoinedCount(err error) []error {
	type unwrapper interface{ Unwrap() []error }
	if u, ok := err.(unwrapper); ok {
		return u.Unwrap()
	}
	return []error{err}
}

func TestDeadPathsReturnsUnreferencedBlocks(t *testing.T) {
	c := mustCodec(t)
	live := mustBlock(t, c, ipld.Int(1))
	dead := mustBlock(t, c, ipld.Int(2))
	root := mustBlock(t, c, ipld.NewMap([]string{"live"}, []ipld.Value{ipld.Link(live.CID)}))

	fs := fakeStore{root.CID: root, live.CID: live, dead.CID: dead}
	all := []cid.Cid{root.CID, live.CID, dead.CID}
	deadSet, err := DeadPaths(ctx, fs, all, NewCidSet(root.CID))
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := deadSet[dead.CID]; !ok {
		t.Fatal("expected the unreferenced block to be reported dead")
	}
	if _, ok := deadSet[root.CID]; ok {
		t.Fatal("root must never be reported dead")
	}
	if _, ok := deadSet[live.CID]; ok {
		t.Fatal("a block reachable from root must never be reported dead")
	}
}

func TestRequireClosureFailsOnMissingBlock(t *testing.T) {
	c := mustCodec(t)
	ghost := mustBlock(t, c, ipld.String("absent"))
	root := mustBlock(t, c, ipld.NewMap([]string{"ghost"}, []ipld.Value{ipld.Link(ghost.CID)}))

	fs := fakeStore{root.CID: root}
	_, err := RequireClosure(ctx, fs, NewCidSet(root.CID))
	if !errors.Is(err, store.ErrAliasUnresolvable) {
		t.Fatalf("expected ErrAliasUnresolvable, got %v", err)
	}
}

func TestRequireClosureSucceedsWhenFullyPresent(t *testing.T) {
	c := mustCodec(t)
	leaf := mustBlock(t, c, ipld.Int(3))
	root := mustBlock(t, c, ipld.NewMap([]string{"leaf"}, []ipld.Value{ipld.Link(leaf.CID)}))

	fs := fakeStore{root.CID: root, leaf.CID: leaf}
	closure, err := RequireClosure(ctx, fs, NewCidSet(root.CID))
	if err != nil {
		t.Fatal(err)
	}
	if len(closure) != 2 {
		t.Fatalf("expected both root and leaf in closure, got %d", len(closure))
	}
}
