package mem

import (
	cid "github.com/ipfs/go-cid"

	"github.com/ipld/go-ipld-store/block"
	"github.com/ipld/go-ipld-store/store"
)

// graph is the unlocked reference graph of spec.md §3/§4.3, a direct
// translation of original_source/src/mem.rs's InnerStore: blocks, refs,
// referers, and pins keyed by CID. Callers (MemStore) hold the lock;
// nothing here is safe for concurrent use on its own.
type graph struct {
	blocks   map[cid.Cid][]byte
	refs     map[cid.Cid]map[cid.Cid]struct{}
	referers map[cid.Cid]int
	pins     map[cid.Cid]uint
}

func newGraph() *graph {
	return &graph{
		blocks:   make(map[cid.Cid][]byte),
		refs:     make(map[cid.Cid]map[cid.Cid]struct{}),
		referers: make(map[cid.Cid]int),
		pins:     make(map[cid.Cid]uint),
	}
}

func (g *graph) get(c cid.Cid) ([]byte, error) {
	data, ok := g.blocks[c]
	if !ok {
		return nil, &store.ErrBlockNotFound{CID: c}
	}
	return data, nil
}

func (g *graph) addReferer(c cid.Cid, n int) {
	g.referers[c] += n
	if g.referers[c] == 0 {
		delete(g.referers, c)
	}
}

// prepareInsert is the pure half of inserting one (cid, data) pair: if c
// is already present it reports present=true and does nothing further
// (spec.md §4.3 step 1, idempotent insert); otherwise it decodes data and
// extracts its references, without mutating the graph. Splitting this out
// from applyInsert is what lets MemStore.Commit validate every staged
// block before mutating anything, so a decode failure partway through a
// batch leaves the store untouched.
func (g *graph) prepareInsert(c cid.Cid, data []byte) (refs map[cid.Cid]struct{}, present bool, err error) {
	if _, ok := g.blocks[c]; ok {
		return nil, true, nil
	}
	v, err := block.DecodeIpld(c, data)
	if err != nil {
		return nil, false, err
	}
	return block.References(v), false, nil
}

// applyInsert integrates a block whose refs were already computed by a
// prior prepareInsert call. Callers must not call this for a CID
// prepareInsert reported as already present.
func (g *graph) applyInsert(c cid.Cid, data []byte, refs map[cid.Cid]struct{}) {
	for r := range refs {
		g.addReferer(r, 1)
	}
	g.refs[c] = refs
	g.blocks[c] = data
}

// insertBlock integrates one (cid, data) pair into the graph in one step,
// for callers (insertBatch) that don't need commit-style
// prevalidation. Idempotent: re-inserting a CID already present is a
// no-op (spec.md §4.3 step 1).
func (g *graph) insertBlock(c cid.Cid, data []byte) error {
	refs, present, err := g.prepareInsert(c, data)
	if err != nil {
		return err
	}
	if present {
		return nil
	}
	g.applyInsert(c, data, refs)
	return nil
}

// insertBatch inserts every block in batch under one logical change and
// returns the CID of the last one (spec.md §4.3 "insert-batch").
func (g *graph) insertBatch(batch []block.Block) (cid.Cid, error) {
	if len(batch) == 0 {
		return cid.Undef, store.ErrEmptyBatch
	}
	var last cid.Cid
	for _, b := range batch {
		if err := g.insertBlock(b.CID, b.Data); err != nil {
			return cid.Undef, err
		}
		last = b.CID
	}
	return last, nil
}

func (g *graph) pin(c cid.Cid) {
	g.pins[c]++
}

func (g *graph) unpin(c cid.Cid) {
	n, ok := g.pins[c]
	if !ok {
		return
	}
	if n > 1 {
		g.pins[c] = n - 1
		return
	}
	delete(g.pins, c)
	g.remove(c)
}

// remove evaluates retention and, if the CID is no longer retained,
// deletes its block and recursively releases its outbound references
// (spec.md §4.3 "Remove"). It is a no-op for a CID that is still pinned,
// still referenced, or whose block never arrived.
func (g *graph) remove(c cid.Cid) {
	if g.pins[c] > 0 || g.referers[c] > 0 {
		return
	}
	if _, ok := g.blocks[c]; !ok {
		return
	}
	delete(g.blocks, c)
	refs := g.refs[c]
	delete(g.refs, c)
	for r := range refs {
		g.addReferer(r, -1)
		g.remove(r)
	}
}

// retained reports the liveness invariant of spec.md §3 restricted to the
// graph's own bookkeeping (pins/referers); alias retention is layered on
// top by MemStore, which also tracks the alias map.
func (g *graph) retained(c cid.Cid) bool {
	_, present := g.blocks[c]
	return present && (g.pins[c] > 0 || g.referers[c] > 0)
}

// allCIDs returns every CID currently holding a block, for gc.DeadPaths.
func (g *graph) allCIDs() []cid.Cid {
	out := make([]cid.Cid, 0, len(g.blocks))
	for c := range g.blocks {
		out = append(out, c)
	}
	return out
}
