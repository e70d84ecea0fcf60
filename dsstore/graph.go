package dsstore

import cid "github.com/ipfs/go-cid"

// meta is the in-memory reference-counting bookkeeping dsstore layers on
// top of a blockstore.Blockstore, mirroring mem.graph's refs/referers/pins
// tables (original_source/src/mem.rs) but leaving block bytes themselves
// to the datastore. It carries its own copy of the same pin/unpin/release
// cascade as mem.graph, plus a present set standing in for the byte map.
type meta struct {
	refs     map[cid.Cid]map[cid.Cid]struct{}
	referers map[cid.Cid]int
	pins     map[cid.Cid]uint
	present  map[cid.Cid]struct{}
}

func newMeta() *meta {
	return &meta{
		refs:     make(map[cid.Cid]map[cid.Cid]struct{}),
		referers: make(map[cid.Cid]int),
		pins:     make(map[cid.Cid]uint),
		present:  make(map[cid.Cid]struct{}),
	}
}

func (g *meta) addReferer(c cid.Cid, n int) {
	g.referers[c] += n
	if g.referers[c] == 0 {
		delete(g.referers, c)
	}
}

// recordInsert registers that c's block (whose references are refs) now
// has bytes present in the blockstore. It is the metadata half of insert;
// callers are responsible for the actual blockstore.Put.
func (g *meta) recordInsert(c cid.Cid, refs map[cid.Cid]struct{}) {
	if _, ok := g.present[c]; ok {
		return
	}
	for r := range refs {
		g.addReferer(r, 1)
	}
	g.refs[c] = refs
	g.present[c] = struct{}{}
}

func (g *meta) pin(c cid.Cid) {
	g.pins[c]++
}

// unpin decrements c's pin count and, if it drops to zero and c is no
// longer referenced, reports c (and its now-releasable references, via
// recursive cascade) as dead so the caller can delete the underlying
// blockstore entries.
func (g *meta) unpin(c cid.Cid, dead map[cid.Cid]struct{}) {
	n, ok := g.pins[c]
	if !ok {
		return
	}
	if n > 1 {
		g.pins[c] = n - 1
		return
	}
	delete(g.pins, c)
	g.release(c, dead)
}

func (g *meta) release(c cid.Cid, dead map[cid.Cid]struct{}) {
	if g.pins[c] > 0 || g.referers[c] > 0 {
		return
	}
	if _, ok := g.present[c]; !ok {
		return
	}
	delete(g.present, c)
	dead[c] = struct{}{}
	refs := g.refs[c]
	delete(g.refs, c)
	for r := range refs {
		g.addReferer(r, -1)
		g.release(r, dead)
	}
}

func (g *meta) allCIDs() []cid.Cid {
	out := make([]cid.Cid, 0, len(g.present))
	for c := range g.present {
		out = append(out, c)
	}
	return out
}
