// Package mem is the in-memory reference implementation of store.Store
// (spec.md §3/§5), grounded directly on original_source/src/mem.rs. A
// bbloom filter gives Get a fast negative pre-check, and a GCLocker
// coordinates sweeps against concurrent commits, both patterns carried
// over from the vendored go-ipfs blockstore in
// other_examples/0b8ddf7a_dolthub-dolt__vendor-....../blockstore.go.go.
package mem

import (
	"context"
	"sync"

	"github.com/ipfs/bbloom"
	cid "github.com/ipfs/go-cid"
	logging "github.com/ipfs/go-log/v2"

	"github.com/ipld/go-ipld-store/block"
	"github.com/ipld/go-ipld-store/gc"
	"github.com/ipld/go-ipld-store/ipld"
	"github.com/ipld/go-ipld-store/store"
)

var log = logging.Logger("ipldstore/mem")

const defaultBloomCapacity = 1 << 16

// MemStore is a process-local, non-durable store.Store backend: everything
// lives in Go maps behind a sync.RWMutex. It is the reference
// implementation whose behavior the datastore-backed backend (dsstore)
// mirrors (spec.md §5).
type MemStore struct {
	mu    sync.RWMutex
	graph *graph
	gcl   gcLocker

	aliasMu sync.Mutex
	aliases map[string]cid.Cid

	bloom         *bbloom.Bloom
	bloomDisabled bool
	bloomCapacity int

	maxBlockSize    int
	defaultHashCode uint64
}

// NewMemStore builds an empty MemStore, applying opts over
// store.DefaultStoreParams.
func NewMemStore(opts ...Option) *MemStore {
	dp := store.DefaultStoreParams()

	m := &MemStore{
		graph:           newGraph(),
		aliases:         make(map[string]cid.Cid),
		bloomCapacity:   defaultBloomCapacity,
		maxBlockSize:    dp.MaxBlockSize,
		defaultHashCode: dp.DefaultHashCode,
	}
	for _, opt := range opts {
		opt(m)
	}
	if !m.bloomDisabled {
		bl, err := bbloom.New(float64(m.bloomCapacity), 0.01)
		if err != nil {
			log.Warnf("mem: bloom filter disabled: %s", err)
		} else {
			m.bloom = bl
		}
	}
	return m
}

// MaxBlockSize returns the configured per-block size ceiling (0 means
// unbounded).
func (m *MemStore) MaxBlockSize() int { return m.maxBlockSize }

// DefaultHashCode returns the multihash function new blocks are created
// with absent an explicit choice.
func (m *MemStore) DefaultHashCode() uint64 { return m.defaultHashCode }

// Get returns the block stored at c. A bloom-filter miss short-circuits
// without taking the graph lock; a hit (true or false-positive) falls
// through to the authoritative map lookup.
func (m *MemStore) Get(ctx context.Context, c cid.Cid) (block.Block, error) {
	if err := ctx.Err(); err != nil {
		return block.Block{}, err
	}
	if m.bloom != nil && !m.bloom.HasTS(c.Bytes()) {
		return block.Block{}, &store.ErrBlockNotFound{CID: c}
	}
	unlock := m.gcl.PinLock()
	defer unlock()
	m.mu.RLock()
	data, err := m.graph.get(c)
	m.mu.RUnlock()
	if err != nil {
		return block.Block{}, err
	}
	return block.Block{CID: c, Data: data}, nil
}

// Commit applies tx atomically. Every staged block is decoded and its
// references extracted in a prevalidation pass that never mutates the
// graph; only once every staged block is known to decode cleanly does
// the second pass apply inserts, pins, unpins, and updates. This is what
// gives a failing commit "store unchanged" semantics (spec.md §4.4)
// despite the underlying graph integration being a sequence of
// individually-mutating steps.
func (m *MemStore) Commit(ctx context.Context, tx *store.Transaction) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	creates := tx.Creates()

	unlock := m.gcl.PinLock()
	defer unlock()
	m.mu.Lock()
	defer m.mu.Unlock()

	type prepared struct {
		blk     block.Block
		refs    map[cid.Cid]struct{}
		present bool
	}
	preps := make([]prepared, 0, len(creates))
	for _, blk := range creates {
		if m.maxBlockSize > 0 && len(blk.Data) > m.maxBlockSize {
			tx.MarkAborted()
			return &block.ErrBlockTooLarge{N: len(blk.Data)}
		}
		refs, present, err := m.graph.prepareInsert(blk.CID, blk.Data)
		if err != nil {
			tx.MarkAborted()
			return err
		}
		preps = append(preps, prepared{blk, refs, present})
	}

	for _, p := range preps {
		if !p.present {
			m.graph.applyInsert(p.blk.CID, p.blk.Data, p.refs)
			if m.bloom != nil {
				m.bloom.AddTS(p.blk.CID.Bytes())
			}
		}
	}
	for _, c := range tx.Pins() {
		m.graph.pin(c)
	}
	for _, c := range tx.Unpins() {
		m.graph.unpin(c)
	}
	for _, u := range tx.Updates() {
		m.graph.pin(u.New)
		if u.Old != nil {
			m.graph.unpin(*u.Old)
		}
	}
	tx.MarkCommitted()
	log.Debugw("committed transaction", "id", tx.ID(), "creates", len(creates))
	return nil
}

// Query resolves path against the graph, delegating the path-crossing
// loop to store.ResolvePath.
func (m *MemStore) Query(ctx context.Context, path store.DagPath) (ipld.Value, error) {
	return store.ResolvePath(ctx, m, path)
}

// Alias binds name to target. Setting an alias requires target's full
// transitive closure to already be present (gc.RequireClosure); on
// success target is pinned and any prior target is unpinned. A nil
// target clears the alias and unpins its former target. Failure leaves
// the previous alias (if any) untouched.
func (m *MemStore) Alias(ctx context.Context, name []byte, target *cid.Cid) error {
	m.aliasMu.Lock()
	defer m.aliasMu.Unlock()

	key := string(name)
	old, hadOld := m.aliases[key]

	if target == nil {
		if !hadOld {
			return nil
		}
		delete(m.aliases, key)
		m.mu.Lock()
		m.graph.unpin(old)
		m.mu.Unlock()
		return nil
	}

	if _, err := gc.RequireClosure(ctx, m, gc.NewCidSet(*target)); err != nil {
		return err
	}
	if hadOld && old == *target {
		return nil
	}

	m.mu.Lock()
	m.graph.pin(*target)
	m.mu.Unlock()
	m.aliases[key] = *target
	if hadOld && old != *target {
		m.mu.Lock()
		m.graph.unpin(old)
		m.mu.Unlock()
	}
	return nil
}

// Resolve returns the current target of name, if any.
func (m *MemStore) Resolve(ctx context.Context, name []byte) (cid.Cid, bool, error) {
	m.aliasMu.Lock()
	defer m.aliasMu.Unlock()
	c, ok := m.aliases[string(name)]
	return c, ok, nil
}

// directGetter reads the graph under m.mu only, bypassing the gcLocker.
// GC already holds the gcLocker's write side for its whole sweep, so
// routing its own closure walk back through m.Get (which takes the
// gcLocker's read side) would deadlock against itself; this is the
// escape hatch for that one caller.
type directGetter struct{ m *MemStore }

func (d directGetter) Get(ctx context.Context, c cid.Cid) (block.Block, error) {
	d.m.mu.RLock()
	data, err := d.m.graph.get(c)
	d.m.mu.RUnlock()
	if err != nil {
		return block.Block{}, err
	}
	return block.Block{CID: c, Data: data}, nil
}

// GC runs a full mark-and-sweep over roots: anything outside the
// transitive closure of roots is physically deleted, regardless of pin
// state — callers are responsible for passing every CID that should
// survive (including pinned and aliased ones) as a root. Commits are
// excluded for the duration via gcLocker's write side.
func (m *MemStore) GC(ctx context.Context, roots gc.CidSet) (gc.CidSet, error) {
	unlock := m.gcl.GCLock()
	defer unlock()

	m.mu.Lock()
	all := m.graph.allCIDs()
	m.mu.Unlock()

	dead, err := gc.DeadPaths(ctx, directGetter{m}, all, roots)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	for c := range dead {
		for r := range m.graph.refs[c] {
			m.graph.addReferer(r, -1)
		}
		delete(m.graph.blocks, c)
		delete(m.graph.refs, c)
	}
	m.mu.Unlock()
	return dead, nil
}

var _ store.Store = (*MemStore)(nil)
