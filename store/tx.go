package store

import (
	"sync"

	"github.com/google/uuid"
	cid "github.com/ipfs/go-cid"

	"github.com/ipld/go-ipld-store/block"
	"github.com/ipld/go-ipld-store/codec"
	"github.com/ipld/go-ipld-store/ipld"
)

// txState mirrors the transaction state machine of spec.md §4.8.
type txState int

const (
	txOpen txState = iota
	txCommitted
	txAborted
)

// Update desugars to pin(New); if Old != nil { unpin(*Old) }, per
// spec.md §4.4.
type Update struct {
	Old *cid.Cid
	New cid.Cid
}

// Transaction accumulates create/pin/unpin/update intents. It is not
// visible to readers until a Store.Commit succeeds; creating or
// abandoning a Transaction without committing it has no effect on the
// store (spec.md §4.4, §5 "cancellation").
type Transaction struct {
	mu sync.Mutex

	id    uuid.UUID
	state txState

	creates []block.Block
	pins    []cid.Cid
	unpins  []cid.Cid
	updates []Update
}

// NewTransaction returns an empty, open transaction.
func NewTransaction() *Transaction {
	return &Transaction{id: uuid.New()}
}

// NewTransactionWithCapacity pre-sizes the staged-create list, mirroring
// the cache's with_capacity constructor (spec.md §4.6).
func NewTransactionWithCapacity(capacity int) *Transaction {
	return &Transaction{id: uuid.New(), creates: make([]block.Block, 0, capacity)}
}

// ID is a correlation id for logs; it has no effect on commit semantics.
func (t *Transaction) ID() uuid.UUID { return t.id }

// Insert encodes value under c, hashing with mhCode, and stages the
// resulting block for creation, implicitly pinning it — mirroring the
// reference backend's top-level insert operation (as opposed to the
// lower-level, pin-free block integration a batch commit performs
// internally). This is what makes a freshly inserted, otherwise
// unreferenced value retrievable until explicitly unpinned (scenarios S1
// and S2). The CID is computed eagerly so the caller can link to it from
// subsequent inserts in the same transaction (spec.md §4.4).
func (t *Transaction) Insert(c codec.Codec, mhCode uint64, value ipld.Value, maxBlockSize int) (cid.Cid, error) {
	blk, err := block.Encode(c, mhCode, value, maxBlockSize)
	if err != nil {
		return cid.Undef, err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != txOpen {
		return cid.Undef, ErrTransactionClosed
	}
	t.creates = append(t.creates, blk)
	t.pins = append(t.pins, blk.CID)
	return blk.CID, nil
}

// InsertRaw stages a raw block for creation without going through a
// codec, mirroring block.CreateRaw, and implicitly pins it (see Insert).
func (t *Transaction) InsertRaw(data []byte, mhCode uint64, maxBlockSize int) (cid.Cid, error) {
	blk, err := block.CreateRaw(data, mhCode, maxBlockSize)
	if err != nil {
		return cid.Undef, err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != txOpen {
		return cid.Undef, ErrTransactionClosed
	}
	t.creates = append(t.creates, blk)
	t.pins = append(t.pins, blk.CID)
	return blk.CID, nil
}

// Pin stages a pin intent.
func (t *Transaction) Pin(c cid.Cid) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != txOpen {
		return
	}
	t.pins = append(t.pins, c)
}

// Unpin stages an unpin intent.
func (t *Transaction) Unpin(c cid.Cid) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != txOpen {
		return
	}
	t.unpins = append(t.unpins, c)
}

// UpdateCID stages pin(new); unpin(old) (if old is non-nil), applied
// together at commit.
func (t *Transaction) UpdateCID(old *cid.Cid, new cid.Cid) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.state != txOpen {
		return
	}
	t.updates = append(t.updates, Update{Old: old, New: new})
}

// Creates returns the blocks staged for creation, in insertion order.
// Backends read this (and Pins/Unpins/Updates) to apply the transaction;
// it is not meant for end users to mutate.
func (t *Transaction) Creates() []block.Block {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]block.Block(nil), t.creates...)
}

// Pins returns the staged pin intents.
func (t *Transaction) Pins() []cid.Cid {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]cid.Cid(nil), t.pins...)
}

// Unpins returns the staged unpin intents.
func (t *Transaction) Unpins() []cid.Cid {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]cid.Cid(nil), t.unpins...)
}

// Updates returns the staged update intents.
func (t *Transaction) Updates() []Update {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]Update(nil), t.updates...)
}

// MarkCommitted transitions the transaction to Committed. Backends call
// this after a successful Commit; further staging calls are then
// rejected (spec.md §4.8).
func (t *Transaction) MarkCommitted() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state = txCommitted
}

// MarkAborted transitions the transaction to Aborted.
func (t *Transaction) MarkAborted() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.state = txAborted
}

// Empty reports whether the transaction has nothing staged: no creates,
// pins, unpins, or updates.
func (t *Transaction) Empty() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.creates) == 0 && len(t.pins) == 0 && len(t.unpins) == 0 && len(t.updates) == 0
}
