// Package ipldstore is the root convenience surface over the library's
// pieces: block validation and encoding (block), the codec registry
// (codec), the recursive value model and path resolution (ipld), the
// multihash table (mhash), the Store contract and transaction buffer
// (store), the in-memory reference backend (mem), the datastore-backed
// backend (dsstore), garbage collection (gc), and the typed cache
// (cache). Most programs only need the re-exports in this file; anything
// more specific is reached through the subpackages directly.
package ipldstore

import (
	"github.com/ipld/go-ipld-store/block"
	"github.com/ipld/go-ipld-store/cache"
	"github.com/ipld/go-ipld-store/codec"
	"github.com/ipld/go-ipld-store/ipld"
	"github.com/ipld/go-ipld-store/mem"
	"github.com/ipld/go-ipld-store/mhash"
	"github.com/ipld/go-ipld-store/store"
)

// Re-exported types callers touch at nearly every call site, so they
// don't need to import four subpackages just to build a transaction.
type (
	Value       = ipld.Value
	Path        = ipld.Path
	Block       = block.Block
	Node        = block.Node
	Transaction = store.Transaction
	DagPath     = store.DagPath
	Store       = store.Store
	StoreParams = store.StoreParams
)

// Codec identifiers, re-exported for convenience.
const (
	Raw     = codec.Raw
	DagCBOR = codec.DagCBOR
	DagJSON = codec.DagJSON
)

// Multihash codes, re-exported for convenience.
const (
	SHA2_256    = mhash.SHA2_256
	SHA2_512    = mhash.SHA2_512
	BLAKE2B_256 = mhash.BLAKE2B_256
	BLAKE3      = mhash.BLAKE3
)

// NewMemStore builds an in-memory store.Store, per mem.NewMemStore.
func NewMemStore(opts ...mem.Option) *mem.MemStore {
	return mem.NewMemStore(opts...)
}

// NewTransaction starts a new, empty transaction.
func NewTransaction() *Transaction {
	return store.NewTransaction()
}

// NewCache builds a typed write-through cache of size entries in front of
// s, per cache.NewCache.
func NewCache[T any](s store.Store, c codec.Codec, hash uint64, size int, enc cache.EncodeFunc[T], dec cache.DecodeFunc[T]) (*cache.Cache[T], error) {
	return cache.NewCache[T](s, c, hash, size, enc, dec)
}

// DecodeNode decodes blk as a github.com/ipfs/go-ipld-format Node, per
// block.DecodeNode.
func DecodeNode(blk Block) (*Node, error) {
	return block.DecodeNode(blk)
}
