// Package store defines the Store contract (spec.md §4.7): the interface
// every backend (mem, dsstore, ...) implements, its parameter bundle, the
// transaction buffer committed against it, and the shared error taxonomy
// used across block, mem, dsstore, gc, and cache.
package store

import (
	"context"

	cid "github.com/ipfs/go-cid"

	"github.com/ipld/go-ipld-store/block"
	"github.com/ipld/go-ipld-store/ipld"
	"github.com/ipld/go-ipld-store/mhash"
)

const defaultHashCode = mhash.SHA2_256

// Store is the backend-agnostic storage contract. Every method takes a
// context so callers can cancel an in-flight lock acquisition or network
// fetch (spec.md §5); dropping the context cancels the operation without
// publishing partial state.
type Store interface {
	// Get returns the block stored at cid, or ErrBlockNotFound.
	Get(ctx context.Context, c cid.Cid) (block.Block, error)

	// Commit atomically applies a Transaction: integrates its staged
	// blocks into the reference graph, adjusts pin counts, and either
	// succeeds in full or leaves the store unchanged.
	Commit(ctx context.Context, tx *Transaction) error

	// Query resolves a DagPath, crossing Links by reloading the linked
	// block, and returns the ipld.Value at the end of the path.
	Query(ctx context.Context, path DagPath) (ipld.Value, error)

	// Alias binds name to target, an idempotent pin of target.
	// Replacing an existing alias unpins its old target first. A nil
	// target clears the alias (and unpins its former target).
	Alias(ctx context.Context, name []byte, target *cid.Cid) error

	// Resolve returns the current target of name, if any.
	Resolve(ctx context.Context, name []byte) (c cid.Cid, ok bool, err error)
}

// StoreParams bundles a backend's static configuration: the block size
// bound and the codec/hash tables it validates against. Codecs and Hashes
// are process-wide registries (codec.Register / mhash.Register) rather
// than per-instance state, per spec.md §4.2 and §9, so StoreParams only
// needs to carry the size bound plus the default hash code new blocks are
// created with when the caller doesn't pick one.
type StoreParams struct {
	MaxBlockSize    int
	DefaultHashCode uint64
}

// DefaultStoreParams is an unbounded MaxBlockSize (spec.md §3: "a
// store-parameter; default unbounded") hashing new blocks with SHA2-256.
func DefaultStoreParams() StoreParams {
	return StoreParams{MaxBlockSize: 0, DefaultHashCode: defaultHashCode}
}

// AliasKey joins parts with "/", following the "a::b::c::name" convention
// of spec.md §6. The store itself treats the result as an opaque byte
// string; this is purely a caller convenience.
func AliasKey(parts ...string) []byte {
	out := make([]byte, 0, 32)
	for i, p := range parts {
		if i > 0 {
			out = append(out, '/')
		}
		out = append(out, p...)
	}
	return out
}
