// Package cache is the typed write-through cache of spec.md §4.6,
// grounded on original_source/src/cache.rs's IpldCache/Transaction pair.
// Where the original leans on Rust trait bounds (Decode<C>/Encode<C>) to
// convert an arbitrary record type to and from Ipld, this package takes
// the encode/decode functions as explicit parameters: idiomatic Go
// generics favor passing behavior as values over conjuring it from type
// constraints, and it lets Cache[T] work for any T, codec-primitive or
// struct, without asking callers to implement marshal interfaces.
package cache

import (
	"context"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	cid "github.com/ipfs/go-cid"

	"github.com/ipld/go-ipld-store/codec"
	"github.com/ipld/go-ipld-store/ipld"
	"github.com/ipld/go-ipld-store/store"
)

// EncodeFunc converts a record to the Ipld value a Cache stores it as.
type EncodeFunc[T any] func(T) (ipld.Value, error)

// DecodeFunc converts a decoded Ipld value back into a record.
type DecodeFunc[T any] func(ipld.Value) (T, error)

// Cache is a bounded, write-through decode cache in front of a
// store.Store: Get first checks an LRU of already-decoded records before
// falling back to the store, and a committed Transaction's newly created
// records are folded into the cache so the next Get on them is a hit.
type Cache[T any] struct {
	s       store.Store
	c       codec.Codec
	hash    uint64
	encode  EncodeFunc[T]
	decode  DecodeFunc[T]
	maxSize int

	mu  sync.Mutex
	lru *lru.Cache[cid.Cid, T]
}

// NewCache builds a Cache of the given size backed by s, encoding with c
// and hashing new blocks with hash.
func NewCache[T any](s store.Store, c codec.Codec, hash uint64, size int, enc EncodeFunc[T], dec DecodeFunc[T]) (*Cache[T], error) {
	l, err := lru.New[cid.Cid, T](size)
	if err != nil {
		return nil, err
	}
	return &Cache[T]{s: s, c: c, hash: hash, encode: enc, decode: dec, lru: l}, nil
}

// Transaction is the typed counterpart of store.Transaction: Insert
// stages an encoded T alongside the record itself, so Commit can fold
// the record straight into the cache without a redundant decode.
type Transaction[T any] struct {
	c      codec.Codec
	hash   uint64
	encode EncodeFunc[T]

	tx      *store.Transaction
	staged  []cid.Cid
	records []T
}

// Transaction starts a new typed transaction against the cache's codec
// and hash function.
func (ca *Cache[T]) Transaction() *Transaction[T] {
	return &Transaction[T]{c: ca.c, hash: ca.hash, encode: ca.encode, tx: store.NewTransaction()}
}

// TransactionWithCapacity is Transaction with a pre-sized staging buffer.
func (ca *Cache[T]) TransactionWithCapacity(capacity int) *Transaction[T] {
	return &Transaction[T]{
		c: ca.c, hash: ca.hash, encode: ca.encode,
		tx:      store.NewTransactionWithCapacity(capacity),
		staged:  make([]cid.Cid, 0, capacity),
		records: make([]T, 0, capacity),
	}
}

// Insert encodes value, stages it for creation (implicitly pinning it,
// see store.Transaction.Insert), and remembers it for Commit to fold
// into the cache.
func (t *Transaction[T]) Insert(value T, maxBlockSize int) (cid.Cid, error) {
	v, err := t.encode(value)
	if err != nil {
		return cid.Undef, err
	}
	c, err := t.tx.Insert(t.c, t.hash, v, maxBlockSize)
	if err != nil {
		return cid.Undef, err
	}
	t.staged = append(t.staged, c)
	t.records = append(t.records, value)
	return c, nil
}

// Pin stages a pin intent.
func (t *Transaction[T]) Pin(c cid.Cid) { t.tx.Pin(c) }

// Unpin stages an unpin intent.
func (t *Transaction[T]) Unpin(c cid.Cid) { t.tx.Unpin(c) }

// Update stages pin(new); unpin(old).
func (t *Transaction[T]) Update(old *cid.Cid, new cid.Cid) { t.tx.UpdateCID(old, new) }

// Raw exposes the underlying store.Transaction, for callers that need to
// mix typed inserts with raw or cross-type ones in a single commit.
func (t *Transaction[T]) Raw() *store.Transaction { return t.tx }

// Get returns the decoded record at c, checking the LRU first. A miss
// loads and decodes the block without holding the cache lock, then
// stores the result before returning it; a concurrent miss on the same
// CID may decode twice, which is wasted work but not incorrect.
func (ca *Cache[T]) Get(ctx context.Context, c cid.Cid) (T, error) {
	ca.mu.Lock()
	if v, ok := ca.lru.Get(c); ok {
		ca.mu.Unlock()
		return v, nil
	}
	ca.mu.Unlock()

	blk, err := ca.s.Get(ctx, c)
	if err != nil {
		var zero T
		return zero, err
	}
	iv, err := ca.c.DecodeValue(blk.RawData())
	if err != nil {
		var zero T
		return zero, err
	}
	value, err := ca.decode(iv)
	if err != nil {
		var zero T
		return zero, err
	}

	ca.mu.Lock()
	ca.lru.Add(c, value)
	ca.mu.Unlock()
	return value, nil
}

// Commit commits tx's underlying store.Transaction and, on success, folds
// every record it staged into the cache.
func (ca *Cache[T]) Commit(ctx context.Context, tx *Transaction[T]) error {
	if err := ca.s.Commit(ctx, tx.tx); err != nil {
		return err
	}
	ca.mu.Lock()
	for i, c := range tx.staged {
		ca.lru.Add(c, tx.records[i])
	}
	ca.mu.Unlock()
	return nil
}
