package store

import (
	"errors"
	"fmt"

	cid "github.com/ipfs/go-cid"

	"github.com/ipld/go-ipld-store/ipld"
)

// The path-resolution errors are defined once, in ipld, and re-exposed
// here as part of the store's error surface (spec.md §6) rather than
// redefined: there is exactly one way a Query can fail to resolve a path,
// and it happens inside ipld.Resolve.
var (
	ErrKeyNotFound   = ipld.ErrKeyNotFound
	ErrIndexNotFound = ipld.ErrIndexNotFound
	ErrNotMap        = ipld.ErrNotMap
	ErrNotList       = ipld.ErrNotList
)

// ErrBlockNotFound is returned by Get (and Query, when it needs to load a
// linked block) for a CID absent from the store.
type ErrBlockNotFound struct{ CID cid.Cid }

func (e *ErrBlockNotFound) Error() string {
	return fmt.Sprintf("store: block not found: %s", e.CID)
}

// ErrEmptyBatch is returned by a batch insert given zero blocks.
var ErrEmptyBatch = errors.New("store: empty batch")

// ErrTypeError describes a decoded shape that doesn't match what the caller
// expected. Nothing in this module returns it: the ipld.Value accessors
// (AsString, AsInteger, ...) report a mismatch through their ok result.
type ErrTypeError struct{ Expected, Actual string }

func (e *ErrTypeError) Error() string {
	return fmt.Sprintf("store: type error: expected %s, got %s", e.Expected, e.Actual)
}

// ErrInvalidLink names an invalid link as part of the error surface.
// Nothing in this module returns it; an alias target whose closure cannot
// be resolved yields ErrAliasUnresolvable instead.
var ErrInvalidLink = errors.New("store: invalid link")

// ErrTransactionClosed is returned by Insert and InsertRaw on a Transaction
// that has been committed or aborted. Pin, Unpin, and UpdateCID on such a
// transaction are silently ignored, and the backends' Commit does not check
// the transaction's state.
var ErrTransactionClosed = errors.New("store: transaction already committed or aborted")

// ErrAliasUnresolvable is returned by Alias when the target CID's
// transitive references cannot be reconstructed (spec.md §7: "Aliasing a
// CID whose closure cannot be reconstructed fails; the prior alias is
// retained").
var ErrAliasUnresolvable = errors.New("store: alias target's closure is unresolvable")
