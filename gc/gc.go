// Package gc implements the root-set closure and dead-path enumeration of
// spec.md §4.5, grounded directly on original_source/src/gc.rs
// (references/closure/dead_paths).
package gc

import (
	"context"

	cid "github.com/ipfs/go-cid"
	"go.uber.org/multierr"

	"github.com/ipld/go-ipld-store/block"
	"github.com/ipld/go-ipld-store/store"
)

// CidSet is a small convenience alias for the sets this package passes
// around; spec.md's CidHashSet.
type CidSet map[cid.Cid]struct{}

// NewCidSet builds a CidSet from the given CIDs.
func NewCidSet(cids ...cid.Cid) CidSet {
	s := make(CidSet, len(cids))
	for _, c := range cids {
		s[c] = struct{}{}
	}
	return s
}

// getter is the minimal surface Closure needs: just Get. Any store.Store
// satisfies it.
type getter interface {
	Get(ctx context.Context, c cid.Cid) (block.Block, error)
}

// Closure computes the transitive set of CIDs reachable from roots via
// link edges, by iterative pre-order traversal. Missing blocks are
// skipped — an alias (or another block) can legitimately point at
// not-yet-present data, and GC must never treat that as an error (spec.md
// §4.5). A decode failure on a block that IS present is surfaced (it
// indicates corruption); multiple such failures across the traversal are
// aggregated with multierr rather than aborting at the first one, so one
// bad block doesn't hide the others.
func Closure(ctx context.Context, s getter, roots CidSet) (CidSet, error) {
	seen := make(CidSet, len(roots))
	stack := []CidSet{roots}
	var errs error
	for len(stack) > 0 {
		frontier := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		next := make(CidSet)
		for c := range frontier {
			if _, ok := seen[c]; ok {
				continue
			}
			seen[c] = struct{}{}
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			blk, err := s.Get(ctx, c)
			if err != nil {
				if isNotFound(err) {
					continue
				}
				errs = multierr.Append(errs, err)
				continue
			}
			v, err := block.DecodeIpld(blk.CID, blk.Data)
			if err != nil {
				errs = multierr.Append(errs, err)
				continue
			}
			for r := range block.References(v) {
				next[r] = struct{}{}
			}
		}
		if len(next) > 0 {
			stack = append(stack, next)
		}
	}
	if errs != nil {
		return seen, errs
	}
	return seen, nil
}

// DeadPaths returns allCIDs minus the live closure of roots. The result is
// not topologically ordered: consumers that physically delete dead blocks
// must tolerate arbitrary ordering (spec.md §4.5 — deleting a non-root
// never dangles a live pointer, since dead blocks are only ever pointed to
// by other dead blocks).
func DeadPaths(ctx context.Context, s getter, allCIDs []cid.Cid, roots CidSet) (CidSet, error) {
	live, err := Closure(ctx, s, roots)
	if err != nil {
		return nil, err
	}
	dead := make(CidSet)
	for _, c := range allCIDs {
		if _, ok := live[c]; !ok {
			dead[c] = struct{}{}
		}
	}
	return dead, nil
}

// RequireClosure is Closure's strict sibling: a missing block is an error
// rather than a skip. store.Store.Alias uses this to enforce spec.md
// §4.7's "all transitive references of cid must be present; missing ones
// are an error" — a stricter requirement than GC's own tolerance for
// dangling links (§4.5), because setting an alias is a promise that the
// aliased value is currently whole, while GC merely walks whatever
// happens to be there.
func RequireClosure(ctx context.Context, s getter, roots CidSet) (CidSet, error) {
	seen := make(CidSet, len(roots))
	stack := []CidSet{roots}
	for len(stack) > 0 {
		frontier := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		next := make(CidSet)
		for c := range frontier {
			if _, ok := seen[c]; ok {
				continue
			}
			seen[c] = struct{}{}
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			blk, err := s.Get(ctx, c)
			if err != nil {
				return nil, store.ErrAliasUnresolvable
			}
			v, err := block.DecodeIpld(blk.CID, blk.Data)
			if err != nil {
				return nil, store.ErrAliasUnresolvable
			}
			for r := range block.References(v) {
				next[r] = struct{}{}
			}
		}
		if len(next) > 0 {
			stack = append(stack, next)
		}
	}
	return seen, nil
}

func isNotFound(err error) bool {
	_, ok := err.(*store.ErrBlockNotFound)
	return ok
}
