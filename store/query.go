package store

import (
	"context"

	cid "github.com/ipfs/go-cid"

	"github.com/ipld/go-ipld-store/block"
	"github.com/ipld/go-ipld-store/ipld"
)

// DagPath names a value reachable from a root block by a sequence of
// path segments, crossing Links by reloading the linked block
// (spec.md §4.7).
type DagPath struct {
	Root cid.Cid
	Path ipld.Path
}

// NewDagPath builds a DagPath from a root CID and a "/"-delimited path
// string.
func NewDagPath(root cid.Cid, path string) DagPath {
	return DagPath{Root: root, Path: ipld.ParsePath(path)}
}

// getter is the minimal surface Resolve needs from a Store: just Get.
// Backends pass themselves (or an internal helper with the same shape).
type getter interface {
	Get(ctx context.Context, c cid.Cid) (block.Block, error)
}

// ResolvePath implements the generic half of Store.Query: load the root
// block, resolve path against it, and whenever resolution bottoms out at
// a Link with segments remaining, load the linked block and continue.
// Backend Query implementations should be a one-line call to this.
func ResolvePath(ctx context.Context, s getter, path DagPath) (ipld.Value, error) {
	c := path.Root
	rest := path.Path
	for {
		blk, err := s.Get(ctx, c)
		if err != nil {
			return ipld.Value{}, err
		}
		v, err := block.DecodeIpld(blk.CID, blk.Data)
		if err != nil {
			return ipld.Value{}, err
		}
		res, err := ipld.Resolve(v, rest)
		if err != nil {
			return ipld.Value{}, err
		}
		if res.Link == nil {
			return res.Value, nil
		}
		lc, _ := res.Link.AsLink()
		c = lc
		rest = res.Rest
	}
}
