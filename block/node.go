package block

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	format "github.com/ipfs/go-ipld-format"

	"github.com/ipld/go-ipld-store/ipld"
)

// Node adapts a decoded Block to github.com/ipfs/go-ipld-format's Node
// interface, the same interop move Block itself already makes for
// go-block-format: it lets a value decoded by this module keep working with
// the rest of the IPFS/boxo tooling the teacher targets (DAG walkers,
// pinners, exporters) instead of being a dead end once fetched.
type Node struct {
	Block
	Value ipld.Value
}

// ErrNoSuchLink is returned by Resolve/ResolveLink when no link exists at
// the requested path, matching the teacher's own node.go sentinel.
var ErrNoSuchLink = errors.New("block: no such link found")

// DecodeNode decodes blk's data under its CID's codec and wraps the result
// as a format.Node.
func DecodeNode(blk Block) (*Node, error) {
	v, err := DecodeIpld(blk.CID, blk.Data)
	if err != nil {
		return nil, err
	}
	return &Node{Block: blk, Value: v}, nil
}

// Copy implements format.Node.
func (n *Node) Copy() format.Node {
	return &Node{Block: n.Block, Value: n.Value}
}

// Links implements format.Node, returning every CID reachable via a Link
// value anywhere in n, deduplicated by References.
func (n *Node) Links() []*format.Link {
	refs := References(n.Value)
	out := make([]*format.Link, 0, len(refs))
	for c := range refs {
		out = append(out, &format.Link{Cid: c})
	}
	return out
}

// Resolve implements format.Node, walking path through map keys and list
// indices. It stops and returns a *format.Link as soon as one is reached,
// even mid-path, matching the teacher's own Resolve.
func (n *Node) Resolve(path []string) (interface{}, []string, error) {
	cur := n.Value
	for i, seg := range path {
		if c, ok := cur.AsLink(); ok {
			return &format.Link{Cid: c}, path[i:], nil
		}
		switch cur.Kind() {
		case ipld.KindMap:
			next, ok := cur.MapGet(seg)
			if !ok {
				return nil, nil, ErrNoSuchLink
			}
			cur = next
		case ipld.KindList:
			idx, err := strconv.Atoi(seg)
			if err != nil {
				return nil, nil, fmt.Errorf("block: invalid list index %q", seg)
			}
			l, _ := cur.AsList()
			if idx < 0 || idx >= len(l) {
				return nil, nil, fmt.Errorf("block: list index %d out of range", idx)
			}
			cur = l[idx]
		default:
			return nil, nil, errors.New("block: tried to resolve through a value with no links")
		}
	}
	if c, ok := cur.AsLink(); ok {
		return &format.Link{Cid: c}, nil, nil
	}
	return toPlain(cur), nil, nil
}

// ResolveLink implements format.Node.
func (n *Node) ResolveLink(path []string) (*format.Link, []string, error) {
	obj, rest, err := n.Resolve(path)
	if err != nil {
		return nil, nil, err
	}
	lnk, ok := obj.(*format.Link)
	if !ok {
		return nil, rest, fmt.Errorf("block: found non-link value at given path")
	}
	return lnk, rest, nil
}

// Tree implements format.Node, listing "/"-joined paths under path up to
// depth levels deep (depth -1 means unlimited).
func (n *Node) Tree(path string, depth int) []string {
	var all []string
	walkTree(n.Value, "", &all)
	if path == "" && depth < 0 {
		return all
	}
	var out []string
	for _, t := range all {
		if !strings.HasPrefix(t, path) {
			continue
		}
		sub := strings.TrimPrefix(t[len(path):], "/")
		if sub == "" {
			continue
		}
		if depth < 0 || len(strings.Split(sub, "/")) <= depth {
			out = append(out, sub)
		}
	}
	return out
}

func walkTree(v ipld.Value, cur string, out *[]string) {
	switch v.Kind() {
	case ipld.KindMap:
		for _, k := range v.MapKeys() {
			sub := cur + "/" + k
			*out = append(*out, sub[1:])
			e, _ := v.MapGet(k)
			walkTree(e, sub, out)
		}
	case ipld.KindList:
		l, _ := v.AsList()
		for i, e := range l {
			sub := fmt.Sprintf("%s/%d", cur, i)
			*out = append(*out, sub[1:])
			walkTree(e, sub, out)
		}
	}
}

// Size implements format.Node as the encoded byte length of the block.
func (n *Node) Size() (uint64, error) {
	return uint64(len(n.Data)), nil
}

// Stat implements format.Node. Matching the teacher's own Stat (node.go)
// and the rest of the ecosystem's common single-node implementations,
// this returns an empty NodeStat: a meaningful one needs a DAG-wide view
// (cumulative size, link sizes) this single decoded block doesn't have.
func (n *Node) Stat() (*format.NodeStat, error) {
	return &format.NodeStat{}, nil
}

func toPlain(v ipld.Value) interface{} {
	switch v.Kind() {
	case ipld.KindNull:
		return nil
	case ipld.KindBool:
		b, _ := v.AsBool()
		return b
	case ipld.KindInteger:
		i, _ := v.AsInteger()
		return i
	case ipld.KindFloat:
		f, _ := v.AsFloat()
		return f
	case ipld.KindString:
		s, _ := v.AsString()
		return s
	case ipld.KindBytes:
		b, _ := v.AsBytes()
		return b
	case ipld.KindLink:
		c, _ := v.AsLink()
		return &format.Link{Cid: c}
	case ipld.KindList:
		l, _ := v.AsList()
		out := make([]interface{}, len(l))
		for i, e := range l {
			out[i] = toPlain(e)
		}
		return out
	case ipld.KindMap:
		out := make(map[string]interface{}, v.MapLen())
		for _, k := range v.MapKeys() {
			e, _ := v.MapGet(k)
			out[k] = toPlain(e)
		}
		return out
	default:
		return nil
	}
}

var _ format.Node = (*Node)(nil)
