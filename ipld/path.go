package ipld

import (
	"strconv"
	"strings"
)

// Segment is one step of a DagPath: either a map key or a list index.
type Segment string

// Path is a sequence of path segments resolved against a root Value,
// crossing Links by reloading the linked block (see store.Query).
type Path []Segment

// ParsePath splits a "/"-delimited path string into segments, ignoring
// leading/trailing/empty components (mirroring the teacher's Tree/Resolve
// path handling in node.go).
func ParsePath(s string) Path {
	var out Path
	for _, p := range strings.Split(s, "/") {
		if p == "" {
			continue
		}
		out = append(out, Segment(p))
	}
	return out
}

func (p Path) String() string {
	parts := make([]string, len(p))
	for i, s := range p {
		parts[i] = string(s)
	}
	return strings.Join(parts, "/")
}

// ResolveResult is what Resolve found, plus everything it wasn't able to
// resolve without crossing a link (mirrors go-ipld-format's Resolve, but
// typed over ipld.Value instead of interface{}).
type ResolveResult struct {
	Value Value
	// Link is set instead of Value when the path ends at, or passes
	// through, a Link: the caller must load the linked block and resume
	// resolution with Rest.
	Link *Value
	Rest Path
}

// Resolve walks path segments into v, stopping either when path is
// exhausted or when it encounters a Link (links are never resolved here:
// that requires fetching another block, which is the Store's job, not the
// value model's).
func Resolve(v Value, path Path) (ResolveResult, error) {
	cur := v
	for i, seg := range path {
		if cur.Kind() == KindLink {
			lv := cur
			return ResolveResult{Link: &lv, Rest: path[i:]}, nil
		}
		if _, err := strconv.Atoi(string(seg)); err == nil {
			if cur.Kind() != KindList {
				return ResolveResult{}, ErrNotList
			}
			idx, _ := strconv.Atoi(string(seg))
			next, ok := cur.ListGet(idx)
			if !ok {
				return ResolveResult{}, ErrIndexNotFound
			}
			cur = next
			continue
		}
		if cur.Kind() != KindMap {
			return ResolveResult{}, ErrNotMap
		}
		next, ok := cur.MapGet(string(seg))
		if !ok {
			return ResolveResult{}, ErrKeyNotFound
		}
		cur = next
	}
	if cur.Kind() == KindLink {
		lv := cur
		return ResolveResult{Link: &lv}, nil
	}
	return ResolveResult{Value: cur}, nil
}
