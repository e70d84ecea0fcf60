package ipld

import "errors"

// Errors raised while resolving a Path against a Value. These are part of
// the shared error surface in §6; the store package re-exposes them
// (directly, via errors.Is) as part of its own taxonomy rather than
// redefining them, since there is exactly one way a path can fail to
// resolve and it happens here.
var (
	ErrKeyNotFound   = errors.New("ipld: key not found")
	ErrIndexNotFound = errors.New("ipld: index not found")
	ErrNotMap        = errors.New("ipld: value is not a map")
	ErrNotList       = errors.New("ipld: value is not a list")
)
