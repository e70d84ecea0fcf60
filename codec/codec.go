// Package codec is the codec registry: a process-wide, statically
// initialized mapping from codec-id to an encode/decode pair over
// ipld.Value, plus the built-in Raw, DAG-CBOR, and DAG-JSON codecs.
package codec

import (
	"errors"
	"fmt"
	"sync"

	"github.com/ipld/go-ipld-store/ipld"
)

// Standard codec identifiers, per spec.md §6.
const (
	Raw     uint64 = 0x55
	DagCBOR uint64 = 0x71
	DagJSON uint64 = 0x0129
)

// ErrUnsupportedCodec names the unregistered-codec condition. Lookup reports
// a miss through its boolean result rather than returning this value, and
// the block package raises its own *block.ErrUnsupportedCodec.
var ErrUnsupportedCodec = errors.New("codec: unsupported codec")

// ErrCodec wraps an error raised by a codec's own Encode/Decode.
type ErrCodec struct {
	Code uint64
	Err  error
}

func (e *ErrCodec) Error() string {
	return fmt.Sprintf("codec 0x%x: %s", e.Code, e.Err)
}

func (e *ErrCodec) Unwrap() error { return e.Err }

// Codec is the capability set a codec implementation provides: encode and
// decode between bytes and an ipld.Value. Concrete record-type
// (de)serialization is layered on top of this by the cache package's
// caller-supplied EncodeFunc/DecodeFunc, which translate between records
// and ipld.Value, the same way the teacher translates between CBOR-ish
// interface{} and caller types.
type Codec interface {
	// Code is this codec's registry key.
	Code() uint64
	// EncodeValue serializes an ipld.Value to its canonical wire form.
	EncodeValue(v ipld.Value) ([]byte, error)
	// DecodeValue parses wire bytes into an ipld.Value.
	DecodeValue(b []byte) (ipld.Value, error)
}

var (
	mu       sync.RWMutex
	registry = map[uint64]Codec{}
)

// Register adds (or replaces) a codec in the process-wide registry.
// Registration is meant to happen once at package init, per spec.md §4.2;
// nothing prevents a later call, but none of the codecs in this module do
// so outside init().
func Register(c Codec) {
	mu.Lock()
	defer mu.Unlock()
	registry[c.Code()] = c
}

// Lookup returns the codec registered for code, if any.
func Lookup(code uint64) (Codec, bool) {
	mu.RLock()
	defer mu.RUnlock()
	c, ok := registry[code]
	return c, ok
}

func init() {
	Register(rawCodec{})
	Register(dagCBORCodec{})
	Register(dagJSONCodec{})
}
