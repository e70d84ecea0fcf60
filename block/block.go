// Package block implements the block validator: the pair of (CID, bytes)
// plus the size/hash checks and link extraction of spec.md §4.1, grounded
// on original_source/src/block.rs's validate/create_raw_block/decode_ipld
// and the teacher's WrapObject/DecodeBlock.
package block

import (
	cid "github.com/ipfs/go-cid"

	"github.com/ipld/go-ipld-store/codec"
	"github.com/ipld/go-ipld-store/ipld"
	"github.com/ipld/go-ipld-store/mhash"
)

// Block is an opaque byte sequence addressed by its CID. It satisfies the
// widely used github.com/ipfs/go-block-format Block interface.
type Block struct {
	CID  cid.Cid
	Data []byte
}

// Cid implements the go-block-format Block interface.
func (b Block) Cid() cid.Cid { return b.CID }

// RawData implements the go-block-format Block interface.
func (b Block) RawData() []byte { return b.Data }

func (b Block) String() string { return b.CID.String() }

func (b Block) Loggable() map[string]interface{} {
	return map[string]interface{}{"block_cid": b.CID}
}

// Validate checks that data satisfies the address-integrity invariant for
// cid: it is within the size bound, its declared codec is recognized (or
// raw), and recomputing the digest under cid's declared hash algorithm
// reproduces cid's embedded digest.
func Validate(c cid.Cid, data []byte, maxBlockSize int) error {
	if maxBlockSize > 0 && len(data) > maxBlockSize {
		return &ErrBlockTooLarge{N: len(data)}
	}
	prefix := c.Prefix()
	if prefix.Codec != codec.Raw {
		if _, ok := codec.Lookup(prefix.Codec); !ok {
			return &ErrUnsupportedCodec{Code: prefix.Codec}
		}
	}
	if !mhash.Supported(prefix.MhType) {
		return &ErrUnsupportedMultihash{Code: prefix.MhType}
	}
	computed, err := mhash.Digest(prefix.MhType, data)
	if err != nil {
		return &ErrUnsupportedMultihash{Code: prefix.MhType}
	}
	if !bytesEqual([]byte(computed), []byte(c.Hash())) {
		return &ErrInvalidHash{Computed: computed}
	}
	return nil
}

// CreateRaw wraps data under the raw codec (0x55), hashing it with the
// given multihash code.
func CreateRaw(data []byte, mhCode uint64, maxBlockSize int) (Block, error) {
	if maxBlockSize > 0 && len(data) > maxBlockSize {
		return Block{}, &ErrBlockTooLarge{N: len(data)}
	}
	digest, err := mhash.Digest(mhCode, data)
	if err != nil {
		return Block{}, &ErrUnsupportedMultihash{Code: mhCode}
	}
	c := cid.NewCidV1(codec.Raw, digest)
	return Block{CID: c, Data: data}, nil
}

// Encode serializes v under codec c, hashes the result with mhCode, and
// returns the resulting Block.
func Encode(c codec.Codec, mhCode uint64, v ipld.Value, maxBlockSize int) (Block, error) {
	data, err := c.EncodeValue(v)
	if err != nil {
		return Block{}, err
	}
	if maxBlockSize > 0 && len(data) > maxBlockSize {
		return Block{}, &ErrBlockTooLarge{N: len(data)}
	}
	digest, err := mhash.Digest(mhCode, data)
	if err != nil {
		return Block{}, &ErrUnsupportedMultihash{Code: mhCode}
	}
	blkCid := cid.NewCidV1(c.Code(), digest)
	return Block{CID: blkCid, Data: data}, nil
}

// DecodeIpld is the codec-dispatching decode of spec.md §4.1: raw yields
// Bytes(data); any other codec is looked up in the registry; unknown
// codecs fail with ErrUnsupportedCodec.
func DecodeIpld(c cid.Cid, data []byte) (ipld.Value, error) {
	codecID := c.Prefix().Codec
	if codecID == codec.Raw {
		return ipld.Bytes(data), nil
	}
	cd, ok := codec.Lookup(codecID)
	if !ok {
		return ipld.Value{}, &ErrUnsupportedCodec{Code: codecID}
	}
	return cd.DecodeValue(data)
}

// References returns the set of CIDs appearing as Links anywhere in v,
// deduplicated. Order is irrelevant, per spec.md §4.1.
func References(v ipld.Value) map[cid.Cid]struct{} {
	out := make(map[cid.Cid]struct{})
	// Iter never returns an error here: the yield callback is infallible.
	_ = v.Iter(func(e ipld.Value) error {
		if c, ok := e.AsLink(); ok {
			out[c] = struct{}{}
		}
		return nil
	})
	return out
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
