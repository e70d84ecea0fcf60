package codec

import "github.com/ipld/go-ipld-store/ipld"

// rawCodec is the identity codec: wire bytes are the content of an
// ipld.Bytes value, unchanged. Per spec.md §4.1, raw blocks decode to
// Ipld::Bytes(data) regardless of what they actually contain.
type rawCodec struct{}

func (rawCodec) Code() uint64 { return Raw }

func (rawCodec) EncodeValue(v ipld.Value) ([]byte, error) {
	if b, ok := v.AsBytes(); ok {
		return b, nil
	}
	// Any other shape is rejected: raw has no structure of its own, so
	// only a Bytes value can be written as a raw block.
	return nil, &ErrCodec{Code: Raw, Err: errRawNotBytes}
}

func (rawCodec) DecodeValue(b []byte) (ipld.Value, error) {
	return ipld.Bytes(b), nil
}

var errRawNotBytes = rawNotBytesError{}

type rawNotBytesError struct{}

func (rawNotBytesError) Error() string { return "raw codec only encodes ipld.Bytes values" }
