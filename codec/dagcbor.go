package codec

import (
	"bytes"
	"fmt"
	"math/big"
	"sort"

	cid "github.com/ipfs/go-cid"
	cbor "github.com/polydawn/refmt/cbor"
	"github.com/polydawn/refmt/obj/atlas"
	"github.com/polydawn/refmt/shared"
	"github.com/polydawn/refmt/tok"

	"github.com/ipld/go-ipld-store/ipld"
)

// CIDTag is the CBOR tag used for IPLD links, per spec.md §6. Grounded
// directly on the teacher's CBORTagLink constant (node.go).
const CIDTag = 42

// bigIntTag follows RFC 7049's convention for unsigned bignums. Negative
// values that don't fit in an int64 are rejected by toNative (Integer values
// that fit an int64 — the overwhelming common case — always take the
// native CBOR integer path instead, so this tag is only exercised by
// genuinely large non-negative integers).
const bigIntTag = 2

var dagCBORAtlas = atlas.MustBuild(
	atlas.BuildEntry(cid.Cid{}).
		UseTag(CIDTag).
		Transform().
		TransformMarshal(atlas.MakeMarshalTransformFunc(castCidToBytes)).
		TransformUnmarshal(atlas.MakeUnmarshalTransformFunc(castBytesToCid)).
		Complete(),
	atlas.BuildEntry(big.Int{}).
		UseTag(bigIntTag).
		Transform().
		TransformMarshal(atlas.MakeMarshalTransformFunc(
			func(i big.Int) ([]byte, error) { return i.Bytes(), nil })).
		TransformUnmarshal(atlas.MakeUnmarshalTransformFunc(
			func(b []byte) (big.Int, error) { return *new(big.Int).SetBytes(b), nil })).
		Complete(),
).WithMapMorphism(atlas.MapMorphism{KeySortMode: atlas.KeySortMode_RFC7049})

func castCidToBytes(link cid.Cid) ([]byte, error) {
	return append([]byte{0}, link.Bytes()...), nil
}

func castBytesToCid(x []byte) (cid.Cid, error) {
	if len(x) == 0 {
		return cid.Cid{}, fmt.Errorf("dagcbor: link value was empty")
	}
	if x[0] != 0 {
		return cid.Cid{}, fmt.Errorf("dagcbor: invalid multibase on IPLD link")
	}
	c, err := cid.Cast(x[1:])
	if err != nil {
		return cid.Cid{}, fmt.Errorf("dagcbor: invalid IPLD link: %w", err)
	}
	return c, nil
}

type dagCBORCodec struct{}

func (dagCBORCodec) Code() uint64 { return DagCBOR }

func (dagCBORCodec) EncodeValue(v ipld.Value) (out []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &ErrCodec{Code: DagCBOR, Err: fmt.Errorf("panic: %v", r)}
		}
	}()
	native, err := toNative(v)
	if err != nil {
		return nil, &ErrCodec{Code: DagCBOR, Err: err}
	}
	out, err = cbor.MarshalAtlased(native, dagCBORAtlas)
	if err != nil {
		return nil, &ErrCodec{Code: DagCBOR, Err: err}
	}
	return out, nil
}

func (dagCBORCodec) DecodeValue(b []byte) (v ipld.Value, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &ErrCodec{Code: DagCBOR, Err: fmt.Errorf("panic: %v", r)}
		}
	}()
	if dupErr := checkCBORNoDuplicateKeys(b); dupErr != nil {
		return ipld.Value{}, &ErrCodec{Code: DagCBOR, Err: dupErr}
	}
	var native interface{}
	if err := cbor.UnmarshalAtlased(b, &native, dagCBORAtlas); err != nil {
		return ipld.Value{}, &ErrCodec{Code: DagCBOR, Err: err}
	}
	v, err = fromNative(native)
	if err != nil {
		return ipld.Value{}, &ErrCodec{Code: DagCBOR, Err: err}
	}
	return v, nil
}

// toNative converts an ipld.Value into the plain Go value refmt's atlased
// marshaller understands (bool, int64, *big.Int as big.Int, float64,
// string, []byte, []interface{}, map[string]interface{}, cid.Cid).
func toNative(v ipld.Value) (interface{}, error) {
	switch v.Kind() {
	case ipld.KindNull:
		return nil, nil
	case ipld.KindBool:
		b, _ := v.AsBool()
		return b, nil
	case ipld.KindInteger:
		i, _ := v.AsInteger()
		if i.IsInt64() {
			return i.Int64(), nil
		}
		if i.Sign() < 0 {
			return nil, fmt.Errorf("dagcbor: negative integer %s outside int64 range is not supported", i)
		}
		return *i, nil
	case ipld.KindFloat:
		f, _ := v.AsFloat()
		return f, nil
	case ipld.KindString:
		s, _ := v.AsString()
		return s, nil
	case ipld.KindBytes:
		b, _ := v.AsBytes()
		return b, nil
	case ipld.KindList:
		l, _ := v.AsList()
		out := make([]interface{}, len(l))
		for i, e := range l {
			n, err := toNative(e)
			if err != nil {
				return nil, err
			}
			out[i] = n
		}
		return out, nil
	case ipld.KindMap:
		out := make(map[string]interface{}, v.MapLen())
		for _, k := range v.MapKeys() {
			e, _ := v.MapGet(k)
			n, err := toNative(e)
			if err != nil {
				return nil, err
			}
			out[k] = n
		}
		return out, nil
	case ipld.KindLink:
		c, _ := v.AsLink()
		return c, nil
	default:
		return nil, fmt.Errorf("dagcbor: unknown value kind %v", v.Kind())
	}
}

// fromNative is the inverse of toNative, tolerant of both map[string]any
// and map[interface{}]any (refmt's untyped decoder may produce either
// depending on key types encountered), matching the teacher's toSaneMap.
func fromNative(n interface{}) (ipld.Value, error) {
	switch t := n.(type) {
	case nil:
		return ipld.Null, nil
	case bool:
		return ipld.Bool(t), nil
	case int64:
		return ipld.Int(t), nil
	case uint64:
		return ipld.Integer(new(big.Int).SetUint64(t)), nil
	case int:
		return ipld.Int(int64(t)), nil
	case big.Int:
		return ipld.Integer(&t), nil
	case float64:
		return ipld.Float(t), nil
	case string:
		return ipld.String(t), nil
	case []byte:
		return ipld.Bytes(t), nil
	case cid.Cid:
		return ipld.Link(t), nil
	case []interface{}:
		vals := make([]ipld.Value, len(t))
		for i, e := range t {
			cv, err := fromNative(e)
			if err != nil {
				return ipld.Value{}, err
			}
			vals[i] = cv
		}
		return ipld.List(vals...), nil
	case map[string]interface{}:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		vals := make([]ipld.Value, len(keys))
		for i, k := range keys {
			cv, err := fromNative(t[k])
			if err != nil {
				return ipld.Value{}, err
			}
			vals[i] = cv
		}
		return ipld.NewMap(keys, vals), nil
	case map[interface{}]interface{}:
		m := make(map[string]interface{}, len(t))
		for k, v := range t {
			ks, ok := k.(string)
			if !ok {
				return ipld.Value{}, fmt.Errorf("dagcbor: map key was not a string: %T", k)
			}
			m[ks] = v
		}
		return fromNative(m)
	default:
		return ipld.Value{}, fmt.Errorf("dagcbor: cannot convert %T to ipld.Value", n)
	}
}

// checkCBORNoDuplicateKeys walks the raw CBOR token stream ahead of the
// atlased decode and rejects maps with a repeated key, as well as any bytes
// left over after the single top-level value. It needs only the
// structural token types (map/array open and close, and string keys) to do
// this, so it doesn't need to understand CBOR tags: whatever value a key's
// tag wraps is consumed uninterpreted by checkCBORValue's default case.
func checkCBORNoDuplicateKeys(b []byte) error {
	r := bytes.NewReader(b)
	src := cbor.NewDecoder(cbor.DecodeOptions{}, r)
	var tk tok.Token
	if _, err := src.Step(&tk); err != nil {
		return err
	}
	if err := checkCBORValue(src, &tk); err != nil {
		return err
	}
	if r.Len() != 0 {
		return fmt.Errorf("dagcbor: %d trailing bytes after top-level value", r.Len())
	}
	return nil
}

func checkCBORValue(src shared.TokenSource, tk *tok.Token) error {
	switch tk.Type {
	case tok.TMapOpen:
		seen := make(map[string]struct{}, tk.Length)
		for {
			if _, err := src.Step(tk); err != nil {
				return err
			}
			if tk.Type == tok.TMapClose {
				return nil
			}
			if tk.Type != tok.TString {
				return fmt.Errorf("dagcbor: non-string map key")
			}
			if _, dup := seen[tk.Str]; dup {
				return fmt.Errorf("dagcbor: duplicate map key %q", tk.Str)
			}
			seen[tk.Str] = struct{}{}
			if _, err := src.Step(tk); err != nil {
				return err
			}
			if err := checkCBORValue(src, tk); err != nil {
				return err
			}
		}
	case tok.TArrOpen:
		for {
			if _, err := src.Step(tk); err != nil {
				return err
			}
			if tk.Type == tok.TArrClose {
				return nil
			}
			if err := checkCBORValue(src, tk); err != nil {
				return err
			}
		}
	default:
		return nil
	}
}
