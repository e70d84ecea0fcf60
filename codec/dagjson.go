package codec

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math/big"
	"sort"

	cid "github.com/ipfs/go-cid"

	"github.com/ipld/go-ipld-store/ipld"
)

// dagJSONCodec implements the tagged-JSON encoding of §6: links as
// {"/": "<cid-string>"} and bytes as {"/": {"base64": "..."}}, grounded on
// the teacher's convertToJSONIsh/convertToCborIshObj (node.go). encoding/json
// already sorts map[string]interface{} keys lexicographically on Marshal,
// which gives canonical map ordering for free.
type dagJSONCodec struct{}

func (dagJSONCodec) Code() uint64 { return DagJSON }

func (dagJSONCodec) EncodeValue(v ipld.Value) ([]byte, error) {
	j, err := toJSONIsh(v)
	if err != nil {
		return nil, &ErrCodec{Code: DagJSON, Err: err}
	}
	b, err := json.Marshal(j)
	if err != nil {
		return nil, &ErrCodec{Code: DagJSON, Err: err}
	}
	return b, nil
}

func (dagJSONCodec) DecodeValue(b []byte) (ipld.Value, error) {
	if err := checkJSONNoDuplicateKeys(b); err != nil {
		return ipld.Value{}, &ErrCodec{Code: DagJSON, Err: err}
	}
	var raw interface{}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return ipld.Value{}, &ErrCodec{Code: DagJSON, Err: err}
	}
	v, err := fromJSONIsh(raw)
	if err != nil {
		return ipld.Value{}, &ErrCodec{Code: DagJSON, Err: err}
	}
	return v, nil
}

// checkJSONNoDuplicateKeys walks the document with json.Decoder.Token ahead
// of the ordinary Decode into interface{}, which silently lets a later key
// clobber an earlier one. Token-walking surfaces every key, including
// repeats, before that collapse happens.
func checkJSONNoDuplicateKeys(b []byte) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	return checkJSONValue(dec)
}

func checkJSONValue(dec *json.Decoder) error {
	t, err := dec.Token()
	if err != nil {
		return err
	}
	return checkJSONValueTok(dec, t)
}

func checkJSONValueTok(dec *json.Decoder, t json.Token) error {
	delim, ok := t.(json.Delim)
	if !ok {
		return nil
	}
	switch delim {
	case '{':
		seen := make(map[string]struct{})
		for dec.More() {
			kt, err := dec.Token()
			if err != nil {
				return err
			}
			key, ok := kt.(string)
			if !ok {
				return fmt.Errorf("dagjson: non-string object key")
			}
			if _, dup := seen[key]; dup {
				return fmt.Errorf("dagjson: duplicate object key %q", key)
			}
			seen[key] = struct{}{}
			if err := checkJSONValue(dec); err != nil {
				return err
			}
		}
		_, err := dec.Token() // closing '}'
		return err
	case '[':
		for dec.More() {
			if err := checkJSONValue(dec); err != nil {
				return err
			}
		}
		_, err := dec.Token() // closing ']'
		return err
	}
	return nil
}

func toJSONIsh(v ipld.Value) (interface{}, error) {
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
		return json.Number(i.String()), nil
	case ipld.KindFloat:
		f, _ := v.AsFloat()
		return f, nil
	case ipld.KindString:
		s, _ := v.AsString()
		return s, nil
	case ipld.KindBytes:
		b, _ := v.AsBytes()
		return map[string]interface{}{
			"/": map[string]interface{}{"base64": base64.StdEncoding.EncodeToString(b)},
		}, nil
	case ipld.KindLink:
		c, _ := v.AsLink()
		return map[string]interface{}{"/": c.String()}, nil
	case ipld.KindList:
		l, _ := v.AsList()
		out := make([]interface{}, len(l))
		for i, e := range l {
			j, err := toJSONIsh(e)
			if err != nil {
				return nil, err
			}
			out[i] = j
		}
		return out, nil
	case ipld.KindMap:
		out := make(map[string]interface{}, v.MapLen())
		for _, k := range v.MapKeys() {
			e, _ := v.MapGet(k)
			j, err := toJSONIsh(e)
			if err != nil {
				return nil, err
			}
			out[k] = j
		}
		return out, nil
	default:
		return nil, fmt.Errorf("dagjson: unknown value kind %v", v.Kind())
	}
}

func fromJSONIsh(v interface{}) (ipld.Value, error) {
	switch t := v.(type) {
	case nil:
		return ipld.Null, nil
	case bool:
		return ipld.Bool(t), nil
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return ipld.Int(i), nil
		}
		bi, ok := new(big.Int).SetString(t.String(), 10)
		if ok {
			return ipld.Integer(bi), nil
		}
		f, err := t.Float64()
		if err != nil {
			return ipld.Value{}, fmt.Errorf("dagjson: invalid number %q", t.String())
		}
		return ipld.Float(f), nil
	case string:
		return ipld.String(t), nil
	case []interface{}:
		vals := make([]ipld.Value, len(t))
		for i, e := range t {
			cv, err := fromJSONIsh(e)
			if err != nil {
				return ipld.Value{}, err
			}
			vals[i] = cv
		}
		return ipld.List(vals...), nil
	case map[string]interface{}:
		if link, ok := t["/"]; ok && len(t) == 1 {
			switch lv := link.(type) {
			case string:
				c, err := cid.Decode(lv)
				if err != nil {
					return ipld.Value{}, fmt.Errorf("dagjson: invalid link: %w", err)
				}
				return ipld.Link(c), nil
			case map[string]interface{}:
				b64, ok := lv["base64"].(string)
				if !ok {
					return ipld.Value{}, fmt.Errorf("dagjson: bytes tag missing base64 field")
				}
				raw, err := base64.StdEncoding.DecodeString(b64)
				if err != nil {
					return ipld.Value{}, fmt.Errorf("dagjson: invalid base64 bytes: %w", err)
				}
				return ipld.Bytes(raw), nil
			default:
				return ipld.Value{}, fmt.Errorf("dagjson: unrecognized tagged value under \"/\"")
			}
		}
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		vals := make([]ipld.Value, len(keys))
		for i, k := range keys {
			cv, err := fromJSONIsh(t[k])
			if err != nil {
				return ipld.Value{}, err
			}
			vals[i] = cv
		}
		return ipld.NewMap(keys, vals), nil
	default:
		return ipld.Value{}, fmt.Errorf("dagjson: cannot convert %T to ipld.Value", v)
	}
}
