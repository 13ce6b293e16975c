package backend

import (
	"encoding/binary"
)

// Raw attribute values are tagged with one byte when a backend has no native
// type system of its own (KV engines, RPC messages).
const (
	rawTagText  byte = 't'
	rawTagBytes byte = 'b'
	rawTagInt   byte = 'i'
)

// EncodeRaw serializes a raw attribute value (string, []byte or an integer).
func EncodeRaw(v interface{}) ([]byte, error) {
	switch val := v.(type) {
	case string:
		return append([]byte{rawTagText}, val...), nil
	case []byte:
		return append([]byte{rawTagBytes}, val...), nil
	case int:
		return encodeRawInt(int64(val)), nil
	case int64:
		return encodeRawInt(val), nil
	case int32:
		return encodeRawInt(int64(val)), nil
	default:
		return nil, Errorf(RetCInvalidArgument, "unsupported raw attribute type %T", v)
	}
}

func encodeRawInt(v int64) []byte {
	buf := make([]byte, 9)
	buf[0] = rawTagInt
	binary.BigEndian.PutUint64(buf[1:], uint64(v))
	return buf
}

// DecodeRaw is the inverse of EncodeRaw.
func DecodeRaw(b []byte) (interface{}, error) {
	if len(b) == 0 {
		return nil, Errorf(RetCCorruptMetadata, "empty raw attribute")
	}
	switch b[0] {
	case rawTagText:
		return string(b[1:]), nil
	case rawTagBytes:
		out := make([]byte, len(b)-1)
		copy(out, b[1:])
		return out, nil
	case rawTagInt:
		if len(b) != 9 {
			return nil, Errorf(RetCCorruptMetadata, "raw integer attribute has %d bytes", len(b))
		}
		return int64(binary.BigEndian.Uint64(b[1:])), nil
	default:
		return nil, Errorf(RetCCorruptMetadata, "unknown raw attribute tag %q", b[0])
	}
}

// NormalizeRaw converts the accepted integer kinds to int64 and rejects
// anything that cannot be stored natively.
func NormalizeRaw(v interface{}) (interface{}, error) {
	switch val := v.(type) {
	case string, []byte, int64:
		return val, nil
	case int:
		return int64(val), nil
	case int32:
		return int64(val), nil
	default:
		return nil, Errorf(RetCInvalidArgument, "unsupported raw attribute type %T", v)
	}
}
