package attrs

import (
	"encoding/binary"
	"fmt"

	"github.com/ValentinKolb/h5tree/lib/backend"
)

// Element encoding of string arrays:
//
//	byte 0     version (objectVersion)
//	byte 1     kind: 's' UTF-8 string, 'b' raw bytes, 'j' JSON document
//	uvarint    payload length
//	payload
const objectVersion byte = 1

const (
	objectKindString byte = 's'
	objectKindBytes  byte = 'b'
	objectKindJSON   byte = 'j'
)

// ErrCorruptObject is returned for element buffers that cannot be decoded.
// It matches backend.ErrCorruptMetadata.
var ErrCorruptObject = backend.NewError(backend.RetCCorruptMetadata, "corrupt object encoding")

// MarshalObject encodes an arbitrary value into a self-describing buffer.
func MarshalObject(v interface{}) ([]byte, error) {
	var (
		kind    byte
		payload []byte
	)
	switch val := v.(type) {
	case string:
		kind, payload = objectKindString, []byte(val)
	case []byte:
		kind, payload = objectKindBytes, val
	default:
		b, err := marshalJSON(val)
		if err != nil {
			return nil, fmt.Errorf("value of type %T cannot be stored in a string array: %w", v, err)
		}
		kind, payload = objectKindJSON, b
	}

	buf := make([]byte, 2, 2+binary.MaxVarintLen64+len(payload))
	buf[0], buf[1] = objectVersion, kind
	buf = binary.AppendUvarint(buf, uint64(len(payload)))
	return append(buf, payload...), nil
}

// UnmarshalObject decodes a buffer produced by MarshalObject.
func UnmarshalObject(b []byte) (interface{}, error) {
	if len(b) < 3 {
		return nil, fmt.Errorf("%w: %d bytes", ErrCorruptObject, len(b))
	}
	if b[0] != objectVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrCorruptObject, b[0])
	}

	n, read := binary.Uvarint(b[2:])
	if read <= 0 {
		return nil, fmt.Errorf("%w: bad length prefix", ErrCorruptObject)
	}
	payload := b[2+read:]
	if uint64(len(payload)) != n {
		return nil, fmt.Errorf("%w: payload has %d bytes, expected %d", ErrCorruptObject, len(payload), n)
	}

	switch b[1] {
	case objectKindString:
		return string(payload), nil
	case objectKindBytes:
		out := make([]byte, len(payload))
		copy(out, payload)
		return out, nil
	case objectKindJSON:
		v, err := unmarshalJSON(payload)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorruptObject, err)
		}
		return v, nil
	default:
		return nil, fmt.Errorf("%w: unknown kind %q", ErrCorruptObject, b[1])
	}
}
