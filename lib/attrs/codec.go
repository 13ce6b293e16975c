package attrs

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"reflect"
	"strconv"
	"strings"

	"github.com/spf13/cast"
)

// Structural attribute keys. Some native libraries store them as raw bytes,
// they are always read back as text.
const (
	KeyTitle  = "TITLE"
	KeyClass  = "CLASS"
	KeyExtDim = "EXTDIM"
)

// IsStructural reports whether key is one of TITLE, CLASS or EXTDIM.
func IsStructural(key string) bool {
	return key == KeyTitle || key == KeyClass || key == KeyExtDim
}

// Encode converts a value into the JSON text stored as the native attribute.
func Encode(v interface{}) (string, error) {
	b, err := marshalJSON(v)
	if err != nil {
		return "", fmt.Errorf("attribute value of type %T is not JSON representable: %w", v, err)
	}
	return string(b), nil
}

// Decode converts a raw native value back into a Go value. Integral JSON
// numbers become int64, all other numbers float64, arrays []interface{} and
// objects map[string]interface{}. Text that is not JSON is returned as is.
func Decode(raw interface{}) interface{} {
	switch val := raw.(type) {
	case string:
		v, err := unmarshalJSON([]byte(val))
		if err != nil {
			return val
		}
		return v
	case []byte:
		v, err := unmarshalJSON(val)
		if err != nil {
			return val
		}
		return v
	default:
		return raw
	}
}

// --------------------------------------------------------------------------
// JSON numbers
// --------------------------------------------------------------------------

// marshalJSON is json.Marshal except that integral floats keep a fraction
// (42.0 is written as "42.0"), so they decode as float64 again.
func marshalJSON(v interface{}) ([]byte, error) {
	return json.Marshal(markFloats(v))
}

// markFloats copies slices and string keyed maps and replaces integral floats
// by json.Number literals with a ".0" suffix.
func markFloats(v interface{}) interface{} {
	switch val := v.(type) {
	case nil, string, bool, []byte, json.Number:
		return v
	case float64:
		return floatLiteral(val)
	case float32:
		return floatLiteral(float64(val))
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Float32, reflect.Float64:
		return floatLiteral(rv.Float())
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && (rv.IsNil() || rv.Type().Elem().Kind() == reflect.Uint8) {
			return v
		}
		out := make([]interface{}, rv.Len())
		for i := range out {
			out[i] = markFloats(rv.Index(i).Interface())
		}
		return out
	case reflect.Map:
		if rv.IsNil() || rv.Type().Key().Kind() != reflect.String {
			return v
		}
		out := make(map[string]interface{}, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			out[iter.Key().String()] = markFloats(iter.Value().Interface())
		}
		return out
	default:
		return v
	}
}

// floatLiteral returns f unchanged unless it is integral and would be printed
// without exponent.
func floatLiteral(f float64) interface{} {
	if math.IsInf(f, 0) || math.IsNaN(f) || f != math.Trunc(f) || math.Abs(f) >= 1e21 {
		return f
	}
	return json.Number(strconv.FormatFloat(f, 'f', -1, 64) + ".0")
}

// unmarshalJSON decodes a single JSON document with int64 and float64 numbers.
func unmarshalJSON(data []byte) (interface{}, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var v interface{}
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("unexpected data after JSON value")
	}
	return convertNumbers(v)
}

func convertNumbers(v interface{}) (interface{}, error) {
	switch val := v.(type) {
	case json.Number:
		if n, err := val.Int64(); err == nil {
			return n, nil
		}
		return val.Float64()
	case []interface{}:
		for i := range val {
			n, err := convertNumbers(val[i])
			if err != nil {
				return nil, err
			}
			val[i] = n
		}
		return val, nil
	case map[string]interface{}:
		for k := range val {
			n, err := convertNumbers(val[k])
			if err != nil {
				return nil, err
			}
			val[k] = n
		}
		return val, nil
	default:
		return v, nil
	}
}

// DecodeStructural returns the text form of a structural attribute:
// bytes are decoded as UTF-8, JSON string literals are unquoted and
// integers are formatted in decimal.
func DecodeStructural(raw interface{}) string {
	var text string
	switch val := raw.(type) {
	case nil:
		return ""
	case []byte:
		text = string(val)
	case string:
		text = val
	case int64:
		return strconv.FormatInt(val, 10)
	default:
		return cast.ToString(val)
	}

	if len(text) >= 2 && strings.HasPrefix(text, `"`) && strings.HasSuffix(text, `"`) {
		var s string
		if err := json.Unmarshal([]byte(text), &s); err == nil {
			return s
		}
	}
	return text
}

// EncodeKey returns the raw value written for key. Structural keys are stored
// natively (TITLE and CLASS as text, EXTDIM as integer), every other key as
// JSON text.
func EncodeKey(key string, v interface{}) (interface{}, error) {
	switch key {
	case KeyTitle, KeyClass:
		return AsString(v), nil
	case KeyExtDim:
		n, err := cast.ToInt64E(v)
		if err != nil {
			return nil, fmt.Errorf("EXTDIM must be an integer: %w", err)
		}
		return n, nil
	default:
		return Encode(v)
	}
}

// DecodeKey applies DecodeStructural to structural keys and Decode otherwise.
func DecodeKey(key string, raw interface{}) interface{} {
	if IsStructural(key) {
		return DecodeStructural(raw)
	}
	return Decode(raw)
}

// --------------------------------------------------------------------------
// Typed accessors
// --------------------------------------------------------------------------

// AsShape coerces a decoded attribute (usually []interface{} of int64) into
// a shape.
func AsShape(v interface{}) ([]int, error) {
	if v == nil {
		return nil, fmt.Errorf("shape attribute is missing")
	}
	shape, err := cast.ToIntSliceE(v)
	if err != nil {
		return nil, fmt.Errorf("shape attribute %v: %w", v, err)
	}
	for _, d := range shape {
		if d < 0 {
			return nil, fmt.Errorf("shape attribute %v has a negative dimension", v)
		}
	}
	return shape, nil
}

// AsString coerces a decoded attribute into a string ("" for nil).
func AsString(v interface{}) string {
	if v == nil {
		return ""
	}
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return cast.ToString(v)
}
