package ndarray

import (
	"fmt"
	"strings"
)

// DType is the element type of an array, named the way numpy names it so the
// `dtype` attribute stays readable by other implementations.
type DType string

const (
	Bool       DType = "bool"
	Int8       DType = "int8"
	Int16      DType = "int16"
	Int32      DType = "int32"
	Int64      DType = "int64"
	Uint8      DType = "uint8"
	Uint16     DType = "uint16"
	Uint32     DType = "uint32"
	Uint64     DType = "uint64"
	Float32    DType = "float32"
	Float64    DType = "float64"
	Complex64  DType = "complex64"
	Complex128 DType = "complex128"
)

var itemSizes = map[DType]int{
	Bool:       1,
	Int8:       1,
	Int16:      2,
	Int32:      4,
	Int64:      8,
	Uint8:      1,
	Uint16:     2,
	Uint32:     4,
	Uint64:     8,
	Float32:    4,
	Float64:    8,
	Complex64:  8,
	Complex128: 16,
}

// aliases accepted by ParseDType besides the canonical names
var dtypeAliases = map[string]DType{
	"float":   Float64,
	"double":  Float64,
	"f8":      Float64,
	"f4":      Float32,
	"int":     Int64,
	"i8":      Int64,
	"i4":      Int32,
	"i2":      Int16,
	"i1":      Int8,
	"u8":      Uint64,
	"u4":      Uint32,
	"u2":      Uint16,
	"u1":      Uint8,
	"byte":    Int8,
	"ubyte":   Uint8,
	"bool_":   Bool,
	"complex": Complex128,
	"c8":      Complex64,
	"c16":     Complex128,
}

// ParseDType resolves a dtype name (canonical or common alias).
func ParseDType(s string) (DType, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	if _, ok := itemSizes[DType(name)]; ok {
		return DType(name), nil
	}
	if d, ok := dtypeAliases[name]; ok {
		return d, nil
	}
	return "", fmt.Errorf("unknown dtype %q", s)
}

// ItemSize returns the size of one element in bytes.
func (d DType) ItemSize() int {
	return itemSizes[d]
}

// Valid reports whether d is a known dtype.
func (d DType) Valid() bool {
	_, ok := itemSizes[d]
	return ok
}

func (d DType) String() string {
	return string(d)
}

// Scalar is the set of Go types an Array can be built from.
type Scalar interface {
	bool | int8 | int16 | int32 | int64 | uint8 | uint16 | uint32 | uint64 |
		float32 | float64 | complex64 | complex128
}

// DTypeOf returns the dtype matching the Go type T.
func DTypeOf[T Scalar]() DType {
	var zero T
	switch any(zero).(type) {
	case bool:
		return Bool
	case int8:
		return Int8
	case int16:
		return Int16
	case int32:
		return Int32
	case int64:
		return Int64
	case uint8:
		return Uint8
	case uint16:
		return Uint16
	case uint32:
		return Uint32
	case uint64:
		return Uint64
	case float32:
		return Float32
	case float64:
		return Float64
	case complex64:
		return Complex64
	default:
		return Complex128
	}
}
