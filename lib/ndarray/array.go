package ndarray

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"slices"
	"strings"
)

// Array is a dense, row-major, n-dimensional array. The payload is kept in
// little-endian byte form, which is also how backends store it.
type Array struct {
	dtype DType
	shape []int
	data  []byte
}

// New wraps raw little-endian data. The length of data must match the shape.
func New(dtype DType, shape []int, data []byte) (*Array, error) {
	if !dtype.Valid() {
		return nil, fmt.Errorf("unknown dtype %q", dtype)
	}
	n, err := numElements(shape)
	if err != nil {
		return nil, err
	}
	if want := n * dtype.ItemSize(); len(data) != want {
		return nil, fmt.Errorf("data has %d bytes, shape %v of %s needs %d", len(data), shape, dtype, want)
	}
	return &Array{dtype: dtype, shape: slices.Clone(shape), data: data}, nil
}

// Zeros allocates a zero-filled array.
func Zeros(dtype DType, shape ...int) (*Array, error) {
	n, err := numElements(shape)
	if err != nil {
		return nil, err
	}
	return New(dtype, shape, make([]byte, n*dtype.ItemSize()))
}

// FromSlice builds an array from a Go slice. Without a shape the array is
// one-dimensional.
func FromSlice[T Scalar](values []T, shape ...int) (*Array, error) {
	if len(shape) == 0 {
		shape = []int{len(values)}
	}
	var buf bytes.Buffer
	buf.Grow(len(values) * DTypeOf[T]().ItemSize())
	if err := binary.Write(&buf, binary.LittleEndian, values); err != nil {
		return nil, err
	}
	return New(DTypeOf[T](), shape, buf.Bytes())
}

// Values decodes the payload into a Go slice. T must match the dtype.
func Values[T Scalar](a *Array) ([]T, error) {
	if want := DTypeOf[T](); a.dtype != want {
		return nil, fmt.Errorf("array dtype is %s, not %s", a.dtype, want)
	}
	out := make([]T, a.Size())
	if err := binary.Read(bytes.NewReader(a.data), binary.LittleEndian, out); err != nil {
		return nil, err
	}
	return out, nil
}

// FromRows concatenates rows of identical shape along a new leading axis.
func FromRows(dtype DType, rowShape []int, rows [][]byte) (*Array, error) {
	shape := append([]int{len(rows)}, rowShape...)
	data := bytes.Join(rows, nil)
	if data == nil {
		data = []byte{}
	}
	return New(dtype, shape, data)
}

// DType returns the element type.
func (a *Array) DType() DType { return a.dtype }

// Shape returns a copy of the shape.
func (a *Array) Shape() []int { return slices.Clone(a.shape) }

// Rank returns the number of dimensions.
func (a *Array) Rank() int { return len(a.shape) }

// Size returns the number of elements.
func (a *Array) Size() int {
	n, _ := numElements(a.shape)
	return n
}

// Bytes returns the little-endian payload. The slice is shared.
func (a *Array) Bytes() []byte { return a.data }

// Reshape returns a view with a new shape holding the same number of elements.
func (a *Array) Reshape(shape ...int) (*Array, error) {
	return New(a.dtype, shape, a.data)
}

// RowShape is the shape of one slice along axis 0.
func (a *Array) RowShape() []int {
	if len(a.shape) == 0 {
		return nil
	}
	return slices.Clone(a.shape[1:])
}

// Rows splits the payload along axis 0. Rank-0 arrays have no rows.
func (a *Array) Rows() ([][]byte, error) {
	if len(a.shape) == 0 {
		return nil, fmt.Errorf("scalar array has no rows")
	}
	n := a.shape[0]
	rows := make([][]byte, n)
	if n == 0 {
		return rows, nil
	}
	rowSize := len(a.data) / n
	for i := range rows {
		rows[i] = a.data[i*rowSize : (i+1)*rowSize]
	}
	return rows, nil
}

// Equal reports whether both arrays have the same dtype, shape and payload.
func (a *Array) Equal(b *Array) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.dtype == b.dtype && slices.Equal(a.shape, b.shape) && bytes.Equal(a.data, b.data)
}

func (a *Array) String() string {
	dims := make([]string, len(a.shape))
	for i, d := range a.shape {
		dims[i] = fmt.Sprint(d)
	}
	return fmt.Sprintf("Array(%s, shape=(%s))", a.dtype, strings.Join(dims, ", "))
}

// numElements multiplies the dimensions, rejecting negative ones.
func numElements(shape []int) (int, error) {
	n := 1
	for _, d := range shape {
		if d < 0 {
			return 0, fmt.Errorf("negative dimension in shape %v", shape)
		}
		n *= d
	}
	return n, nil
}
