package h5

import (
	"fmt"
	"slices"

	"github.com/ValentinKolb/h5tree/lib/attrs"
	"github.com/ValentinKolb/h5tree/lib/backend"
	"github.com/ValentinKolb/h5tree/lib/ndarray"
)

// --------------------------------------------------------------------------
// Shared helpers
// --------------------------------------------------------------------------

// dtype reads the `dtype` attribute, falling back to the native dtype.
func (n *node) dtype() (ndarray.DType, error) {
	v, ok, err := n.Attrs().Lookup("dtype")
	if err != nil {
		return "", err
	}
	name := attrs.AsString(v)
	if !ok || name == "" {
		info, err := n.t.b.Dataset(n.h)
		if err != nil {
			return "", err
		}
		name = info.DType
	}
	dt, err := ndarray.ParseDType(name)
	if err != nil {
		return "", backend.Errorf(backend.RetCCorruptMetadata, "%s: %v", n.Path(), err)
	}
	return dt, nil
}

// Len returns the number of rows reported by the backend.
func (n *node) Len() (int, error) {
	return n.t.b.RowCount(n.h)
}

// row reads row i of the native dataset.
func (n *node) row(i int) ([]byte, error) {
	rows, err := n.t.b.ReadRows(n.h)
	if err != nil {
		return nil, err
	}
	if i < 0 || i >= len(rows) {
		return nil, backend.Errorf(backend.RetCInvalidArgument, "row %d out of range for %s with %d rows", i, n.Path(), len(rows))
	}
	return rows[i], nil
}

// appendRow appends one native row and increments shape[0]. The shape
// attribute is never recomputed from the backend length.
func (n *node) appendRow(row []byte) error {
	if err := n.t.b.AppendRow(n.h, row); err != nil {
		return err
	}
	shape, err := n.Attrs().shape()
	if err != nil {
		return err
	}
	if len(shape) == 0 {
		return backend.Errorf(backend.RetCCorruptMetadata, "%s has an empty shape attribute", n.Path())
	}
	shape[0]++
	return n.Attrs().Set("shape", shape)
}

// --------------------------------------------------------------------------
// CArray
// --------------------------------------------------------------------------

// CArray is an array whose shape is fixed at creation.
type CArray struct {
	node
}

// Shape returns the `shape` attribute.
func (a *CArray) Shape() ([]int, error) {
	return a.Attrs().shape()
}

// DType returns the element type.
func (a *CArray) DType() (ndarray.DType, error) {
	return a.dtype()
}

// Read returns the whole array.
func (a *CArray) Read() (*ndarray.Array, error) {
	info, err := a.t.b.Dataset(a.h)
	if err != nil {
		return nil, err
	}
	dt, err := a.dtype()
	if err != nil {
		return nil, err
	}
	rows, err := a.t.b.ReadRows(a.h)
	if err != nil {
		return nil, err
	}
	arr, err := ndarray.FromRows(dt, info.ElemShape, rows)
	if err != nil {
		return nil, backend.Errorf(backend.RetCCorruptMetadata, "%s: %v", a.Path(), err)
	}

	// scalars are stored as a single row, the attribute keeps the real shape
	if shape, err := a.Shape(); err == nil && !slices.Equal(shape, arr.Shape()) {
		if reshaped, err := arr.Reshape(shape...); err == nil {
			return reshaped, nil
		}
	}
	return arr, nil
}

// Row returns the slice at index i along axis 0.
func (a *CArray) Row(i int) (*ndarray.Array, error) {
	info, err := a.t.b.Dataset(a.h)
	if err != nil {
		return nil, err
	}
	dt, err := a.dtype()
	if err != nil {
		return nil, err
	}
	row, err := a.row(i)
	if err != nil {
		return nil, err
	}
	return ndarray.New(dt, info.ElemShape, row)
}

func (a *CArray) String() string {
	shape, _ := a.Shape()
	dt, _ := a.dtype()
	return fmt.Sprintf("%s\n  shape := %v\n  dtype := %s", a.node.String(), shape, dt)
}

// --------------------------------------------------------------------------
// EArray
// --------------------------------------------------------------------------

// EArray is an array that grows along axis 0.
type EArray struct {
	CArray
}

// Append adds one element. A payload with the rank of one element gets a
// leading axis of length 1; a payload with leading axis 1 and the element
// shape is taken as is. Anything else is ErrAxisMismatch.
func (a *EArray) Append(data *ndarray.Array) error {
	if data == nil {
		return backend.Errorf(backend.RetCMissingData, "nothing to append to %s", a.Path())
	}
	info, err := a.t.b.Dataset(a.h)
	if err != nil {
		return err
	}
	if string(data.DType()) != info.DType {
		return backend.Errorf(backend.RetCInvalidArgument, "cannot append %s data to %s array %s", data.DType(), info.DType, a.Path())
	}

	shape := data.Shape()
	if len(shape) == len(info.ElemShape) {
		shape = append([]int{1}, shape...)
	}
	if len(shape) == 0 || shape[0] != 1 || !slices.Equal(shape[1:], info.ElemShape) {
		return backend.Errorf(backend.RetCAxisMismatch, "payload shape %v does not fit element shape %v of %s", data.Shape(), info.ElemShape, a.Path())
	}
	return a.appendRow(data.Bytes())
}

// --------------------------------------------------------------------------
// VLArray
// --------------------------------------------------------------------------

// VLArray holds one independently sized one-dimensional element per row.
type VLArray struct {
	node
}

// DType returns the element type.
func (a *VLArray) DType() (ndarray.DType, error) {
	return a.dtype()
}

// Append adds data, flattened, as one element.
func (a *VLArray) Append(data *ndarray.Array) error {
	if data == nil {
		return backend.Errorf(backend.RetCMissingData, "nothing to append to %s", a.Path())
	}
	dt, err := a.dtype()
	if err != nil {
		return err
	}
	if data.DType() != dt {
		return backend.Errorf(backend.RetCInvalidArgument, "cannot append %s data to %s array %s", data.DType(), dt, a.Path())
	}
	return a.appendRow(data.Bytes())
}

// Read returns all elements.
func (a *VLArray) Read() ([]*ndarray.Array, error) {
	dt, err := a.dtype()
	if err != nil {
		return nil, err
	}
	rows, err := a.t.b.ReadRows(a.h)
	if err != nil {
		return nil, err
	}
	out := make([]*ndarray.Array, len(rows))
	for i, row := range rows {
		if out[i], err = a.element(dt, row); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Row returns element i.
func (a *VLArray) Row(i int) (*ndarray.Array, error) {
	dt, err := a.dtype()
	if err != nil {
		return nil, err
	}
	row, err := a.row(i)
	if err != nil {
		return nil, err
	}
	return a.element(dt, row)
}

func (a *VLArray) element(dt ndarray.DType, row []byte) (*ndarray.Array, error) {
	if len(row)%dt.ItemSize() != 0 {
		return nil, backend.Errorf(backend.RetCCorruptMetadata, "element of %s has %d bytes, not a multiple of %s", a.Path(), len(row), dt)
	}
	return ndarray.New(dt, []int{len(row) / dt.ItemSize()}, row)
}

// --------------------------------------------------------------------------
// StringArray
// --------------------------------------------------------------------------

// StringArray is a VLARRAY whose elements are serialized values.
type StringArray struct {
	node
}

// Append serializes v and stores it as one element.
func (a *StringArray) Append(v interface{}) error {
	b, err := attrs.MarshalObject(v)
	if err != nil {
		return backend.Errorf(backend.RetCInvalidArgument, "%v", err)
	}
	return a.appendRow(b)
}

// Read returns all values.
func (a *StringArray) Read() ([]interface{}, error) {
	rows, err := a.t.b.ReadRows(a.h)
	if err != nil {
		return nil, err
	}
	out := make([]interface{}, len(rows))
	for i, row := range rows {
		if out[i], err = attrs.UnmarshalObject(row); err != nil {
			return nil, fmt.Errorf("element %d of %s: %w", i, a.Path(), err)
		}
	}
	return out, nil
}

// Row returns value i.
func (a *StringArray) Row(i int) (interface{}, error) {
	row, err := a.row(i)
	if err != nil {
		return nil, err
	}
	return attrs.UnmarshalObject(row)
}
