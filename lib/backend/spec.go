package backend

import (
	"slices"

	"github.com/ValentinKolb/h5tree/lib/ndarray"
)

// Validate checks a dataset spec and returns the shape of one row (nil for
// varlen datasets). Every backend calls it before touching storage.
func (s DatasetSpec) Validate() ([]int, error) {
	dtype, err := ndarray.ParseDType(s.DType)
	if err != nil {
		return nil, Errorf(RetCInvalidArgument, "%v", err)
	}

	switch s.Kind {
	case KindFixed, KindExtendable:
		if len(s.Shape) == 0 {
			return nil, Errorf(RetCInvalidArgument, "%s dataset needs at least one axis", s.Kind)
		}
		if s.Shape[0] != len(s.Rows) {
			return nil, Errorf(RetCInvalidArgument, "shape %v announces %d rows, got %d", s.Shape, s.Shape[0], len(s.Rows))
		}
		elem := slices.Clone(s.Shape[1:])
		rowSize := dtype.ItemSize()
		for _, d := range elem {
			if d < 0 {
				return nil, Errorf(RetCInvalidArgument, "negative dimension in shape %v", s.Shape)
			}
			rowSize *= d
		}
		for i, row := range s.Rows {
			if len(row) != rowSize {
				return nil, Errorf(RetCAxisMismatch, "row %d has %d bytes, element shape %v needs %d", i, len(row), elem, rowSize)
			}
		}
		if s.MaxShape != nil && len(s.MaxShape) != len(s.Shape) {
			return nil, Errorf(RetCInvalidArgument, "maxshape %v does not match shape %v", s.MaxShape, s.Shape)
		}
		return elem, nil
	case KindVarLen:
		if len(s.Shape) != 1 || s.Shape[0] != len(s.Rows) {
			return nil, Errorf(RetCInvalidArgument, "varlen dataset needs shape (%d,), got %v", len(s.Rows), s.Shape)
		}
		return nil, nil
	default:
		return nil, Errorf(RetCInvalidArgument, "unknown dataset kind %s", s.Kind)
	}
}

// MaxShapeOrShape returns MaxShape, defaulting to Shape for fixed datasets
// and to an unlimited first axis otherwise.
func (s DatasetSpec) MaxShapeOrShape() []int {
	if s.MaxShape != nil {
		return slices.Clone(s.MaxShape)
	}
	out := slices.Clone(s.Shape)
	if s.Kind != KindFixed && len(out) > 0 {
		out[0] = -1
	}
	return out
}

// CheckRow validates one row appended to a dataset.
func (i DatasetInfo) CheckRow(row []byte) error {
	switch i.Kind {
	case KindVarLen:
		return nil
	case KindExtendable:
		dtype, err := ndarray.ParseDType(i.DType)
		if err != nil {
			return Errorf(RetCCorruptMetadata, "%v", err)
		}
		want := dtype.ItemSize()
		for _, d := range i.ElemShape {
			want *= d
		}
		if len(row) != want {
			return Errorf(RetCAxisMismatch, "row has %d bytes, element shape %v of %s needs %d", len(row), i.ElemShape, dtype, want)
		}
		return nil
	default:
		return Errorf(RetCInvalidArgument, "cannot append to a %s dataset", i.Kind)
	}
}
