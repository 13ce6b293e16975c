package backend

import (
	"errors"
	"slices"
	"testing"
)

func TestDatasetSpecValidate(t *testing.T) {
	row := make([]byte, 8*3)

	tests := []struct {
		name     string
		spec     DatasetSpec
		wantElem []int
		wantErr  error
	}{
		{"fixed", DatasetSpec{Kind: KindFixed, DType: "float64", Shape: []int{2, 3}, Rows: [][]byte{row, row}}, []int{3}, nil},
		{"extendable empty", DatasetSpec{Kind: KindExtendable, DType: "float64", Shape: []int{0, 3}}, []int{3}, nil},
		{"varlen", DatasetSpec{Kind: KindVarLen, DType: "uint8", Shape: []int{1}, Rows: [][]byte{{1, 2, 3}}}, nil, nil},
		{"bad dtype", DatasetSpec{Kind: KindFixed, DType: "float128", Shape: []int{1}}, nil, ErrInvalidArgument},
		{"row count", DatasetSpec{Kind: KindFixed, DType: "float64", Shape: []int{3, 3}, Rows: [][]byte{row}}, nil, ErrInvalidArgument},
		{"row size", DatasetSpec{Kind: KindFixed, DType: "float32", Shape: []int{1, 3}, Rows: [][]byte{row}}, nil, ErrAxisMismatch},
		{"no axis", DatasetSpec{Kind: KindExtendable, DType: "int8"}, nil, ErrInvalidArgument},
		{"unknown kind", DatasetSpec{DType: "int8", Shape: []int{0}}, nil, ErrInvalidArgument},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			elem, err := tt.spec.Validate()
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Unexpected error: %v", err)
			}
			if !slices.Equal(elem, tt.wantElem) {
				t.Errorf("Expected element shape %v, got %v", tt.wantElem, elem)
			}
		})
	}
}

func TestCheckRow(t *testing.T) {
	info := DatasetInfo{Kind: KindExtendable, DType: "int16", ElemShape: []int{2, 2}}
	if err := info.CheckRow(make([]byte, 8)); err != nil {
		t.Errorf("Expected 8 byte row to fit, got %v", err)
	}
	if err := info.CheckRow(make([]byte, 6)); !errors.Is(err, ErrAxisMismatch) {
		t.Errorf("Expected AxisMismatch, got %v", err)
	}

	fixed := DatasetInfo{Kind: KindFixed, DType: "int16"}
	if err := fixed.CheckRow(nil); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("Expected InvalidArgument for fixed dataset, got %v", err)
	}
}

func TestMaxShapeOrShape(t *testing.T) {
	ext := DatasetSpec{Kind: KindExtendable, Shape: []int{0, 10}}
	if got := ext.MaxShapeOrShape(); !slices.Equal(got, []int{-1, 10}) {
		t.Errorf("Expected [-1 10], got %v", got)
	}
	fixed := DatasetSpec{Kind: KindFixed, Shape: []int{2, 2}}
	if got := fixed.MaxShapeOrShape(); !slices.Equal(got, []int{2, 2}) {
		t.Errorf("Expected [2 2], got %v", got)
	}
}
