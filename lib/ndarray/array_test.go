package ndarray

import (
	"slices"
	"testing"
)

func TestFromSliceValues(t *testing.T) {
	values := []float64{1, 2, 3, 4, 5, 6}
	a, err := FromSlice(values, 2, 3)
	if err != nil {
		t.Fatalf("FromSlice failed: %v", err)
	}

	if a.DType() != Float64 {
		t.Errorf("Expected dtype float64, got %s", a.DType())
	}
	if !slices.Equal(a.Shape(), []int{2, 3}) {
		t.Errorf("Expected shape [2 3], got %v", a.Shape())
	}
	if len(a.Bytes()) != 48 {
		t.Errorf("Expected 48 bytes, got %d", len(a.Bytes()))
	}

	got, err := Values[float64](a)
	if err != nil {
		t.Fatalf("Values failed: %v", err)
	}
	if !slices.Equal(got, values) {
		t.Errorf("Expected %v, got %v", values, got)
	}

	if _, err := Values[int32](a); err == nil {
		t.Errorf("Expected dtype mismatch error")
	}
}

func TestShapeValidation(t *testing.T) {
	if _, err := FromSlice([]int32{1, 2, 3}, 2, 2); err == nil {
		t.Errorf("Expected error for 3 values in shape (2,2)")
	}
	if _, err := Zeros(Float32, 2, -1); err == nil {
		t.Errorf("Expected error for negative dimension")
	}
	if _, err := New("float128", []int{1}, make([]byte, 16)); err == nil {
		t.Errorf("Expected error for unknown dtype")
	}
}

func TestRowsRoundTrip(t *testing.T) {
	a, err := FromSlice([]uint16{1, 2, 3, 4, 5, 6}, 3, 2)
	if err != nil {
		t.Fatalf("FromSlice failed: %v", err)
	}

	rows, err := a.Rows()
	if err != nil {
		t.Fatalf("Rows failed: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("Expected 3 rows, got %d", len(rows))
	}
	for i, row := range rows {
		if len(row) != 4 {
			t.Errorf("Row %d: expected 4 bytes, got %d", i, len(row))
		}
	}

	b, err := FromRows(Uint16, a.RowShape(), rows)
	if err != nil {
		t.Fatalf("FromRows failed: %v", err)
	}
	if !a.Equal(b) {
		t.Errorf("Expected %s to equal %s", b, a)
	}

	empty, err := FromRows(Float64, []int{10}, nil)
	if err != nil {
		t.Fatalf("FromRows (empty) failed: %v", err)
	}
	if !slices.Equal(empty.Shape(), []int{0, 10}) {
		t.Errorf("Expected shape [0 10], got %v", empty.Shape())
	}
}

func TestParseDType(t *testing.T) {
	tests := []struct {
		in      string
		want    DType
		wantErr bool
	}{
		{"float64", Float64, false},
		{"Float32", Float32, false},
		{"f8", Float64, false},
		{"u1", Uint8, false},
		{"complex", Complex128, false},
		{"string", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDType(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseDType(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseDType(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestReshape(t *testing.T) {
	a, _ := FromSlice([]int8{1, 2, 3, 4})
	b, err := a.Reshape(1, 4)
	if err != nil {
		t.Fatalf("Reshape failed: %v", err)
	}
	if b.Rank() != 2 || b.Size() != 4 {
		t.Errorf("Expected rank 2 and size 4, got rank %d size %d", b.Rank(), b.Size())
	}
	if _, err := a.Reshape(3); err == nil {
		t.Errorf("Expected error when reshaping 4 elements to (3)")
	}
}
