package attrs

import (
	"reflect"
	"testing"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		in   interface{}
		want interface{}
	}{
		{"string", "hello", "hello"},
		{"float", 1.5, 1.5},
		{"int", 42, int64(42)},
		{"large int", int64(9007199254740993), int64(9007199254740993)},
		{"negative int", int64(-7), int64(-7)},
		{"integral float", float64(42), float64(42)},
		{"large float", 1e22, 1e22},
		{"bool", true, true},
		{"null", nil, nil},
		{"list", []interface{}{"a", 1.0, false}, []interface{}{"a", 1.0, false}},
		{"tuple", []int{0, 10}, []interface{}{int64(0), int64(10)}},
		{"float slice", []float64{1, 2.5}, []interface{}{1.0, 2.5}},
		{"map", map[string]interface{}{"x": 1.0, "y": []interface{}{"z"}}, map[string]interface{}{"x": 1.0, "y": []interface{}{"z"}}},
		{"empty string", "", ""},
		{"numeric string", "123", "123"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text, err := Encode(tt.in)
			if err != nil {
				t.Fatalf("Encode failed: %v", err)
			}

			got := Decode(text)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Decode(Encode(%v)) = %#v, want %#v", tt.in, got, tt.want)
			}

			// the same text stored as bytes decodes identically
			got = Decode([]byte(text))
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Decode([]byte) = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestEncodeKeepsFloatFraction(t *testing.T) {
	tests := []struct {
		in   interface{}
		want string
	}{
		{42, "42"},
		{42.0, "42.0"},
		{float32(2), "2.0"},
		{1.5, "1.5"},
		{[]interface{}{1, 1.0}, "[1,1.0]"},
		{map[string]float64{"x": 3}, `{"x":3.0}`},
		{[]byte("ab"), `"YWI="`},
	}
	for _, tt := range tests {
		got, err := Encode(tt.in)
		if err != nil || got != tt.want {
			t.Errorf("Encode(%#v) = %q (%v), want %q", tt.in, got, err, tt.want)
		}
	}
}

func TestDecodeRejectsTrailingData(t *testing.T) {
	if got := Decode("1 2"); got != "1 2" {
		t.Errorf("Expected raw text for two JSON values, got %#v", got)
	}
	if got := Decode(`{"a": 1} x`); got != `{"a": 1} x` {
		t.Errorf("Expected raw text for trailing garbage, got %#v", got)
	}
}

func TestEncodeRejectsUnrepresentable(t *testing.T) {
	if _, err := Encode(make(chan int)); err == nil {
		t.Errorf("Expected error for channel value")
	}
}

func TestDecodeFallsBackToRawText(t *testing.T) {
	if got := Decode("GROUP"); got != "GROUP" {
		t.Errorf("Expected raw text GROUP, got %#v", got)
	}
	if got := Decode(int64(7)); got != int64(7) {
		t.Errorf("Expected int64 passthrough, got %#v", got)
	}
}

func TestDecodeStructural(t *testing.T) {
	tests := []struct {
		name string
		raw  interface{}
		want string
	}{
		{"bytes", []byte("GROUP"), "GROUP"},
		{"text", "CARRAY", "CARRAY"},
		{"json string", `"my title"`, "my title"},
		{"json bytes", []byte(`"my title"`), "my title"},
		{"integer", int64(0), "0"},
		{"float", 0.0, "0"},
		{"nil", nil, ""},
		{"lone quote", `"`, `"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DecodeStructural(tt.raw); got != tt.want {
				t.Errorf("DecodeStructural(%#v) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestDecodeKey(t *testing.T) {
	for _, key := range []string{KeyTitle, KeyClass, KeyExtDim} {
		if _, ok := DecodeKey(key, []byte("x")).(string); !ok {
			t.Errorf("Expected text for structural key %s", key)
		}
	}
	if got := DecodeKey("shape", "[3,4]"); !reflect.DeepEqual(got, []interface{}{int64(3), int64(4)}) {
		t.Errorf("Expected decoded shape, got %#v", got)
	}
}

func TestAsShape(t *testing.T) {
	shape, err := AsShape(Decode("[3, 4]"))
	if err != nil {
		t.Fatalf("AsShape failed: %v", err)
	}
	if !reflect.DeepEqual(shape, []int{3, 4}) {
		t.Errorf("Expected [3 4], got %v", shape)
	}

	if _, err := AsShape(nil); err == nil {
		t.Errorf("Expected error for missing shape")
	}
	if _, err := AsShape(Decode("[-1]")); err == nil {
		t.Errorf("Expected error for negative dimension")
	}
}

func TestEncodeKey(t *testing.T) {
	tests := []struct {
		key     string
		in      interface{}
		want    interface{}
		wantErr bool
	}{
		{KeyTitle, "a title", "a title", false},
		{KeyClass, []byte("GROUP"), "GROUP", false},
		{KeyExtDim, 0, int64(0), false},
		{KeyExtDim, "zero", nil, true},
		{"shape", []int{3, 4}, "[3,4]", false},
		{"dtype", "float64", `"float64"`, false},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			got, err := EncodeKey(tt.key, tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("Expected an error, got %#v", got)
				}
				return
			}
			if err != nil {
				t.Fatalf("EncodeKey failed: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("EncodeKey(%s, %#v) = %#v, want %#v", tt.key, tt.in, got, tt.want)
			}
			if back := DecodeKey(tt.key, got); tt.key == KeyTitle && back != tt.in {
				t.Errorf("DecodeKey did not invert EncodeKey: %#v", back)
			}
		})
	}
}
