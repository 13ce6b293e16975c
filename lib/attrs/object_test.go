package attrs

import (
	"errors"
	"reflect"
	"testing"

	"github.com/ValentinKolb/h5tree/lib/backend"
)

func TestObjectRoundTrip(t *testing.T) {
	values := []interface{}{
		"hello",
		"",
		"ünïcödé",
		[]byte{0, 1, 2, 255},
		3.25,
		true,
		nil,
		[]interface{}{"a", 2.0, int64(2)},
		int64(9007199254740993),
		map[string]interface{}{"k": "v"},
	}

	for _, v := range values {
		b, err := MarshalObject(v)
		if err != nil {
			t.Fatalf("MarshalObject(%#v) failed: %v", v, err)
		}
		if b[0] != objectVersion {
			t.Errorf("Expected version byte %d, got %d", objectVersion, b[0])
		}

		got, err := UnmarshalObject(b)
		if err != nil {
			t.Fatalf("UnmarshalObject failed for %#v: %v", v, err)
		}
		if !reflect.DeepEqual(got, v) {
			t.Errorf("Round trip mismatch: got %#v, want %#v", got, v)
		}
	}
}

func TestObjectCorrupt(t *testing.T) {
	good, _ := MarshalObject("hello")

	tests := map[string][]byte{
		"empty":          {},
		"short":          {objectVersion},
		"bad version":    append([]byte{9}, good[1:]...),
		"bad kind":       append([]byte{objectVersion, 'x'}, good[2:]...),
		"truncated":      good[:len(good)-1],
		"trailing bytes": append(append([]byte{}, good...), 'x'),
	}

	for name, b := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := UnmarshalObject(b)
			if err == nil {
				t.Fatalf("Expected error")
			}
			if !errors.Is(err, backend.ErrCorruptMetadata) {
				t.Errorf("Expected CorruptMetadata, got %v", err)
			}
		})
	}
}
