package compress

import (
	"bytes"
	"testing"

	"github.com/ValentinKolb/h5tree/lib/backend"
)

func TestRoundTrip(t *testing.T) {
	data := bytes.Repeat([]byte("h5tree row payload "), 200)

	tests := []struct {
		name    string
		filter  backend.Filter
		smaller bool
	}{
		{"none", backend.Filter{}, false},
		{"deflate", backend.Filter{Name: backend.FilterDeflate, Level: 6}, true},
		{"zstd", backend.Filter{Name: backend.FilterZstd, Level: 3}, true},
		{"zstd max", backend.Filter{Name: backend.FilterZstd, Level: backend.MaxFilterLevel}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := New(tt.filter)
			if err != nil {
				t.Fatalf("New failed: %v", err)
			}
			defer c.Close()

			packed, err := c.Compress(data)
			if err != nil {
				t.Fatalf("Compress failed: %v", err)
			}
			if tt.smaller && len(packed) >= len(data) {
				t.Errorf("Expected compressed size below %d, got %d", len(data), len(packed))
			}
			if !tt.smaller && !bytes.Equal(packed, data) {
				t.Errorf("Disabled filter must pass data through")
			}

			got, err := c.Decompress(packed)
			if err != nil {
				t.Fatalf("Decompress failed: %v", err)
			}
			if !bytes.Equal(got, data) {
				t.Errorf("Round trip changed the data")
			}

			empty, err := c.Compress(nil)
			if err != nil {
				t.Fatalf("Compress(nil) failed: %v", err)
			}
			if got, err := c.Decompress(empty); err != nil || len(got) != 0 {
				t.Errorf("Expected empty round trip, got %v (%v)", got, err)
			}
		})
	}
}

func TestForNative(t *testing.T) {
	gz, err := ForNative("gzip", 4)
	if err != nil {
		t.Fatalf("ForNative(gzip) failed: %v", err)
	}
	zl, err := ForNative("zlib", 4)
	if err != nil {
		t.Fatalf("ForNative(zlib) failed: %v", err)
	}
	if gz.Filter() != zl.Filter() {
		t.Errorf("gzip and zlib should share one filter, got %v and %v", gz.Filter(), zl.Filter())
	}

	// streams are interchangeable between the two names
	packed, _ := gz.Compress([]byte("shared"))
	got, err := zl.Decompress(packed)
	if err != nil || string(got) != "shared" {
		t.Errorf("Expected zlib to read gzip output, got %q (%v)", got, err)
	}

	if _, err := ForNative("blosc", 4); err == nil {
		t.Error("Expected unknown filters to fail")
	}
}

func TestCorruptInput(t *testing.T) {
	for _, f := range []backend.Filter{
		{Name: backend.FilterDeflate, Level: 1},
		{Name: backend.FilterZstd, Level: 1},
	} {
		c, err := New(f)
		if err != nil {
			t.Fatalf("New failed: %v", err)
		}
		if _, err := c.Decompress([]byte("definitely not compressed")); err == nil {
			t.Errorf("%s: expected an error for garbage input", f)
		}
		c.Close()
	}
}
