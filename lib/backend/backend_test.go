package backend

import (
	"bytes"
	"errors"
	"fmt"
	"slices"
	"testing"
)

func TestErrors(t *testing.T) {
	err := Errorf(RetCNotFound, "no node at %s", "/a")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected errors.Is to match on the code")
	}
	if errors.Is(err, ErrExists) {
		t.Errorf("Different codes must not match")
	}

	wrapped := fmt.Errorf("open: %w", err)
	if !errors.Is(wrapped, ErrNotFound) {
		t.Errorf("Expected wrapped error to match")
	}
	if CodeOf(wrapped) != RetCNotFound {
		t.Errorf("Expected code NotFound, got %s", CodeOf(wrapped))
	}
	if CodeOf(nil) != RetCSuccess || CodeOf(errors.New("x")) != RetCInternalError {
		t.Errorf("Unexpected codes for nil or foreign errors")
	}
	if got := err.Error(); got != "NotFound: no node at /a" {
		t.Errorf("Unexpected message %q", got)
	}
}

func TestParseMode(t *testing.T) {
	for _, m := range []string{"r", "r+", "a", "w"} {
		if _, err := ParseMode(m); err != nil {
			t.Errorf("ParseMode(%q) failed: %v", m, err)
		}
	}
	for _, m := range []string{"", "rw", "x", "R"} {
		if _, err := ParseMode(m); !errors.Is(err, ErrInvalidArgument) {
			t.Errorf("ParseMode(%q): expected InvalidArgument, got %v", m, err)
		}
	}
	if ModeRead.Writable() || !ModeAppend.Writable() {
		t.Errorf("Unexpected Writable result")
	}
}

func TestPaths(t *testing.T) {
	tests := []struct {
		in, clean, base, parent string
		hasParent               bool
	}{
		{"/", "/", "/", "", false},
		{"", "/", "/", "", false},
		{"/a", "/a", "a", "/", true},
		{"a//b/", "/a/b", "b", "/a", true},
		{"/a/b/c", "/a/b/c", "c", "/a/b", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := CleanPath(tt.in); got != tt.clean {
				t.Errorf("CleanPath = %q, want %q", got, tt.clean)
			}
			if got := BaseName(tt.in); got != tt.base {
				t.Errorf("BaseName = %q, want %q", got, tt.base)
			}
			parent, ok := ParentPath(tt.in)
			if ok != tt.hasParent || parent != tt.parent {
				t.Errorf("ParentPath = (%q, %v), want (%q, %v)", parent, ok, tt.parent, tt.hasParent)
			}
		})
	}

	if got := JoinPath("/", "x"); got != "/x" {
		t.Errorf("JoinPath(/, x) = %q", got)
	}
	if got := JoinPath("/a/", "x"); got != "/a/x" {
		t.Errorf("JoinPath(/a/, x) = %q", got)
	}
	if got := SplitPath("/a//b"); !slices.Equal(got, []string{"a", "b"}) {
		t.Errorf("SplitPath = %v", got)
	}
}

func TestParseAttrPath(t *testing.T) {
	node, attr, err := ParseAttrPath("/g/d@shape")
	if err != nil || node != "/g/d" || attr != "shape" {
		t.Errorf("Unexpected result (%q, %q, %v)", node, attr, err)
	}
	node, _, err = ParseAttrPath("@TITLE")
	if err != nil || node != "/" {
		t.Errorf("Expected root for @TITLE, got %q (%v)", node, err)
	}
	for _, bad := range []string{"/g/d", "/g/d@"} {
		if _, _, err := ParseAttrPath(bad); !errors.Is(err, ErrInvalidArgument) {
			t.Errorf("ParseAttrPath(%q): expected InvalidArgument, got %v", bad, err)
		}
	}
}

func TestFilters(t *testing.T) {
	tests := []struct {
		name    string
		level   int
		want    Filter
		wantErr bool
	}{
		{"gzip", 4, Filter{FilterDeflate, 4}, false},
		{"zlib", 4, Filter{FilterDeflate, 4}, false},
		{"ZSTD", 9, Filter{FilterZstd, 9}, false},
		{"gzip", 0, Filter{}, false},
		{"", 5, Filter{}, false},
		{"none", 5, Filter{}, false},
		{"lzf", 5, Filter{}, true},
		{"gzip", 10, Filter{}, true},
		{"gzip", -1, Filter{}, true},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s/%d", tt.name, tt.level), func(t *testing.T) {
			got, err := NormalizeFilter(tt.name, tt.level)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidArgument) {
					t.Fatalf("Expected InvalidArgument, got %v", err)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Errorf("NormalizeFilter = %v (%v), want %v", got, err, tt.want)
			}
		})
	}

	deflate := Filter{FilterDeflate, 5}
	if NativeFilterName(IDTables, deflate) != "zlib" || NativeFilterName(IDH5py, deflate) != "gzip" || NativeFilterName(IDH5pyd, deflate) != "gzip" {
		t.Errorf("Unexpected native deflate names")
	}
	if NativeFilterName(IDTables, Filter{}) != "" {
		t.Errorf("Disabled filters have no native name")
	}
	if (DatasetInfo{FilterName: "zlib", Level: 3}).Filter() != (Filter{FilterDeflate, 3}) {
		t.Errorf("DatasetInfo.Filter should normalize the native name")
	}
}

func TestRawValues(t *testing.T) {
	tests := []struct {
		in   interface{}
		want interface{}
	}{
		{"text", "text"},
		{"", ""},
		{[]byte{0, 1}, []byte{0, 1}},
		{int64(-5), int64(-5)},
		{7, int64(7)},
		{int32(3), int64(3)},
	}

	for _, tt := range tests {
		raw, err := EncodeRaw(tt.in)
		if err != nil {
			t.Fatalf("EncodeRaw(%#v) failed: %v", tt.in, err)
		}
		got, err := DecodeRaw(raw)
		if err != nil {
			t.Fatalf("DecodeRaw failed: %v", err)
		}
		if b, ok := tt.want.([]byte); ok {
			if gb, ok := got.([]byte); !ok || !bytes.Equal(gb, b) {
				t.Errorf("Round trip of %#v returned %#v", tt.in, got)
			}
			continue
		}
		if got != tt.want {
			t.Errorf("Round trip of %#v returned %#v", tt.in, got)
		}
	}

	if _, err := EncodeRaw(1.5); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("Expected floats to be rejected, got %v", err)
	}
	for _, bad := range [][]byte{nil, {'x'}, {'i', 1, 2}} {
		if _, err := DecodeRaw(bad); !errors.Is(err, ErrCorruptMetadata) {
			t.Errorf("DecodeRaw(%v): expected CorruptMetadata, got %v", bad, err)
		}
	}
}

type fakeDriver struct {
	id  ID
	err error
}

func (d fakeDriver) ID() ID                              { return d.id }
func (d fakeDriver) Probe() error                        { return d.err }
func (d fakeDriver) Open(string, Mode) (IBackend, error) { return nil, d.err }

func TestProbe(t *testing.T) {
	caps := Probe(
		fakeDriver{id: IDTables},
		fakeDriver{id: IDH5py, err: errors.New("library missing")},
		nil,
	)

	if !caps.Has(IDTables) || caps.Has(IDH5py) || caps.Has(IDH5pyd) {
		t.Errorf("Unexpected capabilities %v", caps.Available())
	}
	if got := caps.Available(); !slices.Equal(got, []ID{IDTables}) {
		t.Errorf("Available = %v", got)
	}
	if _, err := caps.Driver(IDTables); err != nil {
		t.Errorf("Driver(tables) failed: %v", err)
	}
	for _, id := range []ID{IDH5py, IDH5pyd} {
		if _, err := caps.Driver(id); !errors.Is(err, ErrBackendUnavailable) {
			t.Errorf("Driver(%s): expected BackendUnavailable, got %v", id, err)
		}
	}
}
