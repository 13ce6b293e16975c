package testing

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"
	"slices"
	"testing"

	"github.com/ValentinKolb/h5tree/lib/backend"
)

// Fixture is one backend under test. Path maps a file name to the location
// the driver expects (a temp dir for local drivers, a name below the data
// directory for the remote one).
type Fixture struct {
	Driver backend.IDriver
	Path   func(name string) string
}

// Factory creates a fresh fixture for every test.
type Factory func(t testing.TB) Fixture

// RunBackendTests runs the conformance suite every IBackend implementation
// must pass.
func RunBackendTests(t *testing.T, name string, factory Factory) {
	t.Run(name, func(t *testing.T) {
		t.Run("Probe", func(t *testing.T) {
			testProbe(t, factory(t))
		})

		t.Run("OpenModes", func(t *testing.T) {
			testOpenModes(t, factory(t))
		})

		t.Run("Navigation", func(t *testing.T) {
			testNavigation(t, factory(t))
		})

		t.Run("Groups", func(t *testing.T) {
			testGroups(t, factory(t))
		})

		t.Run("Attributes", func(t *testing.T) {
			testAttributes(t, factory(t))
		})

		t.Run("FixedDataset", func(t *testing.T) {
			testFixedDataset(t, factory(t))
		})

		t.Run("ExtendableDataset", func(t *testing.T) {
			testExtendableDataset(t, factory(t))
		})

		t.Run("VarLenDataset", func(t *testing.T) {
			testVarLenDataset(t, factory(t))
		})

		t.Run("Compression", func(t *testing.T) {
			testCompression(t, factory(t))
		})

		t.Run("Persistence", func(t *testing.T) {
			testPersistence(t, factory(t))
		})

		t.Run("ReadOnly", func(t *testing.T) {
			testReadOnly(t, factory(t))
		})

		t.Run("CopyTo", func(t *testing.T) {
			testCopyTo(t, factory(t))
		})

		t.Run("Closed", func(t *testing.T) {
			testClosed(t, factory(t))
		})
	})
}

// --------------------------------------------------------------------------
// Helper functions
// --------------------------------------------------------------------------

func open(t testing.TB, f Fixture, name string, mode backend.Mode) backend.IBackend {
	t.Helper()
	b, err := f.Driver.Open(f.Path(name), mode)
	if err != nil {
		t.Fatalf("Open(%s, %s) failed: %v", name, mode, err)
	}
	t.Cleanup(func() {
		_ = b.Close()
	})
	return b
}

func root(t testing.TB, b backend.IBackend) backend.Handle {
	t.Helper()
	h, err := b.Root()
	if err != nil {
		t.Fatalf("Root failed: %v", err)
	}
	return h
}

func mustGroup(t testing.TB, b backend.IBackend, parent backend.Handle, name, title string) backend.Handle {
	t.Helper()
	h, err := b.CreateGroup(parent, name, title)
	if err != nil {
		t.Fatalf("CreateGroup(%s) failed: %v", name, err)
	}
	return h
}

func childNames(t testing.TB, b backend.IBackend, h backend.Handle) []string {
	t.Helper()
	children, err := b.Children(h)
	if err != nil {
		t.Fatalf("Children(%s) failed: %v", h.Path(), err)
	}
	names := make([]string, len(children))
	for i, c := range children {
		names[i] = c.Name
	}
	return names
}

// rawText reads a structural attribute the way the attribute codec does:
// bytes and text are both accepted.
func rawText(t testing.TB, b backend.IBackend, h backend.Handle, key string) string {
	t.Helper()
	v, ok, err := b.GetAttr(h, key)
	if err != nil || !ok {
		t.Fatalf("GetAttr(%s, %s) = ok %v, err %v", h.Path(), key, ok, err)
	}
	switch val := v.(type) {
	case string:
		return val
	case []byte:
		return string(val)
	default:
		t.Fatalf("GetAttr(%s, %s) returned %T, expected text or bytes", h.Path(), key, v)
		return ""
	}
}

func expectErr(t testing.TB, err, target error) {
	t.Helper()
	if !errors.Is(err, target) {
		t.Errorf("Expected error %v, got %v", target, err)
	}
}

func float64Row(values ...float64) []byte {
	out := make([]byte, 0, 8*len(values))
	for _, v := range values {
		out = binary.LittleEndian.AppendUint64(out, math.Float64bits(v))
	}
	return out
}

// --------------------------------------------------------------------------
// Test functions
// --------------------------------------------------------------------------

func testProbe(t *testing.T, f Fixture) {
	if err := f.Driver.Probe(); err != nil {
		t.Fatalf("Probe failed: %v", err)
	}
	caps := backend.Probe(f.Driver)
	if !caps.Has(f.Driver.ID()) {
		t.Errorf("Expected %s to be available after a successful probe", f.Driver.ID())
	}
}

func testOpenModes(t *testing.T, f Fixture) {
	if _, err := f.Driver.Open(f.Path("missing.h5"), backend.ModeRead); !errors.Is(err, backend.ErrNotFound) {
		t.Errorf("Expected NotFound when opening a missing file with r, got %v", err)
	}
	if _, err := f.Driver.Open(f.Path("missing.h5"), backend.ModeReadWrite); !errors.Is(err, backend.ErrNotFound) {
		t.Errorf("Expected NotFound when opening a missing file with r+, got %v", err)
	}
	if _, err := f.Driver.Open(f.Path("x.h5"), backend.Mode("rw")); !errors.Is(err, backend.ErrInvalidArgument) {
		t.Errorf("Expected InvalidArgument for mode rw, got %v", err)
	}

	b, err := f.Driver.Open(f.Path("modes.h5"), backend.ModeWrite)
	if err != nil {
		t.Fatalf("Open(w) failed: %v", err)
	}
	if b.ID() != f.Driver.ID() || b.Mode() != backend.ModeWrite || !b.IsOpen() {
		t.Errorf("Unexpected session info: id %s, mode %s, open %v", b.ID(), b.Mode(), b.IsOpen())
	}
	mustGroup(t, b, root(t, b), "kept", "")
	if err := b.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	// a keeps the content
	b = open(t, f, "modes.h5", backend.ModeAppend)
	if names := childNames(t, b, root(t, b)); !slices.Equal(names, []string{"kept"}) {
		t.Errorf("Expected [kept] after reopening with a, got %v", names)
	}
	if err := b.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	// w truncates
	b = open(t, f, "modes.h5", backend.ModeWrite)
	if names := childNames(t, b, root(t, b)); len(names) != 0 {
		t.Errorf("Expected empty root after reopening with w, got %v", names)
	}

	// a creates missing files
	c := open(t, f, "created.h5", backend.ModeAppend)
	if _, err := c.Lookup("/"); err != nil {
		t.Errorf("Expected root in a new file, got %v", err)
	}
}

func testNavigation(t *testing.T, f Fixture) {
	b := open(t, f, "nav.h5", backend.ModeWrite)

	r := root(t, b)
	if r.Path() != "/" {
		t.Errorf("Expected root path /, got %s", r.Path())
	}
	if _, ok, err := b.Parent(r); err != nil || ok {
		t.Errorf("Expected root to have no parent, got ok=%v err=%v", ok, err)
	}

	g := mustGroup(t, b, r, "g", "")
	h := mustGroup(t, b, g, "h", "")

	tests := []struct {
		path    string
		want    string
		wantErr error
	}{
		{"/", "/", nil},
		{"/g", "/g", nil},
		{"g/h/", "/g/h", nil},
		{"/g/missing", "", backend.ErrNotFound},
		{"/G", "", backend.ErrNotFound},
	}
	for _, tt := range tests {
		got, err := b.Lookup(tt.path)
		if tt.wantErr != nil {
			expectErr(t, err, tt.wantErr)
			continue
		}
		if err != nil {
			t.Errorf("Lookup(%q) failed: %v", tt.path, err)
			continue
		}
		if got.Path() != tt.want {
			t.Errorf("Lookup(%q) = %s, want %s", tt.path, got.Path(), tt.want)
		}
	}

	p, ok, err := b.Parent(h)
	if err != nil || !ok || p.Path() != "/g" {
		t.Errorf("Expected parent /g, got %v (ok=%v, err=%v)", p, ok, err)
	}
}

func testGroups(t *testing.T, f Fixture) {
	b := open(t, f, "groups.h5", backend.ModeWrite)
	r := root(t, b)

	order := []string{"zeta", "Alpha", "mid", "beta"}
	for _, name := range order {
		mustGroup(t, b, r, name, "title of "+name)
	}
	if names := childNames(t, b, r); !slices.Equal(names, order) {
		t.Errorf("Expected insertion order %v, got %v", order, names)
	}

	g, err := b.Lookup("/Alpha")
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if title := rawText(t, b, g, "TITLE"); title != "title of Alpha" {
		t.Errorf("Expected TITLE 'title of Alpha', got %q", title)
	}
	if class := rawText(t, b, g, "CLASS"); class != "GROUP" {
		t.Errorf("Expected CLASS GROUP, got %q", class)
	}

	_, err = b.CreateGroup(r, "mid", "")
	expectErr(t, err, backend.ErrExists)

	for _, bad := range []string{"", "a/b", "nul\x00"} {
		_, err := b.CreateGroup(r, bad, "")
		expectErr(t, err, backend.ErrInvalidArgument)
	}
	if names := childNames(t, b, r); len(names) != len(order) {
		t.Errorf("Failed creations must not add children, got %v", names)
	}
}

func testAttributes(t *testing.T, f Fixture) {
	b := open(t, f, "attrs.h5", backend.ModeWrite)
	g := mustGroup(t, b, root(t, b), "g", "")

	tests := []struct {
		key   string
		value interface{}
		want  interface{}
	}{
		{"text", `{"a": [1, 2]}`, `{"a": [1, 2]}`},
		{"bytes", []byte{0, 1, 0xff}, []byte{0, 1, 0xff}},
		{"int", int64(-42), int64(-42)},
		{"plainint", 7, int64(7)},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		if err := b.SetAttr(g, tt.key, tt.value); err != nil {
			t.Fatalf("SetAttr(%s) failed: %v", tt.key, err)
		}
	}
	for _, tt := range tests {
		got, ok, err := b.GetAttr(g, tt.key)
		if err != nil || !ok {
			t.Errorf("GetAttr(%s) = ok %v, err %v", tt.key, ok, err)
			continue
		}
		switch want := tt.want.(type) {
		case []byte:
			gb, isBytes := got.([]byte)
			if !isBytes || !bytes.Equal(gb, want) {
				t.Errorf("GetAttr(%s) = %#v, want %#v", tt.key, got, want)
			}
		default:
			if got != want {
				t.Errorf("GetAttr(%s) = %#v, want %#v", tt.key, got, want)
			}
		}
	}

	if _, ok, err := b.GetAttr(g, "missing"); err != nil || ok {
		t.Errorf("Expected missing attribute to report ok=false, got ok=%v err=%v", ok, err)
	}

	// replacing keeps the position
	if err := b.SetAttr(g, "bytes", "replaced"); err != nil {
		t.Fatalf("SetAttr failed: %v", err)
	}
	names, err := b.AttrNames(g)
	if err != nil {
		t.Fatalf("AttrNames failed: %v", err)
	}
	want := []string{"TITLE", "CLASS", "text", "bytes", "int", "plainint", "empty"}
	if !slices.Equal(names, want) {
		t.Errorf("AttrNames = %v, want %v", names, want)
	}

	all, err := b.Attrs(g)
	if err != nil {
		t.Fatalf("Attrs failed: %v", err)
	}
	if len(all) != len(want) || all["bytes"] != "replaced" {
		t.Errorf("Unexpected Attrs result: %#v", all)
	}

	expectErr(t, b.SetAttr(g, "float", 1.5), backend.ErrInvalidArgument)
	expectErr(t, b.SetAttr(g, "", "x"), backend.ErrInvalidArgument)

	_, _, err = b.GetAttr(&pathHandle{"/nope"}, "x")
	expectErr(t, err, backend.ErrNotFound)
}

func testFixedDataset(t *testing.T, f Fixture) {
	b := open(t, f, "fixed.h5", backend.ModeWrite)
	r := root(t, b)

	rows := [][]byte{float64Row(1, 2, 3), float64Row(4, 5, 6)}
	h, err := b.CreateDataset(r, "carray", backend.DatasetSpec{
		Kind:  backend.KindFixed,
		DType: "float64",
		Shape: []int{2, 3},
		Rows:  rows,
		Title: "fixed",
		Class: "CARRAY",
		Attrs: []backend.Attr{{Name: "shape", Value: "[2, 3]"}},
	})
	if err != nil {
		t.Fatalf("CreateDataset failed: %v", err)
	}

	info, err := b.Dataset(h)
	if err != nil {
		t.Fatalf("Dataset failed: %v", err)
	}
	if info.Kind != backend.KindFixed || info.DType != "float64" || !slices.Equal(info.ElemShape, []int{3}) || info.Rows != 2 {
		t.Errorf("Unexpected dataset info: %+v", info)
	}
	if !slices.Equal(info.MaxShape, []int{2, 3}) {
		t.Errorf("Expected maxshape [2 3], got %v", info.MaxShape)
	}

	got, err := b.ReadRows(h)
	if err != nil {
		t.Fatalf("ReadRows failed: %v", err)
	}
	if len(got) != 2 || !bytes.Equal(got[0], rows[0]) || !bytes.Equal(got[1], rows[1]) {
		t.Errorf("ReadRows returned different rows")
	}

	if class := rawText(t, b, h, "CLASS"); class != "CARRAY" {
		t.Errorf("Expected CLASS CARRAY, got %q", class)
	}
	if _, ok, _ := b.GetAttr(h, "EXTDIM"); ok {
		t.Errorf("Fixed datasets must not carry EXTDIM")
	}
	names, _ := b.AttrNames(h)
	if !slices.Equal(names, []string{"TITLE", "CLASS", "shape"}) {
		t.Errorf("Unexpected attribute order %v", names)
	}

	expectErr(t, b.AppendRow(h, float64Row(7, 8, 9)), backend.ErrInvalidArgument)

	_, err = b.Children(h)
	expectErr(t, err, backend.ErrInvalidArgument)
	_, err = b.CreateGroup(h, "below", "")
	expectErr(t, err, backend.ErrInvalidArgument)
	_, err = b.Dataset(r)
	expectErr(t, err, backend.ErrInvalidArgument)
}

func testExtendableDataset(t *testing.T, f Fixture) {
	b := open(t, f, "earray.h5", backend.ModeWrite)

	h, err := b.CreateDataset(root(t, b), "data", backend.DatasetSpec{
		Kind:  backend.KindExtendable,
		DType: "float64",
		Shape: []int{0, 2},
		Class: "EARRAY",
	})
	if err != nil {
		t.Fatalf("CreateDataset failed: %v", err)
	}

	v, ok, err := b.GetAttr(h, "EXTDIM")
	if err != nil || !ok || v != int64(0) {
		t.Errorf("Expected EXTDIM int64(0), got %#v (ok=%v, err=%v)", v, ok, err)
	}

	info, _ := b.Dataset(h)
	if !slices.Equal(info.MaxShape, []int{-1, 2}) {
		t.Errorf("Expected maxshape [-1 2], got %v", info.MaxShape)
	}

	for k := 1; k <= 3; k++ {
		if err := b.AppendRow(h, float64Row(float64(k), float64(-k))); err != nil {
			t.Fatalf("AppendRow %d failed: %v", k, err)
		}
		n, err := b.RowCount(h)
		if err != nil || n != k {
			t.Errorf("Expected RowCount %d, got %d (err=%v)", k, n, err)
		}
	}

	expectErr(t, b.AppendRow(h, float64Row(1, 2, 3)), backend.ErrAxisMismatch)

	rows, err := b.ReadRows(h)
	if err != nil {
		t.Fatalf("ReadRows failed: %v", err)
	}
	if len(rows) != 3 || !bytes.Equal(rows[2], float64Row(3, -3)) {
		t.Errorf("Unexpected rows after append")
	}
}

func testVarLenDataset(t *testing.T, f Fixture) {
	b := open(t, f, "vlarray.h5", backend.ModeWrite)

	h, err := b.CreateDataset(root(t, b), "vl", backend.DatasetSpec{
		Kind:  backend.KindVarLen,
		DType: "uint8",
		Shape: []int{0},
		Class: "VLARRAY",
		Attrs: []backend.Attr{{Name: "subdtype", Value: "string"}},
	})
	if err != nil {
		t.Fatalf("CreateDataset failed: %v", err)
	}

	want := [][]byte{[]byte("hello"), {}, []byte("a longer element")}
	for _, row := range want {
		if err := b.AppendRow(h, row); err != nil {
			t.Fatalf("AppendRow failed: %v", err)
		}
	}

	got, err := b.ReadRows(h)
	if err != nil {
		t.Fatalf("ReadRows failed: %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("Expected %d rows, got %d", len(want), len(got))
	}
	for i := range want {
		if !bytes.Equal(got[i], want[i]) {
			t.Errorf("Row %d: got %q, want %q", i, got[i], want[i])
		}
	}

	info, _ := b.Dataset(h)
	if info.Kind != backend.KindVarLen || info.ElemShape != nil {
		t.Errorf("Unexpected varlen info: %+v", info)
	}
}

func testCompression(t *testing.T, f Fixture) {
	b := open(t, f, "compressed.h5", backend.ModeWrite)
	r := root(t, b)

	row := bytes.Repeat(float64Row(0), 256)
	for _, name := range []string{"gzip", "zlib", "zstd"} {
		filter, err := backend.NormalizeFilter(name, 5)
		if err != nil {
			t.Fatalf("NormalizeFilter(%s) failed: %v", name, err)
		}
		h, err := b.CreateDataset(r, name, backend.DatasetSpec{
			Kind:   backend.KindExtendable,
			DType:  "float64",
			Shape:  []int{1, 256},
			Rows:   [][]byte{row},
			Filter: filter,
			Class:  "EARRAY",
		})
		if err != nil {
			t.Fatalf("CreateDataset(%s) failed: %v", name, err)
		}
		if err := b.AppendRow(h, row); err != nil {
			t.Fatalf("AppendRow(%s) failed: %v", name, err)
		}

		info, err := b.Dataset(h)
		if err != nil {
			t.Fatalf("Dataset failed: %v", err)
		}
		if info.Filter() != filter {
			t.Errorf("%s: expected filter %s, got %s", name, filter, info.Filter())
		}
		if info.FilterName != backend.NativeFilterName(b.ID(), filter) {
			t.Errorf("%s: expected native name %q, got %q", name, backend.NativeFilterName(b.ID(), filter), info.FilterName)
		}

		rows, err := b.ReadRows(h)
		if err != nil {
			t.Fatalf("ReadRows(%s) failed: %v", name, err)
		}
		if len(rows) != 2 || !bytes.Equal(rows[0], row) || !bytes.Equal(rows[1], row) {
			t.Errorf("%s: rows differ after compression round trip", name)
		}
	}

	gz, _ := b.Lookup("/gzip")
	zl, _ := b.Lookup("/zlib")
	gi, _ := b.Dataset(gz)
	zi, _ := b.Dataset(zl)
	if gi.Filter() != zi.Filter() {
		t.Errorf("gzip and zlib must normalize to the same filter, got %s and %s", gi.Filter(), zi.Filter())
	}
}

func testPersistence(t *testing.T, f Fixture) {
	b, err := f.Driver.Open(f.Path("persist.h5"), backend.ModeWrite)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	g := mustGroup(t, b, root(t, b), "g", "group")
	if err := b.SetAttr(g, "k", "v"); err != nil {
		t.Fatalf("SetAttr failed: %v", err)
	}
	h, err := b.CreateDataset(g, "e", backend.DatasetSpec{Kind: backend.KindExtendable, DType: "int8", Shape: []int{0, 1}, Class: "EARRAY"})
	if err != nil {
		t.Fatalf("CreateDataset failed: %v", err)
	}
	if err := b.AppendRow(h, []byte{7}); err != nil {
		t.Fatalf("AppendRow failed: %v", err)
	}
	if err := b.Flush(); err != nil {
		t.Fatalf("Flush failed: %v", err)
	}
	if err := b.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	b = open(t, f, "persist.h5", backend.ModeReadWrite)
	g, err = b.Lookup("/g")
	if err != nil {
		t.Fatalf("Lookup after reopen failed: %v", err)
	}
	if v, ok, _ := b.GetAttr(g, "k"); !ok || v != "v" {
		t.Errorf("Expected attribute k=v after reopen, got %#v", v)
	}
	h, _ = b.Lookup("/g/e")
	if n, _ := b.RowCount(h); n != 1 {
		t.Errorf("Expected 1 row after reopen, got %d", n)
	}

	// sequence numbers continue after reopen
	mustGroup(t, b, g, "later", "")
	if names := childNames(t, b, g); !slices.Equal(names, []string{"e", "later"}) {
		t.Errorf("Expected [e later], got %v", names)
	}
	if err := b.SetAttr(g, "k2", "v2"); err != nil {
		t.Fatalf("SetAttr failed: %v", err)
	}
	names, _ := b.AttrNames(g)
	if !slices.Equal(names, []string{"TITLE", "CLASS", "k", "k2"}) {
		t.Errorf("Unexpected attribute order after reopen: %v", names)
	}
}

func testReadOnly(t *testing.T, f Fixture) {
	w := open(t, f, "ro.h5", backend.ModeWrite)
	g := mustGroup(t, w, root(t, w), "g", "")
	if err := w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	r := open(t, f, "ro.h5", backend.ModeRead)
	if r.Mode().Writable() {
		t.Fatalf("Mode r must not be writable")
	}
	_, err := r.CreateGroup(root(t, r), "x", "")
	expectErr(t, err, backend.ErrReadOnly)
	expectErr(t, r.SetAttr(g, "k", "v"), backend.ErrReadOnly)
	if _, err := r.Lookup("/g"); err != nil {
		t.Errorf("Reads must work in mode r, got %v", err)
	}
	if err := r.Flush(); err != nil {
		t.Errorf("Flush on a read-only session should be a no-op, got %v", err)
	}
}

func testCopyTo(t *testing.T, f Fixture) {
	b := open(t, f, "src.h5", backend.ModeWrite)
	g := mustGroup(t, b, root(t, b), "g", "copied")
	if _, err := b.CreateDataset(g, "d", backend.DatasetSpec{Kind: backend.KindFixed, DType: "int16", Shape: []int{1, 2}, Rows: [][]byte{{1, 0, 2, 0}}, Class: "CARRAY"}); err != nil {
		t.Fatalf("CreateDataset failed: %v", err)
	}

	if err := b.CopyTo(f.Path("dst.h5")); err != nil {
		t.Fatalf("CopyTo failed: %v", err)
	}
	// the source stays usable
	mustGroup(t, b, root(t, b), "after", "")

	c := open(t, f, "dst.h5", backend.ModeRead)
	if names := childNames(t, c, root(t, c)); !slices.Equal(names, []string{"g"}) {
		t.Errorf("Expected copy to contain [g], got %v", names)
	}
	cg, err := c.Lookup("/g")
	if err != nil {
		t.Fatalf("Lookup in copy failed: %v", err)
	}
	if title := rawText(t, c, cg, "TITLE"); title != "copied" {
		t.Errorf("Expected TITLE copied, got %q", title)
	}
	d, _ := c.Lookup("/g/d")
	rows, err := c.ReadRows(d)
	if err != nil || len(rows) != 1 || !bytes.Equal(rows[0], []byte{1, 0, 2, 0}) {
		t.Errorf("Unexpected rows in copy: %v (err=%v)", rows, err)
	}
}

func testClosed(t *testing.T, f Fixture) {
	b, err := f.Driver.Open(f.Path("closed.h5"), backend.ModeWrite)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	r := root(t, b)
	if err := b.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if b.IsOpen() {
		t.Errorf("Expected IsOpen false after Close")
	}
	if err := b.Close(); err != nil {
		t.Errorf("Second Close should be a no-op, got %v", err)
	}

	_, err = b.Children(r)
	expectErr(t, err, backend.ErrClosed)
	_, err = b.CreateGroup(r, "x", "")
	expectErr(t, err, backend.ErrClosed)
	expectErr(t, b.Flush(), backend.ErrClosed)
}

type pathHandle struct{ path string }

func (p *pathHandle) Path() string { return p.path }
