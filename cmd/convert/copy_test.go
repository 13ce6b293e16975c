package convert

import (
	"path/filepath"
	"reflect"
	"testing"

	"github.com/ValentinKolb/h5tree/lib/backend"
	"github.com/ValentinKolb/h5tree/lib/backend/kvtree"
	"github.com/ValentinKolb/h5tree/lib/backend/tables"
	"github.com/ValentinKolb/h5tree/lib/db"
	"github.com/ValentinKolb/h5tree/lib/h5"
	"github.com/ValentinKolb/h5tree/lib/ndarray"
)

var caps = backend.Probe(tables.NewDriver(), kvtree.NewDriver(kvtree.WithEngine(db.ImplBolt)))

func mustStorage(t *testing.T, id backend.ID, path string, mode backend.Mode) *h5.Storage {
	t.Helper()
	s, err := h5.New(caps, id)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := s.OpenFile(path, mode, "source file"); err != nil {
		t.Fatalf("OpenFile failed: %v", err)
	}
	t.Cleanup(s.CloseFile)
	return s
}

// writeSample fills s with one node of every class
func writeSample(t *testing.T, s *h5.Storage) {
	t.Helper()

	raw, err := s.AddGroup("RawData", "raw_datas", h5.Path("/"), "raw data", map[string]interface{}{"description": "a scan"})
	if err != nil {
		t.Fatalf("AddGroup failed: %v", err)
	}

	data, err := ndarray.FromSlice([]float64{1, 2, 3, 4, 5, 6}, 2, 3)
	if err != nil {
		t.Fatalf("FromSlice failed: %v", err)
	}
	if _, err := s.CreateCArray(raw, "axis", data, "an axis"); err != nil {
		t.Fatalf("CreateCArray failed: %v", err)
	}

	ea, err := s.CreateEArray(raw, "stream", "int32", []int{2}, "a stream")
	if err != nil {
		t.Fatalf("CreateEArray failed: %v", err)
	}
	for i := int32(0); i < 3; i++ {
		row, _ := ndarray.FromSlice([]int32{i, i * 10}, 2)
		if err := ea.Append(row); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}

	vl, err := s.CreateVLArray(h5.Path("/"), "ragged", "uint16", "")
	if err != nil {
		t.Fatalf("CreateVLArray failed: %v", err)
	}
	for _, n := range []int{1, 0, 3} {
		row, _ := ndarray.Zeros(ndarray.Uint16, n)
		if err := vl.(*h5.VLArray).Append(row); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}

	sa, err := s.CreateStringArray(h5.Path("/"), "log", "messages")
	if err != nil {
		t.Fatalf("CreateStringArray failed: %v", err)
	}
	for _, msg := range []string{"start", "stop"} {
		if err := sa.Append(msg); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}

	if err := raw.Attrs().Set("shift", 0.5); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
}

// sameData compares the results of Storage.Read
func sameData(want, got interface{}) bool {
	switch w := want.(type) {
	case *ndarray.Array:
		g, ok := got.(*ndarray.Array)
		return ok && w.Equal(g)
	case []*ndarray.Array:
		g, ok := got.([]*ndarray.Array)
		if !ok || len(g) != len(w) {
			return false
		}
		for i := range w {
			if !w[i].Equal(g[i]) {
				return false
			}
		}
		return true
	default:
		return reflect.DeepEqual(want, got)
	}
}

func TestCopyTree(t *testing.T) {
	cases := []struct {
		name     string
		from, to backend.ID
	}{
		{"tables to h5py", backend.IDTables, backend.IDH5py},
		{"h5py to tables", backend.IDH5py, backend.IDTables},
		{"tables to tables", backend.IDTables, backend.IDTables},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			dir := t.TempDir()
			src := mustStorage(t, tc.from, filepath.Join(dir, "src.h5"), backend.ModeWrite)
			writeSample(t, src)

			dst := mustStorage(t, tc.to, filepath.Join(dir, "dst.h5"), backend.ModeWrite)

			var copied []string
			if err := copyTree(src, dst, func(n h5.Node) { copied = append(copied, n.Path()) }); err != nil {
				t.Fatalf("copyTree failed: %v", err)
			}
			total, err := countNodes(src)
			if err != nil {
				t.Fatalf("countNodes failed: %v", err)
			}
			if len(copied) != total || total != 6 {
				t.Errorf("Expected 6 copied nodes, got %d of %d: %v", len(copied), total, copied)
			}

			for n, err := range src.WalkNodes(h5.Path("/")) {
				if err != nil {
					t.Fatalf("WalkNodes failed: %v", err)
				}
				out, err := dst.GetNode(n)
				if err != nil {
					t.Fatalf("GetNode(%s) failed: %v", n.Path(), err)
				}
				if reflect.TypeOf(out) != reflect.TypeOf(n) {
					t.Errorf("%s: expected %T, got %T", n.Path(), n, out)
				}
				if out.Title() != n.Title() {
					t.Errorf("%s: expected title %q, got %q", n.Path(), n.Title(), out.Title())
				}
				if _, ok := n.(*h5.Group); ok {
					continue
				}

				want, err := src.Read(n)
				if err != nil {
					t.Fatalf("Read(%s) failed: %v", n.Path(), err)
				}
				got, err := dst.Read(out)
				if err != nil {
					t.Fatalf("Read(%s) failed: %v", n.Path(), err)
				}
				if !sameData(want, got) {
					t.Errorf("%s: data differs after copy:\nwant %v\ngot  %v", n.Path(), want, got)
				}
			}

			shift, err := dst.GetAttr(h5.Path("/RawData"), "shift")
			if err != nil || shift != 0.5 {
				t.Errorf("Expected attribute shift 0.5, got %v (%v)", shift, err)
			}
			typ, err := dst.GetAttr(h5.Path("/RawData"), "type")
			if err != nil || typ != "raw_datas" {
				t.Errorf("Expected attribute type raw_datas, got %v (%v)", typ, err)
			}
			b, err := dst.GetAttr(h5.Path("/RawData"), "backend")
			if err != nil || b != string(tc.to) {
				t.Errorf("Expected attribute backend %s, got %v (%v)", tc.to, b, err)
			}
		})
	}
}

func TestCopyTreeCompression(t *testing.T) {
	dir := t.TempDir()
	src := mustStorage(t, backend.IDTables, filepath.Join(dir, "src.h5"), backend.ModeWrite)
	writeSample(t, src)

	dst := mustStorage(t, backend.IDH5py, filepath.Join(dir, "dst.h5"), backend.ModeWrite)
	if err := dst.DefineCompression("zlib", 9); err != nil {
		t.Fatalf("DefineCompression failed: %v", err)
	}
	if err := copyTree(src, dst, nil); err != nil {
		t.Fatalf("copyTree failed: %v", err)
	}

	n, err := dst.GetNode(h5.Path("/RawData/axis"))
	if err != nil {
		t.Fatalf("GetNode failed: %v", err)
	}
	data, err := dst.Read(n)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	values, err := ndarray.Values[float64](data.(*ndarray.Array))
	if err != nil || !reflect.DeepEqual(values, []float64{1, 2, 3, 4, 5, 6}) {
		t.Errorf("Unexpected values %v (%v)", values, err)
	}
}
