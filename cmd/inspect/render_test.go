package inspect

import (
	"bytes"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ValentinKolb/h5tree/lib/backend"
	"github.com/ValentinKolb/h5tree/lib/backend/tables"
	"github.com/ValentinKolb/h5tree/lib/h5"
	"github.com/ValentinKolb/h5tree/lib/ndarray"
	"github.com/fatih/color"
)

func sampleFile(t *testing.T) *h5.Storage {
	t.Helper()
	color.NoColor = true

	s, err := h5.New(backend.Probe(tables.NewDriver()), backend.IDTables)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := s.OpenFile(filepath.Join(t.TempDir(), "sample.h5"), backend.ModeWrite, "test file"); err != nil {
		t.Fatalf("OpenFile failed: %v", err)
	}
	t.Cleanup(s.CloseFile)

	raw, err := s.AddGroup("RawData", "raw_datas", h5.Path("/"), "raw data", map[string]interface{}{"description": "a scan"})
	if err != nil {
		t.Fatalf("AddGroup failed: %v", err)
	}
	data, _ := ndarray.FromSlice([]float64{1, 2, 3, 4, 5, 6}, 2, 3)
	if _, err := s.CreateCArray(raw, "axis", data, "an axis"); err != nil {
		t.Fatalf("CreateCArray failed: %v", err)
	}
	ea, err := s.CreateEArray(raw, "stream", "int32", []int{2}, "a stream")
	if err != nil {
		t.Fatalf("CreateEArray failed: %v", err)
	}
	for i := 0; i < 3; i++ {
		row, _ := ndarray.FromSlice([]int32{1, 2})
		if err := ea.Append(row); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}
	log, err := s.CreateStringArray(h5.Path("/"), "log", "messages")
	if err != nil {
		t.Fatalf("CreateStringArray failed: %v", err)
	}
	for _, msg := range []string{"start", "stop"} {
		if err := log.Append(msg); err != nil {
			t.Fatalf("Append failed: %v", err)
		}
	}
	if err := raw.Attrs().Set("shift", 0.5); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	return s
}

func TestPrintTree(t *testing.T) {
	s := sampleFile(t)

	var out bytes.Buffer
	if err := printTree(&out, s, h5.Path("/")); err != nil {
		t.Fatalf("printTree failed: %v", err)
	}

	want := []string{
		`/ "test file"`,
		`├── RawData "raw data"`,
		`│   ├── axis CArray [2 3] float64 "an axis"`,
		`│   └── stream EArray [3 2] int32 "a stream"`,
		`└── log StringArray [2] string "messages"`,
	}
	got := strings.Split(strings.TrimRight(out.String(), "\n"), "\n")
	if len(got) != len(want) {
		t.Fatalf("Expected %d lines, got %d:\n%s", len(want), len(got), out.String())
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Line %d: expected %q, got %q", i, want[i], got[i])
		}
	}
}

func TestPrintTreeSubgroup(t *testing.T) {
	s := sampleFile(t)

	var out bytes.Buffer
	if err := printTree(&out, s, h5.Path("/RawData")); err != nil {
		t.Fatalf("printTree failed: %v", err)
	}
	if strings.Contains(out.String(), "log") {
		t.Errorf("Subtree contains a sibling of its root:\n%s", out.String())
	}
	if !strings.HasPrefix(out.String(), `/RawData "raw data"`) {
		t.Errorf("Subtree does not start with its root:\n%s", out.String())
	}

	if err := printTree(&out, s, h5.Path("/missing")); !errors.Is(err, backend.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestPrintChildren(t *testing.T) {
	s := sampleFile(t)

	var out bytes.Buffer
	if err := printChildren(&out, s, h5.Path("/RawData")); err != nil {
		t.Fatalf("printChildren failed: %v", err)
	}
	for _, want := range []string{"axis", "CArray", "[2 3]", "float64", "an axis", "stream", "EArray", "int32"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("Expected %q in:\n%s", want, out.String())
		}
	}
	if strings.Index(out.String(), "axis") > strings.Index(out.String(), "stream") {
		t.Errorf("Children are not in insertion order:\n%s", out.String())
	}
}

func TestPrintAttrs(t *testing.T) {
	s := sampleFile(t)

	t.Run("yaml", func(t *testing.T) {
		var out bytes.Buffer
		if err := printAttrs(&out, s, h5.Path("/RawData"), "yaml"); err != nil {
			t.Fatalf("printAttrs failed: %v", err)
		}
		for _, want := range []string{"type: raw_datas", "description: a scan", "shift: 0.5", "TITLE: raw data"} {
			if !strings.Contains(out.String(), want) {
				t.Errorf("Expected %q in:\n%s", want, out.String())
			}
		}
		// insertion order
		if strings.Index(out.String(), "type:") > strings.Index(out.String(), "shift:") {
			t.Errorf("Attributes are not in insertion order:\n%s", out.String())
		}
	})

	t.Run("json", func(t *testing.T) {
		var out bytes.Buffer
		if err := printAttrs(&out, s, h5.Path("/RawData/axis"), "json"); err != nil {
			t.Fatalf("printAttrs failed: %v", err)
		}
		var values map[string]interface{}
		if err := json.Unmarshal(out.Bytes(), &values); err != nil {
			t.Fatalf("Output is not JSON: %v\n%s", err, out.String())
		}
		if values["dtype"] != "float64" || values["TITLE"] != "an axis" {
			t.Errorf("Unexpected attributes %v", values)
		}
	})

	t.Run("invalid format", func(t *testing.T) {
		var out bytes.Buffer
		if err := printAttrs(&out, s, h5.Path("/"), "xml"); err == nil {
			t.Errorf("Expected an error for an unknown format")
		}
	})
}
