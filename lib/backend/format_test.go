package backend

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type fakeSession struct {
	IBackend
	id     ID
	opener ID
}

func (s *fakeSession) ID() ID { return s.id }

// fakeFormat recognizes files starting with magic
type fakeFormat struct {
	id    ID
	magic string
}

func (d fakeFormat) ID() ID       { return d.id }
func (d fakeFormat) Probe() error { return nil }
func (d fakeFormat) Open(path string, mode Mode) (IBackend, error) {
	return &fakeSession{id: d.id, opener: d.id}, nil
}
func (d fakeFormat) Recognize(header []byte) bool {
	return strings.HasPrefix(string(header), d.magic)
}

func openerOf(t *testing.T, b IBackend) ID {
	t.Helper()
	switch s := b.(type) {
	case *fakeSession:
		return s.opener
	case *foreignSession:
		return s.IBackend.(*fakeSession).opener
	default:
		t.Fatalf("Unexpected session %T", b)
		return ""
	}
}

func TestReadHeader(t *testing.T) {
	dir := t.TempDir()
	short := filepath.Join(dir, "short")
	if err := os.WriteFile(short, []byte("abc"), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	if h, err := ReadHeader(short); err != nil || string(h) != "abc" {
		t.Errorf("ReadHeader = %q (%v)", h, err)
	}

	long := filepath.Join(dir, "long")
	if err := os.WriteFile(long, make([]byte, 2*HeaderSize), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	if h, err := ReadHeader(long); err != nil || len(h) != HeaderSize {
		t.Errorf("Expected %d bytes, got %d (%v)", HeaderSize, len(h), err)
	}

	if _, err := ReadHeader(filepath.Join(dir, "missing")); err == nil {
		t.Errorf("Expected an error for a missing file")
	}
}

func TestInterop(t *testing.T) {
	dir := t.TempDir()
	write := func(name, content string) string {
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("WriteFile failed: %v", err)
		}
		return path
	}
	own := write("own", "KVTREE...")
	foreign := write("foreign", "SQLITE...")
	unknown := write("unknown", "????")
	empty := write("empty", "")

	d := Interop(fakeFormat{IDH5py, "KVTREE"}, fakeFormat{IDTables, "SQLITE"}, fakeDriver{id: IDH5pyd})
	if d.ID() != IDH5py {
		t.Errorf("Expected ID h5py, got %s", d.ID())
	}

	tests := []struct {
		path   string
		mode   Mode
		opener ID
	}{
		{own, ModeRead, IDH5py},
		{foreign, ModeRead, IDTables},
		{foreign, ModeReadWrite, IDTables},
		{foreign, ModeAppend, IDTables},
		{foreign, ModeWrite, IDH5py},
		{unknown, ModeRead, IDH5py},
		{empty, ModeAppend, IDH5py},
		{filepath.Join(dir, "missing"), ModeAppend, IDH5py},
	}
	for _, tt := range tests {
		b, err := d.Open(tt.path, tt.mode)
		if err != nil {
			t.Fatalf("Open(%s, %s) failed: %v", tt.path, tt.mode, err)
		}
		if got := openerOf(t, b); got != tt.opener {
			t.Errorf("Open(%s, %s): opened by %s, want %s", filepath.Base(tt.path), tt.mode, got, tt.opener)
		}
		if b.ID() != IDH5py {
			t.Errorf("Open(%s, %s): session reports %s", filepath.Base(tt.path), tt.mode, b.ID())
		}
	}
}

func TestInteropPassThrough(t *testing.T) {
	plain := fakeDriver{id: IDH5pyd}
	if d := Interop(plain, fakeFormat{IDTables, "SQLITE"}); d != IDriver(plain) {
		t.Errorf("Drivers without a file format must be returned unchanged")
	}
	alone := fakeFormat{IDTables, "SQLITE"}
	if d := Interop(alone, fakeFormat{IDTables, "OTHER"}, plain); d != IDriver(alone) {
		t.Errorf("Expected the primary driver without foreign formats")
	}
}

func TestCapabilitiesDriverOpensForeignFiles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "f")
	if err := os.WriteFile(path, []byte("SQLITE"), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	caps := Probe(fakeFormat{IDTables, "SQLITE"}, fakeFormat{IDH5py, "KVTREE"})
	d, err := caps.Driver(IDH5py)
	if err != nil {
		t.Fatalf("Driver failed: %v", err)
	}
	b, err := d.Open(path, ModeRead)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if openerOf(t, b) != IDTables || b.ID() != IDH5py {
		t.Errorf("Expected a tables session reported as h5py, got %s opened by %s", b.ID(), openerOf(t, b))
	}
}
