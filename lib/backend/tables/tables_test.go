package tables

import (
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"github.com/ValentinKolb/h5tree/lib/backend"
	backendtesting "github.com/ValentinKolb/h5tree/lib/backend/testing"
)

func factory(t testing.TB) backendtesting.Fixture {
	dir := t.TempDir()
	return backendtesting.Fixture{
		Driver: NewDriver(),
		Path:   func(name string) string { return filepath.Join(dir, name) },
	}
}

func TestTables(t *testing.T) {
	backendtesting.RunBackendTests(t, "tables", factory)
}

func TestStructuralAttrsAreBlobs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "blob.h5")

	s, err := NewDriver().Open(path, backend.ModeWrite)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer s.Close()

	root, _ := s.Root()
	g, err := s.CreateGroup(root, "g", "a title")
	if err != nil {
		t.Fatalf("CreateGroup failed: %v", err)
	}
	if err := s.SetAttr(g, "note", "text"); err != nil {
		t.Fatalf("SetAttr failed: %v", err)
	}

	tests := []struct {
		key  string
		want string
	}{
		{"TITLE", "blob"},
		{"CLASS", "blob"},
		{"note", "text"},
	}

	conn := s.(*session).db
	for _, tt := range tests {
		var storage string
		err := conn.QueryRow(`
			SELECT typeof(a.value) FROM attrs a JOIN nodes n ON n.id = a.node_id
			WHERE n.path = ? AND a.name = ?`, "/g", tt.key).Scan(&storage)
		if err != nil {
			t.Fatalf("Query %s failed: %v", tt.key, err)
		}
		if storage != tt.want {
			t.Errorf("%s: expected storage class %s, got %s", tt.key, tt.want, storage)
		}
	}

	// the root carries TITLE and CLASS from the schema migration
	for _, key := range []string{"TITLE", "CLASS"} {
		if _, ok, err := s.GetAttr(root, key); err != nil || !ok {
			t.Errorf("Expected root attribute %s, got ok=%v err=%v", key, ok, err)
		}
	}
}

func TestSchemaVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schema.h5")

	s, err := NewDriver().Open(path, backend.ModeWrite)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	conn, err := sql.Open("sqlite3", path)
	if err != nil {
		t.Fatalf("sql.Open failed: %v", err)
	}
	defer conn.Close()
	if err := checkSchema(conn); err != nil {
		t.Errorf("checkSchema failed on a migrated file: %v", err)
	}

	// reopening a migrated file is a no-op migration
	s, err = NewDriver().Open(path, backend.ModeReadWrite)
	if err != nil {
		t.Fatalf("Reopen failed: %v", err)
	}
	_ = s.Close()
}

func TestOpenForeignFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "foreign.db")

	conn, err := sql.Open("sqlite3", path)
	if err != nil {
		t.Fatalf("sql.Open failed: %v", err)
	}
	if _, err := conn.Exec(`CREATE TABLE unrelated (x INTEGER)`); err != nil {
		t.Fatalf("CREATE TABLE failed: %v", err)
	}
	_ = conn.Close()

	if _, err := NewDriver().Open(path, backend.ModeRead); err == nil {
		t.Error("Expected read-only open of a file without schema to fail")
	}
}

func TestRecognize(t *testing.T) {
	path := filepath.Join(t.TempDir(), "magic.h5")
	s, err := NewDriver().Open(path, backend.ModeWrite)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	_ = s.Close()

	header, err := backend.ReadHeader(path)
	if err != nil {
		t.Fatalf("ReadHeader failed: %v", err)
	}
	if !NewDriver().Recognize(header) {
		t.Errorf("Expected the SQLite header to be recognized, got %q", header)
	}
	if NewDriver().Recognize([]byte("MAPLEDB\x00")) || NewDriver().Recognize(nil) {
		t.Errorf("Recognize accepted a foreign header")
	}
}

func TestPathWithURIDelimiters(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "scan?1#2 %41.h5")

	s, err := NewDriver().Open(path, backend.ModeWrite)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	root, _ := s.Root()
	if _, err := s.CreateGroup(root, "g", ""); err != nil {
		t.Fatalf("CreateGroup failed: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil || len(entries) != 1 || entries[0].Name() != filepath.Base(path) {
		t.Fatalf("Expected only %q in the directory, got %v (%v)", filepath.Base(path), entries, err)
	}

	s, err = NewDriver().Open(path, backend.ModeRead)
	if err != nil {
		t.Fatalf("Reopen failed: %v", err)
	}
	defer s.Close()
	if _, err := s.Lookup("/g"); err != nil {
		t.Errorf("Expected /g after reopen, got %v", err)
	}
}
