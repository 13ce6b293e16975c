package bolt

import (
	"path/filepath"
	"testing"

	"github.com/ValentinKolb/h5tree/lib/db"
	dbtesting "github.com/ValentinKolb/h5tree/lib/db/testing"
)

func factory(t testing.TB) db.KVDB {
	database, err := NewBoltDB(DefaultOptions(filepath.Join(t.TempDir(), "test.db")))
	if err != nil {
		t.Fatalf("NewBoltDB failed: %v", err)
	}
	return database
}

func Test(t *testing.T) {
	dbtesting.RunKVDBTests(t, "BoltDB", factory)
}

func Benchmark(b *testing.B) {
	dbtesting.RunKVDBBenchmarks(b, "BoltDB", factory)
}

func TestReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reopen.db")

	first, err := NewBoltDB(DefaultOptions(path))
	if err != nil {
		t.Fatalf("NewBoltDB failed: %v", err)
	}
	if err := first.Set("n:/", []byte("root")); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := first.Sync(); err != nil {
		t.Fatalf("Sync failed: %v", err)
	}
	if err := first.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	second, err := NewBoltDB(DefaultOptions(path))
	if err != nil {
		t.Fatalf("Reopen failed: %v", err)
	}
	defer second.Close()

	value, ok, err := second.Get("n:/")
	if err != nil || !ok || string(value) != "root" {
		t.Errorf("Expected root after reopen, got %q (ok=%v, err=%v)", value, ok, err)
	}
}

func TestEmptyPath(t *testing.T) {
	if _, err := NewBoltDB(&Options{}); err == nil {
		t.Errorf("Expected error for empty path")
	}
}
