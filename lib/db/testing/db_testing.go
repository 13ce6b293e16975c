package testing

import (
	"bytes"
	"fmt"
	"slices"
	"sync"
	"testing"

	"github.com/ValentinKolb/h5tree/lib/db"
)

// DBFactory creates a new, empty instance of a KVDB implementation.
// Engines that need a file use t.TempDir().
type DBFactory func(t testing.TB) db.KVDB

// RunKVDBTests runs a comprehensive test suite for a KVDB implementation.
func RunKVDBTests(t *testing.T, name string, factory DBFactory) {
	t.Run(name, func(t *testing.T) {
		t.Run("Set&Get", func(t *testing.T) {
			testSetGet(t, factory(t))
		})

		t.Run("Delete", func(t *testing.T) {
			testDelete(t, factory(t))
		})

		t.Run("Has", func(t *testing.T) {
			testHas(t, factory(t))
		})

		t.Run("Range", func(t *testing.T) {
			testRange(t, factory(t))
		})

		t.Run("RangeStop", func(t *testing.T) {
			testRangeStop(t, factory(t))
		})

		t.Run("Batch", func(t *testing.T) {
			testBatch(t, factory(t))
		})

		t.Run("SaveLoad", func(t *testing.T) {
			testSaveLoad(t, factory)
		})

		t.Run("LoadGarbage", func(t *testing.T) {
			testLoadGarbage(t, factory(t))
		})

		t.Run("EdgeCases", func(t *testing.T) {
			testEdgeCases(t, factory(t))
		})

		t.Run("Concurrent", func(t *testing.T) {
			testConcurrent(t, factory(t))
		})

		t.Run("Info", func(t *testing.T) {
			testInfo(t, factory(t))
		})
	})
}

// --------------------------------------------------------------------------
// Helper functions
// --------------------------------------------------------------------------

// Checks if the database supports the specified feature
// Skip the test if it is not supported
func requireFeature(t testing.TB, database db.KVDB, feature db.Feature) {
	if !database.SupportsFeature(feature) {
		t.Skip()
	}
}

func mustSet(t testing.TB, database db.KVDB, key string, value []byte) {
	t.Helper()
	if err := database.Set(key, value); err != nil {
		t.Fatalf("Set(%q) failed: %v", key, err)
	}
}

func mustGet(t testing.TB, database db.KVDB, key string) ([]byte, bool) {
	t.Helper()
	value, ok, err := database.Get(key)
	if err != nil {
		t.Fatalf("Get(%q) failed: %v", key, err)
	}
	return value, ok
}

func collect(t testing.TB, database db.KVDB, prefix string) []string {
	t.Helper()
	var keys []string
	err := database.Range(prefix, func(key string, _ []byte) bool {
		keys = append(keys, key)
		return true
	})
	if err != nil {
		t.Fatalf("Range(%q) failed: %v", prefix, err)
	}
	return keys
}

// --------------------------------------------------------------------------
// Test functions
// --------------------------------------------------------------------------

func testSetGet(t *testing.T, database db.KVDB) {
	defer database.Close()

	requireFeature(t, database, db.FeatureSet|db.FeatureGet)

	testKey := "test-key"
	testValue1 := []byte("test-value1")
	testValue2 := []byte("test-value2")

	mustSet(t, database, testKey, testValue1)

	result, exists := mustGet(t, database, testKey)
	if !exists {
		t.Errorf("Expected key %s to exist after Set", testKey)
	}
	if !bytes.Equal(result, testValue1) {
		t.Errorf("Expected value %s, got %s", testValue1, result)
	}

	mustSet(t, database, testKey, testValue2)

	result, exists = mustGet(t, database, testKey)
	if !exists {
		t.Errorf("Expected key %s to exist after Set", testKey)
	}
	if !bytes.Equal(result, testValue2) {
		t.Errorf("Expected value %s, got %s", testValue2, result)
	}

	if _, exists = mustGet(t, database, "nonexistent-key"); exists {
		t.Errorf("Expected nonexistent key to return exists=false")
	}

	retrievedValue, _ := mustGet(t, database, testKey)
	retrievedValue[0] = 'X'

	originalValue, _ := mustGet(t, database, testKey)
	if bytes.Equal(retrievedValue, originalValue) {
		t.Errorf("Get should return a copy, not a reference to the stored value")
	}

	input := []byte("caller-owned")
	mustSet(t, database, "owned", input)
	input[0] = 'X'
	if stored, _ := mustGet(t, database, "owned"); !bytes.Equal(stored, []byte("caller-owned")) {
		t.Errorf("Set should copy the value, got %s", stored)
	}
}

func testDelete(t *testing.T, database db.KVDB) {
	defer database.Close()

	requireFeature(t, database, db.FeatureSet|db.FeatureGet|db.FeatureDelete)

	mustSet(t, database, "delete-key", []byte("value"))
	if err := database.Delete("delete-key"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, exists := mustGet(t, database, "delete-key"); exists {
		t.Errorf("Expected key to be gone after Delete")
	}

	if err := database.Delete("never-existed"); err != nil {
		t.Errorf("Deleting a missing key should not fail, got %v", err)
	}
}

func testHas(t *testing.T, database db.KVDB) {
	defer database.Close()

	requireFeature(t, database, db.FeatureSet|db.FeatureHas)

	mustSet(t, database, "has-key", []byte("value"))
	mustSet(t, database, "empty-key", []byte{})

	tests := []struct {
		key  string
		want bool
	}{
		{"has-key", true},
		{"empty-key", true},
		{"has-key-not", false},
		{"has", false},
	}

	for _, tt := range tests {
		got, err := database.Has(tt.key)
		if err != nil {
			t.Fatalf("Has(%q) failed: %v", tt.key, err)
		}
		if got != tt.want {
			t.Errorf("Has(%q) = %v, want %v", tt.key, got, tt.want)
		}
	}
}

func testRange(t *testing.T, database db.KVDB) {
	defer database.Close()

	requireFeature(t, database, db.FeatureSet|db.FeatureRange)

	// inserted out of order on purpose
	for _, key := range []string{"c:/b\x00002", "c:/a\x00001", "c:/\x00001", "c:/\x00000", "n:/", "c:/\x00010", "d"} {
		mustSet(t, database, key, []byte(key))
	}

	got := collect(t, database, "c:/\x00")
	want := []string{"c:/\x00000", "c:/\x00001", "c:/\x00010"}
	if !slices.Equal(got, want) {
		t.Errorf("Range(c:/\\x00) = %q, want %q", got, want)
	}

	all := collect(t, database, "")
	if len(all) != 7 || !slices.IsSorted(all) {
		t.Errorf("Range(\"\") should return all 7 keys sorted, got %q", all)
	}

	if none := collect(t, database, "x"); len(none) != 0 {
		t.Errorf("Expected no keys for prefix x, got %q", none)
	}

	err := database.Range("n:", func(key string, value []byte) bool {
		if key != string(value) {
			t.Errorf("Range value mismatch for %q: %q", key, value)
		}
		return true
	})
	if err != nil {
		t.Fatalf("Range failed: %v", err)
	}
}

func testRangeStop(t *testing.T, database db.KVDB) {
	defer database.Close()

	requireFeature(t, database, db.FeatureSet|db.FeatureRange)

	for i := 0; i < 10; i++ {
		mustSet(t, database, fmt.Sprintf("k%02d", i), []byte("v"))
	}

	var seen []string
	err := database.Range("k", func(key string, _ []byte) bool {
		seen = append(seen, key)
		return len(seen) < 3
	})
	if err != nil {
		t.Fatalf("Range failed: %v", err)
	}
	if !slices.Equal(seen, []string{"k00", "k01", "k02"}) {
		t.Errorf("Expected scan to stop after 3 keys, got %q", seen)
	}
}

func testBatch(t *testing.T, database db.KVDB) {
	defer database.Close()

	requireFeature(t, database, db.FeatureSet|db.FeatureGet|db.FeatureBatch)

	mustSet(t, database, "stale", []byte("x"))

	err := database.Batch([]db.Entry{
		{Key: "a", Value: []byte("1")},
		{Key: "b", Value: []byte("2")},
		{Key: "a", Value: []byte("3")},
		{Key: "stale", Delete: true},
		{Key: "empty", Value: nil},
	})
	if err != nil {
		t.Fatalf("Batch failed: %v", err)
	}

	tests := []struct {
		key    string
		want   []byte
		exists bool
	}{
		{"a", []byte("3"), true},
		{"b", []byte("2"), true},
		{"stale", nil, false},
		{"empty", []byte{}, true},
	}

	for _, tt := range tests {
		got, exists := mustGet(t, database, tt.key)
		if exists != tt.exists {
			t.Errorf("Key %q: exists = %v, want %v", tt.key, exists, tt.exists)
			continue
		}
		if exists && !bytes.Equal(got, tt.want) {
			t.Errorf("Key %q: got %q, want %q", tt.key, got, tt.want)
		}
	}

	if err := database.Batch(nil); err != nil {
		t.Errorf("Empty batch should not fail, got %v", err)
	}
}

func testSaveLoad(t *testing.T, factory DBFactory) {
	database := factory(t)
	database2 := factory(t)

	defer database.Close()
	defer database2.Close()

	requireFeature(t, database, db.FeatureSet|db.FeatureGet|db.FeatureSave|db.FeatureLoad)

	numEntries := 1000
	originalKeys := make([]string, numEntries)
	originalValues := make([][]byte, numEntries)

	for i := 0; i < numEntries; i++ {
		key := fmt.Sprintf("save-load-test-key-%d", i)
		value := []byte(fmt.Sprintf("save-load-test-value-%d", i))
		originalKeys[i] = key
		originalValues[i] = value

		mustSet(t, database, key, value)
	}

	// existing keys of the target are discarded by Load
	mustSet(t, database2, "left-over", []byte("gone"))

	var buf bytes.Buffer
	if err := database.Save(&buf); err != nil {
		t.Fatalf("Unexpected error during Save: %v", err)
	}
	if err := database2.Load(&buf); err != nil {
		t.Fatalf("Unexpected error during Load: %v", err)
	}

	for i := 0; i < numEntries; i++ {
		actualValue, exists := mustGet(t, database2, originalKeys[i])
		if !exists {
			t.Errorf("Key %s not found after Load", originalKeys[i])
			continue
		}
		if !bytes.Equal(actualValue, originalValues[i]) {
			t.Errorf("Value mismatch for key %s: expected %s, got %s", originalKeys[i], originalValues[i], actualValue)
		}
	}

	if _, exists := mustGet(t, database2, "left-over"); exists {
		t.Errorf("Expected Load to discard existing keys")
	}

	// the source is untouched by Save
	if value, exists := mustGet(t, database, originalKeys[0]); !exists || !bytes.Equal(value, originalValues[0]) {
		t.Errorf("Source database changed during Save")
	}
}

func testLoadGarbage(t *testing.T, database db.KVDB) {
	defer database.Close()

	requireFeature(t, database, db.FeatureSet|db.FeatureGet|db.FeatureLoad)

	mustSet(t, database, "keep", []byte("me"))

	if err := database.Load(bytes.NewReader([]byte("definitely not a snapshot"))); err == nil {
		t.Errorf("Expected Load to reject garbage input")
	}
	if value, exists := mustGet(t, database, "keep"); !exists || string(value) != "me" {
		t.Errorf("Expected failed Load to leave the database unchanged")
	}
}

func testEdgeCases(t *testing.T, database db.KVDB) {
	defer database.Close()

	requireFeature(t, database, db.FeatureSet|db.FeatureGet)

	largeValue := bytes.Repeat([]byte("x"), 1024*1024)
	tests := []struct {
		name  string
		key   string
		value []byte
	}{
		{"EmptyValue", "empty-value", []byte{}},
		{"NilValue", "nil-value", nil},
		{"LargeValue", "large-value", largeValue},
		{"NulInKey", "a:/x\x00TITLE", []byte("title")},
		{"UnicodeKey", "n:/Größe/データ", []byte("unicode")},
		{"BinaryValue", "binary", []byte{0, 1, 2, 0xff, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mustSet(t, database, tt.key, tt.value)
			got, exists := mustGet(t, database, tt.key)
			if !exists {
				t.Fatalf("Expected key %q to exist", tt.key)
			}
			if !bytes.Equal(got, tt.value) {
				t.Errorf("Value mismatch for key %q (len %d vs %d)", tt.key, len(got), len(tt.value))
			}
		})
	}
}

func testConcurrent(t *testing.T, database db.KVDB) {
	defer database.Close()

	requireFeature(t, database, db.FeatureSet|db.FeatureGet)

	const (
		workers = 8
		perWork = 100
	)

	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWork; i++ {
				key := fmt.Sprintf("w%d-%d", w, i)
				if err := database.Set(key, []byte(key)); err != nil {
					errs <- err
					return
				}
				if _, _, err := database.Get(key); err != nil {
					errs <- err
					return
				}
			}
		}(w)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Errorf("Concurrent operation failed: %v", err)
	}

	for w := 0; w < workers; w++ {
		key := fmt.Sprintf("w%d-%d", w, perWork-1)
		if value, exists := mustGet(t, database, key); !exists || string(value) != key {
			t.Errorf("Expected %q after concurrent writes, got %q (exists=%v)", key, value, exists)
		}
	}
}

func testInfo(t *testing.T, database db.KVDB) {
	defer database.Close()

	requireFeature(t, database, db.FeatureSet)

	for i := 0; i < 5; i++ {
		mustSet(t, database, fmt.Sprintf("info-%d", i), []byte("value"))
	}

	info := database.GetInfo()
	if info.Keys != 5 {
		t.Errorf("Expected 5 keys, got %d", info.Keys)
	}
	if info.DbType == "" {
		t.Errorf("Expected a database type")
	}
	for _, f := range info.SupportedFeatures {
		if !database.SupportsFeature(f) {
			t.Errorf("GetInfo lists %s but SupportsFeature denies it", f)
		}
	}
}
