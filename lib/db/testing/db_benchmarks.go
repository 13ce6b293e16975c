package testing

import (
	"bytes"
	"fmt"
	"math/rand"
	"testing"

	"github.com/ValentinKolb/h5tree/lib/db"
)

// RunKVDBBenchmarks runs all benchmarks for a key-value database implementations
func RunKVDBBenchmarks(b *testing.B, name string, factory DBFactory) {
	b.Run(name, func(b *testing.B) {
		b.Run("Set", func(b *testing.B) {
			benchmarkSet(b, factory(b))
		})

		b.Run("SetLargeValue", func(b *testing.B) {
			benchmarkSetLargeValue(b, factory(b))
		})

		b.Run("Get", func(b *testing.B) {
			benchmarkGet(b, factory(b))
		})

		b.Run("Has(not)", func(b *testing.B) {
			benchmarkHasNot(b, factory(b))
		})

		b.Run("Batch", func(b *testing.B) {
			benchmarkBatch(b, factory(b))
		})

		b.Run("RangeChildren", func(b *testing.B) {
			benchmarkRangeChildren(b, factory(b))
		})

		b.Run("SaveLoad", func(b *testing.B) {
			benchmarkSaveLoad(b, factory)
		})
	})
}

// --------------------------------------------------------------------------
// Benchmark functions
// --------------------------------------------------------------------------

func benchmarkSet(b *testing.B, database db.KVDB) {
	b.Cleanup(func() {
		database.Close()
	})

	requireFeature(b, database, db.FeatureSet)

	value := []byte("benchmark-value")
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := database.Set(fmt.Sprintf("key-%d", i), value); err != nil {
			b.Fatal(err)
		}
	}
}

func benchmarkSetLargeValue(b *testing.B, database db.KVDB) {
	b.Cleanup(func() {
		database.Close()
	})

	requireFeature(b, database, db.FeatureSet)

	value := bytes.Repeat([]byte("x"), 64*1024)
	b.SetBytes(int64(len(value)))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := database.Set(fmt.Sprintf("r:/data\x00%010d", i%256), value); err != nil {
			b.Fatal(err)
		}
	}
}

func benchmarkGet(b *testing.B, database db.KVDB) {
	b.Cleanup(func() {
		database.Close()
	})

	requireFeature(b, database, db.FeatureSet|db.FeatureGet)

	const numKeys = 1000
	for i := 0; i < numKeys; i++ {
		if err := database.Set(fmt.Sprintf("key-%d", i), []byte("value")); err != nil {
			b.Fatal(err)
		}
	}

	rng := rand.New(rand.NewSource(1))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, _, err := database.Get(fmt.Sprintf("key-%d", rng.Intn(numKeys))); err != nil {
			b.Fatal(err)
		}
	}
}

func benchmarkHasNot(b *testing.B, database db.KVDB) {
	b.Cleanup(func() {
		database.Close()
	})

	requireFeature(b, database, db.FeatureHas)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := database.Has(fmt.Sprintf("missing-%d", i)); err != nil {
			b.Fatal(err)
		}
	}
}

// benchmarkBatch writes a batch the size of a dataset creation (node, order
// entry and a handful of attributes).
func benchmarkBatch(b *testing.B, database db.KVDB) {
	b.Cleanup(func() {
		database.Close()
	})

	requireFeature(b, database, db.FeatureBatch)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		path := fmt.Sprintf("/group/data%d", i)
		entries := []db.Entry{
			{Key: "n:" + path, Value: []byte(`{"kind":1}`)},
			{Key: fmt.Sprintf("c:/group\x00%010d", i), Value: []byte(path)},
		}
		for _, attr := range []string{"TITLE", "CLASS", "shape", "dtype", "subdtype", "backend"} {
			entries = append(entries, db.Entry{Key: "a:" + path + "\x00" + attr, Value: []byte("value")})
		}
		if err := database.Batch(entries); err != nil {
			b.Fatal(err)
		}
	}
}

func benchmarkRangeChildren(b *testing.B, database db.KVDB) {
	b.Cleanup(func() {
		database.Close()
	})

	requireFeature(b, database, db.FeatureSet|db.FeatureRange)

	for i := 0; i < 100; i++ {
		if err := database.Set(fmt.Sprintf("c:/\x00%010d", i), []byte(fmt.Sprintf("/child%d", i))); err != nil {
			b.Fatal(err)
		}
		if err := database.Set(fmt.Sprintf("n:/child%d", i), []byte("{}")); err != nil {
			b.Fatal(err)
		}
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		count := 0
		err := database.Range("c:/\x00", func(string, []byte) bool {
			count++
			return true
		})
		if err != nil || count != 100 {
			b.Fatalf("Range returned %d keys (err=%v)", count, err)
		}
	}
}

func benchmarkSaveLoad(b *testing.B, factory DBFactory) {
	database := factory(b)
	b.Cleanup(func() {
		database.Close()
	})

	requireFeature(b, database, db.FeatureSet|db.FeatureSave|db.FeatureLoad)

	for i := 0; i < 10000; i++ {
		if err := database.Set(fmt.Sprintf("key-%d", i), []byte(fmt.Sprintf("value-%d", i))); err != nil {
			b.Fatal(err)
		}
	}

	var buf bytes.Buffer
	b.Run("Save", func(b *testing.B) {
		for i := 0; i < b.N; i++ {
			buf.Reset()
			if err := database.Save(&buf); err != nil {
				b.Fatal(err)
			}
		}
	})

	b.Run("Load", func(b *testing.B) {
		target := factory(b)
		b.Cleanup(func() {
			target.Close()
		})
		snapshot := buf.Bytes()
		b.ResetTimer()
		for i := 0; i < b.N; i++ {
			if err := target.Load(bytes.NewReader(snapshot)); err != nil {
				b.Fatal(err)
			}
		}
	})
}
