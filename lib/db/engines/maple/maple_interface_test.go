package maple

import (
	"testing"

	"github.com/ValentinKolb/h5tree/lib/db"
	dbtesting "github.com/ValentinKolb/h5tree/lib/db/testing"
)

func Test(t *testing.T) {
	dbtesting.RunKVDBTests(t, "MapleDB", func(t testing.TB) db.KVDB {
		return NewMapleDB(nil)
	})
}

func TestSingleShard(t *testing.T) {
	dbtesting.RunKVDBTests(t, "MapleDB(1 shard)", func(t testing.TB) db.KVDB {
		return NewMapleDB(&DBOptions{NumShards: 1})
	})
}

func Benchmark(b *testing.B) {
	dbtesting.RunKVDBBenchmarks(b, "MapleDB", func(t testing.TB) db.KVDB {
		return NewMapleDB(nil)
	})
}
