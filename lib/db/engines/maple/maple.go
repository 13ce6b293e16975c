package maple

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"runtime"
	"sort"
	"sync"

	"github.com/ValentinKolb/h5tree/lib/db"
	"github.com/ValentinKolb/h5tree/lib/db/util"
	"github.com/puzpuzpuz/xsync/v3"
)

// --------------------------------------------------------------------------
// Constants
// --------------------------------------------------------------------------

const (
	MagicNum     = "MAPLEDB\x00" // File format identifier
	mapleVersion = 4             // Database version (string keys, no ttl)
)

// --------------------------------------------------------------------------
// Core Maple database structure
// --------------------------------------------------------------------------

type shard = xsync.MapOf[string, []byte]

// mapleImpl implements an in-memory database with sharded data
type mapleImpl struct {
	numShards int      // Number of shards
	seed      uint64   // Seed for hash function
	shards    []*shard // Array of shards

	// mu serializes batches, snapshots and loads against each other.
	// Single key operations go straight to the shards.
	mu sync.RWMutex
}

// DBOptions configures the mapleImpl behavior during initialization
type DBOptions struct {
	NumShards int // Number of shards (0 = auto)
}

// DefaultOptions returns the default mapleImpl options
func DefaultOptions() *DBOptions {
	return &DBOptions{
		NumShards: runtime.NumCPU(),
	}
}

// --------------------------------------------------------------------------
// Initialization and Setup
// --------------------------------------------------------------------------

// NewMapleDB creates a new MapleDB instance with the specified options (optional)
func NewMapleDB(opts *DBOptions) db.KVDB {
	if opts == nil {
		opts = DefaultOptions()
	}
	if opts.NumShards <= 0 {
		opts.NumShards = runtime.NumCPU()
	}

	maple := &mapleImpl{
		numShards: opts.NumShards,
		seed:      util.GenerateSeed(),
	}
	maple.shards = newShards(maple.numShards)
	return maple
}

func newShards(n int) []*shard {
	shards := make([]*shard, n)
	for i := range shards {
		shards[i] = xsync.NewMapOf[string, []byte]()
	}
	return shards
}

// shardFor picks the shard of a key. The hash is right-shifted to use the
// higher quality bits of FNV-1a.
func (maple *mapleImpl) shardFor(key string) *shard {
	h := util.HashString(key, maple.seed)
	return maple.shards[(uint64(h)>>7)%uint64(maple.numShards)]
}

// --------------------------------------------------------------------------
// Write Operations (docu see db.KVDB)
// --------------------------------------------------------------------------

func (maple *mapleImpl) Set(key string, value []byte) error {
	maple.mu.RLock()
	defer maple.mu.RUnlock()
	maple.shardFor(key).Store(key, bytes.Clone(nonNil(value)))
	return nil
}

func (maple *mapleImpl) Delete(key string) error {
	maple.mu.RLock()
	defer maple.mu.RUnlock()
	maple.shardFor(key).Delete(key)
	return nil
}

func (maple *mapleImpl) Batch(entries []db.Entry) error {
	maple.mu.Lock()
	defer maple.mu.Unlock()
	for _, e := range entries {
		if e.Delete {
			maple.shardFor(e.Key).Delete(e.Key)
			continue
		}
		maple.shardFor(e.Key).Store(e.Key, bytes.Clone(nonNil(e.Value)))
	}
	return nil
}

// --------------------------------------------------------------------------
// Query Operations (docu see db.KVDB)
// --------------------------------------------------------------------------

func (maple *mapleImpl) Get(key string) ([]byte, bool, error) {
	maple.mu.RLock()
	defer maple.mu.RUnlock()
	value, ok := maple.shardFor(key).Load(key)
	if !ok {
		return nil, false, nil
	}
	return bytes.Clone(value), true, nil
}

func (maple *mapleImpl) Has(key string) (bool, error) {
	maple.mu.RLock()
	defer maple.mu.RUnlock()
	_, ok := maple.shardFor(key).Load(key)
	return ok, nil
}

// Range collects the matching keys of all shards, sorts them and then calls
// fn. Writes that happen during the callbacks are not observed.
func (maple *mapleImpl) Range(prefix string, fn db.RangeFunc) error {
	type kv struct {
		key   string
		value []byte
	}

	maple.mu.RLock()
	var matches []kv
	for _, s := range maple.shards {
		s.Range(func(key string, value []byte) bool {
			if util.HasPrefix(key, prefix) {
				matches = append(matches, kv{key, value})
			}
			return true
		})
	}
	maple.mu.RUnlock()

	sort.Slice(matches, func(i, j int) bool { return matches[i].key < matches[j].key })
	for _, m := range matches {
		if !fn(m.key, bytes.Clone(m.value)) {
			break
		}
	}
	return nil
}

// --------------------------------------------------------------------------
// Persistence Operations
// --------------------------------------------------------------------------

// Save writes a consistent snapshot of the database to w.
//
// Layout: magic, version (uint8), entry count (uint64), then per entry
// key length (uvarint), key, value length (uvarint), value. Entries are
// written in key order so equal databases produce equal files.
func (maple *mapleImpl) Save(w io.Writer) error {
	bw := bufio.NewWriterSize(w, 1024*1024) // 1 MB buffer

	var (
		keys   []string
		values = map[string][]byte{}
	)
	maple.mu.Lock()
	for _, s := range maple.shards {
		s.Range(func(key string, value []byte) bool {
			keys = append(keys, key)
			values[key] = value
			return true
		})
	}
	maple.mu.Unlock()
	sort.Strings(keys)

	if _, err := bw.WriteString(MagicNum); err != nil {
		return err
	}
	if err := binary.Write(bw, binary.LittleEndian, uint8(mapleVersion)); err != nil {
		return err
	}
	if err := binary.Write(bw, binary.LittleEndian, uint64(len(keys))); err != nil {
		return err
	}

	var lenBuf [binary.MaxVarintLen64]byte
	for _, key := range keys {
		n := binary.PutUvarint(lenBuf[:], uint64(len(key)))
		if _, err := bw.Write(lenBuf[:n]); err != nil {
			return err
		}
		if _, err := bw.WriteString(key); err != nil {
			return err
		}

		value := values[key]
		n = binary.PutUvarint(lenBuf[:], uint64(len(value)))
		if _, err := bw.Write(lenBuf[:n]); err != nil {
			return err
		}
		if _, err := bw.Write(value); err != nil {
			return err
		}
	}

	return bw.Flush()
}

// Load replaces the content of the database with a snapshot written by Save.
// On error the database is left unchanged.
func (maple *mapleImpl) Load(r io.Reader) error {
	br := bufio.NewReaderSize(r, 1024*1024) // 1 MB buffer

	magicBytes := make([]byte, len(MagicNum))
	if _, err := io.ReadFull(br, magicBytes); err != nil {
		return err
	}
	if string(magicBytes) != MagicNum {
		return fmt.Errorf("invalid file format: magic number mismatch")
	}

	var version uint8
	if err := binary.Read(br, binary.LittleEndian, &version); err != nil {
		return err
	}
	if int(version) != mapleVersion {
		return fmt.Errorf("unsupported version: %d (expected %d)", version, mapleVersion)
	}

	var count uint64
	if err := binary.Read(br, binary.LittleEndian, &count); err != nil {
		return err
	}

	shards := newShards(maple.numShards)
	loaded := &mapleImpl{numShards: maple.numShards, seed: maple.seed, shards: shards}

	for i := uint64(0); i < count; i++ {
		key, err := readChunk(br)
		if err != nil {
			return fmt.Errorf("entry %d: %w", i, err)
		}
		value, err := readChunk(br)
		if err != nil {
			return fmt.Errorf("entry %d: %w", i, err)
		}
		loaded.shardFor(string(key)).Store(string(key), value)
	}

	maple.mu.Lock()
	maple.shards = shards
	maple.mu.Unlock()
	return nil
}

func readChunk(br *bufio.Reader) ([]byte, error) {
	n, err := binary.ReadUvarint(br)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(br, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// Sync is a no-op, maple keeps everything in memory.
func (maple *mapleImpl) Sync() error {
	return nil
}

// --------------------------------------------------------------------------
// Features and Metadata
// --------------------------------------------------------------------------

const supportedFeatures = db.FeatureSet | db.FeatureGet | db.FeatureDelete | db.FeatureHas |
	db.FeatureRange | db.FeatureBatch | db.FeatureSave | db.FeatureLoad

func (maple *mapleImpl) SupportsFeature(feature db.Feature) bool {
	return supportedFeatures&feature == feature
}

// GetInfo returns exact key and size counts together with the shard distribution
func (maple *mapleImpl) GetInfo() db.DatabaseInfo {
	maple.mu.RLock()
	defer maple.mu.RUnlock()

	var (
		keys       int
		sizeBytes  int
		shardSizes = make([]float64, len(maple.shards))
	)
	for i, s := range maple.shards {
		s.Range(func(key string, value []byte) bool {
			keys++
			sizeBytes += len(key) + len(value)
			return true
		})
		shardSizes[i] = float64(s.Size())
	}

	meta := &struct {
		ShardCount        int                    `json:"shard_count"`
		ShardDistribution util.DistributionStats `json:"shard_distribution"`
	}{
		ShardCount:        len(maple.shards),
		ShardDistribution: util.NewDistributionStats(shardSizes),
	}

	return db.DatabaseInfo{
		SizeBytes:         sizeBytes,
		Keys:              keys,
		DbType:            db.ImplMaple,
		SupportedFeatures: db.Features(supportedFeatures),
		Metadata:          meta,
	}
}

// Close drops all data.
func (maple *mapleImpl) Close() error {
	maple.mu.Lock()
	defer maple.mu.Unlock()
	maple.shards = newShards(maple.numShards)
	return nil
}

func nonNil(b []byte) []byte {
	if b == nil {
		return []byte{}
	}
	return b
}
