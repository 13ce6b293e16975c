package bolt

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/ValentinKolb/h5tree/lib/db"
	"go.etcd.io/bbolt"
)

var bucketName = []byte("h5tree")

// Options configures the bbolt file.
type Options struct {
	Path     string        // database file, created if missing
	NoSync   bool          // skip fsync on commit, Sync still flushes
	Timeout  time.Duration // how long to wait for the file lock
	ReadOnly bool          // shared lock, all writes fail
	Perm     os.FileMode
}

// DefaultOptions returns the options used by the kvtree backend.
func DefaultOptions(path string) *Options {
	return &Options{
		Path:    path,
		NoSync:  true,
		Timeout: time.Second,
		Perm:    0o600,
	}
}

type boltImpl struct {
	db       *bbolt.DB
	noSync   bool
	readOnly bool
}

// NewBoltDB opens (or creates) the bbolt file described by opts.
func NewBoltDB(opts *Options) (db.KVDB, error) {
	if opts == nil || opts.Path == "" {
		return nil, errors.New("bolt: empty database path")
	}
	if opts.Perm == 0 {
		opts.Perm = 0o600
	}

	bdb, err := bbolt.Open(opts.Path, opts.Perm, &bbolt.Options{
		Timeout:      opts.Timeout,
		NoSync:       opts.NoSync,
		ReadOnly:     opts.ReadOnly,
		NoStatistics: true,
		FreelistType: bbolt.DefaultOptions.FreelistType,
	})
	if err != nil {
		return nil, fmt.Errorf("can't open bbolt at %s: %w", opts.Path, err)
	}

	if opts.ReadOnly {
		err = bdb.View(func(tx *bbolt.Tx) error {
			if tx.Bucket(bucketName) == nil {
				return fmt.Errorf("bucket %q missing", bucketName)
			}
			return nil
		})
	} else {
		err = bdb.Update(func(tx *bbolt.Tx) error {
			_, err := tx.CreateBucketIfNotExists(bucketName)
			return err
		})
	}
	if err != nil {
		_ = bdb.Close()
		return nil, fmt.Errorf("can't create bucket in %s: %w", opts.Path, err)
	}

	return &boltImpl{db: bdb, noSync: opts.NoSync, readOnly: opts.ReadOnly}, nil
}

// --------------------------------------------------------------------------
// Write Operations (docu see db.KVDB)
// --------------------------------------------------------------------------

func (b *boltImpl) Set(key string, value []byte) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketName).Put([]byte(key), bytes.Clone(nonNil(value)))
	})
}

func (b *boltImpl) Delete(key string) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketName).Delete([]byte(key))
	})
}

func (b *boltImpl) Batch(entries []db.Entry) error {
	if len(entries) == 0 {
		return nil
	}
	return b.db.Update(func(tx *bbolt.Tx) error {
		bkt := tx.Bucket(bucketName)
		for _, e := range entries {
			var err error
			if e.Delete {
				err = bkt.Delete([]byte(e.Key))
			} else {
				err = bkt.Put([]byte(e.Key), bytes.Clone(nonNil(e.Value)))
			}
			if err != nil {
				return fmt.Errorf("key %q: %w", e.Key, err)
			}
		}
		return nil
	})
}

// --------------------------------------------------------------------------
// Query Operations (docu see db.KVDB)
// --------------------------------------------------------------------------

func (b *boltImpl) Get(key string) (value []byte, loaded bool, err error) {
	k := []byte(key)
	err = b.db.View(func(tx *bbolt.Tx) error {
		// bbolt may report zero length values as nil, so compare the key
		ck, v := tx.Bucket(bucketName).Cursor().Seek(k)
		if ck == nil || !bytes.Equal(ck, k) {
			return nil
		}
		value, loaded = make([]byte, len(v)), true
		copy(value, v)
		return nil
	})
	return
}

func (b *boltImpl) Has(key string) (bool, error) {
	_, ok, err := b.Get(key)
	return ok, err
}

// Range runs fn inside a read transaction. fn must not call back into the
// database.
func (b *boltImpl) Range(prefix string, fn db.RangeFunc) error {
	p := []byte(prefix)
	return b.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket(bucketName).Cursor()
		for k, v := c.Seek(p); k != nil && bytes.HasPrefix(k, p); k, v = c.Next() {
			if !fn(string(k), bytes.Clone(nonNil(v))) {
				break
			}
		}
		return nil
	})
}

// --------------------------------------------------------------------------
// Persistence Operations
// --------------------------------------------------------------------------

// Save streams a consistent copy of the bbolt file to w.
func (b *boltImpl) Save(w io.Writer) error {
	return b.db.View(func(tx *bbolt.Tx) error {
		_, err := tx.WriteTo(w)
		return err
	})
}

// Load reads a bbolt file written by Save and replaces the bucket content
// with it in a single transaction.
func (b *boltImpl) Load(r io.Reader) error {
	tmp, err := os.CreateTemp(filepath.Dir(b.db.Path()), ".bolt-load-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	n, err := io.Copy(tmp, r)
	if err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	// two meta pages, freelist and one leaf at the very least
	if n < int64(4*os.Getpagesize()) {
		return fmt.Errorf("invalid snapshot: %d bytes is too short for a bbolt file", n)
	}

	src, err := bbolt.Open(tmp.Name(), 0o600, &bbolt.Options{ReadOnly: true, Timeout: time.Second})
	if err != nil {
		return fmt.Errorf("invalid snapshot: %w", err)
	}
	defer src.Close()

	return src.View(func(stx *bbolt.Tx) error {
		from := stx.Bucket(bucketName)
		if from == nil {
			return fmt.Errorf("invalid snapshot: bucket %q missing", bucketName)
		}
		return b.db.Update(func(tx *bbolt.Tx) error {
			if err := tx.DeleteBucket(bucketName); err != nil {
				return err
			}
			to, err := tx.CreateBucket(bucketName)
			if err != nil {
				return err
			}
			return from.ForEach(func(k, v []byte) error {
				return to.Put(bytes.Clone(k), bytes.Clone(nonNil(v)))
			})
		})
	})
}

func (b *boltImpl) Sync() error {
	if b.readOnly {
		return nil
	}
	return b.db.Sync()
}

// --------------------------------------------------------------------------
// Features and Metadata
// --------------------------------------------------------------------------

const supportedFeatures = db.FeatureSet | db.FeatureGet | db.FeatureDelete | db.FeatureHas |
	db.FeatureRange | db.FeatureBatch | db.FeatureSave | db.FeatureLoad | db.FeatureDurable

func (b *boltImpl) SupportsFeature(feature db.Feature) bool {
	return supportedFeatures&feature == feature
}

func (b *boltImpl) GetInfo() db.DatabaseInfo {
	info := db.DatabaseInfo{
		DbType:            db.ImplBolt,
		SupportedFeatures: db.Features(supportedFeatures),
	}

	_ = b.db.View(func(tx *bbolt.Tx) error {
		info.SizeBytes = int(tx.Size())
		return tx.Bucket(bucketName).ForEach(func(_, _ []byte) error {
			info.Keys++
			return nil
		})
	})

	info.Metadata = &struct {
		Path     string `json:"path"`
		NoSync   bool   `json:"no_sync"`
		ReadOnly bool   `json:"read_only"`
	}{
		Path:     b.db.Path(),
		NoSync:   b.noSync,
		ReadOnly: b.readOnly,
	}
	return info
}

func (b *boltImpl) Close() error {
	return b.db.Close()
}

func nonNil(v []byte) []byte {
	if v == nil {
		return []byte{}
	}
	return v
}
