package kvtree

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/ValentinKolb/h5tree/lib/backend"
	"github.com/ValentinKolb/h5tree/lib/db"
	"github.com/ValentinKolb/h5tree/lib/db/engines/bolt"
	"github.com/ValentinKolb/h5tree/lib/db/engines/maple"
	"github.com/lni/dragonboat/v4/logger"
)

var Logger = logger.GetLogger("kvtree")

// --------------------------------------------------------------------------
// Options
// --------------------------------------------------------------------------

type options struct {
	engine db.Implementation
	noSync bool
	shards int
}

// Option configures a Driver.
type Option func(*options)

// WithEngine selects the KV engine used for new files. Existing files are
// always opened with the engine that wrote them.
func WithEngine(engine db.Implementation) Option {
	return func(o *options) {
		o.engine = engine
	}
}

// WithNoSync disables fsync on every bolt commit. Flush still syncs.
func WithNoSync(noSync bool) Option {
	return func(o *options) {
		o.noSync = noSync
	}
}

// WithShards sets the number of maple shards (0 = one per CPU).
func WithShards(n int) Option {
	return func(o *options) {
		o.shards = n
	}
}

// --------------------------------------------------------------------------
// Driver
// --------------------------------------------------------------------------

// Driver opens container files stored in a KV engine. It implements the
// general hierarchical backend (h5py).
type Driver struct {
	opts options
}

// NewDriver creates a driver. Without options new files use bolt.
func NewDriver(opts ...Option) *Driver {
	o := options{engine: db.ImplBolt, noSync: true}
	for _, opt := range opts {
		opt(&o)
	}
	return &Driver{opts: o}
}

func (d *Driver) ID() backend.ID {
	return backend.IDH5py
}

// Engine returns the engine used for new files.
func (d *Driver) Engine() db.Implementation {
	return d.opts.engine
}

// Probe opens and closes a scratch database with the configured engine.
func (d *Driver) Probe() error {
	switch d.opts.engine {
	case db.ImplMaple:
		return maple.NewMapleDB(&maple.DBOptions{NumShards: 1}).Close()
	case db.ImplBolt:
		dir, err := os.MkdirTemp("", "h5tree-probe-*")
		if err != nil {
			return err
		}
		defer os.RemoveAll(dir)
		kv, err := bolt.NewBoltDB(bolt.DefaultOptions(filepath.Join(dir, "probe.db")))
		if err != nil {
			return err
		}
		return kv.Close()
	default:
		return fmt.Errorf("unknown kv engine %q", d.opts.engine)
	}
}

// boltMagic is stored after the 16 byte page header of the first bbolt meta
// page, in the byte order of the machine that created the file.
const (
	boltMagic       uint32 = 0xED0CDAED
	boltMagicOffset        = 16
)

// Recognize reports whether header starts a maple snapshot or a bbolt file.
func (d *Driver) Recognize(header []byte) bool {
	if bytes.HasPrefix(header, []byte(maple.MagicNum)) {
		return true
	}
	if len(header) < boltMagicOffset+4 {
		return false
	}
	magic := header[boltMagicOffset : boltMagicOffset+4]
	return binary.LittleEndian.Uint32(magic) == boltMagic || binary.BigEndian.Uint32(magic) == boltMagic
}

// Open opens the container at path with h5py mode semantics.
func (d *Driver) Open(path string, mode backend.Mode) (backend.IBackend, error) {
	if _, err := backend.ParseMode(string(mode)); err != nil {
		return nil, err
	}

	exists, err := fileExists(path)
	if err != nil {
		return nil, err
	}

	switch mode {
	case backend.ModeRead, backend.ModeReadWrite:
		if !exists {
			return nil, backend.Errorf(backend.RetCNotFound, "file %s does not exist", path)
		}
	case backend.ModeWrite:
		if exists {
			if err := os.Remove(path); err != nil {
				return nil, fmt.Errorf("truncate %s: %w", path, err)
			}
			exists = false
		}
	}

	engine := d.opts.engine
	if exists {
		if engine, err = detectEngine(path); err != nil {
			return nil, err
		}
	}

	kv, err := d.openEngine(path, engine, mode, exists)
	if err != nil {
		return nil, err
	}

	s := &session{
		path:   path,
		mode:   mode,
		engine: engine,
		kv:     kv,
		open:   true,
	}
	if err := s.init(exists); err != nil {
		_ = kv.Close()
		return nil, err
	}

	Logger.Debugf("opened %s (mode %s, engine %s)", path, mode, engine)
	return s, nil
}

func (d *Driver) openEngine(path string, engine db.Implementation, mode backend.Mode, exists bool) (db.KVDB, error) {
	switch engine {
	case db.ImplBolt:
		opts := bolt.DefaultOptions(path)
		opts.NoSync = d.opts.noSync
		opts.ReadOnly = !mode.Writable()
		return bolt.NewBoltDB(opts)
	case db.ImplMaple:
		kv := maple.NewMapleDB(&maple.DBOptions{NumShards: d.opts.shards})
		if !exists {
			return kv, nil
		}
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		if err := kv.Load(f); err != nil {
			return nil, backend.Errorf(backend.RetCCorruptMetadata, "load %s: %v", path, err)
		}
		return kv, nil
	default:
		return nil, fmt.Errorf("unknown kv engine %q", engine)
	}
}

// detectEngine tells maple snapshots from bbolt files by their magic.
func detectEngine(path string) (db.Implementation, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	header := make([]byte, len(maple.MagicNum))
	if _, err := io.ReadFull(bufio.NewReader(f), header); err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", err
	}
	if string(header) == maple.MagicNum {
		return db.ImplMaple, nil
	}
	return db.ImplBolt, nil
}

func fileExists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, err
}

// writeFile writes the output of save to a temporary file next to path and
// renames it into place.
func writeFile(path string, save func(io.Writer) error) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := save(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
