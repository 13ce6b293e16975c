package kvtree

import (
	"strings"

	"github.com/ValentinKolb/h5tree/lib/attrs"
	"github.com/ValentinKolb/h5tree/lib/backend"
	"github.com/ValentinKolb/h5tree/lib/compress"
	"github.com/ValentinKolb/h5tree/lib/db"
)

// handle is a node path. It stays valid across sessions on the same file.
type handle string

func (h handle) Path() string { return string(h) }

// session is one open container file.
type session struct {
	path   string
	mode   backend.Mode
	engine db.Implementation
	kv     db.KVDB
	seq    uint64
	open   bool
	dirty  bool // writes since the last Flush
	codecs map[backend.Filter]*compress.Codec
}

// init creates the root of a new file or reads the sequence counter of an
// existing one.
func (s *session) init(exists bool) error {
	if !exists {
		root, err := encodeRecord(nodeRecord{Type: recordGroup})
		if err != nil {
			return err
		}
		err = s.batch([]db.Entry{
			{Key: nodeKey("/"), Value: root},
			{Key: keySeq, Value: encodeSeq(0)},
		})
		if err != nil {
			return err
		}
		return s.Flush()
	}

	if ok, err := s.kv.Has(nodeKey("/")); err != nil {
		return err
	} else if !ok {
		return backend.Errorf(backend.RetCCorruptMetadata, "%s has no root group", s.path)
	}

	raw, ok, err := s.kv.Get(keySeq)
	if err != nil {
		return err
	}
	if ok {
		if s.seq, err = decodeSeq(raw); err != nil {
			return err
		}
	}
	return nil
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// batch writes entries and marks the session dirty.
func (s *session) batch(entries []db.Entry) error {
	s.dirty = true
	return s.kv.Batch(entries)
}

func (s *session) checkOpen() error {
	if !s.open {
		return backend.Errorf(backend.RetCClosed, "file %s is closed", s.path)
	}
	return nil
}

func (s *session) checkWritable() error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	if !s.mode.Writable() {
		return backend.Errorf(backend.RetCReadOnly, "file %s is opened read-only", s.path)
	}
	return nil
}

func (s *session) record(path string) (nodeRecord, error) {
	raw, ok, err := s.kv.Get(nodeKey(path))
	if err != nil {
		return nodeRecord{}, err
	}
	if !ok {
		return nodeRecord{}, backend.Errorf(backend.RetCNotFound, "no node at %s", path)
	}
	return decodeRecord(path, raw)
}

func (s *session) group(path string) error {
	rec, err := s.record(path)
	if err != nil {
		return err
	}
	if rec.Type != recordGroup {
		return backend.Errorf(backend.RetCInvalidArgument, "%s is not a group", path)
	}
	return nil
}

func (s *session) dataset(path string) (*datasetRecord, error) {
	rec, err := s.record(path)
	if err != nil {
		return nil, err
	}
	if rec.Type != recordDataset {
		return nil, backend.Errorf(backend.RetCInvalidArgument, "%s is not a dataset", path)
	}
	return rec.Dataset, nil
}

// nextSeq reserves a sequence number. The caller persists the counter with
// seqEntry in the same batch.
func (s *session) nextSeq() uint64 {
	s.seq++
	return s.seq
}

func (s *session) seqEntry() db.Entry {
	return db.Entry{Key: keySeq, Value: encodeSeq(s.seq)}
}

func (s *session) codec(f backend.Filter) (*compress.Codec, error) {
	if c, ok := s.codecs[f]; ok {
		return c, nil
	}
	c, err := compress.New(f)
	if err != nil {
		return nil, err
	}
	if s.codecs == nil {
		s.codecs = make(map[backend.Filter]*compress.Codec)
	}
	s.codecs[f] = c
	return c, nil
}

// newChild checks that name can be created below parent and returns the
// child path.
func (s *session) newChild(parent backend.Handle, name string) (string, error) {
	if err := s.checkWritable(); err != nil {
		return "", err
	}
	if err := backend.ValidateName(name); err != nil {
		return "", err
	}
	ppath := backend.CleanPath(parent.Path())
	if err := s.group(ppath); err != nil {
		return "", err
	}
	child := backend.JoinPath(ppath, name)
	if ok, err := s.kv.Has(nodeKey(child)); err != nil {
		return "", err
	} else if ok {
		return "", backend.Errorf(backend.RetCExists, "%s already exists", child)
	}
	return child, nil
}

// attrEntries encodes attributes of a new node. A repeated name replaces the
// earlier value but keeps its position.
func (s *session) attrEntries(path string, list []backend.Attr) ([]db.Entry, error) {
	entries := make([]db.Entry, 0, 2*len(list))
	seen := make(map[string]bool, len(list))
	for _, a := range list {
		if err := validateAttrName(a.Name); err != nil {
			return nil, err
		}
		raw, err := backend.EncodeRaw(a.Value)
		if err != nil {
			return nil, err
		}
		entries = append(entries, db.Entry{Key: attrKey(path, a.Name), Value: raw})
		if !seen[a.Name] {
			seen[a.Name] = true
			entries = append(entries, db.Entry{Key: orderKey(path, s.nextSeq()), Value: []byte(a.Name)})
		}
	}
	return entries, nil
}

func validateAttrName(name string) error {
	if name == "" || strings.ContainsRune(name, 0) {
		return backend.Errorf(backend.RetCInvalidArgument, "invalid attribute name %q", name)
	}
	return nil
}

// --------------------------------------------------------------------------
// Session (docu see backend.IBackend)
// --------------------------------------------------------------------------

func (s *session) ID() backend.ID     { return backend.IDH5py }
func (s *session) Path() string       { return s.path }
func (s *session) Mode() backend.Mode { return s.mode }
func (s *session) IsOpen() bool       { return s.open }

// Flush syncs bolt files and writes maple snapshots to disk. It does nothing
// if there were no writes since the last Flush.
func (s *session) Flush() error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	if !s.mode.Writable() || !s.dirty {
		return nil
	}

	var err error
	if s.engine == db.ImplMaple {
		err = writeFile(s.path, s.kv.Save)
	} else {
		err = s.kv.Sync()
	}
	if err == nil {
		s.dirty = false
	}
	return err
}

func (s *session) Close() error {
	if !s.open {
		return nil
	}
	err := s.Flush()
	s.open = false

	if cerr := s.kv.Close(); err == nil {
		err = cerr
	}
	for _, c := range s.codecs {
		_ = c.Close()
	}
	s.codecs = nil
	return err
}

// CopyTo writes the engine snapshot to path. Both engines snapshot into
// their own file format, so the copy opens like any other file.
func (s *session) CopyTo(path string) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	return writeFile(path, s.kv.Save)
}

// --------------------------------------------------------------------------
// Navigation
// --------------------------------------------------------------------------

func (s *session) Root() (backend.Handle, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	return handle("/"), nil
}

func (s *session) Lookup(path string) (backend.Handle, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	path = backend.CleanPath(path)
	ok, err := s.kv.Has(nodeKey(path))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, backend.Errorf(backend.RetCNotFound, "no node at %s", path)
	}
	return handle(path), nil
}

func (s *session) Children(h backend.Handle) ([]backend.Child, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	path := backend.CleanPath(h.Path())
	if err := s.group(path); err != nil {
		return nil, err
	}

	var children []backend.Child
	err := s.kv.Range(childScan(path), func(_ string, value []byte) bool {
		name := string(value)
		children = append(children, backend.Child{Name: name, Handle: handle(backend.JoinPath(path, name))})
		return true
	})
	return children, err
}

func (s *session) Parent(h backend.Handle) (backend.Handle, bool, error) {
	if err := s.checkOpen(); err != nil {
		return nil, false, err
	}
	path := backend.CleanPath(h.Path())
	if _, err := s.record(path); err != nil {
		return nil, false, err
	}
	parent, ok := backend.ParentPath(path)
	if !ok {
		return nil, false, nil
	}
	return handle(parent), true, nil
}

// --------------------------------------------------------------------------
// Creation
// --------------------------------------------------------------------------

func (s *session) CreateGroup(parent backend.Handle, name, title string) (backend.Handle, error) {
	path, err := s.newChild(parent, name)
	if err != nil {
		return nil, err
	}
	rec, err := encodeRecord(nodeRecord{Type: recordGroup})
	if err != nil {
		return nil, err
	}

	ppath := backend.CleanPath(parent.Path())
	entries := []db.Entry{
		{Key: nodeKey(path), Value: rec},
		{Key: childKey(ppath, s.nextSeq()), Value: []byte(name)},
	}
	attrList, err := s.attrEntries(path, []backend.Attr{
		{Name: attrs.KeyTitle, Value: title},
		{Name: attrs.KeyClass, Value: "GROUP"},
	})
	if err != nil {
		return nil, err
	}
	entries = append(entries, attrList...)
	entries = append(entries, s.seqEntry())

	if err := s.batch(entries); err != nil {
		return nil, err
	}
	return handle(path), nil
}

func (s *session) CreateDataset(parent backend.Handle, name string, spec backend.DatasetSpec) (backend.Handle, error) {
	path, err := s.newChild(parent, name)
	if err != nil {
		return nil, err
	}
	elem, err := spec.Validate()
	if err != nil {
		return nil, err
	}
	if spec.Class == "" {
		return nil, backend.Errorf(backend.RetCInvalidArgument, "dataset %s needs a CLASS", path)
	}
	codec, err := s.codec(spec.Filter)
	if err != nil {
		return nil, err
	}

	ds := &datasetRecord{
		Kind:      spec.Kind,
		DType:     spec.DType,
		ElemShape: elem,
		MaxShape:  spec.MaxShapeOrShape(),
		Filter:    backend.NativeFilterName(backend.IDH5py, spec.Filter),
		Level:     spec.Filter.Level,
		Rows:      len(spec.Rows),
	}
	if !spec.Filter.Enabled() {
		ds.Level = 0
	}
	rec, err := encodeRecord(nodeRecord{Type: recordDataset, Dataset: ds})
	if err != nil {
		return nil, err
	}

	ppath := backend.CleanPath(parent.Path())
	entries := []db.Entry{
		{Key: nodeKey(path), Value: rec},
		{Key: childKey(ppath, s.nextSeq()), Value: []byte(name)},
	}
	for i, row := range spec.Rows {
		payload, err := codec.Compress(row)
		if err != nil {
			return nil, err
		}
		entries = append(entries, db.Entry{Key: rowKey(path, i), Value: payload})
	}

	structural := []backend.Attr{
		{Name: attrs.KeyTitle, Value: spec.Title},
		{Name: attrs.KeyClass, Value: spec.Class},
	}
	if spec.Kind != backend.KindFixed {
		structural = append(structural, backend.Attr{Name: attrs.KeyExtDim, Value: int64(0)})
	}
	attrList, err := s.attrEntries(path, append(structural, spec.Attrs...))
	if err != nil {
		return nil, err
	}
	entries = append(entries, attrList...)
	entries = append(entries, s.seqEntry())

	if err := s.batch(entries); err != nil {
		return nil, err
	}
	return handle(path), nil
}

// --------------------------------------------------------------------------
// Attributes
// --------------------------------------------------------------------------

func (s *session) GetAttr(h backend.Handle, key string) (interface{}, bool, error) {
	if err := s.checkOpen(); err != nil {
		return nil, false, err
	}
	path := backend.CleanPath(h.Path())
	if _, err := s.record(path); err != nil {
		return nil, false, err
	}
	raw, ok, err := s.kv.Get(attrKey(path, key))
	if err != nil || !ok {
		return nil, false, err
	}
	v, err := backend.DecodeRaw(raw)
	if err != nil {
		return nil, false, err
	}
	return v, true, nil
}

func (s *session) Attrs(h backend.Handle) (map[string]interface{}, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	path := backend.CleanPath(h.Path())
	if _, err := s.record(path); err != nil {
		return nil, err
	}

	prefix := attrScan(path)
	out := make(map[string]interface{})
	var decodeErr error
	err := s.kv.Range(prefix, func(key string, value []byte) bool {
		v, err := backend.DecodeRaw(value)
		if err != nil {
			decodeErr = err
			return false
		}
		out[strings.TrimPrefix(key, prefix)] = v
		return true
	})
	if err != nil {
		return nil, err
	}
	return out, decodeErr
}

func (s *session) AttrNames(h backend.Handle) ([]string, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	path := backend.CleanPath(h.Path())
	if _, err := s.record(path); err != nil {
		return nil, err
	}

	var names []string
	err := s.kv.Range(orderScan(path), func(_ string, value []byte) bool {
		names = append(names, string(value))
		return true
	})
	return names, err
}

func (s *session) SetAttr(h backend.Handle, key string, value interface{}) error {
	if err := s.checkWritable(); err != nil {
		return err
	}
	if err := validateAttrName(key); err != nil {
		return err
	}
	path := backend.CleanPath(h.Path())
	if _, err := s.record(path); err != nil {
		return err
	}
	raw, err := backend.EncodeRaw(value)
	if err != nil {
		return err
	}

	entries := []db.Entry{{Key: attrKey(path, key), Value: raw}}
	exists, err := s.kv.Has(attrKey(path, key))
	if err != nil {
		return err
	}
	if !exists {
		entries = append(entries,
			db.Entry{Key: orderKey(path, s.nextSeq()), Value: []byte(key)},
			s.seqEntry(),
		)
	}
	return s.batch(entries)
}

// --------------------------------------------------------------------------
// Data
// --------------------------------------------------------------------------

func (s *session) Dataset(h backend.Handle) (backend.DatasetInfo, error) {
	if err := s.checkOpen(); err != nil {
		return backend.DatasetInfo{}, err
	}
	ds, err := s.dataset(backend.CleanPath(h.Path()))
	if err != nil {
		return backend.DatasetInfo{}, err
	}
	return ds.info(), nil
}

func (s *session) AppendRow(h backend.Handle, row []byte) error {
	if err := s.checkWritable(); err != nil {
		return err
	}
	path := backend.CleanPath(h.Path())
	ds, err := s.dataset(path)
	if err != nil {
		return err
	}
	if err := ds.info().CheckRow(row); err != nil {
		return err
	}
	codec, err := s.codec(ds.info().Filter())
	if err != nil {
		return err
	}
	payload, err := codec.Compress(row)
	if err != nil {
		return err
	}

	idx := ds.Rows
	ds.Rows++
	rec, err := encodeRecord(nodeRecord{Type: recordDataset, Dataset: ds})
	if err != nil {
		return err
	}
	return s.batch([]db.Entry{
		{Key: rowKey(path, idx), Value: payload},
		{Key: nodeKey(path), Value: rec},
	})
}

func (s *session) ReadRows(h backend.Handle) ([][]byte, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	path := backend.CleanPath(h.Path())
	ds, err := s.dataset(path)
	if err != nil {
		return nil, err
	}
	codec, err := s.codec(ds.info().Filter())
	if err != nil {
		return nil, err
	}

	rows := make([][]byte, 0, ds.Rows)
	var decodeErr error
	err = s.kv.Range(rowScan(path), func(_ string, value []byte) bool {
		row, err := codec.Decompress(value)
		if err != nil {
			decodeErr = backend.Errorf(backend.RetCCorruptMetadata, "row %d of %s: %v", len(rows), path, err)
			return false
		}
		rows = append(rows, row)
		return true
	})
	if err != nil {
		return nil, err
	}
	if decodeErr != nil {
		return nil, decodeErr
	}
	if len(rows) != ds.Rows {
		return nil, backend.Errorf(backend.RetCCorruptMetadata, "%s records %d rows but stores %d", path, ds.Rows, len(rows))
	}
	return rows, nil
}

func (s *session) RowCount(h backend.Handle) (int, error) {
	if err := s.checkOpen(); err != nil {
		return 0, err
	}
	ds, err := s.dataset(backend.CleanPath(h.Path()))
	if err != nil {
		return 0, err
	}
	return ds.Rows, nil
}
