package tables

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/ValentinKolb/h5tree/lib/attrs"
	"github.com/ValentinKolb/h5tree/lib/backend"
	"github.com/ValentinKolb/h5tree/lib/compress"
)

type handle string

func (h handle) Path() string { return string(h) }

// node is one row of the nodes table.
type node struct {
	id        int64
	kind      backend.DatasetKind // 0 for groups
	dtype     string
	elemShape []int
	maxShape  []int
	filter    string
	level     int
	rows      int
}

func (n node) isGroup() bool { return n.kind == 0 }

func (n node) info() backend.DatasetInfo {
	return backend.DatasetInfo{
		Kind:       n.kind,
		DType:      n.dtype,
		ElemShape:  n.elemShape,
		MaxShape:   n.maxShape,
		FilterName: n.filter,
		Level:      n.level,
		Rows:       n.rows,
	}
}

type session struct {
	path   string
	mode   backend.Mode
	db     *sql.DB
	open   bool
	codecs map[backend.Filter]*compress.Codec
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// withTx runs fn in a transaction.
func (s *session) withTx(fn func(tx *sql.Tx) error) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
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

type queryer interface {
	QueryRow(query string, args ...interface{}) *sql.Row
}

func lookupNode(q queryer, path string) (node, error) {
	var (
		n                   node
		kind                int
		dtype, elem, maxStr sql.NullString
	)
	err := q.QueryRow(`
		SELECT id, kind, dtype, elem_shape, maxshape, filter, level, nrows
		FROM nodes WHERE path = ?`, path).
		Scan(&n.id, &kind, &dtype, &elem, &maxStr, &n.filter, &n.level, &n.rows)
	if errors.Is(err, sql.ErrNoRows) {
		return node{}, backend.Errorf(backend.RetCNotFound, "no node at %s", path)
	}
	if err != nil {
		return node{}, err
	}

	n.kind = backend.DatasetKind(kind)
	n.dtype = dtype.String
	if elem.Valid {
		if err := json.Unmarshal([]byte(elem.String), &n.elemShape); err != nil {
			return node{}, backend.Errorf(backend.RetCCorruptMetadata, "elem_shape of %s: %v", path, err)
		}
	}
	if maxStr.Valid {
		if err := json.Unmarshal([]byte(maxStr.String), &n.maxShape); err != nil {
			return node{}, backend.Errorf(backend.RetCCorruptMetadata, "maxshape of %s: %v", path, err)
		}
	}
	return n, nil
}

func (s *session) node(h backend.Handle) (string, node, error) {
	if err := s.checkOpen(); err != nil {
		return "", node{}, err
	}
	path := backend.CleanPath(h.Path())
	n, err := lookupNode(s.db, path)
	return path, n, err
}

func (s *session) datasetNode(h backend.Handle) (string, node, error) {
	path, n, err := s.node(h)
	if err != nil {
		return "", node{}, err
	}
	if n.isGroup() {
		return "", node{}, backend.Errorf(backend.RetCInvalidArgument, "%s is not a dataset", path)
	}
	return path, n, nil
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

// nativeValue converts a raw attribute into what the table library stores:
// TITLE and CLASS as bytes, everything else as is.
func nativeValue(key string, v interface{}) (interface{}, error) {
	v, err := backend.NormalizeRaw(v)
	if err != nil {
		return nil, err
	}
	if s, ok := v.(string); ok && (key == attrs.KeyTitle || key == attrs.KeyClass) {
		return []byte(s), nil
	}
	return v, nil
}

// rawValue turns the storage class and the blob cast of a column back into a
// raw attribute value.
func rawValue(storage string, b []byte) (interface{}, error) {
	switch storage {
	case "text":
		return string(b), nil
	case "blob":
		if b == nil {
			b = []byte{}
		}
		return b, nil
	case "integer":
		return strconv.ParseInt(string(b), 10, 64)
	default:
		return nil, backend.Errorf(backend.RetCCorruptMetadata, "unsupported attribute storage class %q", storage)
	}
}

func setAttr(tx *sql.Tx, nodeID int64, key string, value interface{}) error {
	if key == "" {
		return backend.Errorf(backend.RetCInvalidArgument, "empty attribute name")
	}
	native, err := nativeValue(key, value)
	if err != nil {
		return err
	}
	_, err = tx.Exec(`
		INSERT INTO attrs (node_id, name, seq, value)
		VALUES (?, ?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM attrs WHERE node_id = ?), ?)
		ON CONFLICT (node_id, name) DO UPDATE SET value = excluded.value`,
		nodeID, key, nodeID, native)
	return err
}

func marshalShape(shape []int) (interface{}, error) {
	if shape == nil {
		return nil, nil
	}
	b, err := json.Marshal(shape)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// createNode inserts a node below parent and returns its id.
func (s *session) createNode(tx *sql.Tx, parent backend.Handle, name string, n node) (string, int64, error) {
	if err := backend.ValidateName(name); err != nil {
		return "", 0, err
	}
	ppath := backend.CleanPath(parent.Path())
	p, err := lookupNode(tx, ppath)
	if err != nil {
		return "", 0, err
	}
	if !p.isGroup() {
		return "", 0, backend.Errorf(backend.RetCInvalidArgument, "%s is not a group", ppath)
	}

	path := backend.JoinPath(ppath, name)
	var exists int
	if err := tx.QueryRow(`SELECT COUNT(*) FROM nodes WHERE path = ?`, path).Scan(&exists); err != nil {
		return "", 0, err
	}
	if exists > 0 {
		return "", 0, backend.Errorf(backend.RetCExists, "%s already exists", path)
	}

	elem, err := marshalShape(n.elemShape)
	if err != nil {
		return "", 0, err
	}
	maxShape, err := marshalShape(n.maxShape)
	if err != nil {
		return "", 0, err
	}
	var dtype interface{}
	if n.dtype != "" {
		dtype = n.dtype
	}

	res, err := tx.Exec(`
		INSERT INTO nodes (parent_id, name, path, kind, dtype, elem_shape, maxshape, filter, level, nrows)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.id, name, path, int(n.kind), dtype, elem, maxShape, n.filter, n.level, n.rows)
	if err != nil {
		return "", 0, err
	}
	id, err := res.LastInsertId()
	return path, id, err
}

// --------------------------------------------------------------------------
// Session (docu see backend.IBackend)
// --------------------------------------------------------------------------

func (s *session) ID() backend.ID     { return backend.IDTables }
func (s *session) Path() string       { return s.path }
func (s *session) Mode() backend.Mode { return s.mode }
func (s *session) IsOpen() bool       { return s.open }

// Flush checks the connection. Every write already committed its own
// transaction.
func (s *session) Flush() error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	return s.db.Ping()
}

func (s *session) Close() error {
	if !s.open {
		return nil
	}
	s.open = false
	for _, c := range s.codecs {
		_ = c.Close()
	}
	s.codecs = nil
	return s.db.Close()
}

// CopyTo writes a compacted copy of the database with VACUUM INTO. An
// existing file at path is replaced.
func (s *session) CopyTo(path string) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	_, err := s.db.Exec(`VACUUM INTO ?`, path)
	return err
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
	path, _, err := s.node(handle(path))
	if err != nil {
		return nil, err
	}
	return handle(path), nil
}

func (s *session) Children(h backend.Handle) ([]backend.Child, error) {
	path, n, err := s.node(h)
	if err != nil {
		return nil, err
	}
	if !n.isGroup() {
		return nil, backend.Errorf(backend.RetCInvalidArgument, "%s is not a group", path)
	}

	rows, err := s.db.Query(`SELECT name FROM nodes WHERE parent_id = ? ORDER BY id`, n.id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var children []backend.Child
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		children = append(children, backend.Child{Name: name, Handle: handle(backend.JoinPath(path, name))})
	}
	return children, rows.Err()
}

func (s *session) Parent(h backend.Handle) (backend.Handle, bool, error) {
	path, _, err := s.node(h)
	if err != nil {
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
	if err := s.checkWritable(); err != nil {
		return nil, err
	}

	var path string
	err := s.withTx(func(tx *sql.Tx) error {
		p, id, err := s.createNode(tx, parent, name, node{})
		if err != nil {
			return err
		}
		path = p
		if err := setAttr(tx, id, attrs.KeyTitle, title); err != nil {
			return err
		}
		return setAttr(tx, id, attrs.KeyClass, "GROUP")
	})
	if err != nil {
		return nil, err
	}
	return handle(path), nil
}

func (s *session) CreateDataset(parent backend.Handle, name string, spec backend.DatasetSpec) (backend.Handle, error) {
	if err := s.checkWritable(); err != nil {
		return nil, err
	}
	elem, err := spec.Validate()
	if err != nil {
		return nil, err
	}
	if spec.Class == "" {
		return nil, backend.Errorf(backend.RetCInvalidArgument, "dataset %s needs a CLASS", name)
	}
	codec, err := s.codec(spec.Filter)
	if err != nil {
		return nil, err
	}

	n := node{
		kind:      spec.Kind,
		dtype:     spec.DType,
		elemShape: elem,
		maxShape:  spec.MaxShapeOrShape(),
		filter:    backend.NativeFilterName(backend.IDTables, spec.Filter),
		rows:      len(spec.Rows),
	}
	if spec.Filter.Enabled() {
		n.level = spec.Filter.Level
	}

	var path string
	err = s.withTx(func(tx *sql.Tx) error {
		p, id, err := s.createNode(tx, parent, name, n)
		if err != nil {
			return err
		}
		path = p

		for i, row := range spec.Rows {
			payload, err := codec.Compress(row)
			if err != nil {
				return err
			}
			if _, err := tx.Exec(`INSERT INTO dataset_rows (node_id, idx, data) VALUES (?, ?, ?)`, id, i, payload); err != nil {
				return err
			}
		}

		if err := setAttr(tx, id, attrs.KeyTitle, spec.Title); err != nil {
			return err
		}
		if err := setAttr(tx, id, attrs.KeyClass, spec.Class); err != nil {
			return err
		}
		if spec.Kind != backend.KindFixed {
			if err := setAttr(tx, id, attrs.KeyExtDim, int64(0)); err != nil {
				return err
			}
		}
		for _, a := range spec.Attrs {
			if err := setAttr(tx, id, a.Name, a.Value); err != nil {
				return fmt.Errorf("attribute %s: %w", a.Name, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return handle(path), nil
}

// --------------------------------------------------------------------------
// Attributes
// --------------------------------------------------------------------------

func (s *session) GetAttr(h backend.Handle, key string) (interface{}, bool, error) {
	_, n, err := s.node(h)
	if err != nil {
		return nil, false, err
	}

	var (
		storage string
		b       []byte
	)
	err = s.db.QueryRow(`SELECT typeof(value), CAST(value AS BLOB) FROM attrs WHERE node_id = ? AND name = ?`, n.id, key).
		Scan(&storage, &b)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	v, err := rawValue(storage, b)
	if err != nil {
		return nil, false, err
	}
	return v, true, nil
}

// forEachAttr calls fn for every attribute of a node in insertion order.
func (s *session) forEachAttr(h backend.Handle, fn func(name string, value interface{})) error {
	_, n, err := s.node(h)
	if err != nil {
		return err
	}

	rows, err := s.db.Query(`SELECT name, typeof(value), CAST(value AS BLOB) FROM attrs WHERE node_id = ? ORDER BY seq`, n.id)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			name, storage string
			b             []byte
		)
		if err := rows.Scan(&name, &storage, &b); err != nil {
			return err
		}
		v, err := rawValue(storage, b)
		if err != nil {
			return fmt.Errorf("attribute %s: %w", name, err)
		}
		fn(name, v)
	}
	return rows.Err()
}

func (s *session) Attrs(h backend.Handle) (map[string]interface{}, error) {
	out := make(map[string]interface{})
	err := s.forEachAttr(h, func(name string, value interface{}) {
		out[name] = value
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *session) AttrNames(h backend.Handle) ([]string, error) {
	var names []string
	err := s.forEachAttr(h, func(name string, _ interface{}) {
		names = append(names, name)
	})
	if err != nil {
		return nil, err
	}
	return names, nil
}

func (s *session) SetAttr(h backend.Handle, key string, value interface{}) error {
	if err := s.checkWritable(); err != nil {
		return err
	}
	_, n, err := s.node(h)
	if err != nil {
		return err
	}
	return s.withTx(func(tx *sql.Tx) error {
		return setAttr(tx, n.id, key, value)
	})
}

// --------------------------------------------------------------------------
// Data
// --------------------------------------------------------------------------

func (s *session) Dataset(h backend.Handle) (backend.DatasetInfo, error) {
	_, n, err := s.datasetNode(h)
	if err != nil {
		return backend.DatasetInfo{}, err
	}
	return n.info(), nil
}

func (s *session) AppendRow(h backend.Handle, row []byte) error {
	if err := s.checkWritable(); err != nil {
		return err
	}
	_, n, err := s.datasetNode(h)
	if err != nil {
		return err
	}
	if err := n.info().CheckRow(row); err != nil {
		return err
	}
	codec, err := s.codec(n.info().Filter())
	if err != nil {
		return err
	}
	payload, err := codec.Compress(row)
	if err != nil {
		return err
	}

	return s.withTx(func(tx *sql.Tx) error {
		if _, err := tx.Exec(`INSERT INTO dataset_rows (node_id, idx, data) VALUES (?, ?, ?)`, n.id, n.rows, payload); err != nil {
			return err
		}
		_, err := tx.Exec(`UPDATE nodes SET nrows = nrows + 1 WHERE id = ?`, n.id)
		return err
	})
}

func (s *session) ReadRows(h backend.Handle) ([][]byte, error) {
	path, n, err := s.datasetNode(h)
	if err != nil {
		return nil, err
	}
	codec, err := s.codec(n.info().Filter())
	if err != nil {
		return nil, err
	}

	rows, err := s.db.Query(`SELECT data FROM dataset_rows WHERE node_id = ? ORDER BY idx`, n.id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([][]byte, 0, n.rows)
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, err
		}
		row, err := codec.Decompress(payload)
		if err != nil {
			return nil, backend.Errorf(backend.RetCCorruptMetadata, "row %d of %s: %v", len(out), path, err)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) != n.rows {
		return nil, backend.Errorf(backend.RetCCorruptMetadata, "%s records %d rows but stores %d", path, n.rows, len(out))
	}
	return out, nil
}

func (s *session) RowCount(h backend.Handle) (int, error) {
	_, n, err := s.datasetNode(h)
	if err != nil {
		return 0, err
	}
	return n.rows, nil
}
