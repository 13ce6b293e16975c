package h5

import (
	"slices"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/ValentinKolb/h5tree/lib/attrs"
	"github.com/ValentinKolb/h5tree/lib/backend"
	"github.com/ValentinKolb/h5tree/lib/ndarray"
	"github.com/lni/dragonboat/v4/logger"
)

var Logger = logger.GetLogger("h5")

// Storage is the entry point to a container file. It owns at most one open
// session and is not safe for concurrent use.
type Storage struct {
	id          backend.ID
	driver      backend.IDriver
	opts        Options
	compression backend.Filter

	filePath string
	t        *tree // nil until a file was opened
}

// New creates a facade for the backend id. It fails with
// ErrBackendUnavailable if the backend did not pass its probe.
func New(caps backend.Capabilities, id backend.ID, opts ...Option) (*Storage, error) {
	driver, err := caps.Driver(id)
	if err != nil {
		return nil, err
	}
	o := DefaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Storage{id: id, driver: driver, opts: o}, nil
}

// --------------------------------------------------------------------------
// File lifecycle
// --------------------------------------------------------------------------

// BackendID returns the backend this facade writes with.
func (s *Storage) BackendID() backend.ID { return s.id }

// FilePath returns the path of the last opened file.
func (s *Storage) FilePath() string { return s.filePath }

// Compression returns the filter applied to new datasets.
func (s *Storage) Compression() backend.Filter { return s.compression }

// IsOpen reports whether a file is open.
func (s *Storage) IsOpen() bool {
	return s.t != nil && s.t.b.IsOpen()
}

// session returns the open session or ErrClosed.
func (s *Storage) session() (*tree, error) {
	if !s.IsOpen() {
		return nil, backend.Errorf(backend.RetCClosed, "no file is open")
	}
	return s.t, nil
}

// OpenFile opens path with mode. A file opened with ModeWrite gets the root
// TITLE and the writer version. A previously opened file is closed first.
func (s *Storage) OpenFile(path string, mode backend.Mode, title string) error {
	if _, err := backend.ParseMode(string(mode)); err != nil {
		return err
	}
	if s.IsOpen() {
		s.CloseFile()
	}

	b, err := s.driver.Open(path, mode)
	if err != nil {
		return err
	}
	s.filePath = path
	s.t = &tree{b: b, classRepair: s.opts.ClassRepair}

	if mode == backend.ModeWrite {
		root, err := s.Root()
		if err == nil {
			err = root.Attrs().Set(attrs.KeyTitle, title)
		}
		if err == nil {
			err = root.Attrs().Set(VersionAttr, s.opts.Version)
		}
		if err != nil {
			s.CloseFile()
			return err
		}
	}

	Logger.Infof("opened %s with %s (mode %s)", path, s.id, mode)
	return nil
}

// CloseFile flushes and closes the open file. Failures are logged and
// otherwise ignored.
func (s *Storage) CloseFile() {
	if s.t == nil {
		return
	}
	b := s.t.b
	s.t = nil

	if !b.IsOpen() {
		return
	}
	if err := b.Flush(); err != nil {
		Logger.Warningf("flush %s: %v", s.filePath, err)
	}
	if err := b.Close(); err != nil {
		Logger.Warningf("close %s: %v", s.filePath, err)
	}
}

// Flush makes all previous writes durable.
func (s *Storage) Flush() error {
	t, err := s.session()
	if err != nil {
		return err
	}
	return t.b.Flush()
}

// SaveFileAs writes a full copy of the open file to path.
func (s *Storage) SaveFileAs(path string) error {
	t, err := s.session()
	if err != nil {
		return err
	}
	if err := t.b.Flush(); err != nil {
		return err
	}
	return t.b.CopyTo(path)
}

// DefineCompression sets the filter for all datasets created afterwards.
// "gzip" and "zlib" are the same deflate filter; level 0 disables compression.
func (s *Storage) DefineCompression(name string, level int) error {
	f, err := backend.NormalizeFilter(name, level)
	if err != nil {
		return err
	}
	s.compression = f
	return nil
}

// --------------------------------------------------------------------------
// Navigation
// --------------------------------------------------------------------------

// Root returns the root group.
func (s *Storage) Root() (*Group, error) {
	t, err := s.session()
	if err != nil {
		return nil, err
	}
	return t.group("/")
}

// GetNode resolves where, optionally followed by child names, to its node.
func (s *Storage) GetNode(where Where, name ...string) (Node, error) {
	t, err := s.session()
	if err != nil {
		return nil, err
	}
	path := where.Path()
	for _, n := range name {
		path = backend.JoinPath(path, n)
	}
	return t.resolvePath(path)
}

// GetChildren returns the children of the group at where.
func (s *Storage) GetChildren(where Where) (*Children, error) {
	g, err := s.group(where)
	if err != nil {
		return nil, err
	}
	return g.Children()
}

// GetNodeName returns the name of the node at where.
func (s *Storage) GetNodeName(where Where) (string, error) {
	n, err := s.GetNode(where)
	if err != nil {
		return "", err
	}
	return n.Name(), nil
}

// GetNodePath returns the normalized path of the node at where.
func (s *Storage) GetNodePath(where Where) (string, error) {
	n, err := s.GetNode(where)
	if err != nil {
		return "", err
	}
	return n.Path(), nil
}

// GetParentNode returns the parent of where, nil for the root.
func (s *Storage) GetParentNode(where Where) (Node, error) {
	t, err := s.session()
	if err != nil {
		return nil, err
	}
	h, err := t.b.Lookup(where.Path())
	if err != nil {
		return nil, err
	}
	p, ok, err := t.b.Parent(h)
	if err != nil || !ok {
		return nil, err
	}
	return t.resolve(p)
}

// IsNodeInGroup reports whether where has a child called name, ignoring case.
func (s *Storage) IsNodeInGroup(where Where, name string) (bool, error) {
	g, err := s.group(where)
	if err != nil {
		return false, err
	}
	names, err := g.ChildrenNames()
	if err != nil {
		return false, err
	}
	return slices.ContainsFunc(names, func(n string) bool {
		return strings.EqualFold(n, name)
	}), nil
}

// GetGroupByTitle returns the first direct child of where with CLASS GROUP
// whose TITLE equals title, or nil.
func (s *Storage) GetGroupByTitle(where Where, title string) (*Group, error) {
	children, err := s.GetChildren(where)
	if err != nil {
		return nil, err
	}
	for _, child := range children.All() {
		g, ok := child.(*Group)
		if !ok {
			continue
		}
		class, found, err := g.Attrs().Lookup(attrs.KeyClass)
		if err != nil {
			return nil, err
		}
		if !found || Class(attrs.AsString(class)) != ClassGroup {
			continue
		}
		v, found, err := g.Attrs().Lookup(attrs.KeyTitle)
		if err != nil {
			return nil, err
		}
		if found && attrs.AsString(v) == title {
			return g, nil
		}
	}
	return nil, nil
}

func (s *Storage) group(where Where) (*Group, error) {
	t, err := s.session()
	if err != nil {
		return nil, err
	}
	return t.group(where.Path())
}

// --------------------------------------------------------------------------
// Attributes
// --------------------------------------------------------------------------

// GetAttr returns the decoded attribute key of where.
func (s *Storage) GetAttr(where Where, key string) (interface{}, error) {
	n, err := s.GetNode(where)
	if err != nil {
		return nil, err
	}
	return n.Attrs().Get(key)
}

// GetAttrs returns all decoded attributes of where.
func (s *Storage) GetAttrs(where Where) (map[string]interface{}, error) {
	n, err := s.GetNode(where)
	if err != nil {
		return nil, err
	}
	return n.Attrs().All()
}

// SetAttr encodes v and stores it as attribute key of where.
func (s *Storage) SetAttr(where Where, key string, v interface{}) error {
	n, err := s.GetNode(where)
	if err != nil {
		return err
	}
	return n.Attrs().Set(key, v)
}

// --------------------------------------------------------------------------
// Creation
// --------------------------------------------------------------------------

// GetSetGroup returns the child group name of where, creating it with title
// if it does not exist. An existing group keeps its title. If the child is an
// array the result is ErrInvalidArgument; use GetNode to reach it.
func (s *Storage) GetSetGroup(where Where, name, title string) (*Group, error) {
	parent, err := s.group(where)
	if err != nil {
		return nil, err
	}
	names, err := parent.ChildrenNames()
	if err != nil {
		return nil, err
	}
	path := backend.JoinPath(parent.Path(), name)
	if slices.Contains(names, name) {
		return parent.t.group(path)
	}

	h, err := parent.t.b.CreateGroup(parent.h, name, title)
	if err != nil {
		return nil, err
	}
	return newGroup(parent.t, h), nil
}

// AddGroup creates a group of the given type below where. The name gets a
// capital first letter; an existing child with the given or the capitalized
// name is reused. The group always gets the `backend` attribute, new groups
// also `type` and the metadata.
func (s *Storage) AddGroup(name, groupType string, where Where, title string, metadata map[string]interface{}) (*Group, error) {
	gt, err := ParseGroupType(groupType)
	if err != nil {
		return nil, err
	}
	parent, err := s.group(where)
	if err != nil {
		return nil, err
	}
	names, err := parent.ChildrenNames()
	if err != nil {
		return nil, err
	}

	var g *Group
	if slices.Contains(names, name) {
		if g, err = parent.t.group(backend.JoinPath(parent.Path(), name)); err != nil {
			return nil, err
		}
	} else {
		if g, err = s.GetSetGroup(parent, capitalize(name), title); err != nil {
			return nil, err
		}
		if err := g.Attrs().Set("type", strings.ToLower(string(gt))); err != nil {
			return nil, err
		}
		keys := make([]string, 0, len(metadata))
		for k := range metadata {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if err := g.Attrs().Set(k, metadata[k]); err != nil {
				return nil, err
			}
		}
	}

	if err := g.Attrs().Set("backend", string(s.id)); err != nil {
		return nil, err
	}
	return g, nil
}

func capitalize(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

// arrayAttrs are the attributes every array carries besides TITLE and CLASS.
func (s *Storage) arrayAttrs(shape []int, dtype ndarray.DType, subdtype string) ([]backend.Attr, error) {
	if shape == nil {
		shape = []int{}
	}
	values := []struct {
		key string
		v   interface{}
	}{
		{"shape", shape},
		{"dtype", string(dtype)},
		{"subdtype", subdtype},
		{"backend", string(s.id)},
	}
	out := make([]backend.Attr, len(values))
	for i, kv := range values {
		raw, err := attrs.Encode(kv.v)
		if err != nil {
			return nil, err
		}
		out[i] = backend.Attr{Name: kv.key, Value: raw}
	}
	return out, nil
}

// CreateCArray stores data as a fixed array. A nil payload is ErrMissingData.
func (s *Storage) CreateCArray(where Where, name string, data *ndarray.Array, title string) (*CArray, error) {
	if data == nil {
		return nil, backend.Errorf(backend.RetCMissingData, "data to be saved as carray %s cannot be nil", name)
	}
	parent, err := s.group(where)
	if err != nil {
		return nil, err
	}

	stored := data
	if data.Rank() == 0 {
		if stored, err = data.Reshape(1); err != nil {
			return nil, err
		}
	}
	rows, err := stored.Rows()
	if err != nil {
		return nil, err
	}
	extra, err := s.arrayAttrs(data.Shape(), data.DType(), "")
	if err != nil {
		return nil, err
	}

	h, err := parent.t.b.CreateDataset(parent.h, name, backend.DatasetSpec{
		Kind:   backend.KindFixed,
		DType:  string(data.DType()),
		Shape:  stored.Shape(),
		Filter: s.compression,
		Rows:   rows,
		Title:  title,
		Class:  string(ClassCArray),
		Attrs:  extra,
	})
	if err != nil {
		return nil, err
	}
	return constructors[ClassCArray](node{t: parent.t, h: h, class: ClassCArray}).(*CArray), nil
}

// CreateEArray creates an empty array of dtype that grows along axis 0; every
// element has dataShape.
func (s *Storage) CreateEArray(where Where, name, dtype string, dataShape []int, title string) (*EArray, error) {
	dt, err := ndarray.ParseDType(dtype)
	if err != nil {
		return nil, backend.Errorf(backend.RetCInvalidArgument, "%v", err)
	}
	parent, err := s.group(where)
	if err != nil {
		return nil, err
	}

	shape := append([]int{0}, dataShape...)
	extra, err := s.arrayAttrs(shape, dt, "")
	if err != nil {
		return nil, err
	}

	h, err := parent.t.b.CreateDataset(parent.h, name, backend.DatasetSpec{
		Kind:   backend.KindExtendable,
		DType:  string(dt),
		Shape:  shape,
		Filter: s.compression,
		Title:  title,
		Class:  string(ClassEArray),
		Attrs:  extra,
	})
	if err != nil {
		return nil, err
	}
	return constructors[ClassEArray](node{t: parent.t, h: h, class: ClassEArray}).(*EArray), nil
}

// CreateVLArray creates an empty variable-length array. The dtype "string"
// creates a *StringArray, any other dtype a *VLArray.
func (s *Storage) CreateVLArray(where Where, name, dtype, title string) (Node, error) {
	subdtype := ""
	if dtype == SubDTypeString {
		dtype, subdtype = string(ndarray.Uint8), SubDTypeString
	}
	dt, err := ndarray.ParseDType(dtype)
	if err != nil {
		return nil, backend.Errorf(backend.RetCInvalidArgument, "%v", err)
	}
	parent, err := s.group(where)
	if err != nil {
		return nil, err
	}

	extra, err := s.arrayAttrs([]int{0}, dt, subdtype)
	if err != nil {
		return nil, err
	}

	h, err := parent.t.b.CreateDataset(parent.h, name, backend.DatasetSpec{
		Kind:   backend.KindVarLen,
		DType:  string(dt),
		Shape:  []int{0},
		Filter: s.compression,
		Title:  title,
		Class:  string(ClassVLArray),
		Attrs:  extra,
	})
	if err != nil {
		return nil, err
	}
	if subdtype == SubDTypeString {
		return newStringArray(parent.t, h), nil
	}
	return constructors[ClassVLArray](node{t: parent.t, h: h, class: ClassVLArray}), nil
}

// CreateStringArray is CreateVLArray with dtype "string".
func (s *Storage) CreateStringArray(where Where, name, title string) (*StringArray, error) {
	n, err := s.CreateVLArray(where, name, SubDTypeString, title)
	if err != nil {
		return nil, err
	}
	return n.(*StringArray), nil
}

// --------------------------------------------------------------------------
// Data
// --------------------------------------------------------------------------

// Read returns the content of an array node: *ndarray.Array for CArray and
// EArray, []*ndarray.Array for VLArray and []interface{} for StringArray.
func (s *Storage) Read(n Node) (interface{}, error) {
	switch a := n.(type) {
	case *CArray:
		return a.Read()
	case *EArray:
		return a.Read()
	case *VLArray:
		return a.Read()
	case *StringArray:
		return a.Read()
	default:
		return nil, backend.Errorf(backend.RetCInvalidArgument, "%s is a %s, not an array", n.Path(), n.Class())
	}
}
