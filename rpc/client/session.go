package client

import (
	"github.com/ValentinKolb/h5tree/lib/backend"
	"github.com/ValentinKolb/h5tree/rpc/common"
)

// handle is a remote node reference. Nodes are addressed by path on the wire.
type handle string

func (h handle) Path() string {
	return string(h)
}

// session is an open remote session. Like every backend.IBackend it is not
// safe for concurrent use.
type session struct {
	driver *Driver
	id     string
	path   string
	mode   backend.Mode
	open   bool
}

// --------------------------------------------------------------------------
// Interface Methods (docu see backend.IBackend)
// --------------------------------------------------------------------------

func (s *session) ID() backend.ID     { return backend.IDH5pyd }
func (s *session) Path() string       { return s.path }
func (s *session) Mode() backend.Mode { return s.mode }
func (s *session) IsOpen() bool       { return s.open }

func (s *session) Flush() error {
	if err := s.check(); err != nil {
		return err
	}
	_, err := s.driver.invoke(common.NewSessionRequest(common.MsgTFlush, s.id))
	return err
}

func (s *session) Close() error {
	if !s.open {
		return nil
	}
	s.open = false
	_, err := s.driver.invoke(common.NewSessionRequest(common.MsgTClose, s.id))
	return err
}

func (s *session) CopyTo(path string) error {
	if err := s.check(); err != nil {
		return err
	}
	_, err := s.driver.invoke(common.NewCopyToRequest(s.id, path))
	return err
}

func (s *session) Root() (backend.Handle, error) {
	return s.Lookup("/")
}

func (s *session) Lookup(path string) (backend.Handle, error) {
	if err := s.check(); err != nil {
		return nil, err
	}
	resp, err := s.driver.invoke(common.NewNodeRequest(common.MsgTLookup, s.id, path))
	if err != nil {
		return nil, err
	}
	return handle(resp.Path), nil
}

func (s *session) Children(h backend.Handle) ([]backend.Child, error) {
	path, err := s.node(h)
	if err != nil {
		return nil, err
	}
	resp, err := s.driver.invoke(common.NewNodeRequest(common.MsgTChildren, s.id, path))
	if err != nil {
		return nil, err
	}
	children := make([]backend.Child, len(resp.Names))
	for i, name := range resp.Names {
		children[i] = backend.Child{Name: name, Handle: handle(backend.JoinPath(path, name))}
	}
	return children, nil
}

// Parent is resolved locally, paths carry the whole ancestry.
func (s *session) Parent(h backend.Handle) (backend.Handle, bool, error) {
	path, err := s.node(h)
	if err != nil {
		return nil, false, err
	}
	parent, ok := backend.ParentPath(path)
	if !ok {
		return nil, false, nil
	}
	return handle(parent), true, nil
}

func (s *session) CreateGroup(parent backend.Handle, name, title string) (backend.Handle, error) {
	path, err := s.node(parent)
	if err != nil {
		return nil, err
	}
	resp, err := s.driver.invoke(common.NewCreateGroupRequest(s.id, path, name, title))
	if err != nil {
		return nil, err
	}
	return handle(resp.Path), nil
}

func (s *session) CreateDataset(parent backend.Handle, name string, spec backend.DatasetSpec) (backend.Handle, error) {
	path, err := s.node(parent)
	if err != nil {
		return nil, err
	}
	req, err := common.NewCreateDatasetRequest(s.id, path, name, spec)
	if err != nil {
		return nil, err
	}
	resp, err := s.driver.invoke(req)
	if err != nil {
		return nil, err
	}
	return handle(resp.Path), nil
}

func (s *session) GetAttr(h backend.Handle, key string) (interface{}, bool, error) {
	path, err := s.node(h)
	if err != nil {
		return nil, false, err
	}
	resp, err := s.driver.invoke(common.NewGetAttrRequest(s.id, path, key))
	if err != nil || !resp.Ok {
		return nil, false, err
	}
	value, err := backend.DecodeRaw(resp.Value)
	if err != nil {
		return nil, false, err
	}
	return value, true, nil
}

func (s *session) Attrs(h backend.Handle) (map[string]interface{}, error) {
	path, err := s.node(h)
	if err != nil {
		return nil, err
	}
	resp, err := s.driver.invoke(common.NewNodeRequest(common.MsgTAttrs, s.id, path))
	if err != nil {
		return nil, err
	}
	return common.DecodeAttrs(resp.Names, resp.Rows)
}

func (s *session) AttrNames(h backend.Handle) ([]string, error) {
	path, err := s.node(h)
	if err != nil {
		return nil, err
	}
	resp, err := s.driver.invoke(common.NewNodeRequest(common.MsgTAttrNames, s.id, path))
	if err != nil {
		return nil, err
	}
	return resp.Names, nil
}

func (s *session) SetAttr(h backend.Handle, key string, value interface{}) error {
	path, err := s.node(h)
	if err != nil {
		return err
	}
	value, err = backend.NormalizeRaw(value)
	if err != nil {
		return err
	}
	req, err := common.NewSetAttrRequest(s.id, path, key, value)
	if err != nil {
		return err
	}
	_, err = s.driver.invoke(req)
	return err
}

func (s *session) Dataset(h backend.Handle) (backend.DatasetInfo, error) {
	path, err := s.node(h)
	if err != nil {
		return backend.DatasetInfo{}, err
	}
	resp, err := s.driver.invoke(common.NewNodeRequest(common.MsgTDataset, s.id, path))
	if err != nil {
		return backend.DatasetInfo{}, err
	}
	return common.DecodeDatasetInfo(resp.Value)
}

func (s *session) AppendRow(h backend.Handle, row []byte) error {
	path, err := s.node(h)
	if err != nil {
		return err
	}
	_, err = s.driver.invoke(common.NewAppendRowRequest(s.id, path, row))
	return err
}

func (s *session) ReadRows(h backend.Handle) ([][]byte, error) {
	path, err := s.node(h)
	if err != nil {
		return nil, err
	}
	resp, err := s.driver.invoke(common.NewNodeRequest(common.MsgTReadRows, s.id, path))
	if err != nil {
		return nil, err
	}
	rows := resp.Rows
	for i, row := range rows {
		if row == nil {
			rows[i] = []byte{}
		}
	}
	return rows, nil
}

func (s *session) RowCount(h backend.Handle) (int, error) {
	path, err := s.node(h)
	if err != nil {
		return 0, err
	}
	resp, err := s.driver.invoke(common.NewNodeRequest(common.MsgTRowCount, s.id, path))
	if err != nil {
		return 0, err
	}
	return int(resp.Num), nil
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

func (s *session) check() error {
	if !s.open {
		return backend.Errorf(backend.RetCClosed, "session on %s is closed", s.path)
	}
	return nil
}

// node checks the session and returns the path of h
func (s *session) node(h backend.Handle) (string, error) {
	if err := s.check(); err != nil {
		return "", err
	}
	if h == nil {
		return "", backend.Errorf(backend.RetCInvalidArgument, "nil handle")
	}
	return h.Path(), nil
}
