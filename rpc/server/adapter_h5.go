package server

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/ValentinKolb/h5tree/lib/backend"
	"github.com/ValentinKolb/h5tree/lib/lockmgr"
	"github.com/ValentinKolb/h5tree/rpc/common"
	"github.com/VictoriaMetrics/metrics"
	"github.com/google/uuid"
	"github.com/puzpuzpuz/xsync/v3"
)

// openSessions counts the sessions of all adapters in this process
var openSessions = metrics.GetOrCreateCounter("h5tree_open_sessions")

// session is one open file of a client. Requests of a session are
// serialized because backend sessions are not safe for concurrent use.
type session struct {
	mu      sync.Mutex
	id      string
	file    string // cleaned name below the data directory
	backend backend.IBackend
	owner   string // writer lock owner, empty for read-only sessions
}

type h5ServerAdapter struct {
	dataDir  string
	driver   backend.IDriver
	locks    lockmgr.ILockManager
	sessions *xsync.MapOf[string, *session]
}

// NewH5ServerAdapter creates the adapter of the tree service. Files are
// resolved below dataDir and opened with driver. Every writable session holds
// a lock on its file in locks.
func NewH5ServerAdapter(dataDir string, driver backend.IDriver, locks lockmgr.ILockManager) IRPCServerAdapter {
	return &h5ServerAdapter{
		dataDir:  dataDir,
		driver:   driver,
		locks:    locks,
		sessions: xsync.NewMapOf[string, *session](),
	}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see IRPCServerAdapter)
// --------------------------------------------------------------------------

func (a *h5ServerAdapter) Handle(req *common.Message) (resp *common.Message) {
	start := time.Now()
	defer func() {
		metrics.GetOrCreateCounter(fmt.Sprintf(`h5tree_requests_total{type=%q}`, req.MsgType)).Inc()
		metrics.GetOrCreateHistogram(fmt.Sprintf(`h5tree_request_duration_seconds{type=%q}`, req.MsgType)).UpdateDuration(start)
		if resp.Err != "" {
			metrics.GetOrCreateCounter(fmt.Sprintf(`h5tree_request_errors_total{type=%q}`, req.MsgType)).Inc()
			Logger.Debugf("%s %s failed: %s", req.MsgType, req.Path, resp.Err)
		}
	}()

	switch req.MsgType {
	case common.MsgTPing:
		return common.NewResponse(common.MsgTSuccess, nil)
	case common.MsgTOpen:
		return a.open(req)
	case common.MsgTClose:
		return a.close(req)
	}

	s, ok := a.sessions.Load(req.Session)
	if !ok {
		return common.NewErrorResponse(backend.Errorf(backend.RetCClosed, "session %s is not open", req.Session))
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	switch req.MsgType {
	case common.MsgTFlush:
		return common.NewResponse(common.MsgTSuccess, s.backend.Flush())
	case common.MsgTCopyTo:
		return a.copyTo(s, req)
	case common.MsgTLookup:
		return a.lookup(s, req)
	case common.MsgTChildren:
		return a.children(s, req)
	case common.MsgTCreateGroup:
		return a.createGroup(s, req)
	case common.MsgTCreateDataset:
		return a.createDataset(s, req)
	case common.MsgTDataset:
		return a.dataset(s, req)
	case common.MsgTGetAttr:
		return a.getAttr(s, req)
	case common.MsgTAttrs:
		return a.attrs(s, req)
	case common.MsgTAttrNames:
		return a.attrNames(s, req)
	case common.MsgTSetAttr:
		return a.setAttr(s, req)
	case common.MsgTAppendRow:
		return a.appendRow(s, req)
	case common.MsgTReadRows:
		return a.readRows(s, req)
	case common.MsgTRowCount:
		return a.rowCount(s, req)
	default:
		return common.NewErrorResponse(backend.Errorf(backend.RetCInvalidArgument, "unsupported message type: %s", req.MsgType))
	}
}

func (a *h5ServerAdapter) Close() error {
	var firstErr error
	a.sessions.Range(func(id string, _ *session) bool {
		if s, ok := a.sessions.LoadAndDelete(id); ok {
			if err := a.release(s); err != nil && firstErr == nil {
				firstErr = err
			}
		}
		return true
	})
	return firstErr
}

// --------------------------------------------------------------------------
// Session handling
// --------------------------------------------------------------------------

// resolve maps a client supplied file name to a location below the data
// directory. Names can never escape it.
func (a *h5ServerAdapter) resolve(name string) (string, string, error) {
	clean := filepath.Clean("/" + strings.TrimSpace(name))
	if clean == "/" {
		return "", "", backend.Errorf(backend.RetCInvalidArgument, "empty file name")
	}
	return filepath.Join(a.dataDir, clean), strings.TrimPrefix(clean, "/"), nil
}

func (a *h5ServerAdapter) open(req *common.Message) *common.Message {
	mode, err := backend.ParseMode(string(req.Value))
	if err != nil {
		return common.NewErrorResponse(err)
	}
	path, file, err := a.resolve(req.Key)
	if err != nil {
		return common.NewErrorResponse(err)
	}

	s := &session{id: uuid.NewString(), file: file}
	if mode.Writable() {
		ok, owner, err := a.locks.AcquireLock(file, 0)
		if err != nil {
			return common.NewErrorResponse(err)
		}
		if !ok {
			return common.NewErrorResponse(backend.Errorf(backend.RetCReadOnly, "file %s is opened for writing by another session", file))
		}
		s.owner = owner
	}

	b, err := a.openFile(path, mode)
	if err != nil {
		if s.owner != "" {
			_, _ = a.locks.ReleaseLock(file, s.owner)
		}
		return common.NewErrorResponse(err)
	}
	s.backend = b
	a.sessions.Store(s.id, s)
	openSessions.Inc()

	Logger.Infof("opened session %s on %s (mode %s)", s.id, file, mode)
	resp := common.NewResponse(common.MsgTSuccess, nil)
	resp.Session = s.id
	return resp
}

func (a *h5ServerAdapter) close(req *common.Message) *common.Message {
	s, ok := a.sessions.LoadAndDelete(req.Session)
	if !ok {
		// closing twice is not an error
		return common.NewResponse(common.MsgTSuccess, nil)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return common.NewResponse(common.MsgTSuccess, a.release(s))
}

// openFile creates missing parent directories for the modes that may create
// the file
func (a *h5ServerAdapter) openFile(path string, mode backend.Mode) (backend.IBackend, error) {
	if mode == backend.ModeAppend || mode == backend.ModeWrite {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, err
		}
	}
	return a.driver.Open(path, mode)
}

// release closes the backend session and gives up the writer lock
func (a *h5ServerAdapter) release(s *session) error {
	err := s.backend.Close()
	if s.owner != "" {
		if _, lockErr := a.locks.ReleaseLock(s.file, s.owner); lockErr != nil {
			Logger.Warningf("failed to release lock of %s: %v", s.file, lockErr)
		}
	}
	openSessions.Dec()
	Logger.Infof("closed session %s on %s", s.id, s.file)
	return err
}

// --------------------------------------------------------------------------
// Request handlers
// --------------------------------------------------------------------------

func (a *h5ServerAdapter) copyTo(s *session, req *common.Message) *common.Message {
	path, file, err := a.resolve(req.Key)
	if err != nil {
		return common.NewErrorResponse(err)
	}
	if _, held, err := a.locks.Owner(file); err != nil || held {
		if err == nil {
			err = backend.Errorf(backend.RetCReadOnly, "file %s is opened for writing by another session", file)
		}
		return common.NewErrorResponse(err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return common.NewErrorResponse(err)
	}
	return common.NewResponse(common.MsgTSuccess, s.backend.CopyTo(path))
}

func (a *h5ServerAdapter) lookup(s *session, req *common.Message) *common.Message {
	h, err := s.backend.Lookup(req.Path)
	if err != nil {
		return common.NewErrorResponse(err)
	}
	resp := common.NewResponse(common.MsgTSuccess, nil)
	resp.Path = h.Path()
	return resp
}

func (a *h5ServerAdapter) children(s *session, req *common.Message) *common.Message {
	h, err := s.backend.Lookup(req.Path)
	if err != nil {
		return common.NewErrorResponse(err)
	}
	children, err := s.backend.Children(h)
	if err != nil {
		return common.NewErrorResponse(err)
	}
	resp := common.NewResponse(common.MsgTSuccess, nil)
	resp.Names = make([]string, len(children))
	for i, c := range children {
		resp.Names[i] = c.Name
	}
	return resp
}

func (a *h5ServerAdapter) createGroup(s *session, req *common.Message) *common.Message {
	parent, err := s.backend.Lookup(req.Path)
	if err != nil {
		return common.NewErrorResponse(err)
	}
	h, err := s.backend.CreateGroup(parent, req.Key, string(req.Value))
	if err != nil {
		return common.NewErrorResponse(err)
	}
	resp := common.NewResponse(common.MsgTSuccess, nil)
	resp.Path = h.Path()
	return resp
}

func (a *h5ServerAdapter) createDataset(s *session, req *common.Message) *common.Message {
	spec, err := common.DecodeDatasetSpec(req.Value, req.Rows)
	if err != nil {
		return common.NewErrorResponse(err)
	}
	parent, err := s.backend.Lookup(req.Path)
	if err != nil {
		return common.NewErrorResponse(err)
	}
	h, err := s.backend.CreateDataset(parent, req.Key, spec)
	if err != nil {
		return common.NewErrorResponse(err)
	}
	resp := common.NewResponse(common.MsgTSuccess, nil)
	resp.Path = h.Path()
	return resp
}

func (a *h5ServerAdapter) dataset(s *session, req *common.Message) *common.Message {
	h, err := s.backend.Lookup(req.Path)
	if err != nil {
		return common.NewErrorResponse(err)
	}
	info, err := s.backend.Dataset(h)
	if err != nil {
		return common.NewErrorResponse(err)
	}
	value, err := common.EncodeDatasetInfo(info)
	if err != nil {
		return common.NewErrorResponse(err)
	}
	resp := common.NewResponse(common.MsgTSuccess, nil)
	resp.Value = value
	return resp
}

func (a *h5ServerAdapter) getAttr(s *session, req *common.Message) *common.Message {
	h, err := s.backend.Lookup(req.Path)
	if err != nil {
		return common.NewErrorResponse(err)
	}
	value, ok, err := s.backend.GetAttr(h, req.Key)
	if err != nil || !ok {
		return common.NewResponse(common.MsgTSuccess, err)
	}
	raw, err := backend.EncodeRaw(value)
	if err != nil {
		return common.NewErrorResponse(err)
	}
	resp := common.NewResponse(common.MsgTSuccess, nil)
	resp.Ok = true
	resp.Value = raw
	return resp
}

func (a *h5ServerAdapter) attrs(s *session, req *common.Message) *common.Message {
	h, err := s.backend.Lookup(req.Path)
	if err != nil {
		return common.NewErrorResponse(err)
	}
	all, err := s.backend.Attrs(h)
	if err != nil {
		return common.NewErrorResponse(err)
	}
	names, values, err := common.EncodeAttrs(all)
	if err != nil {
		return common.NewErrorResponse(err)
	}
	resp := common.NewResponse(common.MsgTSuccess, nil)
	resp.Names = names
	resp.Rows = values
	return resp
}

func (a *h5ServerAdapter) attrNames(s *session, req *common.Message) *common.Message {
	h, err := s.backend.Lookup(req.Path)
	if err != nil {
		return common.NewErrorResponse(err)
	}
	names, err := s.backend.AttrNames(h)
	if err != nil {
		return common.NewErrorResponse(err)
	}
	resp := common.NewResponse(common.MsgTSuccess, nil)
	resp.Names = names
	return resp
}

func (a *h5ServerAdapter) setAttr(s *session, req *common.Message) *common.Message {
	value, err := backend.DecodeRaw(req.Value)
	if err != nil {
		return common.NewErrorResponse(backend.Errorf(backend.RetCInvalidArgument, "attribute %s: %v", req.Key, err))
	}
	h, err := s.backend.Lookup(req.Path)
	if err != nil {
		return common.NewErrorResponse(err)
	}
	return common.NewResponse(common.MsgTSuccess, s.backend.SetAttr(h, req.Key, value))
}

func (a *h5ServerAdapter) appendRow(s *session, req *common.Message) *common.Message {
	h, err := s.backend.Lookup(req.Path)
	if err != nil {
		return common.NewErrorResponse(err)
	}
	row := req.Value
	if row == nil {
		row = []byte{}
	}
	return common.NewResponse(common.MsgTSuccess, s.backend.AppendRow(h, row))
}

func (a *h5ServerAdapter) readRows(s *session, req *common.Message) *common.Message {
	h, err := s.backend.Lookup(req.Path)
	if err != nil {
		return common.NewErrorResponse(err)
	}
	rows, err := s.backend.ReadRows(h)
	if err != nil {
		return common.NewErrorResponse(err)
	}
	resp := common.NewResponse(common.MsgTSuccess, nil)
	resp.Rows = rows
	resp.Num = int64(len(rows))
	return resp
}

func (a *h5ServerAdapter) rowCount(s *session, req *common.Message) *common.Message {
	h, err := s.backend.Lookup(req.Path)
	if err != nil {
		return common.NewErrorResponse(err)
	}
	n, err := s.backend.RowCount(h)
	if err != nil {
		return common.NewErrorResponse(err)
	}
	resp := common.NewResponse(common.MsgTSuccess, nil)
	resp.Num = int64(n)
	return resp
}
