package server

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/ValentinKolb/h5tree/lib/backend"
	"github.com/ValentinKolb/h5tree/lib/backend/kvtree"
	"github.com/ValentinKolb/h5tree/lib/db"
	"github.com/ValentinKolb/h5tree/lib/db/engines/maple"
	"github.com/ValentinKolb/h5tree/lib/lockmgr"
	"github.com/ValentinKolb/h5tree/rpc/common"
	"github.com/VictoriaMetrics/metrics"
)

func newTestAdapter(t *testing.T) IRPCServerAdapter {
	t.Helper()
	a := NewH5ServerAdapter(
		t.TempDir(),
		kvtree.NewDriver(kvtree.WithEngine(db.ImplMaple)),
		lockmgr.NewLockManager(maple.NewMapleDB(nil)),
	)
	t.Cleanup(func() { a.Close() })
	return a
}

func mustOpen(t *testing.T, a IRPCServerAdapter, file string, mode backend.Mode) string {
	t.Helper()
	resp := a.Handle(common.NewOpenRequest(file, mode))
	if err := resp.AsError(); err != nil {
		t.Fatalf("Open(%s) failed: %v", file, err)
	}
	if resp.Session == "" {
		t.Fatalf("Open(%s) returned no session", file)
	}
	return resp.Session
}

func TestHandlePing(t *testing.T) {
	a := newTestAdapter(t)
	resp := a.Handle(common.NewPingRequest())
	if resp.MsgType != common.MsgTSuccess || resp.AsError() != nil {
		t.Errorf("Unexpected ping response %+v", resp)
	}
}

func TestHandleUnknownSession(t *testing.T) {
	a := newTestAdapter(t)

	resp := a.Handle(common.NewNodeRequest(common.MsgTLookup, "nope", "/"))
	if err := resp.AsError(); !errors.Is(err, backend.ErrClosed) {
		t.Errorf("Expected Closed for an unknown session, got %v", err)
	}

	// closing an unknown session is a no-op
	resp = a.Handle(common.NewSessionRequest(common.MsgTClose, "nope"))
	if err := resp.AsError(); err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
}

func TestHandleInvalidRequests(t *testing.T) {
	a := newTestAdapter(t)

	tests := []struct {
		name string
		req  *common.Message
		want error
	}{
		{"bad mode", &common.Message{MsgType: common.MsgTOpen, Key: "x.h5", Value: []byte("rw")}, backend.ErrInvalidArgument},
		{"empty name", common.NewOpenRequest("", backend.ModeWrite), backend.ErrInvalidArgument},
		{"missing file", common.NewOpenRequest("missing.h5", backend.ModeRead), backend.ErrNotFound},
		{"unknown type", &common.Message{MsgType: common.MsgTSuccess, Session: mustOpen(t, a, "a.h5", backend.ModeWrite)}, backend.ErrInvalidArgument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := a.Handle(tt.req).AsError(); !errors.Is(err, tt.want) {
				t.Errorf("Expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestHandleSession(t *testing.T) {
	a := newTestAdapter(t)
	id := mustOpen(t, a, "s.h5", backend.ModeWrite)

	resp := a.Handle(common.NewCreateGroupRequest(id, "/", "g", "group title"))
	if err := resp.AsError(); err != nil || resp.Path != "/g" {
		t.Fatalf("CreateGroup = %q, %v", resp.Path, err)
	}

	req, err := common.NewSetAttrRequest(id, "/g", "n", int64(3))
	if err != nil {
		t.Fatalf("NewSetAttrRequest failed: %v", err)
	}
	if err := a.Handle(req).AsError(); err != nil {
		t.Fatalf("SetAttr failed: %v", err)
	}

	resp = a.Handle(common.NewGetAttrRequest(id, "/g", "n"))
	if v, err := backend.DecodeRaw(resp.Value); err != nil || !resp.Ok || v != int64(3) {
		t.Errorf("GetAttr = %#v ok=%v err=%v", v, resp.Ok, err)
	}
	resp = a.Handle(common.NewGetAttrRequest(id, "/g", "missing"))
	if resp.Ok || resp.AsError() != nil {
		t.Errorf("Expected a missing attribute to report ok=false, got %+v", resp)
	}

	resp = a.Handle(common.NewNodeRequest(common.MsgTAttrNames, id, "/g"))
	if strings.Join(resp.Names, ",") != "TITLE,CLASS,n" {
		t.Errorf("Unexpected attribute names %v", resp.Names)
	}

	spec := backend.DatasetSpec{Kind: backend.KindExtendable, DType: "uint8", Shape: []int{0, 2}, Class: "EARRAY"}
	req, err = common.NewCreateDatasetRequest(id, "/g", "d", spec)
	if err != nil {
		t.Fatalf("NewCreateDatasetRequest failed: %v", err)
	}
	if err := a.Handle(req).AsError(); err != nil {
		t.Fatalf("CreateDataset failed: %v", err)
	}
	if err := a.Handle(common.NewAppendRowRequest(id, "/g/d", []byte{1, 2})).AsError(); err != nil {
		t.Fatalf("AppendRow failed: %v", err)
	}
	if err := a.Handle(common.NewAppendRowRequest(id, "/g/d", []byte{1})).AsError(); !errors.Is(err, backend.ErrAxisMismatch) {
		t.Errorf("Expected AxisMismatch, got %v", err)
	}

	resp = a.Handle(common.NewNodeRequest(common.MsgTReadRows, id, "/g/d"))
	if resp.Num != 1 || len(resp.Rows) != 1 || !bytes.Equal(resp.Rows[0], []byte{1, 2}) {
		t.Errorf("Unexpected rows %v", resp.Rows)
	}

	resp = a.Handle(common.NewNodeRequest(common.MsgTChildren, id, "/"))
	if strings.Join(resp.Names, ",") != "g" {
		t.Errorf("Unexpected children %v", resp.Names)
	}

	if err := a.Handle(common.NewSessionRequest(common.MsgTClose, id)).AsError(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	resp = a.Handle(common.NewNodeRequest(common.MsgTLookup, id, "/"))
	if !errors.Is(resp.AsError(), backend.ErrClosed) {
		t.Errorf("Expected Closed after Close, got %v", resp.AsError())
	}
}

func TestHandleMetrics(t *testing.T) {
	a := newTestAdapter(t)
	a.Handle(common.NewPingRequest())
	a.Handle(common.NewOpenRequest("missing.h5", backend.ModeRead))

	var buf bytes.Buffer
	metrics.WritePrometheus(&buf, false)
	out := buf.String()
	for _, want := range []string{
		`h5tree_requests_total{type="ping"}`,
		`h5tree_request_errors_total{type="open"}`,
		`h5tree_request_duration_seconds_bucket{type="ping"`,
		`h5tree_open_sessions`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Expected %s in the metrics output", want)
		}
	}
}
