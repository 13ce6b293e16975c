package client

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"slices"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ValentinKolb/h5tree/lib/backend"
	backendtesting "github.com/ValentinKolb/h5tree/lib/backend/testing"
	"github.com/ValentinKolb/h5tree/rpc/common"
	"github.com/ValentinKolb/h5tree/rpc/serializer"
	"github.com/ValentinKolb/h5tree/rpc/server"
	"github.com/ValentinKolb/h5tree/rpc/transport"
	"github.com/ValentinKolb/h5tree/rpc/transport/http"
	"github.com/ValentinKolb/h5tree/rpc/transport/tcp"
	"github.com/ValentinKolb/h5tree/rpc/transport/unix"
)

// --------------------------------------------------------------------------
// Helper functions
// --------------------------------------------------------------------------

type testServer struct {
	endpoint string
	dataDir  string
}

// startServer runs a server with the given transport until the test ends
func startServer(t *testing.T, engine string, serverTransport transport.IRPCServerTransport, ser serializer.IRPCSerializer, endpoint string) testServer {
	t.Helper()
	dataDir := t.TempDir()
	config := common.ServerConfig{
		DataDir: dataDir,
		Engine:  engine,
		Shards:  2,
		Transport: common.ServerTransportConfig{
			Endpoint: endpoint,
			Workers:  8,
		},
	}

	s := server.NewRPCServer(config, serverTransport, ser)
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.Serve()
	}()
	t.Cleanup(func() {
		if err := s.Close(); err != nil {
			t.Errorf("Close failed: %v", err)
		}
		if err := <-errCh; err != nil {
			t.Errorf("Serve failed: %v", err)
		}
	})
	return testServer{endpoint: endpoint, dataDir: dataDir}
}

// startUnixServer uses a short socket path, test temp dirs can exceed the
// unix socket path limit
func startUnixServer(t *testing.T, engine string, ser serializer.IRPCSerializer) testServer {
	t.Helper()
	dir, err := os.MkdirTemp("", "h5s")
	if err != nil {
		t.Fatalf("MkdirTemp failed: %v", err)
	}
	t.Cleanup(func() { os.RemoveAll(dir) })

	srv := startServer(t, engine, unix.NewUnixServerTransport(), ser, filepath.Join(dir, "s.sock"))
	waitFor(t, func() error {
		conn, err := net.Dial("unix", srv.endpoint)
		if err == nil {
			conn.Close()
		}
		return err
	})
	return srv
}

func freePort(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Listen failed: %v", err)
	}
	defer l.Close()
	return l.Addr().String()
}

func waitFor(t *testing.T, ready func() error) {
	t.Helper()
	var err error
	for i := 0; i < 200; i++ {
		if err = ready(); err == nil {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("server did not come up: %v", err)
}

func clientConfig(endpoint string) common.ClientConfig {
	return common.ClientConfig{
		TimeoutSecond: 10,
		Transport: common.ClientTransportConfig{
			Endpoints:  []string{endpoint},
			RetryCount: 1,
		},
	}
}

func newTestDriver(t testing.TB, endpoint string, newTransport TransportFactory, ser serializer.IRPCSerializer) *Driver {
	d := NewDriver(clientConfig(endpoint), newTransport, ser)
	t.Cleanup(func() { d.Close() })
	return d
}

// --------------------------------------------------------------------------
// Test functions
// --------------------------------------------------------------------------

func TestConformance(t *testing.T) {
	serializers := map[string]func() serializer.IRPCSerializer{
		"binary": serializer.NewBinarySerializer,
		"json":   serializer.NewJSONSerializer,
		"gob":    serializer.NewGOBSerializer,
	}
	for name, newSerializer := range serializers {
		srv := startUnixServer(t, "bolt", newSerializer())

		var fixtureID atomic.Int64
		backendtesting.RunBackendTests(t, "h5pyd/"+name, func(t testing.TB) backendtesting.Fixture {
			// every fixture gets its own directory on the shared server
			sub := fmt.Sprintf("fixture%d", fixtureID.Add(1))
			return backendtesting.Fixture{
				Driver: newTestDriver(t, srv.endpoint, unix.NewUnixClientTransport, newSerializer()),
				Path:   func(name string) string { return sub + "/" + name },
			}
		})
	}
}

func TestMapleEngine(t *testing.T) {
	srv := startUnixServer(t, "maple", serializer.NewBinarySerializer())
	d := newTestDriver(t, srv.endpoint, unix.NewUnixClientTransport, serializer.NewBinarySerializer())

	b, err := d.Open("maple.h5", backend.ModeWrite)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	root, _ := b.Root()
	if _, err := b.CreateGroup(root, "g", "title"); err != nil {
		t.Fatalf("CreateGroup failed: %v", err)
	}
	if err := b.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	b, err = d.Open("maple.h5", backend.ModeRead)
	if err != nil {
		t.Fatalf("Reopen failed: %v", err)
	}
	defer b.Close()
	if _, err := b.Lookup("/g"); err != nil {
		t.Errorf("Expected /g after reopen, got %v", err)
	}
}

func TestSingleWriter(t *testing.T) {
	srv := startUnixServer(t, "bolt", serializer.NewBinarySerializer())
	d := newTestDriver(t, srv.endpoint, unix.NewUnixClientTransport, serializer.NewBinarySerializer())

	w, err := d.Open("locked.h5", backend.ModeWrite)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	_, err = d.Open("locked.h5", backend.ModeAppend)
	if !errors.Is(err, backend.ErrReadOnly) {
		t.Errorf("Expected ReadOnly for a second writer, got %v", err)
	}

	// copies onto a locked file are refused as well
	other, err := d.Open("other.h5", backend.ModeWrite)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if err := other.CopyTo("locked.h5"); !errors.Is(err, backend.ErrReadOnly) {
		t.Errorf("Expected ReadOnly when copying onto a locked file, got %v", err)
	}
	other.Close()

	if err := w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	w, err = d.Open("locked.h5", backend.ModeAppend)
	if err != nil {
		t.Fatalf("Expected the lock to be released after Close, got %v", err)
	}
	w.Close()
}

func TestFilesStayInDataDir(t *testing.T) {
	srv := startUnixServer(t, "bolt", serializer.NewBinarySerializer())
	d := newTestDriver(t, srv.endpoint, unix.NewUnixClientTransport, serializer.NewBinarySerializer())

	b, err := d.Open("../../escape.h5", backend.ModeWrite)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	b.Close()

	if _, err := os.Stat(filepath.Join(srv.dataDir, "escape.h5")); err != nil {
		t.Errorf("Expected the file inside the data directory: %v", err)
	}

	_, err = d.Open("/", backend.ModeWrite)
	if !errors.Is(err, backend.ErrInvalidArgument) {
		t.Errorf("Expected InvalidArgument for an empty file name, got %v", err)
	}
}

func TestProbeUnreachable(t *testing.T) {
	d := NewDriver(clientConfig(filepath.Join(t.TempDir(), "nobody.sock")), unix.NewUnixClientTransport, serializer.NewBinarySerializer())

	if err := d.Probe(); !errors.Is(err, backend.ErrBackendUnavailable) {
		t.Errorf("Expected BackendUnavailable, got %v", err)
	}
	if _, err := d.Open("x.h5", backend.ModeWrite); !errors.Is(err, backend.ErrBackendUnavailable) {
		t.Errorf("Expected BackendUnavailable from Open, got %v", err)
	}
	if caps := backend.Probe(d); caps.Has(backend.IDH5pyd) {
		t.Errorf("Unreachable server must not be reported as available")
	}
}

func TestRequestTimers(t *testing.T) {
	srv := startUnixServer(t, "bolt", serializer.NewBinarySerializer())
	d := newTestDriver(t, srv.endpoint, unix.NewUnixClientTransport, serializer.NewBinarySerializer())

	b, err := d.Open("timers.h5", backend.ModeWrite)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	for i := 0; i < 3; i++ {
		if _, err := b.Root(); err != nil {
			t.Fatalf("Root failed: %v", err)
		}
	}
	b.Close()

	var names []string
	d.Metrics().Each(func(name string, _ interface{}) {
		names = append(names, name)
	})
	slices.Sort(names)
	if !slices.Equal(names, []string{"h5pyd.close", "h5pyd.lookup", "h5pyd.open"}) {
		t.Errorf("Unexpected timers %v", names)
	}
}

func TestNetworkTransports(t *testing.T) {
	tests := []struct {
		name            string
		serverTransport func() transport.IRPCServerTransport
		clientTransport TransportFactory
	}{
		{"tcp", tcp.NewTCPServerTransport, tcp.NewTCPClientTransport},
		{"http", http.NewHttpServerTransport, http.NewHttpClientTransport},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := startServer(t, "bolt", tt.serverTransport(), serializer.NewBinarySerializer(), freePort(t))
			d := newTestDriver(t, srv.endpoint, tt.clientTransport, serializer.NewBinarySerializer())
			waitFor(t, d.Probe)

			b, err := d.Open("net.h5", backend.ModeWrite)
			if err != nil {
				t.Fatalf("Open failed: %v", err)
			}
			defer b.Close()

			root, _ := b.Root()
			h, err := b.CreateDataset(root, "vl", backend.DatasetSpec{
				Kind:  backend.KindVarLen,
				DType: "uint8",
				Shape: []int{0},
				Class: "VLARRAY",
			})
			if err != nil {
				t.Fatalf("CreateDataset failed: %v", err)
			}
			for _, row := range [][]byte{[]byte("abc"), {}, []byte("de")} {
				if err := b.AppendRow(h, row); err != nil {
					t.Fatalf("AppendRow failed: %v", err)
				}
			}
			rows, err := b.ReadRows(h)
			if err != nil || len(rows) != 3 || string(rows[0]) != "abc" || len(rows[1]) != 0 || string(rows[2]) != "de" {
				t.Errorf("Unexpected rows %q (err=%v)", rows, err)
			}

			_, err = b.Lookup("/missing")
			if !errors.Is(err, backend.ErrNotFound) {
				t.Errorf("Expected NotFound, got %v", err)
			}
		})
	}
}
