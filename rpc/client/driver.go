package client

import (
	"sync"

	"github.com/ValentinKolb/h5tree/lib/backend"
	"github.com/ValentinKolb/h5tree/rpc/common"
	"github.com/ValentinKolb/h5tree/rpc/serializer"
	"github.com/ValentinKolb/h5tree/rpc/transport"
	gometrics "github.com/rcrowley/go-metrics"
)

// TransportFactory creates an unconnected client transport
type TransportFactory func() transport.IRPCClientTransport

// Driver implements backend.IDriver for the remote (h5pyd) backend. All
// sessions of a driver share one transport, which is connected on the first
// Open.
type Driver struct {
	config       common.ClientConfig
	newTransport TransportFactory
	serializer   serializer.IRPCSerializer
	timers       gometrics.Registry

	mu        sync.Mutex
	transport transport.IRPCClientTransport
}

// NewDriver creates a driver for the server(s) in config. The serializer must
// match the one of the server.
func NewDriver(config common.ClientConfig, newTransport TransportFactory, serializer serializer.IRPCSerializer) *Driver {
	return &Driver{
		config:       config,
		newTransport: newTransport,
		serializer:   serializer,
		timers:       gometrics.NewRegistry(),
	}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see backend.IDriver)
// --------------------------------------------------------------------------

func (d *Driver) ID() backend.ID {
	return backend.IDH5pyd
}

// Probe connects a fresh transport, pings the server and disconnects again.
func (d *Driver) Probe() error {
	t := d.newTransport()
	if err := t.Connect(d.config); err != nil {
		return backend.Errorf(backend.RetCBackendUnavailable, "remote backend: %v", err)
	}
	defer t.Close()

	_, err := invokeRPCRequest(common.NewPingRequest(), t, d.serializer, d.timers)
	return err
}

func (d *Driver) Open(path string, mode backend.Mode) (backend.IBackend, error) {
	if _, err := backend.ParseMode(string(mode)); err != nil {
		return nil, err
	}
	t, err := d.connect()
	if err != nil {
		return nil, err
	}

	resp, err := invokeRPCRequest(common.NewOpenRequest(path, mode), t, d.serializer, d.timers)
	if err != nil {
		return nil, err
	}
	Logger.Debugf("opened remote session %s on %s (mode %s)", resp.Session, path, mode)

	return &session{
		driver: d,
		id:     resp.Session,
		path:   path,
		mode:   mode,
		open:   true,
	}, nil
}

// --------------------------------------------------------------------------
// Driver Methods
// --------------------------------------------------------------------------

// Metrics returns the request timers of all sessions, one per message type
// (named h5pyd.<type>).
func (d *Driver) Metrics() gometrics.Registry {
	return d.timers
}

// Close disconnects the shared transport. Sessions that are still open can
// no longer reach the server.
func (d *Driver) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.transport == nil {
		return nil
	}
	err := d.transport.Close()
	d.transport = nil
	return err
}

// connect returns the shared transport and connects it if needed
func (d *Driver) connect() (transport.IRPCClientTransport, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.transport != nil {
		return d.transport, nil
	}

	t := d.newTransport()
	if err := t.Connect(d.config); err != nil {
		return nil, backend.Errorf(backend.RetCBackendUnavailable, "remote backend: %v", err)
	}
	d.transport = t
	return t, nil
}

// invoke sends a request over the shared transport
func (d *Driver) invoke(req *common.Message) (*common.Message, error) {
	t, err := d.connect()
	if err != nil {
		return nil, err
	}
	return invokeRPCRequest(req, t, d.serializer, d.timers)
}
