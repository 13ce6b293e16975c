package server

import (
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/ValentinKolb/h5tree/lib/backend"
	"github.com/ValentinKolb/h5tree/lib/backend/kvtree"
	"github.com/ValentinKolb/h5tree/lib/backend/tables"
	"github.com/ValentinKolb/h5tree/lib/db"
	"github.com/ValentinKolb/h5tree/lib/db/engines/maple"
	"github.com/ValentinKolb/h5tree/lib/lockmgr"
	"github.com/ValentinKolb/h5tree/rpc/common"
	"github.com/ValentinKolb/h5tree/rpc/serializer"
	"github.com/ValentinKolb/h5tree/rpc/transport"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/puzpuzpuz/xsync/v3"
)

var Logger = logger.GetLogger("rpc")

// NewRPCServer creates a new RPC server
// It takes a config, transport and serializer as parameters
//
// Usage:
//
//	s := server.NewRPCServer(
//		*config,
//		tcp.NewTCPServerTransport(),
//		serializer.NewBinarySerializer(),
//	)
//
//	if err := s.Serve(); err != nil {
//		panic(err)
//	 }
func NewRPCServer(
	config common.ServerConfig,
	transport transport.IRPCServerTransport,
	serializer serializer.IRPCSerializer,
) *rpcServer {
	// https://github.com/golang/go/issues/17393
	if runtime.GOOS == "darwin" {
		signal.Ignore(syscall.Signal(0xd))
	}

	Logger.Infof("Created RPC Server")
	Logger.Infof(config.String())

	return &rpcServer{
		config:     config,
		transport:  transport,
		serializer: serializer,
		services:   xsync.NewMapOf[uint64, IRPCServerAdapter](),
	}
}

type rpcServer struct {
	config     common.ServerConfig
	transport  transport.IRPCServerTransport
	serializer serializer.IRPCSerializer
	services   *xsync.MapOf[uint64, IRPCServerAdapter]
}

func (s *rpcServer) registerTransportHandler() {
	s.transport.RegisterHandler(func(serviceID uint64, req []byte) []byte {
		var msg common.Message
		var respMsg *common.Message

		adapter, ok := s.services.Load(serviceID)
		if !ok {
			respMsg = common.NewErrorResponse(backend.Errorf(backend.RetCInvalidArgument, "service %d not found", serviceID))
		} else if err := s.serializer.Deserialize(req, &msg); err != nil {
			respMsg = common.NewErrorResponse(backend.Errorf(backend.RetCInvalidArgument, "failed to deserialize request: %v", err))
		} else {
			// Let the adapter handle the request
			respMsg = adapter.Handle(&msg)
		}

		val, err := s.serializer.Serialize(*respMsg)
		if err != nil {
			Logger.Errorf("failed to serialize response: %v", err)
			val, _ = s.serializer.Serialize(*common.NewErrorResponse(fmt.Errorf("failed to serialize response: %v", err)))
		}
		return val
	})
}

// newDriver creates the driver for hosted files from the storage config.
// Existing SQLite files in the data directory are served as well.
func (s *rpcServer) newDriver() (backend.IDriver, error) {
	opts := []kvtree.Option{kvtree.WithShards(s.config.Shards)}
	switch engine := db.Implementation(s.config.Engine); engine {
	case "":
	case db.ImplBolt, db.ImplMaple:
		opts = append(opts, kvtree.WithEngine(engine))
	default:
		return nil, fmt.Errorf("invalid engine %q (expected bolt or maple)", engine)
	}
	driver := kvtree.NewDriver(opts...)
	if err := driver.Probe(); err != nil {
		return nil, backend.Errorf(backend.RetCBackendUnavailable, "engine %s: %v", driver.Engine(), err)
	}

	sqlite := tables.NewDriver()
	if err := sqlite.Probe(); err != nil {
		Logger.Warningf("sqlite files cannot be served: %v", err)
		return driver, nil
	}
	return backend.Interop(driver, sqlite), nil
}

func (s *rpcServer) init() error {
	if s.config.DataDir == "" {
		return fmt.Errorf("no data directory configured")
	}
	if err := os.MkdirAll(s.config.DataDir, 0o755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	driver, err := s.newDriver()
	if err != nil {
		return err
	}

	// writer locks live in memory, they are only valid as long as the sessions
	locks := lockmgr.NewLockManager(maple.NewMapleDB(nil))
	s.services.Store(common.ServiceH5, NewH5ServerAdapter(s.config.DataDir, driver, locks))

	Logger.Infof("h5tree server setup completed successfully")

	// Configure the transport layer
	s.registerTransportHandler()

	return nil
}

// Serve starts the RPC server
// This function will also initialize the services and start the transport layer.
// It blocks until Close is called.
func (s *rpcServer) Serve() error {
	err := s.init()
	if err != nil {
		return err
	}
	return s.transport.Listen(s.config)
}

// Close stops the transport and closes all open sessions
func (s *rpcServer) Close() error {
	err := s.transport.Close()
	s.services.Range(func(id uint64, adapter IRPCServerAdapter) bool {
		if closeErr := adapter.Close(); closeErr != nil {
			Logger.Warningf("failed to close service %d: %v", id, closeErr)
		}
		return true
	})
	return err
}
