// Package server implements the RPC server of the remote (h5pyd) backend.
// It hosts container files below a data directory and exposes the
// backend.IBackend operations of open sessions over one of the transports.
//
// Key Components:
//
//   - IRPCServerAdapter: interface of a service, with the Handle method that
//     answers one request.
//
//   - NewH5ServerAdapter: the tree service. It keeps the open sessions by id,
//     resolves nodes by path for every request and serializes the requests of
//     one session. Writable sessions hold a lock on their file, a second writer
//     gets a read-only error. Request counts, errors and durations per message
//     type are recorded as VictoriaMetrics metrics.
//
//   - NewRPCServer: creates a server with the given transport and serializer.
//     Hosted files are stored with the kvtree driver on the configured engine.
//
// Usage Example:
//
//	config := common.ServerConfig{
//	  DataDir:       "/var/lib/h5tree",
//	  Engine:        "bolt",
//	  TimeoutSecond: 5,
//	  Transport:     common.ServerTransportConfig{Endpoint: "0.0.0.0:8080", Workers: 64},
//	}
//
//	s := server.NewRPCServer(config, tcp.NewTCPServerTransport(), serializer.NewBinarySerializer())
//	if err := s.Serve(); err != nil {
//	  log.Fatalf("Server error: %v", err)
//	}
//
// Thread Safety:
//
//	The server handles concurrent requests across multiple connections.
//	Requests of different sessions run in parallel. Serve should be called
//	only once.
package server
