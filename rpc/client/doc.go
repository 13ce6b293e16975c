// Package client implements the remote (h5pyd) backend. Driver opens sessions
// on an h5tree server and every backend.IBackend operation of a session is one
// request over the configured transport and serializer.
//
// Handles of remote sessions are plain node paths, the server resolves them
// for every request. Parent is answered locally. Errors of the server keep
// their return code, so errors.Is works against the backend sentinels just as
// for local sessions.
//
// Usage:
//
//	driver := client.NewDriver(config, tcp.NewTCPClientTransport, serializer.NewBinarySerializer())
//	defer driver.Close()
//
//	b, err := driver.Open("scans/scan.h5", backend.ModeAppend)
//	if err != nil {
//		// handle error
//	}
//	defer b.Close()
//
// Request latencies are recorded per message type in the rcrowley/go-metrics
// registry returned by Driver.Metrics.
package client
