// Package base implements the framed socket transport shared by the tcp and
// unix transports. Protocol specific parts (dialing, listening, socket options)
// are injected through connectors.
//
// Every frame carries a 20 byte header: service id, request id and payload
// length. Responses reuse the request id so the client can match them while
// many requests are in flight on the same connection.
//
// Key Components:
//
//   - IClientConnector/IServerConnector: protocol specific operations.
//
//   - clientTransport: manages one or more connections per endpoint with
//     round-robin selection. A broken connection fails its pending requests
//     and is dialed again.
//
//   - serverTransport: accepts connections and hands requests to a shared
//     ants worker pool. Read buffers come from a sync.Pool.
//
// Thread Safety:
//
//	All public methods are thread-safe. Responses on a connection are written
//	under a per connection mutex.
package base
