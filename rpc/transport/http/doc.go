// Package http implements an HTTP-based transport layer for the remote backend.
// It provides concrete implementations of the transport interfaces defined in
// the parent package.
//
// Key Components:
//
//   - httpClientTransport: Implements IRPCClientTransport. Requests are posted
//     to /{serviceId} on the endpoints in round-robin order and retried on
//     transport errors.
//
//   - httpServerTransport: Implements IRPCServerTransport. Besides the request
//     route it serves the process metrics in Prometheus text format under
//     GET /metrics.
//
// Thread Safety:
//
//	The client transport is thread-safe and can be used concurrently. It uses
//	atomic operations for the round-robin counter.
package http
