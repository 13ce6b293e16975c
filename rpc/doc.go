// Package rpc provides the networked backend (h5pyd). A server hosts
// container files below a data directory; clients open them by name and
// drive every backend operation through request/response messages.
//
// The package is organized into several subpackages:
//
//   - common: Core data structures and utilities used across the RPC system,
//     including the Message protocol, configuration structures, and logging.
//
//   - transport: Network communication abstractions with pluggable implementations
//     (TCP, Unix sockets, HTTP).
//
//   - serializer: Message serialization with multiple format options (Binary, JSON, GOB)
//     for converting between Message objects and byte arrays.
//
//   - client: the h5pyd driver, a backend.IDriver whose sessions forward
//     every call to the server.
//
//   - server: RPC server components that handle incoming requests, open
//     sessions on the hosted files and enforce a single writer per file.
package rpc
