// Package tcp implements the TCP socket transport of the remote backend on top
// of the base package.
//
// The server connector applies the TCP socket options of the server config
// (no delay, keep alive, linger, buffer sizes) to each accepted connection.
// The default read buffer size is 512 KB.
package tcp
