// Package unix implements the unix domain socket transport of the remote
// backend on top of the base package. It is the fastest choice when client and
// server run on the same machine.
//
// The server removes a stale socket file before listening. The default read
// buffer size is 64 KB.
package unix
