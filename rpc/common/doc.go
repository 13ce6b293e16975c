// Package common provides the data structures shared by the client and the
// server of the remote (h5pyd) backend.
//
// Key Components:
//
//   - Message: the single request/response structure of the protocol. Node
//     handles travel as absolute paths, raw attribute values are tagged with
//     backend.EncodeRaw and dataset specs are JSON documents (see codec.go).
//     Errors carry their backend.RetCode so errors.Is keeps working on the
//     client side.
//
//   - MessageType: every IBackend operation has its own type, plus Ping for
//     driver probes.
//
//   - ServerConfig / ClientConfig: configuration with String() printers used by
//     the CLI.
//
//   - Logger: a dragonboat logger.Factory writing through zap. InitLoggers
//     installs it and sets the level of all package loggers.
package common
