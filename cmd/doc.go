// Package cmd implements the h5tree command-line interface. It provides
// commands to inspect and convert container files and to run the server of
// the networked backend.
//
// The package is organized into several subpackages:
//
//   - inspect: tree, ls and attrs print the content of a file
//   - convert: copies a file to another backend
//   - serve: starts and configures the h5tree server
//   - util: Shared utilities for command-line processing and configuration (internal use)
//
// See h5tree -help for a list of all commands.
package cmd
