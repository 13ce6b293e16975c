// Package transport defines the interfaces for the RPC communication of the
// remote backend. All transport implementations (http, tcp, unix) fulfill the
// same contract, so client and server are protocol agnostic.
//
// Key Components:
//
//   - IRPCClientTransport: client side, handles connection management and
//     request sending.
//
//   - IRPCServerTransport: server side, receives requests and hands them to the
//     registered ServerHandleFunc.
//
// Every request is tagged with a service id (common.ServiceH5 for the tree
// service) so one listener could host more than one service.
package transport
