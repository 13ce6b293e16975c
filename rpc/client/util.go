package client

import (
	"time"

	"github.com/ValentinKolb/h5tree/lib/backend"
	"github.com/ValentinKolb/h5tree/rpc/common"
	"github.com/ValentinKolb/h5tree/rpc/serializer"
	"github.com/ValentinKolb/h5tree/rpc/transport"
	"github.com/lni/dragonboat/v4/logger"
	gometrics "github.com/rcrowley/go-metrics"
)

var (
	Logger = logger.GetLogger("rpc")
)

// invokeRPCRequest is a helper function used by the remote sessions to send requests
// It takes a request message, a transport layer, a serializer and the timer
// registry as parameters. Transport failures are reported as unavailable
// backend, errors of the server keep their return code.
func invokeRPCRequest(req *common.Message, transport transport.IRPCClientTransport, serializer serializer.IRPCSerializer, timers gometrics.Registry) (*common.Message, error) {
	start := time.Now()
	defer gometrics.GetOrRegisterTimer("h5pyd."+req.MsgType.String(), timers).UpdateSince(start)

	// Serialize the request
	reqBytes, err := serializer.Serialize(*req)
	if err != nil {
		return nil, backend.Errorf(backend.RetCInvalidArgument, "failed to serialize %s request: %v", req.MsgType, err)
	}

	respBytes, err := transport.Send(common.ServiceH5, reqBytes)
	if err != nil {
		return nil, backend.Errorf(backend.RetCBackendUnavailable, "remote backend: %v", err)
	}

	// Deserialize the response
	resp := &common.Message{}
	if err := serializer.Deserialize(respBytes, resp); err != nil {
		return nil, backend.Errorf(backend.RetCInternalError, "failed to deserialize %s response: %v", req.MsgType, err)
	}

	// Check if the response is an error response
	if err := resp.AsError(); err != nil {
		return nil, err
	}

	if resp.MsgType != common.MsgTSuccess {
		return nil, backend.Errorf(backend.RetCInternalError, "unexpected response type %s to %s", resp.MsgType, req.MsgType)
	}

	return resp, nil
}
