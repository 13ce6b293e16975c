package serializer

import "github.com/ValentinKolb/h5tree/rpc/common"

// IRPCSerializer turns the messages of the h5 service into bytes for the
// transport layer and back. Client and server must use the same
// implementation.
type IRPCSerializer interface {
	// Serialize encodes a request or response. Raw attribute values, rows and
	// dataset descriptions travel as opaque bytes and are not inspected.
	Serialize(msg common.Message) ([]byte, error)
	// Deserialize decodes b into msg. Fields missing in b keep their zero
	// value, so msg should be empty.
	Deserialize(b []byte, msg *common.Message) error
}
