package serializer

import (
	"encoding/json"
	"fmt"

	"github.com/ValentinKolb/h5tree/rpc/common"
)

// NewJSONSerializer creates a serializer that writes messages as JSON
// documents. Byte fields (attribute values, rows) are base64 encoded, which
// makes it the slowest serializer; it is meant for debugging the wire.
func NewJSONSerializer() IRPCSerializer {
	return &jsonSerializerImpl{}
}

type jsonSerializerImpl struct{}

// --------------------------------------------------------------------------
// Interface Methods (docu see serializer.IRPCSerializer)
// --------------------------------------------------------------------------

func (j jsonSerializerImpl) Serialize(msg common.Message) ([]byte, error) {
	b, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("json encode %s message: %w", msg.MsgType, err)
	}
	return b, nil
}

func (j jsonSerializerImpl) Deserialize(b []byte, msg *common.Message) error {
	if err := json.Unmarshal(b, msg); err != nil {
		return fmt.Errorf("json decode message: %w", err)
	}
	return nil
}
