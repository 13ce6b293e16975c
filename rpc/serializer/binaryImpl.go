package serializer

import (
	"encoding/binary"
	"fmt"

	"github.com/ValentinKolb/h5tree/rpc/common"
)

// NewBinarySerializer creates a new serializer using a custom binary format
// optimized for speed and efficiency
func NewBinarySerializer() IRPCSerializer {
	return &binarySerializerImpl{}
}

// binarySerializerImpl implements IRPCSerializer using a custom binary format
type binarySerializerImpl struct {
}

// Bit flags to indicate which optional fields are present
const (
	hasSession uint16 = 1 << 0
	hasPath    uint16 = 1 << 1
	hasKey     uint16 = 1 << 2
	hasValue   uint16 = 1 << 3
	hasRows    uint16 = 1 << 4
	hasNames   uint16 = 1 << 5
	hasNum     uint16 = 1 << 6
	hasOk      uint16 = 1 << 7
	hasCode    uint16 = 1 << 8
	hasErr     uint16 = 1 << 9
)

// headerSize is 1 byte MsgType + 2 bytes flags
const headerSize = 3

// --------------------------------------------------------------------------
// Interface Methods (docu see serializer.IRPCSerializer)
// --------------------------------------------------------------------------

func (b binarySerializerImpl) Serialize(msg common.Message) ([]byte, error) {
	// Calculate total size needed
	result := make([]byte, headerSize, b.sizeBytes(msg))

	// Write message type
	result[0] = byte(msg.MsgType)

	// Initialize flags
	var flags uint16

	if msg.Session != "" {
		flags |= hasSession
		result = appendChunk(result, []byte(msg.Session))
	}
	if msg.Path != "" {
		flags |= hasPath
		result = appendChunk(result, []byte(msg.Path))
	}
	if msg.Key != "" {
		flags |= hasKey
		result = appendChunk(result, []byte(msg.Key))
	}
	if msg.Value != nil {
		flags |= hasValue
		result = appendChunk(result, msg.Value)
	}
	if msg.Rows != nil {
		flags |= hasRows
		result = binary.BigEndian.AppendUint32(result, uint32(len(msg.Rows)))
		for _, row := range msg.Rows {
			result = appendChunk(result, row)
		}
	}
	if msg.Names != nil {
		flags |= hasNames
		result = binary.BigEndian.AppendUint32(result, uint32(len(msg.Names)))
		for _, name := range msg.Names {
			result = appendChunk(result, []byte(name))
		}
	}
	if msg.Num != 0 {
		flags |= hasNum
		result = binary.BigEndian.AppendUint64(result, uint64(msg.Num))
	}
	if msg.Ok {
		flags |= hasOk
		result = append(result, 1)
	}
	if msg.Code != 0 {
		flags |= hasCode
		result = binary.BigEndian.AppendUint64(result, msg.Code)
	}
	if msg.Err != "" {
		flags |= hasErr
		result = appendChunk(result, []byte(msg.Err))
	}

	// Set flags after knowing which fields are present
	binary.BigEndian.PutUint16(result[1:3], flags)

	return result, nil
}

func (b binarySerializerImpl) Deserialize(data []byte, msg *common.Message) error {
	// Check minimum size (MsgType + flags)
	if len(data) < headerSize {
		return fmt.Errorf("data too short for message header")
	}

	*msg = common.Message{}
	msg.MsgType = common.MessageType(data[0])
	flags := binary.BigEndian.Uint16(data[1:3])
	r := &binaryReader{data: data, pos: headerSize}

	if flags&hasSession != 0 {
		msg.Session = string(r.readChunk("session"))
	}
	if flags&hasPath != 0 {
		msg.Path = string(r.readChunk("path"))
	}
	if flags&hasKey != 0 {
		msg.Key = string(r.readChunk("key"))
	}
	if flags&hasValue != 0 {
		msg.Value = r.readChunk("value")
	}
	if flags&hasRows != 0 {
		n := r.readUint32("row count")
		if r.err == nil {
			msg.Rows = make([][]byte, 0, min(int(n), len(data)))
		}
		for i := uint32(0); i < n && r.err == nil; i++ {
			msg.Rows = append(msg.Rows, r.readChunk("row"))
		}
	}
	if flags&hasNames != 0 {
		n := r.readUint32("name count")
		if r.err == nil {
			msg.Names = make([]string, 0, min(int(n), len(data)))
		}
		for i := uint32(0); i < n && r.err == nil; i++ {
			msg.Names = append(msg.Names, string(r.readChunk("name")))
		}
	}
	if flags&hasNum != 0 {
		msg.Num = int64(r.readUint64("num"))
	}
	if flags&hasOk != 0 {
		msg.Ok = r.readByte("ok flag") != 0
	}
	if flags&hasCode != 0 {
		msg.Code = r.readUint64("code")
	}
	if flags&hasErr != 0 {
		msg.Err = string(r.readChunk("error"))
	}

	return r.err
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// sizeBytes calculates the total size needed for serialization
func (b binarySerializerImpl) sizeBytes(msg common.Message) int {
	size := headerSize

	// Add sizes for fields that require length encoding
	if msg.Session != "" {
		size += 4 + len(msg.Session)
	}
	if msg.Path != "" {
		size += 4 + len(msg.Path)
	}
	if msg.Key != "" {
		size += 4 + len(msg.Key)
	}
	if msg.Value != nil {
		size += 4 + len(msg.Value)
	}
	if msg.Rows != nil {
		size += 4
		for _, row := range msg.Rows {
			size += 4 + len(row)
		}
	}
	if msg.Names != nil {
		size += 4
		for _, name := range msg.Names {
			size += 4 + len(name)
		}
	}
	if msg.Num != 0 {
		size += 8
	}
	if msg.Ok {
		size += 1
	}
	if msg.Code != 0 {
		size += 8
	}
	if msg.Err != "" {
		size += 4 + len(msg.Err)
	}

	return size
}

// appendChunk writes a 4 byte length followed by the data
func appendChunk(dst, data []byte) []byte {
	dst = binary.BigEndian.AppendUint32(dst, uint32(len(data)))
	return append(dst, data...)
}

// binaryReader reads fields sequentially and keeps the first error
type binaryReader struct {
	data []byte
	pos  int
	err  error
}

func (r *binaryReader) need(n int, field string) bool {
	if r.err != nil {
		return false
	}
	if n < 0 || r.pos+n > len(r.data) {
		r.err = fmt.Errorf("data too short for %s", field)
		return false
	}
	return true
}

func (r *binaryReader) readByte(field string) byte {
	if !r.need(1, field) {
		return 0
	}
	v := r.data[r.pos]
	r.pos++
	return v
}

func (r *binaryReader) readUint32(field string) uint32 {
	if !r.need(4, field) {
		return 0
	}
	v := binary.BigEndian.Uint32(r.data[r.pos:])
	r.pos += 4
	return v
}

func (r *binaryReader) readUint64(field string) uint64 {
	if !r.need(8, field) {
		return 0
	}
	v := binary.BigEndian.Uint64(r.data[r.pos:])
	r.pos += 8
	return v
}

// readChunk reads a length prefixed byte slice. The result is a copy and never
// nil, even for length 0.
func (r *binaryReader) readChunk(field string) []byte {
	n := int(r.readUint32(field + " length"))
	if !r.need(n, field+" data") {
		return nil
	}
	out := make([]byte, n)
	copy(out, r.data[r.pos:r.pos+n])
	r.pos += n
	return out
}
