package common

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ValentinKolb/h5tree/lib/backend"
)

// --------------------------------------------------------------------------
// Message Structure
// --------------------------------------------------------------------------

// Message represents a single message used for both requests and responses.
// Which fields are used depends on the type of message. Node handles travel
// as absolute paths.
type Message struct {
	// Type of message
	MsgType MessageType `json:"msg_type"`

	// General fields
	Session string   `json:"session,omitempty"` // Used for: every request after Open, Open (response)
	Path    string   `json:"path,omitempty"`    // Used for: every node operation (the handle), create responses
	Key     string   `json:"key,omitempty"`     // Used for: Open (file), CopyTo (file), child name, attribute key
	Value   []byte   `json:"value,omitempty"`   // Used for: Open (mode), CreateGroup (title), raw attributes, rows, dataset spec/info
	Rows    [][]byte `json:"rows,omitempty"`    // Used for: CreateDataset (initial rows), ReadRows (response), Attrs (response)
	Names   []string `json:"names,omitempty"`   // Used for: Children, AttrNames, Attrs (responses)
	Num     int64    `json:"num,omitempty"`     // Used for: RowCount (response)

	// Response only fields
	Ok   bool   `json:"ok,omitempty"`   // Used for: GetAttr responses
	Code uint64 `json:"code,omitempty"` // backend.RetCode of Err
	Err  string `json:"err,omitempty"`  // Empty if no error, otherwise contains the error message
}

// SetError stores err (and its return code) in the message.
func (m *Message) SetError(err error) {
	if err == nil {
		return
	}
	m.Code = uint64(backend.CodeOf(err))
	var e *backend.Error
	if errors.As(err, &e) {
		m.Err = e.Msg
	} else {
		m.Err = err.Error()
	}
	if m.Err == "" {
		m.Err = backend.RetCode(m.Code).String()
	}
}

// AsError returns the error carried by a response, rebuilt with its return
// code so errors.Is works against the backend sentinels. Nil if there is none.
func (m *Message) AsError() error {
	if m.MsgType != MsgTError && m.Err == "" {
		return nil
	}
	code := backend.RetCode(m.Code)
	if code == backend.RetCSuccess {
		code = backend.RetCInternalError
	}
	return backend.NewError(code, m.Err)
}

// --------------------------------------------------------------------------
// Message Factory Functions
// --------------------------------------------------------------------------

// NewPingRequest creates a new Ping request
func NewPingRequest() *Message {
	return &Message{MsgType: MsgTPing}
}

// NewOpenRequest creates a new Open request
func NewOpenRequest(file string, mode backend.Mode) *Message {
	return &Message{
		MsgType: MsgTOpen,
		Key:     file,
		Value:   []byte(mode),
	}
}

// NewSessionRequest creates a request that only addresses a session (Close, Flush)
func NewSessionRequest(t MessageType, session string) *Message {
	return &Message{
		MsgType: t,
		Session: session,
	}
}

// NewCopyToRequest creates a new CopyTo request
func NewCopyToRequest(session, file string) *Message {
	return &Message{
		MsgType: MsgTCopyTo,
		Session: session,
		Key:     file,
	}
}

// NewNodeRequest creates a request that addresses one node (Lookup, Children,
// Dataset, Attrs, AttrNames, ReadRows, RowCount)
func NewNodeRequest(t MessageType, session, path string) *Message {
	return &Message{
		MsgType: t,
		Session: session,
		Path:    path,
	}
}

// NewCreateGroupRequest creates a new CreateGroup request
func NewCreateGroupRequest(session, parent, name, title string) *Message {
	return &Message{
		MsgType: MsgTCreateGroup,
		Session: session,
		Path:    parent,
		Key:     name,
		Value:   []byte(title),
	}
}

// NewCreateDatasetRequest creates a new CreateDataset request
func NewCreateDatasetRequest(session, parent, name string, spec backend.DatasetSpec) (*Message, error) {
	value, err := EncodeDatasetSpec(spec)
	if err != nil {
		return nil, err
	}
	return &Message{
		MsgType: MsgTCreateDataset,
		Session: session,
		Path:    parent,
		Key:     name,
		Value:   value,
		Rows:    spec.Rows,
	}, nil
}

// NewGetAttrRequest creates a new GetAttr request
func NewGetAttrRequest(session, path, key string) *Message {
	return &Message{
		MsgType: MsgTGetAttr,
		Session: session,
		Path:    path,
		Key:     key,
	}
}

// NewSetAttrRequest creates a new SetAttr request
func NewSetAttrRequest(session, path, key string, value interface{}) (*Message, error) {
	raw, err := backend.EncodeRaw(value)
	if err != nil {
		return nil, err
	}
	return &Message{
		MsgType: MsgTSetAttr,
		Session: session,
		Path:    path,
		Key:     key,
		Value:   raw,
	}, nil
}

// NewAppendRowRequest creates a new AppendRow request
func NewAppendRowRequest(session, path string, row []byte) *Message {
	return &Message{
		MsgType: MsgTAppendRow,
		Session: session,
		Path:    path,
		Value:   row,
	}
}

// NewResponse creates a response of type t carrying err, if any
func NewResponse(t MessageType, err error) *Message {
	msg := &Message{MsgType: t}
	msg.SetError(err)
	return msg
}

// NewErrorResponse creates a new Error response
func NewErrorResponse(err error) *Message {
	msg := &Message{MsgType: MsgTError}
	msg.SetError(err)
	return msg
}

// --------------------------------------------------------------------------
// Message Type Definition
// --------------------------------------------------------------------------

// MessageType defines the type of message used in RPC communication.
type MessageType uint8

// String returns the string representation of a MessageType.
func (t MessageType) String() string {
	switch t {
	case MsgTSuccess:
		return "success"
	case MsgTError:
		return "error"
	case MsgTPing:
		return "ping"
	case MsgTOpen:
		return "open"
	case MsgTClose:
		return "close"
	case MsgTFlush:
		return "flush"
	case MsgTCopyTo:
		return "copyTo"
	case MsgTLookup:
		return "lookup"
	case MsgTChildren:
		return "children"
	case MsgTCreateGroup:
		return "createGroup"
	case MsgTCreateDataset:
		return "createDataset"
	case MsgTDataset:
		return "dataset"
	case MsgTGetAttr:
		return "getAttr"
	case MsgTAttrs:
		return "attrs"
	case MsgTAttrNames:
		return "attrNames"
	case MsgTSetAttr:
		return "setAttr"
	case MsgTAppendRow:
		return "appendRow"
	case MsgTReadRows:
		return "readRows"
	case MsgTRowCount:
		return "rowCount"
	default:
		return "unknown"
	}
}

// MarshalJSON implements the json.Marshaller interface for MessageType.
// This allows MessageType to be serialized as a string in JSON.
func (t MessageType) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON implements the json.Unmarshaler interface for MessageType.
// This allows MessageType to be deserialized from a string in JSON.
func (t *MessageType) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	for candidate := MsgTSuccess; candidate <= msgTLast; candidate++ {
		if candidate.String() == s {
			*t = candidate
			return nil
		}
	}
	return fmt.Errorf("unknown message type: %s", s)
}

// --------------------------------------------------------------------------
// Message Type Constants
// --------------------------------------------------------------------------

const (
	// General message types

	MsgTUnknown MessageType = iota
	MsgTSuccess             // Indicates a successful operation
	MsgTError               // Indicates an error occurred
	MsgTPing                // Liveness check, used by the driver probe

	// Session operations

	MsgTOpen   // Open a file, returns the session id
	MsgTClose  // Close a session
	MsgTFlush  // Flush a session
	MsgTCopyTo // Copy the open file

	// Navigation and creation

	MsgTLookup        // Resolve a path
	MsgTChildren      // List children in insertion order
	MsgTCreateGroup   // Create a group
	MsgTCreateDataset // Create a dataset
	MsgTDataset       // Dataset layout

	// Attributes

	MsgTGetAttr   // Read one raw attribute
	MsgTAttrs     // Read all raw attributes
	MsgTAttrNames // Attribute names in insertion order
	MsgTSetAttr   // Write one raw attribute

	// Data

	MsgTAppendRow // Append one row
	MsgTReadRows  // Read all rows
	MsgTRowCount  // Native length

	msgTLast = MsgTRowCount
)
