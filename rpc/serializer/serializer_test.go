package serializer

import (
	"reflect"
	"testing"

	"github.com/ValentinKolb/h5tree/lib/backend"
	"github.com/ValentinKolb/h5tree/rpc/common"
)

var errNotFound = backend.Errorf(backend.RetCNotFound, "node /missing not found")

// testSerializers is a map of serializer name to factory function
var testSerializers = map[string]func() IRPCSerializer{
	"JSON":   NewJSONSerializer,
	"GOB":    NewGOBSerializer,
	"Binary": NewBinarySerializer,
}

// testMessages creates a set of test messages with different fields filled
func testMessages() []common.Message {
	return []common.Message{
		// Basic message with just a type
		{MsgType: common.MsgTSuccess},

		// Open request
		{
			MsgType: common.MsgTOpen,
			Key:     "data/scan.h5",
			Value:   []byte("w"),
		},

		// Children response
		{
			MsgType: common.MsgTChildren,
			Session: "6f1c2a52-2a7e-4d8e-9a53-0d6c5d7e0c11",
			Path:    "/RawData",
			Names:   []string{"Scan000", "Scan001"},
		},

		// ReadRows response
		{
			MsgType: common.MsgTReadRows,
			Session: "s",
			Path:    "/data",
			Rows:    [][]byte{{1, 2, 3}, {4, 5, 6}},
			Num:     2,
		},

		// Error response
		{
			MsgType: common.MsgTError,
			Code:    7,
			Err:     "node /missing not found",
		},

		// Message with all fields filled
		{
			MsgType: common.MsgTGetAttr,
			Session: "session",
			Path:    "/a/b",
			Key:     "TITLE",
			Value:   []byte("ttitle"),
			Rows:    [][]byte{[]byte("x")},
			Names:   []string{"x"},
			Num:     -42,
			Ok:      true,
			Code:    11,
			Err:     "all fields",
		},
	}
}

// TestSerializerRoundTrip tests that messages can be serialized and deserialized correctly
func TestSerializerRoundTrip(t *testing.T) {
	messages := testMessages()

	for name, factory := range testSerializers {
		t.Run(name, func(t *testing.T) {
			serializer := factory()

			for i, msg := range messages {
				// Serialize
				data, err := serializer.Serialize(msg)
				if err != nil {
					t.Errorf("Failed to serialize message %d: %v", i, err)
					continue
				}

				// Deserialize
				var result common.Message
				err = serializer.Deserialize(data, &result)
				if err != nil {
					t.Errorf("Failed to deserialize message %d: %v", i, err)
					continue
				}

				// Compare
				if !reflect.DeepEqual(msg, result) {
					t.Errorf("Message %d doesn't match after round trip:\nOriginal: %+v\nResult: %+v",
						i, msg, result)
				}
			}
		})
	}
}

// TestMessageTypes tests each message type with each serializer
func TestMessageTypes(t *testing.T) {
	for name, factory := range testSerializers {
		t.Run(name, func(t *testing.T) {
			serializer := factory()

			// Test each message type (don't test for MsgTUnknown since this should raise an error)
			for msgType := common.MsgTSuccess; msgType <= common.MsgTRowCount; msgType++ {
				msg := common.Message{MsgType: msgType, Session: "s"}

				data, err := serializer.Serialize(msg)
				if err != nil {
					t.Errorf("Failed to serialize message type %s: %v", msgType, err)
					continue
				}

				var result common.Message
				if err := serializer.Deserialize(data, &result); err != nil {
					t.Errorf("Failed to deserialize message type %s: %v", msgType, err)
					continue
				}

				if result.MsgType != msgType {
					t.Errorf("Message type doesn't match after round trip: Expected %s, got %s", msgType, result.MsgType)
				}
			}
		})
	}
}

// TestBinarySerializerSpecific tests specific edge cases for the binary serializer
func TestBinarySerializerSpecific(t *testing.T) {
	serializer := NewBinarySerializer()

	testCases := []struct {
		name string
		msg  common.Message
	}{
		{
			name: "Empty message",
			msg:  common.Message{},
		},
		{
			name: "Empty value slice but not nil",
			msg: common.Message{
				MsgType: common.MsgTAppendRow,
				Path:    "/vl",
				Value:   []byte{},
			},
		},
		{
			name: "Empty rows",
			msg: common.Message{
				MsgType: common.MsgTReadRows,
				Rows:    [][]byte{{}, {1}, {}},
			},
		},
		{
			name: "Empty names slice",
			msg: common.Message{
				MsgType: common.MsgTChildren,
				Names:   []string{},
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			data, err := serializer.Serialize(tc.msg)
			if err != nil {
				t.Fatalf("Failed to serialize: %v", err)
			}

			var result common.Message
			if err := serializer.Deserialize(data, &result); err != nil {
				t.Fatalf("Failed to deserialize: %v", err)
			}

			// nil and empty slices are kept apart
			if !reflect.DeepEqual(tc.msg, result) {
				t.Errorf("Round trip mismatch:\nOriginal: %#v\nResult:   %#v", tc.msg, result)
			}
		})
	}
}

// TestBinarySerializerTruncated makes sure short input never panics
func TestBinarySerializerTruncated(t *testing.T) {
	serializer := NewBinarySerializer()
	data, err := serializer.Serialize(testMessages()[5])
	if err != nil {
		t.Fatalf("Failed to serialize: %v", err)
	}

	for n := 0; n < len(data); n++ {
		var result common.Message
		if err := serializer.Deserialize(data[:n], &result); err == nil {
			t.Errorf("Expected an error for %d of %d bytes", n, len(data))
		}
	}
}

// TestMessageErrors checks that error codes survive the wire
func TestMessageErrors(t *testing.T) {
	resp := common.NewResponse(common.MsgTLookup, nil)
	if resp.AsError() != nil {
		t.Errorf("A response without error must not carry one")
	}

	for name, factory := range testSerializers {
		t.Run(name, func(t *testing.T) {
			serializer := factory()
			src := common.NewErrorResponse(errNotFound)

			data, err := serializer.Serialize(*src)
			if err != nil {
				t.Fatalf("Failed to serialize: %v", err)
			}
			var result common.Message
			if err := serializer.Deserialize(data, &result); err != nil {
				t.Fatalf("Failed to deserialize: %v", err)
			}
			if got := result.AsError(); got == nil || got.Error() != errNotFound.Error() {
				t.Errorf("Expected %v, got %v", errNotFound, got)
			}
		})
	}
}

func TestDeserializeRejectsGarbage(t *testing.T) {
	for _, name := range []string{"JSON", "GOB"} {
		t.Run(name, func(t *testing.T) {
			var msg common.Message
			if err := testSerializers[name]().Deserialize([]byte("not a message"), &msg); err == nil {
				t.Errorf("Expected an error for a corrupt message")
			}
		})
	}
}
