// Package serializer provides message serialization for the remote backend.
// It defines a common interface and multiple implementations for serializing
// and deserializing common.Message values between client and server.
//
// Key Components:
//
//   - IRPCSerializer: Core interface that all serializer implementations must satisfy.
//
//   - binarySerializerImpl: Custom binary format. A 16 bit flag field marks the
//     present fields, so only those are encoded. Nil and empty byte slices are
//     kept apart, which matters for empty variable-length rows.
//
//   - gobSerializerImpl: Implementation using Go's built-in gob encoding.
//
//   - jsonSerializerImpl: Implementation using JSON encoding, useful for debugging
//     or interoperability with other systems, but with lower performance.
//
// Row payloads (dataset rows, raw attributes) dominate the message size. The
// binary format writes them without any re-encoding, JSON base64 encodes them.
//
// Thread Safety:
//
//	All serializer implementations are stateless and safe for concurrent use
//	across multiple goroutines without additional synchronization.
//
// Usage:
//
//	serializer := serializer.NewBinarySerializer()
//	data, err := serializer.Serialize(message)
//	// ... send data ...
//	var receivedMsg common.Message
//	err = serializer.Deserialize(receivedData, &receivedMsg)
package serializer
