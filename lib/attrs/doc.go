// Package attrs converts attribute values between Go and their stored form.
//
// Every attribute is stored as JSON text, whatever the backend. Three structural
// keys (TITLE, CLASS, EXTDIM) may be written natively by a backend as bytes or
// integers; DecodeStructural turns them into text so comparisons are stable
// across backends.
//
// Elements of string arrays use a separate, versioned object encoding
// (MarshalObject/UnmarshalObject) so that arbitrary values can travel as opaque
// byte buffers.
package attrs
