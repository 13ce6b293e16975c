// Package ndarray provides the minimal dense array type exchanged between the
// storage facade and its backends: a dtype, a shape and a little-endian payload
// that can be split into rows along axis 0.
package ndarray
