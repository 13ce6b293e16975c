package backend

import (
	"errors"
	"fmt"
)

// --------------------------------------------------------------------------
// Custom Error Type
// --------------------------------------------------------------------------

// Error is a custom error type that wraps a return code (of type RetCode)
// and a descriptive message. Two errors are considered equal by errors.Is
// if their codes match, so callers can test against the sentinels below.
type Error struct {
	Code RetCode // The return code
	Msg  string  // The error message
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Msg)
}

// Is reports whether target is an *Error with the same code.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// NewError creates a new Error with the given code and message.
func NewError(code RetCode, msg string) *Error {
	return &Error{
		Code: code,
		Msg:  msg,
	}
}

// Errorf creates a new Error with the given code and a formatted message.
func Errorf(code RetCode, format string, args ...interface{}) *Error {
	return NewError(code, fmt.Sprintf(format, args...))
}

// CodeOf returns the RetCode carried by err, RetCInternalError for foreign
// errors and RetCSuccess for nil.
func CodeOf(err error) RetCode {
	if err == nil {
		return RetCSuccess
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return RetCInternalError
}

// --------------------------------------------------------------------------
// Return Codes
// --------------------------------------------------------------------------

type RetCode uint64

const (
	RetCSuccess            RetCode = iota // 0: Operation succeeded.
	RetCInternalError                     // 1: Failure inside the native library.
	RetCBackendUnavailable                // 2: The requested backend could not be loaded.
	RetCInvalidGroupType                  // 3: Group type outside the closed enumeration.
	RetCMissingData                       // 4: A payload was required but none was given.
	RetCCorruptMetadata                   // 5: Stored structural metadata cannot be interpreted.
	RetCAxisMismatch                      // 6: Payload shape does not fit the stored element shape.
	RetCNotFound                          // 7: No node at the given path.
	RetCExists                            // 8: A node with that name already exists.
	RetCReadOnly                          // 9: Write attempted on a read-only session.
	RetCClosed                            // 10: Session is not open.
	RetCInvalidArgument                   // 11: Malformed argument.
)

func (c RetCode) String() string {
	switch c {
	case RetCSuccess:
		return "Success"
	case RetCInternalError:
		return "InternalError"
	case RetCBackendUnavailable:
		return "BackendUnavailable"
	case RetCInvalidGroupType:
		return "InvalidGroupType"
	case RetCMissingData:
		return "MissingData"
	case RetCCorruptMetadata:
		return "CorruptMetadata"
	case RetCAxisMismatch:
		return "AxisMismatch"
	case RetCNotFound:
		return "NotFound"
	case RetCExists:
		return "Exists"
	case RetCReadOnly:
		return "ReadOnly"
	case RetCClosed:
		return "Closed"
	case RetCInvalidArgument:
		return "InvalidArgument"
	default:
		return fmt.Sprintf("RetCode(%d)", uint64(c))
	}
}

// Sentinels for errors.Is checks.
var (
	ErrBackendUnavailable = NewError(RetCBackendUnavailable, "backend unavailable")
	ErrInvalidGroupType   = NewError(RetCInvalidGroupType, "invalid group type")
	ErrMissingData        = NewError(RetCMissingData, "missing data")
	ErrCorruptMetadata    = NewError(RetCCorruptMetadata, "corrupt metadata")
	ErrAxisMismatch       = NewError(RetCAxisMismatch, "axis mismatch")
	ErrNotFound           = NewError(RetCNotFound, "node not found")
	ErrExists             = NewError(RetCExists, "node exists")
	ErrReadOnly           = NewError(RetCReadOnly, "session is read-only")
	ErrClosed             = NewError(RetCClosed, "session is closed")
	ErrInvalidArgument    = NewError(RetCInvalidArgument, "invalid argument")
)
