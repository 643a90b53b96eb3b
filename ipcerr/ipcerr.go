// Package ipcerr defines the error taxonomy shared by the channel core,
// the config loader and the transports.
package ipcerr

import (
	"errors"
	"fmt"
)

// Code discriminates the failure classes surfaced by this library.
type Code uint16

const (
	CodeUnknown Code = iota

	// CodeIO covers filesystem open/read/write failures.
	CodeIO

	// CodeEncode and CodeDecode cover payload (de)serialization failures.
	CodeEncode
	CodeDecode

	// CodeNotUTF8 marks a frame that was expected to be text but is not
	// valid UTF-8.  The offending bytes are retained for diagnostics.
	CodeNotUTF8

	// CodeConfigDecode and CodeConfigEncode cover the config file codec.
	CodeConfigDecode
	CodeConfigEncode

	// CodeTransport covers bind/connect/send/receive failures reported by
	// the underlying transport.
	CodeTransport
)

func (c Code) String() string {
	switch c {
	case CodeIO:
		return "io"
	case CodeEncode:
		return "encode"
	case CodeDecode:
		return "decode"
	case CodeNotUTF8:
		return "not-utf8"
	case CodeConfigDecode:
		return "config-decode"
	case CodeConfigEncode:
		return "config-encode"
	case CodeTransport:
		return "transport"
	default:
		return fmt.Sprintf("unknown(%d)", uint16(c))
	}
}

// Error is the single error type returned from this library's fallible
// operations.  Nothing is retried internally; every failure propagates to
// the direct caller.
type Error struct {
	Code  Code
	Msg   string
	Bytes []byte // offending payload, set iff Code == CodeNotUTF8
	Cause error
}

func (e *Error) Error() string {
	switch {
	case e.Msg != "" && e.Cause != nil:
		return fmt.Sprintf("%s: %s: %s", e.Code, e.Msg, e.Cause)
	case e.Msg != "":
		return fmt.Sprintf("%s: %s", e.Code, e.Msg)
	case e.Cause != nil:
		return fmt.Sprintf("%s: %s", e.Code, e.Cause)
	default:
		return e.Code.String()
	}
}

func (e *Error) Unwrap() error { return e.Cause }

// New creates an Error carrying only a message.
func New(code Code, msg string) *Error {
	return &Error{Code: code, Msg: msg}
}

// Wrap annotates err with a taxonomy code.  Returns nil if err is nil.
func Wrap(code Code, err error, msg string) *Error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Msg: msg, Cause: err}
}

// NotUTF8 creates a CodeNotUTF8 error.  The payload is copied so the caller
// may reuse its buffer.
func NotUTF8(p []byte) *Error {
	return &Error{
		Code:  CodeNotUTF8,
		Msg:   fmt.Sprintf("expected UTF-8 text, got %d raw bytes", len(p)),
		Bytes: append([]byte(nil), p...),
	}
}

// CodeOf extracts the taxonomy code from err, or CodeUnknown if err is not
// an *Error.
func CodeOf(err error) Code {
	if e, ok := AsError(err); ok {
		return e.Code
	}
	return CodeUnknown
}

// AsError performs a safe type check against the taxonomy.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}
