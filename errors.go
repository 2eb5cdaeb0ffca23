package http2

import (
	"errors"
	"fmt"
)

// ErrorCode is the wire representation of an HTTP/2 error, as carried by
// RST_STREAM and GOAWAY frames.
//
// https://tools.ietf.org/html/rfc7540#section-7
type ErrorCode uint32

const (
	NoError              ErrorCode = 0x0
	ProtocolError        ErrorCode = 0x1
	InternalError        ErrorCode = 0x2
	FlowControlError     ErrorCode = 0x3
	SettingsTimeoutError ErrorCode = 0x4
	StreamClosedError    ErrorCode = 0x5
	FrameSizeError       ErrorCode = 0x6
	RefusedStreamError   ErrorCode = 0x7
	CancelError          ErrorCode = 0x8
	CompressionError     ErrorCode = 0x9
	ConnectError         ErrorCode = 0xa
	EnhanceYourCalm      ErrorCode = 0xb
	InadequateSecurity   ErrorCode = 0xc
	HTTP11Required       ErrorCode = 0xd
)

var codeNames = [...]string{
	NoError:              "NO_ERROR",
	ProtocolError:        "PROTOCOL_ERROR",
	InternalError:        "INTERNAL_ERROR",
	FlowControlError:     "FLOW_CONTROL_ERROR",
	SettingsTimeoutError: "SETTINGS_TIMEOUT",
	StreamClosedError:    "STREAM_CLOSED",
	FrameSizeError:       "FRAME_SIZE_ERROR",
	RefusedStreamError:   "REFUSED_STREAM",
	CancelError:          "CANCEL",
	CompressionError:     "COMPRESSION_ERROR",
	ConnectError:         "CONNECT_ERROR",
	EnhanceYourCalm:      "ENHANCE_YOUR_CALM",
	InadequateSecurity:   "INADEQUATE_SECURITY",
	HTTP11Required:       "HTTP_1_1_REQUIRED",
}

func (c ErrorCode) String() string {
	if int(c) < len(codeNames) && codeNames[c] != "" {
		return codeNames[c]
	}
	return fmt.Sprintf("UNKNOWN_ERROR(0x%x)", uint32(c))
}

// Scope describes whether an Error is fatal to the whole connection or
// only to the stream that raised it.
type Scope uint8

const (
	// ScopeStream errors are resolved by resetting a single stream.
	ScopeStream Scope = iota
	// ScopeConnection errors are resolved by sending GOAWAY and closing.
	ScopeConnection
)

// Error is the error type produced by every parser/decoder/state-machine
// boundary in this package. It carries enough information for the
// connection engine to decide whether to emit RST_STREAM or GOAWAY.
type Error struct {
	Code    ErrorCode
	Scope   Scope
	Stream  uint32
	Message string
}

func (e Error) Error() string {
	if e.Message == "" {
		return e.Code.String()
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewConnError builds a connection-fatal error, the caller should reply
// with GOAWAY(lastStreamID, Code, Message).
func NewConnError(code ErrorCode, message string) Error {
	return Error{Code: code, Scope: ScopeConnection, Message: message}
}

// NewStreamError builds a stream-scoped error, the caller should reply
// with RST_STREAM(stream, Code).
func NewStreamError(stream uint32, code ErrorCode, message string) Error {
	return Error{Code: code, Scope: ScopeStream, Stream: stream, Message: message}
}

// IsConnError reports whether err is a connection-fatal Error.
func IsConnError(err error) bool {
	var e Error
	return errors.As(err, &e) && e.Scope == ScopeConnection
}

var (
	ErrUnknownFrameType = errors.New("http2: unknown frame type")
	ErrZeroPayload      = errors.New("http2: zero-length payload where data was expected")
	ErrBadPreface       = errors.New("http2: bad connection preface")
	ErrFrameMismatch    = errors.New("http2: frame type mismatch from called function")
	ErrMissingBytes     = errors.New("http2: frame payload too short")
	ErrPayloadExceeds   = errors.New("http2: frame payload exceeds the negotiated maximum size")
	ErrBitOverflow      = errors.New("http2: integer representation overflow")
	ErrClosedStream     = errors.New("http2: operation on a closed stream")
	ErrWouldBlock       = errors.New("http2: operation would exceed the flow-control window")
)
