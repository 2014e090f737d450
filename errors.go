package responder

import (
	"errors"
	"fmt"
	"syscall"
)

// Error is a structured responder error carrying enough context to log or
// branch on without parsing a message string.
type Error struct {
	Op       string        // operation that failed, e.g. "SendCommand", "GetResponse"
	ClientID uint16         // client handle involved, if any
	HasID    bool          // whether ClientID is meaningful
	Code     ErrorCode     // high-level category
	Errno    syscall.Errno // underlying POSIX errno, 0 if not applicable
	Msg      string
	Inner    error
}

func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = string(e.Code)
	}
	if e.HasID {
		return fmt.Sprintf("responder: %s: %s (client=%d)", e.Op, msg, e.ClientID)
	}
	return fmt.Sprintf("responder: %s: %s", e.Op, msg)
}

func (e *Error) Unwrap() error { return e.Inner }

func (e *Error) Is(target error) bool {
	te, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == te.Code
}

// ErrorCode is a high-level error category, mirroring the POSIX error set
// spec.md §6 names for the wire protocol.
type ErrorCode string

const (
	ErrCodeBusy        ErrorCode = "device busy"
	ErrCodeBadHandle   ErrorCode = "bad handle"
	ErrCodePipeClosed  ErrorCode = "pipe closed"
	ErrCodeIO          ErrorCode = "I/O error"
	ErrCodeInvalid     ErrorCode = "invalid argument"
	ErrCodeTimedOut    ErrorCode = "timed out"
	ErrCodeNoDevice    ErrorCode = "no such device"
	ErrCodeInterrupted ErrorCode = "interrupted"
	ErrCodeNoMemory    ErrorCode = "insufficient memory"
	ErrCodeNotSupported ErrorCode = "not implemented"
)

// Sentinel *Error values tests and callers can compare against with
// errors.Is; construction helpers below attach operation/client context
// around the same Code.
var (
	ErrBusy       = &Error{Code: ErrCodeBusy}
	ErrBadHandle  = &Error{Code: ErrCodeBadHandle}
	ErrPipeClosed = &Error{Code: ErrCodePipeClosed}
	ErrIO         = &Error{Code: ErrCodeIO}
	ErrInvalid    = &Error{Code: ErrCodeInvalid}
	ErrTimedOut   = &Error{Code: ErrCodeTimedOut}
	ErrNoDevice   = &Error{Code: ErrCodeNoDevice}
	ErrInterrupted = &Error{Code: ErrCodeInterrupted}
	ErrNoMemory   = &Error{Code: ErrCodeNoMemory}
	ErrNotSupported = &Error{Code: ErrCodeNotSupported}
)

// newError builds a structured error for op, optionally tied to a client.
func newError(op string, code ErrorCode, msg string) *Error {
	return &Error{Op: op, Code: code, Msg: msg}
}

func newClientError(op string, clientID uint16, code ErrorCode, msg string) *Error {
	return &Error{Op: op, ClientID: clientID, HasID: true, Code: code, Msg: msg}
}

// wrapTransportError wraps a transport-reported error with responder
// context, mapping syscall.Errno values to our ErrorCode set the way the
// teacher's WrapError/mapErrnoToCode pair does for ublk.
func wrapTransportError(op string, err error) *Error {
	if err == nil {
		return nil
	}
	if re, ok := err.(*Error); ok {
		return &Error{Op: op, ClientID: re.ClientID, HasID: re.HasID, Code: re.Code, Errno: re.Errno, Msg: re.Msg, Inner: re.Inner}
	}

	var errno syscall.Errno
	if errors.As(err, &errno) {
		return &Error{Op: op, Code: mapErrnoToCode(errno), Errno: errno, Msg: errno.Error(), Inner: err}
	}

	return &Error{Op: op, Code: ErrCodeIO, Msg: err.Error(), Inner: err}
}

// mapErrnoToCode maps a POSIX errno to the responder's ErrorCode set,
// covering exactly the codes spec.md §6 calls out.
func mapErrnoToCode(errno syscall.Errno) ErrorCode {
	switch errno {
	case syscall.EBUSY:
		return ErrCodeBusy
	case syscall.EBADF:
		return ErrCodeBadHandle
	case syscall.EPIPE:
		return ErrCodePipeClosed
	case syscall.EINVAL:
		return ErrCodeInvalid
	case syscall.ETIMEDOUT:
		return ErrCodeTimedOut
	case syscall.ENODEV:
		return ErrCodeNoDevice
	case syscall.EINTR:
		return ErrCodeInterrupted
	case syscall.ENOMEM:
		return ErrCodeNoMemory
	case syscall.ENOSYS:
		return ErrCodeNotSupported
	default:
		return ErrCodeIO
	}
}

// IsCode reports whether err is a responder *Error with the given code.
func IsCode(err error, code ErrorCode) bool {
	var re *Error
	if errors.As(err, &re) {
		return re.Code == code
	}
	return false
}
