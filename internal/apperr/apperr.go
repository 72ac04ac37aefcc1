// Package apperr defines the error taxonomy shared by the session adapter
// and the control endpoint. Kinds are sentinels, wrapped with fmt.Errorf's
// %w so callers can still errors.Is/errors.As down to the underlying cause.
package apperr

import (
	"errors"
	"fmt"
)

// Kind identifies one of the error categories a SessionAdapter operation
// or a ControlEndpoint handler can fail with.
type Kind int

const (
	// KindValidation marks a request field out of range, missing, or
	// mutually inconsistent with another field.
	KindValidation Kind = iota
	// KindNotFound marks an unknown connection id.
	KindNotFound
	// KindNotConnected marks an op issued on a session not in the
	// connected sub-state.
	KindNotConnected
	// KindTimeout marks a PendingOp.Await that expired.
	KindTimeout
	// KindLibraryError marks a non-success result from the MQTT client
	// library.
	KindLibraryError
	// KindTLSSetup marks a temp-file write or TLS configuration failure.
	KindTLSSetup
	// KindInitialisation marks failure to create the underlying client.
	KindInitialisation
	// KindRPCFailure marks a failed outbound RPC to the controller; it
	// never propagates to an RPC caller, only to logs.
	KindRPCFailure
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "Validation"
	case KindNotFound:
		return "NotFound"
	case KindNotConnected:
		return "NotConnected"
	case KindTimeout:
		return "Timeout"
	case KindLibraryError:
		return "LibraryError"
	case KindTLSSetup:
		return "TlsSetup"
	case KindInitialisation:
		return "Initialisation"
	case KindRPCFailure:
		return "RpcFailure"
	default:
		return "Unknown"
	}
}

// Error is a Kind-tagged error. LibraryCode carries the MQTT client
// library's native error code when Kind == KindLibraryError; it is zero
// otherwise.
type Error struct {
	Kind        Kind
	Message     string
	LibraryCode int
	cause       error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// New builds an *Error of the given kind with a formatted message.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap builds an *Error of the given kind, preserving cause for errors.Is/As.
func Wrap(kind Kind, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), cause: cause}
}

// Library builds a KindLibraryError carrying the client library's native
// error code.
func Library(code int, cause error) *Error {
	return &Error{Kind: KindLibraryError, Message: "mqtt client library error", LibraryCode: code, cause: cause}
}

// KindOf reports the Kind of err if it is (or wraps) an *Error, and
// whether one was found.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}
