// Package transport defines the socket-level error taxonomy shared by the
// UDP and TCP device channels. Frame and caller-input errors live with the
// codec in internal/protocol; this package covers everything the network
// itself can do to us.
package transport

import (
	"errors"
	"fmt"
	"net"
	"os"
	"syscall"
)

// Subtype gives a more specific classification of a transport failure.
type Subtype int

const (
	SubtypeGeneral Subtype = iota
	SubtypeTimeout
	SubtypeConnectionRefused
	SubtypeHostUnreachable
	SubtypeNetworkUnreachable
	SubtypeClosed
)

// String returns a human-readable name for the subtype.
func (s Subtype) String() string {
	switch s {
	case SubtypeGeneral:
		return "network error"
	case SubtypeTimeout:
		return "timeout"
	case SubtypeConnectionRefused:
		return "connection refused"
	case SubtypeHostUnreachable:
		return "host unreachable"
	case SubtypeNetworkUnreachable:
		return "network unreachable"
	case SubtypeClosed:
		return "connection closed"
	default:
		return fmt.Sprintf("Subtype(%d)", s)
	}
}

// Error is a socket-level failure on one of the device channels, including
// connect failures. It wraps the underlying net error for chain inspection.
type Error struct {
	Op      string  // operation that failed ("connect", "write", "read", ...)
	Addr    string  // remote address, for context
	Subtype Subtype // classified failure kind
	Err     error   // underlying error
}

func (e *Error) Error() string {
	if e.Addr != "" {
		return fmt.Sprintf("%s %s: %s: %v", e.Op, e.Addr, e.Subtype, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Subtype, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Classify wraps a raw network error with op/addr context and a subtype.
// Returns nil for a nil error.
func Classify(op, addr string, err error) *Error {
	if err == nil {
		return nil
	}

	out := &Error{Op: op, Addr: addr, Subtype: SubtypeGeneral, Err: err}

	switch {
	case os.IsTimeout(err):
		out.Subtype = SubtypeTimeout
	case errors.Is(err, net.ErrClosed):
		out.Subtype = SubtypeClosed
	case errors.Is(err, syscall.ECONNREFUSED):
		out.Subtype = SubtypeConnectionRefused
	case errors.Is(err, syscall.EHOSTUNREACH):
		out.Subtype = SubtypeHostUnreachable
	case errors.Is(err, syscall.ENETUNREACH):
		out.Subtype = SubtypeNetworkUnreachable
	}

	return out
}

// IsTransportError reports whether err is a socket-level channel failure.
func IsTransportError(err error) bool {
	var te *Error
	return errors.As(err, &te)
}

// DisconnectedError reports that a device could not be reached during
// discovery or connect. It is not used once a channel is dead; dead
// channels answer with silent no-ops instead.
type DisconnectedError struct {
	Addr string
	Err  error
}

func (e *DisconnectedError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("device %s not responding: %v", e.Addr, e.Err)
	}
	return fmt.Sprintf("device %s not responding", e.Addr)
}

func (e *DisconnectedError) Unwrap() error {
	return e.Err
}

// IsDisconnected reports whether err is a discovery/connect failure.
func IsDisconnected(err error) bool {
	var de *DisconnectedError
	return errors.As(err, &de)
}
