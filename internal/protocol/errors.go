package protocol

import (
	"errors"
	"fmt"
)

// FrameErrorKind categorizes how a status frame failed validation.
type FrameErrorKind int

const (
	// BadHeader means byte 0 was not StatusHeader.
	BadHeader FrameErrorKind = iota
	// ChecksumMismatch means the trailing checksum did not match.
	ChecksumMismatch
	// BadPower means byte 2 was neither power sentinel.
	BadPower
	// BadMode means byte 3 matched no mode sentinel and no built-in effect.
	BadMode
)

// String returns a human-readable name for the kind.
func (k FrameErrorKind) String() string {
	switch k {
	case BadHeader:
		return "bad header"
	case ChecksumMismatch:
		return "checksum mismatch"
	case BadPower:
		return "bad power byte"
	case BadMode:
		return "bad mode byte"
	default:
		return fmt.Sprintf("FrameErrorKind(%d)", k)
	}
}

// FrameError reports a malformed or corrupted status frame. Validation is
// short-circuiting, so Kind identifies the first check that failed.
type FrameError struct {
	Kind FrameErrorKind
	Got  byte // offending byte value
	Want byte // expected value (header and checksum kinds only)
}

func (e *FrameError) Error() string {
	switch e.Kind {
	case BadHeader, ChecksumMismatch:
		return fmt.Sprintf("status frame %s: got 0x%02x, want 0x%02x", e.Kind, e.Got, e.Want)
	default:
		return fmt.Sprintf("status frame %s: 0x%02x", e.Kind, e.Got)
	}
}

// IsFrameError reports whether err is a frame validation failure.
func IsFrameError(err error) bool {
	var fe *FrameError
	return errors.As(err, &fe)
}

// ProtocolError reports invalid caller input (unknown effect name, unknown
// custom mode). It is raised synchronously, before any bytes are written.
type ProtocolError struct {
	Op      string
	Message string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Message)
}

// IsProtocolError reports whether err is a caller-input error.
func IsProtocolError(err error) bool {
	var pe *ProtocolError
	return errors.As(err, &pe)
}
