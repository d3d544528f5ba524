package protocol

import (
	"fmt"
	"strings"

	"github.com/muurk/wifiled/internal/catalog"
)

// Mode is the operating mode reported in a status frame.
type Mode string

const (
	// ModeStatic means the controller is holding a single color.
	ModeStatic Mode = "static"
	// ModeCustom means a user-defined pattern is running.
	ModeCustom Mode = "custom"
	// ModeOther covers internally negotiated modes (music/camera reactive)
	// whose details the controller does not expose.
	ModeOther Mode = "other"

	functionPrefix = "function:"
)

// FunctionMode returns the mode value for a running built-in effect.
func FunctionMode(name string) Mode {
	return Mode(functionPrefix + name)
}

// IsFunction reports whether the mode is a running built-in effect.
func (m Mode) IsFunction() bool {
	return strings.HasPrefix(string(m), functionPrefix)
}

// FunctionName returns the effect name for a function mode, or "".
func (m Mode) FunctionName() string {
	if !m.IsFunction() {
		return ""
	}
	return strings.TrimPrefix(string(m), functionPrefix)
}

// StatusFrame is the decoded device state. It is only ever constructed by a
// fully successful DecodeStatus; a failed validation yields no partial frame.
type StatusFrame struct {
	// Raw is the original 14-byte frame.
	Raw []byte

	Power bool
	Mode  Mode

	// Speed is only meaningful when HasSpeed is set, which happens for
	// custom and built-in effect modes.
	Speed    int
	HasSpeed bool

	Red, Green, Blue, White uint8
}

// String returns a compact debug representation of the frame.
func (f *StatusFrame) String() string {
	power := "off"
	if f.Power {
		power = "on"
	}
	speed := ""
	if f.HasSpeed {
		speed = fmt.Sprintf(", speed=%d", f.Speed)
	}
	return fmt.Sprintf("Status{%s, mode=%s%s, rgbw=%d/%d/%d/%d}",
		power, f.Mode, speed, f.Red, f.Green, f.Blue, f.White)
}

// DecodeStatus validates a 14-byte status frame and decodes it. Checks are
// applied in order (header, checksum, power, mode) and the first failure is
// the only one reported.
func DecodeStatus(frame []byte) (*StatusFrame, error) {
	if len(frame) != StatusFrameSize {
		return nil, fmt.Errorf("status frame must be %d bytes, got %d", StatusFrameSize, len(frame))
	}

	if frame[0] != StatusHeader {
		return nil, &FrameError{Kind: BadHeader, Got: frame[0], Want: StatusHeader}
	}

	want := checksum(frame[:StatusFrameSize-1])
	if got := frame[StatusFrameSize-1]; got != want {
		return nil, &FrameError{Kind: ChecksumMismatch, Got: got, Want: want}
	}

	out := &StatusFrame{Raw: clone(frame)}

	switch frame[2] {
	case powerOn:
		out.Power = true
	case powerOff:
		out.Power = false
	default:
		return nil, &FrameError{Kind: BadPower, Got: frame[2]}
	}

	switch frame[3] {
	case modeStatic:
		out.Mode = ModeStatic
	case modeOther:
		out.Mode = ModeOther
	case modeCustom:
		out.Mode = ModeCustom
		out.Speed = CustomSpeedFromWire(frame[5])
		out.HasSpeed = true
	default:
		name, ok := catalog.FunctionName(frame[3])
		if !ok {
			return nil, &FrameError{Kind: BadMode, Got: frame[3]}
		}
		out.Mode = FunctionMode(name)
		out.Speed = EffectSpeedFromWire(frame[5])
		out.HasSpeed = true
	}

	out.Red = frame[6]
	out.Green = frame[7]
	out.Blue = frame[8]
	out.White = frame[9]

	return out, nil
}
