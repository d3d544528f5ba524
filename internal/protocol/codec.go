package protocol

// Wire constants for the TCP control protocol (verified against live
// captures from ZJ-WFMN-A controllers).
const (
	// StatusHeader is byte 0 of every valid status frame.
	StatusHeader = 0x81

	// StatusFrameSize is the fixed length of a status frame.
	StatusFrameSize = 14

	// LocalFlag is appended to every generically encoded command. It marks
	// the command as originating on the local network rather than the
	// vendor's cloud relay.
	LocalFlag = 0x0f

	// Power sentinels, used both in the power command and in byte 2 of a
	// status frame.
	powerOn  = 0x23
	powerOff = 0x24

	// Command opcodes.
	opRGBW   = 0x31
	opCustom = 0x51
	opEffect = 0x61

	// Mode sentinels reported in byte 3 of a status frame. Any other value
	// is looked up in the built-in effect table.
	modeCustom = 0x60
	modeStatic = 0x61
	modeOther  = 0x62
)

// Pre-encoded 4-byte commands. These bypass EncodeCommand: their trailing
// checksum byte is baked in as a constant and verified by TestLiteralCommands.
var (
	statusRequest = []byte{0x81, 0x8a, 0x8b, 0x96}
	powerOnCmd    = []byte{0x71, powerOn, LocalFlag, 0xa3}
	powerOffCmd   = []byte{0x71, powerOff, LocalFlag, 0xa4}
)

// checksum sums buf modulo 256.
func checksum(buf []byte) byte {
	var sum int
	for _, b := range buf {
		sum += int(b)
	}
	return byte(sum)
}

// EncodeCommand appends the local flag byte and the additive checksum to a
// command payload. The checksum covers every byte of the returned buffer
// except itself. The input slice is not modified.
func EncodeCommand(payload []byte) []byte {
	out := make([]byte, 0, len(payload)+2)
	out = append(out, payload...)
	out = append(out, LocalFlag)
	out = append(out, checksum(out))
	return out
}

// StatusRequest returns the fixed status query command.
func StatusRequest() []byte {
	return clone(statusRequest)
}

// PowerOn returns the fixed power-on command.
func PowerOn() []byte {
	return clone(powerOnCmd)
}

// PowerOff returns the fixed power-off command.
func PowerOff() []byte {
	return clone(powerOffCmd)
}

// BuildRGBW builds the static color command for the given channel levels.
func BuildRGBW(red, green, blue, white uint8) []byte {
	return EncodeCommand([]byte{opRGBW, red, green, blue, white, 0x00})
}

// BuildEffect builds the command that starts a built-in effect. Speed is the
// API-facing 0-100 value; the wire carries the reflected delay.
func BuildEffect(id byte, speed int) []byte {
	return EncodeCommand([]byte{opEffect, id, EffectSpeedToWire(speed)})
}

func clone(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
