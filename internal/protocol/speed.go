package protocol

// Speed bounds for the two speed encodings. The wire stores delays, the API
// exposes speeds; the conversion is a reflection about the maximum, so the
// same transform serves both directions.
const (
	// MaxEffectSpeed bounds built-in effect speeds.
	MaxEffectSpeed = 100

	// MaxCustomSpeed bounds custom pattern speeds.
	MaxCustomSpeed = 30
)

// flipSpeed clamps x to [0, max] and reflects it. Applying it twice yields
// the clamped input back.
func flipSpeed(x, max int) int {
	if x < 0 {
		x = 0
	}
	if x > max {
		x = max
	}
	return max - x
}

// EffectSpeedToWire converts an API effect speed (0-100) to the wire delay.
func EffectSpeedToWire(speed int) byte {
	return byte(flipSpeed(speed, MaxEffectSpeed))
}

// EffectSpeedFromWire converts a wire delay back to an API effect speed.
func EffectSpeedFromWire(delay byte) int {
	return flipSpeed(int(delay), MaxEffectSpeed)
}

// CustomSpeedToWire converts an API custom speed (0-30) to the wire delay.
// The custom command stores the delay off by one.
func CustomSpeedToWire(speed int) byte {
	return byte(flipSpeed(speed, MaxCustomSpeed) + 1)
}

// CustomSpeedFromWire converts a custom wire delay back to an API speed.
func CustomSpeedFromWire(delay byte) int {
	return flipSpeed(int(delay)-1, MaxCustomSpeed)
}
