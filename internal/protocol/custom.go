package protocol

import "fmt"

// CustomStepCount is the fixed number of color steps in a custom pattern
// command. Shorter patterns are padded with the null step.
const CustomStepCount = 16

// Step is one color stop of a custom pattern.
type Step struct {
	Red, Green, Blue uint8
}

// NullStep is the reserved sentinel the firmware treats as "no step". It
// terminates and pads the step list on the wire and must never be sent as a
// real color.
var NullStep = Step{Red: 1, Green: 2, Blue: 3}

// IsNullStep reports whether s is the reserved null-step sentinel.
func IsNullStep(s Step) bool {
	return s == NullStep
}

// CustomMode selects how the controller transitions between custom steps.
type CustomMode string

const (
	CustomGradual CustomMode = "gradual"
	CustomJumping CustomMode = "jumping"
	CustomStrobe  CustomMode = "strobe"
)

var customModeIDs = map[CustomMode]byte{
	CustomGradual: 0x3a,
	CustomJumping: 0x3b,
	CustomStrobe:  0x3c,
}

// NormalizeSteps produces the exact step list transmitted on the wire:
// null-step sentinels are dropped from the input, the remainder is
// truncated to CustomStepCount, and the result is right-padded with the
// null step to exactly CustomStepCount entries. Relative order of real
// steps is preserved.
func NormalizeSteps(steps []Step) []Step {
	out := make([]Step, 0, CustomStepCount)
	for _, s := range steps {
		if IsNullStep(s) {
			continue
		}
		if len(out) == CustomStepCount {
			break
		}
		out = append(out, s)
	}
	for len(out) < CustomStepCount {
		out = append(out, NullStep)
	}
	return out
}

// BuildCustom builds the custom pattern command. The mode must be one of
// the three known transition modes; an unknown mode is rejected before
// anything is encoded.
func BuildCustom(mode CustomMode, speed int, steps []Step) ([]byte, error) {
	modeID, ok := customModeIDs[mode]
	if !ok {
		return nil, &ProtocolError{Op: "custom", Message: fmt.Sprintf("unknown custom mode %q", mode)}
	}

	payload := make([]byte, 0, 1+CustomStepCount*4+3)
	payload = append(payload, opCustom)
	for _, s := range NormalizeSteps(steps) {
		payload = append(payload, s.Red, s.Green, s.Blue, 0x00)
	}
	payload = append(payload, CustomSpeedToWire(speed), modeID, 0xff)

	return EncodeCommand(payload), nil
}
